package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the cost engine.
type Config struct {
	HTTPPort string
	Database DatabaseConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Engine   EngineConfig
	Autosave AutosaveConfig
	FX       FXConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	ConfigCacheSize int
	ConfigCacheTTL  time.Duration
	PageCacheSize   int
	PageCacheTTL    time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// EngineConfig holds settings for the snapshot refresh loop
type EngineConfig struct {
	RefreshInterval time.Duration // How often to recompute the attribution snapshot
	FetchTimeout    time.Duration // Per-refresh deadline for storage reads
}

// AutosaveConfig holds settings for debounced pricing saves
type AutosaveConfig struct {
	Delay time.Duration // Quiet period after the last edit before a save fires
}

// FXConfig holds currency conversion settings
type FXConfig struct {
	RatesPath string // Optional YAML rate table; empty means built-in rates
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables (and, later, other sources).
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		Database: DatabaseConfig{
			Host:     getEnvString("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			Database: getEnvString("DB_NAME", "costengine"),
			User:     getEnvString("DB_USER", "postgres"),
			Password: getEnvString("DB_PASSWORD", ""),
			SSLMode:  getEnvString("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Cache: CacheConfig{
			ConfigCacheSize: getEnvInt("CACHE_CONFIG_SIZE", 256),
			ConfigCacheTTL:  getEnvDuration("CACHE_CONFIG_TTL", 1*time.Minute),
			PageCacheSize:   getEnvInt("CACHE_PAGE_SIZE", 128),
			PageCacheTTL:    getEnvDuration("CACHE_PAGE_TTL", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Engine: EngineConfig{
			RefreshInterval: getEnvDuration("ENGINE_REFRESH_INTERVAL", 1*time.Minute),
			FetchTimeout:    getEnvDuration("ENGINE_FETCH_TIMEOUT", 30*time.Second),
		},
		Autosave: AutosaveConfig{
			Delay: getEnvDuration("AUTOSAVE_DELAY", 1200*time.Millisecond),
		},
		FX: FXConfig{
			RatesPath: getEnvString("FX_RATES_PATH", ""),
		},
	}

	return cfg, nil
}
