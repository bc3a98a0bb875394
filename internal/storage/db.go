package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection and provides health checks
type DB struct {
	conn *sqlx.DB

	// Cache for pricing configs, which the refresh loop reads every cycle
	configCache *ConfigCache
}

// DBConfig holds database configuration
type DBConfig struct {
	// Connection settings
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeouts
	QueryTimeout time.Duration

	// Cache settings
	ConfigCacheSize int
	ConfigCacheTTL  time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "costengine",
		User:     "postgres",
		Password: "",
		SSLMode:  "disable",

		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		QueryTimeout: 5 * time.Second,

		ConfigCacheSize: 256,
		ConfigCacheTTL:  1 * time.Minute,
	}
}

// NewDB creates a new database connection with caching
func NewDB(cfg DBConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)

	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{
		conn:        conn,
		configCache: NewConfigCache(cfg.ConfigCacheSize, cfg.ConfigCacheTTL),
	}

	return db, nil
}

// Close closes the database connection and clears caches
func (db *DB) Close() error {
	db.configCache.Clear()
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	err := db.conn.GetContext(ctx, &result, "SELECT 1")
	if err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// DBStats returns database statistics
type DBStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration

	ConfigCacheStats CacheStats
}

// GetStats returns current database and cache statistics
func (db *DB) GetStats() DBStats {
	stats := db.conn.Stats()

	return DBStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,

		ConfigCacheStats: db.configCache.GetStats(),
	}
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return db.conn.BeginTxx(ctx, opts)
}

// Conn returns the underlying sqlx connection
// Use this for custom queries not covered by repositories
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// GetConfigCache returns the pricing config cache
func (db *DB) GetConfigCache() *ConfigCache {
	return db.configCache
}

// CleanupExpiredCacheEntries removes expired entries from all caches
// Should be called periodically (e.g., every minute)
func (db *DB) CleanupExpiredCacheEntries() int {
	return db.configCache.CleanupExpired()
}

// Repository factory methods

// NewPricingRepository creates a new pricing repository
func (db *DB) NewPricingRepository() *PricingRepository {
	return NewPricingRepository(db)
}

// NewUsageRepository creates a new usage repository
func (db *DB) NewUsageRepository() *UsageRepository {
	return NewUsageRepository(db)
}
