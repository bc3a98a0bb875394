package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"cost_engine/internal/autosave"
	"cost_engine/internal/config"
	"cost_engine/internal/currency"
	"cost_engine/internal/engine"
	"cost_engine/internal/providers"
	"cost_engine/internal/spend"
	"cost_engine/internal/storage"
	"cost_engine/internal/utils"
	"cost_engine/internal/viewcache"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	DB          *storage.DB
	Engine      *engine.Engine
	Pricing     *storage.PricingRepository
	Usage       *storage.UsageRepository
	Autosave    *autosave.Controller
	PageCache   *viewcache.PageCache
	Preferences currency.PreferenceStore
	Spend       *spend.Tracker
	Logger      *utils.Logger
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config, logger *utils.Logger) (*http.ServeMux, *Dependencies, error) {
	db, err := storage.NewDB(storage.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,

		ConfigCacheSize: cfg.Cache.ConfigCacheSize,
		ConfigCacheTTL:  cfg.Cache.ConfigCacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	rates := currency.DefaultRates()
	if cfg.FX.RatesPath != "" {
		rates, err = currency.LoadRates(cfg.FX.RatesPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load FX rates: %w", err)
		}
	}

	pricingRepo := db.NewPricingRepository()
	usageRepo := db.NewUsageRepository()

	usage := engine.MultiSource{usageRepo}
	if budget := budgetSourceFromEnv(logger); budget != nil {
		usage = append(usage, budget)
	}

	tracker := spend.NewTracker(redisClient, logger)

	eng := engine.New(usage, pricingRepo, rates,
		cfg.Engine.RefreshInterval, cfg.Engine.FetchTimeout, logger)
	eng.OnSnapshot = func(snap *engine.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracker.Record(ctx, snap.Groups, snap.GeneratedAt); err != nil {
			logger.Warn("spend history record failed", "error", err)
		}
	}
	eng.Start()

	saver := autosave.NewController(pricingRepo.Save, cfg.Autosave.Delay, logger)

	deps := &Dependencies{
		DB:          db,
		Engine:      eng,
		Pricing:     pricingRepo,
		Usage:       usageRepo,
		Autosave:    saver,
		PageCache:   viewcache.NewPageCache(cfg.Cache.PageCacheSize, cfg.Cache.PageCacheTTL),
		Preferences: currency.NewRedisPreferenceStore(redisClient),
		Spend:       tracker,
		Logger:      logger,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	return mux, deps, nil
}

// budgetSourceFromEnv builds budget API clients from environment credentials.
// Missing keys just mean no budget rows for that provider.
func budgetSourceFromEnv(logger *utils.Logger) *providers.BudgetSource {
	var clients []providers.BudgetClient

	if key := os.Getenv("OPENAI_ADMIN_API_KEY"); key != "" {
		client, err := providers.NewOpenAIBudgetClient(providers.OpenAIBudgetConfig{
			Name:      "openai",
			APIKeyRef: os.Getenv("OPENAI_ACCOUNT_REF"),
			APIKey:    key,
		})
		if err != nil {
			logger.Warn("skipping openai budget client", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	if key := os.Getenv("ANTHROPIC_ADMIN_API_KEY"); key != "" {
		client, err := providers.NewAnthropicBudgetClient(providers.AnthropicBudgetConfig{
			Name:      "anthropic",
			APIKeyRef: os.Getenv("ANTHROPIC_ACCOUNT_REF"),
			AdminKey:  key,
		})
		if err != nil {
			logger.Warn("skipping anthropic budget client", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	if len(clients) == 0 {
		return nil
	}
	return providers.NewBudgetSource(clients...)
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Health check endpoint - public
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/v1/groups", deps.handleGroups)
	mux.HandleFunc("/v1/summary", deps.handleSummary)
	mux.HandleFunc("/v1/requests", deps.handleRequests)
	mux.HandleFunc("/v1/pricing", deps.handlePricing)
	mux.HandleFunc("/v1/pricing/", deps.handlePricingProvider)
	mux.HandleFunc("/v1/preferences/currency", deps.handleCurrencyPreference)
	mux.HandleFunc("/v1/spend", deps.handleSpendHistory)
}
