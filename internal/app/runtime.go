package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/lookup"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/cache"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/database"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/llm"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/outage-analytics-service/internal/observability"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
)

// Runtime holds the analyzer and the connections opened for it.
type Runtime struct {
	Analyzer *Analyzer
	Redis    *cache.RedisCache    // nil unless REDIS_ENABLED
	DB       *database.PostgresDB // nil unless DB_ENABLED

	logger *slog.Logger
}

// NewRuntime connects the optional backends named in cfg and builds the analyzer.
func NewRuntime(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{logger: logger}

	dicts, err := lookup.LoadFile(cfg.Data.LookupPath)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Parsers: parsers.NewParserFactory(&parsers.ParserConfig{
			SkipEmptyRows:  true,
			TrimWhitespace: true,
			MaxFileSize:    cfg.MaxFileSizeBytes(),
		}),
		Dictionaries: dicts,
		Assistant: assistant.Config{
			DefaultModel:  cfg.LLM.Model,
			AllowedModels: cfg.LLM.AllowedModels,
			MaxRows:       cfg.LLM.MaxRows,
		},
		Metrics: metrics,
	}

	if cfg.Cache.Enabled {
		redis, err := cache.NewRedisCache(&cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rt.Redis = redis
		opts.Cache = cache.NewTableCache(redis, cfg.Cache.TTL, logger)
		opts.Conversations = cache.NewConversationStore(redis, 0)
	}

	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(&cfg.Database, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.DB = db
		if err := db.Migrate(); err != nil {
			rt.Close()
			return nil, err
		}
		opts.Runs = repositories.NewAnalysisRunRepository(db.DB, logger)
	}

	if client := llm.NewOpenAIClient(&cfg.LLM, logger); client != nil {
		opts.Completer = client
	} else {
		logger.Warn("OPENAI_API_KEY not set, assistant disabled")
	}

	rt.Analyzer = NewAnalyzer(opts, logger)
	return rt, nil
}

// Close releases every open connection.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if rt.DB != nil {
		if err := rt.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
