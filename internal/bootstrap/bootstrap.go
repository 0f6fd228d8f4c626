// Package bootstrap assembles the analysis pipeline from configuration.
// Both entry points share it so the HTTP server and the MCP server wire
// the same session store, explainer chain, and service graph.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/database"
	"github.com/pharmaguard-server/internal/domain"
	"github.com/pharmaguard-server/internal/service"
	"github.com/pharmaguard-server/internal/session"
	"github.com/pharmaguard-server/pkg/explain"
	"github.com/pharmaguard-server/pkg/vcf"
)

// Build constructs the analysis service selected by configuration. The
// returned closer releases the session store, database pool, and cache
// connections in reverse construction order.
func Build(ctx context.Context, manager *config.Manager, logger *logrus.Logger) (*service.AnalysisService, func(), error) {
	cfg := manager.GetConfig()

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var db *database.DB
	if cfg.Session.Backend == session.BackendPostgres {
		var err error
		db, err = database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		closers = append(closers, db.Close)

		if err := runMigrations(manager, logger); err != nil {
			closeAll()
			return nil, nil, err
		}
	}

	store, err := session.NewStore(cfg.Session, db, logger)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to create session store: %w", err)
	}
	closers = append(closers, func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close session store")
		}
	})

	explainer, explainClosers, err := buildExplainer(ctx, cfg.Explain, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, explainClosers...)

	assembler := service.NewReportAssembler(logger, explainer, explain.NewTemplateExplainer(), cfg.Explain.Timeout)
	analysis := service.NewAnalysisService(logger, vcf.NewParser(), store, assembler, service.AnalysisConfig{})

	backend := cfg.Session.Backend
	if backend == "" {
		backend = session.BackendMemory
	}
	logger.WithFields(logrus.Fields{
		"session_backend": backend,
		"llm_enabled":     explainer != nil,
	}).Info("Analysis pipeline assembled")

	return analysis, closeAll, nil
}

func runMigrations(manager *config.Manager, logger *logrus.Logger) error {
	cfg := manager.GetDatabaseConfig()
	runner, err := database.NewMigrationRunner(manager.GetDatabaseURL(), cfg.MigrationsPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create migration runner: %w", err)
	}
	defer runner.Close()

	if err := runner.Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// buildExplainer creates the LLM explanation chain when enabled. A missing
// key or disabled flag is not an error; reports then carry template
// narratives only.
func buildExplainer(ctx context.Context, cfg domain.ExplainConfig, logger *logrus.Logger) (domain.Explainer, []func(), error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		logger.Info("LLM explanations disabled, using template narratives")
		return nil, nil, nil
	}

	client, err := explain.NewClient(explain.ClientConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
		RateLimit: float64(cfg.RateLimit),
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create explanation client: %w", err)
	}

	var closers []func()
	redisClient := cacheRedisClient(ctx, cfg.CacheRedisURL, logger)
	if redisClient != nil {
		closers = append(closers, func() {
			if err := redisClient.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close explanation cache connection")
			}
		})
	}

	cached, err := explain.NewCachedExplainer(client, explain.CacheConfig{
		RedisClient:      redisClient,
		DefaultTTL:       cfg.CacheTTL,
		MaxMemoryEntries: cfg.CacheMaxItems,
		Enabled:          true,
	}, logger)
	if err != nil {
		for _, closeFn := range closers {
			closeFn()
		}
		return nil, nil, fmt.Errorf("failed to create explanation cache: %w", err)
	}

	return cached, closers, nil
}

// cacheRedisClient connects the optional shared cache tier. Connection
// problems degrade to the in-process cache rather than failing startup.
func cacheRedisClient(ctx context.Context, url string, logger *logrus.Logger) *redis.Client {
	if url == "" {
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		logger.WithError(err).Warn("Invalid explanation cache Redis URL, using in-memory cache only")
		return nil
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Explanation cache Redis unreachable, using in-memory cache only")
		client.Close()
		return nil
	}
	return client
}
