// filename: cmd/apiserver/main.go
// SigScope API Server - Entry Point

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigscope/sigscope/internal/analyzer"
	"github.com/sigscope/sigscope/internal/api/server"
	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/common/pg"
	"github.com/sigscope/sigscope/internal/decoder"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		panic(err)
	}
	logger.Info("Starting SigScope API Server")

	messageDecoder := decoder.NewDecoder(logger)

	// Optional PostgreSQL template store
	var templateStore *pg.TemplateStore
	var pgClient *pg.Client
	if cfg.PostgreSQL.Enabled {
		pgClient, err = pg.NewClient(pg.Config{
			Host:            cfg.PostgreSQL.Host,
			Port:            cfg.PostgreSQL.Port,
			Database:        cfg.PostgreSQL.Database,
			Username:        cfg.PostgreSQL.Username,
			Password:        cfg.PostgreSQL.Password,
			SSLMode:         cfg.PostgreSQL.SSLMode,
			MaxOpenConns:    cfg.PostgreSQL.MaxOpenConns,
			MaxIdleConns:    cfg.PostgreSQL.MaxIdleConns,
			ConnMaxLifetime: cfg.PostgreSQL.ConnMaxLifetime,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		templateStore = pg.NewTemplateStore(pgClient)
		if err := templateStore.EnsureSchema(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to ensure template schema")
		}

		// Восстанавливаем сохраненные шаблоны и определения IE
		if err := restoreTemplates(context.Background(), templateStore, messageDecoder, logger); err != nil {
			logger.WithError(err).Fatal("Failed to restore templates")
		}
	}

	// Build analysis history backend
	history, err := buildHistory(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize history backend")
	}

	// Load correlation rules
	rules, err := buildRules(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load correlation rules")
	}

	messageAnalyzer := analyzer.NewAnalyzer(messageDecoder, history, rules, cfg.Analyzer, logger)

	// Create HTTP server
	apiServer := server.NewServer(&server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		LogLevel:     cfg.Logging.Level,
	}, logger, messageAnalyzer, templateStore)

	if pgClient != nil {
		apiServer.RegisterComponent("postgresql", pgClient)
		apiServer.RegisterStats("postgresql", pgClient)
	}

	// Start server
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("API server error")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down API Server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop API server gracefully")
	}
}

// restoreTemplates загружает сохраненные шаблоны и IE в декодер // v1.0
func restoreTemplates(ctx context.Context, store *pg.TemplateStore, d *decoder.Decoder, logger *logging.Logger) error {
	templates, err := store.LoadTemplates(ctx)
	if err != nil {
		return err
	}
	for _, template := range templates {
		if err := d.AddTemplate(template); err != nil {
			logger.WithError(err).WithField("message_type", template.MessageType).
				Warn("Skipping invalid stored template")
		}
	}

	definitions, err := store.LoadIEDefinitions(ctx)
	if err != nil {
		return err
	}
	for _, ie := range definitions {
		if err := d.AddIEDefinition(ie); err != nil {
			logger.WithError(err).WithField("ie_name", ie.Name).
				Warn("Skipping invalid stored IE definition")
		}
	}

	logger.WithFields(map[string]interface{}{
		"templates":      len(templates),
		"ie_definitions": len(definitions),
	}).Info("Stored templates restored")
	return nil
}

// buildHistory создает хранилище истории согласно конфигурации // v1.0
func buildHistory(cfg *config.Config, logger *logging.Logger) (analyzer.HistoryStore, error) {
	if cfg.Analyzer.HistoryBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.GetRedisAddr(),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.Timeout,
		})

		history := analyzer.NewRedisHistory(client, cfg.Analyzer.RedisKeyPrefix, cfg.Analyzer.HistoryCapacity)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Analyzer.RedisOperationTimeout)
		defer cancel()
		if err := history.Ping(ctx); err != nil {
			return nil, err
		}

		logger.WithField("addr", cfg.GetRedisAddr()).Info("Using Redis history backend")
		return history, nil
	}

	logger.WithField("capacity", cfg.Analyzer.HistoryCapacity).Info("Using in-memory history backend")
	return analyzer.NewMemoryHistory(cfg.Analyzer.HistoryCapacity), nil
}

// buildRules загружает правила корреляции согласно конфигурации // v1.0
func buildRules(cfg *config.Config, logger *logging.Logger) ([]analyzer.CorrelationRule, error) {
	if cfg.Analyzer.RulesFile == "" {
		return analyzer.BuiltinRules(), nil
	}

	rules, err := analyzer.LoadRules(cfg.Analyzer.RulesFile)
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"file":  cfg.Analyzer.RulesFile,
		"count": len(rules),
	}).Info("Correlation rules loaded")
	return rules, nil
}
