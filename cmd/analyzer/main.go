// filename: cmd/analyzer/main.go
// SigScope Analyzer Service - Entry Point

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
	"github.com/sigscope/sigscope/internal/common/ch"
	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/common/nats"
	"github.com/sigscope/sigscope/internal/decoder"
	"github.com/sigscope/sigscope/internal/pipeline"
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
	logger.Info("Starting SigScope Analyzer Service")

	// Initialize NATS client
	natsClient, err := nats.NewClient(nats.Config{
		URLs:        cfg.NATS.URLs,
		ClusterID:   cfg.NATS.ClusterID,
		ClientID:    cfg.NATS.ClientID,
		Credentials: cfg.NATS.Credentials,
		JWT:         cfg.NATS.JWT,
		NKey:        cfg.NATS.NKey,
		Timeout:     30 * time.Second,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize NATS client")
	}
	defer natsClient.Close()

	// Optional ClickHouse archive
	var chClient *ch.Client
	if cfg.ClickHouse.Enabled {
		chClient, err = ch.NewClient(ch.Config{
			Hosts:    cfg.ClickHouse.Hosts,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Port:     cfg.ClickHouse.Port,
			Secure:   cfg.ClickHouse.Secure,
			Compress: cfg.ClickHouse.Compress,
			Timeout:  cfg.ClickHouse.Timeout,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize ClickHouse client")
		}
		defer chClient.Close()

		if err := chClient.EnsureSchema(context.Background()); err != nil {
			logger.WithError(err).Fatal("Failed to ensure ClickHouse schema")
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

	messageAnalyzer := analyzer.NewAnalyzer(
		decoder.NewDecoder(logger), history, rules, cfg.Analyzer, logger)

	// Create analysis pipeline
	analysisPipeline := pipeline.NewPipeline(&pipeline.Config{}, logger, natsClient, messageAnalyzer, chClient)

	// Start pipeline
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := analysisPipeline.Start(ctx); err != nil {
			logger.WithError(err).Error("Analysis pipeline error")
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	logger.Info("Shutting down Analyzer Service")
	cancel()
	analysisPipeline.Stop()
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
