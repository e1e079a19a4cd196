// filename: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sigscope/sigscope/internal/analyzer"
	"github.com/sigscope/sigscope/internal/common/ch"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/common/nats"
	"github.com/sigscope/sigscope/internal/models"
)

// RawMessage представляет входящее сообщение конвейера из NATS.
// Если payload не является JSON, он трактуется как сырой текст сообщения.
type RawMessage struct {
	RawMessage string                 `json:"raw_message"`
	Context    models.AnalysisContext `json:"context,omitempty"`
}

// Config конфигурация конвейера анализа // v1.0
type Config struct {
	Queue          string        `yaml:"queue"`
	MaxWorkers     int           `yaml:"max_workers"`
	QueueSize      int           `yaml:"queue_size"`
	ArchiveTimeout time.Duration `yaml:"archive_timeout"`
}

// Pipeline представляет конвейер анализа сообщений: прием из NATS,
// анализ, публикация результатов и аномалий, архивирование в ClickHouse.
type Pipeline struct {
	config     *Config
	logger     *logging.Logger
	nats       *nats.Client
	analyzer   *analyzer.Analyzer
	clickhouse *ch.Client
	jobs       chan RawMessage
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	processed uint64
	failed    uint64
	dropped   uint64
}

// NewPipeline создает новый конвейер анализа. ClickHouse клиент опционален:
// при nil архивирование отключено // v1.0
func NewPipeline(config *Config, logger *logging.Logger, natsClient *nats.Client, a *analyzer.Analyzer, clickhouseClient *ch.Client) *Pipeline {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.Queue == "" {
		config.Queue = "sigscope-analyzers"
	}
	if config.ArchiveTimeout <= 0 {
		config.ArchiveTimeout = 10 * time.Second
	}

	return &Pipeline{
		config:     config,
		logger:     logger,
		nats:       natsClient,
		analyzer:   a,
		clickhouse: clickhouseClient,
		jobs:       make(chan RawMessage, config.QueueSize),
		stopChan:   make(chan struct{}),
	}
}

// Start запускает конвейер анализа // v1.0
func (p *Pipeline) Start(ctx context.Context) error {
	p.logger.Info("Starting analysis pipeline")

	// Подписываемся на сырые сообщения messages.raw
	err := p.nats.SubscribeWithQueue(nats.SubjectRawMessages, p.config.Queue, func(data []byte) {
		p.enqueue(data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nats.SubjectRawMessages, err)
	}

	// Запускаем воркеры для обработки сообщений
	for i := 0; i < p.config.MaxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	// Ждем завершения контекста или сигнала остановки
	select {
	case <-ctx.Done():
		p.logger.Info("Context cancelled, stopping pipeline")
	case <-p.stopChan:
		p.logger.Info("Stop signal received, stopping pipeline")
	}

	p.nats.Unsubscribe(nats.SubjectRawMessages)
	p.Stop()
	p.wg.Wait()

	return nil
}

// Stop останавливает конвейер // v1.0
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
	})
}

// enqueue ставит входящее сообщение в очередь обработки // v1.0
func (p *Pipeline) enqueue(data []byte) {
	var raw RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw.RawMessage == "" {
		// Не JSON-конверт: весь payload считается сырым сообщением
		raw = RawMessage{RawMessage: string(data)}
	}

	select {
	case p.jobs <- raw:
	default:
		atomic.AddUint64(&p.dropped, 1)
		p.logger.Warn("Pipeline queue full, message dropped")
	}
}

// worker обрабатывает сообщения из очереди // v1.0
func (p *Pipeline) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.WithField("worker_id", id).Info("Pipeline worker started")

	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("worker_id", id).Info("Worker context cancelled")
			return
		case <-p.stopChan:
			p.logger.WithField("worker_id", id).Info("Worker stop signal received")
			return
		case raw := <-p.jobs:
			if err := p.handleRawMessage(ctx, raw); err != nil {
				atomic.AddUint64(&p.failed, 1)
				p.logger.WithError(err).Error("Failed to handle raw message")
			} else {
				atomic.AddUint64(&p.processed, 1)
			}
		}
	}
}

// handleRawMessage анализирует одно сообщение и публикует результаты // v1.0
func (p *Pipeline) handleRawMessage(ctx context.Context, raw RawMessage) error {
	analysis := p.analyzer.AnalyzeMessage(ctx, raw.RawMessage, raw.Context)

	p.logger.WithAnalysis(analysis.ID, analysis.MessageType(), len(analysis.Anomalies)).
		Debug("Message analyzed by pipeline")

	// Публикуем результат анализа
	if err := p.nats.PublishWithContext(ctx, nats.SubjectAnalyzedMessages, analysis); err != nil {
		return fmt.Errorf("failed to publish analysis: %w", err)
	}

	// Аномалии высокой важности публикуются отдельным потоком
	if err := p.publishAnomalies(ctx, analysis); err != nil {
		p.logger.WithError(err).Warn("Failed to publish anomalies")
	}

	// Архивирование не прерывает обработку
	if err := p.saveToClickHouse(analysis); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		}).Error("Failed to archive analysis to ClickHouse")
	}

	return nil
}

// AnomalyNotification представляет уведомление об аномалии высокой важности
type AnomalyNotification struct {
	AnalysisID  string          `json:"analysis_id"`
	MessageType string          `json:"message_type"`
	Protocol    models.Protocol `json:"protocol"`
	Anomaly     models.Anomaly  `json:"anomaly"`
	Timestamp   time.Time       `json:"timestamp"`
}

// publishAnomalies публикует аномалии высокой важности в anomalies.detected // v1.0
func (p *Pipeline) publishAnomalies(ctx context.Context, analysis *models.MessageAnalysis) error {
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Severity != models.SeverityHigh {
			continue
		}

		notification := AnomalyNotification{
			AnalysisID:  analysis.ID,
			MessageType: analysis.MessageType(),
			Protocol:    analysis.Protocol(),
			Anomaly:     anomaly,
			Timestamp:   analysis.Timestamp,
		}

		if err := p.nats.PublishWithContext(ctx, nats.SubjectAnomalies, notification); err != nil {
			return fmt.Errorf("failed to publish anomaly %s: %w", anomaly.Kind, err)
		}

		p.logger.WithFields(map[string]interface{}{
			"analysis_id": analysis.ID,
			"kind":        string(anomaly.Kind),
			"severity":    string(anomaly.Severity),
		}).Info("High severity anomaly published")
	}

	return nil
}

// saveToClickHouse сохраняет результат анализа в архив // v1.0
func (p *Pipeline) saveToClickHouse(analysis *models.MessageAnalysis) error {
	if p.clickhouse == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.ArchiveTimeout)
	defer cancel()

	if err := p.clickhouse.InsertAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	p.logger.WithField("analysis_id", analysis.ID).Debug("Analysis archived to ClickHouse")
	return nil
}

// GetStats возвращает статистику конвейера // v1.0
func (p *Pipeline) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"workers":    p.config.MaxWorkers,
		"queue":      p.config.Queue,
		"queue_size": p.config.QueueSize,
		"queued":     len(p.jobs),
		"processed":  atomic.LoadUint64(&p.processed),
		"failed":     atomic.LoadUint64(&p.failed),
		"dropped":    atomic.LoadUint64(&p.dropped),
	}
}
