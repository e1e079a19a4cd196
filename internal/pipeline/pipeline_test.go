// filename: internal/pipeline/pipeline_test.go
package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sigscope/sigscope/internal/common/logging"
)

// createTestLogger создает logger для тестов
func createTestLogger(t *testing.T) *logging.Logger {
	config := logging.Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
	logger, err := logging.NewLogger(config)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func TestNewPipelineDefaults(t *testing.T) {
	logger := createTestLogger(t)
	config := &Config{}

	p := NewPipeline(config, logger, nil, nil, nil)

	if p == nil {
		t.Fatal("NewPipeline вернул nil")
	}
	if p.config.MaxWorkers <= 0 {
		t.Errorf("MaxWorkers должен иметь значение по умолчанию, получено %d", p.config.MaxWorkers)
	}
	if p.config.QueueSize <= 0 {
		t.Errorf("QueueSize должен иметь значение по умолчанию, получено %d", p.config.QueueSize)
	}
	if p.config.Queue == "" {
		t.Error("Queue должна иметь значение по умолчанию")
	}
	if p.jobs == nil {
		t.Error("Очередь задач не инициализирована")
	}
	if p.stopChan == nil {
		t.Error("stopChan не инициализирован")
	}
}

func TestPipelineStopIdempotent(t *testing.T) {
	logger := createTestLogger(t)
	p := NewPipeline(&Config{}, logger, nil, nil, nil)

	p.Stop()
	// Повторный Stop не должен паниковать
	p.Stop()

	select {
	case <-p.stopChan:
		// OK
	default:
		t.Error("stopChan должен быть закрыт после Stop()")
	}
}

func TestEnqueueJSONEnvelope(t *testing.T) {
	logger := createTestLogger(t)
	p := NewPipeline(&Config{QueueSize: 10}, logger, nil, nil, nil)

	payload, _ := json.Marshal(RawMessage{RawMessage: "RRCSetupRequest rnti=0x4601"})
	p.enqueue(payload)

	select {
	case raw := <-p.jobs:
		if raw.RawMessage != "RRCSetupRequest rnti=0x4601" {
			t.Errorf("Неожиданное сообщение: %q", raw.RawMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("Сообщение не попало в очередь")
	}
}

func TestEnqueuePlainText(t *testing.T) {
	logger := createTestLogger(t)
	p := NewPipeline(&Config{QueueSize: 10}, logger, nil, nil, nil)

	// Не-JSON payload трактуется как сырой текст целиком
	p.enqueue([]byte("MAC PDU lcid=5 h_id=3"))

	select {
	case raw := <-p.jobs:
		if raw.RawMessage != "MAC PDU lcid=5 h_id=3" {
			t.Errorf("Неожиданное сообщение: %q", raw.RawMessage)
		}
	case <-time.After(time.Second):
		t.Fatal("Сообщение не попало в очередь")
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	logger := createTestLogger(t)
	p := NewPipeline(&Config{QueueSize: 1}, logger, nil, nil, nil)

	p.enqueue([]byte("first"))
	p.enqueue([]byte("second"))

	stats := p.GetStats()
	if dropped, ok := stats["dropped"].(uint64); !ok || dropped != 1 {
		t.Errorf("Ожидалось 1 отброшенное сообщение, получено %v", stats["dropped"])
	}
	if queued, ok := stats["queued"].(int); !ok || queued != 1 {
		t.Errorf("Ожидалось 1 сообщение в очереди, получено %v", stats["queued"])
	}
}

func TestPipelineStatsStructure(t *testing.T) {
	logger := createTestLogger(t)
	p := NewPipeline(&Config{MaxWorkers: 3}, logger, nil, nil, nil)

	stats := p.GetStats()

	requiredFields := []string{"workers", "queue", "queue_size", "queued", "processed", "failed", "dropped"}
	for _, field := range requiredFields {
		if _, exists := stats[field]; !exists {
			t.Errorf("Отсутствует обязательное поле статистики: %s", field)
		}
	}

	if workers, ok := stats["workers"].(int); !ok || workers != 3 {
		t.Errorf("Неожиданное количество воркеров: %v", stats["workers"])
	}
}
