// filename: internal/analyzer/history.go
package analyzer

import (
	"context"
	"sync"

	"github.com/sigscope/sigscope/internal/models"
)

// HistoryStore определяет интерфейс хранилища истории анализа.
// Хранилище ограничено по емкости: при переполнении вытесняется
// самая старая запись.
type HistoryStore interface {
	// Append добавляет результат анализа и возвращает его порядковый номер
	Append(ctx context.Context, analysis *models.MessageAnalysis) (uint64, error)

	// All возвращает все записи в порядке добавления (от старых к новым)
	All(ctx context.Context) ([]*models.MessageAnalysis, error)

	// Metrics возвращает индекс метрик в порядке добавления. Индекс
	// вытесняется синхронно с историей.
	Metrics(ctx context.Context) ([]models.MetricsEntry, error)

	// Len возвращает текущее количество записей
	Len(ctx context.Context) (int, error)

	// Clear удаляет все записи и индекс метрик
	Clear(ctx context.Context) error
}

// MemoryHistory хранит историю анализа в памяти в кольцевом буфере вместе
// с облегченным индексом метрик. Порядковые номера монотонны и не
// переиспользуются после вытеснения.
type MemoryHistory struct {
	mu       sync.RWMutex
	buf      []*models.MessageAnalysis
	idx      []models.MetricsEntry
	head     int
	size     int
	capacity int
	seq      uint64
}

// NewMemoryHistory создает хранилище истории в памяти // v1.0
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryHistory{
		buf:      make([]*models.MessageAnalysis, capacity),
		idx:      make([]models.MetricsEntry, capacity),
		capacity: capacity,
	}
}

// Append добавляет результат анализа и запись индекса метрик // v1.0
func (h *MemoryHistory) Append(ctx context.Context, analysis *models.MessageAnalysis) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	entry := analysis.ToMetricsEntry(h.seq)
	pos := (h.head + h.size) % h.capacity
	if h.size == h.capacity {
		// Буфер полон: вытесняем самую старую запись
		h.buf[h.head] = analysis
		h.idx[h.head] = entry
		h.head = (h.head + 1) % h.capacity
	} else {
		h.buf[pos] = analysis
		h.idx[pos] = entry
		h.size++
	}
	return h.seq, nil
}

// All возвращает записи в порядке добавления // v1.0
func (h *MemoryHistory) All(ctx context.Context) ([]*models.MessageAnalysis, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*models.MessageAnalysis, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.buf[(h.head+i)%h.capacity])
	}
	return out, nil
}

// Metrics возвращает индекс метрик в порядке добавления // v1.0
func (h *MemoryHistory) Metrics(ctx context.Context) ([]models.MetricsEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.MetricsEntry, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.idx[(h.head+i)%h.capacity])
	}
	return out, nil
}

// Len возвращает количество записей // v1.0
func (h *MemoryHistory) Len(ctx context.Context) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size, nil
}

// Clear удаляет все записи и индекс метрик // v1.0
func (h *MemoryHistory) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf = make([]*models.MessageAnalysis, h.capacity)
	h.idx = make([]models.MetricsEntry, h.capacity)
	h.head = 0
	h.size = 0
	return nil
}
