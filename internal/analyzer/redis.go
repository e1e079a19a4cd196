// filename: internal/analyzer/redis.go
package analyzer

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	sserrors "github.com/sigscope/sigscope/internal/common/errors"
	"github.com/sigscope/sigscope/internal/models"
)

// RedisHistory хранит историю анализа в Redis списке. Новые записи
// добавляются в голову списка, обрезка поддерживает заданную емкость.
// Подходит для нескольких экземпляров анализатора с общей историей.
type RedisHistory struct {
	client     *redis.Client
	key        string
	metricsKey string
	seqKey     string
	capacity   int
}

// NewRedisHistory создает хранилище истории в Redis // v1.0
func NewRedisHistory(client *redis.Client, keyPrefix string, capacity int) *RedisHistory {
	if keyPrefix == "" {
		keyPrefix = "sigscope:history"
	}
	if capacity <= 0 {
		capacity = 1000
	}
	return &RedisHistory{
		client:     client,
		key:        keyPrefix + ":entries",
		metricsKey: keyPrefix + ":metrics",
		seqKey:     keyPrefix + ":seq",
		capacity:   capacity,
	}
}

// Ping проверяет доступность Redis // v1.0
func (h *RedisHistory) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return sserrors.Wrap(err, sserrors.ErrorCodeRedisConnection, "redis ping failed")
	}
	return nil
}

// Append добавляет результат анализа // v1.0
func (h *RedisHistory) Append(ctx context.Context, analysis *models.MessageAnalysis) (uint64, error) {
	data, err := json.Marshal(analysis)
	if err != nil {
		return 0, sserrors.Wrap(err, sserrors.ErrorCodeHistoryFailed, "failed to marshal analysis")
	}

	seq, err := h.client.Incr(ctx, h.seqKey).Result()
	if err != nil {
		return 0, sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to increment sequence")
	}

	entry, err := json.Marshal(analysis.ToMetricsEntry(uint64(seq)))
	if err != nil {
		return 0, sserrors.Wrap(err, sserrors.ErrorCodeHistoryFailed, "failed to marshal metrics entry")
	}

	// История и индекс метрик обрезаются в одной транзакции
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, h.key, data)
	pipe.LTrim(ctx, h.key, 0, int64(h.capacity-1))
	pipe.LPush(ctx, h.metricsKey, entry)
	pipe.LTrim(ctx, h.metricsKey, 0, int64(h.capacity-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to append history entry")
	}

	return uint64(seq), nil
}

// All возвращает записи в порядке добавления // v1.0
func (h *RedisHistory) All(ctx context.Context) ([]*models.MessageAnalysis, error) {
	items, err := h.client.LRange(ctx, h.key, 0, -1).Result()
	if err != nil {
		return nil, sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to read history")
	}

	// LPUSH хранит новые записи в голове, разворачиваем к порядку добавления
	out := make([]*models.MessageAnalysis, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var analysis models.MessageAnalysis
		if err := json.Unmarshal([]byte(items[i]), &analysis); err != nil {
			return nil, sserrors.Wrap(err, sserrors.ErrorCodeHistoryFailed, "failed to unmarshal history entry")
		}
		out = append(out, &analysis)
	}
	return out, nil
}

// Metrics возвращает индекс метрик в порядке добавления // v1.0
func (h *RedisHistory) Metrics(ctx context.Context) ([]models.MetricsEntry, error) {
	items, err := h.client.LRange(ctx, h.metricsKey, 0, -1).Result()
	if err != nil {
		return nil, sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to read metrics index")
	}

	out := make([]models.MetricsEntry, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var entry models.MetricsEntry
		if err := json.Unmarshal([]byte(items[i]), &entry); err != nil {
			return nil, sserrors.Wrap(err, sserrors.ErrorCodeHistoryFailed, "failed to unmarshal metrics entry")
		}
		out = append(out, entry)
	}
	return out, nil
}

// Len возвращает количество записей // v1.0
func (h *RedisHistory) Len(ctx context.Context) (int, error) {
	count, err := h.client.LLen(ctx, h.key).Result()
	if err != nil {
		return 0, sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to read history length")
	}
	return int(count), nil
}

// Clear удаляет все записи и индекс метрик // v1.0
func (h *RedisHistory) Clear(ctx context.Context) error {
	if err := h.client.Del(ctx, h.key, h.metricsKey, h.seqKey).Err(); err != nil {
		return sserrors.Wrap(err, sserrors.ErrorCodeRedisCommand, "failed to clear history")
	}
	return nil
}
