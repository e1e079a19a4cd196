// filename: internal/common/ch/client.go
package ch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/sigscope/sigscope/internal/models"
)

// Client представляет клиент ClickHouse для архива результатов анализа
type Client struct {
	conn   clickhouse.Conn
	config Config
}

// Config представляет конфигурацию ClickHouse
type Config struct {
	Hosts    []string      `yaml:"hosts"`
	Database string        `yaml:"database"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Port     int           `yaml:"port"`
	Secure   bool          `yaml:"secure"`
	Compress bool          `yaml:"compress"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NewClient создает новый клиент ClickHouse // v1.0
func NewClient(config Config) (*Client, error) {
	opts := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Hosts[0], config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Debug: false,
	}

	if config.Secure && config.Port == 9000 {
		opts.Settings["secure"] = true
	}

	// Подключаемся к ClickHouse
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Проверяем соединение
	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{
		conn:   conn,
		config: config,
	}, nil
}

// Close закрывает соединение с ClickHouse // v1.0
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping проверяет соединение с ClickHouse // v1.0
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Exec выполняет SQL команду // v1.0
func (c *Client) Exec(ctx context.Context, query string, args ...interface{}) error {
	return c.conn.Exec(ctx, query, args...)
}

// Query выполняет SQL запрос // v1.0
func (c *Client) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	return c.conn.Query(ctx, query, args...)
}

// EnsureSchema создает таблицу архива если она не существует // v1.0
func (c *Client) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS message_analyses (
			ts DateTime64(3),
			id String,
			message_type LowCardinality(String),
			protocol LowCardinality(String),
			compliance LowCardinality(String),
			validation_score Int32,
			complexity_score Int32,
			message_size Int32,
			field_count Int32,
			anomaly_count Int32,
			correlation_count Int32,
			raw_message String,
			analysis String
		) ENGINE = MergeTree()
		ORDER BY (ts, message_type)
		TTL toDateTime(ts) + INTERVAL 30 DAY
	`
	return c.Exec(ctx, query)
}

// InsertAnalysis вставляет результат анализа в архив // v1.0
func (c *Client) InsertAnalysis(ctx context.Context, analysis *models.MessageAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	rawMessage := ""
	if analysis.Decoded != nil {
		rawMessage = analysis.Decoded.RawMessage
	}

	query := `
		INSERT INTO message_analyses (
			ts, id, message_type, protocol, compliance,
			validation_score, complexity_score, message_size, field_count,
			anomaly_count, correlation_count, raw_message, analysis
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return c.Exec(ctx, query,
		analysis.Timestamp, analysis.ID, analysis.MessageType(), string(analysis.Protocol()),
		string(analysis.Metrics.ProtocolCompliance),
		int32(analysis.Metrics.ValidationScore), int32(analysis.Metrics.ComplexityScore),
		int32(analysis.Metrics.MessageSize), int32(analysis.Metrics.FieldCount),
		int32(len(analysis.Anomalies)), int32(len(analysis.Correlations)),
		rawMessage, string(payload),
	)
}

// InsertAnalysesBatch вставляет результаты анализа пакетом // v1.0
func (c *Client) InsertAnalysesBatch(ctx context.Context, analyses []*models.MessageAnalysis) error {
	if len(analyses) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO message_analyses (
			ts, id, message_type, protocol, compliance,
			validation_score, complexity_score, message_size, field_count,
			anomaly_count, correlation_count, raw_message, analysis
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, analysis := range analyses {
		payload, err := json.Marshal(analysis)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis %s: %w", analysis.ID, err)
		}

		rawMessage := ""
		if analysis.Decoded != nil {
			rawMessage = analysis.Decoded.RawMessage
		}

		if err := batch.Append(
			analysis.Timestamp, analysis.ID, analysis.MessageType(), string(analysis.Protocol()),
			string(analysis.Metrics.ProtocolCompliance),
			int32(analysis.Metrics.ValidationScore), int32(analysis.Metrics.ComplexityScore),
			int32(analysis.Metrics.MessageSize), int32(analysis.Metrics.FieldCount),
			int32(len(analysis.Anomalies)), int32(len(analysis.Correlations)),
			rawMessage, string(payload),
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// GetAnalysisCount возвращает количество записей в архиве // v1.0
func (c *Client) GetAnalysisCount(ctx context.Context, where string, args ...interface{}) (int64, error) {
	query := "SELECT count() FROM message_analyses"
	if where != "" {
		query += " WHERE " + where
	}

	rows, err := c.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query count: %w", err)
	}
	defer rows.Close()

	var count uint64
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to scan count: %w", err)
		}
	}

	return int64(count), nil
}

// GetAnalysesByTimeRange возвращает записи архива в диапазоне времени // v1.0
func (c *Client) GetAnalysesByTimeRange(ctx context.Context, from, to time.Time, limit int) (driver.Rows, error) {
	query := `
		SELECT ts, id, message_type, protocol, compliance,
		       validation_score, complexity_score, anomaly_count, correlation_count
		FROM message_analyses
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts DESC
		LIMIT ?
	`
	return c.Query(ctx, query, from, to, limit)
}

// GetAnalysesByMessageType возвращает записи архива по типу сообщения // v1.0
func (c *Client) GetAnalysesByMessageType(ctx context.Context, messageType string, limit int) (driver.Rows, error) {
	query := `
		SELECT ts, id, message_type, protocol, compliance,
		       validation_score, complexity_score, anomaly_count, correlation_count
		FROM message_analyses
		WHERE message_type = ?
		ORDER BY ts DESC
		LIMIT ?
	`
	return c.Query(ctx, query, messageType, limit)
}

// IsConnected проверяет, подключен ли клиент // v1.0
func (c *Client) IsConnected() bool {
	if c.conn == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return c.Ping(ctx) == nil
}

// GetStats возвращает статистику соединения // v1.0
func (c *Client) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"connected": c.IsConnected(),
		"database":  c.config.Database,
		"host":      c.config.Hosts[0],
		"port":      c.config.Port,
		"secure":    c.config.Secure,
		"compress":  c.config.Compress,
	}
}
