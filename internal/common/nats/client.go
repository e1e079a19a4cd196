// filename: internal/common/nats/client.go
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Субъекты конвейера анализа
const (
	SubjectRawMessages      = "messages.raw"
	SubjectAnalyzedMessages = "messages.analyzed"
	SubjectAnomalies        = "anomalies.detected"
)

// Client представляет клиент NATS
type Client struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	config   Config
	subjects map[string]*nats.Subscription
}

// Config представляет конфигурацию NATS
type Config struct {
	URLs        []string      `yaml:"urls"`
	ClusterID   string        `yaml:"cluster_id"`
	ClientID    string        `yaml:"client_id"`
	Credentials string        `yaml:"credentials"`
	JWT         string        `yaml:"jwt"`
	NKey        string        `yaml:"nkey"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NewClient создает новый клиент NATS // v1.0
func NewClient(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.ClientID),
		nats.Timeout(config.Timeout),
		nats.ReconnectWait(1 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			fmt.Printf("NATS disconnected: %v\n", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			fmt.Printf("NATS reconnected to %s\n", nc.ConnectedUrl())
		}),
	}

	// Добавляем аутентификацию если указана
	if config.Credentials != "" {
		opts = append(opts, nats.UserCredentials(config.Credentials))
	}

	if config.JWT != "" && config.NKey != "" {
		opts = append(opts, nats.UserJWTAndSeed(config.JWT, config.NKey))
	}

	// Подключаемся к NATS
	conn, err := nats.Connect(config.URLs[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Создаем JetStream контекст
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Создаем потоки если не существуют
	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure streams: %w", err)
	}

	return &Client{
		conn:     conn,
		js:       js,
		config:   config,
		subjects: make(map[string]*nats.Subscription),
	}, nil
}

// ensureStreams создает необходимые потоки // v1.0
func ensureStreams(js nats.JetStreamContext) error {
	streams := []string{
		SubjectRawMessages,
		SubjectAnalyzedMessages,
		SubjectAnomalies,
	}

	for _, streamName := range streams {
		stream, err := js.StreamInfo(streamName)
		if err == nil && stream != nil {
			continue // Поток уже существует
		}

		streamConfig := &nats.StreamConfig{
			Name:      streamName,
			Subjects:  []string{streamName, streamName + ".*"},
			Storage:   nats.FileStorage,
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour, // 24 часа по умолчанию
			MaxMsgs:   1000000,        // 1M сообщений по умолчанию
		}

		if _, err := js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
	}

	return nil
}

// PublishJSON публикует объект в поток в JSON формате // v1.0
func (c *Client) PublishJSON(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Subscribe подписывается на субъект // v1.0
func (c *Client) Subscribe(subject string, handler func([]byte)) error {
	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
		msg.Ack()
	}, nats.AckWait(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.subjects[subject] = sub
	return nil
}

// SubscribeWithQueue подписывается на субъект с очередью // v1.0
func (c *Client) SubscribeWithQueue(subject, queue string, handler func([]byte)) error {
	sub, err := c.js.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Data)
		msg.Ack()
	}, nats.AckWait(30*time.Second))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s with queue %s: %w", subject, queue, err)
	}

	c.subjects[subject] = sub
	return nil
}

// Unsubscribe отписывается от субъекта // v1.0
func (c *Client) Unsubscribe(subject string) error {
	if sub, exists := c.subjects[subject]; exists {
		if err := sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe from %s: %w", subject, err)
		}
		delete(c.subjects, subject)
	}
	return nil
}

// Close закрывает соединение с NATS // v1.0
func (c *Client) Close() error {
	for subject := range c.subjects {
		c.Unsubscribe(subject)
	}

	if c.conn != nil {
		c.conn.Close()
	}

	return nil
}

// IsConnected проверяет, подключен ли клиент // v1.0
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// PublishWithContext публикует сообщение с учетом контекста // v1.0
func (c *Client) PublishWithContext(ctx context.Context, subject string, payload interface{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return c.PublishJSON(subject, payload)
	}
}

// GetConnectionInfo возвращает информацию о соединении // v1.0
func (c *Client) GetConnectionInfo() map[string]interface{} {
	if c.conn == nil {
		return nil
	}

	return map[string]interface{}{
		"connected":      c.conn.IsConnected(),
		"url":            c.conn.ConnectedUrl(),
		"server_id":      c.conn.ConnectedServerId(),
		"server_name":    c.conn.ConnectedServerName(),
		"server_version": c.conn.ConnectedServerVersion(),
		"in_msgs":        c.conn.Stats().InMsgs,
		"out_msgs":       c.conn.Stats().OutMsgs,
		"in_bytes":       c.conn.Stats().InBytes,
		"out_bytes":      c.conn.Stats().OutBytes,
	}
}

// Flush выполняет flush буферов // v1.0
func (c *Client) Flush() error {
	return c.conn.Flush()
}
