// filename: internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config представляет основную конфигурацию приложения
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	PostgreSQL PostgreSQLConfig `mapstructure:"postgresql"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// NATSConfig представляет конфигурацию NATS
type NATSConfig struct {
	URLs        []string `mapstructure:"urls"`
	ClusterID   string   `mapstructure:"cluster_id"`
	ClientID    string   `mapstructure:"client_id"`
	Credentials string   `mapstructure:"credentials"`
	JWT         string   `mapstructure:"jwt"`
	NKey        string   `mapstructure:"nkey"`
}

// ClickHouseConfig представляет конфигурацию ClickHouse архива
type ClickHouseConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Hosts    []string      `mapstructure:"hosts"`
	Database string        `mapstructure:"database"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Port     int           `mapstructure:"port"`
	Secure   bool          `mapstructure:"secure"`
	Compress bool          `mapstructure:"compress"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgreSQLConfig представляет конфигурацию хранилища шаблонов
type PostgreSQLConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AnalyzerConfig представляет конфигурацию анализатора. Пороговые значения
// взяты из референсного поведения и не имеют нормативного источника,
// поэтому вынесены в конфигурацию.
type AnalyzerConfig struct {
	HistoryCapacity        int           `mapstructure:"history_capacity"`
	HistoryBackend         string        `mapstructure:"history_backend"` // "memory" или "redis"
	LargeMessageSize       int           `mapstructure:"large_message_size"`
	HighComplexityScore    int           `mapstructure:"high_complexity_score"`
	RecommendComplexity    int           `mapstructure:"recommend_complexity"`
	MessageRateThreshold   float64       `mapstructure:"message_rate_threshold"`
	ErrorRunThreshold      int           `mapstructure:"error_run_threshold"`
	RulesFile              string        `mapstructure:"rules_file"`
	RedisKeyPrefix         string        `mapstructure:"redis_key_prefix"`
	RedisOperationTimeout  time.Duration `mapstructure:"redis_operation_timeout"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// LoadConfig загружает конфигурацию из файла // v1.0
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("sigscope")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}
	viper.SetConfigType("yaml")

	// Устанавливаем значения по умолчанию
	setDefaults()

	// Читаем конфигурацию; отсутствие файла не фатально, работаем на дефолтах
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Валидируем конфигурацию
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults устанавливает значения по умолчанию // v1.0
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")

	// NATS defaults
	viper.SetDefault("nats.urls", []string{"nats://localhost:4222"})
	viper.SetDefault("nats.cluster_id", "sigscope")
	viper.SetDefault("nats.client_id", "sigscope-client")

	// ClickHouse defaults
	viper.SetDefault("clickhouse.enabled", false)
	viper.SetDefault("clickhouse.hosts", []string{"localhost"})
	viper.SetDefault("clickhouse.database", "sigscope")
	viper.SetDefault("clickhouse.port", 9000)
	viper.SetDefault("clickhouse.secure", false)
	viper.SetDefault("clickhouse.compress", true)
	viper.SetDefault("clickhouse.timeout", "30s")

	// PostgreSQL defaults
	viper.SetDefault("postgresql.enabled", false)
	viper.SetDefault("postgresql.host", "localhost")
	viper.SetDefault("postgresql.port", 5432)
	viper.SetDefault("postgresql.database", "sigscope")
	viper.SetDefault("postgresql.ssl_mode", "disable")
	viper.SetDefault("postgresql.max_open_conns", 100)
	viper.SetDefault("postgresql.max_idle_conns", 10)
	viper.SetDefault("postgresql.conn_max_lifetime", "1h")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.timeout", "5s")

	// Analyzer defaults
	viper.SetDefault("analyzer.history_capacity", 1000)
	viper.SetDefault("analyzer.history_backend", "memory")
	viper.SetDefault("analyzer.large_message_size", 10000)
	viper.SetDefault("analyzer.high_complexity_score", 80)
	viper.SetDefault("analyzer.recommend_complexity", 70)
	viper.SetDefault("analyzer.message_rate_threshold", 100)
	viper.SetDefault("analyzer.error_run_threshold", 5)
	viper.SetDefault("analyzer.redis_key_prefix", "sigscope:history")
	viper.SetDefault("analyzer.redis_operation_timeout", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate валидирует конфигурацию // v1.0
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("at least one NATS URL is required")
	}

	if c.Analyzer.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be positive")
	}

	if c.Analyzer.HistoryBackend != "memory" && c.Analyzer.HistoryBackend != "redis" {
		return fmt.Errorf("invalid history backend: %s", c.Analyzer.HistoryBackend)
	}

	if c.ClickHouse.Enabled && len(c.ClickHouse.Hosts) == 0 {
		return fmt.Errorf("at least one ClickHouse host is required")
	}

	if c.PostgreSQL.Enabled && c.PostgreSQL.Database == "" {
		return fmt.Errorf("PostgreSQL database name is required")
	}

	return nil
}

// GetServerAddr возвращает адрес сервера // v1.0
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetRedisAddr возвращает адрес Redis // v1.0
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GetPostgreSQLDSN возвращает DSN для PostgreSQL // v1.0
func (c *Config) GetPostgreSQLDSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.PostgreSQL.Host, c.PostgreSQL.Port, c.PostgreSQL.Database,
		c.PostgreSQL.Username, c.PostgreSQL.Password, c.PostgreSQL.SSLMode)
}
