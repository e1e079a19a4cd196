// filename: internal/common/logging/logger.go
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Logger представляет логгер приложения
type Logger struct {
	*logrus.Logger
}

// Config представляет конфигурацию логирования
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// NewLogger создает новый логгер // v1.0
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()

	// Устанавливаем уровень логирования
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	// Устанавливаем формат
	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Устанавливаем вывод
	if err := setOutput(logger, config); err != nil {
		return nil, err
	}

	return &Logger{Logger: logger}, nil
}

// setOutput устанавливает вывод для логгера // v1.0
func setOutput(logger *logrus.Logger, config Config) error {
	switch config.Output {
	case "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	case "":
		logger.SetOutput(os.Stdout)
	default:
		// Всё остальное трактуем как путь к файлу
		dir := filepath.Dir(config.Output)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}

		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	}

	return nil
}

// WithField добавляет поле к логгеру // v1.0
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields добавляет поля к логгеру // v1.0
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithError добавляет ошибку к логгеру // v1.0
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithMessage добавляет информацию о сообщении к логгеру // v1.0
func (l *Logger) WithMessage(messageType, protocol string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"message_type": messageType,
		"protocol":     protocol,
	})
}

// WithAnalysis добавляет информацию об анализе к логгеру // v1.0
func (l *Logger) WithAnalysis(analysisID, messageType string, anomalyCount int) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"analysis_id":   analysisID,
		"message_type":  messageType,
		"anomaly_count": anomalyCount,
	})
}

// WithSequence добавляет информацию о процедуре к логгеру // v1.0
func (l *Logger) WithSequence(sequenceName string, currentStep, totalSteps int) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"sequence_name": sequenceName,
		"current_step":  currentStep,
		"total_steps":   totalSteps,
	})
}

// WithRequest добавляет информацию о запросе к логгеру // v1.0
func (l *Logger) WithRequest(method, path, remoteAddr string) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"remote_addr": remoteAddr,
	})
}

// WithDuration добавляет длительность к логгеру // v1.0
func (l *Logger) WithDuration(duration float64) *logrus.Entry {
	return l.Logger.WithField("duration_ms", duration)
}

// SetLevel устанавливает уровень логирования // v1.0
func (l *Logger) SetLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(logLevel)
	return nil
}

// GetLevel возвращает текущий уровень логирования // v1.0
func (l *Logger) GetLevel() string {
	return l.Logger.GetLevel().String()
}
