// filename: internal/api/routes/health.go
package routes

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sigscope/sigscope/internal/common/logging"
)

// ConnChecker проверяет доступность внешней зависимости
type ConnChecker interface {
	IsConnected() bool
}

// StatsProvider отдает статистику компонента
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// HealthHandler обработчик для проверки здоровья сервиса // v1.0
type HealthHandler struct {
	logger     *logging.Logger
	startTime  time.Time
	components map[string]ConnChecker
	stats      map[string]StatsProvider
}

// NewHealthHandler создает новый обработчик здоровья // v1.0
func NewHealthHandler(logger *logging.Logger) *HealthHandler {
	return &HealthHandler{
		logger:     logger,
		startTime:  time.Now(),
		components: make(map[string]ConnChecker),
		stats:      make(map[string]StatsProvider),
	}
}

// RegisterComponent регистрирует зависимость для проверок здоровья // v1.0
func (h *HealthHandler) RegisterComponent(name string, checker ConnChecker) {
	h.components[name] = checker
}

// RegisterStats регистрирует поставщика статистики // v1.0
func (h *HealthHandler) RegisterStats(name string, provider StatsProvider) {
	h.stats[name] = provider
}

// HealthCheck проверяет общее состояние сервиса // v1.0
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	uptime := time.Since(h.startTime)

	health := gin.H{
		"status":    "healthy",
		"service":   "sigscope",
		"version":   "1.0.0",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    formatDuration(uptime),
	}

	c.JSON(http.StatusOK, health)
}

// ReadinessCheck проверяет готовность сервиса к работе // v1.0
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	dependencies := gin.H{}
	overallReady := true

	for name, checker := range h.components {
		connected := checker.IsConnected()
		status := "ready"
		if !connected {
			status = "unavailable"
			overallReady = false
		}
		dependencies[name] = gin.H{
			"status":    status,
			"connected": connected,
		}
	}

	response := gin.H{
		"ready":        overallReady,
		"service":      "sigscope",
		"timestamp":    time.Now().Format(time.RFC3339),
		"dependencies": dependencies,
	}

	httpStatus := http.StatusOK
	if !overallReady {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, response)
}

// LivenessCheck проверяет жизнеспособность сервиса // v1.0
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	response := gin.H{
		"alive":     true,
		"service":   "sigscope",
		"timestamp": time.Now().Format(time.RFC3339),
		"pid":       os.Getpid(),
	}

	c.JSON(http.StatusOK, response)
}

// Status возвращает детальный статус сервиса и компонентов // v1.0
func (h *HealthHandler) Status(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	components := gin.H{}
	for name, provider := range h.stats {
		components[name] = provider.GetStats()
	}

	status := gin.H{
		"service": gin.H{
			"name":    "sigscope",
			"version": "1.0.0",
			"uptime":  formatDuration(time.Since(h.startTime)),
		},
		"system": gin.H{
			"go_version":  runtime.Version(),
			"go_routines": runtime.NumGoroutine(),
			"num_cpu":     runtime.NumCPU(),
			"memory": gin.H{
				"alloc":  formatBytes(m.Alloc),
				"sys":    formatBytes(m.Sys),
				"num_gc": m.NumGC,
			},
		},
		"components": components,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, status)
}

// formatBytes форматирует байты в читаемый вид // v1.0
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration форматирует duration в читаемый вид // v1.0
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
