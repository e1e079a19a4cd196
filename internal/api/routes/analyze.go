// filename: internal/api/routes/analyze.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sigscope/sigscope/internal/analyzer"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/models"
)

// AnalyzeHandler обработчик анализа сообщений // v1.0
type AnalyzeHandler struct {
	logger   *logging.Logger
	analyzer *analyzer.Analyzer
}

// NewAnalyzeHandler создает новый обработчик анализа // v1.0
func NewAnalyzeHandler(logger *logging.Logger, a *analyzer.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{
		logger:   logger,
		analyzer: a,
	}
}

// AnalyzeRequest запрос на анализ сообщения // v1.0
type AnalyzeRequest struct {
	RawMessage string                 `json:"raw_message" binding:"required"`
	Context    models.AnalysisContext `json:"context"`
}

// DecodeRequest запрос на декодирование сообщения // v1.0
type DecodeRequest struct {
	RawMessage  string `json:"raw_message" binding:"required"`
	MessageType string `json:"message_type"`
}

// AnalyzeMessage анализирует одно сообщение // v1.0
func (h *AnalyzeHandler) AnalyzeMessage(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	start := time.Now()
	analysis := h.analyzer.AnalyzeMessage(c.Request.Context(), req.RawMessage, req.Context)

	h.logger.WithAnalysis(analysis.ID, analysis.MessageType(), len(analysis.Anomalies)).
		WithField("duration_ms", float64(time.Since(start).Microseconds())/1000.0).
		Info("Message analyzed via API")

	c.JSON(http.StatusOK, analysis)
}

// DecodeMessage декодирует сообщение без анализа // v1.0
func (h *AnalyzeHandler) DecodeMessage(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
		return
	}

	decoded := h.analyzer.Decoder().DecodeMessage(req.RawMessage, req.MessageType)

	h.logger.WithMessage(decoded.MessageType, string(decoded.Protocol)).
		Debug("Message decoded via API")

	c.JSON(http.StatusOK, decoded)
}

// GetStats возвращает агрегированную статистику анализа // v1.0
func (h *AnalyzeHandler) GetStats(c *gin.Context) {
	stats, err := h.analyzer.GetAnalysisStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetMetrics возвращает индекс метрик истории анализа // v1.0
func (h *AnalyzeHandler) GetMetrics(c *gin.Context) {
	entries, err := h.analyzer.MetricsIndex(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": entries,
		"count":   len(entries),
	})
}

// GetBatchAnomalies возвращает аномалии по всей истории анализа // v1.0
func (h *AnalyzeHandler) GetBatchAnomalies(c *gin.Context) {
	anomalies, err := h.analyzer.DetectBatchAnomalies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"anomalies": anomalies,
		"count":     len(anomalies),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetRules возвращает действующие правила корреляции // v1.0
func (h *AnalyzeHandler) GetRules(c *gin.Context) {
	rules := h.analyzer.Rules()
	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"count": len(rules),
	})
}

// ClearHistory очищает историю анализа // v1.0
func (h *AnalyzeHandler) ClearHistory(c *gin.Context) {
	if err := h.analyzer.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Analysis history cleared via API")

	c.JSON(http.StatusOK, gin.H{
		"status":    "cleared",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
