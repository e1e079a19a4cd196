// filename: internal/analyzer/detector.go
package analyzer

import (
	"fmt"
	"sort"

	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/models"
)

// AnomalyDetector выполняет пакетный анализ истории: частота сообщений,
// повторяющиеся ошибки, статистические выбросы сложности
type AnomalyDetector struct {
	rateThreshold     float64
	errorRunThreshold int
}

// NewAnomalyDetector создает пакетный детектор аномалий // v1.0
func NewAnomalyDetector(cfg config.AnalyzerConfig) *AnomalyDetector {
	rateThreshold := cfg.MessageRateThreshold
	if rateThreshold <= 0 {
		rateThreshold = 100
	}
	errorRunThreshold := cfg.ErrorRunThreshold
	if errorRunThreshold <= 0 {
		errorRunThreshold = 5
	}
	return &AnomalyDetector{
		rateThreshold:     rateThreshold,
		errorRunThreshold: errorRunThreshold,
	}
}

// DetectAnomalies обнаруживает аномалии по пакету сообщений. Записи
// должны быть упорядочены от старых к новым. // v1.0
func (d *AnomalyDetector) DetectAnomalies(messages []*models.MessageAnalysis) []models.Anomaly {
	anomalies := []models.Anomaly{}

	anomalies = append(anomalies, d.detectRateAnomalies(messages)...)
	anomalies = append(anomalies, d.detectErrorRuns(messages)...)
	anomalies = append(anomalies, d.detectComplexityOutliers(messages)...)

	return anomalies
}

// detectRateAnomalies проверяет частоту сообщений // v1.0
func (d *AnomalyDetector) detectRateAnomalies(messages []*models.MessageAnalysis) []models.Anomaly {
	var anomalies []models.Anomaly

	rate := messageRate(messages)
	if rate > d.rateThreshold {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyHighMessageRate,
			Severity:       models.SeverityMedium,
			Description:    fmt.Sprintf("High message rate: %.1f msg/s", rate),
			Recommendation: "Monitor for potential flooding attack",
		})
	}

	return anomalies
}

// messageRate вычисляет частоту сообщений в секунду // v1.0
func messageRate(messages []*models.MessageAnalysis) float64 {
	if len(messages) < 2 {
		return 0
	}

	span := messages[len(messages)-1].Timestamp.Sub(messages[0].Timestamp)
	if span <= 0 {
		return 0
	}
	return float64(len(messages)) / span.Seconds()
}

// detectErrorRuns проверяет серии подряд идущих сообщений с аномалиями // v1.0
func (d *AnomalyDetector) detectErrorRuns(messages []*models.MessageAnalysis) []models.Anomaly {
	var anomalies []models.Anomaly

	longestRun := 0
	currentRun := 0
	for _, message := range messages {
		if len(message.Anomalies) > 0 {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
		} else {
			currentRun = 0
		}
	}

	if longestRun > d.errorRunThreshold {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyRepeatedErrors,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("Repeated error pattern detected: %d consecutive errors", longestRun),
			Recommendation: "Investigate root cause of repeated errors",
		})
	}

	return anomalies
}

// detectComplexityOutliers проверяет выбросы сложности по правилу 1.5 IQR // v1.0
func (d *AnomalyDetector) detectComplexityOutliers(messages []*models.MessageAnalysis) []models.Anomaly {
	var anomalies []models.Anomaly

	complexities := make([]float64, 0, len(messages))
	for _, message := range messages {
		complexities = append(complexities, float64(message.Metrics.ComplexityScore))
	}

	outliers := detectOutliers(complexities)
	if len(outliers) > 0 {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyComplexityOutliers,
			Severity:       models.SeverityLow,
			Description:    fmt.Sprintf("Complexity outliers detected: %d messages", len(outliers)),
			Recommendation: "Review high-complexity messages for optimization",
		})
	}

	return anomalies
}

// detectOutliers находит выбросы по межквартильному размаху. Требуется
// минимум три точки. // v1.0
func detectOutliers(values []float64) []float64 {
	if len(values) < 3 {
		return nil
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	q1 := sorted[len(sorted)/4]
	q3 := sorted[len(sorted)*3/4]
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	var outliers []float64
	for _, value := range values {
		if value < lower || value > upper {
			outliers = append(outliers, value)
		}
	}
	return outliers
}
