// filename: internal/analyzer/detector_test.go
package analyzer

import (
	"testing"
	"time"

	"github.com/sigscope/sigscope/internal/models"
)

func batchEntry(ts time.Time, complexity, anomalyCount int) *models.MessageAnalysis {
	analysis := analysisWithType("RRCSetup")
	analysis.Timestamp = ts
	analysis.Metrics.ComplexityScore = complexity
	for i := 0; i < anomalyCount; i++ {
		analysis.Anomalies = append(analysis.Anomalies, models.Anomaly{
			Kind:     models.AnomalyValidation,
			Severity: models.SeverityHigh,
		})
	}
	return analysis
}

func hasAnomalyKind(anomalies []models.Anomaly, kind models.AnomalyKind) bool {
	for _, anomaly := range anomalies {
		if anomaly.Kind == kind {
			return true
		}
	}
	return false
}

func TestDetectHighMessageRate(t *testing.T) {
	d := NewAnomalyDetector(testConfig())

	// 5 сообщений за 10 миллисекунд: 500 msg/s
	base := time.Now()
	var messages []*models.MessageAnalysis
	for i := 0; i < 5; i++ {
		messages = append(messages, batchEntry(base.Add(time.Duration(i)*2*time.Millisecond), 30, 0))
	}

	anomalies := d.DetectAnomalies(messages)
	if !hasAnomalyKind(anomalies, models.AnomalyHighMessageRate) {
		t.Error("Ожидалась аномалия HIGH_MESSAGE_RATE")
	}
}

func TestDetectNormalMessageRate(t *testing.T) {
	d := NewAnomalyDetector(testConfig())

	// 3 сообщения за 2 секунды: частота в норме
	base := time.Now()
	messages := []*models.MessageAnalysis{
		batchEntry(base, 30, 0),
		batchEntry(base.Add(time.Second), 30, 0),
		batchEntry(base.Add(2*time.Second), 30, 0),
	}

	anomalies := d.DetectAnomalies(messages)
	if hasAnomalyKind(anomalies, models.AnomalyHighMessageRate) {
		t.Error("Неожиданная аномалия HIGH_MESSAGE_RATE для нормальной частоты")
	}
}

func TestDetectRepeatedErrors(t *testing.T) {
	d := NewAnomalyDetector(testConfig())

	// Серия из 6 подряд идущих сообщений с аномалиями превышает порог 5
	base := time.Now()
	var messages []*models.MessageAnalysis
	for i := 0; i < 6; i++ {
		messages = append(messages, batchEntry(base.Add(time.Duration(i)*time.Second), 30, 1))
	}

	anomalies := d.DetectAnomalies(messages)
	if !hasAnomalyKind(anomalies, models.AnomalyRepeatedErrors) {
		t.Error("Ожидалась аномалия REPEATED_ERRORS")
	}
}

func TestDetectErrorRunInterrupted(t *testing.T) {
	d := NewAnomalyDetector(testConfig())

	// Серии прерываются чистыми сообщениями, порог не достигается
	base := time.Now()
	var messages []*models.MessageAnalysis
	for i := 0; i < 12; i++ {
		anomalyCount := 1
		if i%3 == 2 {
			anomalyCount = 0
		}
		messages = append(messages, batchEntry(base.Add(time.Duration(i)*time.Second), 30, anomalyCount))
	}

	anomalies := d.DetectAnomalies(messages)
	if hasAnomalyKind(anomalies, models.AnomalyRepeatedErrors) {
		t.Error("Неожиданная аномалия REPEATED_ERRORS для прерывающихся серий")
	}
}

func TestDetectComplexityOutliers(t *testing.T) {
	d := NewAnomalyDetector(testConfig())

	base := time.Now()
	messages := []*models.MessageAnalysis{
		batchEntry(base, 30, 0),
		batchEntry(base.Add(time.Second), 30, 0),
		batchEntry(base.Add(2*time.Second), 30, 0),
		batchEntry(base.Add(3*time.Second), 30, 0),
		batchEntry(base.Add(4*time.Second), 100, 0),
	}

	anomalies := d.DetectAnomalies(messages)
	if !hasAnomalyKind(anomalies, models.AnomalyComplexityOutliers) {
		t.Error("Ожидалась аномалия COMPLEXITY_OUTLIERS")
	}
}

func TestOutliersRequireMinimumPoints(t *testing.T) {
	// Меньше трех точек: выбросы не определяются
	outliers := detectOutliers([]float64{10, 1000})
	if len(outliers) != 0 {
		t.Errorf("Для двух точек выбросы не определяются, получено %d", len(outliers))
	}
}
