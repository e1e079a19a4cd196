// filename: internal/analyzer/analyzer_test.go
package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/decoder"
	"github.com/sigscope/sigscope/internal/models"
)

func testConfig() config.AnalyzerConfig {
	return config.AnalyzerConfig{
		HistoryCapacity:      1000,
		HistoryBackend:       "memory",
		LargeMessageSize:     10000,
		HighComplexityScore:  80,
		RecommendComplexity:  70,
		MessageRateThreshold: 100,
		ErrorRunThreshold:    5,
	}
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Ошибка создания логгера: %v", err)
	}
	cfg := testConfig()
	return NewAnalyzer(decoder.NewDecoder(logger), NewMemoryHistory(cfg.HistoryCapacity), nil, cfg, logger)
}

func TestAnalyzeCompliantMessage(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	analysis := a.AnalyzeMessage(ctx, "RRC Connection Setup Request tid=1", models.AnalysisContext{})

	if analysis.Metrics.ProtocolCompliance != models.ComplianceCompliant {
		t.Errorf("Ожидалось соответствие 3GPP, получено %s", analysis.Metrics.ProtocolCompliance)
	}
	if analysis.Metrics.ValidationScore != 100 {
		t.Errorf("Ожидалась оценка валидации 100, получена %d", analysis.Metrics.ValidationScore)
	}
	if analysis.Metrics.RRC == nil {
		t.Fatal("Ожидались метрики RRC")
	}
	if analysis.Metrics.RRC.TransactionID == nil || *analysis.Metrics.RRC.TransactionID != 1 {
		t.Error("Ожидался идентификатор транзакции 1 в метриках RRC")
	}

	// Для соответствующего сообщения не должно быть аномалий соответствия
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == models.AnomalyCompliance {
			t.Errorf("Неожиданная аномалия соответствия: %s", anomaly.Description)
		}
	}
}

func TestAnalyzeInvalidTransactionID(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	analysis := a.AnalyzeMessage(ctx, "RRC Setup Request tid=7", models.AnalysisContext{})

	if analysis.Metrics.ValidationScore > 80 {
		t.Errorf("Оценка валидации должна снизиться минимум на 20, получена %d",
			analysis.Metrics.ValidationScore)
	}

	var invalidTID, validation bool
	for _, anomaly := range analysis.Anomalies {
		switch anomaly.Kind {
		case models.AnomalyRRCInvalidTID:
			invalidTID = true
			if anomaly.Severity != models.SeverityHigh {
				t.Errorf("Ожидалась важность HIGH для RRC_INVALID_TID, получена %s", anomaly.Severity)
			}
		case models.AnomalyValidation:
			validation = true
		}
	}
	if !invalidTID {
		t.Error("Ожидалась аномалия RRC_INVALID_TID")
	}
	if !validation {
		t.Error("Ожидалась аномалия VALIDATION")
	}
}

func TestSequenceCorrelationSteps(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	steps := []struct {
		raw          string
		expectedStep int
		expectedNext string
	}{
		{"RRC Setup Request tid=1", 1, "RRCSetup"},
		{"RRC Setup tid=1", 2, "RRCSetupComplete"},
		{"rrcSetupComplete tid=1", 3, ""},
	}

	for _, step := range steps {
		analysis := a.AnalyzeMessage(ctx, step.raw, models.AnalysisContext{})

		var sequence *models.SequenceCorrelation
		for _, correlation := range analysis.Correlations {
			if correlation.Kind == models.CorrelationSequence &&
				correlation.Sequence.SequenceName == "RRC_CONNECTION_ESTABLISHMENT" {
				sequence = correlation.Sequence
			}
		}
		if sequence == nil {
			t.Fatalf("Сообщение %q: не найдена корреляция RRC_CONNECTION_ESTABLISHMENT", step.raw)
		}
		if sequence.CurrentStep != step.expectedStep {
			t.Errorf("Сообщение %q: ожидался шаг %d, получен %d", step.raw, step.expectedStep, sequence.CurrentStep)
		}
		if sequence.TotalSteps != 3 {
			t.Errorf("Сообщение %q: ожидалось 3 шага, получено %d", step.raw, sequence.TotalSteps)
		}
		if sequence.ExpectedNext != step.expectedNext {
			t.Errorf("Сообщение %q: ожидался следующий шаг %q, получен %q",
				step.raw, step.expectedNext, sequence.ExpectedNext)
		}
	}
}

func TestUECorrelation(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	// Первое сообщение UE: связанных сообщений в истории еще нет
	first := a.AnalyzeMessage(ctx, "MAC PDU rnti=0x4601 lcid=1", models.AnalysisContext{})
	firstUE := findUECorrelation(first)
	if firstUE == nil {
		t.Fatal("Ожидалась корреляция по UE для первого сообщения")
	}
	if firstUE.RelatedMessages != 0 {
		t.Errorf("Ожидалось 0 связанных сообщений, получено %d", firstUE.RelatedMessages)
	}

	// Второе сообщение того же UE видит первое в истории
	second := a.AnalyzeMessage(ctx, "RLC DATA rnti=0x4601 sn=10", models.AnalysisContext{})
	secondUE := findUECorrelation(second)
	if secondUE == nil {
		t.Fatal("Ожидалась корреляция по UE для второго сообщения")
	}
	if secondUE.RelatedMessages != 1 {
		t.Errorf("Ожидалось 1 связанное сообщение, получено %d", secondUE.RelatedMessages)
	}
	if secondUE.RNTI != "4601" {
		t.Errorf("Ожидался RNTI 4601, получен %q", secondUE.RNTI)
	}
}

func findUECorrelation(analysis *models.MessageAnalysis) *models.UECorrelation {
	for _, correlation := range analysis.Correlations {
		if correlation.Kind == models.CorrelationUE {
			return correlation.UE
		}
	}
	return nil
}

func TestLargeMessageAnomaly(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	raw := "MAC PDU lcid=1 " + strings.Repeat("x", 20000)
	analysis := a.AnalyzeMessage(ctx, raw, models.AnalysisContext{})

	found := false
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == models.AnomalyLargeMessage {
			found = true
			if anomaly.Severity != models.SeverityMedium {
				t.Errorf("Ожидалась важность MEDIUM, получена %s", anomaly.Severity)
			}
		}
	}
	if !found {
		t.Error("Ожидалась аномалия LARGE_MESSAGE")
	}
}

func TestAnalysisStatistics(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	// Статистика пустой истории не должна делить на ноль
	stats, err := a.GetAnalysisStatistics(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения статистики: %v", err)
	}
	if stats.TotalMessages != 0 || stats.AverageValidationScore != 0 {
		t.Error("Статистика пустой истории должна быть нулевой")
	}

	a.AnalyzeMessage(ctx, "RRC Setup Request tid=1", models.AnalysisContext{})
	a.AnalyzeMessage(ctx, "RRC Setup Request tid=2", models.AnalysisContext{})
	a.AnalyzeMessage(ctx, "MAC PDU lcid=3", models.AnalysisContext{})

	stats, err = a.GetAnalysisStatistics(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения статистики: %v", err)
	}
	if stats.TotalMessages != 3 {
		t.Errorf("Ожидалось 3 сообщения, получено %d", stats.TotalMessages)
	}
	if stats.MessageTypes["RRCSetupRequest"] != 2 {
		t.Errorf("Ожидалось 2 сообщения RRCSetupRequest, получено %d", stats.MessageTypes["RRCSetupRequest"])
	}
	if stats.Protocols[models.ProtocolMAC] != 1 {
		t.Errorf("Ожидалось 1 сообщение MAC, получено %d", stats.Protocols[models.ProtocolMAC])
	}
	if stats.AverageValidationScore <= 0 {
		t.Error("Средняя оценка валидации должна быть положительной")
	}
}

func TestClearHistory(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	a.AnalyzeMessage(ctx, "RRC Setup Request tid=1", models.AnalysisContext{})
	if err := a.ClearHistory(ctx); err != nil {
		t.Fatalf("Ошибка очистки истории: %v", err)
	}

	stats, err := a.GetAnalysisStatistics(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения статистики: %v", err)
	}
	if stats.TotalMessages != 0 {
		t.Errorf("После очистки ожидалось 0 сообщений, получено %d", stats.TotalMessages)
	}
}

func TestMetricsIndexMaintained(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	a.AnalyzeMessage(ctx, "RRC Setup Request tid=1", models.AnalysisContext{})
	a.AnalyzeMessage(ctx, "MAC PDU lcid=3", models.AnalysisContext{})

	entries, err := a.MetricsIndex(ctx)
	if err != nil {
		t.Fatalf("Ошибка чтения индекса метрик: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Ожидалось 2 записи индекса, получено %d", len(entries))
	}
	if entries[0].MessageType != "RRCSetupRequest" || entries[1].MessageType != "MACPDU" {
		t.Errorf("Индекс должен сохранять порядок добавления, получено %s, %s",
			entries[0].MessageType, entries[1].MessageType)
	}
	if entries[1].Seq <= entries[0].Seq {
		t.Errorf("Порядковые номера индекса должны расти: %d, затем %d", entries[0].Seq, entries[1].Seq)
	}
	if entries[0].ValidationScore != 100 {
		t.Errorf("Ожидалась оценка валидации 100 в индексе, получена %d", entries[0].ValidationScore)
	}

	if err := a.ClearHistory(ctx); err != nil {
		t.Fatalf("Ошибка очистки истории: %v", err)
	}
	entries, err = a.MetricsIndex(ctx)
	if err != nil {
		t.Fatalf("Ошибка чтения индекса метрик: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("После очистки индекс метрик должен быть пустым, получено %d записей", len(entries))
	}
}

func TestUECorrelationAfterEviction(t *testing.T) {
	logger, err := logging.NewLogger(logging.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Ошибка создания логгера: %v", err)
	}
	cfg := testConfig()
	cfg.HistoryCapacity = 2
	a := NewAnalyzer(decoder.NewDecoder(logger), NewMemoryHistory(cfg.HistoryCapacity), nil, cfg, logger)
	ctx := context.Background()

	// Четыре сообщения одного UE при емкости 2: к моменту четвертого
	// первое и второе уже не должны учитываться
	a.AnalyzeMessage(ctx, "MAC PDU rnti=0x4601 lcid=1", models.AnalysisContext{})
	a.AnalyzeMessage(ctx, "RLC DATA rnti=0x4601 sn=10", models.AnalysisContext{})
	a.AnalyzeMessage(ctx, "MAC PDU rnti=0x4601 lcid=2", models.AnalysisContext{})
	fourth := a.AnalyzeMessage(ctx, "RLC DATA rnti=0x4601 sn=11", models.AnalysisContext{})

	ue := findUECorrelation(fourth)
	if ue == nil {
		t.Fatal("Ожидалась корреляция по UE для четвертого сообщения")
	}
	if ue.RelatedMessages != 2 {
		t.Errorf("Вытесненные сообщения не должны учитываться: ожидалось 2 связанных, получено %d",
			ue.RelatedMessages)
	}

	stats, err := a.GetAnalysisStatistics(ctx)
	if err != nil {
		t.Fatalf("Ошибка получения статистики: %v", err)
	}
	if stats.TotalMessages != 2 {
		t.Errorf("Ожидалось 2 сообщения в истории, получено %d", stats.TotalMessages)
	}
}

func TestAnalyzerDefaultThresholds(t *testing.T) {
	logger, err := logging.NewLogger(logging.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Ошибка создания логгера: %v", err)
	}
	// Нулевые пороги заменяются значениями по умолчанию
	a := NewAnalyzer(decoder.NewDecoder(logger), NewMemoryHistory(10), nil, config.AnalyzerConfig{}, logger)
	ctx := context.Background()

	analysis := a.AnalyzeMessage(ctx, "MAC PDU lcid=1", models.AnalysisContext{})

	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == models.AnomalyLargeMessage {
			t.Error("Небольшое сообщение не должно давать аномалию LARGE_MESSAGE при порогах по умолчанию")
		}
		if anomaly.Kind == models.AnomalyHighComplexity {
			t.Error("Простое сообщение не должно давать аномалию HIGH_COMPLEXITY при порогах по умолчанию")
		}
	}
	for _, rec := range analysis.Recommendations {
		if rec.Kind == models.RecommendationPerformance {
			t.Error("Простое сообщение не должно давать рекомендацию PERFORMANCE при порогах по умолчанию")
		}
	}
}

func TestAnalyzeErrorMessageType(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	// Сообщение без шаблона дает аномалию соответствия, но анализ завершается
	analysis := a.AnalyzeMessage(ctx, "foobar payload", models.AnalysisContext{})

	if analysis.Metrics.ProtocolCompliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", analysis.Metrics.ProtocolCompliance)
	}

	var compliance bool
	for _, anomaly := range analysis.Anomalies {
		if anomaly.Kind == models.AnomalyCompliance {
			compliance = true
		}
	}
	if !compliance {
		t.Error("Ожидалась аномалия COMPLIANCE")
	}
	if len(analysis.Recommendations) == 0 {
		t.Error("Ожидались рекомендации для несоответствующего сообщения")
	}
}

func TestAnalysisContextPassthrough(t *testing.T) {
	a := newTestAnalyzer(t)
	ctx := context.Background()

	analysisCtx := models.AnalysisContext{
		MessageType: "RRCSetup",
		Labels:      map[string]string{"source": "gnb-1"},
	}
	analysis := a.AnalyzeMessage(ctx, "tid=2", analysisCtx)

	if analysis.MessageType() != "RRCSetup" {
		t.Errorf("Контекст должен задавать тип сообщения, получен %s", analysis.MessageType())
	}
	if analysis.Context.Labels["source"] != "gnb-1" {
		t.Error("Метки контекста должны проходить сквозь анализ без изменений")
	}
}
