// filename: internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"fmt"

	"github.com/sigscope/sigscope/internal/common/config"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/decoder"
	"github.com/sigscope/sigscope/internal/models"
)

// protocolComplexity базовая сложность по протоколу
var protocolComplexity = map[models.Protocol]int{
	models.ProtocolRRC:  30,
	models.ProtocolNAS:  25,
	models.ProtocolRLC:  20,
	models.ProtocolMAC:  15,
	models.ProtocolPDCP: 15,
	models.ProtocolPHY:  10,
}

// Analyzer выполняет анализ декодированных сообщений: метрики, аномалии,
// корреляции по процедурам и по UE, рекомендации. Анализ тотален: любой
// вход дает результат, сбой выражается аномалией ANALYSIS_ERROR.
type Analyzer struct {
	decoder  *decoder.Decoder
	history  HistoryStore
	rules    []CorrelationRule
	detector *AnomalyDetector
	cfg      config.AnalyzerConfig
	logger   *logging.Logger
}

// NewAnalyzer создает новый анализатор // v1.0
func NewAnalyzer(d *decoder.Decoder, history HistoryStore, rules []CorrelationRule, cfg config.AnalyzerConfig, logger *logging.Logger) *Analyzer {
	if rules == nil {
		rules = BuiltinRules()
	}
	if cfg.LargeMessageSize <= 0 {
		cfg.LargeMessageSize = 10000
	}
	if cfg.HighComplexityScore <= 0 {
		cfg.HighComplexityScore = 80
	}
	if cfg.RecommendComplexity <= 0 {
		cfg.RecommendComplexity = 70
	}
	return &Analyzer{
		decoder:  d,
		history:  history,
		rules:    rules,
		detector: NewAnomalyDetector(cfg),
		cfg:      cfg,
		logger:   logger,
	}
}

// Decoder возвращает используемый декодер // v1.0
func (a *Analyzer) Decoder() *decoder.Decoder {
	return a.decoder
}

// Rules возвращает действующие правила корреляции // v1.0
func (a *Analyzer) Rules() []CorrelationRule {
	out := make([]CorrelationRule, len(a.rules))
	copy(out, a.rules)
	return out
}

// AnalyzeMessage анализирует одно сырое сообщение // v1.0
func (a *Analyzer) AnalyzeMessage(ctx context.Context, rawMessage string, analysisCtx models.AnalysisContext) (result *models.MessageAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.WithField("panic", r).Error("Ошибка анализа сообщения")
			result = a.errorAnalysis(rawMessage, fmt.Errorf("%v", r))
		}
	}()

	// Декодируем сообщение
	decoded := a.decoder.DecodeMessage(rawMessage, analysisCtx.MessageType)

	analysis := models.NewMessageAnalysis(decoded, analysisCtx)
	analysis.Metrics = a.calculateMetrics(decoded)
	analysis.Anomalies = a.detectAnomalies(decoded)
	analysis.Correlations = a.findCorrelations(ctx, decoded)
	analysis.Recommendations = a.generateRecommendations(decoded)

	// Сохраняем в историю для последующей корреляции. Отказ хранилища не
	// отменяет результат анализа.
	if _, err := a.history.Append(ctx, analysis); err != nil {
		a.logger.WithError(err).Warn("Не удалось сохранить анализ в историю")
	}

	a.logger.WithAnalysis(analysis.ID, analysis.MessageType(), len(analysis.Anomalies)).
		Debug("Сообщение проанализировано")

	return analysis
}

// calculateMetrics вычисляет метрики сообщения // v1.0
func (a *Analyzer) calculateMetrics(decoded *models.DecodedMessage) models.AnalysisMetrics {
	metrics := models.AnalysisMetrics{
		MessageSize:        len(decoded.RawMessage),
		FieldCount:         decoded.CountFields(),
		ValidationScore:    validationScore(decoded.Validation),
		ComplexityScore:    complexityScore(decoded),
		ProtocolCompliance: decoded.Compliance,
	}

	switch decoded.Protocol {
	case models.ProtocolRRC:
		metrics.RRC = calculateRRCMetrics(decoded)
	case models.ProtocolNAS:
		metrics.NAS = calculateNASMetrics(decoded)
	case models.ProtocolMAC:
		metrics.MAC = calculateMACMetrics(decoded)
	case models.ProtocolRLC:
		metrics.RLC = calculateRLCMetrics(decoded)
	}

	return metrics
}

// validationScore вычисляет оценку валидации: 100 минус 20 за ошибку,
// минус 5 за предупреждение, не ниже нуля // v1.0
func validationScore(validation models.MessageValidation) int {
	score := 100
	score -= len(validation.Errors) * 20
	score -= len(validation.Warnings) * 5
	if score < 0 {
		score = 0
	}
	return score
}

// complexityScore вычисляет оценку сложности сообщения // v1.0
func complexityScore(decoded *models.DecodedMessage) int {
	complexity, known := protocolComplexity[decoded.Protocol]
	if !known {
		complexity = 10
	}

	complexity += decoded.CountFields() * 2
	complexity += decoded.CountNestedStructures() * 5

	if complexity > 100 {
		complexity = 100
	}
	return complexity
}

// calculateRRCMetrics вычисляет метрики RRC сообщения // v1.0
func calculateRRCMetrics(decoded *models.DecodedMessage) *models.RRCMetrics {
	metrics := &models.RRCMetrics{
		MessageType:           decoded.MessageType,
		HasCriticalExtensions: decoded.FindLeaf("criticalExtensions") != nil || hasBranch(decoded, "criticalExtensions"),
		CellConfigPresent:     hasBranch(decoded, "masterCellGroup"),
	}
	if tid, ok := decoded.LeafInt("rrcTransactionId"); ok {
		metrics.TransactionID = &tid
	}
	if decoded.HasLeaf("srb-ToAddModList") {
		metrics.BearerCount++
	}
	if decoded.HasLeaf("drb-ToAddModList") {
		metrics.BearerCount++
	}
	return metrics
}

// calculateNASMetrics вычисляет метрики NAS сообщения // v1.0
func calculateNASMetrics(decoded *models.DecodedMessage) *models.NASMetrics {
	metrics := &models.NASMetrics{
		HasMobileIdentity: decoded.HasLeaf("5GSMobileIdentity") || decoded.HasLeaf("epsMobileIdentity"),
		HasCapabilities:   decoded.HasLeaf("5GMMCapability") || decoded.HasLeaf("ueNetworkCapability"),
	}
	if securityContext, ok := decoded.LeafString("ngKSI"); ok {
		metrics.SecurityContext = securityContext
	}
	if registrationType, ok := decoded.LeafString("registrationType"); ok {
		metrics.RegistrationType = registrationType
	}
	if cause, ok := decoded.LeafInt("5GMMCause"); ok {
		metrics.CauseCode = &cause
	}
	return metrics
}

// calculateMACMetrics вычисляет метрики MAC PDU // v1.0
func calculateMACMetrics(decoded *models.DecodedMessage) *models.MACMetrics {
	metrics := &models.MACMetrics{
		HasBSR:           decoded.HasLeaf("bufferStatusReport"),
		HasPHR:           decoded.HasLeaf("powerHeadroomReport"),
		HasTimingAdvance: decoded.HasLeaf("timingAdvance"),
	}
	if lcid, ok := decoded.LeafInt("logicalChannelId"); ok {
		metrics.LogicalChannelID = &lcid
	}
	if tbs, ok := decoded.LeafInt("transportBlockSize"); ok {
		metrics.PDUSize = &tbs
	}
	return metrics
}

// calculateRLCMetrics вычисляет метрики RLC PDU // v1.0
func calculateRLCMetrics(decoded *models.DecodedMessage) *models.RLCMetrics {
	pollingBit, _ := decoded.LeafString("pollingBit")
	segmentationInfo, _ := decoded.LeafString("SI")

	metrics := &models.RLCMetrics{
		IsDataPDU:        decoded.MessageType == "RLCDATA" || decoded.MessageType == "LTE_RLCDATA",
		HasPollingBit:    pollingBit == "1",
		SegmentationInfo: segmentationInfo,
	}
	if sn, ok := decoded.LeafInt("sequenceNumber"); ok {
		metrics.SequenceNumber = &sn
	}
	if so, ok := decoded.LeafInt("segmentOffset"); ok {
		metrics.SegmentOffset = &so
	}
	return metrics
}

// hasBranch проверяет наличие ветки с заданным именем в дереве полей // v1.0
func hasBranch(decoded *models.DecodedMessage, name string) bool {
	return findBranch(decoded.Decoded, name) != nil
}

// findBranch рекурсивно ищет ветку по имени // v1.0
func findBranch(nodes map[string]*models.FieldNode, name string) *models.FieldNode {
	if node, ok := nodes[name]; ok && node != nil && !node.IsLeaf() {
		return node
	}
	for _, node := range nodes {
		if node == nil || node.IsLeaf() {
			continue
		}
		if found := findBranch(node.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// detectAnomalies обнаруживает аномалии в одном сообщении // v1.0
func (a *Analyzer) detectAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	anomalies := []models.Anomaly{}

	// Аномалии соответствия 3GPP
	if decoded.Compliance != models.ComplianceCompliant {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyCompliance,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("Message not 3GPP compliant: %s", decoded.Compliance),
			Recommendation: "Check message format against 3GPP specifications",
		})
	}

	// Аномалии валидации
	if len(decoded.Validation.Errors) > 0 {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyValidation,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("Validation errors: %d", len(decoded.Validation.Errors)),
			Recommendation: "Fix message format issues",
		})
	}

	// Протокольные аномалии
	switch decoded.Protocol {
	case models.ProtocolRRC:
		anomalies = append(anomalies, detectRRCAnomalies(decoded)...)
	case models.ProtocolNAS:
		anomalies = append(anomalies, detectNASAnomalies(decoded)...)
	case models.ProtocolMAC:
		anomalies = append(anomalies, detectMACAnomalies(decoded)...)
	case models.ProtocolRLC:
		anomalies = append(anomalies, detectRLCAnomalies(decoded)...)
	}

	// Аномалии производительности
	anomalies = append(anomalies, a.detectPerformanceAnomalies(decoded)...)

	return anomalies
}

// detectRRCAnomalies обнаруживает аномалии RRC // v1.0
func detectRRCAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	var anomalies []models.Anomaly

	if !decoded.HasLeaf("rrcTransactionId") {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyRRCMissingTID,
			Severity:       models.SeverityMedium,
			Description:    "RRC message missing transaction ID",
			Recommendation: "Ensure RRC transaction ID is present",
		})
	}

	if tid, ok := decoded.LeafInt("rrcTransactionId"); ok && (tid < 0 || tid > 3) {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyRRCInvalidTID,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("Invalid RRC transaction ID: %d", tid),
			Recommendation: "RRC transaction ID must be in range [0, 3]",
		})
	}

	return anomalies
}

// detectNASAnomalies обнаруживает аномалии NAS // v1.0
func detectNASAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	var anomalies []models.Anomaly

	if decoded.FindLeaf("ngKSI") == nil && !hasBranch(decoded, "ngKSI") {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyNASMissingSecurity,
			Severity:       models.SeverityHigh,
			Description:    "NAS message missing security context",
			Recommendation: "Ensure security context is present",
		})
	}

	return anomalies
}

// detectMACAnomalies обнаруживает аномалии MAC // v1.0
func detectMACAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	var anomalies []models.Anomaly

	if !decoded.HasLeaf("logicalChannelId") {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyMACMissingLCID,
			Severity:       models.SeverityMedium,
			Description:    "MAC PDU missing logical channel ID",
			Recommendation: "Ensure logical channel ID is present",
		})
	}

	return anomalies
}

// detectRLCAnomalies обнаруживает аномалии RLC // v1.0
func detectRLCAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	var anomalies []models.Anomaly

	if !decoded.HasLeaf("sequenceNumber") {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyRLCMissingSN,
			Severity:       models.SeverityHigh,
			Description:    "RLC PDU missing sequence number",
			Recommendation: "Ensure sequence number is present",
		})
	}

	return anomalies
}

// detectPerformanceAnomalies обнаруживает аномалии производительности // v1.0
func (a *Analyzer) detectPerformanceAnomalies(decoded *models.DecodedMessage) []models.Anomaly {
	var anomalies []models.Anomaly

	messageSize := len(decoded.RawMessage)
	if messageSize > a.cfg.LargeMessageSize {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyLargeMessage,
			Severity:       models.SeverityMedium,
			Description:    fmt.Sprintf("Large message size: %d bytes", messageSize),
			Recommendation: "Consider message fragmentation or optimization",
		})
	}

	if complexity := complexityScore(decoded); complexity > a.cfg.HighComplexityScore {
		anomalies = append(anomalies, models.Anomaly{
			Kind:           models.AnomalyHighComplexity,
			Severity:       models.SeverityLow,
			Description:    fmt.Sprintf("High message complexity: %d%%", complexity),
			Recommendation: "Monitor for performance impact",
		})
	}

	return anomalies
}

// findCorrelations ищет корреляции сообщения // v1.0
func (a *Analyzer) findCorrelations(ctx context.Context, decoded *models.DecodedMessage) []models.Correlation {
	correlations := []models.Correlation{}

	// Корреляции по известным процедурам
	for _, rule := range a.rules {
		if correlation := checkSequenceCorrelation(decoded, rule); correlation != nil {
			correlations = append(correlations, *correlation)
		}
	}

	// Корреляция по UE
	if correlation := a.checkUECorrelation(ctx, decoded); correlation != nil {
		correlations = append(correlations, *correlation)
	}

	return correlations
}

// checkSequenceCorrelation проверяет позицию сообщения в процедуре // v1.0
func checkSequenceCorrelation(decoded *models.DecodedMessage, rule CorrelationRule) *models.Correlation {
	step := -1
	for i, messageType := range rule.Sequence {
		if messageType == decoded.MessageType {
			step = i
			break
		}
	}
	if step < 0 {
		return nil
	}

	sequence := &models.SequenceCorrelation{
		SequenceName: rule.Name,
		CurrentStep:  step + 1,
		TotalSteps:   len(rule.Sequence),
		Description:  rule.Description,
		Timeout:      rule.Timeout,
	}
	if step+1 < len(rule.Sequence) {
		sequence.ExpectedNext = rule.Sequence[step+1]
	}

	return &models.Correlation{
		Kind:     models.CorrelationSequence,
		Sequence: sequence,
	}
}

// checkUECorrelation проверяет связь сообщения с UE по RNTI или UE ID // v1.0
func (a *Analyzer) checkUECorrelation(ctx context.Context, decoded *models.DecodedMessage) *models.Correlation {
	rnti, _ := decoded.LeafString("rnti")
	ueID, _ := decoded.LeafString("ueId")
	if rnti == "" && ueID == "" {
		return nil
	}

	related, err := a.countRelatedMessages(ctx, rnti, ueID)
	if err != nil {
		a.logger.WithError(err).Warn("Не удалось прочитать историю для корреляции по UE")
	}

	subject := ueID
	if subject == "" {
		subject = rnti
	}

	return &models.Correlation{
		Kind: models.CorrelationUE,
		UE: &models.UECorrelation{
			RNTI:            rnti,
			UEID:            ueID,
			RelatedMessages: related,
			Description:     fmt.Sprintf("Messages related to UE %s", subject),
		},
	}
}

// countRelatedMessages считает сообщения того же UE в истории // v1.0
func (a *Analyzer) countRelatedMessages(ctx context.Context, rnti, ueID string) (int, error) {
	history, err := a.history.All(ctx)
	if err != nil {
		return 0, err
	}

	related := 0
	for _, stored := range history {
		if stored.Decoded == nil {
			continue
		}
		storedRNTI, _ := stored.Decoded.LeafString("rnti")
		storedUEID, _ := stored.Decoded.LeafString("ueId")
		if (rnti != "" && storedRNTI == rnti) || (ueID != "" && storedUEID == ueID) {
			related++
		}
	}
	return related, nil
}

// generateRecommendations формирует рекомендации по сообщению // v1.0
func (a *Analyzer) generateRecommendations(decoded *models.DecodedMessage) []models.Recommendation {
	recommendations := []models.Recommendation{}

	if decoded.Compliance != models.ComplianceCompliant {
		recommendations = append(recommendations, models.Recommendation{
			Kind:        models.RecommendationCompliance,
			Priority:    models.SeverityHigh,
			Description: "Improve 3GPP compliance",
			Action:      "Review message format against 3GPP specifications",
		})
	}

	if len(decoded.Validation.Errors) > 0 {
		recommendations = append(recommendations, models.Recommendation{
			Kind:        models.RecommendationValidation,
			Priority:    models.SeverityHigh,
			Description: "Fix validation errors",
			Action:      "Correct message format issues",
		})
	}

	if complexityScore(decoded) > a.cfg.RecommendComplexity {
		recommendations = append(recommendations, models.Recommendation{
			Kind:        models.RecommendationPerformance,
			Priority:    models.SeverityMedium,
			Description: "Optimize message complexity",
			Action:      "Consider message simplification or fragmentation",
		})
	}

	return recommendations
}

// errorAnalysis формирует результат для сбоя анализа // v1.0
func (a *Analyzer) errorAnalysis(rawMessage string, err error) *models.MessageAnalysis {
	analysis := models.NewMessageAnalysis(nil, models.AnalysisContext{})
	analysis.Metrics = models.AnalysisMetrics{
		MessageSize:        len(rawMessage),
		ProtocolCompliance: models.ComplianceError,
	}
	analysis.Anomalies = []models.Anomaly{{
		Kind:           models.AnomalyAnalysisError,
		Severity:       models.SeverityHigh,
		Description:    fmt.Sprintf("Analysis failed: %v", err),
		Recommendation: "Check message format and decoder configuration",
	}}
	analysis.Correlations = []models.Correlation{}
	analysis.Recommendations = []models.Recommendation{{
		Kind:        models.RecommendationErrorRecovery,
		Priority:    models.SeverityHigh,
		Description: "Fix analysis error",
		Action:      "Review message format and decoder setup",
	}}
	return analysis
}

// DetectBatchAnomalies запускает пакетный детектор по текущей истории // v1.0
func (a *Analyzer) DetectBatchAnomalies(ctx context.Context) ([]models.Anomaly, error) {
	history, err := a.history.All(ctx)
	if err != nil {
		return nil, err
	}
	return a.detector.DetectAnomalies(history), nil
}

// GetAnalysisStatistics возвращает агрегированную статистику истории // v1.0
func (a *Analyzer) GetAnalysisStatistics(ctx context.Context) (*models.AggregateStats, error) {
	history, err := a.history.All(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.AggregateStats{
		TotalMessages: len(history),
		MessageTypes:  make(map[string]int),
		Protocols:     make(map[models.Protocol]int),
	}

	totalValidation := 0
	totalComplexity := 0
	for _, analysis := range history {
		stats.MessageTypes[analysis.MessageType()]++
		stats.Protocols[analysis.Protocol()]++
		totalValidation += analysis.Metrics.ValidationScore
		totalComplexity += analysis.Metrics.ComplexityScore
		stats.TotalAnomalies += len(analysis.Anomalies)
		stats.TotalCorrelations += len(analysis.Correlations)
	}

	if len(history) > 0 {
		stats.AverageValidationScore = float64(totalValidation) / float64(len(history))
		stats.AverageComplexityScore = float64(totalComplexity) / float64(len(history))
	}

	return stats, nil
}

// MetricsIndex возвращает индекс метрик истории в порядке добавления // v1.0
func (a *Analyzer) MetricsIndex(ctx context.Context) ([]models.MetricsEntry, error) {
	return a.history.Metrics(ctx)
}

// ClearHistory очищает историю анализа вместе с индексом метрик // v1.0
func (a *Analyzer) ClearHistory(ctx context.Context) error {
	return a.history.Clear(ctx)
}
