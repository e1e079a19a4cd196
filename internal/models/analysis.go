// internal/models/analysis.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity представляет уровень важности аномалии
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// AnomalyKind представляет тип обнаруженной аномалии
type AnomalyKind string

const (
	AnomalyCompliance         AnomalyKind = "COMPLIANCE"
	AnomalyValidation         AnomalyKind = "VALIDATION"
	AnomalyRRCMissingTID      AnomalyKind = "RRC_MISSING_TID"
	AnomalyRRCInvalidTID      AnomalyKind = "RRC_INVALID_TID"
	AnomalyNASMissingSecurity AnomalyKind = "NAS_MISSING_SECURITY"
	AnomalyMACMissingLCID     AnomalyKind = "MAC_MISSING_LCID"
	AnomalyRLCMissingSN       AnomalyKind = "RLC_MISSING_SN"
	AnomalyLargeMessage       AnomalyKind = "LARGE_MESSAGE"
	AnomalyHighComplexity     AnomalyKind = "HIGH_COMPLEXITY"
	AnomalyAnalysisError      AnomalyKind = "ANALYSIS_ERROR"
	AnomalyHighMessageRate    AnomalyKind = "HIGH_MESSAGE_RATE"
	AnomalyRepeatedErrors     AnomalyKind = "REPEATED_ERRORS"
	AnomalyComplexityOutliers AnomalyKind = "COMPLEXITY_OUTLIERS"
)

// Anomaly представляет обнаруженное отклонение от ожидаемого поведения
type Anomaly struct {
	Kind           AnomalyKind `json:"kind"`
	Severity       Severity    `json:"severity"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// CorrelationKind представляет тип корреляции
type CorrelationKind string

const (
	CorrelationSequence CorrelationKind = "SEQUENCE"
	CorrelationUE       CorrelationKind = "UE_CORRELATION"
)

// SequenceCorrelation представляет позицию сообщения в известной процедуре
type SequenceCorrelation struct {
	SequenceName string        `json:"sequence_name"`
	CurrentStep  int           `json:"current_step"`
	TotalSteps   int           `json:"total_steps"`
	ExpectedNext string        `json:"expected_next,omitempty"`
	Description  string        `json:"description"`
	Timeout      time.Duration `json:"timeout"`
}

// UECorrelation представляет связь сообщения с UE по RNTI или UE ID
type UECorrelation struct {
	RNTI            string `json:"rnti,omitempty"`
	UEID            string `json:"ue_id,omitempty"`
	RelatedMessages int    `json:"related_messages"`
	Description     string `json:"description"`
}

// Correlation представляет одну корреляционную запись (tagged variant) // v1.0
type Correlation struct {
	Kind     CorrelationKind      `json:"kind"`
	Sequence *SequenceCorrelation `json:"sequence,omitempty"`
	UE       *UECorrelation       `json:"ue,omitempty"`
}

// RecommendationKind представляет тип рекомендации
type RecommendationKind string

const (
	RecommendationCompliance    RecommendationKind = "COMPLIANCE"
	RecommendationValidation    RecommendationKind = "VALIDATION"
	RecommendationPerformance   RecommendationKind = "PERFORMANCE"
	RecommendationErrorRecovery RecommendationKind = "ERROR_RECOVERY"
)

// Recommendation представляет рекомендацию по устранению проблемы
type Recommendation struct {
	Kind        RecommendationKind `json:"kind"`
	Priority    Severity           `json:"priority"`
	Description string             `json:"description"`
	Action      string             `json:"action"`
}

// RRCMetrics представляет метрики RRC сообщения
type RRCMetrics struct {
	TransactionID         *int64 `json:"transaction_id"`
	MessageType           string `json:"message_type"`
	HasCriticalExtensions bool   `json:"has_critical_extensions"`
	BearerCount           int    `json:"bearer_count"`
	CellConfigPresent     bool   `json:"cell_config_present"`
}

// NASMetrics представляет метрики NAS сообщения
type NASMetrics struct {
	SecurityContext   string `json:"security_context,omitempty"`
	RegistrationType  string `json:"registration_type,omitempty"`
	HasMobileIdentity bool   `json:"has_mobile_identity"`
	HasCapabilities   bool   `json:"has_capabilities"`
	CauseCode         *int64 `json:"cause_code"`
}

// MACMetrics представляет метрики MAC PDU
type MACMetrics struct {
	LogicalChannelID *int64 `json:"logical_channel_id"`
	PDUSize          *int64 `json:"pdu_size"`
	HasBSR           bool   `json:"has_bsr"`
	HasPHR           bool   `json:"has_phr"`
	HasTimingAdvance bool   `json:"has_timing_advance"`
}

// RLCMetrics представляет метрики RLC PDU
type RLCMetrics struct {
	SequenceNumber   *int64 `json:"sequence_number"`
	SegmentOffset    *int64 `json:"segment_offset"`
	IsDataPDU        bool   `json:"is_data_pdu"`
	HasPollingBit    bool   `json:"has_polling_bit"`
	SegmentationInfo string `json:"segmentation_info,omitempty"`
}

// AnalysisMetrics представляет вычисленные метрики одного сообщения
type AnalysisMetrics struct {
	MessageSize        int         `json:"message_size"`
	FieldCount         int         `json:"field_count"`
	ValidationScore    int         `json:"validation_score"`
	ComplexityScore    int         `json:"complexity_score"`
	ProtocolCompliance Compliance  `json:"protocol_compliance"`
	RRC                *RRCMetrics `json:"rrc_metrics,omitempty"`
	NAS                *NASMetrics `json:"nas_metrics,omitempty"`
	MAC                *MACMetrics `json:"mac_metrics,omitempty"`
	RLC                *RLCMetrics `json:"rlc_metrics,omitempty"`
}

// AnalysisContext представляет контекст, переданный вызывающей стороной.
// Анализатор интерпретирует только MessageType, остальное прозрачно.
type AnalysisContext struct {
	MessageType string            `json:"message_type,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// MessageAnalysis представляет полный результат анализа одного сообщения
type MessageAnalysis struct {
	ID              string           `json:"id"`
	Decoded         *DecodedMessage  `json:"decoded"`
	Metrics         AnalysisMetrics  `json:"metrics"`
	Anomalies       []Anomaly        `json:"anomalies"`
	Correlations    []Correlation    `json:"correlations"`
	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       time.Time        `json:"timestamp"`
	Context         AnalysisContext  `json:"context"`
}

// NewMessageAnalysis создает новый результат анализа // v1.0
func NewMessageAnalysis(decoded *DecodedMessage, ctx AnalysisContext) *MessageAnalysis {
	return &MessageAnalysis{
		ID:        uuid.New().String(),
		Decoded:   decoded,
		Timestamp: time.Now(),
		Context:   ctx,
	}
}

// ToJSON возвращает результат анализа в JSON формате // v1.0
func (a *MessageAnalysis) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// HasHighSeverityAnomaly проверяет наличие аномалии высокой важности // v1.0
func (a *MessageAnalysis) HasHighSeverityAnomaly() bool {
	for _, anomaly := range a.Anomalies {
		if anomaly.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// AnomalyCount возвращает количество аномалий // v1.0
func (a *MessageAnalysis) AnomalyCount() int {
	return len(a.Anomalies)
}

// CorrelationCount возвращает количество корреляций // v1.0
func (a *MessageAnalysis) CorrelationCount() int {
	return len(a.Correlations)
}

// MessageType возвращает тип проанализированного сообщения // v1.0
func (a *MessageAnalysis) MessageType() string {
	if a.Decoded == nil {
		return "ERROR"
	}
	return a.Decoded.MessageType
}

// Protocol возвращает протокол проанализированного сообщения // v1.0
func (a *MessageAnalysis) Protocol() Protocol {
	if a.Decoded == nil {
		return ProtocolUnknown
	}
	return a.Decoded.Protocol
}

// MetricsEntry представляет облегченную запись индекса метрик
type MetricsEntry struct {
	Seq              uint64    `json:"seq"`
	Timestamp        time.Time `json:"timestamp"`
	MessageType      string    `json:"message_type"`
	Protocol         Protocol  `json:"protocol"`
	ValidationScore  int       `json:"validation_score"`
	ComplexityScore  int       `json:"complexity_score"`
	AnomalyCount     int       `json:"anomaly_count"`
	CorrelationCount int       `json:"correlation_count"`
}

// ToMetricsEntry возвращает облегченную запись индекса метрик // v1.0
func (a *MessageAnalysis) ToMetricsEntry(seq uint64) MetricsEntry {
	return MetricsEntry{
		Seq:              seq,
		Timestamp:        a.Timestamp,
		MessageType:      a.MessageType(),
		Protocol:         a.Protocol(),
		ValidationScore:  a.Metrics.ValidationScore,
		ComplexityScore:  a.Metrics.ComplexityScore,
		AnomalyCount:     len(a.Anomalies),
		CorrelationCount: len(a.Correlations),
	}
}

// AggregateStats представляет агрегированную статистику по истории анализа
type AggregateStats struct {
	TotalMessages          int              `json:"total_messages"`
	MessageTypes           map[string]int   `json:"message_types"`
	Protocols              map[Protocol]int `json:"protocols"`
	AverageValidationScore float64          `json:"average_validation_score"`
	AverageComplexityScore float64          `json:"average_complexity_score"`
	TotalAnomalies         int              `json:"total_anomalies"`
	TotalCorrelations      int              `json:"total_correlations"`
}
