// filename: internal/decoder/decoder_test.go
package decoder

import (
	"strings"
	"testing"

	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/models"
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	logger, err := logging.NewLogger(logging.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Ошибка создания логгера: %v", err)
	}
	return NewDecoder(logger)
}

func TestDecodeRRCSetupRequest(t *testing.T) {
	d := newTestDecoder(t)

	result := d.DecodeMessage("RRC Connection Setup Request tid=1", "")

	if result.MessageType != "RRCSetupRequest" {
		t.Errorf("Ожидался тип RRCSetupRequest, получен %s", result.MessageType)
	}
	if result.Protocol != models.ProtocolRRC {
		t.Errorf("Ожидался протокол RRC, получен %s", result.Protocol)
	}
	if result.Compliance != models.ComplianceCompliant {
		t.Errorf("Ожидалось соответствие 3GPP, получено %s (ошибки: %v)",
			result.Compliance, result.Validation.Errors)
	}

	// Извлеченный идентификатор транзакции должен попасть в дерево полей
	tid, ok := result.LeafInt("rrcTransactionId")
	if !ok {
		t.Fatal("Поле rrcTransactionId не найдено в декодированном дереве")
	}
	if tid != 1 {
		t.Errorf("Ожидался rrcTransactionId = 1, получен %d", tid)
	}
}

func TestDecodeInvalidTransactionID(t *testing.T) {
	d := newTestDecoder(t)

	// Идентификатор транзакции вне диапазона [0, 3]
	result := d.DecodeMessage("RRC Setup Request tid=7", "")

	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}
	if result.Validation.Valid {
		t.Error("Валидация должна провалиться для tid=7")
	}
	if len(result.Validation.Errors) == 0 {
		t.Error("Ожидались ошибки валидации")
	}
}

func TestDecodeTransactionIDBoundaries(t *testing.T) {
	d := newTestDecoder(t)

	// Граничные значения диапазона [0, 3]
	for _, raw := range []string{"RRC Setup Request tid=0", "RRC Setup Request tid=3"} {
		result := d.DecodeMessage(raw, "")
		if result.Compliance != models.ComplianceCompliant {
			t.Errorf("Сообщение %q: ожидалось соответствие 3GPP, получено %s (ошибки: %v)",
				raw, result.Compliance, result.Validation.Errors)
		}
	}

	for _, raw := range []string{"RRC Setup Request tid=-1", "RRC Setup Request tid=4"} {
		result := d.DecodeMessage(raw, "")
		if result.Compliance != models.ComplianceNonCompliant {
			t.Errorf("Сообщение %q: ожидалось NON_COMPLIANT, получено %s", raw, result.Compliance)
		}
	}
}

func TestDetectMessageType(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"RRC Connection Setup Request tid=1", "RRCSetupRequest"},
		{"rrcSetupComplete received", "RRCSetupComplete"},
		{"RRC Setup tid=2", "RRCSetup"},
		{"5GS Registration procedure", "RegistrationRequest"},
		{"MAC PDU lcid=5", "MACPDU"},
		{"RLC DATA sn=100", "RLCDATA"},
		{"PDCP PDU pdcp_sn=9", "PDCPPDU"},
		{"LTE Attach Request imsi", "LTE_AttachRequest"},
		{"some RRC indication", "RRCGeneric"},
		{"EPS bearer info", "NASGeneric"},
		{"hello world", "UNKNOWN"},
		{"", "UNKNOWN"},
	}

	for _, tt := range tests {
		detected := DetectMessageType(tt.raw)
		if detected != tt.expected {
			t.Errorf("Сообщение %q: ожидался тип %s, получен %s", tt.raw, tt.expected, detected)
		}
	}
}

func TestDecodeGenericMessage(t *testing.T) {
	d := newTestDecoder(t)

	result := d.DecodeMessage("foobar payload 123", "")

	if result.MessageType != "UNKNOWN" {
		t.Errorf("Ожидался тип UNKNOWN, получен %s", result.MessageType)
	}
	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}

	found := false
	for _, decodeErr := range result.Validation.Errors {
		if decodeErr == "No 3GPP template available for this message type" {
			found = true
		}
	}
	if !found {
		t.Errorf("Ожидалась ошибка об отсутствии шаблона, получены: %v", result.Validation.Errors)
	}
}

func TestDecodeEmptyMessage(t *testing.T) {
	d := newTestDecoder(t)

	result := d.DecodeMessage("", "")

	if result.MessageType != "UNKNOWN" {
		t.Errorf("Ожидался тип UNKNOWN, получен %s", result.MessageType)
	}
	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}
	if result.Decoded == nil {
		t.Error("Дерево полей не должно быть nil для пустого сообщения")
	}
}

func TestDecodeWithTypeHint(t *testing.T) {
	d := newTestDecoder(t)

	// Явно заданный тип отключает автоопределение
	result := d.DecodeMessage("tid=2", "RRCSetup")

	if result.MessageType != "RRCSetup" {
		t.Errorf("Ожидался тип RRCSetup, получен %s", result.MessageType)
	}
	if result.Compliance != models.ComplianceCompliant {
		t.Errorf("Ожидалось соответствие 3GPP, получено %s (ошибки: %v)",
			result.Compliance, result.Validation.Errors)
	}
}

func TestDecodeUnsupportedTypeHint(t *testing.T) {
	d := newTestDecoder(t)

	// Неизвестный тип уводит на общий путь декодирования
	result := d.DecodeMessage("rnti=0x4601", "FOOBAR")

	if result.MessageType != "FOOBAR" {
		t.Errorf("Ожидался тип FOOBAR, получен %s", result.MessageType)
	}
	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}
	if !result.HasLeaf("rnti") {
		t.Error("Поле rnti должно извлекаться и на общем пути")
	}
}

func TestMACPDUWarning(t *testing.T) {
	d := newTestDecoder(t)

	// MAC PDU без lcid дает предупреждение, но остается валидным
	result := d.DecodeMessage("MAC PDU data", "")

	if result.Compliance != models.ComplianceCompliant {
		t.Errorf("Ожидалось соответствие 3GPP, получено %s (ошибки: %v)",
			result.Compliance, result.Validation.Errors)
	}

	found := false
	for _, warning := range result.Validation.Warnings {
		if strings.Contains(warning, "logical channel ID") {
			found = true
		}
	}
	if !found {
		t.Errorf("Ожидалось предупреждение о lcid, получены: %v", result.Validation.Warnings)
	}
}

func TestGenerationRules5G(t *testing.T) {
	d := newTestDecoder(t)

	// 5G NR допускает SN до 4095
	result := d.DecodeMessage("RLC DATA sn=5000", "")

	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}

	found := false
	for _, decodeErr := range result.Validation.Errors {
		if strings.Contains(decodeErr, "5G NR RLC Sequence Number") {
			found = true
		}
	}
	if !found {
		t.Errorf("Ожидалась ошибка диапазона SN для 5G, получены: %v", result.Validation.Errors)
	}
}

func TestGenerationRulesLTE(t *testing.T) {
	d := newTestDecoder(t)

	// LTE допускает SN только до 1023
	result := d.DecodeMessage("LTE RLC DATA sn=1500", "LTE_RLCDATA")

	if result.Compliance != models.ComplianceNonCompliant {
		t.Errorf("Ожидалось NON_COMPLIANT, получено %s", result.Compliance)
	}

	found := false
	for _, decodeErr := range result.Validation.Errors {
		if strings.Contains(decodeErr, "LTE RLC Sequence Number") {
			found = true
		}
	}
	if !found {
		t.Errorf("Ожидалась ошибка диапазона SN для LTE, получены: %v", result.Validation.Errors)
	}
}

func TestAddCustomTemplate(t *testing.T) {
	d := newTestDecoder(t)

	template := &MessageTemplate{
		MessageType: "CustomMessage",
		Protocol:    models.ProtocolPDCP,
		Version:     "5G",
		Fields: map[string]*FieldSchema{
			"customPDU": branch(map[string]*FieldSchema{
				"pdcpSequenceNumber": intField(0, 32767),
			}),
		},
	}

	if err := d.AddTemplate(template); err != nil {
		t.Fatalf("Ошибка регистрации шаблона: %v", err)
	}

	result := d.DecodeMessage("pdcp_sn=42", "CustomMessage")
	if result.Compliance != models.ComplianceCompliant {
		t.Errorf("Ожидалось соответствие 3GPP, получено %s (ошибки: %v)",
			result.Compliance, result.Validation.Errors)
	}

	supported := d.SupportedMessageTypes()
	found := false
	for _, messageType := range supported {
		if messageType == "CustomMessage" {
			found = true
		}
	}
	if !found {
		t.Error("Пользовательский шаблон не появился в списке поддерживаемых типов")
	}
}

func TestAddInvalidTemplate(t *testing.T) {
	d := newTestDecoder(t)

	// Шаблон без версии не должен регистрироваться
	template := &MessageTemplate{
		MessageType: "Broken",
		Protocol:    models.ProtocolRRC,
		Fields: map[string]*FieldSchema{
			"x": intField(0, 1),
		},
	}
	if err := d.AddTemplate(template); err == nil {
		t.Error("Ожидалась ошибка регистрации шаблона без версии")
	}

	// Неизвестный тип листового поля также отклоняется
	template = &MessageTemplate{
		MessageType: "Broken2",
		Protocol:    models.ProtocolRRC,
		Version:     "5G",
		Fields: map[string]*FieldSchema{
			"x": {Kind: models.FieldKind("float")},
		},
	}
	if err := d.AddTemplate(template); err == nil {
		t.Error("Ожидалась ошибка регистрации поля неизвестного типа")
	}
}

func TestAddInvalidIEDefinition(t *testing.T) {
	d := newTestDecoder(t)

	lo, hi := int64(10), int64(5)
	ie := &IEDefinition{
		Name: "brokenIE",
		Kind: models.FieldKindInteger,
		Min:  &lo,
		Max:  &hi,
	}
	if err := d.AddIEDefinition(ie); err == nil {
		t.Error("Ожидалась ошибка регистрации IE с вывернутым диапазоном")
	}
}

func TestExtractorFields(t *testing.T) {
	e := NewExtractor()

	fields := e.Extract("PDSCH: rnti=0x4601 h_id=2 mcs=10 mod=64QAM rv=0 tbs=8192")

	expected := map[string]string{
		"rnti":               "4601",
		"harqProcessId":      "2",
		"mcsIndex":           "10",
		"modulationScheme":   "64QAM",
		"redundancyVersion":  "0",
		"transportBlockSize": "8192",
	}
	for name, want := range expected {
		if fields[name] != want {
			t.Errorf("Поле %s: ожидалось %q, получено %q", name, want, fields[name])
		}
	}
}

func TestExtractorRegister(t *testing.T) {
	e := NewExtractor()

	if err := e.Register("slotNumber", `slot[=:\s]*(\d+)`); err != nil {
		t.Fatalf("Ошибка регистрации шаблона: %v", err)
	}
	fields := e.Extract("PDSCH slot=7")
	if fields["slotNumber"] != "7" {
		t.Errorf("Ожидался slotNumber = 7, получен %q", fields["slotNumber"])
	}

	// Шаблон без группы захвата отклоняется
	if err := e.Register("bad", `nocapture`); err == nil {
		t.Error("Ожидалась ошибка для шаблона без группы захвата")
	}
}
