// filename: internal/decoder/decoder.go
package decoder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/models"
)

var (
	bitstringRe   = regexp.MustCompile(`^[01]+$`)
	octetstringRe = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	bcdstringRe   = regexp.MustCompile(`^[0-9]+$`)
)

// Decoder декодирует сообщения 3GPP по декларативным шаблонам.
// Декодирование тотально: любой вход дает результат, отказ выражается
// через compliance = ERROR, а не через возврат ошибки.
type Decoder struct {
	templates *TemplateRegistry
	ies       *IERegistry
	extractor *Extractor
	logger    *logging.Logger
}

// NewDecoder создает новый декодер со встроенными шаблонами и IE // v1.0
func NewDecoder(logger *logging.Logger) *Decoder {
	templates := NewTemplateRegistry()
	ies := NewIERegistry()
	registerBuiltins(templates, ies)

	return &Decoder{
		templates: templates,
		ies:       ies,
		extractor: NewExtractor(),
		logger:    logger,
	}
}

// DecodeMessage декодирует одно сырое сообщение. Если messageType пуст,
// тип определяется по таблице обнаружения. // v1.0
func (d *Decoder) DecodeMessage(rawMessage, messageType string) (result *models.DecodedMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", r).Error("Ошибка декодирования сообщения")
			result = d.errorResponse(rawMessage, fmt.Errorf("%v", r))
		}
	}()

	// Определяем тип сообщения, если он не задан
	if messageType == "" {
		messageType = DetectMessageType(rawMessage)
	}

	// Получаем шаблон сообщения
	template, exists := d.templates.Get(messageType)
	if !exists {
		return d.decodeGeneric(rawMessage, messageType)
	}

	// Извлекаем базовые поля и разбираем по структуре шаблона
	basicFields := d.extractor.Extract(rawMessage)
	decoded := d.parseSchema(template.Fields, basicFields)
	d.mergeBasicFields(decoded, basicFields)

	// Валидируем декодированное сообщение
	validation := d.validateMessage(decoded, template)

	compliance := models.ComplianceCompliant
	if !validation.Valid {
		compliance = models.ComplianceNonCompliant
	}
	validation.Compliance = compliance

	d.logger.WithMessage(messageType, string(template.Protocol)).Debug("Сообщение декодировано")

	return &models.DecodedMessage{
		MessageType: messageType,
		Protocol:    template.Protocol,
		Version:     template.Version,
		Decoded:     decoded,
		Validation:  validation,
		RawMessage:  rawMessage,
		Timestamp:   time.Now(),
		Compliance:  compliance,
	}
}

// parseSchema рекурсивно разбирает структуру шаблона // v1.0
func (d *Decoder) parseSchema(fields map[string]*FieldSchema, basicFields map[string]string) map[string]*models.FieldNode {
	result := make(map[string]*models.FieldNode, len(fields))
	for name, schema := range fields {
		if schema.IsBranch() {
			result[name] = &models.FieldNode{
				Kind:     models.FieldKindSequence,
				Children: d.parseSchema(schema.Fields, basicFields),
				Valid:    true,
			}
			continue
		}
		result[name] = d.parseLeaf(name, schema, basicFields)
	}
	return result
}

// parseLeaf разбирает листовое поле. Определение IE по имени поля имеет
// приоритет над ограничениями шаблона. // v1.0
func (d *Decoder) parseLeaf(name string, schema *FieldSchema, basicFields map[string]string) *models.FieldNode {
	kind := schema.Kind
	min, max := schema.Min, schema.Max
	values := schema.Values
	length := schema.Length
	description := ""

	if ieDef, exists := d.ies.Get(name); exists {
		kind = ieDef.Kind
		min, max = ieDef.Min, ieDef.Max
		values = ieDef.Values
		length = ieDef.Length
		description = ieDef.Description
	}

	raw, present := basicFields[name]
	if !present {
		// Поле не извлечено: лист без значения
		return &models.FieldNode{Kind: kind, Description: description, Valid: true}
	}

	value, validation := validateLeafValue(raw, kind, min, max, values, length)
	return &models.FieldNode{
		Kind:        kind,
		Value:       value,
		Description: description,
		Valid:       validation.Valid,
		Validation:  validation,
	}
}

// mergeBasicFields добавляет извлеченные поля, отсутствующие в шаблоне,
// на верхний уровень дерева // v1.0
func (d *Decoder) mergeBasicFields(decoded map[string]*models.FieldNode, basicFields map[string]string) {
	for _, name := range d.extractor.FieldNames() {
		raw, present := basicFields[name]
		if !present {
			continue
		}
		if _, exists := decoded[name]; exists {
			continue
		}

		ieDef, known := d.ies.Get(name)
		if !known {
			decoded[name] = &models.FieldNode{
				Kind:  models.FieldKindOctetString,
				Value: models.NewStringValue(models.FieldKindOctetString, raw),
				Valid: true,
			}
			continue
		}

		value, validation := validateLeafValue(raw, ieDef.Kind, ieDef.Min, ieDef.Max, ieDef.Values, ieDef.Length)
		decoded[name] = &models.FieldNode{
			Kind:        ieDef.Kind,
			Value:       value,
			Description: ieDef.Description,
			Valid:       validation.Valid,
			Validation:  validation,
		}
	}
}

// validateLeafValue типизирует и валидирует сырое значение согласно
// определению 3GPP // v1.0
func validateLeafValue(raw string, kind models.FieldKind, min, max *int64, values []string, length int) (*models.FieldValue, *models.FieldValidation) {
	validation := &models.FieldValidation{Valid: true, Errors: []string{}, Warnings: []string{}}

	var value *models.FieldValue
	switch kind {
	case models.FieldKindInteger:
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			value = models.NewStringValue(models.FieldKindInteger, raw)
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Expected integer, got %q", raw))
			break
		}
		value = models.NewIntValue(parsed)
		if min != nil && parsed < *min || max != nil && parsed > *max {
			validation.Valid = false
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("Value %d out of range [%d, %d]", parsed, rangeBound(min, 0), rangeBound(max, 0)))
		}

	case models.FieldKindEnum:
		value = models.NewStringValue(kind, raw)
		if !containsString(values, raw) {
			validation.Valid = false
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("Value %s not in allowed values: %s", raw, strings.Join(values, ", ")))
		}

	case models.FieldKindBitString:
		value = models.NewStringValue(kind, raw)
		if !bitstringRe.MatchString(raw) {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Expected bitstring, got %q", raw))
		} else if length > 0 && len(raw) != length {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Expected %d bits, got %d", length, len(raw)))
		}

	case models.FieldKindOctetString:
		value = models.NewStringValue(kind, raw)
		if !octetstringRe.MatchString(raw) {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Expected hex string, got %q", raw))
		}

	case models.FieldKindBCDString:
		value = models.NewStringValue(kind, raw)
		if !bcdstringRe.MatchString(raw) {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Expected BCD digits, got %q", raw))
		}

	default:
		// sequence и choice не несут ограничений на текстовое значение
		value = models.NewStringValue(kind, raw)
	}

	return value, validation
}

// rangeBound возвращает значение границы диапазона // v1.0
func rangeBound(bound *int64, fallback int64) int64 {
	if bound == nil {
		return fallback
	}
	return *bound
}

// containsString проверяет наличие строки в списке // v1.0
func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// validateMessage валидирует декодированное сообщение целиком // v1.0
func (d *Decoder) validateMessage(decoded map[string]*models.FieldNode, template *MessageTemplate) models.MessageValidation {
	validation := models.MessageValidation{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	// Проверяем обязательные поля верхнего уровня
	d.checkRequiredFields(decoded, template, &validation)

	// Агрегируем ошибки валидации полей
	collectFieldIssues("", decoded, &validation)

	// Проверяем связи между полями
	d.checkFieldRelationships(decoded, &validation)

	// Проверяем правила протокольного уровня
	d.checkProtocolRules(decoded, template.Protocol, &validation)

	// Проверяем правила поколения (4G против 5G)
	d.checkGenerationRules(decoded, template.Version, &validation)

	return validation
}

// checkRequiredFields проверяет обязательные поля верхнего уровня // v1.0
func (d *Decoder) checkRequiredFields(decoded map[string]*models.FieldNode, template *MessageTemplate, validation *models.MessageValidation) {
	for name, schema := range template.Fields {
		if schema.Optional {
			continue
		}
		node := decoded[name]
		if node == nil || (node.IsLeaf() && node.Value == nil) {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("Required field %s is missing", name))
		}
	}
}

// collectFieldIssues рекурсивно собирает ошибки и предупреждения полей // v1.0
func collectFieldIssues(prefix string, nodes map[string]*models.FieldNode, validation *models.MessageValidation) {
	for name, node := range nodes {
		if node == nil {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if !node.IsLeaf() {
			collectFieldIssues(path, node.Children, validation)
			continue
		}
		if node.Validation == nil {
			continue
		}
		for _, fieldErr := range node.Validation.Errors {
			validation.Valid = false
			validation.Errors = append(validation.Errors, fmt.Sprintf("%s: %s", path, fieldErr))
		}
		for _, fieldWarn := range node.Validation.Warnings {
			validation.Warnings = append(validation.Warnings, fmt.Sprintf("%s: %s", path, fieldWarn))
		}
	}
}

// checkFieldRelationships проверяет связи между полями // v1.0
func (d *Decoder) checkFieldRelationships(decoded map[string]*models.FieldNode, validation *models.MessageValidation) {
	if tid, ok := leafInt(decoded, "rrcTransactionId"); ok {
		if tid < 0 || tid > 3 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "RRC Transaction ID must be in range [0, 3]")
		}
	}
}

// checkProtocolRules проверяет правила протокольного уровня // v1.0
func (d *Decoder) checkProtocolRules(decoded map[string]*models.FieldNode, protocol models.Protocol, validation *models.MessageValidation) {
	switch protocol {
	case models.ProtocolRRC:
		if !hasField(decoded, "rrcTransactionId") {
			validation.Warnings = append(validation.Warnings, "RRC message should have transaction ID")
		}
	case models.ProtocolNAS:
		if !hasField(decoded, "ngKSI") {
			validation.Warnings = append(validation.Warnings, "NAS message should have security context")
		}
	case models.ProtocolMAC:
		if !hasField(decoded, "logicalChannelId") {
			validation.Warnings = append(validation.Warnings, "MAC PDU should have logical channel ID")
		}
	case models.ProtocolRLC:
		if !hasField(decoded, "sequenceNumber") {
			validation.Warnings = append(validation.Warnings, "RLC data should have sequence number")
		}
	}
}

// checkGenerationRules проверяет правила поколения 4G/5G // v1.0
func (d *Decoder) checkGenerationRules(decoded map[string]*models.FieldNode, version string, validation *models.MessageValidation) {
	switch version {
	case "4G":
		if harq, ok := leafInt(decoded, "harqProcessId"); ok && harq > 7 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "LTE HARQ Process ID must be in range [0, 7]")
		}
		if sn, ok := leafInt(decoded, "sequenceNumber"); ok && sn > 1023 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "LTE RLC Sequence Number must be in range [0, 1023]")
		}
		if mcs, ok := leafInt(decoded, "mcsIndex"); ok && mcs > 28 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "LTE MCS Index must be in range [0, 28]")
		}
	case "5G":
		if harq, ok := leafInt(decoded, "harqProcessId"); ok && harq > 15 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "5G NR HARQ Process ID must be in range [0, 15]")
		}
		if sn, ok := leafInt(decoded, "sequenceNumber"); ok && sn > 4095 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "5G NR RLC Sequence Number must be in range [0, 4095]")
		}
		if mcs, ok := leafInt(decoded, "mcsIndex"); ok && mcs > 31 {
			validation.Valid = false
			validation.Errors = append(validation.Errors, "5G NR MCS Index must be in range [0, 31]")
		}
	}
}

// leafInt ищет целочисленное значение листа по имени во всем дереве // v1.0
func leafInt(nodes map[string]*models.FieldNode, name string) (int64, bool) {
	node := findNode(nodes, name)
	if node == nil || !node.IsLeaf() || node.Value == nil || !node.Value.IsInt() {
		return 0, false
	}
	return node.Value.Int, true
}

// hasField проверяет наличие узла: ветки либо листа со значением // v1.0
func hasField(nodes map[string]*models.FieldNode, name string) bool {
	node := findNode(nodes, name)
	if node == nil {
		return false
	}
	return !node.IsLeaf() || node.Value != nil
}

// findNode рекурсивно ищет узел по имени // v1.0
func findNode(nodes map[string]*models.FieldNode, name string) *models.FieldNode {
	if node, ok := nodes[name]; ok && node != nil {
		return node
	}
	for _, node := range nodes {
		if node == nil || node.IsLeaf() {
			continue
		}
		if found := findNode(node.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// decodeGeneric декодирует сообщение без шаблона: извлекает известные поля
// и помечает результат как несоответствующий 3GPP. Распознанный тип
// сохраняется, чтобы корреляция по процедурам работала и для сообщений
// без шаблона. // v1.0
func (d *Decoder) decodeGeneric(rawMessage, messageType string) *models.DecodedMessage {
	if messageType == "" {
		messageType = "UNKNOWN"
	}
	protocol, version := genericProtocol(messageType)

	basicFields := d.extractor.Extract(rawMessage)
	decoded := make(map[string]*models.FieldNode)
	d.mergeBasicFields(decoded, basicFields)

	return &models.DecodedMessage{
		MessageType: messageType,
		Protocol:    protocol,
		Version:     version,
		Decoded:     decoded,
		Validation: models.MessageValidation{
			Valid:      false,
			Errors:     []string{"No 3GPP template available for this message type"},
			Warnings:   []string{},
			Compliance: models.ComplianceNonCompliant,
		},
		RawMessage: rawMessage,
		Timestamp:  time.Now(),
		Compliance: models.ComplianceNonCompliant,
	}
}

// errorResponse формирует результат для сбоя декодирования // v1.0
func (d *Decoder) errorResponse(rawMessage string, err error) *models.DecodedMessage {
	return &models.DecodedMessage{
		MessageType: "ERROR",
		Protocol:    models.ProtocolUnknown,
		Version:     "UNKNOWN",
		Decoded:     nil,
		Validation: models.MessageValidation{
			Valid:      false,
			Errors:     []string{err.Error()},
			Warnings:   []string{},
			Compliance: models.ComplianceError,
		},
		RawMessage: rawMessage,
		Timestamp:  time.Now(),
		Compliance: models.ComplianceError,
	}
}

// SupportedMessageTypes возвращает список поддерживаемых типов // v1.0
func (d *Decoder) SupportedMessageTypes() []string {
	return d.templates.Types()
}

// IEDefinitions возвращает определения информационных элементов // v1.0
func (d *Decoder) IEDefinitions() map[string]*IEDefinition {
	return d.ies.All()
}

// AddTemplate регистрирует пользовательский шаблон сообщения // v1.0
func (d *Decoder) AddTemplate(template *MessageTemplate) error {
	return d.templates.Register(template)
}

// AddIEDefinition регистрирует пользовательское определение IE // v1.0
func (d *Decoder) AddIEDefinition(ie *IEDefinition) error {
	return d.ies.Register(ie)
}
