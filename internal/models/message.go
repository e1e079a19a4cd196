// internal/models/message.go
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Protocol представляет протокольный уровень 3GPP стека
type Protocol string

const (
	ProtocolRRC     Protocol = "RRC"
	ProtocolNAS     Protocol = "NAS"
	ProtocolMAC     Protocol = "MAC"
	ProtocolRLC     Protocol = "RLC"
	ProtocolPDCP    Protocol = "PDCP"
	ProtocolPHY     Protocol = "PHY"
	ProtocolUnknown Protocol = "UNKNOWN"
)

// Compliance представляет результат проверки сообщения на соответствие 3GPP
type Compliance string

const (
	ComplianceCompliant    Compliance = "3GPP_COMPLIANT"
	ComplianceNonCompliant Compliance = "NON_COMPLIANT"
	ComplianceError        Compliance = "ERROR"
)

// FieldKind представляет примитивный тип поля согласно ASN.1 определениям 3GPP
type FieldKind string

const (
	FieldKindInteger     FieldKind = "integer"
	FieldKindEnum        FieldKind = "enum"
	FieldKindBitString   FieldKind = "bitstring"
	FieldKindOctetString FieldKind = "octetstring"
	FieldKindBCDString   FieldKind = "bcdstring"
	FieldKindSequence    FieldKind = "sequence"
	FieldKindChoice      FieldKind = "choice"
)

// FieldValue представляет типизированное значение поля (tagged variant) // v1.0
type FieldValue struct {
	Kind FieldKind `json:"kind"`
	Int  int64     `json:"-"`
	Str  string    `json:"-"`
}

// NewIntValue создает целочисленное значение поля // v1.0
func NewIntValue(v int64) *FieldValue {
	return &FieldValue{Kind: FieldKindInteger, Int: v}
}

// NewStringValue создает строковое значение поля заданного типа // v1.0
func NewStringValue(kind FieldKind, v string) *FieldValue {
	return &FieldValue{Kind: kind, Str: v}
}

// IsInt проверяет, является ли значение целочисленным. Поле целочисленного
// типа может нести сырое строковое значение, если разбор не удался. // v1.0
func (v *FieldValue) IsInt() bool {
	return v.Kind == FieldKindInteger && v.Str == ""
}

// String возвращает строковое представление значения // v1.0
func (v *FieldValue) String() string {
	if v.IsInt() {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}

// MarshalJSON сериализует значение как примитив JSON // v1.0
func (v *FieldValue) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind  FieldKind   `json:"kind"`
		Value interface{} `json:"value"`
	}
	if v.IsInt() {
		return json.Marshal(wire{Kind: v.Kind, Value: v.Int})
	}
	return json.Marshal(wire{Kind: v.Kind, Value: v.Str})
}

// UnmarshalJSON десериализует значение поля // v1.0
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var wire struct {
		Kind  FieldKind   `json:"kind"`
		Value interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	v.Kind = wire.Kind
	switch val := wire.Value.(type) {
	case float64:
		v.Int = int64(val)
	case string:
		v.Str = val
	case nil:
	default:
		return fmt.Errorf("unsupported field value type %T", wire.Value)
	}
	return nil
}

// FieldValidation представляет результат валидации одного поля
type FieldValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// FieldNode представляет узел дерева декодированных полей. Лист несет
// значение, ветка (sequence/choice) несет дочерние узлы.
type FieldNode struct {
	Kind        FieldKind             `json:"kind"`
	Value       *FieldValue           `json:"value,omitempty"`
	Children    map[string]*FieldNode `json:"children,omitempty"`
	Description string                `json:"description,omitempty"`
	Valid       bool                  `json:"valid"`
	Validation  *FieldValidation      `json:"validation,omitempty"`
}

// IsLeaf проверяет, является ли узел листом // v1.0
func (n *FieldNode) IsLeaf() bool {
	return n.Children == nil
}

// MessageValidation представляет агрегированный результат валидации сообщения
type MessageValidation struct {
	Valid      bool       `json:"valid"`
	Errors     []string   `json:"errors"`
	Warnings   []string   `json:"warnings"`
	Compliance Compliance `json:"compliance"`
}

// DecodedMessage представляет результат декодирования одного сырого сообщения
type DecodedMessage struct {
	MessageType string                `json:"message_type" validate:"required"`
	Protocol    Protocol              `json:"protocol"`
	Version     string                `json:"version"`
	Decoded     map[string]*FieldNode `json:"decoded"`
	Validation  MessageValidation     `json:"validation"`
	RawMessage  string                `json:"raw_message"`
	Timestamp   time.Time             `json:"timestamp"`
	Compliance  Compliance            `json:"compliance"`
}

// ToJSON возвращает декодированное сообщение в JSON формате // v1.0
func (m *DecodedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// IsCompliant проверяет соответствие сообщения 3GPP // v1.0
func (m *DecodedMessage) IsCompliant() bool {
	return m.Compliance == ComplianceCompliant
}

// FindLeaf ищет лист с заданным именем по всему дереву полей // v1.0
func (m *DecodedMessage) FindLeaf(name string) *FieldNode {
	if m.Decoded == nil {
		return nil
	}
	return findLeaf(m.Decoded, name)
}

// findLeaf рекурсивно ищет лист в дереве полей // v1.0
func findLeaf(nodes map[string]*FieldNode, name string) *FieldNode {
	if node, ok := nodes[name]; ok && node != nil && node.IsLeaf() {
		return node
	}
	for _, node := range nodes {
		if node == nil || node.IsLeaf() {
			continue
		}
		if found := findLeaf(node.Children, name); found != nil {
			return found
		}
	}
	return nil
}

// LeafInt возвращает целочисленное значение листа по имени // v1.0
func (m *DecodedMessage) LeafInt(name string) (int64, bool) {
	leaf := m.FindLeaf(name)
	if leaf == nil || leaf.Value == nil || !leaf.Value.IsInt() {
		return 0, false
	}
	return leaf.Value.Int, true
}

// LeafString возвращает строковое представление значения листа по имени // v1.0
func (m *DecodedMessage) LeafString(name string) (string, bool) {
	leaf := m.FindLeaf(name)
	if leaf == nil || leaf.Value == nil {
		return "", false
	}
	return leaf.Value.String(), true
}

// HasLeaf проверяет наличие листа с ненулевым значением // v1.0
func (m *DecodedMessage) HasLeaf(name string) bool {
	leaf := m.FindLeaf(name)
	return leaf != nil && leaf.Value != nil
}

// CountFields возвращает количество непустых узлов дерева полей // v1.0
func (m *DecodedMessage) CountFields() int {
	if m.Decoded == nil {
		return 0
	}
	return countNodes(m.Decoded)
}

// countNodes рекурсивно считает непустые узлы // v1.0
func countNodes(nodes map[string]*FieldNode) int {
	count := 0
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if node.IsLeaf() {
			if node.Value != nil {
				count++
			}
			continue
		}
		count++
		count += countNodes(node.Children)
	}
	return count
}

// CountNestedStructures возвращает количество вложенных структур // v1.0
func (m *DecodedMessage) CountNestedStructures() int {
	if m.Decoded == nil {
		return 0
	}
	return countBranches(m.Decoded)
}

// countBranches рекурсивно считает ветки дерева // v1.0
func countBranches(nodes map[string]*FieldNode) int {
	count := 0
	for _, node := range nodes {
		if node == nil || node.IsLeaf() {
			continue
		}
		count++
		count += countBranches(node.Children)
	}
	return count
}
