// filename: internal/analyzer/rules.go
package analyzer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	sserrors "github.com/sigscope/sigscope/internal/common/errors"
)

// CorrelationRule описывает известную процедуру как упорядоченную
// последовательность типов сообщений с тайм-аутом на завершение
type CorrelationRule struct {
	Name        string
	Sequence    []string
	Timeout     time.Duration
	Description string
}

// ruleYAML промежуточное представление правила в YAML файле
type ruleYAML struct {
	Name        string   `yaml:"name"`
	Sequence    []string `yaml:"sequence"`
	Timeout     string   `yaml:"timeout"`
	Description string   `yaml:"description"`
}

// UnmarshalYAML десериализует правило, разбирая тайм-аут из строки // v1.0
func (r *CorrelationRule) UnmarshalYAML(value *yaml.Node) error {
	var raw ruleYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	r.Name = raw.Name
	r.Sequence = raw.Sequence
	r.Description = raw.Description

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout for rule %s: %w", raw.Name, err)
		}
		r.Timeout = timeout
	}
	return nil
}

// Validate проверяет корректность правила корреляции // v1.0
func (r *CorrelationRule) Validate() error {
	if r.Name == "" {
		return sserrors.New(sserrors.ErrorCodeRuleInvalid, "rule name is required")
	}
	if len(r.Sequence) < 2 {
		return sserrors.New(sserrors.ErrorCodeRuleInvalid,
			fmt.Sprintf("rule %s: sequence must have at least 2 steps", r.Name))
	}
	for i, step := range r.Sequence {
		if step == "" {
			return sserrors.New(sserrors.ErrorCodeRuleInvalid,
				fmt.Sprintf("rule %s: step %d is empty", r.Name, i+1))
		}
	}
	if r.Timeout <= 0 {
		return sserrors.New(sserrors.ErrorCodeRuleInvalid,
			fmt.Sprintf("rule %s: timeout must be positive", r.Name))
	}
	return nil
}

// BuiltinRules возвращает встроенные правила корреляции процедур // v1.0
func BuiltinRules() []CorrelationRule {
	return []CorrelationRule{
		{
			Name:        "RRC_CONNECTION_ESTABLISHMENT",
			Sequence:    []string{"RRCSetupRequest", "RRCSetup", "RRCSetupComplete"},
			Timeout:     10 * time.Second,
			Description: "RRC Connection Establishment Procedure",
		},
		{
			Name: "NAS_REGISTRATION",
			Sequence: []string{
				"RegistrationRequest", "AuthenticationRequest", "AuthenticationResponse",
				"SecurityModeCommand", "SecurityModeComplete",
				"RegistrationAccept", "RegistrationComplete",
			},
			Timeout:     30 * time.Second,
			Description: "5G NAS Registration Procedure",
		},
		{
			Name:        "DATA_TRANSFER",
			Sequence:    []string{"MACPDU", "RLCDATA", "PDCPPDU"},
			Timeout:     time.Second,
			Description: "Data Transfer Procedure",
		},
		{
			Name:        "HANDOVER",
			Sequence:    []string{"RRCReconfiguration", "RRCReconfigurationComplete"},
			Timeout:     5 * time.Second,
			Description: "RRC Reconfiguration (Handover) Procedure",
		},
	}
}

// rulesFile формат файла правил корреляции
type rulesFile struct {
	Rules []CorrelationRule `yaml:"rules"`
}

// LoadRules загружает правила корреляции из YAML файла. Загруженные правила
// добавляются к встроенным, правило с совпадающим именем замещает
// встроенное. // v1.0
func LoadRules(path string) ([]CorrelationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sserrors.Wrap(err, sserrors.ErrorCodeRuleInvalid, "failed to read rules file")
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, sserrors.Wrap(err, sserrors.ErrorCodeRuleInvalid, "failed to parse rules file")
	}

	for i := range file.Rules {
		if err := file.Rules[i].Validate(); err != nil {
			return nil, err
		}
	}

	return mergeRules(BuiltinRules(), file.Rules), nil
}

// mergeRules объединяет встроенные и загруженные правила // v1.0
func mergeRules(builtin, loaded []CorrelationRule) []CorrelationRule {
	byName := make(map[string]int, len(builtin))
	merged := make([]CorrelationRule, len(builtin))
	copy(merged, builtin)
	for i, rule := range merged {
		byName[rule.Name] = i
	}

	for _, rule := range loaded {
		if idx, exists := byName[rule.Name]; exists {
			merged[idx] = rule
			continue
		}
		byName[rule.Name] = len(merged)
		merged = append(merged, rule)
	}
	return merged
}
