// filename: internal/decoder/template.go
package decoder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sigscope/sigscope/internal/models"
)

// FieldSchema представляет определение одного поля шаблона. Узел с Fields
// является веткой (sequence/choice структура), остальные узлы являются
// листьями с примитивным типом и ограничениями.
type FieldSchema struct {
	Kind     models.FieldKind        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Min      *int64                  `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *int64                  `json:"max,omitempty" yaml:"max,omitempty"`
	Values   []string                `json:"values,omitempty" yaml:"values,omitempty"`
	Options  []string                `json:"options,omitempty" yaml:"options,omitempty"`
	Length   int                     `json:"length,omitempty" yaml:"length,omitempty"`
	Optional bool                    `json:"optional,omitempty" yaml:"optional,omitempty"`
	Fields   map[string]*FieldSchema `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IsBranch проверяет, является ли узел веткой // v1.0
func (s *FieldSchema) IsBranch() bool {
	return len(s.Fields) > 0
}

// MessageTemplate представляет декларативное описание одного типа сообщения
// согласно спецификациям 3GPP
type MessageTemplate struct {
	MessageType string                  `json:"message_type" yaml:"message_type" validate:"required"`
	Protocol    models.Protocol         `json:"protocol" yaml:"protocol" validate:"required"`
	Version     string                  `json:"version" yaml:"version" validate:"required"`
	Fields      map[string]*FieldSchema `json:"fields" yaml:"fields" validate:"required"`
}

// IEDefinition представляет определение информационного элемента 3GPP
type IEDefinition struct {
	Name        string           `json:"name" yaml:"name" validate:"required"`
	Kind        models.FieldKind `json:"kind" yaml:"kind" validate:"required"`
	Description string           `json:"description" yaml:"description"`
	Min         *int64           `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *int64           `json:"max,omitempty" yaml:"max,omitempty"`
	Values      []string         `json:"values,omitempty" yaml:"values,omitempty"`
	Options     []string         `json:"options,omitempty" yaml:"options,omitempty"`
	Length      int              `json:"length,omitempty" yaml:"length,omitempty"`
}

// validate валидатор структур для регистрации шаблонов и IE
var validate = validator.New()

// validFieldKinds допустимые типы листовых полей
var validFieldKinds = map[models.FieldKind]bool{
	models.FieldKindInteger:     true,
	models.FieldKindEnum:        true,
	models.FieldKindBitString:   true,
	models.FieldKindOctetString: true,
	models.FieldKindBCDString:   true,
	models.FieldKindSequence:    true,
	models.FieldKindChoice:      true,
}

// validateSchema рекурсивно проверяет дерево полей шаблона // v1.0
func validateSchema(name string, schema *FieldSchema) error {
	if schema == nil {
		return fmt.Errorf("field %s: schema is nil", name)
	}
	if schema.IsBranch() {
		for childName, child := range schema.Fields {
			if err := validateSchema(name+"."+childName, child); err != nil {
				return err
			}
		}
		return nil
	}
	if !validFieldKinds[schema.Kind] {
		return fmt.Errorf("field %s: unknown field kind %q", name, schema.Kind)
	}
	if schema.Min != nil && schema.Max != nil && *schema.Min > *schema.Max {
		return fmt.Errorf("field %s: range lower bound exceeds upper bound", name)
	}
	if schema.Kind == models.FieldKindEnum && len(schema.Values) == 0 {
		return fmt.Errorf("field %s: enum field requires allowed values", name)
	}
	return nil
}

// TemplateRegistry представляет реестр шаблонов сообщений. Регистрация
// только аддитивная, существующие записи не изменяются.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]*MessageTemplate
}

// NewTemplateRegistry создает новый реестр шаблонов // v1.0
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]*MessageTemplate),
	}
}

// Register регистрирует шаблон сообщения // v1.0
func (r *TemplateRegistry) Register(template *MessageTemplate) error {
	if err := validate.Struct(template); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}

	for fieldName, schema := range template.Fields {
		if err := validateSchema(fieldName, schema); err != nil {
			return fmt.Errorf("invalid template %s: %w", template.MessageType, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[template.MessageType] = template
	return nil
}

// Get возвращает шаблон по типу сообщения // v1.0
func (r *TemplateRegistry) Get(messageType string) (*MessageTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	template, exists := r.templates[messageType]
	return template, exists
}

// Types возвращает отсортированный список поддерживаемых типов // v1.0
func (r *TemplateRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.templates))
	for messageType := range r.templates {
		types = append(types, messageType)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных шаблонов // v1.0
func (r *TemplateRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// IERegistry представляет реестр определений информационных элементов
type IERegistry struct {
	mu  sync.RWMutex
	ies map[string]*IEDefinition
}

// NewIERegistry создает новый реестр IE // v1.0
func NewIERegistry() *IERegistry {
	return &IERegistry{
		ies: make(map[string]*IEDefinition),
	}
}

// Register регистрирует определение IE // v1.0
func (r *IERegistry) Register(ie *IEDefinition) error {
	if err := validate.Struct(ie); err != nil {
		return fmt.Errorf("invalid IE definition: %w", err)
	}
	if !validFieldKinds[ie.Kind] {
		return fmt.Errorf("invalid IE definition %s: unknown field kind %q", ie.Name, ie.Kind)
	}
	if ie.Min != nil && ie.Max != nil && *ie.Min > *ie.Max {
		return fmt.Errorf("invalid IE definition %s: range lower bound exceeds upper bound", ie.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ies[ie.Name] = ie
	return nil
}

// Get возвращает определение IE по имени // v1.0
func (r *IERegistry) Get(name string) (*IEDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ie, exists := r.ies[name]
	return ie, exists
}

// All возвращает копию всех определений IE // v1.0
func (r *IERegistry) All() map[string]*IEDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*IEDefinition, len(r.ies))
	for name, ie := range r.ies {
		out[name] = ie
	}
	return out
}
