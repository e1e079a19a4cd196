// filename: internal/common/pg/templates.go
package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sigscope/sigscope/internal/decoder"
)

// TemplateStore хранит пользовательские шаблоны сообщений и определения IE
// в PostgreSQL. Встроенные шаблоны в базу не попадают.
type TemplateStore struct {
	client *Client
}

// NewTemplateStore создает хранилище шаблонов // v1.0
func NewTemplateStore(client *Client) *TemplateStore {
	return &TemplateStore{client: client}
}

// EnsureSchema создает таблицы если они не существуют // v1.0
func (s *TemplateStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS message_templates (
			message_type TEXT PRIMARY KEY,
			protocol TEXT NOT NULL,
			version TEXT NOT NULL,
			fields JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ie_definitions (
			name TEXT PRIMARY KEY,
			definition JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, query := range queries {
		if _, err := s.client.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to ensure template schema: %w", err)
		}
	}
	return nil
}

// SaveTemplate сохраняет пользовательский шаблон сообщения // v1.0
func (s *TemplateStore) SaveTemplate(ctx context.Context, template *decoder.MessageTemplate) error {
	fields, err := json.Marshal(template.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal template fields: %w", err)
	}

	query := `
		INSERT INTO message_templates (message_type, protocol, version, fields)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_type) DO UPDATE
		SET protocol = EXCLUDED.protocol,
		    version = EXCLUDED.version,
		    fields = EXCLUDED.fields,
		    updated_at = now()
	`
	if _, err := s.client.Exec(ctx, query,
		template.MessageType, string(template.Protocol), template.Version, fields); err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.MessageType, err)
	}
	return nil
}

// LoadTemplates загружает все сохраненные шаблоны // v1.0
func (s *TemplateStore) LoadTemplates(ctx context.Context) ([]*decoder.MessageTemplate, error) {
	rows, err := s.client.Query(ctx,
		`SELECT message_type, protocol, version, fields FROM message_templates ORDER BY message_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*decoder.MessageTemplate
	for rows.Next() {
		var template decoder.MessageTemplate
		var fields []byte
		if err := rows.Scan(&template.MessageType, &template.Protocol, &template.Version, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		if err := json.Unmarshal(fields, &template.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields for %s: %w", template.MessageType, err)
		}
		templates = append(templates, &template)
	}
	return templates, rows.Err()
}

// SaveIEDefinition сохраняет пользовательское определение IE // v1.0
func (s *TemplateStore) SaveIEDefinition(ctx context.Context, ie *decoder.IEDefinition) error {
	definition, err := json.Marshal(ie)
	if err != nil {
		return fmt.Errorf("failed to marshal IE definition: %w", err)
	}

	query := `
		INSERT INTO ie_definitions (name, definition)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET definition = EXCLUDED.definition,
		    updated_at = now()
	`
	if _, err := s.client.Exec(ctx, query, ie.Name, definition); err != nil {
		return fmt.Errorf("failed to save IE definition %s: %w", ie.Name, err)
	}
	return nil
}

// LoadIEDefinitions загружает все сохраненные определения IE // v1.0
func (s *TemplateStore) LoadIEDefinitions(ctx context.Context) ([]*decoder.IEDefinition, error) {
	rows, err := s.client.Query(ctx, `SELECT definition FROM ie_definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query IE definitions: %w", err)
	}
	defer rows.Close()

	var definitions []*decoder.IEDefinition
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan IE definition: %w", err)
		}
		var ie decoder.IEDefinition
		if err := json.Unmarshal(raw, &ie); err != nil {
			return nil, fmt.Errorf("failed to unmarshal IE definition: %w", err)
		}
		definitions = append(definitions, &ie)
	}
	return definitions, rows.Err()
}
