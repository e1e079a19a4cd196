// filename: internal/decoder/extract.go
package decoder

import (
	"fmt"
	"regexp"
)

// fieldPattern связывает имя поля с шаблоном извлечения
type fieldPattern struct {
	name    string
	pattern *regexp.Regexp
}

// Extractor извлекает известные поля из текстового представления сообщения.
// Порядок шаблонов фиксирован, извлечение детерминировано. Извлечение
// отделено от разбора по шаблонам: при появлении бинарного источника
// заменяется только этот слой.
type Extractor struct {
	patterns []fieldPattern
}

// NewExtractor создает экстрактор со встроенным набором полей // v1.0
func NewExtractor() *Extractor {
	e := &Extractor{}

	// Встроенные шаблоны извлечения общих полей
	e.mustRegister("rnti", `rnti[=:\s]*(?:0x)?([0-9a-fA-F]+)`)
	e.mustRegister("ueId", `ue[=:\s]*(\d+)`)
	e.mustRegister("cellId", `cell[_\s]*id[=:\s]*(\d+)`)
	e.mustRegister("harqProcessId", `h_id[=:\s]*(\d+)`)
	e.mustRegister("mcsIndex", `mcs[=:\s]*(\d+)`)
	e.mustRegister("modulationScheme", `mod[=:\s]*(\w+)`)
	e.mustRegister("redundancyVersion", `rv[=:\s]*(\d+)`)
	e.mustRegister("transportBlockSize", `tbs[=:\s]*(\d+)`)
	e.mustRegister("logicalChannelId", `lcid[=:\s]*(\d+)`)
	e.mustRegister("sequenceNumber", `sn[=:\s]*(\d+)`)
	e.mustRegister("pdcpSequenceNumber", `pdcp_sn[=:\s]*(\d+)`)
	e.mustRegister("rrcTransactionId", `tid[=:\s]*(-?\d+)`)

	return e
}

// Register регистрирует дополнительный шаблон извлечения. Шаблон должен
// содержать ровно одну группу захвата. // v1.0
func (e *Extractor) Register(name, expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid extraction pattern for %s: %w", name, err)
	}
	if re.NumSubexp() != 1 {
		return fmt.Errorf("extraction pattern for %s must have exactly one capture group", name)
	}
	e.patterns = append(e.patterns, fieldPattern{name: name, pattern: re})
	return nil
}

// mustRegister регистрирует встроенный шаблон // v1.0
func (e *Extractor) mustRegister(name, expr string) {
	if err := e.Register(name, expr); err != nil {
		panic(err)
	}
}

// Extract извлекает все известные поля из сырого сообщения. Возвращает
// набор строковых значений, типизация происходит при разборе. // v1.0
func (e *Extractor) Extract(rawMessage string) map[string]string {
	fields := make(map[string]string)
	for _, fp := range e.patterns {
		match := fp.pattern.FindStringSubmatch(rawMessage)
		if match != nil {
			fields[fp.name] = match[1]
		}
	}
	return fields
}

// FieldNames возвращает имена извлекаемых полей в порядке регистрации // v1.0
func (e *Extractor) FieldNames() []string {
	names := make([]string, 0, len(e.patterns))
	for _, fp := range e.patterns {
		names = append(names, fp.name)
	}
	return names
}
