package locale

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"purpose-ideas/internal/domain"
)

//go:embed translations.yaml
var defaultTranslations []byte

// Table maps a locale to its key -> text entries.
type Table map[domain.Locale]map[string]string

func DefaultTable() Table {
	table, err := ParseTable(defaultTranslations)
	if err != nil {
		panic(fmt.Sprintf("embedded translations: %v", err))
	}
	return table
}

func ParseTable(data []byte) (Table, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing translations: %w", err)
	}

	table := make(Table, len(raw))
	for key, entries := range raw {
		loc, err := domain.ParseLocale(key)
		if err != nil {
			return nil, err
		}
		table[loc] = entries
	}
	return table, nil
}

// LoadTable reads a translation file and layers it over the embedded
// defaults. Keys missing from the file keep their default text.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translations file: %w", err)
	}

	override, err := ParseTable(data)
	if err != nil {
		return nil, err
	}

	table := DefaultTable()
	for loc, entries := range override {
		if table[loc] == nil {
			table[loc] = make(map[string]string, len(entries))
		}
		for k, v := range entries {
			table[loc][k] = v
		}
	}
	return table, nil
}
