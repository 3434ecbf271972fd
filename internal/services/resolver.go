package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"budget/internal/core"
)

// CategoryResolver maps an aggregator category hint to one of the user's
// category names. Resolution never fails an import: unmapped hints land in
// the fallback category.
type CategoryResolver interface {
	Resolve(hint string) string
}

// TableResolver resolves hints through a case-insensitive lookup table.
type TableResolver struct {
	table    map[string]string
	fallback string
}

// NewTableResolver builds a resolver over the given hint->name table.
// Keys are matched case-insensitively.
func NewTableResolver(table map[string]string, fallback string) *TableResolver {
	normalized := make(map[string]string, len(table))
	for hint, name := range table {
		normalized[strings.ToLower(strings.TrimSpace(hint))] = name
	}
	return &TableResolver{table: normalized, fallback: fallback}
}

// LoadTableResolver reads a YAML mapping file of the form:
//
//	mappings:
//	  "Food and Drink": Groceries
//	  "Travel": Transportation
//
// A missing path yields a resolver that maps everything to the fallback.
func LoadTableResolver(path, fallback string) (*TableResolver, error) {
	if path == "" {
		return NewTableResolver(nil, fallback), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTableResolver(nil, fallback), nil
		}
		return nil, fmt.Errorf("read category map %s: %w", path, err)
	}

	var file struct {
		Mappings map[string]string `yaml:"mappings"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse category map %s: %w", path, err)
	}

	return NewTableResolver(file.Mappings, fallback), nil
}

// Resolve returns the mapped category name for a hint, or the fallback when
// the hint is empty or unknown.
func (r *TableResolver) Resolve(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return r.fallback
	}
	if name, ok := r.table[hint]; ok {
		return name
	}
	return r.fallback
}

// DefaultResolver returns a resolver with no mapping table: every hint
// falls through to the fallback seed category.
func DefaultResolver() *TableResolver {
	return NewTableResolver(nil, core.FallbackCategoryName)
}
