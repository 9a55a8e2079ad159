package rules

import (
	"fmt"
	"strings"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
)

// BuildCatalog returns the built-in rules followed by the custom rules
// declared in cfg.
func BuildCatalog(cfg *config.Config) (*Catalog, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	all := DefaultRules()
	for _, raw := range cfg.Rules {
		compiled, err := compileRule(raw)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", raw.ID, err)
		}
		all = append(all, compiled)
	}

	return NewCatalog(all...)
}

func compileRule(raw config.Rule) (Rule, error) {
	category := ThreatType(strings.TrimSpace(raw.Category))
	if !category.Valid() {
		return Rule{}, fmt.Errorf("unknown category %q", raw.Category)
	}
	severity := Severity(strings.ToLower(strings.TrimSpace(raw.Severity)))
	if !severity.Valid() {
		return Rule{}, fmt.Errorf("unknown severity %q", raw.Severity)
	}

	patterns := make([]Pattern, 0, len(raw.Patterns))
	for i, source := range raw.Patterns {
		if source == "" {
			return Rule{}, fmt.Errorf("pattern %d is empty", i)
		}
		p, err := NewPattern(source)
		if err != nil {
			return Rule{}, fmt.Errorf("pattern %d: %w", i, err)
		}
		patterns = append(patterns, p)
	}

	return Rule{
		ID:       raw.ID,
		Name:     raw.Name,
		Category: category,
		Patterns: patterns,
		Severity: severity,
		Score:    raw.Score,
	}, nil
}
