package rules

import (
	"errors"
	"fmt"
)

// Catalog is an immutable, ordered rule table. It is safe for concurrent use.
type Catalog struct {
	rules []Rule
	byID  map[string]int
}

func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules: make([]Rule, 0, len(rules)),
		byID:  make(map[string]int, len(rules)),
	}
	for _, rule := range rules {
		if err := checkRule(rule); err != nil {
			return nil, err
		}
		if _, exists := c.byID[rule.ID]; exists {
			return nil, fmt.Errorf("rule %s: duplicate id", rule.ID)
		}
		c.byID[rule.ID] = len(c.rules)
		c.rules = append(c.rules, cloneRule(rule))
	}
	return c, nil
}

func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultRules()...)
	if err != nil {
		panic("rules: invalid built-in catalog: " + err.Error())
	}
	return c
}

// ListRules returns rules in declaration order. With no categories it
// returns the whole catalog.
func (c *Catalog) ListRules(categories ...ThreatType) []Rule {
	if c == nil {
		return nil
	}
	if len(categories) == 0 {
		return c.copyRules(func(Rule) bool { return true })
	}
	want := categorySet(categories)
	return c.copyRules(func(r Rule) bool {
		_, ok := want[r.Category]
		return ok
	})
}

// Except returns every rule whose category is not listed.
func (c *Catalog) Except(categories ...ThreatType) []Rule {
	if c == nil {
		return nil
	}
	skip := categorySet(categories)
	return c.copyRules(func(r Rule) bool {
		_, ok := skip[r.Category]
		return !ok
	})
}

func (c *Catalog) Rule(id string) (Rule, bool) {
	if c == nil {
		return Rule{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Rule{}, false
	}
	return cloneRule(c.rules[idx]), true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.rules)
}

func (c *Catalog) copyRules(keep func(Rule) bool) []Rule {
	out := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		if keep(r) {
			out = append(out, cloneRule(r))
		}
	}
	return out
}

func categorySet(categories []ThreatType) map[ThreatType]struct{} {
	set := make(map[ThreatType]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

func cloneRule(r Rule) Rule {
	r.Patterns = append([]Pattern(nil), r.Patterns...)
	return r
}

func checkRule(r Rule) error {
	if r.ID == "" {
		return errors.New("rule id is required")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("rule %s: unknown category %q", r.ID, r.Category)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}
	if r.Score < MinScore || r.Score > MaxScore {
		return fmt.Errorf("rule %s: score %d outside %d..%d", r.ID, r.Score, MinScore, MaxScore)
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("rule %s: at least one pattern is required", r.ID)
	}
	for i, p := range r.Patterns {
		if p.Matcher == nil {
			return fmt.Errorf("rule %s: pattern %d has no matcher", r.ID, i)
		}
	}
	return nil
}

// DefaultRules returns the built-in signature table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "sqli-001",
			Name:     "SQL Injection - Basic",
			Category: ThreatSQLi,
			Severity: SeverityCritical,
			Score:    90,
			Patterns: mustPatterns(
				`(?i)'\s*(or|and)\s*'?\w*'?\s*=\s*'?\w*`,
				`(?i)\b(or|and)\s+\d+\s*=\s*\d+`,
				`(?i);\s*(drop|delete|truncate|insert|update|alter)\s`,
				`(?i)'\s*(--|#|/\*)`,
			),
		},
		{
			ID:       "sqli-002",
			Name:     "SQL Injection - Advanced",
			Category: ThreatSQLiAdvanced,
			Severity: SeverityCritical,
			Score:    95,
			Patterns: mustPatterns(
				`(?i)\bunion\b[\s\S]{0,20}\bselect\b`,
				`(?i)\b(sleep|benchmark|pg_sleep)\s*\(`,
				`(?i)\bwaitfor\s+delay\b`,
				`(?i)\binformation_schema\b`,
				`(?i)\b(load_file|into\s+(out|dump)file)\b`,
			),
		},
		{
			ID:       "xss-001",
			Name:     "XSS - Script Tag",
			Category: ThreatXSS,
			Severity: SeverityHigh,
			Score:    80,
			Patterns: mustPatterns(
				`(?i)<script[^>]*>`,
				`(?i)<\s*/\s*script\s*>`,
				`(?i)<\s*(iframe|object|embed|svg|applet)\b`,
				`(?i)javascript\s*:`,
			),
		},
		{
			ID:       "xss-002",
			Name:     "XSS - Event Handler",
			Category: ThreatXSSEvent,
			Severity: SeverityHigh,
			Score:    70,
			Patterns: mustPatterns(
				`(?i)\bon(error|load|click|mouseover|focus|blur|submit|keydown|keyup)\s*=`,
			),
		},
		{
			ID:       "xss-003",
			Name:     "XSS - Encoded Payload",
			Category: ThreatXSSEncoded,
			Severity: SeverityMedium,
			Score:    45,
			Patterns: mustPatterns(
				`(?i)%3c\s*/?\s*script`,
				`(?i)&lt;\s*/?\s*script`,
				`(?i)&#x0*3c;?`,
				`(?i)&#0*60;?`,
				`(?i)\\(u003c|x3c)`,
			),
		},
		{
			ID:       "path-001",
			Name:     "Path Traversal",
			Category: ThreatPathTraversal,
			Severity: SeverityHigh,
			Score:    85,
			Patterns: mustPatterns(
				`\.\./`,
				`\.\.\\`,
				`(?i)%2e%2e(%2f|%5c|/|\\)`,
				`(?i)\.\.(%2f|%5c)`,
				`(?i)/etc/(passwd|shadow|hosts)\b`,
				`(?i)/proc/self/`,
				`(?i)\bwin\.ini\b`,
			),
		},
		{
			ID:       "hdr-001",
			Name:     "Header Injection",
			Category: ThreatInvalidHeader,
			Severity: SeverityMedium,
			Score:    40,
			Patterns: mustPatterns(
				`(?i)%0d%0a`,
				`\r\n`,
				`\\r\\n`,
				`%00`,
				`\x00`,
			),
		},
		{
			ID:       "ua-001",
			Name:     "Known Attack Tool User-Agent",
			Category: ThreatBadUserAgent,
			Severity: SeverityMedium,
			Score:    60,
			Patterns: mustPatterns(
				`(?i)\bsqlmap\b`,
				`(?i)\bnikto\b`,
				`(?i)\bnmap\b`,
				`(?i)\bmasscan\b`,
				`(?i)\b(dirbuster|gobuster)\b`,
				`(?i)\bwpscan\b`,
				`(?i)\bacunetix\b`,
				`(?i)\bnessus\b`,
				`(?i)\bhavij\b`,
				`(?i)\bnuclei\b`,
				`(?i)\bzgrab\b`,
			),
		},
		{
			ID:       "ua-002",
			Name:     "Empty User-Agent",
			Category: ThreatBadUserAgent,
			Severity: SeverityMedium,
			Score:    20,
			Patterns: mustPatterns(
				`^\s*$`,
			),
		},
		{
			ID:       "cmd-001",
			Name:     "Command Injection",
			Category: ThreatCommandInjection,
			Severity: SeverityCritical,
			Score:    90,
			Patterns: mustPatterns(
				`(?i);\s*(cat|ls|rm|wget|curl|nc|bash|sh|whoami|uname|ping)\b`,
				`(?i)(\|\||&&|\|)\s*(cat|ls|rm|wget|curl|nc|bash|sh|whoami|uname|ping)\b`,
				`\$\([^)]*\)`,
				"`[^`]+`",
			),
		},
	}
}
