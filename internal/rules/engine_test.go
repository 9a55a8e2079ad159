package rules

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustRule(t *testing.T, id string, category ThreatType, score int, sources ...string) Rule {
	t.Helper()
	patterns := make([]Pattern, 0, len(sources))
	for _, source := range sources {
		p, err := NewPattern(source)
		if err != nil {
			t.Fatalf("compile %q: %v", source, err)
		}
		patterns = append(patterns, p)
	}
	return Rule{
		ID:       id,
		Name:     id,
		Category: category,
		Patterns: patterns,
		Severity: SeverityHigh,
		Score:    score,
	}
}

func TestMatchRuleFirstPatternWins(t *testing.T) {
	rule := mustRule(t, "sqli-x", ThreatSQLi, 90, `(?i)union`, `(?i)select`)

	hit, ok := MatchRule("1 UNION SELECT password", rule)
	if !ok {
		t.Fatalf("expected hit")
	}
	if hit.Pattern != `(?i)union` {
		t.Fatalf("expected first pattern to win, got %q", hit.Pattern)
	}
	if hit.Evidence != "UNION" {
		t.Fatalf("unexpected evidence %q", hit.Evidence)
	}
	if hit.Score != 90 || hit.Category != ThreatSQLi {
		t.Fatalf("unexpected hit %+v", hit)
	}
}

func TestMatchRuleNoMatch(t *testing.T) {
	rule := mustRule(t, "xss-x", ThreatXSS, 80, `(?i)<script`)
	if _, ok := MatchRule("hello world", rule); ok {
		t.Fatalf("expected no hit")
	}
}

func TestScoreContentCountsRuleOnce(t *testing.T) {
	rule := mustRule(t, "multi", ThreatSQLi, 30, `a`, `b`, `c`)

	result := ScoreContent("abc abc", []Rule{rule})
	if result.Score != 30 {
		t.Fatalf("expected score 30, got %d", result.Score)
	}
	if len(result.Hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(result.Hits))
	}
}

func TestScoreContentSumsWithoutClamping(t *testing.T) {
	catalog := DefaultCatalog()
	text := `{"id":"1' OR '1'='1 UNION SELECT * FROM information_schema.tables"}`

	result := ScoreContent(text, catalog.ListRules(ThreatSQLi, ThreatSQLiAdvanced))
	if result.Score != 185 {
		t.Fatalf("expected raw score 185, got %d", result.Score)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(result.Hits))
	}
	if result.Hits[0].RuleID != "sqli-001" || result.Hits[1].RuleID != "sqli-002" {
		t.Fatalf("hits out of declaration order: %s, %s", result.Hits[0].RuleID, result.Hits[1].RuleID)
	}
}

func TestScoreContentIsIdempotent(t *testing.T) {
	catalog := DefaultCatalog()
	text := `/search /search?q=<script>alert(1)</script> {"q":"<script>alert(1)</script>"}`

	first := ScoreContent(text, catalog.ListRules())
	second := ScoreContent(text, catalog.ListRules())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
	if first.Score == 0 {
		t.Fatalf("expected hits for script payload")
	}
}

func TestMergeKeepsArgumentOrder(t *testing.T) {
	a := Result{Score: 60, Hits: []Hit{{RuleID: "ua-001", Score: 60}}}
	b := Result{Score: 85, Hits: []Hit{{RuleID: "path-001", Score: 85}}}

	merged := Merge(a, b)
	if merged.Score != 145 {
		t.Fatalf("expected 145, got %d", merged.Score)
	}
	primary, ok := merged.Primary()
	if !ok || primary.RuleID != "ua-001" {
		t.Fatalf("expected ua-001 as primary, got %+v", primary)
	}
}

func TestPrimaryEmpty(t *testing.T) {
	if _, ok := (Result{}).Primary(); ok {
		t.Fatalf("expected no primary hit")
	}
}

func TestDefaultRulesDetect(t *testing.T) {
	catalog := DefaultCatalog()
	cases := []struct {
		name string
		text string
		want string
	}{
		{name: "sqli tautology", text: `1' OR '1'='1`, want: "sqli-001"},
		{name: "sqli numeric", text: `id=1 or 1=1`, want: "sqli-001"},
		{name: "union select", text: `1 union all select null`, want: "sqli-002"},
		{name: "time based", text: `1;select pg_sleep(5)`, want: "sqli-002"},
		{name: "script tag", text: `<script>alert(1)</script>`, want: "xss-001"},
		{name: "event handler", text: `<img src=x onerror=alert(1)>`, want: "xss-002"},
		{name: "encoded script", text: `%3Cscript%3E`, want: "xss-003"},
		{name: "traversal", text: `/files/../../etc/passwd`, want: "path-001"},
		{name: "crlf", text: `name=x%0d%0aSet-Cookie:a=b`, want: "hdr-001"},
		{name: "scanner", text: `sqlmap/1.5#stable`, want: "ua-001"},
		{name: "empty ua", text: ``, want: "ua-002"},
		{name: "command", text: `host=127.0.0.1; cat /tmp/x`, want: "cmd-001"},
		{name: "subshell", text: `name=$(id)`, want: "cmd-001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := catalog.Rule(tc.want)
			if !ok {
				t.Fatalf("rule %s missing", tc.want)
			}
			if _, ok := MatchRule(tc.text, rule); !ok {
				t.Fatalf("expected %s to match %q", tc.want, tc.text)
			}
		})
	}
}

func TestDefaultRulesIgnoreBenignText(t *testing.T) {
	catalog := DefaultCatalog()
	benign := []string{
		`/api/profile /api/profile {}`,
		`/api/rides /api/rides?city=dhaka&limit=10 {"city":"dhaka","limit":"10"}`,
		`{"name":"O'Brien","note":"pick me up at 5 & wait"}`,
	}
	for _, text := range benign {
		result := ScoreContent(text, catalog.Except(ThreatBadUserAgent))
		if len(result.Hits) != 0 {
			t.Fatalf("unexpected hits for %q: %+v", text, result.Hits)
		}
	}
}

func TestSnippetTruncatesOnRuneBoundary(t *testing.T) {
	got := snippet(strings.Repeat("é", 40))
	if len(got) > maxEvidence {
		t.Fatalf("snippet too long: %d", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("snippet split a rune: %q", got)
	}
}
