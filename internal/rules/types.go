package rules

type ThreatType string

type Severity string

const (
	ThreatSQLi             ThreatType = "sqli"
	ThreatSQLiAdvanced     ThreatType = "sqli_advanced"
	ThreatXSS              ThreatType = "xss"
	ThreatXSSEvent         ThreatType = "xss_event"
	ThreatXSSEncoded       ThreatType = "xss_encoded"
	ThreatPathTraversal    ThreatType = "path_traversal"
	ThreatInvalidHeader    ThreatType = "invalid_header"
	ThreatBadUserAgent     ThreatType = "bad_user_agent"
	ThreatCommandInjection ThreatType = "command_injection"
)

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

const (
	MinScore = 0
	MaxScore = 100
)

var threatTypes = []ThreatType{
	ThreatSQLi,
	ThreatSQLiAdvanced,
	ThreatXSS,
	ThreatXSSEvent,
	ThreatXSSEncoded,
	ThreatPathTraversal,
	ThreatInvalidHeader,
	ThreatBadUserAgent,
	ThreatCommandInjection,
}

// ThreatTypes returns every known category in catalog order.
func ThreatTypes() []ThreatType {
	return append([]ThreatType(nil), threatTypes...)
}

func (t ThreatType) Valid() bool {
	for _, known := range threatTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium:
		return true
	default:
		return false
	}
}

// Rule groups one threat category with an ordered list of patterns. Only the
// first matching pattern of a rule counts for a given text.
type Rule struct {
	ID       string
	Name     string
	Category ThreatType
	Patterns []Pattern
	Severity Severity
	Score    int
}

type Pattern struct {
	Source  string
	Matcher Matcher
}

// Hit is produced for a rule that matched during one evaluation.
type Hit struct {
	RuleID   string
	RuleName string
	Category ThreatType
	Pattern  string
	Severity Severity
	Score    int
	Evidence string
}

type Result struct {
	Score int
	Hits  []Hit
}

// Matcher returns true if the input matches and an evidence snippet of at
// most maxEvidence bytes.
type Matcher interface {
	Match(input string) (bool, string)
}
