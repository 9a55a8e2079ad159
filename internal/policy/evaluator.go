package policy

import (
	"fmt"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/extract"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

type Action string

const (
	ActionAllow   Action = "allowed"
	ActionBlocked Action = "blocked"
	ActionLogged  Action = "logged"
)

// BlockThreshold is the lenient score at or above which a request is blocked.
const BlockThreshold = 50

type Decision struct {
	Blocked bool
	Action  Action
}

// Policy scores request surfaces and turns the result into a decision.
// Decide is pure and consults nothing but the result.
type Policy interface {
	Name() string
	Evaluate(s extract.Surfaces) rules.Result
	Decide(result rules.Result) Decision
}

// Lenient scores the user agent against bad-user-agent rules only and the
// general surface against every other rule.
type Lenient struct {
	userAgent []rules.Rule
	general   []rules.Rule
}

func NewLenient(catalog *rules.Catalog) *Lenient {
	return &Lenient{
		userAgent: catalog.ListRules(rules.ThreatBadUserAgent),
		general:   catalog.Except(rules.ThreatBadUserAgent),
	}
}

func (p *Lenient) Name() string { return config.PolicyLenient }

func (p *Lenient) Evaluate(s extract.Surfaces) rules.Result {
	return rules.Merge(
		rules.ScoreContent(s.UserAgent, p.userAgent),
		rules.ScoreContent(s.General, p.general),
	)
}

func (p *Lenient) Decide(result rules.Result) Decision {
	return DecideAction(result.Score, len(result.Hits), BlockThreshold)
}

// Strict scores only the general surface, against the whole catalog, and
// blocks on any hit. User-agent rules therefore match path, query and body
// text here rather than the header.
type Strict struct {
	all []rules.Rule
}

func NewStrict(catalog *rules.Catalog) *Strict {
	return &Strict{all: catalog.ListRules()}
}

func (p *Strict) Name() string { return config.PolicyStrict }

func (p *Strict) Evaluate(s extract.Surfaces) rules.Result {
	return rules.ScoreContent(s.General, p.all)
}

func (p *Strict) Decide(result rules.Result) Decision {
	if len(result.Hits) == 0 {
		return Decision{Action: ActionAllow}
	}
	return Decision{Blocked: true, Action: ActionBlocked}
}

// DecideAction blocks at or above threshold, logs any other hit and allows
// clean requests.
func DecideAction(score, hits, threshold int) Decision {
	switch {
	case hits == 0:
		return Decision{Action: ActionAllow}
	case score >= threshold:
		return Decision{Blocked: true, Action: ActionBlocked}
	default:
		return Decision{Action: ActionLogged}
	}
}

// New returns the named policy over catalog.
func New(name string, catalog *rules.Catalog) (Policy, error) {
	switch name {
	case config.PolicyLenient:
		return NewLenient(catalog), nil
	case config.PolicyStrict:
		return NewStrict(catalog), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}
