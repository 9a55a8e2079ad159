package rules

// MatchRule tests the rule's patterns in declaration order and returns a hit
// for the first one that matches. Remaining patterns are not evaluated.
func MatchRule(text string, rule Rule) (Hit, bool) {
	for _, pattern := range rule.Patterns {
		if pattern.Matcher == nil {
			continue
		}
		matched, evidence := pattern.Matcher.Match(text)
		if !matched {
			continue
		}
		return Hit{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Category: rule.Category,
			Pattern:  pattern.Source,
			Severity: rule.Severity,
			Score:    rule.Score,
			Evidence: evidence,
		}, true
	}
	return Hit{}, false
}

// ScoreContent evaluates text against rules in order. Each rule contributes
// at most one hit and its score is added once.
func ScoreContent(text string, rules []Rule) Result {
	result := Result{}
	for _, rule := range rules {
		hit, ok := MatchRule(text, rule)
		if !ok {
			continue
		}
		result = result.add(hit)
	}
	return result
}

// Merge concatenates hits in argument order and sums scores.
func Merge(results ...Result) Result {
	merged := Result{}
	for _, r := range results {
		for _, hit := range r.Hits {
			merged = merged.add(hit)
		}
	}
	return merged
}

func (r Result) add(hit Hit) Result {
	r.Score += hit.Score
	r.Hits = append(r.Hits, hit)
	return r
}

// Primary returns the first hit in evaluation order.
func (r Result) Primary() (Hit, bool) {
	if len(r.Hits) == 0 {
		return Hit{}, false
	}
	return r.Hits[0], true
}
