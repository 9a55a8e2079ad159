package rules

import "regexp"

type RegexMatcher struct {
	re *regexp.Regexp
}

func NewRegexMatcher(pattern string) (*RegexMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &RegexMatcher{re: re}, nil
}

func (m *RegexMatcher) Match(input string) (bool, string) {
	loc := m.re.FindStringIndex(input)
	if loc == nil {
		return false, ""
	}
	return true, snippet(input[loc[0]:loc[1]])
}

// NewPattern compiles source as a regular expression pattern.
func NewPattern(source string) (Pattern, error) {
	matcher, err := NewRegexMatcher(source)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Source: source, Matcher: matcher}, nil
}

func mustPatterns(sources ...string) []Pattern {
	out := make([]Pattern, 0, len(sources))
	for _, source := range sources {
		p, err := NewPattern(source)
		if err != nil {
			panic("rules: bad built-in pattern " + source + ": " + err.Error())
		}
		out = append(out, p)
	}
	return out
}
