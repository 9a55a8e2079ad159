package audit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxBodyExcerpt = 1000
	redacted       = "<redacted>"
)

func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "cookie", "set-cookie", "proxy-authorization":
		return true
	default:
		return false
	}
}

// EncodeHeaders serializes headers as a JSON object with credentials masked.
func EncodeHeaders(headers http.Header) string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		canon := http.CanonicalHeaderKey(name)
		if isSensitiveHeader(canon) {
			out[canon] = redacted
			continue
		}
		out[canon] = strings.Join(values, ", ")
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(out); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

var (
	secretKVPattern     = regexp.MustCompile(`(?i)\b(password|passwd|token|api[_-]?key|secret)(["']?\s*[=:]\s*["']?)([^\s&"',}]+)`)
	secretBearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`)
)

func redactSecrets(input string) string {
	if input == "" {
		return input
	}
	out := secretKVPattern.ReplaceAllString(input, `$1$2`+redacted)
	return secretBearerPattern.ReplaceAllString(out, "bearer "+redacted)
}

// excerpt keeps the first maxBodyExcerpt characters.
func excerpt(body string) string {
	if utf8.RuneCountInString(body) <= maxBodyExcerpt {
		return body
	}
	n := 0
	for i := range body {
		if n == maxBodyExcerpt {
			return body[:i]
		}
		n++
	}
	return body
}
