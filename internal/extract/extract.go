// Package extract derives the inspectable text surfaces of an HTTP request.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// DefaultMaxBodyBytes is the cap used when Options.MaxBodyBytes is not set.
const DefaultMaxBodyBytes = 1 << 20

// Options controls how much of the body is read for inspection.
type Options struct {
	// MaxBodyBytes caps the bytes buffered for scanning. Larger bodies are
	// reported as TooLarge and never reach the matchers truncated. Zero or
	// negative selects DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Surfaces holds the two disjoint content groups scanned for one request.
type Surfaces struct {
	// UserAgent is the raw User-Agent header, empty when absent.
	UserAgent string
	// General joins the path, the original URL, the serialized query and
	// the body text with single spaces.
	General string
	// Body is the serialized structured body, or the raw body text when the
	// body is not structured. It feeds the persisted excerpt.
	Body string
	// BodyOmitted reports a binary body that was left out of General.
	BodyOmitted bool
	// TooLarge reports a body over the cap. Nothing of it was scanned.
	TooLarge bool
}

// FromRequest never fails. Textual bodies that do not parse are scanned as
// raw text; binary bodies are omitted. The body is restored on r so
// downstream handlers see the same bytes.
func FromRequest(r *http.Request, opts Options) Surfaces {
	s := Surfaces{UserAgent: r.Header.Get("User-Agent")}

	parts := []string{r.URL.Path, originalURL(r)}
	if query, ok := encode(flatten(ParseQuery(r.URL.RawQuery))); ok {
		parts = append(parts, query)
	}

	limit := opts.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := readBody(r, limit)
	switch {
	case errors.Is(err, errBodyTooLarge):
		s.TooLarge = true
	case err != nil:
		s.Body = string(raw)
		s.BodyOmitted = len(raw) > 0
	case len(raw) > 0:
		if text, ok := serializeBody(r.Header.Get("Content-Type"), raw); ok {
			s.Body = text
			parts = append(parts, text)
		} else {
			s.Body = string(raw)
			s.BodyOmitted = true
		}
	}

	s.General = strings.Join(parts, " ")
	return s
}

func originalURL(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

var errBodyTooLarge = errors.New("request body exceeds inspection limit")

// readBody buffers the whole body when it fits in limit. On overflow or a
// read error the bytes already read are put back in front of the rest.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if r.ContentLength > limit {
		return nil, errBodyTooLarge
	}

	chunk, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err == nil && int64(len(chunk)) > limit {
		err = errBodyTooLarge
	}
	if err != nil {
		r.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(chunk), r.Body),
			Closer: r.Body,
		}
		return chunk, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(chunk))
	r.ContentLength = int64(len(chunk))
	return chunk, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// serializeBody returns the text scanned for a body. Forms and JSON are
// re-encoded; other textual bodies, and structured ones that fail to parse,
// are scanned as sent. ok is false only for binary media types.
func serializeBody(contentType string, raw []byte) (string, bool) {
	mediaType := ""
	if contentType != "" {
		if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = parsed
		}
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		return encode(flatten(ParseQuery(string(raw))))
	case isTextual(mediaType):
		if value, err := decodeJSON(raw); err == nil {
			switch value.(type) {
			case map[string]any, []any:
				if text, ok := encode(value); ok {
					return text, true
				}
			}
		}
		return string(raw), true
	default:
		return "", false
	}
}

// isTextual treats a missing or unparsable Content-Type as text.
func isTextual(mediaType string) bool {
	switch {
	case mediaType == "",
		strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		strings.HasSuffix(mediaType, "+json"),
		mediaType == "application/xml",
		strings.HasSuffix(mediaType, "+xml"),
		mediaType == "application/javascript",
		mediaType == "application/graphql":
		return true
	default:
		return false
	}
}

// ParseQuery decodes a query string or form body without dropping pairs that
// url.ParseQuery rejects: ';' is kept as data and a pair that does not
// unescape is kept as sent.
func ParseQuery(raw string) url.Values {
	values := url.Values{}
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescape(key), unescape(value))
	}
	return values
}

func unescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return s
}

var errTrailingData = errors.New("trailing data after JSON value")

func decodeJSON(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return value, nil
}

// flatten collapses single-valued parameters to plain strings.
func flatten(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			out[key] = vals[0]
			continue
		}
		out[key] = vals
	}
	return out
}

// encode serializes without HTML escaping so markup reaches the matchers
// unchanged.
func encode(value any) (string, bool) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return "", false
	}
	return strings.TrimSuffix(buf.String(), "\n"), true
}
