// Package waf inspects inbound requests and blocks or logs the ones that
// match the rule catalog.
package waf

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/extract"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/observability"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/policy"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

type Options struct {
	MaxBodyBytes      int64
	TrustForwardedFor bool
	CountryHeader     string
	Metrics           *observability.Metrics
}

// OptionsFromConfig maps the inspection section onto filter options.
func OptionsFromConfig(cfg config.InspectionConfig, metrics *observability.Metrics) Options {
	return Options{
		MaxBodyBytes:      cfg.MaxBodyBytes,
		TrustForwardedFor: cfg.TrustsForwardedFor(),
		CountryHeader:     cfg.CountryHeader,
		Metrics:           metrics,
	}
}

// Filter is safe for concurrent use. The catalog is read-only and the audit
// store owns its own locking.
type Filter struct {
	lenient policy.Policy
	strict  policy.Policy
	audit   *audit.Logger
	opts    Options
	now     func() time.Time
}

func NewFilter(catalog *rules.Catalog, auditLog *audit.Logger, opts Options) *Filter {
	return &Filter{
		lenient: policy.NewLenient(catalog),
		strict:  policy.NewStrict(catalog),
		audit:   auditLog,
		opts:    opts,
		now:     time.Now,
	}
}

// Lenient blocks at the score threshold and logs weaker hits.
func (f *Filter) Lenient(next http.Handler) http.Handler {
	return f.handler(f.lenient, next)
}

// Strict blocks on any hit.
func (f *Filter) Strict(next http.Handler) http.Handler {
	return f.handler(f.strict, next)
}

// Middleware returns the middleware for a configured policy name.
func (f *Filter) Middleware(name string) (func(http.Handler) http.Handler, error) {
	switch name {
	case config.PolicyLenient:
		return f.Lenient, nil
	case config.PolicyStrict:
		return f.Strict, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

func (f *Filter) handler(p policy.Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := f.now()

		surfaces := extract.FromRequest(r, extract.Options{MaxBodyBytes: f.opts.MaxBodyBytes})
		result := p.Evaluate(surfaces)
		decision := p.Decide(result)

		var requestID string
		if len(result.Hits) > 0 {
			requestID = newRequestID(start)
			f.audit.LogEvent(r.Context(), f.requestInfo(r, surfaces, p.Name(), requestID), result, decision)
		}

		f.opts.Metrics.ObserveInspection(p.Name(), result, decision, f.now().Sub(start))

		if decision.Blocked {
			writeBlocked(w, requestID)
			return
		}
		if surfaces.TooLarge {
			f.opts.Metrics.OversizedBody(p.Name())
			if requestID == "" {
				requestID = newRequestID(start)
			}
			writeTooLarge(w, requestID)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *Filter) requestInfo(r *http.Request, s extract.Surfaces, policyName, requestID string) audit.RequestInfo {
	info := audit.RequestInfo{
		RequestID: requestID,
		Policy:    policyName,
		Method:    r.Method,
		Path:      r.URL.Path,
		Headers:   audit.EncodeHeaders(r.Header),
		Body:      s.Body,
		UserAgent: s.UserAgent,
		SourceIP:  clientIP(r, f.opts.TrustForwardedFor),
	}
	if f.opts.CountryHeader != "" {
		info.SourceCountry = r.Header.Get(f.opts.CountryHeader)
	}
	if id, ok := IdentityFromContext(r.Context()); ok {
		info.UserID = id.UserID
		info.UserRole = id.Role
	}
	return info
}
