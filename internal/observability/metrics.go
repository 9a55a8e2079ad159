package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/policy"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

type Metrics struct {
	inspectionsTotal   *prometheus.CounterVec
	blocksTotal        *prometheus.CounterVec
	ruleHitsTotal      *prometheus.CounterVec
	auditFailuresTotal prometheus.Counter
	oversizedTotal     *prometheus.CounterVec
	inspectionDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inspectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "safego_waf_inspections_total", Help: "Total inspected requests"},
			[]string{"policy", "action"},
		),
		blocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "safego_waf_blocks_total", Help: "Total blocked requests"},
			[]string{"policy"},
		),
		ruleHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "safego_waf_rule_hits_total", Help: "Total rule hits"},
			[]string{"rule_id", "threat_type", "severity"},
		),
		auditFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "safego_waf_audit_failures_total", Help: "Audit records that could not be persisted"},
		),
		oversizedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "safego_waf_oversized_bodies_total", Help: "Requests rejected because the body exceeded the inspection limit"},
			[]string{"policy"},
		),
		inspectionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "safego_waf_inspection_duration_seconds",
				Help:    "Time spent scanning, deciding and auditing one request",
				Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"policy"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.inspectionsTotal,
		m.blocksTotal,
		m.ruleHitsTotal,
		m.auditFailuresTotal,
		m.oversizedTotal,
		m.inspectionDuration,
	)

	return m
}

func (m *Metrics) Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveInspection(policyName string, result rules.Result, decision policy.Decision, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.inspectionsTotal.WithLabelValues(policyName, string(decision.Action)).Inc()
	m.inspectionDuration.WithLabelValues(policyName).Observe(elapsed.Seconds())

	if decision.Blocked {
		m.blocksTotal.WithLabelValues(policyName).Inc()
	}

	for _, hit := range result.Hits {
		m.ruleHitsTotal.WithLabelValues(hit.RuleID, string(hit.Category), string(hit.Severity)).Inc()
	}
}

func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.auditFailuresTotal.Inc()
}

func (m *Metrics) OversizedBody(policyName string) {
	if m == nil {
		return
	}
	m.oversizedTotal.WithLabelValues(policyName).Inc()
}
