package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "safego.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `configVersion: 1
server:
  listen: "127.0.0.1:8081"
upstream:
  url: "http://127.0.0.1:8080"
routes:
  - pathPrefix: "/"
    policy: lenient
  - pathPrefix: "/api/admin/"
    policy: strict
rules:
  - id: custom-001
    name: Promo Abuse Marker
    category: sqli
    severity: medium
    score: 30
    patterns:
      - "(?i)freeride"
`

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, validConfig)

	out, err := runCmd(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := "config ok (11 rules)\n"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestValidateCommandReportsProblems(t *testing.T) {
	path := writeConfig(t, strings.Replace(validConfig, "configVersion: 1", "configVersion: 2", 1))

	_, err := runCmd(t, "validate", "-c", path)
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Problems) != 1 || verr.Problems[0] != "configVersion must be 1" {
		t.Fatalf("unexpected problems: %v", verr.Problems)
	}
}

func TestValidateCommandRequiresPath(t *testing.T) {
	if _, err := runCmd(t, "validate"); err == nil {
		t.Fatalf("expected error without -c")
	}
}

func TestRulesCommandListsCatalogInOrder(t *testing.T) {
	out, err := runCmd(t, "rules")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+rules.DefaultCatalog().Len() {
		t.Fatalf("expected header plus %d rules, got %d lines", rules.DefaultCatalog().Len(), len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.HasPrefix(lines[1], "sqli-001") {
		t.Fatalf("unexpected ordering:\n%s", out)
	}
}

func TestRulesCommandFiltersCategory(t *testing.T) {
	out, err := runCmd(t, "rules", "--category", "xss")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if !strings.Contains(out, "xss-001") || strings.Contains(out, "sqli-001") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRulesCommandIncludesCustomRules(t *testing.T) {
	out, err := runCmd(t, "rules", "-c", writeConfig(t, validConfig), "--category", "sqli")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if !strings.Contains(out, "custom-001") {
		t.Fatalf("custom rule missing:\n%s", out)
	}
}

func TestRulesCommandRejectsUnknownCategory(t *testing.T) {
	if _, err := runCmd(t, "rules", "--category", "spam"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "version=dev ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func newTestApp(t *testing.T, upstream string, metrics bool) *app {
	t.Helper()
	cfg := &config.Config{
		ConfigVersion: 1,
		Upstream:      config.Upstream{URL: upstream},
		Routes: []config.Route{
			{PathPrefix: "/", Policy: config.PolicyLenient},
			{PathPrefix: "/api/admin/", Policy: config.PolicyStrict},
		},
		Metrics: config.MetricsConfig{Enabled: metrics, Listen: "127.0.0.1:0"},
	}
	cfg.ApplyDefaults()

	a, err := newApp(context.Background(), cfg, rules.DefaultCatalog(), io.Discard)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newUpstream(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func request(a *app, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("User-Agent", browserUA)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func TestAppProxiesCleanRequests(t *testing.T) {
	upstream, calls := newUpstream(t)
	a := newTestApp(t, upstream.URL, false)

	rec := request(a, "/api/rides?city=dhaka")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "upstream:/api/rides" || *calls != 1 {
		t.Fatalf("expected proxied response, got %q (calls=%d)", rec.Body.String(), *calls)
	}
}

func TestAppSelectsPolicyByPrefix(t *testing.T) {
	upstream, calls := newUpstream(t)
	a := newTestApp(t, upstream.URL, false)

	// hdr-001 scores 40: logged under lenient, blocked under strict.
	lenient := request(a, "/api/rides?q=a%0d%0ab")
	if lenient.Code != http.StatusOK {
		t.Fatalf("lenient route: expected 200, got %d", lenient.Code)
	}

	strict := request(a, "/api/admin/users?q=a%0d%0ab")
	if strict.Code != http.StatusForbidden {
		t.Fatalf("strict route: expected 403, got %d", strict.Code)
	}
	if *calls != 1 {
		t.Fatalf("expected only the lenient request upstream, got %d", *calls)
	}
}

func TestAppBlocksAndReportsStats(t *testing.T) {
	upstream, calls := newUpstream(t)
	a := newTestApp(t, upstream.URL, false)

	blocked := request(a, "/files/../../etc/passwd")
	if blocked.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", blocked.Code)
	}
	if *calls != 0 {
		t.Fatalf("blocked request reached upstream")
	}
	_ = request(a, "/api/rides?q=a%0d%0ab")

	rec := httptest.NewRecorder()
	a.admin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, statsPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var summary struct {
		BlockedCount int64            `json:"blockedCount"`
		LoggedCount  int64            `json:"loggedCount"`
		ByThreatType map[string]int64 `json:"byThreatType"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if summary.BlockedCount != 1 || summary.LoggedCount != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.ByThreatType["path_traversal"] != 1 || summary.ByThreatType["invalid_header"] != 1 {
		t.Fatalf("unexpected breakdown: %v", summary.ByThreatType)
	}
}

func TestStatsNotServedOnPublicListener(t *testing.T) {
	upstream, calls := newUpstream(t)
	a := newTestApp(t, upstream.URL, false)

	rec := request(a, statsPath)
	if rec.Body.String() != "upstream:"+statsPath || *calls != 1 {
		t.Fatalf("expected stats path to be proxied, got %q (calls=%d)", rec.Body.String(), *calls)
	}
}

func TestAppUpstreamFailure(t *testing.T) {
	upstream, _ := newUpstream(t)
	addr := upstream.URL
	upstream.Close()
	a := newTestApp(t, addr, false)

	rec := request(a, "/api/rides")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestAppExposesMetrics(t *testing.T) {
	upstream, _ := newUpstream(t)
	a := newTestApp(t, upstream.URL, true)
	if a.metrics == nil {
		t.Fatalf("expected metrics handler")
	}

	_ = request(a, "/files/../../etc/passwd")

	rec := httptest.NewRecorder()
	a.metrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `safego_waf_blocks_total{policy="lenient"} 1`) {
		t.Fatalf("blocks counter missing:\n%s", rec.Body.String())
	}
}
