package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/logging"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/observability"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/stats"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/store"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/waf"
)

const statsPath = "/api/security/stats"

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the filter in front of the upstream application",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, catalog, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, catalog)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	return cmd
}

type app struct {
	log      zerolog.Logger
	handler  http.Handler
	admin    http.Handler
	metrics  http.Handler
	backend  store.Backend
	policies map[string]string
}

func newApp(ctx context.Context, cfg *config.Config, catalog *rules.Catalog, logOut io.Writer) (*app, error) {
	log, err := logging.New(cfg.Logging, logOut)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("store", cfg.Audit.Store).Msg("audit store opened")

	a := &app{log: log, backend: backend, policies: map[string]string{}}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		metrics = observability.NewMetrics(reg)
		a.metrics = metrics.Handler(reg)
	}

	auditLog := audit.NewLogger(backend, log,
		audit.WithTimeout(cfg.Audit.Timeout),
		audit.WithFailureHook(metrics.AuditFailure),
	)
	filter := waf.NewFilter(catalog, auditLog, waf.OptionsFromConfig(cfg.Inspection, metrics))

	target, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("parse upstream: %w", err)
	}
	proxy := newProxy(target, log)

	admin := chi.NewRouter()
	admin.Use(middleware.Recoverer)
	admin.Method(http.MethodGet, statsPath, waf.StatsHandler(stats.NewAggregator(backend), log))
	a.admin = admin

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for _, route := range cfg.Routes {
		mw, err := filter.Middleware(route.Policy)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		h := mw(proxy)
		prefix := strings.TrimSuffix(route.PathPrefix, "/")
		if prefix != "" {
			r.Handle(prefix, h)
		}
		r.Handle(prefix+"/*", h)
		a.policies[route.PathPrefix] = route.Policy
	}
	a.handler = r

	return a, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

func newProxy(target *url.URL, log zerolog.Logger) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = newTransport(30 * time.Second)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream request failed")
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
		default:
			http.Error(w, "upstream error", http.StatusBadGateway)
		}
	}
	return proxy
}

func newTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}

func serve(ctx context.Context, cfg *config.Config, catalog *rules.Catalog) error {
	a, err := newApp(ctx, cfg, catalog, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error().Err(err).Msg("close audit store")
		}
	}()

	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics)
		stopMetrics := a.startAux("metrics", cfg.Metrics.Listen, mux)
		defer stopMetrics()
	}
	stopAdmin := a.startAux("admin", cfg.Admin.Listen, a.admin)
	defer stopAdmin()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if cfg.Server.TLS.Enabled {
			serverErr <- srv.ListenAndServeTLS(cfg.ResolvePath(cfg.Server.TLS.CertFile), cfg.ResolvePath(cfg.Server.TLS.KeyFile))
			return
		}
		serverErr <- srv.ListenAndServe()
	}()

	a.log.Info().
		Str("listen", cfg.Server.Listen).
		Str("upstream", cfg.Upstream.URL).
		Str("admin", cfg.Admin.Listen).
		Int("rules", catalog.Len()).
		Interface("routes", a.policies).
		Msg("filter listening")

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-signalCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startAux serves an internal listener in the background and returns its
// shutdown func.
func (a *app) startAux(name, addr string, handler http.Handler) func() {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("listener", name).Msg("listener stopped")
		}
	}()
	return func() { _ = srv.Shutdown(context.Background()) }
}
