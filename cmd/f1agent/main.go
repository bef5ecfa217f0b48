// Package main runs the f1agent HTTP service: an Ergast proxy with local
// race, driver and constructor storage and an LLM-backed query interface.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"f1agent/agentutil"
	"f1agent/internal/agentrun"
	"f1agent/internal/drivers"
	"f1agent/internal/ergast"
	"f1agent/internal/logging"
	"f1agent/internal/metrics"
	"f1agent/internal/query"
	"f1agent/internal/store"
	"f1agent/internal/trace"
)

type config struct {
	listenAddr     string
	dsn            string
	upstreamConfig string
	agentTimeout   time.Duration
}

func main() {
	// .env must be loaded before flag defaults read the environment.
	if err := agentutil.LoadEnv(); err != nil {
		slog.Warn("ignoring .env", "err", err)
	}

	var cfg config
	flag.StringVar(&cfg.listenAddr, "listen", envOrDefault("F1AGENT_ADDR", ":8000"), "HTTP listen address")
	flag.StringVar(&cfg.dsn, "db", envOrDefault("F1AGENT_DB", "f1agent.db"), "SQLite path or postgres:// DSN")
	flag.StringVar(&cfg.upstreamConfig, "upstream-config", envOrDefault("F1AGENT_UPSTREAM_CONFIG", ""), "YAML file with the upstream API settings")
	flag.DurationVar(&cfg.agentTimeout, "agent-timeout", durationEnvOrDefault("F1AGENT_AGENT_TIMEOUT", agentrun.DefaultTimeout), "Upper bound for one agent run")

	// InitLogging must run before flag.Parse so it can strip --log-level.
	remaining := logging.InitLogging(os.Args[1:])
	flag.CommandLine.Parse(remaining) //nolint:errcheck

	upstreamCfg, err := ergast.LoadConfig(cfg.upstreamConfig)
	if err != nil {
		slog.Error("failed to load upstream config", "path", cfg.upstreamConfig, "err", err)
		os.Exit(1)
	}
	upstream := ergast.NewClient(upstreamCfg)

	st, err := store.New(store.Config{DSN: cfg.dsn})
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	driverSvc := drivers.NewService(st, nil, rec)
	var endpointDecider query.Decider

	modelCfg, err := agentutil.LoadConfig("")
	switch {
	case errors.Is(err, agentutil.ErrModelNotConfigured):
		slog.Warn("model not configured; agent features disabled", "err", err)
	case err != nil:
		slog.Error("failed to load model config", "err", err)
		os.Exit(1)
	default:
		endpointRunner, driverRunner, err := buildAgents(ctx, modelCfg, upstream, driverSvc, cfg.agentTimeout)
		if err != nil {
			slog.Error("failed to build agents", "err", err)
			os.Exit(1)
		}
		endpointDecider = endpointRunner
		driverSvc.SetDecider(driverRunner)
	}

	srv := &server{
		store:    st,
		upstream: upstream,
		queries:  query.NewService(upstream, endpointDecider, rec),
		drivers:  driverSvc,
		asker:    endpointDecider,
	}

	httpServer := &http.Server{
		Addr:         cfg.listenAddr,
		Handler:      trace.Middleware(srv.routes(reg)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.agentTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down f1agent...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	slog.Info("f1agent starting",
		"listen", cfg.listenAddr,
		"postgres", st.IsPostgres(),
		"upstream", upstreamCfg.BaseURL,
		"season", upstreamCfg.Season,
		"agents", endpointDecider != nil)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("f1agent stopped")
}

func buildAgents(ctx context.Context, cfg agentutil.Config, upstream *ergast.Client, driverSvc *drivers.Service, timeout time.Duration) (*agentrun.Runner, *agentrun.Runner, error) {
	llm, err := agentutil.NewLLM(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	endpointAgent, err := query.NewAgent(llm, upstream)
	if err != nil {
		return nil, nil, err
	}
	endpointRunner, err := agentrun.New(endpointAgent, timeout)
	if err != nil {
		return nil, nil, err
	}

	driverAgent, err := drivers.NewAgent(llm, driverSvc)
	if err != nil {
		return nil, nil, err
	}
	driverRunner, err := agentrun.New(driverAgent, timeout)
	if err != nil {
		return nil, nil, err
	}
	return endpointRunner, driverRunner, nil
}

// envOrDefault returns the value of the environment variable named by key,
// or def if the variable is not set or empty.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnvOrDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration", "key", key, "value", v, "err", err)
		return def
	}
	return d
}
