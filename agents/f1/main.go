// Package main serves the F1 endpoint agent over A2A. The agent picks the
// Ergast endpoint that answers a question and fetches it.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/a2aproject/a2a-go/a2a"

	"f1agent/agentutil"
	"f1agent/internal/ergast"
	"f1agent/internal/query"
)

func main() {
	cfg, args := agentutil.MustLoadConfig("localhost:1200")
	upstreamPath := flag.String("upstream-config", os.Getenv("F1AGENT_UPSTREAM_CONFIG"), "YAML file with the upstream API settings")
	flag.CommandLine.Parse(args) //nolint:errcheck
	ctx := context.Background()

	upstreamCfg, err := ergast.LoadConfig(*upstreamPath)
	if err != nil {
		slog.Error("failed to load upstream config", "path", *upstreamPath, "err", err)
		os.Exit(1)
	}

	llm, err := agentutil.NewLLM(ctx, cfg)
	if err != nil {
		slog.Error("failed to create LLM model", "err", err)
		os.Exit(1)
	}

	endpointAgent, err := query.NewAgent(llm, ergast.NewClient(upstreamCfg))
	if err != nil {
		slog.Error("failed to create endpoint agent", "err", err)
		os.Exit(1)
	}

	cardOpts := agentutil.CardOptions{
		Version:  "1.0.0",
		Provider: &a2a.AgentProvider{Org: "f1agent"},
		SkillTags: map[string][]string{
			query.AgentName:                          {"formula1", "ergast", "statistics"},
			query.AgentName + "-fetch_endpoint_data": {"formula1", "ergast", "http"},
		},
		SkillExamples: map[string][]string{
			query.AgentName: {
				"Who is leading the driver standings?",
				"Show me the pit stops of the first round",
			},
		},
	}

	slog.Info("endpoint agent configured", "upstream", upstreamCfg.BaseURL, "season", upstreamCfg.Season, "round", upstreamCfg.Round)
	if err := agentutil.Serve(ctx, endpointAgent, cfg, cardOpts); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
