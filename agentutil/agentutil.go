// Package agentutil holds the plumbing shared by the f1agent binaries:
// model configuration, LLM construction and A2A serving.
package agentutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"google.golang.org/adk/agent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/server/adka2a"
	"google.golang.org/adk/session"

	"f1agent/internal/logging"
	"f1agent/internal/model"
	"f1agent/internal/trace"
)

// ErrModelNotConfigured is returned by LoadConfig when any of the model
// variables is unset.
var ErrModelNotConfigured = errors.New("missing required environment variables: F1AGENT_MODEL_VENDOR, F1AGENT_MODEL_NAME, F1AGENT_API_KEY")

// Config holds model and listener settings from F1AGENT_* env vars.
type Config struct {
	ModelVendor string
	ModelName   string
	APIKey      string
	ListenAddr  string
}

// LoadEnv loads ./.env into the process environment. Variables already set
// win. A missing file is not an error.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// LoadConfig loads .env and reads the model settings. defaultAddr is used
// when F1AGENT_AGENT_ADDR is unset. The returned Config is usable for
// ListenAddr even when ErrModelNotConfigured is returned.
func LoadConfig(defaultAddr string) (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ModelVendor: os.Getenv("F1AGENT_MODEL_VENDOR"),
		ModelName:   os.Getenv("F1AGENT_MODEL_NAME"),
		APIKey:      os.Getenv("F1AGENT_API_KEY"),
		ListenAddr:  os.Getenv("F1AGENT_AGENT_ADDR"),
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultAddr
	}
	if cfg.ModelVendor == "" || cfg.ModelName == "" || cfg.APIKey == "" {
		return cfg, ErrModelNotConfigured
	}
	return cfg, nil
}

// MustLoadConfig initialises logging and loads the config, exiting the
// process when the model is not configured. It returns the command-line
// arguments left after --log-level was consumed, ready for flag parsing.
func MustLoadConfig(defaultAddr string) (Config, []string) {
	remaining := logging.InitLogging(os.Args[1:])

	cfg, err := LoadConfig(defaultAddr)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	return cfg, remaining
}

// NewLLM creates an LLM model based on Config.ModelVendor (gemini or anthropic).
func NewLLM(ctx context.Context, cfg Config) (adkmodel.LLM, error) {
	switch strings.ToLower(cfg.ModelVendor) {
	case "google", "gemini":
		llm, err := gemini.NewModel(ctx, cfg.ModelName, &genai.ClientConfig{APIKey: cfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini model: %w", err)
		}
		slog.Info("using model", "vendor", "gemini", "model", cfg.ModelName)
		return llm, nil

	case "anthropic", "claude":
		slog.Info("using model", "vendor", "anthropic", "model", cfg.ModelName)
		return model.NewClaude(cfg.ModelName, cfg.APIKey), nil

	default:
		return nil, fmt.Errorf("unknown model vendor: %s (supported: google, gemini, anthropic)", cfg.ModelVendor)
	}
}

// CardOptions enrich the AgentCard derived from the ADK agent.
type CardOptions struct {
	Version          string
	DocumentationURL string
	Provider         *a2a.AgentProvider

	// SkillTags and SkillExamples are keyed by skill ID: "agentName" for
	// the model skill, "agentName-toolName" for tool skills.
	SkillTags     map[string][]string
	SkillExamples map[string][]string
}

func applyCardOptions(card *a2a.AgentCard, opts CardOptions) {
	if opts.Version != "" {
		card.Version = opts.Version
	}
	if opts.DocumentationURL != "" {
		card.DocumentationURL = opts.DocumentationURL
	}
	if opts.Provider != nil {
		card.Provider = opts.Provider
	}
	for i := range card.Skills {
		skill := &card.Skills[i]
		if tags, ok := opts.SkillTags[skill.ID]; ok {
			skill.Tags = append(skill.Tags, tags...)
		}
		if examples, ok := opts.SkillExamples[skill.ID]; ok {
			skill.Examples = examples
		}
	}
}

const invokePath = "/invoke"

// NewCard describes a as reachable under baseURL.
func NewCard(a agent.Agent, baseURL *url.URL, opts ...CardOptions) *a2a.AgentCard {
	card := &a2a.AgentCard{
		Name:               a.Name(),
		Description:        a.Description(),
		Skills:             adka2a.BuildAgentSkills(a),
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		URL:                baseURL.JoinPath(invokePath).String(),
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
	}
	if len(opts) > 0 {
		applyCardOptions(card, opts[0])
	}
	return card
}

// Handler serves the agent card and the JSON-RPC endpoint for a.
func Handler(a agent.Agent, card *a2a.AgentCard) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(card))

	executor := adka2a.NewExecutor(adka2a.ExecutorConfig{
		RunnerConfig: runner.Config{
			AppName:        a.Name(),
			Agent:          a,
			SessionService: session.InMemoryService(),
		},
	})
	mux.Handle(invokePath, a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(executor)))
	return mux
}

// Serve runs an A2A server for a on cfg.ListenAddr until ctx is cancelled.
func Serve(ctx context.Context, a agent.Agent, cfg Config, opts ...CardOptions) error {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", cfg.ListenAddr, err)
	}

	baseURL := &url.URL{Scheme: "http", Host: listener.Addr().String()}
	srv := &http.Server{Handler: trace.Middleware(Handler(a, NewCard(a, baseURL, opts...)))}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	slog.Info("starting A2A server",
		"agent", a.Name(),
		"url", baseURL.String(),
		"card", baseURL.String()+a2asrv.WellKnownAgentCardPath,
	)
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
