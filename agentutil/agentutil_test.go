package agentutil

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
)

func setModelEnv(t *testing.T, vendor, name, key string) {
	t.Helper()
	t.Setenv("F1AGENT_MODEL_VENDOR", vendor)
	t.Setenv("F1AGENT_MODEL_NAME", name)
	t.Setenv("F1AGENT_API_KEY", key)
	t.Setenv("F1AGENT_AGENT_ADDR", "")
}

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	setModelEnv(t, "gemini", "gemini-2.5-flash", "secret")

	cfg, err := LoadConfig(":1200")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ModelVendor != "gemini" || cfg.ModelName != "gemini-2.5-flash" || cfg.APIKey != "secret" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ListenAddr != ":1200" {
		t.Errorf("ListenAddr = %q, want default", cfg.ListenAddr)
	}

	t.Setenv("F1AGENT_AGENT_ADDR", "localhost:1300")
	if cfg, _ := LoadConfig(":1200"); cfg.ListenAddr != "localhost:1300" {
		t.Errorf("ListenAddr = %q, want env override", cfg.ListenAddr)
	}
}

func TestLoadConfig_MissingModel(t *testing.T) {
	t.Chdir(t.TempDir())
	setModelEnv(t, "gemini", "", "secret")

	cfg, err := LoadConfig(":1200")
	if !errors.Is(err, ErrModelNotConfigured) {
		t.Fatalf("err = %v, want ErrModelNotConfigured", err)
	}
	if cfg.ListenAddr != ":1200" {
		t.Errorf("ListenAddr = %q, want it set despite the error", cfg.ListenAddr)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	setModelEnv(t, "", "", "")
	// Unset so godotenv may fill them; t.Setenv restores afterwards.
	for _, k := range []string{"F1AGENT_MODEL_VENDOR", "F1AGENT_MODEL_NAME", "F1AGENT_API_KEY"} {
		os.Unsetenv(k)
	}
	env := "F1AGENT_MODEL_VENDOR=anthropic\nF1AGENT_MODEL_NAME=claude-sonnet-4-5\nF1AGENT_API_KEY=from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(":1200")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ModelVendor != "anthropic" || cfg.APIKey != "from-file" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestMustLoadConfig_ReturnsFlagArgs(t *testing.T) {
	t.Chdir(t.TempDir())
	setModelEnv(t, "gemini", "gemini-2.5-flash", "secret")

	oldArgs, oldLogger := os.Args, slog.Default()
	t.Cleanup(func() {
		os.Args = oldArgs
		slog.SetDefault(oldLogger)
	})
	os.Args = []string{"f1", "--log-level=debug", "-upstream-config", "upstream.yaml"}

	cfg, args := MustLoadConfig(":1200")
	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(args) != 2 || args[0] != "-upstream-config" || args[1] != "upstream.yaml" {
		t.Errorf("args = %v, want the log level stripped", args)
	}
}

func TestNewLLM(t *testing.T) {
	llm, err := NewLLM(context.Background(), Config{ModelVendor: "Anthropic", ModelName: "claude-test", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewLLM: %v", err)
	}
	if llm.Name() != "claude-test" {
		t.Errorf("Name = %q", llm.Name())
	}

	if _, err := NewLLM(context.Background(), Config{ModelVendor: "openai", ModelName: "x", APIKey: "k"}); err == nil {
		t.Error("expected error for unknown vendor")
	}
}

func TestApplyCardOptions(t *testing.T) {
	card := &a2a.AgentCard{
		Name:    "test",
		Version: "0.1.0",
		Skills: []a2a.AgentSkill{
			{ID: "skill-a", Tags: []string{"existing"}},
			{ID: "skill-b", Tags: []string{"b-tag"}, Examples: []string{"old"}},
		},
	}

	applyCardOptions(card, CardOptions{})
	if card.Version != "0.1.0" {
		t.Errorf("Version changed to %q by empty options", card.Version)
	}

	applyCardOptions(card, CardOptions{
		Version:          "2.0.0",
		DocumentationURL: "https://docs.example.com",
		Provider:         &a2a.AgentProvider{Org: "TestOrg", URL: "https://test.org"},
		SkillTags:        map[string][]string{"skill-a": {"new-1", "new-2"}},
		SkillExamples:    map[string][]string{"skill-b": {"example 1", "example 2"}},
	})
	if card.Version != "2.0.0" || card.DocumentationURL != "https://docs.example.com" {
		t.Errorf("card = %+v", card)
	}
	if card.Provider == nil || card.Provider.Org != "TestOrg" {
		t.Errorf("Provider = %+v", card.Provider)
	}
	if got := card.Skills[0].Tags; len(got) != 3 || got[0] != "existing" || got[1] != "new-1" {
		t.Errorf("skill-a tags = %v", got)
	}
	if got := card.Skills[1].Tags; len(got) != 1 {
		t.Errorf("skill-b tags = %v, expected unchanged", got)
	}
	if got := card.Skills[1].Examples; len(got) != 2 || got[0] != "example 1" {
		t.Errorf("skill-b examples = %v", got)
	}
}

type silentLLM struct{}

func (silentLLM) Name() string { return "silent" }

func (silentLLM) GenerateContent(context.Context, *adkmodel.LLMRequest, bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(func(*adkmodel.LLMResponse, error) bool) {}
}

func TestHandler_ServesAgentCard(t *testing.T) {
	a, err := llmagent.New(llmagent.Config{
		Name:        "f1_test_agent",
		Description: "test agent",
		Instruction: "Answer.",
		Model:       silentLLM{},
	})
	if err != nil {
		t.Fatal(err)
	}

	base, _ := url.Parse("http://localhost:1200")
	card := NewCard(a, base, CardOptions{Version: "1.2.3"})
	if card.URL != "http://localhost:1200/invoke" {
		t.Errorf("card URL = %q", card.URL)
	}

	srv := httptest.NewServer(Handler(a, card))
	defer srv.Close()

	resp, err := http.Get(srv.URL + a2asrv.WellKnownAgentCardPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "f1_test_agent" || got.Version != "1.2.3" {
		t.Errorf("card = %+v", got)
	}
}
