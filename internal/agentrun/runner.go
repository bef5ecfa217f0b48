// Package agentrun executes a single-turn ADK agent run and reports what the
// agent produced.
package agentrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"f1agent/internal/trace"
)

// DefaultTimeout bounds one agent run when the caller does not pick one.
const DefaultTimeout = 60 * time.Second

// ErrNoOutput is returned when a run finished without text or tool output.
var ErrNoOutput = errors.New("agent produced no output")

const userID = "f1agent"

// Runner runs an agent once per call, each time in a fresh session.
type Runner struct {
	agentName string
	runner    *runner.Runner
	sessions  session.Service
	timeout   time.Duration
}

// New wraps a. A non-positive timeout selects DefaultTimeout.
func New(a agent.Agent, timeout time.Duration) (*Runner, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        a.Name(),
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("create runner for %s: %w", a.Name(), err)
	}
	return &Runner{agentName: a.Name(), runner: r, sessions: sessions, timeout: timeout}, nil
}

// Run sends prompt to the agent and returns its final text as RawText. When
// the agent ends without text, the response of its last tool call is
// returned as Structured.
func (r *Runner) Run(ctx context.Context, prompt string) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	sessionID := "sess_" + uuid.New().String()[:8]
	created, err := r.sessions.Create(ctx, &session.CreateRequest{
		AppName:   r.agentName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := r.sessions.Delete(context.Background(), &session.DeleteRequest{
			AppName:   r.agentName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			slog.Debug("failed to delete agent session", "session_id", sessionID, "err", err)
		}
	}()

	var finalText string
	var lastToolResponse map[string]any
	toolCalls := 0

	msg := genai.NewContentFromText(prompt, genai.RoleUser)
	for event, err := range r.runner.Run(ctx, userID, created.Session.ID(), msg, agent.RunConfig{}) {
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", r.agentName, err)
		}
		if event == nil || event.Content == nil || event.Partial {
			continue
		}

		var text strings.Builder
		for _, part := range event.Content.Parts {
			switch {
			case part.FunctionCall != nil:
				toolCalls++
			case part.FunctionResponse != nil:
				lastToolResponse = part.FunctionResponse.Response
			case part.Text != "" && !part.Thought:
				text.WriteString(part.Text)
			}
		}
		if event.Author != "user" && text.Len() > 0 {
			finalText = text.String()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("agent %s: %w", r.agentName, err)
	}

	slog.Debug("agent run finished",
		"agent", r.agentName,
		"trace_id", trace.IDFrom(ctx),
		"session_id", sessionID,
		"tool_calls", toolCalls,
		"ms", time.Since(start).Milliseconds())

	switch {
	case strings.TrimSpace(finalText) != "":
		return RawText(finalText), nil
	case lastToolResponse != nil:
		return Structured{Value: lastToolResponse}, nil
	default:
		return nil, ErrNoOutput
	}
}
