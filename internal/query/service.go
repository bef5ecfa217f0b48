package query

import (
	"context"
	"log/slog"
	"strings"

	"f1agent/internal/agentrun"
	"f1agent/internal/ergast"
	"f1agent/internal/metrics"
)

// UnresolvedMessage is the answer when neither the keyword table nor the
// agent produced an endpoint.
const UnresolvedMessage = "Could not determine endpoint from query."

// Fetcher retrieves an endpoint. *ergast.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) ergast.Result
}

// Decider runs the endpoint-selecting agent. *agentrun.Runner satisfies it.
type Decider interface {
	Run(ctx context.Context, prompt string) (agentrun.Output, error)
}

// Service answers free-text questions with upstream data.
type Service struct {
	fetcher Fetcher
	decider Decider
	metrics *metrics.Recorder
}

// NewService returns a Service. decider and rec may be nil; without a
// decider every keyword miss is reported as unresolved.
func NewService(f Fetcher, d Decider, rec *metrics.Recorder) *Service {
	return &Service{fetcher: f, decider: d, metrics: rec}
}

// Answer resolves text to an endpoint, fetches it and normalizes the
// result. It never fails: problems are reported through the result status.
func (s *Service) Answer(ctx context.Context, text string) ergast.Result {
	endpoint, source := s.resolve(ctx, text)
	s.metrics.Resolved(source)
	if endpoint == "" {
		return Unresolved()
	}

	res := Normalize(s.fetcher.Fetch(ctx, endpoint))
	s.metrics.Fetched(string(res.Endpoint), string(res.Status))
	return res
}

// Unresolved is the result reported when no endpoint could be determined.
func Unresolved() ergast.Result {
	return ergast.Result{
		Endpoint: ergast.EndpointUnknown,
		Status:   ergast.StatusFail,
		Answer:   map[string]any{"message": UnresolvedMessage},
	}
}

// resolve returns the chosen endpoint name, or "" when none was found,
// along with the metrics source label.
func (s *Service) resolve(ctx context.Context, text string) (string, string) {
	if e, ok := Resolve(text); ok {
		slog.Debug("resolved endpoint by keyword", "endpoint", e)
		return string(e), metrics.SourceKeyword
	}
	if s.decider == nil {
		return "", metrics.SourceFailed
	}

	out, err := s.decider.Run(ctx, "User question: '"+text+"'")
	if err != nil {
		slog.Warn("endpoint agent failed", "err", err)
		return "", metrics.SourceFailed
	}
	obj, err := agentrun.DecodeObject(out)
	if err != nil {
		slog.Warn("endpoint agent returned unusable output", "err", err)
		return "", metrics.SourceFailed
	}

	endpoint, _ := obj["endpoint"].(string)
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		slog.Info("endpoint agent picked no endpoint", "status", obj["status"])
		return "", metrics.SourceFailed
	}
	slog.Debug("resolved endpoint by agent", "endpoint", endpoint)
	return endpoint, metrics.SourceAgent
}
