package query

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"f1agent/internal/agentrun"
	"f1agent/internal/ergast"
	"f1agent/internal/metrics"
)

// fakeFetcher answers every routable endpoint with a canned body.
type fakeFetcher struct {
	calls []string
	fail  bool
}

func (f *fakeFetcher) Fetch(_ context.Context, endpoint string) ergast.Result {
	f.calls = append(f.calls, endpoint)
	e, ok := ergast.ParseEndpoint(endpoint)
	if !ok {
		return ergast.Result{Endpoint: ergast.EndpointUnknown, Status: ergast.StatusFail, Answer: "Invalid endpoint."}
	}
	if f.fail {
		return ergast.Result{Endpoint: e, Status: ergast.StatusFail, Answer: "Failed to fetch data: context deadline exceeded"}
	}
	return ergast.Result{Endpoint: e, Status: ergast.StatusSuccess, Answer: map[string]any{"MRData": map[string]any{"series": "f1"}}}
}

// fakeDecider returns a fixed output and counts invocations.
type fakeDecider struct {
	out     agentrun.Output
	err     error
	calls   int
	prompts []string
}

func (d *fakeDecider) Run(_ context.Context, prompt string) (agentrun.Output, error) {
	d.calls++
	d.prompts = append(d.prompts, prompt)
	return d.out, d.err
}

func TestAnswer_KeywordSkipsAgent(t *testing.T) {
	f := &fakeFetcher{}
	d := &fakeDecider{err: errors.New("must not be called")}
	s := NewService(f, d, nil)

	for _, q := range []string{"list the drivers", "lap times please", "pitstop summary"} {
		res := s.Answer(context.Background(), q)
		if res.Status != ergast.StatusSuccess {
			t.Errorf("Answer(%q) status = %s", q, res.Status)
		}
	}
	if d.calls != 0 {
		t.Errorf("decider called %d times, want 0", d.calls)
	}
	if want := []string{"driver", "lap", "pitstop"}; !reflect.DeepEqual(f.calls, want) {
		t.Errorf("fetched %v, want %v", f.calls, want)
	}
}

func TestAnswer_AgentFallback(t *testing.T) {
	tests := []struct {
		name         string
		out          agentrun.Output
		err          error
		wantEndpoint ergast.Endpoint
		wantStatus   ergast.Status
		wantMessage  string
		wantFetch    bool
	}{
		{
			name:         "raw json",
			out:          agentrun.RawText(`{"endpoint":"result","status":"success","answer":{"winner":"VER"}}`),
			wantEndpoint: ergast.EndpointResult,
			wantStatus:   ergast.StatusSuccess,
			wantFetch:    true,
		},
		{
			name:         "fenced json",
			out:          agentrun.RawText("```json\n{\"endpoint\":\"season\"}\n```"),
			wantEndpoint: ergast.EndpointSeason,
			wantStatus:   ergast.StatusSuccess,
			wantFetch:    true,
		},
		{
			name:         "structured",
			out:          agentrun.Structured{Value: map[string]any{"endpoint": "driverstanding", "status": "success"}},
			wantEndpoint: ergast.EndpointDriverStanding,
			wantStatus:   ergast.StatusSuccess,
			wantFetch:    true,
		},
		{
			name:         "invented endpoint",
			out:          agentrun.RawText(`{"endpoint":"podium","status":"success","answer":{}}`),
			wantEndpoint: ergast.EndpointUnknown,
			wantStatus:   ergast.StatusFail,
			wantMessage:  "Invalid endpoint.",
			wantFetch:    true,
		},
		{
			name:         "explicit failure without endpoint",
			out:          agentrun.RawText(`{"status":"fail","answer":"I cannot answer that."}`),
			wantEndpoint: ergast.EndpointUnknown,
			wantStatus:   ergast.StatusFail,
			wantMessage:  UnresolvedMessage,
		},
		{
			name:         "prose",
			out:          agentrun.RawText("The results endpoint should help."),
			wantEndpoint: ergast.EndpointUnknown,
			wantStatus:   ergast.StatusFail,
			wantMessage:  UnresolvedMessage,
		},
		{
			name:         "list output",
			out:          agentrun.Structured{Value: []any{"result"}},
			wantEndpoint: ergast.EndpointUnknown,
			wantStatus:   ergast.StatusFail,
			wantMessage:  UnresolvedMessage,
		},
		{
			name:         "agent error",
			err:          context.DeadlineExceeded,
			wantEndpoint: ergast.EndpointUnknown,
			wantStatus:   ergast.StatusFail,
			wantMessage:  UnresolvedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{}
			d := &fakeDecider{out: tt.out, err: tt.err}
			res := NewService(f, d, nil).Answer(context.Background(), "Who won the championship in 2021?")

			if d.calls != 1 {
				t.Errorf("decider called %d times, want 1", d.calls)
			}
			if res.Endpoint != tt.wantEndpoint || res.Status != tt.wantStatus {
				t.Errorf("result = %s/%s, want %s/%s", res.Endpoint, res.Status, tt.wantEndpoint, tt.wantStatus)
			}
			answer, ok := res.Answer.(map[string]any)
			if !ok {
				t.Fatalf("answer is %T, want object", res.Answer)
			}
			if tt.wantMessage != "" && answer["message"] != tt.wantMessage {
				t.Errorf("message = %v, want %q", answer["message"], tt.wantMessage)
			}
			if got := len(f.calls) > 0; got != tt.wantFetch {
				t.Errorf("fetched = %v, want %v", got, tt.wantFetch)
			}
		})
	}
}

func TestAnswer_PromptCarriesQuestion(t *testing.T) {
	d := &fakeDecider{out: agentrun.RawText(`{"endpoint":"result"}`)}
	NewService(&fakeFetcher{}, d, nil).Answer(context.Background(), "Who won in Monaco?")
	if len(d.prompts) != 1 || d.prompts[0] != "User question: 'Who won in Monaco?'" {
		t.Errorf("prompts = %q", d.prompts)
	}
}

func TestAnswer_NoDecider(t *testing.T) {
	f := &fakeFetcher{}
	res := NewService(f, nil, nil).Answer(context.Background(), "Who won the championship?")
	if !reflect.DeepEqual(res, Unresolved()) {
		t.Errorf("result = %+v, want unresolved", res)
	}
	if len(f.calls) != 0 {
		t.Errorf("fetched %v without an endpoint", f.calls)
	}
}

func TestAnswer_UpstreamFailureIsNormalized(t *testing.T) {
	res := NewService(&fakeFetcher{fail: true}, nil, nil).Answer(context.Background(), "finishing status")
	want := ergast.Result{
		Endpoint: ergast.EndpointStatus,
		Status:   ergast.StatusFail,
		Answer:   map[string]any{"message": "Failed to fetch data: context deadline exceeded"},
	}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("result = %#v, want %#v", res, want)
	}
}

func TestAnswer_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := &fakeDecider{err: errors.New("boom")}
	s := NewService(&fakeFetcher{}, d, metrics.NewRecorder(reg))

	s.Answer(context.Background(), "drivers")
	s.Answer(context.Background(), "anything else")

	// keyword and failed
	if n := testutil.CollectAndCount(reg, "f1agent_endpoint_resolutions_total"); n != 2 {
		t.Errorf("resolution series = %d, want 2", n)
	}
	// only the keyword path reached upstream
	if n := testutil.CollectAndCount(reg, "f1agent_upstream_fetches_total"); n != 1 {
		t.Errorf("fetch series = %d, want 1", n)
	}
}
