package ergast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.Handler, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return NewClient(cfg)
}

func TestBuildURLs(t *testing.T) {
	cfg := Config{BaseURL: "https://example.test/f1", Season: "2024", Round: "3", Timeout: time.Second}
	urls := buildURLs(cfg)

	if len(urls) != len(Endpoints) {
		t.Fatalf("got %d urls, want one per endpoint (%d)", len(urls), len(Endpoints))
	}
	tests := map[Endpoint]string{
		EndpointSeason:         "https://example.test/f1/seasons/",
		EndpointDriver:         "https://example.test/f1/2024/drivers/",
		EndpointPitstop:        "https://example.test/f1/2024/3/pitstops/",
		EndpointLap:            "https://example.test/f1/2024/3/laps/",
		EndpointDriverStanding: "https://example.test/f1/2024/driverstandings/",
		EndpointStatus:         "https://example.test/f1/status/",
	}
	for e, want := range tests {
		if got := urls[e]; got != want {
			t.Errorf("url for %s = %q, want %q", e, got, want)
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	for _, e := range Endpoints {
		if got, ok := ParseEndpoint(string(e)); !ok || got != e {
			t.Errorf("ParseEndpoint(%q) = %q, %v", e, got, ok)
		}
	}
	for _, s := range []string{"", "unknown", "Driver", "drivers", "weather"} {
		if _, ok := ParseEndpoint(s); ok {
			t.Errorf("ParseEndpoint(%q) should not match", s)
		}
	}
}

func TestFetch_Success(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"MRData":{"total":"139"}}`))
	}), 0)

	res := c.Fetch(context.Background(), "status")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, answer = %v", res.Status, res.Answer)
	}
	if res.Endpoint != EndpointStatus {
		t.Errorf("endpoint = %q, want status", res.Endpoint)
	}
	body, ok := res.Answer.(map[string]any)
	if !ok {
		t.Fatalf("answer type = %T, want map", res.Answer)
	}
	if _, ok := body["MRData"]; !ok {
		t.Errorf("answer missing MRData: %v", body)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/seasons/":
			http.Redirect(w, r, "/seasons", http.StatusMovedPermanently)
		case "/seasons":
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	}), 0)

	res := c.Fetch(context.Background(), "season")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %q, answer = %v", res.Status, res.Answer)
	}
}

func TestFetch_Non2xx(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}), 0)

	res := c.Fetch(context.Background(), "circuit")
	if res.Status != StatusFail {
		t.Fatalf("status = %q, want fail", res.Status)
	}
	msg, _ := res.Answer.(string)
	if !strings.HasPrefix(msg, "Failed to fetch data: ") || !strings.Contains(msg, "503") {
		t.Errorf("answer = %q", msg)
	}
}

func TestFetch_Timeout(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), 50*time.Millisecond)

	res := c.Fetch(context.Background(), "status")
	if res.Status != StatusFail || res.Endpoint != EndpointStatus {
		t.Fatalf("got %+v, want status/fail", res)
	}
	if msg, _ := res.Answer.(string); !strings.HasPrefix(msg, "Failed to fetch data: ") {
		t.Errorf("answer = %q", msg)
	}
}

func TestFetch_UnknownEndpointSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), 0)

	for _, ep := range []string{"", "weather", "unknown"} {
		res := c.Fetch(context.Background(), ep)
		if res.Status != StatusFail || res.Endpoint != EndpointUnknown {
			t.Errorf("Fetch(%q) = %+v, want unknown/fail", ep, res)
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("upstream called %d times, want 0", n)
	}
}

func TestDrivers(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2023/drivers.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"MRData":{"DriverTable":{"Drivers":[
			{"driverId":"hamilton","permanentNumber":"44","code":"HAM","givenName":"Lewis","familyName":"Hamilton","nationality":"British"},
			{"driverId":"sargeant","permanentNumber":"2","code":"SAR","givenName":"Logan","familyName":"Sargeant","nationality":"American"}
		]}}}`))
	}), 0)

	drivers, err := c.Drivers(context.Background(), 2023)
	if err != nil {
		t.Fatalf("Drivers: %v", err)
	}
	if len(drivers) != 2 {
		t.Fatalf("got %d drivers, want 2", len(drivers))
	}
	if drivers[0].Code != "HAM" || drivers[1].FamilyName != "Sargeant" {
		t.Errorf("unexpected drivers: %+v", drivers)
	}
}

func TestRaces_StatusError(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler(), 0)

	_, err := c.Races(context.Background(), 1900)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", se.StatusCode)
	}
}

func TestDriverStandings(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"MRData":{"StandingsTable":{"StandingsLists":[{"season":"2023","round":"22","DriverStandings":[
			{"position":"1","points":"575","Driver":{"driverId":"max_verstappen","permanentNumber":"33"},"Constructors":[{"constructorId":"red_bull","name":"Red Bull"}]}
		]}]}}}`))
	}), 0)

	lists, err := c.DriverStandings(context.Background(), 2023)
	if err != nil {
		t.Fatalf("DriverStandings: %v", err)
	}
	if len(lists) != 1 || len(lists[0].DriverStandings) != 1 {
		t.Fatalf("unexpected standings: %+v", lists)
	}
	s := lists[0].DriverStandings[0]
	if s.Driver.PermanentNumber != "33" || s.Constructors[0].ConstructorID != "red_bull" {
		t.Errorf("unexpected standing: %+v", s)
	}
}

func TestDriverField(t *testing.T) {
	d := Driver{DriverID: "alonso", Code: "ALO", GivenName: "Fernando", FamilyName: "Alonso", Nationality: "Spanish"}
	if v, ok := d.Field("code"); !ok || v != "ALO" {
		t.Errorf("Field(code) = %q, %v", v, ok)
	}
	if _, ok := d.Field("permanentNumber"); ok {
		t.Error("empty field should report false")
	}
	if _, ok := d.Field("team"); ok {
		t.Error("unknown field should report false")
	}
}
