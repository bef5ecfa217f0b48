// Package ergast is a client for the Ergast-compatible Formula 1 statistics
// API. It routes the fixed set of query endpoints and decodes the MRData
// envelope for the typed season lookups.
package ergast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"f1agent/internal/trace"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %s for url %s", e.Status, e.URL)
}

// Client issues unauthenticated GETs against the upstream API.
type Client struct {
	cfg  Config
	urls map[Endpoint]string
	http *http.Client
}

// NewClient builds the endpoint table for cfg. The table is fixed for the
// lifetime of the client. The default redirect policy is kept, so redirects
// are followed.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		urls: buildURLs(cfg),
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config { return c.cfg }

// URL returns the upstream URL for e, or "" when e is not routable.
func (c *Client) URL(e Endpoint) string { return c.urls[e] }

// Fetch retrieves the resource behind endpoint. It never returns an error:
// failures are reported through Result.Status with a textual Answer. An
// absent or unknown endpoint fails without touching the network.
func (c *Client) Fetch(ctx context.Context, endpoint string) Result {
	e, ok := ParseEndpoint(endpoint)
	if !ok {
		slog.Debug("refusing to fetch unknown endpoint", "endpoint", endpoint)
		return Result{Endpoint: EndpointUnknown, Status: StatusFail, Answer: "Invalid endpoint."}
	}

	url := c.urls[e]
	start := time.Now()
	var body any
	if err := c.get(ctx, url, &body); err != nil {
		slog.Warn("upstream fetch failed", "trace_id", trace.IDFrom(ctx), "endpoint", e, "url", url, "ms", time.Since(start).Milliseconds(), "err", err)
		return Result{Endpoint: e, Status: StatusFail, Answer: fmt.Sprintf("Failed to fetch data: %v", err)}
	}
	slog.Info("upstream fetch ok", "trace_id", trace.IDFrom(ctx), "endpoint", e, "ms", time.Since(start).Milliseconds())
	return Result{Endpoint: e, Status: StatusSuccess, Answer: body}
}

// Drivers lists the drivers entered in a season.
func (c *Client) Drivers(ctx context.Context, year int) ([]Driver, error) {
	var env envelope
	if err := c.get(ctx, fmt.Sprintf("%s/%d/drivers.json", c.cfg.BaseURL, year), &env); err != nil {
		return nil, fmt.Errorf("fetch drivers for %d: %w", year, err)
	}
	return env.MRData.DriverTable.Drivers, nil
}

// Races lists the calendar of a season.
func (c *Client) Races(ctx context.Context, year int) ([]Race, error) {
	var env envelope
	if err := c.get(ctx, fmt.Sprintf("%s/%d/races.json", c.cfg.BaseURL, year), &env); err != nil {
		return nil, fmt.Errorf("fetch races for %d: %w", year, err)
	}
	return env.MRData.RaceTable.Races, nil
}

// Constructors lists the teams entered in a season.
func (c *Client) Constructors(ctx context.Context, year int) ([]Constructor, error) {
	var env envelope
	if err := c.get(ctx, fmt.Sprintf("%s/%d/constructors.json", c.cfg.BaseURL, year), &env); err != nil {
		return nil, fmt.Errorf("fetch constructors for %d: %w", year, err)
	}
	return env.MRData.ConstructorTable.Constructors, nil
}

// DriverStandings returns the championship standings lists of a season.
func (c *Client) DriverStandings(ctx context.Context, year int) ([]StandingsList, error) {
	var env envelope
	if err := c.get(ctx, fmt.Sprintf("%s/%d/driverStandings.json", c.cfg.BaseURL, year), &env); err != nil {
		return nil, fmt.Errorf("fetch driver standings for %d: %w", year, err)
	}
	return env.MRData.StandingsTable.StandingsLists, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}
