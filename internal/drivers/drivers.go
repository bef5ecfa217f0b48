// Package drivers looks up stored season drivers by name and season. The
// lookup is first delegated to an LLM agent with a get_drivers tool; when
// the agent fails or answers in a shape that cannot be read, the same
// query runs directly against the store.
package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"f1agent/internal/agentrun"
	"f1agent/internal/metrics"
	"f1agent/internal/store"
)

// Driver is a stored season driver as returned to API callers.
type Driver struct {
	DriverID        string `json:"driverId"`
	PermanentNumber string `json:"permanentNumber,omitempty"`
	Code            string `json:"code,omitempty"`
	GivenName       string `json:"givenName"`
	FamilyName      string `json:"familyName"`
	Nationality     string `json:"nationality"`
}

// FromRow maps a stored row. DriverID is the row id.
func FromRow(d store.SeasonDriver) Driver {
	return Driver{
		DriverID:        strconv.FormatInt(d.ID, 10),
		PermanentNumber: d.PermanentNumber,
		Code:            d.Code,
		GivenName:       d.GivenName,
		FamilyName:      d.FamilyName,
		Nationality:     d.Nationality,
	}
}

// Decider runs the driver agent. *agentrun.Runner satisfies it.
type Decider interface {
	Run(ctx context.Context, prompt string) (agentrun.Output, error)
}

// Sessions hands out store sessions. *store.Store satisfies it.
type Sessions interface {
	Session(ctx context.Context) (*store.Session, error)
}

// Service performs driver lookups.
type Service struct {
	sessions Sessions
	decider  Decider
	metrics  *metrics.Recorder
}

// NewService returns a Service. A nil decider always uses the store
// directly.
func NewService(sessions Sessions, d Decider, rec *metrics.Recorder) *Service {
	return &Service{sessions: sessions, decider: d, metrics: rec}
}

// SetDecider attaches the driver agent. The agent's tool needs the
// service, so the two are wired after construction.
func (s *Service) SetDecider(d Decider) { s.decider = d }

// Lookup returns the drivers whose given or family name contains name and
// whose season equals season. Empty arguments do not filter. It never
// fails: agent problems fall back to the store, and store problems are
// logged and yield an empty list.
func (s *Service) Lookup(ctx context.Context, name, season string) []Driver {
	if s.decider != nil {
		drivers, err := s.askAgent(ctx, name, season)
		if err == nil {
			s.metrics.DriverLookup(metrics.PathAgent)
			return drivers
		}
		slog.Warn("driver agent lookup failed, querying store", "err", err)
	}

	s.metrics.DriverLookup(metrics.PathFallback)
	drivers, err := s.Find(ctx, name, season)
	if err != nil {
		slog.Error("driver lookup failed", "name", name, "season", season, "err", err)
		return []Driver{}
	}
	return drivers
}

func (s *Service) askAgent(ctx context.Context, name, season string) ([]Driver, error) {
	out, err := s.decider.Run(ctx, fmt.Sprintf("Find drivers with name='%s' and season='%s'.", name, season))
	if err != nil {
		return nil, err
	}
	return parseOutput(out)
}

// Find queries the store. It reuses the session carried by ctx and
// acquires its own otherwise.
func (s *Service) Find(ctx context.Context, name, season string) ([]Driver, error) {
	sess, ok := store.SessionFrom(ctx)
	if !ok {
		var err error
		sess, err = s.sessions.Session(ctx)
		if err != nil {
			return nil, err
		}
		defer sess.Close()
	}

	rows, err := sess.FindDrivers(ctx, store.DriverFilter{Name: name, Season: season})
	if err != nil {
		return nil, err
	}
	drivers := make([]Driver, 0, len(rows))
	for _, r := range rows {
		drivers = append(drivers, FromRow(r))
	}
	return drivers, nil
}

var errUnreadable = errors.New("unreadable driver list")

// parseOutput reads the agent's answer. Accepted shapes are a list of
// drivers, or an object holding that list under "get_drivers_response" or
// "drivers". List items may be objects or JSON-encoded objects.
func parseOutput(out agentrun.Output) ([]Driver, error) {
	v, err := agentrun.Decode(out)
	if err != nil {
		return nil, err
	}

	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		list, ok := t["get_drivers_response"]
		if !ok {
			list, ok = t["drivers"]
		}
		if !ok {
			return nil, fmt.Errorf("%w: no driver list key", errUnreadable)
		}
		if items, ok = list.([]any); !ok {
			return nil, fmt.Errorf("%w: driver list is %T", errUnreadable, list)
		}
	default:
		return nil, fmt.Errorf("%w: got %T", errUnreadable, v)
	}

	drivers := make([]Driver, 0, len(items))
	for i, item := range items {
		var raw []byte
		switch t := item.(type) {
		case string:
			raw = []byte(t)
		case map[string]any:
			if raw, err = json.Marshal(t); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: item %d is %T", errUnreadable, i, item)
		}
		var d Driver
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", errUnreadable, i, err)
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}
