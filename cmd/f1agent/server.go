package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"f1agent/internal/agentrun"
	"f1agent/internal/drivers"
	"f1agent/internal/ergast"
	"f1agent/internal/fuzzy"
	"f1agent/internal/metrics"
	"f1agent/internal/query"
	"f1agent/internal/store"
)

type server struct {
	store    *store.Store
	upstream *ergast.Client
	queries  *query.Service
	drivers  *drivers.Service
	// asker answers /ask_agent; nil when no model is configured.
	asker query.Decider
}

func (s *server) routes(reg *prometheus.Registry) *http.ServeMux {
	httpMetrics := metrics.NewHTTP(reg)
	mux := http.NewServeMux()
	handle := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, httpMetrics.Wrap(name, pattern, h))
	}

	handle("GET /{$}", "root", s.handleRoot)
	handle("GET /health", "health", s.handleHealth)

	// Agent-backed queries
	handle("POST /agent-db", "agent_db", s.withSession(s.handleAgentDB))
	handle("POST /agent-api", "agent_api", s.handleAgentAPI)
	handle("POST /ask_agent", "ask_agent", s.handleAskAgent)

	// Upstream proxy
	handle("GET /drivers/{year}", "drivers", s.handleDrivers)
	// A literal "/filter" suffix would overlap with /drivers/manual/{id}.
	handle("GET /drivers/{year}/{view}", "drivers_filter", s.handleFilterDrivers)
	handle("GET /races/{year}", "races", s.handleRaces)
	handle("GET /constructors/{year}", "constructors", s.handleConstructors)

	// Local races
	handle("POST /races/{year}/store", "races_store", s.withSession(s.handleStoreRaces))
	handle("GET /races/local/{year}", "races_local", s.withSession(s.handleLocalRaces))
	handle("POST /races/manual", "race_create", s.withSession(s.handleCreateRace))
	handle("GET /races/manual/{id}", "race_get", s.withSession(s.handleGetRace))
	handle("PUT /races/manual/{id}", "race_update", s.withSession(s.handleUpdateRace))
	handle("DELETE /races/manual/{id}", "race_delete", s.withSession(s.handleDeleteRace))

	// Manual driver profiles
	handle("POST /drivers/manual", "profile_create", s.withSession(s.handleCreateProfile))
	handle("GET /drivers/manual/{id}", "profile_get", s.withSession(s.handleGetProfile))
	handle("PUT /drivers/manual/{id}", "profile_update", s.withSession(s.handleUpdateProfile))
	handle("DELETE /drivers/manual/{id}", "profile_delete", s.withSession(s.handleDeleteProfile))

	// Season imports
	handle("POST /drivers/import/{year}", "drivers_import", s.withSession(s.handleImportDrivers))
	handle("POST /constructors/import/{year}", "constructors_import", s.withSession(s.handleImportConstructors))
	handle("POST /drivers/link_constructors/{year}", "drivers_link", s.withSession(s.handleLinkConstructors))

	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *store.Session)

// withSession acquires a store session for the request and releases it when
// the handler returns. The session also travels in the request context for
// agent tools.
func (s *server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.store.Session(r.Context())
		if err != nil {
			slog.Error("failed to acquire store session", "err", err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		defer sess.Close()
		next(w, r.WithContext(store.WithSession(r.Context(), sess)), sess)
	}
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to F1 API App!"})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Warn("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Agent-backed queries ---

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func (s *server) handleAgentDB(w http.ResponseWriter, r *http.Request, _ *store.Session) {
	var req struct {
		Name   flexString `json:"name"`
		Season flexString `json:"season"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	found := s.drivers.Lookup(r.Context(), strings.TrimSpace(string(req.Name)), strings.TrimSpace(string(req.Season)))
	writeJSON(w, http.StatusOK, map[string][]drivers.Driver{"drivers": found})
}

func (s *server) handleAgentAPI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.queries.Answer(r.Context(), req.Query))
}

func (s *server) handleAskAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.asker == nil {
		writeError(w, http.StatusServiceUnavailable, "agent is not configured")
		return
	}

	out, err := s.asker.Run(r.Context(), req.Query)
	if err != nil {
		slog.Warn("ask_agent run failed", "err", err)
		writeError(w, http.StatusBadGateway, "agent run failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": outputText(out)})
}

func outputText(o agentrun.Output) string {
	switch v := o.(type) {
	case agentrun.RawText:
		return string(v)
	case agentrun.Structured:
		b, err := json.Marshal(v.Value)
		if err != nil {
			return fmt.Sprint(v.Value)
		}
		return string(b)
	default:
		return ""
	}
}

// --- Upstream proxy ---

func (s *server) handleDrivers(w http.ResponseWriter, r *http.Request) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	list, err := s.upstream.Drivers(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch drivers: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

var reservedFilterParams = map[string]bool{
	"search": true, "threshold": true, "limit": true, "offset": true, "sort_by": true, "sort_order": true,
}

func (s *server) handleFilterDrivers(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("view") != "filter" {
		http.NotFound(w, r)
		return
	}
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	opts, err := parseFilterOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.upstream.Drivers(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch drivers: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fuzzy.FilterDrivers(list, opts))
}

func parseFilterOptions(r *http.Request) (fuzzy.Options, error) {
	q := r.URL.Query()
	opts := fuzzy.Options{
		Search:    q.Get("search"),
		Threshold: fuzzy.DefaultThreshold,
		Limit:     20,
		SortBy:    "familyName",
		Fields:    map[string]string{},
	}

	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return opts, fmt.Errorf("threshold must be a number between 0 and 1")
		}
		opts.Threshold = f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("limit must be an integer >= 1")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("offset must be an integer >= 0")
		}
		opts.Offset = n
	}
	if v := q.Get("sort_by"); v != "" {
		opts.SortBy = v
	}
	opts.Desc = strings.EqualFold(q.Get("sort_order"), "desc")

	for k, vs := range q {
		if reservedFilterParams[k] || len(vs) == 0 {
			continue
		}
		opts.Fields[k] = vs[0]
	}
	return opts, nil
}

func (s *server) handleRaces(w http.ResponseWriter, r *http.Request) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	races, err := s.upstream.Races(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch races: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, races)
}

func (s *server) handleConstructors(w http.ResponseWriter, r *http.Request) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	list, err := s.upstream.Constructors(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Constructor detail not found: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// --- Local races ---

func (s *server) handleStoreRaces(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	upstreamRaces, err := s.upstream.Races(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch races: "+err.Error())
		return
	}

	races := make([]store.Race, 0, len(upstreamRaces))
	for _, ur := range upstreamRaces {
		races = append(races, store.RaceFromUpstream(ur))
	}
	n, err := sess.InsertRaces(r.Context(), races)
	if err != nil {
		slog.Error("failed to store races", "year", year, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store races")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "races_added": n})
}

func (s *server) handleLocalRaces(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	races, err := sess.RacesBySeason(r.Context(), strconv.Itoa(year))
	if err != nil {
		slog.Error("failed to list races", "year", year, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list races")
		return
	}
	writeJSON(w, http.StatusOK, races)
}

func decodeRace(w http.ResponseWriter, r *http.Request) (store.Race, bool) {
	var race store.Race
	if err := json.NewDecoder(r.Body).Decode(&race); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return race, false
	}
	if race.Season == "" || race.Date == "" {
		writeError(w, http.StatusBadRequest, "season and date are required")
		return race, false
	}
	race.ID = 0
	return race, true
}

func (s *server) handleCreateRace(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	race, ok := decodeRace(w, r)
	if !ok {
		return
	}
	created, err := sess.CreateRace(r.Context(), race)
	if err != nil {
		slog.Error("failed to create race", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create race")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *server) handleGetRace(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	race, err := sess.GetRace(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Race")
		return
	}
	writeJSON(w, http.StatusOK, race)
}

func (s *server) handleUpdateRace(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	race, ok := decodeRace(w, r)
	if !ok {
		return
	}
	updated, err := sess.UpdateRace(r.Context(), id, race)
	if err != nil {
		writeStoreError(w, err, "Race")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleDeleteRace(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteRace(r.Context(), id); err != nil {
		writeStoreError(w, err, "Race")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "Success", "delete_id": id})
}

// --- Manual driver profiles ---

func decodeProfile(w http.ResponseWriter, r *http.Request) (store.DriverProfile, bool) {
	var p store.DriverProfile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return p, false
	}
	if p.DriverRef == "" || p.GivenName == "" || p.FamilyName == "" {
		writeError(w, http.StatusBadRequest, "driverId, givenName and familyName are required")
		return p, false
	}
	p.ID = 0
	return p, true
}

func (s *server) handleCreateProfile(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	p, ok := decodeProfile(w, r)
	if !ok {
		return
	}
	created, err := sess.CreateProfile(r.Context(), p)
	if err != nil {
		slog.Error("failed to create driver", "driver", p.DriverRef, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create driver")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := sess.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Driver")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, ok := decodeProfile(w, r)
	if !ok {
		return
	}
	updated, err := sess.UpdateProfile(r.Context(), id, p)
	if err != nil {
		writeStoreError(w, err, "Driver")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *server) handleDeleteProfile(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteProfile(r.Context(), id); err != nil {
		writeStoreError(w, err, "Driver")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "Success", "deleted_id": id})
}

// --- Season imports ---

func (s *server) handleImportDrivers(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	list, err := s.upstream.Drivers(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch drivers: "+err.Error())
		return
	}
	n, err := sess.ImportDrivers(r.Context(), strconv.Itoa(year), list)
	if err != nil {
		slog.Error("failed to import drivers", "year", year, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to import drivers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "drivers_added": n})
}

func (s *server) handleImportConstructors(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	list, err := s.upstream.Constructors(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch constructors: "+err.Error())
		return
	}
	n, err := sess.ImportConstructors(r.Context(), strconv.Itoa(year), list)
	if err != nil {
		slog.Error("failed to import constructors", "year", year, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to import constructors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "constructors_added": n})
}

func (s *server) handleLinkConstructors(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	year, ok := pathInt(w, r, "year")
	if !ok {
		return
	}
	lists, err := s.upstream.DriverStandings(r.Context(), year)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to fetch driver standings: "+err.Error())
		return
	}
	if len(lists) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "failed", "message": "No driver standings found for this year."})
		return
	}
	n, err := sess.LinkConstructors(r.Context(), strconv.Itoa(year), lists)
	if err != nil {
		slog.Error("failed to link constructors", "year", year, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to link constructors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "drivers_linked": n})
}

// --- Helpers ---

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, r.PathValue(name)))
		return 0, false
	}
	return n, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

func writeStoreError(w http.ResponseWriter, err error, kind string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, kind+" not found")
		return
	}
	slog.Error("store operation failed", "kind", kind, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
