package ergast

import "fmt"

// Endpoint names one upstream resource a free-text query can be routed to.
type Endpoint string

const (
	EndpointSeason              Endpoint = "season"
	EndpointCircuit             Endpoint = "circuit"
	EndpointRace                Endpoint = "race"
	EndpointConstructor         Endpoint = "constructor"
	EndpointDriver              Endpoint = "driver"
	EndpointResult              Endpoint = "result"
	EndpointSprint              Endpoint = "sprint"
	EndpointQualifying          Endpoint = "qualifying"
	EndpointPitstop             Endpoint = "pitstop"
	EndpointLap                 Endpoint = "lap"
	EndpointDriverStanding      Endpoint = "driverstanding"
	EndpointConstructorStanding Endpoint = "constructorstanding"
	EndpointStatus              Endpoint = "status"

	// EndpointUnknown is reported when no endpoint could be determined.
	EndpointUnknown Endpoint = "unknown"
)

// Endpoints is the closed set of routable endpoints.
var Endpoints = []Endpoint{
	EndpointSeason,
	EndpointCircuit,
	EndpointRace,
	EndpointConstructor,
	EndpointDriver,
	EndpointResult,
	EndpointSprint,
	EndpointQualifying,
	EndpointPitstop,
	EndpointLap,
	EndpointDriverStanding,
	EndpointConstructorStanding,
	EndpointStatus,
}

// ParseEndpoint reports whether s is one of the routable endpoints.
func ParseEndpoint(s string) (Endpoint, bool) {
	for _, e := range Endpoints {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

// buildURLs expands the endpoint table for cfg. Season-scoped resources use
// cfg.Season, per-race resources additionally use cfg.Round.
func buildURLs(cfg Config) map[Endpoint]string {
	base, season, round := cfg.BaseURL, cfg.Season, cfg.Round
	return map[Endpoint]string{
		EndpointSeason:              base + "/seasons/",
		EndpointCircuit:             base + "/circuits/",
		EndpointRace:                fmt.Sprintf("%s/%s/races/", base, season),
		EndpointConstructor:         fmt.Sprintf("%s/%s/constructors/", base, season),
		EndpointDriver:              fmt.Sprintf("%s/%s/drivers/", base, season),
		EndpointResult:              fmt.Sprintf("%s/%s/results/", base, season),
		EndpointSprint:              fmt.Sprintf("%s/%s/sprint/", base, season),
		EndpointQualifying:          fmt.Sprintf("%s/%s/qualifying/", base, season),
		EndpointPitstop:             fmt.Sprintf("%s/%s/%s/pitstops/", base, season, round),
		EndpointLap:                 fmt.Sprintf("%s/%s/%s/laps/", base, season, round),
		EndpointDriverStanding:      fmt.Sprintf("%s/%s/driverstandings/", base, season),
		EndpointConstructorStanding: fmt.Sprintf("%s/%s/constructorstandings/", base, season),
		EndpointStatus:              base + "/status/",
	}
}
