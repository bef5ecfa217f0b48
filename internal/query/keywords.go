// Package query answers free-text Formula 1 questions by picking one of the
// upstream endpoints and fetching it. A keyword table is consulted first;
// the LLM agent is only asked when no keyword matches.
package query

import (
	"strings"

	"f1agent/internal/ergast"
)

// Keyword pairs a lowercase substring with the endpoint it selects.
type Keyword struct {
	Text     string
	Endpoint ergast.Endpoint
}

// Keywords is consulted in order and the first match wins. Because
// "driver" precedes "driverstanding", a query mentioning driver standings
// resolves to the driver endpoint; "constructorstanding" behaves the same
// way. Reordering changes answers.
var Keywords = []Keyword{
	{"driver", ergast.EndpointDriver},
	{"drivers", ergast.EndpointDriver},
	{"race", ergast.EndpointRace},
	{"races", ergast.EndpointRace},
	{"circuit", ergast.EndpointCircuit},
	{"constructor", ergast.EndpointConstructor},
	{"result", ergast.EndpointResult},
	{"sprint", ergast.EndpointSprint},
	{"qualifying", ergast.EndpointQualifying},
	{"pitstop", ergast.EndpointPitstop},
	{"lap", ergast.EndpointLap},
	{"driverstanding", ergast.EndpointDriverStanding},
	{"constructorstanding", ergast.EndpointConstructorStanding},
	{"season", ergast.EndpointSeason},
	{"status", ergast.EndpointStatus},
}

// Resolve returns the endpoint of the first keyword contained in text,
// compared case-insensitively.
func Resolve(text string) (ergast.Endpoint, bool) {
	lower := strings.ToLower(text)
	for _, k := range Keywords {
		if strings.Contains(lower, k.Text) {
			return k.Endpoint, true
		}
	}
	return "", false
}
