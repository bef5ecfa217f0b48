package drivers

import (
	"fmt"
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"f1agent/prompts"
)

// AgentName is the name of the driver lookup agent.
const AgentName = "f1_driver_agent"

// GetDriversArgs are the arguments of the get_drivers tool.
type GetDriversArgs struct {
	Name   string `json:"name,omitempty" jsonschema:"Substring of the driver's given or family name, case-insensitive. Empty matches every driver."`
	Season string `json:"season,omitempty" jsonschema:"Season year, for example '2023'. Empty matches every season."`
}

// GetDriversResult is returned by the get_drivers tool.
type GetDriversResult struct {
	Drivers []Driver `json:"drivers"`
	Error   string   `json:"error,omitempty"`
}

// NewAgent builds the driver lookup agent. Its get_drivers tool queries the
// store through s.
func NewAgent(llm adkmodel.LLM, s *Service) (agent.Agent, error) {
	getDriversToolDef, err := functiontool.New(functiontool.Config{
		Name:        "get_drivers",
		Description: "Search stored Formula 1 drivers by name and season. Returns the matching drivers.",
	}, getDriversTool(s))
	if err != nil {
		return nil, err
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        AgentName,
		Description: "Formula 1 driver data retrieval agent that searches stored drivers by name and season.",
		Instruction: prompts.Drivers,
		Model:       llm,
		Tools:       []tool.Tool{getDriversToolDef},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", AgentName, err)
	}
	return a, nil
}

func getDriversTool(s *Service) func(tool.Context, GetDriversArgs) (GetDriversResult, error) {
	return func(ctx tool.Context, args GetDriversArgs) (GetDriversResult, error) {
		drivers, err := s.Find(ctx, args.Name, args.Season)
		if err != nil {
			slog.Warn("get_drivers failed", "name", args.Name, "season", args.Season, "err", err)
			return GetDriversResult{Drivers: []Driver{}, Error: err.Error()}, nil
		}
		return GetDriversResult{Drivers: drivers}, nil
	}
}
