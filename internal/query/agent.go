package query

import (
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"f1agent/internal/ergast"
	"f1agent/prompts"
)

// AgentName is the name of the endpoint-selecting agent.
const AgentName = "f1_endpoint_agent"

// FetchEndpointArgs are the arguments of the fetch_endpoint_data tool.
type FetchEndpointArgs struct {
	Endpoint string `json:"endpoint,omitempty" jsonschema:"One of: season, circuit, race, constructor, driver, result, sprint, qualifying, pitstop, lap, driverstanding, constructorstanding, status."`
}

// NewAgent builds the endpoint-selecting agent with a fetch_endpoint_data
// tool backed by f.
func NewAgent(llm adkmodel.LLM, f Fetcher) (agent.Agent, error) {
	tools, err := createTools(f)
	if err != nil {
		return nil, err
	}
	a, err := llmagent.New(llmagent.Config{
		Name:        AgentName,
		Description: "Formula 1 statistics agent that picks the Ergast API endpoint answering a question and fetches it.",
		Instruction: prompts.Endpoint,
		Model:       llm,
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", AgentName, err)
	}
	return a, nil
}

func createTools(f Fetcher) ([]tool.Tool, error) {
	fetchToolDef, err := functiontool.New(functiontool.Config{
		Name:        "fetch_endpoint_data",
		Description: "Fetch the Formula 1 data behind one Ergast API endpoint. Returns the endpoint, a success or fail status, and the data or the failure reason.",
	}, fetchEndpointTool(f))
	if err != nil {
		return nil, err
	}
	return []tool.Tool{fetchToolDef}, nil
}

func fetchEndpointTool(f Fetcher) func(tool.Context, FetchEndpointArgs) (ergast.Result, error) {
	return func(ctx tool.Context, args FetchEndpointArgs) (ergast.Result, error) {
		return f.Fetch(ctx, args.Endpoint), nil
	}
}
