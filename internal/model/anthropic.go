// Package model adapts non-Gemini model vendors to the ADK LLM interface.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

// defaultMaxTokens caps a response when the request does not set a limit.
const defaultMaxTokens = 4096

// Claude implements adkmodel.LLM on the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	modelName string
}

// NewClaude returns a Claude model. Extra options are passed to the
// Anthropic client after the API key.
func NewClaude(modelName, apiKey string, opts ...option.RequestOption) *Claude {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Claude{client: anthropic.NewClient(opts...), modelName: modelName}
}

// Name returns the model name.
func (m *Claude) Name() string { return m.modelName }

// GenerateContent sends one Messages request. Streaming is not used; the
// full reply is yielded once whatever stream says.
func (m *Claude) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		params, err := m.params(req)
		if err != nil {
			yield(nil, fmt.Errorf("convert request: %w", err))
			return
		}

		slog.Debug("anthropic request", "model", m.modelName, "messages", len(params.Messages), "tools", len(params.Tools))
		msg, err := m.client.Messages.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic API error: %w", err))
			return
		}
		resp := fromMessage(msg)
		slog.Debug("anthropic response",
			"stop_reason", msg.StopReason,
			"parts", len(resp.Content.Parts),
			"input_tokens", msg.Usage.InputTokens,
			"output_tokens", msg.Usage.OutputTokens)
		yield(resp, nil)
	}
}

func (m *Claude) params(req *adkmodel.LLMRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: defaultMaxTokens,
	}

	var system []anthropic.TextBlockParam
	if req.Config != nil && req.Config.SystemInstruction != nil {
		system = append(system, textBlocks(req.Config.SystemInstruction)...)
	}
	for _, c := range req.Contents {
		if c == nil {
			continue
		}
		if c.Role == "system" {
			system = append(system, textBlocks(c)...)
			continue
		}
		msg, ok, err := toMessage(c)
		if err != nil {
			return params, err
		}
		if ok {
			params.Messages = append(params.Messages, msg)
		}
	}
	if len(system) > 0 {
		params.System = system
	}

	if len(req.Tools) > 0 {
		tools, err := toTools(req.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			params.TopP = anthropic.Float(float64(*cfg.TopP))
		}
		if cfg.MaxOutputTokens > 0 {
			params.MaxTokens = int64(cfg.MaxOutputTokens)
		}
	}
	return params, nil
}

func textBlocks(c *genai.Content) []anthropic.TextBlockParam {
	var out []anthropic.TextBlockParam
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			out = append(out, anthropic.TextBlockParam{Text: p.Text})
		}
	}
	return out
}

// toMessage converts c. Contents without any convertible part report false.
func toMessage(c *genai.Content) (anthropic.MessageParam, bool, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range c.Parts {
		switch {
		case p == nil:
		case p.FunctionCall != nil:
			args := p.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(p.FunctionCall.ID, args, p.FunctionCall.Name))
		case p.FunctionResponse != nil:
			out, err := json.Marshal(p.FunctionResponse.Response)
			if err != nil {
				return anthropic.MessageParam{}, false, fmt.Errorf("encode %s response: %w", p.FunctionResponse.Name, err)
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(p.FunctionResponse.ID, string(out), false))
		case p.Text != "" && !p.Thought:
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		}
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, false, nil
	}
	if c.Role == genai.RoleModel || c.Role == "assistant" {
		return anthropic.NewAssistantMessage(blocks...), true, nil
	}
	return anthropic.NewUserMessage(blocks...), true, nil
}

type declarer interface {
	Declaration() *genai.FunctionDeclaration
}

// toTools converts the request's tools. Tools that carry no function
// declaration are skipped.
func toTools(tools map[string]any) ([]anthropic.ToolUnionParam, error) {
	var out []anthropic.ToolUnionParam
	for name, t := range tools {
		var decl *genai.FunctionDeclaration
		switch v := t.(type) {
		case *genai.FunctionDeclaration:
			decl = v
		case declarer:
			decl = v.Declaration()
		}
		if decl == nil {
			slog.Warn("skipping tool without declaration", "tool", name, "type", fmt.Sprintf("%T", t))
			continue
		}

		schema, err := inputSchema(decl)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        name,
			Description: anthropic.String(decl.Description),
			InputSchema: schema,
		}})
	}
	return out, nil
}

func inputSchema(decl *genai.FunctionDeclaration) (anthropic.ToolInputSchemaParam, error) {
	schema := anthropic.ToolInputSchemaParam{Type: "object"}

	var src any
	switch {
	case decl.ParametersJsonSchema != nil:
		src = decl.ParametersJsonSchema
	case decl.Parameters != nil:
		src = decl.Parameters
	default:
		return schema, nil
	}

	raw, err := json.Marshal(src)
	if err != nil {
		return schema, err
	}
	var m struct {
		Properties map[string]any `json:"properties"`
		Required   []string       `json:"required"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return schema, err
	}
	if m.Properties != nil {
		schema.Properties = m.Properties
	}
	schema.Required = m.Required
	return schema, nil
}

func fromMessage(msg *anthropic.Message) *adkmodel.LLMResponse {
	var parts []*genai.Part
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			parts = append(parts, &genai.Part{Text: block.Text})
		case "tool_use":
			args := map[string]any{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					slog.Warn("discarding unparseable tool input", "tool", block.Name, "err", err)
				}
			}
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   block.ID,
				Name: block.Name,
				Args: args,
			}})
		}
	}

	resp := &adkmodel.LLMResponse{
		Content: &genai.Content{Role: genai.RoleModel, Parts: parts},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(msg.Usage.InputTokens),
			CandidatesTokenCount: int32(msg.Usage.OutputTokens),
			TotalTokenCount:      int32(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	switch msg.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		resp.FinishReason = genai.FinishReasonStop
		resp.TurnComplete = true
	case anthropic.StopReasonToolUse:
		// The tool still has to run.
		resp.FinishReason = genai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		resp.FinishReason = genai.FinishReasonMaxTokens
		resp.TurnComplete = true
	}
	return resp
}
