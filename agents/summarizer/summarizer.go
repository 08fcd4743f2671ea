// Package summarizer implements the summarization agent. Its tool returns
// envelope-shaped output, exercising the engine's wire-shape normalization.
package summarizer

import (
	"context"

	"github.com/enerflow/enerflow/runtime/agent"
)

// Name is the agent's registry name.
const Name = "summarization"

const maxSummaryRunes = 140

// Agent serves text summarization.
type Agent struct {
	*agent.Base
}

// New constructs the summarization agent.
func New() *Agent {
	return &Agent{Base: agent.NewBase(Name)}
}

// Factory is the registry factory for the summarization agent.
func Factory(context.Context) (agent.Agent, error) {
	return New(), nil
}

// Init registers the agent's tools.
func (a *Agent) Init(context.Context) error {
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "summarize_text",
		Description: "Produces a short summary of the given text.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
		Handler: a.summarizeText,
	}); err != nil {
		return err
	}
	a.SetState(agent.StateReady)
	return nil
}

func (a *Agent) summarizeText(_ context.Context, params map[string]any) (map[string]any, error) {
	text, _ := params["text"].(string)
	summary := text
	if runes := []rune(text); len(runes) > maxSummaryRunes {
		summary = string(runes[:maxSummaryRunes]) + "..."
	}
	return agent.Envelope(map[string]any{
		"summary":         summary,
		"original_length": len(text),
	}), nil
}
