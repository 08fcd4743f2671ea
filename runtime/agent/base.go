package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/enerflow/enerflow/runtime/fault"
)

// Base supplies the pieces of the Agent contract that are identical across
// domain agents: the tool table, compiled-schema input validation, the state
// machine and idempotent Close. Embedders implement Init (registering tools
// and settling on Ready or Degraded) and may override Close to release
// resources before delegating back.
type Base struct {
	name string

	mu      sync.RWMutex
	state   State
	tools   map[string]ToolDescriptor
	schemas map[string]*jsonschema.Schema
}

// NewBase constructs an uninitialized Base for the named agent.
func NewBase(name string) *Base {
	return &Base{
		name:    name,
		state:   StateUninitialized,
		tools:   make(map[string]ToolDescriptor),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Name returns the agent's registry name.
func (b *Base) Name() string { return b.name }

// State reports the current lifecycle state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// SetState transitions the agent. Closed is terminal; transitions out of it
// are ignored.
func (b *Base) SetState(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return
	}
	b.state = s
}

// RegisterTool adds a tool to the agent's table, compiling its input schema
// once. Registering a second tool under an existing name replaces it.
func (b *Base) RegisterTool(d ToolDescriptor) error {
	if d.Name == "" {
		return fault.New(fault.ConfigError, "tool name is required")
	}
	if d.Handler == nil {
		return fault.Newf(fault.ConfigError, "tool %q has no handler", d.Name)
	}
	var schema *jsonschema.Schema
	if d.InputSchema != nil {
		compiled, err := compileSchema(d.Name, d.InputSchema)
		if err != nil {
			return fault.Wrap(fault.ConfigError, fmt.Sprintf("tool %q input schema", d.Name), err)
		}
		schema = compiled
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tools[d.Name] = d
	if schema != nil {
		b.schemas[d.Name] = schema
	}
	return nil
}

// Tools returns a copy of the tool table.
func (b *Base) Tools() map[string]ToolDescriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]ToolDescriptor, len(b.tools))
	for name, d := range b.tools {
		out[name] = d
	}
	return out
}

// ToolNames returns the registered tool names in sorted order.
func (b *Base) ToolNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.tools))
	for name := range b.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke validates params against the tool's compiled schema and runs its
// handler. Unknown tools yield UnknownTool, schema violations
// InvalidArgument.
func (b *Base) Invoke(ctx context.Context, tool string, params map[string]any) (map[string]any, error) {
	b.mu.RLock()
	state := b.state
	d, ok := b.tools[tool]
	schema := b.schemas[tool]
	b.mu.RUnlock()

	if state == StateClosed {
		return nil, fault.Newf(fault.ToolFailure, "agent %s is closed", b.name)
	}
	if state == StateUninitialized {
		return nil, fault.Newf(fault.ToolFailure, "agent %s is not initialized", b.name)
	}
	if !ok {
		return nil, fault.Newf(fault.UnknownTool, "agent %s has no tool %q", b.name, tool)
	}
	if schema != nil {
		if err := validateParams(schema, params); err != nil {
			return nil, fault.Wrap(fault.InvalidArgument, fmt.Sprintf("tool %s parameters", tool), err)
		}
	}
	out, err := d.Handler(ctx, params)
	if err != nil {
		return nil, fault.From(err)
	}
	return out, nil
}

// Close marks the agent closed. Safe to call multiple times.
func (b *Base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	return nil
}

// compileSchema compiles a decoded JSON schema document for repeated
// validation.
func compileSchema(tool string, doc map[string]any) (*jsonschema.Schema, error) {
	// Round-trip so nested values use JSON-native types the validator expects.
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	resource := fmt.Sprintf("inline://%s/schema.json", tool)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resource, normalized); err != nil {
		return nil, err
	}
	return compiler.Compile(resource)
}

// validateParams checks params against the compiled schema. Params are
// round-tripped through JSON first so Go-native values (ints, structs)
// validate the same as wire payloads.
func validateParams(schema *jsonschema.Schema, params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}
