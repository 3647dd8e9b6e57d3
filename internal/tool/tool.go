// Package tool defines the tool interface and registry the agent executes
// against. Tools validate their arguments before touching any backend so
// bad input never causes partial writes.
package tool

import (
	"context"
	"encoding/json"
)

// Scope declares what kind of access a tool requires.
// Every tool must declare at least one scope.
type Scope string

// Scope values for tool access requirements.
const (
	ScopeReadOnly  Scope = "read_only"
	ScopeReadWrite Scope = "read_write"
	ScopeNetwork   Scope = "network"
)

// Tool is the interface all agent tools implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Schema returns a JSON Schema describing the tool's parameters.
	Schema() json.RawMessage

	// Scopes returns the access scopes this tool requires.
	// Must return at least one scope.
	Scopes() []Scope

	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args json.RawMessage) (Output, error)
}

// Output is the result of a tool execution.
type Output struct {
	// Content is the output text from the tool.
	Content string

	// IsError indicates whether the output represents an error condition.
	IsError bool
}
