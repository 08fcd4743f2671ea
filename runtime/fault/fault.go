// Package fault defines the structured errors shared by the orchestration
// runtime. Every failure surfaced by the registry, planners, engine and agents
// carries a Kind so callers can branch on the failure class without string
// matching, plus an optional cause preserved for errors.Is/errors.As chains.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a runtime failure.
type Kind string

const (
	// UnknownAgent reports a reference to an agent the registry or engine
	// does not know about.
	UnknownAgent Kind = "unknown_agent"
	// UnknownTool reports a tool name the target agent does not expose.
	UnknownTool Kind = "unknown_tool"
	// InvalidArgument reports tool parameters that failed schema validation.
	InvalidArgument Kind = "invalid_argument"
	// DependencyUnavailable reports an external collaborator an agent needs
	// but cannot reach.
	DependencyUnavailable Kind = "dependency_unavailable"
	// ToolFailure reports a tool handler that ran and returned an error.
	ToolFailure Kind = "tool_failure"
	// DeadlineExceeded reports a step or workflow that ran past its deadline.
	DeadlineExceeded Kind = "deadline_exceeded"
	// Cancelled reports caller-initiated cancellation.
	Cancelled Kind = "cancelled"
	// PlanInvalid reports a workflow plan that failed validation.
	PlanInvalid Kind = "plan_invalid"
	// ConfigError reports invalid or missing configuration.
	ConfigError Kind = "config_error"
	// DuplicateAgent reports a second registration under an existing name
	// with a different factory.
	DuplicateAgent Kind = "duplicate_agent"
)

// Error is a runtime failure with a machine-readable Kind. It wraps an
// optional cause so the full chain survives propagation across package
// boundaries.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that wraps cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause for errors.Is/errors.As traversal.
func (e *Error) Unwrap() error { return e.Cause }

// KindOf extracts the Kind from an error chain. Context cancellation and
// deadline errors map to Cancelled and DeadlineExceeded; anything else
// without a *fault.Error in its chain reports ToolFailure.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return Cancelled
	}
	return ToolFailure
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// From coerces an arbitrary error into a *fault.Error, classifying context
// errors and wrapping everything else as a ToolFailure.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return Wrap(KindOf(err), err.Error(), err)
}
