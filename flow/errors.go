package flow

import "fmt"

// Error codes from the closed set produced by the validator (spec §4.2).
const (
	CodeInvalidFormat        = "invalid-format"
	CodeInvalidType          = "invalid-type"
	CodeMissingRequiredField = "missing-required-field"
	CodeInvalidNodeType      = "invalid-node-type"
	CodeDuplicateNodeID      = "duplicate-node-id"
	CodeDuplicateVariableID  = "duplicate-variable-id"
	CodeInvalidVariableRef   = "invalid-variable-reference"
	CodeCircularDependency   = "circular-dependency"
	CodeMissingDependency    = "missing-dependency"
	CodeMissingProviderConfig = "missing-provider-config"
	CodeInvalidValue         = "invalid-value"
)

// ValidationError is a single validation failure, carrying the path to the
// offending element, a human-readable message, and a stable error code.
type ValidationError struct {
	Path    string
	Message string
	Code    string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}

// ValidationWarning is an advisory diagnostic that does not fail validation
// (spec §4.2 pass 5, §7 "Warnings ... surface through the logger only").
type ValidationWarning struct {
	Path    string
	Message string
}

func (w *ValidationWarning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// ExecutionError wraps a node-execution failure with the offending node id,
// per spec §7 "A rejection carries a single readable message that identifies
// the offending node id and includes the underlying cause."
type ExecutionError struct {
	NodeID string
	Cause  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %s", e.NodeID, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// TypeError reports a variable write that does not match its declared type
// (spec §4.3, §7 Type errors).
type TypeError struct {
	VariableID string
	Expected   VariableType
	Got        any
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("variable %s: expected type %s, got %T", e.VariableID, e.Expected, e.Got)
}
