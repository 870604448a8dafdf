// Package tool implements the capabilities a treasury agent can invoke while
// it reasons: schema validated arguments, uniform errors and access to the
// session's recorder through core.ToolContext.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentfeed/core"
	"github.com/hupe1980/agentfeed/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeUnknown    = "UNKNOWN_TOOL"
	CodePanic      = "PANIC"
)

// Tool is a function the model may call.
//
// Implementations should be safe for concurrent use; one tool instance serves
// every session of an agent.
type Tool interface {
	// Name is the identifier the model uses to call the tool (snake_case).
	Name() string
	// Description tells the model when to use the tool.
	Description() string
	// Parameters is the JSON schema of the accepted arguments.
	Parameters() map[string]any
	// Call runs the tool with decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Registry indexes tools by name.
type Registry map[string]Tool

// NewRegistry builds a Registry. Later tools replace earlier ones with the
// same name.
func NewRegistry(tools ...Tool) Registry {
	r := make(Registry, len(tools))
	for _, t := range tools {
		r[t.Name()] = t
	}

	return r
}

// Lookup returns the named tool or a ToolError with CodeUnknown.
func (r Registry) Lookup(name string) (Tool, error) {
	t, ok := r[name]
	if !ok {
		return nil, NewToolError(name, "tool is not registered", CodeUnknown)
	}

	return t, nil
}
