package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks failures of tool discovery or of a model turn.
	// They end the run; the underlying error stays reachable with errors.Is/As.
	ErrTransport = errors.New("agent: transport failure")

	// ErrArgumentParse marks tool-call arguments that are not a JSON object.
	// The loop recovers by calling the tool with no arguments.
	ErrArgumentParse = errors.New("agent: invalid tool arguments")
)

// ToolExecutionError is a failed remote tool call. It is captured into the
// tool result shown to the model, never returned from Run.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("agent: tool %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
