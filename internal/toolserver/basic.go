package toolserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

type addInput struct {
	A int `json:"a" jsonschema:"first addend"`
	B int `json:"b" jsonschema:"second addend"`
}

type multiplyInput struct {
	A float64 `json:"a" jsonschema:"first factor"`
	B float64 `json:"b" jsonschema:"second factor"`
}

type greetInput struct {
	Name string `json:"name" jsonschema:"name of the person to greet"`
}

func (t *tools) registerBasic(s *mcp.Server) {
	addTool(t, s, &mcp.Tool{Name: "echo", Description: "Echo back any text."}, t.echo)
	addTool(t, s, &mcp.Tool{Name: "add", Description: "Add two integers."}, t.add)
	addTool(t, s, &mcp.Tool{Name: "now_iso", Description: "Return the current timestamp in ISO 8601."}, t.nowISO)
	addTool(t, s, &mcp.Tool{Name: "multiply", Description: "Multiply two numbers."}, t.multiply)
	addTool(t, s, &mcp.Tool{Name: "greet", Description: "Greet a user by name."}, t.greet)
}

func (t *tools) echo(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, result[string], error) {
	return nil, result[string]{Result: in.Text}, nil
}

func (t *tools) add(_ context.Context, _ *mcp.CallToolRequest, in addInput) (*mcp.CallToolResult, result[int], error) {
	return nil, result[int]{Result: in.A + in.B}, nil
}

func (t *tools) nowISO(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, result[string], error) {
	return nil, result[string]{Result: t.now().UTC().Format(time.RFC3339Nano)}, nil
}

func (t *tools) multiply(_ context.Context, _ *mcp.CallToolRequest, in multiplyInput) (*mcp.CallToolResult, result[float64], error) {
	return nil, result[float64]{Result: in.A * in.B}, nil
}

func (t *tools) greet(_ context.Context, _ *mcp.CallToolRequest, in greetInput) (*mcp.CallToolResult, result[string], error) {
	return nil, result[string]{Result: fmt.Sprintf("Hello, %s!", in.Name)}, nil
}
