package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// ToolsParams configures ListTools and CallTool.
type ToolsParams struct {
	Credentials Credentials
	// Schemas prints each tool's input schema.
	Schemas bool
}

// ListTools prints the catalog of the configured tool server.
func ListTools(ctx context.Context, env *Env, params ToolsParams) error {
	session, err := ConnectTools(ctx, env, params.Credentials)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	for _, t := range tools {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, firstLine(t.Description))
		if params.Schemas && len(t.InputSchema) > 0 {
			fmt.Fprintf(tw, "\t%s\n", t.InputSchema)
		}
	}
	return tw.Flush()
}

// CallTool invokes one tool with a JSON object of arguments and prints the
// result as JSON. A tool-reported failure is returned as *mcpclient.ToolError.
func CallTool(ctx context.Context, env *Env, params ToolsParams, name, rawArgs string) error {
	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return fmt.Errorf("app: arguments must be a JSON object: %w", err)
		}
	}

	session, err := ConnectTools(ctx, env, params.Credentials)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	result, err := session.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	if s, ok := result.(string); ok {
		_, err := fmt.Fprintln(env.Stdout, s)
		return err
	}
	return printJSON(env, result)
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}
