package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/mcplab/pkg/app"
	"github.com/spf13/cobra"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var params app.ServeParams
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Long: "Run the MCP tool server with the configured toolsets. By default it\n" +
			"serves streamable HTTP on gateway.mcp's bind address; --stdio serves a\n" +
			"single client on stdin/stdout instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.Serve(ctx, env, params)
			})
		},
	}
	cmd.Flags().BoolVar(&params.Stdio, "stdio", false, "Serve over stdin/stdout")
	return cmd
}

func agentCmd(flags *globalFlags) *cobra.Command {
	var (
		creds  credentialFlags
		prompt string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "agent [prompt...]",
		Short: "Answer a prompt with the tool-calling agent",
		Example: `  mcplab agent -u alice "What is 2 + 40?"
  mcplab agent --prompt "Call whoami and tell me what you get" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				prompt = strings.Join(args, " ")
			}
			if strings.TrimSpace(prompt) == "" {
				return errors.New("a prompt is required (argument or --prompt)")
			}
			c, err := creds.resolve()
			if err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				_, err := app.RunAgent(ctx, env, app.AgentParams{
					Prompt:      prompt,
					Credentials: c,
					JSON:        asJSON,
				})
				return err
			})
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Prompt to answer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the whole run as JSON")
	return cmd
}

func tokenCmd(flags *globalFlags) *cobra.Command {
	var (
		creds credentialFlags
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a token and show its claims and role checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := creds.resolve()
			if err != nil {
				return err
			}
			if c.Empty() {
				return errors.New("--username is required")
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.ShowToken(ctx, env, app.TokenParams{Credentials: c, Raw: raw})
			})
		},
	}
	creds.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the id_token only")
	return cmd
}

func toolsCmd(flags *globalFlags) *cobra.Command {
	var (
		creds   credentialFlags
		schemas bool
		rawArgs string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and call tools on the configured MCP server",
	}
	creds.registerPersistent(cmd)

	list := &cobra.Command{
		Use:   "list",
		Short: "List the server's tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := creds.resolve()
			if err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.ListTools(ctx, env, app.ToolsParams{Credentials: c, Schemas: schemas})
			})
		},
	}
	list.Flags().BoolVar(&schemas, "schemas", false, "Print each tool's input schema")

	call := &cobra.Command{
		Use:     "call <name>",
		Short:   "Call one tool and print its result",
		Example: `  mcplab tools call add --args '{"a":2,"b":40}'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := creds.resolve()
			if err != nil {
				return err
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.CallTool(ctx, env, app.ToolsParams{Credentials: c}, args[0], rawArgs)
			})
		},
	}
	call.Flags().StringVar(&rawArgs, "args", "", "Tool arguments as a JSON object")

	cmd.AddCommand(list, call)
	return cmd
}

func historyCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded agent runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative, got %d", limit)
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.ListHistory(ctx, env, limit)
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and its transcript",
		Long:  "Show one run and its transcript. The ID may be abbreviated to any unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *app.Env) error {
				return app.ShowHistory(ctx, env, args[0], asJSON)
			})
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")

	cmd.AddCommand(list, show)
	return cmd
}
