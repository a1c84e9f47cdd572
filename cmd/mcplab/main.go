// Package main is the entry point for the mcplab CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/flemzord/mcplab/internal/config"
	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/pkg/app"
	"github.com/spf13/cobra"

	// Compiled modules.
	_ "github.com/flemzord/mcplab/internal/gateway"
	_ "github.com/flemzord/mcplab/modules/history/sqlite"
	_ "github.com/flemzord/mcplab/modules/provider/anthropic"
	_ "github.com/flemzord/mcplab/modules/provider/ollama"
	_ "github.com/flemzord/mcplab/modules/provider/openai"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "mcplab",
		Short:         "Authenticated MCP tool server and tool-calling agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for persistent data such as run history")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		serveCmd(&flags),
		agentCmd(&flags),
		tokenCmd(&flags),
		toolsCmd(&flags),
		historyCmd(&flags),
		configCmd(&flags),
	)
	return root
}

// withEnv builds the shared runtime for one command and closes it afterwards.
func withEnv(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, env *app.Env) error) error {
	ctx := cmd.Context()
	env, err := app.Setup(ctx, app.Options{
		ConfigPath: flags.configPath,
		DataDir:    flags.dataDir,
		LogLevel:   flags.logLevel,
		Version:    version,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := env.Close(context.WithoutCancel(ctx)); cerr != nil {
			env.Logger.Warn("shutdown incomplete", "error", cerr)
		}
	}()
	return fn(ctx, env)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "mcplab %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(w, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(w, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(w, "  %s\n", mod.ID)
			}
		},
	}
}

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision every configured module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.configPath = args[0]
			}
			return withEnv(cmd, flags, func(_ context.Context, env *app.Env) error {
				ids := config.Resolve(env.Config)
				if err := env.App.LoadModules(ids); err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				source := env.ConfigPath
				if source == "" {
					source = "built-in defaults"
				}
				fmt.Fprintf(w, "Configuration OK: %s (%d modules)\n", source, len(ids))
				for _, id := range ids {
					fmt.Fprintf(w, "  %s\n", id)
				}
				return nil
			})
		},
	})
	return cmd
}
