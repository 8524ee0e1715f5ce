// Package cli provides the command-line interface for sqlinline.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/sqlinline/internal/cli/commands"
	"github.com/leapstack-labs/sqlinline/internal/cli/config"
	"github.com/leapstack-labs/sqlinline/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqlinline",
		Short: "Inline external SQL files into TypeScript and JavaScript sources",
		Long: `sqlinline rewrites calls such as sql_file<User>` + "`./get-user.sql`" + ` into
sql<User>` + "`SELECT ...`" + ` with the file's text embedded, so bundled code carries its
queries and needs no file access at run time.

It can rewrite files directly, bundle them with esbuild, or watch a project and
rebuild when sources or SQL files change.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help, version and completion commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			logger.Debug("project root", "path", cfg.ProjectRoot)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: sqlinline.yaml in the project root)")
	pf.String("project-dir", "", "Project root (default: directory containing sqlinline.yaml, or the working directory)")
	pf.StringSlice("include", nil, "Glob patterns of files to transform")
	pf.StringSlice("exclude", nil, "Glob patterns of files to leave alone (default: **/node_modules/**)")
	pf.String("loader-name", "", "Name of the function that loads SQL from a file (default: sql_file)")
	pf.String("query-name", "", "Name of the function that builds a query from inline SQL (default: sql)")
	pf.Bool("verify", false, "Re-parse rewritten files with esbuild and keep the original on failure")
	pf.Int("cache-size", 0, "Number of SQL files kept in memory between rebuilds (0 disables)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewTransformCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlinline.

To load completions:

Bash:
  $ source <(sqlinline completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sqlinline completion bash > /etc/bash_completion.d/sqlinline
  # macOS:
  $ sqlinline completion bash > $(brew --prefix)/etc/bash_completion.d/sqlinline

Zsh:
  $ sqlinline completion zsh > "${fpath[1]}/_sqlinline"

Fish:
  $ sqlinline completion fish > ~/.config/fish/completions/sqlinline.fish

PowerShell:
  PS> sqlinline completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
