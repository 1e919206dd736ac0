// Package cli implements the forge command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// settings holds the resolved global options shared by all commands.
type settings struct {
	logLevel string
	format   string
	profile  string
	out      string // default output catalog

	cfg    *config.Config
	logger *slog.Logger
	stderr io.Writer
}

// Execute runs the CLI.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	s := &settings{stderr: stderr}
	rootCmd := newRootCmd(s)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		switch {
		case errors.As(err, &reported):
		case s.format == "json":
			_ = printJSON(stdout, map[string]any{"error": err.Error()})
		default:
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(s *settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "Migrate legacy data catalogs to Intake v2",
		Long: `forge converts legacy Intake catalogs, zarr stores and reference::
parquet indices into a single Intake v2 catalog, harvesting dataset
metadata along the way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.resolve(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&s.format, "format", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&s.profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newConvertCmd(s))
	rootCmd.AddCommand(newClassifyCmd(s))
	rootCmd.AddCommand(newDescribeCmd(s))
	rootCmd.AddCommand(newConfigCmd(s))
	rootCmd.AddCommand(newVersionCmd(s))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve loads the environment and the profile file, applies the
// precedence flag > env > profile > default and builds the logger.
func (s *settings) resolve(flags *pflag.FlagSet) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s.cfg = cfg

	uc, err := LoadUserConfig()
	if err != nil {
		// The profile file is optional.
		uc = &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	}
	p, err := uc.ActiveProfile(s.profile)
	if err != nil {
		return err
	}

	applyPrecedence(flags, "log-level", &s.logLevel, "LOG_LEVEL", p.LogLevel)
	applyPrecedence(flags, "format", &s.format, "FORGE_FORMAT", p.Format)
	if err := validateOutputFormat(s.format); err != nil {
		return err
	}
	if err := config.ValidateLevel(s.logLevel); err != nil {
		return err
	}
	s.out = cfg.Output
	if os.Getenv("FORGE_OUTPUT") == "" && p.Out != "" {
		s.out = p.Out
	}

	s.logger = newLogger(s.stderr, cfg.LogFormat, config.ParseLevel(s.logLevel))
	for _, w := range cfg.Warnings {
		s.logger.Warn(w)
	}
	return nil
}

// applyPrecedence fills target from env or the profile value unless the
// flag was set on the command line.
func applyPrecedence(flags *pflag.FlagSet, name string, target *string, env, profile string) {
	if flags.Changed(name) {
		return
	}
	if v := os.Getenv(env); v != "" {
		*target = v
	} else if profile != "" {
		*target = profile
	}
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Args:  cobra.ExactArgs(1),
		// Completion needs neither config nor logger.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
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
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
	return cmd
}
