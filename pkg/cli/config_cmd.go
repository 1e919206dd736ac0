package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
)

func newConfigCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration profiles",
	}

	cmd.AddCommand(newConfigShowCmd(s))
	cmd.AddCommand(newConfigSetProfileCmd(s))
	cmd.AddCommand(newConfigUseProfileCmd(s))

	return cmd
}

func newConfigShowCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the profile configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No configuration found at %s\n", ConfigPath())
				return err
			}
			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigSetProfileCmd(s *settings) *cobra.Command {
	var (
		name     string
		logLevel string
		format   string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a configuration profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if cmd.Flags().Changed("default-format") {
				if err := validateOutputFormat(format); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("default-log-level") {
				if err := config.ValidateLevel(logLevel); err != nil {
					return err
				}
			}

			cfg, err := LoadUserConfig()
			if err != nil {
				cfg = &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
			}

			p := cfg.Profiles[name]
			if cmd.Flags().Changed("default-log-level") {
				p.LogLevel = logLevel
			}
			if cmd.Flags().Changed("default-format") {
				p.Format = format
			}
			if cmd.Flags().Changed("default-out") {
				p.Out = out
			}
			cfg.Profiles[name] = p

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "ok",
					"profile": name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&logLevel, "default-log-level", "", "Default log level")
	cmd.Flags().StringVar(&format, "default-format", "", "Default output format")
	cmd.Flags().StringVar(&out, "default-out", "", "Default output catalog path")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigUseProfileCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active configuration profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return fmt.Errorf("no config found: %w", err)
			}
			name := args[0]
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found", name)
			}
			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if s.format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"status":         "ok",
					"active_profile": name,
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %q\n", name)
			return nil
		},
	}
}
