package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maximbilan/medtr/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(opts.configPath, args[0], args[1]); err != nil {
				return err
			}
			value := args[1]
			if isSensitiveConfigKey(args[0]) {
				value = maskSecret(value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], value)
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := config.Get(opts.configPath, args[0])
			if value == nil {
				return fmt.Errorf("unknown config key %q", args[0])
			}
			if isSensitiveConfigKey(args[0]) {
				value = maskSecret(fmt.Sprint(value))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range cfg.Warnings {
				warnColor.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "Configuration initialized at %s\n", cfg.Path)
			fmt.Fprintln(out, "Set your OpenRouter key with: medtr config set openrouter.api_key YOUR_KEY")
			return nil
		},
	}

	configCmd.AddCommand(setCmd, getCmd, initCmd)
	return configCmd
}

func isSensitiveConfigKey(key string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(key)), "api_key")
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}
