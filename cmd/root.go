package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maximbilan/medtr/internal/ui"
)

type rootOptions struct {
	configPath string
	debug      bool
}

// open builds the application for a command. Logs go to stderr unless fileLog is set.
func (o *rootOptions) open(cmd *cobra.Command, fileLog bool) (*app, error) {
	return newApp(appOptions{
		configPath: o.configPath,
		debug:      o.debug,
		fileLog:    fileLog,
		stderr:     cmd.ErrOrStderr(),
	})
}

// NewRootCmd returns the medtr command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "medtr",
		Short: "Clipboard medical translation assistant",
		Long: `medtr watches the clipboard and translates medical terms between English and Arabic.
It repairs text typed with the wrong keyboard layout, looks terms up in a local
dictionary, and falls back to LibreTranslate or an OpenRouter AI explanation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, true)
			if err != nil {
				return err
			}
			defer a.Close()

			a.activate()
			return ui.Run(cmd.Context(), ui.Options{
				Session: a.session,
				Hotkeys: a.hotkeys,
				History: a.history,
			})
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.medtr/config.json)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newWatchCmd(opts),
		newTranslateCmd(opts),
		newFixCmd(),
		newLookupCmd(opts),
		newSearchCmd(opts),
		newHistoryCmd(opts),
		newCacheCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
