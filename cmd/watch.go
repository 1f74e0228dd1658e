package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maximbilan/medtr/internal/session"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Translate clipboard changes and print them without the TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching the clipboard using %s. Press Ctrl+C to stop.\n", a.session.ActiveSource().DisplayName())

			go a.session.Run(cmd.Context())
			a.session.Activate()
			for e := range a.session.Events() {
				printEvent(out, e)
			}
			return nil
		},
	}
}

func printEvent(w io.Writer, e session.Event) {
	switch e.Kind {
	case session.EventTranslation:
		fmt.Fprintf(w, "%s %s\n", labelColor.Sprintf("[%s]", e.Result.Source.DisplayName()), e.Original)
		fmt.Fprintf(w, "  %s\n", e.Result.Text)
		if e.Copied {
			dimColor.Fprintln(w, "  (copied to clipboard)")
		}
	case session.EventFallback:
		warnColor.Fprintf(w, "! %s\n", e.Message)
	case session.EventError:
		errorColor.Fprintf(w, "✗ %s\n", e.Message)
	case session.EventIgnored, session.EventStatus:
		dimColor.Fprintln(w, e.Message)
	}
}
