package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/maximbilan/medtr/internal/dictionary"
	"github.com/maximbilan/medtr/internal/engine"
	"github.com/maximbilan/medtr/internal/keyboard"
)

var (
	labelColor = color.New(color.FgCyan, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
)

func newTranslateCmd(opts *rootOptions) *cobra.Command {
	var (
		source  string
		save    bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var force engine.Source
			if source != "" {
				s, err := engine.ParseSource(source)
				if err != nil {
					return err
				}
				// auto routes like an unforced call and keeps the cache lookup.
				if s != engine.SourceAuto {
					force = s
				}
			}

			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			text := strings.Join(args, " ")
			res := a.engine.Translate(cmd.Context(), text, force)
			printResult(cmd.OutOrStdout(), res, verbose)

			if save && res.Found {
				a.history.AddEntry(text, res.Text, string(res.Source))
			}
			if res.Source == engine.SourceError {
				return fmt.Errorf("translation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "force a source (auto, keyboard_fixer, local, libre, openrouter_ai)")
	cmd.Flags().BoolVar(&save, "save", false, "add the result to history")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show skipped sources")
	return cmd
}

func printResult(w io.Writer, res engine.Result, verbose bool) {
	label := labelColor.Sprintf("[%s]", res.Source.DisplayName())
	switch {
	case res.Found:
		fmt.Fprintf(w, "%s %s\n", label, res.Text)
	case res.Source == engine.SourceError:
		fmt.Fprintf(w, "%s %s\n", label, errorColor.Sprint(res.Text))
	default:
		fmt.Fprintf(w, "%s %s\n", label, warnColor.Sprint(res.Text))
	}
	if !verbose {
		return
	}
	for _, at := range res.Attempts {
		dimColor.Fprintf(w, "  - %s\n", at)
	}
}

func newFixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix [text]",
		Short: "Repair text typed with the wrong keyboard layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fix := keyboard.New().DetectAndFix(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if !fix.Fixed {
				warnColor.Fprintln(out, engine.MsgNoKeyboardError)
				return nil
			}
			fmt.Fprintf(out, "%s %s\n", labelColor.Sprintf("[%s]", fix.Kind), fix.Text)
			return nil
		},
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup [term]",
		Short: "Look a term up in the local dictionaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			term := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if value, ok := a.dictionary.Lookup(term); ok {
				fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("[translation]"), value)
				return nil
			}
			if a.definitions != nil {
				if value, ok := a.definitions.Define(term); ok {
					fmt.Fprintf(out, "%s %s\n", labelColor.Sprint("[definition]"), value)
					return nil
				}
			}
			warnColor.Fprintln(out, engine.MsgNotInDictionary)
			return nil
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "List dictionary terms containing a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			entries := a.dictionary.Search(query, limit)
			if a.definitions != nil {
				entries = append(entries, a.definitions.Search(query, limit)...)
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", dictionary.DefaultSearchLimit, "maximum results per dictionary")
	return cmd
}

func printEntries(w io.Writer, entries []dictionary.Entry) {
	if len(entries) == 0 {
		warnColor.Fprintln(w, "No matching terms")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s\n", labelColor.Sprint(e.Term), e.Value)
	}
}
