package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maximbilan/medtr/internal/history"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			printHistory(cmd.OutOrStdout(), a.history.History(limit))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of entries to show")

	favoritesCmd := &cobra.Command{
		Use:   "favorites",
		Short: "Show favorite translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			printHistory(cmd.OutOrStdout(), a.history.Favorites())
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show translation statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), a.history.Statistics())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear history, keeping favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			a.history.ClearHistory()
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}

	historyCmd.AddCommand(favoritesCmd, statsCmd, clearCmd)
	return historyCmd
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		warnColor.Fprintln(w, "No entries")
		return
	}
	for _, e := range entries {
		when := e.Timestamp
		if t, err := e.Time(); err == nil {
			when = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %s → %s %s\n", dimColor.Sprint(when), labelColor.Sprint(e.Original), e.Translation, dimColor.Sprintf("(%s)", e.Source))
	}
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the translation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache and dictionary statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()

			size, max := a.cache.Stats()
			entries, loaded := a.dictionary.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache: %d/%d entries\n", size, max)
			if path := a.cache.Path(); path != "" {
				fmt.Fprintf(out, "Cache file: %s\n", path)
			}
			fmt.Fprintf(out, "Dictionary: %d entries (loaded: %v)\n", entries, loaded)
			fmt.Fprintf(out, "Active source: %s\n", a.engine.Options().ActiveSource.DisplayName())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd, false)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.cache.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
