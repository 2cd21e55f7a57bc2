package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"depusage/internal/history"
)

var (
	historyVariant string
	historyLimit   int
	historyFormat  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded analysis runs",
	Long: `List runs recorded while history.enabled is set, newest first.

A run is flagged when its inputs fingerprint matches the previous run of the
same variant but its reports differ.

Examples:
  depusage history
  depusage history --variant debug --limit 5`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyVariant, "variant", "", "Only show runs of this variant")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI is the history command output.
type HistoryResponseCLI struct {
	Path string        `json:"path"`
	Runs []history.Run `json:"runs"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := cfgResult.Config.HistoryPath(projectRoot)
	resp := &HistoryResponseCLI{Path: path, Runs: []history.Run{}}

	// Listing never creates the database.
	if _, err := os.Stat(path); err == nil {
		store, err := history.Open(path, logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		runs, err := store.List(history.ListOptions{Variant: historyVariant, Limit: historyLimit})
		if err != nil {
			return err
		}
		if runs != nil {
			resp.Runs = runs
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot stat history database: %w", err)
	} else {
		logger.Info("No history database", "path", path)
	}

	out, err := FormatResponse(resp, OutputFormat(historyFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
