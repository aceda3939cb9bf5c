package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"anefwatch/internal/store"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <account-id>",
	Short: "Show the latest recorded outcomes of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of attempts to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.Path == "" {
		return errors.New("history is disabled: set history.path or ANEF_HISTORY_DB")
	}
	h, err := store.OpenHistory(cfg.History.Path)
	if err != nil {
		return err
	}
	defer h.Close()

	entries, err := h.ForAccount(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No attempts recorded for %s\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tRUN\tOUTCOME\tTYPE\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04"),
			shortRunID(e.RunID), e.Outcome, e.NotificationType, e.Message)
	}
	return w.Flush()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
