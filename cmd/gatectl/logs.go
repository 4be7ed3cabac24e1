package main

import (
	"fmt"

	"gate_control/internal/repository"

	"github.com/spf13/cobra"
)

var logsCount int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the newest activity-log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		journal := repository.NewEntryFile(cfg.Activity.File, cfg.Location())
		entries, err := journal.Tail(logsCount)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No activity recorded.")
			return nil
		}
		for i := len(entries) - 1; i >= 0; i-- {
			fmt.Fprintln(out, entries[i].Line(cfg.Location()))
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsCount, "lines", "n", 20, "number of entries")
}
