package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the modem answers AT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session := newSession(cfg, log)
		defer func() { _ = session.Close() }()

		st := session.CheckConnectivity(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", cfg.Modem.Port, st.Status, st.CheckedAt.Format("15:04:05"))
		if !st.Connected() {
			return fmt.Errorf("modem on %s did not answer", cfg.Modem.Port)
		}
		return nil
	},
}
