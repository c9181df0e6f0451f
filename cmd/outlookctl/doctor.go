package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/automation"
)

// errChecksFailed exits 1 after the doctor report is already printed.
var errChecksFailed = errors.New("doctor: some checks failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configured backend is reachable",
	Long: `Probe the prerequisites of the configured backend: host OS, bindings,
the automation interface itself and the client process. Exits 1 when a
required check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started = true
		res := automation.Diagnose(cmd.Context(), dialer())
		if err := emit(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.AllPassed {
			return errChecksFailed
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
