package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daviddao/outlookctl/internal/audit"
	"github.com/daviddao/outlookctl/internal/display"
	"github.com/daviddao/outlookctl/internal/errs"
	"github.com/daviddao/outlookctl/internal/types"
)

type auditResult struct {
	Version string         `json:"version"`
	Path    string         `json:"path"`
	Records []audit.Record `json:"records"`
}

var auditLast int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the most recent audit records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started = true
		records, err := audit.Read(auditLog.Path())
		if err != nil {
			return errs.Wrap(errs.Operation, "audit show", err)
		}
		if auditLast > 0 && len(records) > auditLast {
			records = records[len(records)-auditLast:]
		}
		if records == nil {
			records = []audit.Record{}
		}

		w := cmd.OutOrStdout()
		if outputFlag != outputText {
			return emit(w, auditResult{Version: types.Version, Path: auditLog.Path(), Records: records})
		}
		display.Header(w, "Audit log "+auditLog.Path())
		for _, r := range records {
			status := display.Success.Render("ok")
			if !r.Success {
				status = display.ErrStyle.Render("failed")
			}
			fmt.Fprintf(w, "  %s  %-13s %s  to:%d cc:%d bcc:%d",
				display.Muted.Render(r.Timestamp), r.Operation, status,
				r.Recipients.ToCount, r.Recipients.CCCount, r.Recipients.BCCCount)
			if r.Error != "" {
				fmt.Fprintf(w, "  %s", display.Dim.Render(r.Error))
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	auditShowCmd.Flags().IntVar(&auditLast, "last", 20, "Number of records to show (0: all)")
	auditCmd.AddCommand(auditShowCmd)
	rootCmd.AddCommand(auditCmd)
}
