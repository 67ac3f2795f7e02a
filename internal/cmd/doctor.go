package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDoctorCmd(provider *AppProvider) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the store for orphaned temp files and id/filename mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			report, err := app.Store.Doctor(ctx, fix)
			if err != nil {
				return err
			}
			if fix {
				app.logCommand([]string{"doctor", "--fix"})
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(report)
			}

			if len(report.OrphanedTempFiles) == 0 && len(report.IDMismatches) == 0 {
				fmt.Fprintln(app.Out, "No problems found.")
				return nil
			}
			for _, p := range report.OrphanedTempFiles {
				fmt.Fprintf(app.Out, "orphaned temp file: %s\n", p)
			}
			for _, m := range report.IDMismatches {
				fmt.Fprintf(app.Out, "id mismatch: %s\n", m)
			}
			for _, f := range report.Fixed {
				fmt.Fprintln(app.Out, app.SuccessColor("fixed: "+f))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Fix problems found instead of only reporting them")

	return cmd
}
