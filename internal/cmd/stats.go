package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"minibeads/internal/issue"
	"minibeads/internal/query"
)

func newStatsCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate counts across the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			all, err := app.Store.List(ctx)
			if err != nil {
				return err
			}
			s := query.Compute(all)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(s)
			}

			fmt.Fprintf(app.Out, "Total:         %d\n", s.TotalCount)
			fmt.Fprintf(app.Out, "Ready:         %d\n", s.ReadyCount)
			fmt.Fprintln(app.Out, "By status:")
			statuses := make([]issue.Status, 0, len(s.CountByStatus))
			for st := range s.CountByStatus {
				statuses = append(statuses, st)
			}
			sort.Slice(statuses, func(a, b int) bool { return statuses[a] < statuses[b] })
			for _, st := range statuses {
				fmt.Fprintf(app.Out, "  %-12s %d\n", st, s.CountByStatus[st])
			}
			if s.MeanLeadTime > 0 {
				fmt.Fprintf(app.Out, "Mean lead time: %s\n", s.MeanLeadTime)
			}
			return nil
		},
	}
	return cmd
}
