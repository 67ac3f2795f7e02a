package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"minibeads/internal/depgraph"
	"minibeads/internal/mirror"
	"minibeads/internal/query"
)

func newReadyCmd(provider *AppProvider) *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List open issues with no open blocking dependency",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			mode, err := parseReadySort(sortBy)
			if err != nil {
				return err
			}

			all, err := app.Store.List(ctx)
			if err != nil {
				return err
			}
			result := query.Ready(all, mode)

			if app.JSON {
				dependents := depgraph.Dependents(all)
				records := make([]mirror.Record, 0, len(result))
				for _, i := range result {
					records = append(records, mirror.ToRecord(i, dependents[i.ID]))
				}
				return json.NewEncoder(app.Out).Encode(records)
			}
			if len(result) == 0 {
				fmt.Fprintln(app.Out, "No ready issues.")
				return nil
			}
			for _, i := range result {
				fmt.Fprintf(app.Out, "%s [p%d] %s\n", i.ID, i.Priority, i.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "hybrid", "Sort order: hybrid, priority, oldest")

	return cmd
}

func parseReadySort(s string) (query.ReadySort, error) {
	switch query.ReadySort(s) {
	case query.ReadyHybrid, query.ReadyPriority, query.ReadyOldest:
		return query.ReadySort(s), nil
	default:
		return "", fmt.Errorf("invalid --sort %q", s)
	}
}
