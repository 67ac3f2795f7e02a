package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/depgraph"
	"minibeads/internal/issue"
	"minibeads/internal/mirror"
	"minibeads/internal/query"
)

func newListCmd(provider *AppProvider) *cobra.Command {
	var (
		status      []string
		priority    []int
		issueType   []string
		assignee    string
		labels      []string
		labelsAny   bool
		titleSubstr string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues with filtering",
		Long: `List issues, ordered priority ascending then most-recently-updated first.

Examples:
  bd list
  bd list --status open --status in_progress
  bd list --priority 0 --priority 1
  bd list --labels urgent,v2`,
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

			f := &query.Filter{
				LabelsAny:   labelsAny,
				Labels:      labels,
				TitleSubstr: titleSubstr,
				Limit:       limit,
			}
			for _, s := range status {
				f.Status = append(f.Status, issue.Status(s))
			}
			for _, p := range priority {
				f.Priority = append(f.Priority, issue.Priority(p))
			}
			for _, t := range issueType {
				f.Type = append(f.Type, issue.Type(t))
			}
			if assignee != "" {
				f.HasAssignee = true
				f.Assignee = assignee
			}

			results := query.List(all, f)

			if app.JSON {
				dependents := depgraph.Dependents(all)
				records := make([]mirror.Record, len(results))
				for i, iss := range results {
					records[i] = mirror.ToRecord(iss, dependents[iss.ID])
				}
				return json.NewEncoder(app.Out).Encode(records)
			}

			if len(results) == 0 {
				fmt.Fprintln(app.Out, "No issues found.")
				return nil
			}
			fmt.Fprintf(app.Out, "Issues (%d):\n\n", len(results))
			for _, iss := range results {
				fmt.Fprintf(app.Out, "  %s  [%s] [p%d] [%s] %s\n", iss.ID, iss.Status, iss.Priority, iss.Type, iss.Title)
				if iss.Assignee != "" {
					fmt.Fprintf(app.Out, "       Assignee: %s\n", iss.Assignee)
				}
				if len(iss.Labels) > 0 {
					fmt.Fprintf(app.Out, "       Labels: %s\n", strings.Join(iss.Labels, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&status, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntSliceVarP(&priority, "priority", "p", nil, "Filter by priority 0..4 (repeatable)")
	cmd.Flags().StringSliceVarP(&issueType, "type", "t", nil, "Filter by issue type (repeatable)")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", `Filter by assignee ("none" for unassigned)`)
	cmd.Flags().StringSliceVarP(&labels, "labels", "l", nil, "Filter by labels (comma-separated)")
	cmd.Flags().BoolVar(&labelsAny, "labels-any", false, "Match any label instead of all")
	cmd.Flags().StringVar(&titleSubstr, "title-contains", "", "Filter by title substring")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of results (0 = unlimited)")

	return cmd
}
