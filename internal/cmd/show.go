package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/depgraph"
	"minibeads/internal/mirror"
)

func newShowCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show full details of one issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id, err := app.Store.ResolveID(ctx, args[0])
			if err != nil {
				return err
			}

			iss, err := app.Store.Get(ctx, id)
			if err != nil {
				return err
			}

			all, err := app.Store.List(ctx)
			if err != nil {
				return err
			}
			dependents := depgraph.Dependents(all)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(mirror.ToRecord(iss, dependents[iss.ID]))
			}

			fmt.Fprintf(app.Out, "%s: %s\n", iss.ID, iss.Title)
			fmt.Fprintln(app.Out, strings.Repeat("-", len(iss.ID)+len(iss.Title)+2))
			fmt.Fprintf(app.Out, "Status:   %s\n", iss.Status)
			fmt.Fprintf(app.Out, "Priority: %d\n", iss.Priority)
			fmt.Fprintf(app.Out, "Type:     %s\n", iss.Type)
			if iss.Assignee != "" {
				fmt.Fprintf(app.Out, "Assignee: %s\n", iss.Assignee)
			}
			if len(iss.Labels) > 0 {
				fmt.Fprintf(app.Out, "Labels:   %s\n", strings.Join(iss.Labels, ", "))
			}
			if iss.ExternalRef != "" {
				fmt.Fprintf(app.Out, "External: %s\n", iss.ExternalRef)
			}
			fmt.Fprintf(app.Out, "Created:  %s\n", iss.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(app.Out, "Updated:  %s\n", iss.UpdatedAt.Format("2006-01-02 15:04:05"))
			if iss.ClosedAt != nil {
				fmt.Fprintf(app.Out, "Closed:   %s\n", iss.ClosedAt.Format("2006-01-02 15:04:05"))
			}

			if len(iss.DependsOn) > 0 {
				fmt.Fprintln(app.Out, "\nDepends on:")
				for target, kind := range iss.DependsOn {
					fmt.Fprintf(app.Out, "  - %s [%s]\n", target, kind)
				}
			}
			if deps := dependents[iss.ID]; len(deps) > 0 {
				fmt.Fprintln(app.Out, "\nDependents:")
				for _, d := range deps {
					fmt.Fprintf(app.Out, "  - %s [%s]\n", d.ID, d.Type)
				}
			}

			if iss.Description != "" {
				fmt.Fprintf(app.Out, "\nDescription:\n%s\n", iss.Description)
			}
			if iss.Design != "" {
				fmt.Fprintf(app.Out, "\nDesign:\n%s\n", iss.Design)
			}
			if iss.AcceptanceCriteria != "" {
				fmt.Fprintf(app.Out, "\nAcceptance Criteria:\n%s\n", iss.AcceptanceCriteria)
			}
			if iss.Notes != "" {
				fmt.Fprintf(app.Out, "\nNotes:\n%s\n", iss.Notes)
			}

			return nil
		},
	}

	return cmd
}
