package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/issue"
)

func newUpdateCmd(provider *AppProvider) *cobra.Command {
	var (
		title        string
		description  string
		design       string
		acceptance   string
		notes        string
		statusFlag   string
		priorityFlag int
		typeFlag     string
		assignee     string
		externalRef  string
		labels       []string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an existing issue's fields",
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

			patch := &issue.Patch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("design") {
				patch.Design = &design
			}
			if cmd.Flags().Changed("acceptance") {
				patch.AcceptanceCriteria = &acceptance
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}
			if cmd.Flags().Changed("status") {
				s := issue.Status(strings.ToLower(statusFlag))
				if !s.Valid() {
					return fmt.Errorf("invalid --status %q", statusFlag)
				}
				patch.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p := issue.Priority(priorityFlag)
				if !p.Valid() {
					return fmt.Errorf("invalid --priority %d: must be 0..4", priorityFlag)
				}
				patch.Priority = &p
			}
			if cmd.Flags().Changed("type") {
				t := issue.Type(strings.ToLower(typeFlag))
				if !t.Valid() {
					return fmt.Errorf("invalid --type %q", typeFlag)
				}
				patch.Type = &t
			}
			if cmd.Flags().Changed("assignee") {
				patch.Assignee = &assignee
			}
			if cmd.Flags().Changed("external-ref") {
				patch.ExternalRef = &externalRef
			}
			if cmd.Flags().Changed("label") {
				patch.Labels = &labels
			}
			updated, err := app.Store.Update(ctx, id, patch)
			if err != nil {
				return err
			}
			app.logCommand([]string{"update", id})

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{"id": updated.ID, "status": "updated"})
			}
			fmt.Fprintf(app.Out, "Updated %s\n", updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&design, "design", "", "New design")
	cmd.Flags().StringVar(&acceptance, "acceptance", "", "New acceptance criteria")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "New status")
	cmd.Flags().IntVarP(&priorityFlag, "priority", "p", 0, "New priority 0..4")
	cmd.Flags().StringVarP(&typeFlag, "type", "t", "", "New issue type")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "New assignee")
	cmd.Flags().StringVar(&externalRef, "external-ref", "", "New external reference")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "Replace labels (repeatable)")

	return cmd
}
