package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/query"
)

func newBlockedCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "List issues currently blocked by an open dependency",
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
			blocked := query.Blocked(all)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(blocked)
			}
			if len(blocked) == 0 {
				fmt.Fprintln(app.Out, "No blocked issues.")
				return nil
			}
			for _, b := range blocked {
				fmt.Fprintf(app.Out, "%s [%s] %s  blocked by: %s\n", b.Issue.ID, b.Issue.Status, b.Issue.Title, strings.Join(b.Blockers, ", "))
			}
			return nil
		},
	}
	return cmd
}
