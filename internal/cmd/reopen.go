package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newReopenCmd(provider *AppProvider) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reopen <id>",
		Short: "Reopen a closed issue",
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

			if _, err := app.Store.ReopenIssue(ctx, id, reason); err != nil {
				return err
			}
			app.logCommand([]string{"reopen", id})

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{"id": id, "status": "reopened"})
			}
			fmt.Fprintf(app.Out, "Reopened %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason appended to the issue's notes")

	return cmd
}
