package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCloseCmd(provider *AppProvider) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "close <id> [id...]",
		Short: "Close one or more issues",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var closed []string
			var errs []error
			for _, raw := range args {
				id, err := app.Store.ResolveID(ctx, raw)
				if err != nil {
					errs = append(errs, fmt.Errorf("closing %s: %w", raw, err))
					continue
				}
				if _, err := app.Store.CloseIssue(ctx, id, reason); err != nil {
					errs = append(errs, fmt.Errorf("closing %s: %w", id, err))
					continue
				}
				closed = append(closed, id)
			}
			if len(closed) > 0 {
				app.logCommand(append([]string{"close"}, closed...))
			}

			if app.JSON {
				result := map[string]any{"closed": closed}
				if len(errs) > 0 {
					errStrings := make([]string, len(errs))
					for i, e := range errs {
						errStrings[i] = e.Error()
					}
					result["errors"] = errStrings
				}
				if err := json.NewEncoder(app.Out).Encode(result); err != nil {
					return err
				}
				if len(errs) > 0 {
					return errs[0]
				}
				return nil
			}

			for _, id := range closed {
				fmt.Fprintf(app.Out, "Closed %s\n", id)
			}
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(app.Err, "Error: %v\n", e)
				}
				return errs[0]
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason appended to the issue's notes")

	return cmd
}
