package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"minibeads/internal/sync"
)

func newSyncCmd(provider *AppProvider) *cobra.Command {
	var mirrorPath string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the Markdown store against its issues.jsonl mirror",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			path := mirrorPath
			if path == "" {
				path = filepath.Join(app.Store.Dir(), "issues.jsonl")
			}

			mdIssues, err := app.Store.List(ctx)
			if err != nil {
				return err
			}
			mdTimes, err := sync.LoadMDTimes(app.Store, mdIssues)
			if err != nil {
				return err
			}
			mirrorIssues, lineErrs, err := sync.LoadMirror(path)
			if err != nil {
				return err
			}
			for _, e := range lineErrs {
				fmt.Fprintln(app.Err, app.WarnColor(e.Error()))
			}

			tolerance := time.Duration(app.Store.Config().SyncToleranceMS()) * time.Millisecond
			plan := sync.Compute(mdIssues, mdTimes, mirrorIssues, tolerance)

			if !dryRun {
				if err := sync.Apply(app.Store, path, mdIssues, mirrorIssues, plan); err != nil {
					return err
				}
				app.logCommand([]string{"sync"})
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(plan)
			}

			verb := "Applied"
			if dryRun {
				verb = "Would apply"
			}
			for _, item := range plan.Items {
				if item.Action == sync.ActionNone {
					continue
				}
				fmt.Fprintf(app.Out, "%s: %s %s\n", verb, item.ID, item.Action)
			}
			for _, c := range plan.Conflicts {
				fmt.Fprintln(app.Err, app.WarnColor(fmt.Sprintf("conflict: %s (unresolved, left for manual review)", c.ID)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mirrorPath, "mirror", "", "Path to the issues.jsonl mirror (default: <store>/issues.jsonl)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")

	return cmd
}
