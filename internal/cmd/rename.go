package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"minibeads/internal/rewrite"
)

func newRenameCmd(provider *AppProvider) *cobra.Command {
	var dryRun, repair, fix bool

	cmd := &cobra.Command{
		Use:   "rename [old-id new-id]",
		Short: "Rename an issue, rewriting every dependent reference and free-text mention",
		Args: func(cmd *cobra.Command, args []string) error {
			if repair {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if repair {
				report, err := rewrite.Repair(ctx, app.Store, fix)
				if err != nil {
					return err
				}
				if fix {
					app.logCommand([]string{"rename", "--repair", "--fix"})
				}
				return printRepairReport(app, report)
			}

			oldID, err := app.Store.ResolveID(ctx, args[0])
			if err != nil {
				return err
			}
			newID := args[1]
			if !strings.Contains(newID, "-") {
				newID = app.Store.Prefix() + newID
			}

			plan, err := rewrite.Rename(ctx, app.Store, oldID, newID, dryRun)
			if err != nil {
				return err
			}
			if !dryRun {
				app.logCommand([]string{"rename", oldID, newID})
			}
			return printRewritePlan(app, plan, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	cmd.Flags().BoolVar(&repair, "repair", false, "Scan for dangling dependency references instead of renaming")
	cmd.Flags().BoolVar(&fix, "fix", false, "With --repair, remove dangling references instead of only reporting them")

	return cmd
}

func printRepairReport(app *App, report *rewrite.RepairReport) error {
	if app.JSON {
		return json.NewEncoder(app.Out).Encode(report)
	}
	if len(report.Dangling) == 0 {
		fmt.Fprintln(app.Out, "No dangling dependency references found.")
		return nil
	}
	for _, d := range report.Dangling {
		fmt.Fprintf(app.Out, "%s depends_on missing %s [%s]\n", d.SourceID, d.TargetID, d.Kind)
	}
	if report.Repaired {
		fmt.Fprintln(app.Out, app.SuccessColor("Dangling references removed."))
	}
	return nil
}

func newRenamePrefixCmd(provider *AppProvider) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "rename-prefix <new-prefix>",
		Short: "Rename every issue's prefix, preserving each tail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			plan, err := rewrite.RenamePrefix(ctx, app.Store, args[0], force, dryRun)
			if err != nil {
				return err
			}
			if !dryRun {
				app.logCommand(append([]string{"rename-prefix"}, args...))
			}
			return printRewritePlan(app, plan, dryRun)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Resolve prefix collisions deterministically instead of failing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")

	return cmd
}

func newMigrateCmd(provider *AppProvider) *cobra.Command {
	var toHashed, dryRun bool

	cmd := &cobra.Command{
		Use:   "mb-migrate",
		Short: "Migrate every issue's id tail between the sequential and hashed schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			direction := rewrite.ToSequential
			if toHashed {
				direction = rewrite.ToHashed
			}

			plan, err := rewrite.Migrate(ctx, app.Store, direction, dryRun)
			if err != nil {
				return err
			}
			if !dryRun {
				app.logCommand([]string{"mb-migrate"})
			}
			return printRewritePlan(app, plan, dryRun)
		},
	}

	cmd.Flags().BoolVar(&toHashed, "to-hashed", false, "Migrate to the hashed id scheme (default: to sequential)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")

	return cmd
}

func printRewritePlan(app *App, plan *rewrite.Plan, dryRun bool) error {
	if app.JSON {
		return json.NewEncoder(app.Out).Encode(plan)
	}
	verb := "Wrote"
	if dryRun {
		verb = "Would write"
	}
	for _, id := range plan.Writes {
		fmt.Fprintf(app.Out, "%s %s\n", verb, id)
	}
	removeVerb := "Removed"
	if dryRun {
		removeVerb = "Would remove"
	}
	for _, id := range plan.Removes {
		fmt.Fprintf(app.Out, "%s %s\n", removeVerb, id)
	}
	return nil
}
