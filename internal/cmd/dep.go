package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"minibeads/internal/depgraph"
	"minibeads/internal/issue"
	"minibeads/internal/query"
)

func newDepCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep",
		Short: "Manage and inspect dependency edges",
	}
	cmd.AddCommand(newDepAddCmd(provider))
	cmd.AddCommand(newDepRemoveCmd(provider))
	cmd.AddCommand(newDepTreeCmd(provider))
	cmd.AddCommand(newDepCyclesCmd(provider))
	return cmd
}

func newDepAddCmd(provider *AppProvider) *cobra.Command {
	var kindFlag, validation string

	cmd := &cobra.Command{
		Use:   "add <id> <target-id>",
		Short: "Add a dependency edge from id to target-id",
		Args:  cobra.ExactArgs(2),
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
			target, err := app.Store.ResolveID(ctx, args[1])
			if err != nil {
				return err
			}

			kind, ok := issue.ParseDependencyKind(kindFlag)
			if !ok {
				return fmt.Errorf("invalid --kind %q", kindFlag)
			}
			mode, err := parseValidationMode(validation, app.Store.Config().ValidationMode())
			if err != nil {
				return err
			}

			warning, err := app.Store.AddDependency(ctx, id, target, kind, mode)
			if err != nil {
				return err
			}
			app.logCommand([]string{"dep", "add", id, target})
			if warning != nil {
				printWarnings(app, []issue.Warning{*warning})
			}

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{"id": id, "target": target, "kind": kind.String()})
			}
			fmt.Fprintf(app.Out, "%s now depends on %s [%s]\n", id, target, kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "blocks", "Dependency kind: blocks, related, parent-child, discovered-from")
	cmd.Flags().StringVar(&validation, "validation", "", "Validation mode: silent, warn, error")

	return cmd
}

func newDepRemoveCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id> <target-id>",
		Short: "Remove a dependency edge from id to target-id",
		Args:  cobra.ExactArgs(2),
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
			target, err := app.Store.ResolveID(ctx, args[1])
			if err != nil {
				return err
			}

			if err := app.Store.RemoveDependency(ctx, id, target); err != nil {
				return err
			}
			app.logCommand([]string{"dep", "remove", id, target})

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(map[string]string{"id": id, "target": target, "status": "removed"})
			}
			fmt.Fprintf(app.Out, "%s no longer depends on %s\n", id, target)
			return nil
		},
	}
	return cmd
}

func newDepTreeCmd(provider *AppProvider) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "tree <id>",
		Short: "Show an issue's blocking-dependency tree",
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

			all, err := app.Store.List(ctx)
			if err != nil {
				return err
			}
			node := query.Tree(all, id, maxDepth)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(node)
			}
			printTreeNode(app, node, 0)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum depth to render (0 = default cap)")

	return cmd
}

func printTreeNode(app *App, n *query.TreeNode, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	marker := ""
	if n.Cycle {
		marker = " (cycle)"
	} else if n.DepthExceeded {
		marker = " (depth exceeded)"
	}
	fmt.Fprintf(app.Out, "%s%s [%s] %s%s\n", indent, n.ID, n.Status, n.Title, marker)
	for _, c := range n.Children {
		printTreeNode(app, c, depth+1)
	}
}

func newDepCyclesCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List cycles in the blocking-dependency graph",
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
			cycles := depgraph.Cycles(all)

			if app.JSON {
				return json.NewEncoder(app.Out).Encode(cycles)
			}
			if len(cycles) == 0 {
				fmt.Fprintln(app.Out, "No cycles found.")
				return nil
			}
			for _, c := range cycles {
				fmt.Fprintln(app.Out, c)
			}
			return nil
		},
	}
	return cmd
}
