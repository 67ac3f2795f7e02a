package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"minibeads/internal/depgraph"
	"minibeads/internal/mirror"
	"minibeads/internal/query"
)

func newExportCmd(provider *AppProvider) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the store to issues.jsonl",
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
			dependents := depgraph.Dependents(all)

			path := out
			if path == "" {
				path = filepath.Join(app.Store.Dir(), "issues.jsonl")
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			defer f.Close()

			list := query.List(all, nil)
			if err := mirror.Export(f, list, dependents); err != nil {
				return err
			}

			app.logCommand([]string{"export"})
			fmt.Fprintf(app.Out, "Exported %d issues to %s\n", len(all), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (default: <store>/issues.jsonl)")

	return cmd
}

func newImportCmd(provider *AppProvider) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import issues.jsonl into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			path := in
			if path == "" {
				path = filepath.Join(app.Store.Dir(), "issues.jsonl")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening %s: %w", path, err)
			}
			defer f.Close()

			issues, lineErrs := mirror.Import(f)
			if err := mirror.ApplyImport(app.Store, issues); err != nil {
				return err
			}
			app.logCommand([]string{"import"})

			fmt.Fprintf(app.Out, "Imported %d issues from %s\n", len(issues), path)
			for _, e := range lineErrs {
				fmt.Fprintln(app.Err, app.WarnColor(e.Error()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Input path (default: <store>/issues.jsonl)")

	return cmd
}
