package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minibeads/internal/store"
)

// newInitCmd creates the init command. init does not go through the
// provider: it creates the store the provider would otherwise fail to
// open.
func newInitCmd(provider *AppProvider) *cobra.Command {
	var prefix string
	var hashIDs bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new minibeads store",
		Long: `Initialize a new .beads store in the current directory (or --path).

Examples:
  bd init
  bd init --prefix proj
  bd init --hash-ids`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := provider.StorePath
			if dir == "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("getting current directory: %w", err)
				}
				dir = cwd + string(os.PathSeparator) + ".beads"
			}

			s, err := store.Init(dir, prefix, hashIDs)
			if err != nil {
				return err
			}

			out := provider.Out
			if out == nil {
				out = os.Stdout
			}
			if provider.JSONOutput || envJSON() {
				fmt.Fprintf(out, `{"store_dir":%q,"prefix":%q}`+"\n", s.Dir(), s.Prefix())
				return nil
			}
			fmt.Fprintf(out, "Initialized minibeads store at %s (prefix %q)\n", s.Dir(), s.Prefix())
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Issue id prefix (default: bd)")
	cmd.Flags().BoolVar(&hashIDs, "hash-ids", false, "Allocate hashed-tail ids from the start instead of sequential ones")

	return cmd
}
