package cmd

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"minibeads/internal/config"
	"minibeads/internal/store"
)

// AppProvider lazily opens the store on first use, so commands that don't
// need one (init) never pay store.Open's cost or its errors.
type AppProvider struct {
	once sync.Once
	app  *App
	err  error

	StorePath  string
	JSONOutput bool
	Out        io.Writer
	Err        io.Writer
}

func (p *AppProvider) Get() (*App, error) {
	p.once.Do(func() {
		if p.app == nil {
			p.app, p.err = p.init()
		}
	})
	return p.app, p.err
}

// NewTestProvider returns a provider pre-initialized with app, so command
// tests can exercise a RunE body without going through store.Open.
func NewTestProvider(app *App) *AppProvider {
	return &AppProvider{app: app, Out: app.Out, Err: app.Err}
}

func (p *AppProvider) init() (*App, error) {
	s, err := store.Open(p.StorePath)
	if err != nil {
		return nil, err
	}
	out, errOut := p.Out, p.Err
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &App{
		Store: s,
		Out:   out,
		Err:   errOut,
		JSON:  p.JSONOutput || envJSON(),
	}, nil
}

// Execute builds the command tree and runs it, returning the error (if
// any) its RunE produced so main can translate it to an exit code.
func Execute(args []string) error {
	provider := &AppProvider{Out: os.Stdout, Err: os.Stderr}
	root := newRootCmd(provider)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(provider *AppProvider) *cobra.Command {
	root := &cobra.Command{
		Use:   "bd",
		Short: "A lightweight, file-backed, dependency-aware issue tracker",
		Long: `minibeads (bd) tracks issues as one Markdown file per issue under
.beads/issues/, with YAML frontmatter for structured fields and a coarse
lock coordinating every mutation. Run "bd init" to create a store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&provider.JSONOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().StringVar(&provider.StorePath, "path", "", "Path to the .beads directory (default: "+config.EnvStoreDir+", then "+config.EnvBeadsDB+", then upward search)")

	root.AddCommand(newInitCmd(provider))
	root.AddCommand(newCreateCmd(provider))
	root.AddCommand(newListCmd(provider))
	root.AddCommand(newShowCmd(provider))
	root.AddCommand(newUpdateCmd(provider))
	root.AddCommand(newCloseCmd(provider))
	root.AddCommand(newReopenCmd(provider))
	root.AddCommand(newRenameCmd(provider))
	root.AddCommand(newRenamePrefixCmd(provider))
	root.AddCommand(newDepCmd(provider))
	root.AddCommand(newExportCmd(provider))
	root.AddCommand(newImportCmd(provider))
	root.AddCommand(newStatsCmd(provider))
	root.AddCommand(newBlockedCmd(provider))
	root.AddCommand(newReadyCmd(provider))
	root.AddCommand(newMigrateCmd(provider))
	root.AddCommand(newDoctorCmd(provider))
	root.AddCommand(newSyncCmd(provider))

	return root
}
