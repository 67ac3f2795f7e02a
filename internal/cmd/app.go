// Package cmd implements the bd command-line interface: a thin cobra
// wrapper that translates argv into calls against internal/store,
// internal/query, internal/rewrite, internal/mirror, and internal/sync.
// None of the core's invariants live here — this package only parses
// flags, renders output, and maps errors to exit codes.
package cmd

import (
	"io"
	"os"

	"golang.org/x/term"

	"minibeads/internal/config"
	"minibeads/internal/store"
)

// App holds the state shared across every command's RunE body.
type App struct {
	Store *store.Store
	Out   io.Writer
	Err   io.Writer
	JSON  bool
}

// SuccessColor wraps s in green ANSI codes if Out is a terminal, otherwise
// returns it unchanged.
func (a *App) SuccessColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[32m" + s + "\033[0m"
	}
	return s
}

// WarnColor wraps s in orange ANSI codes if Out is a terminal, otherwise
// returns it unchanged.
func (a *App) WarnColor(s string) string {
	if f, ok := a.Out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "\033[38;5;214m" + s + "\033[0m"
	}
	return s
}

// logCommand appends one line to command_history.log unless
// mb-no-cmd-logging is set. This is a collaborator-level convenience, not
// a core-managed file — failures to write it are silently ignored.
func (a *App) logCommand(args []string) {
	if a.Store == nil || a.Store.Config().NoCmdLogging() {
		return
	}
	f, err := os.OpenFile(a.Store.Dir()+string(os.PathSeparator)+"command_history.log",
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	line := "bd"
	for _, a := range args {
		line += " " + a
	}
	f.WriteString(line + "\n")
}

// envJSON reports whether MB_JSON asks for JSON output regardless of the
// --json flag.
func envJSON() bool {
	v := os.Getenv(config.EnvJSON)
	return v == "1" || v == "true"
}
