package cmd

import (
	"errors"

	"minibeads/internal/frontmatter"
	"minibeads/internal/lock"
	"minibeads/internal/rewrite"
	"minibeads/internal/store"
)

// ExitCode maps an error returned by Execute to the process exit code: 0
// success, 1 user error, 2 store error, 3 invariant violation. nil maps to
// 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrAlreadyExists),
		errors.Is(err, store.ErrAlreadyClosed),
		errors.Is(err, store.ErrNotClosed),
		errors.Is(err, store.ErrImportMalformed),
		errors.Is(err, rewrite.ErrNewIDTaken),
		errors.Is(err, rewrite.ErrCrossPrefixRename):
		return 1

	case errors.Is(err, store.ErrNotInitialized),
		errors.Is(err, store.ErrAlreadyInitialized),
		errors.Is(err, store.ErrConfigMalformed),
		errors.Is(err, store.ErrPrefixAmbiguous),
		errors.Is(err, lock.ErrBusy):
		return 2

	case errors.Is(err, store.ErrSelfDependency),
		errors.Is(err, store.ErrDependencyAbsent),
		errors.Is(err, store.ErrAlreadyMigrated),
		errors.Is(err, store.ErrPrefixRenameConflict),
		errors.Is(err, frontmatter.ErrHeaderDepthExceeded):
		return 3

	default:
		return 1
	}
}
