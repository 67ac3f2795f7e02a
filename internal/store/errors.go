package store

import "errors"

// Error kinds, one sentinel per distinct failure category. Callers use
// errors.Is against these; operations wrap them with context via %w.
var (
	ErrNotInitialized      = errors.New("store: not initialized")
	ErrAlreadyInitialized  = errors.New("store: already initialized")
	ErrConfigMalformed     = errors.New("store: config malformed")
	ErrPrefixAmbiguous     = errors.New("store: issue prefix is ambiguous")
	ErrNotFound            = errors.New("store: issue not found")
	ErrAmbiguousID         = errors.New("store: bare id matches more than one issue")
	ErrAlreadyExists       = errors.New("store: issue already exists")
	ErrAlreadyClosed       = errors.New("store: issue already closed")
	ErrNotClosed           = errors.New("store: issue not closed")
	ErrSelfDependency      = errors.New("store: an issue cannot depend on itself")
	ErrDependencyAbsent    = errors.New("store: no such dependency")
	ErrPrefixRenameConflict = errors.New("store: renaming the prefix would collide with an existing issue")
	ErrAlreadyMigrated     = errors.New("store: already using the requested id scheme")
	ErrImportMalformed     = errors.New("store: malformed import data")
)
