package config

import "os"

// Environment variable names minibeads recognizes.
const (
	EnvStoreDir = "MB_BEADS_DIR" // path to the .beads directory, overriding upward search
	EnvBeadsDB  = "BEADS_DB"     // path to the .beads directory or a file within it; lower priority than MB_BEADS_DIR
	EnvJSON     = "MB_JSON"      // force JSON CLI output ("1" or "true")
	EnvQuiet    = "MB_QUIET"     // suppress non-error CLI output ("1" or "true")
)

// StoreDirOverride returns the value of MB_BEADS_DIR, or "" if unset.
func StoreDirOverride() string {
	return os.Getenv(EnvStoreDir)
}

// BeadsDBOverride returns the value of BEADS_DB, or "" if unset.
func BeadsDBOverride() string {
	return os.Getenv(EnvBeadsDB)
}
