package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths captures the resolved locations of a store's configuration.
type Paths struct {
	StoreDir   string // path to the .beads directory
	ConfigFile string // path to .beads/config.yaml
	MinibeadsFile string // path to .beads/config-minibeads.yaml
	IssuesDir  string // path to .beads/issues
}

func pathsFor(storeDir string) Paths {
	return Paths{
		StoreDir:      storeDir,
		ConfigFile:    filepath.Join(storeDir, "config.yaml"),
		MinibeadsFile: filepath.Join(storeDir, "config-minibeads.yaml"),
		IssuesDir:     filepath.Join(storeDir, "issues"),
	}
}

// Resolve finds the store directory to operate on, in priority order:
// explicitDir if given, else $MB_BEADS_DIR, else $BEADS_DB (its parent
// directory if it names a file), else the nearest ".beads" directory found
// by searching upward from the current working directory.
func Resolve(explicitDir string) (Paths, error) {
	if explicitDir != "" {
		return pathsFor(explicitDir), nil
	}
	if envDir := StoreDirOverride(); envDir != "" {
		return pathsFor(envDir), nil
	}
	if dbPath := BeadsDBOverride(); dbPath != "" {
		dir := dbPath
		if info, err := os.Stat(dbPath); err == nil && !info.IsDir() {
			dir = filepath.Dir(dbPath)
		}
		return pathsFor(dir), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return Paths{}, fmt.Errorf("config: getwd: %w", err)
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, ".beads")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return pathsFor(candidate), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return Paths{}, fmt.Errorf("config: no .beads directory found from %s upward (run `bd init`)", cwd)
}
