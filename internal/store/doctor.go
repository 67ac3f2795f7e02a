package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DoctorReport lists the integrity problems Doctor found. This supplements
// (does not replace) the Rewriter's narrower --repair operation, which
// only fixes dangling depends_on references.
type DoctorReport struct {
	OrphanedTempFiles []string
	IDMismatches      []string // filename stem disagrees with frontmatter id
	Fixed             []string
}

// Doctor scans the store for orphaned *.tmp.* files and files whose
// filename disagrees with their loaded id. When fix is true, orphaned temp
// files are removed; id mismatches are only reported, never corrected.
// Since loadAll takes every issue's id from its file name, IDMismatches
// stays empty for files read through it.
func (s *Store) Doctor(ctx context.Context, fix bool) (*DoctorReport, error) {
	if fix {
		lk, err := s.lock()
		if err != nil {
			return nil, err
		}
		defer lk.Release()
	}

	report := &DoctorReport{}

	entries, err := os.ReadDir(s.paths.IssuesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", s.paths.IssuesDir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), ".tmp.") {
			path := filepath.Join(s.paths.IssuesDir, e.Name())
			report.OrphanedTempFiles = append(report.OrphanedTempFiles, path)
			if fix {
				if err := os.Remove(path); err == nil {
					report.Fixed = append(report.Fixed, "removed orphaned temp file "+path)
				}
			}
		}
	}

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for id, i := range all {
		if i.ID != id {
			report.IDMismatches = append(report.IDMismatches,
				fmt.Sprintf("%s.md: frontmatter id is %s", id, i.ID))
		}
	}

	return report, nil
}
