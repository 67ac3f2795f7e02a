// Package store implements the Repository: the component that owns the
// on-disk layout of a minibeads store (.beads/config.yaml,
// config-minibeads.yaml, issues/*.md) and every operation that reads or
// mutates it under a single coarse store lock (one lock per store, not
// per issue file).
//
// Every issue-file write goes through a tmp-file-plus-rename atomic-write
// idiom; config.yaml is written in place.
// Cycle detection is deliberately left out of the write path: cycles are
// a read-only, detected-not-prevented property surfaced by
// internal/depgraph, not something Create/AddDependency rejects.
package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"minibeads/internal/config"
	"minibeads/internal/frontmatter"
	"minibeads/internal/idgen"
	"minibeads/internal/issue"
	"minibeads/internal/lock"
)

// Store is an open handle to a minibeads store directory.
type Store struct {
	paths config.Paths
	sc    config.StoreConfig
	mb    *config.Minibeads
}

// Init creates a new store at dir. If prefix is empty, it defaults to
// "bd-". When hashIDs is true, config-minibeads.yaml's mb-hash-ids is
// seeded true so the store allocates hashed-tail ids from its very first
// issue, without needing a later mb-migrate. Returns ErrAlreadyInitialized
// if config.yaml already exists.
func Init(dir, prefix string, hashIDs bool) (*Store, error) {
	paths := pathsFor(dir)

	if _, err := os.Stat(paths.ConfigFile); err == nil {
		return nil, ErrAlreadyInitialized
	}

	if prefix == "" {
		prefix = "bd-"
	}
	if !strings.HasSuffix(prefix, "-") {
		prefix += "-"
	}

	if err := os.MkdirAll(paths.IssuesDir, 0755); err != nil {
		return nil, fmt.Errorf("store: creating issues/: %w", err)
	}

	sc := config.StoreConfig{Prefix: prefix}
	if err := config.WriteStoreConfig(paths.ConfigFile, sc); err != nil {
		return nil, err
	}

	mb, err := config.OpenMinibeadsConfig(paths.MinibeadsFile)
	if err != nil {
		return nil, err
	}
	if hashIDs {
		if err := mb.SetHashIDs(true); err != nil {
			return nil, err
		}
	}

	ensureGitignore(dir)

	return &Store{paths: paths, sc: sc, mb: mb}, nil
}

// Open resolves and opens an existing store. explicitDir may be empty, in
// which case $MB_BEADS_DIR, then $BEADS_DB, then an upward directory search
// are used.
func Open(explicitDir string) (*Store, error) {
	paths, err := config.Resolve(explicitDir)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(paths.ConfigFile); err != nil {
		return nil, ErrNotInitialized
	}

	sc, err := config.LoadStoreConfig(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigMalformed, err)
	}
	if sc.Prefix == "" {
		inferred, ierr := InferPrefix(paths.IssuesDir)
		if ierr != nil {
			return nil, ierr
		}
		sc.Prefix = inferred
		if err := config.WriteStoreConfig(paths.ConfigFile, sc); err != nil {
			return nil, err
		}
	}

	mb, err := config.OpenMinibeadsConfig(paths.MinibeadsFile)
	if err != nil {
		return nil, err
	}

	cleanupStaleTempFiles(paths.IssuesDir)

	return &Store{paths: paths, sc: sc, mb: mb}, nil
}

func pathsFor(dir string) config.Paths {
	p, _ := config.Resolve(dir)
	return p
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.paths.StoreDir }

// Prefix returns the configured issue id prefix, including trailing "-".
func (s *Store) Prefix() string { return s.sc.Prefix }

// Config returns the store's flat config-minibeads.yaml accessor.
func (s *Store) Config() *config.Minibeads { return s.mb }

// IssuesDir returns the store's flat issues directory, one file per id.
func (s *Store) IssuesDir() string { return s.paths.IssuesDir }

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.paths.IssuesDir, id+".md")
}

// PathFor returns the on-disk path an issue with id would occupy. Exported
// for the Rewriter, which stages writes and renames outside the
// Repository's own mutation methods.
func (s *Store) PathFor(id string) string { return s.pathFor(id) }

// ConfigFile returns the path to config.yaml.
func (s *Store) ConfigFile() string { return s.paths.ConfigFile }

// MinibeadsFile returns the path to config-minibeads.yaml.
func (s *Store) MinibeadsFile() string { return s.paths.MinibeadsFile }

// SetPrefix updates the store's in-memory and on-disk issue-prefix, used by
// the Rewriter's rename-prefix operation after it has staged every file
// under the new prefix.
func (s *Store) SetPrefix(prefix string) error {
	s.sc.Prefix = prefix
	return config.WriteStoreConfig(s.paths.ConfigFile, s.sc)
}

// lock acquires the store's coarse lock for the duration of a mutation.
func (s *Store) lock() (*lock.Lock, error) {
	return lock.Acquire(s.paths.StoreDir)
}

// Lock acquires the store's coarse lock. Exported for the Rewriter, whose
// multi-file transformations must hold the lock across the whole staged
// commit rather than per mutation.
func (s *Store) Lock() (*lock.Lock, error) { return s.lock() }

// LoadAll reads and decodes every issue file in the store. Exported for
// the Rewriter and the Sync Planner, which both need a full snapshot
// outside the per-id Repository operations.
func (s *Store) LoadAll() (map[string]*issue.Issue, error) { return s.loadAll() }

// WriteIssue atomically (re)writes i's file in place, bypassing the
// per-operation bump-and-validate logic in Update/Close/etc. Exported for
// the Rewriter's staged commits and the Sync Planner/Applier, both of
// which write pre-built Issue values directly.
func (s *Store) WriteIssue(i *issue.Issue, isNew bool) error {
	text, err := frontmatter.Encode(i, isNew)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.pathFor(i.ID), []byte(text))
}

// RemoveIssueFile deletes id's file, if present. Exported for the
// Rewriter's rename commit, which removes the old id's file once the new
// one is staged.
func (s *Store) RemoveIssueFile(id string) error {
	err := os.Remove(s.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// StagedWrite is one issue's rewritten content sitting at a temp path,
// waiting to be renamed into place by CommitStaged.
type StagedWrite struct {
	tmp   string
	final string
}

// StageIssue encodes i and writes it to a temp path beside its final
// location, but does not rename it into place. Used by the Rewriter so a
// whole batch of issues can be written out before any of them becomes
// visible at its final path: CommitStaged renames every StagedWrite only
// once every issue in the batch has staged successfully, and AbortStaged
// removes the temp files if any one of them failed.
func (s *Store) StageIssue(i *issue.Issue, isNew bool) (*StagedWrite, error) {
	text, err := frontmatter.Encode(i, isNew)
	if err != nil {
		return nil, err
	}
	final := s.pathFor(i.ID)
	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return nil, fmt.Errorf("store: creating directory: %w", err)
	}

	randSuffix := make([]byte, 8)
	if _, err := rand.Read(randSuffix); err != nil {
		return nil, fmt.Errorf("store: generating temp suffix: %w", err)
	}
	tmp := final + ".tmp." + hex.EncodeToString(randSuffix)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("store: creating temp file: %w", err)
	}
	if _, err := f.Write([]byte(text)); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("store: syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("store: closing temp file: %w", err)
	}
	return &StagedWrite{tmp: tmp, final: final}, nil
}

// CommitStaged renames every staged write into place. Call only once every
// StageIssue call in the batch has succeeded; if renaming write N fails,
// writes 1..N-1 are already visible at their final paths and the caller
// cannot roll those back, so callers must ensure a batch is either fully
// staged or fully aborted before CommitStaged is ever reached.
func CommitStaged(writes []*StagedWrite) error {
	for _, w := range writes {
		if err := os.Rename(w.tmp, w.final); err != nil {
			return fmt.Errorf("store: renaming %s into place: %w", w.final, err)
		}
	}
	return nil
}

// AbortStaged removes every staged write's temp file, leaving no trace at
// any final path. Called when a batch fails partway through staging.
func AbortStaged(writes []*StagedWrite) {
	for _, w := range writes {
		os.Remove(w.tmp)
	}
}

// SetFileMtime sets the mtime of id's file, used by the Sync Applier and
// the Export/Import Codec's import path to keep filesystem mtime
// authoritative over a Markdown-side write.
func (s *Store) SetFileMtime(id string, t time.Time) error {
	return os.Chtimes(s.pathFor(id), t, t)
}

// FileMtime returns the mtime of id's on-disk file.
func (s *Store) FileMtime(id string) (time.Time, error) {
	info, err := os.Stat(s.pathFor(id))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Create allocates a new id, builds an Issue from the given title and
// patch, validates each depends_on target (emitting a non-fatal
// WarnForwardReference for any missing target), and writes it atomically.
// Under ValidationError, a forward-reference warning is returned as the
// error instead of being collected, and nothing is written.
func (s *Store) Create(ctx context.Context, title string, patch *issue.Patch, deps map[string]issue.DependencyKind, mode issue.ValidationMode) (*issue.Issue, []issue.Warning, error) {
	l, err := s.lock()
	if err != nil {
		return nil, nil, err
	}
	defer l.Release()

	existing, err := s.loadAll()
	if err != nil {
		return nil, nil, err
	}

	id, err := s.allocateID(existing)
	if err != nil {
		return nil, nil, err
	}

	i := issue.New(id, title)
	if patch != nil {
		patch.Apply(i)
	}
	i.UpdatedAt = i.CreatedAt

	var warnings []issue.Warning
	if deps != nil {
		for targetID, kind := range deps {
			if targetID == id {
				return nil, nil, fmt.Errorf("%w: %s", ErrSelfDependency, id)
			}
			if _, ok := existing[targetID]; !ok {
				if w := issue.Emit(mode, issue.WarnForwardReference, "dependency target %s does not exist yet", targetID); w != nil {
					if mode == issue.ValidationError {
						return nil, nil, w
					}
					warnings = append(warnings, *w)
				}
			}
			i.DependsOn[targetID] = kind
		}
	}

	if err := s.writeNew(i); err != nil {
		return nil, nil, err
	}
	return i, warnings, nil
}

// ResolveID expands a bare id tail (e.g. "42" or "f3p2") into the matching
// full <prefix>-<tail> id. An id that already contains a '-' is returned
// unchanged, on the assumption it is already a full id. If the store's
// own prefix plus the bare tail doesn't match anything, every issue is
// checked for a tail match: ErrAmbiguousID is returned when more than
// one issue's tail matches the bare input (only possible transiently,
// e.g. mid rename-prefix); a bare input matching nothing is returned
// unchanged so the caller's own Get/Update surfaces ErrNotFound.
func (s *Store) ResolveID(ctx context.Context, id string) (string, error) {
	if strings.Contains(id, "-") {
		return id, nil
	}

	all, err := s.loadAll()
	if err != nil {
		return "", err
	}

	if _, ok := all[s.sc.Prefix+id]; ok {
		return s.sc.Prefix + id, nil
	}

	var matches []string
	for existingID := range all {
		dash := strings.IndexByte(existingID, '-')
		if dash < 0 {
			continue
		}
		if existingID[dash+1:] == id {
			matches = append(matches, existingID)
		}
	}
	switch len(matches) {
	case 0:
		return id, nil
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %q matches %s", ErrAmbiguousID, id, strings.Join(matches, ", "))
	}
}

// Get reads an issue by id. It does not compute dependents; callers derive
// them from a full snapshot with depgraph.Dependents.
func (s *Store) Get(ctx context.Context, id string) (*issue.Issue, error) {
	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	i, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return i, nil
}

// List returns every issue in the store, keyed by id.
func (s *Store) List(ctx context.Context) (map[string]*issue.Issue, error) {
	return s.loadAll()
}

// Update applies patch to an existing issue and writes it back atomically.
func (s *Store) Update(ctx context.Context, id string, patch *issue.Patch) (*issue.Issue, error) {
	l, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	i, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	patch.Apply(i)

	return i, s.rewrite(i)
}

// CloseIssue marks id closed, stamping closed_at.
func (s *Store) CloseIssue(ctx context.Context, id, reason string) (*issue.Issue, error) {
	l, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	i, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if i.Status == issue.StatusClosed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClosed, id)
	}

	now := time.Now().UTC()
	i.Status = issue.StatusClosed
	i.ClosedAt = &now
	i.UpdatedAt = now
	if reason != "" {
		appendNote(i, reason)
	}

	return i, s.rewrite(i)
}

// ReopenIssue marks id open again, clearing closed_at.
func (s *Store) ReopenIssue(ctx context.Context, id, reason string) (*issue.Issue, error) {
	l, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	i, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if i.Status != issue.StatusClosed {
		return nil, fmt.Errorf("%w: %s", ErrNotClosed, id)
	}

	i.Status = issue.StatusOpen
	i.ClosedAt = nil
	i.UpdatedAt = time.Now().UTC()
	if reason != "" {
		appendNote(i, reason)
	}

	return i, s.rewrite(i)
}

func appendNote(i *issue.Issue, reason string) {
	if i.Notes == "" {
		i.Notes = reason
		return
	}
	i.Notes = i.Notes + "\n\n" + reason
}

// AddDependency adds a depends_on edge from id to targetID. Self-dependency
// is rejected outright; a target that does not (yet) exist produces a
// non-fatal WarnForwardReference under ValidationWarn, or is returned as a
// terminal error under ValidationError without writing anything. Cycles
// are never prevented here — see internal/depgraph.Cycles for read-only
// detection.
func (s *Store) AddDependency(ctx context.Context, id, targetID string, kind issue.DependencyKind, mode issue.ValidationMode) (*issue.Warning, error) {
	if id == targetID {
		return nil, fmt.Errorf("%w: %s", ErrSelfDependency, id)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("store: unknown dependency kind %q", kind)
	}

	l, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	i, ok := all[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var warning *issue.Warning
	if _, targetExists := all[targetID]; !targetExists {
		warning = issue.Emit(mode, issue.WarnForwardReference, "dependency target %s does not exist yet", targetID)
		if warning != nil && mode == issue.ValidationError {
			return nil, warning
		}
	}

	i.DependsOn[targetID] = kind
	i.UpdatedAt = time.Now().UTC()

	if err := s.rewrite(i); err != nil {
		return nil, err
	}
	return warning, nil
}

// RemoveDependency removes the depends_on edge from id to targetID, if any.
// Returns ErrDependencyAbsent if no such edge exists.
func (s *Store) RemoveDependency(ctx context.Context, id, targetID string) error {
	l, err := s.lock()
	if err != nil {
		return err
	}
	defer l.Release()

	all, err := s.loadAll()
	if err != nil {
		return err
	}
	i, ok := all[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if _, ok := i.DependsOn[targetID]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrDependencyAbsent, id, targetID)
	}

	delete(i.DependsOn, targetID)
	i.UpdatedAt = time.Now().UTC()

	return s.rewrite(i)
}

// loadAll reads and decodes every issue file under issues/.
func (s *Store) loadAll() (map[string]*issue.Issue, error) {
	out := make(map[string]*issue.Issue)
	entries, err := os.ReadDir(s.paths.IssuesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("store: reading %s: %w", s.paths.IssuesDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".md")
		content, err := os.ReadFile(filepath.Join(s.paths.IssuesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("store: reading %s: %w", entry.Name(), err)
		}
		i, _, err := frontmatter.Decode(string(content), issue.ValidationSilent)
		if err != nil {
			return nil, fmt.Errorf("store: decoding %s: %w", entry.Name(), err)
		}
		i.ID = id
		out[id] = i
	}
	return out, nil
}

// writeNew writes a newly-created issue's file for the first time.
func (s *Store) writeNew(i *issue.Issue) error {
	text, err := frontmatter.Encode(i, true)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.pathFor(i.ID), []byte(text))
}

// rewrite writes i's current state back to disk in place. The write is
// atomic (tmp file + rename within issues/), so a concurrent reader never
// observes a partial file — and since only one process ever holds the
// store lock at a time, no reader observes a partial mutation either.
func (s *Store) rewrite(i *issue.Issue) error {
	text, err := frontmatter.Encode(i, false)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.pathFor(i.ID), []byte(text))
}

// allocateID picks the next id given the store's configured scheme.
func (s *Store) allocateID(existing map[string]*issue.Issue) (string, error) {
	prefix := s.sc.Prefix

	if s.mb.HashIDs() {
		length := idgen.AdaptiveLength(len(existing))
		exists := func(candidate string) bool {
			_, ok := existing[candidate]
			return ok
		}
		tail, err := idgen.GenerateHashedTail(prefix, length, exists)
		if err != nil {
			return "", err
		}
		return prefix + tail, nil
	}

	var nums []uint64
	for id := range existing {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.ParseUint(strings.TrimPrefix(id, prefix), 10, 64); err == nil {
			nums = append(nums, n)
		}
	}
	next := idgen.NextSequential(nums)
	return prefix + strconv.FormatUint(next, 10), nil
}

// InferPrefix inspects an issues directory's existing filenames and returns
// the single distinct prefix found. An empty directory yields "bd-" with no
// error. More than one distinct prefix yields ErrPrefixAmbiguous: an
// ambiguous prefix is flagged rather than silently guessed.
func InferPrefix(issuesDir string) (string, error) {
	prefixes := make(map[string]bool)
	entries, err := os.ReadDir(issuesDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".md")
			if dash := strings.IndexByte(id, '-'); dash >= 0 {
				prefixes[id[:dash+1]] = true
			}
		}
	}
	if len(prefixes) == 0 {
		return "bd-", nil
	}
	if len(prefixes) > 1 {
		list := make([]string, 0, len(prefixes))
		for p := range prefixes {
			list = append(list, p)
		}
		sort.Strings(list)
		return "", fmt.Errorf("%w: found %s", ErrPrefixAmbiguous, strings.Join(list, ", "))
	}
	for p := range prefixes {
		return p, nil
	}
	panic("unreachable")
}

func ensureGitignore(dir string) {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return
	}
	_ = os.WriteFile(path, []byte("minibeads.lock\ncommand_history.log\n*.tmp.*\n"), 0644)
}

// cleanupStaleTempFiles removes any *.tmp.* file left behind by a process
// that was killed mid-commit.
func cleanupStaleTempFiles(issuesDir string) {
	entries, err := os.ReadDir(issuesDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp.") {
			os.Remove(filepath.Join(issuesDir, e.Name()))
		}
	}
}

// atomicWriteFile writes data to path via a temp file in the same directory
// followed by os.Rename, so a crash mid-write never leaves a partial file
// at the final path.
func atomicWriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("store: creating directory: %w", err)
	}

	randSuffix := make([]byte, 8)
	if _, err := rand.Read(randSuffix); err != nil {
		return fmt.Errorf("store: generating temp suffix: %w", err)
	}
	tmp := path + ".tmp." + hex.EncodeToString(randSuffix)

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("store: syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: closing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: renaming into place: %w", err)
	}
	return nil
}
