// Package rewrite implements the Rewriter: the three atomic multi-file
// transformations (rename, rename-prefix, migrate) plus the --repair scan
// for dangling dependency references. Every transformation stages its
// writes, then commits by renaming staged files into place only once every
// write has staged — a staging failure changes nothing visible, but a
// failure while renaming staged files into place is not rolled back. It
// reuses the same atomic tmp-file-plus-rename idiom as every other store
// write.
//
// Rename also rewrites free-text mentions of the renamed id (in other
// issues' Markdown bodies, not just their frontmatter), not just the
// depends_on edges pointing at it.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"minibeads/internal/idgen"
	"minibeads/internal/issue"
	"minibeads/internal/store"
)

// Plan describes the file-level effect of a transformation before it is
// committed, for --dry-run previews.
type Plan struct {
	Writes  []string // ids that will be (re)written
	Removes []string // ids whose file will be deleted
	Renames map[string]string // old id -> new id, informational
}

// ErrNewIDTaken is returned by Rename when the destination id already
// names an existing issue.
var ErrNewIDTaken = fmt.Errorf("rewrite: destination id already exists")

// ErrCrossPrefixRename is returned by Rename when old and new carry
// different prefixes; use RenamePrefix for that.
var ErrCrossPrefixRename = fmt.Errorf("rewrite: rename requires old and new ids to share a prefix")

// Rename moves old's content to new, rewriting every depends_on key and
// every free-text mention of old across every issue's fields. When dryRun
// is true, the plan is computed and returned without writing anything.
func Rename(ctx context.Context, s *store.Store, oldID, newID string, dryRun bool) (*Plan, error) {
	if prefixOf(oldID) != prefixOf(newID) {
		return nil, ErrCrossPrefixRename
	}

	lk, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	oldIssue, ok := all[oldID]
	if !ok {
		return nil, fmt.Errorf("rewrite: %s: %w", oldID, store.ErrNotFound)
	}
	if _, exists := all[newID]; exists {
		return nil, fmt.Errorf("rewrite: %s: %w", newID, ErrNewIDTaken)
	}

	plan := &Plan{Renames: map[string]string{oldID: newID}}
	renamed := oldIssue.Clone()
	renamed.ID = newID
	rewriteMentions(renamed, map[string]string{oldID: newID})
	plan.Writes = append(plan.Writes, newID)
	plan.Removes = append(plan.Removes, oldID)

	var toWrite []*issue.Issue
	toWrite = append(toWrite, renamed)

	ids := sortedIDs(all)
	for _, id := range ids {
		if id == oldID {
			continue
		}
		i := all[id]
		changed := false
		if _, has := i.DependsOn[oldID]; has {
			changed = true
		}
		if containsMention(i, oldID) {
			changed = true
		}
		if !changed {
			continue
		}
		updated := i.Clone()
		if kind, has := updated.DependsOn[oldID]; has {
			delete(updated.DependsOn, oldID)
			updated.DependsOn[newID] = kind
		}
		rewriteMentions(updated, map[string]string{oldID: newID})
		toWrite = append(toWrite, updated)
		plan.Writes = append(plan.Writes, id)
	}

	if dryRun {
		return plan, nil
	}

	if err := commit(s, toWrite, nil); err != nil {
		return nil, err
	}
	if err := s.RemoveIssueFile(oldID); err != nil {
		return nil, err
	}
	return plan, nil
}

// RenamePrefix rewrites every issue's id to carry newPrefix, preserving
// each tail. Collisions with existing ids under the new prefix fail with
// PrefixRenameConflict unless force is set, in which case the conflicting
// old file is overwritten deterministically (lexicographically smallest
// surviving old id wins).
func RenamePrefix(ctx context.Context, s *store.Store, newPrefix string, force, dryRun bool) (*Plan, error) {
	if !strings.HasSuffix(newPrefix, "-") {
		newPrefix += "-"
	}

	lk, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	oldIDs := sortedIDs(all)
	mapping := make(map[string]string, len(oldIDs))
	newIDOwner := make(map[string]string)
	for _, oldID := range oldIDs {
		newID := newPrefix + tailOf(oldID)
		mapping[oldID] = newID
		if owner, conflict := newIDOwner[newID]; conflict {
			if !force {
				return nil, fmt.Errorf("%w: %s and %s both map to %s", store.ErrPrefixRenameConflict, owner, oldID, newID)
			}
			// Deterministic resolution: keep the lexicographically smaller
			// old id's content under the conflicting new id.
			if oldID < owner {
				newIDOwner[newID] = oldID
			}
			continue
		}
		newIDOwner[newID] = oldID
	}

	plan := &Plan{Renames: mapping}
	var toWrite []*issue.Issue
	for newID, winnerOldID := range newIDOwner {
		i := all[winnerOldID].Clone()
		i.ID = newID
		for target, kind := range i.DependsOn {
			if mapped, ok := mapping[target]; ok {
				delete(i.DependsOn, target)
				i.DependsOn[mapped] = kind
			}
		}
		rewriteMentions(i, mapping)
		toWrite = append(toWrite, i)
		plan.Writes = append(plan.Writes, newID)
	}
	for _, oldID := range oldIDs {
		plan.Removes = append(plan.Removes, oldID)
	}

	if dryRun {
		return plan, nil
	}

	if err := commit(s, toWrite, nil); err != nil {
		return nil, err
	}
	for _, oldID := range oldIDs {
		if err := s.RemoveIssueFile(oldID); err != nil {
			return nil, err
		}
	}
	if err := s.SetPrefix(newPrefix); err != nil {
		return nil, err
	}
	return plan, nil
}

// MigrationDirection selects which scheme Migrate targets.
type MigrationDirection string

const (
	ToSequential MigrationDirection = "to_sequential"
	ToHashed     MigrationDirection = "to_hashed"
)

// Migrate rewrites every issue's tail to the target scheme, reusing
// idgen's allocator so hashed tails get the same adaptive-length and
// collision-avoidance treatment as a freshly created issue. Refuses with
// AlreadyMigrated if the store's configured scheme already matches.
func Migrate(ctx context.Context, s *store.Store, direction MigrationDirection, dryRun bool) (*Plan, error) {
	wantHash := direction == ToHashed
	if s.Config().HashIDs() == wantHash {
		return nil, store.ErrAlreadyMigrated
	}

	lk, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	prefix := s.Prefix()
	oldIDs := sortedIDs(all)
	mapping := make(map[string]string, len(oldIDs))

	if wantHash {
		taken := make(map[string]bool, len(oldIDs))
		for i, oldID := range oldIDs {
			length := idgen.AdaptiveLength(i)
			exists := func(candidate string) bool { return taken[candidate] }
			tail, err := idgen.GenerateHashedTail(prefix, length, exists)
			if err != nil {
				return nil, err
			}
			newID := prefix + tail
			taken[newID] = true
			mapping[oldID] = newID
		}
	} else {
		for i, oldID := range oldIDs {
			mapping[oldID] = prefix + strconv.Itoa(i+1)
		}
	}

	plan := &Plan{Renames: mapping}
	var toWrite []*issue.Issue
	for _, oldID := range oldIDs {
		i := all[oldID].Clone()
		i.ID = mapping[oldID]
		for target, kind := range i.DependsOn {
			if mapped, ok := mapping[target]; ok {
				delete(i.DependsOn, target)
				i.DependsOn[mapped] = kind
			}
		}
		rewriteMentions(i, mapping)
		toWrite = append(toWrite, i)
		plan.Writes = append(plan.Writes, i.ID)
		plan.Removes = append(plan.Removes, oldID)
	}

	if dryRun {
		return plan, nil
	}

	if err := commit(s, toWrite, nil); err != nil {
		return nil, err
	}
	for _, oldID := range oldIDs {
		if err := s.RemoveIssueFile(oldID); err != nil {
			return nil, err
		}
	}
	return plan, s.Config().SetHashIDs(wantHash)
}

// RepairReport lists dangling depends_on references found (and, if
// requested, removed).
type RepairReport struct {
	Dangling []DanglingRef
	Repaired bool
}

// DanglingRef names a depends_on edge whose target does not exist.
type DanglingRef struct {
	SourceID string
	TargetID string
	Kind     issue.DependencyKind
}

// Repair scans every issue for depends_on edges pointing at a nonexistent
// id. When fix is true the dangling edges are removed and the owning
// issues rewritten; otherwise it only reports them — repair is always
// opt-in, never automatic.
func Repair(ctx context.Context, s *store.Store, fix bool) (*RepairReport, error) {
	lk, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	report := &RepairReport{}
	ids := sortedIDs(all)
	for _, id := range ids {
		i := all[id]
		var dangling []string
		for target, kind := range i.DependsOn {
			if _, ok := all[target]; !ok {
				report.Dangling = append(report.Dangling, DanglingRef{SourceID: id, TargetID: target, Kind: kind})
				dangling = append(dangling, target)
			}
		}
		if fix && len(dangling) > 0 {
			updated := i.Clone()
			for _, target := range dangling {
				delete(updated.DependsOn, target)
			}
			if err := s.WriteIssue(updated, false); err != nil {
				return nil, err
			}
			report.Repaired = true
		}
	}
	return report, nil
}

// commit stages every issue to a temp file beside its final path, and only
// renames the whole batch into place once every single one has staged
// successfully. If any issue fails to stage, every temp file already
// written for this batch is removed and commit returns without any final
// path having changed. If renaming write N into place fails, writes
// 1..N-1 stay visible at their final paths.
func commit(s *store.Store, issues []*issue.Issue, _ []string) error {
	staged := make([]*store.StagedWrite, 0, len(issues))
	for _, i := range issues {
		w, err := s.StageIssue(i, false)
		if err != nil {
			store.AbortStaged(staged)
			return fmt.Errorf("rewrite: staging %s: %w", i.ID, err)
		}
		staged = append(staged, w)
	}
	if err := store.CommitStaged(staged); err != nil {
		return fmt.Errorf("rewrite: committing staged writes: %w", err)
	}
	return nil
}

// mentionPattern matches a whole-word occurrence of an id (prefix-tail,
// where tail is alphanumeric) inside free text.
func mentionPattern(id string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(id) + `\b`)
}

func containsMention(i *issue.Issue, id string) bool {
	pattern := mentionPattern(id)
	for _, f := range i.FieldText() {
		if pattern.MatchString(*f) {
			return true
		}
	}
	return false
}

// rewriteMentions replaces every whole-word occurrence of each old id in
// mapping with its new id across every free-text field of i, longest id
// first so that renaming both "bd-1" and "bd-10" in the same pass never
// lets the shorter id's pattern clobber part of the longer one.
func rewriteMentions(i *issue.Issue, mapping map[string]string) {
	olds := make([]string, 0, len(mapping))
	for old := range mapping {
		olds = append(olds, old)
	}
	sort.Slice(olds, func(a, b int) bool { return len(olds[a]) > len(olds[b]) })

	for _, f := range i.FieldText() {
		for _, old := range olds {
			*f = mentionPattern(old).ReplaceAllString(*f, mapping[old])
		}
	}
}

func prefixOf(id string) string {
	if idx := strings.IndexByte(id, '-'); idx >= 0 {
		return id[:idx+1]
	}
	return id
}

func tailOf(id string) string {
	if idx := strings.IndexByte(id, '-'); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

func sortedIDs(all map[string]*issue.Issue) []string {
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
