// Package sync implements the Sync Planner/Applier: bidirectional
// reconciliation between the Markdown store and the issues.jsonl mirror,
// using filesystem mtime as the Markdown side's authority and each
// record's updated_at as the mirror side's.
//
// The compare-and-reconcile loop is split into a plan/apply pair so
// --dry-run can preview the reconciliation without writing anything.
package sync

import (
	"fmt"
	"os"
	"sort"
	"time"

	"minibeads/internal/issue"
	"minibeads/internal/mirror"
	"minibeads/internal/store"
)

// Action is the reconciliation decision for one id.
type Action string

const (
	ActionNone         Action = "none"
	ActionCreateInJSON Action = "create_in_json"
	ActionCreateInMD   Action = "create_in_md"
	ActionUpdateJSON   Action = "update_json_from_md"
	ActionUpdateMD     Action = "update_md_from_json"
	ActionConflict     Action = "conflict"
)

// Item is one id's planned action.
type Item struct {
	ID     string
	Action Action
	MTime  time.Time // Markdown side's authoritative timestamp, zero if absent
	JTime  time.Time // mirror side's updated_at, zero if absent
}

// Plan is the full reconciliation decision for a store/mirror pair.
type Plan struct {
	Items     []Item
	Conflicts []Item
}

// DefaultTolerance absorbs filesystem mtime precision loss; a store's
// config-minibeads.yaml mb-sync-tolerance-ms overrides it.
const DefaultTolerance = time.Second

// Compute classifies every id present on either side of the store/mirror
// pair. mdTimes and mirrorIssues are snapshots the caller gathers
// beforehand so Plan can be computed without holding the store lock for
// longer than the snapshot read.
func Compute(mdIssues map[string]*issue.Issue, mdTimes map[string]time.Time, mirrorIssues map[string]*issue.Issue, tolerance time.Duration) *Plan {
	ids := make(map[string]bool)
	for id := range mdIssues {
		ids[id] = true
	}
	for id := range mirrorIssues {
		ids[id] = true
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	plan := &Plan{}
	for _, id := range sorted {
		mIssue, onM := mdIssues[id]
		jIssue, onJ := mirrorIssues[id]

		switch {
		case onM && !onJ:
			plan.Items = append(plan.Items, Item{ID: id, Action: ActionCreateInJSON, MTime: mdTimes[id]})
		case onJ && !onM:
			plan.Items = append(plan.Items, Item{ID: id, Action: ActionCreateInMD, JTime: jIssue.UpdatedAt})
		default:
			mt := mdTimes[id]
			jt := jIssue.UpdatedAt
			item := Item{ID: id, MTime: mt, JTime: jt}
			delta := mt.Sub(jt)
			switch {
			case delta > tolerance:
				item.Action = ActionUpdateJSON
			case -delta > tolerance:
				item.Action = ActionUpdateMD
			case issuesEqual(mIssue, jIssue):
				item.Action = ActionNone
			default:
				item.Action = ActionConflict
				plan.Conflicts = append(plan.Conflicts, item)
			}
			plan.Items = append(plan.Items, item)
		}
	}
	return plan
}

// issuesEqual compares the fields that matter for "did the content
// actually change", ignoring the exact timestamp source, so that two sides
// sampled near-simultaneously with no real edit don't register as a
// Conflict merely from nanosecond/second mtime truncation noise.
func issuesEqual(a, b *issue.Issue) bool {
	if a.Title != b.Title || a.Status != b.Status || a.Priority != b.Priority ||
		a.Type != b.Type || a.Assignee != b.Assignee || a.ExternalRef != b.ExternalRef {
		return false
	}
	if len(a.DependsOn) != len(b.DependsOn) {
		return false
	}
	for id, kind := range a.DependsOn {
		if b.DependsOn[id] != kind {
			return false
		}
	}
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	aLabels := append([]string(nil), a.Labels...)
	bLabels := append([]string(nil), b.Labels...)
	sort.Strings(aLabels)
	sort.Strings(bLabels)
	for i := range aLabels {
		if aLabels[i] != bLabels[i] {
			return false
		}
	}
	return true
}

// Apply executes plan against s (the Markdown store) and mirrorPath (the
// issues.jsonl file), skipping Conflict items — conflicting ids are never
// auto-resolved and are left for a caller to reconcile by hand. Every
// Markdown write sets the file's mtime to the written issue's updated_at
// so the store stays authoritative for its own side afterward.
func Apply(s *store.Store, mirrorPath string, mdIssues, mirrorIssues map[string]*issue.Issue, plan *Plan) error {
	mirrorChanged := false
	updatedMirror := make(map[string]*issue.Issue, len(mirrorIssues))
	for id, i := range mirrorIssues {
		updatedMirror[id] = i
	}

	lk, err := s.Lock()
	if err != nil {
		return err
	}
	defer lk.Release()

	for _, item := range plan.Items {
		switch item.Action {
		case ActionNone, ActionConflict:
			continue
		case ActionCreateInJSON, ActionUpdateJSON:
			updatedMirror[item.ID] = mdIssues[item.ID]
			mirrorChanged = true
		case ActionCreateInMD, ActionUpdateMD:
			i := mirrorIssues[item.ID]
			if err := s.WriteIssue(i, item.Action == ActionCreateInMD); err != nil {
				return fmt.Errorf("sync: writing %s: %w", item.ID, err)
			}
			if err := s.SetFileMtime(item.ID, i.UpdatedAt); err != nil {
				return fmt.Errorf("sync: setting mtime for %s: %w", item.ID, err)
			}
		}
	}

	if mirrorChanged {
		if err := writeMirror(mirrorPath, updatedMirror); err != nil {
			return err
		}
	}
	return nil
}

func writeMirror(path string, issues map[string]*issue.Issue) error {
	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sorted := make([]*issue.Issue, len(ids))
	for i, id := range ids {
		sorted[i] = issues[id]
	}

	tmp := path + ".tmp.sync"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("sync: creating mirror temp file: %w", err)
	}
	if err := mirror.Export(f, sorted, nil); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// LoadMDTimes reads the mtime of every issue file currently on disk.
func LoadMDTimes(s *store.Store, issues map[string]*issue.Issue) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(issues))
	for id := range issues {
		t, err := s.FileMtime(id)
		if err != nil {
			return nil, fmt.Errorf("sync: stat %s: %w", id, err)
		}
		out[id] = t
	}
	return out, nil
}

// LoadMirror reads and parses mirrorPath, ignoring malformed lines (they
// are reported by mirror.Import's LineErrors; a full sync run logs and
// skips them rather than aborting).
func LoadMirror(mirrorPath string) (map[string]*issue.Issue, []mirror.LineError, error) {
	f, err := os.Open(mirrorPath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*issue.Issue{}, nil, nil
		}
		return nil, nil, err
	}
	defer f.Close()

	list, errs := mirror.Import(f)
	out := make(map[string]*issue.Issue, len(list))
	for _, i := range list {
		out[i.ID] = i
	}
	return out, errs, nil
}
