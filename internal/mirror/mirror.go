// Package mirror implements the Export/Import Codec: translation between
// the Repository's internal Issue form and the issues.jsonl line-delimited
// JSON mirror. One compact JSON object per line, dependencies/dependents
// represented as {id, type} arrays. File writes go through the same
// tmp-file-plus-rename atomic-write idiom as the rest of the store.
package mirror

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"minibeads/internal/depgraph"
	"minibeads/internal/issue"
	"minibeads/internal/store"
)

// Record is the on-wire JSON shape of one mirrored issue.
type Record struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Status       string               `json:"status"`
	Priority     int                  `json:"priority"`
	IssueType    string               `json:"issue_type"`
	Assignee     string               `json:"assignee,omitempty"`
	Labels       []string             `json:"labels,omitempty"`
	CreatedAt    string               `json:"created_at"`
	UpdatedAt    string               `json:"updated_at"`
	ClosedAt     string               `json:"closed_at,omitempty"`
	ExternalRef  string               `json:"external_ref,omitempty"`
	Dependencies []issue.Dependency   `json:"dependencies,omitempty"`
	Dependents   []issue.Dependency   `json:"dependents,omitempty"`

	// DependsOnLegacy accepts the deprecated depends_on:{id:kind} shape on
	// import; never emitted.
	DependsOnLegacy map[string]string `json:"depends_on,omitempty"`
}

const timeLayout = time.RFC3339Nano

// ToRecord converts i into its wire Record. dependents must be supplied by
// the caller (internal/depgraph.Dependents over the full snapshot) since a
// single issue carries no reverse-edge information on its own.
func ToRecord(i *issue.Issue, dependents []issue.Dependency) Record {
	r := Record{
		ID:          i.ID,
		Title:       i.Title,
		Status:      string(i.Status),
		Priority:    int(i.Priority),
		IssueType:   string(i.Type),
		Assignee:    i.Assignee,
		Labels:      i.Labels,
		CreatedAt:   i.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:   i.UpdatedAt.UTC().Format(timeLayout),
		ExternalRef: i.ExternalRef,
	}
	if i.ClosedAt != nil {
		r.ClosedAt = i.ClosedAt.UTC().Format(timeLayout)
	}

	deps := make([]string, 0, len(i.DependsOn))
	for id := range i.DependsOn {
		deps = append(deps, id)
	}
	sort.Strings(deps)
	for _, id := range deps {
		r.Dependencies = append(r.Dependencies, issue.Dependency{ID: id, Type: i.DependsOn[id]})
	}

	dependentsSorted := append([]issue.Dependency(nil), dependents...)
	sort.Slice(dependentsSorted, func(a, b int) bool { return dependentsSorted[a].ID < dependentsSorted[b].ID })
	r.Dependents = dependentsSorted

	return r
}

// FromRecord parses r into an Issue. It accepts either the canonical
// Dependencies array or the deprecated DependsOnLegacy map.
func FromRecord(r Record) (*issue.Issue, error) {
	createdAt, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("mirror: parsing created_at for %s: %w", r.ID, err)
	}
	updatedAt, err := time.Parse(timeLayout, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("mirror: parsing updated_at for %s: %w", r.ID, err)
	}

	i := &issue.Issue{
		ID:          r.ID,
		Title:       r.Title,
		Status:      issue.Status(r.Status),
		Priority:    issue.Priority(r.Priority),
		Type:        issue.Type(r.IssueType),
		Assignee:    r.Assignee,
		Labels:      r.Labels,
		ExternalRef: r.ExternalRef,
		DependsOn:   make(map[string]issue.DependencyKind),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if r.ClosedAt != "" {
		t, err := time.Parse(timeLayout, r.ClosedAt)
		if err != nil {
			return nil, fmt.Errorf("mirror: parsing closed_at for %s: %w", r.ID, err)
		}
		i.ClosedAt = &t
	}

	if len(r.Dependencies) > 0 {
		for _, d := range r.Dependencies {
			i.DependsOn[d.ID] = d.Type
		}
	} else if len(r.DependsOnLegacy) > 0 {
		for id, spelling := range r.DependsOnLegacy {
			kind, ok := issue.ParseDependencyKind(spelling)
			if !ok {
				return nil, fmt.Errorf("mirror: %s: unknown dependency kind %q", r.ID, spelling)
			}
			i.DependsOn[id] = kind
		}
	}

	return i, nil
}

// Export writes every issue in issues (already filtered by the caller via
// internal/query) to w, one compact JSON object per line, in the order
// the caller gives them. dependents is the full-snapshot
// reverse index so each exported record's Dependents field is materialized
// even for issues whose dependents were filtered out of issues itself.
func Export(w io.Writer, issues []*issue.Issue, dependents map[string][]issue.Dependency) error {
	enc := json.NewEncoder(w)
	for _, i := range issues {
		r := ToRecord(i, dependents[i.ID])
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("mirror: encoding %s: %w", i.ID, err)
		}
	}
	return nil
}

// LineError records a single malformed import line, collected rather than
// aborting the whole import.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Import parses r as JSON lines, returning every successfully-parsed Issue
// plus a LineError for every malformed line encountered (parsing
// continues past a bad line).
func Import(r io.Reader) ([]*issue.Issue, []LineError) {
	var issues []*issue.Issue
	var errs []LineError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			errs = append(errs, LineError{Line: lineNo, Err: err})
			continue
		}
		i, err := FromRecord(rec)
		if err != nil {
			errs = append(errs, LineError{Line: lineNo, Err: err})
			continue
		}
		issues = append(issues, i)
	}
	return issues, errs
}

// DependentsIndex is a thin re-export so callers building Export input
// don't need to import internal/depgraph directly just for this call.
func DependentsIndex(issues map[string]*issue.Issue) map[string][]issue.Dependency {
	return depgraph.Dependents(issues)
}

// ApplyImport writes each issue to s's store and sets its file mtime to
// updated_at, so a subsequent sync sees the mirror-side timestamp as
// authoritative for that file until a real edit changes it.
func ApplyImport(s *store.Store, issues []*issue.Issue) error {
	lk, err := s.Lock()
	if err != nil {
		return err
	}
	defer lk.Release()

	for _, i := range issues {
		if err := s.WriteIssue(i, false); err != nil {
			return fmt.Errorf("mirror: writing %s: %w", i.ID, err)
		}
		if err := s.SetFileMtime(i.ID, i.UpdatedAt); err != nil {
			return fmt.Errorf("mirror: setting mtime for %s: %w", i.ID, err)
		}
	}
	return nil
}
