// Package query implements the read-only Query Engine: filtering, sorting,
// readiness, blocked listing, and aggregate stats over a snapshot of the
// Repository's issues. Every function here takes a plain
// map[string]*issue.Issue snapshot and never touches the filesystem or the
// lock, keeping the in-memory filtering logic independently testable from
// directory I/O.
package query

import (
	"sort"
	"strings"
	"time"

	"minibeads/internal/depgraph"
	"minibeads/internal/issue"
)

// Filter composes as intersection across every non-empty field.
type Filter struct {
	Status     []issue.Status
	Priority   []issue.Priority
	Type       []issue.Type
	Assignee   string // exact match; "none" (case-insensitive) matches unassigned
	HasAssignee bool  // true iff Assignee should be applied
	Labels     []string
	LabelsAny  bool // false: AND semantics (default); true: OR semantics
	IDs        []string
	TitleSubstr string
	Limit      int
}

// Matches reports whether i satisfies every populated field of f.
func (f *Filter) Matches(i *issue.Issue) bool {
	if len(f.Status) > 0 && !containsStatus(f.Status, i.Status) {
		return false
	}
	if len(f.Priority) > 0 && !containsPriority(f.Priority, i.Priority) {
		return false
	}
	if len(f.Type) > 0 && !containsType(f.Type, i.Type) {
		return false
	}
	if f.HasAssignee {
		if strings.EqualFold(f.Assignee, "none") {
			if i.Assignee != "" {
				return false
			}
		} else if i.Assignee != f.Assignee {
			return false
		}
	}
	if len(f.Labels) > 0 {
		if f.LabelsAny {
			if !anyLabel(i.Labels, f.Labels) {
				return false
			}
		} else if !allLabels(i.Labels, f.Labels) {
			return false
		}
	}
	if len(f.IDs) > 0 && !containsString(f.IDs, i.ID) {
		return false
	}
	if f.TitleSubstr != "" && !strings.Contains(strings.ToLower(i.Title), strings.ToLower(f.TitleSubstr)) {
		return false
	}
	return true
}

// List returns every issue matching f, ordered priority ascending, then
// updated_at descending, then id lexicographic, truncated to f.Limit when
// positive.
func List(issues map[string]*issue.Issue, f *Filter) []*issue.Issue {
	var out []*issue.Issue
	for _, i := range issues {
		if f == nil || f.Matches(i) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		ia, ib := out[a], out[b]
		if ia.Priority != ib.Priority {
			return ia.Priority < ib.Priority
		}
		if !ia.UpdatedAt.Equal(ib.UpdatedAt) {
			return ia.UpdatedAt.After(ib.UpdatedAt)
		}
		return ia.ID < ib.ID
	})
	if f != nil && f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// ReadySort selects the ordering ready() applies to its result.
type ReadySort string

const (
	ReadyHybrid   ReadySort = "hybrid"
	ReadyPriority ReadySort = "priority"
	ReadyOldest   ReadySort = "oldest"
)

// Ready returns every open, non-blocked issue, ordered per sort.
func Ready(issues map[string]*issue.Issue, sortBy ReadySort) []*issue.Issue {
	var out []*issue.Issue
	for _, i := range issues {
		if i.Status != issue.StatusOpen {
			continue
		}
		if !depgraph.IsReady(issues, i.ID) {
			continue
		}
		out = append(out, i)
	}

	switch sortBy {
	case ReadyPriority:
		sort.Slice(out, func(a, b int) bool {
			if out[a].Priority != out[b].Priority {
				return out[a].Priority < out[b].Priority
			}
			return out[a].ID < out[b].ID
		})
	case ReadyOldest:
		sort.Slice(out, func(a, b int) bool {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		})
	default: // hybrid
		sort.Slice(out, func(a, b int) bool {
			if out[a].Priority != out[b].Priority {
				return out[a].Priority < out[b].Priority
			}
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		})
	}
	return out
}

// BlockedIssue pairs an issue with the ids currently blocking it.
type BlockedIssue struct {
	Issue    *issue.Issue
	Blockers []string
}

// Blocked returns every issue with a non-empty blocking set.
func Blocked(issues map[string]*issue.Issue) []BlockedIssue {
	var out []BlockedIssue
	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		blockers := depgraph.BlockingSet(issues, id)
		if len(blockers) > 0 {
			out = append(out, BlockedIssue{Issue: issues[id], Blockers: blockers})
		}
	}
	return out
}

// Stats is the aggregate summary produced by stats().
type Stats struct {
	TotalCount    int
	CountByStatus map[issue.Status]int
	ReadyCount    int
	MeanLeadTime  time.Duration // zero if no issue has ever closed
}

// Compute aggregates issues into a Stats snapshot.
func Compute(issues map[string]*issue.Issue) Stats {
	s := Stats{CountByStatus: make(map[issue.Status]int)}
	var leadTotal time.Duration
	var leadCount int

	for _, i := range issues {
		s.TotalCount++
		s.CountByStatus[i.Status]++
		if i.Status == issue.StatusOpen && depgraph.IsReady(issues, i.ID) {
			s.ReadyCount++
		}
		if i.Status == issue.StatusClosed && i.ClosedAt != nil {
			leadTotal += i.ClosedAt.Sub(i.CreatedAt)
			leadCount++
		}
	}
	if leadCount > 0 {
		s.MeanLeadTime = leadTotal / time.Duration(leadCount)
	}
	return s
}

// TreeNode renders one node of an issue's Blocks-dependency tree.
type TreeNode struct {
	ID           string
	Title        string
	Status       issue.Status
	Children     []*TreeNode
	Cycle        bool // true if this node closes a cycle back to an ancestor
	DepthExceeded bool
}

const maxTreeDepth = 20

// Tree builds id's Blocks-dependency tree (the issues it depends on,
// recursively), stopping at maxDepth (or an internal cap) and marking
// cycles rather than looping forever.
func Tree(issues map[string]*issue.Issue, id string, maxDepth int) *TreeNode {
	if maxDepth <= 0 || maxDepth > maxTreeDepth {
		maxDepth = maxTreeDepth
	}
	visited := make(map[string]bool)
	return buildTreeNode(issues, id, maxDepth, visited)
}

func buildTreeNode(issues map[string]*issue.Issue, id string, remaining int, ancestors map[string]bool) *TreeNode {
	i, ok := issues[id]
	if !ok {
		return &TreeNode{ID: id}
	}
	node := &TreeNode{ID: id, Title: i.Title, Status: i.Status}
	if ancestors[id] {
		node.Cycle = true
		return node
	}
	if remaining <= 0 {
		node.DepthExceeded = true
		return node
	}

	ancestors[id] = true
	defer delete(ancestors, id)

	var targets []string
	for targetID, kind := range i.DependsOn {
		if kind == issue.DepBlocks {
			targets = append(targets, targetID)
		}
	}
	sort.Strings(targets)
	for _, targetID := range targets {
		node.Children = append(node.Children, buildTreeNode(issues, targetID, remaining-1, ancestors))
	}
	return node
}

func containsStatus(list []issue.Status, v issue.Status) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsPriority(list []issue.Priority, v issue.Priority) bool {
	for _, p := range list {
		if p == v {
			return true
		}
	}
	return false
}

func containsType(list []issue.Type, v issue.Type) bool {
	for _, t := range list {
		if t == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func allLabels(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, l := range have {
		set[l] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func anyLabel(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, l := range have {
		set[l] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}
