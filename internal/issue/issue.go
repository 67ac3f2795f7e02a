// Package issue defines the data model shared by every minibeads component:
// the Issue record, its enumerated fields, and the dependency edge types.
package issue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
		return true
	}
	return false
}

// Priority is an urgency level in 0..=4, 0 being highest. A plain integer
// rather than a named enum so arithmetic comparisons (Less) stay simple.
type Priority int

const (
	PriorityHighest Priority = 0
	PriorityLowest  Priority = 4
)

func (p Priority) Valid() bool {
	return p >= PriorityHighest && p <= PriorityLowest
}

// Less reports whether p is more urgent than other (lower number wins).
func (p Priority) Less(other Priority) bool {
	return p < other
}

// Type is the category of work an issue represents.
type Type string

const (
	TypeTask    Type = "task"
	TypeBug     Type = "bug"
	TypeFeature Type = "feature"
	TypeEpic    Type = "epic"
	TypeChore   Type = "chore"
)

func (t Type) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeEpic, TypeChore:
		return true
	}
	return false
}

// DependencyKind enumerates the relationship a depends_on edge expresses.
// Enumerated rather than a free-form string so unknown relationship types
// fail loudly instead of being silently accepted.
type DependencyKind string

const (
	DepBlocks         DependencyKind = "blocks"
	DepRelated        DependencyKind = "related"
	DepParentChild    DependencyKind = "parent_child"
	DepDiscoveredFrom DependencyKind = "discovered_from"
)

// wireSpellings maps each DependencyKind to its on-disk/wire token.
// parent_child and discovered_from use hyphens on the wire but underscores
// as Go identifiers.
var wireSpellings = map[DependencyKind]string{
	DepBlocks:         "blocks",
	DepRelated:        "related",
	DepParentChild:    "parent-child",
	DepDiscoveredFrom: "discovered-from",
}

var fromWire = func() map[string]DependencyKind {
	m := make(map[string]DependencyKind, len(wireSpellings))
	for k, v := range wireSpellings {
		m[v] = k
	}
	return m
}()

// String returns the canonical wire spelling.
func (k DependencyKind) String() string {
	if s, ok := wireSpellings[k]; ok {
		return s
	}
	return string(k)
}

// ParseDependencyKind parses a wire token into a DependencyKind.
func ParseDependencyKind(s string) (DependencyKind, bool) {
	k, ok := fromWire[s]
	return k, ok
}

func (k DependencyKind) Valid() bool {
	_, ok := wireSpellings[k]
	return ok
}

// MarshalJSON encodes k as its hyphenated wire spelling (e.g.
// "parent-child"), not its underscore Go identifier.
func (k DependencyKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses a hyphenated wire spelling via ParseDependencyKind,
// rejecting any token that isn't one of the recognized dependency kinds.
func (k *DependencyKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseDependencyKind(s)
	if !ok {
		return fmt.Errorf("issue: unknown dependency kind %q", s)
	}
	*k = parsed
	return nil
}

// Dependency is the wire representation of a single depends_on edge, used
// by the Export/Import Codec where edges are arrays of {id, type} objects
// rather than a map.
type Dependency struct {
	ID   string         `json:"id"`
	Type DependencyKind `json:"type"`
}

// Issue is the canonical in-memory representation of one tracked item.
// dependents are deliberately absent: they are always derived by the
// Dependency Index from every issue's depends_on map, never stored.
type Issue struct {
	ID                 string
	Title              string
	Description        string
	Design             string
	AcceptanceCriteria string
	Notes              string

	Status   Status
	Priority Priority
	Type     Type

	Assignee    string
	ExternalRef string
	Labels      []string

	DependsOn map[string]DependencyKind

	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// New builds an Issue with created_at and updated_at both stamped to now.
func New(id, title string) *Issue {
	now := time.Now().UTC()
	return &Issue{
		ID:        id,
		Title:     title,
		Status:    StatusOpen,
		Priority:  2,
		Type:      TypeTask,
		DependsOn: make(map[string]DependencyKind),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing the
// Repository's in-memory state.
func (i *Issue) Clone() *Issue {
	c := *i
	c.Labels = append([]string(nil), i.Labels...)
	c.DependsOn = make(map[string]DependencyKind, len(i.DependsOn))
	for k, v := range i.DependsOn {
		c.DependsOn[k] = v
	}
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// BlockedBy returns the ids this issue is blocked by: depends_on targets of
// kind Blocks. It says nothing about whether those targets are currently
// open — callers that need "currently blocking" filter further.
func (i *Issue) BlockedBy() []string {
	var out []string
	for id, k := range i.DependsOn {
		if k == DepBlocks {
			out = append(out, id)
		}
	}
	return out
}

// FieldText returns the free-text fields that rename-time mention rewriting
// scans, in a stable order.
func (i *Issue) FieldText() []*string {
	return []*string{&i.Title, &i.Description, &i.Design, &i.AcceptanceCriteria, &i.Notes}
}

// Patch is a field-wise, pointer-based partial update: a nil field is left
// untouched, a non-nil field replaces the corresponding Issue field. This
// replaces the stringly-typed map[string]string update approach so that
// every patchable field is type-checked at compile time.
type Patch struct {
	Title              *string
	Description        *string
	Design             *string
	AcceptanceCriteria *string
	Notes              *string
	Status             *Status
	Priority           *Priority
	Type               *Type
	Assignee           *string
	ExternalRef        *string
	Labels             *[]string
}

// Apply mutates issue in place according to the non-nil fields of p and
// bumps updated_at. It does not touch depends_on or closed_at: those are
// managed by dedicated Repository operations.
func (p *Patch) Apply(i *Issue) {
	if p.Title != nil {
		i.Title = *p.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Design != nil {
		i.Design = *p.Design
	}
	if p.AcceptanceCriteria != nil {
		i.AcceptanceCriteria = *p.AcceptanceCriteria
	}
	if p.Notes != nil {
		i.Notes = *p.Notes
	}
	if p.Status != nil {
		i.Status = *p.Status
	}
	if p.Priority != nil {
		i.Priority = *p.Priority
	}
	if p.Type != nil {
		i.Type = *p.Type
	}
	if p.Assignee != nil {
		i.Assignee = *p.Assignee
	}
	if p.ExternalRef != nil {
		i.ExternalRef = *p.ExternalRef
	}
	if p.Labels != nil {
		i.Labels = *p.Labels
	}
	i.UpdatedAt = time.Now().UTC()
}
