package rewrite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"minibeads/internal/issue"
	"minibeads/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".beads")
	s, err := store.Init(dir, "bd-", false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestRenameUpdatesDependentsAndMentions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _, err := s.Create(ctx, "A", nil, nil, issue.ValidationSilent)
	if err != nil {
		t.Fatal(err)
	}
	note := "see " + a.ID + " for context"
	b, _, err := s.Create(ctx, "B", &issue.Patch{Notes: &note},
		map[string]issue.DependencyKind{a.ID: issue.DepBlocks}, issue.ValidationSilent)
	if err != nil {
		t.Fatal(err)
	}

	newID := "bd-100"
	if _, err := Rename(ctx, s, a.ID, newID, false); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := os.Stat(s.PathFor(a.ID)); !os.IsNotExist(err) {
		t.Errorf("old file %s should not exist", a.ID)
	}
	if _, err := os.Stat(s.PathFor(newID)); err != nil {
		t.Errorf("new file %s should exist: %v", newID, err)
	}

	updatedB, err := s.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updatedB.DependsOn[newID] != issue.DepBlocks {
		t.Errorf("DependsOn = %v, want %s:blocks", updatedB.DependsOn, newID)
	}
	if _, stillOld := updatedB.DependsOn[a.ID]; stillOld {
		t.Errorf("old dependency key should be gone")
	}
	want := "see " + newID + " for context"
	if updatedB.Notes != want {
		t.Errorf("Notes = %q, want %q", updatedB.Notes, want)
	}
}

func TestRenameDryRunWritesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _, _ := s.Create(ctx, "A", nil, nil, issue.ValidationSilent)

	plan, err := Rename(ctx, s, a.ID, "bd-999", true)
	if err != nil {
		t.Fatalf("Rename dry-run: %v", err)
	}
	if len(plan.Writes) == 0 {
		t.Error("expected a non-empty plan")
	}
	if _, err := os.Stat(s.PathFor(a.ID)); err != nil {
		t.Errorf("dry-run should not touch the original file: %v", err)
	}
	if _, err := os.Stat(s.PathFor("bd-999")); !os.IsNotExist(err) {
		t.Error("dry-run should not create the destination file")
	}
}

func TestRenameRejectsExistingDestination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _, _ := s.Create(ctx, "A", nil, nil, issue.ValidationSilent)
	b, _, _ := s.Create(ctx, "B", nil, nil, issue.ValidationSilent)

	if _, err := Rename(ctx, s, a.ID, b.ID, false); !errors.Is(err, ErrNewIDTaken) {
		t.Errorf("err = %v, want ErrNewIDTaken", err)
	}
}

func TestMigrateToHashedTwiceRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Create(ctx, "A", nil, nil, issue.ValidationSilent)
	s.Create(ctx, "B", nil, nil, issue.ValidationSilent)

	if _, err := Migrate(ctx, s, ToHashed, false); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !s.Config().HashIDs() {
		t.Error("store should now be configured for hashed ids")
	}

	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 issues after migration, got %d", len(all))
	}
	for id := range all {
		if len(id) < len("bd-") {
			t.Errorf("unexpected id shape: %s", id)
		}
	}

	if _, err := Migrate(ctx, s, ToHashed, false); err != store.ErrAlreadyMigrated {
		t.Errorf("second migrate err = %v, want ErrAlreadyMigrated", err)
	}
}

func TestRenamePrefixRewritesConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Create(ctx, "A", nil, nil, issue.ValidationSilent)

	if _, err := RenamePrefix(ctx, s, "zz", false, false); err != nil {
		t.Fatalf("RenamePrefix: %v", err)
	}
	if s.Prefix() != "zz-" {
		t.Errorf("Prefix = %q, want zz-", s.Prefix())
	}
	all, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	for id := range all {
		if id != "zz-1" {
			t.Errorf("unexpected id %s after rename-prefix", id)
		}
	}
}

func TestRepairReportsDanglingWithoutFixing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _, _ := s.Create(ctx, "A", nil,
		map[string]issue.DependencyKind{"bd-999": issue.DepBlocks}, issue.ValidationSilent)

	report, err := Repair(ctx, s, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if len(report.Dangling) != 1 || report.Dangling[0].SourceID != a.ID {
		t.Fatalf("Dangling = %+v", report.Dangling)
	}

	got, _ := s.Get(ctx, a.ID)
	if _, ok := got.DependsOn["bd-999"]; !ok {
		t.Error("dangling reference should still be present without --fix")
	}
}

func TestRepairFixesDangling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _, _ := s.Create(ctx, "A", nil,
		map[string]issue.DependencyKind{"bd-999": issue.DepBlocks}, issue.ValidationSilent)

	if _, err := Repair(ctx, s, true); err != nil {
		t.Fatalf("Repair fix: %v", err)
	}

	got, _ := s.Get(ctx, a.ID)
	if _, ok := got.DependsOn["bd-999"]; ok {
		t.Error("dangling reference should be removed after --repair --fix")
	}
}
