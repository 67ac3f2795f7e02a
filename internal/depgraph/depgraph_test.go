package depgraph

import (
	"testing"

	"minibeads/internal/issue"
)

func issueWithDeps(id string, status issue.Status, deps map[string]issue.DependencyKind) *issue.Issue {
	i := issue.New(id, id)
	i.Status = status
	i.DependsOn = deps
	return i
}

func TestDependents(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepBlocks}),
		"b": issueWithDeps("b", issue.StatusOpen, nil),
		"c": issueWithDeps("c", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepRelated}),
	}

	dependents := Dependents(issues)
	got := dependents["b"]
	if len(got) != 2 {
		t.Fatalf("Dependents(b) = %v, want 2 entries", got)
	}
}

func TestBlockingSetOnlyCountsOpenOrInProgressTargets(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{
			"b": issue.DepBlocks,
			"c": issue.DepBlocks,
		}),
		"b": issueWithDeps("b", issue.StatusOpen, nil),
		"c": issueWithDeps("c", issue.StatusClosed, nil),
	}

	got := BlockingSet(issues, "a")
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("BlockingSet(a) = %v, want [b]", got)
	}
}

func TestIsReady(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepBlocks}),
		"b": issueWithDeps("b", issue.StatusClosed, nil),
	}
	if !IsReady(issues, "a") {
		t.Error("a should be ready once its only blocker is closed")
	}
}

func TestCyclesDetectsSimpleCycle(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepBlocks}),
		"b": issueWithDeps("b", issue.StatusOpen, map[string]issue.DependencyKind{"a": issue.DepBlocks}),
	}
	cycles := Cycles(issues)
	if len(cycles) != 1 {
		t.Fatalf("Cycles = %v, want exactly 1", cycles)
	}
	if cycles[0][0] != "a" {
		t.Errorf("cycle not canonicalized to start at lexicographically smallest id: %v", cycles[0])
	}
}

func TestCyclesIgnoresNonBlocksEdges(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepRelated}),
		"b": issueWithDeps("b", issue.StatusOpen, map[string]issue.DependencyKind{"a": issue.DepRelated}),
	}
	if cycles := Cycles(issues); len(cycles) != 0 {
		t.Errorf("Cycles = %v, want none (related edges don't count)", cycles)
	}
}

func TestCyclesSelfEdge(t *testing.T) {
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"a": issue.DepBlocks}),
	}
	cycles := Cycles(issues)
	if len(cycles) != 1 || len(cycles[0]) != 1 || cycles[0][0] != "a" {
		t.Errorf("Cycles = %v, want a single self-cycle [a]", cycles)
	}
}

func TestCyclesDeduped(t *testing.T) {
	// a -> b -> c -> a forms one cycle regardless of which node the DFS visits first.
	issues := map[string]*issue.Issue{
		"a": issueWithDeps("a", issue.StatusOpen, map[string]issue.DependencyKind{"b": issue.DepBlocks}),
		"b": issueWithDeps("b", issue.StatusOpen, map[string]issue.DependencyKind{"c": issue.DepBlocks}),
		"c": issueWithDeps("c", issue.StatusOpen, map[string]issue.DependencyKind{"a": issue.DepBlocks}),
	}
	cycles := Cycles(issues)
	if len(cycles) != 1 {
		t.Fatalf("Cycles = %v, want exactly 1 deduplicated cycle", cycles)
	}
	if cycles[0][0] != "a" {
		t.Errorf("cycle = %v, want to start at 'a'", cycles[0])
	}
}
