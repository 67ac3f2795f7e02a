// Package depgraph computes the values that are derived from every issue's
// depends_on map rather than stored: the reverse dependents index, the set
// of currently-blocking dependencies, and cycles in the Blocks sub-graph.
//
// Cycle detection is restricted to Blocks edges only — other dependency
// kinds never participate in cycle detection — and each returned cycle is
// canonicalized to its lexicographically minimum rotation so the same
// cycle is never reported twice under different starting points.
package depgraph

import (
	"sort"

	"minibeads/internal/issue"
)

// Dependents returns, for every issue id, the list of issues that declare a
// depends_on edge pointing at it — the reverse of depends_on. Never stored;
// recomputed from the full snapshot on every call.
func Dependents(issues map[string]*issue.Issue) map[string][]issue.Dependency {
	out := make(map[string][]issue.Dependency)
	ids := sortedKeys(issues)
	for _, sourceID := range ids {
		src := issues[sourceID]
		targets := make([]string, 0, len(src.DependsOn))
		for targetID := range src.DependsOn {
			targets = append(targets, targetID)
		}
		sort.Strings(targets)
		for _, targetID := range targets {
			out[targetID] = append(out[targetID], issue.Dependency{ID: sourceID, Type: src.DependsOn[targetID]})
		}
	}
	return out
}

// BlockingSet returns the ids currently blocking id: targets of id's
// Blocks-kind depends_on edges whose own status is open or in_progress.
// A Blocks edge to a closed issue does not block.
func BlockingSet(issues map[string]*issue.Issue, id string) []string {
	i, ok := issues[id]
	if !ok {
		return nil
	}
	var blocking []string
	for targetID, kind := range i.DependsOn {
		if kind != issue.DepBlocks {
			continue
		}
		target, ok := issues[targetID]
		if !ok {
			continue
		}
		if target.Status == issue.StatusOpen || target.Status == issue.StatusInProgress {
			blocking = append(blocking, targetID)
		}
	}
	sort.Strings(blocking)
	return blocking
}

// IsReady reports whether id has no open/in-progress blocking dependency.
func IsReady(issues map[string]*issue.Issue, id string) bool {
	return len(BlockingSet(issues, id)) == 0
}

// Cycles returns cycles in the Blocks sub-graph found by a depth-first
// search over ids in sorted order: each edge back to an id still on the
// search path yields the cycle formed by that part of the path, and a
// self-edge (id blocking itself — which Repository.AddDependency already
// rejects at write time, but a cycle here still reports it defensively for
// data that predates that check or was imported from elsewhere) yields a
// one-id cycle. Every strongly connected component that contains a cycle
// is reported at least once, but a component is not reported as a whole
// and not every elementary cycle within it is listed. Each cycle is a slice
// of ids in graph order, rotated so it starts at its lexicographically
// smallest id.
func Cycles(issues map[string]*issue.Issue) [][]string {
	adjacency := make(map[string][]string)
	for id, i := range issues {
		for targetID, kind := range i.DependsOn {
			if kind == issue.DepBlocks {
				adjacency[id] = append(adjacency[id], targetID)
			}
		}
	}
	for id := range adjacency {
		sort.Strings(adjacency[id])
	}

	var (
		visited  = make(map[string]bool)
		onStack  = make(map[string]bool)
		path     []string
		pathIdx  = make(map[string]int)
		found    = make(map[string]bool)
		cycles   [][]string
	)

	ids := sortedKeys(issues)

	var dfs func(id string)
	dfs = func(id string) {
		visited[id] = true
		onStack[id] = true
		pathIdx[id] = len(path)
		path = append(path, id)

		for _, next := range adjacency[id] {
			if onStack[next] {
				cycle := canonicalRotation(append([]string(nil), path[pathIdx[next]:]...))
				key := cycleKey(cycle)
				if !found[key] {
					found[key] = true
					cycles = append(cycles, cycle)
				}
				continue
			}
			if !visited[next] {
				dfs(next)
			}
		}

		path = path[:len(path)-1]
		delete(pathIdx, id)
		onStack[id] = false
	}

	for _, id := range ids {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// canonicalRotation rotates cycle so it begins at its smallest element.
func canonicalRotation(cycle []string) []string {
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, len(cycle))
	for i := range cycle {
		out[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return out
}

func cycleKey(cycle []string) string {
	key := ""
	for _, id := range cycle {
		key += id + "\x00"
	}
	return key
}

func sortedKeys(issues map[string]*issue.Issue) []string {
	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
