// Package proctree discovers process trees through parent/child queries and
// terminates them without ever touching the supervising process or its
// ancestry.
//
// Discovery is a best-effort snapshot: a tree can change between the walk
// and a subsequent kill, and a pid freed by the OS can be reassigned to an
// unrelated process in that window. That reuse hazard is inherent to
// black-box pid handling and is accepted rather than papered over.
package proctree

import (
	"github.com/portside/portside/internal/inspect"
)

// DefaultKillDepth covers the usual shell -> package manager -> dev server
// chain plus one level of grandchildren.
const DefaultKillDepth = 4

// DefaultProbeDepth is the shallower walk used by port probing.
const DefaultProbeDepth = 3

// Descendants walks the tree under root breadth-first and returns every
// discovered pid in discovery order, root first and each pid once.
// maxDepth bounds the number of frontier expansions. Child lookups that
// fail are treated as leaves.
func Descendants(host inspect.Host, root, maxDepth int) []int {
	all := []int{root}
	seen := map[int]struct{}{root: {}}
	frontier := []int{root}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, parent := range frontier {
			children, err := host.Children(parent)
			if err != nil {
				continue
			}
			for _, child := range children {
				if _, ok := seen[child]; ok {
					// Observed twice; noisy systems can re-parent
					// between queries.
					continue
				}
				seen[child] = struct{}{}
				all = append(all, child)
				next = append(next, child)
			}
		}
		frontier = next
	}
	return all
}

// Ancestors returns the parent chain of pid up to, but excluding, the init
// process. The walk stops early on a lookup failure, a self-reference or a
// cycle. The result is computed fresh on every call; ancestry is only safe
// to read, never to cache across process restarts.
func Ancestors(host inspect.Host, pid int) map[int]struct{} {
	ancestors := make(map[int]struct{})
	current, err := host.ParentOf(pid)
	if err != nil {
		return ancestors
	}

	for current > 1 {
		if _, ok := ancestors[current]; ok {
			// Cycle in reported parentage.
			break
		}
		ancestors[current] = struct{}{}

		parent, err := host.ParentOf(current)
		if err != nil || parent == current || parent == 0 {
			break
		}
		current = parent
	}
	return ancestors
}
