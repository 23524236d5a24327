// # internal/engine/graph/graph.go
package graph

import (
	"sort"

	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/grid"
	"gridnote/internal/engine/sheet"
	"gridnote/internal/shared/observability"
)

type keySet map[grid.Key]struct{}

// DependencyGraph is the reference graph of one sheet snapshot.
// dependencies[a] holds the cells a's formula references; dependents[b] holds
// the cells whose formulas reference b. It is built from scratch and never
// updated in place.
type DependencyGraph struct {
	dependencies map[grid.Key]keySet
	dependents   map[grid.Key]keySet
}

// Build sweeps every formula in store once. Unresolvable references are
// skipped; references to in-bounds cells that are not in the store still get
// a dependents entry so filling them later marks their readers stale.
func Build(store sheet.Store) *DependencyGraph {
	g := &DependencyGraph{
		dependencies: make(map[grid.Key]keySet, store.Len()),
		dependents:   make(map[grid.Key]keySet, store.Len()),
	}

	codec := store.Codec()
	for _, cell := range store.Cells() {
		from := cell.Key()
		g.ensure(from)

		if !formula.IsFormula(cell.Content) {
			continue
		}
		for _, ref := range formula.ExtractReferences(formula.Body(cell.Content)) {
			to, ok := codec.KeyForRef(ref)
			if !ok {
				continue
			}
			g.addEdge(from, to)
		}
	}

	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	return g
}

func (g *DependencyGraph) ensure(key grid.Key) {
	if g.dependencies[key] == nil {
		g.dependencies[key] = make(keySet)
	}
	if g.dependents[key] == nil {
		g.dependents[key] = make(keySet)
	}
}

func (g *DependencyGraph) addEdge(from, to grid.Key) {
	g.ensure(from)
	g.ensure(to)
	g.dependencies[from][to] = struct{}{}
	g.dependents[to][from] = struct{}{}
}

// Dependencies returns the cells key references, sorted.
func (g *DependencyGraph) Dependencies(key grid.Key) []grid.Key {
	return sortedKeys(g.dependencies[key])
}

// Dependents returns the cells that reference key, sorted.
func (g *DependencyGraph) Dependents(key grid.Key) []grid.Key {
	return sortedKeys(g.dependents[key])
}

func (g *DependencyGraph) HasNode(key grid.Key) bool {
	_, ok := g.dependents[key]
	return ok
}

func (g *DependencyGraph) NodeCount() int {
	return len(g.dependents)
}

func (g *DependencyGraph) EdgeCount() int {
	n := 0
	for _, deps := range g.dependencies {
		n += len(deps)
	}
	return n
}

// Affected returns the reflexive-transitive closure of changed under the
// dependents relation: every changed key plus everything that reads it,
// directly or through other cells.
func (g *DependencyGraph) Affected(changed []grid.Key) map[grid.Key]struct{} {
	affected := make(map[grid.Key]struct{}, len(changed))
	stack := append([]grid.Key(nil), changed...)

	for len(stack) > 0 {
		n := len(stack) - 1
		key := stack[n]
		stack = stack[:n]

		if _, seen := affected[key]; seen {
			continue
		}
		affected[key] = struct{}{}

		for dependent := range g.dependents[key] {
			if _, seen := affected[dependent]; !seen {
				stack = append(stack, dependent)
			}
		}
	}

	return affected
}

func sortedKeys(set keySet) []grid.Key {
	out := make([]grid.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
