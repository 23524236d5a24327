// # internal/engine/graph/detect.go
package graph

import "gridnote/internal/engine/grid"

// DetectCycles returns every reference cycle as one strongly connected
// component of the dependencies relation: each component with more than one
// cell, plus every cell that references itself. The evaluator groups circular
// cells the same way. Members are listed in the order the walk reached them,
// starting from the component's first cell.
func (g *DependencyGraph) DetectCycles() [][]grid.Key {
	t := &tarjan{
		g:       g,
		index:   make(map[grid.Key]int),
		low:     make(map[grid.Key]int),
		onStack: make(map[grid.Key]bool),
	}
	for _, key := range sortedKeys(keySetOf(g.dependencies)) {
		if _, seen := t.index[key]; !seen {
			t.connect(key)
		}
	}
	return t.cycles
}

type tarjan struct {
	g       *DependencyGraph
	index   map[grid.Key]int
	low     map[grid.Key]int
	onStack map[grid.Key]bool
	stack   []grid.Key
	next    int
	cycles  [][]grid.Key
}

func (t *tarjan) connect(curr grid.Key) {
	t.index[curr] = t.next
	t.low[curr] = t.next
	t.next++
	t.stack = append(t.stack, curr)
	t.onStack[curr] = true

	for _, dep := range sortedKeys(t.g.dependencies[curr]) {
		if _, seen := t.index[dep]; !seen {
			t.connect(dep)
			t.low[curr] = min(t.low[curr], t.low[dep])
		} else if t.onStack[dep] {
			t.low[curr] = min(t.low[curr], t.index[dep])
		}
	}

	if t.low[curr] != t.index[curr] {
		return
	}

	// The stack holds the component above curr in discovery order.
	i := len(t.stack) - 1
	for t.stack[i] != curr {
		i--
	}
	members := make([]grid.Key, len(t.stack)-i)
	copy(members, t.stack[i:])
	t.stack = t.stack[:i]
	for _, m := range members {
		t.onStack[m] = false
	}

	if len(members) > 1 || t.g.references(curr, curr) {
		t.cycles = append(t.cycles, members)
	}
}

func (g *DependencyGraph) references(from, to grid.Key) bool {
	_, ok := g.dependencies[from][to]
	return ok
}

// FindReferenceChain returns the shortest chain of references leading from
// one cell to another, following dependencies breadth first.
func (g *DependencyGraph) FindReferenceChain(from, to grid.Key) ([]grid.Key, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}
	if from == to {
		return []grid.Key{from}, true
	}

	queue := []grid.Key{from}
	visited := map[grid.Key]bool{from: true}
	prev := make(map[grid.Key]grid.Key)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range sortedKeys(g.dependencies[curr]) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []grid.Key{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

func keySetOf(m map[grid.Key]keySet) keySet {
	out := make(keySet, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}
