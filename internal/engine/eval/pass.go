package eval

import (
	"math"

	"gridnote/internal/engine/formula"
	"gridnote/internal/engine/grid"
)

// noLink is the low-link of a subtree that never reached a cell still
// awaiting its cycle check.
const noLink = math.MaxInt

// Pass is the scratch state of one recompute: the memo of finished cells, the
// cells on the current recursion path, and the bookkeeping that groups cells
// into reference cycles. A Pass is only valid for the snapshot it was first
// used with; never reuse one across snapshots.
type Pass struct {
	memo     map[grid.Key]formula.Value
	visiting map[grid.Key]struct{}

	// Cells finished but not yet known to be acyclic stay on pending until
	// the root of their strongly connected component returns.
	order   map[grid.Key]int
	pending []grid.Key
	waiting map[grid.Key]bool
	next    int
	depth   int
}

func NewPass() *Pass {
	return &Pass{
		memo:     make(map[grid.Key]formula.Value),
		visiting: make(map[grid.Key]struct{}),
		order:    make(map[grid.Key]int),
		waiting:  make(map[grid.Key]bool),
	}
}

// Lookup returns the memoized value for key.
func (p *Pass) Lookup(key grid.Key) (formula.Value, bool) {
	v, ok := p.memo[key]
	return v, ok
}

// Len is the number of memoized cells.
func (p *Pass) Len() int {
	return len(p.memo)
}

func (p *Pass) remember(key grid.Key, v formula.Value) formula.Value {
	p.memo[key] = v
	return v
}

func (p *Pass) enter(key grid.Key) int {
	idx := p.next
	p.next++
	p.order[key] = idx
	p.pending = append(p.pending, key)
	p.waiting[key] = true
	p.visiting[key] = struct{}{}
	p.depth++
	return idx
}

func (p *Pass) leave(key grid.Key) {
	delete(p.visiting, key)
	p.depth--
}

func (p *Pass) onPath(key grid.Key) bool {
	_, ok := p.visiting[key]
	return ok
}

// link is the low-link contributed by an already memoized cell.
func (p *Pass) link(key grid.Key) int {
	if p.waiting[key] {
		return p.order[key]
	}
	return noLink
}

// closeComponent pops every pending cell down to and including root and
// returns them.
func (p *Pass) closeComponent(root grid.Key) []grid.Key {
	var members []grid.Key
	for len(p.pending) > 0 {
		n := len(p.pending) - 1
		k := p.pending[n]
		p.pending = p.pending[:n]
		delete(p.waiting, k)
		members = append(members, k)
		if k == root {
			break
		}
	}
	return members
}
