package sheet

import (
	"sort"

	"gridnote/internal/core/errors"
	"gridnote/internal/engine/grid"
)

// Cell is one grid position and its raw content.
type Cell struct {
	X       int
	Y       int
	Content string
}

func (c Cell) Key() grid.Key {
	return grid.ToKey(c.X, c.Y)
}

func (c Cell) IsEmpty() bool {
	return c.Content == ""
}

// Store is an immutable snapshot of the grid. Every mutation returns a new
// Store; the receiver is never modified, so a snapshot can be handed to the
// evaluator while the caller prepares the next edit.
type Store struct {
	codec grid.Codec
	cells map[grid.Key]Cell
}

// New returns a store holding a single empty cell at the origin, the starting
// point of a blank document.
func New(codec grid.Codec) Store {
	s := Store{codec: codec, cells: make(map[grid.Key]Cell)}
	if codec.InBounds(0, 0) {
		s.cells[grid.ToKey(0, 0)] = Cell{}
	}
	return s
}

// FromCells builds a store from persisted cells. Cells outside the grid are
// dropped; later duplicates win.
func FromCells(codec grid.Codec, cells []Cell) Store {
	s := Store{codec: codec, cells: make(map[grid.Key]Cell, len(cells))}
	for _, c := range cells {
		if !codec.InBounds(c.X, c.Y) {
			continue
		}
		s.cells[c.Key()] = c
	}
	return s
}

func (s Store) Codec() grid.Codec {
	return s.codec
}

func (s Store) Len() int {
	return len(s.cells)
}

func (s Store) Get(key grid.Key) (Cell, bool) {
	c, ok := s.cells[key]
	return c, ok
}

// Content returns the raw content at key, "" when the cell is absent.
func (s Store) Content(key grid.Key) string {
	return s.cells[key].Content
}

// Keys returns every key in the store in a stable order (row-major, top row
// first).
func (s Store) Keys() []grid.Key {
	cells := s.Cells()
	keys := make([]grid.Key, len(cells))
	for i, c := range cells {
		keys[i] = c.Key()
	}
	return keys
}

// Cells returns a copy of all cells ordered top-to-bottom, left-to-right.
func (s Store) Cells() []Cell {
	cells := make([]Cell, 0, len(s.cells))
	for _, c := range s.cells {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y > cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// With returns a copy of the store with c placed verbatim. No expansion or
// pruning is applied; it is the overlay used for hypothetical evaluation.
func (s Store) With(c Cell) Store {
	next := s.clone()
	if s.codec.InBounds(c.X, c.Y) {
		next.cells[c.Key()] = c
	}
	return next
}

// Set writes content at (x, y) and applies the neighbour contract:
//
//   - empty -> non-empty adds the four orthogonal neighbours as empty cells,
//     but only when all four are inside the grid;
//   - non-empty -> empty removes neighbouring empty cells that are left
//     without any non-empty orthogonal neighbour (one hop only).
//
// It returns the new store and every key whose presence or content changed.
func (s Store) Set(x, y int, content string) (Store, []grid.Key, error) {
	if !s.codec.InBounds(x, y) {
		err := errors.New(errors.CodeOutOfBounds, "cell outside grid")
		return s, nil, errors.AddContext(err, errors.CtxCell, string(grid.ToKey(x, y)))
	}

	key := grid.ToKey(x, y)
	prev := s.cells[key]
	_, existed := s.cells[key]

	next := s.clone()
	next.cells[key] = Cell{X: x, Y: y, Content: content}

	changed := make([]grid.Key, 0, 5)
	if !existed || prev.Content != content {
		changed = append(changed, key)
	}

	switch {
	case prev.IsEmpty() && content != "":
		changed = append(changed, next.expand(x, y)...)
	case !prev.IsEmpty() && content == "":
		changed = append(changed, next.prune(x, y)...)
	}

	return next, changed, nil
}

func (s Store) clone() Store {
	cells := make(map[grid.Key]Cell, len(s.cells)+4)
	for k, c := range s.cells {
		cells[k] = c
	}
	return Store{codec: s.codec, cells: cells}
}

// expand mutates s in place; only call it on a fresh clone.
func (s Store) expand(x, y int) []grid.Key {
	neighbours := orthogonal(x, y)
	for _, n := range neighbours {
		if !s.codec.InBounds(n[0], n[1]) {
			return nil
		}
	}

	added := make([]grid.Key, 0, len(neighbours))
	for _, n := range neighbours {
		k := grid.ToKey(n[0], n[1])
		if _, ok := s.cells[k]; ok {
			continue
		}
		s.cells[k] = Cell{X: n[0], Y: n[1]}
		added = append(added, k)
	}
	return added
}

// prune mutates s in place; only call it on a fresh clone.
func (s Store) prune(x, y int) []grid.Key {
	removed := make([]grid.Key, 0, 4)
	for _, n := range orthogonal(x, y) {
		k := grid.ToKey(n[0], n[1])
		c, ok := s.cells[k]
		if !ok || !c.IsEmpty() {
			continue
		}
		if s.hasFilledNeighbour(n[0], n[1]) {
			continue
		}
		delete(s.cells, k)
		removed = append(removed, k)
	}
	return removed
}

func (s Store) hasFilledNeighbour(x, y int) bool {
	for _, n := range orthogonal(x, y) {
		if c, ok := s.cells[grid.ToKey(n[0], n[1])]; ok && !c.IsEmpty() {
			return true
		}
	}
	return false
}

func orthogonal(x, y int) [4][2]int {
	return [4][2]int{{x, y + 1}, {x + 1, y}, {x, y - 1}, {x - 1, y}}
}
