package formats

import (
	"gridnote/internal/core/ports"
	"gridnote/internal/engine/graph"
	"gridnote/internal/engine/grid"
)

// Sheet is the read-only view every generator renders.
type Sheet struct {
	Name   string
	Codec  grid.Codec
	Cells  []ports.CellView
	Graph  *graph.DependencyGraph
	Cycles [][]grid.Key
}

// SheetFrom captures the current state of svc.
func SheetFrom(svc ports.SheetService) Sheet {
	return Sheet{
		Name:   svc.DocumentName(),
		Codec:  svc.Codec(),
		Cells:  svc.Cells(),
		Graph:  svc.Graph(),
		Cycles: svc.Cycles(),
	}
}

// edge is one reference: From reads To.
type edge struct {
	From grid.Key
	To   grid.Key
}

// edges lists every reference edge, ordered by reader then target.
func (s Sheet) edges() []edge {
	if s.Graph == nil {
		return nil
	}
	out := make([]edge, 0, s.Graph.EdgeCount())
	for _, c := range s.Cells {
		for _, to := range s.Graph.Dependencies(c.Key) {
			out = append(out, edge{From: c.Key, To: to})
		}
	}
	return out
}

// linkedCells keeps only cells that take part in at least one reference.
func (s Sheet) linkedCells() []ports.CellView {
	if s.Graph == nil {
		return nil
	}
	out := make([]ports.CellView, 0)
	seen := make(map[grid.Key]bool)
	for _, c := range s.Cells {
		if len(s.Graph.Dependencies(c.Key)) == 0 && len(s.Graph.Dependents(c.Key)) == 0 {
			continue
		}
		out = append(out, c)
		seen[c.Key] = true
	}
	// Targets that are not stored cells still appear as nodes.
	for _, e := range s.edges() {
		if seen[e.To] {
			continue
		}
		seen[e.To] = true
		x, y, _ := grid.KeyToCoords(e.To)
		out = append(out, ports.CellView{Key: e.To, Ref: s.Codec.RefForKey(e.To), X: x, Y: y})
	}
	return out
}

// cycleEdges marks reference edges that stay inside one cycle component.
type cycleEdges map[grid.Key]int

func cycleEdgeSet(cycles [][]grid.Key) cycleEdges {
	out := make(cycleEdges)
	for i, cycle := range cycles {
		for _, k := range cycle {
			out[k] = i
		}
	}
	return out
}

func (c cycleEdges) has(from, to grid.Key) bool {
	fc, ok := c[from]
	if !ok {
		return false
	}
	tc, ok := c[to]
	return ok && fc == tc
}

func cycleKeySet(cycles [][]grid.Key) map[grid.Key]bool {
	out := make(map[grid.Key]bool)
	for _, cycle := range cycles {
		for _, k := range cycle {
			out[k] = true
		}
	}
	return out
}
