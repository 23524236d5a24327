package graph

import (
	"sort"

	"gridnote/internal/engine/grid"
)

// CellImportance is how central one cell is to the sheet's references.
type CellImportance struct {
	Key    grid.Key
	FanIn  int
	FanOut int
	Reach  int
	Score  float64
}

// CalculateImportanceScore weights readers above reads:
//
//	Score = (FanIn * 2) + FanOut + (Reach * 0.5)
//
// Reach counts every cell that would recompute if this one changed.
func CalculateImportanceScore(fanIn, fanOut, reach int) float64 {
	return float64(fanIn*2) + float64(fanOut) + float64(reach)*0.5
}

// TopCells ranks the n most central cells. Cells with no references in
// either direction are left out. Ties break by key.
func (g *DependencyGraph) TopCells(n int) []CellImportance {
	if n <= 0 {
		return nil
	}

	out := make([]CellImportance, 0)
	for key := range g.dependents {
		fanIn := len(g.dependents[key])
		fanOut := len(g.dependencies[key])
		if fanIn == 0 && fanOut == 0 {
			continue
		}
		// Affected includes the cell itself.
		reach := len(g.Affected([]grid.Key{key})) - 1
		out = append(out, CellImportance{
			Key:    key,
			FanIn:  fanIn,
			FanOut: fanOut,
			Reach:  reach,
			Score:  CalculateImportanceScore(fanIn, fanOut, reach),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Key < out[j].Key
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
