package graph

import (
	"errors"
	"fmt"
	"sort"

	"gridnote/internal/engine/grid"
)

var ErrImpactTargetNotFound = errors.New("impact target not found")

// ImpactReport lists which cells would be recomputed if Target changed.
type ImpactReport struct {
	Target               grid.Key
	Dependencies         []grid.Key
	DirectDependents     []grid.Key
	TransitiveDependents []grid.Key
	// Chains holds, for each transitive dependent, the shortest chain of
	// references from that dependent down to Target.
	Chains map[grid.Key][]grid.Key
}

type ImpactTargetError struct {
	Target grid.Key
}

func (e *ImpactTargetError) Error() string {
	return fmt.Sprintf("%v: %s", ErrImpactTargetNotFound, e.Target)
}

func (e *ImpactTargetError) Unwrap() error {
	return ErrImpactTargetNotFound
}

// Impact reports the direct and indirect readers of key. Indirect readers
// exclude the direct ones and key itself.
func (g *DependencyGraph) Impact(key grid.Key) (ImpactReport, error) {
	if !g.HasNode(key) {
		return ImpactReport{}, &ImpactTargetError{Target: key}
	}

	report := ImpactReport{
		Target:           key,
		Dependencies:     g.Dependencies(key),
		DirectDependents: g.Dependents(key),
	}

	directSet := make(map[grid.Key]bool, len(report.DirectDependents))
	for _, k := range report.DirectDependents {
		directSet[k] = true
	}

	transitive := make([]grid.Key, 0)
	for k := range g.Affected(report.DirectDependents) {
		if k == key || directSet[k] {
			continue
		}
		transitive = append(transitive, k)
	}
	sort.Slice(transitive, func(i, j int) bool { return transitive[i] < transitive[j] })
	report.TransitiveDependents = transitive

	report.Chains = make(map[grid.Key][]grid.Key, len(transitive))
	for _, k := range transitive {
		if chain, ok := g.FindReferenceChain(k, key); ok {
			report.Chains[k] = chain
		}
	}

	return report, nil
}
