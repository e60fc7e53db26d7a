// Package measure resolves measure formulas against a strategy snapshot and
// tracks which measures read which.
package measure

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/heimdalr/dag"

	"scorecard/internal/formula"
	"scorecard/internal/strategy"
)

var (
	// ErrReferenceLoop is returned for a measure reference that would close a loop.
	ErrReferenceLoop = errors.New("measure reference closes a loop")
	// ErrUnknownMeasure is returned for a reference to a measure that does not exist.
	ErrUnknownMeasure = errors.New("measure reference to unknown measure")
)

// CycleError describes a measure-ref edge left out of the graph.
type CycleError struct {
	Measure   string
	Reference string
	Err       error
}

func (e CycleError) Error() string {
	return fmt.Sprintf("%s -> %s: %v", e.Measure, e.Reference, e.Err)
}

func (e CycleError) Unwrap() error {
	return e.Err
}

// Graph holds measure-ref edges, dependency -> dependent.
type Graph struct {
	dag   *dag.DAG
	codes []string
	mutex sync.RWMutex
}

// BuildGraph builds the reference graph of every measure in snap. Edges that
// would close a loop and references to unknown measures are reported and
// skipped; the returned graph is always acyclic.
func BuildGraph(snap *strategy.Snapshot) (*Graph, []CycleError) {
	g := &Graph{dag: dag.NewDAG()}
	var problems []CycleError

	measures := snap.Measures()
	for _, m := range measures {
		// vertex data must be hashable, so store the code
		if err := g.dag.AddVertexByID(m.Code, m.Code); err != nil {
			continue
		}
		g.codes = append(g.codes, m.Code)
	}
	sort.Strings(g.codes)

	for _, m := range measures {
		seen := make(map[string]struct{})
		for _, tok := range m.Tokens() {
			if tok.Kind != formula.KindReference || tok.Ref.Type != formula.RefMeasure {
				continue
			}
			ref := tok.Ref.Code
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}

			if _, ok := snap.Measure(ref); !ok {
				problems = append(problems, CycleError{Measure: m.Code, Reference: ref, Err: ErrUnknownMeasure})
				continue
			}
			if ref == m.Code || g.isPathBetween(m.Code, ref) {
				problems = append(problems, CycleError{Measure: m.Code, Reference: ref, Err: ErrReferenceLoop})
				continue
			}
			if err := g.dag.AddEdge(ref, m.Code); err != nil {
				problems = append(problems, CycleError{Measure: m.Code, Reference: ref, Err: err})
			}
		}
	}

	return g, problems
}

// Dependents returns every measure that transitively reads code.
func (g *Graph) Dependents(code string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	descendants, err := g.dag.GetDescendants(code)
	if err != nil {
		return nil
	}
	return sortedIDs(descendants)
}

// Dependencies returns every measure code transitively reads.
func (g *Graph) Dependencies(code string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ancestors, err := g.dag.GetAncestors(code)
	if err != nil {
		return nil
	}
	return sortedIDs(ancestors)
}

// DirectDependencies returns the measures code references in its formula.
func (g *Graph) DirectDependencies(code string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	parents, err := g.dag.GetParents(code)
	if err != nil {
		return nil
	}
	return sortedIDs(parents)
}

// Order returns the measures so that every measure follows the ones it
// reads. Ties are broken by code.
func (g *Graph) Order() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	pending := make(map[string]int, len(g.codes))
	for _, code := range g.codes {
		parents, err := g.dag.GetParents(code)
		if err != nil {
			continue
		}
		pending[code] = len(parents)
	}

	out := make([]string, 0, len(g.codes))
	ready := make([]string, 0)
	for _, code := range g.codes {
		if pending[code] == 0 {
			ready = append(ready, code)
		}
	}
	for len(ready) > 0 {
		sort.Strings(ready)
		code := ready[0]
		ready = ready[1:]
		out = append(out, code)

		children, err := g.dag.GetChildren(code)
		if err != nil {
			continue
		}
		for child := range children {
			pending[child]--
			if pending[child] == 0 {
				ready = append(ready, child)
			}
		}
	}
	return out
}

func (g *Graph) isPathBetween(from, to string) bool {
	descendants, err := g.dag.GetDescendants(from)
	if err != nil {
		return false
	}
	_, exists := descendants[to]
	return exists
}

func sortedIDs(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
