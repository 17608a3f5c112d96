package engine

import (
	"time"

	"stratalog/internal/ast"
	"stratalog/internal/factstore"
)

// Stats describes one solve: what was derived, how much work the worklist
// did, and how long it took. RunID correlates statistics with log lines.
type Stats struct {
	RunID        string
	FactsDerived map[string]int
	RulesFired   int
	Enqueued     int
	Dequeued     int
	Duration     time.Duration
}

// LatticeEntry is one key/value pair of a lattice predicate's map.
type LatticeEntry struct {
	Key   []ast.Value
	Value ast.Value
}

// Model is the minimal model of a program: relation extensions, lattice
// maps, and the solve statistics. A model returned alongside a Cancelled
// fault holds whatever strata completed.
type Model struct {
	interps map[ast.Symbol]ast.Interpretation
	rels    *factstore.Store
	lats    *factstore.LatticeStore
	stats   Stats
}

func (s *Solver) model() *Model {
	return &Model{
		interps: s.an.Program.Interpretations,
		rels:    s.rels,
		lats:    s.lats,
		stats:   s.stats,
	}
}

// Relation returns every derived tuple of a relational predicate in the
// store's index order: tuples sharing leading values are grouped, and each
// position's values appear in the order they were first inserted.
func (m *Model) Relation(p ast.Symbol) ([][]ast.Value, error) {
	interp, ok := m.interps[p]
	if !ok {
		return nil, &ast.Error{Kind: ast.UnknownPredicate, Sym: p}
	}
	if interp.Kind != ast.Relation {
		return nil, &ast.Error{
			Kind:   ast.NonRelationalHead,
			Sym:    p,
			Detail: "lattice predicate queried as relation",
		}
	}
	var out [][]ast.Value
	_ = m.rels.Lookup(p, nil, func(tuple []ast.Value) error {
		out = append(out, tuple)
		return nil
	})
	return out, nil
}

// Contains reports whether a relational predicate holds the given tuple.
func (m *Model) Contains(p ast.Symbol, tuple []ast.Value) bool {
	return m.rels.Contains(p, tuple)
}

// Lattice returns the key/value map of a lattice predicate, in first-join
// order. Keys that never rose above bottom are absent.
func (m *Model) Lattice(p ast.Symbol) ([]LatticeEntry, error) {
	interp, ok := m.interps[p]
	if !ok {
		return nil, &ast.Error{Kind: ast.UnknownPredicate, Sym: p}
	}
	if interp.Kind != ast.Lattice {
		return nil, &ast.Error{
			Kind:   ast.NonRelationalHead,
			Sym:    p,
			Detail: "relational predicate queried as lattice",
		}
	}
	var out []LatticeEntry
	_ = m.lats.Entries(p, func(key []ast.Value, val ast.Value) error {
		out = append(out, LatticeEntry{Key: key, Value: val})
		return nil
	})
	return out, nil
}

// LatticeValue returns the joined value for one key, or the lattice's
// bottom when the key was never written.
func (m *Model) LatticeValue(p ast.Symbol, key []ast.Value) (ast.Value, error) {
	interp, ok := m.interps[p]
	if !ok {
		return nil, &ast.Error{Kind: ast.UnknownPredicate, Sym: p}
	}
	if interp.Kind != ast.Lattice {
		return nil, &ast.Error{
			Kind:   ast.NonRelationalHead,
			Sym:    p,
			Detail: "relational predicate queried as lattice",
		}
	}
	return m.lats.Get(p, key, interp), nil
}

// Stats returns the solve statistics.
func (m *Model) Stats() Stats {
	return m.stats
}
