package factstore

import (
	"stratalog/internal/ast"
)

// LatticeStore maps, per lattice predicate, a key tuple to a single value
// that only ever moves up its join semilattice. Join reports whether the
// stored value changed; that bit plays the role the novelty bit plays for
// relations.
type LatticeStore struct {
	preds map[ast.Symbol]*latmap

	// CheckContract enables per-join spot checks of the supplied lub/leq
	// laws. Violations surface as LatticeContract faults.
	CheckContract bool
}

type latmap struct {
	order   []string
	entries map[string]*latEntry
}

type latEntry struct {
	key []ast.Value
	val ast.Value
}

// NewLatticeStore returns an empty lattice store.
func NewLatticeStore() *LatticeStore {
	return &LatticeStore{preds: make(map[ast.Symbol]*latmap)}
}

func (s *LatticeStore) lat(p ast.Symbol) *latmap {
	m, ok := s.preds[p]
	if !ok {
		m = &latmap{entries: make(map[string]*latEntry)}
		s.preds[p] = m
	}
	return m
}

// Get returns the value stored under key, or the lattice's bottom when the
// key is absent.
func (s *LatticeStore) Get(p ast.Symbol, key []ast.Value, interp ast.Interpretation) ast.Value {
	if m, ok := s.preds[p]; ok {
		if e, ok := m.entries[ast.TupleKey(key)]; ok {
			return e.val
		}
	}
	return interp.Bottom
}

// Join merges v into the value stored under key via the interpretation's
// lub and reports whether the stored value changed. Equality is decided by
// a structural fast path, then leq in both directions.
func (s *LatticeStore) Join(p ast.Symbol, key []ast.Value, v ast.Value, interp ast.Interpretation) (bool, error) {
	m := s.lat(p)
	k := ast.TupleKey(key)
	cur := interp.Bottom
	e, ok := m.entries[k]
	if ok {
		cur = e.val
	}

	joined := interp.Lub(cur, v)
	if s.CheckContract {
		if err := checkJoin(p, interp, cur, v, joined); err != nil {
			return false, err
		}
	}

	if ast.Equal(joined, cur) {
		return false, nil
	}
	if interp.Leq(joined, cur) && interp.Leq(cur, joined) {
		return false, nil
	}
	if !ok {
		// Keys are stored only once their value rises above bottom.
		e = &latEntry{key: append([]ast.Value(nil), key...)}
		m.entries[k] = e
		m.order = append(m.order, k)
	}
	e.val = joined
	return true, nil
}

// checkJoin spot-checks the lub laws on one join: commutativity,
// idempotence on the result, and that the result is an upper bound.
func checkJoin(p ast.Symbol, interp ast.Interpretation, cur, v, joined ast.Value) error {
	fail := func(law string) error {
		return &ast.Error{
			Kind:   ast.LatticeContract,
			Sym:    p,
			Detail: law,
		}
	}
	if !ast.Equal(interp.Lub(v, cur), joined) {
		return fail("lub is not commutative on " + cur.String() + ", " + v.String())
	}
	if !ast.Equal(interp.Lub(joined, joined), joined) {
		return fail("lub is not idempotent on " + joined.String())
	}
	if !interp.Leq(cur, joined) || !interp.Leq(v, joined) {
		return fail("lub result is not an upper bound of " + cur.String() + ", " + v.String())
	}
	return nil
}

// Entries enumerates the (key, value) pairs stored for p in first-join
// order.
func (s *LatticeStore) Entries(p ast.Symbol, fn func(key []ast.Value, val ast.Value) error) error {
	m, ok := s.preds[p]
	if !ok {
		return nil
	}
	for _, k := range m.order {
		e := m.entries[k]
		if err := fn(e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the number of keys stored for p.
func (s *LatticeStore) Keys(p ast.Symbol) int {
	if m, ok := s.preds[p]; ok {
		return len(m.entries)
	}
	return 0
}
