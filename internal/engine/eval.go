package engine

import (
	"stratalog/internal/ast"
	"stratalog/internal/builtin"
)

// extend yields every extension of env that satisfies the body literal,
// through emit. The literal's shape decides the strategy: indexed lookup
// for positive relational atoms, membership for negation, a single keyed
// read for lattice atoms.
func (s *Solver) extend(l ast.Literal, env ast.Env, emit func(ast.Env) error) error {
	interp := s.an.Program.Interpretations[l.Atom.Predicate]
	switch {
	case l.Negated:
		return s.extendNegated(l.Atom, env, emit)
	case interp.Kind == ast.Lattice:
		return s.extendLattice(l.Atom, interp, env, emit)
	default:
		return s.extendPositive(l.Atom, env, emit)
	}
}

// extendPositive enumerates the store on the longest bound prefix of the
// atom and matches the remaining positions against each returned tuple.
func (s *Solver) extendPositive(a ast.Atom, env ast.Env, emit func(ast.Env) error) error {
	prefix := make([]ast.Value, 0, len(a.Args))
	for _, t := range a.Args {
		if !groundable(t, env) {
			break
		}
		v, err := ast.Ground(t, env)
		if err != nil {
			return err
		}
		prefix = append(prefix, v)
	}

	rest := a.Args[len(prefix):]
	return s.rels.Lookup(a.Predicate, prefix, func(tuple []ast.Value) error {
		ext, ok, err := matchArgs(rest, tuple[len(prefix):], env)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return emit(ext)
	})
}

// extendNegated implements negation as failure. The safety condition
// requires a fully ground tuple; stratification guarantees the predicate
// is complete when this runs.
func (s *Solver) extendNegated(a ast.Atom, env ast.Env, emit func(ast.Env) error) error {
	tuple := make([]ast.Value, len(a.Args))
	for i, t := range a.Args {
		v, err := ast.Ground(t, env)
		if err != nil {
			if e, ok := err.(*ast.Error); ok && e.Kind == ast.UnboundVariable {
				return &ast.Error{Kind: ast.UngroundNegation, Sym: e.Sym, Span: a.Span}
			}
			return err
		}
		tuple[i] = v
	}
	if s.rels.Contains(a.Predicate, tuple) {
		return nil
	}
	return emit(env)
}

// extendLattice reads the current join for the atom's key. A free value
// variable binds to the stored value; a ground value term is an upper
// bound test under the lattice's order.
func (s *Solver) extendLattice(a ast.Atom, interp ast.Interpretation, env ast.Env, emit func(ast.Env) error) error {
	key := make([]ast.Value, interp.Arity-1)
	for i := 0; i < interp.Arity-1; i++ {
		v, err := ast.Ground(a.Args[i], env)
		if err != nil {
			return err
		}
		key[i] = v
	}
	stored := s.lats.Get(a.Predicate, key, interp)

	valTerm := a.Args[interp.Arity-1]
	if v, ok := valTerm.(ast.Var); ok && !env.Bound(v.Name) {
		return emit(env.Bind(v.Name, stored))
	}
	want, err := ast.Ground(valTerm, env)
	if err != nil {
		return err
	}
	if interp.Leq(stored, want) {
		return emit(env)
	}
	return nil
}

// evalConstraint runs one functional atom.
func evalConstraint(c ast.Constraint, env ast.Env, emit func(ast.Env) error) error {
	ext, ok, err := builtin.Eval(c, env)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return emit(ext)
}

// groundable reports whether every variable of t is bound in env.
func groundable(t ast.Term, env ast.Env) bool {
	for _, v := range ast.Vars(t, nil) {
		if !env.Bound(v) {
			return false
		}
	}
	return true
}

// matchArgs unifies atom argument terms against a retrieved value tuple,
// binding free variables and structurally matching constructor patterns.
func matchArgs(args []ast.Term, tuple []ast.Value, env ast.Env) (ast.Env, bool, error) {
	for i, t := range args {
		ext, ok, err := matchTerm(t, tuple[i], env)
		if err != nil || !ok {
			return env, false, err
		}
		env = ext
	}
	return env, true, nil
}

func matchTerm(t ast.Term, v ast.Value, env ast.Env) (ast.Env, bool, error) {
	switch t := t.(type) {
	case ast.Const:
		return env, ast.Equal(t.Value, v), nil
	case ast.Var:
		if cur, ok := env.Lookup(t.Name); ok {
			return env, ast.Equal(cur, v), nil
		}
		return env.Bind(t.Name, v), true, nil
	case ast.CtorTerm:
		c, ok := v.(ast.Ctor)
		if !ok || c.Name != t.Name || len(c.Args) != len(t.Args) {
			return env, false, nil
		}
		for i, sub := range t.Args {
			ext, ok, err := matchTerm(sub, c.Args[i], env)
			if err != nil || !ok {
				return env, false, err
			}
			env = ext
		}
		return env, true, nil
	default:
		return env, false, nil
	}
}
