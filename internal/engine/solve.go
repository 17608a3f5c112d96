package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stratalog/internal/analysis"
	"stratalog/internal/ast"
)

// Solve runs the program to its least fixed point and returns the model.
// Cancellation is polled at stratum boundaries; a cancelled solve returns
// the partial model together with a Cancelled fault. Every other fault is
// final and carries no model.
func (s *Solver) Solve(ctx context.Context) (*Model, error) {
	start := time.Now()

	for stratum := 0; stratum < s.an.NumStrata; stratum++ {
		select {
		case <-ctx.Done():
			s.stats.Duration = time.Since(start)
			return s.model(), &ast.Error{
				Kind:   ast.Cancelled,
				Detail: ctx.Err().Error(),
			}
		default:
		}

		s.log.Debug("entering stratum",
			zap.Int("stratum", stratum),
			zap.Int("facts", len(s.an.FactsByStratum[stratum])),
			zap.Int("rules", len(s.an.RulesByStratum[stratum])))

		if err := s.runStratum(stratum); err != nil {
			s.stats.Duration = time.Since(start)
			return nil, err
		}
	}

	s.stats.Duration = time.Since(start)
	s.log.Debug("solve complete",
		zap.Int("facts", s.rels.Len()),
		zap.Int("rules_fired", s.stats.RulesFired),
		zap.Duration("duration", s.stats.Duration))
	return s.model(), nil
}

// runStratum seeds the stratum's facts, schedules each of its rules once,
// and drains the worklist to quiescence.
func (s *Solver) runStratum(stratum int) error {
	for _, fact := range s.an.FactsByStratum[stratum] {
		changed, tuple, err := s.satisfy(fact.Head, ast.EmptyEnv)
		if err != nil {
			return err
		}
		if changed {
			s.enqueueDependents(stratum, fact.Head.Predicate, tuple)
		}
	}

	// Rules that read only lower strata never see a same-stratum novelty,
	// so each rule gets one full evaluation before the semi-naive drain.
	for _, rule := range s.an.RulesByStratum[stratum] {
		s.push(workItem{clause: rule, seedLit: -1, env: ast.EmptyEnv})
	}

	for len(s.queue) > 0 {
		item := s.queue[0]
		s.queue = s.queue[1:]
		s.stats.Dequeued++
		s.stats.RulesFired++
		if err := s.resolve(item, stratum); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) push(item workItem) {
	s.queue = append(s.queue, item)
	s.stats.Enqueued++
}

// resolve folds the clause body over its scheduled order, starting from
// the item's seed environment. The seed literal, already consumed by the
// fact that woke this item, is skipped. Each surviving environment grounds
// the head and is handed to the satisfier.
func (s *Solver) resolve(item workItem, stratum int) error {
	plan := s.an.Plans[item.clause]
	frontier := []ast.Env{item.env}

	for _, step := range plan.Steps {
		if step.Kind == analysis.StepLiteral && step.Index == item.seedLit {
			continue
		}
		next := frontier[:0:0]
		seen := make(map[string]bool)
		emit := func(env ast.Env) error {
			k := env.Key()
			if seen[k] {
				return nil
			}
			seen[k] = true
			next = append(next, env)
			return nil
		}

		for _, env := range frontier {
			var err error
			if step.Kind == analysis.StepLiteral {
				err = s.extend(item.clause.Body[step.Index], env, emit)
			} else {
				err = evalConstraint(item.clause.Constraints[step.Index], env, emit)
			}
			if err != nil {
				return err
			}
		}

		if len(next) == 0 {
			return nil
		}
		frontier = next
	}

	for _, env := range frontier {
		changed, tuple, err := s.satisfy(item.clause.Head, env)
		if err != nil {
			return err
		}
		if changed {
			s.enqueueDependents(stratum, item.clause.Head.Predicate, tuple)
		}
	}
	return nil
}

// satisfy grounds the head under env and applies it to the store matching
// the head's interpretation: insert-if-absent for relations, join for
// lattices. It returns whether the store changed and the derived tuple
// (for lattices, key positions plus the joined value).
func (s *Solver) satisfy(head ast.Atom, env ast.Env) (bool, []ast.Value, error) {
	tuple := make([]ast.Value, len(head.Args))
	for i, t := range head.Args {
		v, err := ast.Ground(t, env)
		if err != nil {
			return false, nil, err
		}
		tuple[i] = v
	}

	interp := s.an.Program.Interpretations[head.Predicate]
	if interp.Kind == ast.Lattice {
		key := tuple[:interp.Arity-1]
		changed, err := s.lats.Join(head.Predicate, key, tuple[interp.Arity-1], interp)
		if err != nil {
			return false, nil, err
		}
		if changed {
			s.stats.FactsDerived[head.Predicate.Name()]++
			// Report the post-join value so seeds see the stored state.
			joined := s.lats.Get(head.Predicate, key, interp)
			out := append(append([]ast.Value(nil), key...), joined)
			return true, out, nil
		}
		return false, nil, nil
	}

	if s.rels.Contains(head.Predicate, tuple) {
		return false, nil, nil
	}
	if err := s.checkFactLimit(); err != nil {
		return false, nil, err
	}
	s.rels.Insert(head.Predicate, tuple)
	s.stats.FactsDerived[head.Predicate.Name()]++
	return true, tuple, nil
}

// enqueueDependents wakes every same-stratum clause that reads pred
// through a positive literal, seeded with the environment obtained by
// matching that literal against the new tuple.
func (s *Solver) enqueueDependents(stratum int, pred ast.Symbol, tuple []ast.Value) {
	for _, dep := range s.an.Dependents[pred] {
		if s.an.Strata[dep.Clause.Head.Predicate] != stratum {
			continue
		}
		env, ok, full := s.seedEnv(dep, tuple)
		if full {
			// The literal could not be pre-bound; fall back to a full
			// re-evaluation of the clause.
			s.push(workItem{clause: dep.Clause, seedLit: -1, env: ast.EmptyEnv})
			continue
		}
		if !ok {
			continue
		}
		s.push(workItem{clause: dep.Clause, seedLit: dep.Literal, env: env})
	}
}

// seedEnv matches a dependent's literal against a freshly derived tuple.
// It returns (env, matched, fallback): fallback requests a full clause
// re-evaluation when the literal cannot be soundly pre-bound.
func (s *Solver) seedEnv(dep analysis.Dependent, tuple []ast.Value) (ast.Env, bool, bool) {
	atom := dep.Clause.Body[dep.Literal].Atom
	interp := s.an.Program.Interpretations[atom.Predicate]

	if interp.Kind == ast.Relation {
		env, ok, err := matchArgs(atom.Args, tuple, ast.EmptyEnv)
		if err != nil {
			return ast.EmptyEnv, false, true
		}
		return env, ok, false
	}

	// Lattice literal: match the key, then treat the value position the
	// way extendLattice does against the just-joined value.
	env, ok, err := matchArgs(atom.Args[:interp.Arity-1], tuple[:interp.Arity-1], ast.EmptyEnv)
	if err != nil || !ok {
		return ast.EmptyEnv, false, err != nil
	}
	joined := tuple[interp.Arity-1]
	valTerm := atom.Args[interp.Arity-1]
	if v, isVar := valTerm.(ast.Var); isVar && !env.Bound(v.Name) {
		return env.Bind(v.Name, joined), true, false
	}
	want, err := ast.Ground(valTerm, env)
	if err != nil {
		return ast.EmptyEnv, false, true
	}
	return env, interp.Leq(joined, want), false
}
