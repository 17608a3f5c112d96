// Package analysis validates a program, builds its clause dependency
// graph, assigns strata, and schedules every rule body into a well-moded
// evaluation order. The engine consumes the Result and never re-checks
// what is established here.
package analysis

import (
	"fmt"
	"sort"

	"stratalog/internal/ast"
)

// StepKind distinguishes the two body atom families in a schedule.
type StepKind int

const (
	// StepLiteral indexes into Clause.Body.
	StepLiteral StepKind = iota
	// StepConstraint indexes into Clause.Constraints.
	StepConstraint
)

// Step is one scheduled body atom.
type Step struct {
	Kind  StepKind
	Index int
}

// Plan is a rule body in well-moded order: positive relational literals in
// declared order, then lattice reads, then negated literals, then
// constraints in dependency order.
type Plan struct {
	Steps []Step
}

// Dependent records that a clause reads a predicate through the positive
// body literal at the given index; novelty for that predicate re-schedules
// the clause seeded at that literal.
type Dependent struct {
	Clause  *ast.Clause
	Literal int
}

// Result is everything the engine needs to run a program.
type Result struct {
	Program   *ast.Program
	Strata    map[ast.Symbol]int
	NumStrata int

	FactsByStratum [][]*ast.Clause
	RulesByStratum [][]*ast.Clause

	Dependents map[ast.Symbol][]Dependent
	Plans      map[*ast.Clause]Plan
}

// Analyze checks p and computes its stratification and clause schedules.
// The first fault encountered is returned; no partial result accompanies
// an error.
func Analyze(p *ast.Program) (*Result, error) {
	if err := checkInterpretations(p); err != nil {
		return nil, err
	}
	for _, c := range p.Facts {
		if err := checkFact(p, c); err != nil {
			return nil, err
		}
	}

	plans := make(map[*ast.Clause]Plan, len(p.Rules))
	for _, c := range p.Rules {
		plan, err := checkRule(p, c)
		if err != nil {
			return nil, err
		}
		plans[c] = plan
	}

	g := newDepGraph(p.Interpretations)
	for _, c := range p.Rules {
		head := c.Head.Predicate
		headInterp := p.Interpretations[head]
		for _, l := range c.Body {
			interp := p.Interpretations[l.Atom.Predicate]
			negative := l.Negated ||
				(interp.Kind == ast.Lattice && headInterp.Kind != ast.Lattice)
			g.addEdge(head, l.Atom.Predicate, negative)
		}
	}

	strata, numStrata, serr := g.stratify()
	if serr != nil {
		return nil, serr
	}

	res := &Result{
		Program:        p,
		Strata:         strata,
		NumStrata:      numStrata,
		FactsByStratum: make([][]*ast.Clause, numStrata),
		RulesByStratum: make([][]*ast.Clause, numStrata),
		Dependents:     make(map[ast.Symbol][]Dependent),
		Plans:          plans,
	}
	for _, c := range p.Facts {
		s := strata[c.Head.Predicate]
		res.FactsByStratum[s] = append(res.FactsByStratum[s], c)
	}
	for _, c := range p.Rules {
		s := strata[c.Head.Predicate]
		res.RulesByStratum[s] = append(res.RulesByStratum[s], c)
		for i, l := range c.Body {
			if l.Negated {
				continue
			}
			res.Dependents[l.Atom.Predicate] = append(res.Dependents[l.Atom.Predicate], Dependent{Clause: c, Literal: i})
		}
	}
	return res, nil
}

// checkInterpretations bounds every declared arity to 1..MaxArity and
// requires lattice declarations to carry their semilattice functions.
func checkInterpretations(p *ast.Program) error {
	preds := make([]ast.Symbol, 0, len(p.Interpretations))
	for sym := range p.Interpretations {
		preds = append(preds, sym)
	}
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].Name() < preds[j].Name()
	})
	for _, sym := range preds {
		interp := p.Interpretations[sym]
		if interp.Arity < 1 || interp.Arity > ast.MaxArity {
			return &ast.Error{
				Kind:   ast.ArityMismatch,
				Sym:    sym,
				Detail: fmt.Sprintf("declared arity %d outside 1..%d", interp.Arity, ast.MaxArity),
			}
		}
		if interp.Kind == ast.Lattice && (interp.Bottom == nil || interp.Leq == nil || interp.Lub == nil) {
			return &ast.Error{
				Kind:   ast.LatticeContract,
				Sym:    sym,
				Detail: "lattice interpretation missing bottom, leq, or lub",
			}
		}
	}
	return nil
}

// checkAtom validates predicate existence and arity; it returns the atom's
// interpretation.
func checkAtom(p *ast.Program, a ast.Atom) (ast.Interpretation, error) {
	interp, ok := p.Interpretations[a.Predicate]
	if !ok {
		return interp, &ast.Error{Kind: ast.UnknownPredicate, Sym: a.Predicate, Span: a.Span}
	}
	if len(a.Args) != interp.Arity {
		return interp, &ast.Error{
			Kind: ast.ArityMismatch,
			Sym:  a.Predicate,
			Span: a.Span,
		}
	}
	return interp, nil
}

func checkFact(p *ast.Program, c *ast.Clause) error {
	if _, err := checkAtom(p, c.Head); err != nil {
		return err
	}
	for _, t := range c.Head.Args {
		if !ast.IsGround(t) {
			vs := ast.Vars(t, nil)
			return &ast.Error{Kind: ast.UnboundVariable, Sym: vs[0], Span: c.Head.Span}
		}
	}
	return nil
}

// checkRule validates one rule and produces its evaluation plan. The moding
// discipline: positive literals bind variables; negated literals and
// comparison constraints only read them; function constraints and equality
// may bind one result variable each.
func checkRule(p *ast.Program, c *ast.Clause) (Plan, error) {
	if _, err := checkAtom(p, c.Head); err != nil {
		return Plan{}, err
	}

	bound := make(map[ast.Symbol]bool)
	var relational, latticeReads, negated []int

	for i, l := range c.Body {
		interp, err := checkAtom(p, l.Atom)
		if err != nil {
			return Plan{}, err
		}
		switch {
		case l.Negated:
			if interp.Kind == ast.Lattice {
				return Plan{}, &ast.Error{
					Kind:   ast.NonRelationalHead,
					Sym:    l.Atom.Predicate,
					Span:   l.Atom.Span,
					Detail: "lattice predicate cannot be negated",
				}
			}
			negated = append(negated, i)
		case interp.Kind == ast.Lattice:
			latticeReads = append(latticeReads, i)
			// Only the value position binds; the key must be ground
			// by relational literals.
			for _, v := range ast.Vars(l.Atom.Args[interp.Arity-1], nil) {
				bound[v] = true
			}
		default:
			relational = append(relational, i)
			for _, t := range l.Atom.Args {
				for _, v := range ast.Vars(t, nil) {
					bound[v] = true
				}
			}
		}
	}

	// Negation safety: every variable of a negated literal must be bound
	// by some positive literal.
	for _, i := range negated {
		for _, t := range c.Body[i].Atom.Args {
			for _, v := range ast.Vars(t, nil) {
				if !bound[v] {
					return Plan{}, &ast.Error{
						Kind: ast.UngroundNegation,
						Sym:  v,
						Span: c.Body[i].Atom.Span,
					}
				}
			}
		}
	}

	conOrder, err := scheduleConstraints(c, bound)
	if err != nil {
		return Plan{}, err
	}

	// Range restriction: head variables must be bound once the body has
	// run, so every derived tuple is ground.
	for _, t := range c.Head.Args {
		for _, v := range ast.Vars(t, nil) {
			if !bound[v] {
				return Plan{}, &ast.Error{Kind: ast.UnboundVariable, Sym: v, Span: c.Head.Span}
			}
		}
	}

	steps := make([]Step, 0, len(c.Body)+len(c.Constraints))
	for _, i := range relational {
		steps = append(steps, Step{Kind: StepLiteral, Index: i})
	}
	for _, i := range latticeReads {
		steps = append(steps, Step{Kind: StepLiteral, Index: i})
	}
	for _, i := range negated {
		steps = append(steps, Step{Kind: StepLiteral, Index: i})
	}
	for _, i := range conOrder {
		steps = append(steps, Step{Kind: StepConstraint, Index: i})
	}
	return Plan{Steps: steps}, nil
}

// scheduleConstraints orders the functional atoms so each one's inputs are
// bound when it runs, extending bound with the variables each atom binds.
// Ties break in declaration order. An atom whose inputs can never be bound
// is an UnboundVariable fault.
func scheduleConstraints(c *ast.Clause, bound map[ast.Symbol]bool) ([]int, error) {
	pending := make([]int, 0, len(c.Constraints))
	for i := range c.Constraints {
		pending = append(pending, i)
	}

	var order []int
	for len(pending) > 0 {
		progressed := false
		for pi := 0; pi < len(pending); pi++ {
			i := pending[pi]
			binds, ok := constraintReady(c.Constraints[i], bound)
			if !ok {
				continue
			}
			if binds != 0 {
				bound[binds] = true
			}
			order = append(order, i)
			pending = append(pending[:pi], pending[pi+1:]...)
			progressed = true
			break
		}
		if !progressed {
			cn := c.Constraints[pending[0]]
			for _, t := range cn.Args {
				for _, v := range ast.Vars(t, nil) {
					if !bound[v] {
						return nil, &ast.Error{Kind: ast.UnboundVariable, Sym: v, Span: cn.Span}
					}
				}
			}
			// Unreachable: an unready constraint has an unbound var.
			return nil, &ast.Error{Kind: ast.UnboundVariable, Span: cn.Span}
		}
	}
	return order, nil
}

// constraintReady reports whether cn can run under bound, and which single
// variable (if any) it would bind.
func constraintReady(cn ast.Constraint, bound map[ast.Symbol]bool) (ast.Symbol, bool) {
	unboundIn := func(t ast.Term) []ast.Symbol {
		var out []ast.Symbol
		for _, v := range ast.Vars(t, nil) {
			if !bound[v] {
				out = append(out, v)
			}
		}
		return out
	}

	if cn.Op.IsFunction() {
		if len(unboundIn(cn.Args[0])) > 0 || len(unboundIn(cn.Args[1])) > 0 {
			return 0, false
		}
		res := unboundIn(cn.Args[2])
		switch {
		case len(res) == 0:
			return 0, true
		case len(res) == 1:
			if v, ok := cn.Args[2].(ast.Var); ok {
				return v.Name, true
			}
			return 0, false
		default:
			return 0, false
		}
	}

	lu, ru := unboundIn(cn.Args[0]), unboundIn(cn.Args[1])
	if cn.Op == ast.OpEq {
		// Equality binds a bare free variable on one side.
		if len(lu) == 0 && len(ru) == 1 {
			if v, ok := cn.Args[1].(ast.Var); ok {
				return v.Name, true
			}
		}
		if len(ru) == 0 && len(lu) == 1 {
			if v, ok := cn.Args[0].(ast.Var); ok {
				return v.Name, true
			}
		}
	}
	if len(lu) == 0 && len(ru) == 0 {
		return 0, true
	}
	return 0, false
}
