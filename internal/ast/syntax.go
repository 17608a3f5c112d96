package ast

import (
	"fmt"
	"strings"
)

// Span locates a syntax element in its source, for diagnostics. The zero
// span means "no source position" (programs built through the Go API).
type Span struct {
	File string
	Line int
	Col  int
}

func (s Span) String() string {
	if s.Line == 0 {
		return "<no position>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Atom is a predicate applied to terms. Arity is 1..MaxArity and must match
// the predicate's declared interpretation.
type Atom struct {
	Predicate Symbol
	Args      []Term
	Span      Span
}

func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, t := range a.Args {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Predicate.Name(), strings.Join(parts, ", "))
}

// Literal is a body occurrence of a predicate atom, positive or negated.
type Literal struct {
	Atom    Atom
	Negated bool
}

func (l Literal) String() string {
	if l.Negated {
		return "!" + l.Atom.String()
	}
	return l.Atom.String()
}

// ConstraintOp identifies a functional body atom: a comparison test or a
// total arithmetic function.
type ConstraintOp int

const (
	OpEq ConstraintOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpPlus
	OpMinus
	OpTimes
	OpDiv
)

var opNames = map[ConstraintOp]string{
	OpEq:    "=",
	OpNe:    "!=",
	OpLt:    "<",
	OpLe:    "<=",
	OpGt:    ">",
	OpGe:    ">=",
	OpPlus:  "plus",
	OpMinus: "minus",
	OpTimes: "times",
	OpDiv:   "div",
}

func (op ConstraintOp) String() string { return opNames[op] }

// IsFunction reports whether op computes a result (three arguments, the
// last of which may be a free variable) rather than testing its operands.
func (op ConstraintOp) IsFunction() bool {
	return op >= OpPlus
}

// Constraint is a functional body atom. Comparisons take two terms;
// functions take two operands plus a result term.
type Constraint struct {
	Op   ConstraintOp
	Args []Term
	Span Span
}

func (c Constraint) String() string {
	if c.Op.IsFunction() {
		return fmt.Sprintf("%s = %s(%s, %s)", c.Args[2], c.Op, c.Args[0], c.Args[1])
	}
	return fmt.Sprintf("%s %s %s", c.Args[0], c.Op, c.Args[1])
}

// Clause is a Horn clause. The body is partitioned into relational literals
// and functional constraints; a clause with an empty body and a ground head
// is a fact.
type Clause struct {
	Head        Atom
	Body        []Literal
	Constraints []Constraint
}

// IsFact reports whether the clause has an empty body.
func (c *Clause) IsFact() bool {
	return len(c.Body) == 0 && len(c.Constraints) == 0
}

func (c *Clause) String() string {
	if c.IsFact() {
		return c.Head.String() + "."
	}
	parts := make([]string, 0, len(c.Body)+len(c.Constraints))
	for _, l := range c.Body {
		parts = append(parts, l.String())
	}
	for _, cn := range c.Constraints {
		parts = append(parts, cn.String())
	}
	return fmt.Sprintf("%s :- %s.", c.Head.String(), strings.Join(parts, ", "))
}

// PredKind distinguishes relational predicates from lattice maps.
type PredKind int

const (
	Relation PredKind = iota
	Lattice
)

func (k PredKind) String() string {
	if k == Lattice {
		return "lattice"
	}
	return "relation"
}

// Interpretation declares a predicate's arity and semantics. A lattice
// predicate of arity n maps the first n-1 positions to a single value that
// only moves up under Leq; Lub must be commutative, associative,
// idempotent, and monotone — the solver trusts the supplier.
type Interpretation struct {
	Kind  PredKind
	Arity int

	// Lattice only.
	Bottom Value
	Leq    func(a, b Value) bool
	Lub    func(a, b Value) Value
}

// NewRelation declares a relational predicate of the given arity.
func NewRelation(arity int) Interpretation {
	return Interpretation{Kind: Relation, Arity: arity}
}

// NewLattice declares a lattice predicate of the given arity with the
// supplied join semilattice.
func NewLattice(arity int, bottom Value, leq func(a, b Value) bool, lub func(a, b Value) Value) Interpretation {
	return Interpretation{Kind: Lattice, Arity: arity, Bottom: bottom, Leq: leq, Lub: lub}
}

// Program is the typed input the front end hands to the solver:
// interpretations for every predicate, ground facts, and rules.
// Immutable once handed over.
type Program struct {
	Interpretations map[Symbol]Interpretation
	Facts           []*Clause
	Rules           []*Clause
}
