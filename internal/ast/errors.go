package ast

import (
	"fmt"
	"strings"
)

// ErrorKind classifies solver faults. Every kind except Cancelled is fatal:
// the solve returns the error and no partial model.
type ErrorKind int

const (
	// UnknownPredicate: an atom refers to a symbol absent from the
	// program's interpretations.
	UnknownPredicate ErrorKind = iota

	// ArityMismatch: an atom's arity differs from the declared arity.
	ArityMismatch

	// UnboundVariable: a variable is read before any atom binds it.
	UnboundVariable

	// UngroundNegation: a negated atom still has a free variable after
	// body scheduling.
	UngroundNegation

	// NonRelationalHead: a predicate is used where a relation is
	// required, e.g. a lattice predicate under negation.
	NonRelationalHead

	// Unstratifiable: the dependency graph has a negative edge inside a
	// strongly connected component.
	Unstratifiable

	// LatticeContract: a lattice's lub/leq violated its algebraic laws
	// during a checked join.
	LatticeContract

	// Cancelled: the external cancellation token fired; the partial
	// model accompanies the error.
	Cancelled
)

var kindNames = map[ErrorKind]string{
	UnknownPredicate:  "unknown predicate",
	ArityMismatch:     "arity mismatch",
	UnboundVariable:   "unbound variable",
	UngroundNegation:  "unground negation",
	NonRelationalHead: "non-relational head",
	Unstratifiable:    "unstratifiable program",
	LatticeContract:   "lattice contract violation",
	Cancelled:         "cancelled",
}

func (k ErrorKind) String() string { return kindNames[k] }

// Error is a structured solver fault: a kind, the offending symbol, a
// source span propagated from the front end, and for stratification
// failures the predicate cycle that caused the rejection.
type Error struct {
	Kind   ErrorKind
	Sym    Symbol
	Span   Span
	Detail string
	Cycle  []Symbol
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Span.Line != 0 {
		fmt.Fprintf(&b, "%s: ", e.Span)
	}
	b.WriteString(e.Kind.String())
	if e.Sym != 0 {
		fmt.Fprintf(&b, ": %s", e.Sym.Name())
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	if len(e.Cycle) > 0 {
		names := make([]string, len(e.Cycle))
		for i, s := range e.Cycle {
			names[i] = s.Name()
		}
		fmt.Fprintf(&b, " [cycle: %s]", strings.Join(names, " -> "))
	}
	return b.String()
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
