package ast

import (
	"fmt"
	"strings"
)

// Term is the symbolic counterpart of Value inside clause atoms. The
// variants are sealed: Const, Var, and CtorTerm.
type Term interface {
	isTerm()
	String() string
}

// Const wraps a ground value.
type Const struct {
	Value Value
}

// Var is a variable occurrence.
type Var struct {
	Name Symbol
}

// CtorTerm is a constructor applied to sub-terms; it grounds to a Ctor
// value once every sub-term is bound.
type CtorTerm struct {
	Name Symbol
	Args []Term
}

func (Const) isTerm()    {}
func (Var) isTerm()      {}
func (CtorTerm) isTerm() {}

func (t Const) String() string { return t.Value.String() }
func (t Var) String() string   { return t.Name.Name() }

func (t CtorTerm) String() string {
	if len(t.Args) == 0 {
		return t.Name.Name()
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", t.Name.Name(), strings.Join(parts, ", "))
}

// Ground substitutes env into t and returns the resulting value. A variable
// absent from env yields an UnboundVariable error naming the variable.
func Ground(t Term, env Env) (Value, error) {
	switch t := t.(type) {
	case Const:
		return t.Value, nil
	case Var:
		if v, ok := env.Lookup(t.Name); ok {
			return v, nil
		}
		return nil, &Error{Kind: UnboundVariable, Sym: t.Name}
	case CtorTerm:
		args := make([]Value, len(t.Args))
		for i, a := range t.Args {
			v, err := Ground(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return Ctor{Name: t.Name, Args: args}, nil
	default:
		return nil, fmt.Errorf("unknown term %T", t)
	}
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	switch t := t.(type) {
	case Const:
		return true
	case Var:
		return false
	case CtorTerm:
		for _, a := range t.Args {
			if !IsGround(a) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Vars appends the variables of t to acc, in occurrence order.
func Vars(t Term, acc []Symbol) []Symbol {
	switch t := t.(type) {
	case Var:
		return append(acc, t.Name)
	case CtorTerm:
		for _, a := range t.Args {
			acc = Vars(a, acc)
		}
	}
	return acc
}
