// Package builtin evaluates functional body atoms: equality, comparisons,
// and total arithmetic functions. A constraint is evaluated once earlier
// body atoms have bound its operands; a free result variable is bound to
// the computed value, anything else free is an UnboundVariable fault.
package builtin

import (
	"stratalog/internal/ast"
)

// Eval evaluates c against env. It returns the (possibly extended)
// environment and whether the constraint holds. Errors are reserved for
// mode violations; an ordinary failed test returns (env, false, nil).
func Eval(c ast.Constraint, env ast.Env) (ast.Env, bool, error) {
	if c.Op.IsFunction() {
		return evalFunction(c, env)
	}
	return evalComparison(c, env)
}

func evalComparison(c ast.Constraint, env ast.Env) (ast.Env, bool, error) {
	lhs, rhs := c.Args[0], c.Args[1]

	if c.Op == ast.OpEq {
		// Equality doubles as a binding form when exactly one side is a
		// free variable.
		if v, ok := freeVar(lhs, env); ok {
			val, err := groundAt(rhs, env, c.Span)
			if err != nil {
				return env, false, err
			}
			return env.Bind(v, val), true, nil
		}
		if v, ok := freeVar(rhs, env); ok {
			val, err := groundAt(lhs, env, c.Span)
			if err != nil {
				return env, false, err
			}
			return env.Bind(v, val), true, nil
		}
	}

	a, err := groundAt(lhs, env, c.Span)
	if err != nil {
		return env, false, err
	}
	b, err := groundAt(rhs, env, c.Span)
	if err != nil {
		return env, false, err
	}

	switch c.Op {
	case ast.OpEq:
		return env, ast.Equal(a, b), nil
	case ast.OpNe:
		return env, !ast.Equal(a, b), nil
	default:
		cmp, ok := compare(a, b)
		if !ok {
			return env, false, nil
		}
		switch c.Op {
		case ast.OpLt:
			return env, cmp < 0, nil
		case ast.OpLe:
			return env, cmp <= 0, nil
		case ast.OpGt:
			return env, cmp > 0, nil
		default:
			return env, cmp >= 0, nil
		}
	}
}

// evalFunction computes args[0] op args[1] and unifies the result with
// args[2]. Division by zero fails the atom rather than faulting.
func evalFunction(c ast.Constraint, env ast.Env) (ast.Env, bool, error) {
	a, err := groundAt(c.Args[0], env, c.Span)
	if err != nil {
		return env, false, err
	}
	b, err := groundAt(c.Args[1], env, c.Span)
	if err != nil {
		return env, false, err
	}

	res, ok := apply(c.Op, a, b)
	if !ok {
		return env, false, nil
	}

	if v, ok := freeVar(c.Args[2], env); ok {
		return env.Bind(v, res), true, nil
	}
	got, err := groundAt(c.Args[2], env, c.Span)
	if err != nil {
		return env, false, err
	}
	return env, ast.Equal(got, res), nil
}

// compare orders two values of the same shape: integers by width-erased
// value, strings lexicographically, booleans false < true. Mismatched
// shapes are not ordered.
func compare(a, b ast.Value) (int, bool) {
	if ai, ok := intOf(a); ok {
		bi, ok := intOf(b)
		if !ok {
			return 0, false
		}
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		default:
			return 0, true
		}
	}
	if as, ok := a.(ast.Str); ok {
		bs, ok := b.(ast.Str)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	if ab, ok := a.(ast.Bool); ok {
		bb, ok := b.(ast.Bool)
		if !ok {
			return 0, false
		}
		ai, bi := 0, 0
		if bool(ab) {
			ai = 1
		}
		if bool(bb) {
			bi = 1
		}
		return ai - bi, true
	}
	return 0, false
}

// apply computes an arithmetic function on two integer values. The result
// carries the width of the left operand; overflow wraps.
func apply(op ast.ConstraintOp, a, b ast.Value) (ast.Value, bool) {
	ai, ok := intOf(a)
	if !ok {
		return nil, false
	}
	bi, ok := intOf(b)
	if !ok {
		return nil, false
	}

	var r int64
	switch op {
	case ast.OpPlus:
		r = ai + bi
	case ast.OpMinus:
		r = ai - bi
	case ast.OpTimes:
		r = ai * bi
	case ast.OpDiv:
		if bi == 0 {
			return nil, false
		}
		r = ai / bi
	default:
		return nil, false
	}

	switch a.(type) {
	case ast.Int8:
		return ast.Int8(r), true
	case ast.Int16:
		return ast.Int16(r), true
	case ast.Int32:
		return ast.Int32(r), true
	default:
		return ast.Int64(r), true
	}
}

func intOf(v ast.Value) (int64, bool) {
	switch v := v.(type) {
	case ast.Int8:
		return int64(v), true
	case ast.Int16:
		return int64(v), true
	case ast.Int32:
		return int64(v), true
	case ast.Int64:
		return int64(v), true
	default:
		return 0, false
	}
}

func freeVar(t ast.Term, env ast.Env) (ast.Symbol, bool) {
	v, ok := t.(ast.Var)
	if !ok {
		return 0, false
	}
	if env.Bound(v.Name) {
		return 0, false
	}
	return v.Name, true
}

func groundAt(t ast.Term, env ast.Env, span ast.Span) (ast.Value, error) {
	v, err := ast.Ground(t, env)
	if err != nil {
		if e, ok := err.(*ast.Error); ok && e.Span.Line == 0 {
			e.Span = span
		}
		return nil, err
	}
	return v, nil
}
