package builtin

import (
	"testing"

	"stratalog/internal/ast"
)

func cn(op ast.ConstraintOp, args ...ast.Term) ast.Constraint {
	return ast.Constraint{Op: op, Args: args}
}

func num(n int64) ast.Term { return ast.Const{Value: ast.Int64(n)} }

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		c    ast.Constraint
		want bool
	}{
		{"lt", cn(ast.OpLt, num(1), num(2)), true},
		{"lt_false", cn(ast.OpLt, num(2), num(1)), false},
		{"le_eq", cn(ast.OpLe, num(2), num(2)), true},
		{"gt", cn(ast.OpGt, num(3), num(2)), true},
		{"ge_false", cn(ast.OpGe, num(1), num(2)), false},
		{"eq", cn(ast.OpEq, num(4), num(4)), true},
		{"ne", cn(ast.OpNe, num(4), num(5)), true},
		{"str_lt", cn(ast.OpLt, ast.Const{Value: ast.Str("a")}, ast.Const{Value: ast.Str("b")}), true},
		{"mixed_widths", cn(ast.OpLt, ast.Const{Value: ast.Int8(1)}, num(2)), true},
		{"shape_mismatch", cn(ast.OpLt, num(1), ast.Const{Value: ast.Str("2")}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := Eval(tt.c, ast.EmptyEnv)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if ok != tt.want {
				t.Fatalf("Eval() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestEqualityBindsFreeVariable(t *testing.T) {
	z := ast.Intern("Z")
	env, ok, err := Eval(cn(ast.OpEq, ast.Var{Name: z}, num(9)), ast.EmptyEnv)
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !ok {
		t.Fatal("Eval() = false, want binding success")
	}
	v, bound := env.Lookup(z)
	if !bound || !ast.Equal(v, ast.Int64(9)) {
		t.Fatalf("Z bound to %v, want 9", v)
	}
}

func TestEqualityUnboundBothSides(t *testing.T) {
	a, b := ast.Intern("A"), ast.Intern("B")
	_, _, err := Eval(cn(ast.OpEq, ast.Var{Name: a}, ast.Var{Name: b}), ast.EmptyEnv)
	if !ast.IsKind(err, ast.UnboundVariable) {
		t.Fatalf("Eval() error = %v, want unbound variable", err)
	}
}

func TestArithmeticBindsResult(t *testing.T) {
	z := ast.Intern("Z")
	env, ok, err := Eval(cn(ast.OpPlus, num(2), num(3), ast.Var{Name: z}), ast.EmptyEnv)
	if err != nil || !ok {
		t.Fatalf("Eval() = %v, %v", ok, err)
	}
	if v, _ := env.Lookup(z); !ast.Equal(v, ast.Int64(5)) {
		t.Fatalf("Z = %v, want 5", v)
	}
}

func TestArithmeticChecksBoundResult(t *testing.T) {
	_, ok, err := Eval(cn(ast.OpTimes, num(2), num(3), num(6)), ast.EmptyEnv)
	if err != nil || !ok {
		t.Fatalf("2*3 = 6 rejected: %v, %v", ok, err)
	}
	_, ok, err = Eval(cn(ast.OpTimes, num(2), num(3), num(7)), ast.EmptyEnv)
	if err != nil || ok {
		t.Fatalf("2*3 = 7 accepted: %v, %v", ok, err)
	}
}

func TestDivisionByZeroFailsAtom(t *testing.T) {
	z := ast.Intern("Z")
	_, ok, err := Eval(cn(ast.OpDiv, num(1), num(0), ast.Var{Name: z}), ast.EmptyEnv)
	if err != nil {
		t.Fatalf("Eval() error = %v, want plain failure", err)
	}
	if ok {
		t.Fatal("division by zero succeeded")
	}
}

func TestResultWidthFollowsLeftOperand(t *testing.T) {
	z := ast.Intern("Z")
	env, ok, err := Eval(cn(ast.OpPlus, ast.Const{Value: ast.Int8(120)}, ast.Const{Value: ast.Int8(10)}, ast.Var{Name: z}), ast.EmptyEnv)
	if err != nil || !ok {
		t.Fatalf("Eval() = %v, %v", ok, err)
	}
	v, _ := env.Lookup(z)
	if _, isInt8 := v.(ast.Int8); !isInt8 {
		t.Fatalf("result is %T, want Int8", v)
	}
}
