package ast

import (
	"sync"
	"testing"
)

func TestInternReturnsStableSymbols(t *testing.T) {
	a := Intern("edge")
	b := Intern("edge")
	if a != b {
		t.Fatalf("Intern(\"edge\") = %v, %v; want equal symbols", a, b)
	}
	if a.Name() != "edge" {
		t.Fatalf("Name() = %q, want %q", a.Name(), "edge")
	}
	if Intern("path") == a {
		t.Fatal("distinct names interned to the same symbol")
	}
}

func TestInternConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	syms := make([]Symbol, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			syms[i] = Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, s := range syms {
		if s != syms[0] {
			t.Fatalf("concurrent Intern produced distinct symbols: %v vs %v", s, syms[0])
		}
	}
}

func TestValueKeysDistinguishVariants(t *testing.T) {
	vals := []Value{
		Unit{},
		Bool(true),
		Bool(false),
		Int8(1),
		Int16(1),
		Int32(1),
		Int64(1),
		Str("1"),
		Str(""),
		Ctor{Name: Intern("pos")},
		Ctor{Name: Intern("some"), Args: []Value{Int64(1)}},
	}
	seen := make(map[string]Value)
	for _, v := range vals {
		if prev, ok := seen[v.Key()]; ok {
			t.Fatalf("values %v and %v share key %q", prev, v, v.Key())
		}
		seen[v.Key()] = v
	}
}

func TestTupleKeyIsInjective(t *testing.T) {
	// Adjacent strings must not merge across positions.
	a := TupleKey([]Value{Str("ab"), Str("c")})
	b := TupleKey([]Value{Str("a"), Str("bc")})
	if a == b {
		t.Fatalf("TupleKey collided: %q", a)
	}
}

func TestEnvBindIsFunctional(t *testing.T) {
	x, y := Intern("X"), Intern("Y")
	e1 := EmptyEnv.Bind(x, Int64(1))
	e2 := e1.Bind(y, Int64(2))

	if _, ok := e1.Lookup(y); ok {
		t.Fatal("binding y in e2 mutated e1")
	}
	if v, ok := e2.Lookup(x); !ok || !Equal(v, Int64(1)) {
		t.Fatalf("e2.Lookup(x) = %v, %v; want 1", v, ok)
	}
	if e1.Key() == e2.Key() {
		t.Fatal("distinct environments share a key")
	}

	// Same bindings in a different order yield the same key.
	e3 := EmptyEnv.Bind(y, Int64(2)).Bind(x, Int64(1))
	if e2.Key() != e3.Key() {
		t.Fatalf("env keys differ for equal bindings: %q vs %q", e2.Key(), e3.Key())
	}
}

func TestGround(t *testing.T) {
	x := Intern("X")
	env := EmptyEnv.Bind(x, Int64(7))

	v, err := Ground(Var{Name: x}, env)
	if err != nil {
		t.Fatalf("Ground(X) error = %v", err)
	}
	if !Equal(v, Int64(7)) {
		t.Fatalf("Ground(X) = %v, want 7", v)
	}

	ctor := CtorTerm{Name: Intern("some"), Args: []Term{Var{Name: x}}}
	v, err = Ground(ctor, env)
	if err != nil {
		t.Fatalf("Ground(some(X)) error = %v", err)
	}
	want := Ctor{Name: Intern("some"), Args: []Value{Int64(7)}}
	if !Equal(v, want) {
		t.Fatalf("Ground(some(X)) = %v, want %v", v, want)
	}

	_, err = Ground(Var{Name: Intern("Free")}, env)
	if !IsKind(err, UnboundVariable) {
		t.Fatalf("Ground(Free) error = %v, want unbound variable", err)
	}
}

func TestErrorRendering(t *testing.T) {
	err := &Error{
		Kind: Unstratifiable,
		Sym:  Intern("a"),
		Cycle: []Symbol{
			Intern("a"), Intern("b"),
		},
	}
	got := err.Error()
	want := "unstratifiable program: a [cycle: a -> b]"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
