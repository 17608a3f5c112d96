package engine

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"go.uber.org/goleak"

	"stratalog/internal/ast"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sym(name string) ast.Symbol { return ast.Intern(name) }

func v(name string) ast.Term { return ast.Var{Name: sym(name)} }

func num(n int64) ast.Term { return ast.Const{Value: ast.Int64(n)} }

func atom(pred string, args ...ast.Term) ast.Atom {
	return ast.Atom{Predicate: sym(pred), Args: args}
}

func pos(pred string, args ...ast.Term) ast.Literal {
	return ast.Literal{Atom: atom(pred, args...)}
}

func neg(pred string, args ...ast.Term) ast.Literal {
	return ast.Literal{Atom: atom(pred, args...), Negated: true}
}

func fact(pred string, vals ...int64) *ast.Clause {
	args := make([]ast.Term, len(vals))
	for i, n := range vals {
		args[i] = num(n)
	}
	return &ast.Clause{Head: atom(pred, args...)}
}

func rule(head ast.Atom, body ...ast.Literal) *ast.Clause {
	return &ast.Clause{Head: head, Body: body}
}

func relProgram(arity int, preds ...string) *ast.Program {
	p := &ast.Program{Interpretations: make(map[ast.Symbol]ast.Interpretation)}
	for _, name := range preds {
		p.Interpretations[sym(name)] = ast.NewRelation(arity)
	}
	return p
}

func solve(t *testing.T, p *ast.Program, opts ...Option) *Model {
	t.Helper()
	s, err := New(p, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	model, err := s.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	return model
}

// tupleSet renders a relation as a sorted set of tuple strings for
// order-independent comparison.
func tupleSet(t *testing.T, m *Model, pred string) []string {
	t.Helper()
	tuples, err := m.Relation(sym(pred))
	if err != nil {
		t.Fatalf("Relation(%s) error = %v", pred, err)
	}
	out := make([]string, len(tuples))
	for i, tp := range tuples {
		out[i] = ast.FormatTuple(tp)
	}
	sort.Strings(out)
	return out
}

func wantSet(t *testing.T, got []string, want ...string) {
	t.Helper()
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("relation = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relation = %v, want %v", got, want)
		}
	}
}

// Transitive closure over a chain of edges.
func TestTransitiveClosure(t *testing.T) {
	p := relProgram(2, "edge", "path")
	p.Facts = []*ast.Clause{
		fact("edge", 1, 2),
		fact("edge", 2, 3),
		fact("edge", 3, 4),
	}
	p.Rules = []*ast.Clause{
		rule(atom("path", v("X"), v("Y")), pos("edge", v("X"), v("Y"))),
		rule(atom("path", v("X"), v("Z")), pos("path", v("X"), v("Y")), pos("edge", v("Y"), v("Z"))),
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "path"),
		"1, 2", "2, 3", "3, 4", "1, 3", "2, 4", "1, 4")
}

// Mutual positive recursion is not an error and propagates facts both ways.
func TestMutualRecursion(t *testing.T) {
	p := relProgram(1, "a", "b")
	p.Facts = []*ast.Clause{fact("a", 1)}
	p.Rules = []*ast.Clause{
		rule(atom("a", v("X")), pos("b", v("X"))),
		rule(atom("b", v("X")), pos("a", v("X"))),
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "a"), "1")
	wantSet(t, tupleSet(t, m, "b"), "1")
}

// A ten-predicate positive cycle stratifies and yields empty extensions
// without facts.
func TestLongPositiveCycle(t *testing.T) {
	names := make([]string, 10)
	for i := range names {
		names[i] = fmt.Sprintf("foo%d", i+1)
	}
	p := relProgram(1, names...)
	for i := range names {
		next := names[(i+1)%len(names)]
		p.Rules = append(p.Rules, rule(atom(names[i], v("X")), pos(next, v("X"))))
	}

	m := solve(t, p)
	for _, name := range names {
		if got := tupleSet(t, m, name); len(got) != 0 {
			t.Fatalf("%s = %v, want empty", name, got)
		}
	}
}

// Stratified negation: q holds where s holds and p does not.
func TestStratifiedNegation(t *testing.T) {
	p := relProgram(1, "p", "q", "s")
	p.Facts = []*ast.Clause{
		fact("p", 1), fact("p", 2),
		fact("s", 1), fact("s", 2), fact("s", 3),
	}
	p.Rules = []*ast.Clause{
		rule(atom("q", v("X")), pos("s", v("X")), neg("p", v("X"))),
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "p"), "1", "2")
	wantSet(t, tupleSet(t, m, "q"), "3")
}

// Negation through recursion is rejected before solving.
func TestUnstratifiableProgram(t *testing.T) {
	p := relProgram(1, "a", "b", "s")
	p.Facts = []*ast.Clause{fact("s", 1)}
	p.Rules = []*ast.Clause{
		rule(atom("a", v("X")), pos("s", v("X")), neg("b", v("X"))),
		rule(atom("b", v("X")), pos("s", v("X")), neg("a", v("X"))),
	}

	_, err := New(p)
	if !ast.IsKind(err, ast.Unstratifiable) {
		t.Fatalf("New() error = %v, want unstratifiable", err)
	}
}

// Constructor patterns in body atoms bind variables structurally.
func TestConstructorPatternMatching(t *testing.T) {
	p := relProgram(1, "wrapped", "inner")
	some := sym("some")
	p.Facts = []*ast.Clause{
		{Head: atom("wrapped", ast.Const{Value: ast.Ctor{Name: some, Args: []ast.Value{ast.Int64(7)}}})},
		{Head: atom("wrapped", ast.Const{Value: ast.Ctor{Name: sym("none")}})},
	}
	p.Rules = []*ast.Clause{
		rule(atom("inner", v("X")),
			pos("wrapped", ast.CtorTerm{Name: some, Args: []ast.Term{v("X")}})),
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "inner"), "7")
}

// Functional atoms: comparisons filter, arithmetic binds.
func TestConstraints(t *testing.T) {
	p := relProgram(1, "n", "big", "next")
	p.Facts = []*ast.Clause{fact("n", 1), fact("n", 5), fact("n", 9)}
	p.Rules = []*ast.Clause{
		{
			Head: atom("big", v("X")),
			Body: []ast.Literal{pos("n", v("X"))},
			Constraints: []ast.Constraint{
				{Op: ast.OpGt, Args: []ast.Term{v("X"), num(4)}},
			},
		},
		{
			Head: atom("next", v("Y")),
			Body: []ast.Literal{pos("n", v("X"))},
			Constraints: []ast.Constraint{
				{Op: ast.OpPlus, Args: []ast.Term{v("X"), num(1), v("Y")}},
			},
		},
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "big"), "5", "9")
	wantSet(t, tupleSet(t, m, "next"), "2", "6", "10")
}

// Disjunction: multiple rules with the same head union their models.
func TestMultipleRulesSameHead(t *testing.T) {
	p := relProgram(1, "l", "r", "u")
	p.Facts = []*ast.Clause{fact("l", 1), fact("r", 2)}
	p.Rules = []*ast.Clause{
		rule(atom("u", v("X")), pos("l", v("X"))),
		rule(atom("u", v("X")), pos("r", v("X"))),
	}

	m := solve(t, p)
	wantSet(t, tupleSet(t, m, "u"), "1", "2")
}

// A cancelled context surfaces as Cancelled with a partial model.
func TestCancellation(t *testing.T) {
	p := relProgram(2, "edge", "path")
	p.Facts = []*ast.Clause{fact("edge", 1, 2)}
	p.Rules = []*ast.Clause{
		rule(atom("path", v("X"), v("Y")), pos("edge", v("X"), v("Y"))),
	}

	s, err := New(p)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model, err := s.Solve(ctx)
	if !ast.IsKind(err, ast.Cancelled) {
		t.Fatalf("Solve() error = %v, want cancelled", err)
	}
	if model == nil {
		t.Fatal("Solve() returned no partial model alongside Cancelled")
	}
}

// The configured fact limit aborts runaway derivations.
func TestFactLimit(t *testing.T) {
	p := relProgram(1, "n", "m")
	p.Facts = []*ast.Clause{fact("n", 0)}
	p.Rules = []*ast.Clause{
		{
			Head: atom("m", v("Y")),
			Body: []ast.Literal{pos("n", v("X"))},
			Constraints: []ast.Constraint{
				{Op: ast.OpPlus, Args: []ast.Term{v("X"), num(1), v("Y")}},
			},
		},
		rule(atom("n", v("X")), pos("m", v("X"))),
	}

	s, err := New(p, WithConfig(Config{FactLimit: 100}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := s.Solve(context.Background()); err == nil {
		t.Fatal("Solve() succeeded past the fact limit")
	}
}

// Statistics carry per-predicate counts and a run identifier.
func TestStatistics(t *testing.T) {
	p := relProgram(2, "edge", "path")
	p.Facts = []*ast.Clause{fact("edge", 1, 2), fact("edge", 2, 3)}
	p.Rules = []*ast.Clause{
		rule(atom("path", v("X"), v("Y")), pos("edge", v("X"), v("Y"))),
		rule(atom("path", v("X"), v("Z")), pos("path", v("X"), v("Y")), pos("edge", v("Y"), v("Z"))),
	}

	m := solve(t, p)
	st := m.Stats()
	if st.RunID == "" {
		t.Fatal("Stats().RunID is empty")
	}
	if st.FactsDerived["edge"] != 2 {
		t.Fatalf("FactsDerived[edge] = %d, want 2", st.FactsDerived["edge"])
	}
	if st.FactsDerived["path"] != 3 {
		t.Fatalf("FactsDerived[path] = %d, want 3", st.FactsDerived["path"])
	}
	if st.RulesFired == 0 {
		t.Fatal("Stats().RulesFired = 0")
	}
	if st.Dequeued != st.Enqueued {
		t.Fatalf("worklist drained %d of %d items", st.Dequeued, st.Enqueued)
	}
}
