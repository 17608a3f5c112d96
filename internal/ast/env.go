package ast

import (
	"sort"
	"strings"
)

// Env is a finite mapping from variable symbols to values. Extension is
// purely functional: Bind returns a new environment and never mutates the
// receiver, so environments may be shared across evaluation branches.
// Bindings are kept sorted by symbol for deterministic iteration and a
// canonical Key.
type Env struct {
	bindings []binding
}

type binding struct {
	sym Symbol
	val Value
}

// EmptyEnv is the environment with no bindings.
var EmptyEnv = Env{}

// Lookup returns the value bound to sym, if any.
func (e Env) Lookup(sym Symbol) (Value, bool) {
	i := sort.Search(len(e.bindings), func(i int) bool {
		return e.bindings[i].sym >= sym
	})
	if i < len(e.bindings) && e.bindings[i].sym == sym {
		return e.bindings[i].val, true
	}
	return nil, false
}

// Bound reports whether sym is bound.
func (e Env) Bound(sym Symbol) bool {
	_, ok := e.Lookup(sym)
	return ok
}

// Bind returns a copy of e with sym bound to val. Binding an already-bound
// symbol replaces its value; callers that need consistency checks must
// Lookup first.
func (e Env) Bind(sym Symbol, val Value) Env {
	i := sort.Search(len(e.bindings), func(i int) bool {
		return e.bindings[i].sym >= sym
	})
	out := make([]binding, 0, len(e.bindings)+1)
	out = append(out, e.bindings[:i]...)
	if i < len(e.bindings) && e.bindings[i].sym == sym {
		out = append(out, binding{sym, val})
		out = append(out, e.bindings[i+1:]...)
	} else {
		out = append(out, binding{sym, val})
		out = append(out, e.bindings[i:]...)
	}
	return Env{bindings: out}
}

// Len returns the number of bindings.
func (e Env) Len() int {
	return len(e.bindings)
}

// Key returns a canonical encoding of the environment, unique per binding
// set. Frontiers deduplicate environments by key.
func (e Env) Key() string {
	var b strings.Builder
	for _, bd := range e.bindings {
		b.WriteString(lenPrefix(bd.sym.Name()))
		b.WriteString(lenPrefix(bd.val.Key()))
	}
	return b.String()
}

func (e Env) String() string {
	parts := make([]string, len(e.bindings))
	for i, bd := range e.bindings {
		parts[i] = bd.sym.Name() + "=" + bd.val.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
