// Package ast defines the value, term, and clause model shared by the
// parser, the analyzer, and the engine. Everything here is immutable after
// construction; values and symbols may be shared freely across solvers.
package ast

import "sync"

// Symbol is an interned name. Predicates and variables are both symbols;
// interning makes equality and map keys cheap. The zero symbol is the empty
// name and doubles as "no symbol" in diagnostics.
type Symbol uint32

var interner = struct {
	mu    sync.RWMutex
	names []string
	index map[string]Symbol
}{
	names: []string{""},
	index: map[string]Symbol{"": 0},
}

// Intern returns the symbol for name, creating it if necessary.
// The interner is process-wide and safe for concurrent solvers.
func Intern(name string) Symbol {
	interner.mu.RLock()
	s, ok := interner.index[name]
	interner.mu.RUnlock()
	if ok {
		return s
	}

	interner.mu.Lock()
	defer interner.mu.Unlock()
	if s, ok := interner.index[name]; ok {
		return s
	}
	s = Symbol(len(interner.names))
	interner.names = append(interner.names, name)
	interner.index[name] = s
	return s
}

// Name returns the string this symbol was interned from.
func (s Symbol) Name() string {
	interner.mu.RLock()
	defer interner.mu.RUnlock()
	return interner.names[s]
}

func (s Symbol) String() string {
	return s.Name()
}
