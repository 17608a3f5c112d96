package analysis

import (
	"sort"

	"stratalog/internal/ast"
)

// depGraph is the clause dependency graph on predicate symbols. An edge
// head -> body is negative when the body literal is negated or when a rule
// aggregates a lattice into a relational head; negative edges must cross
// strictly downward between strata.
type depGraph struct {
	nodes []ast.Symbol
	edges map[ast.Symbol][]depEdge
}

type depEdge struct {
	to       ast.Symbol
	negative bool
}

func newDepGraph(interps map[ast.Symbol]ast.Interpretation) *depGraph {
	nodes := make([]ast.Symbol, 0, len(interps))
	for p := range interps {
		nodes = append(nodes, p)
	}
	// Map iteration is randomized; order nodes by name so strata and
	// diagnostics are reproducible run to run.
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name() < nodes[j].Name()
	})
	return &depGraph{
		nodes: nodes,
		edges: make(map[ast.Symbol][]depEdge),
	}
}

func (g *depGraph) addEdge(from, to ast.Symbol, negative bool) {
	g.edges[from] = append(g.edges[from], depEdge{to: to, negative: negative})
}

// sccs returns the strongly connected components in reverse topological
// order (callees before callers), using Tarjan's algorithm.
func (g *depGraph) sccs() [][]ast.Symbol {
	type frame struct {
		index   int
		lowlink int
		onStack bool
	}
	state := make(map[ast.Symbol]*frame, len(g.nodes))
	var stack []ast.Symbol
	var out [][]ast.Symbol
	next := 0

	var strongconnect func(v ast.Symbol)
	strongconnect = func(v ast.Symbol) {
		f := &frame{index: next, lowlink: next, onStack: true}
		state[v] = f
		next++
		stack = append(stack, v)

		for _, e := range g.edges[v] {
			w, ok := state[e.to]
			if !ok {
				strongconnect(e.to)
				w = state[e.to]
				if w.lowlink < f.lowlink {
					f.lowlink = w.lowlink
				}
			} else if w.onStack {
				if w.index < f.lowlink {
					f.lowlink = w.index
				}
			}
		}

		if f.lowlink == f.index {
			var comp []ast.Symbol
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			out = append(out, comp)
		}
	}

	for _, v := range g.nodes {
		if _, ok := state[v]; !ok {
			strongconnect(v)
		}
	}
	return out
}

// stratify assigns a stratum to every predicate, or reports the first
// strongly connected component pierced by a negative edge.
func (g *depGraph) stratify() (map[ast.Symbol]int, int, *ast.Error) {
	comps := g.sccs()
	compOf := make(map[ast.Symbol]int, len(g.nodes))
	for i, comp := range comps {
		for _, p := range comp {
			compOf[p] = i
		}
	}

	// A negative edge inside a component means negation (or relational
	// aggregation) through recursion.
	for _, comp := range comps {
		for _, p := range comp {
			for _, e := range g.edges[p] {
				if e.negative && compOf[e.to] == compOf[p] {
					cycle := append([]ast.Symbol(nil), comp...)
					sort.Slice(cycle, func(i, j int) bool {
						return cycle[i].Name() < cycle[j].Name()
					})
					return nil, 0, &ast.Error{
						Kind:  ast.Unstratifiable,
						Sym:   p,
						Cycle: cycle,
					}
				}
			}
		}
	}

	// Components come out callees-first, so every edge target is already
	// assigned when its source is visited.
	compStratum := make([]int, len(comps))
	strata := make(map[ast.Symbol]int, len(g.nodes))
	max := 0
	for i, comp := range comps {
		s := 0
		for _, p := range comp {
			for _, e := range g.edges[p] {
				tc := compOf[e.to]
				if tc == i {
					continue
				}
				dep := compStratum[tc]
				if e.negative {
					dep++
				}
				if dep > s {
					s = dep
				}
			}
		}
		compStratum[i] = s
		if s > max {
			max = s
		}
		for _, p := range comp {
			strata[p] = s
		}
	}
	return strata, max + 1, nil
}
