// Package engine is the bottom-up fixed-point solver. A Solver owns the
// fact and lattice stores for one program and evaluates it stratum by
// stratum with a semi-naive worklist; the result is a Model.
package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stratalog/internal/analysis"
	"stratalog/internal/ast"
	"stratalog/internal/factstore"
)

// Config holds solver limits and switches.
type Config struct {
	// FactLimit caps the relational store; 0 means unlimited. A derivation
	// that would store more than FactLimit tuples aborts the solve.
	FactLimit int

	// CheckLattice enables per-join spot checks of lattice laws.
	CheckLattice bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit:    0,
		CheckLattice: false,
	}
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger attaches a logger; the default is a nop logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(s *Solver) {
		s.cfg = cfg
	}
}

// workItem schedules one clause resolution. seedLit >= 0 pre-binds the
// body literal that matched a freshly derived fact; -1 evaluates the whole
// body against the store.
type workItem struct {
	clause  *ast.Clause
	seedLit int
	env     ast.Env
}

// Solver owns all mutable state of one solve: the stores, the worklist,
// and the statistics. A Solver is single-threaded; run independent Solvers
// for parallelism.
type Solver struct {
	cfg   Config
	log   *zap.Logger
	runID string

	an   *analysis.Result
	rels *factstore.Store
	lats *factstore.LatticeStore

	queue       []workItem
	stats       Stats
	limitWarned bool
}

// New analyzes the program and prepares a solver for it. Analysis faults
// (unknown predicates, arity mismatches, unsafe negation, unstratifiable
// programs) are returned here, before any evaluation.
func New(p *ast.Program, opts ...Option) (*Solver, error) {
	an, err := analysis.Analyze(p)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		cfg:   DefaultConfig(),
		log:   zap.NewNop(),
		runID: uuid.NewString(),
		an:    an,
		rels:  factstore.NewStore(),
		lats:  factstore.NewLatticeStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lats.CheckContract = s.cfg.CheckLattice
	s.stats = Stats{
		RunID:        s.runID,
		FactsDerived: make(map[string]int),
	}
	s.log = s.log.With(zap.String("run_id", s.runID))
	return s, nil
}

// RunID returns the identifier stamped into this solve's statistics and
// log fields.
func (s *Solver) RunID() string {
	return s.runID
}

// checkFactLimit enforces the configured cap before an insertion.
func (s *Solver) checkFactLimit() error {
	if s.cfg.FactLimit <= 0 {
		return nil
	}
	n := s.rels.Len()
	if n >= s.cfg.FactLimit {
		return fmt.Errorf("fact limit exceeded: %d", s.cfg.FactLimit)
	}
	if !s.limitWarned && float64(n) >= float64(s.cfg.FactLimit)*0.85 {
		s.limitWarned = true
		s.log.Warn("fact store nearing capacity",
			zap.Int("facts", n),
			zap.Int("limit", s.cfg.FactLimit))
	}
	return nil
}
