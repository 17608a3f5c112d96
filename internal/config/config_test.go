package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Solver.FactLimit != 0 {
		t.Fatalf("FactLimit = %d, want 0", cfg.Solver.FactLimit)
	}
	if cfg.Solver.CheckLattice {
		t.Fatal("CheckLattice enabled by default")
	}
	d, err := cfg.Watch.DebounceDuration()
	if err != nil {
		t.Fatalf("DebounceDuration() error = %v", err)
	}
	if d != 250*time.Millisecond {
		t.Fatalf("debounce = %v, want 250ms", d)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("Load() of missing file = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stratalog.yaml")
	src := `
solver:
  fact_limit: 5000
  solve_timeout: 10s
  check_lattice: true
logging:
  verbose: true
watch:
  debounce: 1s
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Solver.FactLimit != 5000 {
		t.Fatalf("FactLimit = %d, want 5000", cfg.Solver.FactLimit)
	}
	if !cfg.Solver.CheckLattice || !cfg.Logging.Verbose {
		t.Fatalf("flags not loaded: %+v", cfg)
	}
	d, err := cfg.Solver.SolveTimeoutDuration()
	if err != nil || d != 10*time.Second {
		t.Fatalf("SolveTimeoutDuration() = %v, %v; want 10s", d, err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stratalog.yaml")
	if err := os.WriteFile(path, []byte("solver: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() of malformed yaml succeeded")
	}
}

func TestBadDurationStrings(t *testing.T) {
	c := SolverConfig{SolveTimeout: "soon"}
	if _, err := c.SolveTimeoutDuration(); err == nil {
		t.Fatal("SolveTimeoutDuration() accepted garbage")
	}
	w := WatchConfig{Debounce: "whenever"}
	if _, err := w.DebounceDuration(); err == nil {
		t.Fatal("DebounceDuration() accepted garbage")
	}
}
