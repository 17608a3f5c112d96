package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stratalog/internal/ast"
	"stratalog/internal/engine"
	"stratalog/internal/logging"
	"stratalog/internal/parse"
)

var showStats bool

var solveCmd = &cobra.Command{
	Use:   "solve <file>...",
	Short: "Evaluate programs and print their models",
	Long: `Solve parses each program file, evaluates it to its minimal model,
and prints every derived relation. Multiple files are independent programs
and are solved concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return solveFiles(cmd.Context(), args, cmd.OutOrStdout())
	},
}

func init() {
	solveCmd.Flags().BoolVar(&showStats, "stats", false, "print solve statistics")
}

// solveFiles runs one independent solver per file. Output is serialized
// per file so concurrent solves never interleave.
func solveFiles(ctx context.Context, files []string, out io.Writer) error {
	timeout, err := cfg.Solver.SolveTimeoutDuration()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		g.Go(func() error {
			report, err := solveFile(ctx, file, timeout)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			mu.Lock()
			defer mu.Unlock()
			_, err = io.WriteString(out, report)
			return err
		})
	}
	return g.Wait()
}

func solveFile(ctx context.Context, file string, timeout time.Duration) (string, error) {
	log := logging.Get(logging.CategoryCLI)

	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	prog, perr := parse.Unit(f, file)
	f.Close()
	if perr != nil {
		return "", perr
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	solver, err := engine.New(prog,
		engine.WithLogger(logging.Get(logging.CategoryEngine)),
		engine.WithConfig(engine.Config{
			FactLimit:    cfg.Solver.FactLimit,
			CheckLattice: cfg.Solver.CheckLattice,
		}))
	if err != nil {
		return "", err
	}

	model, err := solver.Solve(ctx)
	if err != nil {
		return "", err
	}
	log.Debug("solved program",
		zap.String("file", file),
		zap.String("run_id", model.Stats().RunID))

	return renderModel(file, prog, model), nil
}

// renderModel prints every relation in name order, tuples in the model's
// enumeration order, followed by optional statistics.
func renderModel(file string, prog *ast.Program, model *engine.Model) string {
	preds := make([]ast.Symbol, 0, len(prog.Interpretations))
	for p := range prog.Interpretations {
		preds = append(preds, p)
	}
	sort.Slice(preds, func(i, j int) bool {
		return preds[i].Name() < preds[j].Name()
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", file)
	for _, p := range preds {
		tuples, err := model.Relation(p)
		if err != nil {
			continue
		}
		for _, tuple := range tuples {
			fmt.Fprintf(&b, "%s(%s).\n", p.Name(), ast.FormatTuple(tuple))
		}
	}

	if showStats {
		st := model.Stats()
		fmt.Fprintf(&b, "# run %s: %d rules fired in %s\n",
			st.RunID, st.RulesFired, st.Duration)
		names := make([]string, 0, len(st.FactsDerived))
		for name := range st.FactsDerived {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "#   %s: %d\n", name, st.FactsDerived[name])
		}
	}
	return b.String()
}
