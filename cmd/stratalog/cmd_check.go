package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"stratalog/internal/analysis"
	"stratalog/internal/ast"
	"stratalog/internal/parse"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Parse and stratify programs without solving",
	Long: `Check parses each program, runs validation and stratification, and
prints the stratum assignment. Diagnostics carry source positions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, file := range args {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			prog, perr := parse.Unit(f, file)
			f.Close()
			if perr != nil {
				return perr
			}

			res, err := analysis.Analyze(prog)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}

			preds := make([]ast.Symbol, 0, len(res.Strata))
			for p := range res.Strata {
				preds = append(preds, p)
			}
			sort.Slice(preds, func(i, j int) bool {
				if res.Strata[preds[i]] != res.Strata[preds[j]] {
					return res.Strata[preds[i]] < res.Strata[preds[j]]
				}
				return preds[i].Name() < preds[j].Name()
			})

			fmt.Fprintf(out, "# %s: %d strata\n", file, res.NumStrata)
			for _, p := range preds {
				fmt.Fprintf(out, "stratum %d: %s/%d\n",
					res.Strata[p], p.Name(), prog.Interpretations[p].Arity)
			}
		}
		return nil
	},
}
