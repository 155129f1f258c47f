package cmd

import (
	"fmt"
	"io"

	"github.com/cottand/tyrel/coherence"
	"github.com/cottand/tyrel/fixture"
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/internal/log"
	"github.com/cottand/tyrel/solve"
	"github.com/spf13/cobra"
)

var ProveCmd = &cobra.Command{
	Use:   "prove fixture.yaml",
	Short: "Prove the goals listed in a fixture",
	Long: `Prove the goals listed in a fixture and print how certain each answer is.

A goal with an expectation fails when the answer differs from it, and a goal without
one fails when it does not hold.`,
	RunE:         runProve,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

func init() {
	addCommonFlags(ProveCmd)
	addCoherenceFlags(ProveCmd)
}

type proveResult struct {
	goal      fixture.Goal
	certainty solve.Certainty
	causes    []solve.IntercrateAmbiguityCause
}

func (r proveResult) failed() bool {
	if r.goal.Expect == "" {
		return r.certainty.IsNo()
	}
	return r.certainty.Kind != expectedKind(r.goal.Expect)
}

func expectedKind(expect string) solve.CertaintyKind {
	switch expect {
	case "yes":
		return solve.KindYes
	case "no":
		return solve.KindNo
	}
	return solve.KindAmbiguous
}

// proveGoals evaluates each goal in its own inference session
func proveGoals(fx *fixture.Fixture, cfg coherence.Config) []proveResult {
	checker := coherence.NewChecker(fx.Tcx, cfg)
	logger := log.Section("solve")
	var ret []proveResult
	for _, g := range fx.Goals {
		r := proveResult{goal: g}
		if g.Coherence {
			r.certainty, r.causes = checker.Prove(g.Obligation())
		} else {
			infcx := infer.New(fx.Tcx, infer.Options{NextSolver: true, Logger: logger})
			r.certainty = solve.New(infcx, solve.Config{RecursionLimit: cfg.RecursionLimit}).Evaluate(g.Obligation())
		}
		ret = append(ret, r)
	}
	return ret
}

func runProve(cmd *cobra.Command, args []string) (err error) {
	defer bug.Recover(&err)
	fx, err := load(args[0])
	if err != nil {
		return err
	}
	cfg, err := coherenceConfig()
	if err != nil {
		return err
	}
	results := proveGoals(fx, cfg)
	if failed := printProofs(cmd.OutOrStdout(), results); failed > 0 {
		return errConflicts
	}
	return nil
}

func printProofs(w io.Writer, results []proveResult) (failed int) {
	for _, r := range results {
		mark := "ok"
		if r.failed() {
			mark = "FAIL"
			failed++
		}
		_, _ = fmt.Fprintf(w, "%-4s %s: %s", mark, r.goal.Name, r.certainty)
		if r.goal.Expect != "" && r.failed() {
			_, _ = fmt.Fprintf(w, " (expected %s)", r.goal.Expect)
		}
		_, _ = fmt.Fprintln(w)
		for _, cause := range r.causes {
			_, _ = fmt.Fprintf(w, "     note: %s\n", cause)
		}
	}
	_, _ = fmt.Fprintf(w, "%d goals, %d failed\n", len(results), failed)
	return failed
}
