package cmd

import (
	"fmt"

	"github.com/cottand/tyrel/coherence"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/internal/log"
	"github.com/cottand/tyrel/tyerr"
	"github.com/spf13/cobra"
)

var OrphanCmd = &cobra.Command{
	Use:          "orphan fixture.yaml",
	Short:        "Check that local impls of foreign traits follow the orphan rules",
	RunE:         runOrphan,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

func init() {
	addCommonFlags(OrphanCmd)
}

func runOrphan(cmd *cobra.Command, args []string) (err error) {
	defer bug.Recover(&err)
	fx, err := load(args[0])
	if err != nil {
		return err
	}
	violations := coherence.CheckOrphans(fx.Tcx)
	if errs := coherence.OrphanErrors(violations); errs.HasError() {
		log.Section("coherence").Info("orphan check failed", "uncovered", errs.Count(tyerr.UncoveredTy), "errors", errs)
	}
	w := cmd.OutOrStdout()
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "%s: %s: %v\n", v.Impl, coherence.DeclaredHeader(fx.Tcx, v.Impl), v.Err)
	}
	_, _ = fmt.Fprintf(w, "%d orphan rule violations\n", len(violations))
	if len(violations) > 0 {
		return errConflicts
	}
	return nil
}
