package cmd

import (
	"fmt"
	"io"

	"github.com/cottand/tyrel/coherence"
	"github.com/cottand/tyrel/fixture"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/spf13/cobra"
)

var OverlapCmd = &cobra.Command{
	Use:          "overlap fixture.yaml",
	Short:        "Report pairs of impls that apply to the same types",
	RunE:         runOverlap,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
}

var parallel int

func init() {
	addCommonFlags(OverlapCmd)
	addCoherenceFlags(OverlapCmd)
	OverlapCmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "impl pairs to check at once, 0 for no limit")
}

func runOverlap(cmd *cobra.Command, args []string) (err error) {
	defer bug.Recover(&err)
	fx, err := load(args[0])
	if err != nil {
		return err
	}
	cfg, err := coherenceConfig()
	if err != nil {
		return err
	}
	overlaps, err := coherence.NewChecker(fx.Tcx, cfg).CheckAll(cmd.Context(), parallel)
	if err != nil {
		return err
	}
	printOverlaps(cmd.OutOrStdout(), fx, overlaps)
	if len(overlaps) > 0 {
		return errConflicts
	}
	return nil
}

func printOverlaps(w io.Writer, fx *fixture.Fixture, overlaps []coherence.Overlap) {
	for _, o := range overlaps {
		_, _ = fmt.Fprintf(w, "conflicting implementations %s and %s\n", o.Impls.Fst, o.Impls.Snd)
		_, _ = fmt.Fprintf(w, "  both apply to: %s\n", o.Result.Header)
		for _, cause := range o.Result.AmbiguityCauses {
			_, _ = fmt.Fprintf(w, "  note: %s\n", cause)
		}
		if o.Result.InvolvesPlaceholder {
			_, _ = fmt.Fprintln(w, "  note: this overlap relies on a higher-ranked type being treated as its instance")
		}
	}
	_, _ = fmt.Fprintf(w, "%d impls, %d overlapping pairs\n", len(fx.Impls), len(overlaps))
}
