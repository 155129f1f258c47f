package coherence

import (
	"context"

	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
	"github.com/cottand/tyrel/util"
	"golang.org/x/sync/errgroup"
)

type ImplPair = util.Pair[types.DefId, types.DefId]

// Overlap is a pair of impls that both apply to some types
type Overlap struct {
	Impls  ImplPair
	Result OverlapResult
}

// ImplPairs lists every pair of impls of the same trait, and every pair of inherent
// impls, in a deterministic order. Marker traits may have overlapping impls and are
// skipped.
func ImplPairs(tcx *types.Tcx) []ImplPair {
	var pairs []ImplPair
	add := func(impls []types.DefId) {
		for i := range impls {
			for j := i + 1; j < len(impls); j++ {
				pairs = append(pairs, util.NewPair(impls[i], impls[j]))
			}
		}
	}
	tcx.ImplsByTrait(func(trait types.DefId, impls []types.DefId) {
		if !tcx.Trait(trait).IsMarker {
			add(impls)
		}
	})
	add(tcx.InherentImpls())
	return pairs
}

// CheckAll checks every pair of ImplPairs for overlap, running at most parallel checks
// at once, or without a limit when parallel is not positive. Overlaps are returned in the
// order of ImplPairs. An internal error in any check is returned as an error.
func (c *Checker) CheckAll(ctx context.Context, parallel int) ([]Overlap, error) {
	pairs := ImplPairs(c.tcx)
	results := make([]*Overlap, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, pair := range pairs {
		g.Go(func() (err error) {
			defer bug.Recover(&err)
			if err := ctx.Err(); err != nil {
				return err
			}
			a, b := pair.Unpack()
			if res, ok := c.OverlappingImpls(a, b); ok {
				c.logger.Debug("impls overlap", "impls", pair, "header", res.Header)
				results[i] = &Overlap{Impls: pair, Result: res}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var overlaps []Overlap
	for _, r := range results {
		if r != nil {
			overlaps = append(overlaps, *r)
		}
	}
	c.logger.Info("checked impls for overlap", "pairs", len(pairs), "overlaps", len(overlaps))
	return overlaps, nil
}

// OrphanViolation is a local impl that fails the orphan check
type OrphanViolation struct {
	Impl types.DefId
	Err  tyerr.TyError
}

// CheckOrphans runs OrphanCheck on every local trait impl, grouped by trait in the order they were added
func CheckOrphans(tcx *types.Tcx) []OrphanViolation {
	var ret []OrphanViolation
	tcx.ImplsByTrait(func(_ types.DefId, impls []types.DefId) {
		for _, def := range impls {
			if !def.IsLocal() {
				continue
			}
			if err := orphanCheck(tcx, def); err != nil {
				ret = append(ret, OrphanViolation{Impl: def, Err: err})
			}
		}
	})
	return ret
}

// OrphanErrors gathers the errors of violations, in order
func OrphanErrors(violations []OrphanViolation) *tyerr.Errors {
	var errs *tyerr.Errors
	for _, v := range violations {
		errs = errs.With(v.Err)
	}
	return errs
}
