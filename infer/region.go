package infer

import (
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
	"github.com/hashicorp/go-set/v3"
)

type RegionVariableInfo struct {
	Universe types.UniverseIndex
	Origin   string
}

// Constraint is Sub <= Sup, i.e. Sup outlives Sub
type Constraint struct {
	Sub, Sup types.Region
}

// RegionConstraintCollector records region variables and the constraints between them.
// Constraints are only solved by the leak check here; full region resolution happens later.
type RegionConstraintCollector struct {
	vars        *loggedVec[RegionVariableInfo]
	constraints *loggedVec[Constraint]
}

func newRegionConstraintCollector(log *undoLog) *RegionConstraintCollector {
	return &RegionConstraintCollector{
		vars:        newLoggedVec[RegionVariableInfo](log),
		constraints: newLoggedVec[Constraint](log),
	}
}

func (c *RegionConstraintCollector) NewVar(universe types.UniverseIndex, origin string) types.RegionVid {
	return types.RegionVid(c.vars.push(RegionVariableInfo{Universe: universe, Origin: origin}))
}

func (c *RegionConstraintCollector) VarUniverse(vid types.RegionVid) types.UniverseIndex {
	return c.vars.get(int(vid)).Universe
}

func (c *RegionConstraintCollector) NumVars() int {
	return c.vars.len()
}

// UniverseOf returns the universe a region lives in. Named and static regions are in the root.
func (c *RegionConstraintCollector) UniverseOf(r types.Region) types.UniverseIndex {
	switch r.Kind {
	case types.ReVar:
		return c.VarUniverse(r.Vid)
	case types.RePlaceholder:
		return r.Universe
	}
	return types.RootUniverse
}

// MakeSubregion records sub <= sup
func (c *RegionConstraintCollector) MakeSubregion(sub, sup types.Region) {
	switch {
	case sub == sup:
		return
	case sup.Kind == types.ReStatic:
		return
	case sub.Kind == types.ReError || sup.Kind == types.ReError:
		return
	case sub.Kind == types.ReErased || sup.Kind == types.ReErased:
		return
	}
	c.constraints.push(Constraint{Sub: sub, Sup: sup})
}

func (c *RegionConstraintCollector) MakeEqregion(a, b types.Region) {
	if a == b {
		return
	}
	c.MakeSubregion(a, b)
	c.MakeSubregion(b, a)
}

// LubRegions returns a region outliving both a and b
func (c *RegionConstraintCollector) LubRegions(universe types.UniverseIndex, a, b types.Region) types.Region {
	switch {
	case a.Kind == types.ReStatic || b.Kind == types.ReStatic:
		return types.Static
	case a == b:
		return a
	}
	v := types.NewRegionVar(c.NewVar(universe, "lub"))
	c.MakeSubregion(a, v)
	c.MakeSubregion(b, v)
	return v
}

// GlbRegions returns a region outlived by both a and b
func (c *RegionConstraintCollector) GlbRegions(universe types.UniverseIndex, a, b types.Region) types.Region {
	switch {
	case a.Kind == types.ReStatic:
		return b
	case b.Kind == types.ReStatic:
		return a
	case a == b:
		return a
	}
	v := types.NewRegionVar(c.NewVar(universe, "glb"))
	c.MakeSubregion(v, a)
	c.MakeSubregion(v, b)
	return v
}

func (c *RegionConstraintCollector) NumConstraints() int {
	return c.constraints.len()
}

// ConstraintsSince returns the constraints recorded after the first since ones
func (c *RegionConstraintCollector) ConstraintsSince(since int) []Constraint {
	if since >= c.constraints.len() {
		return nil
	}
	out := make([]Constraint, 0, c.constraints.len()-since)
	for i := since; i < c.constraints.len(); i++ {
		out = append(out, c.constraints.get(i))
	}
	return out
}

// LeakCheck fails when a placeholder from a universe newer than outer would have to be
// related, through the constraints recorded since the first since ones, to something
// other than itself: another placeholder, a named region, 'static from below, or a
// region variable in its cycle that cannot name it.
func (c *RegionConstraintCollector) LeakCheck(outer types.UniverseIndex, since int) error {
	constraints := c.ConstraintsSince(since)
	if len(constraints) == 0 {
		return nil
	}
	succ := map[types.Region][]types.Region{}
	pred := map[types.Region][]types.Region{}
	placeholders := set.New[types.Region](0)
	for _, con := range constraints {
		succ[con.Sub] = append(succ[con.Sub], con.Sup)
		pred[con.Sup] = append(pred[con.Sup], con.Sub)
		for _, r := range []types.Region{con.Sub, con.Sup} {
			if r.Kind == types.RePlaceholder && r.Universe > outer {
				placeholders.Insert(r)
			}
		}
	}
	for p := range placeholders.Items() {
		// regions p must be below, and regions that must be below p
		above := reachable(p, succ)
		below := reachable(p, pred)
		for r := range above.Items() {
			if err := c.leaks(p, r, below.Contains(r)); err != nil {
				return err
			}
		}
		for r := range below.Items() {
			if r.Kind == types.ReStatic {
				return tyerr.New(tyerr.NewPlaceholderLeak{Placeholder: p, Other: r})
			}
			if err := c.leaks(p, r, above.Contains(r)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *RegionConstraintCollector) leaks(p, r types.Region, inCycle bool) error {
	switch {
	case r == p:
		return nil
	case r.Kind == types.RePlaceholder, r.IsNamed():
		return tyerr.New(tyerr.NewPlaceholderLeak{Placeholder: p, Other: r})
	case r.Kind == types.ReVar && inCycle && !c.VarUniverse(r.Vid).CanName(p.Universe):
		return tyerr.New(tyerr.NewPlaceholderLeak{Placeholder: p, Other: r})
	}
	return nil
}

func reachable(from types.Region, edges map[types.Region][]types.Region) *set.Set[types.Region] {
	seen := set.New[types.Region](8)
	stack := []types.Region{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range edges[cur] {
			if seen.Insert(next) {
				stack = append(stack, next)
			}
		}
	}
	seen.Remove(from)
	return seen
}

// InvolvesPlaceholders reports whether a constraint recorded since the first since ones
// mentions a placeholder
func (c *RegionConstraintCollector) InvolvesPlaceholders(since int) bool {
	for _, con := range c.ConstraintsSince(since) {
		if con.Sub.IsPlaceholder() || con.Sup.IsPlaceholder() {
			return true
		}
	}
	return false
}
