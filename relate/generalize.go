package relate

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
)

// termVid is the variable a term is generalized for. Exactly one field is set.
type termVid struct {
	ty    *types.TyVid
	konst *types.ConstVid
}

type generalization struct {
	value types.GenericArg
	// needsWf is set when a fresh variable was introduced in a bivariant position, where
	// nothing else will constrain it to be well-formed
	needsWf bool
}

// generalizer copies a term, replacing the parts that could be related to something else
// under the ambient variance with fresh variables nameable from forUniverse. It also
// performs the occurs check for the variable being generalized.
type generalizer struct {
	infcx       *infer.InferCtxt
	env         types.ParamEnv
	rootTy      types.TyVid
	rootConst   types.ConstVid
	forTy       bool
	forUniverse types.UniverseIndex
	ambient     types.Variance
	needsWf     bool
	cache       map[cacheKey]types.Ty
}

type cacheKey struct {
	variance types.Variance
	ty       string
}

func generalize(infcx *infer.InferCtxt, env types.ParamEnv, term types.GenericArg, vid termVid, variance types.Variance) (generalization, error) {
	g := &generalizer{
		infcx:   infcx,
		env:     env,
		ambient: variance,
		cache:   map[cacheKey]types.Ty{},
	}
	switch {
	case vid.ty != nil:
		g.forTy = true
		g.rootTy = infcx.TypeVariables().SubRoot(*vid.ty)
		probe := infcx.ProbeTyVar(*vid.ty)
		if probe.IsKnown() {
			bug.Panicf("generalizing for %v which already has a value", *vid.ty)
		}
		g.forUniverse = probe.Universe
	case vid.konst != nil:
		g.rootConst = infcx.ConstVars().Find(*vid.konst)
		probe := infcx.ProbeConstVar(*vid.konst)
		if probe.IsKnown() {
			bug.Panicf("generalizing for %v which already has a value", *vid.konst)
		}
		g.forUniverse = probe.Universe
	default:
		bug.Panicf("generalizing for no variable")
	}

	value, err := RelateArgs(g, term, term)
	if err != nil {
		return generalization{}, err
	}
	return generalization{value: value, needsWf: g.needsWf}, nil
}

func (g *generalizer) Tcx() *types.Tcx   { return g.infcx.Tcx }
func (g *generalizer) Tag() string       { return "Generalizer" }
func (g *generalizer) AIsExpected() bool { return true }

func (g *generalizer) RelateWithVariance(v types.Variance, a, b types.GenericArg) (types.GenericArg, error) {
	old := g.ambient
	g.ambient = g.ambient.Xform(v)
	defer func() { g.ambient = old }()
	return RelateArgs(g, a, b)
}

func (g *generalizer) cyclic(t types.Ty) error {
	return tyerr.New(tyerr.NewCyclicTy{Ty: t})
}

func (g *generalizer) Tys(t, t2 types.Ty) (types.Ty, error) {
	key := cacheKey{variance: g.ambient, ty: types.Key(t)}
	if cached, ok := g.cache[key]; ok {
		return cached, nil
	}
	res, err := g.tys(t)
	if err != nil {
		return nil, err
	}
	g.cache[key] = res
	return res, nil
}

func (g *generalizer) tys(t types.Ty) (types.Ty, error) {
	switch t := t.(type) {
	case types.Infer:
		switch t.Kind {
		case types.IntVar, types.FloatVar:
			// numeric variables only ever relate to themselves
			return t, nil
		case types.TyVar:
			return g.tyVar(t)
		}
		bug.Panicf("unexpected fresh type %v in generalization", t)

	case types.PlaceholderTy:
		if g.forUniverse.CanName(t.Universe) {
			return t, nil
		}
		return nil, tyerr.Mismatched(tyerr.Mismatch, true, t, g.forUniverse)

	case types.BoundTy:
		return t, nil

	case types.Alias:
		if t.Kind == types.Opaque {
			alias, err := AliasTys(g, t.AliasTy, t.AliasTy)
			if err != nil {
				return nil, err
			}
			return types.Alias{AliasTy: alias}, nil
		}
	}
	return StructurallyRelateTys(g, t, t)
}

func (g *generalizer) tyVar(t types.Infer) (types.Ty, error) {
	tv := g.infcx.TypeVariables()
	vid := tv.Root(types.TyVid(t.Index))
	if g.forTy && tv.SubRoot(vid) == g.rootTy {
		return nil, g.cyclic(t)
	}
	probe := tv.Probe(vid)
	if probe.IsKnown() {
		return g.Tys(probe.Known, probe.Known)
	}
	switch g.ambient {
	case types.Invariant:
		if g.forUniverse.CanName(probe.Universe) {
			return types.NewTyVar(vid), nil
		}
	case types.Bivariant:
		g.needsWf = true
	}
	fresh := tv.New(g.forUniverse, tv.Origin(vid))
	// keep the replacement sub-unified with vid so later generalizations still see cycles
	tv.Sub(vid, fresh)
	return types.NewTyVar(fresh), nil
}

func (g *generalizer) Regions(r, r2 types.Region) (types.Region, error) {
	switch r.Kind {
	case types.ReLateBound, types.ReErased, types.ReError:
		return r, nil
	}
	if g.ambient == types.Invariant && g.forUniverse.CanName(g.infcx.UniverseOfRegion(r)) {
		return r, nil
	}
	return g.infcx.NewRegionVarInUniverse(g.forUniverse, "generalized"), nil
}

func (g *generalizer) Consts(c, c2 types.Const) (types.Const, error) {
	switch c := c.(type) {
	case types.ConstInfer:
		if c.Kind != types.ConstVar {
			bug.Panicf("unexpected fresh const %v in generalization", c)
		}
		cv := g.infcx.ConstVars()
		vid := cv.Find(types.ConstVid(c.Index))
		if !g.forTy && vid == g.rootConst {
			return nil, tyerr.New(tyerr.NewCyclicConst{Const: c})
		}
		probe := cv.Probe(vid)
		if probe.IsKnown() {
			return g.Consts(probe.Known, probe.Known)
		}
		if g.forUniverse.CanName(probe.Universe) {
			return types.NewConstVar(vid, c.Type()), nil
		}
		return g.infcx.NewConstVarInUniverse(g.forUniverse, c.Type()), nil

	case types.ConstUnevaluated:
		args, err := InvariantArgs(g, c.Args, c.Args)
		if err != nil {
			return nil, err
		}
		return types.NewConstUnevaluated(c.Type(), c.Def, args), nil

	case types.ConstPlaceholder:
		if g.forUniverse.CanName(c.Universe) {
			return c, nil
		}
		return nil, tyerr.Mismatched(tyerr.Mismatch, true, c, g.forUniverse)
	}
	return StructurallyRelateConsts(g, c, c)
}
