package relate

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
)

type Mode uint8

const (
	ModeEquate Mode = iota
	ModeSub
	ModeLub
	ModeGlb
)

func (m Mode) String() string {
	return [...]string{"Equate", "Sub", "Lub", "Glb"}[m]
}

// fields is the state shared by every Combiner started from the same relation
type fields struct {
	infcx       *infer.InferCtxt
	cause       infer.ObligationCause
	env         types.ParamEnv
	obligations []infer.Obligation
	// rigidAliases relates aliases structurally even in a NextSolver session
	rigidAliases bool
}

// Combiner relates terms under one Mode, accumulating the obligations that could not be
// decided on the spot. Switching variance produces a sibling Combiner sharing the same fields.
type Combiner struct {
	*fields
	mode        Mode
	aIsExpected bool
}

func newCombiner(infcx *infer.InferCtxt, cause infer.ObligationCause, env types.ParamEnv, mode Mode, aIsExpected bool) *Combiner {
	return &Combiner{
		fields:      &fields{infcx: infcx, cause: cause, env: env},
		mode:        mode,
		aIsExpected: aIsExpected,
	}
}

func (c *Combiner) with(mode Mode, aIsExpected bool) *Combiner {
	return &Combiner{fields: c.fields, mode: mode, aIsExpected: aIsExpected}
}

func (c *Combiner) equate() *Combiner { return c.with(ModeEquate, c.aIsExpected) }
func (c *Combiner) sub() *Combiner    { return c.with(ModeSub, c.aIsExpected) }

func (c *Combiner) Tcx() *types.Tcx         { return c.infcx.Tcx }
func (c *Combiner) Tag() string             { return c.mode.String() }
func (c *Combiner) AIsExpected() bool       { return c.aIsExpected }
func (c *Combiner) Mode() Mode              { return c.mode }
func (c *Combiner) Infcx() *infer.InferCtxt { return c.infcx }

// Obligations returns what was registered so far by this Combiner and its siblings
func (c *Combiner) Obligations() []infer.Obligation { return c.obligations }

func (c *Combiner) register(p types.Predicate) {
	c.obligations = append(c.obligations, infer.NewObligation(c.cause, c.env, p))
}

func (c *Combiner) RelateWithVariance(v types.Variance, a, b types.GenericArg) (types.GenericArg, error) {
	switch c.mode {
	case ModeEquate:
		return RelateArgs(c, a, b)
	case ModeSub:
		switch v {
		case types.Invariant:
			return RelateArgs(c.equate(), a, b)
		case types.Covariant:
			return RelateArgs(c, a, b)
		case types.Bivariant:
			return a, nil
		default:
			_, err := RelateArgs(c.with(ModeSub, !c.aIsExpected), b, a)
			return a, err
		}
	default:
		switch v {
		case types.Invariant:
			return RelateArgs(c.equate(), a, b)
		case types.Covariant:
			return RelateArgs(c, a, b)
		case types.Bivariant:
			return a, nil
		default:
			opposite := ModeLub
			if c.mode == ModeLub {
				opposite = ModeGlb
			}
			return RelateArgs(c.with(opposite, c.aIsExpected), a, b)
		}
	}
}

func (c *Combiner) Tys(a, b types.Ty) (types.Ty, error) {
	if types.Equal(a, b) {
		return a, nil
	}
	a, b = c.infcx.ReplaceIfPossible(a), c.infcx.ReplaceIfPossible(b)
	avid, aVar := types.TyVidOf(a)
	bvid, bVar := types.TyVidOf(b)

	switch c.mode {
	case ModeEquate:
		switch {
		case aVar && bVar:
			c.infcx.TypeVariables().Equate(avid, bvid)
		case aVar:
			return a, c.instantiate(b, types.Invariant, avid, c.aIsExpected)
		case bVar:
			return a, c.instantiate(a, types.Invariant, bvid, c.aIsExpected)
		default:
			if t, ok := c.errorTy(a, b); ok {
				return t, nil
			}
			if _, err := c.superCombineTys(a, b); err != nil {
				return nil, err
			}
		}
		return a, nil

	case ModeSub:
		switch {
		case aVar && bVar:
			c.infcx.TypeVariables().Sub(avid, bvid)
			c.register(types.SubtypePredicate{AIsExpected: c.aIsExpected, A: a, B: b})
		case aVar:
			return a, c.instantiate(b, types.Contravariant, avid, !c.aIsExpected)
		case bVar:
			return a, c.instantiate(a, types.Covariant, bvid, c.aIsExpected)
		default:
			if t, ok := c.errorTy(a, b); ok {
				return t, nil
			}
			if _, err := c.superCombineTys(a, b); err != nil {
				return nil, err
			}
		}
		return a, nil
	}
	return c.latticeTys(a, b, aVar || bVar)
}

func (c *Combiner) errorTy(a, b types.Ty) (types.Ty, bool) {
	if _, ok := a.(types.Error); ok {
		c.infcx.SetTaintedByErrors()
		return a, true
	}
	if _, ok := b.(types.Error); ok {
		c.infcx.SetTaintedByErrors()
		return b, true
	}
	return nil, false
}

// latticeTys computes a bound of a and b. When either is a variable the result is a
// fresh variable related to both through subtyping.
func (c *Combiner) latticeTys(a, b types.Ty, anyVar bool) (types.Ty, error) {
	if !anyVar {
		if t, ok := c.errorTy(a, b); ok {
			return t, nil
		}
		return c.superCombineTys(a, b)
	}
	v := c.infcx.NewTyVar(infer.TypeVariableOrigin{Kind: "lattice"})
	sub := c.sub()
	if c.mode == ModeLub {
		if _, err := sub.Tys(a, v); err != nil {
			return nil, err
		}
		if _, err := sub.Tys(b, v); err != nil {
			return nil, err
		}
	} else {
		if _, err := sub.Tys(v, a); err != nil {
			return nil, err
		}
		if _, err := sub.Tys(v, b); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (c *Combiner) Regions(a, b types.Region) (types.Region, error) {
	rc := c.infcx.RegionConstraints()
	switch c.mode {
	case ModeEquate:
		rc.MakeEqregion(a, b)
		return a, nil
	case ModeSub:
		rc.MakeSubregion(b, a)
		return a, nil
	case ModeLub:
		// regions order opposite to the types containing them
		return rc.GlbRegions(c.infcx.Universe(), a, b), nil
	default:
		return rc.LubRegions(c.infcx.Universe(), a, b), nil
	}
}

func (c *Combiner) Consts(a, b types.Const) (types.Const, error) {
	return c.superCombineConsts(a, b)
}

// instantiate generalizes ty for the universe of vid, assigns the generalization to vid
// and then relates ty to it under dir
func (c *Combiner) instantiate(ty types.Ty, dir types.Variance, vid types.TyVid, aIsExpected bool) error {
	if c.infcx.ProbeTyVar(vid).IsKnown() {
		bug.Panicf("instantiating %v which already has a value", vid)
	}
	g, err := generalize(c.infcx, c.env, ty, termVid{ty: &vid}, dir)
	if err != nil {
		return err
	}
	gen := g.value.(types.Ty)
	c.infcx.Logger.Debug("generalized", "section", "relate.generalize", "ty", ty, "var", vid, "into", gen)
	c.infcx.TypeVariables().Instantiate(vid, gen)
	if g.needsWf {
		c.register(types.WellFormed{Arg: gen})
	}
	if types.IsTyVar(gen) {
		return nil
	}
	switch dir {
	case types.Invariant:
		_, err = c.with(ModeEquate, aIsExpected).Tys(ty, gen)
	case types.Covariant:
		_, err = c.with(ModeSub, aIsExpected).Tys(ty, gen)
	case types.Contravariant:
		_, err = c.with(ModeSub, !aIsExpected).Tys(gen, ty)
	}
	return err
}

func (c *Combiner) superCombineTys(a, b types.Ty) (types.Ty, error) {
	ai, aInfer := a.(types.Infer)
	bi, bInfer := b.(types.Infer)
	ints := c.infcx.IntVars()
	floats := c.infcx.FloatVars()

	switch {
	case aInfer && bInfer && ai.Kind == types.IntVar && bi.Kind == types.IntVar:
		if err := ints.UnifyVarVar(types.IntVid(ai.Index), types.IntVid(bi.Index)); err != nil {
			return nil, numericError(tyerr.IntMismatch, c.aIsExpected, err)
		}
		return a, nil
	case aInfer && bInfer && ai.Kind == types.FloatVar && bi.Kind == types.FloatVar:
		if err := floats.UnifyVarVar(types.FloatVid(ai.Index), types.FloatVid(bi.Index)); err != nil {
			return nil, numericError(tyerr.FloatMismatch, c.aIsExpected, err)
		}
		return a, nil
	case aInfer && ai.Kind == types.IntVar && types.IsIntegral(b):
		return b, c.unifyIntegral(c.aIsExpected, types.IntVid(ai.Index), b)
	case bInfer && bi.Kind == types.IntVar && types.IsIntegral(a):
		return a, c.unifyIntegral(!c.aIsExpected, types.IntVid(bi.Index), a)
	case aInfer && ai.Kind == types.FloatVar && types.IsFloat(b):
		return b, c.unifyFloat(c.aIsExpected, types.FloatVid(ai.Index), b)
	case bInfer && bi.Kind == types.FloatVar && types.IsFloat(a):
		return a, c.unifyFloat(!c.aIsExpected, types.FloatVid(bi.Index), a)
	}

	if (aInfer && (ai.Kind == types.TyVar || ai.IsFresh())) || (bInfer && (bi.Kind == types.TyVar || bi.IsFresh())) {
		bug.Panicf("unexpected inference variable relating %v and %v", a, b)
	}
	if aInfer || bInfer {
		return nil, mismatch(c, tyerr.Sorts, a, b)
	}

	if c.infcx.NextSolver && !c.rigidAliases && (isLazyAlias(a) || isLazyAlias(b)) {
		c.registerAliasRelate(a, b)
		return a, nil
	}
	if c.infcx.Intercrate && sameOpaque(a, b) {
		c.register(types.AmbiguousPredicate{})
		return a, nil
	}
	return StructurallyRelateTys(c, a, b)
}

func (c *Combiner) registerAliasRelate(a, b types.Ty) {
	switch c.mode {
	case ModeSub:
		c.register(types.AliasRelate{A: a, B: b, Dir: types.AliasSubtype})
	default:
		c.register(types.AliasRelate{A: a, B: b, Dir: types.AliasEquate})
	}
}

func isLazyAlias(t types.Ty) bool {
	a, ok := t.(types.Alias)
	return ok && a.Kind != types.Opaque
}

// sameOpaque reports whether a and b are uses of the same opaque type, maybe with
// different args
func sameOpaque(a, b types.Ty) bool {
	x, ok := a.(types.Alias)
	if !ok || x.Kind != types.Opaque {
		return false
	}
	y, ok := b.(types.Alias)
	return ok && y.Kind == types.Opaque && x.Def == y.Def
}

func numericError(kind tyerr.ErrCode, aIsExpected bool, err error) error {
	if conflict, ok := err.(infer.Conflict); ok {
		return tyerr.Mismatched(kind, aIsExpected, conflict.A, conflict.B)
	}
	return err
}

func (c *Combiner) unifyIntegral(vidIsExpected bool, vid types.IntVid, t types.Ty) error {
	if err := c.infcx.IntVars().UnifyVarValue(vid, infer.IntVarValue{Ty: t}); err != nil {
		return numericError(tyerr.IntMismatch, vidIsExpected, err)
	}
	return nil
}

func (c *Combiner) unifyFloat(vidIsExpected bool, vid types.FloatVid, t types.Ty) error {
	if err := c.infcx.FloatVars().UnifyVarValue(vid, infer.FloatVarValue{Ty: t}); err != nil {
		return numericError(tyerr.FloatMismatch, vidIsExpected, err)
	}
	return nil
}

func (c *Combiner) superCombineConsts(a, b types.Const) (types.Const, error) {
	a, b = c.infcx.ShallowResolveConst(a), c.infcx.ShallowResolveConst(b)

	if !types.Equal(a.Type(), b.Type()) && !c.constTypesCompatible(a.Type(), b.Type()) {
		// reported as a type error elsewhere
		c.infcx.Logger.Debug("relating consts of incompatible types", "section", "relate.consts", "a", a, "b", b)
		// equate a variable side with the error const so no unconstrained variable is left over
		aErr := types.NewConstError(a.Type())
		if v, ok := a.(types.ConstInfer); ok && v.Kind == types.ConstVar {
			return c.instantiateConstVar(types.ConstVid(v.Index), aErr)
		}
		bErr := types.NewConstError(b.Type())
		if v, ok := b.(types.ConstInfer); ok && v.Kind == types.ConstVar {
			return c.instantiateConstVar(types.ConstVid(v.Index), bErr)
		}
		if c.aIsExpected {
			return aErr, nil
		}
		return bErr, nil
	}

	ai, aInfer := a.(types.ConstInfer)
	bi, bInfer := b.(types.ConstInfer)
	if (aInfer && ai.Kind != types.ConstVar) || (bInfer && bi.Kind != types.ConstVar) {
		bug.Panicf("relating fresh const %v with %v", a, b)
	}
	switch {
	case aInfer && bInfer:
		c.infcx.ConstVars().Union(types.ConstVid(ai.Index), types.ConstVid(bi.Index))
		return b, nil
	case aInfer:
		return c.instantiateConstVar(types.ConstVid(ai.Index), b)
	case bInfer:
		return c.instantiateConstVar(types.ConstVid(bi.Index), a)
	}

	au, aUneval := a.(types.ConstUnevaluated)
	bu, bUneval := b.(types.ConstUnevaluated)
	if (aUneval || bUneval) && !(aUneval && bUneval && au.Def == bu.Def) {
		if c.aIsExpected {
			c.register(types.ConstEquate{A: a, B: b})
		} else {
			c.register(types.ConstEquate{A: b, B: a})
		}
		return b, nil
	}
	return StructurallyRelateConsts(c, a, b)
}

// constTypesCompatible checks, without constraining anything, whether the types of two
// consts could still be equal
func (c *Combiner) constTypesCompatible(a, b types.Ty) bool {
	if ev := c.infcx.Evaluator; ev != nil {
		return ev.TypesMightBeEqual(c.env, a, b)
	}
	return infer.Probe(c.infcx, func(infer.Snapshot) bool {
		_, err := c.with(ModeEquate, true).Tys(a, b)
		return err == nil
	})
}

func (c *Combiner) instantiateConstVar(vid types.ConstVid, value types.Const) (types.Const, error) {
	g, err := generalize(c.infcx, c.env, value, termVid{konst: &vid}, types.Invariant)
	if err != nil {
		return nil, err
	}
	gen := g.value.(types.Const)
	c.infcx.ConstVars().UnionValue(vid, infer.ConstVariableValue{Known: gen})
	return gen, nil
}
