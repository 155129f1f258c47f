package relate

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
)

// At relates terms in an inference session for one cause and environment. Every
// operation either succeeds, returning the obligations still to be proven, or fails
// leaving the session as it found it.
type At struct {
	Infcx *infer.InferCtxt
	Cause infer.ObligationCause
	Env   types.ParamEnv
	// RigidAliases treats aliases that are already normalized as rigid types
	RigidAliases bool
}

func NewAt(infcx *infer.InferCtxt, cause infer.ObligationCause, env types.ParamEnv) At {
	return At{Infcx: infcx, Cause: cause, Env: env}
}

func run[T any](at At, mode Mode, f func(*Combiner) (T, error)) (infer.InferOk[T], error) {
	return infer.CommitIf(at.Infcx, func(infer.Snapshot) (infer.InferOk[T], error) {
		c := newCombiner(at.Infcx, at.Cause, at.Env, mode, true)
		c.rigidAliases = at.RigidAliases
		v, err := f(c)
		if err != nil {
			at.Infcx.Logger.Debug("relate failed", "section", "relate", "mode", mode, "err", err)
			return infer.InferOk[T]{}, err
		}
		return infer.InferOk[T]{Value: v, Obligations: c.obligations}, nil
	})
}

// Eq makes expected and actual equal
func (at At) Eq(expected, actual types.Ty) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.Ty, error) { return c.Tys(expected, actual) })
	return ok.Obligations, err
}

// Sub makes a a subtype of b
func (at At) Sub(a, b types.Ty) ([]infer.Obligation, error) {
	ok, err := run(at, ModeSub, func(c *Combiner) (types.Ty, error) { return c.Tys(a, b) })
	return ok.Obligations, err
}

// Sup makes a a supertype of b
func (at At) Sup(a, b types.Ty) ([]infer.Obligation, error) {
	ok, err := run(at, ModeSub, func(c *Combiner) (types.Ty, error) {
		return c.with(ModeSub, false).Tys(b, a)
	})
	return ok.Obligations, err
}

func (at At) Lub(a, b types.Ty) (infer.InferOk[types.Ty], error) {
	return run(at, ModeLub, func(c *Combiner) (types.Ty, error) { return c.Tys(a, b) })
}

func (at At) Glb(a, b types.Ty) (infer.InferOk[types.Ty], error) {
	return run(at, ModeGlb, func(c *Combiner) (types.Ty, error) { return c.Tys(a, b) })
}

// Relate relates two generic arguments of the same kind under mode
func (at At) Relate(mode Mode, a, b types.GenericArg) (infer.InferOk[types.GenericArg], error) {
	return run(at, mode, func(c *Combiner) (types.GenericArg, error) { return RelateArgs(c, a, b) })
}

func (at At) EqArgs(a, b types.Args) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.Args, error) { return InvariantArgs(c, a, b) })
	return ok.Obligations, err
}

func (at At) EqConsts(a, b types.Const) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.Const, error) { return c.Consts(a, b) })
	return ok.Obligations, err
}

func (at At) EqRegions(a, b types.Region) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.Region, error) { return c.Regions(a, b) })
	return ok.Obligations, err
}

func (at At) EqTraitRefs(a, b types.TraitRef) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.TraitRef, error) { return TraitRefs(c, a, b) })
	return ok.Obligations, err
}

// EqPolyTraitRefs equates two possibly higher-ranked trait references
func (at At) EqPolyTraitRefs(a, b types.Binder[types.TraitRef]) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.Binder[types.TraitRef], error) {
		return Binders(c, a, b, TraitRefs)
	})
	return ok.Obligations, err
}

// SubPolyTraitRefs makes a at least as general as b
func (at At) SubPolyTraitRefs(a, b types.Binder[types.TraitRef]) ([]infer.Obligation, error) {
	ok, err := run(at, ModeSub, func(c *Combiner) (types.Binder[types.TraitRef], error) {
		return Binders(c, a, b, TraitRefs)
	})
	return ok.Obligations, err
}

func (at At) EqAliasTys(a, b types.AliasTy) ([]infer.Obligation, error) {
	ok, err := run(at, ModeEquate, func(c *Combiner) (types.AliasTy, error) { return AliasTys(c, a, b) })
	return ok.Obligations, err
}

// EqTerms equates a projection term with its expected value, which may be a type or a const
func (at At) EqTerms(a, b types.GenericArg) ([]infer.Obligation, error) {
	ok, err := at.Relate(ModeEquate, a, b)
	return ok.Obligations, err
}
