package solve

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
	"github.com/pkg/errors"
)

func (s *Solver) equateTerms(o infer.Obligation, a, b types.GenericArg) Certainty {
	at := s.at(o)
	at.RigidAliases = true
	obligations, err := at.EqTerms(a, b)
	if err != nil {
		return No
	}
	return s.evaluateAll(derive(o, obligations))
}

// evaluateProjection proves <T as Trait>::Item == Term by finding the candidate that
// defines the item. Opaque types only normalize to their hidden type when revealed.
func (s *Solver) evaluateProjection(o infer.Obligation, p types.ProjectionPredicate) Certainty {
	tcx := s.infcx.Tcx
	alias := types.Alias{AliasTy: p.Alias}
	switch p.Alias.Kind {
	case types.Opaque:
		if op, ok := tcx.Opaque(p.Alias.Def); ok && op.Hidden != nil && o.ParamEnv.Reveal == types.RevealAll {
			return s.equateTerms(o, p.Term, types.Instantiate(op.Hidden, p.Alias.Args))
		}
		return s.equateTerms(o, p.Term, alias)
	case types.Projection:
	default:
		return s.equateTerms(o, p.Term, alias)
	}

	item, ok := tcx.AssocItem(p.Alias.Def)
	if !ok {
		s.infcx.Logger.Debug("unknown associated item", "section", "solve.projection", "item", p.Alias.Def)
		return No
	}
	ref := p.TraitRef(item.Trait, tcx.Trait(item.Trait).Generics.Count())
	self := s.infcx.ShallowResolve(ref.SelfTy())
	if _, ok := self.(types.Error); ok {
		return Yes
	}
	if types.IsTyVar(self) {
		return Maybe
	}
	if s.intercrate() {
		if conflict := s.knowable(ref); conflict != NoConflict {
			return Maybe
		}
	}

	var cands []candidate
	cands = append(cands, s.projectionParamEnvCandidates(o, p, ref)...)
	cands = append(cands, s.projectionObjectCandidates(o, p, self)...)
	cands = append(cands, s.projectionImplCandidates(o, p, ref)...)
	builtin, ambiguous := s.projectionBuiltinCandidates(o, p, ref, self)
	if ambiguous {
		return Maybe
	}
	cands = append(cands, builtin...)
	return s.merge(p, cands)
}

// projectionParamEnvCandidates use projection bounds in scope. A trait bound without a
// projection bound leaves the projection rigid.
func (s *Solver) projectionParamEnvCandidates(o infer.Obligation, p types.ProjectionPredicate, ref types.TraitRef) []candidate {
	var cands []candidate
	bounds := s.elaborate(o.ParamEnv)
	for _, c := range bounds {
		bound, ok := c.Value.(types.ProjectionPredicate)
		if !ok || bound.Alias.Def != p.Alias.Def || !ArgsMayUnify(p.Alias.Args, bound.Alias.Args, ForLookup) {
			continue
		}
		poly := types.Rebind(c, bound)
		cands = append(cands, candidate{
			source: sourceParamEnv,
			confirm: func() ([]infer.Obligation, error) {
				inst := infer.InstantiateBinderWithFresh(s.infcx, poly)
				return s.equateProjection(o, p, inst)
			},
		})
	}
	if len(cands) > 0 {
		return cands
	}
	for _, c := range bounds {
		bound, ok := c.Value.(types.TraitPredicate)
		if !ok || bound.Def != ref.Def || bound.Polarity != types.Positive || !ArgsMayUnify(ref.Args, bound.Args, ForLookup) {
			continue
		}
		poly := types.Rebind(c, bound.TraitRef)
		cands = append(cands, candidate{
			source: sourceParamEnv,
			confirm: func() ([]infer.Obligation, error) {
				inst := infer.InstantiateBinderWithFresh(s.infcx, poly)
				at := s.at(o)
				at.RigidAliases = true
				obligations, err := at.EqTraitRefs(ref, inst)
				if err != nil {
					return nil, err
				}
				termObligations, err := at.EqTerms(p.Term, types.Alias{AliasTy: p.Alias})
				return derive(o, append(obligations, termObligations...)), err
			},
		})
	}
	return cands
}

// equateProjection equates the alias and term of goal with those of a known projection
func (s *Solver) equateProjection(o infer.Obligation, goal, known types.ProjectionPredicate) ([]infer.Obligation, error) {
	at := s.at(o)
	obligations, err := at.EqAliasTys(goal.Alias, known.Alias)
	if err != nil {
		return nil, err
	}
	termObligations, err := at.EqTerms(goal.Term, known.Term)
	if err != nil {
		return nil, err
	}
	return derive(o, append(obligations, termObligations...)), nil
}

func (s *Solver) projectionObjectCandidates(o infer.Obligation, p types.ProjectionPredicate, self types.Ty) []candidate {
	dyn, ok := self.(types.Dynamic)
	if !ok {
		return nil
	}
	var cands []candidate
	for _, pred := range dyn.Preds {
		proj, ok := pred.Value.(types.ExistentialProjection)
		if !ok || proj.Def != p.Alias.Def {
			continue
		}
		known, _ := proj.WithSelfTy(self).(types.ProjectionPredicate)
		poly := types.Rebind(pred, known)
		cands = append(cands, candidate{
			source: sourceObject,
			confirm: func() ([]infer.Obligation, error) {
				return s.equateProjection(o, p, infer.InstantiateBinderWithFresh(s.infcx, poly))
			},
		})
	}
	return cands
}

func (s *Solver) projectionImplCandidates(o infer.Obligation, p types.ProjectionPredicate, ref types.TraitRef) []candidate {
	tcx := s.infcx.Tcx
	var cands []candidate
	for _, def := range tcx.ImplsOf(ref.Def) {
		impl := tcx.Impl(def)
		if impl.Polarity != types.Positive || !ArgsMayUnify(ref.Args, impl.TraitRef.Args, ForLookup) {
			continue
		}
		cands = append(cands, candidate{
			source: sourceImpl,
			impl:   def,
			confirm: func() ([]infer.Obligation, error) {
				nested, args, err := s.matchImpl(o, ref, def)
				if err != nil {
					return nil, err
				}
				value, ok := impl.AssocTypes[p.Alias.Def]
				if !ok {
					return nil, errors.Errorf("%v does not define %v", def, p.Alias.Def)
				}
				obligations, err := s.at(o).EqTerms(p.Term, types.Instantiate(value, args))
				if err != nil {
					return nil, err
				}
				return append(nested, derive(o, obligations)...), nil
			},
		})
	}
	return cands
}

// projectionBuiltinCandidates normalize FnOnce::Output and Future::Output
func (s *Solver) projectionBuiltinCandidates(o infer.Obligation, p types.ProjectionPredicate, ref types.TraitRef, self types.Ty) ([]candidate, bool) {
	tcx := s.infcx.Tcx
	switch {
	case tcx.IsLangItem(p.Alias.Def, types.LangFnOnceOutput):
		sig, ok, ambiguous := s.callable(self, types.ClosureKindFnOnce)
		if !ok {
			return nil, ambiguous
		}
		return []candidate{{
			source: sourceBuiltin,
			confirm: func() ([]infer.Obligation, error) {
				inst := infer.InstantiateBinderWithFresh(s.infcx, sig)
				nested, err := s.equateFnArgs(o, ref.Args, inst)
				if err != nil {
					return nil, err
				}
				obligations, err := s.at(o).EqTerms(p.Term, outputOf(inst))
				return append(nested, derive(o, obligations)...), err
			},
		}}, false
	case tcx.IsLangItem(p.Alias.Def, types.LangFutureOutput):
		gen, ok := s.generator(self)
		if !ok || !gen.async || gen.ty.Sig.Return == nil {
			return nil, false
		}
		return []candidate{{
			source: sourceBuiltin,
			confirm: func() ([]infer.Obligation, error) {
				obligations, err := s.at(o).EqTerms(p.Term, gen.ty.Sig.Return)
				return derive(o, obligations), err
			},
		}}, false
	}
	return nil, false
}

// evaluateAliasRelate normalizes both sides and relates the results structurally.
// An alias that cannot be normalized stays rigid.
func (s *Solver) evaluateAliasRelate(o infer.Obligation, p types.AliasRelate) Certainty {
	a, ca := s.normalizeTerm(o, p.A)
	if ca.IsNo() {
		return No
	}
	b, cb := s.normalizeTerm(o, p.B)
	if cb.IsNo() {
		return No
	}
	at := s.at(o)
	at.RigidAliases = true
	var obligations []infer.Obligation
	var err error
	ta, aIsTy := a.(types.Ty)
	tb, bIsTy := b.(types.Ty)
	if p.Dir == types.AliasSubtype && aIsTy && bIsTy {
		obligations, err = at.Sub(ta, tb)
	} else {
		obligations, err = at.EqTerms(a, b)
	}
	if err != nil {
		return No
	}
	return ca.And(cb).And(s.evaluateAll(derive(o, obligations)))
}

func (s *Solver) normalizeTerm(o infer.Obligation, term types.GenericArg) (types.GenericArg, Certainty) {
	switch t := term.(type) {
	case types.Ty:
		t = s.infcx.ShallowResolve(t)
		if alias, ok := t.(types.Alias); ok {
			return s.normalizeAlias(o, alias)
		}
		return t, Yes
	case types.Const:
		return s.evalConst(t), Yes
	}
	return term, Yes
}

func (s *Solver) normalizeAlias(o infer.Obligation, alias types.Alias) (types.Ty, Certainty) {
	switch alias.Kind {
	case types.Opaque:
		if op, ok := s.infcx.Tcx.Opaque(alias.Def); ok && op.Hidden != nil && o.ParamEnv.Reveal == types.RevealAll {
			return types.Instantiate(op.Hidden, alias.Args), Yes
		}
		return alias, Yes
	case types.Projection:
		fresh := s.infcx.NewTyVar(infer.TypeVariableOrigin{Kind: "normalize"})
		c := s.evaluateObligation(derivePred(o, types.ProjectionPredicate{Alias: alias.AliasTy, Term: fresh}))
		if c.IsNo() {
			return alias, Yes
		}
		return infer.ResolveVars(s.infcx, fresh), c
	}
	return alias, Yes
}
