package solve

import (
	"slices"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
)

func (s *Solver) evaluateSubtype(o infer.Obligation, p types.SubtypePredicate) Certainty {
	a := s.infcx.ShallowResolve(p.A)
	b := s.infcx.ShallowResolve(p.B)
	if types.IsTyVar(a) && types.IsTyVar(b) {
		return Maybe
	}
	obligations, err := s.at(o).Sub(a, b)
	if err != nil {
		return No
	}
	return s.evaluateAll(derive(o, obligations))
}

func (s *Solver) evaluateWellFormed(o infer.Obligation, p types.WellFormed) Certainty {
	switch arg := p.Arg.(type) {
	case types.Region:
		return Yes
	case types.Const:
		if _, ok := types.ConstVidOf(s.infcx.ShallowResolveConst(arg)); ok {
			return Maybe
		}
		return Yes
	case types.Ty:
		obligations, c := s.wfObligations(o, s.infcx.ShallowResolve(arg))
		if !c.IsYes() {
			return c
		}
		return s.evaluateAll(obligations)
	}
	return Yes
}

// wfObligations lists what must hold for t to be well-formed, one level deep
func (s *Solver) wfObligations(o infer.Obligation, t types.Ty) ([]infer.Obligation, Certainty) {
	tcx := s.infcx.Tcx
	var out []infer.Obligation
	wf := func(args ...types.GenericArg) {
		for _, a := range args {
			if _, ok := a.(types.Region); ok {
				continue
			}
			out = append(out, derivePred(o, types.WellFormed{Arg: a}))
		}
	}
	switch t := t.(type) {
	case types.Infer:
		if t.Kind == types.TyVar {
			return nil, Maybe
		}
	case types.Slice:
		out = append(out, s.sizedGoals(o, t.Elem)...)
		wf(t.Elem)
	case types.Array:
		out = append(out, s.sizedGoals(o, t.Elem)...)
		wf(t.Elem, t.Len)
	case types.Tuple:
		if len(t.Elems) > 0 {
			out = append(out, s.sizedGoals(o, t.Elems[:len(t.Elems)-1]...)...)
		}
		for _, e := range t.Elems {
			wf(e)
		}
	case types.RawPtr:
		wf(t.Elem)
	case types.Ref:
		wf(t.Elem)
		out = append(out, derivePred(o, types.TypeOutlives{Ty: t.Elem, Region: t.Region}))
	case types.Adt:
		wf(t.Args...)
		for _, c := range tcx.Adt(t.Def).Predicates {
			out = append(out, o.Derive(types.Instantiate(c, t.Args)))
		}
	case types.FnDef:
		wf(t.Args...)
	case types.FnPtr:
		sig := t.Sig.SkipBinder()
		for _, in := range append(slices.Clone(sig.Inputs), outputOf(sig)) {
			if !types.HasEscapingBoundVars(in) {
				wf(in)
			}
		}
	case types.Closure:
		for _, u := range t.Upvars {
			wf(u)
		}
	case types.Generator:
		for _, u := range t.Upvars {
			wf(u)
		}
	case types.Dynamic:
		if principal, ok := t.Principal(); ok {
			if !tcx.Trait(principal.Value.Def).ObjectSafe {
				return nil, No
			}
			for _, a := range principal.Value.Args {
				if !types.HasEscapingBoundVars(a) {
					wf(a)
				}
			}
		}
	case types.Alias:
		if t.Kind == types.Projection {
			if item, ok := tcx.AssocItem(t.Def); ok {
				ref := types.ProjectionPredicate{Alias: t.AliasTy}.TraitRef(item.Trait, tcx.Trait(item.Trait).Generics.Count())
				out = append(out, derivePred(o, types.TraitPredicate{TraitRef: ref}))
			}
		}
		wf(t.Args...)
	}
	return out, Yes
}

// evalConst evaluates c if it is an unevaluated const whose value is known
func (s *Solver) evalConst(c types.Const) types.Const {
	c = s.infcx.ShallowResolveConst(c)
	u, ok := infer.ResolveVars(s.infcx, c).(types.ConstUnevaluated)
	if !ok {
		return c
	}
	if v, ok := s.infcx.Tcx.EvalConst(u); ok {
		return v
	}
	return u
}

func (s *Solver) evaluateConstEquate(o infer.Obligation, p types.ConstEquate) Certainty {
	a := s.evalConst(p.A)
	b := s.evalConst(p.B)
	_, aUneval := a.(types.ConstUnevaluated)
	_, bUneval := b.(types.ConstUnevaluated)
	if aUneval || bUneval {
		if types.Key(infer.ResolveVars(s.infcx, a)) == types.Key(infer.ResolveVars(s.infcx, b)) {
			return Yes
		}
		return Maybe
	}
	obligations, err := s.at(o).EqConsts(a, b)
	if err != nil {
		return No
	}
	return s.evaluateAll(derive(o, obligations))
}
