package solve

import (
	"fmt"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
	"github.com/pkg/errors"
)

type candidateSource uint8

const (
	sourceImpl candidateSource = iota
	sourceParamEnv
	sourceObject
	sourceBuiltin
	sourceAuto
)

func (c candidateSource) String() string {
	return [...]string{"impl", "where-clause", "object", "builtin", "auto"}[c]
}

// candidate is one way a goal could hold. confirm relates the goal with the candidate
// in the current snapshot and returns the goals that remain to be proven.
type candidate struct {
	source  candidateSource
	impl    types.DefId
	confirm func() ([]infer.Obligation, error)
}

func (c candidate) String() string {
	if c.source == sourceImpl {
		return fmt.Sprintf("impl %v", c.impl)
	}
	return c.source.String()
}

func yesCandidate(source candidateSource) candidate {
	return candidate{source: source, confirm: func() ([]infer.Obligation, error) { return nil, nil }}
}

func nestedCandidate(source candidateSource, nested ...infer.Obligation) candidate {
	return candidate{source: source, confirm: func() ([]infer.Obligation, error) { return nested, nil }}
}

type evaluated struct {
	candidate
	certainty Certainty
	// constrains is set when applying the candidate changed the inference variables of the goal
	constrains bool
}

func (s *Solver) confirm(c candidate) Certainty {
	nested, err := c.confirm()
	if err != nil {
		s.infcx.Logger.Debug("candidate rejected", "section", "solve.candidates", "candidate", c, "err", err)
		return No
	}
	return s.evaluateAll(nested)
}

// merge evaluates every candidate in a probe and decides the goal. A single applicable
// candidate is applied for real so its inference guidance is kept. Several applicable
// candidates only prove the goal when they all hold without constraining it.
func (s *Solver) merge(goal types.Predicate, cands []candidate) Certainty {
	before := types.Key(infer.ResolveVars(s.infcx, goal))
	var applicable []evaluated
	for _, c := range cands {
		e := infer.Probe(s.infcx, func(infer.Snapshot) evaluated {
			cert := s.confirm(c)
			after := types.Key(infer.ResolveVars(s.infcx, goal))
			return evaluated{candidate: c, certainty: cert, constrains: after != before}
		})
		if e.certainty.MayHold() {
			applicable = append(applicable, e)
		}
	}
	applicable = winnow(applicable)

	switch len(applicable) {
	case 0:
		return No
	case 1:
		return s.confirm(applicable[0].candidate)
	}
	for _, e := range applicable {
		if !e.certainty.IsYes() || e.constrains {
			s.infcx.Logger.Debug("ambiguous candidates", "section", "solve.candidates", "goal", goal, "count", len(applicable))
			return Maybe
		}
	}
	return Yes
}

// winnow drops candidates that another applicable candidate takes precedence over:
// where-clauses shadow impls and built-in rules.
func winnow(cands []evaluated) []evaluated {
	var params []evaluated
	for _, c := range cands {
		if c.source == sourceParamEnv {
			params = append(params, c)
		}
	}
	if len(params) > 0 {
		return params
	}
	return cands
}

func (s *Solver) evaluateTrait(o infer.Obligation, p types.TraitPredicate) Certainty {
	self := s.infcx.ShallowResolve(p.SelfTy())
	if _, ok := self.(types.Error); ok {
		return Yes
	}
	if types.IsTyVar(self) {
		return Maybe
	}
	if p.Polarity == types.Reservation {
		return No
	}
	if s.intercrate() {
		if conflict := s.knowable(p.TraitRef); conflict != NoConflict {
			if s.trackAmbiguity {
				s.noteNotKnowable(o, p, self, conflict)
			}
			return Maybe
		}
	}
	cands, ambiguous := s.assembleTraitCandidates(o, p, self)
	if ambiguous {
		return Maybe
	}
	return s.merge(p, cands)
}

func (s *Solver) knowable(ref types.TraitRef) ConflictKind {
	if s.cfg.Knowable == nil {
		return NoConflict
	}
	if s.infcx.Tcx.Trait(ref.Def).IsAlias {
		return NoConflict
	}
	return s.cfg.Knowable(s.infcx.Tcx, infer.ResolveVars(s.infcx, ref))
}

// noteNotKnowable records why a goal was ambiguous, but only when nothing in this crate
// could make it hold: otherwise the local candidates explain the overlap better.
func (s *Solver) noteNotKnowable(o infer.Obligation, p types.TraitPredicate, self types.Ty, conflict ConflictKind) {
	cands, ambiguous := s.assembleTraitCandidates(o, p, self)
	if ambiguous {
		return
	}
	for _, c := range cands {
		applies := infer.Probe(s.infcx, func(infer.Snapshot) bool { return s.confirm(c).MayHold() })
		if applies {
			return
		}
	}
	ref := infer.ResolveVars(s.infcx, p.TraitRef)
	if types.HasErrors(ref) {
		return
	}
	kind := CauseDownstreamCrate
	if conflict == Upstream {
		kind = CauseUpstreamCrateUpdate
	}
	s.recordCause(newCause(kind, ref))
}

func (s *Solver) assembleTraitCandidates(o infer.Obligation, p types.TraitPredicate, self types.Ty) ([]candidate, bool) {
	p = infer.ResolveVars(s.infcx, p)
	tcx := s.infcx.Tcx
	var cands []candidate
	if tcx.Trait(p.Def).IsAlias {
		cands = append(cands, s.traitAliasCandidate(o, p))
	}
	cands = append(cands, s.implCandidates(o, p)...)
	cands = append(cands, s.paramEnvCandidates(o, p)...)
	if p.Polarity == types.Negative {
		return cands, false
	}

	cands = append(cands, s.objectCandidates(o, p, self)...)
	builtin, ambiguous := s.builtinCandidates(o, p, self)
	if ambiguous {
		return nil, true
	}
	cands = append(cands, builtin...)
	auto, ambiguous := s.autoCandidates(o, p, self)
	if ambiguous {
		return nil, true
	}
	return append(cands, auto...), false
}

func (s *Solver) implCandidates(o infer.Obligation, p types.TraitPredicate) []candidate {
	tcx := s.infcx.Tcx
	var cands []candidate
	for _, def := range tcx.ImplsOf(p.Def) {
		impl := tcx.Impl(def)
		if impl.Polarity != p.Polarity && impl.Polarity != types.Reservation {
			continue
		}
		if !ArgsMayUnify(p.Args, impl.TraitRef.Args, ForLookup) {
			continue
		}
		cands = append(cands, candidate{
			source: sourceImpl,
			impl:   def,
			confirm: func() ([]infer.Obligation, error) {
				nested, _, err := s.matchImpl(o, p.TraitRef, def)
				if err != nil || impl.Polarity != types.Reservation {
					return nested, err
				}
				return s.reservation(o, def, nested)
			},
		})
	}
	return cands
}

// reservation impls never apply, but in coherence mode they keep their slot free
func (s *Solver) reservation(o infer.Obligation, def types.DefId, nested []infer.Obligation) ([]infer.Obligation, error) {
	if !s.intercrate() {
		return nil, errors.Errorf("%v is a reservation impl", def)
	}
	if s.trackAmbiguity {
		s.recordCause(IntercrateAmbiguityCause{Kind: CauseReservationImpl, TraitDesc: def.String()})
	}
	return append(nested, derivePred(o, types.AmbiguousPredicate{})), nil
}

// matchImpl instantiates impl def with fresh variables and equates its trait ref with
// goal, returning the impl's where-clauses as nested goals
func (s *Solver) matchImpl(o infer.Obligation, goal types.TraitRef, def types.DefId) ([]infer.Obligation, types.Args, error) {
	impl := s.infcx.Tcx.Impl(def)
	args := s.infcx.FreshArgsFor(impl.Generics)
	implRef := types.Instantiate(*impl.TraitRef, args)
	obligations, err := s.at(o).EqTraitRefs(goal, implRef)
	if err != nil {
		return nil, nil, err
	}
	nested := derive(o, obligations)
	for _, c := range impl.Predicates {
		nested = append(nested, o.Derive(types.Instantiate(c, args)))
	}
	return nested, args, nil
}

// elaborate returns the caller bounds of env together with the supertraits they imply
func (s *Solver) elaborate(env types.ParamEnv) []types.Clause {
	seen := map[string]bool{}
	var out []types.Clause
	add := func(c types.Clause) {
		if k := types.Key(c); !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	for _, c := range env.CallerBounds {
		p, ok := c.Value.(types.TraitPredicate)
		if !ok || p.Polarity != types.Positive || !s.infcx.Tcx.HasTrait(p.Def) {
			add(c)
			continue
		}
		for _, super := range s.infcx.Tcx.Supertraits(p.TraitRef) {
			var implied types.Predicate = types.TraitPredicate{TraitRef: super, Polarity: types.Positive}
			add(types.Rebind(c, implied))
		}
	}
	return out
}

func (s *Solver) paramEnvCandidates(o infer.Obligation, p types.TraitPredicate) []candidate {
	var cands []candidate
	for _, c := range s.elaborate(o.ParamEnv) {
		bound, ok := c.Value.(types.TraitPredicate)
		if !ok || bound.Def != p.Def || bound.Polarity != p.Polarity {
			continue
		}
		if !ArgsMayUnify(p.Args, bound.Args, ForLookup) {
			continue
		}
		poly := types.Rebind(c, bound.TraitRef)
		cands = append(cands, candidate{
			source: sourceParamEnv,
			confirm: func() ([]infer.Obligation, error) {
				ref := infer.InstantiateBinderWithFresh(s.infcx, poly)
				obligations, err := s.at(o).EqTraitRefs(p.TraitRef, ref)
				return derive(o, obligations), err
			},
		})
	}
	return cands
}

// objectCandidates prove a trait for a trait object that names it, directly or as a
// supertrait of its principal
func (s *Solver) objectCandidates(o infer.Obligation, p types.TraitPredicate, self types.Ty) []candidate {
	dyn, ok := self.(types.Dynamic)
	if !ok {
		return nil
	}
	var cands []candidate
	if principal, ok := dyn.Principal(); ok {
		for _, super := range s.infcx.Tcx.Supertraits(principal.Value.TraitRef(self)) {
			if super.Def != p.Def {
				continue
			}
			poly := types.Rebind(principal, super)
			cands = append(cands, candidate{
				source: sourceObject,
				confirm: func() ([]infer.Obligation, error) {
					ref := infer.InstantiateBinderWithFresh(s.infcx, poly)
					obligations, err := s.at(o).EqTraitRefs(p.TraitRef, ref)
					return derive(o, obligations), err
				},
			})
		}
	}
	for _, auto := range dyn.AutoTraits() {
		if auto == p.Def {
			cands = append(cands, yesCandidate(sourceObject))
		}
	}
	return cands
}

// autoCandidates apply the auto impl of an auto trait: the type implements it if all
// of its constituent types do. It is only a fallback when no impl mentions the type.
func (s *Solver) autoCandidates(o infer.Obligation, p types.TraitPredicate, self types.Ty) ([]candidate, bool) {
	tcx := s.infcx.Tcx
	if !tcx.Trait(p.Def).IsAuto {
		return nil, false
	}
	switch t := self.(type) {
	case types.Dynamic, types.Foreign, types.Param, types.PlaceholderTy, types.BoundTy:
		return nil, false
	case types.Alias:
		if t.Kind != types.Opaque {
			return nil, false
		}
	case types.Infer:
		return nil, true
	case types.Generator:
		if tcx.IsLangItem(p.Def, types.LangUnpin) {
			if t.Movability == types.Movable {
				return []candidate{yesCandidate(sourceBuiltin)}, false
			}
			return nil, false
		}
	}
	for _, def := range tcx.ImplsOf(p.Def) {
		if TypesMayUnify(self, tcx.Impl(def).SelfTy, ForLookup) {
			return nil, false
		}
	}
	tys, ok := s.constituentTypes(self)
	if !ok {
		return nil, false
	}
	return []candidate{nestedCandidate(sourceAuto, s.sameTraitFor(o, p.TraitRef, tys)...)}, false
}

// constituentTypes are the types an auto trait must hold for, for it to hold for t
func (s *Solver) constituentTypes(t types.Ty) (types.TyList, bool) {
	switch t := t.(type) {
	case types.Bool, types.Char, types.Int, types.Uint, types.Float, types.Str, types.Never,
		types.FnDef, types.FnPtr, types.Error:
		return nil, true
	case types.RawPtr:
		return types.TyList{t.Elem}, true
	case types.Ref:
		return types.TyList{t.Elem}, true
	case types.Slice:
		return types.TyList{t.Elem}, true
	case types.Array:
		return types.TyList{t.Elem}, true
	case types.Tuple:
		return t.Elems, true
	case types.Closure:
		return t.Upvars, true
	case types.Generator:
		tys := append(types.TyList{}, t.Upvars...)
		if t.Witness != nil {
			tys = append(tys, t.Witness)
		}
		return tys, true
	case types.GeneratorWitness:
		return infer.InstantiateBinderWithFresh(s.infcx, t.Tys), true
	case types.Adt:
		return types.Instantiate(s.infcx.Tcx.Adt(t.Def).AllFields(), t.Args), true
	case types.Alias:
		if o, ok := s.infcx.Tcx.Opaque(t.Def); ok && o.Hidden != nil && t.Kind == types.Opaque {
			return types.TyList{types.Instantiate(o.Hidden, t.Args)}, true
		}
	}
	return nil, false
}

// sameTraitFor asks for ref with each of tys as its self type
func (s *Solver) sameTraitFor(o infer.Obligation, ref types.TraitRef, tys types.TyList) []infer.Obligation {
	ret := make([]infer.Obligation, len(tys))
	for i, t := range tys {
		ret[i] = derivePred(o, types.TraitPredicate{TraitRef: ref.WithSelfTy(t)})
	}
	return ret
}

func (s *Solver) traitAliasCandidate(o infer.Obligation, p types.TraitPredicate) candidate {
	tr := s.infcx.Tcx.Trait(p.Def)
	nested := make([]infer.Obligation, len(tr.Supertraits))
	for i, c := range tr.Supertraits {
		nested[i] = o.Derive(types.Instantiate(c, p.Args))
	}
	return nestedCandidate(sourceBuiltin, nested...)
}
