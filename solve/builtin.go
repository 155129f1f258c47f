package solve

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
)

// builtinCandidates are the rules the compiler provides for lang item traits. The
// second result is set when the rule cannot be decided until self is better known.
func (s *Solver) builtinCandidates(o infer.Obligation, p types.TraitPredicate, self types.Ty) ([]candidate, bool) {
	tcx := s.infcx.Tcx
	item, ok := tcx.LangItemOf(p.Def)
	if !ok {
		return nil, false
	}
	switch item {
	case types.LangSized:
		return s.sizedCandidate(o, p, self)
	case types.LangCopy, types.LangClone:
		return s.copyCloneCandidate(o, p, self)
	case types.LangFn, types.LangFnMut, types.LangFnOnce:
		return s.fnCandidate(o, p, self, closureKindOf(item))
	case types.LangTuple:
		if _, ok := self.(types.Tuple); ok {
			return []candidate{yesCandidate(sourceBuiltin)}, false
		}
	case types.LangPointee, types.LangDiscriminantKind, types.LangDestruct:
		return []candidate{yesCandidate(sourceBuiltin)}, false
	case types.LangFnPtrTrait:
		if _, ok := self.(types.FnPtr); ok {
			return []candidate{yesCandidate(sourceBuiltin)}, false
		}
	case types.LangPointerLike:
		ok, known := tcx.Layout.IsPointerLike(infer.ResolveVars(s.infcx, self))
		return layoutCandidate(ok, known)
	case types.LangTransmute:
		if len(p.Args) < 2 {
			return nil, false
		}
		src := infer.ResolveVars(s.infcx, p.Args.TypeAt(1))
		ok, known := tcx.Layout.IsTransmutable(infer.ResolveVars(s.infcx, self), src)
		return layoutCandidate(ok, known)
	case types.LangFuture:
		if gen, ok := s.generator(self); ok && gen.async {
			return []candidate{yesCandidate(sourceBuiltin)}, false
		}
	case types.LangGenerator:
		if gen, ok := s.generator(self); ok && !gen.async {
			return []candidate{s.generatorCandidate(o, p, gen.ty)}, false
		}
	case types.LangUnsize:
		return s.unsizeCandidates(o, p, self)
	}
	return nil, false
}

func closureKindOf(item types.LangItem) types.ClosureKind {
	switch item {
	case types.LangFn:
		return types.ClosureKindFn
	case types.LangFnMut:
		return types.ClosureKindFnMut
	}
	return types.ClosureKindFnOnce
}

func layoutCandidate(ok, known bool) ([]candidate, bool) {
	switch {
	case !known:
		return nil, true
	case ok:
		return []candidate{yesCandidate(sourceBuiltin)}, false
	}
	return nil, false
}

func (s *Solver) langTrait(item types.LangItem, self types.Ty) (types.TraitRef, bool) {
	def, ok := s.infcx.Tcx.LangItem(item)
	if !ok {
		return types.TraitRef{}, false
	}
	return types.NewTraitRef(def, self), true
}

func (s *Solver) sizedGoals(o infer.Obligation, tys ...types.Ty) []infer.Obligation {
	var out []infer.Obligation
	for _, t := range tys {
		if ref, ok := s.langTrait(types.LangSized, t); ok {
			out = append(out, derivePred(o, types.TraitPredicate{TraitRef: ref}))
		}
	}
	return out
}

func (s *Solver) sizedCandidate(o infer.Obligation, p types.TraitPredicate, self types.Ty) ([]candidate, bool) {
	switch t := self.(type) {
	case types.Bool, types.Char, types.Int, types.Uint, types.Float, types.Never, types.Error,
		types.FnDef, types.FnPtr, types.RawPtr, types.Ref, types.Array,
		types.Closure, types.Generator, types.GeneratorWitness:
		return []candidate{yesCandidate(sourceBuiltin)}, false
	case types.Infer:
		// integer and float variables are always sized
		return []candidate{yesCandidate(sourceBuiltin)}, false
	case types.Tuple:
		if len(t.Elems) == 0 {
			return []candidate{yesCandidate(sourceBuiltin)}, false
		}
		return []candidate{nestedCandidate(sourceBuiltin, s.sameTraitFor(o, p.TraitRef, t.Elems[len(t.Elems)-1:])...)}, false
	case types.Adt:
		constraint := types.Instantiate(s.infcx.Tcx.Adt(t.Def).SizedConstraint(), t.Args)
		return []candidate{nestedCandidate(sourceBuiltin, s.sameTraitFor(o, p.TraitRef, constraint)...)}, false
	}
	// str, slices, trait objects and foreign types are unsized; parameters, placeholders
	// and aliases rely on where-clauses
	return nil, false
}

func (s *Solver) copyCloneCandidate(o infer.Obligation, p types.TraitPredicate, self types.Ty) ([]candidate, bool) {
	switch t := self.(type) {
	case types.Bool, types.Char, types.Int, types.Uint, types.Float, types.Never, types.Error,
		types.FnDef, types.FnPtr, types.RawPtr, types.Infer:
		return []candidate{yesCandidate(sourceBuiltin)}, false
	case types.Ref:
		if t.Mut == types.Not {
			return []candidate{yesCandidate(sourceBuiltin)}, false
		}
	case types.Array:
		return []candidate{nestedCandidate(sourceBuiltin, s.sameTraitFor(o, p.TraitRef, types.TyList{t.Elem})...)}, false
	case types.Tuple:
		return []candidate{nestedCandidate(sourceBuiltin, s.sameTraitFor(o, p.TraitRef, t.Elems)...)}, false
	case types.Closure:
		for _, u := range t.Upvars {
			if types.IsTyVar(s.infcx.ShallowResolve(u)) {
				return nil, true
			}
		}
		return []candidate{nestedCandidate(sourceBuiltin, s.sameTraitFor(o, p.TraitRef, t.Upvars)...)}, false
	}
	// ADTs, aliases and parameters use impls and where-clauses
	return nil, false
}

// callable returns the signature of a type that the Fn traits are built in for
func (s *Solver) callable(self types.Ty, kind types.ClosureKind) (sig types.Binder[types.FnSig], ok, ambiguous bool) {
	switch t := self.(type) {
	case types.FnPtr:
		sig = t.Sig
	case types.FnDef:
		generic, found := s.infcx.Tcx.FnSig(t.Def)
		if !found {
			return sig, false, false
		}
		sig = types.Instantiate(generic, t.Args)
	case types.Closure:
		if t.Kind == types.ClosureKindUnknown {
			return sig, false, true
		}
		if !t.Kind.Extends(kind) {
			return sig, false, false
		}
		return t.Sig, true, false
	default:
		return sig, false, false
	}
	v := sig.SkipBinder()
	if v.Unsafety != types.Normal || normAbi(v.Abi) != types.AbiRust || v.CVariadic {
		return sig, false, false
	}
	return sig, true, false
}

func (s *Solver) fnCandidate(o infer.Obligation, p types.TraitPredicate, self types.Ty, kind types.ClosureKind) ([]candidate, bool) {
	sig, ok, ambiguous := s.callable(self, kind)
	if !ok {
		return nil, ambiguous
	}
	return []candidate{{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			inst := infer.InstantiateBinderWithFresh(s.infcx, sig)
			nested, err := s.equateFnArgs(o, p.Args, inst)
			if err != nil {
				return nil, err
			}
			return append(nested, s.sizedGoals(o, outputOf(inst))...), nil
		},
	}}, false
}

// equateFnArgs equates the tupled arguments of an Fn trait ref with sig's inputs
func (s *Solver) equateFnArgs(o infer.Obligation, args types.Args, sig types.FnSig) ([]infer.Obligation, error) {
	if len(args) < 2 {
		return nil, nil
	}
	obligations, err := s.at(o).Eq(args.TypeAt(1), types.Tuple{Elems: sig.Inputs})
	return derive(o, obligations), err
}

type generatorInfo struct {
	ty    types.Generator
	async bool
}

func (s *Solver) generator(self types.Ty) (generatorInfo, bool) {
	g, ok := self.(types.Generator)
	if !ok {
		return generatorInfo{}, false
	}
	def, ok := s.infcx.Tcx.Generator(g.Def)
	return generatorInfo{ty: g, async: ok && def.Async}, true
}

func (s *Solver) generatorCandidate(o infer.Obligation, p types.TraitPredicate, g types.Generator) candidate {
	return candidate{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			if len(p.Args) < 2 || g.Sig.Resume == nil {
				return nil, nil
			}
			obligations, err := s.at(o).Eq(p.Args.TypeAt(1), g.Sig.Resume)
			return derive(o, obligations), err
		},
	}
}
