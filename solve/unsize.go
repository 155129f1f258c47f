package solve

import (
	"slices"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
	"github.com/pkg/errors"
)

var errNotObjectSafe = errors.New("trait is not object safe")

// unsizeCandidates implement Unsize<Target> for Self: trait object upcasting and
// dropping of auto traits, T to dyn Trait, arrays to slices, and unsizing the tail of
// structs and tuples
func (s *Solver) unsizeCandidates(o infer.Obligation, p types.TraitPredicate, source types.Ty) ([]candidate, bool) {
	if len(p.Args) < 2 {
		return nil, false
	}
	target := s.infcx.ShallowResolve(p.Args.TypeAt(1))
	if types.IsTyVar(source) || types.IsTyVar(target) {
		return nil, true
	}

	switch b := target.(type) {
	case types.Dynamic:
		if a, ok := source.(types.Dynamic); ok {
			return s.dynToDyn(o, a, b), false
		}
		return []candidate{s.toDyn(o, source, b)}, false
	case types.Slice:
		if a, ok := source.(types.Array); ok {
			return []candidate{{
				source: sourceBuiltin,
				confirm: func() ([]infer.Obligation, error) {
					obligations, err := s.at(o).Eq(b.Elem, a.Elem)
					return derive(o, obligations), err
				},
			}}, false
		}
	case types.Adt:
		if a, ok := source.(types.Adt); ok && a.Def == b.Def {
			if c, ok := s.structUnsize(o, p, a, b); ok {
				return []candidate{c}, false
			}
		}
	case types.Tuple:
		if a, ok := source.(types.Tuple); ok && len(a.Elems) == len(b.Elems) && len(a.Elems) > 0 {
			return []candidate{s.tupleUnsize(o, p, a, b)}, false
		}
	}
	return nil, false
}

func autoTraitsSubset(sub, of []types.DefId) bool {
	for _, d := range sub {
		if !slices.Contains(of, d) {
			return false
		}
	}
	return true
}

// dynToDyn allows dropping auto traits and shortening the lifetime of an object, and
// upcasting it to one of the supertraits of its principal
func (s *Solver) dynToDyn(o infer.Obligation, a, b types.Dynamic) []candidate {
	if !autoTraitsSubset(b.AutoTraits(), a.AutoTraits()) {
		return nil
	}
	aPrincipal, aHas := a.Principal()
	bPrincipal, bHas := b.Principal()

	if aHas == bHas && (!aHas || aPrincipal.Value.Def == bPrincipal.Value.Def) {
		var preds []types.Binder[types.ExistentialPredicate]
		for _, pred := range a.Preds {
			if _, auto := pred.Value.(types.ExistentialAutoTrait); !auto {
				preds = append(preds, pred)
			}
		}
		return []candidate{s.dynCandidate(o, a, b, preds)}
	}
	if !aHas || !bHas {
		return nil
	}

	var cands []candidate
	self := types.Dynamic{Preds: a.Preds, Region: a.Region}
	for _, super := range s.infcx.Tcx.Supertraits(aPrincipal.Value.TraitRef(self)) {
		if super.Def != bPrincipal.Value.Def {
			continue
		}
		var upcast types.ExistentialPredicate = types.ExistentialTrait{Def: super.Def, Args: super.Args[1:]}
		preds := []types.Binder[types.ExistentialPredicate]{types.Rebind(aPrincipal, upcast)}
		for _, pred := range a.Preds {
			if proj, ok := pred.Value.(types.ExistentialProjection); ok && s.projectsFrom(proj.Def, super.Def) {
				preds = append(preds, pred)
			}
		}
		cands = append(cands, s.dynCandidate(o, a, b, preds))
	}
	return cands
}

func (s *Solver) projectsFrom(item, trait types.DefId) bool {
	assoc, ok := s.infcx.Tcx.AssocItem(item)
	return ok && assoc.Trait == trait
}

// dynCandidate equates target with an object made of preds plus target's auto traits,
// requiring the source region to outlive target's
func (s *Solver) dynCandidate(o infer.Obligation, from, target types.Dynamic, preds []types.Binder[types.ExistentialPredicate]) candidate {
	return candidate{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			merged := slices.Clone(preds)
			for _, pred := range target.Preds {
				if _, auto := pred.Value.(types.ExistentialAutoTrait); auto {
					merged = append(merged, pred)
				}
			}
			source := types.Dynamic{Preds: types.SortExistentials(merged), Region: target.Region}
			obligations, err := s.at(o).Sup(target, source)
			if err != nil {
				return nil, err
			}
			nested := derive(o, obligations)
			return append(nested, derivePred(o, types.RegionOutlives{A: from.Region, B: target.Region})), nil
		},
	}
}

// toDyn unsizes a sized type into an object of a trait it implements
func (s *Solver) toDyn(o infer.Obligation, source types.Ty, b types.Dynamic) candidate {
	return candidate{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			if principal, ok := b.Principal(); ok {
				if !s.infcx.Tcx.Trait(principal.Value.Def).ObjectSafe {
					return nil, errors.Wrapf(errNotObjectSafe, "%v", principal.Value.Def)
				}
			}
			var nested []infer.Obligation
			for _, pred := range b.Preds {
				nested = append(nested, o.Derive(types.Rebind(pred, pred.Value.WithSelfTy(source))))
			}
			nested = append(nested, s.sizedGoals(o, source)...)
			return append(nested, derivePred(o, types.TypeOutlives{Ty: source, Region: b.Region})), nil
		},
	}
}

// unsizingParams are the type parameters of a struct that only its tail mentions
func unsizingParams(adt *types.AdtDef) ([]int, bool) {
	tail, ok := adt.StructTail()
	if !ok {
		return nil, false
	}
	fields := adt.Variants[0].Fields
	inTail := paramIndices(tail)
	var ret []int
	for _, i := range inTail {
		elsewhere := false
		for _, f := range fields[:len(fields)-1] {
			if slices.Contains(paramIndices(f), i) {
				elsewhere = true
				break
			}
		}
		if !elsewhere {
			ret = append(ret, i)
		}
	}
	slices.Sort(ret)
	return ret, len(ret) > 0
}

func paramIndices(t types.Ty) []int {
	var ret []int
	types.Walk(t, func(arg types.GenericArg) bool {
		if p, ok := arg.(types.Param); ok && !slices.Contains(ret, int(p.Index)) {
			ret = append(ret, int(p.Index))
		}
		return true
	})
	return ret
}

// structUnsize implements Foo<.., T, ..>: Unsize<Foo<.., U, ..>> when the struct tail
// unsizes and T only appears in the tail
func (s *Solver) structUnsize(o infer.Obligation, p types.TraitPredicate, a, b types.Adt) (candidate, bool) {
	adt := s.infcx.Tcx.Adt(a.Def)
	params, ok := unsizingParams(adt)
	if !ok || len(a.Args) != len(b.Args) {
		return candidate{}, false
	}
	tail, _ := adt.StructTail()
	return candidate{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			args := slices.Clone(a.Args)
			for _, i := range params {
				if i < len(args) {
					args[i] = b.Args[i]
				}
			}
			obligations, err := s.at(o).Eq(b, types.Adt{Def: a.Def, Args: args})
			if err != nil {
				return nil, err
			}
			nested := derive(o, obligations)
			ref := p.TraitRef.WithSelfTy(types.Instantiate(tail, a.Args))
			ref.Args[1] = types.Instantiate(tail, args)
			return append(nested, derivePred(o, types.TraitPredicate{TraitRef: ref})), nil
		},
	}, true
}

// tupleUnsize implements (.., T): Unsize<(.., U)> when T: Unsize<U>
func (s *Solver) tupleUnsize(o infer.Obligation, p types.TraitPredicate, a, b types.Tuple) candidate {
	return candidate{
		source: sourceBuiltin,
		confirm: func() ([]infer.Obligation, error) {
			last := len(a.Elems) - 1
			elems := append(slices.Clone(a.Elems[:last]), b.Elems[last])
			obligations, err := s.at(o).Eq(b, types.Tuple{Elems: elems})
			if err != nil {
				return nil, err
			}
			nested := derive(o, obligations)
			ref := p.TraitRef.WithSelfTy(a.Elems[last])
			ref.Args[1] = b.Elems[last]
			return append(nested, derivePred(o, types.TraitPredicate{TraitRef: ref})), nil
		},
	}
}
