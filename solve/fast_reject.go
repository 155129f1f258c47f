package solve

import "github.com/cottand/tyrel/types"

// TreatParams says how generic parameters on the goal side of a fast reject behave
type TreatParams uint8

const (
	// ForLookup treats goal parameters as rigid: only an impl parameter matches them
	ForLookup TreatParams = iota
	// AsCandidateKey lets goal parameters stand for anything, as when comparing two impls
	AsCandidateKey
)

// ArgsMayUnify is a cheap test of whether goal args could unify with impl args. It
// never reports false for args that do unify.
func ArgsMayUnify(goal, impl types.Args, treat TreatParams) bool {
	if len(goal) != len(impl) {
		return false
	}
	for i := range goal {
		if !argMayUnify(goal[i], impl[i], treat) {
			return false
		}
	}
	return true
}

func argMayUnify(goal, impl types.GenericArg, treat TreatParams) bool {
	switch g := goal.(type) {
	case types.Ty:
		i, ok := impl.(types.Ty)
		return ok && TypesMayUnify(g, i, treat)
	case types.Const:
		i, ok := impl.(types.Const)
		return ok && constsMayUnify(g, i, treat)
	}
	// lifetimes never prevent an impl from applying
	return true
}

// TypesMayUnify is ArgsMayUnify for a single pair of types
func TypesMayUnify(goal, impl types.Ty, treat TreatParams) bool {
	switch impl.(type) {
	case types.Param, types.Error, types.Alias, types.Infer, types.PlaceholderTy, types.BoundTy:
		return true
	}

	switch g := goal.(type) {
	case types.Bool, types.Char, types.Int, types.Uint, types.Float, types.Str, types.Never, types.Foreign:
		return types.Equal[types.Ty](goal, impl)
	case types.Ref:
		i, ok := impl.(types.Ref)
		return ok && g.Mut == i.Mut && TypesMayUnify(g.Elem, i.Elem, treat)
	case types.RawPtr:
		i, ok := impl.(types.RawPtr)
		return ok && g.Mut == i.Mut && TypesMayUnify(g.Elem, i.Elem, treat)
	case types.Adt:
		i, ok := impl.(types.Adt)
		return ok && g.Def == i.Def && ArgsMayUnify(g.Args, i.Args, treat)
	case types.Slice:
		i, ok := impl.(types.Slice)
		return ok && TypesMayUnify(g.Elem, i.Elem, treat)
	case types.Array:
		i, ok := impl.(types.Array)
		return ok && TypesMayUnify(g.Elem, i.Elem, treat) && constsMayUnify(g.Len, i.Len, treat)
	case types.Tuple:
		i, ok := impl.(types.Tuple)
		if !ok || len(g.Elems) != len(i.Elems) {
			return false
		}
		for n := range g.Elems {
			if !TypesMayUnify(g.Elems[n], i.Elems[n], treat) {
				return false
			}
		}
		return true
	case types.Dynamic:
		// the existential lists are sorted and deduplicated when related, so only the
		// principal can be compared here
		i, ok := impl.(types.Dynamic)
		if !ok {
			return false
		}
		gp, gok := g.Principal()
		ip, iok := i.Principal()
		return gok == iok && (!gok || gp.Value.Def == ip.Value.Def)
	case types.FnPtr:
		i, ok := impl.(types.FnPtr)
		if !ok {
			return false
		}
		gs, is := g.Sig.SkipBinder(), i.Sig.SkipBinder()
		if gs.CVariadic != is.CVariadic || gs.Unsafety != is.Unsafety || normAbi(gs.Abi) != normAbi(is.Abi) || len(gs.Inputs) != len(is.Inputs) {
			return false
		}
		for n := range gs.Inputs {
			if !TypesMayUnify(gs.Inputs[n], is.Inputs[n], treat) {
				return false
			}
		}
		return TypesMayUnify(outputOf(gs), outputOf(is), treat)
	case types.FnDef, types.Closure, types.Generator, types.GeneratorWitness:
		// impls cannot name these
		return false
	case types.PlaceholderTy, types.BoundTy:
		return false
	case types.Param:
		return treat == AsCandidateKey
	case types.Infer:
		switch g.Kind {
		case types.IntVar, types.FreshIntTy:
			return types.IsIntegral(impl)
		case types.FloatVar, types.FreshFloatTy:
			return types.IsFloat(impl)
		}
		return true
	case types.Alias, types.Error:
		return true
	}
	return true
}

func constsMayUnify(goal, impl types.Const, treat TreatParams) bool {
	iv, ok := impl.(types.ConstValue)
	if !ok {
		return true
	}
	switch g := goal.(type) {
	case types.ConstParam:
		return treat == AsCandidateKey
	case types.ConstValue:
		return g.Val == iv.Val
	case types.ConstPlaceholder, types.ConstBound:
		return false
	}
	return true
}

func normAbi(a types.Abi) types.Abi {
	if a == "" {
		return types.AbiRust
	}
	return a
}

func outputOf(s types.FnSig) types.Ty {
	if s.Output == nil {
		return types.Unit
	}
	return s.Output
}
