// Package relate implements relating two terms under equality, subtyping, least upper
// bound and greatest lower bound, on top of an inference session.
package relate

import (
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
)

// Relation is a strategy for relating two terms of the same shape. The structural
// recursion in this file is shared by every Relation and only calls back into it for
// leaves and nested positions.
type Relation interface {
	Tcx() *types.Tcx
	Tag() string
	// AIsExpected tells which side errors report as expected. It never changes semantics.
	AIsExpected() bool

	Tys(a, b types.Ty) (types.Ty, error)
	Regions(a, b types.Region) (types.Region, error)
	Consts(a, b types.Const) (types.Const, error)
	RelateWithVariance(v types.Variance, a, b types.GenericArg) (types.GenericArg, error)
}

func mismatch(r Relation, kind tyerr.ErrCode, a, b any) error {
	return tyerr.Mismatched(kind, r.AIsExpected(), a, b)
}

// RelateArgs relates the generic arguments of two terms of the same kind
func RelateArgs(r Relation, a, b types.GenericArg) (types.GenericArg, error) {
	switch a := a.(type) {
	case types.Ty:
		bt, ok := b.(types.Ty)
		if !ok {
			bug.Panicf("relating type %v with %v", a, b)
		}
		return r.Tys(a, bt)
	case types.Region:
		br, ok := b.(types.Region)
		if !ok {
			bug.Panicf("relating region %v with %v", a, b)
		}
		return r.Regions(a, br)
	case types.Const:
		bc, ok := b.(types.Const)
		if !ok {
			bug.Panicf("relating const %v with %v", a, b)
		}
		return r.Consts(a, bc)
	}
	bug.Panicf("unknown generic argument %T", a)
	return nil, nil
}

// InvariantArgs relates two argument lists position-wise, invariantly
func InvariantArgs(r Relation, a, b types.Args) (types.Args, error) {
	return ArgsWithVariances(r, nil, a, b)
}

// ArgsWithVariances relates two argument lists position-wise with the given variances.
// Missing variances are invariant.
func ArgsWithVariances(r Relation, variances []types.Variance, a, b types.Args) (types.Args, error) {
	if len(a) != len(b) {
		bug.Panicf("relating argument lists of different lengths: %v and %v", a, b)
	}
	out := make(types.Args, len(a))
	for i := range a {
		v := types.Invariant
		if i < len(variances) {
			v = variances[i]
		}
		rel, err := r.RelateWithVariance(v, a[i], b[i])
		if err != nil {
			return nil, err
		}
		out[i] = rel
	}
	return out, nil
}

func relateTy(r Relation, v types.Variance, a, b types.Ty) (types.Ty, error) {
	rel, err := r.RelateWithVariance(v, a, b)
	if err != nil {
		return nil, err
	}
	return rel.(types.Ty), nil
}

// TraitRefs relates two references to the same trait
func TraitRefs(r Relation, a, b types.TraitRef) (types.TraitRef, error) {
	if a.Def != b.Def {
		return types.TraitRef{}, mismatch(r, tyerr.Traits, a.Def, b.Def)
	}
	args, err := InvariantArgs(r, a.Args, b.Args)
	if err != nil {
		return types.TraitRef{}, err
	}
	return types.TraitRef{Def: a.Def, Args: args}, nil
}

func TraitPredicates(r Relation, a, b types.TraitPredicate) (types.TraitPredicate, error) {
	if a.Polarity != b.Polarity {
		return types.TraitPredicate{}, mismatch(r, tyerr.PolarityMismatch, a.Polarity, b.Polarity)
	}
	ref, err := TraitRefs(r, a.TraitRef, b.TraitRef)
	if err != nil {
		return types.TraitPredicate{}, err
	}
	return types.TraitPredicate{TraitRef: ref, Polarity: a.Polarity}, nil
}

// AliasTys relates two aliases of the same kind
func AliasTys(r Relation, a, b types.AliasTy) (types.AliasTy, error) {
	if a.Def != b.Def || a.Kind != b.Kind {
		return types.AliasTy{}, mismatch(r, tyerr.ProjectionMismatched, a.Def, b.Def)
	}
	var variances []types.Variance
	if a.Kind == types.Opaque {
		variances = r.Tcx().OpaqueVariances(a.Def)
	}
	args, err := ArgsWithVariances(r, variances, a.Args, b.Args)
	if err != nil {
		return types.AliasTy{}, err
	}
	return types.AliasTy{Kind: a.Kind, Def: a.Def, Args: args}, nil
}

// typeAndMut relates the pointees of two pointers, which must agree on mutability
func typeAndMut(r Relation, aMut, bMut types.Mutability, a, b types.Ty) (types.Ty, error) {
	if aMut != bMut {
		return nil, mismatch(r, tyerr.Mutability, aMut, bMut)
	}
	v := types.Covariant
	if aMut == types.Mut {
		v = types.Invariant
	}
	return relateTy(r, v, a, b)
}

// FnSigs relates two signatures, inputs contravariantly and the output covariantly
func FnSigs(r Relation, a, b types.FnSig) (types.FnSig, error) {
	if a.CVariadic != b.CVariadic {
		return types.FnSig{}, mismatch(r, tyerr.VariadicMismatch, a.CVariadic, b.CVariadic)
	}
	if a.Unsafety != b.Unsafety {
		return types.FnSig{}, mismatch(r, tyerr.UnsafetyMismatch, a.Unsafety, b.Unsafety)
	}
	if abiOf(a) != abiOf(b) {
		return types.FnSig{}, mismatch(r, tyerr.AbiMismatch, abiOf(a), abiOf(b))
	}
	if len(a.Inputs) != len(b.Inputs) {
		return types.FnSig{}, mismatch(r, tyerr.ArgCount, len(a.Inputs), len(b.Inputs))
	}
	inputs := make(types.TyList, len(a.Inputs))
	for i := range a.Inputs {
		in, err := relateTy(r, types.Contravariant, a.Inputs[i], b.Inputs[i])
		if err != nil {
			return types.FnSig{}, tyerr.WithArgIndex(err, i)
		}
		inputs[i] = in
	}
	output, err := r.Tys(outputOf(a), outputOf(b))
	if err != nil {
		return types.FnSig{}, tyerr.WithArgIndex(err, len(a.Inputs))
	}
	return types.FnSig{Inputs: inputs, Output: output, CVariadic: a.CVariadic, Unsafety: a.Unsafety, Abi: a.Abi}, nil
}

func abiOf(s types.FnSig) types.Abi {
	if s.Abi == "" {
		return types.AbiRust
	}
	return s.Abi
}

func outputOf(s types.FnSig) types.Ty {
	if s.Output == nil {
		return types.Unit
	}
	return s.Output
}

// Covariant list of types of the same length, e.g. generator witnesses
func tyLists(r Relation, a, b types.TyList, v types.Variance) (types.TyList, error) {
	if len(a) != len(b) {
		return nil, mismatch(r, tyerr.Sorts, a, b)
	}
	out := make(types.TyList, len(a))
	for i := range a {
		t, err := relateTy(r, v, a[i], b[i])
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Existentials relates the bounds of two trait objects after sorting and deduplicating them
func Existentials(r Relation, a, b []types.Binder[types.ExistentialPredicate]) ([]types.Binder[types.ExistentialPredicate], error) {
	as, bs := types.SortExistentials(a), types.SortExistentials(b)
	if len(as) != len(bs) {
		return nil, mismatch(r, tyerr.ExistentialMismatch, a, b)
	}
	out := make([]types.Binder[types.ExistentialPredicate], len(as))
	for i := range as {
		rel, err := Binders(r, as[i], bs[i], func(r Relation, a, b types.ExistentialPredicate) (types.ExistentialPredicate, error) {
			return existentialPredicates(r, a, b, as, bs)
		})
		if err != nil {
			return nil, err
		}
		out[i] = rel
	}
	return out, nil
}

func existentialPredicates(r Relation, a, b types.ExistentialPredicate, as, bs []types.Binder[types.ExistentialPredicate]) (types.ExistentialPredicate, error) {
	switch a := a.(type) {
	case types.ExistentialTrait:
		if b, ok := b.(types.ExistentialTrait); ok {
			if a.Def != b.Def {
				return nil, mismatch(r, tyerr.Traits, a.Def, b.Def)
			}
			args, err := InvariantArgs(r, a.Args, b.Args)
			if err != nil {
				return nil, err
			}
			return types.ExistentialTrait{Def: a.Def, Args: args}, nil
		}
	case types.ExistentialProjection:
		if b, ok := b.(types.ExistentialProjection); ok {
			if a.Def != b.Def {
				return nil, mismatch(r, tyerr.ProjectionMismatched, a.Def, b.Def)
			}
			args, err := InvariantArgs(r, a.Args, b.Args)
			if err != nil {
				return nil, err
			}
			term, err := r.RelateWithVariance(types.Invariant, a.Term, b.Term)
			if err != nil {
				return nil, err
			}
			return types.ExistentialProjection{Def: a.Def, Args: args, Term: term}, nil
		}
	case types.ExistentialAutoTrait:
		if b, ok := b.(types.ExistentialAutoTrait); ok && a.Def == b.Def {
			return a, nil
		}
	}
	return nil, mismatch(r, tyerr.ExistentialMismatch, []types.Binder[types.ExistentialPredicate](as), []types.Binder[types.ExistentialPredicate](bs))
}

// StructurallyRelateTys relates two types with the same outer constructor. Inference
// variables must have been handled by the caller.
func StructurallyRelateTys(r Relation, a, b types.Ty) (types.Ty, error) {
	if _, ok := a.(types.Error); ok {
		return a, nil
	}
	if _, ok := b.(types.Error); ok {
		return b, nil
	}
	sorts := func() (types.Ty, error) { return nil, mismatch(r, tyerr.Sorts, a, b) }

	switch a := a.(type) {
	case types.Infer:
		bug.Panicf("inference variable %v reached structural relation with %v", a, b)
	case types.BoundTy:
		bug.Panicf("bound type %v reached structural relation with %v", a, b)

	case types.Bool, types.Char, types.Str, types.Never, types.Int, types.Uint, types.Float:
		if types.Equal[types.Ty](a, b) {
			return a, nil
		}
		return sorts()

	case types.Param:
		if b, ok := b.(types.Param); ok && a.Index == b.Index {
			return a, nil
		}
		return sorts()

	case types.PlaceholderTy:
		if b, ok := b.(types.PlaceholderTy); ok && a == b {
			return a, nil
		}
		return sorts()

	case types.Adt:
		b, ok := b.(types.Adt)
		if !ok || a.Def != b.Def {
			return sorts()
		}
		args, err := ArgsWithVariances(r, r.Tcx().VariancesOf(a.Def), a.Args, b.Args)
		if err != nil {
			return nil, err
		}
		return types.Adt{Def: a.Def, Args: args}, nil

	case types.Foreign:
		if b, ok := b.(types.Foreign); ok && a.Def == b.Def {
			return a, nil
		}
		return sorts()

	case types.Dynamic:
		b, ok := b.(types.Dynamic)
		if !ok {
			return sorts()
		}
		region, err := r.Regions(a.Region, b.Region)
		if err != nil {
			return nil, err
		}
		preds, err := Existentials(r, a.Preds, b.Preds)
		if err != nil {
			return nil, err
		}
		return types.Dynamic{Preds: preds, Region: region}, nil

	case types.Generator:
		b, ok := b.(types.Generator)
		if !ok || a.Def != b.Def {
			return sorts()
		}
		args, err := InvariantArgs(r, a.Args, b.Args)
		if err != nil {
			return nil, err
		}
		sigA := types.TyList{a.Sig.Resume, a.Sig.Yield, a.Sig.Return}
		sigB := types.TyList{b.Sig.Resume, b.Sig.Yield, b.Sig.Return}
		sig, err := tyLists(r, sigA, sigB, types.Invariant)
		if err != nil {
			return nil, err
		}
		upvars, err := tyLists(r, a.Upvars, b.Upvars, types.Invariant)
		if err != nil {
			return nil, err
		}
		witness := a.Witness
		if a.Witness != nil && b.Witness != nil {
			if witness, err = relateTy(r, types.Invariant, a.Witness, b.Witness); err != nil {
				return nil, err
			}
		}
		return types.Generator{
			Def:        a.Def,
			Args:       args,
			Movability: a.Movability,
			Sig:        types.GenSig{Resume: sig[0], Yield: sig[1], Return: sig[2]},
			Upvars:     upvars,
			Witness:    witness,
		}, nil

	case types.GeneratorWitness:
		b, ok := b.(types.GeneratorWitness)
		if !ok {
			return sorts()
		}
		tys, err := Binders(r, a.Tys, b.Tys, func(r Relation, a, b types.TyList) (types.TyList, error) {
			return tyLists(r, a, b, types.Covariant)
		})
		if err != nil {
			return nil, err
		}
		return types.GeneratorWitness{Tys: tys}, nil

	case types.Closure:
		b, ok := b.(types.Closure)
		if !ok || a.Def != b.Def {
			return sorts()
		}
		if a.Kind != b.Kind && a.Kind != types.ClosureKindUnknown && b.Kind != types.ClosureKindUnknown {
			return nil, mismatch(r, tyerr.ClosureKindMismatch, a.Kind, b.Kind)
		}
		args, err := InvariantArgs(r, a.Args, b.Args)
		if err != nil {
			return nil, err
		}
		sig, err := invariantSig(r, a.Sig, b.Sig)
		if err != nil {
			return nil, err
		}
		upvars, err := tyLists(r, a.Upvars, b.Upvars, types.Invariant)
		if err != nil {
			return nil, err
		}
		kind := a.Kind
		if kind == types.ClosureKindUnknown {
			kind = b.Kind
		}
		return types.Closure{Def: a.Def, Args: args, Kind: kind, Sig: sig, Upvars: upvars}, nil

	case types.RawPtr:
		b, ok := b.(types.RawPtr)
		if !ok {
			return sorts()
		}
		elem, err := typeAndMut(r, a.Mut, b.Mut, a.Elem, b.Elem)
		if err != nil {
			return nil, err
		}
		return types.RawPtr{Elem: elem, Mut: a.Mut}, nil

	case types.Ref:
		b, ok := b.(types.Ref)
		if !ok {
			return sorts()
		}
		region, err := r.Regions(a.Region, b.Region)
		if err != nil {
			return nil, err
		}
		elem, err := typeAndMut(r, a.Mut, b.Mut, a.Elem, b.Elem)
		if err != nil {
			return nil, err
		}
		return types.Ref{Region: region, Elem: elem, Mut: a.Mut}, nil

	case types.Array:
		b, ok := b.(types.Array)
		if !ok {
			return sorts()
		}
		elem, err := r.Tys(a.Elem, b.Elem)
		if err != nil {
			return nil, err
		}
		length, err := r.Consts(a.Len, b.Len)
		if err != nil {
			lenA, okA := evalUsize(r.Tcx(), a.Len)
			lenB, okB := evalUsize(r.Tcx(), b.Len)
			if okA && okB && lenA != lenB {
				return nil, mismatch(r, tyerr.FixedArraySize, lenA, lenB)
			}
			return nil, err
		}
		return types.Array{Elem: elem, Len: length}, nil

	case types.Slice:
		b, ok := b.(types.Slice)
		if !ok {
			return sorts()
		}
		elem, err := r.Tys(a.Elem, b.Elem)
		if err != nil {
			return nil, err
		}
		return types.Slice{Elem: elem}, nil

	case types.Tuple:
		b, ok := b.(types.Tuple)
		if !ok {
			return sorts()
		}
		if len(a.Elems) != len(b.Elems) {
			if len(a.Elems) == 0 || len(b.Elems) == 0 {
				return sorts()
			}
			return nil, mismatch(r, tyerr.TupleSize, len(a.Elems), len(b.Elems))
		}
		elems, err := tyLists(r, a.Elems, b.Elems, types.Covariant)
		if err != nil {
			return nil, err
		}
		return types.Tuple{Elems: elems}, nil

	case types.FnDef:
		b, ok := b.(types.FnDef)
		if !ok || a.Def != b.Def {
			return sorts()
		}
		args, err := ArgsWithVariances(r, r.Tcx().VariancesOf(a.Def), a.Args, b.Args)
		if err != nil {
			return nil, err
		}
		return types.FnDef{Def: a.Def, Args: args}, nil

	case types.FnPtr:
		b, ok := b.(types.FnPtr)
		if !ok {
			return sorts()
		}
		sig, err := Binders(r, a.Sig, b.Sig, FnSigs)
		if err != nil {
			return nil, err
		}
		return types.FnPtr{Sig: sig}, nil

	case types.Alias:
		b, ok := b.(types.Alias)
		if !ok || (a.Kind == types.Opaque) != (b.Kind == types.Opaque) {
			return sorts()
		}
		if a.Kind == types.Opaque && a.Def != b.Def {
			return sorts()
		}
		alias, err := AliasTys(r, a.AliasTy, b.AliasTy)
		if err != nil {
			return nil, err
		}
		return types.Alias{AliasTy: alias}, nil
	}
	return sorts()
}

// invariantSig relates two closure signatures for equality
func invariantSig(r Relation, a, b types.Binder[types.FnSig]) (types.Binder[types.FnSig], error) {
	fa, fb := types.FnPtr{Sig: a}, types.FnPtr{Sig: b}
	rel, err := relateTy(r, types.Invariant, fa, fb)
	if err != nil {
		return types.Binder[types.FnSig]{}, err
	}
	if ptr, ok := rel.(types.FnPtr); ok {
		return ptr.Sig, nil
	}
	return a, nil
}

func evalUsize(tcx *types.Tcx, c types.Const) (uint64, bool) {
	if v, ok := types.TryEvalUsize(c); ok {
		return v, true
	}
	if u, ok := c.(types.ConstUnevaluated); ok {
		if v, ok := tcx.EvalConst(u); ok {
			return types.TryEvalUsize(v)
		}
	}
	return 0, false
}

// StructurallyRelateConsts relates two consts of the same kind. Inference variables
// must have been handled by the caller.
func StructurallyRelateConsts(r Relation, a, b types.Const) (types.Const, error) {
	if _, ok := a.(types.ConstError); ok {
		return a, nil
	}
	if _, ok := b.(types.ConstError); ok {
		return b, nil
	}
	constMismatch := func() (types.Const, error) { return nil, mismatch(r, tyerr.ConstMismatch, a, b) }

	switch a := a.(type) {
	case types.ConstInfer:
		bug.Panicf("const variable %v reached structural relation with %v", a, b)
	case types.ConstParam:
		if b, ok := b.(types.ConstParam); ok && a.Index == b.Index {
			return a, nil
		}
	case types.ConstPlaceholder:
		if b, ok := b.(types.ConstPlaceholder); ok && a.Universe == b.Universe && a.Var == b.Var {
			return a, nil
		}
	case types.ConstBound:
		if b, ok := b.(types.ConstBound); ok && a.Debruijn == b.Debruijn && a.Var == b.Var {
			return a, nil
		}
	case types.ConstValue:
		if b, ok := b.(types.ConstValue); ok && a.Val == b.Val && types.Equal(a.Type(), b.Type()) {
			return a, nil
		}
	case types.ConstUnevaluated:
		if b, ok := b.(types.ConstUnevaluated); ok && a.Def == b.Def {
			args, err := InvariantArgs(r, a.Args, b.Args)
			if err != nil {
				return nil, err
			}
			return types.NewConstUnevaluated(a.Type(), a.Def, args), nil
		}
	case types.ConstExpr:
		if b, ok := b.(types.ConstExpr); ok {
			expr, err := exprs(r, a.Expr, b.Expr)
			if err != nil {
				return constMismatch()
			}
			return types.NewConstExpr(a.Type(), expr), nil
		}
	}
	return constMismatch()
}

// exprs relates two expression trees of the same shape whose operands have the same types
func exprs(r Relation, a, b types.Expr) (types.Expr, error) {
	if a.Kind != b.Kind || a.Op != b.Op || len(a.Operands) != len(b.Operands) {
		return types.Expr{}, mismatch(r, tyerr.ConstMismatch, a, b)
	}
	for i := range a.Operands {
		if !types.Equal(a.Operands[i].Type(), b.Operands[i].Type()) {
			return types.Expr{}, mismatch(r, tyerr.ConstMismatch, a, b)
		}
	}
	out := types.Expr{Kind: a.Kind, Op: a.Op, Operands: make([]types.Const, len(a.Operands))}
	for i := range a.Operands {
		c, err := r.Consts(a.Operands[i], b.Operands[i])
		if err != nil {
			return types.Expr{}, err
		}
		out.Operands[i] = c
	}
	if a.Kind == types.ExprCast {
		to, err := r.Tys(a.CastTo, b.CastTo)
		if err != nil {
			return types.Expr{}, err
		}
		out.CastTo = to
	}
	return out, nil
}
