package types

type BoundVariableKind uint8

const (
	BoundTyKind BoundVariableKind = iota
	BoundRegionKind
	BoundConstKind
)

// Binder wraps a value that may refer to late-bound variables. Vars lists the kinds of
// the variables bound here, indexed by BoundVar.
type Binder[T any] struct {
	Value T
	Vars  []BoundVariableKind
}

// Dummy wraps a value that has no escaping bound variables
func Dummy[T any](value T) Binder[T] {
	return Binder[T]{Value: value}
}

func Bind[T any](value T, vars ...BoundVariableKind) Binder[T] {
	return Binder[T]{Value: value, Vars: vars}
}

// SkipBinder returns the inner value. Bound variables in it are left dangling, so the
// result must not be compared against terms from outside the binder.
func (b Binder[T]) SkipBinder() T {
	return b.Value
}

// Rebind keeps the bound variables of b around a different value
func Rebind[T, U any](b Binder[T], value U) Binder[U] {
	return Binder[U]{Value: value, Vars: b.Vars}
}

// NoBoundVars returns the inner value if it does not mention any variable bound here
func NoBoundVars[T Foldable[T]](b Binder[T]) (T, bool) {
	if HasEscapingBoundVars(b.Value) {
		var zero T
		return zero, false
	}
	return b.Value, true
}

func (s FnSig) FoldWith(f TypeFolder) FnSig {
	return FnSig{
		Inputs:    s.Inputs.FoldWith(f),
		Output:    foldOptional(f, s.Output),
		CVariadic: s.CVariadic,
		Unsafety:  s.Unsafety,
		Abi:       s.Abi,
	}
}

// foldOptional folds t unless it is nil, which some signatures use for an omitted type
func foldOptional(f TypeFolder, t Ty) Ty {
	if t == nil {
		return nil
	}
	return f.FoldTy(t)
}

func (l TyList) FoldWith(f TypeFolder) TyList {
	if l == nil {
		return nil
	}
	ret := make(TyList, len(l))
	for i, t := range l {
		ret[i] = f.FoldTy(t)
	}
	return ret
}

func (a Args) FoldWith(f TypeFolder) Args {
	if a == nil {
		return nil
	}
	ret := make(Args, len(a))
	for i, arg := range a {
		ret[i] = FoldArg(f, arg)
	}
	return ret
}
