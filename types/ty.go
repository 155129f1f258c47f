package types

import "github.com/cottand/tyrel/internal/bug"

// GenericArg is one of Ty, Region or Const, as found in the generic arguments of an item.
type GenericArg interface {
	String() string
	isGenericArg()
}

// Ty is a type term. The set of implementations is closed and listed below.
type Ty interface {
	GenericArg
	isTy()
}

type tyBase struct{}

func (tyBase) isGenericArg() {}
func (tyBase) isTy()         {}

// Args are the generic arguments an item is instantiated with, in declaration order.
type Args []GenericArg

// TyList is a list of types, e.g. the inputs of a signature or the types of a tuple.
type TyList []Ty

type Bool struct{ tyBase }
type Char struct{ tyBase }
type Str struct{ tyBase }
type Never struct{ tyBase }

type Int struct {
	tyBase
	Width IntTy
}

type Uint struct {
	tyBase
	Width UintTy
}

type Float struct {
	tyBase
	Width FloatTy
}

type Tuple struct {
	tyBase
	Elems TyList
}

// Unit is the empty tuple
var Unit Ty = Tuple{}

type Array struct {
	tyBase
	Elem Ty
	Len  Const
}

type Slice struct {
	tyBase
	Elem Ty
}

type RawPtr struct {
	tyBase
	Elem Ty
	Mut  Mutability
}

type Ref struct {
	tyBase
	Region Region
	Elem   Ty
	Mut    Mutability
}

type FnSig struct {
	Inputs    TyList
	Output    Ty
	CVariadic bool
	Unsafety  Unsafety
	Abi       Abi
}

type FnPtr struct {
	tyBase
	Sig Binder[FnSig]
}

// FnDef is the zero-sized type of a named function item.
type FnDef struct {
	tyBase
	Def  DefId
	Args Args
}

type Closure struct {
	tyBase
	Def    DefId
	Args   Args
	Kind   ClosureKind
	Sig    Binder[FnSig]
	Upvars TyList
}

type GenSig struct {
	Resume Ty
	Yield  Ty
	Return Ty
}

type Generator struct {
	tyBase
	Def        DefId
	Args       Args
	Movability Movability
	Sig        GenSig
	Upvars     TyList
	Witness    Ty
}

// GeneratorWitness lists the types live across suspension points of a generator.
type GeneratorWitness struct {
	tyBase
	Tys Binder[TyList]
}

// Adt is a user-defined struct, enum or union instantiated with Args.
type Adt struct {
	tyBase
	Def  DefId
	Args Args
}

type Foreign struct {
	tyBase
	Def DefId
}

// Dynamic is a trait object: dyn Principal + Projections + AutoTraits + 'region.
type Dynamic struct {
	tyBase
	Preds  []Binder[ExistentialPredicate]
	Region Region
}

type AliasKind uint8

const (
	Projection AliasKind = iota
	Inherent
	Opaque
	Weak
)

func (k AliasKind) String() string {
	switch k {
	case Projection:
		return "projection"
	case Inherent:
		return "inherent"
	case Opaque:
		return "opaque"
	case Weak:
		return "weak"
	}
	return "alias"
}

type AliasTy struct {
	Kind AliasKind
	Def  DefId
	Args Args
}

// SelfTy is the first argument of a projection's trait ref
func (a AliasTy) SelfTy() Ty {
	return a.Args[0].(Ty)
}

type Alias struct {
	tyBase
	AliasTy
}

// Param is a generic type parameter of the enclosing item, by index into its generics.
type Param struct {
	tyBase
	Index uint32
	Name  string
}

type BoundVar uint32

type BoundTy struct {
	tyBase
	Debruijn DebruijnIndex
	Var      BoundVar
}

type PlaceholderTy struct {
	tyBase
	Universe UniverseIndex
	Var      BoundVar
}

type InferKind uint8

const (
	TyVar InferKind = iota
	IntVar
	FloatVar
	FreshTy
	FreshIntTy
	FreshFloatTy
)

// Infer is an inference variable. Index is a TyVid, IntVid or FloatVid for the
// non-fresh kinds and a freshening counter otherwise.
type Infer struct {
	tyBase
	Kind  InferKind
	Index uint32
}

func NewTyVar(v TyVid) Ty       { return Infer{Kind: TyVar, Index: uint32(v)} }
func NewIntVar(v IntVid) Ty     { return Infer{Kind: IntVar, Index: uint32(v)} }
func NewFloatVar(v FloatVid) Ty { return Infer{Kind: FloatVar, Index: uint32(v)} }

func (i Infer) IsFresh() bool {
	return i.Kind >= FreshTy
}

// Error stands for a type that has already been reported as ill-formed.
type Error struct{ tyBase }

// TyVidOf returns the TyVid of t if it is an unresolved type variable
func TyVidOf(t Ty) (TyVid, bool) {
	if i, ok := t.(Infer); ok && i.Kind == TyVar {
		return TyVid(i.Index), true
	}
	return 0, false
}

func IsIntegral(t Ty) bool {
	switch t := t.(type) {
	case Int, Uint:
		return true
	case Infer:
		return t.Kind == IntVar || t.Kind == FreshIntTy
	}
	return false
}

func IsFloat(t Ty) bool {
	switch t := t.(type) {
	case Float:
		return true
	case Infer:
		return t.Kind == FloatVar || t.Kind == FreshFloatTy
	}
	return false
}

// IsTyVar reports whether t is a general type inference variable
func IsTyVar(t Ty) bool {
	i, ok := t.(Infer)
	return ok && (i.Kind == TyVar || i.Kind == FreshTy)
}

// TypeArgs filters args down to its types
func (a Args) TypeArgs() TyList {
	var ret TyList
	for _, arg := range a {
		if t, ok := arg.(Ty); ok {
			ret = append(ret, t)
		}
	}
	return ret
}

func (a Args) TypeAt(i int) Ty {
	t, ok := a[i].(Ty)
	if !ok {
		bug.Panicf("expected type for argument %d of %v, found %v", i, a, a[i])
	}
	return t
}

// Extend returns a with extra appended, without aliasing a
func (a Args) Extend(extra ...GenericArg) Args {
	ret := make(Args, 0, len(a)+len(extra))
	ret = append(ret, a...)
	return append(ret, extra...)
}
