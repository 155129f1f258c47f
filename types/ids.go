// Package types holds the term model shared by the inference store, the relation
// engine and the trait solver: types, regions, consts, generic arguments, binders,
// predicates and the item database (Tcx) they are resolved against.
package types

import (
	"cmp"
	"fmt"
)

// CrateNum identifies a crate in the crate graph. LocalCrate is the crate being checked.
type CrateNum uint32

const LocalCrate CrateNum = 0

// DefId names an item (type, trait, impl, associated item, function...) in some crate.
type DefId struct {
	Krate CrateNum
	Index uint32
	Name  string
}

func (d DefId) IsLocal() bool {
	return d.Krate == LocalCrate
}

func (d DefId) String() string {
	return d.Name
}

func (d DefId) Compare(other DefId) int {
	if c := cmp.Compare(d.Krate, other.Krate); c != 0 {
		return c
	}
	return cmp.Compare(d.Index, other.Index)
}

// DefIdComparer orders DefIds by crate then index, for use as an immutable.Comparer
type DefIdComparer struct{}

func (DefIdComparer) Compare(a, b DefId) int {
	return a.Compare(b)
}

type TyVid uint32
type IntVid uint32
type FloatVid uint32
type ConstVid uint32
type RegionVid uint32

func (v TyVid) String() string     { return fmt.Sprintf("?%dt", v) }
func (v IntVid) String() string    { return fmt.Sprintf("?%di", v) }
func (v FloatVid) String() string  { return fmt.Sprintf("?%df", v) }
func (v ConstVid) String() string  { return fmt.Sprintf("?%dc", v) }
func (v RegionVid) String() string { return fmt.Sprintf("'?%d", v) }

// UniverseIndex tags placeholders and inference variables with the binder scope they
// were created under. Universes only ever grow within a session.
type UniverseIndex uint32

const RootUniverse UniverseIndex = 0

func (u UniverseIndex) Next() UniverseIndex {
	return u + 1
}

// CanName reports whether something created in universe u may mention a term rooted
// in universe other.
func (u UniverseIndex) CanName(other UniverseIndex) bool {
	return u >= other
}

func (u UniverseIndex) String() string {
	return fmt.Sprintf("U%d", uint32(u))
}

// DebruijnIndex counts binders outward from the point of use, 0 being the innermost.
type DebruijnIndex uint32

const Innermost DebruijnIndex = 0

type Mutability bool

const (
	Not Mutability = false
	Mut Mutability = true
)

func (m Mutability) Prefix() string {
	if m == Mut {
		return "mut "
	}
	return ""
}

type Unsafety uint8

const (
	Normal Unsafety = iota
	Unsafe
)

// Abi is the calling convention name of a fn signature, e.g. "Rust" or "C".
type Abi string

const (
	AbiRust Abi = "Rust"
	AbiC    Abi = "C"
)

type ClosureKind uint8

const (
	ClosureKindUnknown ClosureKind = iota
	ClosureKindFn
	ClosureKindFnMut
	ClosureKindFnOnce
)

// Extends reports whether a closure of kind k can be called through a trait of kind other,
// e.g. an Fn closure can be called as FnOnce.
func (k ClosureKind) Extends(other ClosureKind) bool {
	return k != ClosureKindUnknown && k <= other
}

func (k ClosureKind) String() string {
	switch k {
	case ClosureKindFn:
		return "Fn"
	case ClosureKindFnMut:
		return "FnMut"
	case ClosureKindFnOnce:
		return "FnOnce"
	}
	return "?"
}

type Movability uint8

const (
	Immovable Movability = iota
	Movable
)

type IntTy uint8

const (
	Isize IntTy = iota
	I8
	I16
	I32
	I64
	I128
)

var intNames = [...]string{"isize", "i8", "i16", "i32", "i64", "i128"}

func (i IntTy) String() string { return intNames[i] }

type UintTy uint8

const (
	Usize UintTy = iota
	U8
	U16
	U32
	U64
	U128
)

var uintNames = [...]string{"usize", "u8", "u16", "u32", "u64", "u128"}

func (u UintTy) String() string { return uintNames[u] }

type FloatTy uint8

const (
	F32 FloatTy = iota
	F64
)

func (f FloatTy) String() string {
	if f == F32 {
		return "f32"
	}
	return "f64"
}

// ParseScalar returns the scalar type spelled name, if any
func ParseScalar(name string) (Ty, bool) {
	for i, n := range intNames {
		if n == name {
			return Int{Width: IntTy(i)}, true
		}
	}
	for i, n := range uintNames {
		if n == name {
			return Uint{Width: UintTy(i)}, true
		}
	}
	switch name {
	case "f32":
		return Float{Width: F32}, true
	case "f64":
		return Float{Width: F64}, true
	case "bool":
		return Bool{}, true
	case "char":
		return Char{}, true
	case "str":
		return Str{}, true
	case "never", "!":
		return Never{}, true
	}
	return nil, false
}
