package types

import "fmt"

type RegionKind uint8

const (
	ReStatic RegionKind = iota
	// ReEarlyBound is a named lifetime parameter of the enclosing item, by index into its generics
	ReEarlyBound
	// ReFree is a named lifetime in scope of a body
	ReFree
	// ReLateBound is bound by an enclosing Binder
	ReLateBound
	ReVar
	RePlaceholder
	ReErased
	ReError
)

// Region is comparable and cheap to copy. Only the fields relevant to Kind are set.
type Region struct {
	Kind     RegionKind
	Name     string
	Index    uint32
	Debruijn DebruijnIndex
	Var      BoundVar
	Vid      RegionVid
	Universe UniverseIndex
}

func (Region) isGenericArg() {}

var (
	Static = Region{Kind: ReStatic}
	Erased = Region{Kind: ReErased}
)

func NewRegionVar(vid RegionVid) Region {
	return Region{Kind: ReVar, Vid: vid}
}

func NewPlaceholderRegion(u UniverseIndex, v BoundVar) Region {
	return Region{Kind: RePlaceholder, Universe: u, Var: v}
}

func NewLateBound(d DebruijnIndex, v BoundVar) Region {
	return Region{Kind: ReLateBound, Debruijn: d, Var: v}
}

func NewEarlyBound(index uint32, name string) Region {
	return Region{Kind: ReEarlyBound, Index: index, Name: name}
}

func (r Region) IsVar() bool {
	return r.Kind == ReVar
}

func (r Region) IsPlaceholder() bool {
	return r.Kind == RePlaceholder
}

// IsNamed reports whether r is a lifetime named by the user, other than 'static
func (r Region) IsNamed() bool {
	return r.Kind == ReEarlyBound || r.Kind == ReFree
}

func (r Region) String() string {
	switch r.Kind {
	case ReStatic:
		return "'static"
	case ReEarlyBound, ReFree:
		return "'" + r.Name
	case ReLateBound:
		return fmt.Sprintf("'^%d_%d", r.Debruijn, r.Var)
	case ReVar:
		return r.Vid.String()
	case RePlaceholder:
		return fmt.Sprintf("'!%d_%d", r.Universe, r.Var)
	case ReErased:
		return "'_"
	case ReError:
		return "'{error}"
	}
	return "'?"
}
