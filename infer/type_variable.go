package infer

import (
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/types"
)

// TypeVariableOrigin says why a type variable was created, for debugging
type TypeVariableOrigin struct {
	Kind  string
	Param string
}

// TypeVariableTable keeps two union-finds over type variables: eq for equality and
// the values of variables, sub for the sub-roots that the occurs check uses.
type TypeVariableTable struct {
	eq      *UnificationTable[types.TyVid, TypeVariableValue]
	sub     *UnificationTable[types.TyVid, unit]
	origins *loggedVec[TypeVariableOrigin]
}

func newTypeVariableTable(log *undoLog) *TypeVariableTable {
	return &TypeVariableTable{
		eq:      newUnificationTable[types.TyVid, TypeVariableValue](log),
		sub:     newUnificationTable[types.TyVid, unit](log),
		origins: newLoggedVec[TypeVariableOrigin](log),
	}
}

func (t *TypeVariableTable) New(universe types.UniverseIndex, origin TypeVariableOrigin) types.TyVid {
	vid := t.eq.NewKey(TypeVariableValue{Universe: universe})
	subVid := t.sub.NewKey(unit{})
	if subVid != vid {
		bug.Panicf("type variable tables out of sync: %v vs %v", vid, subVid)
	}
	t.origins.push(origin)
	return vid
}

func (t *TypeVariableTable) Len() int {
	return t.eq.Len()
}

func (t *TypeVariableTable) Origin(vid types.TyVid) TypeVariableOrigin {
	return t.origins.get(int(vid))
}

// Equate records a == b. Neither may be known yet.
func (t *TypeVariableTable) Equate(a, b types.TyVid) {
	t.eq.Union(a, b)
	t.sub.Union(a, b)
}

// Sub records a <: b for the purposes of the occurs check
func (t *TypeVariableTable) Sub(a, b types.TyVid) {
	t.sub.Union(a, b)
}

// Instantiate assigns ty to vid. vid must still be unknown.
func (t *TypeVariableTable) Instantiate(vid types.TyVid, ty types.Ty) {
	root := t.eq.Find(vid)
	if prev := t.eq.Probe(root); prev.IsKnown() {
		bug.Panicf("instantiating type variable %v twice: old value %v, new value %v", vid, prev.Known, ty)
	}
	t.eq.UnionValue(root, TypeVariableValue{Known: ty})
}

func (t *TypeVariableTable) Probe(vid types.TyVid) TypeVariableValue {
	return t.eq.Probe(vid)
}

func (t *TypeVariableTable) Root(vid types.TyVid) types.TyVid {
	return t.eq.Find(vid)
}

func (t *TypeVariableTable) SubRoot(vid types.TyVid) types.TyVid {
	return t.sub.Find(vid)
}

func (t *TypeVariableTable) SubUnified(a, b types.TyVid) bool {
	return t.sub.Unioned(a, b)
}

// Unresolved lists the roots that have no known value
func (t *TypeVariableTable) Unresolved() []types.TyVid {
	var ret []types.TyVid
	for i := 0; i < t.Len(); i++ {
		vid := types.TyVid(i)
		if t.Root(vid) == vid && !t.Probe(vid).IsKnown() {
			ret = append(ret, vid)
		}
	}
	return ret
}
