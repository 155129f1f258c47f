package infer

import (
	"testing"

	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInfcx() *InferCtxt {
	return New(types.NewTcx("test"), Options{})
}

func TestUnionFindIdempotence(t *testing.T) {
	infcx := newTestInfcx()
	tv := infcx.TypeVariables()
	var vids []types.TyVid
	for range 6 {
		vids = append(vids, infcx.NewTyVarID(TypeVariableOrigin{}))
	}
	tv.Equate(vids[0], vids[1])
	tv.Equate(vids[2], vids[3])
	tv.Equate(vids[1], vids[3])

	root := tv.Root(vids[0])
	for _, v := range vids[:4] {
		assert.Equal(t, root, tv.Root(v))
		assert.Equal(t, root, tv.Root(v), "probe must be stable")
	}
	assert.NotEqual(t, root, tv.Root(vids[4]))
	assert.True(t, tv.SubUnified(vids[0], vids[2]))
	assert.False(t, tv.SubUnified(vids[0], vids[5]))
}

func TestSubRootsAreIndependent(t *testing.T) {
	infcx := newTestInfcx()
	tv := infcx.TypeVariables()
	a, b := infcx.NewTyVarID(TypeVariableOrigin{}), infcx.NewTyVarID(TypeVariableOrigin{})
	tv.Sub(a, b)
	assert.Equal(t, tv.SubRoot(a), tv.SubRoot(b))
	assert.NotEqual(t, tv.Root(a), tv.Root(b))
}

func TestIntVarUnification(t *testing.T) {
	infcx := newTestInfcx()
	ints := infcx.IntVars()
	v := types.IntVid(infcx.NewIntVar().(types.Infer).Index)
	i32 := types.Int{Width: types.I32}
	u32 := types.Uint{Width: types.U32}

	require.NoError(t, ints.UnifyVarValue(v, IntVarValue{Ty: i32}))
	assert.Equal(t, "i32", infcx.ShallowResolve(types.NewIntVar(v)).String())

	err := ints.UnifyVarValue(v, IntVarValue{Ty: u32})
	var conflict Conflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "i32", conflict.A.(types.Ty).String())
	assert.Equal(t, "u32", conflict.B.(types.Ty).String())

	w := types.IntVid(infcx.NewIntVar().(types.Infer).Index)
	require.NoError(t, ints.UnifyVarVar(v, w))
	assert.Equal(t, "i32", infcx.ShallowResolve(types.NewIntVar(w)).String())
}

func TestSnapshotRollback(t *testing.T) {
	infcx := newTestInfcx()
	a := infcx.NewTyVarID(TypeVariableOrigin{})

	snap := infcx.StartSnapshot()
	b := infcx.NewTyVarID(TypeVariableOrigin{})
	infcx.TypeVariables().Equate(a, b)
	infcx.TypeVariables().Instantiate(a, types.Bool{})
	u := infcx.CreateNextUniverse()
	infcx.RegionConstraints().MakeSubregion(infcx.NewRegionVar("x"), types.NewPlaceholderRegion(u, 0))
	assert.Equal(t, 2, infcx.TypeVariables().Len())
	infcx.RollbackTo(snap)

	assert.Equal(t, 1, infcx.TypeVariables().Len())
	assert.False(t, infcx.ProbeTyVar(a).IsKnown())
	assert.Equal(t, types.RootUniverse, infcx.Universe())
	assert.Equal(t, 0, infcx.RegionConstraints().NumConstraints())
	assert.Equal(t, 0, infcx.RegionConstraints().NumVars())
}

func TestNestedSnapshots(t *testing.T) {
	infcx := newTestInfcx()
	a := infcx.NewTyVarID(TypeVariableOrigin{})

	outer := infcx.StartSnapshot()
	inner := infcx.StartSnapshot()
	infcx.TypeVariables().Instantiate(a, types.Char{})
	infcx.Commit(inner)
	assert.True(t, infcx.ProbeTyVar(a).IsKnown())
	infcx.RollbackTo(outer)
	assert.False(t, infcx.ProbeTyVar(a).IsKnown(), "committing an inner snapshot keeps it undoable by the outer one")

	first := infcx.StartSnapshot()
	_ = infcx.StartSnapshot()
	var err error
	func() {
		defer bug.Recover(&err)
		infcx.RollbackTo(first)
	}()
	assert.Error(t, err, "out of order rollback must be refused")
}

func TestProbeAndCommitIf(t *testing.T) {
	infcx := newTestInfcx()
	a := infcx.NewTyVarID(TypeVariableOrigin{})

	known := Probe(infcx, func(Snapshot) bool {
		infcx.TypeVariables().Instantiate(a, types.Str{})
		return infcx.ProbeTyVar(a).IsKnown()
	})
	assert.True(t, known)
	assert.False(t, infcx.ProbeTyVar(a).IsKnown())

	_, err := CommitIf(infcx, func(Snapshot) (struct{}, error) {
		infcx.TypeVariables().Instantiate(a, types.Str{})
		return struct{}{}, tyerr.Mismatched(tyerr.Sorts, true, types.Str{}, types.Bool{})
	})
	assert.Error(t, err)
	assert.False(t, infcx.ProbeTyVar(a).IsKnown())

	_, err = CommitIf(infcx, func(Snapshot) (struct{}, error) {
		infcx.TypeVariables().Instantiate(a, types.Str{})
		return struct{}{}, nil
	})
	assert.NoError(t, err)
	assert.True(t, infcx.ProbeTyVar(a).IsKnown())
}

func TestInstantiateTwiceIsABug(t *testing.T) {
	infcx := newTestInfcx()
	a := infcx.NewTyVarID(TypeVariableOrigin{})
	infcx.TypeVariables().Instantiate(a, types.Bool{})
	var err error
	func() {
		defer bug.Recover(&err)
		infcx.TypeVariables().Instantiate(a, types.Bool{})
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twice")
}

func TestResolveAndFreshen(t *testing.T) {
	infcx := newTestInfcx()
	a := infcx.NewTyVar(TypeVariableOrigin{})
	b := infcx.NewTyVar(TypeVariableOrigin{})
	vid, _ := types.TyVidOf(a)
	infcx.TypeVariables().Instantiate(vid, types.Slice{Elem: b})

	nested := types.Tuple{Elems: types.TyList{a, b, b}}
	assert.Equal(t, "([?1t], ?1t, ?1t)", infcx.ResolveVarsTy(nested).String())

	c := infcx.NewTyVar(TypeVariableOrigin{})
	fresh1 := Freshen[types.Ty](infcx, types.Tuple{Elems: types.TyList{a, c}})
	fresh2 := Freshen[types.Ty](infcx, types.Tuple{Elems: types.TyList{b, c}})
	assert.Equal(t, "([FreshTy(0)], FreshTy(1))", fresh1.String())
	assert.Equal(t, "(FreshTy(0), FreshTy(1))", fresh2.String())
}

func TestInstantiateBinders(t *testing.T) {
	infcx := newTestInfcx()
	sig := types.Bind(types.FnSig{
		Inputs: types.TyList{types.Ref{Region: types.NewLateBound(0, 0), Elem: types.Uint{Width: types.U8}}},
		Output: types.Unit,
	}, types.BoundRegionKind)

	placeholder := InstantiateBinderWithPlaceholders(infcx, sig)
	assert.Equal(t, types.UniverseIndex(1), infcx.Universe())
	assert.Equal(t, "fn(&'!1_0 u8)", placeholder.String())

	fresh := InstantiateBinderWithFresh(infcx, sig)
	assert.Equal(t, "fn(&'?0 u8)", fresh.String())
	assert.Equal(t, types.UniverseIndex(1), infcx.RegionConstraints().VarUniverse(0))
}

func TestLeakCheck(t *testing.T) {
	testCases := []struct {
		name    string
		build   func(infcx *InferCtxt, p types.Region)
		wantErr bool
	}{
		{
			name: "placeholder outlives a fresh variable",
			build: func(infcx *InferCtxt, p types.Region) {
				infcx.RegionConstraints().MakeSubregion(infcx.NewRegionVarInUniverse(types.RootUniverse, "v"), p)
			},
		},
		{
			name: "static must not be below a placeholder",
			build: func(infcx *InferCtxt, p types.Region) {
				infcx.RegionConstraints().MakeSubregion(types.Static, p)
			},
			wantErr: true,
		},
		{
			name: "named region below a placeholder through a variable",
			build: func(infcx *InferCtxt, p types.Region) {
				v := infcx.NewRegionVarInUniverse(types.RootUniverse, "v")
				infcx.RegionConstraints().MakeSubregion(types.NewEarlyBound(0, "a"), v)
				infcx.RegionConstraints().MakeSubregion(v, p)
			},
			wantErr: true,
		},
		{
			name: "equal to a variable that cannot name it",
			build: func(infcx *InferCtxt, p types.Region) {
				infcx.RegionConstraints().MakeEqregion(infcx.NewRegionVarInUniverse(types.RootUniverse, "v"), p)
			},
			wantErr: true,
		},
		{
			name: "equal to a variable from its own universe",
			build: func(infcx *InferCtxt, p types.Region) {
				infcx.RegionConstraints().MakeEqregion(infcx.NewRegionVarInUniverse(p.Universe, "v"), p)
			},
		},
		{
			name: "two placeholders",
			build: func(infcx *InferCtxt, p types.Region) {
				infcx.RegionConstraints().MakeSubregion(p, types.NewPlaceholderRegion(p.Universe, 1))
			},
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			infcx := newTestInfcx()
			snap := infcx.StartSnapshot()
			u := infcx.CreateNextUniverse()
			tc.build(infcx, types.NewPlaceholderRegion(u, 0))
			err := infcx.LeakCheck(snap.Universe(), &snap)
			if tc.wantErr {
				assert.True(t, tyerr.Is(err, tyerr.RegionsPlaceholderMismatch), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			infcx.RollbackTo(snap)
		})
	}
}
