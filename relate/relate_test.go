package relate

import (
	"testing"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	i32     = types.Int{Width: types.I32}
	u32     = types.Uint{Width: types.U32}
	u8      = types.Uint{Width: types.U8}
	boolean = types.Bool{}
)

type fixture struct {
	tcx   *types.Tcx
	infcx *infer.InferCtxt
	at    At
	vec   types.DefId
	cell  types.DefId
	send  types.DefId
	debug types.DefId
}

func newFixture(t *testing.T, opts infer.Options) *fixture {
	t.Helper()
	tcx := types.NewTcx("test")
	f := &fixture{tcx: tcx}
	f.vec = tcx.NewDef(types.LocalCrate, "Vec")
	tcx.AddAdt(&types.AdtDef{Def: f.vec, Generics: types.TypeParams("T")})
	f.cell = tcx.NewDef(types.LocalCrate, "Cell")
	tcx.AddAdt(&types.AdtDef{Def: f.cell, Generics: types.TypeParams("T"), Variances: []types.Variance{types.Invariant}})
	f.send = tcx.NewDef(types.LocalCrate, "Send")
	tcx.AddTrait(&types.TraitDef{Def: f.send, Generics: types.TypeParams("Self"), IsAuto: true})
	f.debug = tcx.NewDef(types.LocalCrate, "Debug")
	tcx.AddTrait(&types.TraitDef{Def: f.debug, Generics: types.TypeParams("Self"), ObjectSafe: true})
	f.infcx = infer.New(tcx, opts)
	f.at = NewAt(f.infcx, infer.MiscCause, types.EmptyParamEnv)
	return f
}

func (f *fixture) vecOf(t types.Ty) types.Ty {
	return types.Adt{Def: f.vec, Args: types.Args{t}}
}

func (f *fixture) cellOf(t types.Ty) types.Ty {
	return types.Adt{Def: f.cell, Args: types.Args{t}}
}

func fn(output types.Ty, inputs ...types.Ty) types.Ty {
	return types.FnPtr{Sig: types.Dummy(types.FnSig{Inputs: inputs, Output: output})}
}

func ref(r types.Region, t types.Ty) types.Ty {
	return types.Ref{Region: r, Elem: t}
}

func TestOccursCheck(t *testing.T) {
	f := newFixture(t, infer.Options{})
	v := f.infcx.NewTyVar(infer.TypeVariableOrigin{})

	_, err := f.at.Eq(v, f.vecOf(v))
	assert.True(t, tyerr.Is(err, tyerr.CyclicTy), "got %v", err)

	vid, _ := types.TyVidOf(v)
	assert.False(t, f.infcx.ProbeTyVar(vid).IsKnown(), "failed relation must leave no trace")

	// through a subtyping chain
	w := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	_, err = f.at.Sub(v, w)
	require.NoError(t, err)
	_, err = f.at.Sub(w, f.vecOf(v))
	assert.True(t, tyerr.Is(err, tyerr.CyclicTy), "got %v", err)
}

func TestIntVarThenMismatch(t *testing.T) {
	f := newFixture(t, infer.Options{})
	v := f.infcx.NewIntVar()

	_, err := f.at.Eq(v, i32)
	require.NoError(t, err)
	assert.Equal(t, "i32", f.infcx.ResolveVarsTy(v).String())

	_, err = f.at.Eq(v, u32)
	assert.True(t, tyerr.Is(err, tyerr.IntMismatch), "got %v", err)

	_, err = f.at.Eq(f.infcx.NewIntVar(), boolean)
	assert.True(t, tyerr.Is(err, tyerr.Sorts), "got %v", err)
}

func TestStructuralMismatches(t *testing.T) {
	three := types.NewUsize(3)
	four := types.NewUsize(4)
	testCases := []struct {
		name string
		a, b types.Ty
		code tyerr.ErrCode
	}{
		{"arity", fn(boolean, i32), fn(boolean, i32, i32), tyerr.ArgCount},
		{"argument", fn(boolean, i32), fn(boolean, u32), tyerr.ArgumentSorts},
		{"output", fn(boolean), fn(i32), tyerr.ArgumentSorts},
		{"variadic", fn(boolean), types.FnPtr{Sig: types.Dummy(types.FnSig{Output: boolean, CVariadic: true})}, tyerr.VariadicMismatch},
		{"unsafety", fn(boolean), types.FnPtr{Sig: types.Dummy(types.FnSig{Output: boolean, Unsafety: types.Unsafe})}, tyerr.UnsafetyMismatch},
		{"abi", fn(boolean), types.FnPtr{Sig: types.Dummy(types.FnSig{Output: boolean, Abi: types.AbiC})}, tyerr.AbiMismatch},
		{"tuple size", types.Tuple{Elems: types.TyList{i32}}, types.Tuple{Elems: types.TyList{i32, i32}}, tyerr.TupleSize},
		{"unit and tuple", types.Unit, types.Tuple{Elems: types.TyList{i32}}, tyerr.Sorts},
		{"mutability", ref(types.Static, i32), types.Ref{Region: types.Static, Elem: i32, Mut: types.Mut}, tyerr.Mutability},
		{"array length", types.Array{Elem: u8, Len: three}, types.Array{Elem: u8, Len: four}, tyerr.FixedArraySize},
		{"scalars", i32, u32, tyerr.Sorts},
		{"params", types.Param{Index: 0, Name: "T"}, types.Param{Index: 1, Name: "U"}, tyerr.Sorts},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, infer.Options{})
			_, err := f.at.Eq(tc.a, tc.b)
			assert.Equal(t, tc.code, tyerr.CodeOf(err), "got %v", err)
			_, err = f.at.Eq(tc.b, tc.a)
			assert.Equal(t, tc.code, tyerr.CodeOf(err), "equality must be symmetric, got %v", err)
		})
	}
}

func TestArgumentIndex(t *testing.T) {
	f := newFixture(t, infer.Options{})
	_, err := f.at.Eq(fn(boolean, i32, i32), fn(boolean, i32, u32))
	var m tyerr.NewMismatch
	require.ErrorAs(t, err, &m)
	assert.Equal(t, 1, m.ArgIndex)
}

func TestErrorTypeRelatesToAnything(t *testing.T) {
	f := newFixture(t, infer.Options{})
	_, err := f.at.Eq(types.Error{}, f.vecOf(i32))
	assert.NoError(t, err)
	assert.True(t, f.infcx.TaintedByErrors())
}

func TestSubtypingRegions(t *testing.T) {
	f := newFixture(t, infer.Options{})
	a, b := types.NewEarlyBound(0, "a"), types.NewEarlyBound(1, "b")

	_, err := f.at.Sub(ref(a, u8), ref(b, u8))
	require.NoError(t, err)
	assert.Equal(t, []infer.Constraint{{Sub: b, Sup: a}}, f.infcx.RegionConstraints().ConstraintsSince(0))

	// invariant through a mutable reference
	before := f.infcx.RegionConstraints().NumConstraints()
	_, err = f.at.Sub(types.Ref{Region: types.Static, Elem: ref(a, u8), Mut: types.Mut}, types.Ref{Region: types.Static, Elem: ref(b, u8), Mut: types.Mut})
	require.NoError(t, err)
	got := f.infcx.RegionConstraints().ConstraintsSince(before)
	assert.ElementsMatch(t, []infer.Constraint{{Sub: a, Sup: b}, {Sub: b, Sup: a}}, got)
}

func TestVarianceOfAdts(t *testing.T) {
	f := newFixture(t, infer.Options{})
	a, b := types.NewEarlyBound(0, "a"), types.NewEarlyBound(1, "b")

	_, err := f.at.Sub(f.vecOf(ref(a, u8)), f.vecOf(ref(b, u8)))
	require.NoError(t, err)
	assert.Equal(t, 1, f.infcx.RegionConstraints().NumConstraints())

	_, err = f.at.Sub(f.cellOf(ref(a, u8)), f.cellOf(ref(b, u8)))
	require.NoError(t, err)
	assert.Equal(t, 3, f.infcx.RegionConstraints().NumConstraints(), "invariant parameters relate both ways")
}

func TestGeneralization(t *testing.T) {
	f := newFixture(t, infer.Options{})
	x := types.NewEarlyBound(0, "x")
	v := f.infcx.NewTyVar(infer.TypeVariableOrigin{})

	_, err := f.at.Sub(v, ref(x, u8))
	require.NoError(t, err)
	assert.Equal(t, "&'?0 u8", f.infcx.ResolveVarsTy(v).String())
	assert.Equal(t, []infer.Constraint{{Sub: x, Sup: types.NewRegionVar(0)}}, f.infcx.RegionConstraints().ConstraintsSince(0))

	w := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	_, err = f.at.Eq(w, ref(x, u8))
	require.NoError(t, err)
	assert.Equal(t, "&'x u8", f.infcx.ResolveVarsTy(w).String(), "invariant positions keep nameable regions")
}

func TestGeneralizationInBivariantPosition(t *testing.T) {
	f := newFixture(t, infer.Options{})
	phantom := f.tcx.NewDef(types.LocalCrate, "Phantom")
	f.tcx.AddAdt(&types.AdtDef{Def: phantom, Generics: types.TypeParams("T"), Variances: []types.Variance{types.Bivariant}})
	w := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	v := f.infcx.NewTyVar(infer.TypeVariableOrigin{})

	obligations, err := f.at.Sub(types.Adt{Def: phantom, Args: types.Args{w}}, v)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	wf, ok := obligations[0].Predicate.Value.(types.WellFormed)
	require.True(t, ok, "got %v", obligations[0].Predicate.Value)

	got, ok := f.infcx.ResolveVarsTy(v).(types.Adt)
	require.True(t, ok)
	assert.True(t, types.Equal[types.GenericArg](got, wf.Arg), "the generalized type must be well-formed")
	fresh, ok := types.TyVidOf(got.Args.TypeAt(0))
	require.True(t, ok, "bivariant positions get a fresh variable")

	wvid, _ := types.TyVidOf(w)
	assert.False(t, f.infcx.ProbeTyVar(wvid).IsKnown())
	assert.False(t, f.infcx.ProbeTyVar(fresh).IsKnown())
	assert.NotEqual(t, f.infcx.TypeVariables().Root(wvid), f.infcx.TypeVariables().Root(fresh))
	assert.NotEqual(t, wvid, fresh)
}

func TestUniverseEscape(t *testing.T) {
	f := newFixture(t, infer.Options{})
	v := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	u := f.infcx.CreateNextUniverse()

	_, err := f.at.Eq(v, f.vecOf(types.PlaceholderTy{Universe: u, Var: 0}))
	assert.True(t, tyerr.Is(err, tyerr.Mismatch), "got %v", err)

	inner := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	_, err = f.at.Eq(inner, types.PlaceholderTy{Universe: u, Var: 0})
	assert.NoError(t, err)
}

func TestVarVarSubtyping(t *testing.T) {
	f := newFixture(t, infer.Options{})
	a := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	b := f.infcx.NewTyVar(infer.TypeVariableOrigin{})

	obligations, err := f.at.Sub(a, b)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.IsType(t, types.SubtypePredicate{}, obligations[0].Predicate.Value)

	avid, _ := types.TyVidOf(a)
	bvid, _ := types.TyVidOf(b)
	assert.True(t, f.infcx.TypeVariables().SubUnified(avid, bvid))
	assert.NotEqual(t, f.infcx.TypeVariables().Root(avid), f.infcx.TypeVariables().Root(bvid))
}

func TestLatticeWithVariables(t *testing.T) {
	f := newFixture(t, infer.Options{})
	a := f.infcx.NewTyVar(infer.TypeVariableOrigin{})

	lub, err := f.at.Lub(a, i32)
	require.NoError(t, err)
	assert.True(t, types.IsTyVar(lub.Value))

	glb, err := f.at.Glb(f.vecOf(i32), f.vecOf(i32))
	require.NoError(t, err)
	assert.Equal(t, "Vec<i32>", glb.Value.String())

	_, err = f.at.Lub(i32, u32)
	assert.Error(t, err)
}

func TestHigherRankedSubtyping(t *testing.T) {
	poly := types.FnPtr{Sig: types.Bind(types.FnSig{
		Inputs: types.TyList{ref(types.NewLateBound(0, 0), u8)},
		Output: types.Unit,
	}, types.BoundRegionKind)}
	mono := fn(types.Unit, ref(types.Static, u8))

	testCases := []struct {
		name     string
		sub, sup types.Ty
		wantLeak bool
	}{
		{"general is a subtype of specific", poly, mono, false},
		{"specific is not a subtype of general", mono, poly, true},
		{"general is a subtype of itself", poly, poly, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, infer.Options{})
			snap := f.infcx.StartSnapshot()
			_, err := f.at.Sub(tc.sub, tc.sup)
			require.NoError(t, err)
			leak := f.infcx.LeakCheck(snap.Universe(), &snap)
			if tc.wantLeak {
				assert.True(t, tyerr.Is(leak, tyerr.RegionsPlaceholderMismatch), "got %v", leak)
			} else {
				assert.NoError(t, leak)
			}
			f.infcx.RollbackTo(snap)
		})
	}
}

func TestDynamicBoundsAreUnordered(t *testing.T) {
	f := newFixture(t, infer.Options{})
	debug := types.Dummy[types.ExistentialPredicate](types.ExistentialTrait{Def: f.debug})
	send := types.Dummy[types.ExistentialPredicate](types.ExistentialAutoTrait{Def: f.send})

	a := types.Dynamic{Preds: []types.Binder[types.ExistentialPredicate]{debug, send}, Region: types.Static}
	b := types.Dynamic{Preds: []types.Binder[types.ExistentialPredicate]{send, debug, send}, Region: types.Static}
	_, err := f.at.Eq(a, b)
	assert.NoError(t, err)

	c := types.Dynamic{Preds: []types.Binder[types.ExistentialPredicate]{debug}, Region: types.Static}
	_, err = f.at.Eq(a, c)
	assert.True(t, tyerr.Is(err, tyerr.ExistentialMismatch), "got %v", err)
}

func TestConsts(t *testing.T) {
	f := newFixture(t, infer.Options{})
	usize := types.Uint{Width: types.Usize}
	n := f.infcx.NewConstVar(usize)

	_, err := f.at.EqConsts(n, types.NewUsize(3))
	require.NoError(t, err)
	got, ok := types.TryEvalUsize(f.infcx.ShallowResolveConst(n))
	require.True(t, ok)
	assert.Equal(t, uint64(3), got)

	_, err = f.at.EqConsts(types.NewUsize(3), types.NewUsize(4))
	assert.True(t, tyerr.Is(err, tyerr.ConstMismatch), "got %v", err)

	// consts of different types are reported elsewhere
	_, err = f.at.EqConsts(types.NewConstValue(u8, 1), types.NewUsize(1))
	assert.NoError(t, err)

	for _, tt := range []struct {
		name string
		eq   func(m types.Const) error
	}{
		{"variable on the left", func(m types.Const) error {
			_, err := f.at.EqConsts(m, types.NewUsize(1))
			return err
		}},
		{"variable on the right", func(m types.Const) error {
			_, err := f.at.EqConsts(types.NewUsize(1), m)
			return err
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := f.infcx.NewConstVar(u8)
			require.NoError(t, tt.eq(m))
			resolved := f.infcx.ShallowResolveConst(m)
			assert.IsType(t, types.ConstError{}, resolved, "got %v", resolved)
			assert.True(t, types.Equal[types.Ty](u8, resolved.Type()))
		})
	}

	def := f.tcx.NewDef(types.LocalCrate, "N")
	obligations, err := f.at.EqConsts(types.NewConstUnevaluated(usize, def, nil), types.NewUsize(3))
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.IsType(t, types.ConstEquate{}, obligations[0].Predicate.Value)
}

func TestAliasesWithNextSolver(t *testing.T) {
	f := newFixture(t, infer.Options{NextSolver: true})
	item := f.tcx.NewDef(types.LocalCrate, "Item")
	proj := types.Alias{AliasTy: types.AliasTy{Kind: types.Projection, Def: item, Args: types.Args{i32}}}

	obligations, err := f.at.Eq(proj, u32)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	rel, ok := obligations[0].Predicate.Value.(types.AliasRelate)
	require.True(t, ok)
	assert.Equal(t, types.AliasEquate, rel.Dir)
}

func TestOpaquesInIntercrate(t *testing.T) {
	f := newFixture(t, infer.Options{Intercrate: true})
	opaque := func(name string) func(types.Ty) types.Ty {
		def := f.tcx.NewDef(types.LocalCrate, name)
		f.tcx.AddOpaque(&types.OpaqueDef{Def: def, Generics: types.TypeParams("T")})
		return func(arg types.Ty) types.Ty {
			return types.Alias{AliasTy: types.AliasTy{Kind: types.Opaque, Def: def, Args: types.Args{arg}}}
		}
	}
	first, second := opaque("First"), opaque("Second")

	t.Run("same opaque is ambiguous", func(t *testing.T) {
		obligations, err := f.at.Eq(first(i32), first(u32))
		require.NoError(t, err)
		require.Len(t, obligations, 1)
		assert.IsType(t, types.AmbiguousPredicate{}, obligations[0].Predicate.Value)
	})
	testCases := []struct {
		name string
		a, b types.Ty
	}{
		{"opaque and concrete type", first(i32), u32},
		{"concrete type and opaque", u32, first(i32)},
		{"different opaques", first(i32), second(i32)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obligations, err := f.at.Eq(tc.a, tc.b)
			assert.True(t, tyerr.Is(err, tyerr.Sorts), "got %v", err)
			assert.Empty(t, obligations)
		})
	}
}

func TestIdempotentEquality(t *testing.T) {
	f := newFixture(t, infer.Options{})
	a := f.infcx.NewTyVar(infer.TypeVariableOrigin{})
	ty := types.Tuple{Elems: types.TyList{a, f.vecOf(a)}}
	before := f.infcx.TypeVariables().Len()

	obligations, err := f.at.Eq(ty, ty)
	require.NoError(t, err)
	assert.Empty(t, obligations)
	assert.Equal(t, before, f.infcx.TypeVariables().Len())
}
