package coherence

import (
	"context"
	"errors"
	"testing"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/solve"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	i32    = types.Int{Width: types.I32}
	u8     = types.Uint{Width: types.U8}
	u32    = types.Uint{Width: types.U32}
	str    = types.Str{}
	paramT = types.Param{Index: 0, Name: "T"}
)

type fixture struct {
	tcx *types.Tcx
	std types.CrateNum

	trait, marker       types.DefId
	display, err, from  types.DefId
	fundamentalTrait    types.DefId
	foo, vec, box, list types.DefId
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tcx := types.NewTcx("local")
	f := &fixture{tcx: tcx, std: tcx.AddCrate("std")}

	f.trait = f.addTrait(types.LocalCrate, "Trait")
	f.marker = f.addTrait(types.LocalCrate, "Marker")
	f.display = f.addTrait(f.std, "Display")
	f.err = f.addTrait(f.std, "Error")
	f.from = f.addTrait(f.std, "From", "T")
	f.fundamentalTrait = f.addTrait(f.std, "Fn")
	tcx.Trait(f.fundamentalTrait).Fundamental = true

	f.foo = tcx.NewDef(types.LocalCrate, "Foo")
	tcx.AddAdt(&types.AdtDef{Def: f.foo})
	f.list = tcx.NewDef(types.LocalCrate, "List")
	tcx.AddAdt(&types.AdtDef{Def: f.list, Generics: types.TypeParams("T"), Variants: []types.VariantDef{{Fields: types.TyList{paramT}}}})
	f.vec = tcx.NewDef(f.std, "Vec")
	tcx.AddAdt(&types.AdtDef{Def: f.vec, Generics: types.TypeParams("T"), Variants: []types.VariantDef{{Fields: types.TyList{types.RawPtr{Elem: paramT}}}}})
	f.box = tcx.NewDef(f.std, "Box")
	tcx.AddAdt(&types.AdtDef{Def: f.box, Generics: types.TypeParams("T"), Fundamental: true, Variants: []types.VariantDef{{Fields: types.TyList{types.RawPtr{Elem: paramT}}}}})

	// impl !Error for str, in std
	noErr := f.addImplIn(f.std, f.err, types.Generics{}, types.Args{str})
	noErr.Polarity = types.Negative
	return f
}

func (f *fixture) addTrait(crate types.CrateNum, name string, params ...string) types.DefId {
	def := f.tcx.NewDef(crate, name)
	f.tcx.AddTrait(&types.TraitDef{Def: def, Generics: types.TypeParams(append([]string{"Self"}, params...)...), ObjectSafe: true})
	return def
}

func (f *fixture) addImplIn(crate types.CrateNum, trait types.DefId, generics types.Generics, args types.Args, preds ...types.Predicate) *types.ImplDef {
	impl := &types.ImplDef{
		Def:      f.tcx.NewDef(crate, "impl"),
		Generics: generics,
		TraitRef: &types.TraitRef{Def: trait, Args: args},
		SelfTy:   args.TypeAt(0),
	}
	for _, p := range preds {
		impl.Predicates = append(impl.Predicates, types.Dummy(p))
	}
	f.tcx.AddImpl(impl)
	return impl
}

func (f *fixture) addImpl(trait types.DefId, generics types.Generics, self types.Ty, preds ...types.Predicate) types.DefId {
	return f.addImplIn(types.LocalCrate, trait, generics, types.Args{self}, preds...).Def
}

func (f *fixture) vecOf(t types.Ty) types.Ty  { return types.Adt{Def: f.vec, Args: types.Args{t}} }
func (f *fixture) boxOf(t types.Ty) types.Ty  { return types.Adt{Def: f.box, Args: types.Args{t}} }
func (f *fixture) listOf(t types.Ty) types.Ty { return types.Adt{Def: f.list, Args: types.Args{t}} }
func (f *fixture) fooTy() types.Ty            { return types.Adt{Def: f.foo} }

func bound(trait types.DefId, self types.Ty) types.Predicate {
	return types.TraitPredicate{TraitRef: types.NewTraitRef(trait, self)}
}

func checker(f *fixture, mode OverlapMode) *Checker {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return NewChecker(f.tcx, cfg)
}

func TestOverlappingImpls(t *testing.T) {
	testCases := []struct {
		name    string
		impls   func(f *fixture) (types.DefId, types.DefId)
		mode    OverlapMode
		overlap bool
	}{
		{
			name: "blanket and specific impl",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.TypeParams("T"), f.vecOf(paramT)),
					f.addImpl(f.trait, types.Generics{}, f.vecOf(i32))
			},
			overlap: true,
		},
		{
			name: "different self types",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.Generics{}, i32), f.addImpl(f.trait, types.Generics{}, u32)
			},
		},
		{
			name: "where-clause that can never hold",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.Generics{}, f.fooTy()),
					f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.marker, paramT))
			},
		},
		{
			name: "where-clause that can never hold, without implicit negative reasoning",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.Generics{}, f.fooTy()),
					f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.marker, paramT))
			},
			mode:    Strict,
			overlap: true,
		},
		{
			name: "where-clause that holds",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				f.addImpl(f.marker, types.Generics{}, f.fooTy())
				return f.addImpl(f.trait, types.Generics{}, f.fooTy()),
					f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.marker, paramT))
			},
			overlap: true,
		},
		{
			name: "upstream crate may implement the where-clause",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.Generics{}, str),
					f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.err, paramT))
			},
			overlap: true,
		},
		{
			name: "negative impl disproves the where-clause",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				return f.addImpl(f.trait, types.Generics{}, str),
					f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.err, paramT))
			},
			mode: WithNegative,
		},
		{
			name: "inherent impls",
			impls: func(f *fixture) (types.DefId, types.DefId) {
				a := &types.ImplDef{Def: f.tcx.NewDef(types.LocalCrate, "impl"), Generics: types.TypeParams("T"), SelfTy: f.listOf(paramT)}
				b := &types.ImplDef{Def: f.tcx.NewDef(types.LocalCrate, "impl"), SelfTy: f.listOf(u8)}
				f.tcx.AddImpl(a)
				f.tcx.AddImpl(b)
				return a.Def, b.Def
			},
			overlap: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			a, b := tc.impls(f)
			c := checker(f, tc.mode)
			_, ok := c.OverlappingImpls(a, b)
			assert.Equal(t, tc.overlap, ok)
			_, ok = c.OverlappingImpls(b, a)
			assert.Equal(t, tc.overlap, ok, "overlap is symmetric")
		})
	}
}

func TestOverlapHeaderIsUnified(t *testing.T) {
	f := newFixture(t)
	blanket := f.addImpl(f.trait, types.TypeParams("T"), f.vecOf(paramT))
	specific := f.addImpl(f.trait, types.Generics{}, f.vecOf(i32))

	res, ok := checker(f, Stable).OverlappingImpls(blanket, specific)
	require.True(t, ok)
	assert.Equal(t, blanket, res.Header.Impl)
	assert.True(t, types.Equal(res.Header.SelfTy, f.vecOf(i32)), "got %v", res.Header.SelfTy)
	require.NotNil(t, res.Header.TraitRef)
	assert.False(t, types.HasInfer(*res.Header.TraitRef))
	assert.Empty(t, res.AmbiguityCauses)
	assert.False(t, res.InvolvesPlaceholder)
}

func TestOverlapRecordsAmbiguityCauses(t *testing.T) {
	f := newFixture(t)
	specific := f.addImpl(f.trait, types.Generics{}, str)
	blanket := f.addImpl(f.trait, types.TypeParams("T"), paramT, bound(f.err, paramT))

	res, ok := checker(f, Stable).OverlappingImpls(specific, blanket)
	require.True(t, ok)
	require.Len(t, res.AmbiguityCauses, 1)
	cause := res.AmbiguityCauses[0]
	assert.Equal(t, solve.CauseUpstreamCrateUpdate, cause.Kind)
	assert.Equal(t, "str", cause.SelfDesc)
	assert.Contains(t, cause.String(), "upstream crates may add a new impl")
}

func TestHigherRankedImplsDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	poly := types.FnPtr{Sig: types.Bind(types.FnSig{
		Inputs: types.TyList{types.Ref{Region: types.NewLateBound(0, 0), Elem: u8}},
		Output: types.Unit,
	}, types.BoundRegionKind)}
	mono := types.FnPtr{Sig: types.Dummy(types.FnSig{
		Inputs: types.TyList{types.Ref{Region: types.Static, Elem: u8}},
		Output: types.Unit,
	})}
	a := f.addImpl(f.trait, types.Generics{}, mono)
	b := f.addImpl(f.trait, types.Generics{}, poly)

	_, ok := checker(f, Stable).OverlappingImpls(a, b)
	assert.False(t, ok)

	cfg := DefaultConfig()
	cfg.SkipLeakCheck = true
	res, ok := NewChecker(f.tcx, cfg).OverlappingImpls(a, b)
	require.True(t, ok)
	assert.True(t, res.InvolvesPlaceholder)
}

func TestTraitRefIsKnowable(t *testing.T) {
	f := newFixture(t)
	v := types.NewTyVar(0)
	testCases := []struct {
		name string
		ref  types.TraitRef
		want solve.ConflictKind
	}{
		{"local trait, unknown self type", types.NewTraitRef(f.trait, v), solve.Downstream},
		{"local trait", types.NewTraitRef(f.trait, i32), solve.NoConflict},
		{"local trait, foreign type", types.NewTraitRef(f.trait, f.vecOf(i32)), solve.NoConflict},
		{"fundamental trait", types.NewTraitRef(f.fundamentalTrait, i32), solve.NoConflict},
		{"unknown self type", types.NewTraitRef(f.display, v), solve.Downstream},
		{"through a fundamental type", types.NewTraitRef(f.display, f.boxOf(v)), solve.Downstream},
		{"behind a foreign type", types.NewTraitRef(f.display, f.vecOf(v)), solve.Upstream},
		{"foreign type", types.NewTraitRef(f.display, i32), solve.Upstream},
		{"local type", types.NewTraitRef(f.display, f.fooTy()), solve.NoConflict},
		{"local type in a fundamental type", types.NewTraitRef(f.display, f.boxOf(f.fooTy())), solve.NoConflict},
		{"local type in a foreign type", types.NewTraitRef(f.display, f.vecOf(f.fooTy())), solve.Upstream},
		{"local type parameter", types.NewTraitRef(f.from, i32, f.fooTy()), solve.NoConflict},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TraitRefIsKnowable(f.tcx, tc.ref), "%v", tc.ref)
		})
	}
}

func TestOrphanCheck(t *testing.T) {
	testCases := []struct {
		name     string
		generics types.Generics
		trait    func(f *fixture) types.DefId
		args     func(f *fixture) types.Args
		want     tyerr.ErrCode
	}{
		{"local type", types.Generics{}, func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args { return types.Args{f.fooTy()} }, tyerr.None},
		{"local trait", types.Generics{}, func(f *fixture) types.DefId { return f.trait }, func(f *fixture) types.Args { return types.Args{f.vecOf(i32)} }, tyerr.None},
		{"boxed local type", types.Generics{}, func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args { return types.Args{f.boxOf(f.fooTy())} }, tyerr.None},
		{"reference to a local type", types.Generics{}, func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args {
			return types.Args{types.Ref{Region: types.Static, Elem: f.fooTy()}}
		}, tyerr.None},
		{"local type in a foreign type", types.Generics{}, func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args { return types.Args{f.vecOf(f.fooTy())} }, tyerr.NonLocalInputType},
		{"foreign scalar", types.Generics{}, func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args { return types.Args{i32} }, tyerr.NonLocalInputType},
		{"blanket", types.TypeParams("T"), func(f *fixture) types.DefId { return f.display }, func(*fixture) types.Args { return types.Args{paramT} }, tyerr.UncoveredTy},
		{"boxed parameter", types.TypeParams("T"), func(f *fixture) types.DefId { return f.display }, func(f *fixture) types.Args { return types.Args{f.boxOf(paramT)} }, tyerr.UncoveredTy},
		{"parameter covered by a foreign type", types.TypeParams("T"), func(f *fixture) types.DefId { return f.from }, func(f *fixture) types.Args {
			return types.Args{f.vecOf(paramT), f.fooTy()}
		}, tyerr.None},
		{"parameter before the local type", types.TypeParams("T"), func(f *fixture) types.DefId { return f.from }, func(f *fixture) types.Args {
			return types.Args{paramT, f.fooTy()}
		}, tyerr.UncoveredTy},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			impl := f.addImplIn(types.LocalCrate, tc.trait(f), tc.generics, tc.args(f))
			err := OrphanCheck(f.tcx, impl.Def)
			if tc.want == tyerr.None {
				assert.NoError(t, err)
				return
			}
			assert.True(t, tyerr.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestUncoveredTyNamesTheLocalTypeAfterIt(t *testing.T) {
	f := newFixture(t)
	impl := f.addImplIn(types.LocalCrate, f.from, types.TypeParams("T"), types.Args{paramT, f.fooTy()})
	err := OrphanCheck(f.tcx, impl.Def)
	var uncovered tyerr.NewUncoveredTy
	require.True(t, errors.As(err, &uncovered), "got %v", err)
	assert.Equal(t, paramT, uncovered.Param)
	assert.True(t, types.Equal(uncovered.LocalAfter, f.fooTy()))
}

func TestCheckAll(t *testing.T) {
	f := newFixture(t)
	blanket := f.addImpl(f.trait, types.TypeParams("T"), f.vecOf(paramT))
	specific := f.addImpl(f.trait, types.Generics{}, f.vecOf(i32))
	f.addImpl(f.trait, types.Generics{}, i32)
	f.addImpl(f.marker, types.Generics{}, i32)
	markerBlanket := f.addImpl(f.marker, types.TypeParams("T"), paramT, bound(f.trait, paramT))
	orphan := f.addImplIn(types.LocalCrate, f.display, types.Generics{}, types.Args{f.vecOf(f.fooTy())}).Def

	overlaps, err := checker(f, Stable).CheckAll(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, overlaps, 2)
	assert.Equal(t, ImplPair{Fst: blanket, Snd: specific}, overlaps[0].Impls)
	assert.Equal(t, markerBlanket, overlaps[1].Impls.Snd)

	violations := CheckOrphans(f.tcx)
	require.Len(t, violations, 1)
	assert.Equal(t, orphan, violations[0].Impl)
	assert.True(t, tyerr.Is(violations[0].Err, tyerr.NonLocalInputType))

	errs := OrphanErrors(violations)
	require.True(t, errs.HasError())
	require.Len(t, errs.Errors(), 1)
	assert.Equal(t, tyerr.NonLocalInputType, errs.Errors()[0].Code())
	assert.False(t, OrphanErrors(nil).HasError())
}

func TestCheckAllStopsWhenCancelled(t *testing.T) {
	f := newFixture(t)
	f.addImpl(f.trait, types.TypeParams("T"), f.vecOf(paramT))
	f.addImpl(f.trait, types.Generics{}, f.vecOf(i32))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := checker(f, Stable).CheckAll(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseOverlapMode(t *testing.T) {
	for _, m := range []OverlapMode{Stable, WithNegative, Strict} {
		parsed, err := ParseOverlapMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseOverlapMode("lenient")
	assert.Error(t, err)
}

func TestMarkerTraitImplsMayOverlap(t *testing.T) {
	f := newFixture(t)
	f.tcx.Trait(f.marker).IsMarker = true
	f.addImpl(f.marker, types.TypeParams("T"), paramT)
	f.addImpl(f.marker, types.Generics{}, i32)
	assert.Empty(t, ImplPairs(f.tcx))
}

func TestProveInCoherenceMode(t *testing.T) {
	f := newFixture(t)
	c := checker(f, Stable)
	o := infer.Obligation{Cause: infer.MiscCause, Predicate: types.Dummy(bound(f.display, f.vecOf(f.fooTy())))}
	certainty, causes := c.Prove(o)
	assert.True(t, certainty.IsAmbiguous())
	require.Len(t, causes, 1)
	assert.Equal(t, solve.CauseUpstreamCrateUpdate, causes[0].Kind)

	o.Predicate = types.Dummy(bound(f.trait, f.fooTy()))
	certainty, causes = c.Prove(o)
	assert.True(t, certainty.IsNo())
	assert.Empty(t, causes)
}

func TestImplHeaderString(t *testing.T) {
	f := newFixture(t)
	from := f.addImplIn(types.LocalCrate, f.from, types.TypeParams("T"), types.Args{f.vecOf(paramT), f.fooTy()}, bound(f.display, paramT))
	assert.Equal(t, "impl From<Foo> for Vec<T> where T: Display", DeclaredHeader(f.tcx, from.Def).String())

	inherent := &types.ImplDef{Def: f.tcx.NewDef(types.LocalCrate, "impl"), SelfTy: f.fooTy()}
	f.tcx.AddImpl(inherent)
	assert.Equal(t, "impl Foo", DeclaredHeader(f.tcx, inherent.Def).String())
}
