package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	i32  = Int{Width: I32}
	u8   = Uint{Width: U8}
	tPar = Param{Index: 0, Name: "T"}
	uPar = Param{Index: 1, Name: "U"}
)

func TestPrint(t *testing.T) {
	vec := DefId{Krate: LocalCrate, Index: 3, Name: "Vec"}
	debug := DefId{Krate: LocalCrate, Index: 4, Name: "Debug"}
	send := DefId{Krate: LocalCrate, Index: 5, Name: "Send"}
	item := DefId{Krate: LocalCrate, Index: 6, Name: "Item"}
	testCases := []struct {
		name string
		v    interface{ String() string }
		want string
	}{
		{"unit", Tuple{}, "()"},
		{"one tuple", Tuple{Elems: TyList{i32}}, "(i32,)"},
		{"array", Array{Elem: u8, Len: NewUsize(4)}, "[u8; 4]"},
		{"mut ref", Ref{Region: Static, Elem: Str{}, Mut: Mut}, "&'static mut str"},
		{"erased ref", Ref{Region: Erased, Elem: i32}, "&i32"},
		{"raw", RawPtr{Elem: i32}, "*const i32"},
		{"adt", Adt{Def: vec, Args: Args{tPar}}, "Vec<T>"},
		{"fn", FnPtr{Sig: Dummy(FnSig{Inputs: TyList{i32}, Output: Bool{}})}, "fn(i32) -> bool"},
		{"unit fn", FnPtr{Sig: Dummy(FnSig{Output: Unit})}, "fn()"},
		{"extern fn", FnPtr{Sig: Dummy(FnSig{Abi: AbiC, CVariadic: true, Inputs: TyList{i32}})}, `extern "C" fn(i32, ...)`},
		{"higher ranked", FnPtr{Sig: Bind(FnSig{Inputs: TyList{Ref{Region: NewLateBound(0, 0), Elem: u8}}}, BoundRegionKind)}, "for<'^0> fn(&'^0_0 u8)"},
		{"dyn", Dynamic{Preds: []Binder[ExistentialPredicate]{
			Dummy[ExistentialPredicate](ExistentialTrait{Def: debug}),
			Dummy[ExistentialPredicate](ExistentialAutoTrait{Def: send}),
		}, Region: Static}, "dyn Debug + Send + 'static"},
		{"projection", Alias{AliasTy: AliasTy{Kind: Projection, Def: item, Args: Args{tPar}}}, "<T as _>::Item"},
		{"trait predicate", TraitPredicate{TraitRef: NewTraitRef(debug, i32)}, "i32: Debug"},
		{"negative", TraitPredicate{TraitRef: NewTraitRef(send, tPar), Polarity: Negative}, "!T: Send"},
		{"outlives", TypeOutlives{Ty: tPar, Region: Static}, "T: 'static"},
		{"ty var", NewTyVar(7), "?7t"},
		{"const expr", NewConstExpr(Uint{Width: Usize}, Expr{Kind: ExprBinop, Op: "+", Operands: []Const{NewUsize(1), NewConstParam(Uint{Width: Usize}, 0, "N")}}), "(1 + N)"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.v.String())
		})
	}
}

func TestKeyTellsApartWhatPrintingConflates(t *testing.T) {
	a := DefId{Krate: LocalCrate, Index: 1, Name: "Foo"}
	b := DefId{Krate: 1, Index: 1, Name: "Foo"}
	assert.Equal(t, Adt{Def: a}.String(), Adt{Def: b}.String())
	assert.NotEqual(t, Key(Adt{Def: a}), Key(Adt{Def: b}))
	assert.True(t, Equal[Ty](Adt{Def: a, Args: Args{i32}}, Adt{Def: a, Args: Args{i32}}))
	assert.False(t, Equal[Ty](Param{Index: 0, Name: "T"}, Param{Index: 1, Name: "T"}))
}

func TestInstantiate(t *testing.T) {
	vec := DefId{Index: 1, Name: "Vec"}
	generic := Tuple{Elems: TyList{tPar, Adt{Def: vec, Args: Args{uPar}}, Ref{Region: NewEarlyBound(2, "a"), Elem: tPar}}}
	got := Instantiate[Ty](generic, Args{i32, u8, Static})
	assert.Equal(t, "(i32, Vec<u8>, &'static i32)", got.String())
	assert.False(t, HasParams(got))
	assert.True(t, HasParams[Ty](generic))

	assert.Panics(t, func() { Instantiate[Ty](uPar, Args{i32}) })
}

func TestTermFlags(t *testing.T) {
	late := FnPtr{Sig: Bind(FnSig{Inputs: TyList{Ref{Region: NewLateBound(0, 0), Elem: u8}}}, BoundRegionKind)}
	escaping := Ref{Region: NewLateBound(0, 0), Elem: u8}
	assert.False(t, HasEscapingBoundVars[Ty](late), "bound by its own binder")
	assert.True(t, HasEscapingBoundVars[Ty](escaping))

	assert.True(t, HasInfer[Ty](Tuple{Elems: TyList{i32, NewIntVar(0)}}))
	assert.True(t, HasTyInfer[Ty](Tuple{Elems: TyList{i32, NewIntVar(0)}}), "int variables count")
	regionVar := Ref{Region: NewRegionVar(0), Elem: u8}
	assert.True(t, HasInfer[Ty](regionVar))
	assert.False(t, HasTyInfer[Ty](regionVar), "region variables only")
	assert.True(t, HasTyInfer[Ty](Slice{Elem: NewTyVar(0)}))
	assert.True(t, HasErrors[Ty](Slice{Elem: Error{}}))
	assert.True(t, HasPlaceholders[Ty](PlaceholderTy{Universe: 1}))
}

func TestWalk(t *testing.T) {
	ty := Tuple{Elems: TyList{Ref{Region: Static, Elem: tPar}, Array{Elem: uPar, Len: NewUsize(2)}}}
	var seen []string
	Walk[Ty](ty, func(arg GenericArg) bool {
		if _, ok := arg.(Array); ok {
			seen = append(seen, "array")
			return false
		}
		seen = append(seen, printTerm(arg, false))
		return true
	})
	assert.Equal(t, []string{"(&'static T, [U; 2])", "&'static T", "'static", "T", "array"}, seen)
}

type replaceWith struct{ ty Ty }

func (r replaceWith) ReplaceTy(BoundTy) Ty          { return r.ty }
func (r replaceWith) ReplaceRegion(Region) Region   { return Static }
func (r replaceWith) ReplaceConst(ConstBound) Const { return NewUsize(0) }

func TestReplaceBoundVars(t *testing.T) {
	// for<T> (T, for<'a> fn(&'a T))
	inner := FnPtr{Sig: Bind(FnSig{Inputs: TyList{Ref{Region: NewLateBound(0, 0), Elem: BoundTy{Debruijn: 1}}}}, BoundRegionKind)}
	b := Bind[Ty](Tuple{Elems: TyList{BoundTy{Debruijn: 0}, inner}}, BoundTyKind)
	got := ReplaceBoundVars(b, replaceWith{ty: i32})
	assert.Equal(t, "(i32, for<'^0> fn(&'^0_0 i32))", got.String())
}

func TestFoldOmittedOutput(t *testing.T) {
	generic := FnPtr{Sig: Dummy(FnSig{Inputs: TyList{tPar}})}
	tests := []struct {
		name string
		fold func() Ty
		want string
	}{
		{"instantiate", func() Ty { return Instantiate[Ty](generic, Args{i32}) }, "fn(i32)"},
		{"bottom up", func() Ty {
			return Fold[Ty](BottomUpFolder{Ty: func(t Ty) Ty { return t }}, generic)
		}, "fn(T)"},
		{"generator", func() Ty {
			return Instantiate[Ty](Generator{Def: DefId{Index: 9, Name: "gen"}, Args: Args{tPar}}, Args{u8})
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Ty
			require.NotPanics(t, func() { got = tt.fold() })
			if tt.want != "" {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
	got := Instantiate[Ty](generic, Args{i32}).(FnPtr)
	assert.Nil(t, got.Sig.SkipBinder().Output)
}

func TestVariance(t *testing.T) {
	testCases := []struct {
		ambient, nested, want Variance
	}{
		{Covariant, Contravariant, Contravariant},
		{Contravariant, Contravariant, Covariant},
		{Contravariant, Invariant, Invariant},
		{Invariant, Covariant, Invariant},
		{Bivariant, Invariant, Bivariant},
		{Covariant, Bivariant, Bivariant},
	}
	for _, tc := range testCases {
		t.Run(tc.ambient.String()+tc.nested.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.ambient.Xform(tc.nested))
		})
	}
	for _, s := range []string{"+", "-", "*", "o"} {
		v, ok := ParseVariance(s)
		require.True(t, ok)
		assert.Equal(t, s, v.String())
	}
	_, ok := ParseVariance("sideways")
	assert.False(t, ok)
}

func TestTcx(t *testing.T) {
	tcx := NewTcx("local")
	core := tcx.AddCrate("core")
	partialEq := tcx.NewDef(core, "PartialEq")
	eq := tcx.NewDef(core, "Eq")
	ord := tcx.NewDef(core, "Ord")
	tcx.AddTrait(&TraitDef{Def: partialEq, Generics: TypeParams("Self")})
	tcx.AddTrait(&TraitDef{Def: eq, Generics: TypeParams("Self"), Supertraits: []Clause{
		Dummy[Predicate](TraitPredicate{TraitRef: NewTraitRef(partialEq, Param{Index: 0, Name: "Self"})}),
	}})
	tcx.AddTrait(&TraitDef{Def: ord, Generics: TypeParams("Self"), Supertraits: []Clause{
		Dummy[Predicate](TraitPredicate{TraitRef: NewTraitRef(eq, Param{Index: 0, Name: "Self"})}),
		Dummy[Predicate](TraitPredicate{TraitRef: NewTraitRef(partialEq, Param{Index: 0, Name: "Self"})}),
	}})

	t.Run("supertraits", func(t *testing.T) {
		var names []string
		for _, r := range tcx.Supertraits(NewTraitRef(ord, i32)) {
			names = append(names, r.String())
		}
		assert.ElementsMatch(t, []string{"i32: Ord", "i32: Eq", "i32: PartialEq"}, names)
	})

	t.Run("impls in insertion order", func(t *testing.T) {
		first := &ImplDef{Def: tcx.NewDef(LocalCrate, "impl"), TraitRef: &TraitRef{Def: eq, Args: Args{i32}}, SelfTy: i32}
		second := &ImplDef{Def: tcx.NewDef(LocalCrate, "impl"), TraitRef: &TraitRef{Def: eq, Args: Args{u8}}, SelfTy: u8}
		inherent := &ImplDef{Def: tcx.NewDef(LocalCrate, "impl"), SelfTy: u8}
		tcx.AddImpl(first)
		tcx.AddImpl(second)
		tcx.AddImpl(inherent)
		assert.Equal(t, []DefId{first.Def, second.Def}, tcx.ImplsOf(eq))
		assert.Empty(t, tcx.ImplsOf(ord))
		assert.Equal(t, []DefId{inherent.Def}, tcx.InherentImpls())

		var traits []DefId
		tcx.ImplsByTrait(func(trait DefId, _ []DefId) { traits = append(traits, trait) })
		assert.Equal(t, []DefId{partialEq, eq, ord}, traits)
	})

	t.Run("lang items", func(t *testing.T) {
		tcx.SetLangItem(LangSized, ord)
		item, ok := tcx.LangItemOf(ord)
		require.True(t, ok)
		assert.Equal(t, LangSized, item)
		assert.True(t, tcx.IsLangItem(ord, LangSized))
		parsed, ok := ParseLangItem("sized")
		assert.True(t, ok)
		assert.Equal(t, LangSized, parsed)
	})

	t.Run("const evaluation", func(t *testing.T) {
		n := tcx.NewDef(LocalCrate, "N")
		m := tcx.NewDef(LocalCrate, "M")
		usize := Uint{Width: Usize}
		tcx.AddConstItem(ConstItem{Def: n, Ty: usize, Value: NewUsize(8)})
		tcx.AddConstItem(ConstItem{Def: m, Ty: usize, Value: NewConstUnevaluated(usize, n, nil)})
		v, ok := tcx.EvalConst(NewConstUnevaluated(usize, m, nil).(ConstUnevaluated))
		require.True(t, ok)
		got, _ := TryEvalUsize(v)
		assert.Equal(t, uint64(8), got)

		_, ok = tcx.EvalConst(NewConstUnevaluated(usize, tcx.NewDef(LocalCrate, "X"), nil).(ConstUnevaluated))
		assert.False(t, ok)
	})

	t.Run("unknown items are bugs", func(t *testing.T) {
		assert.Panics(t, func() { tcx.Adt(tcx.NewDef(LocalCrate, "Missing")) })
	})
}
