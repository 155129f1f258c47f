package fixture

import (
	"strconv"
	"strings"
	"testing"

	"github.com/cottand/tyrel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prelude = `
crates:
  - name: app
    local: true
  - name: std
adts:
  - name: Foo
  - name: Vec
    crate: std
    params: [T]
    fields: [{ptr: {ty: T}}]
  - name: Box
    crate: std
    params: [T]
    fundamental: true
    lang: owned_box
    fields: [{ptr: {ty: T}}]
traits:
  - name: Display
    crate: std
  - name: Send
    crate: std
    auto: true
  - name: Error
    crate: std
    supertraits: [{trait: Display}]
  - name: From
    crate: std
    params: [T]
  - name: Iterator
    crate: std
    assoc: [Item]
`

func parse(t *testing.T, doc string) *Fixture {
	t.Helper()
	fx, err := Parse([]byte(prelude + doc))
	require.NoError(t, err)
	return fx
}

func TestParse(t *testing.T) {
	fx := parse(t, `
impls:
  - name: FooDisplay
    trait: Display
    self: Foo
  - params: [T]
    trait: From
    args: [T]
    self: {adt: Vec, args: [T]}
    where: [{ty: T, trait: Display}]
  - trait: Error
    crate: std
    self: str
    negative: true
  - params: [T]
    trait: Iterator
    self: {adt: Vec, args: [T]}
    assoc:
      Item: T
  - self: Foo
goals:
  - ty: Foo
    trait: Display
    expect: yes
  - name: vec items
    params: [T]
    ty: {adt: Vec, args: [T]}
    trait: Iterator
    item: Item
    eq: T
  - params: [T]
    ty: {adt: Box, args: [T]}
    trait: Display
    where: [{ty: T, trait: Display}]
    coherence: true
`)
	tcx := fx.Tcx
	require.Len(t, fx.Impls, 5)

	t.Run("crates", func(t *testing.T) {
		assert.Equal(t, "app", tcx.CrateName(types.LocalCrate))
		std, ok := tcx.Crate("std")
		require.True(t, ok)
		assert.Equal(t, std, tcx.Impl(fx.Impls[2]).Def.Krate)
		assert.True(t, fx.Impls[0].IsLocal())
	})

	t.Run("impls", func(t *testing.T) {
		named := tcx.Impl(fx.Impls[0])
		assert.Equal(t, "FooDisplay", named.Def.Name)
		assert.Equal(t, "Foo", named.SelfTy.String())

		from := tcx.Impl(fx.Impls[1])
		assert.Equal(t, "impl#2", from.Def.Name)
		require.NotNil(t, from.TraitRef)
		assert.Equal(t, "Vec<T>", from.TraitRef.SelfTy().String())
		assert.Equal(t, "T", from.TraitRef.Args[1].String())
		require.Len(t, from.Predicates, 1)
		assert.Equal(t, "T: Display", from.Predicates[0].Value.String())

		assert.Equal(t, types.Negative, tcx.Impl(fx.Impls[2]).Polarity)

		iter := tcx.Impl(fx.Impls[3])
		require.Len(t, iter.AssocTypes, 1)
		for item, ty := range iter.AssocTypes {
			assert.Equal(t, "Item", item.Name)
			assert.Equal(t, types.Param{Index: 0, Name: "T"}, ty)
		}

		assert.True(t, tcx.Impl(fx.Impls[4]).IsInherent())
		assert.Equal(t, []types.DefId{fx.Impls[4]}, tcx.InherentImpls())
	})

	t.Run("items", func(t *testing.T) {
		boxDef, ok := tcx.LangItem(types.LangBox)
		require.True(t, ok)
		assert.True(t, tcx.Adt(boxDef).Fundamental)
		assert.Equal(t, []types.Variance{types.Covariant}, tcx.VariancesOf(boxDef))

		errTrait := tcx.Impl(fx.Impls[2]).TraitRef.Def
		var supers []string
		for _, r := range tcx.Supertraits(types.NewTraitRef(errTrait, types.Str{})) {
			supers = append(supers, r.String())
		}
		assert.ElementsMatch(t, []string{"str: Error", "str: Display"}, supers)
	})

	t.Run("goals", func(t *testing.T) {
		require.Len(t, fx.Goals, 3)
		assert.Equal(t, "Foo: Display", fx.Goals[0].Name)
		assert.Equal(t, "yes", fx.Goals[0].Expect)

		assert.Equal(t, "vec items", fx.Goals[1].Name)
		_, ok := fx.Goals[1].Predicate.Value.(types.ProjectionPredicate)
		assert.True(t, ok)

		assert.True(t, fx.Goals[2].Coherence)
		require.Len(t, fx.Goals[2].ParamEnv.CallerBounds, 1)
		o := fx.Goals[2].Obligation()
		assert.Equal(t, fx.Goals[2].Name, o.Cause.Span)
	})
}

func TestLowerTypes(t *testing.T) {
	testCases := []struct {
		node string
		want string
	}{
		{"i32", "i32"},
		{"()", "()"},
		{"never", "!"},
		{"T", "T"},
		{"{param: T}", "T"},
		{"{uint: usize}", "usize"},
		{"{adt: Vec, args: [{adt: Box, args: [Foo]}]}", "Vec<Box<Foo>>"},
		{"{ref: {ty: str}}", "&'static str"},
		{"{ref: {mut: true, ty: T}}", "&'static mut T"},
		{"{ptr: {mut: true, ty: u8}}", "*mut u8"},
		{"{tuple: [i32, bool]}", "(i32, bool)"},
		{"{slice: u8}", "[u8]"},
		{"{array: {ty: u8, len: 4}}", "[u8; 4]"},
		{"{dyn: [Send, Display]}", "dyn Display + Send + 'static"},
		{"{fnptr: {inputs: [i32], output: bool}}", "fn(i32) -> bool"},
		{"{fnptr: {inputs: [T]}}", "fn(T)"},
	}
	for _, tc := range testCases {
		t.Run(tc.node, func(t *testing.T) {
			fx := parse(t, "impls:\n  - params: [T]\n    self: "+tc.node+"\n")
			assert.Equal(t, tc.want, fx.Tcx.Impl(fx.Impls[0]).SelfTy.String())
		})
	}
}

func TestProjectionType(t *testing.T) {
	fx := parse(t, `
impls:
  - params: [T]
    self: {proj: {self: T, item: Iterator::Item}}
  - params: [T]
    self: {proj: {self: T, item: Item}}
`)
	for _, def := range fx.Impls {
		alias, ok := fx.Tcx.Impl(def).SelfTy.(types.Alias)
		require.True(t, ok)
		assert.Equal(t, types.Projection, alias.Kind)
		assert.Equal(t, "Item", alias.Def.Name)
		assert.Equal(t, types.Param{Index: 0, Name: "T"}, alias.SelfTy())
	}
}

func TestLowerErrors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown type", "impls:\n  - self: Bar\n", "unknown type Bar"},
		{"generic adt without args", "impls:\n  - self: Vec\n", "Vec takes 1 arguments"},
		{"wrong arity", "impls:\n  - self: {adt: Vec, args: [i32, i32]}\n", "got 2"},
		{"unknown key", "impls:\n  - self: {box: i32}\n", "unknown type key box"},
		{"two keys", "impls:\n  - self: {slice: i32, tuple: []}\n", "exactly one key"},
		{"param out of scope", "impls:\n  - self: {param: U}\n", "no parameter U"},
		{"unknown trait", "impls:\n  - trait: Debug\n    self: i32\n", "unknown trait Debug"},
		{"missing trait args", "impls:\n  - trait: From\n    self: i32\n", "takes 1 arguments besides Self"},
		{"missing self", "impls:\n  - trait: Display\n", "missing self type"},
		{"unknown assoc", "impls:\n  - trait: Iterator\n    self: i32\n    assoc: {Output: i32}\n", "no associated type Output"},
		{"negative reservation", "impls:\n  - trait: Display\n    self: i32\n    negative: true\n    reservation: true\n", "both negative"},
		{"two principals", "impls:\n  - self: {dyn: [Display, Error]}\n", "only auto traits"},
		{"bound without ty", "goals:\n  - trait: Display\n", "needs a ty"},
		{"bad expectation", "goals:\n  - ty: i32\n    trait: Display\n    expect: probably\n", "expect must be"},
		{"unknown field", "impls:\n  - self: i32\n    polarity: negative\n", "field polarity not found"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(prelude + tc.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestCrateErrors(t *testing.T) {
	_, err := Parse([]byte("crates: [{name: a, local: true}, {name: b, local: true}]\n"))
	assert.ErrorContains(t, err, "only one crate may be local")

	_, err = Parse([]byte("crates: [{name: a}, {name: a}]\n"))
	assert.ErrorContains(t, err, "declared twice")

	_, err = Parse([]byte("adts: [{name: Foo}]\ntraits: [{name: Foo}]\n"))
	assert.ErrorContains(t, err, "Foo declared twice")

	fx, err := Parse([]byte("adts: [{name: Foo}]\n"))
	require.NoError(t, err)
	assert.Equal(t, "local", fx.Tcx.CrateName(types.LocalCrate))
}

func TestDecodeKeepsLines(t *testing.T) {
	doc := prelude + "impls:\n  - self: Nope\n"
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	line := strings.Count(prelude, "\n") + 2
	assert.Contains(t, err.Error(), "line "+strconv.Itoa(line)+":")
}
