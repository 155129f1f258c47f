package types

import (
	"slices"

	"github.com/benbjohnson/immutable"
	"github.com/cottand/tyrel/internal/bug"
)

type LangItem uint8

const (
	LangSized LangItem = iota
	LangCopy
	LangClone
	LangFn
	LangFnMut
	LangFnOnce
	LangFnOnceOutput
	LangUnsize
	LangTuple
	LangPointerLike
	LangFuture
	LangFutureOutput
	LangGenerator
	LangTransmute
	LangFnPtrTrait
	LangPointee
	LangDiscriminantKind
	LangDestruct
	LangUnpin
	LangBox
	langItemCount
)

var langItemNames = [...]string{
	LangSized:            "sized",
	LangCopy:             "copy",
	LangClone:            "clone",
	LangFn:               "fn",
	LangFnMut:            "fn_mut",
	LangFnOnce:           "fn_once",
	LangFnOnceOutput:     "fn_once_output",
	LangUnsize:           "unsize",
	LangTuple:            "tuple_trait",
	LangPointerLike:      "pointer_like",
	LangFuture:           "future_trait",
	LangFutureOutput:     "future_output",
	LangGenerator:        "generator",
	LangTransmute:        "transmute_trait",
	LangFnPtrTrait:       "fn_ptr_trait",
	LangPointee:          "pointee_trait",
	LangDiscriminantKind: "discriminant_kind",
	LangDestruct:         "destruct",
	LangUnpin:            "unpin",
	LangBox:              "owned_box",
}

func (l LangItem) String() string {
	return langItemNames[l]
}

func ParseLangItem(s string) (LangItem, bool) {
	for i, n := range langItemNames {
		if n == s {
			return LangItem(i), true
		}
	}
	return 0, false
}

type AdtKind uint8

const (
	Struct AdtKind = iota
	Enum
	Union
)

type VariantDef struct {
	Name   string
	Fields TyList
}

type AdtDef struct {
	Def       DefId
	Kind      AdtKind
	Generics  Generics
	Variances []Variance
	Variants  []VariantDef
	// Fundamental types such as Box and references let orphan checks see through them
	Fundamental   bool
	Predicates    []Clause
	NonExhaustive bool
}

// AllFields lists the fields of every variant, in declaration order
func (a *AdtDef) AllFields() TyList {
	var ret TyList
	for _, v := range a.Variants {
		ret = append(ret, v.Fields...)
	}
	return ret
}

// SizedConstraint is the set of field types that decide whether the ADT is Sized:
// the last field of each variant.
func (a *AdtDef) SizedConstraint() TyList {
	var ret TyList
	for _, v := range a.Variants {
		if len(v.Fields) > 0 {
			ret = append(ret, v.Fields[len(v.Fields)-1])
		}
	}
	return ret
}

// StructTail returns the last field of a struct
func (a *AdtDef) StructTail() (Ty, bool) {
	if a.Kind != Struct || len(a.Variants) == 0 || len(a.Variants[0].Fields) == 0 {
		return nil, false
	}
	fields := a.Variants[0].Fields
	return fields[len(fields)-1], true
}

type AssocKind uint8

const (
	AssocType AssocKind = iota
	AssocConst
)

type AssocItem struct {
	Def   DefId
	Name  string
	Kind  AssocKind
	Trait DefId
	// Bounds hold on the item's value, with Self of the trait at index 0
	Bounds []Clause
}

type TraitDef struct {
	Def      DefId
	Generics Generics
	IsAuto   bool
	// IsMarker traits have no items, so overlapping impls of them are allowed
	IsMarker    bool
	Fundamental bool
	ObjectSafe  bool
	// IsAlias traits are shorthands for their Supertraits
	IsAlias     bool
	Supertraits []Clause
	Assoc       []AssocItem
}

type ImplDef struct {
	Def      DefId
	Generics Generics
	// TraitRef is nil for inherent impls
	TraitRef   *TraitRef
	SelfTy     Ty
	Predicates []Clause
	Polarity   Polarity
	AssocTypes map[DefId]Ty
}

func (i *ImplDef) IsInherent() bool {
	return i.TraitRef == nil
}

type OpaqueDef struct {
	Def      DefId
	Generics Generics
	Hidden   Ty
	Bounds   []Clause
}

type GeneratorDef struct {
	Def DefId
	// Async generators come from desugaring async blocks and fns
	Async bool
}

// LayoutOracle answers questions that need the target's computed layouts. Known is false when
// the layout cannot be computed yet, e.g. because the type still has inference variables.
type LayoutOracle interface {
	IsPointerLike(t Ty) (ok, known bool)
	IsTransmutable(dst, src Ty) (ok, known bool)
}

// Tcx is the item database. It is populated once and then only read, so sessions
// running on different goroutines may share it.
type Tcx struct {
	crates     []string
	nextIndex  []uint32
	adts       map[DefId]*AdtDef
	traits     map[DefId]*TraitDef
	impls      map[DefId]*ImplDef
	opaques    map[DefId]*OpaqueDef
	assoc      map[DefId]*AssocItem
	generators map[DefId]*GeneratorDef
	fnSigs     map[DefId]Binder[FnSig]
	fnGenerics map[DefId]Generics
	consts     map[DefId]ConstItem
	lang       map[LangItem]DefId

	traitImpls    *immutable.SortedMap[DefId, *immutable.List[DefId]]
	inherentImpls []DefId

	Layout LayoutOracle
}

func NewTcx(localCrate string) *Tcx {
	return &Tcx{
		crates:     []string{localCrate},
		nextIndex:  []uint32{0},
		adts:       map[DefId]*AdtDef{},
		traits:     map[DefId]*TraitDef{},
		impls:      map[DefId]*ImplDef{},
		opaques:    map[DefId]*OpaqueDef{},
		assoc:      map[DefId]*AssocItem{},
		generators: map[DefId]*GeneratorDef{},
		fnSigs:     map[DefId]Binder[FnSig]{},
		fnGenerics: map[DefId]Generics{},
		consts:     map[DefId]ConstItem{},
		lang:       map[LangItem]DefId{},
		traitImpls: immutable.NewSortedMap[DefId, *immutable.List[DefId]](DefIdComparer{}),
		Layout:     DefaultLayout{},
	}
}

func (t *Tcx) AddCrate(name string) CrateNum {
	t.crates = append(t.crates, name)
	t.nextIndex = append(t.nextIndex, 0)
	return CrateNum(len(t.crates) - 1)
}

func (t *Tcx) CrateName(c CrateNum) string {
	return t.crates[c]
}

func (t *Tcx) Crate(name string) (CrateNum, bool) {
	i := slices.Index(t.crates, name)
	return CrateNum(i), i >= 0
}

// NewDef allocates a fresh DefId in crate
func (t *Tcx) NewDef(crate CrateNum, name string) DefId {
	idx := t.nextIndex[crate]
	t.nextIndex[crate]++
	return DefId{Krate: crate, Index: idx, Name: name}
}

func (t *Tcx) AddAdt(a *AdtDef) {
	if a.Variances == nil {
		a.Variances = make([]Variance, a.Generics.Count())
		for i := range a.Variances {
			a.Variances[i] = Covariant
		}
	}
	t.adts[a.Def] = a
}

func (t *Tcx) AddTrait(tr *TraitDef) {
	t.traits[tr.Def] = tr
	for i := range tr.Assoc {
		tr.Assoc[i].Trait = tr.Def
		t.assoc[tr.Assoc[i].Def] = &tr.Assoc[i]
	}
	if _, ok := t.traitImpls.Get(tr.Def); !ok {
		t.traitImpls = t.traitImpls.Set(tr.Def, immutable.NewList[DefId]())
	}
}

func (t *Tcx) AddImpl(i *ImplDef) {
	t.impls[i.Def] = i
	if i.IsInherent() {
		t.inherentImpls = append(t.inherentImpls, i.Def)
		return
	}
	list, ok := t.traitImpls.Get(i.TraitRef.Def)
	if !ok {
		list = immutable.NewList[DefId]()
	}
	t.traitImpls = t.traitImpls.Set(i.TraitRef.Def, list.Append(i.Def))
}

func (t *Tcx) AddOpaque(o *OpaqueDef)       { t.opaques[o.Def] = o }
func (t *Tcx) AddGenerator(g *GeneratorDef) { t.generators[g.Def] = g }

func (t *Tcx) AddFnSig(def DefId, generics Generics, sig Binder[FnSig]) {
	t.fnSigs[def] = sig
	t.fnGenerics[def] = generics
}

// ConstItem is a named constant whose value may depend on its generics
type ConstItem struct {
	Def      DefId
	Generics Generics
	Ty       Ty
	Value    Const
}

func (t *Tcx) AddConstItem(c ConstItem) { t.consts[c.Def] = c }

// EvalConst evaluates an unevaluated const by instantiating its item's value. It fails
// when the item is unknown or the result still depends on parameters or variables.
func (t *Tcx) EvalConst(u ConstUnevaluated) (Const, bool) {
	item, ok := t.consts[u.Def]
	if !ok || item.Value == nil || len(u.Args) != item.Generics.Count() {
		return nil, false
	}
	v := Instantiate(item.Value, u.Args)
	if next, ok := v.(ConstUnevaluated); ok {
		if next.Def == u.Def {
			return nil, false
		}
		return t.EvalConst(next)
	}
	if _, ok := v.(ConstValue); !ok {
		return nil, false
	}
	return v, true
}

func (t *Tcx) SetLangItem(item LangItem, def DefId) {
	t.lang[item] = def
}

func (t *Tcx) LangItem(item LangItem) (DefId, bool) {
	d, ok := t.lang[item]
	return d, ok
}

func (t *Tcx) IsLangItem(def DefId, item LangItem) bool {
	d, ok := t.lang[item]
	return ok && d == def
}

// LangItemOf returns which lang item def is, if any
func (t *Tcx) LangItemOf(def DefId) (LangItem, bool) {
	for item, d := range t.lang {
		if d == def {
			return item, true
		}
	}
	return 0, false
}

func (t *Tcx) Adt(def DefId) *AdtDef {
	a, ok := t.adts[def]
	if !ok {
		bug.Panicf("no ADT named %v", def)
	}
	return a
}

func (t *Tcx) Trait(def DefId) *TraitDef {
	tr, ok := t.traits[def]
	if !ok {
		bug.Panicf("no trait named %v", def)
	}
	return tr
}

func (t *Tcx) Impl(def DefId) *ImplDef {
	i, ok := t.impls[def]
	if !ok {
		bug.Panicf("no impl named %v", def)
	}
	return i
}

func (t *Tcx) Opaque(def DefId) (*OpaqueDef, bool) {
	o, ok := t.opaques[def]
	return o, ok
}

func (t *Tcx) AssocItem(def DefId) (*AssocItem, bool) {
	a, ok := t.assoc[def]
	return a, ok
}

func (t *Tcx) Generator(def DefId) (*GeneratorDef, bool) {
	g, ok := t.generators[def]
	return g, ok
}

func (t *Tcx) FnSig(def DefId) (Binder[FnSig], bool) {
	s, ok := t.fnSigs[def]
	return s, ok
}

func (t *Tcx) HasTrait(def DefId) bool {
	_, ok := t.traits[def]
	return ok
}

// ImplsOf lists the impls of trait in the order they were added
func (t *Tcx) ImplsOf(trait DefId) []DefId {
	list, ok := t.traitImpls.Get(trait)
	if !ok {
		return nil
	}
	ret := make([]DefId, 0, list.Len())
	itr := list.Iterator()
	for !itr.Done() {
		_, d := itr.Next()
		ret = append(ret, d)
	}
	return ret
}

// ImplsByTrait calls f for every trait, in DefId order, with the impls of it
func (t *Tcx) ImplsByTrait(f func(trait DefId, impls []DefId)) {
	itr := t.traitImpls.Iterator()
	for !itr.Done() {
		trait, _, _ := itr.Next()
		f(trait, t.ImplsOf(trait))
	}
}

func (t *Tcx) InherentImpls() []DefId {
	return slices.Clone(t.inherentImpls)
}

// VariancesOf returns the declared variance of each generic parameter of def
func (t *Tcx) VariancesOf(def DefId) []Variance {
	if a, ok := t.adts[def]; ok {
		return a.Variances
	}
	if g, ok := t.fnGenerics[def]; ok {
		v := make([]Variance, g.Count())
		for i := range v {
			v[i] = Covariant
		}
		return v
	}
	return nil
}

// OpaqueVariances returns the variances used to relate opaque type arguments:
// types and consts are invariant, lifetimes bivariant as they are not captured
func (t *Tcx) OpaqueVariances(def DefId) []Variance {
	o, ok := t.opaques[def]
	if !ok {
		return nil
	}
	v := make([]Variance, o.Generics.Count())
	for i, p := range o.Generics.Params {
		if p.Kind == LifetimeParam {
			v[i] = Bivariant
		} else {
			v[i] = Invariant
		}
	}
	return v
}

func (t *Tcx) GenericsOf(def DefId) Generics {
	switch {
	case t.adts[def] != nil:
		return t.adts[def].Generics
	case t.traits[def] != nil:
		return t.traits[def].Generics
	case t.impls[def] != nil:
		return t.impls[def].Generics
	case t.opaques[def] != nil:
		return t.opaques[def].Generics
	}
	if g, ok := t.fnGenerics[def]; ok {
		return g
	}
	return Generics{}
}

// PredicatesOf returns the where-clauses of def, in terms of its own generics
func (t *Tcx) PredicatesOf(def DefId) []Clause {
	switch {
	case t.adts[def] != nil:
		return t.adts[def].Predicates
	case t.traits[def] != nil:
		return t.traits[def].Supertraits
	case t.impls[def] != nil:
		return t.impls[def].Predicates
	case t.opaques[def] != nil:
		return t.opaques[def].Bounds
	}
	return nil
}

// Supertraits returns the trait refs implied by ref, ref included, closed transitively
func (t *Tcx) Supertraits(ref TraitRef) []TraitRef {
	seen := map[string]bool{}
	var out []TraitRef
	stack := []TraitRef{ref}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[Key(cur)] {
			continue
		}
		seen[Key(cur)] = true
		out = append(out, cur)
		tr, ok := t.traits[cur.Def]
		if !ok {
			continue
		}
		for _, c := range tr.Supertraits {
			if p, ok := c.Value.(TraitPredicate); ok && p.Polarity == Positive && len(c.Vars) == 0 {
				stack = append(stack, Instantiate(p.TraitRef, cur.Args))
			}
		}
	}
	return out
}
