package fixture

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fixture is a fixture document resolved against a fresh types.Tcx
type Fixture struct {
	Tcx *types.Tcx
	// Impls in declaration order
	Impls []types.DefId
	Goals []Goal
}

// Goal is a predicate to prove under the where-clauses it was declared with
type Goal struct {
	Name      string
	ParamEnv  types.ParamEnv
	Predicate types.Clause
	Expect    string
	Coherence bool
}

func (g Goal) Obligation() infer.Obligation {
	return infer.Obligation{
		Cause:     infer.ObligationCause{Span: g.Name, Code: "fixture goal"},
		ParamEnv:  g.ParamEnv,
		Predicate: g.Predicate,
	}
}

var expectations = []string{"", "yes", "no", "ambiguous"}

type scope []string

func (s scope) param(name string) (types.Ty, bool) {
	i := slices.Index(s, name)
	if i < 0 {
		return nil, false
	}
	return types.Param{Index: uint32(i), Name: name}, true
}

func (s scope) hasSelf() bool {
	return len(s) > 0 && s[0] == "Self"
}

type traitInfo struct {
	def   types.DefId
	arity int
	auto  bool
	assoc map[string]types.DefId
}

type lowerer struct {
	tcx      *types.Tcx
	crates   map[string]types.CrateNum
	adts     map[string]types.DefId
	adtArity map[types.DefId]int
	traits   map[string]*traitInfo
}

func errorAt(n *yaml.Node, format string, args ...any) error {
	return errors.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// Lower resolves every name in f and populates a new types.Tcx with its items
func Lower(f *File) (*Fixture, error) {
	l := &lowerer{
		crates:   map[string]types.CrateNum{},
		adts:     map[string]types.DefId{},
		adtArity: map[types.DefId]int{},
		traits:   map[string]*traitInfo{},
	}
	if err := l.declareCrates(f.Crates); err != nil {
		return nil, err
	}
	if err := l.declareItems(f); err != nil {
		return nil, err
	}
	for _, a := range f.Adts {
		if err := l.defineAdt(a); err != nil {
			return nil, errors.Wrapf(err, "adt %s", a.Name)
		}
	}
	for _, t := range f.Traits {
		if err := l.defineTrait(t); err != nil {
			return nil, errors.Wrapf(err, "trait %s", t.Name)
		}
	}
	fx := &Fixture{Tcx: l.tcx}
	for i, decl := range f.Impls {
		def, err := l.defineImpl(i, decl)
		if err != nil {
			return nil, errors.Wrapf(err, "impl %s", def)
		}
		fx.Impls = append(fx.Impls, def)
	}
	for i, decl := range f.Goals {
		g, err := l.goal(decl)
		if err != nil {
			return nil, errors.Wrapf(err, "goal %d", i)
		}
		fx.Goals = append(fx.Goals, g)
	}
	return fx, nil
}

func (l *lowerer) declareCrates(decls []CrateDecl) error {
	local := "local"
	var foreign []string
	seenLocal := false
	for _, c := range decls {
		if c.Name == "" {
			return errors.New("crate without a name")
		}
		if c.Local {
			if seenLocal {
				return errors.Errorf("crate %s: only one crate may be local", c.Name)
			}
			seenLocal = true
			local = c.Name
			continue
		}
		foreign = append(foreign, c.Name)
	}
	l.tcx = types.NewTcx(local)
	l.crates[local] = types.LocalCrate
	for _, name := range foreign {
		if _, ok := l.crates[name]; ok {
			return errors.Errorf("crate %s declared twice", name)
		}
		l.crates[name] = l.tcx.AddCrate(name)
	}
	return nil
}

func (l *lowerer) crate(name string) (types.CrateNum, error) {
	if name == "" {
		return types.LocalCrate, nil
	}
	c, ok := l.crates[name]
	if !ok {
		return 0, errors.Errorf("unknown crate %s", name)
	}
	return c, nil
}

// declareItems allocates DefIds for every ADT, trait and associated item so that
// declarations may refer to each other in any order
func (l *lowerer) declareItems(f *File) error {
	taken := func(name string) bool {
		_, adt := l.adts[name]
		_, trait := l.traits[name]
		return adt || trait
	}
	for _, a := range f.Adts {
		crate, err := l.crate(a.Crate)
		if err != nil {
			return errors.Wrapf(err, "adt %s", a.Name)
		}
		if taken(a.Name) {
			return errors.Errorf("%s declared twice", a.Name)
		}
		def := l.tcx.NewDef(crate, a.Name)
		l.adts[a.Name] = def
		l.adtArity[def] = len(a.Params)
	}
	for _, t := range f.Traits {
		crate, err := l.crate(t.Crate)
		if err != nil {
			return errors.Wrapf(err, "trait %s", t.Name)
		}
		if taken(t.Name) {
			return errors.Errorf("%s declared twice", t.Name)
		}
		info := &traitInfo{
			def:   l.tcx.NewDef(crate, t.Name),
			arity: len(t.Params) + 1,
			auto:  t.Auto,
			assoc: map[string]types.DefId{},
		}
		for _, item := range t.Assoc {
			info.assoc[item] = l.tcx.NewDef(crate, item)
		}
		l.traits[t.Name] = info
	}
	return nil
}

func (l *lowerer) trait(name string) (*traitInfo, error) {
	info, ok := l.traits[name]
	if !ok {
		return nil, errors.Errorf("unknown trait %s", name)
	}
	return info, nil
}

// assocItem resolves Trait::Item, or a bare Item name that only one trait declares
func (l *lowerer) assocItem(path string) (*traitInfo, types.DefId, error) {
	if trait, item, ok := strings.Cut(path, "::"); ok {
		info, err := l.trait(trait)
		if err != nil {
			return nil, types.DefId{}, err
		}
		def, ok := info.assoc[item]
		if !ok {
			return nil, types.DefId{}, errors.Errorf("trait %s has no associated type %s", trait, item)
		}
		return info, def, nil
	}
	var found []*traitInfo
	for _, name := range slices.Sorted(maps.Keys(l.traits)) {
		if _, ok := l.traits[name].assoc[path]; ok {
			found = append(found, l.traits[name])
		}
	}
	switch len(found) {
	case 0:
		return nil, types.DefId{}, errors.Errorf("unknown associated type %s", path)
	case 1:
		return found[0], found[0].assoc[path], nil
	}
	return nil, types.DefId{}, errors.Errorf("associated type %s is ambiguous, write it as Trait::%s", path, path)
}

func (l *lowerer) langItem(name string, def types.DefId) error {
	if name == "" {
		return nil
	}
	item, ok := types.ParseLangItem(name)
	if !ok {
		return errors.Errorf("unknown lang item %s", name)
	}
	l.tcx.SetLangItem(item, def)
	return nil
}

func (l *lowerer) defineAdt(a AdtDecl) error {
	sc := scope(a.Params)
	def := &types.AdtDef{
		Def:         l.adts[a.Name],
		Generics:    types.TypeParams(a.Params...),
		Fundamental: a.Fundamental,
	}
	switch a.Kind {
	case "", "struct":
		def.Kind = types.Struct
	case "enum":
		def.Kind = types.Enum
	case "union":
		def.Kind = types.Union
	default:
		return errors.Errorf("unknown kind %q", a.Kind)
	}
	if len(a.Fields) > 0 && len(a.Variants) > 0 {
		return errors.New("fields and variants are exclusive")
	}
	if def.Kind == types.Struct && len(a.Variants) > 1 {
		return errors.New("a struct has one variant")
	}
	variants := a.Variants
	if len(a.Fields) > 0 || len(variants) == 0 {
		variants = []VariantDecl{{Name: a.Name, Fields: a.Fields}}
	}
	for _, v := range variants {
		fields, err := l.tys(sc, v.Fields)
		if err != nil {
			return errors.Wrapf(err, "variant %s", v.Name)
		}
		def.Variants = append(def.Variants, types.VariantDef{Name: v.Name, Fields: fields})
	}
	if len(a.Variances) > 0 {
		if len(a.Variances) != len(a.Params) {
			return errors.Errorf("%d variances for %d parameters", len(a.Variances), len(a.Params))
		}
		for _, s := range a.Variances {
			v, ok := types.ParseVariance(s)
			if !ok {
				return errors.Errorf("unknown variance %q", s)
			}
			def.Variances = append(def.Variances, v)
		}
	}
	var err error
	if def.Predicates, err = l.bounds(sc, a.Where); err != nil {
		return err
	}
	l.tcx.AddAdt(def)
	return l.langItem(a.Lang, def.Def)
}

func (l *lowerer) defineTrait(t TraitDecl) error {
	info := l.traits[t.Name]
	sc := scope(append([]string{"Self"}, t.Params...))
	def := &types.TraitDef{
		Def:         info.def,
		Generics:    types.TypeParams(sc...),
		IsAuto:      t.Auto,
		IsMarker:    t.Marker,
		Fundamental: t.Fundamental,
		ObjectSafe:  t.ObjectSafe == nil || *t.ObjectSafe,
	}
	var err error
	if def.Supertraits, err = l.bounds(sc, t.Supertraits); err != nil {
		return errors.Wrap(err, "supertraits")
	}
	for _, name := range t.Assoc {
		def.Assoc = append(def.Assoc, types.AssocItem{Def: info.assoc[name], Name: name, Kind: types.AssocType})
	}
	l.tcx.AddTrait(def)
	return l.langItem(t.Lang, def.Def)
}

func (l *lowerer) defineImpl(index int, decl ImplDecl) (types.DefId, error) {
	crate, err := l.crate(decl.Crate)
	name := decl.Name
	if name == "" {
		name = fmt.Sprintf("impl#%d", index+1)
	}
	def := l.tcx.NewDef(crate, name)
	if err != nil {
		return def, err
	}
	sc := scope(decl.Params)
	impl := &types.ImplDef{Def: def, Generics: types.TypeParams(decl.Params...)}
	if decl.Self.IsZero() {
		return def, errors.New("missing self type")
	}
	if impl.SelfTy, err = l.ty(sc, decl.Self); err != nil {
		return def, errors.Wrap(err, "self type")
	}
	switch {
	case decl.Negative && decl.Reservation:
		return def, errors.New("an impl cannot be both negative and a reservation")
	case decl.Negative:
		impl.Polarity = types.Negative
	case decl.Reservation:
		impl.Polarity = types.Reservation
	}

	if decl.Trait == "" {
		if len(decl.Args) > 0 || len(decl.Assoc) > 0 || impl.Polarity != types.Positive {
			return def, errors.New("inherent impls only have a self type and where-clauses")
		}
	} else {
		info, err := l.trait(decl.Trait)
		if err != nil {
			return def, err
		}
		ref, err := l.traitRef(sc, info, impl.SelfTy, decl.Args)
		if err != nil {
			return def, err
		}
		impl.TraitRef = &ref
		for _, item := range slices.Sorted(maps.Keys(decl.Assoc)) {
			assoc, ok := info.assoc[item]
			if !ok {
				return def, errors.Errorf("trait %s has no associated type %s", decl.Trait, item)
			}
			value, err := l.ty(sc, decl.Assoc[item])
			if err != nil {
				return def, errors.Wrapf(err, "associated type %s", item)
			}
			if impl.AssocTypes == nil {
				impl.AssocTypes = map[types.DefId]types.Ty{}
			}
			impl.AssocTypes[assoc] = value
		}
	}
	if impl.Predicates, err = l.bounds(sc, decl.Where); err != nil {
		return def, err
	}
	l.tcx.AddImpl(impl)
	return def, nil
}

func (l *lowerer) goal(decl GoalDecl) (Goal, error) {
	sc := scope(decl.Params)
	if !slices.Contains(expectations, decl.Expect) {
		return Goal{}, errors.Errorf("expect must be one of yes, no or ambiguous, not %q", decl.Expect)
	}
	pred, err := l.bound(sc, decl.BoundDecl)
	if err != nil {
		return Goal{}, err
	}
	env, err := l.bounds(sc, decl.Where)
	if err != nil {
		return Goal{}, err
	}
	name := decl.Name
	if name == "" {
		name = fmt.Sprint(pred.Value)
	}
	return Goal{
		Name:      name,
		ParamEnv:  types.ParamEnv{CallerBounds: env},
		Predicate: pred,
		Expect:    decl.Expect,
		Coherence: decl.Coherence,
	}, nil
}

func (l *lowerer) traitRef(sc scope, info *traitInfo, self types.Ty, argDecls []Ty) (types.TraitRef, error) {
	args, err := l.tys(sc, argDecls)
	if err != nil {
		return types.TraitRef{}, err
	}
	if len(args)+1 != info.arity {
		return types.TraitRef{}, errors.Errorf("trait %s takes %d arguments besides Self, got %d", info.def, info.arity-1, len(args))
	}
	ref := types.TraitRef{Def: info.def, Args: types.Args{self}}
	for _, a := range args {
		ref.Args = append(ref.Args, a)
	}
	return ref, nil
}

func (l *lowerer) bounds(sc scope, decls []BoundDecl) ([]types.Clause, error) {
	var ret []types.Clause
	for i, b := range decls {
		c, err := l.bound(sc, b)
		if err != nil {
			return nil, errors.Wrapf(err, "where-clause %d", i)
		}
		ret = append(ret, c)
	}
	return ret, nil
}

func (l *lowerer) bound(sc scope, b BoundDecl) (types.Clause, error) {
	info, err := l.trait(b.Trait)
	if err != nil {
		return types.Clause{}, err
	}
	var self types.Ty
	if b.Ty.IsZero() {
		if !sc.hasSelf() {
			return types.Clause{}, errors.Errorf("bound on %s needs a ty outside of a trait", b.Trait)
		}
		self, _ = sc.param("Self")
	} else if self, err = l.ty(sc, b.Ty); err != nil {
		return types.Clause{}, err
	}
	ref, err := l.traitRef(sc, info, self, b.Args)
	if err != nil {
		return types.Clause{}, err
	}

	if b.Item == "" {
		if !b.Eq.IsZero() {
			return types.Clause{}, errors.New("eq is only allowed together with item")
		}
		pred := types.TraitPredicate{TraitRef: ref}
		if b.Negative {
			pred.Polarity = types.Negative
		}
		return types.Dummy[types.Predicate](pred), nil
	}
	item, ok := info.assoc[b.Item]
	if !ok {
		return types.Clause{}, errors.Errorf("trait %s has no associated type %s", b.Trait, b.Item)
	}
	if b.Eq.IsZero() || b.Negative {
		return types.Clause{}, errors.Errorf("projection bound on %s needs eq and cannot be negative", b.Item)
	}
	eq, err := l.ty(sc, b.Eq)
	if err != nil {
		return types.Clause{}, err
	}
	return types.Dummy[types.Predicate](types.ProjectionPredicate{
		Alias: types.AliasTy{Kind: types.Projection, Def: item, Args: ref.Args},
		Term:  eq,
	}), nil
}
