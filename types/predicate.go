package types

// Predicate is something that can be proven about types. Obligations carry them
// wrapped in a Binder, see Clause.
type Predicate interface {
	String() string
	foldPredicate(TypeFolder) Predicate
}

// Clause is a possibly higher-ranked predicate, as found in where-clauses
type Clause = Binder[Predicate]

type TraitRef struct {
	Def  DefId
	Args Args
}

func NewTraitRef(def DefId, self Ty, rest ...GenericArg) TraitRef {
	return TraitRef{Def: def, Args: Args{self}.Extend(rest...)}
}

func (t TraitRef) SelfTy() Ty {
	return t.Args.TypeAt(0)
}

// WithSelfTy returns t with its self type replaced
func (t TraitRef) WithSelfTy(self Ty) TraitRef {
	args := make(Args, len(t.Args))
	copy(args, t.Args)
	args[0] = self
	return TraitRef{Def: t.Def, Args: args}
}

func (t TraitRef) FoldWith(f TypeFolder) TraitRef {
	return TraitRef{Def: t.Def, Args: t.Args.FoldWith(f)}
}

type Polarity uint8

const (
	Positive Polarity = iota
	Negative
	// Reservation impls never apply but keep the impl slot for future use
	Reservation
)

func (p Polarity) Flip() (Polarity, bool) {
	switch p {
	case Positive:
		return Negative, true
	case Negative:
		return Positive, true
	}
	return p, false
}

type TraitPredicate struct {
	TraitRef
	Polarity Polarity
}

func (p TraitPredicate) FoldWith(f TypeFolder) TraitPredicate {
	return TraitPredicate{TraitRef: p.TraitRef.FoldWith(f), Polarity: p.Polarity}
}
func (p TraitPredicate) foldPredicate(f TypeFolder) Predicate { return p.FoldWith(f) }

// ProjectionPredicate states that the projection Alias normalizes to Term, a Ty or a Const
type ProjectionPredicate struct {
	Alias AliasTy
	Term  GenericArg
}

func (p ProjectionPredicate) FoldWith(f TypeFolder) ProjectionPredicate {
	return ProjectionPredicate{
		Alias: AliasTy{Kind: p.Alias.Kind, Def: p.Alias.Def, Args: p.Alias.Args.FoldWith(f)},
		Term:  FoldArg(f, p.Term),
	}
}
func (p ProjectionPredicate) foldPredicate(f TypeFolder) Predicate { return p.FoldWith(f) }

// TraitRef returns the trait ref the projected item belongs to, given the item's trait
func (p ProjectionPredicate) TraitRef(trait DefId, traitArgs int) TraitRef {
	return TraitRef{Def: trait, Args: p.Alias.Args[:traitArgs]}
}

// TypeOutlives is T: 'r
type TypeOutlives struct {
	Ty     Ty
	Region Region
}

func (p TypeOutlives) foldPredicate(f TypeFolder) Predicate {
	return TypeOutlives{Ty: f.FoldTy(p.Ty), Region: f.FoldRegion(p.Region)}
}

// RegionOutlives is 'a: 'b
type RegionOutlives struct {
	A, B Region
}

func (p RegionOutlives) foldPredicate(f TypeFolder) Predicate {
	return RegionOutlives{A: f.FoldRegion(p.A), B: f.FoldRegion(p.B)}
}

type WellFormed struct {
	Arg GenericArg
}

func (p WellFormed) foldPredicate(f TypeFolder) Predicate {
	return WellFormed{Arg: FoldArg(f, p.Arg)}
}

// SubtypePredicate is A <: B between two types that were still unresolved when related
type SubtypePredicate struct {
	AIsExpected bool
	A, B        Ty
}

func (p SubtypePredicate) foldPredicate(f TypeFolder) Predicate {
	return SubtypePredicate{AIsExpected: p.AIsExpected, A: f.FoldTy(p.A), B: f.FoldTy(p.B)}
}

type ConstEquate struct {
	A, B Const
}

func (p ConstEquate) foldPredicate(f TypeFolder) Predicate {
	return ConstEquate{A: f.FoldConst(p.A), B: f.FoldConst(p.B)}
}

type AliasRelationDirection uint8

const (
	AliasEquate AliasRelationDirection = iota
	AliasSubtype
)

// AliasRelate relates two terms at least one of which is an alias that still needs normalizing
type AliasRelate struct {
	A, B GenericArg
	Dir  AliasRelationDirection
}

func (p AliasRelate) foldPredicate(f TypeFolder) Predicate {
	return AliasRelate{A: FoldArg(f, p.A), B: FoldArg(f, p.B), Dir: p.Dir}
}

// AmbiguousPredicate can never be proven nor disproven
type AmbiguousPredicate struct{}

func (p AmbiguousPredicate) foldPredicate(TypeFolder) Predicate { return p }

// ExistentialPredicate is one of the bounds of a trait object. They mention no self type.
type ExistentialPredicate interface {
	String() string
	WithSelfTy(self Ty) Predicate
	foldExistential(TypeFolder) ExistentialPredicate
	rank() int
	defId() DefId
}

// ExistentialTrait is the principal trait of an object, Args excluding Self
type ExistentialTrait struct {
	Def  DefId
	Args Args
}

func (p ExistentialTrait) WithSelfTy(self Ty) Predicate {
	return TraitPredicate{TraitRef: TraitRef{Def: p.Def, Args: Args{self}.Extend(p.Args...)}}
}
func (p ExistentialTrait) foldExistential(f TypeFolder) ExistentialPredicate {
	return ExistentialTrait{Def: p.Def, Args: p.Args.FoldWith(f)}
}
func (ExistentialTrait) rank() int        { return 0 }
func (p ExistentialTrait) defId() DefId   { return p.Def }
func (p ExistentialTrait) TraitRef(self Ty) TraitRef {
	return TraitRef{Def: p.Def, Args: Args{self}.Extend(p.Args...)}
}

// ExistentialProjection is an associated type binding such as Iterator<Item = T>
type ExistentialProjection struct {
	Def  DefId
	Args Args
	Term GenericArg
}

func (p ExistentialProjection) WithSelfTy(self Ty) Predicate {
	return ProjectionPredicate{
		Alias: AliasTy{Kind: Projection, Def: p.Def, Args: Args{self}.Extend(p.Args...)},
		Term:  p.Term,
	}
}
func (p ExistentialProjection) foldExistential(f TypeFolder) ExistentialPredicate {
	return ExistentialProjection{Def: p.Def, Args: p.Args.FoldWith(f), Term: FoldArg(f, p.Term)}
}
func (ExistentialProjection) rank() int      { return 1 }
func (p ExistentialProjection) defId() DefId { return p.Def }

type ExistentialAutoTrait struct {
	Def DefId
}

func (p ExistentialAutoTrait) WithSelfTy(self Ty) Predicate {
	return TraitPredicate{TraitRef: TraitRef{Def: p.Def, Args: Args{self}}}
}
func (p ExistentialAutoTrait) foldExistential(TypeFolder) ExistentialPredicate { return p }
func (ExistentialAutoTrait) rank() int                                         { return 2 }
func (p ExistentialAutoTrait) defId() DefId                                    { return p.Def }

// StableLess orders existential predicates principal first, then projections, then auto
// traits, each group by def and then by printed form
func StableLess(a, b ExistentialPredicate) bool {
	if a.rank() != b.rank() {
		return a.rank() < b.rank()
	}
	if c := a.defId().Compare(b.defId()); c != 0 {
		return c < 0
	}
	return Key(a) < Key(b)
}

// Principal returns the principal trait of a trait object, if any
func (d Dynamic) Principal() (Binder[ExistentialTrait], bool) {
	for _, p := range d.Preds {
		if t, ok := p.Value.(ExistentialTrait); ok {
			return Rebind(p, t), true
		}
	}
	return Binder[ExistentialTrait]{}, false
}

func (d Dynamic) AutoTraits() []DefId {
	var ret []DefId
	for _, p := range d.Preds {
		if t, ok := p.Value.(ExistentialAutoTrait); ok {
			ret = append(ret, t.Def)
		}
	}
	return ret
}

type Reveal uint8

const (
	// RevealUserFacing keeps opaque types opaque
	RevealUserFacing Reveal = iota
	// RevealAll unfolds opaque types to their hidden type
	RevealAll
)

// ParamEnv holds the where-clauses in scope of the item being checked
type ParamEnv struct {
	CallerBounds []Clause
	Reveal       Reveal
}

var EmptyParamEnv = ParamEnv{}

func (p ParamEnv) With(clauses ...Clause) ParamEnv {
	bounds := make([]Clause, 0, len(p.CallerBounds)+len(clauses))
	bounds = append(bounds, p.CallerBounds...)
	return ParamEnv{CallerBounds: append(bounds, clauses...), Reveal: p.Reveal}
}
