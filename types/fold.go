package types

import "github.com/cottand/tyrel/internal/bug"

// TypeFolder rewrites terms. Implementations usually handle the cases they care about
// and call SuperFoldTy / SuperFoldConst to recurse into the rest.
type TypeFolder interface {
	FoldTy(Ty) Ty
	FoldRegion(Region) Region
	FoldConst(Const) Const
}

// BinderTracker is implemented by folders that need to know when they cross a Binder,
// e.g. to track De Bruijn indices.
type BinderTracker interface {
	EnterBinder()
	ExitBinder()
}

type Foldable[T any] interface {
	FoldWith(TypeFolder) T
}

// Fold folds v with f. T should be Ty, Region, Const, GenericArg, Predicate,
// ExistentialPredicate or a type implementing Foldable[T].
func Fold[T any](f TypeFolder, v T) T {
	switch x := any(v).(type) {
	case Foldable[T]:
		return x.FoldWith(f)
	case Ty:
		return any(f.FoldTy(x)).(T)
	case Region:
		return any(f.FoldRegion(x)).(T)
	case Const:
		return any(f.FoldConst(x)).(T)
	case Predicate:
		return any(x.foldPredicate(f)).(T)
	case ExistentialPredicate:
		return any(x.foldExistential(f)).(T)
	case nil:
		return v
	}
	bug.Panicf("cannot fold value of type %T", v)
	return v
}

func (b Binder[T]) FoldWith(f TypeFolder) Binder[T] {
	tracker, tracks := f.(BinderTracker)
	if tracks {
		tracker.EnterBinder()
	}
	value := Fold(f, b.Value)
	if tracks {
		tracker.ExitBinder()
	}
	return Binder[T]{Value: value, Vars: b.Vars}
}

func FoldArg(f TypeFolder, arg GenericArg) GenericArg {
	switch arg := arg.(type) {
	case Ty:
		return f.FoldTy(arg)
	case Region:
		return f.FoldRegion(arg)
	case Const:
		return f.FoldConst(arg)
	case nil:
		return nil
	}
	bug.Panicf("unknown generic argument %T", arg)
	return nil
}

// SuperFoldTy folds the components of t with f and rebuilds it
func SuperFoldTy(f TypeFolder, t Ty) Ty {
	switch t := t.(type) {
	case Bool, Char, Str, Never, Int, Uint, Float, Foreign, Param, BoundTy, PlaceholderTy, Infer, Error:
		return t
	case Tuple:
		return Tuple{Elems: t.Elems.FoldWith(f)}
	case Array:
		return Array{Elem: f.FoldTy(t.Elem), Len: f.FoldConst(t.Len)}
	case Slice:
		return Slice{Elem: f.FoldTy(t.Elem)}
	case RawPtr:
		return RawPtr{Elem: f.FoldTy(t.Elem), Mut: t.Mut}
	case Ref:
		return Ref{Region: f.FoldRegion(t.Region), Elem: f.FoldTy(t.Elem), Mut: t.Mut}
	case FnPtr:
		return FnPtr{Sig: t.Sig.FoldWith(f)}
	case FnDef:
		return FnDef{Def: t.Def, Args: t.Args.FoldWith(f)}
	case Closure:
		return Closure{Def: t.Def, Args: t.Args.FoldWith(f), Kind: t.Kind, Sig: t.Sig.FoldWith(f), Upvars: t.Upvars.FoldWith(f)}
	case Generator:
		return Generator{
			Def:        t.Def,
			Args:       t.Args.FoldWith(f),
			Movability: t.Movability,
			Sig:        GenSig{Resume: foldOptional(f, t.Sig.Resume), Yield: foldOptional(f, t.Sig.Yield), Return: foldOptional(f, t.Sig.Return)},
			Upvars:     t.Upvars.FoldWith(f),
			Witness:    foldOptional(f, t.Witness),
		}
	case GeneratorWitness:
		return GeneratorWitness{Tys: t.Tys.FoldWith(f)}
	case Adt:
		return Adt{Def: t.Def, Args: t.Args.FoldWith(f)}
	case Dynamic:
		preds := make([]Binder[ExistentialPredicate], len(t.Preds))
		for i, p := range t.Preds {
			preds[i] = p.FoldWith(f)
		}
		return Dynamic{Preds: preds, Region: f.FoldRegion(t.Region)}
	case Alias:
		return Alias{AliasTy: AliasTy{Kind: t.Kind, Def: t.Def, Args: t.Args.FoldWith(f)}}
	}
	bug.Panicf("unknown type %T", t)
	return t
}

// SuperFoldConst folds the type and components of c with f
func SuperFoldConst(f TypeFolder, c Const) Const {
	base := constBase{T: f.FoldTy(c.Type())}
	switch c := c.(type) {
	case ConstValue:
		return ConstValue{constBase: base, Val: c.Val}
	case ConstParam:
		return ConstParam{constBase: base, Index: c.Index, Name: c.Name}
	case ConstPlaceholder:
		return ConstPlaceholder{constBase: base, Universe: c.Universe, Var: c.Var}
	case ConstInfer:
		return ConstInfer{constBase: base, Kind: c.Kind, Index: c.Index}
	case ConstBound:
		return ConstBound{constBase: base, Debruijn: c.Debruijn, Var: c.Var}
	case ConstUnevaluated:
		return ConstUnevaluated{constBase: base, Def: c.Def, Args: c.Args.FoldWith(f)}
	case ConstExpr:
		return ConstExpr{constBase: base, Expr: c.Expr.FoldWith(f)}
	case ConstError:
		return ConstError{constBase: base}
	}
	bug.Panicf("unknown const %T", c)
	return c
}

func (e Expr) FoldWith(f TypeFolder) Expr {
	operands := make([]Const, len(e.Operands))
	for i, op := range e.Operands {
		operands[i] = f.FoldConst(op)
	}
	var to Ty
	if e.CastTo != nil {
		to = f.FoldTy(e.CastTo)
	}
	return Expr{Kind: e.Kind, Op: e.Op, Operands: operands, CastTo: to}
}

// BottomUpFolder applies its functions after folding the components of each term.
// Nil functions leave terms of that kind unchanged.
type BottomUpFolder struct {
	Ty     func(Ty) Ty
	Region func(Region) Region
	Const  func(Const) Const
}

func (b BottomUpFolder) FoldTy(t Ty) Ty {
	t = SuperFoldTy(b, t)
	if b.Ty != nil {
		return b.Ty(t)
	}
	return t
}

func (b BottomUpFolder) FoldRegion(r Region) Region {
	if b.Region != nil {
		return b.Region(r)
	}
	return r
}

func (b BottomUpFolder) FoldConst(c Const) Const {
	c = SuperFoldConst(b, c)
	if b.Const != nil {
		return b.Const(c)
	}
	return c
}

// walker is a folder that reports terms to visit without rewriting anything
type walker struct {
	visit   func(arg GenericArg, depth DebruijnIndex) bool
	binders DebruijnIndex
	stop    bool
}

func (w *walker) EnterBinder() { w.binders++ }
func (w *walker) ExitBinder()  { w.binders-- }

func (w *walker) FoldTy(t Ty) Ty {
	if w.stop {
		return t
	}
	if w.visit(t, w.binders) {
		SuperFoldTy(w, t)
	}
	return t
}

func (w *walker) FoldRegion(r Region) Region {
	if !w.stop {
		w.visit(r, w.binders)
	}
	return r
}

func (w *walker) FoldConst(c Const) Const {
	if w.stop {
		return c
	}
	if w.visit(c, w.binders) {
		SuperFoldConst(w, c)
	}
	return c
}

// Walk calls visit on every type, region and const in v, outermost first. Components of
// a term are skipped when visit returns false for it.
func Walk[T any](v T, visit func(arg GenericArg) bool) {
	Fold[T](&walker{visit: func(arg GenericArg, _ DebruijnIndex) bool { return visit(arg) }}, v)
}

// Any reports whether pred holds for some term in v
func Any[T any](v T, pred func(arg GenericArg, binders DebruijnIndex) bool) bool {
	w := &walker{}
	w.visit = func(arg GenericArg, depth DebruijnIndex) bool {
		if pred(arg, depth) {
			w.stop = true
		}
		return !w.stop
	}
	Fold[T](w, v)
	return w.stop
}

func HasEscapingBoundVars[T any](v T) bool {
	return Any(v, func(arg GenericArg, binders DebruijnIndex) bool {
		switch arg := arg.(type) {
		case BoundTy:
			return arg.Debruijn >= binders
		case Region:
			return arg.Kind == ReLateBound && arg.Debruijn >= binders
		case ConstBound:
			return arg.Debruijn >= binders
		}
		return false
	})
}

// HasInfer reports whether v mentions inference variables of any kind
func HasInfer[T any](v T) bool {
	return Any(v, func(arg GenericArg, _ DebruijnIndex) bool {
		switch arg := arg.(type) {
		case Infer, ConstInfer:
			return true
		case Region:
			return arg.Kind == ReVar
		}
		return false
	})
}

// HasTyInfer reports whether v mentions type, int, float or const inference variables
func HasTyInfer[T any](v T) bool {
	return Any(v, func(arg GenericArg, _ DebruijnIndex) bool {
		switch arg.(type) {
		case Infer, ConstInfer:
			return true
		}
		return false
	})
}

func HasParams[T any](v T) bool {
	return Any(v, func(arg GenericArg, _ DebruijnIndex) bool {
		switch arg := arg.(type) {
		case Param, ConstParam:
			return true
		case Region:
			return arg.Kind == ReEarlyBound
		}
		return false
	})
}

func HasPlaceholders[T any](v T) bool {
	return Any(v, func(arg GenericArg, _ DebruijnIndex) bool {
		switch arg := arg.(type) {
		case PlaceholderTy, ConstPlaceholder:
			return true
		case Region:
			return arg.Kind == RePlaceholder
		}
		return false
	})
}

func HasErrors[T any](v T) bool {
	return Any(v, func(arg GenericArg, _ DebruijnIndex) bool {
		switch arg := arg.(type) {
		case Error, ConstError:
			return true
		case Region:
			return arg.Kind == ReError
		}
		return false
	})
}

// paramSubst replaces generic parameters with the arguments of an instantiation
type paramSubst struct {
	args Args
}

func (s paramSubst) FoldTy(t Ty) Ty {
	if p, ok := t.(Param); ok {
		if int(p.Index) >= len(s.args) {
			bug.Panicf("type parameter %v out of range of %v", p, s.args)
		}
		return s.args.TypeAt(int(p.Index))
	}
	return SuperFoldTy(s, t)
}

func (s paramSubst) FoldRegion(r Region) Region {
	if r.Kind != ReEarlyBound {
		return r
	}
	if int(r.Index) >= len(s.args) {
		bug.Panicf("region parameter %v out of range of %v", r, s.args)
	}
	re, ok := s.args[r.Index].(Region)
	if !ok {
		bug.Panicf("expected region for parameter %v, found %v", r, s.args[r.Index])
	}
	return re
}

func (s paramSubst) FoldConst(c Const) Const {
	if p, ok := c.(ConstParam); ok {
		if int(p.Index) >= len(s.args) {
			bug.Panicf("const parameter %v out of range of %v", p, s.args)
		}
		ct, ok := s.args[p.Index].(Const)
		if !ok {
			bug.Panicf("expected const for parameter %v, found %v", p, s.args[p.Index])
		}
		return ct
	}
	return SuperFoldConst(s, c)
}

// Instantiate substitutes the generic parameters of v with args
func Instantiate[T any](v T, args Args) T {
	if len(args) == 0 {
		return v
	}
	return Fold[T](paramSubst{args: args}, v)
}

// BoundVarReplacer supplies the terms that replace the variables of a Binder
type BoundVarReplacer interface {
	ReplaceTy(BoundTy) Ty
	ReplaceRegion(Region) Region
	ReplaceConst(ConstBound) Const
}

type boundVarFolder struct {
	delegate BoundVarReplacer
	binders  DebruijnIndex
}

func (b *boundVarFolder) EnterBinder() { b.binders++ }
func (b *boundVarFolder) ExitBinder()  { b.binders-- }

func (b *boundVarFolder) FoldTy(t Ty) Ty {
	if bt, ok := t.(BoundTy); ok {
		switch {
		case bt.Debruijn == b.binders:
			return b.delegate.ReplaceTy(bt)
		case bt.Debruijn > b.binders:
			return BoundTy{Debruijn: bt.Debruijn - 1, Var: bt.Var}
		}
		return t
	}
	return SuperFoldTy(b, t)
}

func (b *boundVarFolder) FoldRegion(r Region) Region {
	if r.Kind != ReLateBound {
		return r
	}
	switch {
	case r.Debruijn == b.binders:
		return b.delegate.ReplaceRegion(r)
	case r.Debruijn > b.binders:
		return NewLateBound(r.Debruijn-1, r.Var)
	}
	return r
}

func (b *boundVarFolder) FoldConst(c Const) Const {
	if bc, ok := c.(ConstBound); ok {
		switch {
		case bc.Debruijn == b.binders:
			return b.delegate.ReplaceConst(bc)
		case bc.Debruijn > b.binders:
			return NewConstBound(bc.T, bc.Debruijn-1, bc.Var)
		}
		return c
	}
	return SuperFoldConst(b, c)
}

// ReplaceBoundVars strips the binder of b, replacing the variables it binds using delegate
func ReplaceBoundVars[T any](b Binder[T], delegate BoundVarReplacer) T {
	if len(b.Vars) == 0 && !HasEscapingBoundVars(b.Value) {
		return b.Value
	}
	return Fold[T](&boundVarFolder{delegate: delegate}, b.Value)
}
