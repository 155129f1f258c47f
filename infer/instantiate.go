package infer

import (
	"github.com/cottand/tyrel/types"
)

type freshReplacer struct {
	infcx    *InferCtxt
	tys      map[types.BoundVar]types.Ty
	regions  map[types.BoundVar]types.Region
	consts   map[types.BoundVar]types.Const
	universe types.UniverseIndex
	// placeholders replaces bound variables with placeholders in universe instead of variables
	placeholders bool
}

func newReplacer(i *InferCtxt) *freshReplacer {
	return &freshReplacer{
		infcx:   i,
		tys:     map[types.BoundVar]types.Ty{},
		regions: map[types.BoundVar]types.Region{},
		consts:  map[types.BoundVar]types.Const{},
	}
}

func (r *freshReplacer) ReplaceTy(b types.BoundTy) types.Ty {
	if t, ok := r.tys[b.Var]; ok {
		return t
	}
	var t types.Ty
	if r.placeholders {
		t = types.PlaceholderTy{Universe: r.universe, Var: b.Var}
	} else {
		t = r.infcx.NewTyVar(TypeVariableOrigin{Kind: "higher-ranked"})
	}
	r.tys[b.Var] = t
	return t
}

func (r *freshReplacer) ReplaceRegion(b types.Region) types.Region {
	if re, ok := r.regions[b.Var]; ok {
		return re
	}
	var re types.Region
	if r.placeholders {
		re = types.NewPlaceholderRegion(r.universe, b.Var)
	} else {
		re = r.infcx.NewRegionVar("higher-ranked")
	}
	r.regions[b.Var] = re
	return re
}

func (r *freshReplacer) ReplaceConst(b types.ConstBound) types.Const {
	if c, ok := r.consts[b.Var]; ok {
		return c
	}
	var c types.Const
	if r.placeholders {
		c = types.NewConstPlaceholder(b.T, r.universe, b.Var)
	} else {
		c = r.infcx.NewConstVar(b.T)
	}
	r.consts[b.Var] = c
	return c
}

// InstantiateBinderWithFresh replaces the variables bound by b with fresh inference
// variables in the current universe
func InstantiateBinderWithFresh[T any](i *InferCtxt, b types.Binder[T]) T {
	return types.ReplaceBoundVars(b, newReplacer(i))
}

// InstantiateBinderWithPlaceholders enters a new universe and replaces the variables
// bound by b with placeholders from it
func InstantiateBinderWithPlaceholders[T any](i *InferCtxt, b types.Binder[T]) T {
	if len(b.Vars) == 0 && !types.HasEscapingBoundVars(b.Value) {
		return b.Value
	}
	r := newReplacer(i)
	r.placeholders = true
	r.universe = i.CreateNextUniverse()
	return types.ReplaceBoundVars(b, r)
}

// FreshArgsForItem instantiates every generic parameter of def with a fresh variable
func (i *InferCtxt) FreshArgsForItem(def types.DefId) types.Args {
	return i.FreshArgsFor(i.Tcx.GenericsOf(def))
}

func (i *InferCtxt) FreshArgsFor(g types.Generics) types.Args {
	return g.MapArgs(
		func(_ int, p types.GenericParamDef) types.Ty {
			return i.NewTyVar(TypeVariableOrigin{Kind: "generic", Param: p.Name})
		},
		func(_ int, p types.GenericParamDef) types.Region {
			return i.NewRegionVar(p.Name)
		},
		func(_ int, p types.GenericParamDef) types.Const {
			return i.NewConstVar(p.ConstTy)
		},
	)
}
