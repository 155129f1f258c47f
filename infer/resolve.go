package infer

import (
	"github.com/cottand/tyrel/types"
)

// ShallowResolve replaces t by the value of its variable, if t is a variable with a known
// value. Unknown variables are replaced by their root.
func (i *InferCtxt) ShallowResolve(t types.Ty) types.Ty {
	v, ok := t.(types.Infer)
	if !ok {
		return t
	}
	switch v.Kind {
	case types.TyVar:
		vid := types.TyVid(v.Index)
		if known := i.tyVars.Probe(vid); known.IsKnown() {
			return i.ShallowResolve(known.Known)
		}
		return types.NewTyVar(i.tyVars.Root(vid))
	case types.IntVar:
		vid := types.IntVid(v.Index)
		if known := i.intVars.Probe(vid); known.Ty != nil {
			return known.Ty
		}
		return types.NewIntVar(i.intVars.Find(vid))
	case types.FloatVar:
		vid := types.FloatVid(v.Index)
		if known := i.floatVars.Probe(vid); known.Ty != nil {
			return known.Ty
		}
		return types.NewFloatVar(i.floatVars.Find(vid))
	}
	return t
}

// ReplaceIfPossible is ShallowResolve for type variables only. Integer and float
// variables are left as they are so that relating them reports a numeric mismatch.
func (i *InferCtxt) ReplaceIfPossible(t types.Ty) types.Ty {
	v, ok := t.(types.Infer)
	if !ok || v.Kind != types.TyVar {
		return t
	}
	vid := types.TyVid(v.Index)
	if known := i.tyVars.Probe(vid); known.IsKnown() {
		return i.ReplaceIfPossible(known.Known)
	}
	return types.NewTyVar(i.tyVars.Root(vid))
}

func (i *InferCtxt) ShallowResolveConst(c types.Const) types.Const {
	vid, ok := types.ConstVidOf(c)
	if !ok {
		return c
	}
	if known := i.constVars.Probe(vid); known.IsKnown() {
		return i.ShallowResolveConst(known.Known)
	}
	return types.NewConstVar(i.constVars.Find(vid), c.Type())
}

type varResolver struct {
	infcx *InferCtxt
}

func (r varResolver) FoldTy(t types.Ty) types.Ty {
	if !types.HasTyInfer(t) {
		return t
	}
	return types.SuperFoldTy(r, r.infcx.ShallowResolve(t))
}

func (r varResolver) FoldRegion(re types.Region) types.Region {
	return re
}

func (r varResolver) FoldConst(c types.Const) types.Const {
	if !types.HasTyInfer(c) {
		return c
	}
	return types.SuperFoldConst(r, r.infcx.ShallowResolveConst(c))
}

// ResolveVars replaces every variable with a known value in v, however deeply nested
func ResolveVars[T any](i *InferCtxt, v T) T {
	if !types.HasTyInfer(v) {
		return v
	}
	return types.Fold[T](varResolver{infcx: i}, v)
}

// ResolveVarsTy is ResolveVars for a single type
func (i *InferCtxt) ResolveVarsTy(t types.Ty) types.Ty {
	return ResolveVars(i, t)
}

// Freshener replaces unresolved variables with fresh placeholders numbered in order of
// appearance, so two terms that only differ in variable identity freshen to the same
// term. Regions other than late-bound ones are erased.
type Freshener struct {
	infcx  *InferCtxt
	tys    map[types.TyVid]types.Ty
	ints   map[types.IntVid]types.Ty
	floats map[types.FloatVid]types.Ty
	consts map[types.ConstVid]types.Const
	count  uint32
}

func (i *InferCtxt) Freshener() *Freshener {
	return &Freshener{
		infcx:  i,
		tys:    map[types.TyVid]types.Ty{},
		ints:   map[types.IntVid]types.Ty{},
		floats: map[types.FloatVid]types.Ty{},
		consts: map[types.ConstVid]types.Const{},
	}
}

func (f *Freshener) next() uint32 {
	n := f.count
	f.count++
	return n
}

func (f *Freshener) FoldTy(t types.Ty) types.Ty {
	t = f.infcx.ShallowResolve(t)
	v, ok := t.(types.Infer)
	if !ok {
		return types.SuperFoldTy(f, t)
	}
	switch v.Kind {
	case types.TyVar:
		vid := types.TyVid(v.Index)
		if fresh, ok := f.tys[vid]; ok {
			return fresh
		}
		fresh := types.Infer{Kind: types.FreshTy, Index: f.next()}
		f.tys[vid] = fresh
		return fresh
	case types.IntVar:
		vid := types.IntVid(v.Index)
		if fresh, ok := f.ints[vid]; ok {
			return fresh
		}
		fresh := types.Infer{Kind: types.FreshIntTy, Index: f.next()}
		f.ints[vid] = fresh
		return fresh
	case types.FloatVar:
		vid := types.FloatVid(v.Index)
		if fresh, ok := f.floats[vid]; ok {
			return fresh
		}
		fresh := types.Infer{Kind: types.FreshFloatTy, Index: f.next()}
		f.floats[vid] = fresh
		return fresh
	}
	return t
}

func (f *Freshener) FoldRegion(r types.Region) types.Region {
	if r.Kind == types.ReLateBound {
		return r
	}
	return types.Erased
}

func (f *Freshener) FoldConst(c types.Const) types.Const {
	c = f.infcx.ShallowResolveConst(c)
	vid, ok := types.ConstVidOf(c)
	if !ok {
		return types.SuperFoldConst(f, c)
	}
	if fresh, ok := f.consts[vid]; ok {
		return fresh
	}
	fresh := types.NewFreshConst(f.next(), f.FoldTy(c.Type()))
	f.consts[vid] = fresh
	return fresh
}

// Freshen freshens v with a new Freshener
func Freshen[T any](i *InferCtxt, v T) T {
	return types.Fold[T](i.Freshener(), v)
}
