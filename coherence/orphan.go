package coherence

import (
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/solve"
	"github.com/cottand/tyrel/tyerr"
	"github.com/cottand/tyrel/types"
)

// inCrate is the crate an orphan check is done for. A remote crate is any crate we do not
// know about: none of the types we know are local to it.
type inCrate uint8

const (
	inLocal inCrate = iota
	inRemote
)

type exitKind uint8

const (
	keepGoing exitKind = iota
	foundParam
	foundLocal
)

type orphanExit struct {
	kind exitKind
	ty   types.Ty
}

type orphanChecker struct {
	tcx      *types.Tcx
	in       inCrate
	inSelfTy bool
	// searchFirstLocal ignores parameters and only looks for the first local type
	searchFirstLocal bool
	nonLocal         []tyerr.NonLocalTy
}

func (c *orphanChecker) isLocal(def types.DefId) bool {
	return c.in == inLocal && def.IsLocal()
}

func (c *orphanChecker) nonLocalTy(t types.Ty) orphanExit {
	c.nonLocal = append(c.nonLocal, tyerr.NonLocalTy{Ty: t, InSelf: c.inSelfTy})
	return orphanExit{}
}

func (c *orphanChecker) localIf(local bool, t types.Ty) orphanExit {
	if local {
		return orphanExit{kind: foundLocal, ty: t}
	}
	return c.nonLocalTy(t)
}

func (c *orphanChecker) visitArgs(args types.Args) orphanExit {
	for _, a := range args {
		// lifetimes and consts never make an impl local or uncovered
		t, ok := a.(types.Ty)
		if !ok {
			continue
		}
		if e := c.visitTy(t); e.kind != keepGoing {
			return e
		}
	}
	return orphanExit{}
}

// visitTy walks t as far as fundamental types let it, stopping at the first local type or
// uncovered parameter
func (c *orphanChecker) visitTy(t types.Ty) orphanExit {
	// only the first type visited is the self type
	defer func() { c.inSelfTy = false }()

	switch t := t.(type) {
	case types.Param:
		if c.searchFirstLocal {
			return orphanExit{}
		}
		return orphanExit{kind: foundParam, ty: t}
	case types.PlaceholderTy, types.BoundTy, types.Infer:
		// a remote crate could pick one of its own types
		return c.localIf(c.in == inRemote, t)
	case types.Ref:
		return c.visitTy(t.Elem)
	case types.Adt:
		if c.isLocal(t.Def) {
			return orphanExit{kind: foundLocal, ty: t}
		}
		if c.tcx.Adt(t.Def).Fundamental {
			return c.visitArgs(t.Args)
		}
		return c.nonLocalTy(t)
	case types.Foreign:
		return c.localIf(c.isLocal(t.Def), t)
	case types.Dynamic:
		principal, ok := t.Principal()
		return c.localIf(ok && c.isLocal(principal.Value.Def), t)
	case types.Closure:
		return c.localIf(c.isLocal(t.Def), t)
	case types.Generator:
		return c.localIf(c.isLocal(t.Def), t)
	case types.Error, types.GeneratorWitness:
		return orphanExit{kind: foundLocal, ty: t}
	}
	// scalars, pointers, arrays, slices, tuples, fn types and aliases, opaque types included
	return c.nonLocalTy(t)
}

func orphanCheckTraitRef(tcx *types.Tcx, ref types.TraitRef, in inCrate) tyerr.TyError {
	if types.HasInfer(ref) && types.HasParams(ref) {
		bug.Panicf("orphan check of %v which has both parameters and inference variables", ref)
	}
	c := &orphanChecker{tcx: tcx, in: in, inSelfTy: true}
	exit := c.visitArgs(ref.Args)
	switch exit.kind {
	case keepGoing:
		return tyerr.New(tyerr.NewNonLocalInputType{Tys: c.nonLocal})
	case foundParam:
		c.searchFirstLocal = true
		var after types.Ty
		if local := c.visitArgs(ref.Args); local.kind == foundLocal {
			after = local.ty
		}
		return tyerr.New(tyerr.NewUncoveredTy{Param: exit.ty, LocalAfter: after})
	}
	return nil
}

// OrphanCheck checks that the trait impl def is allowed in the local crate: either the
// trait is local, or a local type appears among the impl's input types before any type
// parameter not covered by a local type.
func OrphanCheck(tcx *types.Tcx, def types.DefId) error {
	if err := orphanCheck(tcx, def); err != nil {
		return err
	}
	return nil
}

func orphanCheck(tcx *types.Tcx, def types.DefId) tyerr.TyError {
	impl := tcx.Impl(def)
	if impl.TraitRef == nil {
		bug.Panicf("orphan check of inherent impl %v", def)
	}
	if impl.TraitRef.Def.IsLocal() {
		return nil
	}
	return orphanCheckTraitRef(tcx, *impl.TraitRef, inLocal)
}

func isLocalOrFundamental(tcx *types.Tcx, ref types.TraitRef) bool {
	return ref.Def.IsLocal() || tcx.Trait(ref.Def).Fundamental
}

// TraitRefIsKnowable reports whether every impl that could make ref hold is already
// visible: no downstream or sibling crate may implement it, and no upstream crate can add
// an impl for it without that being a breaking change.
func TraitRefIsKnowable(tcx *types.Tcx, ref types.TraitRef) solve.ConflictKind {
	if tcx.IsLangItem(ref.Def, types.LangFnPtrTrait) {
		// only fn pointers implement it
		return solve.NoConflict
	}
	if orphanCheckTraitRef(tcx, ref, inRemote) == nil {
		return solve.Downstream
	}
	if isLocalOrFundamental(tcx, ref) {
		return solve.NoConflict
	}
	// a foreign trait is only knowable if we own every instance of ref
	if orphanCheckTraitRef(tcx, ref, inLocal) == nil {
		return solve.NoConflict
	}
	return solve.Upstream
}
