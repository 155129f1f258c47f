package relate

import (
	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/types"
)

// Binders relates two higher-ranked values. inner relates the values once their bound
// variables have been dealt with.
//
// Subtyping instantiates the supertype with placeholders and the subtype with fresh
// variables so that `for<'a> fn(&'a u8) <: fn(&'x u8)` holds for every 'x. Equality does
// that in both directions and the lattice operations fall back to equality.
func Binders[T any](r Relation, a, b types.Binder[T], inner func(Relation, T, T) (T, error)) (types.Binder[T], error) {
	c, ok := r.(*Combiner)
	if !ok {
		v, err := inner(r, a.Value, b.Value)
		if err != nil {
			return types.Binder[T]{}, err
		}
		return types.Rebind(a, v), nil
	}

	if !escapes(a) && !escapes(b) {
		v, err := inner(c, a.Value, b.Value)
		if err != nil {
			return types.Binder[T]{}, err
		}
		return types.Rebind(a, v), nil
	}

	switch c.mode {
	case ModeSub:
		if err := higherRankedSub(c, a, b, c.aIsExpected, inner); err != nil {
			return types.Binder[T]{}, err
		}
	case ModeEquate, ModeLub, ModeGlb:
		if err := higherRankedSub(c, a, b, c.aIsExpected, inner); err != nil {
			return types.Binder[T]{}, err
		}
		if err := higherRankedSub(c, b, a, c.aIsExpected, inner); err != nil {
			return types.Binder[T]{}, err
		}
	default:
		bug.Panicf("unknown relation mode %v", c.mode)
	}
	return a, nil
}

func escapes[T any](b types.Binder[T]) bool {
	return types.HasEscapingBoundVars(b.Value)
}

func higherRankedSub[T any](c *Combiner, sub, sup types.Binder[T], subIsExpected bool, inner func(Relation, T, T) (T, error)) error {
	supPrime := infer.InstantiateBinderWithPlaceholders(c.infcx, sup)
	subPrime := infer.InstantiateBinderWithFresh(c.infcx, sub)
	c.infcx.Logger.Debug("higher-ranked subtyping", "section", "relate.binders", "sub", subPrime, "sup", supPrime)
	_, err := inner(c.with(ModeSub, subIsExpected), subPrime, supPrime)
	return err
}
