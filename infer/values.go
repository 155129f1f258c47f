package infer

import (
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/types"
)

// TypeVariableValue is Unknown while Known is nil. Unknown variables may only be unified
// with terms nameable from Universe.
type TypeVariableValue struct {
	Known    types.Ty
	Universe types.UniverseIndex
}

func (v TypeVariableValue) IsKnown() bool {
	return v.Known != nil
}

func (v TypeVariableValue) UnifyValues(other TypeVariableValue) (TypeVariableValue, error) {
	switch {
	case v.IsKnown() && other.IsKnown():
		bug.Panicf("equating two type variables, both of which have known types: %v and %v", v.Known, other.Known)
	case v.IsKnown():
		return v, nil
	case other.IsKnown():
		return other, nil
	}
	return TypeVariableValue{Universe: min(v.Universe, other.Universe)}, nil
}

// IntVarValue is nil while unknown, and an Int or Uint once known
type IntVarValue struct {
	Ty types.Ty
}

func (v IntVarValue) UnifyValues(other IntVarValue) (IntVarValue, error) {
	return unifyNumeric(v, other, v.Ty, other.Ty)
}

// FloatVarValue is nil while unknown, and a Float once known
type FloatVarValue struct {
	Ty types.Ty
}

func (v FloatVarValue) UnifyValues(other FloatVarValue) (FloatVarValue, error) {
	return unifyNumeric(v, other, v.Ty, other.Ty)
}

func unifyNumeric[V any](v, other V, a, b types.Ty) (V, error) {
	switch {
	case a == nil:
		return other, nil
	case b == nil:
		return v, nil
	case types.Equal(a, b):
		return v, nil
	}
	return v, Conflict{A: a, B: b}
}

type ConstVariableValue struct {
	Known    types.Const
	Universe types.UniverseIndex
}

func (v ConstVariableValue) IsKnown() bool {
	return v.Known != nil
}

func (v ConstVariableValue) UnifyValues(other ConstVariableValue) (ConstVariableValue, error) {
	switch {
	case v.IsKnown() && other.IsKnown():
		bug.Panicf("equating two const variables, both of which have known values: %v and %v", v.Known, other.Known)
	case v.IsKnown():
		return v, nil
	case other.IsKnown():
		return other, nil
	}
	return ConstVariableValue{Universe: min(v.Universe, other.Universe)}, nil
}
