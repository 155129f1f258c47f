// Package solve is the trait goal solver. It proves predicates against impls, built-in
// rules and the caller's where-clauses, answering with a Certainty per goal.
package solve

import (
	"fmt"

	"github.com/cottand/tyrel/types"
)

type Mode uint8

const (
	ModeNormal Mode = iota
	// ModeCoherence treats goals that other crates could make hold as ambiguous
	ModeCoherence
)

func (m Mode) String() string {
	if m == ModeCoherence {
		return "coherence"
	}
	return "normal"
}

// ConflictKind says which crate might add an impl that makes a trait ref hold
type ConflictKind uint8

const (
	NoConflict ConflictKind = iota
	Upstream
	Downstream
)

func (c ConflictKind) Error() string {
	switch c {
	case Upstream:
		return "an upstream crate may add an impl"
	case Downstream:
		return "a downstream crate may add an impl"
	}
	return "knowable"
}

// Knowability decides whether every impl that could make ref hold is visible locally
type Knowability func(tcx *types.Tcx, ref types.TraitRef) ConflictKind

type Config struct {
	// RecursionLimit bounds the depth of nested goals before answering Ambiguous(Overflow)
	RecursionLimit int
	Mode           Mode
	// Knowable is consulted in coherence mode. A nil Knowable considers everything knowable.
	Knowable Knowability
}

func DefaultConfig() Config {
	return Config{RecursionLimit: 128, Mode: ModeNormal}
}

func (c Config) String() string {
	return fmt.Sprintf("solve.Config{limit=%d, mode=%v}", c.RecursionLimit, c.Mode)
}
