// Package coherence checks that no two impls can apply to the same type, and that impls
// of foreign traits follow the orphan rules.
package coherence

import (
	"log/slog"

	"github.com/cottand/tyrel/internal/log"
	"github.com/cottand/tyrel/solve"
	"github.com/pkg/errors"
)

// OverlapMode selects how impls whose headers unify can still be shown to be disjoint
type OverlapMode uint8

const (
	// Stable disproves overlap when one of the impls' where-clauses is known not to hold
	Stable OverlapMode = iota
	// WithNegative also accepts negative impls of a where-clause as proof
	WithNegative
	// Strict only accepts negative impls
	Strict
)

var overlapModeNames = [...]string{
	Stable:       "stable",
	WithNegative: "with-negative",
	Strict:       "strict",
}

func (m OverlapMode) String() string { return overlapModeNames[m] }

func (m OverlapMode) UseImplicitNegative() bool { return m == Stable || m == WithNegative }
func (m OverlapMode) UseNegativeImpl() bool     { return m == WithNegative || m == Strict }

func ParseOverlapMode(s string) (OverlapMode, error) {
	for i, n := range overlapModeNames {
		if n == s {
			return OverlapMode(i), nil
		}
	}
	return 0, errors.Errorf("unknown overlap mode %q, expected one of %v", s, overlapModeNames)
}

type Config struct {
	Mode OverlapMode
	// SkipLeakCheck lets higher-ranked impls overlap with the impls they are more general than
	SkipLeakCheck  bool
	RecursionLimit int
	Logger         *slog.Logger
}

func DefaultConfig() Config {
	return Config{Mode: Stable, RecursionLimit: solve.DefaultConfig().RecursionLimit}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Section("coherence")
}

// intercrate is the solver configuration of overlap checks
func (c Config) intercrate() solve.Config {
	return solve.Config{RecursionLimit: c.RecursionLimit, Mode: solve.ModeCoherence, Knowable: TraitRefIsKnowable}
}
