package solve

import (
	"slices"
	"strings"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/relate"
	"github.com/cottand/tyrel/types"
	"github.com/hashicorp/go-set/v3"
)

// Solver proves goals within one inference session. It shares the session's
// single-goroutine restriction.
type Solver struct {
	infcx *infer.InferCtxt
	cfg   Config

	// active holds the freshened goals currently being proven, for cycle detection
	active *set.Set[string]

	trackAmbiguity bool
	causes         *set.Set[IntercrateAmbiguityCause]
	causeOrder     []IntercrateAmbiguityCause
}

// New returns a solver for infcx, which it also installs as the session's evaluator
// unless one is already set
func New(infcx *infer.InferCtxt, cfg Config) *Solver {
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = DefaultConfig().RecursionLimit
	}
	s := &Solver{
		infcx:  infcx,
		cfg:    cfg,
		active: set.New[string](8),
		causes: set.New[IntercrateAmbiguityCause](0),
	}
	if infcx.Evaluator == nil {
		infcx.Evaluator = s
	}
	return s
}

func (s *Solver) Infcx() *infer.InferCtxt { return s.infcx }
func (s *Solver) Config() Config          { return s.cfg }

func (s *Solver) intercrate() bool {
	return s.cfg.Mode == ModeCoherence || s.infcx.Intercrate
}

// TrackAmbiguityCauses makes the solver remember why goals were ambiguous in coherence
// mode. It costs extra candidate evaluations, so it is off by default.
func (s *Solver) TrackAmbiguityCauses() { s.trackAmbiguity = true }

// AmbiguityCauses returns the recorded causes in the order they were first seen
func (s *Solver) AmbiguityCauses() []IntercrateAmbiguityCause {
	return slices.Clone(s.causeOrder)
}

func (s *Solver) recordCause(c IntercrateAmbiguityCause) {
	if s.causes.Insert(c) {
		s.causeOrder = append(s.causeOrder, c)
	}
}

// Evaluate proves o in the current session. Inference constraints required by a
// unique applicable candidate are kept, everything else is rolled back.
func (s *Solver) Evaluate(o infer.Obligation) Certainty {
	return s.evaluateObligation(o)
}

// EvaluateInProbe proves o leaving the session as it was
func (s *Solver) EvaluateInProbe(o infer.Obligation) Certainty {
	return infer.Probe(s.infcx, func(infer.Snapshot) Certainty {
		return s.evaluateObligation(o)
	})
}

func (s *Solver) PredicateMayHold(o infer.Obligation) bool {
	return s.EvaluateInProbe(o).MayHold()
}

// TypesMightBeEqual reports whether a and b can be equated with goals that may hold
func (s *Solver) TypesMightBeEqual(env types.ParamEnv, a, b types.Ty) bool {
	return infer.Probe(s.infcx, func(infer.Snapshot) bool {
		obligations, err := relate.NewAt(s.infcx, infer.MiscCause, env).Eq(a, b)
		if err != nil {
			return false
		}
		return s.evaluateAll(obligations).MayHold()
	})
}

func (s *Solver) at(o infer.Obligation) relate.At {
	return relate.NewAt(s.infcx, o.Cause, o.ParamEnv)
}

// derive re-parents obligations produced while proving o
func derive(o infer.Obligation, obligations []infer.Obligation) []infer.Obligation {
	ret := make([]infer.Obligation, len(obligations))
	for i, ob := range obligations {
		ret[i] = o.Derive(ob.Predicate)
	}
	return ret
}

func derivePred(o infer.Obligation, p types.Predicate) infer.Obligation {
	return o.Derive(types.Dummy(p))
}

func (s *Solver) goalKey(env types.ParamEnv, clause types.Clause) string {
	var sb strings.Builder
	sb.WriteString(types.Key(infer.Freshen(s.infcx, clause)))
	for _, b := range env.CallerBounds {
		sb.WriteString("; ")
		sb.WriteString(types.Key(b))
	}
	if env.Reveal == types.RevealAll {
		sb.WriteString("; reveal")
	}
	return sb.String()
}

func (s *Solver) evaluateObligation(o infer.Obligation) Certainty {
	if o.Depth > s.cfg.RecursionLimit {
		s.infcx.Logger.Debug("recursion limit reached", "section", "solve", "obligation", o)
		return Overflow
	}
	clause := infer.ResolveVars(s.infcx, o.Predicate)
	key := s.goalKey(o.ParamEnv, clause)
	if s.active.Contains(key) {
		return s.cycle(clause)
	}
	s.active.Insert(key)
	defer s.active.Remove(key)

	snap := s.infcx.StartSnapshot()
	pred := infer.InstantiateBinderWithPlaceholders(s.infcx, clause)
	c := s.evaluatePredicate(o, pred)
	if c.MayHold() && s.infcx.LeakCheck(snap.Universe(), &snap) != nil {
		c = No
	}
	if c.IsNo() {
		s.infcx.RollbackTo(snap)
	} else {
		s.infcx.Commit(snap)
	}
	s.infcx.Logger.Debug("evaluated", "section", "solve", "goal", pred, "depth", o.Depth, "result", c)
	return c
}

// cycle answers a goal that is already being proven further up. Auto traits are
// coinductive: a type is Send if it is Send assuming it is Send. Everything else is
// inductive and a cycle proves nothing.
func (s *Solver) cycle(clause types.Clause) Certainty {
	p, ok := clause.Value.(types.TraitPredicate)
	if ok && p.Polarity == types.Positive && s.isAuto(p.Def) {
		return Yes
	}
	return No
}

func (s *Solver) isAuto(trait types.DefId) bool {
	return s.infcx.Tcx.HasTrait(trait) && s.infcx.Tcx.Trait(trait).IsAuto
}

func (s *Solver) evaluatePredicate(o infer.Obligation, pred types.Predicate) Certainty {
	switch p := pred.(type) {
	case types.TraitPredicate:
		return s.evaluateTrait(o, p)
	case types.ProjectionPredicate:
		return s.evaluateProjection(o, p)
	case types.SubtypePredicate:
		return s.evaluateSubtype(o, p)
	case types.WellFormed:
		return s.evaluateWellFormed(o, p)
	case types.ConstEquate:
		return s.evaluateConstEquate(o, p)
	case types.AliasRelate:
		return s.evaluateAliasRelate(o, p)
	case types.TypeOutlives:
		s.registerTypeOutlives(p)
		return Yes
	case types.RegionOutlives:
		s.infcx.RegionConstraints().MakeSubregion(p.B, p.A)
		return Yes
	case types.AmbiguousPredicate:
		return Maybe
	}
	bug.Panicf("cannot evaluate predicate %v", pred)
	return No
}

// evaluateAll proves obligations, retrying ambiguous ones as long as others make progress
func (s *Solver) evaluateAll(obligations []infer.Obligation) Certainty {
	if len(obligations) == 0 {
		return Yes
	}
	f := NewFulfillmentCtxt(s)
	f.Register(obligations...)
	_, c := f.run(true)
	return c
}

func (s *Solver) registerTypeOutlives(p types.TypeOutlives) {
	types.Walk(p.Ty, func(arg types.GenericArg) bool {
		if r, ok := arg.(types.Region); ok && r.Kind != types.ReLateBound {
			s.infcx.RegionConstraints().MakeSubregion(p.Region, r)
		}
		return true
	})
}
