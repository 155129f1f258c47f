package coherence

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/relate"
	"github.com/cottand/tyrel/solve"
	"github.com/cottand/tyrel/types"
)

// ImplHeader is the part of an impl that decides where it applies
type ImplHeader struct {
	Impl       types.DefId
	SelfTy     types.Ty
	TraitRef   *types.TraitRef
	Predicates []types.Clause
}

// DeclaredHeader is the header of impl def in terms of its own generic parameters
func DeclaredHeader(tcx *types.Tcx, def types.DefId) ImplHeader {
	impl := tcx.Impl(def)
	return ImplHeader{Impl: def, SelfTy: impl.SelfTy, TraitRef: impl.TraitRef, Predicates: impl.Predicates}
}

func (h ImplHeader) String() string {
	var sb strings.Builder
	sb.WriteString("impl ")
	if h.TraitRef != nil {
		sb.WriteString(h.TraitRef.Def.String())
		if rest := h.TraitRef.Args[1:]; len(rest) > 0 {
			args := make([]string, len(rest))
			for i, a := range rest {
				args[i] = a.String()
			}
			fmt.Fprintf(&sb, "<%s>", strings.Join(args, ", "))
		}
		sb.WriteString(" for ")
	}
	sb.WriteString(h.SelfTy.String())
	for i, p := range h.Predicates {
		if i == 0 {
			sb.WriteString(" where ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}

// OverlapResult describes the types two overlapping impls both apply to
type OverlapResult struct {
	// Header is the first impl's header instantiated to the common types
	Header          ImplHeader
	AmbiguityCauses []solve.IntercrateAmbiguityCause
	// InvolvesPlaceholder is set when the overlap needed a higher-ranked region to be
	// related to another region, which the leak check may be skipping
	InvolvesPlaceholder bool
}

type Checker struct {
	tcx    *types.Tcx
	cfg    Config
	logger *slog.Logger
}

// NewChecker checks impls in tcx. The checker is safe for concurrent use: every check
// opens its own inference sessions.
func NewChecker(tcx *types.Tcx, cfg Config) *Checker {
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = DefaultConfig().RecursionLimit
	}
	return &Checker{tcx: tcx, cfg: cfg, logger: cfg.logger()}
}

// OverlappingImpls reports whether some types satisfy both impl a and impl b, which
// must either both be trait impls or both be inherent impls
func (c *Checker) OverlappingImpls(a, b types.DefId) (OverlapResult, bool) {
	if !c.mayOverlap(a, b) {
		c.logger.Debug("fast reject", "a", a, "b", b)
		return OverlapResult{}, false
	}
	if _, ok := c.overlap(false, a, b); !ok {
		return OverlapResult{}, false
	}
	// tracking ambiguity causes costs extra work, so it is only done once an overlap is known
	ret, ok := c.overlap(true, a, b)
	if !ok {
		bug.Panicf("impls %v and %v only overlap when not tracking ambiguity causes", a, b)
	}
	return ret, true
}

func (c *Checker) mayOverlap(a, b types.DefId) bool {
	implA, implB := c.tcx.Impl(a), c.tcx.Impl(b)
	switch {
	case implA.TraitRef != nil && implB.TraitRef != nil:
		return implA.TraitRef.Def == implB.TraitRef.Def && solve.ArgsMayUnify(implA.TraitRef.Args, implB.TraitRef.Args, solve.AsCandidateKey)
	case implA.IsInherent() && implB.IsInherent():
		return solve.TypesMayUnify(implA.SelfTy, implB.SelfTy, solve.AsCandidateKey)
	}
	bug.Panicf("cannot check %v and %v for overlap: only one is a trait impl", a, b)
	return false
}

// intercrateSession opens an inference session that reasons about impls other crates
// might add
func (c *Checker) intercrateSession(trackCauses bool) (*infer.InferCtxt, *solve.Solver) {
	infcx := infer.New(c.tcx, infer.Options{
		Intercrate:    true,
		NextSolver:    true,
		SkipLeakCheck: c.cfg.SkipLeakCheck,
		Logger:        c.logger,
	})
	solver := solve.New(infcx, c.cfg.intercrate())
	if trackCauses {
		solver.TrackAmbiguityCauses()
	}
	return infcx, solver
}

// Prove evaluates o the way overlap checks evaluate where-clauses, and returns the
// reasons it was ambiguous
func (c *Checker) Prove(o infer.Obligation) (solve.Certainty, []solve.IntercrateAmbiguityCause) {
	_, solver := c.intercrateSession(true)
	return solver.Evaluate(o), solver.AmbiguityCauses()
}

func (c *Checker) overlap(trackCauses bool, a, b types.DefId) (OverlapResult, bool) {
	if c.cfg.Mode.UseNegativeImpl() && (c.hasNegativeObligation(a, b) || c.hasNegativeObligation(b, a)) {
		return OverlapResult{}, false
	}

	infcx, solver := c.intercrateSession(trackCauses)

	// the session is thrown away, but failing early must not leave state behind either
	type result struct {
		OverlapResult
		ok bool
	}
	res := infer.Probe(infcx, func(infer.Snapshot) result {
		h1 := withFreshVars(infcx, a)
		h2 := withFreshVars(infcx, b)
		obligations, ok := equateHeaders(infcx, h1, h2)
		if !ok {
			return result{}
		}
		if c.cfg.Mode.UseImplicitNegative() && c.hasImpossibleObligation(solver, h1, h2, obligations) {
			return result{}
		}
		if err := infcx.LeakCheck(types.RootUniverse, nil); err != nil {
			c.logger.Debug("leak check failed", "a", a, "b", b, "err", err)
			return result{}
		}
		return result{
			OverlapResult: OverlapResult{
				Header:              resolveHeader(infcx, h1),
				AmbiguityCauses:     solver.AmbiguityCauses(),
				InvolvesPlaceholder: infcx.RegionConstraintsInvolvePlaceholders(nil),
			},
			ok: true,
		}
	})
	return res.OverlapResult, res.ok
}

// withFreshVars instantiates the header of impl def with fresh inference variables
func withFreshVars(infcx *infer.InferCtxt, def types.DefId) ImplHeader {
	impl := infcx.Tcx.Impl(def)
	args := infcx.FreshArgsFor(impl.Generics)
	h := ImplHeader{Impl: def, SelfTy: types.Instantiate(impl.SelfTy, args)}
	if impl.TraitRef != nil {
		ref := types.Instantiate(*impl.TraitRef, args)
		h.TraitRef = &ref
	}
	for _, p := range impl.Predicates {
		h.Predicates = append(h.Predicates, types.Instantiate(p, args))
	}
	return h
}

func resolveHeader(infcx *infer.InferCtxt, h ImplHeader) ImplHeader {
	ret := ImplHeader{Impl: h.Impl, SelfTy: infer.ResolveVars(infcx, h.SelfTy)}
	if h.TraitRef != nil {
		ref := infer.ResolveVars(infcx, *h.TraitRef)
		ret.TraitRef = &ref
	}
	for _, p := range h.Predicates {
		ret.Predicates = append(ret.Predicates, infer.ResolveVars(infcx, p))
	}
	return ret
}

// equateHeaders equates the trait refs of two trait impls, or the self types of two
// inherent impls
func equateHeaders(infcx *infer.InferCtxt, a, b ImplHeader) ([]infer.Obligation, bool) {
	at := relate.NewAt(infcx, infer.MiscCause, types.EmptyParamEnv)
	var obligations []infer.Obligation
	var err error
	switch {
	case a.TraitRef != nil && b.TraitRef != nil:
		obligations, err = at.EqTraitRefs(*a.TraitRef, *b.TraitRef)
	case a.TraitRef == nil && b.TraitRef == nil:
		obligations, err = at.Eq(a.SelfTy, b.SelfTy)
	default:
		bug.Panicf("cannot equate the headers of %v and %v", a.Impl, b.Impl)
	}
	if err != nil {
		infcx.Logger.Debug("headers do not unify", "section", "coherence", "a", a, "b", b, "err", err)
		return nil, false
	}
	return obligations, true
}

// hasImpossibleObligation reports whether a where-clause of either impl, or a goal needed
// to equate their headers, definitely cannot hold for the common types. Ambiguous and
// overflowing goals may hold.
func (c *Checker) hasImpossibleObligation(solver *solve.Solver, a, b ImplHeader, obligations []infer.Obligation) bool {
	var all []infer.Obligation
	for _, p := range slices.Concat(a.Predicates, b.Predicates) {
		all = append(all, infer.Obligation{Cause: infer.MiscCause, ParamEnv: types.EmptyParamEnv, Predicate: p})
	}
	all = append(all, obligations...)
	for _, o := range all {
		if !solver.EvaluateInProbe(o).MayHold() {
			c.logger.Debug("obligation cannot hold", "obligation", o)
			return true
		}
	}
	return false
}

// hasNegativeObligation reports whether, assuming the where-clauses of impl a, some
// where-clause of impl b is disproven by a negative impl once b is made to apply to the
// types a applies to
func (c *Checker) hasNegativeObligation(a, b types.DefId) bool {
	implA, implB := c.tcx.Impl(a), c.tcx.Impl(b)
	infcx := infer.New(c.tcx, infer.Options{SkipLeakCheck: c.cfg.SkipLeakCheck, Logger: c.logger})
	solver := solve.New(infcx, solve.Config{RecursionLimit: c.cfg.RecursionLimit})
	env := types.ParamEnv{CallerBounds: implA.Predicates}

	args := infcx.FreshArgsFor(implB.Generics)
	at := relate.NewAt(infcx, infer.MiscCause, env)
	var obligations []infer.Obligation
	var err error
	if implA.TraitRef != nil && implB.TraitRef != nil {
		obligations, err = at.EqTraitRefs(*implA.TraitRef, types.Instantiate(*implB.TraitRef, args))
	} else {
		obligations, err = at.Eq(implA.SelfTy, types.Instantiate(implB.SelfTy, args))
	}
	if err != nil {
		return false
	}
	for _, p := range implB.Predicates {
		obligations = append(obligations, infer.Obligation{Cause: infer.MiscCause, ParamEnv: env, Predicate: types.Instantiate(p, args)})
	}
	for _, o := range obligations {
		if c.negativeImplExists(solver, o) {
			c.logger.Debug("negative impl disproves obligation", "obligation", o, "a", a, "b", b)
			return true
		}
	}
	return false
}

// negativeImplExists tries to prove the negation of o, or of one of the supertraits it
// implies
func (c *Checker) negativeImplExists(solver *solve.Solver, o infer.Obligation) bool {
	p, ok := o.Predicate.Value.(types.TraitPredicate)
	if !ok {
		return false
	}
	flipped, ok := p.Polarity.Flip()
	if !ok {
		return false
	}
	for _, super := range c.tcx.Supertraits(p.TraitRef) {
		var negated types.Predicate = types.TraitPredicate{TraitRef: super, Polarity: flipped}
		if solver.EvaluateInProbe(infer.Obligation{Cause: o.Cause, ParamEnv: o.ParamEnv, Predicate: types.Rebind(o.Predicate, negated)}).IsYes() {
			return true
		}
	}
	return false
}
