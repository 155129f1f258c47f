// Package infer is the inference store: the union-find tables of type, integer, float,
// const and region variables of one inference session, its universes, and the
// snapshot/rollback machinery every speculative step relies on.
package infer

import (
	"log/slog"

	"github.com/cottand/tyrel/internal/log"
	"github.com/cottand/tyrel/types"
	"github.com/google/uuid"
)

// Evaluator answers questions that need the trait solver, which sits above this package
type Evaluator interface {
	// TypesMightBeEqual is a best-effort check used when relating consts of different types
	TypesMightBeEqual(env types.ParamEnv, a, b types.Ty) bool
}

type Options struct {
	// Intercrate sessions reason about impls that other crates might add, for coherence
	Intercrate bool
	// NextSolver relates aliases lazily through AliasRelate obligations
	NextSolver    bool
	SkipLeakCheck bool
	Logger        *slog.Logger
}

// InferCtxt is one inference session. It must only be used from one goroutine at a time.
type InferCtxt struct {
	Tcx *types.Tcx

	log         undoLog
	tyVars      *TypeVariableTable
	intVars     *UnificationTable[types.IntVid, IntVarValue]
	floatVars   *UnificationTable[types.FloatVid, FloatVarValue]
	constVars   *UnificationTable[types.ConstVid, ConstVariableValue]
	constOrigin *loggedVec[types.Ty]
	regions     *RegionConstraintCollector

	universe types.UniverseIndex

	Intercrate    bool
	NextSolver    bool
	SkipLeakCheck bool

	taintedByErrors bool
	Evaluator       Evaluator

	ID     uuid.UUID
	Logger *slog.Logger
}

func New(tcx *types.Tcx, opts Options) *InferCtxt {
	id := uuid.New()
	logger := opts.Logger
	if logger == nil {
		logger = log.Section("infer")
	}
	i := &InferCtxt{
		Tcx:           tcx,
		universe:      types.RootUniverse,
		Intercrate:    opts.Intercrate,
		NextSolver:    opts.NextSolver,
		SkipLeakCheck: opts.SkipLeakCheck,
		ID:            id,
		Logger:        logger.With("session", id.String()),
	}
	i.tyVars = newTypeVariableTable(&i.log)
	i.intVars = newUnificationTable[types.IntVid, IntVarValue](&i.log)
	i.floatVars = newUnificationTable[types.FloatVid, FloatVarValue](&i.log)
	i.constVars = newUnificationTable[types.ConstVid, ConstVariableValue](&i.log)
	i.constOrigin = newLoggedVec[types.Ty](&i.log)
	i.regions = newRegionConstraintCollector(&i.log)
	return i
}

func (i *InferCtxt) TypeVariables() *TypeVariableTable { return i.tyVars }

func (i *InferCtxt) IntVars() *UnificationTable[types.IntVid, IntVarValue] { return i.intVars }

func (i *InferCtxt) FloatVars() *UnificationTable[types.FloatVid, FloatVarValue] { return i.floatVars }

func (i *InferCtxt) ConstVars() *UnificationTable[types.ConstVid, ConstVariableValue] {
	return i.constVars
}

func (i *InferCtxt) RegionConstraints() *RegionConstraintCollector { return i.regions }

func (i *InferCtxt) Universe() types.UniverseIndex { return i.universe }

// CreateNextUniverse enters a new universe nested in the current one
func (i *InferCtxt) CreateNextUniverse() types.UniverseIndex {
	i.universe = i.universe.Next()
	return i.universe
}

func (i *InferCtxt) SetTaintedByErrors() { i.taintedByErrors = true }
func (i *InferCtxt) TaintedByErrors() bool { return i.taintedByErrors }

func (i *InferCtxt) NewTyVarID(origin TypeVariableOrigin) types.TyVid {
	return i.tyVars.New(i.universe, origin)
}

func (i *InferCtxt) NewTyVar(origin TypeVariableOrigin) types.Ty {
	return types.NewTyVar(i.NewTyVarID(origin))
}

func (i *InferCtxt) NewIntVar() types.Ty {
	return types.NewIntVar(i.intVars.NewKey(IntVarValue{}))
}

func (i *InferCtxt) NewFloatVar() types.Ty {
	return types.NewFloatVar(i.floatVars.NewKey(FloatVarValue{}))
}

func (i *InferCtxt) NewConstVar(t types.Ty) types.Const {
	return i.NewConstVarInUniverse(i.universe, t)
}

func (i *InferCtxt) NewConstVarInUniverse(u types.UniverseIndex, t types.Ty) types.Const {
	vid := i.constVars.NewKey(ConstVariableValue{Universe: u})
	i.constOrigin.push(t)
	return types.NewConstVar(vid, t)
}

func (i *InferCtxt) NewRegionVar(origin string) types.Region {
	return types.NewRegionVar(i.regions.NewVar(i.universe, origin))
}

func (i *InferCtxt) NewRegionVarInUniverse(u types.UniverseIndex, origin string) types.Region {
	return types.NewRegionVar(i.regions.NewVar(u, origin))
}

// UniverseOfRegion returns the universe r lives in
func (i *InferCtxt) UniverseOfRegion(r types.Region) types.UniverseIndex {
	return i.regions.UniverseOf(r)
}

// ProbeConstVar returns the value of a const variable, if known, and its universe otherwise
func (i *InferCtxt) ProbeConstVar(vid types.ConstVid) ConstVariableValue {
	return i.constVars.Probe(vid)
}

// ProbeTyVar returns the value of a type variable, if known, and its universe otherwise
func (i *InferCtxt) ProbeTyVar(vid types.TyVid) TypeVariableValue {
	return i.tyVars.Probe(vid)
}

// LeakCheck runs the placeholder leak check over the region constraints added since
// snap, or all of them when snap is nil
func (i *InferCtxt) LeakCheck(outer types.UniverseIndex, snap *Snapshot) error {
	if i.SkipLeakCheck {
		return nil
	}
	since := 0
	if snap != nil {
		since = snap.regionConstraints
	}
	err := i.regions.LeakCheck(outer, since)
	if err != nil {
		i.Logger.Debug("leak check failed", "section", "infer.leak", "err", err)
	}
	return err
}

// RegionConstraintsInvolvePlaceholders reports whether any constraint added since snap mentions one
func (i *InferCtxt) RegionConstraintsInvolvePlaceholders(snap *Snapshot) bool {
	since := 0
	if snap != nil {
		since = snap.regionConstraints
	}
	return i.regions.InvolvesPlaceholders(since)
}
