package infer

import "github.com/cottand/tyrel/types"

// Snapshot marks a point the session can be rolled back to. Snapshots nest and must be
// closed in the reverse order they were opened in.
type Snapshot struct {
	undoLen           int
	depth             int
	universe          types.UniverseIndex
	regionConstraints int
}

func (s Snapshot) Universe() types.UniverseIndex {
	return s.universe
}

func (i *InferCtxt) StartSnapshot() Snapshot {
	length, depth := i.log.start()
	return Snapshot{
		undoLen:           length,
		depth:             depth,
		universe:          i.universe,
		regionConstraints: i.regions.NumConstraints(),
	}
}

// RollbackTo undoes every change made since s
func (i *InferCtxt) RollbackTo(s Snapshot) {
	i.log.rollbackTo(s.undoLen, s.depth)
	i.universe = s.universe
}

// Commit keeps the changes made since s
func (i *InferCtxt) Commit(s Snapshot) {
	i.log.commit(s.undoLen, s.depth)
}

// Probe runs f and then rolls back everything it did
func Probe[T any](i *InferCtxt, f func(snap Snapshot) T) T {
	snap := i.StartSnapshot()
	defer i.RollbackTo(snap)
	return f(snap)
}

// CommitIf runs f and keeps its changes only when it succeeds
func CommitIf[T any](i *InferCtxt, f func(snap Snapshot) (T, error)) (T, error) {
	snap := i.StartSnapshot()
	ret, err := f(snap)
	if err != nil {
		i.RollbackTo(snap)
		return ret, err
	}
	i.Commit(snap)
	return ret, nil
}

// CommitUnconditionally runs f in a snapshot and keeps its changes
func CommitUnconditionally[T any](i *InferCtxt, f func(snap Snapshot) T) T {
	snap := i.StartSnapshot()
	ret := f(snap)
	i.Commit(snap)
	return ret
}
