package infer

import "github.com/cottand/tyrel/internal/bug"

// undoable is a table whose writes can be reverted from the undo log
type undoable interface {
	reverse(e undoEntry)
}

// undoEntry records either a newly pushed element (isNew) or the previous value of an
// overwritten one
type undoEntry struct {
	table undoable
	index int
	prev  any
	isNew bool
}

// undoLog is shared by every table of a session. Entries are only recorded
// while a snapshot is open.
type undoLog struct {
	entries       []undoEntry
	openSnapshots int
}

func (l *undoLog) inSnapshot() bool {
	return l.openSnapshots > 0
}

func (l *undoLog) push(e undoEntry) {
	if l.inSnapshot() {
		l.entries = append(l.entries, e)
	}
}

func (l *undoLog) start() (length, depth int) {
	l.openSnapshots++
	return len(l.entries), l.openSnapshots
}

func (l *undoLog) checkDepth(depth int) {
	if depth != l.openSnapshots {
		bug.Panicf("snapshots must be closed in LIFO order: closing depth %d while %d are open", depth, l.openSnapshots)
	}
}

func (l *undoLog) rollbackTo(length, depth int) {
	l.checkDepth(depth)
	for len(l.entries) > length {
		e := l.entries[len(l.entries)-1]
		l.entries = l.entries[:len(l.entries)-1]
		e.table.reverse(e)
	}
	l.openSnapshots--
}

func (l *undoLog) commit(length, depth int) {
	l.checkDepth(depth)
	l.openSnapshots--
	if l.openSnapshots == 0 {
		// nothing can roll back past here anymore
		l.entries = l.entries[:0]
	}
}

// loggedVec is an append-mostly vector whose writes are undo-logged
type loggedVec[T any] struct {
	items []T
	log   *undoLog
}

func newLoggedVec[T any](log *undoLog) *loggedVec[T] {
	return &loggedVec[T]{log: log}
}

func (v *loggedVec[T]) push(item T) int {
	i := len(v.items)
	v.items = append(v.items, item)
	v.log.push(undoEntry{table: v, index: i, isNew: true})
	return i
}

func (v *loggedVec[T]) set(i int, item T) {
	v.log.push(undoEntry{table: v, index: i, prev: v.items[i]})
	v.items[i] = item
}

func (v *loggedVec[T]) get(i int) T {
	return v.items[i]
}

func (v *loggedVec[T]) len() int {
	return len(v.items)
}

func (v *loggedVec[T]) reverse(e undoEntry) {
	if e.isNew {
		v.items = v.items[:e.index]
		return
	}
	v.items[e.index] = e.prev.(T)
}
