package infer

import (
	"fmt"

	"github.com/cottand/tyrel/internal/bug"
)

type UnifyKey interface {
	~uint32
}

// UnifyValue is the payload of a unification root. UnifyValues combines the values of two
// roots being merged, or fails when they conflict.
type UnifyValue[V any] interface {
	UnifyValues(other V) (V, error)
}

// Conflict is returned when the values of two keys cannot be unified
type Conflict struct {
	A, B any
}

func (c Conflict) Error() string {
	return fmt.Sprintf("cannot unify '%v' with '%v'", c.A, c.B)
}

type varNode[K UnifyKey, V any] struct {
	parent K
	rank   uint32
	value  V
}

// UnificationTable is a union-find over keys K with union by rank and path compression.
// Every write goes through the session's undo log.
type UnificationTable[K UnifyKey, V UnifyValue[V]] struct {
	nodes *loggedVec[varNode[K, V]]
}

func newUnificationTable[K UnifyKey, V UnifyValue[V]](log *undoLog) *UnificationTable[K, V] {
	return &UnificationTable[K, V]{nodes: newLoggedVec[varNode[K, V]](log)}
}

func (t *UnificationTable[K, V]) NewKey(value V) K {
	k := K(t.nodes.len())
	t.nodes.push(varNode[K, V]{parent: k, value: value})
	return k
}

func (t *UnificationTable[K, V]) Len() int {
	return t.nodes.len()
}

// Find returns the root of k, compressing the path to it
func (t *UnificationTable[K, V]) Find(k K) K {
	root := k
	for {
		parent := t.nodes.get(int(root)).parent
		if parent == root {
			break
		}
		root = parent
	}
	for cur := k; cur != root; {
		node := t.nodes.get(int(cur))
		next := node.parent
		if next != root {
			node.parent = root
			t.nodes.set(int(cur), node)
		}
		cur = next
	}
	return root
}

func (t *UnificationTable[K, V]) Probe(k K) V {
	return t.nodes.get(int(t.Find(k))).value
}

func (t *UnificationTable[K, V]) Unioned(a, b K) bool {
	return t.Find(a) == t.Find(b)
}

func (t *UnificationTable[K, V]) UnifyVarVar(a, b K) error {
	rootA, rootB := t.Find(a), t.Find(b)
	if rootA == rootB {
		return nil
	}
	nodeA, nodeB := t.nodes.get(int(rootA)), t.nodes.get(int(rootB))
	combined, err := nodeA.value.UnifyValues(nodeB.value)
	if err != nil {
		return err
	}
	switch {
	case nodeA.rank > nodeB.rank:
		t.redirect(rootB, rootA, nodeA.rank, combined)
	case nodeA.rank < nodeB.rank:
		t.redirect(rootA, rootB, nodeB.rank, combined)
	default:
		t.redirect(rootA, rootB, nodeB.rank+1, combined)
	}
	return nil
}

func (t *UnificationTable[K, V]) redirect(from, to K, rank uint32, value V) {
	oldRoot := t.nodes.get(int(from))
	oldRoot.parent = to
	t.nodes.set(int(from), oldRoot)
	newRoot := t.nodes.get(int(to))
	newRoot.rank = rank
	newRoot.value = value
	t.nodes.set(int(to), newRoot)
}

func (t *UnificationTable[K, V]) UnifyVarValue(k K, value V) error {
	root := t.Find(k)
	node := t.nodes.get(int(root))
	combined, err := node.value.UnifyValues(value)
	if err != nil {
		return err
	}
	node.value = combined
	t.nodes.set(int(root), node)
	return nil
}

// Union merges a and b, whose values are known not to conflict
func (t *UnificationTable[K, V]) Union(a, b K) {
	if err := t.UnifyVarVar(a, b); err != nil {
		bug.Panicf("unconditional union of %v and %v failed: %v", a, b, err)
	}
}

// UnionValue assigns value to k, which is known not to conflict
func (t *UnificationTable[K, V]) UnionValue(k K, value V) {
	if err := t.UnifyVarValue(k, value); err != nil {
		bug.Panicf("unconditional assignment to %v failed: %v", k, err)
	}
}

// unit is the value of tables that only track membership
type unit struct{}

func (unit) UnifyValues(unit) (unit, error) { return unit{}, nil }
