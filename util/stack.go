package util

import "slices"

// Stack is a LIFO of A. The zero value is an empty stack.
type Stack[A any] struct {
	items []A
}

func (s *Stack[A]) Push(v ...A) {
	s.items = append(s.items, v...)
}

func (s *Stack[A]) Pop() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	lastIndex := len(s.items) - 1
	defer func() {
		s.items = s.items[:lastIndex]
	}()
	return s.items[lastIndex], true
}

func (s *Stack[A]) Peek() (ret A, ok bool) {
	if len(s.items) <= 0 {
		return ret, false
	}
	return s.items[len(s.items)-1], true
}

// PopAll empties the stack, returning its items in the order they were pushed
func (s *Stack[A]) PopAll() []A {
	defer func() {
		s.items = nil
	}()
	return s.items
}

func (s *Stack[A]) Len() int {
	return len(s.items)
}

// Items returns a copy of the items, bottom first
func (s *Stack[A]) Items() []A {
	return slices.Clone(s.items)
}
