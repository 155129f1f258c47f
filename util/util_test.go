package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStack(t *testing.T) {
	var s Stack[int]
	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(1, 2)
	s.Push(3)
	top, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, 3, top)
	assert.Equal(t, 3, s.Len())

	top, _ = s.Pop()
	assert.Equal(t, 3, top)
	assert.Equal(t, []int{1, 2}, s.Items())
	assert.Equal(t, []int{1, 2}, s.PopAll())
	assert.Equal(t, 0, s.Len())
}

func TestPair(t *testing.T) {
	p := NewPair("a", 1)
	fst, snd := p.Unpack()
	assert.Equal(t, "a", fst)
	assert.Equal(t, 1, snd)
	assert.Equal(t, "(a, 1)", p.String())
}
