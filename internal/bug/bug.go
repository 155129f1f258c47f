// Package bug carries internal invariant violations. They are raised with a panic and
// only recovered at the edge of a compilation unit.
package bug

import (
	"fmt"
	"runtime/debug"
)

type Bug struct {
	Msg   string
	Stack []byte
}

func (b Bug) Error() string {
	return "internal error: " + b.Msg
}

// Panicf panics with a Bug carrying the current stack
func Panicf(format string, args ...any) {
	panic(Bug{Msg: fmt.Sprintf(format, args...), Stack: debug.Stack()})
}

// Recover turns a panicking Bug into an error stored in err. Other panics are re-raised.
//
//	defer bug.Recover(&err)
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if b, ok := r.(Bug); ok {
		*err = b
		return
	}
	panic(r)
}
