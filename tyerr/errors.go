// Package tyerr holds the ways relating two terms can fail.
package tyerr

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/cottand/tyrel/internal/bug"
	"github.com/cottand/tyrel/types"
)

// enableDebugErrorPrinting makes errors include the frame they were created at when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	Mismatch
	CyclicTy
	CyclicConst
	Sorts
	ArgumentSorts
	ConstMismatch
	Mutability
	ArgumentMutability
	ArgCount
	TupleSize
	FixedArraySize
	VariadicMismatch
	AbiMismatch
	UnsafetyMismatch
	IntMismatch
	FloatMismatch
	PolarityMismatch
	Traits
	ProjectionMismatched
	ExistentialMismatch
	RegionsPlaceholderMismatch
	ClosureKindMismatch
	NonLocalInputType
	UncoveredTy
)

var codeNames = map[ErrCode]string{
	None:                       "unclassified",
	Mismatch:                   "types differ",
	CyclicTy:                   "cyclic type",
	CyclicConst:                "cyclic constant",
	Sorts:                      "expected a different type",
	ArgumentSorts:              "argument has the wrong type",
	ConstMismatch:              "expected a different constant",
	Mutability:                 "types differ in mutability",
	ArgumentMutability:         "argument differs in mutability",
	ArgCount:                   "incorrect number of function parameters",
	TupleSize:                  "tuples have different sizes",
	FixedArraySize:             "arrays have different lengths",
	VariadicMismatch:           "C-variadic flags differ",
	AbiMismatch:                "ABIs differ",
	UnsafetyMismatch:           "unsafety differs",
	IntMismatch:                "integer types differ",
	FloatMismatch:              "float types differ",
	PolarityMismatch:           "polarity differs",
	Traits:                     "traits differ",
	ProjectionMismatched:       "associated items differ",
	ExistentialMismatch:        "trait object bounds differ",
	RegionsPlaceholderMismatch: "one type is more general than the other",
	ClosureKindMismatch:        "closure kinds differ",
	NonLocalInputType:          "only traits defined in the current crate can be implemented for types defined outside of it",
	UncoveredTy:                "type parameter must be covered by a local type",
}

func (c ErrCode) String() string {
	return codeNames[c]
}

// TyError is returned by every fallible relate operation
type TyError interface {
	Error() string
	Code() ErrCode

	withStack([]byte) TyError
	getStack() []byte
}

func FormatWithCode(e TyError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			lines := strings.Split(stack, "\n")
			if len(lines) > 6 {
				stack = lines[6]
			}
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

func New[E TyError](err E) TyError {
	return err.withStack(debug.Stack())
}

// Is reports whether err is a TyError with the given code
func Is(err error, code ErrCode) bool {
	var te TyError
	return errors.As(err, &te) && te.Code() == code
}

// CodeOf returns the code of err, or None when err is not a TyError
func CodeOf(err error) ErrCode {
	var te TyError
	if errors.As(err, &te) {
		return te.Code()
	}
	return None
}

// Bug is an internal invariant violation, raised with panic
type Bug = bug.Bug

// ExpectedFound orders two sides of a failed relation for reporting
type ExpectedFound struct {
	Expected any
	Found    any
}

func NewExpectedFound(aIsExpected bool, a, b any) ExpectedFound {
	if aIsExpected {
		return ExpectedFound{Expected: a, Found: b}
	}
	return ExpectedFound{Expected: b, Found: a}
}

type NewMismatch struct {
	Kind ErrCode
	ExpectedFound
	// ArgIndex is the offending argument for ArgumentSorts and ArgumentMutability
	ArgIndex int
	stack    []byte
}

func (e NewMismatch) Error() string {
	msg := e.Kind.String()
	if e.Kind == ArgumentSorts || e.Kind == ArgumentMutability {
		msg = fmt.Sprintf("%s (argument %d)", msg, e.ArgIndex)
	}
	if e.Expected == nil && e.Found == nil {
		return msg
	}
	return fmt.Sprintf("%s: expected '%v', found '%v'", msg, e.Expected, e.Found)
}
func (e NewMismatch) Code() ErrCode    { return e.Kind }
func (e NewMismatch) getStack() []byte { return e.stack }
func (e NewMismatch) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}

// Mismatched builds a NewMismatch of the given kind with a stack
func Mismatched(kind ErrCode, aIsExpected bool, a, b any) TyError {
	return New(NewMismatch{Kind: kind, ExpectedFound: NewExpectedFound(aIsExpected, a, b)})
}

// WithArgIndex re-tags a Sorts or Mutability error as being about argument i.
// Other errors are returned unchanged.
func WithArgIndex(err error, i int) error {
	var m NewMismatch
	if !errors.As(err, &m) {
		return err
	}
	switch m.Kind {
	case Sorts, ArgumentSorts:
		m.Kind = ArgumentSorts
	case Mutability, ArgumentMutability:
		m.Kind = ArgumentMutability
	default:
		return err
	}
	m.ArgIndex = i
	return m
}

type NewCyclicTy struct {
	Ty    types.Ty
	stack []byte
}

func (e NewCyclicTy) Error() string {
	return fmt.Sprintf("cyclic type of infinite size: '%v'", e.Ty)
}
func (e NewCyclicTy) Code() ErrCode    { return CyclicTy }
func (e NewCyclicTy) getStack() []byte { return e.stack }
func (e NewCyclicTy) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}

type NewCyclicConst struct {
	Const types.Const
	stack []byte
}

func (e NewCyclicConst) Error() string {
	return fmt.Sprintf("cyclic constant: '%v'", e.Const)
}
func (e NewCyclicConst) Code() ErrCode    { return CyclicConst }
func (e NewCyclicConst) getStack() []byte { return e.stack }
func (e NewCyclicConst) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}

// NewPlaceholderLeak is raised by the leak check when a placeholder region would have to
// be related to a region it may not name
type NewPlaceholderLeak struct {
	Placeholder types.Region
	Other       types.Region
	stack       []byte
}

func (e NewPlaceholderLeak) Error() string {
	return fmt.Sprintf("%s: placeholder '%v' would have to be related to '%v'", RegionsPlaceholderMismatch, e.Placeholder, e.Other)
}
func (e NewPlaceholderLeak) Code() ErrCode    { return RegionsPlaceholderMismatch }
func (e NewPlaceholderLeak) getStack() []byte { return e.stack }
func (e NewPlaceholderLeak) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}

// NonLocalTy is an input type of an impl that is not local, InSelf when it is the self type
type NonLocalTy struct {
	Ty     types.Ty
	InSelf bool
}

type NewNonLocalInputType struct {
	Tys   []NonLocalTy
	stack []byte
}

func (e NewNonLocalInputType) Error() string {
	var tys []string
	for _, t := range e.Tys {
		tys = append(tys, fmt.Sprintf("'%v'", t.Ty))
	}
	if len(tys) == 0 {
		return NonLocalInputType.String()
	}
	return fmt.Sprintf("%s: %s", NonLocalInputType, strings.Join(tys, ", "))
}
func (e NewNonLocalInputType) Code() ErrCode    { return NonLocalInputType }
func (e NewNonLocalInputType) getStack() []byte { return e.stack }
func (e NewNonLocalInputType) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}

// NewUncoveredTy reports a type parameter reachable before any local type. LocalAfter is
// the first local type following it, or nil.
type NewUncoveredTy struct {
	Param      types.Ty
	LocalAfter types.Ty
	stack      []byte
}

func (e NewUncoveredTy) Error() string {
	if e.LocalAfter == nil {
		return fmt.Sprintf("%s: '%v'", UncoveredTy, e.Param)
	}
	return fmt.Sprintf("%s: '%v' appears before the first local type '%v'", UncoveredTy, e.Param, e.LocalAfter)
}
func (e NewUncoveredTy) Code() ErrCode    { return UncoveredTy }
func (e NewUncoveredTy) getStack() []byte { return e.stack }
func (e NewUncoveredTy) withStack(stack []byte) TyError {
	e.stack = stack
	return e
}
