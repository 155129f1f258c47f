package types

// Const is a const term of some type, e.g. the length of an array type.
type Const interface {
	GenericArg
	Type() Ty
	isConst()
}

type constBase struct {
	T Ty
}

func (constBase) isGenericArg() {}
func (constBase) isConst()      {}
func (c constBase) Type() Ty    { return c.T }

// ConstValue is an evaluated scalar value
type ConstValue struct {
	constBase
	Val uint64
}

func NewConstValue(t Ty, v uint64) Const {
	return ConstValue{constBase: constBase{T: t}, Val: v}
}

func NewUsize(v uint64) Const {
	return NewConstValue(Uint{Width: Usize}, v)
}

type ConstParam struct {
	constBase
	Index uint32
	Name  string
}

func NewConstParam(t Ty, index uint32, name string) Const {
	return ConstParam{constBase: constBase{T: t}, Index: index, Name: name}
}

type ConstPlaceholder struct {
	constBase
	Universe UniverseIndex
	Var      BoundVar
}

func NewConstPlaceholder(t Ty, u UniverseIndex, v BoundVar) Const {
	return ConstPlaceholder{constBase: constBase{T: t}, Universe: u, Var: v}
}

type ConstInferKind uint8

const (
	ConstVar ConstInferKind = iota
	ConstFresh
)

type ConstInfer struct {
	constBase
	Kind  ConstInferKind
	Index uint32
}

func NewConstVar(v ConstVid, t Ty) Const {
	return ConstInfer{constBase: constBase{T: t}, Kind: ConstVar, Index: uint32(v)}
}

func NewFreshConst(index uint32, t Ty) Const {
	return ConstInfer{constBase: constBase{T: t}, Kind: ConstFresh, Index: index}
}

type ConstBound struct {
	constBase
	Debruijn DebruijnIndex
	Var      BoundVar
}

func NewConstBound(t Ty, d DebruijnIndex, v BoundVar) Const {
	return ConstBound{constBase: constBase{T: t}, Debruijn: d, Var: v}
}

// ConstUnevaluated refers to a const item that has not been evaluated yet
type ConstUnevaluated struct {
	constBase
	Def  DefId
	Args Args
}

func NewConstUnevaluated(t Ty, def DefId, args Args) Const {
	return ConstUnevaluated{constBase: constBase{T: t}, Def: def, Args: args}
}

type ExprKind uint8

const (
	ExprBinop ExprKind = iota
	ExprUnOp
	ExprCast
	ExprCall
)

// Expr is a small compile-time expression tree. Binop uses Operands[0] and Operands[1],
// UnOp and Cast use Operands[0], Call has the callee at Operands[0] followed by its arguments.
type Expr struct {
	Kind     ExprKind
	Op       string
	Operands []Const
	CastTo   Ty
}

type ConstExpr struct {
	constBase
	Expr Expr
}

func NewConstExpr(t Ty, e Expr) Const {
	return ConstExpr{constBase: constBase{T: t}, Expr: e}
}

type ConstError struct {
	constBase
}

func NewConstError(t Ty) Const {
	return ConstError{constBase{T: t}}
}

// ConstVidOf returns the ConstVid of c if it is an unresolved const variable
func ConstVidOf(c Const) (ConstVid, bool) {
	if i, ok := c.(ConstInfer); ok && i.Kind == ConstVar {
		return ConstVid(i.Index), true
	}
	return 0, false
}

// TryEvalUsize returns the value of c if it is an evaluated integer constant
func TryEvalUsize(c Const) (uint64, bool) {
	if v, ok := c.(ConstValue); ok {
		return v.Val, true
	}
	return 0, false
}
