package types

import (
	"fmt"
	"strings"
)

type printer struct {
	sb strings.Builder
	// verbose prints enough to tell any two distinct terms apart
	verbose bool
}

func (p *printer) write(s ...string) {
	for _, str := range s {
		p.sb.WriteString(str)
	}
}

func (p *printer) def(d DefId) {
	p.write(d.Name)
	if p.verbose {
		p.write(fmt.Sprintf("#%d:%d", d.Krate, d.Index))
	}
}

func (p *printer) args(args Args) {
	if len(args) == 0 {
		return
	}
	p.write("<")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.arg(a)
	}
	p.write(">")
}

func (p *printer) arg(a GenericArg) {
	switch a := a.(type) {
	case Ty:
		p.ty(a)
	case Region:
		p.region(a)
	case Const:
		p.konst(a)
	case nil:
		p.write("<nil>")
	default:
		p.write(fmt.Sprintf("%v", a))
	}
}

func (p *printer) tys(tys TyList) {
	for i, t := range tys {
		if i > 0 {
			p.write(", ")
		}
		p.ty(t)
	}
}

func (p *printer) region(r Region) {
	p.write(r.String())
	if p.verbose && r.Kind == ReEarlyBound {
		p.write(fmt.Sprintf("/%d", r.Index))
	}
}

func (p *printer) binderVars(vars []BoundVariableKind) {
	if len(vars) == 0 {
		return
	}
	p.write("for<")
	for i, v := range vars {
		if i > 0 {
			p.write(", ")
		}
		switch v {
		case BoundTyKind:
			p.write(fmt.Sprintf("^T%d", i))
		case BoundRegionKind:
			p.write(fmt.Sprintf("'^%d", i))
		case BoundConstKind:
			p.write(fmt.Sprintf("const ^%d", i))
		}
	}
	p.write("> ")
}

func (p *printer) sig(s FnSig) {
	if s.Unsafety == Unsafe {
		p.write("unsafe ")
	}
	if s.Abi != "" && s.Abi != AbiRust {
		p.write(`extern "`, string(s.Abi), `" `)
	}
	p.write("fn(")
	p.tys(s.Inputs)
	if s.CVariadic {
		if len(s.Inputs) > 0 {
			p.write(", ")
		}
		p.write("...")
	}
	p.write(")")
	if s.Output != nil {
		if tup, ok := s.Output.(Tuple); !ok || len(tup.Elems) > 0 || p.verbose {
			p.write(" -> ")
			p.ty(s.Output)
		}
	}
}

func (p *printer) ty(t Ty) {
	switch t := t.(type) {
	case Bool:
		p.write("bool")
	case Char:
		p.write("char")
	case Str:
		p.write("str")
	case Never:
		p.write("!")
	case Int:
		p.write(t.Width.String())
	case Uint:
		p.write(t.Width.String())
	case Float:
		p.write(t.Width.String())
	case Tuple:
		p.write("(")
		p.tys(t.Elems)
		if len(t.Elems) == 1 {
			p.write(",")
		}
		p.write(")")
	case Array:
		p.write("[")
		p.ty(t.Elem)
		p.write("; ")
		p.konst(t.Len)
		p.write("]")
	case Slice:
		p.write("[")
		p.ty(t.Elem)
		p.write("]")
	case RawPtr:
		if t.Mut == Mut {
			p.write("*mut ")
		} else {
			p.write("*const ")
		}
		p.ty(t.Elem)
	case Ref:
		p.write("&")
		if t.Region.Kind != ReErased || p.verbose {
			p.region(t.Region)
			p.write(" ")
		}
		p.write(t.Mut.Prefix())
		p.ty(t.Elem)
	case FnPtr:
		p.binderVars(t.Sig.Vars)
		p.sig(t.Sig.Value)
	case FnDef:
		p.write("fn-item ")
		p.def(t.Def)
		p.args(t.Args)
	case Closure:
		p.write("closure ")
		p.def(t.Def)
		p.args(t.Args)
		if p.verbose {
			p.write(" ", t.Kind.String(), " ")
			p.binderVars(t.Sig.Vars)
			p.sig(t.Sig.Value)
			p.write(" [")
			p.tys(t.Upvars)
			p.write("]")
		}
	case Generator:
		p.write("generator ")
		p.def(t.Def)
		p.args(t.Args)
		if p.verbose {
			p.write(fmt.Sprintf(" m%d (", t.Movability))
			p.tys(TyList{t.Sig.Resume, t.Sig.Yield, t.Sig.Return})
			p.write(") [")
			p.tys(t.Upvars)
			p.write("]")
			if t.Witness != nil {
				p.write(" ")
				p.ty(t.Witness)
			}
		}
	case GeneratorWitness:
		p.write("witness ")
		p.binderVars(t.Tys.Vars)
		p.write("[")
		p.tys(t.Tys.Value)
		p.write("]")
	case Adt:
		p.def(t.Def)
		p.args(t.Args)
	case Foreign:
		p.write("extern ")
		p.def(t.Def)
	case Dynamic:
		p.write("dyn ")
		for i, pred := range t.Preds {
			if i > 0 {
				p.write(" + ")
			}
			p.binderVars(pred.Vars)
			p.existential(pred.Value)
		}
		if t.Region.Kind != ReErased || p.verbose {
			p.write(" + ")
			p.region(t.Region)
		}
	case Alias:
		p.alias(t.AliasTy)
	case Param:
		p.write(t.Name)
		if p.verbose {
			p.write(fmt.Sprintf("/%d", t.Index))
		}
	case BoundTy:
		p.write(fmt.Sprintf("^%d_%d", t.Debruijn, t.Var))
	case PlaceholderTy:
		p.write(fmt.Sprintf("!%d_%d", t.Universe, t.Var))
	case Infer:
		switch t.Kind {
		case TyVar:
			p.write(TyVid(t.Index).String())
		case IntVar:
			p.write(IntVid(t.Index).String())
		case FloatVar:
			p.write(FloatVid(t.Index).String())
		case FreshTy:
			p.write(fmt.Sprintf("FreshTy(%d)", t.Index))
		case FreshIntTy:
			p.write(fmt.Sprintf("FreshIntTy(%d)", t.Index))
		case FreshFloatTy:
			p.write(fmt.Sprintf("FreshFloatTy(%d)", t.Index))
		}
	case Error:
		p.write("{type error}")
	case nil:
		p.write("<nil>")
	default:
		p.write(fmt.Sprintf("%#v", t))
	}
}

func (p *printer) alias(a AliasTy) {
	switch a.Kind {
	case Projection:
		if len(a.Args) > 0 {
			p.write("<")
			p.arg(a.Args[0])
			p.write(" as _>::")
			p.def(a.Def)
			p.args(a.Args[1:])
			return
		}
	case Opaque:
		p.write("impl ")
	}
	if p.verbose {
		p.write(a.Kind.String(), " ")
	}
	p.def(a.Def)
	p.args(a.Args)
}

func (p *printer) konst(c Const) {
	if p.verbose && c != nil {
		defer func() {
			p.write(": ")
			p.ty(c.Type())
		}()
	}
	switch c := c.(type) {
	case ConstValue:
		p.write(fmt.Sprintf("%d", c.Val))
	case ConstParam:
		p.write(c.Name)
		if p.verbose {
			p.write(fmt.Sprintf("/%d", c.Index))
		}
	case ConstPlaceholder:
		p.write(fmt.Sprintf("!%d_c%d", c.Universe, c.Var))
	case ConstInfer:
		if c.Kind == ConstVar {
			p.write(ConstVid(c.Index).String())
		} else {
			p.write(fmt.Sprintf("FreshConst(%d)", c.Index))
		}
	case ConstBound:
		p.write(fmt.Sprintf("^%d_c%d", c.Debruijn, c.Var))
	case ConstUnevaluated:
		p.write("const ")
		p.def(c.Def)
		p.args(c.Args)
	case ConstExpr:
		p.expr(c.Expr)
	case ConstError:
		p.write("{const error}")
	case nil:
		p.write("<nil>")
	}
}

func (p *printer) expr(e Expr) {
	switch e.Kind {
	case ExprBinop:
		p.write("(")
		p.konst(e.Operands[0])
		p.write(" ", e.Op, " ")
		p.konst(e.Operands[1])
		p.write(")")
	case ExprUnOp:
		p.write(e.Op)
		p.konst(e.Operands[0])
	case ExprCast:
		p.write("(")
		p.konst(e.Operands[0])
		p.write(" as ")
		p.ty(e.CastTo)
		p.write(")")
	case ExprCall:
		p.konst(e.Operands[0])
		p.write("(")
		for i, op := range e.Operands[1:] {
			if i > 0 {
				p.write(", ")
			}
			p.konst(op)
		}
		p.write(")")
	}
}

func (p *printer) traitRef(t TraitRef) {
	if len(t.Args) == 0 {
		p.def(t.Def)
		return
	}
	p.arg(t.Args[0])
	p.write(": ")
	p.def(t.Def)
	p.args(t.Args[1:])
}

func (p *printer) existential(e ExistentialPredicate) {
	switch e := e.(type) {
	case ExistentialTrait:
		p.def(e.Def)
		p.args(e.Args)
	case ExistentialProjection:
		p.def(e.Def)
		p.args(e.Args)
		p.write(" = ")
		p.arg(e.Term)
	case ExistentialAutoTrait:
		p.def(e.Def)
	}
}

func (p *printer) pred(pr Predicate) {
	switch pr := pr.(type) {
	case TraitPredicate:
		switch pr.Polarity {
		case Negative:
			p.write("!")
		case Reservation:
			p.write("reservation ")
		}
		p.traitRef(pr.TraitRef)
	case ProjectionPredicate:
		p.alias(pr.Alias)
		p.write(" == ")
		p.arg(pr.Term)
	case TypeOutlives:
		p.ty(pr.Ty)
		p.write(": ")
		p.region(pr.Region)
	case RegionOutlives:
		p.region(pr.A)
		p.write(": ")
		p.region(pr.B)
	case WellFormed:
		p.write("WF(")
		p.arg(pr.Arg)
		p.write(")")
	case SubtypePredicate:
		p.ty(pr.A)
		p.write(" <: ")
		p.ty(pr.B)
	case ConstEquate:
		p.konst(pr.A)
		p.write(" == ")
		p.konst(pr.B)
	case AliasRelate:
		p.arg(pr.A)
		if pr.Dir == AliasEquate {
			p.write(" alias-eq ")
		} else {
			p.write(" alias-sub ")
		}
		p.arg(pr.B)
	case AmbiguousPredicate:
		p.write("ambiguous")
	}
}

func (p *printer) any(v any) {
	switch v := v.(type) {
	case Ty:
		p.ty(v)
	case Region:
		p.region(v)
	case Const:
		p.konst(v)
	case Predicate:
		p.pred(v)
	case ExistentialPredicate:
		p.existential(v)
	case TraitRef:
		p.traitRef(v)
	case FnSig:
		p.sig(v)
	case Args:
		p.args(v)
	case TyList:
		p.tys(v)
	case Binder[Predicate]:
		p.binderVars(v.Vars)
		p.pred(v.Value)
	case Binder[FnSig]:
		p.binderVars(v.Vars)
		p.sig(v.Value)
	case Binder[TraitRef]:
		p.binderVars(v.Vars)
		p.traitRef(v.Value)
	case Binder[ExistentialPredicate]:
		p.binderVars(v.Vars)
		p.existential(v.Value)
	default:
		p.write(fmt.Sprintf("%#v", v))
	}
}

func printTerm(v any, verbose bool) string {
	p := &printer{verbose: verbose}
	p.any(v)
	return p.sb.String()
}

// Key returns a canonical string for v such that two terms have the same key iff
// they are structurally identical
func Key(v any) string {
	return printTerm(v, true)
}

// Equal compares two terms structurally
func Equal[T any](a, b T) bool {
	return Key(a) == Key(b)
}

func (t Bool) String() string             { return printTerm(t, false) }
func (t Char) String() string             { return printTerm(t, false) }
func (t Str) String() string              { return printTerm(t, false) }
func (t Never) String() string            { return printTerm(t, false) }
func (t Int) String() string              { return printTerm(t, false) }
func (t Uint) String() string             { return printTerm(t, false) }
func (t Float) String() string            { return printTerm(t, false) }
func (t Tuple) String() string            { return printTerm(t, false) }
func (t Array) String() string            { return printTerm(t, false) }
func (t Slice) String() string            { return printTerm(t, false) }
func (t RawPtr) String() string           { return printTerm(t, false) }
func (t Ref) String() string              { return printTerm(t, false) }
func (t FnPtr) String() string            { return printTerm(t, false) }
func (t FnDef) String() string            { return printTerm(t, false) }
func (t Closure) String() string          { return printTerm(t, false) }
func (t Generator) String() string        { return printTerm(t, false) }
func (t GeneratorWitness) String() string { return printTerm(t, false) }
func (t Adt) String() string              { return printTerm(t, false) }
func (t Foreign) String() string          { return printTerm(t, false) }
func (t Dynamic) String() string          { return printTerm(t, false) }
func (t Alias) String() string            { return printTerm(t, false) }
func (t Param) String() string            { return printTerm(t, false) }
func (t BoundTy) String() string          { return printTerm(t, false) }
func (t PlaceholderTy) String() string    { return printTerm(t, false) }
func (t Infer) String() string            { return printTerm(t, false) }
func (t Error) String() string            { return printTerm(t, false) }

func (c ConstValue) String() string       { return printTerm(c, false) }
func (c ConstParam) String() string       { return printTerm(c, false) }
func (c ConstPlaceholder) String() string { return printTerm(c, false) }
func (c ConstInfer) String() string       { return printTerm(c, false) }
func (c ConstBound) String() string       { return printTerm(c, false) }
func (c ConstUnevaluated) String() string { return printTerm(c, false) }
func (c ConstExpr) String() string        { return printTerm(c, false) }
func (c ConstError) String() string       { return printTerm(c, false) }

func (t TraitRef) String() string              { return printTerm(t, false) }
func (p TraitPredicate) String() string        { return printTerm(p, false) }
func (p ProjectionPredicate) String() string   { return printTerm(p, false) }
func (p TypeOutlives) String() string          { return printTerm(p, false) }
func (p RegionOutlives) String() string        { return printTerm(p, false) }
func (p WellFormed) String() string            { return printTerm(p, false) }
func (p SubtypePredicate) String() string      { return printTerm(p, false) }
func (p ConstEquate) String() string           { return printTerm(p, false) }
func (p AliasRelate) String() string           { return printTerm(p, false) }
func (p AmbiguousPredicate) String() string    { return printTerm(p, false) }
func (p ExistentialTrait) String() string      { return printTerm(p, false) }
func (p ExistentialProjection) String() string { return printTerm(p, false) }
func (p ExistentialAutoTrait) String() string  { return printTerm(p, false) }
func (s FnSig) String() string                 { return printTerm(s, false) }
func (a Args) String() string                  { return printTerm(a, false) }
func (a AliasTy) String() string               { return printTerm(Alias{AliasTy: a}, false) }

func (b Binder[T]) String() string {
	p := &printer{}
	p.binderVars(b.Vars)
	p.any(b.Value)
	return p.sb.String()
}
