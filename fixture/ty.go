package fixture

import (
	"slices"

	"github.com/cottand/tyrel/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var tyKeys = []string{"adt", "args", "param", "int", "uint", "float", "ref", "ptr", "tuple", "slice", "array", "dyn", "fnptr", "proj"}

type pointee struct {
	Mut bool `yaml:"mut"`
	Ty  Ty   `yaml:"ty"`
}

type arrayDecl struct {
	Ty  Ty     `yaml:"ty"`
	Len uint64 `yaml:"len"`
}

type fnPtrDecl struct {
	Inputs []Ty `yaml:"inputs"`
	Output Ty   `yaml:"output"`
}

type projDecl struct {
	Self Ty     `yaml:"self"`
	Item string `yaml:"item"`
	Args []Ty   `yaml:"args"`
}

func (l *lowerer) tys(sc scope, decls []Ty) (types.TyList, error) {
	var ret types.TyList
	for _, d := range decls {
		t, err := l.ty(sc, d)
		if err != nil {
			return nil, err
		}
		ret = append(ret, t)
	}
	return ret, nil
}

func (l *lowerer) ty(sc scope, t Ty) (types.Ty, error) {
	n := t.node
	if n == nil {
		return nil, errors.New("missing type")
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return l.named(sc, n)
	case yaml.MappingNode:
		return l.compound(sc, n)
	}
	return nil, errorAt(n, "expected a type")
}

// named resolves a scalar node: a primitive, a parameter in scope, or an ADT without
// parameters
func (l *lowerer) named(sc scope, n *yaml.Node) (types.Ty, error) {
	switch n.Value {
	case "()":
		return types.Unit, nil
	case "never", "!":
		return types.Never{}, nil
	}
	if t, ok := types.ParseScalar(n.Value); ok {
		return t, nil
	}
	if p, ok := sc.param(n.Value); ok {
		return p, nil
	}
	if def, ok := l.adts[n.Value]; ok {
		if arity := l.adtArity[def]; arity != 0 {
			return nil, errorAt(n, "%s takes %d arguments", n.Value, arity)
		}
		return types.Adt{Def: def}, nil
	}
	return nil, errorAt(n, "unknown type %s", n.Value)
}

func (l *lowerer) compound(sc scope, n *yaml.Node) (types.Ty, error) {
	fields := map[string]*yaml.Node{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !slices.Contains(tyKeys, key) {
			return nil, errorAt(n.Content[i], "unknown type key %s", key)
		}
		fields[key] = n.Content[i+1]
	}
	if adt, ok := fields["adt"]; ok {
		if len(fields) > 2 || (len(fields) == 2 && fields["args"] == nil) {
			return nil, errorAt(n, "adt only takes args")
		}
		return l.adt(sc, adt, fields["args"])
	}
	if len(fields) != 1 {
		return nil, errorAt(n, "a type node has exactly one key")
	}

	key, v := n.Content[0].Value, n.Content[1]
	switch key {
	case "param":
		if p, ok := sc.param(v.Value); ok {
			return p, nil
		}
		return nil, errorAt(v, "no parameter %s in scope", v.Value)

	case "int", "uint", "float":
		if t, ok := types.ParseScalar(v.Value); ok {
			return t, nil
		}
		return nil, errorAt(v, "unknown %s type %s", key, v.Value)

	case "ref", "ptr":
		var p pointee
		if err := v.Decode(&p); err != nil {
			return nil, err
		}
		elem, err := l.ty(sc, p.Ty)
		if err != nil {
			return nil, err
		}
		if key == "ptr" {
			return types.RawPtr{Elem: elem, Mut: types.Mutability(p.Mut)}, nil
		}
		return types.Ref{Region: types.Static, Elem: elem, Mut: types.Mutability(p.Mut)}, nil

	case "tuple":
		var elems []Ty
		if err := v.Decode(&elems); err != nil {
			return nil, err
		}
		tys, err := l.tys(sc, elems)
		if err != nil {
			return nil, err
		}
		return types.Tuple{Elems: tys}, nil

	case "slice":
		elem, err := l.ty(sc, Ty{node: v})
		if err != nil {
			return nil, err
		}
		return types.Slice{Elem: elem}, nil

	case "array":
		var a arrayDecl
		if err := v.Decode(&a); err != nil {
			return nil, err
		}
		elem, err := l.ty(sc, a.Ty)
		if err != nil {
			return nil, err
		}
		return types.Array{Elem: elem, Len: types.NewUsize(a.Len)}, nil

	case "dyn":
		return l.dyn(v)

	case "fnptr":
		var f fnPtrDecl
		if err := v.Decode(&f); err != nil {
			return nil, err
		}
		inputs, err := l.tys(sc, f.Inputs)
		if err != nil {
			return nil, err
		}
		output := types.Unit
		if !f.Output.IsZero() {
			if output, err = l.ty(sc, f.Output); err != nil {
				return nil, err
			}
		}
		return types.FnPtr{Sig: types.Dummy(types.FnSig{Inputs: inputs, Output: output})}, nil

	case "proj":
		var p projDecl
		if err := v.Decode(&p); err != nil {
			return nil, err
		}
		info, item, err := l.assocItem(p.Item)
		if err != nil {
			return nil, errorAt(v, "%v", err)
		}
		self, err := l.ty(sc, p.Self)
		if err != nil {
			return nil, err
		}
		ref, err := l.traitRef(sc, info, self, p.Args)
		if err != nil {
			return nil, errorAt(v, "%v", err)
		}
		return types.Alias{AliasTy: types.AliasTy{Kind: types.Projection, Def: item, Args: ref.Args}}, nil
	}
	return nil, errorAt(n, "%s is not a type on its own", key)
}

func (l *lowerer) adt(sc scope, name, argsNode *yaml.Node) (types.Ty, error) {
	def, ok := l.adts[name.Value]
	if !ok {
		return nil, errorAt(name, "unknown adt %s", name.Value)
	}
	var decls []Ty
	if argsNode != nil {
		if err := argsNode.Decode(&decls); err != nil {
			return nil, err
		}
	}
	if arity := l.adtArity[def]; arity != len(decls) {
		return nil, errorAt(name, "%s takes %d arguments, got %d", name.Value, arity, len(decls))
	}
	args, err := l.tys(sc, decls)
	if err != nil {
		return nil, err
	}
	ret := types.Adt{Def: def}
	for _, a := range args {
		ret.Args = append(ret.Args, a)
	}
	return ret, nil
}

// dyn builds a trait object from a list of trait names. At most one of them may be a
// non-auto trait, and none may take parameters besides Self.
func (l *lowerer) dyn(n *yaml.Node) (types.Ty, error) {
	var names []string
	if err := n.Decode(&names); err != nil {
		return nil, err
	}
	var preds []types.Binder[types.ExistentialPredicate]
	hasPrincipal := false
	for _, name := range names {
		info, err := l.trait(name)
		if err != nil {
			return nil, errorAt(n, "%v", err)
		}
		if info.arity != 1 {
			return nil, errorAt(n, "dyn %s needs arguments, which trait objects here do not take", name)
		}
		var pred types.ExistentialPredicate = types.ExistentialAutoTrait{Def: info.def}
		if !info.auto {
			if hasPrincipal {
				return nil, errorAt(n, "only auto traits can be used as additional traits in a trait object")
			}
			hasPrincipal = true
			pred = types.ExistentialTrait{Def: info.def}
		}
		preds = append(preds, types.Dummy(pred))
	}
	return types.Dynamic{Preds: types.SortExistentials(preds), Region: types.Static}, nil
}
