package types

type GenericParamKind uint8

const (
	TypeParam GenericParamKind = iota
	LifetimeParam
	ConstParamKind
)

type GenericParamDef struct {
	Name string
	Kind GenericParamKind
	// ConstTy is the type of a const parameter
	ConstTy Ty
}

// Generics are the parameters of an item, indexed the way Param.Index refers to them.
// Trait generics start with Self.
type Generics struct {
	Params []GenericParamDef
}

func TypeParams(names ...string) Generics {
	g := Generics{}
	for _, n := range names {
		g.Params = append(g.Params, GenericParamDef{Name: n, Kind: TypeParam})
	}
	return g
}

func (g Generics) Count() int {
	return len(g.Params)
}

// IdentityArgs instantiates the generics with their own parameters
func (g Generics) IdentityArgs() Args {
	args := make(Args, len(g.Params))
	for i, p := range g.Params {
		switch p.Kind {
		case TypeParam:
			args[i] = Param{Index: uint32(i), Name: p.Name}
		case LifetimeParam:
			args[i] = NewEarlyBound(uint32(i), p.Name)
		case ConstParamKind:
			args[i] = NewConstParam(p.ConstTy, uint32(i), p.Name)
		}
	}
	return args
}

// MapArgs builds arguments for each parameter with the supplied functions
func (g Generics) MapArgs(ty func(i int, p GenericParamDef) Ty, region func(i int, p GenericParamDef) Region, konst func(i int, p GenericParamDef) Const) Args {
	args := make(Args, len(g.Params))
	for i, p := range g.Params {
		switch p.Kind {
		case TypeParam:
			args[i] = ty(i, p)
		case LifetimeParam:
			args[i] = region(i, p)
		case ConstParamKind:
			args[i] = konst(i, Instantiate(p, args[:i]))
		}
	}
	return args
}

func (p GenericParamDef) FoldWith(f TypeFolder) GenericParamDef {
	if p.ConstTy != nil {
		p.ConstTy = f.FoldTy(p.ConstTy)
	}
	return p
}

func (g Generics) Index(name string) (int, bool) {
	for i, p := range g.Params {
		if p.Name == name {
			return i, true
		}
	}
	return 0, false
}
