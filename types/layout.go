package types

// DefaultLayout models a 64-bit target with no knowledge of user ADT layouts
type DefaultLayout struct{}

func (DefaultLayout) IsPointerLike(t Ty) (bool, bool) {
	if HasTyInfer(t) {
		return false, false
	}
	switch t := t.(type) {
	case Ref, RawPtr, FnPtr:
		return true, true
	case Int:
		return t.Width == Isize || t.Width == I64, true
	case Uint:
		return t.Width == Usize || t.Width == U64, true
	}
	return false, true
}

func (d DefaultLayout) IsTransmutable(dst, src Ty) (bool, bool) {
	if HasTyInfer(dst) || HasTyInfer(src) {
		return false, false
	}
	ds, dok := d.size(dst)
	ss, sok := d.size(src)
	if !dok || !sok {
		return false, false
	}
	if ds != ss {
		return false, true
	}
	// only bool and char have invalid bit patterns among scalars
	switch dst.(type) {
	case Bool, Char:
		return Equal[Ty](dst, src), true
	}
	return true, true
}

func (d DefaultLayout) size(t Ty) (uint64, bool) {
	switch t := t.(type) {
	case Bool:
		return 1, true
	case Char:
		return 4, true
	case Int:
		return intSize[t.Width], true
	case Uint:
		return intSize[t.Width], true
	case Float:
		if t.Width == F32 {
			return 4, true
		}
		return 8, true
	case Ref, RawPtr, FnPtr:
		return 8, true
	case Tuple:
		var total uint64
		for _, e := range t.Elems {
			s, ok := d.size(e)
			if !ok {
				return 0, false
			}
			total += s
		}
		return total, true
	case Array:
		n, ok := TryEvalUsize(t.Len)
		if !ok {
			return 0, false
		}
		s, ok := d.size(t.Elem)
		return s * n, ok
	}
	return 0, false
}

var intSize = [...]uint64{8, 1, 2, 4, 8, 16}
