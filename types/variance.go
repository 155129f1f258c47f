package types

// Variance of a generic parameter position. Bivariant positions accept both directions
// and invariant ones neither.
type Variance struct {
	covariant, contravariant bool
}

var (
	Bivariant     = Variance{covariant: true, contravariant: true}
	Covariant     = Variance{covariant: true}
	Contravariant = Variance{contravariant: true}
	Invariant     = Variance{}
)

// Xform composes an ambient variance v with the variance of a nested position
func (v Variance) Xform(nested Variance) Variance {
	switch v {
	case Covariant:
		return nested
	case Contravariant:
		return nested.Flip()
	case Bivariant:
		return Bivariant
	}
	return Invariant
}

// Flip swaps the direction of co and contravariant positions
func (v Variance) Flip() Variance {
	return Variance{covariant: v.contravariant, contravariant: v.covariant}
}

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "+"
	case Contravariant:
		return "-"
	case Bivariant:
		return "*"
	}
	return "o"
}

func ParseVariance(s string) (Variance, bool) {
	switch s {
	case "+", "covariant":
		return Covariant, true
	case "-", "contravariant":
		return Contravariant, true
	case "*", "bivariant":
		return Bivariant, true
	case "o", "invariant":
		return Invariant, true
	}
	return Invariant, false
}
