package solve

type CertaintyKind uint8

const (
	KindNo CertaintyKind = iota
	KindYes
	KindAmbiguous
)

type MaybeCause uint8

const (
	MaybeAmbiguity MaybeCause = iota
	MaybeOverflow
)

// Certainty is the answer for one goal. Cause is only meaningful when Kind is KindAmbiguous.
type Certainty struct {
	Kind  CertaintyKind
	Cause MaybeCause
}

var (
	Yes      = Certainty{Kind: KindYes}
	No       = Certainty{Kind: KindNo}
	Maybe    = Certainty{Kind: KindAmbiguous, Cause: MaybeAmbiguity}
	Overflow = Certainty{Kind: KindAmbiguous, Cause: MaybeOverflow}
)

func (c Certainty) IsYes() bool       { return c.Kind == KindYes }
func (c Certainty) IsNo() bool        { return c.Kind == KindNo }
func (c Certainty) IsAmbiguous() bool { return c.Kind == KindAmbiguous }

// MayHold is true unless the goal was disproven
func (c Certainty) MayHold() bool { return c.Kind != KindNo }

func (c Certainty) String() string {
	switch c.Kind {
	case KindYes:
		return "yes"
	case KindNo:
		return "no"
	}
	if c.Cause == MaybeOverflow {
		return "ambiguous (overflow)"
	}
	return "ambiguous"
}

// And combines the certainties of two goals that must both hold. No wins over
// ambiguity, and ambiguity is only reported as overflow if both sides overflowed.
func (c Certainty) And(other Certainty) Certainty {
	switch {
	case c.IsNo() || other.IsNo():
		return No
	case c.IsYes():
		return other
	case other.IsYes():
		return c
	}
	if c.Cause == MaybeOverflow && other.Cause == MaybeOverflow {
		return Overflow
	}
	return Maybe
}
