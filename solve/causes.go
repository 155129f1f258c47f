package solve

import (
	"fmt"

	"github.com/cottand/tyrel/types"
)

type CauseKind uint8

const (
	CauseDownstreamCrate CauseKind = iota
	CauseUpstreamCrateUpdate
	CauseReservationImpl
)

// IntercrateAmbiguityCause explains why a goal was ambiguous in coherence mode. It is
// comparable so causes can be deduplicated.
type IntercrateAmbiguityCause struct {
	Kind      CauseKind
	TraitDesc string
	// SelfDesc is empty when the self type still mentions inference variables
	SelfDesc string
}

func newCause(kind CauseKind, ref types.TraitRef) IntercrateAmbiguityCause {
	c := IntercrateAmbiguityCause{Kind: kind, TraitDesc: ref.Def.String()}
	if self := ref.SelfTy(); !types.HasInfer(self) {
		c.SelfDesc = self.String()
	}
	return c
}

func (c IntercrateAmbiguityCause) String() string {
	self := ""
	if c.SelfDesc != "" {
		self = fmt.Sprintf(" for type `%s`", c.SelfDesc)
	}
	switch c.Kind {
	case CauseDownstreamCrate:
		return fmt.Sprintf("downstream crates may implement trait `%s`%s", c.TraitDesc, self)
	case CauseUpstreamCrateUpdate:
		return fmt.Sprintf("upstream crates may add a new impl of trait `%s`%s in future versions", c.TraitDesc, self)
	}
	return fmt.Sprintf("%s is a reservation impl", c.TraitDesc)
}
