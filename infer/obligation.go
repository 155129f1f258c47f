package infer

import (
	"fmt"

	"github.com/cottand/tyrel/types"
)

// ObligationCause is threaded through for diagnostics only
type ObligationCause struct {
	Span string
	Code string
}

var MiscCause = ObligationCause{Code: "misc"}

// Obligation is a predicate that must hold in ParamEnv. Depth counts how many
// obligations it was derived through.
type Obligation struct {
	Cause     ObligationCause
	ParamEnv  types.ParamEnv
	Predicate types.Clause
	Depth     int
}

func NewObligation(cause ObligationCause, env types.ParamEnv, pred types.Predicate) Obligation {
	return Obligation{Cause: cause, ParamEnv: env, Predicate: types.Dummy(pred)}
}

// Derive returns an obligation for pred that was needed to prove o
func (o Obligation) Derive(pred types.Clause) Obligation {
	return Obligation{Cause: o.Cause, ParamEnv: o.ParamEnv, Predicate: pred, Depth: o.Depth + 1}
}

func (o Obligation) String() string {
	return fmt.Sprintf("Obligation(%v, depth=%d)", o.Predicate, o.Depth)
}

// InferOk is a successful result that still needs Obligations proven
type InferOk[T any] struct {
	Value       T
	Obligations []Obligation
}
