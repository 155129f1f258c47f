package solve

import (
	"fmt"

	"github.com/cottand/tyrel/infer"
	"github.com/cottand/tyrel/util"
)

// FulfillmentCtxt is a worklist of obligations waiting to be proven. Ambiguous
// obligations stay registered and are retried once others make progress.
type FulfillmentCtxt struct {
	solver  *Solver
	pending util.Stack[infer.Obligation]
}

func NewFulfillmentCtxt(s *Solver) *FulfillmentCtxt {
	return &FulfillmentCtxt{solver: s}
}

type FulfillmentError struct {
	Obligation infer.Obligation
	Certainty  Certainty
}

func (e FulfillmentError) Error() string {
	if e.Certainty.IsAmbiguous() {
		return fmt.Sprintf("%v is %v", e.Obligation.Predicate, e.Certainty)
	}
	return fmt.Sprintf("%v does not hold", e.Obligation.Predicate)
}

func (f *FulfillmentCtxt) Register(obligations ...infer.Obligation) {
	f.pending.Push(obligations...)
}

// Pending returns the obligations that are still ambiguous
func (f *FulfillmentCtxt) Pending() []infer.Obligation {
	return f.pending.Items()
}

// SelectWherePossible proves what it can and returns the obligations that were
// disproven. Ambiguous obligations remain pending.
func (f *FulfillmentCtxt) SelectWherePossible() []FulfillmentError {
	errs, _ := f.run(false)
	return errs
}

// SelectAll is SelectWherePossible, additionally reporting every obligation left
// ambiguous as an error
func (f *FulfillmentCtxt) SelectAll() []FulfillmentError {
	errs, _ := f.run(false)
	for _, o := range f.pending.PopAll() {
		c := f.solver.EvaluateInProbe(o)
		errs = append(errs, FulfillmentError{Obligation: o, Certainty: c})
	}
	return errs
}

// run evaluates pending obligations until a round makes no progress, returning the
// combined certainty of everything that was registered. With stopEarly set it returns
// as soon as an obligation is disproven.
func (f *FulfillmentCtxt) run(stopEarly bool) ([]FulfillmentError, Certainty) {
	var errs []FulfillmentError
	ambiguity := Yes
	for f.pending.Len() > 0 {
		batch := f.pending.PopAll()
		progress := false
		ambiguity = Yes
		for i, o := range batch {
			c := f.solver.evaluateObligation(o)
			switch c.Kind {
			case KindNo:
				errs = append(errs, FulfillmentError{Obligation: o, Certainty: c})
				if stopEarly {
					f.pending.Push(batch[i+1:]...)
					return errs, No
				}
				progress = true
			case KindYes:
				progress = true
			default:
				f.pending.Push(o)
				ambiguity = ambiguity.And(c)
			}
		}
		if !progress {
			break
		}
	}
	if len(errs) > 0 {
		return errs, No
	}
	if f.pending.Len() == 0 {
		return nil, Yes
	}
	return nil, ambiguity
}
