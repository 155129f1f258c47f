package tyerr

import (
	"fmt"
	"log/slog"
	"strings"
)

// Errors collects the failures of a batch of checks that keep going after the first one.
// A nil *Errors is empty.
type Errors struct {
	errs []TyError
}

// With appends the non-nil errs
func (r *Errors) With(errs ...TyError) *Errors {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if r == nil {
			r = &Errors{}
		}
		r.errs = append(r.errs, err)
	}
	return r
}

func (r *Errors) Errors() []TyError {
	if r == nil {
		return nil
	}
	return r.errs
}

func (r *Errors) HasError() bool {
	return len(r.Errors()) > 0
}

// Count is the number of collected errors with the given code
func (r *Errors) Count(code ErrCode) int {
	n := 0
	for _, err := range r.Errors() {
		if err.Code() == code {
			n++
		}
	}
	return n
}

func (r *Errors) Error() string {
	msgs := make([]string, 0, len(r.Errors()))
	for _, err := range r.Errors() {
		msgs = append(msgs, FormatWithCode(err))
	}
	return strings.Join(msgs, "; ")
}

// LogValue groups each error under its position, with its code and message
func (r *Errors) LogValue() slog.Value {
	var vals []slog.Attr
	for i, v := range r.Errors() {
		vals = append(vals, slog.Group(fmt.Sprint("e", i),
			slog.Int("code", int(v.Code())),
			slog.String("msg", v.Error()),
		))
	}
	return slog.GroupValue(vals...)
}
