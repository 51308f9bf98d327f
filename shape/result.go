package shape

import (
	"fmt"

	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
)

// TypedOptic is an optic with its source type pair S, T and view type pair A, B.
// It converts values of S to T by converting the focused parts from A to B.
type TypedOptic struct {
	S, T Type
	A, B Type
	O    optic.Optic
}

func (o TypedOptic) Bounds() optic.Bounds { return o.O.Bounds() }

func (o TypedOptic) String() string {
	return fmt.Sprintf("optic[%s -> %s | %s -> %s: %s]", o.S, o.T, o.A, o.B, o.O)
}

// Compose returns the typed optic focusing inner inside outer. The view types of outer must be
// the source types of inner and the bounds of inner must be supported by its source or target
// type, otherwise an ErrShapeMismatch error is returned.
func Compose(outer, inner TypedOptic) (TypedOptic, error) {
	if !Equal(outer.A, inner.S, true, true) || !Equal(outer.B, inner.T, true, true) {
		return TypedOptic{}, errors.Wrapf(ErrShapeMismatch,
			"compose view %s -> %s with source %s -> %s", outer.A, outer.B, inner.S, inner.T)
	}
	if _, err := inner.Upcast(Capability(inner.S) | Capability(inner.T)); err != nil {
		return TypedOptic{}, errors.Wrapf(err, "compose %s", outer.O)
	}
	return TypedOptic{outer.S, outer.T, inner.A, inner.B, optic.Compose(outer.O, inner.O)}, nil
}

// Capability returns the bounds of the optics that can focus parts of values of t. Products and
// named types allow lenses, sums, optional fields and choices allow prisms and collections allow
// traversals. Recursion points allow any optic.
func Capability(t Type) optic.Bounds { return t.base().caps }

// Upcast returns o if it does not require more than the limit bounds, or an ErrShapeMismatch
// error otherwise.
func (o TypedOptic) Upcast(limit optic.Bounds) (TypedOptic, error) {
	if err := optic.Check(o.O, limit); err != nil {
		return o, errors.Wrapf(ErrShapeMismatch, "%v", err)
	}
	return o, nil
}

// Result is a proven rewrite of the old type into the new type with an optic converting values.
type Result struct {
	Old, New Type
	Optic    TypedOptic
}

// Nop returns the no-operation result for t.
func Nop(t Type) *Result {
	return &Result{t, t, TypedOptic{t, t, t, t, optic.ID()}}
}

// NewResult returns a result converting from to with the leaf optic o.
func NewResult(from, to Type, o optic.Optic) *Result {
	return &Result{from, to, TypedOptic{from, to, from, to, o}}
}

// IsNop returns whether the result is a no-operation.
func (r *Result) IsNop() bool { return optic.IsID(r.Optic.O) }

// Then returns the result of r followed by next. The new type of r must be the old type of next.
func (r *Result) Then(next *Result) (*Result, error) {
	if next == nil || next.IsNop() && Equal(r.New, next.Old, false, true) {
		return r, nil
	}
	if !Equal(r.New, next.Old, false, true) {
		return nil, errors.Wrapf(ErrShapeMismatch, "sequence %s with %s", r.New, next.Old)
	}
	if r.IsNop() {
		return next, nil
	}
	return &Result{r.Old, next.New, TypedOptic{
		S: r.Old, T: next.New, A: r.Old, B: next.New,
		O: optic.Seq(r.Optic.O, next.Optic.O),
	}}, nil
}

// Convert reads a value of the old type from in, converts it and writes it as new type.
func (r *Result) Convert(ops tree.Ops, in interface{}) (interface{}, error) {
	return Convert(ops, r.Old, r.New, r.Optic.O, in)
}

func (r *Result) String() string {
	if r.IsNop() {
		return fmt.Sprintf("nop(%s)", r.Old)
	}
	return fmt.Sprintf("%s => %s via %s", r.Old, r.New, r.Optic.O)
}

// Convert decodes in with type from, applies the optic and encodes the result with type to.
// Unconsumed input is handed to the writer as rest.
func Convert(ops tree.Ops, from, to Type, o optic.Optic, in interface{}) (interface{}, error) {
	rest, v, ok := from.Read(ops, in)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "input does not match %s", from)
	}
	v, err := optic.Apply(o, v)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", from)
	}
	return to.Write(ops, rest, v)
}
