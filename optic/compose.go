package optic

import (
	"fmt"

	"github.com/pkg/errors"
)

type compose struct {
	outer, inner Optic
}

// Compose returns an optic focusing the parts of inner inside the parts of outer.
// Identity optics are absorbed.
func Compose(outer, inner Optic) Optic {
	if IsID(outer) {
		return inner
	}
	if IsID(inner) {
		return outer
	}
	return &compose{outer, inner}
}

func (o *compose) Bounds() Bounds { return o.outer.Bounds() | o.inner.Bounds() }
func (o *compose) String() string { return fmt.Sprintf("%s . %s", o.outer, o.inner) }
func (o *compose) Modify(s interface{}, f Func) (interface{}, error) {
	return o.outer.Modify(s, func(a interface{}) (interface{}, error) {
		return o.inner.Modify(a, f)
	})
}

type seq struct {
	first, second Optic
}

// Seq returns an optic that converts with first and then focuses through second.
// Identity optics are absorbed.
func Seq(first, second Optic) Optic {
	if IsID(first) {
		return second
	}
	if IsID(second) {
		return first
	}
	return &seq{first, second}
}

func (o *seq) Bounds() Bounds { return o.first.Bounds() | o.second.Bounds() }
func (o *seq) String() string { return fmt.Sprintf("%s ; %s", o.first, o.second) }
func (o *seq) Modify(s interface{}, f Func) (interface{}, error) {
	t, err := o.first.Modify(s, identity)
	if err != nil {
		return nil, err
	}
	return o.second.Modify(t, f)
}

// Check returns an ErrBounds error if o requires more than the limit bounds.
func Check(o Optic, limit Bounds) error {
	if b := o.Bounds(); !b.Within(limit) {
		return errors.Wrapf(ErrBounds, "%s requires %s, allowed %s", o, b, limit)
	}
	return nil
}

// Apply returns s converted by o. Leaf adapters of o carry the conversion.
func Apply(o Optic, s interface{}) (interface{}, error) {
	return o.Modify(s, identity)
}

// Set returns s with each focused part replaced by b.
func Set(o Optic, s, b interface{}) (interface{}, error) {
	return o.Modify(s, func(interface{}) (interface{}, error) { return b, nil })
}

// Get returns the single part focused by o in s. The optic must not require more than products.
func Get(o Optic, s interface{}) (res interface{}, err error) {
	if err = Check(o, LensBounds); err != nil {
		return nil, err
	}
	_, err = o.Modify(s, func(a interface{}) (interface{}, error) {
		res = a
		return a, nil
	})
	return res, err
}

// Preview returns the part focused by o in s or false if the source does not match.
func Preview(o Optic, s interface{}) (res interface{}, ok bool, err error) {
	if err = Check(o, AffineBounds); err != nil {
		return nil, false, err
	}
	_, err = o.Modify(s, func(a interface{}) (interface{}, error) {
		res, ok = a, true
		return a, nil
	})
	return res, ok, err
}

// ToList returns all parts focused by o in s.
func ToList(o Optic, s interface{}) (res []interface{}, err error) {
	_, err = o.Modify(s, func(a interface{}) (interface{}, error) {
		res = append(res, a)
		return a, nil
	})
	return res, err
}
