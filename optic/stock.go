package optic

import (
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

func pair(s interface{}) (val.Pair, error) {
	p, ok := s.(val.Pair)
	if !ok {
		return p, errors.Wrapf(ErrValue, "expect pair got %T", s)
	}
	return p, nil
}

// Proj1 focuses the first component of a pair.
var Proj1 = Lens("proj1", func(s interface{}) (interface{}, error) {
	p, err := pair(s)
	return p.First, err
}, func(s, b interface{}) (interface{}, error) {
	p, err := pair(s)
	return val.Pair{First: b, Second: p.Second}, err
})

// Proj2 focuses the second component of a pair.
var Proj2 = Lens("proj2", func(s interface{}) (interface{}, error) {
	p, err := pair(s)
	return p.Second, err
}, func(s, b interface{}) (interface{}, error) {
	p, err := pair(s)
	return val.Pair{First: p.First, Second: b}, err
})

// Inl focuses the left case of an either.
var Inl = Prism("inl", func(s interface{}) (interface{}, bool) {
	e, ok := s.(val.Either)
	return e.Val, ok && !e.Right
}, func(b interface{}) interface{} { return val.Left(b) })

// Inr focuses the right case of an either.
var Inr = Prism("inr", func(s interface{}) (interface{}, bool) {
	e, ok := s.(val.Either)
	return e.Val, ok && e.Right
}, func(b interface{}) interface{} { return val.Right(b) })

// Some focuses the value of a present option.
var Some = Prism("some", func(s interface{}) (interface{}, bool) {
	o, ok := s.(val.Opt)
	return o.Val, ok && o.Ok
}, func(b interface{}) interface{} { return val.Some(b) })

// Tag returns a prism focusing the value of a tagged pair with the given tag.
func Tag(tag string) Optic {
	return Prism("tag:"+tag, func(s interface{}) (interface{}, bool) {
		p, ok := s.(val.Pair)
		if !ok || p.First != tag {
			return nil, false
		}
		return p.Second, true
	}, func(b interface{}) interface{} { return val.Pair{First: tag, Second: b} })
}

// Each focuses every element of a list.
var Each = Traversal("each", func(s interface{}, f Func) (interface{}, error) {
	l, ok := s.([]interface{})
	if !ok {
		return nil, errors.Wrapf(ErrValue, "expect list got %T", s)
	}
	res := make([]interface{}, 0, len(l))
	for _, el := range l {
		v, err := f(el)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, nil
})
