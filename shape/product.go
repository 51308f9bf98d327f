package shape

import (
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// ProductType reads both its parts from the same input. Values are pairs.
type ProductType struct{ node }

// And returns a product of the given types. More than two types nest to the right.
func And(first, second Type, more ...Type) Type {
	if len(more) > 0 {
		second = And(second, more[0], more[1:]...)
	}
	return intern(&ProductType{newNode(KindProduct, "", nil, first, second)})
}

func (t *ProductType) First() Type  { return t.kids[0] }
func (t *ProductType) Second() Type { return t.kids[1] }

func (t *ProductType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	r1, a, ok := t.kids[0].Read(ops, in)
	if !ok {
		return in, nil, false
	}
	r2, b, ok := t.kids[1].Read(ops, r1)
	if !ok {
		return in, nil, false
	}
	return r2, val.Pair{First: a, Second: b}, true
}

func (t *ProductType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	p, ok := v.(val.Pair)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "and got %T", v)
	}
	res, err := t.kids[0].Write(ops, rest, p.First)
	if err != nil {
		return nil, err
	}
	return t.kids[1].Write(ops, res, p.Second)
}

func (t *ProductType) point(ops tree.Ops, c *pointCtx) (interface{}, bool) {
	a, ok := t.kids[0].point(ops, c)
	if !ok {
		return nil, false
	}
	b, ok := t.kids[1].point(ops, c)
	if !ok {
		return nil, false
	}
	return val.Pair{First: a, Second: b}, true
}

// SumType reads either its left or its right type. Values are val.Either.
type SumType struct{ node }

// Or returns a sum of left and right.
func Or(left, right Type) Type {
	return intern(&SumType{newNode(KindSum, "", nil, left, right)})
}

func (t *SumType) Left() Type  { return t.kids[0] }
func (t *SumType) Right() Type { return t.kids[1] }

func (t *SumType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	if rest, v, ok := t.kids[0].Read(ops, in); ok {
		return rest, val.Left(v), true
	}
	if rest, v, ok := t.kids[1].Read(ops, in); ok {
		return rest, val.Right(v), true
	}
	return in, nil, false
}

func (t *SumType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	e, ok := v.(val.Either)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "or got %T", v)
	}
	if e.Right {
		return t.kids[1].Write(ops, rest, e.Val)
	}
	return t.kids[0].Write(ops, rest, e.Val)
}

func (t *SumType) point(ops tree.Ops, c *pointCtx) (interface{}, bool) {
	if v, ok := t.kids[0].point(ops, c); ok {
		return val.Left(v), true
	}
	if v, ok := t.kids[1].point(ops, c); ok {
		return val.Right(v), true
	}
	return nil, false
}
