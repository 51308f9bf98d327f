package shape

import (
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// PrimType is a primitive leaf type. Values are bool, int64, float64 or string.
type PrimType struct{ node }

var (
	Bool   = intern(&PrimType{newNode(KindBool, "", nil)})
	Int    = intern(&PrimType{newNode(KindInt, "", nil)})
	Float  = intern(&PrimType{newNode(KindFloat, "", nil)})
	String = intern(&PrimType{newNode(KindString, "", nil)})
)

func (t *PrimType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	var v interface{}
	var ok bool
	switch t.kind {
	case KindBool:
		v, ok = ops.Bool(in)
	case KindInt:
		v, ok = ops.Int(in)
	case KindFloat:
		v, ok = ops.Float(in)
	case KindString:
		v, ok = ops.String(in)
	}
	if !ok {
		return in, nil, false
	}
	return ops.Empty(), v, true
}

func (t *PrimType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	var res interface{}
	switch d := v.(type) {
	case bool:
		if t.kind == KindBool {
			res = ops.CreateBool(d)
		}
	case int64:
		if t.kind == KindInt {
			res = ops.CreateInt(d)
		} else if t.kind == KindFloat {
			res = ops.CreateFloat(float64(d))
		}
	case int:
		if t.kind == KindInt {
			res = ops.CreateInt(int64(d))
		}
	case float64:
		if t.kind == KindFloat {
			res = ops.CreateFloat(d)
		}
	case string:
		if t.kind == KindString {
			res = ops.CreateString(d)
		}
	}
	if res == nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s got %T", t.kind, v)
	}
	res, err := tree.MergePrim(ops, rest, res)
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s: %v", t.kind, err)
	}
	return res, nil
}

func (t *PrimType) point(tree.Ops, *pointCtx) (interface{}, bool) { return nil, false }

// UnitType reads nothing and writes nothing. Its only value is val.Unit.
type UnitType struct{ node }

var Unit = intern(&UnitType{newNode(KindUnit, "", nil)})

func (t *UnitType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	return in, val.Unit{}, true
}

func (t *UnitType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	if _, ok := v.(val.Unit); !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "unit got %T", v)
	}
	return rest, nil
}

func (t *UnitType) point(tree.Ops, *pointCtx) (interface{}, bool) { return val.Unit{}, true }

// RemainderType consumes the whole rest of the input. Its values are raw tree values.
type RemainderType struct{ node }

var Remainder = intern(&RemainderType{newNode(KindRemainder, "", nil)})

func (t *RemainderType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	return ops.Empty(), in, true
}

func (t *RemainderType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	if ops.IsEmpty(v) {
		return rest, nil
	}
	res, err := ops.MergeMaps(rest, v)
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "rest: %v", err)
	}
	return res, nil
}

func (t *RemainderType) point(ops tree.Ops, _ *pointCtx) (interface{}, bool) {
	return ops.EmptyMap(), true
}
