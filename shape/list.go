package shape

import (
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// ListType is a homogeneous list. Values are []interface{}.
type ListType struct{ node }

// List returns a list type of elem.
func List(elem Type) Type {
	return intern(&ListType{newNode(KindList, "", nil, elem)})
}

func (t *ListType) Elem() Type { return t.kids[0] }

func (t *ListType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	l, ok := ops.List(in)
	if !ok {
		return in, nil, false
	}
	res := make([]interface{}, 0, len(l))
	for _, el := range l {
		_, v, ok := t.kids[0].Read(ops, el)
		if !ok {
			return in, nil, false
		}
		res = append(res, v)
	}
	return ops.Empty(), res, true
}

func (t *ListType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	l, ok := v.([]interface{})
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "list got %T", v)
	}
	res := make([]interface{}, 0, len(l))
	for i, el := range l {
		w, err := t.kids[0].Write(ops, emptyFor(ops, t.kids[0]), el)
		if err != nil {
			return nil, errors.Wrapf(err, "index %d", i)
		}
		res = append(res, w)
	}
	out, err := tree.MergePrim(ops, rest, ops.CreateList(res))
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "list: %v", err)
	}
	return out, nil
}

func (t *ListType) point(tree.Ops, *pointCtx) (interface{}, bool) {
	return []interface{}{}, true
}

// CompoundListType is a map with string keys and homogeneous values.
// Values are []interface{} of val.Pair with string keys.
type CompoundListType struct{ node }

// CompoundList returns a map type of elem.
func CompoundList(elem Type) Type {
	return intern(&CompoundListType{newNode(KindCompoundList, "", nil, elem)})
}

func (t *CompoundListType) Elem() Type { return t.kids[0] }

func (t *CompoundListType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	es, ok := ops.Map(in)
	if !ok {
		return in, nil, false
	}
	res := make([]interface{}, 0, len(es))
	for _, e := range es {
		_, v, ok := t.kids[0].Read(ops, e.Val)
		if !ok {
			return in, nil, false
		}
		res = append(res, val.Pair{First: e.Key, Second: v})
	}
	return ops.Empty(), res, true
}

func (t *CompoundListType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	l, ok := v.([]interface{})
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "map got %T", v)
	}
	res := rest
	if ops.IsEmpty(res) {
		res = ops.EmptyMap()
	}
	for _, el := range l {
		p, ok := el.(val.Pair)
		if !ok {
			return nil, errors.Wrapf(ErrShapeMismatch, "map entry got %T", el)
		}
		key, ok := p.First.(string)
		if !ok {
			return nil, errors.Wrapf(ErrShapeMismatch, "map key got %T", p.First)
		}
		w, err := t.kids[0].Write(ops, emptyFor(ops, t.kids[0]), p.Second)
		if err != nil {
			return nil, errors.Wrapf(err, "key %s", key)
		}
		res, err = ops.MergeKey(res, key, w)
		if err != nil {
			return nil, errors.Wrapf(ErrShapeMismatch, "map: %v", err)
		}
	}
	return res, nil
}

func (t *CompoundListType) point(tree.Ops, *pointCtx) (interface{}, bool) {
	return []interface{}{}, true
}
