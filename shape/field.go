package shape

import (
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// FieldType is a required map field. Its values are the element values.
type FieldType struct{ node }

// Field returns a required field type with the given key.
func Field(name string, elem Type) Type {
	return intern(&FieldType{newNode(KindField, name, nil, elem)})
}

func (t *FieldType) Name() string { return t.name }
func (t *FieldType) Elem() Type   { return t.kids[0] }

func (t *FieldType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	fv, ok := ops.Get(in, t.name)
	if !ok {
		return in, nil, false
	}
	_, v, ok := t.kids[0].Read(ops, fv)
	if !ok {
		return in, nil, false
	}
	return ops.Remove(in, t.name), v, true
}

func (t *FieldType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	return writeField(ops, t.name, t.kids[0], rest, v)
}

func (t *FieldType) point(ops tree.Ops, c *pointCtx) (interface{}, bool) {
	return t.kids[0].point(ops, c)
}

func writeField(ops tree.Ops, name string, elem Type, rest, v interface{}) (interface{}, error) {
	fv, err := elem.Write(ops, emptyFor(ops, elem), v)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", name)
	}
	res, err := ops.MergeKey(rest, name, fv)
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "field %s: %v", name, err)
	}
	return res, nil
}

// emptyFor returns the value t is written into when it is nested in a field or collection.
// Types at map level start with an empty map, so that a record without keys stays a map.
func emptyFor(ops tree.Ops, t Type) interface{} {
	if mapLevel(t, 0) {
		return ops.EmptyMap()
	}
	return ops.Empty()
}

func mapLevel(t Type, depth int) bool {
	switch d := t.(type) {
	case *FieldType, *OptFieldType, *ProductType, *TaggedChoiceType:
		return true
	case *NamedType:
		return mapLevel(d.Elem(), depth)
	case *PointType:
		// points unfold to other points only in degenerate families
		return d.fam.types != nil && depth < 8 && mapLevel(d.Unfold(), depth+1)
	}
	return false
}

// OptFieldType is an optional map field. Its values are val.Opt options of element values.
type OptFieldType struct{ node }

// OptField returns an optional field type with the given key.
func OptField(name string, elem Type) Type {
	return intern(&OptFieldType{newNode(KindOptField, name, nil, elem)})
}

func (t *OptFieldType) Name() string { return t.name }
func (t *OptFieldType) Elem() Type   { return t.kids[0] }

func (t *OptFieldType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	fv, ok := ops.Get(in, t.name)
	if !ok {
		return in, val.None(), true
	}
	_, v, ok := t.kids[0].Read(ops, fv)
	if !ok {
		// the unreadable field stays in the rest for a remainder to pick up
		return in, val.None(), true
	}
	return ops.Remove(in, t.name), val.Some(v), true
}

func (t *OptFieldType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	o, ok := v.(val.Opt)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "opt %s got %T", t.name, v)
	}
	if !o.Ok {
		return rest, nil
	}
	return writeField(ops, t.name, t.kids[0], rest, o.Val)
}

func (t *OptFieldType) point(tree.Ops, *pointCtx) (interface{}, bool) { return val.None(), true }
