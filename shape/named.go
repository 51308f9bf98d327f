package shape

import (
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// NamedType wraps an element type with a fixed name label.
// Its values are pairs of the name and the element value. Reading delegates to the element, so a
// named int reads plain ints. Use NamedField to read the map {name: value} as named value.
type NamedType struct{ node }

// Named returns a named type wrapping elem.
func Named(name string, elem Type) Type {
	return intern(&NamedType{newNode(KindNamed, name, nil, elem)})
}

// NamedField returns a named type wrapping a required field of the same name.
func NamedField(name string, elem Type) Type {
	return Named(name, Field(name, elem))
}

func (t *NamedType) Name() string { return t.name }
func (t *NamedType) Elem() Type   { return t.kids[0] }

func (t *NamedType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	rest, v, ok := t.kids[0].Read(ops, in)
	if !ok {
		return rest, nil, false
	}
	return rest, val.Pair{First: t.name, Second: v}, true
}

func (t *NamedType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	p, ok := v.(val.Pair)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "named %s got %T", t.name, v)
	}
	if p.First != t.name {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"named type name doesn't match: expected %q, got %v", t.name, p.First)
	}
	res, err := t.kids[0].Write(ops, rest, p.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "named %s", t.name)
	}
	return res, nil
}

func (t *NamedType) point(ops tree.Ops, c *pointCtx) (interface{}, bool) {
	v, ok := t.kids[0].point(ops, c)
	if !ok {
		return nil, false
	}
	return val.Pair{First: t.name, Second: v}, true
}
