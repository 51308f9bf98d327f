package shape

import (
	"fmt"
	"strings"

	"github.com/mb0/dafix/optic"
	"github.com/pkg/errors"
)

// Path is a sequence of child indices leading from a type to one of its descendants.
type Path []int

func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	var b strings.Builder
	for _, i := range p {
		fmt.Fprintf(&b, ".%d", i)
	}
	return b.String()
}

// Children returns the child types of t. Recursion points have no children.
func Children(t Type) []Type {
	if _, ok := t.(*PointType); ok {
		return nil
	}
	return t.base().kids
}

// Find searches t and the parts of t that share its map level for the first type matching pred.
// It enters named types, products and sums in child order but no fields, collections or
// recursion points. It returns an ErrNotFound error if no type matches.
func Find(t Type, pred func(Type) bool) (Path, Type, error) {
	if p, ok := find(t, pred, nil); ok {
		return p, at(t, p), nil
	}
	return nil, nil, errors.Wrapf(ErrNotFound, "in %s", t)
}

func find(t Type, pred func(Type) bool, path Path) (Path, bool) {
	if pred(t) {
		return path, true
	}
	switch t.Kind() {
	case KindNamed, KindProduct, KindSum:
		for i, k := range t.base().kids {
			if p, ok := find(k, pred, append(path[:len(path):len(path)], i)); ok {
				return p, true
			}
		}
	}
	return nil, false
}

func at(t Type, p Path) Type {
	for _, i := range p {
		t = t.base().kids[i]
	}
	return t
}

// FindField returns the path to the required or optional field with name at the map level of t.
// It returns an ErrFieldNotFound error if t has no such field.
func FindField(t Type, name string) (Path, Type, error) {
	p, f, err := Find(t, func(t Type) bool {
		k := t.Kind()
		return (k == KindField || k == KindOptField) && t.base().name == name
	})
	if err != nil {
		return nil, nil, errors.Wrapf(ErrFieldNotFound, "field %s in %s", name, t)
	}
	return p, f, nil
}

// FindChoice returns the path to the tagged choice with key at the map level of t.
// An empty key matches any choice. It returns an ErrNotFound error if t has no such choice.
func FindChoice(t Type, key string) (Path, *TaggedChoiceType, error) {
	p, c, err := Find(t, func(t Type) bool {
		c, ok := t.(*TaggedChoiceType)
		return ok && (key == "" || c.name == key)
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "choice %s", key)
	}
	return p, c.(*TaggedChoiceType), nil
}

// Focus returns the typed optic that focuses the values of the descendant at path in values of t.
func Focus(t Type, path Path) (TypedOptic, error) {
	res := TypedOptic{t, t, t, t, optic.ID()}
	cur := t
	for _, i := range path {
		kids := Children(cur)
		if i < 0 || i >= len(kids) {
			return res, errors.Wrapf(ErrNotFound, "path %s in %s", path, t)
		}
		n := cur.base()
		k := kids[i]
		var err error
		res, err = Compose(res, TypedOptic{cur, cur, k, k, lift(n.kind, n.tags, i)})
		if err != nil {
			return res, err
		}
		cur = k
	}
	return res, nil
}

// ReplaceAt returns the result of rewriting the descendant of t at path with r. The result for
// the descendant is lifted through each enclosing type on the path.
func ReplaceAt(t Type, path Path, r *Result) (*Result, error) {
	if len(path) == 0 {
		if !Equal(t, r.Old, false, true) {
			return nil, errors.Wrapf(ErrShapeMismatch, "replace %s with result for %s", t, r.Old)
		}
		return r, nil
	}
	kids := Children(t)
	i := path[0]
	if i < 0 || i >= len(kids) {
		return nil, errors.Wrapf(ErrNotFound, "path %s in %s", path, t)
	}
	cr, err := ReplaceAt(kids[i], path[1:], r)
	if err != nil {
		return nil, err
	}
	rs := make([]*Result, 0, len(kids))
	for j, k := range kids {
		if j == i {
			rs = append(rs, cr)
		} else {
			rs = append(rs, Nop(k))
		}
	}
	return Fix(t, rs...)
}
