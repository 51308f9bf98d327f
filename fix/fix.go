/*
Package fix provides the rule constructors used to declare schema migrations.

Most rules match one kind of node and are meant to be applied with shape.RewriteAll, that visits
every node of a type graph bottom-up. The scoped rules InField, InChoice and Named rewrite only
the element of the matched node. Applied alone to a record with shape.RewriteOne they search the
map level of the record and fail with a not found error if the target is absent.
*/
package fix

import (
	"fmt"

	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/shape"
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// RenameField returns a rule that renames required and optional fields named old.
// Named fields with the same name are renamed as a whole, also if the field was renamed before.
func RenameField(old, name string) shape.Rule {
	desc := fmt.Sprintf("rename %s %s", old, name)
	return shape.RuleFunc(func(t shape.Type, _ *shape.Pass) (*shape.Result, error) {
		switch d := t.(type) {
		case *shape.FieldType:
			if d.Name() == old {
				return shape.NewResult(t, shape.Field(name, d.Elem()),
					optic.Adapter(desc, nil, nil)), nil
			}
		case *shape.OptFieldType:
			if d.Name() == old {
				return shape.NewResult(t, shape.OptField(name, d.Elem()),
					optic.Adapter(desc, nil, nil)), nil
			}
		case *shape.NamedType:
			f, ok := d.Elem().(*shape.FieldType)
			if d.Name() == old && ok && (f.Name() == old || f.Name() == name) {
				return shape.NewResult(t, shape.NamedField(name, f.Elem()),
					optic.Conv(desc, relabel(old, name))), nil
			}
		}
		return nil, nil
	})
}

// RenameTag returns a rule that renames the case old of tagged choices discriminated by key.
func RenameTag(key, old, tag string) shape.Rule {
	desc := fmt.Sprintf("rename tag %s %s %s", key, old, tag)
	return shape.RuleFunc(func(t shape.Type, _ *shape.Pass) (*shape.Result, error) {
		c, ok := t.(*shape.TaggedChoiceType)
		if !ok || c.Key() != key {
			return nil, nil
		}
		ct, ok := c.Case(old)
		if !ok {
			return nil, nil
		}
		if _, ok := c.Case(tag); ok {
			return nil, errors.Wrapf(shape.ErrShapeMismatch, "%s: tag already exists", desc)
		}
		cases := make(map[string]shape.Type, len(c.Tags()))
		for _, other := range c.Tags() {
			cases[other], _ = c.Case(other)
		}
		delete(cases, old)
		cases[tag] = ct
		return shape.NewResult(t, shape.TaggedChoice(key, cases),
			optic.Conv(desc, relabel(old, tag))), nil
	})
}

// relabel replaces the first element of a pair, if it is old.
func relabel(old, name string) optic.Func {
	return func(v interface{}) (interface{}, error) {
		p, ok := v.(val.Pair)
		if !ok {
			return nil, errors.Wrapf(optic.ErrValue, "relabel %s got %T", old, v)
		}
		if p.First == old {
			p.First = name
		}
		return p, nil
	}
}

// AddField returns a rule that adds a field after the anchor field of a record. The new field has
// type t and value v. A nil value uses the default value of t, that must exist.
func AddField(anchor, name string, t shape.Type, v interface{}) shape.Rule {
	desc := fmt.Sprintf("add %s after %s", name, anchor)
	if v == nil {
		d, ok := shape.Point(t, tree.Native)
		if !ok {
			return shape.RuleFunc(func(shape.Type, *shape.Pass) (*shape.Result, error) {
				return nil, errors.Wrapf(shape.ErrShapeMismatch, "%s: %s has no default", desc, t)
			})
		}
		v = d
	}
	field := shape.Field(name, t)
	return shape.RuleFunc(func(rec shape.Type, _ *shape.Pass) (*shape.Result, error) {
		p, ok := rec.(*shape.ProductType)
		if !ok {
			return nil, nil
		}
		if isField(p.First(), anchor) {
			return shape.NewResult(rec, shape.And(p.First(), field, p.Second()),
				optic.Conv(desc, func(s interface{}) (interface{}, error) {
					a, err := pair(s)
					if err != nil {
						return nil, err
					}
					return val.P(a.First, val.P(v, a.Second)), nil
				})), nil
		}
		if isField(p.Second(), anchor) {
			return shape.NewResult(rec, shape.And(p.First(), shape.And(p.Second(), field)),
				optic.Conv(desc, func(s interface{}) (interface{}, error) {
					a, err := pair(s)
					if err != nil {
						return nil, err
					}
					return val.P(a.First, val.P(a.Second, v)), nil
				})), nil
		}
		return nil, nil
	})
}

// DropField returns a rule that removes the field name from records. The field value is
// discarded.
func DropField(name string) shape.Rule {
	desc := fmt.Sprintf("drop %s", name)
	return shape.RuleFunc(func(rec shape.Type, _ *shape.Pass) (*shape.Result, error) {
		p, ok := rec.(*shape.ProductType)
		if !ok {
			return nil, nil
		}
		if isField(p.First(), name) {
			return shape.NewResult(rec, p.Second(), optic.Conv(desc, func(s interface{}) (interface{}, error) {
				a, err := pair(s)
				return a.Second, err
			})), nil
		}
		if isField(p.Second(), name) {
			return shape.NewResult(rec, p.First(), optic.Conv(desc, func(s interface{}) (interface{}, error) {
				a, err := pair(s)
				return a.First, err
			})), nil
		}
		return nil, nil
	})
}

// Convert returns a rule that replaces types equal to from with to and converts values with fn.
func Convert(from, to shape.Type, fn optic.Func) shape.Rule {
	desc := fmt.Sprintf("convert %s %s", from, to)
	return shape.RuleFunc(func(t shape.Type, p *shape.Pass) (*shape.Result, error) {
		if !shape.Equal(t, from, false, p.CheckIndex()) {
			return nil, nil
		}
		return shape.NewResult(t, to, optic.Conv(desc, fn)), nil
	})
}

// InField returns a rule that rewrites the element of fields named name with r.
func InField(name string, r shape.Rule) shape.Rule {
	return scoped(func(t shape.Type) int {
		if isField(t, name) {
			return 0
		}
		return -1
	}, r, func(t shape.Type) (shape.Path, shape.Type, error) {
		return shape.FindField(t, name)
	})
}

// InChoice returns a rule that rewrites the case tag of tagged choices with r.
func InChoice(tag string, r shape.Rule) shape.Rule {
	match := func(t shape.Type) int {
		if c, ok := t.(*shape.TaggedChoiceType); ok {
			for i, other := range c.Tags() {
				if other == tag {
					return i
				}
			}
		}
		return -1
	}
	return scoped(match, r, func(t shape.Type) (shape.Path, shape.Type, error) {
		p, c, err := shape.Find(t, func(t shape.Type) bool { return match(t) >= 0 })
		if err != nil {
			return nil, nil, errors.Wrapf(err, "choice with tag %s", tag)
		}
		return p, c, nil
	})
}

// Named returns a rule that rewrites the element of named types called name with r.
func Named(name string, r shape.Rule) shape.Rule {
	return scoped(func(t shape.Type) int {
		if n, ok := t.(*shape.NamedType); ok && n.Name() == name {
			return 0
		}
		return -1
	}, r, func(t shape.Type) (shape.Path, shape.Type, error) {
		return shape.Find(t, func(t shape.Type) bool {
			n, ok := t.(*shape.NamedType)
			return ok && n.Name() == name
		})
	})
}

// scoped returns a rule that rewrites the child of a matching node with r. The match function
// returns the child index or -1. Outside of a traversal the find function locates the node.
// Within a traversal the child is rewritten by a sub pass, so recursion points of families under
// rewrite stay leaves.
func scoped(match func(shape.Type) int, r shape.Rule,
	find func(shape.Type) (shape.Path, shape.Type, error)) shape.Rule {
	return shape.RuleFunc(func(t shape.Type, p *shape.Pass) (*shape.Result, error) {
		var path shape.Path
		target := t
		idx := match(t)
		if idx < 0 {
			if p != nil {
				return nil, nil
			}
			var err error
			path, target, err = find(t)
			if err != nil {
				return nil, err
			}
			idx = match(target)
		}
		kids := shape.Children(target)
		rs := make([]*shape.Result, 0, len(kids))
		for i, k := range kids {
			if i != idx {
				rs = append(rs, shape.Nop(k))
				continue
			}
			res, err := p.Sub(r).Rewrite(k)
			if err != nil {
				return nil, err
			}
			rs = append(rs, res)
		}
		res, err := shape.Fix(target, rs...)
		if err != nil || res.IsNop() {
			return nil, err
		}
		return shape.ReplaceAt(t, path, res)
	})
}

func isField(t shape.Type, name string) bool {
	switch d := t.(type) {
	case *shape.FieldType:
		return d.Name() == name
	case *shape.OptFieldType:
		return d.Name() == name
	}
	return false
}

func pair(v interface{}) (val.Pair, error) {
	p, ok := v.(val.Pair)
	if !ok {
		return p, errors.Wrapf(optic.ErrValue, "expect record pair got %T", v)
	}
	return p, nil
}
