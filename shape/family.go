package shape

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Family is a function from family index to type.
type Family interface {
	At(index int) Type
}

// FamilyFunc is a plain family function.
type FamilyFunc func(index int) Type

func (f FamilyFunc) At(index int) Type { return f(index) }

// Types returns a plain family over the given types. Indices out of range return nil.
func Types(ts ...Type) Family {
	return FamilyFunc(func(i int) Type {
		if i < 0 || i >= len(ts) {
			return nil
		}
		return ts[i]
	})
}

// Realize evaluates the family for the first n indices concurrently.
// Evaluating independent indices of an immutable family is safe to run in parallel.
func Realize(ctx context.Context, f Family, n int) ([]Type, error) {
	res := make([]Type, n)
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t := f.At(i)
			if t == nil {
				return errors.Wrapf(ErrNotFound, "no type at family index %d", i)
			}
			res[i] = t
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// RecursiveFamily is a family, whose types may refer to the types of the same family by index.
//
// The family at index i is a recursion point that refers back to the family. The point unfolds to
// one stable type built from the family template. The family is fully tied before the constructor
// returns and immutable afterwards.
type RecursiveFamily struct {
	name   string
	tpl    Template
	points []*PointType
	types  []Type
}

// NewRecursiveFamily returns a new family for the template. The template may refer to family
// types using ID templates. The family size is the template size.
func NewRecursiveFamily(name string, tpl Template) *RecursiveFamily {
	f := shell(name, tpl.Size())
	f.tpl = tpl
	ap := tpl.Apply(f)
	types := make([]Type, len(f.points))
	for i := range types {
		types[i] = ap.At(i)
	}
	f.types = types
	return f
}

func shell(name string, size int) *RecursiveFamily {
	if size < 1 {
		size = 1
	}
	f := &RecursiveFamily{name: name, points: make([]*PointType, size)}
	for i := range f.points {
		n := newNode(KindPoint, name, []string{strconv.Itoa(i)})
		n.rec = true
		f.points[i] = intern(&PointType{n, f, i}).(*PointType)
	}
	return f
}

// tie sets the unfolded types of a shell family built during a rewrite.
func (f *RecursiveFamily) tie(types []Type) {
	tpls := make([]Template, 0, len(types))
	for _, t := range types {
		tpls = append(tpls, TemplateOf(t))
	}
	f.tpl = Select(tpls...)
	f.types = types
}

func (f *RecursiveFamily) Name() string       { return f.name }
func (f *RecursiveFamily) Size() int          { return len(f.points) }
func (f *RecursiveFamily) Template() Template { return f.tpl }

// At returns the recursion point at index. It panics if index is out of range.
func (f *RecursiveFamily) At(index int) Type { return f.points[index] }

// Unfold returns the type the recursion point at index refers to.
func (f *RecursiveFamily) Unfold(index int) Type { return f.types[index] }

func (f *RecursiveFamily) String() string { return fmt.Sprintf("mu(%s %s)", f.name, f.tpl) }

// PointType is a recursion point, a reference to the type at an index of a recursive family.
// It reads, writes and defaults as the type it refers to.
type PointType struct {
	node
	fam   *RecursiveFamily
	index int
}

func (t *PointType) Family() *RecursiveFamily { return t.fam }
func (t *PointType) Index() int               { return t.index }
func (t *PointType) Unfold() Type             { return t.fam.types[t.index] }

func (t *PointType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	return t.Unfold().Read(ops, in)
}

func (t *PointType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	return t.Unfold().Write(ops, rest, v)
}

func (t *PointType) Equal(o Type, ignoreRec, checkIndex bool) bool {
	return Equal(t, o, ignoreRec, checkIndex)
}

func (t *PointType) String() string { return fmt.Sprintf("@%s.%d", t.name, t.index) }

func (t *PointType) point(ops tree.Ops, c *pointCtx) (interface{}, bool) {
	if c.seen[t] {
		return nil, false
	}
	if c.seen == nil {
		c.seen = make(map[*PointType]bool)
	}
	c.seen[t] = true
	defer delete(c.seen, t)
	return t.Unfold().point(ops, c)
}
