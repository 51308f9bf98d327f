package mig

import (
	"context"
	"fmt"
	"sync"

	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/shape"
	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrVersion is returned for unknown versions or invalid version ranges.
var ErrVersion = errors.New("invalid version")

// Fix is a named rule that migrates one type from version Vers-1 to Vers.
//
// The rule is applied bottom-up to the definition of the type, other named types referenced by
// recursion points are not entered. Fixes of one version are applied in declaration order.
type Fix struct {
	Name string
	Vers int64
	Type string
	Rule shape.Rule
}

func (f Fix) String() string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("fix %s@%d", f.Type, f.Vers)
}

// History is the ordered list of schema versions of one project and the fixes between them.
// It is immutable after construction and safe for concurrent use.
type History struct {
	schemas []*Schema
	fixes   []Fix
	steps   [][]*shape.Result
	cache   sync.Map
}

// NewHistory returns a history of consecutive schema versions and the fixes between them.
// Later versions may add types but must keep the types of the previous version at their index.
// The migration steps between versions are computed concurrently.
func NewHistory(ctx context.Context, schemas []*Schema, fixes ...Fix) (*History, error) {
	if len(schemas) == 0 {
		return nil, errors.Wrap(ErrVersion, "history without schemas")
	}
	for i, s := range schemas[1:] {
		prev := schemas[i]
		if s.Vers != prev.Vers+1 {
			return nil, errors.Wrapf(ErrVersion, "%s does not follow %s", s, prev)
		}
		if s.Project != prev.Project {
			return nil, errors.Errorf("%s has a different project than %s", s, prev)
		}
		for j, name := range prev.Names {
			if j >= len(s.Names) || s.Names[j] != name {
				return nil, errors.Errorf("%s must keep type %s at index %d", s, name, j)
			}
		}
	}
	h := &History{schemas: schemas, fixes: fixes, steps: make([][]*shape.Result, len(schemas))}
	for _, f := range fixes {
		if f.Vers <= schemas[0].Vers || f.Vers > h.Last().Vers {
			return nil, errors.Wrapf(ErrVersion, "%s outside of history", f)
		}
		if _, ok := h.schema(f.Vers - 1).Index(f.Type); !ok {
			return nil, errors.Wrapf(ErrUnknownType, "%s type %s", f, f.Type)
		}
	}
	eg, ctx := errgroup.WithContext(ctx)
	for i := 1; i < len(schemas); i++ {
		i := i
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rs, err := h.step(schemas[i-1], schemas[i])
			if err != nil {
				return err
			}
			h.steps[i] = rs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return h, nil
}

// First returns the oldest schema.
func (h *History) First() *Schema { return h.schemas[0] }

// Last returns the latest schema.
func (h *History) Last() *Schema { return h.schemas[len(h.schemas)-1] }

// Schema returns the schema with version vers.
func (h *History) Schema(vers int64) (*Schema, error) {
	if s := h.schema(vers); s != nil {
		return s, nil
	}
	return nil, errors.Wrapf(ErrVersion, "%s has no version %d", h.First().Project, vers)
}

// Schemas returns all schemas, oldest first.
func (h *History) Schemas() []*Schema { return h.schemas }

func (h *History) schema(vers int64) *Schema {
	i := vers - h.schemas[0].Vers
	if i < 0 || i >= int64(len(h.schemas)) {
		return nil
	}
	return h.schemas[i]
}

// step returns the results migrating each type of src to the type in dst.
func (h *History) step(src, dst *Schema) ([]*shape.Result, error) {
	n := src.Family.Size()
	rs := make([]*shape.Result, n)
	for i := range rs {
		rs[i] = shape.Nop(src.Family.At(i))
	}
	for _, f := range h.fixes {
		if f.Vers != dst.Vers {
			continue
		}
		idx, _ := src.Index(f.Type)
		p := shape.NewPass(scope(src.Project, idx, f.Rule), true, true)
		for i, r := range rs {
			next, err := p.Rewrite(r.New)
			if err != nil {
				return nil, errors.Wrapf(err, "%s", f)
			}
			if rs[i], err = r.Then(next); err != nil {
				return nil, errors.Wrapf(err, "%s", f)
			}
		}
	}
	for i, r := range rs {
		target := shape.UpdateMu(r.New, dst.Family)
		if !shape.Equal(r.New, target, true, true) {
			return nil, errors.Wrapf(shape.ErrShapeMismatch,
				"%s type %s: fixes produce %s, declared %s",
				dst, src.Names[i], unfold(r.New), dst.Family.Unfold(i))
		}
		rebind := optic.Adapter(fmt.Sprintf("vers %d", dst.Vers), nil, nil)
		next := &shape.Result{Old: r.New, New: target,
			Optic: shape.TypedOptic{S: r.New, T: target, A: r.New, B: target, O: rebind}}
		var err error
		if rs[i], err = r.Then(next); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// scope returns a rule that rewrites only the definition at index idx of the project family with r.
func scope(project string, idx int, r shape.Rule) shape.Rule {
	return shape.RuleFunc(func(t shape.Type, p *shape.Pass) (*shape.Result, error) {
		if name, i, ok := p.Def(); !ok || name != project || i != idx {
			return nil, nil
		}
		res, err := shape.RewriteAll(t, r, false, true)
		if err != nil || res.IsNop() {
			return nil, err
		}
		return res, nil
	})
}

func unfold(t shape.Type) shape.Type {
	if pt, ok := t.(*shape.PointType); ok {
		return pt.Unfold()
	}
	return t
}

type rewriteKey struct {
	name     string
	from, to int64
}

// Rewrite returns the result migrating the named type from version from to version to.
// Results are cached.
func (h *History) Rewrite(name string, from, to int64) (*shape.Result, error) {
	key := rewriteKey{name, from, to}
	if res, ok := h.cache.Load(key); ok {
		return res.(*shape.Result), nil
	}
	src, err := h.Schema(from)
	if err != nil {
		return nil, err
	}
	if _, err = h.Schema(to); err != nil {
		return nil, err
	}
	if to < from {
		return nil, errors.Wrapf(ErrVersion, "cannot migrate %s back from %d to %d", name, from, to)
	}
	idx, ok := src.Index(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%s in %s", name, src)
	}
	res := shape.Nop(src.Family.At(idx))
	for v := from + 1; v <= to; v++ {
		step := h.steps[v-h.First().Vers]
		if res, err = res.Then(step[idx]); err != nil {
			return nil, errors.Wrapf(err, "migrate %s to %d", name, v)
		}
	}
	act, _ := h.cache.LoadOrStore(key, res)
	return act.(*shape.Result), nil
}

// Migrate converts the value of the named type from version from to version to.
func (h *History) Migrate(ops tree.Ops, name string, from, to int64, v interface{}) (interface{}, error) {
	res, err := h.Rewrite(name, from, to)
	if err != nil {
		return nil, err
	}
	out, err := res.Convert(ops, v)
	if err != nil {
		return nil, errors.Wrapf(err, "migrate %s from %d to %d", name, from, to)
	}
	return out, nil
}
