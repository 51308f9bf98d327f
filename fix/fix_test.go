package fix_test

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mb0/dafix/fix"
	"github.com/mb0/dafix/shape"
	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type m = map[string]interface{}

func itoa(v interface{}) (interface{}, error) {
	return strconv.FormatInt(v.(int64), 10), nil
}

var (
	rec    = shape.And(shape.Field("x", shape.Int), shape.Field("z", shape.String))
	choice = shape.TaggedChoice("kind", map[string]shape.Type{
		"circle": shape.Field("r", shape.Float),
		"rect":   shape.And(shape.Field("w", shape.Float), shape.Field("h", shape.Float)),
	})
)

func TestRules(t *testing.T) {
	tests := []struct {
		name string
		typ  shape.Type
		rule shape.Rule
		want shape.Type
		in   interface{}
		out  interface{}
	}{
		{"rename", rec, fix.RenameField("x", "y"),
			shape.And(shape.Field("y", shape.Int), shape.Field("z", shape.String)),
			m{"x": int64(5), "z": "a"}, m{"y": int64(5), "z": "a"},
		},
		{"rename opt", shape.OptField("x", shape.Int), fix.RenameField("x", "y"),
			shape.OptField("y", shape.Int),
			m{"x": int64(5)}, m{"y": int64(5)},
		},
		{"rename named", shape.NamedField("x", shape.Int), fix.RenameField("x", "y"),
			shape.NamedField("y", shape.Int),
			m{"x": int64(5)}, m{"y": int64(5)},
		},
		{"rename tag", choice, fix.RenameTag("kind", "circle", "round"),
			shape.TaggedChoice("kind", map[string]shape.Type{
				"round": shape.Field("r", shape.Float),
				"rect":  shape.And(shape.Field("w", shape.Float), shape.Field("h", shape.Float)),
			}),
			m{"kind": "circle", "r": 1.5}, m{"kind": "round", "r": 1.5},
		},
		{"add", rec, fix.AddField("x", "y", shape.Bool, true),
			shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.Bool), shape.Field("z", shape.String)),
			m{"x": int64(5), "z": "a"}, m{"x": int64(5), "y": true, "z": "a"},
		},
		{"add last", rec, fix.AddField("z", "w", shape.List(shape.Int), nil),
			shape.And(shape.Field("x", shape.Int), shape.Field("z", shape.String),
				shape.Field("w", shape.List(shape.Int))),
			m{"x": int64(5), "z": "a"}, m{"x": int64(5), "z": "a", "w": []interface{}{}},
		},
		{"drop", rec, fix.DropField("z"), shape.Field("x", shape.Int),
			m{"x": int64(5), "z": "a"}, m{"x": int64(5)},
		},
		{"drop first", shape.And(shape.Field("x", shape.Int), shape.Remainder), fix.DropField("x"),
			shape.Remainder,
			m{"x": int64(5), "q": "a"}, m{"q": "a"},
		},
		{"convert in field", shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.Int)),
			fix.InField("x", fix.Convert(shape.Int, shape.String, itoa)),
			shape.And(shape.Field("x", shape.String), shape.Field("y", shape.Int)),
			m{"x": int64(1), "y": int64(2)}, m{"x": "1", "y": int64(2)},
		},
		{"in choice", choice, fix.InChoice("rect", fix.DropField("h")),
			shape.TaggedChoice("kind", map[string]shape.Type{
				"circle": shape.Field("r", shape.Float),
				"rect":   shape.Field("w", shape.Float),
			}),
			m{"kind": "rect", "w": 1.0, "h": 2.0}, m{"kind": "rect", "w": 1.0},
		},
		{"named", shape.Named("n", rec), fix.Named("n", fix.RenameField("z", "q")),
			shape.Named("n", shape.And(shape.Field("x", shape.Int), shape.Field("q", shape.String))),
			m{"x": int64(5), "z": "a"}, m{"x": int64(5), "q": "a"},
		},
		{"seq", rec, shape.Seq(fix.RenameField("x", "y"), fix.DropField("z")),
			shape.Field("y", shape.Int),
			m{"x": int64(5), "z": "a"}, m{"y": int64(5)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := shape.RewriteAll(test.typ, test.rule, true, true)
			require.NoError(t, err)
			require.False(t, res.IsNop())
			assert.True(t, res.New == test.want, "want %s got %s", test.want, res.New)
			out, err := res.Convert(tree.Native, test.in)
			require.NoError(t, err)
			if diff := cmp.Diff(test.out, out); diff != "" {
				t.Errorf("convert (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopedOne(t *testing.T) {
	typ := shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.Int))
	res, err := shape.RewriteOne(typ, fix.InField("y", fix.Convert(shape.Int, shape.String, itoa)))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.New == shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.String)))

	_, err = fix.InField("q", fix.DropField("a")).Rewrite(typ, nil)
	assert.True(t, errors.Is(err, shape.ErrFieldNotFound), "got %v", err)
	res, err = shape.RewriteOne(typ, fix.InField("q", fix.DropField("a")))
	assert.NoError(t, err)
	assert.Nil(t, res, "missing field means the rule does not apply")

	_, err = fix.InChoice("nope", fix.DropField("a")).Rewrite(choice, nil)
	assert.True(t, errors.Is(err, shape.ErrNotFound), "got %v", err)
	_, err = fix.Named("nope", fix.DropField("a")).Rewrite(typ, nil)
	assert.True(t, errors.Is(err, shape.ErrNotFound), "got %v", err)
}

func TestRuleErrors(t *testing.T) {
	_, err := shape.RewriteAll(choice, fix.RenameTag("kind", "circle", "rect"), true, true)
	assert.True(t, errors.Is(err, shape.ErrShapeMismatch), "got %v", err)
	_, err = shape.RewriteAll(rec, fix.AddField("x", "y", shape.Int, nil), true, true)
	assert.True(t, errors.Is(err, shape.ErrShapeMismatch), "got %v", err)
}

func TestRecursiveRename(t *testing.T) {
	fam := shape.NewRecursiveFamily("dir", shape.AndT(
		shape.FieldT("title", shape.Const(shape.String)),
		shape.OptFieldT("sub", shape.CompoundListT(shape.ID(0))),
	))
	res, err := shape.RewriteAll(fam.At(0), fix.RenameField("title", "name"), true, true)
	require.NoError(t, err)
	in := m{"title": "root", "sub": m{"a": m{"title": "a", "sub": m{"b": m{"title": "b"}}}}}
	out, err := res.Convert(tree.Native, in)
	require.NoError(t, err)
	want := m{"name": "root", "sub": m{"a": m{"name": "a", "sub": m{"b": m{"name": "b"}}}}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("convert (-want +got):\n%s", diff)
	}
}

func TestScopedRecursive(t *testing.T) {
	node := shape.NewRecursiveFamily("node", shape.AndT(
		shape.FieldT("x", shape.Const(shape.Int)),
		shape.OptFieldT("kids", shape.ListT(shape.ID(0))),
	))
	// the kids of a node are nodes themselves, so the family under rewrite is a leaf
	res, err := shape.RewriteAll(node.At(0), fix.InField("kids", fix.RenameField("x", "y")), true, true)
	require.NoError(t, err)
	assert.True(t, res.IsNop(), "got %s", res)

	// a field holding nodes of a finished family is rewritten through the family
	typ := shape.And(shape.Field("x", shape.Int), shape.Field("items", shape.List(node.At(0))))
	res, err = shape.RewriteAll(typ, fix.InField("items", fix.RenameField("x", "y")), true, true)
	require.NoError(t, err)
	require.False(t, res.IsNop())
	in := m{"x": int64(1), "items": []interface{}{
		m{"x": int64(2), "kids": []interface{}{m{"x": int64(3)}}},
	}}
	out, err := res.Convert(tree.Native, in)
	require.NoError(t, err)
	want := m{"x": int64(1), "items": []interface{}{
		m{"y": int64(2), "kids": []interface{}{m{"y": int64(3)}}},
	}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("convert (-want +got):\n%s", diff)
	}
}

func TestRecursiveRenameOnce(t *testing.T) {
	fam := shape.NewRecursiveFamily("node", shape.AndT(
		shape.FieldT("x", shape.Const(shape.Int)),
		shape.OptFieldT("next", shape.ID(0)),
	))
	rename := fix.RenameField("x", "y")
	roots := 0
	count := shape.RuleFunc(func(t shape.Type, p *shape.Pass) (*shape.Result, error) {
		if _, _, ok := p.Def(); ok {
			roots++
		}
		return rename.Rewrite(t, p)
	})
	res, err := shape.RewriteAll(fam.At(0), count, true, true)
	require.NoError(t, err)
	require.False(t, res.IsNop())
	assert.Equal(t, 1, roots, "rule calls at the family root")
	out, err := res.Convert(tree.Native, m{"x": int64(1), "next": m{"x": int64(2)}})
	require.NoError(t, err)
	assert.Equal(t, m{"y": int64(1), "next": m{"y": int64(2)}}, out)

	roots = 0
	res, err = shape.RewriteAll(fam.At(0), shape.Seq(count, fix.RenameField("q", "r")), true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, roots)
	require.False(t, res.IsNop())
}
