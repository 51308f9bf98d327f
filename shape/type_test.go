package shape_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/shape"
	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type m = map[string]interface{}

func TestNamedField(t *testing.T) {
	typ := shape.NamedField("x", shape.Int)
	rest, v, ok := typ.Read(tree.Native, m{"x": 5})
	require.True(t, ok)
	assert.Equal(t, m{}, rest)
	assert.Equal(t, val.P("x", int64(5)), v)
	out, err := typ.Write(tree.Native, tree.Native.Empty(), val.P("x", int64(5)))
	require.NoError(t, err)
	assert.Equal(t, m{"x": int64(5)}, out)
	_, err = typ.Write(tree.Native, tree.Native.Empty(), val.P("y", int64(5)))
	assert.True(t, errors.Is(err, shape.ErrShapeMismatch), "got %v", err)

	// a plain named type reads its element only
	named := shape.Named("x", shape.Int)
	_, _, ok = named.Read(tree.Native, m{"x": 5})
	assert.False(t, ok)
	_, v, ok = named.Read(tree.Native, int64(5))
	require.True(t, ok)
	assert.Equal(t, val.P("x", int64(5)), v)
}

func TestNamedFieldName(t *testing.T) {
	typ := shape.NamedField("x", shape.String)
	vals := []interface{}{"", "a", int64(1), nil, val.Unit{}}
	for _, v := range vals {
		_, err := typ.Write(tree.Native, nil, val.P("y", v))
		if !errors.Is(err, shape.ErrShapeMismatch) {
			t.Errorf("write %v want shape mismatch got %v", v, err)
		}
	}
}

func TestReadWrite(t *testing.T) {
	shapeT := shape.TaggedChoice("kind", map[string]shape.Type{
		"circle": shape.Field("r", shape.Float),
		"rect":   shape.And(shape.Field("w", shape.Float), shape.Field("h", shape.Float)),
	})
	tests := []struct {
		name string
		typ  shape.Type
		in   interface{}
		want interface{}
		rest interface{}
	}{
		{"int", shape.Int, int64(3), int64(3), nil},
		{"str", shape.String, "a", "a", nil},
		{"unit", shape.Unit, m{"a": 1}, val.Unit{}, m{"a": 1}},
		{"record", shape.And(shape.Field("x", shape.Int), shape.Field("z", shape.String)),
			m{"x": int64(5), "z": "a"}, val.P(int64(5), "a"), m{}},
		{"rest", shape.And(shape.Field("x", shape.Int), shape.Remainder),
			m{"x": int64(5), "q": true}, val.P(int64(5), m{"q": true}), nil},
		{"opt none", shape.And(shape.OptField("x", shape.Int), shape.Field("z", shape.Bool)),
			m{"z": true}, val.P(val.None(), true), m{}},
		{"opt some", shape.OptField("x", shape.Int),
			m{"x": int64(2)}, val.Some(int64(2)), m{}},
		{"or", shape.Or(shape.Int, shape.String), "s", val.Right("s"), nil},
		{"list", shape.List(shape.Int),
			[]interface{}{int64(1), int64(2)}, []interface{}{int64(1), int64(2)}, nil},
		{"map", shape.CompoundList(shape.Bool), m{"a": true, "b": false},
			[]interface{}{val.P("a", true), val.P("b", false)}, nil},
		{"choice", shapeT, m{"kind": "circle", "r": 1.5},
			val.P("circle", 1.5), m{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rest, v, ok := test.typ.Read(tree.Native, test.in)
			require.True(t, ok, "read %v", test.in)
			if diff := cmp.Diff(test.want, v); diff != "" {
				t.Errorf("read value (-want +got):\n%s", diff)
			}
			if !tree.Native.IsEmpty(test.rest) || !tree.Native.IsEmpty(rest) {
				assert.Equal(t, test.rest, rest)
			}
			out, err := test.typ.Write(tree.Native, rest, v)
			require.NoError(t, err)
			if diff := cmp.Diff(test.in, out); diff != "" {
				t.Errorf("write (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadMissing(t *testing.T) {
	tests := []struct {
		typ shape.Type
		in  interface{}
	}{
		{shape.Int, "a"},
		{shape.Field("x", shape.Int), m{"y": int64(1)}},
		{shape.Field("x", shape.Int), m{"x": "a"}},
		{shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.Int)), m{"x": int64(1)}},
		{shape.List(shape.Int), []interface{}{int64(1), "a"}},
		{shape.TaggedChoice("k", map[string]shape.Type{"a": shape.Unit}), m{"k": "b"}},
	}
	for _, test := range tests {
		rest, _, ok := test.typ.Read(tree.Native, test.in)
		if ok {
			t.Errorf("read %s from %v want missing", test.typ, test.in)
		}
		if diff := cmp.Diff(test.in, rest); diff != "" {
			t.Errorf("missing read changed input (-want +got):\n%s", diff)
		}
	}
}

func TestWriteMismatchPath(t *testing.T) {
	typ := shape.Field("x", shape.NamedField("y", shape.Int))
	_, err := typ.Write(tree.Native, nil, val.P("y", "a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, shape.ErrShapeMismatch))
	assert.Contains(t, err.Error(), "field x: named y: field y")
}

func TestWriteEmptyRecord(t *testing.T) {
	opts := shape.And(shape.OptField("b", shape.Int), shape.OptField("c", shape.String))
	typ := shape.And(shape.Field("a", opts), shape.Field("l", shape.List(opts)))
	in := m{"a": m{}, "l": []interface{}{m{}, m{"b": int64(1)}}}
	rest, v, ok := typ.Read(tree.Native, in)
	require.True(t, ok)
	assert.True(t, tree.Native.IsEmpty(rest))
	out, err := typ.Write(tree.Native, nil, v)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	y := &yaml.Node{}
	require.NoError(t, yaml.Unmarshal([]byte("a: {}\nl: [{}]\n"), y))
	_, v, ok = typ.Read(tree.YAML, y.Content[0])
	require.True(t, ok)
	yout, err := typ.Write(tree.YAML, nil, v)
	require.NoError(t, err)
	a, ok := tree.YAML.Get(yout, "a")
	require.True(t, ok)
	_, isMap := tree.YAML.Map(a)
	assert.True(t, isMap, "empty record is written as map")
}

func TestPointRoundTrip(t *testing.T) {
	node := shape.NewRecursiveFamily("node", shape.AndT(
		shape.OptFieldT("val", shape.Const(shape.Int)),
		shape.OptFieldT("next", shape.ID(0)),
	))
	tests := []shape.Type{
		shape.Unit,
		shape.Remainder,
		shape.OptField("x", shape.Int),
		shape.And(shape.OptField("a", shape.String), shape.List(shape.Int)),
		shape.And(shape.OptField("a", shape.Int), shape.Unit),
		shape.Named("n", shape.CompoundList(shape.Int)),
		shape.Or(shape.Int, shape.Unit),
		node.At(0),
	}
	for _, ops := range []tree.Ops{tree.Native, tree.YAML} {
		for _, typ := range tests {
			v, ok := shape.Point(typ, ops)
			if !ok {
				t.Errorf("%s has no point", typ)
				continue
			}
			out, err := typ.Write(ops, ops.Empty(), v)
			if err != nil {
				t.Errorf("write point %s: %v", typ, err)
				continue
			}
			rest, got, ok := typ.Read(ops, out)
			if !ok {
				t.Errorf("read point %s from %v failed", typ, out)
				continue
			}
			if !ops.IsEmpty(rest) {
				t.Errorf("read point %s left rest %v", typ, rest)
			}
			if _, isRest := typ.(*shape.RemainderType); isRest {
				continue
			}
			if diff := cmp.Diff(v, got); diff != "" {
				t.Errorf("point %s round trip (-want +got):\n%s", typ, diff)
			}
		}
	}
	for _, typ := range []shape.Type{shape.Int, shape.Field("x", shape.Bool)} {
		if _, ok := shape.Point(typ, tree.Native); ok {
			t.Errorf("%s want no point", typ)
		}
	}
}

func TestIntern(t *testing.T) {
	a := shape.And(shape.Field("x", shape.Int), shape.Field("z", shape.String))
	b := shape.And(shape.Field("x", shape.Int), shape.Field("z", shape.String))
	assert.True(t, a == b, "equal shapes must be interned")
	assert.Equal(t, a.Hash(), b.Hash())
	c := shape.And(shape.Field("x", shape.Int), shape.Field("y", shape.String))
	assert.False(t, a == c)
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Equal(t, "and(field(x: int), field(z: str))", a.String())
}

func nodeTpl() shape.Template {
	return shape.AndT(
		shape.FieldT("val", shape.Const(shape.Int)),
		shape.OptFieldT("next", shape.ID(0)),
	)
}

func TestRecursiveFamily(t *testing.T) {
	a := shape.NewRecursiveFamily("node", nodeTpl())
	b := shape.NewRecursiveFamily("node", nodeTpl())
	require.Equal(t, 1, a.Size())
	pa, pb := a.At(0), b.At(0)
	assert.True(t, shape.Equal(pa, pb, true, true), "fixed points must be equal ignoring points")
	assert.False(t, shape.Equal(pa, pb, false, true), "points of different families")
	assert.True(t, a.At(0) == pa, "points are stable")
	assert.True(t, a.Unfold(0) == a.Unfold(0), "unfolded type is stable")
	assert.Equal(t, "@node.0", pa.String())

	in := m{"val": int64(1), "next": m{"val": int64(2), "next": m{"val": int64(3)}}}
	rest, v, ok := pa.Read(tree.Native, in)
	require.True(t, ok)
	assert.True(t, tree.Native.IsEmpty(rest))
	want := val.P(int64(1), val.Some(val.P(int64(2), val.Some(val.P(int64(3), val.None())))))
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("read (-want +got):\n%s", diff)
	}
	out, err := pa.Write(tree.Native, nil, v)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEqualIndex(t *testing.T) {
	f := shape.NewRecursiveFamily("pair", shape.Select(
		shape.AndT(shape.FieldT("a", shape.Const(shape.Int)), shape.OptFieldT("b", shape.ID(1))),
		shape.AndT(shape.FieldT("a", shape.Const(shape.Int)), shape.OptFieldT("b", shape.ID(0))),
	))
	require.Equal(t, 2, f.Size())
	x, y := f.At(0), f.At(1)
	assert.False(t, shape.Equal(x, y, false, true))
	assert.True(t, shape.Equal(x, y, false, false))
	assert.True(t, shape.Equal(x, y, true, false))
	assert.False(t, shape.Equal(x, y, true, true))
	assert.True(t, x.Equal(x, true, true))
}

func TestUpdateMu(t *testing.T) {
	f1 := shape.NewRecursiveFamily("node", nodeTpl())
	f2 := shape.NewRecursiveFamily("node", nodeTpl())
	other := shape.NewRecursiveFamily("other", nodeTpl())
	plain := shape.Field("a", shape.Int)
	typ := shape.And(plain, shape.Field("b", shape.List(f1.At(0))), shape.Field("c", other.At(0)))
	got := shape.UpdateMu(typ, f2)
	require.False(t, got == typ)
	kids := shape.Children(got)
	assert.True(t, kids[0] == plain, "untouched nodes are shared")
	rest := shape.Children(kids[1])
	assert.True(t, shape.Children(shape.Children(rest[0])[0])[0] == f2.At(0))
	orig := shape.Children(shape.Children(typ)[1])
	assert.True(t, rest[1] == orig[1])
	assert.True(t, shape.UpdateMu(plain, f2) == plain)
}

func TestRealize(t *testing.T) {
	f := shape.Types(shape.Int, shape.String, shape.List(shape.Bool))
	ts, err := shape.Realize(context.Background(), f, 3)
	require.NoError(t, err)
	assert.Equal(t, []shape.Type{shape.Int, shape.String, shape.List(shape.Bool)}, ts)
	_, err = shape.Realize(context.Background(), f, 4)
	assert.True(t, shape.IsNotFound(err), "got %v", err)
}

func TestTemplateApplyO(t *testing.T) {
	f := shape.NewRecursiveFamily("ints", shape.ListT(shape.Const(shape.Int)))
	tpl := shape.AndT(shape.FieldT("n", shape.ID(0)), shape.ListT(shape.ID(0)))
	double := func(int) optic.Optic {
		return optic.Conv("double", func(v interface{}) (interface{}, error) {
			return v.(int64) * 2, nil
		})
	}
	o := tpl.ApplyO(f, double)(0)
	got, err := optic.Apply(o, val.P(int64(1), []interface{}{int64(2), int64(3)}))
	require.NoError(t, err)
	assert.Equal(t, val.P(int64(2), []interface{}{int64(4), int64(6)}), got)
	assert.Equal(t, 1, tpl.Size())
	assert.True(t, optic.IsID(shape.Const(shape.Int).ApplyO(f, double)(0)))
}

func TestTemplateOf(t *testing.T) {
	f := shape.NewRecursiveFamily("node", nodeTpl())
	tpl := shape.TemplateOf(f.Unfold(0))
	g := shape.NewRecursiveFamily("node", tpl)
	assert.True(t, shape.Equal(f.At(0), g.At(0), true, true))
	assert.Equal(t, 1, tpl.Size())
}
