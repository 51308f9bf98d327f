package tree_test

import (
	"math"
	"testing"

	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOps(t *testing.T) {
	for name, ops := range map[string]tree.Ops{"native": tree.Native, "yaml": tree.YAML} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, ops.IsEmpty(ops.Empty()))
			assert.True(t, ops.IsEmpty(ops.EmptyMap()))
			assert.False(t, ops.IsEmpty(ops.EmptyList()))

			b, ok := ops.Bool(ops.CreateBool(true))
			assert.True(t, ok && b)
			i, ok := ops.Int(ops.CreateInt(-4))
			assert.True(t, ok)
			assert.Equal(t, int64(-4), i)
			f, ok := ops.Float(ops.CreateFloat(1.5))
			assert.True(t, ok)
			assert.Equal(t, 1.5, f)
			f, ok = ops.Float(ops.CreateInt(2))
			assert.True(t, ok, "ints read as floats")
			assert.Equal(t, 2.0, f)
			s, ok := ops.String(ops.CreateString("a"))
			assert.True(t, ok)
			assert.Equal(t, "a", s)
			_, ok = ops.Int(ops.CreateString("1"))
			assert.False(t, ok)

			l, ok := ops.List(ops.CreateList([]interface{}{ops.CreateInt(1), ops.CreateInt(2)}))
			require.True(t, ok)
			require.Len(t, l, 2)
			i, _ = ops.Int(l[1])
			assert.Equal(t, int64(2), i)

			m := ops.CreateMap([]tree.Entry{
				{Key: "a", Val: ops.CreateInt(1)},
				{Key: "b", Val: ops.CreateString("x")},
			})
			v, ok := ops.Get(m, "b")
			require.True(t, ok)
			s, _ = ops.String(v)
			assert.Equal(t, "x", s)
			_, ok = ops.Get(m, "c")
			assert.False(t, ok)

			r := ops.Remove(m, "a")
			_, ok = ops.Get(r, "a")
			assert.False(t, ok)
			_, ok = ops.Get(m, "a")
			assert.True(t, ok, "remove must not modify the input")

			mk, err := ops.MergeKey(ops.Empty(), "k", ops.CreateBool(false))
			require.NoError(t, err)
			es, ok := ops.Map(mk)
			require.True(t, ok)
			assert.Len(t, es, 1)
			_, err = ops.MergeKey(ops.CreateInt(1), "k", ops.CreateInt(1))
			assert.True(t, errors.Is(err, tree.ErrNotMap), "got %v", err)

			mm, err := ops.MergeMaps(m, mk)
			require.NoError(t, err)
			es, _ = ops.Map(mm)
			assert.Len(t, es, 3)
			_, ok = ops.Get(m, "k")
			assert.False(t, ok, "merge must not modify the input")

			_, err = tree.MergePrim(ops, m, ops.CreateInt(1))
			assert.True(t, errors.Is(err, tree.ErrNotEmpty), "got %v", err)
			p, err := tree.MergePrim(ops, ops.EmptyMap(), ops.CreateInt(1))
			require.NoError(t, err)
			i, _ = ops.Int(p)
			assert.Equal(t, int64(1), i)
		})
	}
}

func TestNativeInt(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int64
		ok   bool
	}{
		{int64(3), 3, true},
		{3, 3, true},
		{float64(3), 3, true},
		{3.5, 0, false},
		{"3", 0, false},
		{1e20, 0, false},
		{-1e20, 0, false},
		{float64(1 << 63), 0, false},
		{-float64(1 << 63), -1 << 63, true},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
	}
	for _, test := range tests {
		got, ok := tree.Native.Int(test.in)
		if ok != test.ok || got != test.want {
			t.Errorf("int %v want %d %v got %d %v", test.in, test.want, test.ok, got, ok)
		}
	}
}

func TestYAMLOrder(t *testing.T) {
	var doc yaml.Node
	err := yaml.Unmarshal([]byte("z: 1\na: two\nm: 3\n"), &doc)
	require.NoError(t, err)
	res := tree.YAML.Remove(&doc, "a")
	res, err = tree.YAML.MergeKey(res, "b", tree.YAML.CreateBool(true))
	require.NoError(t, err)
	res, err = tree.YAML.MergeKey(res, "z", tree.YAML.CreateInt(5))
	require.NoError(t, err)
	es, ok := tree.YAML.Map(res)
	require.True(t, ok)
	keys := make([]string, 0, len(es))
	for _, e := range es {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"z", "m", "b"}, keys)
	out, err := yaml.Marshal(res)
	require.NoError(t, err)
	assert.Equal(t, "z: 5\nm: 3\nb: true\n", string(out))
}
