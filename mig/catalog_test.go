package mig

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mb0/dafix/shape"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopV1 = `
project: shop
schemas:
- vers: 1
  types:
  - name: item
    type:
      record:
        id: int
        label: str
        price: int
        parts?: {list: "@item"}
  - name: order
    type:
      record:
        no: int
        items: {list: "@item"}
`

const shopV2 = `
- vers: 2
  types:
  - name: item
    type:
      record:
        id: int
        title: str
        price: float
        parts?: {list: "@item"}
- vers: 3
  types:
  - name: order
    type:
      record:
        no: int
        paid: bool
        items: {list: "@item"}
  - name: note
    type:
      record:
        text: str
fixes:
- {vers: 2, type: item, name: title, rename: {from: label, to: title}}
- {vers: 2, type: item, field: price, convert: int_to_float}
- vers: 3
  type: order
  add: {after: no, name: paid, type: bool, value: false}
`

func testCatalog(t *testing.T) *Catalog {
	c, err := ReadCatalog(strings.NewReader(shopV1 + shopV2))
	require.NoError(t, err)
	return c
}

func testHistory(t *testing.T) *History {
	h, err := testCatalog(t).History(context.Background())
	require.NoError(t, err)
	return h
}

func TestReadCatalog(t *testing.T) {
	c := testCatalog(t)
	assert.Equal(t, "shop", c.Project)
	require.Len(t, c.Schemas, 3)
	require.Len(t, c.Fixes, 3)
	assert.Equal(t, []string{"item", "order"}, c.Schemas[1].Names, "order is carried over")
	assert.Equal(t, []string{"item", "order", "note"}, c.Schemas[2].Names)
	assert.Equal(t, "title", c.Fixes[0].String())
	assert.Equal(t, "fix item@2", c.Fixes[1].String())

	order, err := c.Schemas[0].Type("order")
	require.NoError(t, err)
	item := c.Schemas[0].Family.At(0)
	want := shape.And(shape.Field("no", shape.Int), shape.Field("items", shape.List(item)))
	assert.True(t, shape.Equal(order.(*shape.PointType).Unfold(), want, false, true),
		"got %s", order.(*shape.PointType).Unfold())
	_, err = c.Schemas[0].Type("note")
	assert.True(t, errors.Is(err, ErrUnknownType), "got %v", err)
}

func TestCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no project", "schemas: []", "without project"},
		{"unknown key", "project: p\nfoo: 1", "foo"},
		{"unknown type", `
project: p
schemas:
- vers: 1
  types: [{name: a, type: {record: {x: number}}}]`, `unknown type "number"`},
		{"unknown ref", `
project: p
schemas:
- vers: 1
  types: [{name: a, type: {list: "@b"}}]`, "@b"},
		{"two ops", `
project: p
schemas:
- vers: 1
  types: [{name: a, type: {record: {x: int}}}]
- vers: 2
  types: [{name: a, type: {record: {y: int}}}]
fixes:
- {vers: 2, type: a, drop: x, rename: {from: x, to: y}}`, "exactly one operation"},
		{"unknown conversion", `
project: p
schemas:
- vers: 1
  types: [{name: a, type: int}]
- vers: 2
fixes:
- {vers: 2, type: a, convert: int_to_date}`, "unknown conversion"},
		{"includes", "project: p\ninclude: [x.yaml]", "ResolveCatalog"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ReadCatalog(strings.NewReader(test.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.want)
		})
	}
}

func TestParseType(t *testing.T) {
	c, err := ReadCatalog(strings.NewReader(`
project: p
schemas:
- vers: 1
  types:
  - name: shape
    type:
      choice:
        key: kind
        cases:
          circle: {record: {r: float}}
          dot: unit
  - name: tagged
    type: {named: {ref: {or: [int, str]}}}
  - name: dict
    type: {map: "@shape"}
`))
	require.NoError(t, err)
	s := c.Schemas[0]
	want := []shape.Type{
		shape.TaggedChoice("kind", map[string]shape.Type{
			"circle": shape.Field("r", shape.Float),
			"dot":    shape.Unit,
		}),
		shape.Named("ref", shape.Or(shape.Int, shape.String)),
		shape.CompoundList(s.Family.At(0)),
	}
	for i, w := range want {
		assert.True(t, shape.Equal(s.Family.Unfold(i), w, false, true),
			"%s want %s got %s", s.Names[i], w, s.Family.Unfold(i))
	}
}

func TestResolveCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.yaml"), []byte(shopV1), 0644))
	main := "project: shop\ninclude: [v1.yaml]\nschemas:" + shopV2
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.yaml"), []byte(main), 0644))
	c, err := ResolveCatalog(filepath.Join(dir, "shop.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Schemas, 3)
	assert.Len(t, c.Fixes, 3)

	// both a and b include v1, that is merged once
	for _, name := range []string{"a.yaml", "b.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name),
			[]byte("project: shop\ninclude: [v1.yaml]\n"), 0644))
	}
	diamond := "project: shop\ninclude: [a.yaml, b.yaml]\nschemas:" + shopV2
	require.NoError(t, os.WriteFile(filepath.Join(dir, "diamond.yaml"), []byte(diamond), 0644))
	c, err = ResolveCatalog(filepath.Join(dir, "diamond.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Schemas, 3)
	assert.Len(t, c.Fixes, 3)
	_, err = c.History(context.Background())
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "loop.yaml"),
		[]byte("project: shop\ninclude: [loop.yaml]"), 0644))
	_, err = ResolveCatalog(filepath.Join(dir, "loop.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
