package mig

import (
	"bytes"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mb0/dafix/shape"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestUpdate(t *testing.T) {
	h := testHistory(t)
	d1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 1, 0)
	s1, _ := h.Schema(1)
	mf := Manifest{}.Update(s1, d1)
	require.Len(t, mf, 3)
	names := []string{mf[0].Name, mf[1].Name, mf[2].Name}
	assert.Equal(t, []string{"shop", "shop.item", "shop.order"}, names)
	for _, v := range mf {
		assert.Equal(t, int64(1), v.Vers)
		assert.Equal(t, d1, v.Date)
		assert.Len(t, v.Hash, 64)
	}
	assert.Equal(t, mf, mf.Update(s1, d2), "unchanged schema keeps the manifest")

	s3, _ := h.Schema(3)
	mf3 := mf.Update(s3, d2)
	require.Len(t, mf3, 4)
	assert.Equal(t, Version{"shop", 3, d2, mf3[0].Hash}, mf3[0])
	item, _ := mf3.Get("shop.item")
	assert.Equal(t, int64(3), item.Vers, "item changed since version 1")
	note, _ := mf3.Get("shop.note")
	assert.Equal(t, d2, note.Date)

	s2, _ := h.Schema(2)
	mf2 := mf.Update(s2, d2)
	order, _ := mf2.Get("shop.order")
	assert.Equal(t, int64(1), order.Vers, "order definition is unchanged")
	assert.Equal(t, d1, order.Date)

	var buf bytes.Buffer
	_, err := mf3.WriteTo(&buf)
	require.NoError(t, err)
	got, err := ReadManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, mf3, got)
}

func TestManifestSet(t *testing.T) {
	var mf Manifest
	for _, name := range []string{"p.b", "p", "p.c", "p.a", "p.b"} {
		mf = mf.Set(Version{Name: name, Vers: 1})
	}
	require.Len(t, mf, 4)
	for i, name := range []string{"p", "p.a", "p.b", "p.c"} {
		assert.Equal(t, name, mf[i].Name)
	}
	_, ok := mf.Get("p.d")
	assert.False(t, ok)
	assert.Equal(t, "p", mf.First().Name)
	assert.Equal(t, Version{}, Manifest{}.First())
}

func TestManifestCheck(t *testing.T) {
	rec := func(name string) shape.Template {
		return shape.FieldT(name, shape.Const(shape.Int))
	}
	v1, err := NewSchema("p", 1, Def{"a", rec("x")}, Def{"b", rec("y")})
	require.NoError(t, err)
	mf := Manifest{}.Update(v1, time.Time{})
	assert.NoError(t, mf.Check(v1))

	drift, err := NewSchema("p", 1, Def{"a", rec("z")}, Def{"b", rec("y")}, Def{"c", rec("y")})
	require.NoError(t, err)
	err = mf.Check(drift)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "got %v", err)
	require.Len(t, merr.Errors, 2)
	assert.True(t, errors.Is(merr.Errors[0], ErrDrift))
	assert.Contains(t, merr.Errors[0].Error(), "p.a changed")
	assert.Contains(t, merr.Errors[1].Error(), "p.c added")

	v2, err := NewSchema("p", 2, Def{"a", rec("z")}, Def{"b", rec("y")})
	require.NoError(t, err)
	assert.NoError(t, mf.Check(v2), "older manifests pass")
	mf2 := mf.Update(v2, time.Time{})
	assert.True(t, errors.Is(mf2.Check(v1), ErrVersion))
}
