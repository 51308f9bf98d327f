package mig

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Manifest is a set of versions sorted by name, usually for one schema and its types.
// The schema entry sorts first, because type names are qualified with the project name.
type Manifest []Version

// ReadManifest returns a manifest read from r or an error.
// Manifests are a JSON stream of version objects. Entries without name and duplicate entries are
// reported as error.
func ReadManifest(r io.Reader) (Manifest, error) {
	var mf Manifest
	dec := json.NewDecoder(r)
	for {
		var v Version
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "manifest entry %d", len(mf))
		}
		if v.Name == "" {
			return nil, errors.Errorf("manifest entry %d without name", len(mf))
		}
		mf = append(mf, v)
	}
	mf.Sort()
	for i := 1; i < len(mf); i++ {
		if mf[i].Name == mf[i-1].Name {
			return nil, errors.Errorf("duplicate manifest entry %s", mf[i].Name)
		}
	}
	return mf, nil
}

// First returns the schema version or a zero version for empty manifests.
func (mf Manifest) First() Version {
	if len(mf) == 0 {
		return Version{}
	}
	return mf[0]
}

// WriteTo writes the manifest as JSON stream to w and returns the written bytes or an error.
func (mf Manifest) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	enc := json.NewEncoder(cw)
	for _, v := range mf {
		if err := enc.Encode(v); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// Get returns the version for the qualified name or false if no version was found.
func (mf Manifest) Get(name string) (Version, bool) {
	if i, ok := mf.find(name); ok {
		return mf[i], true
	}
	return Version{}, false
}

// Set inserts or replaces a version and returns the result.
func (mf Manifest) Set(v Version) Manifest {
	i, ok := mf.find(v.Name)
	if !ok {
		mf = append(mf, Version{})
		copy(mf[i+1:], mf[i:])
	}
	mf[i] = v
	return mf
}

// Update records the versions of schema s and returns the updated manifest.
// Changed entries are stamped with date.
func (mf Manifest) Update(s *Schema, date time.Time) Manifest {
	mv := NewVersioner(mf)
	mv.Version(s)
	res := mv.Manifest()
	for i, v := range res {
		if old, ok := mf.Get(v.Name); !ok || old.Hash != v.Hash {
			res[i].Date = date
		}
	}
	return res
}

// Sort sorts the manifest by name in place and returns it.
func (mf Manifest) Sort() Manifest {
	sort.Slice(mf, func(i, j int) bool { return mf[i].Name < mf[j].Name })
	return mf
}

func (mf Manifest) find(name string) (int, bool) {
	i := sort.Search(len(mf), func(i int) bool { return mf[i].Name >= name })
	return i, i < len(mf) && mf[i].Name == name
}
