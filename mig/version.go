package mig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ErrDrift is returned when a recorded hash does not match the schema of the same version.
var ErrDrift = errors.New("schema drift")

// Version contains the recorded details of a schema or one of its types.
//
// The name is the project name for schemas and the qualified type name for types. Vers is the
// schema version that last changed the node. The date is an optional recording time. The hash is
// a lowercase hex string of an sha256 hash of the name and the contents. For types the unfolded
// type string is used as content, for schemas each type hash.
type Version struct {
	Name string    `json:"name"`
	Vers int64     `json:"vers"`
	Date time.Time `json:"date,omitempty"`
	Hash string    `json:"hash"`
}

// ReadVersion returns a version read from r or and error.
func ReadVersion(r io.Reader) (v Version, err error) {
	err = json.NewDecoder(r).Decode(&v)
	return v, err
}

// WriteTo writes the version to w and returns the written bytes or an error.
func (v Version) WriteTo(w io.Writer) (int64, error) {
	var b bytes.Buffer
	err := json.NewEncoder(&b).Encode(v)
	if err != nil {
		return 0, err
	}
	return b.WriteTo(w)
}

// Versioner returns version details based on the last recorded manifest.
type Versioner struct {
	old Manifest
	cur Manifest
}

// NewVersioner returns a new versioner based on the given manifest.
func NewVersioner(mf Manifest) *Versioner {
	return &Versioner{old: mf}
}

// Manifest returns a fresh manifest with all versions returned so far.
func (mv *Versioner) Manifest() Manifest {
	res := make(Manifest, len(mv.cur))
	copy(res, mv.cur)
	return res.Sort()
}

// Version returns the version details of the schema and records them with each type version.
// The schema always has version s.Vers. Types keep their recorded version if the hash did not
// change.
func (mv *Versioner) Version(s *Schema) Version {
	h := sha256.New()
	h.Write([]byte(s.Project))
	for i, name := range s.Names {
		v := mv.version(s.Qualified(name), s.Vers, s.Family.Unfold(i).String())
		h.Write([]byte(v.Hash))
	}
	res := Version{Name: s.Project, Vers: s.Vers, Hash: hex.EncodeToString(h.Sum(nil))}
	if old, ok := mv.old.Get(res.Name); ok && old.Vers == res.Vers && old.Hash == res.Hash {
		res = old
	}
	mv.cur = mv.cur.Set(res)
	return res
}

func (mv *Versioner) version(name string, vers int64, content string) Version {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte(content))
	res := Version{Name: name, Vers: vers, Hash: hex.EncodeToString(h.Sum(nil))}
	if old, ok := mv.old.Get(name); ok && old.Hash == res.Hash {
		res = old
	}
	mv.cur = mv.cur.Set(res)
	return res
}

// Check compares the recorded manifest with schema s of the same version and returns an error for
// each type that changed without a new version. Manifests of older versions pass.
func (mf Manifest) Check(s *Schema) error {
	rec, ok := mf.Get(s.Project)
	if !ok || rec.Vers < s.Vers {
		return nil
	}
	if rec.Vers > s.Vers {
		return errors.Wrapf(ErrVersion, "manifest %s@%d is newer than %s", rec.Name, rec.Vers, s)
	}
	mv := NewVersioner(nil)
	cur := mv.Version(s)
	if cur.Hash == rec.Hash {
		return nil
	}
	var res *multierror.Error
	for _, v := range mv.Manifest()[1:] {
		old, ok := mf.Get(v.Name)
		if !ok {
			res = multierror.Append(res, errors.Wrapf(ErrDrift, "%s added in %s", v.Name, s))
		} else if old.Hash != v.Hash {
			res = multierror.Append(res, errors.Wrapf(ErrDrift, "%s changed in %s", v.Name, s))
		}
	}
	for _, old := range mf[1:] {
		if _, ok := mv.cur.Get(old.Name); !ok {
			res = multierror.Append(res, errors.Wrapf(ErrDrift, "%s removed in %s", old.Name, s))
		}
	}
	if res == nil {
		return errors.Wrapf(ErrDrift, "%s hash changed", s)
	}
	return res.ErrorOrNil()
}
