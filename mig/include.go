package mig

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ResolveCatalog returns the catalog read from the file at path or an error.
//
// This function will resolve catalog includes relative to the directory of the including file.
// Included catalogs must have the same project name. Their schemas and fixes precede those of the
// including file, so older versions can be kept in separate files. A file included more than once
// is merged at its first include, include cycles are reported as error.
func ResolveCatalog(path string) (*Catalog, error) {
	r := &resolver{active: make(map[string]bool), merged: make(map[string]bool)}
	cf, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return cf.build()
}

// resolver tracks the files on the current include chain and the files already merged.
type resolver struct {
	active map[string]bool
	merged map[string]bool
}

func (r *resolver) resolve(path string) (*catalogFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if r.active[abs] {
		return nil, errors.Errorf("include cycle at %s", path)
	}
	r.active[abs] = true
	defer delete(r.active, abs)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open catalog file %s", path)
	}
	defer f.Close()
	cf, err := decodeCatalog(f)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog file %s", path)
	}
	r.merged[abs] = true
	if len(cf.Include) == 0 {
		return cf, nil
	}
	dir := filepath.Dir(path)
	res := &catalogFile{Project: cf.Project}
	for _, inc := range cf.Include {
		ipath := filepath.FromSlash(inc)
		if !filepath.IsAbs(ipath) {
			ipath = filepath.Join(dir, ipath)
		}
		iabs, err := filepath.Abs(ipath)
		if err != nil {
			return nil, err
		}
		if r.merged[iabs] && !r.active[iabs] {
			continue
		}
		icf, err := r.resolve(ipath)
		if err != nil {
			return nil, errors.Wrapf(err, "include %s", inc)
		}
		if icf.Project != cf.Project {
			return nil, errors.Errorf("include %s has project %s, expect %s",
				inc, icf.Project, cf.Project)
		}
		res.Schemas = append(res.Schemas, icf.Schemas...)
		res.Fixes = append(res.Fixes, icf.Fixes...)
	}
	res.Schemas = append(res.Schemas, cf.Schemas...)
	res.Fixes = append(res.Fixes, cf.Fixes...)
	return res, nil
}
