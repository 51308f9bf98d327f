package mig

import (
	"fmt"

	"github.com/mb0/dafix/shape"
	"github.com/pkg/errors"
)

// ErrUnknownType is returned when a type name is not part of a schema.
var ErrUnknownType = errors.New("unknown type")

// Def is the definition of one named type. The template may refer to other types of the same
// schema version by index.
type Def struct {
	Name string
	Tpl  shape.Template
}

// Schema is one version of the named types of a project. All types form one recursive family,
// so they can refer to each other and to themselves.
type Schema struct {
	Project string
	Vers    int64
	Names   []string
	Family  *shape.RecursiveFamily
	idx     map[string]int
}

// NewSchema returns the schema version vers of project with the given type definitions.
func NewSchema(project string, vers int64, defs ...Def) (*Schema, error) {
	if len(defs) == 0 {
		return nil, errors.Errorf("schema %s %d without types", project, vers)
	}
	s := &Schema{Project: project, Vers: vers, idx: make(map[string]int, len(defs))}
	tpls := make([]shape.Template, 0, len(defs))
	for i, d := range defs {
		if _, ok := s.idx[d.Name]; ok {
			return nil, errors.Errorf("schema %s %d: duplicate type %s", project, vers, d.Name)
		}
		if n := d.Tpl.Size(); n > len(defs) {
			return nil, errors.Errorf("schema %s %d: type %s refers to index %d",
				project, vers, d.Name, n-1)
		}
		s.idx[d.Name] = i
		s.Names = append(s.Names, d.Name)
		tpls = append(tpls, d.Tpl)
	}
	s.Family = shape.NewRecursiveFamily(project, shape.Select(tpls...))
	return s, nil
}

// Index returns the family index of the named type or false.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.idx[name]
	return i, ok
}

// Type returns the recursion point of the named type.
func (s *Schema) Type(name string) (shape.Type, error) {
	i, ok := s.idx[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%s in %s", name, s)
	}
	return s.Family.At(i), nil
}

// Qualified returns the name of a type qualified with the project name.
func (s *Schema) Qualified(name string) string { return fmt.Sprintf("%s.%s", s.Project, name) }

func (s *Schema) String() string { return fmt.Sprintf("%s@%d", s.Project, s.Vers) }
