package mig

import (
	"context"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mb0/dafix/fix"
	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/shape"
	"github.com/mb0/dafix/tree"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Catalog is the parsed rule catalogue of one project.
type Catalog struct {
	Project string
	Schemas []*Schema
	Fixes   []Fix
}

// History returns the schema history of the catalog.
func (c *Catalog) History(ctx context.Context) (*History, error) {
	return NewHistory(ctx, c.Schemas, c.Fixes...)
}

// ReadCatalog returns the catalog read from the YAML document in r or an error.
//
// A catalog has a project name, a list of schema versions and a list of fixes. Each schema version
// lists its type definitions. Types not listed are carried over from the previous version and
// types added in later versions are appended:
//
//	project: shop
//	schemas:
//	- vers: 1
//	  types:
//	  - name: item
//	    type: {record: {id: int, label: str, parts?: {list: "@item"}}}
//	- vers: 2
//	  types:
//	  - name: item
//	    type: {record: {id: int, title: str, parts?: {list: "@item"}}}
//	fixes:
//	- {vers: 2, type: item, rename: {from: label, to: title}}
//
// Type expressions are either one of the names int, float, str, bool, unit and rest, a reference
// '@name' to a type of the same version, or a mapping with one of the keys record, list, map, or,
// named and choice. Record keys ending in '?' are optional fields and the key '...' keeps all
// remaining keys. Catalogs with includes must be read with ResolveCatalog.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	cf, err := decodeCatalog(r)
	if err != nil {
		return nil, err
	}
	if len(cf.Include) != 0 {
		return nil, errors.Errorf("catalog %s has includes, use ResolveCatalog", cf.Project)
	}
	return cf.build()
}

type catalogFile struct {
	Project string      `yaml:"project"`
	Include []string    `yaml:"include"`
	Schemas []schemaDef `yaml:"schemas"`
	Fixes   []fixDef    `yaml:"fixes"`
}

type schemaDef struct {
	Vers  int64     `yaml:"vers"`
	Types []typeDef `yaml:"types"`
}

type typeDef struct {
	Name string    `yaml:"name"`
	Type yaml.Node `yaml:"type"`
}

type fixDef struct {
	Vers  int64  `yaml:"vers"`
	Type  string `yaml:"type"`
	Name  string `yaml:"name"`
	opDef `yaml:",inline"`
}

// opDef is one fix operation with optional scopes.
type opDef struct {
	Field     string        `yaml:"field"`
	Choice    string        `yaml:"choice"`
	Named     string        `yaml:"named"`
	Rename    *renameDef    `yaml:"rename"`
	RenameTag *renameTagDef `yaml:"rename_tag"`
	Add       *addDef       `yaml:"add"`
	Drop      string        `yaml:"drop"`
	Convert   string        `yaml:"convert"`
	Seq       []opDef       `yaml:"seq"`
}

type renameDef struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type renameTagDef struct {
	Key  string `yaml:"key"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type addDef struct {
	After string    `yaml:"after"`
	Name  string    `yaml:"name"`
	Type  yaml.Node `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

func decodeCatalog(r io.Reader) (*catalogFile, error) {
	var cf catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}
	if cf.Project == "" {
		return nil, errors.New("catalog without project name")
	}
	return &cf, nil
}

func (cf *catalogFile) build() (*Catalog, error) {
	c := &Catalog{Project: cf.Project}
	var prev []typeDef
	for _, sd := range cf.Schemas {
		defs := merge(prev, sd.Types)
		idx := make(map[string]int, len(defs))
		for i, d := range defs {
			idx[d.Name] = i
		}
		mdefs := make([]Def, 0, len(defs))
		for _, d := range defs {
			d := d
			tpl, err := parseType(&d.Type, idx)
			if err != nil {
				return nil, errors.Wrapf(err, "%s@%d type %s", cf.Project, sd.Vers, d.Name)
			}
			mdefs = append(mdefs, Def{Name: d.Name, Tpl: tpl})
		}
		s, err := NewSchema(cf.Project, sd.Vers, mdefs...)
		if err != nil {
			return nil, err
		}
		c.Schemas = append(c.Schemas, s)
		prev = defs
	}
	for i, fd := range cf.Fixes {
		f, err := c.fix(fd)
		if err != nil {
			return nil, errors.Wrapf(err, "fix %d", i)
		}
		c.Fixes = append(c.Fixes, f)
	}
	return c, nil
}

// merge returns the definitions of prev replaced by or followed by defs.
func merge(prev, defs []typeDef) []typeDef {
	res := make([]typeDef, len(prev), len(prev)+len(defs))
	copy(res, prev)
	for _, d := range defs {
		found := false
		for i, p := range res {
			if p.Name == d.Name {
				res[i], found = d, true
				break
			}
		}
		if !found {
			res = append(res, d)
		}
	}
	return res
}

func (c *Catalog) schema(vers int64) *Schema {
	for _, s := range c.Schemas {
		if s.Vers == vers {
			return s
		}
	}
	return nil
}

func (c *Catalog) fix(fd fixDef) (Fix, error) {
	f := Fix{Name: fd.Name, Vers: fd.Vers, Type: fd.Type}
	src := c.schema(fd.Vers - 1)
	if src == nil {
		return f, errors.Wrapf(ErrVersion, "%s no schema version %d", f, fd.Vers-1)
	}
	var err error
	f.Rule, err = buildOp(fd.opDef, src)
	if err != nil {
		return f, errors.Wrapf(err, "%s", f)
	}
	return f, nil
}

func buildOp(od opDef, src *Schema) (r shape.Rule, err error) {
	n := 0
	if od.Rename != nil {
		r, n = fix.RenameField(od.Rename.From, od.Rename.To), n+1
	}
	if od.RenameTag != nil {
		t := od.RenameTag
		r, n = fix.RenameTag(t.Key, t.From, t.To), n+1
	}
	if od.Add != nil {
		a := od.Add
		t, err := srcType(&a.Type, src)
		if err != nil {
			return nil, errors.Wrapf(err, "add %s", a.Name)
		}
		var v interface{}
		if a.Value.Kind != 0 {
			var ok bool
			if _, v, ok = t.Read(tree.YAML, &a.Value); !ok {
				return nil, errors.Errorf("line %d: add %s value is not a %s", a.Value.Line, a.Name, t)
			}
		}
		r, n = fix.AddField(a.After, a.Name, t, v), n+1
	}
	if od.Drop != "" {
		r, n = fix.DropField(od.Drop), n+1
	}
	if od.Convert != "" {
		b, ok := builtins[od.Convert]
		if !ok {
			return nil, errors.Errorf("unknown conversion %q, expect one of %s", od.Convert,
				strings.Join(builtinNames(), ", "))
		}
		r, n = fix.Convert(b.from, b.to, b.fn), n+1
	}
	if len(od.Seq) != 0 {
		rs := make([]shape.Rule, 0, len(od.Seq))
		for _, sub := range od.Seq {
			sr, err := buildOp(sub, src)
			if err != nil {
				return nil, err
			}
			rs = append(rs, sr)
		}
		r, n = shape.Seq(rs...), n+1
	}
	if n != 1 {
		return nil, errors.Errorf("expect exactly one operation got %d", n)
	}
	if od.Field != "" {
		r = fix.InField(od.Field, r)
	}
	if od.Choice != "" {
		r = fix.InChoice(od.Choice, r)
	}
	if od.Named != "" {
		r = fix.Named(od.Named, r)
	}
	return r, nil
}

// srcType returns the type expression n with references to types of schema src.
func srcType(n *yaml.Node, src *Schema) (shape.Type, error) {
	idx := make(map[string]int, len(src.Names))
	for i, name := range src.Names {
		idx[name] = i
	}
	tpl, err := parseType(n, idx)
	if err != nil {
		return nil, err
	}
	return tpl.Apply(src.Family).At(0), nil
}

func parseType(n *yaml.Node, idx map[string]int) (shape.Template, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return parseName(n, idx)
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, errors.Errorf("line %d: type mapping must have exactly one key", n.Line)
		}
		return parseComposite(n.Content[0].Value, n.Content[1], idx)
	case 0:
		return nil, errors.New("missing type")
	}
	return nil, errors.Errorf("line %d: unexpected type expression", n.Line)
}

func parseName(n *yaml.Node, idx map[string]int) (shape.Template, error) {
	switch n.Value {
	case "int":
		return shape.Const(shape.Int), nil
	case "float":
		return shape.Const(shape.Float), nil
	case "str":
		return shape.Const(shape.String), nil
	case "bool":
		return shape.Const(shape.Bool), nil
	case "unit":
		return shape.Const(shape.Unit), nil
	case "rest":
		return shape.Const(shape.Remainder), nil
	}
	if strings.HasPrefix(n.Value, "@") {
		i, ok := idx[n.Value[1:]]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownType, "line %d: %s", n.Line, n.Value)
		}
		return shape.ID(i), nil
	}
	return nil, errors.Errorf("line %d: unknown type %q", n.Line, n.Value)
}

func parseComposite(key string, n *yaml.Node, idx map[string]int) (shape.Template, error) {
	switch key {
	case "record":
		if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
			return nil, errors.Errorf("line %d: record expects field mapping", n.Line)
		}
		fs := make([]shape.Template, 0, len(n.Content)/2)
		for i := 0; i < len(n.Content); i += 2 {
			name := n.Content[i].Value
			if name == "..." {
				fs = append(fs, shape.Const(shape.Remainder))
				continue
			}
			el, err := parseType(n.Content[i+1], idx)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", name)
			}
			if strings.HasSuffix(name, "?") {
				fs = append(fs, shape.OptFieldT(name[:len(name)-1], el))
			} else {
				fs = append(fs, shape.FieldT(name, el))
			}
		}
		if len(fs) == 1 {
			return fs[0], nil
		}
		return shape.AndT(fs[0], fs[1], fs[2:]...), nil
	case "list", "map":
		el, err := parseType(n, idx)
		if err != nil {
			return nil, err
		}
		if key == "map" {
			return shape.CompoundListT(el), nil
		}
		return shape.ListT(el), nil
	case "or":
		if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
			return nil, errors.Errorf("line %d: or expects two types", n.Line)
		}
		l, err := parseType(n.Content[0], idx)
		if err != nil {
			return nil, err
		}
		r, err := parseType(n.Content[1], idx)
		if err != nil {
			return nil, err
		}
		return shape.OrT(l, r), nil
	case "named":
		if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
			return nil, errors.Errorf("line %d: named expects one name", n.Line)
		}
		el, err := parseType(n.Content[1], idx)
		if err != nil {
			return nil, err
		}
		return shape.NamedT(n.Content[0].Value, el), nil
	case "choice":
		var cd struct {
			Key   string               `yaml:"key"`
			Cases map[string]yaml.Node `yaml:"cases"`
		}
		if err := n.Decode(&cd); err != nil {
			return nil, err
		}
		if cd.Key == "" || len(cd.Cases) == 0 {
			return nil, errors.Errorf("line %d: choice expects key and cases", n.Line)
		}
		cases := make(map[string]shape.Template, len(cd.Cases))
		for tag, cn := range cd.Cases {
			cn := cn
			ct, err := parseType(&cn, idx)
			if err != nil {
				return nil, errors.Wrapf(err, "case %s", tag)
			}
			cases[tag] = ct
		}
		return shape.TaggedChoiceT(cd.Key, cases), nil
	}
	return nil, errors.Errorf("line %d: unknown type constructor %q", n.Line, key)
}

type builtin struct {
	from, to shape.Type
	fn       optic.Func
}

var builtins = map[string]builtin{
	"int_to_float": {shape.Int, shape.Float, func(v interface{}) (interface{}, error) {
		return float64(v.(int64)), nil
	}},
	"float_to_int": {shape.Float, shape.Int, func(v interface{}) (interface{}, error) {
		f := v.(float64)
		if f != math.Trunc(f) {
			return nil, errors.Wrapf(optic.ErrValue, "float %v is not whole", f)
		}
		return int64(f), nil
	}},
	"int_to_str": {shape.Int, shape.String, func(v interface{}) (interface{}, error) {
		return strconv.FormatInt(v.(int64), 10), nil
	}},
	"str_to_int": {shape.String, shape.Int, func(v interface{}) (interface{}, error) {
		n, err := strconv.ParseInt(v.(string), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(optic.ErrValue, "%v", err)
		}
		return n, nil
	}},
	"bool_to_str": {shape.Bool, shape.String, func(v interface{}) (interface{}, error) {
		return strconv.FormatBool(v.(bool)), nil
	}},
	"float_to_str": {shape.Float, shape.String, func(v interface{}) (interface{}, error) {
		return strconv.FormatFloat(v.(float64), 'g', -1, 64), nil
	}},
}

func builtinNames() []string {
	res := make([]string, 0, len(builtins))
	for name := range builtins {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}
