package shape

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mb0/dafix/optic"
)

// Template is an unapplied type constructor, parametrized over a type family.
type Template interface {
	// Size returns the number of family indices the template refers to.
	Size() int
	// Apply returns the family of types built from this template for the family f.
	Apply(f Family) Family
	// ApplyO lifts the family optic fo through the template structure. The result focuses the
	// values of every family reference in the type built at each index.
	ApplyO(f Family, fo FamilyOptic) FamilyOptic
	String() string
}

// FamilyOptic is a function from family index to optic.
type FamilyOptic func(index int) optic.Optic

type constTpl struct{ t Type }

// Const returns a template that always builds t.
func Const(t Type) Template { return constTpl{t} }

func (c constTpl) Size() int                              { return 0 }
func (c constTpl) ApplyO(Family, FamilyOptic) FamilyOptic { return idFamilyOptic }
func (c constTpl) String() string                         { return c.t.String() }
func (c constTpl) Apply(Family) Family {
	return FamilyFunc(func(int) Type { return c.t })
}

func idFamilyOptic(int) optic.Optic { return optic.ID() }

type idTpl struct{ index int }

// ID returns a template referring to the family type at index.
func ID(index int) Template { return idTpl{index} }

func (t idTpl) Size() int { return t.index + 1 }
func (t idTpl) Apply(f Family) Family {
	return FamilyFunc(func(int) Type { return f.At(t.index) })
}
func (t idTpl) ApplyO(_ Family, fo FamilyOptic) FamilyOptic {
	return func(int) optic.Optic { return fo(t.index) }
}
func (t idTpl) String() string { return fmt.Sprintf("id(%d)", t.index) }

type selectTpl []Template

// Select returns a template that applies the template at the family index.
// It is used to define families, whose indices have different shapes.
func Select(ts ...Template) Template { return selectTpl(ts) }

func (s selectTpl) Size() int {
	n := len(s)
	for _, t := range s {
		if ts := t.Size(); ts > n {
			n = ts
		}
	}
	return n
}
func (s selectTpl) Apply(f Family) Family {
	return FamilyFunc(func(i int) Type { return s[i].Apply(f).At(i) })
}
func (s selectTpl) ApplyO(f Family, fo FamilyOptic) FamilyOptic {
	return func(i int) optic.Optic { return s[i].ApplyO(f, fo)(i) }
}
func (s selectTpl) String() string {
	ts := make([]string, 0, len(s))
	for _, t := range s {
		ts = append(ts, t.String())
	}
	return fmt.Sprintf("select(%s)", strings.Join(ts, ", "))
}

// tpl is the template of all composite kinds.
type tpl struct {
	kind Kind
	name string
	tags []string
	kids []Template
}

// NamedT returns a template for named types.
func NamedT(name string, elem Template) Template { return &tpl{KindNamed, name, nil, []Template{elem}} }

// FieldT returns a template for required fields.
func FieldT(name string, elem Template) Template { return &tpl{KindField, name, nil, []Template{elem}} }

// OptFieldT returns a template for optional fields.
func OptFieldT(name string, elem Template) Template {
	return &tpl{KindOptField, name, nil, []Template{elem}}
}

// AndT returns a template for products. More than two templates nest to the right.
func AndT(first, second Template, more ...Template) Template {
	if len(more) > 0 {
		second = AndT(second, more[0], more[1:]...)
	}
	return &tpl{KindProduct, "", nil, []Template{first, second}}
}

// OrT returns a template for sums.
func OrT(left, right Template) Template { return &tpl{KindSum, "", nil, []Template{left, right}} }

// ListT returns a template for lists.
func ListT(elem Template) Template { return &tpl{KindList, "", nil, []Template{elem}} }

// CompoundListT returns a template for maps.
func CompoundListT(elem Template) Template {
	return &tpl{KindCompoundList, "", nil, []Template{elem}}
}

// TaggedChoiceT returns a template for tagged choices.
func TaggedChoiceT(key string, cases map[string]Template) Template {
	tags := make([]string, 0, len(cases))
	for tag := range cases {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	kids := make([]Template, 0, len(tags))
	for _, tag := range tags {
		kids = append(kids, cases[tag])
	}
	return &tpl{KindTaggedChoice, key, tags, kids}
}

func (t *tpl) Size() (n int) {
	for _, k := range t.kids {
		if s := k.Size(); s > n {
			n = s
		}
	}
	return n
}

func (t *tpl) Apply(f Family) Family {
	fams := make([]Family, 0, len(t.kids))
	for _, k := range t.kids {
		fams = append(fams, k.Apply(f))
	}
	return FamilyFunc(func(i int) Type {
		kids := make([]Type, 0, len(fams))
		for _, kf := range fams {
			kids = append(kids, kf.At(i))
		}
		return build(t.kind, t.name, t.tags, kids)
	})
}

func (t *tpl) ApplyO(f Family, fo FamilyOptic) FamilyOptic {
	fos := make([]FamilyOptic, 0, len(t.kids))
	for _, k := range t.kids {
		fos = append(fos, k.ApplyO(f, fo))
	}
	return func(i int) optic.Optic {
		res := optic.ID()
		for j, kfo := range fos {
			res = optic.Seq(res, optic.Compose(lift(t.kind, t.tags, j), kfo(i)))
		}
		return res
	}
}

func (t *tpl) String() string {
	var b strings.Builder
	b.WriteString(t.kind.String())
	b.WriteString("T(")
	if t.name != "" {
		b.WriteString(t.name)
		b.WriteString(": ")
	}
	for i, k := range t.kids {
		if i > 0 {
			b.WriteString(", ")
		}
		if t.tags != nil {
			b.WriteString(t.tags[i])
			b.WriteString(": ")
		}
		b.WriteString(k.String())
	}
	b.WriteByte(')')
	return b.String()
}

// TemplateOf returns the template, that builds t. Recursion points become ID templates.
func TemplateOf(t Type) Template {
	if p, ok := t.(*PointType); ok {
		return ID(p.index)
	}
	n := t.base()
	if len(n.kids) == 0 {
		return Const(t)
	}
	kids := make([]Template, 0, len(n.kids))
	for _, k := range n.kids {
		kids = append(kids, TemplateOf(k))
	}
	return &tpl{n.kind, n.name, n.tags, kids}
}

// UpdateMu returns t with all recursion points of a family named like f rebound to f.
// Nodes without recursion points are returned as is.
func UpdateMu(t Type, f *RecursiveFamily) Type {
	n := t.base()
	if !n.rec {
		return t
	}
	if p, ok := t.(*PointType); ok {
		if p.fam.name == f.name && p.index < f.Size() {
			return f.At(p.index)
		}
		return p
	}
	var kids []Type
	for i, k := range n.kids {
		nk := UpdateMu(k, f)
		if nk != k && kids == nil {
			kids = make([]Type, len(n.kids))
			copy(kids, n.kids)
		}
		if kids != nil {
			kids[i] = nk
		}
	}
	if kids == nil {
		return t
	}
	return build(n.kind, n.name, n.tags, kids)
}

// build returns a composite type of kind with the given children.
func build(k Kind, name string, tags []string, kids []Type) Type {
	switch k {
	case KindProduct:
		return And(kids[0], kids[1])
	case KindSum:
		return Or(kids[0], kids[1])
	case KindField:
		return Field(name, kids[0])
	case KindOptField:
		return OptField(name, kids[0])
	case KindNamed:
		return Named(name, kids[0])
	case KindList:
		return List(kids[0])
	case KindCompoundList:
		return CompoundList(kids[0])
	case KindTaggedChoice:
		return choice(name, tags, kids)
	}
	panic(fmt.Sprintf("cannot build composite type of kind %s", k))
}

// lift returns the optic focusing the value of child i in a value of a composite kind.
func lift(k Kind, tags []string, i int) optic.Optic {
	switch k {
	case KindProduct:
		if i == 0 {
			return optic.Proj1
		}
		return optic.Proj2
	case KindSum:
		if i == 0 {
			return optic.Inl
		}
		return optic.Inr
	case KindNamed:
		return optic.Proj2
	case KindOptField:
		return optic.Some
	case KindList:
		return optic.Each
	case KindCompoundList:
		return optic.Compose(optic.Each, optic.Proj2)
	case KindTaggedChoice:
		return optic.Tag(tags[i])
	}
	// fields share the value representation of their element
	return optic.ID()
}
