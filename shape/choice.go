package shape

import (
	"sort"

	"github.com/mb0/dafix/tree"
	"github.com/mb0/dafix/val"
	"github.com/pkg/errors"
)

// TaggedChoiceType selects the type of a map by the string value of its key field.
// Values are pairs of the tag and the value of the selected type.
type TaggedChoiceType struct{ node }

// TaggedChoice returns a tagged choice over cases, discriminated by the key field.
func TaggedChoice(key string, cases map[string]Type) Type {
	tags := make([]string, 0, len(cases))
	for tag := range cases {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	kids := make([]Type, 0, len(tags))
	for _, tag := range tags {
		kids = append(kids, cases[tag])
	}
	return choice(key, tags, kids)
}

func choice(key string, tags []string, kids []Type) Type {
	return intern(&TaggedChoiceType{newNode(KindTaggedChoice, key, tags, kids...)})
}

// Key returns the name of the discriminating field.
func (t *TaggedChoiceType) Key() string { return t.name }

// Tags returns the sorted case tags.
func (t *TaggedChoiceType) Tags() []string { return t.tags }

// Case returns the type for tag or false.
func (t *TaggedChoiceType) Case(tag string) (Type, bool) {
	i := sort.SearchStrings(t.tags, tag)
	if i < len(t.tags) && t.tags[i] == tag {
		return t.kids[i], true
	}
	return nil, false
}

func (t *TaggedChoiceType) Read(ops tree.Ops, in interface{}) (interface{}, interface{}, bool) {
	kv, ok := ops.Get(in, t.name)
	if !ok {
		return in, nil, false
	}
	tag, ok := ops.String(kv)
	if !ok {
		return in, nil, false
	}
	ct, ok := t.Case(tag)
	if !ok {
		return in, nil, false
	}
	rest, v, ok := ct.Read(ops, ops.Remove(in, t.name))
	if !ok {
		return in, nil, false
	}
	return rest, val.Pair{First: tag, Second: v}, true
}

func (t *TaggedChoiceType) Write(ops tree.Ops, rest, v interface{}) (interface{}, error) {
	p, ok := v.(val.Pair)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "choice %s got %T", t.name, v)
	}
	tag, ok := p.First.(string)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "choice %s tag got %T", t.name, p.First)
	}
	ct, ok := t.Case(tag)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "choice %s has no case %q", t.name, tag)
	}
	res, err := ct.Write(ops, rest, p.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "choice %s %s", t.name, tag)
	}
	res, err = ops.MergeKey(res, t.name, ops.CreateString(tag))
	if err != nil {
		return nil, errors.Wrapf(ErrShapeMismatch, "choice %s: %v", t.name, err)
	}
	return res, nil
}

func (t *TaggedChoiceType) point(tree.Ops, *pointCtx) (interface{}, bool) { return nil, false }
