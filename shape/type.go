package shape

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/mb0/dafix/optic"
	"github.com/mb0/dafix/tree"
)

// Type is an immutable description of the shape of a value.
//
// Read decodes a value of this shape from in and returns the unconsumed rest. A false ok means
// the expected shape is not present, which is not an error. Write encodes v into rest and fails
// with ErrShapeMismatch if v does not match the type.
type Type interface {
	Kind() Kind
	Read(ops tree.Ops, in interface{}) (rest, v interface{}, ok bool)
	Write(ops tree.Ops, rest, v interface{}) (interface{}, error)
	// Hash returns a structural hash, consistent with strict equality.
	Hash() uint64
	// Equal compares structurally. With ignoreRec recursion points of different families are
	// equal if they unfold identically, checkIndex distinguishes points by family index.
	Equal(o Type, ignoreRec, checkIndex bool) bool
	String() string

	base() *node
	point(ops tree.Ops, c *pointCtx) (interface{}, bool)
}

// node holds the structural description shared by all type kinds.
type node struct {
	kind Kind
	name string
	tags []string
	kids []Type
	hash uint64
	rec  bool
	caps optic.Bounds
}

func newNode(k Kind, name string, tags []string, kids ...Type) node {
	n := node{kind: k, name: name, tags: tags, kids: kids, caps: k.bounds()}
	h := xxhash.New()
	h.Write([]byte{byte(k)})
	h.WriteString(name)
	for _, t := range tags {
		h.WriteString("\x00")
		h.WriteString(t)
	}
	var buf [8]byte
	for _, c := range kids {
		cn := c.base()
		binary.LittleEndian.PutUint64(buf[:], cn.hash)
		h.Write(buf[:])
		n.rec = n.rec || cn.rec
		n.caps |= cn.caps
	}
	n.hash = h.Sum64()
	return n
}

func (n *node) Kind() Kind       { return n.kind }
func (n *node) Hash() uint64     { return n.hash }
func (n *node) base() *node      { return n }
func (n *node) Children() []Type { return n.kids }

func (n *node) Equal(o Type, ignoreRec, checkIndex bool) bool {
	if o == nil {
		return false
	}
	c := &eqCtx{ignoreRec: ignoreRec, checkIndex: checkIndex}
	return c.nodes(n, o.base())
}

func (n *node) String() string {
	var b strings.Builder
	n.writeTo(&b)
	return b.String()
}

func (n *node) writeTo(b *strings.Builder) {
	b.WriteString(n.kind.String())
	if n.kind.Prim() || len(n.kids) == 0 && n.name == "" {
		return
	}
	b.WriteByte('(')
	switch n.kind {
	case KindField, KindOptField, KindNamed:
		b.WriteString(n.name)
		b.WriteString(": ")
	case KindTaggedChoice:
		b.WriteString(n.name)
	}
	for i, k := range n.kids {
		if n.kind == KindTaggedChoice {
			b.WriteString(", ")
			b.WriteString(n.tags[i])
			b.WriteString(": ")
		} else if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.String())
	}
	b.WriteByte(')')
}

// Equal returns whether a and b are structurally equal.
func Equal(a, b Type, ignoreRec, checkIndex bool) bool {
	c := &eqCtx{ignoreRec: ignoreRec, checkIndex: checkIndex}
	return c.eq(a, b)
}

// Point returns the default value of t or false if t has none.
func Point(t Type, ops tree.Ops) (interface{}, bool) {
	return t.point(ops, &pointCtx{})
}

type pointCtx struct {
	seen map[*PointType]bool
}

type eqCtx struct {
	ignoreRec  bool
	checkIndex bool
	stack      [][2]*PointType
}

func (c *eqCtx) eq(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	pa, aok := a.(*PointType)
	pb, bok := b.(*PointType)
	if aok || bok {
		return aok && bok && c.points(pa, pb)
	}
	return c.nodes(a.base(), b.base())
}

func (c *eqCtx) nodes(a, b *node) bool {
	if a == b {
		return true
	}
	if a.kind != b.kind || a.name != b.name || len(a.tags) != len(b.tags) ||
		len(a.kids) != len(b.kids) {
		return false
	}
	for i, t := range a.tags {
		if b.tags[i] != t {
			return false
		}
	}
	for i, k := range a.kids {
		if !c.eq(k, b.kids[i]) {
			return false
		}
	}
	return true
}

func (c *eqCtx) points(a, b *PointType) bool {
	if !c.ignoreRec {
		return a.fam == b.fam && (!c.checkIndex || a.index == b.index)
	}
	if c.checkIndex && a.index != b.index {
		return false
	}
	if a.fam == b.fam && a.index == b.index {
		return true
	}
	if a.fam.types == nil || b.fam.types == nil {
		// families still being rewritten have no definitions yet
		return false
	}
	for _, p := range c.stack {
		if p[0] == a && p[1] == b {
			return true
		}
	}
	c.stack = append(c.stack, [2]*PointType{a, b})
	res := c.eq(a.fam.Unfold(a.index), b.fam.Unfold(b.index))
	c.stack = c.stack[:len(c.stack)-1]
	return res
}

var interned struct {
	sync.Mutex
	m map[uint64][]Type
}

// intern returns the canonical node strictly equal to t. Children are already interned, so
// pointer identity of children is strict equality.
func intern(t Type) Type {
	n := t.base()
	interned.Lock()
	defer interned.Unlock()
	if interned.m == nil {
		interned.m = make(map[uint64][]Type)
	}
	for _, c := range interned.m[n.hash] {
		if same(c, t) {
			return c
		}
	}
	interned.m[n.hash] = append(interned.m[n.hash], t)
	return t
}

func same(a, b Type) bool {
	if pa, ok := a.(*PointType); ok {
		pb, ok := b.(*PointType)
		return ok && pa.fam == pb.fam && pa.index == pb.index
	}
	if _, ok := b.(*PointType); ok {
		return false
	}
	na, nb := a.base(), b.base()
	if na.kind != nb.kind || na.name != nb.name || len(na.tags) != len(nb.tags) ||
		len(na.kids) != len(nb.kids) {
		return false
	}
	for i, t := range na.tags {
		if nb.tags[i] != t {
			return false
		}
	}
	for i, k := range na.kids {
		if nb.kids[i] != k {
			return false
		}
	}
	return true
}
