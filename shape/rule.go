package shape

import (
	"fmt"

	"github.com/mb0/dafix/optic"
	"github.com/pkg/errors"
)

// Rule rewrites a type. It returns nil if it does not match t. Rules may return errors wrapping
// ErrFieldNotFound or ErrNotFound to signal they do not apply, any other error aborts the rewrite.
// The pass is the current traversal and may be nil.
type Rule interface {
	Rewrite(t Type, p *Pass) (*Result, error)
}

// RuleFunc implements Rule.
type RuleFunc func(t Type, p *Pass) (*Result, error)

func (f RuleFunc) Rewrite(t Type, p *Pass) (*Result, error) { return f(t, p) }

// NopRule matches no type.
var NopRule Rule = RuleFunc(func(Type, *Pass) (*Result, error) { return nil, nil })

// Seq returns a rule that applies all rules in declaration order, each to the type produced by
// the rule before. Rules not matching are skipped. It matches if any rule matched.
func Seq(rules ...Rule) Rule {
	return RuleFunc(func(t Type, p *Pass) (res *Result, err error) {
		for _, r := range rules {
			cur := t
			if res != nil {
				cur = res.New
			}
			nr, err := apply(r, cur, p)
			if err != nil {
				return nil, err
			}
			if nr == nil {
				continue
			}
			if res == nil {
				res = nr
			} else if res, err = res.Then(nr); err != nil {
				return nil, err
			}
		}
		return res, nil
	})
}

// OrElse returns a rule that applies the first matching rule in declaration order.
func OrElse(rules ...Rule) Rule {
	return RuleFunc(func(t Type, p *Pass) (*Result, error) {
		for _, r := range rules {
			res, err := apply(r, t, p)
			if err != nil || res != nil {
				return res, err
			}
		}
		return nil, nil
	})
}

// Everywhere returns a rule that rewrites the whole type graph bottom-up with r.
// It always matches.
func Everywhere(r Rule, recurse, checkIndex bool) Rule {
	return RuleFunc(func(t Type, p *Pass) (*Result, error) {
		sub := NewPass(r, recurse, checkIndex)
		sub.parent = p
		return sub.Rewrite(t)
	})
}

// RewriteOne applies r to exactly t and returns nil if it does not match.
func RewriteOne(t Type, r Rule) (*Result, error) {
	return apply(r, t, nil)
}

// RewriteAll rewrites the children of t first and then t itself with r. It always returns a
// result, a no-operation if r matched no node. Recursion points are followed into their families
// only if recurse is true. Each recursive family is rewritten once.
func RewriteAll(t Type, r Rule, recurse, checkIndex bool) (*Result, error) {
	return NewPass(r, recurse, checkIndex).Rewrite(t)
}

func apply(r Rule, t Type, p *Pass) (*Result, error) {
	res, err := r.Rewrite(t, p)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if res != nil && res.Old != t && !Equal(res.Old, t, false, true) {
		return nil, errors.Wrapf(ErrShapeMismatch, "rule result for %s starts at %s", t, res.Old)
	}
	return res, nil
}

// Pass is one application of a rule to a type graph. Results are memoized by node identity for
// the duration of the pass.
type Pass struct {
	rule       Rule
	recurse    bool
	checkIndex bool
	memo       map[Type]*Result
	fams       map[*RecursiveFamily]*famEntry
	scope      []*famEntry
	parent     *Pass
	cur        *defRef
}

type defRef struct {
	name  string
	index int
}

// NewPass returns a pass for rule r. Types rewritten with the same pass share memoized results and
// rewritten recursive families.
func NewPass(r Rule, recurse, checkIndex bool) *Pass {
	return &Pass{rule: r, recurse: recurse, checkIndex: checkIndex,
		memo: make(map[Type]*Result),
		fams: make(map[*RecursiveFamily]*famEntry),
	}
}

// Rewrite rewrites t bottom-up and always returns a result.
func (p *Pass) Rewrite(t Type) (*Result, error) { return p.all(t) }

// Sub returns a new pass for rule r, that rewrites parts of the types seen by p. Recursion points
// of families p is still rewriting are leaves to the sub pass. A nil pass returns a new pass, that
// follows recursion points.
func (p *Pass) Sub(r Rule) *Pass {
	sub := NewPass(r, p.Recurse(), p.CheckIndex())
	sub.parent = p
	return sub
}

// Recurse returns whether recursion points are followed. A nil pass follows them.
func (p *Pass) Recurse() bool { return p == nil || p.recurse }

// CheckIndex returns whether rules should compare recursion points by family index.
func (p *Pass) CheckIndex() bool { return p == nil || p.checkIndex }

// Def returns the family name and index, if the rule is applied to the root of a family
// definition. The root is the unfolded type of a recursion point after its children were rewritten.
func (p *Pass) Def() (name string, index int, ok bool) {
	if p == nil || p.cur == nil {
		return "", 0, false
	}
	return p.cur.name, p.cur.index, true
}

// def rewrites the definition at index i of f. Definition roots are not memoized, because
// distinct indices may unfold to the same type.
func (p *Pass) def(f *RecursiveFamily, i int) (*Result, error) {
	t := f.Unfold(i)
	res, err := p.children(t)
	if err != nil {
		return nil, err
	}
	saved := p.cur
	p.cur = &defRef{f.name, i}
	nr, err := apply(p.rule, res.New, p)
	p.cur = saved
	if err != nil {
		return nil, errors.Wrapf(err, "rewrite %s", res.New)
	}
	if nr != nil && !nr.IsNop() {
		p.edit()
	}
	return res.Then(nr)
}

func (p *Pass) all(t Type) (res *Result, err error) {
	if res = p.memo[t]; res != nil {
		return res, nil
	}
	if pt, ok := t.(*PointType); ok && p.recurse {
		res, err = p.point(pt)
	} else {
		res, err = p.children(t)
	}
	if err != nil {
		return nil, err
	}
	nr, err := apply(p.rule, res.New, p)
	if err != nil {
		return nil, errors.Wrapf(err, "rewrite %s", res.New)
	}
	if nr != nil && !nr.IsNop() {
		p.edit()
	}
	if res, err = res.Then(nr); err != nil {
		return nil, err
	}
	p.memo[t] = res
	return res, nil
}

func (p *Pass) children(t Type) (*Result, error) {
	if _, ok := t.(*PointType); ok {
		return Nop(t), nil
	}
	kids := t.base().kids
	if len(kids) == 0 {
		return Nop(t), nil
	}
	rs := make([]*Result, 0, len(kids))
	for _, k := range kids {
		r, err := p.all(k)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return Fix(t, rs...)
}

// Fix returns the result for t given one result for each of its children. If all child results
// are no-operations the result is a no-operation for t. Otherwise each changed child optic is
// lifted through the projection that focuses the child in values of t.
func Fix(t Type, rs ...*Result) (*Result, error) {
	n := t.base()
	if len(rs) != len(n.kids) {
		return nil, errors.Wrapf(ErrShapeMismatch, "fix %s with %d results", t, len(rs))
	}
	res := Nop(t)
	kids := n.kids
	for i, r := range rs {
		if r.IsNop() {
			continue
		}
		next := make([]Type, len(kids))
		copy(next, kids)
		next[i] = r.New
		nt := build(n.kind, n.name, n.tags, next)
		lifted, err := Compose(TypedOptic{res.New, nt, r.Old, r.New, lift(n.kind, n.tags, i)},
			r.Optic)
		if err != nil {
			return nil, err
		}
		if res, err = res.Then(&Result{res.New, nt, lifted}); err != nil {
			return nil, err
		}
		kids = next
	}
	return res, nil
}

type famState uint8

const (
	famPending famState = iota
	famDone
)

// famEntry is the rewrite state of one recursive family. While pending its points rewrite to the
// points of the shell family next, that is tied once all definitions are rewritten.
type famEntry struct {
	old     *RecursiveFamily
	next    *RecursiveFamily
	state   famState
	results []*Result
	// edited is set if a rule changed a type in scope of the family.
	edited bool
	// deps holds pending families, whose points were used in scope of the family.
	deps map[*famEntry]bool
	// nested holds the families first seen in scope of the family.
	nested []*famEntry
}

func (e *famEntry) changed() bool { return e.edited || len(e.deps) > 0 }

// point returns the result for a recursion point. The first visit rewrites the whole family.
// Points of families that are not yet tied belong to a family rewrite in progress and are leaves.
func (p *Pass) point(t *PointType) (*Result, error) {
	if t.fam.types == nil || p.parent.pending(t.fam) {
		return Nop(t), nil
	}
	e := p.fams[t.fam]
	if e == nil {
		var err error
		if e, err = p.family(t.fam); err != nil {
			return nil, err
		}
	}
	p.touch(e)
	if e.state == famPending {
		nt := e.next.At(t.index)
		return &Result{t, nt, TypedOptic{t, nt, t, nt, &muOptic{e, t.index}}}, nil
	}
	return e.results[t.index], nil
}

// pending returns whether p or one of its parents is rewriting family f.
func (p *Pass) pending(f *RecursiveFamily) bool {
	for ; p != nil; p = p.parent {
		if e := p.fams[f]; e != nil && e.state == famPending {
			return true
		}
	}
	return false
}

// edit marks all families in scope as edited.
func (p *Pass) edit() {
	for _, s := range p.scope {
		s.edited = true
	}
}

// touch records the use of a result of family e in the current scope. The use of a pending family
// makes the families nested in its scope depend on it.
func (p *Pass) touch(e *famEntry) {
	switch {
	case e.state == famPending:
		above := false
		for _, s := range p.scope {
			if above {
				s.deps[e] = true
			}
			above = above || s == e
		}
	case !e.changed():
	case e.edited:
		p.edit()
	default:
		for d := range e.deps {
			p.touch(d)
		}
	}
}

// family rewrites all types of f once. The definitions are rewritten against a shell family, whose
// points refer to the results through lazy optics. The family changed if a rule edited a type in
// its scope or if it used the points of another pending family. Otherwise the results are
// no-operations and the types built in its scope are dropped.
func (p *Pass) family(f *RecursiveFamily) (*famEntry, error) {
	n := f.Size()
	e := &famEntry{old: f, next: shell(f.name, n), deps: make(map[*famEntry]bool)}
	p.fams[f] = e
	for _, s := range p.scope {
		s.nested = append(s.nested, e)
	}
	outer := p.memo
	p.memo = make(map[Type]*Result)
	p.scope = append(p.scope, e)
	types := make([]Type, n)
	opts := make([]optic.Optic, n)
	for i := 0; i < n; i++ {
		r, err := p.def(f, i)
		if err != nil {
			return nil, errors.Wrapf(err, "family %s index %d", f.name, i)
		}
		types[i], opts[i] = r.New, r.Optic.O
	}
	p.scope = p.scope[:len(p.scope)-1]
	e.next.tie(types)
	e.state = famDone
	if !e.changed() {
		e.settle()
		p.memo = outer
		return e, nil
	}
	e.results = make([]*Result, n)
	for i := range e.results {
		o := opts[i]
		if optic.IsID(o) {
			o = optic.Adapter(fmt.Sprintf("mu(%s.%d)", f.name, i), nil, nil)
		}
		old, nt := f.At(i), e.next.At(i)
		e.results[i] = &Result{old, nt, TypedOptic{old, nt, old, nt, o}}
	}
	p.merge(outer)
	return e, nil
}

// settle sets the no-operation results of the unchanged family e and of the families nested in
// its scope, that only changed because they used the points of unchanged families.
func (e *famEntry) settle() {
	e.nop()
	for again := true; again; {
		again = false
		for _, g := range e.nested {
			if !g.changed() || g.edited {
				continue
			}
			for d := range g.deps {
				if d.state == famDone && !d.changed() {
					delete(g.deps, d)
				}
			}
			if len(g.deps) == 0 {
				g.nop()
				again = true
			}
		}
	}
}

func (e *famEntry) nop() {
	e.results = make([]*Result, e.old.Size())
	for i := range e.results {
		e.results[i] = Nop(e.old.At(i))
	}
}
func (p *Pass) merge(outer map[Type]*Result) {
	for k, v := range p.memo {
		outer[k] = v
	}
	p.memo = outer
}

// muOptic converts a recursive value with the family result, that is known once the family
// rewrite completed.
type muOptic struct {
	e     *famEntry
	index int
}

func (o *muOptic) Bounds() optic.Bounds { return optic.TraversalBounds }
func (o *muOptic) String() string {
	return fmt.Sprintf("mu(%s.%d)", o.e.next.name, o.index)
}
func (o *muOptic) Modify(s interface{}, f optic.Func) (interface{}, error) {
	return o.e.results[o.index].Optic.O.Modify(s, f)
}
