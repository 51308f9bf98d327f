/*
Package optic implements the composable bidirectional accessors used by rewrite results.

An optic focuses on parts of a source value and rebuilds the source after the parts were modified.
Every optic declares the capability bounds an evaluation needs: a lens needs products, a prism
needs choices and a traversal needs both and the ability to visit many parts. Composition unions
the bounds and never inspects data. The identity optic marks a no-operation and is absorbed by
composition, so chains of unmodified nodes do not grow.

Only the small subset of optic shapes needed for schema migration is provided.
*/
package optic

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrBounds is returned when an optic is evaluated or cast with bounds it does not satisfy.
	ErrBounds = errors.New("optic bounds mismatch")
	// ErrValue is returned when an optic encounters a value of an unexpected runtime shape.
	ErrValue = errors.New("unexpected optic value")
)

// Bounds is a set of capabilities an optic requires from its evaluation.
type Bounds uint8

const (
	Cartesian Bounds = 1 << iota
	Cocartesian
	Traversing
)

const (
	LensBounds      = Cartesian
	PrismBounds     = Cocartesian
	AffineBounds    = Cartesian | Cocartesian
	TraversalBounds = Cartesian | Cocartesian | Traversing
)

// Within returns whether all bounds of b are contained in limit.
func (b Bounds) Within(limit Bounds) bool { return b&^limit == 0 }

func (b Bounds) String() string {
	if b == 0 {
		return "adapter"
	}
	var s []string
	if b&Cartesian != 0 {
		s = append(s, "cartesian")
	}
	if b&Cocartesian != 0 {
		s = append(s, "cocartesian")
	}
	if b&Traversing != 0 {
		s = append(s, "traversing")
	}
	return strings.Join(s, "|")
}

// Func modifies a focused value.
type Func func(interface{}) (interface{}, error)

// Optic is a bidirectional accessor between a source value and the parts it focuses.
type Optic interface {
	Bounds() Bounds
	// Modify returns s with each focused part replaced by the result of f.
	Modify(s interface{}, f Func) (interface{}, error)
	String() string
}

func identity(v interface{}) (interface{}, error) { return v, nil }

type idOptic struct{}

func (idOptic) Bounds() Bounds { return 0 }
func (idOptic) String() string { return "id" }
func (idOptic) Modify(s interface{}, f Func) (interface{}, error) {
	return f(s)
}

// ID returns the identity optic.
func ID() Optic { return idOptic{} }

// IsID returns whether o is the identity optic.
func IsID(o Optic) bool {
	_, ok := o.(idOptic)
	return ok
}

type adapter struct {
	name     string
	from, to Func
}

// Adapter returns an optic that converts the source with from and the result back with to.
// A nil function is the identity.
func Adapter(name string, from, to Func) Optic {
	if from == nil {
		from = identity
	}
	if to == nil {
		to = identity
	}
	return &adapter{name, from, to}
}

// Conv returns a one-way adapter, that converts values with fn. It is the leaf of most rewrites.
func Conv(name string, fn Func) Optic { return Adapter(name, fn, nil) }

func (o *adapter) Bounds() Bounds { return 0 }
func (o *adapter) String() string { return o.name }
func (o *adapter) Modify(s interface{}, f Func) (interface{}, error) {
	a, err := o.from(s)
	if err != nil {
		return nil, err
	}
	b, err := f(a)
	if err != nil {
		return nil, err
	}
	return o.to(b)
}

type lens struct {
	name string
	get  func(s interface{}) (interface{}, error)
	set  func(s, b interface{}) (interface{}, error)
}

// Lens returns an optic that focuses exactly one part of a product.
func Lens(name string, get func(s interface{}) (interface{}, error),
	set func(s, b interface{}) (interface{}, error)) Optic {
	return &lens{name, get, set}
}

func (o *lens) Bounds() Bounds { return LensBounds }
func (o *lens) String() string { return o.name }
func (o *lens) Modify(s interface{}, f Func) (interface{}, error) {
	a, err := o.get(s)
	if err != nil {
		return nil, err
	}
	b, err := f(a)
	if err != nil {
		return nil, err
	}
	return o.set(s, b)
}

type prism struct {
	name  string
	match func(s interface{}) (interface{}, bool)
	build func(b interface{}) interface{}
}

// Prism returns an optic that focuses one case of a choice. Sources not matching the case are
// returned unchanged.
func Prism(name string, match func(s interface{}) (interface{}, bool),
	build func(b interface{}) interface{}) Optic {
	return &prism{name, match, build}
}

func (o *prism) Bounds() Bounds { return PrismBounds }
func (o *prism) String() string { return o.name }
func (o *prism) Modify(s interface{}, f Func) (interface{}, error) {
	a, ok := o.match(s)
	if !ok {
		return s, nil
	}
	b, err := f(a)
	if err != nil {
		return nil, err
	}
	return o.build(b), nil
}

type traversal struct {
	name string
	each func(s interface{}, f Func) (interface{}, error)
}

// Traversal returns an optic that focuses any number of parts.
func Traversal(name string, each func(s interface{}, f Func) (interface{}, error)) Optic {
	return &traversal{name, each}
}

func (o *traversal) Bounds() Bounds { return TraversalBounds }
func (o *traversal) String() string { return o.name }
func (o *traversal) Modify(s interface{}, f Func) (interface{}, error) {
	return o.each(s, f)
}
