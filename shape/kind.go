package shape

import (
	"github.com/mb0/dafix/optic"
	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is a programming error in a schema or rule definition: a written value does
	// not match its type or optics with incompatible types or bounds were composed.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrFieldNotFound means an expected field does not exist in a type graph.
	// Rules returning it are treated as inapplicable.
	ErrFieldNotFound = errors.New("field not found")
	// ErrNotFound means a field or choice is absent during a structural search or a value does
	// not match the type it is read with.
	ErrNotFound = errors.New("not found")
)

// Kind identifies the kind of a schema type.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindString
	KindUnit
	KindRemainder
	KindProduct
	KindSum
	KindField
	KindOptField
	KindNamed
	KindList
	KindCompoundList
	KindTaggedChoice
	KindPoint
)

var kindNames = [...]string{"", "bool", "int", "float", "str", "unit", "rest",
	"and", "or", "field", "opt", "named", "list", "map", "choice", "point"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// bounds returns the bounds of the optics focusing the children of a type of kind k.
// Recursion points may refer to any kind.
func (k Kind) bounds() optic.Bounds {
	switch k {
	case KindProduct, KindNamed:
		return optic.LensBounds
	case KindSum, KindOptField, KindTaggedChoice:
		return optic.PrismBounds
	case KindList, KindCompoundList, KindPoint:
		return optic.TraversalBounds
	}
	return 0
}

// Prim returns whether k is a primitive kind.
func (k Kind) Prim() bool { return k >= KindBool && k <= KindString }

// IsNotFound returns whether err means a rule does not apply or a search found nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound) || errors.Is(err, ErrNotFound)
}
