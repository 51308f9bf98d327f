// Package val declares the runtime values of decoded schema types.
//
// Products, named values, tagged choices and map entries are pairs, sums are eithers and optional
// fields are options. Lists are []interface{} and primitives are bool, int64, float64 and string.
package val

import "fmt"

// Pair is a value with two components.
type Pair struct {
	First  interface{}
	Second interface{}
}

// P returns a pair of a and b.
func P(a, b interface{}) Pair { return Pair{a, b} }

func (p Pair) String() string { return fmt.Sprintf("(%v, %v)", p.First, p.Second) }

// Either holds either a left or a right value.
type Either struct {
	Right bool
	Val   interface{}
}

func Left(v interface{}) Either  { return Either{false, v} }
func Right(v interface{}) Either { return Either{true, v} }

func (e Either) String() string {
	if e.Right {
		return fmt.Sprintf("right(%v)", e.Val)
	}
	return fmt.Sprintf("left(%v)", e.Val)
}

// Unit is the only value of the unit type.
type Unit struct{}

func (Unit) String() string { return "()" }

// Opt is an optional value.
type Opt struct {
	Val interface{}
	Ok  bool
}

// Some returns a present option of v.
func Some(v interface{}) Opt { return Opt{v, true} }

// None returns an absent option.
func None() Opt { return Opt{} }

func (o Opt) String() string {
	if !o.Ok {
		return "none"
	}
	return fmt.Sprintf("some(%v)", o.Val)
}
