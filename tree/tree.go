/*
Package tree provides adapters over generic tree-shaped serialized values.

The migration engine never looks at a concrete wire format. Types read and write values only
through the primitive operations of an Ops implementation. Two adapters are provided: Native works
on plain go values as produced by encoding/json and YAML works on yaml.v3 nodes.

All operations are non-destructive, inputs are never modified. Map operations return a new map.
*/
package tree

import (
	"github.com/pkg/errors"
)

// ErrNotMap is returned by merge operations, when the receiver is neither a map nor empty.
var ErrNotMap = errors.New("not a map")

// ErrNotEmpty is returned when a primitive or list is merged into a non-empty rest value.
var ErrNotEmpty = errors.New("rest not empty")

// Entry is one key value pair of a map node.
type Entry struct {
	Key string
	Val interface{}
}

// Ops is the adapter interface over a generic serialized tree.
type Ops interface {
	// Empty returns the empty value, that is used as initial rest for writes.
	Empty() interface{}
	EmptyMap() interface{}
	EmptyList() interface{}
	// IsEmpty returns whether v is the empty value or an empty map.
	IsEmpty(v interface{}) bool

	CreateBool(bool) interface{}
	CreateInt(int64) interface{}
	CreateFloat(float64) interface{}
	CreateString(string) interface{}
	Bool(v interface{}) (bool, bool)
	Int(v interface{}) (int64, bool)
	Float(v interface{}) (float64, bool)
	String(v interface{}) (string, bool)

	CreateList([]interface{}) interface{}
	List(v interface{}) ([]interface{}, bool)

	CreateMap([]Entry) interface{}
	// Map returns the entries of map v. Unordered maps return entries sorted by key.
	Map(v interface{}) ([]Entry, bool)
	Get(m interface{}, key string) (interface{}, bool)
	Remove(m interface{}, key string) interface{}
	// MergeKey returns map m with key set to v. An empty m is treated as empty map.
	MergeKey(m interface{}, key string, v interface{}) (interface{}, error)
	// MergeMaps returns a map with all entries of a and b, b wins on conflict.
	MergeMaps(a, b interface{}) (interface{}, error)
}

// MergePrim returns v if rest is empty or an ErrNotEmpty error.
func MergePrim(ops Ops, rest, v interface{}) (interface{}, error) {
	if !ops.IsEmpty(rest) {
		return nil, errors.Wrapf(ErrNotEmpty, "merge %v", v)
	}
	return v, nil
}
