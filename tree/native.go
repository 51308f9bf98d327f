package tree

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Native is the adapter for plain go values as decoded by encoding/json.
// Maps are map[string]interface{}, lists []interface{} and nil is the empty value.
var Native Ops = native{}

type native struct{}

func (native) Empty() interface{}     { return nil }
func (native) EmptyMap() interface{}  { return map[string]interface{}{} }
func (native) EmptyList() interface{} { return []interface{}{} }
func (native) IsEmpty(v interface{}) bool {
	switch d := v.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(d) == 0
	}
	return false
}

func (native) CreateBool(b bool) interface{}     { return b }
func (native) CreateInt(n int64) interface{}     { return n }
func (native) CreateFloat(f float64) interface{} { return f }
func (native) CreateString(s string) interface{} { return s }
func (native) Bool(v interface{}) (b bool, ok bool) {
	b, ok = v.(bool)
	return
}
func (native) String(v interface{}) (s string, ok bool) {
	s, ok = v.(string)
	return
}
func (native) Int(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		// whole numbers in the int64 range, 1<<63 itself is out of range
		if n == math.Trunc(n) && n >= -(1<<63) && n < 1<<63 {
			return int64(n), true
		}
	}
	return 0, false
}
func (native) Float(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (native) CreateList(vs []interface{}) interface{} {
	res := make([]interface{}, len(vs))
	copy(res, vs)
	return res
}
func (native) List(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

func (native) CreateMap(es []Entry) interface{} {
	m := make(map[string]interface{}, len(es))
	for _, e := range es {
		m[e.Key] = e.Val
	}
	return m
}
func (native) Map(v interface{}) ([]Entry, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	res := make([]Entry, 0, len(m))
	for k, v := range m {
		res = append(res, Entry{k, v})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res, true
}
func (native) Get(m interface{}, key string) (interface{}, bool) {
	d, ok := m.(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := d[key]
	return v, ok
}
func (native) Remove(m interface{}, key string) interface{} {
	d, ok := m.(map[string]interface{})
	if !ok {
		return m
	}
	if _, ok = d[key]; !ok {
		return m
	}
	res := make(map[string]interface{}, len(d))
	for k, v := range d {
		if k != key {
			res[k] = v
		}
	}
	return res
}
func (n native) MergeKey(m interface{}, key string, v interface{}) (interface{}, error) {
	d, err := n.mapOrEmpty(m)
	if err != nil {
		return nil, err
	}
	res := make(map[string]interface{}, len(d)+1)
	for k, v := range d {
		res[k] = v
	}
	res[key] = v
	return res, nil
}
func (n native) MergeMaps(a, b interface{}) (interface{}, error) {
	da, err := n.mapOrEmpty(a)
	if err != nil {
		return nil, err
	}
	db, err := n.mapOrEmpty(b)
	if err != nil {
		return nil, err
	}
	res := make(map[string]interface{}, len(da)+len(db))
	for k, v := range da {
		res[k] = v
	}
	for k, v := range db {
		res[k] = v
	}
	return res, nil
}

func (native) mapOrEmpty(v interface{}) (map[string]interface{}, error) {
	switch d := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return d, nil
	}
	return nil, errors.Wrapf(ErrNotMap, "got %T", v)
}
