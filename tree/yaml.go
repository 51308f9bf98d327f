package tree

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YAML is the adapter for yaml.v3 node trees. Mappings keep their key order and merged keys are
// appended. Document nodes are unwrapped and nil is the empty value.
var YAML Ops = yamlOps{}

type yamlOps struct{}

func ynode(v interface{}) *yaml.Node {
	n, _ := v.(*yaml.Node)
	for n != nil && (n.Kind == yaml.DocumentNode || n.Kind == yaml.AliasNode) {
		if n.Kind == yaml.AliasNode {
			n = n.Alias
		} else if len(n.Content) > 0 {
			n = n.Content[0]
		} else {
			return nil
		}
	}
	return n
}

func scalar(tag, val string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val}
}

func (yamlOps) Empty() interface{}     { return nil }
func (yamlOps) EmptyMap() interface{}  { return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"} }
func (yamlOps) EmptyList() interface{} { return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"} }
func (yamlOps) IsEmpty(v interface{}) bool {
	n := ynode(v)
	return n == nil || n.Kind == yaml.MappingNode && len(n.Content) == 0
}

func (yamlOps) CreateBool(b bool) interface{} {
	return scalar("!!bool", strconv.FormatBool(b))
}
func (yamlOps) CreateInt(i int64) interface{} {
	return scalar("!!int", strconv.FormatInt(i, 10))
}
func (yamlOps) CreateFloat(f float64) interface{} {
	var s string
	switch {
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	case math.IsNaN(f):
		s = ".nan"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
		// whole numbers would resolve as int
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
	}
	return scalar("!!float", s)
}
func (yamlOps) CreateString(s string) interface{} { return scalar("!!str", s) }

func (yamlOps) Bool(v interface{}) (res bool, _ bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!bool" {
		return false, false
	}
	err := n.Decode(&res)
	return res, err == nil
}
func (yamlOps) Int(v interface{}) (res int64, _ bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, false
	}
	err := n.Decode(&res)
	return res, err == nil
}
func (yamlOps) Float(v interface{}) (res float64, _ bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, false
	}
	if t := n.ShortTag(); t != "!!float" && t != "!!int" {
		return 0, false
	}
	err := n.Decode(&res)
	return res, err == nil
}
func (yamlOps) String(v interface{}) (string, bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", false
	}
	return n.Value, true
}

func (yamlOps) CreateList(vs []interface{}) interface{} {
	res := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	res.Content = make([]*yaml.Node, 0, len(vs))
	for _, v := range vs {
		res.Content = append(res.Content, orNull(v))
	}
	return res
}
func (yamlOps) List(v interface{}) ([]interface{}, bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil, false
	}
	res := make([]interface{}, 0, len(n.Content))
	for _, c := range n.Content {
		res = append(res, c)
	}
	return res, true
}

func (yamlOps) CreateMap(es []Entry) interface{} {
	res := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range es {
		res.Content = append(res.Content, scalar("!!str", e.Key), orNull(e.Val))
	}
	return res
}
func (yamlOps) Map(v interface{}) ([]Entry, bool) {
	n := ynode(v)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	res := make([]Entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		res = append(res, Entry{n.Content[i].Value, n.Content[i+1]})
	}
	return res, true
}
func (yamlOps) Get(m interface{}, key string) (interface{}, bool) {
	n := ynode(m)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1], true
		}
	}
	return nil, false
}
func (yamlOps) Remove(m interface{}, key string) interface{} {
	n := ynode(m)
	if n == nil || n.Kind != yaml.MappingNode {
		return m
	}
	res := &yaml.Node{Kind: yaml.MappingNode, Tag: n.Tag, Style: n.Style}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != key {
			res.Content = append(res.Content, n.Content[i], n.Content[i+1])
		}
	}
	return res
}
func (o yamlOps) MergeKey(m interface{}, key string, v interface{}) (interface{}, error) {
	n, err := o.mapOrEmpty(m)
	if err != nil {
		return nil, err
	}
	res := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	set := false
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			res.Content = append(res.Content, n.Content[i], orNull(v))
			set = true
		} else {
			res.Content = append(res.Content, n.Content[i], n.Content[i+1])
		}
	}
	if !set {
		res.Content = append(res.Content, scalar("!!str", key), orNull(v))
	}
	return res, nil
}
func (o yamlOps) MergeMaps(a, b interface{}) (interface{}, error) {
	na, err := o.mapOrEmpty(a)
	if err != nil {
		return nil, err
	}
	nb, err := o.mapOrEmpty(b)
	if err != nil {
		return nil, err
	}
	var res interface{} = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: na.Content}
	for i := 0; i+1 < len(nb.Content); i += 2 {
		res, err = o.MergeKey(res, nb.Content[i].Value, nb.Content[i+1])
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (yamlOps) mapOrEmpty(v interface{}) (*yaml.Node, error) {
	n := ynode(v)
	if n == nil {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrNotMap, "got yaml node kind %d", n.Kind)
	}
	return n, nil
}

func orNull(v interface{}) *yaml.Node {
	if n := ynode(v); n != nil {
		return n
	}
	return scalar("!!null", "null")
}
