package frontmatter

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind int

// Value kinds
const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

// String returns the YAML-ish name of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a node of a decoded front matter tree. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	list []Value
	m    *Map
}

// Null returns the null value
func Null() Value { return Value{} }

// String returns a string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value holding items in order
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// MapValue wraps m as a Value. A nil map is stored as an empty one.
func MapValue(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind reports the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a string, number, bool or null
func (v Value) IsScalar() bool {
	return v.kind != KindList && v.kind != KindMap
}

// AsString returns the string held by v, if v is a string
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsInt returns the integer held by v, if v is an int
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsFloat returns the float held by v, if v is a float
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsBool returns the bool held by v, if v is a bool
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsList returns the items held by v, if v is a list
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsMap returns the map held by v, if v is a map
func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Text renders a scalar as plain text. Lists and maps yield "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Native converts v into plain Go values (string, int64, float64, bool,
// []any, map[string]any, nil).
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		return v.m.Native()
	default:
		return nil
	}
}

// Equal reports deep equality
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	}
	return false
}

// MarshalYAML implements yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	return v.node(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := fromNode(node, 0)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func (v Value) node() *yaml.Node {
	switch v.kind {
	case KindString:
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
		switch {
		case strings.Contains(v.str, "\n"):
			n.Style = yaml.LiteralStyle
		case isYAML11Bool(v.str):
			n.Style = yaml.DoubleQuotedStyle
		}
		return n
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.Text()}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(v.f)}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.Text()}
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			n.Content = append(n.Content, item.node())
		}
		return n
	case KindMap:
		return v.m.node()
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// isYAML11Bool reports whether s would be read back as a bool by a YAML 1.1
// parser, which yaml.v3 does not quote on its own
func isYAML11Bool(s string) bool {
	switch strings.ToLower(s) {
	case "y", "n", "yes", "no", "on", "off":
		return true
	}
	return false
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// maxDepth bounds alias expansion so self-referencing anchors cannot recurse forever
const maxDepth = 100

func fromNode(node *yaml.Node, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, errors.New("front matter nested too deeply")
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return fromNode(node.Content[0], depth+1)
	case yaml.AliasNode:
		if node.Alias == nil {
			return Null(), nil
		}
		return fromNode(node.Alias, depth+1)
	case yaml.ScalarNode:
		return scalarFromNode(node)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := fromNode(child, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, list: items}, nil
	case yaml.MappingNode:
		m := NewMap()
		// merged entries go in first so explicit keys override them
		for i := 0; i+1 < len(node.Content); i += 2 {
			if isMergeKey(node.Content[i]) {
				if err := mergeInto(m, node.Content[i+1], depth+1); err != nil {
					return Value{}, err
				}
			}
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			if isMergeKey(keyNode) {
				continue
			}
			if keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
				keyNode = keyNode.Alias
			}
			if keyNode.Kind != yaml.ScalarNode {
				return Value{}, errors.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			val, err := fromNode(node.Content[i+1], depth+1)
			if err != nil {
				return Value{}, err
			}
			m.Set(keyNode.Value, val)
		}
		return MapValue(m), nil
	default:
		return Null(), nil
	}
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!merge"
}

// mergeInto copies the entries of a `<<` value into m. In a sequence of
// mappings the earlier ones take precedence.
func mergeInto(m *Map, node *yaml.Node, depth int) error {
	if depth > maxDepth {
		return errors.New("front matter nested too deeply")
	}
	if node.Kind == yaml.SequenceNode {
		for i := len(node.Content) - 1; i >= 0; i-- {
			if err := mergeInto(m, node.Content[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := fromNode(node, depth)
	if err != nil {
		return err
	}
	src, ok := v.AsMap()
	if !ok {
		return errors.Errorf("line %d: merge value must be a mapping", node.Line)
	}
	for _, k := range src.Keys() {
		val, _ := src.Get(k)
		m.Set(k, val)
	}
	return nil
}

func scalarFromNode(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, errors.Wrapf(err, "line %d: invalid bool", node.Line)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			// Out of int64 range: keep the literal text
			return String(node.Value), nil
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, errors.Wrapf(err, "line %d: invalid float", node.Line)
		}
		return Float(f), nil
	default:
		return String(node.Value), nil
	}
}

// Map is an insertion-ordered mapping from string keys to Values.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap creates an empty map
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (m *Map) Set(key string, v Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value under key
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// GetOr returns the value under key, or def when the key is absent.
// A key that is present with a null value returns null, not def.
func (m *Map) GetOr(key string, def Value) Value {
	if v, ok := m.Get(key); ok {
		return v
	}
	return def
}

// StringOr returns the scalar text under key, or def when the key is absent
// or holds a list, map or null.
func (m *Map) StringOr(key, def string) string {
	v, ok := m.Get(key)
	if !ok || v.IsNull() || !v.IsScalar() {
		return def
	}
	return v.Text()
}

// Has reports whether key is present
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key
func (m *Map) Delete(key string) {
	if !m.Has(key) {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Native converts the map into map[string]any
func (m *Map) Native() map[string]any {
	out := make(map[string]any, m.Len())
	for _, k := range m.Keys() {
		out[k] = m.values[k].Native()
	}
	return out
}

// Equal reports deep equality, ignoring key order
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, k := range m.Keys() {
		ov, ok := other.Get(k)
		if !ok || !m.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// Sorted returns a deep copy whose keys, at every level, are in lexical order
func (m *Map) Sorted() *Map {
	out := NewMap()
	keys := m.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		out.Set(k, sortedValue(m.values[k]))
	}
	return out
}

func sortedValue(v Value) Value {
	switch v.kind {
	case KindMap:
		return MapValue(v.m.Sorted())
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = sortedValue(item)
		}
		return Value{kind: KindList, list: items}
	default:
		return v
	}
}

// MarshalYAML implements yaml.Marshaler
func (m *Map) MarshalYAML() (interface{}, error) {
	return m.node(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	v, err := fromNode(node, 0)
	if err != nil {
		return err
	}
	switch v.kind {
	case KindNull:
		*m = *NewMap()
	case KindMap:
		*m = *v.m
	default:
		return errors.Errorf("expected a mapping, got %s", v.kind)
	}
	return nil
}

func (m *Map) node() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.Keys() {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			m.values[k].node(),
		)
	}
	return n
}
