package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMapOrderAndAccessors(t *testing.T) {
	m := NewMap()
	m.Set("b", String("two"))
	m.Set("a", Int(1))
	m.Set("b", String("updated"))

	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "updated", m.StringOr("b", ""))
	assert.Equal(t, "1", m.StringOr("a", ""))
	assert.Equal(t, "fallback", m.StringOr("missing", "fallback"))

	m.Set("list", List(String("x")))
	assert.Equal(t, "fallback", m.StringOr("list", "fallback"))

	m.Delete("b")
	assert.Equal(t, []string{"a", "list"}, m.Keys())
	assert.False(t, m.Has("b"))
}

func TestNilMapIsEmpty(t *testing.T) {
	var m *Map
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("x"))
	assert.Nil(t, m.Keys())
	assert.Equal(t, "d", m.StringOr("x", "d"))
}

func TestSortedIsDeep(t *testing.T) {
	inner := NewMap()
	inner.Set("z", Bool(true))
	inner.Set("a", Bool(false))

	m := NewMap()
	m.Set("y", MapValue(inner))
	m.Set("x", Null())

	sorted := m.Sorted()
	assert.Equal(t, []string{"x", "y"}, sorted.Keys())
	sortedInner, ok := sorted.GetOr("y", Null()).AsMap()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "z"}, sortedInner.Keys())

	// original is untouched
	assert.Equal(t, []string{"y", "x"}, m.Keys())
	assert.Equal(t, []string{"z", "a"}, inner.Keys())
}

func TestValueEqual(t *testing.T) {
	a := NewMap()
	a.Set("k", List(String("v"), Int(2)))
	b := NewMap()
	b.Set("k", List(String("v"), Int(2)))

	assert.True(t, MapValue(a).Equal(MapValue(b)))
	assert.False(t, String("1").Equal(Int(1)))
	assert.True(t, Null().Equal(Value{}))
}

func TestValueYAMLInterfaces(t *testing.T) {
	var m Map
	require.NoError(t, yaml.Unmarshal([]byte("tools: [Read, Write]\ncount: 3\n"), &m))
	assert.Equal(t, []string{"tools", "count"}, m.Keys())

	out, err := yaml.Marshal(&m)
	require.NoError(t, err)
	assert.Contains(t, string(out), "count: 3\n")

	var again Map
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.True(t, m.Equal(&again))
	assert.Equal(t, m.Keys(), again.Keys())

	var v Value
	require.NoError(t, yaml.Unmarshal([]byte("[1, 2.5, yes, ~]"), &v))
	items, ok := v.AsList()
	require.True(t, ok)
	require.Len(t, items, 4)
	assert.Equal(t, KindInt, items[0].Kind())
	assert.Equal(t, KindFloat, items[1].Kind())
	// yaml.v3 follows YAML 1.2: "yes" is a string
	assert.Equal(t, KindString, items[2].Kind())
	assert.True(t, items[3].IsNull())
}

func TestMapUnmarshalRejectsScalars(t *testing.T) {
	var m Map
	err := yaml.Unmarshal([]byte("just a string"), &m)
	require.Error(t, err)
}
