package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"Nil", nil, Null{}},
		{"String", "hello", String("hello")},
		{"Bool", true, Bool(true)},
		{"Float", 1.5, Number(1.5)},
		{"Int", 42, Number(42)},
		{"JSONNumber", json.Number("7"), Number(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAny_Nested(t *testing.T) {
	got, err := FromAny(map[string]any{
		"tags":  []any{"a", "b"},
		"meta":  map[string]any{"depth": 2.0},
		"empty": nil,
	})
	require.NoError(t, err)

	obj, ok := got.(Object)
	require.True(t, ok)
	assert.Equal(t, List{String("a"), String("b")}, obj["tags"])
	assert.Equal(t, Object{"depth": Number(2)}, obj["meta"])
	assert.Equal(t, Null{}, obj["empty"])
}

func TestFromAny_UnsupportedType(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)
}

func TestObject_SortedKeys(t *testing.T) {
	obj := Object{"b": Number(1), "a": Number(2), "c": Number(3)}
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
}

func TestObject_Clone_Isolated(t *testing.T) {
	original := Object{
		"list": List{Number(1)},
		"obj":  Object{"inner": String("x")},
	}

	clone := original.Clone()
	clone["list"].(List)[0] = Number(99)
	clone["obj"].(Object)["inner"] = String("y")

	assert.Equal(t, Number(1), original["list"].(List)[0])
	assert.Equal(t, String("x"), original["obj"].(Object)["inner"])
}

func TestObject_JSONRoundTrip(t *testing.T) {
	original := Object{
		"name":   String("chair"),
		"price":  Number(12.5),
		"active": Bool(true),
		"tags":   List{String("a"), Number(1)},
		"extra":  Null{},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Object
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}
