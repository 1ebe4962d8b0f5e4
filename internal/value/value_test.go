package value

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"name":  "cat",
		"age":   3,
		"tags":  []any{"a", true, nil},
		"photo": []byte{1, 2, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind())

	age, ok := v.Field("age")
	require.True(t, ok)
	assert.Equal(t, KindNumber, age.Kind())
	assert.InDelta(t, 3.0, age.Num(), 0)

	tags, _ := v.Field("tags")
	require.Len(t, tags.Items(), 3)
	assert.True(t, tags.Items()[2].IsNull())

	photo, _ := v.Field("photo")
	assert.Equal(t, KindBinary, photo.Kind())
	assert.Equal(t, []byte{1, 2, 3}, photo.Bytes())

	_, err = FromAny(struct{}{})
	require.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	in := MustFromAny(map[string]any{
		"title": "héllo",
		"n":     1.5,
		"ok":    false,
		"nested": map[string]any{
			"img": []byte("\x89PNG"),
		},
		"list": []any{"x", 2},
	})

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"$binary"`)

	var out Value
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, Equal(in, out), "got %s", b)
}

func TestJSONEmptyBinary(t *testing.T) {
	b, err := json.Marshal(Binary(nil))
	require.NoError(t, err)

	var out Value
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, KindBinary, out.Kind())
	assert.Empty(t, out.Bytes())
}

func TestJSONReservedKeys(t *testing.T) {
	for name, in := range map[string]Value{
		"binary key":  Map(map[string]Value{"$binary": String("aGk=")}),
		"literal key": Map(map[string]Value{"$map": Map(map[string]Value{"a": Int(1)})}),
		"nested": Map(map[string]Value{
			"field": Map(map[string]Value{"$binary": String("aGk=")}),
		}),
		"with siblings": Map(map[string]Value{"$binary": String("aGk="), "x": Bool(true)}),
	} {
		t.Run(name, func(t *testing.T) {
			b, err := json.Marshal(in)
			require.NoError(t, err)

			var out Value
			require.NoError(t, json.Unmarshal(b, &out))
			assert.True(t, Equal(in, out), "got %s", b)
		})
	}
}

func TestFromAny_KeepsEnvelopeShapedMaps(t *testing.T) {
	v, err := FromAny(map[string]any{"$binary": "aGk="})
	require.NoError(t, err)
	assert.Equal(t, KindMap, v.Kind())
}

func TestEqual(t *testing.T) {
	a := MustFromAny(map[string]any{"a": 1, "b": []any{"x"}})
	b := MustFromAny(map[string]any{"a": 1, "b": []any{"x"}})
	c := MustFromAny(map[string]any{"a": 1, "b": []any{"y"}})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(String("1"), Int(1)))
	assert.True(t, Equal(Null(), Value{}))
}

func TestMerge(t *testing.T) {
	base := MustFromAny(map[string]any{
		"a":      1,
		"b":      2,
		"nested": map[string]any{"x": 1, "y": 2},
	})
	patch := MustFromAny(map[string]any{
		"b":      3,
		"nested": map[string]any{"x": 9},
	})

	got := Merge(base, patch)
	want := MustFromAny(map[string]any{
		"a":      1,
		"b":      3,
		"nested": map[string]any{"x": 9},
	})
	assert.True(t, Equal(want, got))

	// base is untouched
	b, _ := base.Field("b")
	assert.InDelta(t, 2.0, b.Num(), 0)

	// non-map patch replaces wholesale
	assert.True(t, Equal(String("z"), Merge(base, String("z"))))
}

func TestTransform(t *testing.T) {
	in := MustFromAny(map[string]any{
		"a":    []byte("aaaa"),
		"list": []any{[]byte("bb"), "text"},
	})

	var seen int
	out, err := Transform(in, func(p []byte) ([]byte, error) {
		seen++
		return p[:1], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)

	a, _ := out.Field("a")
	assert.Equal(t, []byte("a"), a.Bytes())
	list, _ := out.Field("list")
	assert.Equal(t, []byte("b"), list.Items()[0].Bytes())
	assert.Equal(t, "text", list.Items()[1].Str())

	// original unchanged
	orig, _ := in.Field("a")
	assert.Equal(t, []byte("aaaa"), orig.Bytes())

	boom := errors.New("boom")
	_, err = Transform(in, func([]byte) ([]byte, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}
