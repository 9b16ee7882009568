package socket_test

import (
	"testing"

	"github.com/nodeflowgo/nodeflow/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValueBoxesSupportedTypes(t *testing.T) {
	cases := []any{
		42,
		3.14,
		"hello",
		true,
		[]int{1, 2, 3},
		map[string]any{"a": 1.0, "b": "two"},
	}

	for _, c := range cases {
		v, err := socket.FromValue(c)
		require.NoError(t, err)
		assert.False(t, v.IsNull())
	}
}

func TestRoundTripInt(t *testing.T) {
	v, err := socket.FromValue(7)
	require.NoError(t, err)

	got, err := socket.To[int](v)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestRoundTripStruct(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	p := point{X: 1, Y: 2}
	v, err := socket.FromValue(p)
	require.NoError(t, err)

	got, err := socket.To[point](v)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestNullYieldsZeroValue(t *testing.T) {
	got, err := socket.To[int](socket.Null)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	gotStr, err := socket.To[string](socket.Null)
	require.NoError(t, err)
	assert.Equal(t, "", gotStr)
}

func TestFromNilIsNull(t *testing.T) {
	v, err := socket.FromValue(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDecodeErrorOnTypeMismatch(t *testing.T) {
	v, err := socket.FromValue("not a number")
	require.NoError(t, err)

	_, err = socket.To[int](v)
	require.Error(t, err)
	var decodeErr *socket.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestOrderInsensitiveRoundTrip(t *testing.T) {
	a := map[string]any{"x": 1.0, "y": 2.0}
	b := map[string]any{"y": 2.0, "x": 1.0}

	va, err := socket.FromValue(a)
	require.NoError(t, err)
	vb, err := socket.FromValue(b)
	require.NoError(t, err)

	gotA, err := socket.To[map[string]any](va)
	require.NoError(t, err)
	gotB, err := socket.To[map[string]any](vb)
	require.NoError(t, err)

	assert.Equal(t, gotA, gotB)
}
