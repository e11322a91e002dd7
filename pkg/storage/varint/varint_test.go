package varint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/dberr"
)

func TestRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, 2, 127, 128, 129, 240, 255, 256,
		16383, 16384, 2097151, 2097152,
		268435455, 268435456,
		1<<35 - 1, 1 << 35,
		1<<42 - 1, 1 << 42,
		1<<49 - 1, 1 << 49,
		1<<56 - 1, 1 << 56,
		1<<63 - 1,
		-1, // encodes as 9 bytes of all ones
	}

	for _, v := range values {
		buf := Append(nil, v)
		require.Equal(t, Length(v), len(buf), "Length disagrees with Append for %d", v)
		require.LessOrEqual(t, len(buf), MaxLen)

		got, n, err := Read(buf)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got, "value %d", v)
		assert.Equal(t, len(buf), n, "value %d", v)
	}
}

func TestReadConsumesPrefixOnly(t *testing.T) {
	buf := Append(nil, int64(300))
	buf = append(buf, 0xde, 0xad)

	v, n, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(300), v)
	assert.Equal(t, 2, n)
}

func TestKnownEncodings(t *testing.T) {
	tests := []struct {
		value int64
		bytes []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x00}},
		{283, []byte{0x82, 0x1b}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x81, 0x80, 0x00}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.bytes, Append(nil, tt.value), "value %d", tt.value)
	}
}

func TestReadTruncated(t *testing.T) {
	_, _, err := Read(nil)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))

	// Continuation bit set on every available byte.
	_, _, err = Read([]byte{0x80, 0x80})
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))

	// Eight continuation bytes but no ninth.
	_, _, err = Read([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80})
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))
}

func TestNineByteEncoding(t *testing.T) {
	buf := Append(nil, int64(-1))
	require.Len(t, buf, 9)

	v, n, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
	assert.Equal(t, 9, n)
}
