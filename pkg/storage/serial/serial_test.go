package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

func TestContentSize(t *testing.T) {
	tests := []struct {
		code int64
		size int
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 6}, {6, 8}, {7, 8},
		{8, 0}, {9, 0},
		{12, 0}, {14, 1}, {18, 3},
		{13, 0}, {15, 1}, {19, 3},
	}

	for _, tt := range tests {
		size, err := ContentSize(tt.code)
		require.NoError(t, err, "code %d", tt.code)
		assert.Equal(t, tt.size, size, "code %d", tt.code)
	}
}

func TestContentSizeReservedCodes(t *testing.T) {
	for _, code := range []int64{10, 11, -1} {
		_, err := ContentSize(code)
		require.Error(t, err, "code %d", code)
		assert.True(t, dberr.Is(err, dberr.Corrupt), "code %d", code)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		code int64
		data []byte
		want types.Value
	}{
		{"null", 0, nil, types.NewNull()},
		{"int8 positive", 1, []byte{0x7f}, types.NewInt(127)},
		{"int8 negative", 1, []byte{0xff}, types.NewInt(-1)},
		{"int16", 2, []byte{0x01, 0x00}, types.NewInt(256)},
		{"int24 negative", 3, []byte{0xff, 0xff, 0xff}, types.NewInt(-1)},
		{"int24", 3, []byte{0x01, 0x00, 0x00}, types.NewInt(65536)},
		{"int32", 4, []byte{0x00, 0x00, 0x00, 0x2a}, types.NewInt(42)},
		{"int48", 5, []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00}, types.NewInt(256)},
		{"int64", 6, []byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, types.NewInt(1<<63 - 1)},
		{"real", 7, []byte{0x40, 0x09, 0x21, 0xca, 0xc0, 0x83, 0x12, 0x6f}, types.NewReal(3.1415)},
		{"literal zero", 8, nil, types.NewInt(0)},
		{"literal one", 9, nil, types.NewInt(1)},
		{"empty text", 13, nil, types.NewText("")},
		{"text", 19, []byte("Ten"), types.NewText("Ten")},
		{"blob", 18, []byte{0x00, 0x01, 0xff}, types.NewBlob([]byte{0, 1, 255})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.code, tt.data)
			require.NoError(t, err)
			assert.True(t, tt.want.Equals(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, err := Decode(4, []byte{0x00, 0x01})
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))
}

func TestDecodeInvalidUTF8(t *testing.T) {
	_, err := Decode(15, []byte{0xff})
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))
}

func TestAppendChoosesNarrowestCode(t *testing.T) {
	tests := []struct {
		name     string
		value    types.Value
		wantCode byte
		wantBody int
	}{
		{"zero", types.NewInt(0), 8, 0},
		{"one", types.NewInt(1), 9, 0},
		{"int8", types.NewInt(-5), 1, 1},
		{"int16", types.NewInt(1000), 2, 2},
		{"int24", types.NewInt(100000), 3, 3},
		{"int32", types.NewInt(1 << 24), 4, 4},
		{"int48", types.NewInt(1 << 40), 5, 6},
		{"int64", types.NewInt(1 << 60), 6, 8},
		{"real", types.NewReal(3.5), 7, 8},
		{"whole real stored as int", types.NewReal(2), 1, 1},
		{"null", types.NewNull(), 0, 0},
		{"bool true", types.NewBool(true), 9, 0},
		{"text", types.NewText("abc"), 19, 3},
		{"blob", types.NewBlob([]byte{1, 2}), 16, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, payload, err := Append(nil, nil, tt.value)
			require.NoError(t, err)
			require.Len(t, header, 1)
			assert.Equal(t, tt.wantCode, header[0])
			assert.Len(t, payload, tt.wantBody)
		})
	}
}

func TestAppendDecodeRoundTrip(t *testing.T) {
	values := []types.Value{
		types.NewNull(),
		types.NewInt(0),
		types.NewInt(1),
		types.NewInt(-1),
		types.NewInt(1<<63 - 1),
		types.NewInt(-1 << 63),
		types.NewReal(3.25),
		types.NewText("hello, world"),
		types.NewBlob([]byte{0xde, 0xad, 0xbe, 0xef}),
	}

	for _, v := range values {
		header, payload, err := Append(nil, nil, v)
		require.NoError(t, err)

		var code int64
		for _, b := range header {
			code = code<<7 | int64(b&0x7f)
		}

		got, err := Decode(code, payload)
		require.NoError(t, err, "value %v", v)
		assert.True(t, v.Equals(got), "want %v, got %v", v, got)
	}
}
