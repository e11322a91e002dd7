package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/dberr"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rows := []*tuple.Row{
		tuple.RowOf(types.NewInt(1)),
		tuple.RowOf(types.NewInt(1), types.NewInt(10)),
		tuple.RowOf(types.NewNull(), types.NewInt(0), types.NewInt(1)),
		tuple.RowOf(types.NewText("hello"), types.NewText("")),
		tuple.RowOf(types.NewReal(3.25), types.NewInt(-42)),
		tuple.RowOf(types.NewBlob([]byte{1, 2, 3}), types.NewText("mixed")),
		tuple.RowOf(types.NewInt(1<<62), types.NewInt(-1<<62)),
	}

	for _, row := range rows {
		payload, err := Encode(row)
		require.NoError(t, err)

		got, err := DecodeRaw(payload)
		require.NoError(t, err)
		assert.True(t, row.Equals(got), "round trip mismatch: want %v got %v", row, got)
	}
}

func TestDecodeAgainstSchema(t *testing.T) {
	desc, err := tuple.NewRowDescription(
		[]types.Type{types.IntType, types.RealType, types.TextType},
		[]string{"a", "b", "c"},
	)
	require.NoError(t, err)

	// SQLite stores 2.0 as integer 2; decoding against a REAL column
	// must surface a real.
	payload, err := Encode(tuple.RowOf(types.NewInt(1), types.NewReal(2), types.NewInt(3)))
	require.NoError(t, err)

	row, err := Decode(payload, desc)
	require.NoError(t, err)

	want := tuple.RowOf(types.NewInt(1), types.NewReal(2), types.NewText("3"))
	assert.True(t, want.Equals(row), "want %v got %v", want, row)
}

func TestDecodeColumnCountMismatch(t *testing.T) {
	desc, err := tuple.NewRowDescription(
		[]types.Type{types.IntType, types.IntType},
		[]string{"a", "b"},
	)
	require.NoError(t, err)

	payload, err := Encode(tuple.RowOf(types.NewInt(1)))
	require.NoError(t, err)

	_, err = Decode(payload, desc)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Corrupt))
}

func TestDecodeRawKnownBytes(t *testing.T) {
	// literal 0 | literal 1 | float 3.1415 | "Ten" | NULL
	payload := []byte{
		0x06, 0x08, 0x09, 0x07, 0x13, 0x00,
		0x40, 0x09, 0x21, 0xca, 0xc0, 0x83, 0x12, 0x6f,
		0x54, 0x65, 0x6e,
	}

	row, err := DecodeRaw(payload)
	require.NoError(t, err)

	want := tuple.RowOf(
		types.NewInt(0),
		types.NewInt(1),
		types.NewReal(3.1415),
		types.NewText("Ten"),
		types.NewNull(),
	)
	assert.True(t, want.Equals(row),
		"mismatch: %s", cmp.Diff(want.String(), row.String()))
}

func TestDecodeRawCorruption(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"header longer than payload", []byte{0x7f, 0x01}},
		{"reserved serial type", []byte{0x02, 0x0a}},
		{"body truncated", []byte{0x02, 0x04, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRaw(tt.payload)
			require.Error(t, err)
			assert.True(t, dberr.Is(err, dberr.Corrupt))
		})
	}
}

func TestEncodeNilValueIsNull(t *testing.T) {
	row := tuple.NewRow(1)

	payload, err := Encode(row)
	require.NoError(t, err)

	got, err := DecodeRaw(payload)
	require.NoError(t, err)
	assert.True(t, types.IsNull(got.Values()[0]))
}
