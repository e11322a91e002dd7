// Package serial implements the SQLite record serial-type codes that
// describe how each column value is stored inside a record body.
package serial

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"litedb/pkg/dberr"
	"litedb/pkg/storage/varint"
	"litedb/pkg/types"
)

// ContentSize returns the number of body bytes a value with the given
// serial-type code occupies. Codes 10 and 11 are reserved and negative
// codes cannot appear in a well-formed file; both fail with Corrupt.
func ContentSize(code int64) (int, error) {
	switch {
	case code == 0, code == 8, code == 9:
		return 0, nil
	case code >= 1 && code <= 4:
		return int(code), nil
	case code == 5:
		return 6, nil
	case code == 6, code == 7:
		return 8, nil
	case code == 10, code == 11:
		return 0, dberr.Newf(dberr.Corrupt, "reserved serial type code %d", code)
	case code >= 12:
		if code%2 == 0 {
			return int(code-12) / 2, nil
		}
		return int(code-13) / 2, nil
	default:
		return 0, dberr.Newf(dberr.Corrupt, "invalid serial type code %d", code)
	}
}

// Decode interprets data, whose length must equal ContentSize(code),
// as the storage-class value the code describes.
func Decode(code int64, data []byte) (types.Value, error) {
	size, err := ContentSize(code)
	if err != nil {
		return nil, err
	}
	if len(data) < size {
		return nil, dberr.Newf(dberr.Corrupt, "serial type %d needs %d bytes, have %d", code, size, len(data))
	}
	data = data[:size]

	switch {
	case code == 0:
		return types.NewNull(), nil
	case code >= 1 && code <= 6:
		return types.NewInt(readTwosComplement(data)), nil
	case code == 7:
		return types.NewReal(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
	case code == 8:
		return types.NewInt(0), nil
	case code == 9:
		return types.NewInt(1), nil
	case code >= 12 && code%2 == 0:
		blob := make([]byte, len(data))
		copy(blob, data)
		return types.NewBlob(blob), nil
	default: // code >= 13, odd
		if !utf8.Valid(data) {
			return nil, dberr.New(dberr.Corrupt, "text value is not valid UTF-8")
		}
		return types.NewText(string(data)), nil
	}
}

// readTwosComplement sign-extends a 1..8 byte big-endian
// twos-complement integer to int64.
func readTwosComplement(data []byte) int64 {
	var x int64
	if len(data) > 0 && data[0]&0x80 != 0 {
		x = -1
	}
	for _, b := range data {
		x = x<<8 | int64(b)
	}
	return x
}

// Append encodes v at its narrowest serial type, appending the type
// code to header and the body bytes to payload. Booleans are stored as
// integers; reals with a zero fraction are stored as integers, the way
// SQLite does.
func Append(header, payload []byte, v types.Value) ([]byte, []byte, error) {
	switch val := types.Normalize(v).(type) {
	case types.NullValue:
		return append(header, 0), payload, nil
	case types.IntValue:
		return appendInt(header, payload, val.Value)
	case types.RealValue:
		if i := int64(val.Value); val.Value == float64(i) {
			return appendInt(header, payload, i)
		}
		header = append(header, 7)
		payload = binary.BigEndian.AppendUint64(payload, math.Float64bits(val.Value))
		return header, payload, nil
	case types.TextValue:
		header = varint.Append(header, 2*int64(len(val.Value))+13)
		payload = append(payload, val.Value...)
		return header, payload, nil
	case types.BlobValue:
		header = varint.Append(header, 2*int64(len(val.Value))+12)
		payload = append(payload, val.Value...)
		return header, payload, nil
	default:
		return nil, nil, dberr.Newf(dberr.Internal, "value %v has no storage class", v)
	}
}

func appendInt(header, payload []byte, i int64) ([]byte, []byte, error) {
	switch {
	case i == 0:
		return append(header, 8), payload, nil
	case i == 1:
		return append(header, 9), payload, nil
	case i >= -0x80 && i <= 0x7f:
		return append(header, 1), append(payload, byte(i)), nil
	case i >= -0x8000 && i <= 0x7fff:
		return append(header, 2), append(payload, byte(i>>8), byte(i)), nil
	case i >= -0x80_0000 && i <= 0x7f_ffff:
		return append(header, 3), append(payload, byte(i>>16), byte(i>>8), byte(i)), nil
	case i >= -0x8000_0000 && i <= 0x7fff_ffff:
		return append(header, 4), append(payload, byte(i>>24), byte(i>>16), byte(i>>8), byte(i)), nil
	case i >= -0x8000_0000_0000 && i <= 0x7fff_ffff_ffff:
		return append(header, 5), append(payload, byte(i>>40), byte(i>>32), byte(i>>24), byte(i>>16), byte(i>>8), byte(i)), nil
	default:
		return append(header, 6), append(payload,
			byte(i>>56), byte(i>>48), byte(i>>40), byte(i>>32),
			byte(i>>24), byte(i>>16), byte(i>>8), byte(i)), nil
	}
}
