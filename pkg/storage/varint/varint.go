// Package varint implements the SQLite variable-length integer
// encoding: big-endian, 7 bits per byte with MSB continuation, 1 to 9
// bytes, where the 9th byte contributes all 8 of its bits.
package varint

import (
	"math/bits"

	"golang.org/x/exp/constraints"

	"litedb/pkg/dberr"
)

// MaxLen is the maximum encoded length of a varint.
const MaxLen = 9

// Read decodes a varint from the front of buf, returning the value and
// the number of bytes consumed. Fails with Corrupt when buf ends
// before the varint does.
func Read(buf []byte) (int64, int, error) {
	var x uint64
	for i := 0; i < 8; i++ {
		if i >= len(buf) {
			return 0, 0, dberr.New(dberr.Corrupt, "truncated varint")
		}
		b := buf[i]
		x = x<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			return int64(x), i + 1, nil
		}
	}
	// Ninth byte contributes all 8 bits.
	if len(buf) < 9 {
		return 0, 0, dberr.New(dberr.Corrupt, "truncated varint")
	}
	x = x<<8 | uint64(buf[8])
	return int64(x), 9, nil
}

// Length returns the number of bytes Append would emit for x.
func Length[T constraints.Integer](x T) int {
	xl := 64 - bits.LeadingZeros64(uint64(x))
	switch {
	case xl <= 7:
		return 1
	case xl <= 14:
		return 2
	case xl <= 21:
		return 3
	case xl <= 28:
		return 4
	case xl <= 35:
		return 5
	case xl <= 42:
		return 6
	case xl <= 49:
		return 7
	case xl <= 56:
		return 8
	default:
		return 9
	}
}

// Append encodes x at minimum width and appends it to buf.
func Append[T constraints.Integer](buf []byte, x T) []byte {
	ux := uint64(x)
	xl := 64 - bits.LeadingZeros64(ux)
	switch {
	case xl <= 7:
		return append(buf, byte(ux))
	case xl <= 14:
		return append(buf, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 21:
		return append(buf, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 28:
		return append(buf, byte(ux>>21)|0x80, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 35:
		return append(buf, byte(ux>>28)|0x80, byte(ux>>21)|0x80, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 42:
		return append(buf, byte(ux>>35)|0x80, byte(ux>>28)|0x80, byte(ux>>21)|0x80, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 49:
		return append(buf, byte(ux>>42)|0x80, byte(ux>>35)|0x80, byte(ux>>28)|0x80, byte(ux>>21)|0x80, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	case xl <= 56:
		return append(buf, byte(ux>>49)|0x80, byte(ux>>42)|0x80, byte(ux>>35)|0x80, byte(ux>>28)|0x80, byte(ux>>21)|0x80, byte(ux>>14)|0x80, byte(ux>>7)|0x80, byte(ux)&^0x80)
	default:
		return append(buf, byte(ux>>57)|0x80, byte(ux>>50)|0x80, byte(ux>>43)|0x80, byte(ux>>36)|0x80, byte(ux>>29)|0x80, byte(ux>>22)|0x80, byte(ux>>15)|0x80, byte(ux>>8)|0x80, byte(ux))
	}
}
