package pager

import (
	"bytes"
	"encoding/binary"

	"litedb/pkg/dberr"
)

// HeaderSize is the size of the database file header on page 1.
const HeaderSize = 100

var magic = []byte("SQLite format 3\x00")

// Text encoding values at header offset 56.
const (
	encodingUTF8    = 1
	encodingUTF16LE = 2
	encodingUTF16BE = 3
)

// Header holds the fields of the 100-byte database file header that
// this engine reads. Fields not listed are accepted without
// inspection.
type Header struct {
	// PageSize is the page size in bytes: a power of two in
	// [512, 65536]. The on-disk value 1 means 65536.
	PageSize uint32

	// PageCount is the in-header database size in pages.
	PageCount uint32

	// ChangeCount is the file change counter.
	ChangeCount uint32

	// ReservedBytes is the per-page reserved space byte at offset 20.
	// Must be zero.
	ReservedBytes byte
}

// ParseHeader validates the first 100 bytes of a database file.
//
// Checks: the magic string, a legal page size, zero reserved space,
// and UTF-8 text encoding. A bad magic or page size is a Format error;
// a legal-but-unhandled reserved space or encoding is Unsupported.
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, dberr.Newf(dberr.Format, "file too short for database header: %d bytes", len(buf))
	}

	if !bytes.Equal(buf[:16], magic) {
		return nil, dberr.New(dberr.Format, "not a database file: bad magic string")
	}

	rawPageSize := binary.BigEndian.Uint16(buf[16:18])
	pageSize, err := decodePageSize(rawPageSize)
	if err != nil {
		return nil, err
	}

	reserved := buf[20]
	if reserved != 0 {
		return nil, dberr.Newf(dberr.Unsupported, "reserved space %d bytes per page not supported", reserved)
	}

	encoding := binary.BigEndian.Uint32(buf[56:60])
	// Encoding 0 appears in files with no tables yet; treat as UTF-8.
	if encoding != 0 && encoding != encodingUTF8 {
		return nil, dberr.Newf(dberr.Unsupported, "text encoding %d not supported, only UTF-8", encoding)
	}

	return &Header{
		PageSize:      pageSize,
		ChangeCount:   binary.BigEndian.Uint32(buf[24:28]),
		PageCount:     binary.BigEndian.Uint32(buf[28:32]),
		ReservedBytes: reserved,
	}, nil
}

func decodePageSize(raw uint16) (uint32, error) {
	if raw == 1 {
		return 65536, nil
	}
	size := uint32(raw)
	if size < 512 || size&(size-1) != 0 {
		return 0, dberr.Newf(dberr.Format, "invalid page size %d", raw)
	}
	return size, nil
}

// UsableSize returns the usable bytes per page (page size minus
// reserved space).
func (h *Header) UsableSize() uint32 {
	return h.PageSize - uint32(h.ReservedBytes)
}

// MaxLocalPayload returns the largest cell payload that fits on a page
// without spilling to overflow pages. Larger payloads exist in valid
// files but are not supported here.
func (h *Header) MaxLocalPayload() int {
	return int(h.UsableSize()) - 35
}
