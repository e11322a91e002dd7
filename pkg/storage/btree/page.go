// Package btree reads and appends to the table b-trees of a database
// file: page headers, cell decoding, a streaming multi-level scanner,
// single-level rowid lookup, and single-leaf appends.
package btree

import (
	"encoding/binary"

	"litedb/pkg/dberr"
	"litedb/pkg/storage/pager"
)

// PageType is the one-byte b-tree page type flag.
type PageType byte

const (
	IndexInterior PageType = 0x02
	TableInterior PageType = 0x05
	IndexLeaf     PageType = 0x0a
	TableLeaf     PageType = 0x0d
)

func (t PageType) String() string {
	switch t {
	case IndexInterior:
		return "index interior"
	case TableInterior:
		return "table interior"
	case IndexLeaf:
		return "index leaf"
	case TableLeaf:
		return "table leaf"
	default:
		return "invalid"
	}
}

const (
	leafHeaderSize     = 8
	interiorHeaderSize = 12
)

// PageHeader is the parsed 8- or 12-byte b-tree page header.
type PageHeader struct {
	Type             PageType
	FreeblockStart   uint16
	NumCells         int
	CellContentStart int
	FragmentedFree   byte
	// RightmostPointer is set on interior pages only.
	RightmostPointer pager.PageNum
}

// headerOffset returns where b-tree content starts on a page: page 1
// carries the 100-byte file header first.
func headerOffset(n pager.PageNum) int {
	if n == 1 {
		return pager.HeaderSize
	}
	return 0
}

// ParsePageHeader decodes the b-tree page header of page n from its
// raw bytes. Fails with Corrupt on an invalid type byte and with
// Unsupported on index pages.
func ParsePageHeader(page []byte, n pager.PageNum) (*PageHeader, error) {
	off := headerOffset(n)
	if len(page) < off+interiorHeaderSize {
		return nil, dberr.Newf(dberr.Corrupt, "page %d too short for b-tree header", n)
	}

	h := &PageHeader{
		Type:           PageType(page[off]),
		FreeblockStart: binary.BigEndian.Uint16(page[off+1 : off+3]),
		NumCells:       int(binary.BigEndian.Uint16(page[off+3 : off+5])),
		FragmentedFree: page[off+7],
	}

	// A stored zero means the content area starts at byte 65536.
	contentStart := int(binary.BigEndian.Uint16(page[off+5 : off+7]))
	if contentStart == 0 {
		contentStart = 65536
	}
	h.CellContentStart = contentStart

	switch h.Type {
	case TableLeaf:
	case TableInterior:
		h.RightmostPointer = pager.PageNum(binary.BigEndian.Uint32(page[off+8 : off+12]))
	case IndexLeaf, IndexInterior:
		return nil, dberr.Newf(dberr.Unsupported, "index b-tree pages cannot be iterated (page %d)", n)
	default:
		return nil, dberr.Newf(dberr.Corrupt, "invalid b-tree page type 0x%02x on page %d", byte(h.Type), n)
	}

	return h, nil
}

// headerSize returns the byte length of the page header for this type.
func (h *PageHeader) headerSize() int {
	if h.Type == TableInterior {
		return interiorHeaderSize
	}
	return leafHeaderSize
}

// cellPointer returns the offset of cell i from the cell pointer
// array.
func cellPointer(page []byte, n pager.PageNum, h *PageHeader, i int) (int, error) {
	if i < 0 || i >= h.NumCells {
		return 0, dberr.Newf(dberr.Internal, "cell index %d out of range [0, %d)", i, h.NumCells)
	}

	base := headerOffset(n) + h.headerSize() + 2*i
	if base+2 > len(page) {
		return 0, dberr.Newf(dberr.Corrupt, "cell pointer array runs off page %d", n)
	}
	ptr := int(binary.BigEndian.Uint16(page[base : base+2]))
	if ptr < headerOffset(n)+h.headerSize() || ptr >= len(page) {
		return 0, dberr.Newf(dberr.Corrupt, "cell pointer %d out of bounds on page %d", ptr, n)
	}
	return ptr, nil
}
