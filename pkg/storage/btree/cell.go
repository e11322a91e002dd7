package btree

import (
	"encoding/binary"

	"litedb/pkg/dberr"
	"litedb/pkg/storage/pager"
	"litedb/pkg/storage/varint"
)

// LeafCell is one decoded table-leaf cell. Payload aliases the page
// buffer and is only valid while the page's lease is held.
type LeafCell struct {
	RowID   int64
	Payload []byte
}

// decodeLeafCell parses the leaf cell at offset ptr on a page.
//
// Layout: payload_size varint, rowid varint, payload bytes, and (for
// spilled payloads) a 4-byte overflow page number. Spilled payloads
// are detected by comparing payload_size against the no-overflow
// threshold and reported as Unsupported.
func decodeLeafCell(page []byte, n pager.PageNum, ptr, maxLocal int) (LeafCell, error) {
	payloadSize, sz, err := varint.Read(page[ptr:])
	if err != nil {
		return LeafCell{}, dberr.Wrap(err, dberr.Corrupt, "DecodeCell", "btree").
			WithDetail("cell at %d on page %d", ptr, n)
	}
	off := ptr + sz

	rowid, sz, err := varint.Read(page[off:])
	if err != nil {
		return LeafCell{}, dberr.Wrap(err, dberr.Corrupt, "DecodeCell", "btree").
			WithDetail("cell at %d on page %d", ptr, n)
	}
	off += sz

	if payloadSize < 0 || payloadSize > int64(maxLocal) {
		return LeafCell{}, dberr.Newf(dberr.Unsupported,
			"cell payload of %d bytes spills to overflow pages (max local %d)", payloadSize, maxLocal)
	}
	if off+int(payloadSize) > len(page) {
		return LeafCell{}, dberr.Newf(dberr.Corrupt,
			"cell payload of %d bytes at %d runs off page %d", payloadSize, off, n)
	}

	return LeafCell{RowID: rowid, Payload: page[off : off+int(payloadSize)]}, nil
}

// decodeInteriorCell parses the interior cell at offset ptr, returning
// the left child page number and the key rowid.
func decodeInteriorCell(page []byte, n pager.PageNum, ptr int) (pager.PageNum, int64, error) {
	if ptr+4 > len(page) {
		return 0, 0, dberr.Newf(dberr.Corrupt, "interior cell at %d runs off page %d", ptr, n)
	}
	child := pager.PageNum(binary.BigEndian.Uint32(page[ptr : ptr+4]))

	rowid, _, err := varint.Read(page[ptr+4:])
	if err != nil {
		return 0, 0, dberr.Wrap(err, dberr.Corrupt, "DecodeCell", "btree").
			WithDetail("interior cell at %d on page %d", ptr, n)
	}
	return child, rowid, nil
}

// leafCellAt resolves cell i of a leaf page through the cell pointer
// array.
func leafCellAt(page []byte, n pager.PageNum, h *PageHeader, i, maxLocal int) (LeafCell, error) {
	ptr, err := cellPointer(page, n, h, i)
	if err != nil {
		return LeafCell{}, err
	}
	return decodeLeafCell(page, n, ptr, maxLocal)
}

// interiorChildren collects the child page numbers of an interior page
// in key order, ending with the rightmost pointer. The result does not
// alias the page buffer.
func interiorChildren(page []byte, n pager.PageNum, h *PageHeader) ([]pager.PageNum, error) {
	children := make([]pager.PageNum, 0, h.NumCells+1)
	for i := 0; i < h.NumCells; i++ {
		ptr, err := cellPointer(page, n, h, i)
		if err != nil {
			return nil, err
		}
		child, _, err := decodeInteriorCell(page, n, ptr)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return append(children, h.RightmostPointer), nil
}
