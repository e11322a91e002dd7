package btree

import (
	"encoding/binary"

	"litedb/pkg/dberr"
	"litedb/pkg/storage/pager"
	"litedb/pkg/storage/varint"
)

// SeekRowid looks up a single rowid in the b-tree rooted at root and
// returns a copy of its payload, or found == false.
//
// Only single-page tables are handled; seeking through interior pages
// fails with Unsupported.
func SeekRowid(pg *pager.Pager, root pager.PageNum, rowid int64) (payload []byte, found bool, err error) {
	lease, err := pg.ReadPage(root)
	if err != nil {
		return nil, false, err
	}
	defer lease.Release()

	hdr, err := ParsePageHeader(lease.Bytes(), root)
	if err != nil {
		return nil, false, err
	}
	if hdr.Type == TableInterior {
		return nil, false, dberr.New(dberr.Unsupported, "rowid seek through interior pages not supported").
			At("SeekRowid", "btree")
	}

	maxLocal := pg.Header().MaxLocalPayload()
	for i := 0; i < hdr.NumCells; i++ {
		cell, err := leafCellAt(lease.Bytes(), root, hdr, i, maxLocal)
		if err != nil {
			return nil, false, err
		}
		if cell.RowID == rowid {
			out := make([]byte, len(cell.Payload))
			copy(out, cell.Payload)
			return out, true, nil
		}
		if cell.RowID > rowid {
			break
		}
	}
	return nil, false, nil
}

// LastRowid returns the largest rowid stored in a single-leaf table,
// or found == false for an empty table. Multi-level tables fail with
// Unsupported.
func LastRowid(pg *pager.Pager, root pager.PageNum) (rowid int64, found bool, err error) {
	lease, err := pg.ReadPage(root)
	if err != nil {
		return 0, false, err
	}
	defer lease.Release()

	hdr, err := ParsePageHeader(lease.Bytes(), root)
	if err != nil {
		return 0, false, err
	}
	if hdr.Type == TableInterior {
		return 0, false, dberr.New(dberr.Unsupported, "multi-page tables not supported for writes").
			At("LastRowid", "btree")
	}
	if hdr.NumCells == 0 {
		return 0, false, nil
	}

	// Cell pointers are in rowid order; the last one has the largest key.
	cell, err := leafCellAt(lease.Bytes(), root, hdr, hdr.NumCells-1, pg.Header().MaxLocalPayload())
	if err != nil {
		return 0, false, err
	}
	return cell.RowID, true, nil
}

// AppendLeaf appends one cell (rowid, payload) to the leaf page rooted
// at root, taking the pager's write lease for the duration and
// flushing on release.
//
// The rowid must exceed every rowid already on the page, the payload
// must fit without overflow, and the page must have room for the cell
// plus its pointer; otherwise Unsupported or NoRoom.
func AppendLeaf(pg *pager.Pager, root pager.PageNum, rowid int64, payload []byte) error {
	if len(payload) > pg.Header().MaxLocalPayload() {
		return dberr.Newf(dberr.Unsupported, "payload of %d bytes would spill to overflow pages", len(payload)).
			At("AppendLeaf", "btree")
	}

	lease, err := pg.WritePage(root)
	if err != nil {
		return err
	}

	if err := appendCell(lease.Bytes(), root, rowid, payload, pg.Header().MaxLocalPayload()); err != nil {
		lease.Release()
		return err
	}

	return lease.Release()
}

func appendCell(page []byte, root pager.PageNum, rowid int64, payload []byte, maxLocal int) error {
	hdr, err := ParsePageHeader(page, root)
	if err != nil {
		return err
	}
	if hdr.Type == TableInterior {
		return dberr.New(dberr.Unsupported, "appending through interior pages not supported").
			At("AppendLeaf", "btree")
	}

	if hdr.NumCells > 0 {
		last, err := leafCellAt(page, root, hdr, hdr.NumCells-1, maxLocal)
		if err != nil {
			return err
		}
		if rowid <= last.RowID {
			return dberr.Newf(dberr.Unsupported, "rowid %d does not extend the leaf (last is %d)", rowid, last.RowID).
				At("AppendLeaf", "btree")
		}
	}

	var cell []byte
	cell = varint.Append(cell, int64(len(payload)))
	cell = varint.Append(cell, rowid)
	cell = append(cell, payload...)

	off := headerOffset(root)
	pointerArrayEnd := off + leafHeaderSize + 2*hdr.NumCells
	contentStart := hdr.CellContentStart
	if contentStart > len(page) {
		return dberr.Newf(dberr.Corrupt, "cell content start %d beyond page end", contentStart)
	}

	// The cell needs its bytes in the content area plus a two-byte
	// pointer slot.
	if contentStart-len(cell) < pointerArrayEnd+2 {
		return dberr.Newf(dberr.NoRoom, "leaf page %d full: %d bytes free, cell needs %d",
			root, contentStart-pointerArrayEnd, len(cell)+2).At("AppendLeaf", "btree")
	}

	newStart := contentStart - len(cell)
	copy(page[newStart:], cell)
	binary.BigEndian.PutUint16(page[pointerArrayEnd:pointerArrayEnd+2], uint16(newStart))
	binary.BigEndian.PutUint16(page[off+3:off+5], uint16(hdr.NumCells+1))
	binary.BigEndian.PutUint16(page[off+5:off+7], uint16(newStart%65536))
	return nil
}
