package btree

import (
	"litedb/pkg/dberr"
	"litedb/pkg/storage/pager"
)

// Scanner streams the cells of a table b-tree in ascending rowid
// order. It descends interior pages with a stack of pending child
// lists and holds at most one leaf-page read lease at a time, so the
// pager may reclaim leaf pages between rows.
//
// The payload returned by Next aliases the current leaf page and is
// invalidated by the next call to Next or by Close; callers that need
// it longer must copy.
type Scanner struct {
	pager *pager.Pager
	root  pager.PageNum

	// stack holds, per interior level, the children not yet visited.
	stack [][]pager.PageNum

	leaf      *pager.ReadLease
	leafHdr   *PageHeader
	leafCell  int
	started   bool
	closed    bool
	lastRowID *int64
}

// NewScanner creates a scanner over the table b-tree rooted at root.
func NewScanner(pg *pager.Pager, root pager.PageNum) *Scanner {
	return &Scanner{pager: pg, root: root}
}

// Next returns the next cell, or ok == false at end of stream.
// Advancing invalidates the previously returned payload.
func (s *Scanner) Next() (cell LeafCell, ok bool, err error) {
	if s.closed {
		return LeafCell{}, false, dberr.New(dberr.Closed, "scanner is closed").At("Next", "btree")
	}

	if !s.started {
		s.started = true
		if err := s.descend(s.root); err != nil {
			return LeafCell{}, false, err
		}
	}

	for {
		if s.leaf != nil {
			if s.leafCell < s.leafHdr.NumCells {
				c, err := leafCellAt(s.leaf.Bytes(), s.leaf.PageNum(), s.leafHdr, s.leafCell,
					s.pager.Header().MaxLocalPayload())
				if err != nil {
					return LeafCell{}, false, err
				}
				s.leafCell++

				if s.lastRowID != nil && c.RowID <= *s.lastRowID {
					return LeafCell{}, false, dberr.Newf(dberr.Corrupt,
						"rowid %d out of order after %d on page %d", c.RowID, *s.lastRowID, s.leaf.PageNum())
				}
				rowid := c.RowID
				s.lastRowID = &rowid
				return c, true, nil
			}
			s.releaseLeaf()
		}

		// Pull the next child off the deepest interior level, popping
		// exhausted levels.
		if len(s.stack) == 0 {
			return LeafCell{}, false, nil
		}
		top := len(s.stack) - 1
		if len(s.stack[top]) == 0 {
			s.stack = s.stack[:top]
			continue
		}
		next := s.stack[top][0]
		s.stack[top] = s.stack[top][1:]
		if err := s.descend(next); err != nil {
			return LeafCell{}, false, err
		}
	}
}

// descend walks from page n down to its leftmost leaf, queueing the
// unvisited children of each interior page along the way. Interior
// page leases are released before the leaf lease is taken.
func (s *Scanner) descend(n pager.PageNum) error {
	for {
		lease, err := s.pager.ReadPage(n)
		if err != nil {
			return err
		}

		hdr, err := ParsePageHeader(lease.Bytes(), n)
		if err != nil {
			lease.Release()
			return err
		}

		if hdr.Type == TableLeaf {
			s.leaf = lease
			s.leafHdr = hdr
			s.leafCell = 0
			return nil
		}

		children, err := interiorChildren(lease.Bytes(), n, hdr)
		lease.Release()
		if err != nil {
			return err
		}
		if len(children) == 0 {
			return dberr.Newf(dberr.Corrupt, "interior page %d has no children", n)
		}

		s.stack = append(s.stack, children[1:])
		n = children[0]
	}
}

func (s *Scanner) releaseLeaf() {
	if s.leaf != nil {
		s.leaf.Release()
		s.leaf = nil
		s.leafHdr = nil
	}
}

// Close releases any held lease. Idempotent; Next fails with Closed
// afterwards.
func (s *Scanner) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.releaseLeaf()
	s.stack = nil
}
