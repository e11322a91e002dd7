// Package execution turns a relational plan into a chain of
// row-producing iterators driven by single-threaded cooperative pull.
package execution

import (
	"litedb/pkg/dberr"
	"litedb/pkg/tuple"
)

// RowIterator is the contract every block of a running query
// satisfies. A row returned by Next is valid only until the next call
// to Next or Close; callers that need it longer must Clone it. That
// ordering guarantee is what lets the pager reclaim leaf pages between
// rows.
type RowIterator interface {
	// Open prepares the iterator for row retrieval. It must be called
	// before HasNext or Next.
	Open() error

	// HasNext reports whether another row is available without
	// consuming it.
	HasNext() (bool, error)

	// Next returns the next row, advancing the iterator. The returned
	// row is invalidated by the following Next or Close.
	Next() (*tuple.Row, error)

	// Rewind resets the iterator to the start of its stream.
	Rewind() error

	// Close releases resources (page leases, child iterators). It is
	// idempotent; Next and HasNext fail with Closed afterwards.
	Close() error

	// Schema describes the rows this iterator produces.
	Schema() *tuple.RowDescription
}

// ReadNextFunc produces the next row of an iterator, or nil at end of
// stream.
type ReadNextFunc func() (*tuple.Row, error)

// BaseIterator implements the caching and state management shared by
// all blocks: one-row lookahead for HasNext, open/closed bookkeeping,
// and delegation to a block-specific read function.
type BaseIterator struct {
	nextRow  *tuple.Row
	opened   bool
	closed   bool
	readNext ReadNextFunc
}

// NewBaseIterator creates a base iterator around a read function. The
// iterator starts unopened and must be marked open by the owning block.
func NewBaseIterator(readNext ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNext: readNext}
}

// MarkOpened marks the iterator ready for use.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
	it.closed = false
	it.nextRow = nil
}

// HasNext checks for another row, caching it for the next Next call.
func (it *BaseIterator) HasNext() (bool, error) {
	if err := it.checkUsable(); err != nil {
		return false, err
	}

	if it.nextRow == nil {
		var err error
		it.nextRow, err = it.readNext()
		if err != nil {
			return false, err
		}
	}
	return it.nextRow != nil, nil
}

// Next returns the cached lookahead row if present, reading otherwise.
func (it *BaseIterator) Next() (*tuple.Row, error) {
	if err := it.checkUsable(); err != nil {
		return nil, err
	}

	if it.nextRow == nil {
		var err error
		it.nextRow, err = it.readNext()
		if err != nil {
			return nil, err
		}
		if it.nextRow == nil {
			return nil, dberr.New(dberr.Internal, "Next called past end of stream")
		}
	}

	row := it.nextRow
	it.nextRow = nil
	return row, nil
}

// ClearCache drops the lookahead row after a rewind.
func (it *BaseIterator) ClearCache() {
	it.nextRow = nil
}

// Close marks the iterator closed. Idempotent.
func (it *BaseIterator) Close() error {
	it.nextRow = nil
	it.closed = true
	it.opened = false
	return nil
}

func (it *BaseIterator) checkUsable() error {
	if it.closed {
		return dberr.New(dberr.Closed, "iterator is closed")
	}
	if !it.opened {
		return dberr.New(dberr.Internal, "iterator not opened")
	}
	return nil
}

// fetchNext drains one row from a child iterator, hiding the
// HasNext/Next ceremony. Returns nil at end of stream.
func fetchNext(child RowIterator) (*tuple.Row, error) {
	hasNext, err := child.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, nil
	}
	return child.Next()
}
