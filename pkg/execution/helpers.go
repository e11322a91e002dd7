package execution

import (
	"litedb/pkg/tuple"
)

// ForEach opens nothing; it drives an already-open iterator, applying
// process to each row. Iteration stops early when process returns an
// error. Rows passed to process obey the streaming contract: they are
// invalid after process returns.
func ForEach(it RowIterator, process func(*tuple.Row) error) error {
	for {
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		row, err := it.Next()
		if err != nil {
			return err
		}
		if row == nil {
			continue
		}

		if err := process(row); err != nil {
			return err
		}
	}
}

// Collect drains an already-open iterator into a materialized slice,
// cloning each row so the results outlive the chain.
func Collect(it RowIterator) ([]*tuple.Row, error) {
	var rows []*tuple.Row
	err := ForEach(it, func(row *tuple.Row) error {
		rows = append(rows, row.Clone())
		return nil
	})
	return rows, err
}
