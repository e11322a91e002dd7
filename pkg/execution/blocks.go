package execution

import (
	"litedb/pkg/dberr"
	"litedb/pkg/plan"
	"litedb/pkg/storage/btree"
	"litedb/pkg/storage/pager"
	"litedb/pkg/storage/record"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// TempTableSource provides the in-memory rows of temp tables.
type TempTableSource interface {
	TempTableRows(table string) ([]*tuple.Row, error)
}

// Context carries the storage handles an iterator chain runs against.
type Context struct {
	// Pager is the open database file, or nil when no file is open.
	Pager *pager.Pager

	// Temp resolves temp-table rows. May be nil when the query touches
	// no temp tables.
	Temp TempTableSource
}

// Compile lowers an IR tree to its iterator chain. The chain is built
// per query and torn down by Close on the root.
func Compile(node plan.Node, ctx *Context) (RowIterator, error) {
	it, _, err := compile(node, ctx)
	return it, err
}

// compile returns the iterator along with whether rows originate from
// a STRICT table, which tightens expression evaluation downstream.
func compile(node plan.Node, ctx *Context) (RowIterator, bool, error) {
	switch n := node.(type) {
	case *plan.TempTableNode:
		return NewTempTableIterator(n.Rows, n.Schema()), false, nil

	case *plan.ScanNode:
		it, err := NewScanIterator(n, ctx)
		if err != nil {
			return nil, false, err
		}
		return it, n.Table.Strict, nil

	case *plan.FilterNode:
		child, strict, err := compile(n.Child, ctx)
		if err != nil {
			return nil, false, err
		}
		return NewFilterIterator(n.Predicate, child, strict), strict, nil

	case *plan.ProjectNode:
		child, strict, err := compile(n.Child, ctx)
		if err != nil {
			return nil, false, err
		}
		return NewProjectIterator(n.Exprs, n.Schema(), child, strict), strict, nil

	default:
		return nil, false, dberr.Newf(dberr.Internal, "unknown plan node %T", node)
	}
}

// TempTableIterator yields pre-materialized rows in insertion order.
type TempTableIterator struct {
	base *BaseIterator
	rows []*tuple.Row
	pos  int
	desc *tuple.RowDescription
}

// NewTempTableIterator creates an iterator over materialized rows.
func NewTempTableIterator(rows []*tuple.Row, desc *tuple.RowDescription) *TempTableIterator {
	it := &TempTableIterator{rows: rows, desc: desc}
	it.base = NewBaseIterator(it.readNext)
	return it
}

func (it *TempTableIterator) readNext() (*tuple.Row, error) {
	if it.pos >= len(it.rows) {
		return nil, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *TempTableIterator) Open() error {
	it.pos = 0
	it.base.MarkOpened()
	return nil
}

func (it *TempTableIterator) HasNext() (bool, error) { return it.base.HasNext() }

func (it *TempTableIterator) Next() (*tuple.Row, error) { return it.base.Next() }

func (it *TempTableIterator) Rewind() error {
	it.pos = 0
	it.base.ClearCache()
	return nil
}

func (it *TempTableIterator) Close() error { return it.base.Close() }

func (it *TempTableIterator) Schema() *tuple.RowDescription { return it.desc }

// ScanIterator streams a table: stored tables through a b-tree scanner
// with record decoding, temp tables from their in-memory rows.
type ScanIterator struct {
	base *BaseIterator
	node *plan.ScanNode
	ctx  *Context

	scanner *btree.Scanner
	temp    *TempTableIterator
}

// NewScanIterator creates a scan over the node's table.
func NewScanIterator(n *plan.ScanNode, ctx *Context) (*ScanIterator, error) {
	it := &ScanIterator{node: n, ctx: ctx}
	it.base = NewBaseIterator(it.readNext)
	return it, nil
}

func (it *ScanIterator) Open() error {
	if it.node.Table.RootPage == 0 {
		if it.ctx.Temp == nil {
			return dberr.Newf(dberr.Internal, "no temp table source for %s", it.node.Table.Name)
		}
		rows, err := it.ctx.Temp.TempTableRows(it.node.Table.Name)
		if err != nil {
			return err
		}
		it.temp = NewTempTableIterator(rows, it.node.Schema())
		if err := it.temp.Open(); err != nil {
			return err
		}
	} else {
		if it.ctx.Pager == nil {
			return dberr.Newf(dberr.Io, "no database file open for table %s", it.node.Table.Name).
				At("Open", "execution")
		}
		it.scanner = btree.NewScanner(it.ctx.Pager, it.node.Table.RootPage)
	}

	it.base.MarkOpened()
	return nil
}

func (it *ScanIterator) readNext() (*tuple.Row, error) {
	if it.temp != nil {
		return fetchNext(it.temp)
	}

	cell, ok, err := it.scanner.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	row, err := record.Decode(cell.Payload, it.node.Schema())
	if err != nil {
		return nil, err
	}
	return row.WithRowID(cell.RowID), nil
}

func (it *ScanIterator) HasNext() (bool, error) { return it.base.HasNext() }

func (it *ScanIterator) Next() (*tuple.Row, error) { return it.base.Next() }

func (it *ScanIterator) Rewind() error {
	if it.scanner != nil {
		it.scanner.Close()
		it.scanner = btree.NewScanner(it.ctx.Pager, it.node.Table.RootPage)
	}
	if it.temp != nil {
		if err := it.temp.Rewind(); err != nil {
			return err
		}
	}
	it.base.ClearCache()
	return nil
}

func (it *ScanIterator) Close() error {
	if it.scanner != nil {
		it.scanner.Close()
		it.scanner = nil
	}
	if it.temp != nil {
		it.temp.Close()
		it.temp = nil
	}
	return it.base.Close()
}

func (it *ScanIterator) Schema() *tuple.RowDescription { return it.node.Schema() }

// FilterIterator passes through child rows whose predicate evaluates
// truthy: a non-zero number or TRUE. NULL predicates skip the row.
type FilterIterator struct {
	base      *BaseIterator
	predicate plan.Expr
	child     RowIterator
	strict    bool
}

// NewFilterIterator creates a filter over a child iterator.
func NewFilterIterator(predicate plan.Expr, child RowIterator, strict bool) *FilterIterator {
	it := &FilterIterator{predicate: predicate, child: child, strict: strict}
	it.base = NewBaseIterator(it.readNext)
	return it
}

func (it *FilterIterator) readNext() (*tuple.Row, error) {
	for {
		row, err := fetchNext(it.child)
		if err != nil || row == nil {
			return nil, err
		}

		v, err := plan.Eval(it.predicate, row, it.strict)
		if err != nil {
			return nil, err
		}
		truthy, err := isTruthy(v)
		if err != nil {
			return nil, err
		}
		if truthy {
			return row, nil
		}
	}
}

// isTruthy applies SQL three-valued truthiness: NULL is not truthy and
// skips the row rather than erroring.
func isTruthy(v types.Value) (bool, error) {
	switch val := v.(type) {
	case types.NullValue:
		return false, nil
	case types.BoolValue:
		return val.Value, nil
	case types.IntValue:
		return val.Value != 0, nil
	case types.RealValue:
		return val.Value != 0, nil
	default:
		return false, dberr.Newf(dberr.TypeMismatch, "%s value cannot be a predicate", v.Type())
	}
}

func (it *FilterIterator) Open() error {
	if err := it.child.Open(); err != nil {
		return err
	}
	it.base.MarkOpened()
	return nil
}

func (it *FilterIterator) HasNext() (bool, error) { return it.base.HasNext() }

func (it *FilterIterator) Next() (*tuple.Row, error) { return it.base.Next() }

func (it *FilterIterator) Rewind() error {
	if err := it.child.Rewind(); err != nil {
		return err
	}
	it.base.ClearCache()
	return nil
}

func (it *FilterIterator) Close() error {
	if err := it.child.Close(); err != nil {
		return err
	}
	return it.base.Close()
}

func (it *FilterIterator) Schema() *tuple.RowDescription { return it.child.Schema() }

// ProjectIterator evaluates one output expression per column into a
// reused buffer row. The yielded row is overwritten by the next
// advance, per the streaming contract.
type ProjectIterator struct {
	base   *BaseIterator
	exprs  []plan.Expr
	child  RowIterator
	desc   *tuple.RowDescription
	buffer *tuple.Row
	strict bool
}

// NewProjectIterator creates a projection over a child iterator.
func NewProjectIterator(exprs []plan.Expr, desc *tuple.RowDescription, child RowIterator, strict bool) *ProjectIterator {
	it := &ProjectIterator{
		exprs:  exprs,
		child:  child,
		desc:   desc,
		buffer: tuple.NewRow(len(exprs)),
		strict: strict,
	}
	it.base = NewBaseIterator(it.readNext)
	return it
}

func (it *ProjectIterator) readNext() (*tuple.Row, error) {
	row, err := fetchNext(it.child)
	if err != nil || row == nil {
		return nil, err
	}

	for i, e := range it.exprs {
		v, err := plan.Eval(e, row, it.strict)
		if err != nil {
			return nil, err
		}
		if err := it.buffer.SetValue(i, v); err != nil {
			return nil, err
		}
	}
	return it.buffer, nil
}

func (it *ProjectIterator) Open() error {
	if err := it.child.Open(); err != nil {
		return err
	}
	it.base.MarkOpened()
	return nil
}

func (it *ProjectIterator) HasNext() (bool, error) { return it.base.HasNext() }

func (it *ProjectIterator) Next() (*tuple.Row, error) { return it.base.Next() }

func (it *ProjectIterator) Rewind() error {
	if err := it.child.Rewind(); err != nil {
		return err
	}
	it.base.ClearCache()
	return nil
}

func (it *ProjectIterator) Close() error {
	if err := it.child.Close(); err != nil {
		return err
	}
	return it.base.Close()
}

func (it *ProjectIterator) Schema() *tuple.RowDescription { return it.desc }
