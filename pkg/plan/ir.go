package plan

import (
	"fmt"
	"strings"

	"litedb/pkg/catalog"
	"litedb/pkg/dberr"
	"litedb/pkg/parser"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// Node is one operator of the relational tree a SELECT lowers to. The
// sum is closed: TempTable, Scan, Filter, Project. Every node
// advertises its output schema.
type Node interface {
	fmt.Stringer

	// Schema returns the node's output column names and types.
	Schema() *tuple.RowDescription
}

// TempTableNode yields pre-materialized rows in order.
type TempTableNode struct {
	Rows []*tuple.Row
	desc *tuple.RowDescription
}

// NewTempTableNode builds a TempTable over materialized rows. Every
// row must match the description's column count.
func NewTempTableNode(rows []*tuple.Row, desc *tuple.RowDescription) (*TempTableNode, error) {
	for i, row := range rows {
		if row.NumValues() != desc.NumColumns() {
			return nil, dberr.Newf(dberr.Internal, "temp table row %d has %d values, schema has %d columns",
				i, row.NumValues(), desc.NumColumns())
		}
	}
	return &TempTableNode{Rows: rows, desc: desc}, nil
}

func (n *TempTableNode) Schema() *tuple.RowDescription { return n.desc }

func (n *TempTableNode) String() string {
	return fmt.Sprintf("TempTable(%d rows)", len(n.Rows))
}

// ScanNode is a one-pass scan over all rows of a table.
type ScanNode struct {
	Database string
	Table    *catalog.TableMeta
	desc     *tuple.RowDescription
}

// NewScanNode builds a Scan over a cataloged table.
func NewScanNode(database string, meta *catalog.TableMeta) (*ScanNode, error) {
	desc, err := meta.RowDescription()
	if err != nil {
		return nil, err
	}
	return &ScanNode{Database: database, Table: meta, desc: desc}, nil
}

func (n *ScanNode) Schema() *tuple.RowDescription { return n.desc }

func (n *ScanNode) String() string {
	return fmt.Sprintf("Scan(%s.%s)", n.Database, n.Table.Name)
}

// FilterNode passes through child rows whose predicate is truthy.
type FilterNode struct {
	Predicate Expr
	Child     Node
}

func (n *FilterNode) Schema() *tuple.RowDescription { return n.Child.Schema() }

func (n *FilterNode) String() string {
	return fmt.Sprintf("Filter(%s)\n%s", n.Predicate, indent(n.Child.String()))
}

// ProjectNode computes one output expression per column from each
// child row.
type ProjectNode struct {
	Exprs []Expr
	Child Node
	desc  *tuple.RowDescription
}

func (n *ProjectNode) Schema() *tuple.RowDescription { return n.desc }

func (n *ProjectNode) String() string {
	cols := make([]string, len(n.Exprs))
	for i, e := range n.Exprs {
		cols[i] = e.String()
	}
	return fmt.Sprintf("Project(%s)\n%s", strings.Join(cols, ", "), indent(n.Child.String()))
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// BuildSelect lowers a SELECT statement to an IR tree:
//
//	SELECT <consts>;                 -> TempTable([row])
//	SELECT * FROM t                  -> Scan(t)
//	SELECT <exprs> FROM t            -> Project(Scan(t))
//	SELECT * FROM t WHERE p          -> Filter(p, Scan(t))
//	SELECT <exprs> FROM t WHERE p    -> Project(Filter(p, Scan(t)))
//
// Expressions are constant-folded first, so a constant-only SELECT
// evaluates entirely at build time.
func BuildSelect(stmt *parser.SelectStatement, cat *catalog.Catalog) (Node, error) {
	folded, err := FoldSelect(stmt)
	if err != nil {
		return nil, err
	}

	if folded.From == nil {
		return buildConstantRow(folded)
	}

	meta, err := cat.Lookup(folded.From.Database, folded.From.Table)
	if err != nil {
		return nil, err
	}

	var node Node
	node, err = NewScanNode(folded.From.Database, meta)
	if err != nil {
		return nil, err
	}

	if folded.Where != nil {
		predicate, err := Resolve(folded.Where, node.Schema())
		if err != nil {
			return nil, err
		}
		node = &FilterNode{Predicate: predicate, Child: node}
	}

	if isSelectAll(folded.Items) {
		return node, nil
	}
	return buildProject(folded.Items, node)
}

// isSelectAll reports whether the item list is exactly `*`, which
// needs no Project.
func isSelectAll(items []parser.SelectItem) bool {
	return len(items) == 1 && items[0].Star
}

func buildConstantRow(stmt *parser.SelectStatement) (Node, error) {
	values := make([]types.Value, len(stmt.Items))
	colTypes := make([]types.Type, len(stmt.Items))
	colNames := make([]string, len(stmt.Items))

	for i, item := range stmt.Items {
		c, ok := item.Expr.(parser.ConstExpr)
		if !ok {
			// Validate and folding leave only constants here.
			return nil, dberr.Newf(dberr.Internal, "non-constant select item %s without FROM", item.Expr)
		}
		values[i] = types.Normalize(c.Value)
		colTypes[i] = values[i].Type()
		colNames[i] = outputName(item, i, nil)
	}

	desc, err := tuple.NewRowDescription(colTypes, colNames)
	if err != nil {
		return nil, err
	}
	return NewTempTableNode([]*tuple.Row{tuple.RowOf(values...)}, desc)
}

func buildProject(items []parser.SelectItem, child Node) (Node, error) {
	childDesc := child.Schema()

	var exprs []Expr
	var colTypes []types.Type
	var colNames []string

	for i, item := range items {
		if item.Star {
			for col := 0; col < childDesc.NumColumns(); col++ {
				name, _ := childDesc.NameAt(col)
				colType, _ := childDesc.TypeAt(col)
				exprs = append(exprs, ColRef{Index: col, Name: name})
				colTypes = append(colTypes, colType)
				colNames = append(colNames, name)
			}
			continue
		}

		resolved, err := Resolve(item.Expr, childDesc)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, resolved)
		colTypes = append(colTypes, inferType(resolved, childDesc))
		colNames = append(colNames, outputName(item, i, childDesc))
	}

	desc, err := tuple.NewRowDescription(colTypes, colNames)
	if err != nil {
		return nil, err
	}
	return &ProjectNode{Exprs: exprs, Child: child, desc: desc}, nil
}

// outputName picks the column name for one select item: the alias if
// given, the column's own name for a bare reference, else a generated
// _expr<k> name.
func outputName(item parser.SelectItem, k int, desc *tuple.RowDescription) string {
	if item.Alias != "" {
		return item.Alias
	}
	if ref, ok := item.Expr.(parser.ColumnRef); ok && desc != nil {
		if idx, err := desc.FindColumn(ref.Name); err == nil {
			name, _ := desc.NameAt(idx)
			return name
		}
	}
	return fmt.Sprintf("_expr%d", k)
}
