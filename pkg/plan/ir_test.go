package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/catalog"
	"litedb/pkg/dberr"
	"litedb/pkg/parser"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

func tupleRow(a, b int64) *tuple.Row {
	return tuple.RowOf(types.NewInt(a), types.NewInt(b))
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.NewCatalog()
	require.NoError(t, cat.Define(catalog.MainDB, &catalog.TableMeta{
		Name:        "t",
		ColumnNames: []string{"a", "b"},
		ColumnTypes: []types.Type{types.IntType, types.IntType},
		RootPage:    2,
	}))
	return cat
}

func build(t *testing.T, sql string) (Node, error) {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return BuildSelect(stmt.(*parser.SelectStatement), testCatalog(t))
}

func TestBuildConstantSelect(t *testing.T) {
	node, err := build(t, "SELECT 1+2*3, 'x'")
	require.NoError(t, err)

	temp, ok := node.(*TempTableNode)
	require.True(t, ok, "got %T", node)
	require.Len(t, temp.Rows, 1)

	v, err := temp.Rows[0].ValueAt(0)
	require.NoError(t, err)
	assert.True(t, types.NewInt(7).Equals(v))

	desc := temp.Schema()
	assert.Equal(t, []string{"_expr0", "_expr1"}, desc.Names)
	assert.Equal(t, []types.Type{types.IntType, types.TextType}, desc.Types)
}

func TestBuildSelectStarIsBareScan(t *testing.T) {
	node, err := build(t, "SELECT * FROM t")
	require.NoError(t, err)

	scan, ok := node.(*ScanNode)
	require.True(t, ok, "got %T", node)
	assert.Equal(t, "t", scan.Table.Name)
	assert.Equal(t, []string{"a", "b"}, scan.Schema().Names)
}

func TestBuildProjectOverScan(t *testing.T) {
	node, err := build(t, "SELECT b FROM t")
	require.NoError(t, err)

	project, ok := node.(*ProjectNode)
	require.True(t, ok, "got %T", node)
	require.Len(t, project.Exprs, 1)
	assert.Equal(t, ColRef{Index: 1, Name: "b"}, project.Exprs[0])
	assert.Equal(t, []string{"b"}, project.Schema().Names)
	assert.IsType(t, &ScanNode{}, project.Child)
}

func TestBuildFilterOverScan(t *testing.T) {
	node, err := build(t, "SELECT * FROM t WHERE a = 1")
	require.NoError(t, err)

	filter, ok := node.(*FilterNode)
	require.True(t, ok, "got %T", node)
	assert.IsType(t, &ScanNode{}, filter.Child)
	assert.Equal(t, filter.Child.Schema(), filter.Schema())
}

func TestBuildProjectOverFilter(t *testing.T) {
	node, err := build(t, "SELECT a FROM t WHERE b > 5")
	require.NoError(t, err)

	project, ok := node.(*ProjectNode)
	require.True(t, ok, "got %T", node)
	assert.IsType(t, &FilterNode{}, project.Child)
}

func TestBuildStarExpansionInMixedList(t *testing.T) {
	node, err := build(t, "SELECT 1+1, a FROM t")
	require.NoError(t, err)

	project := node.(*ProjectNode)
	require.Len(t, project.Exprs, 2)
	assert.Equal(t, []string{"_expr0", "a"}, project.Schema().Names)

	node, err = build(t, "SELECT *, a FROM t")
	require.NoError(t, err)
	project = node.(*ProjectNode)
	assert.Equal(t, []string{"a", "b", "a"}, project.Schema().Names)
}

func TestBuildAlias(t *testing.T) {
	node, err := build(t, "SELECT a AS x, a+b AS sum FROM t")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "sum"}, node.Schema().Names)
}

func TestBuildUnknownColumn(t *testing.T) {
	_, err := build(t, "SELECT missing FROM t")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownColumn))

	_, err = build(t, "SELECT * FROM t WHERE missing = 1")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownColumn))
}

func TestBuildUnknownTable(t *testing.T) {
	_, err := build(t, "SELECT * FROM nope")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownTable))
}

func TestBuildInferredTypes(t *testing.T) {
	node, err := build(t, "SELECT a+b, a+1.5, a>b FROM t")
	require.NoError(t, err)

	desc := node.Schema()
	assert.Equal(t, []types.Type{types.IntType, types.RealType, types.IntType}, desc.Types)
}

func TestResolveEvalAgainstRow(t *testing.T) {
	cat := testCatalog(t)
	meta, err := cat.Lookup(catalog.MainDB, "t")
	require.NoError(t, err)
	desc, err := meta.RowDescription()
	require.NoError(t, err)

	stmt, err := parser.Parse("SELECT a*10+b FROM t")
	require.NoError(t, err)
	resolved, err := Resolve(stmt.(*parser.SelectStatement).Items[0].Expr, desc)
	require.NoError(t, err)

	row := tupleRow(3, 7)
	got, err := Eval(resolved, row, false)
	require.NoError(t, err)
	assert.True(t, types.NewInt(37).Equals(got))
}

func TestNodeStringNesting(t *testing.T) {
	node, err := build(t, "SELECT a FROM t WHERE b = 2")
	require.NoError(t, err)

	s := node.String()
	assert.Contains(t, s, "Project")
	assert.Contains(t, s, "Filter")
	assert.Contains(t, s, "Scan(main.t)")
}
