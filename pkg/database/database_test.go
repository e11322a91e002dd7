package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/dberr"
	"litedb/pkg/testutil"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// openFixture opens a database file equivalent to running
// CREATE TABLE t(a int, b int); INSERT INTO t VALUES (1,10),(2,20);
func openFixture(t *testing.T, readOnly bool) *Database {
	t.Helper()

	path := testutil.NewBuilder(4096).
		AddTable(testutil.TableDef{
			Name: "t",
			SQL:  "CREATE TABLE t(a int, b int)",
			Rows: []*tuple.Row{
				tuple.RowOf(types.NewInt(1), types.NewInt(10)),
				tuple.RowOf(types.NewInt(2), types.NewInt(20)),
			},
		}).
		AddTable(testutil.TableDef{
			Name: "s",
			SQL:  "CREATE TABLE s(a int) STRICT",
		}).
		WriteTemp(t)

	db, err := Open(path, readOnly)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func rows(t *testing.T, db *Database, sql string) []*tuple.Row {
	t.Helper()
	rs, err := db.Run(sql)
	require.NoError(t, err)
	return rs.Rows
}

func TestSelectStar(t *testing.T) {
	db := openFixture(t, true)

	got := rows(t, db, "SELECT * FROM t;")
	require.Len(t, got, 2)
	assert.True(t, tuple.RowOf(types.NewInt(1), types.NewInt(10)).Equals(got[0]))
	assert.True(t, tuple.RowOf(types.NewInt(2), types.NewInt(20)).Equals(got[1]))
}

func TestSelectSingleColumn(t *testing.T) {
	db := openFixture(t, true)

	got := rows(t, db, "SELECT b FROM t;")
	require.Len(t, got, 2)
	assert.True(t, tuple.RowOf(types.NewInt(10)).Equals(got[0]))
	assert.True(t, tuple.RowOf(types.NewInt(20)).Equals(got[1]))
}

func TestSelectConstantWithoutFile(t *testing.T) {
	db := NewInMemory()

	rs, err := db.Run("SELECT 1;")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.True(t, tuple.RowOf(types.NewInt(1)).Equals(rs.Rows[0]))
}

func TestSelectExpressionAndColumn(t *testing.T) {
	db := openFixture(t, true)

	got := rows(t, db, "SELECT 1+1, a FROM t;")
	require.Len(t, got, 2)
	assert.True(t, tuple.RowOf(types.NewInt(2), types.NewInt(1)).Equals(got[0]))
	assert.True(t, tuple.RowOf(types.NewInt(2), types.NewInt(2)).Equals(got[1]))
}

func TestSelectWhere(t *testing.T) {
	db := openFixture(t, true)

	got := rows(t, db, "SELECT b FROM t WHERE a = 2;")
	require.Len(t, got, 1)
	assert.True(t, tuple.RowOf(types.NewInt(20)).Equals(got[0]))
}

func TestSelectFromSchemaTable(t *testing.T) {
	db := openFixture(t, true)

	got := rows(t, db, "SELECT name FROM sqlite_schema;")
	require.Len(t, got, 2)
	names := []string{got[0].String(), got[1].String()}
	assert.Contains(t, names, "t")
	assert.Contains(t, names, "s")
}

func TestInsertIntoStoredTable(t *testing.T) {
	db := openFixture(t, false)

	rs, err := db.Run("INSERT INTO t VALUES (3, 30), (4, 40);")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.RowsAffected)

	got := rows(t, db, "SELECT * FROM t;")
	require.Len(t, got, 4)
	assert.True(t, tuple.RowOf(types.NewInt(4), types.NewInt(40)).Equals(got[3]))
}

func TestInsertPersistsAcrossReopen(t *testing.T) {
	path := testutil.NewBuilder(4096).
		AddTable(testutil.TableDef{
			Name: "t",
			SQL:  "CREATE TABLE t(a int, b int)",
			Rows: []*tuple.Row{tuple.RowOf(types.NewInt(1), types.NewInt(10))},
		}).
		WriteTemp(t)

	db, err := Open(path, false)
	require.NoError(t, err)
	_, err = db.Run("INSERT INTO t VALUES (2, 20);")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := Open(path, true)
	require.NoError(t, err)
	defer reopened.Close()

	got := rows(t, reopened, "SELECT * FROM t;")
	require.Len(t, got, 2)
	assert.True(t, tuple.RowOf(types.NewInt(2), types.NewInt(20)).Equals(got[1]))
}

func TestInsertStrictViolation(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO s VALUES ('x');")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.TypeMismatch))
}

func TestInsertStrictAcceptsMatchingTags(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO s VALUES (5), (NULL);")
	require.NoError(t, err)

	got := rows(t, db, "SELECT * FROM s;")
	require.Len(t, got, 2)
	assert.True(t, tuple.RowOf(types.NewInt(5)).Equals(got[0]))
	assert.True(t, tuple.RowOf(types.NewNull()).Equals(got[1]))
}

func TestInsertArityMismatch(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO t VALUES (1);")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Parse))
}

func TestInsertColumnRefRejected(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO t VALUES (a, 1);")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownColumn))
}

func TestInsertUnknownTable(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO nope VALUES (1);")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownTable))
}

func TestInsertExpressionValues(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("INSERT INTO t VALUES (1+2, 3*10);")
	require.NoError(t, err)

	got := rows(t, db, "SELECT * FROM t WHERE a = 3;")
	require.Len(t, got, 1)
	assert.True(t, tuple.RowOf(types.NewInt(3), types.NewInt(30)).Equals(got[0]))
}

func TestCreateTempTableAndInsert(t *testing.T) {
	db := NewInMemory()

	_, err := db.Run("CREATE TEMP TABLE scratch (x int, label text);")
	require.NoError(t, err)

	rs, err := db.Run("INSERT INTO temp.scratch VALUES (1, 'one'), (2, 'two');")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.RowsAffected)

	got := rows(t, db, "SELECT label FROM temp.scratch WHERE x = 2;")
	require.Len(t, got, 1)
	assert.True(t, tuple.RowOf(types.NewText("two")).Equals(got[0]))
}

func TestCreateTempStrictTable(t *testing.T) {
	db := NewInMemory()

	_, err := db.Run("CREATE TEMP TABLE s (a int) STRICT;")
	require.NoError(t, err)

	_, err = db.Run("INSERT INTO temp.s VALUES ('x');")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.TypeMismatch))
}

func TestCreateMainTableUnsupported(t *testing.T) {
	db := openFixture(t, false)

	_, err := db.Run("CREATE TABLE fresh (a int);")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Unsupported))
}

func TestLooseTypingStoresValueAsIs(t *testing.T) {
	db := NewInMemory()

	_, err := db.Run("CREATE TEMP TABLE loose (a int);")
	require.NoError(t, err)
	_, err = db.Run("INSERT INTO temp.loose VALUES ('hello');")
	require.NoError(t, err)

	got := rows(t, db, "SELECT * FROM temp.loose;")
	require.Len(t, got, 1)
	assert.True(t, tuple.RowOf(types.NewText("hello")).Equals(got[0]))
}

func TestExplain(t *testing.T) {
	db := openFixture(t, true)

	out, err := db.Explain("SELECT a FROM t WHERE b > 5;")
	require.NoError(t, err)
	assert.Contains(t, out, "Project")
	assert.Contains(t, out, "Filter")
	assert.Contains(t, out, "Scan(main.t)")
}

func TestSchemaJSON(t *testing.T) {
	db := openFixture(t, true)

	out, err := db.SchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "t"`)
	assert.Contains(t, out, `"strict": true`)
	assert.Contains(t, out, `"sqlite_schema"`)
}

func TestResultSetFormatting(t *testing.T) {
	db := openFixture(t, true)

	rs, err := db.Run("SELECT a, b FROM t;")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rs.Columns())
	assert.Equal(t, [][]string{{"1", "10"}, {"2", "20"}}, rs.StringRows())
}

func TestStatsCounters(t *testing.T) {
	db := openFixture(t, true)

	_, _ = db.Run("SELECT * FROM t;")
	_, _ = db.Run("SELECT broken syntax here")

	stats := db.Stats()
	assert.Equal(t, int64(2), stats.QueriesExecuted)
	assert.Equal(t, int64(2), stats.RowsRead)
	assert.Equal(t, int64(1), stats.ErrorCount)
}

func TestRunParseError(t *testing.T) {
	db := NewInMemory()

	_, err := db.Run("DELETE FROM t;")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Parse))
}

func TestOpenBadFileSurfacesFormat(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/garbage.db"
	require.NoError(t, writeGarbage(path))

	_, err := Open(path, true)
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.Format))
}

func writeGarbage(path string) error {
	garbage := make([]byte, 4096)
	copy(garbage, "this is not the file you are looking for")
	return os.WriteFile(path, garbage, 0o644)
}
