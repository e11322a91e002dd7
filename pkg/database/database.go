// Package database coordinates the engine's components: it owns the
// pager and catalog for an open file, the in-memory temp tables, and
// the statement dispatch from SQL text to results.
package database

import (
	"strings"
	"sync"

	"litedb/pkg/catalog"
	"litedb/pkg/dberr"
	"litedb/pkg/execution"
	"litedb/pkg/logging"
	"litedb/pkg/parser"
	"litedb/pkg/plan"
	"litedb/pkg/storage/btree"
	"litedb/pkg/storage/pager"
	"litedb/pkg/storage/record"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// Database is one engine instance: at most one open database file plus
// the process-local temp database.
type Database struct {
	mu sync.Mutex

	path  string
	pager *pager.Pager
	cat   *catalog.Catalog

	// tempRows holds the rows of temp tables, keyed by lowercase name.
	tempRows map[string][]*tuple.Row

	stats Stats
}

// Stats tracks basic usage counters.
type Stats struct {
	QueriesExecuted int64
	RowsRead        int64
	RowsWritten     int64
	ErrorCount      int64
}

// Open opens a database file and loads its schema. With readOnly set,
// INSERT into stored tables is rejected at the pager.
func Open(path string, readOnly bool) (*Database, error) {
	pg, err := pager.Open(path, readOnly)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(pg)
	if err != nil {
		pg.Close()
		return nil, err
	}

	logging.ForComponent("database").
		WithField("path", path).
		WithField("read_only", readOnly).
		Info("database opened")

	return &Database{
		path:     path,
		pager:    pg,
		cat:      cat,
		tempRows: make(map[string][]*tuple.Row),
	}, nil
}

// NewInMemory creates a database with no file: only temp tables and
// constant queries work.
func NewInMemory() *Database {
	return &Database{
		cat:      catalog.NewCatalog(),
		tempRows: make(map[string][]*tuple.Row),
	}
}

// Path returns the open file's path, or "" for an in-memory instance.
func (db *Database) Path() string {
	return db.path
}

// Stats returns a snapshot of the usage counters.
func (db *Database) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.stats
}

// Close releases the file handle. Temp tables are discarded with the
// process.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.pager != nil {
		err := db.pager.Close()
		db.pager = nil
		return err
	}
	return nil
}

// Run parses and executes one SQL statement, returning a materialized
// result set. This is the single entry point the REPL formats from.
func (db *Database) Run(sql string) (*ResultSet, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.stats.QueriesExecuted++
	rs, err := db.runLocked(sql)
	if err != nil {
		db.stats.ErrorCount++
		return nil, err
	}
	return rs, nil
}

func (db *Database) runLocked(sql string) (*ResultSet, error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	switch s := stmt.(type) {
	case *parser.SelectStatement:
		return db.runSelect(s)
	case *parser.CreateTableStatement:
		return db.runCreate(s)
	case *parser.InsertStatement:
		return db.runInsert(s)
	default:
		return nil, dberr.Newf(dberr.Parse, "unhandled statement %T", stmt)
	}
}

func (db *Database) runSelect(stmt *parser.SelectStatement) (*ResultSet, error) {
	node, err := plan.BuildSelect(stmt, db.cat)
	if err != nil {
		return nil, err
	}

	it, err := execution.Compile(node, db.execContext())
	if err != nil {
		return nil, err
	}
	if err := it.Open(); err != nil {
		return nil, err
	}
	defer it.Close()

	rows, err := execution.Collect(it)
	if err != nil {
		return nil, err
	}

	db.stats.RowsRead += int64(len(rows))
	return &ResultSet{Desc: it.Schema(), Rows: rows}, nil
}

func (db *Database) runCreate(stmt *parser.CreateTableStatement) (*ResultSet, error) {
	if stmt.Database != catalog.TempDB {
		return nil, dberr.New(dberr.Unsupported,
			"creating tables in the main database requires multi-page writes").
			At("CreateTable", "database")
	}

	meta := &catalog.TableMeta{
		Name:        stmt.Table,
		Strict:      stmt.Strict,
		ColumnNames: make([]string, len(stmt.Columns)),
		ColumnTypes: make([]types.Type, len(stmt.Columns)),
	}
	for i, col := range stmt.Columns {
		meta.ColumnNames[i] = col.Name
		meta.ColumnTypes[i] = col.Type
	}

	if err := db.cat.Define(catalog.TempDB, meta); err != nil {
		return nil, err
	}
	db.tempRows[strings.ToLower(stmt.Table)] = nil

	return &ResultSet{Message: "table " + stmt.Table + " created"}, nil
}

func (db *Database) runInsert(stmt *parser.InsertStatement) (*ResultSet, error) {
	meta, err := db.cat.Lookup(stmt.Database, stmt.Table)
	if err != nil {
		return nil, err
	}

	rows, err := evaluateInsertRows(stmt, meta)
	if err != nil {
		return nil, err
	}

	if meta.RootPage == 0 {
		key := strings.ToLower(meta.Name)
		db.tempRows[key] = append(db.tempRows[key], rows...)
	} else {
		if err := db.appendStoredRows(meta, rows); err != nil {
			return nil, err
		}
	}

	db.stats.RowsWritten += int64(len(rows))
	return &ResultSet{RowsAffected: len(rows)}, nil
}

// evaluateInsertRows reduces the VALUES expressions of an INSERT to
// typed rows, checking arity and the STRICT discipline.
func evaluateInsertRows(stmt *parser.InsertStatement, meta *catalog.TableMeta) ([]*tuple.Row, error) {
	out := make([]*tuple.Row, 0, len(stmt.Rows))
	for _, exprRow := range stmt.Rows {
		if len(exprRow) != len(meta.ColumnTypes) {
			return nil, dberr.Newf(dberr.Parse, "table %s has %d columns but %d values were supplied",
				meta.Name, len(meta.ColumnTypes), len(exprRow))
		}

		row := tuple.NewRow(len(exprRow))
		for i, e := range exprRow {
			// VALUES expressions may not reference columns; Resolve
			// against a nil schema rejects them.
			resolved, err := plan.Resolve(e, nil)
			if err != nil {
				return nil, err
			}
			v, err := plan.Eval(resolved, tuple.NewRow(0), meta.Strict)
			if err != nil {
				return nil, err
			}

			v = types.Normalize(v)
			if meta.Strict {
				if err := types.CheckStrict(v, meta.ColumnTypes[i]); err != nil {
					return nil, err
				}
			}
			if err := row.SetValue(i, v); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// appendStoredRows writes rows to a stored table's leaf page, one cell
// per row, continuing the rowid sequence.
func (db *Database) appendStoredRows(meta *catalog.TableMeta, rows []*tuple.Row) error {
	if db.pager == nil {
		return dberr.New(dberr.Io, "no database file open").At("Insert", "database")
	}

	next := int64(1)
	last, found, err := btree.LastRowid(db.pager, meta.RootPage)
	if err != nil {
		return err
	}
	if found {
		next = last + 1
	}

	for _, row := range rows {
		payload, err := record.Encode(row)
		if err != nil {
			return err
		}
		if err := btree.AppendLeaf(db.pager, meta.RootPage, next, payload); err != nil {
			return err
		}
		next++
	}
	return nil
}

func (db *Database) execContext() *execution.Context {
	return &execution.Context{Pager: db.pager, Temp: db}
}

// TempTableRows implements execution.TempTableSource.
func (db *Database) TempTableRows(table string) ([]*tuple.Row, error) {
	rows, ok := db.tempRows[strings.ToLower(table)]
	if !ok {
		return nil, dberr.Newf(dberr.UnknownTable, "no such temp table: %s", table)
	}
	return rows, nil
}

// Explain renders the IR a SELECT lowers to without executing it.
func (db *Database) Explain(sql string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stmt, err := parser.Parse(sql)
	if err != nil {
		return "", err
	}

	sel, ok := stmt.(*parser.SelectStatement)
	if !ok {
		return stmt.String(), nil
	}

	node, err := plan.BuildSelect(sel, db.cat)
	if err != nil {
		return "", err
	}
	return node.String(), nil
}

// Tables lists the tables of a database ("main" or "temp").
func (db *Database) Tables(dbName string) ([]*catalog.TableMeta, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cat.Tables(dbName)
}
