// Package catalog maintains the mapping from (database, table) names
// to table metadata. The "main" database is backed by a file; "temp"
// tables live only in process memory.
package catalog

import (
	"sort"
	"strings"

	"litedb/pkg/dberr"
	"litedb/pkg/storage/pager"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// Database names understood by the catalog.
const (
	MainDB = "main"
	TempDB = "temp"
)

// TableMeta describes one table.
type TableMeta struct {
	Name        string
	Strict      bool
	ColumnNames []string
	ColumnTypes []types.Type

	// RootPage is the table b-tree root in the database file, or 0 for
	// temp tables, which have no storage.
	RootPage pager.PageNum
}

// RowDescription returns the table's schema as a row description.
func (m *TableMeta) RowDescription() (*tuple.RowDescription, error) {
	return tuple.NewRowDescription(m.ColumnTypes, m.ColumnNames)
}

// Catalog maps (database name, table name) to metadata. Lookups are
// case-insensitive on both names.
type Catalog struct {
	tables map[string]map[string]*TableMeta
}

// NewCatalog creates an empty catalog with the main and temp
// databases present.
func NewCatalog() *Catalog {
	return &Catalog{
		tables: map[string]map[string]*TableMeta{
			MainDB: {},
			TempDB: {},
		},
	}
}

// Define registers a table in the given database. Fails if the
// database is unknown or the table already exists.
func (c *Catalog) Define(db string, meta *TableMeta) error {
	tables, err := c.database(db)
	if err != nil {
		return err
	}

	key := strings.ToLower(meta.Name)
	if _, exists := tables[key]; exists {
		return dberr.Newf(dberr.Parse, "table %s.%s already exists", db, meta.Name)
	}
	tables[key] = meta
	return nil
}

// Lookup finds a table by name. Fails with UnknownTable.
func (c *Catalog) Lookup(db, table string) (*TableMeta, error) {
	tables, err := c.database(db)
	if err != nil {
		return nil, err
	}

	meta, ok := tables[strings.ToLower(table)]
	if !ok {
		return nil, dberr.Newf(dberr.UnknownTable, "no such table: %s.%s", db, table)
	}
	return meta, nil
}

// Tables lists the tables of a database in name order.
func (c *Catalog) Tables(db string) ([]*TableMeta, error) {
	tables, err := c.database(db)
	if err != nil {
		return nil, err
	}

	out := make([]*TableMeta, 0, len(tables))
	for _, m := range tables {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) database(db string) (map[string]*TableMeta, error) {
	tables, ok := c.tables[strings.ToLower(db)]
	if !ok {
		return nil, dberr.Newf(dberr.UnknownTable, "no such database: %s", db)
	}
	return tables, nil
}
