package catalog

import (
	"litedb/pkg/dberr"
	"litedb/pkg/logging"
	"litedb/pkg/parser"
	"litedb/pkg/storage/btree"
	"litedb/pkg/storage/pager"
	"litedb/pkg/storage/record"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// The schema table is an ordinary table b-tree rooted at page 1 with a
// well-known name and shape.
const (
	SchemaTableName = "sqlite_schema"
	SchemaRootPage  = pager.PageNum(1)
)

const (
	schemaColType = iota
	schemaColName
	schemaColTblName
	schemaColRootPage
	schemaColSQL
)

// SchemaTableMeta returns the metadata of the sqlite_schema table
// itself, so it can be scanned like any other table.
func SchemaTableMeta() *TableMeta {
	return &TableMeta{
		Name:        SchemaTableName,
		ColumnNames: []string{"type", "name", "tbl_name", "rootpage", "sql"},
		ColumnTypes: []types.Type{
			types.TextType, types.TextType, types.TextType, types.IntType, types.TextType,
		},
		RootPage: SchemaRootPage,
	}
}

// Load reads the sqlite_schema table of an open database file and
// builds the catalog for its main database. Each table row's CREATE
// statement is re-parsed with the SQL front end to recover column
// names, types, and the STRICT flag.
func Load(pg *pager.Pager) (*Catalog, error) {
	cat := NewCatalog()
	if err := cat.Define(MainDB, SchemaTableMeta()); err != nil {
		return nil, err
	}

	schemaDesc, err := SchemaTableMeta().RowDescription()
	if err != nil {
		return nil, err
	}

	scanner := btree.NewScanner(pg, SchemaRootPage)
	defer scanner.Close()

	log := logging.ForComponent("catalog")
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, dberr.Wrap(err, dberr.Corrupt, "LoadSchema", "catalog")
		}
		if !ok {
			return cat, nil
		}

		row, err := record.Decode(cell.Payload, schemaDesc)
		if err != nil {
			return nil, dberr.Wrap(err, dberr.Corrupt, "LoadSchema", "catalog")
		}

		meta, skip, err := tableMetaFromSchemaRow(row)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}

		if err := cat.Define(MainDB, meta); err != nil {
			return nil, err
		}
		log.WithField("table", meta.Name).
			WithField("root_page", meta.RootPage).
			Debug("loaded table from schema")
	}
}

// tableMetaFromSchemaRow converts one sqlite_schema row into table
// metadata. Rows that do not describe tables (indexes, views,
// triggers) are skipped.
func tableMetaFromSchemaRow(row *tuple.Row) (meta *TableMeta, skip bool, err error) {
	objType, err := textColumn(row, schemaColType)
	if err != nil {
		return nil, false, err
	}
	if objType != "table" {
		return nil, true, nil
	}

	name, err := textColumn(row, schemaColName)
	if err != nil {
		return nil, false, err
	}

	rootVal, err := row.ValueAt(schemaColRootPage)
	if err != nil {
		return nil, false, err
	}
	rootInt, ok := rootVal.(types.IntValue)
	if !ok {
		return nil, false, dberr.Newf(dberr.Corrupt, "schema row for %q has non-integer rootpage", name)
	}

	sql, err := textColumn(row, schemaColSQL)
	if err != nil {
		return nil, false, err
	}

	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, false, dberr.Wrap(err, dberr.Parse, "LoadSchema", "catalog").
			WithDetail("creation SQL of table %q", name)
	}
	create, ok := stmt.(*parser.CreateTableStatement)
	if !ok {
		return nil, false, dberr.Newf(dberr.Parse, "schema row for %q does not hold a CREATE TABLE statement", name)
	}

	meta = &TableMeta{
		Name:        name,
		Strict:      create.Strict,
		ColumnNames: make([]string, len(create.Columns)),
		ColumnTypes: make([]types.Type, len(create.Columns)),
		RootPage:    pager.PageNum(rootInt.Value),
	}
	for i, col := range create.Columns {
		meta.ColumnNames[i] = col.Name
		meta.ColumnTypes[i] = col.Type
	}
	return meta, false, nil
}

func textColumn(row *tuple.Row, i int) (string, error) {
	v, err := row.ValueAt(i)
	if err != nil {
		return "", err
	}
	text, ok := v.(types.TextValue)
	if !ok {
		return "", dberr.Newf(dberr.Corrupt, "schema column %d is not text", i)
	}
	return text.Value, nil
}
