package database

import (
	"litedb/pkg/catalog"
	"litedb/pkg/tuple"
	"litedb/pkg/types"

	"github.com/goccy/go-json"
)

// ResultSet is the typed outcome of one statement.
type ResultSet struct {
	// Desc and Rows are set for SELECT results.
	Desc *tuple.RowDescription
	Rows []*tuple.Row

	// RowsAffected counts rows written by an INSERT.
	RowsAffected int

	// Message carries a human-readable note for DDL.
	Message string
}

// Columns returns the result's column names, or nil for row-less
// results.
func (rs *ResultSet) Columns() []string {
	if rs.Desc == nil {
		return nil
	}
	return rs.Desc.Names
}

// StringRows renders every row as display strings for the REPL table.
func (rs *ResultSet) StringRows() [][]string {
	out := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells := make([]string, row.NumValues())
		for j, v := range row.Values() {
			if v == nil || types.IsNull(v) {
				cells[j] = "NULL"
			} else {
				cells[j] = v.String()
			}
		}
		out[i] = cells
	}
	return out
}

// schemaColumn is one column in the JSON schema dump.
type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// schemaTable is one table in the JSON schema dump.
type schemaTable struct {
	Name     string         `json:"name"`
	Database string         `json:"database"`
	Strict   bool           `json:"strict,omitempty"`
	RootPage uint32         `json:"rootPage,omitempty"`
	Columns  []schemaColumn `json:"columns"`
}

// SchemaJSON dumps the catalog of both databases as indented JSON, for
// the REPL's .schema command.
func (db *Database) SchemaJSON() (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var dump []schemaTable
	for _, dbName := range []string{catalog.MainDB, catalog.TempDB} {
		tables, err := db.cat.Tables(dbName)
		if err != nil {
			return "", err
		}
		for _, meta := range tables {
			entry := schemaTable{
				Name:     meta.Name,
				Database: dbName,
				Strict:   meta.Strict,
				RootPage: uint32(meta.RootPage),
			}
			for i, name := range meta.ColumnNames {
				entry.Columns = append(entry.Columns, schemaColumn{
					Name: name,
					Type: meta.ColumnTypes[i].String(),
				})
			}
			dump = append(dump, entry)
		}
	}

	out, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
