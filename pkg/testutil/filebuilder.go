// Package testutil builds small, well-formed SQLite database files in
// memory for tests. The layout matches what sqlite3 produces for
// databases created with CREATE TABLE and INSERT only: a schema table
// on page 1 and one table b-tree per user table.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"litedb/pkg/storage/record"
	"litedb/pkg/storage/varint"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

const (
	pageTypeTableInterior = 0x05
	pageTypeTableLeaf     = 0x0d

	leafHeaderSize     = 8
	interiorHeaderSize = 12
	fileHeaderSize     = 100
)

// TableDef describes one table to place in the generated file.
type TableDef struct {
	// Name is the table name stored in sqlite_schema.
	Name string
	// SQL is the CREATE TABLE text stored in sqlite_schema.
	SQL string
	// Rows are stored with rowids 1..len(Rows) in order.
	Rows []*tuple.Row
	// MaxLeafRows splits the table across multiple leaf pages under an
	// interior root when > 0 and len(Rows) exceeds it.
	MaxLeafRows int
}

// Builder assembles a database file.
type Builder struct {
	pageSize uint32
	tables   []TableDef
}

// NewBuilder creates a Builder with the given page size.
func NewBuilder(pageSize uint32) *Builder {
	return &Builder{pageSize: pageSize}
}

// AddTable appends a table definition.
func (b *Builder) AddTable(def TableDef) *Builder {
	b.tables = append(b.tables, def)
	return b
}

// Build produces the complete file image.
func (b *Builder) Build(t testing.TB) []byte {
	t.Helper()

	// Page 1 is the schema table; user tables follow.
	var userPages [][]byte
	var schemaRows []*tuple.Row

	nextPage := uint32(2)
	for _, def := range b.tables {
		rootPage, pages := b.buildTable(t, def, nextPage)
		schemaRows = append(schemaRows, tuple.RowOf(
			types.NewText("table"),
			types.NewText(def.Name),
			types.NewText(def.Name),
			types.NewInt(int64(rootPage)),
			types.NewText(def.SQL),
		))
		userPages = append(userPages, pages...)
		nextPage += uint32(len(pages))
	}

	schemaPage := b.buildLeaf(t, schemaRows, 1, fileHeaderSize)
	b.writeFileHeader(schemaPage, 1+uint32(len(userPages)))

	file := make([]byte, 0, int(b.pageSize)*(1+len(userPages)))
	file = append(file, schemaPage...)
	for _, p := range userPages {
		file = append(file, p...)
	}
	return file
}

// WriteTemp writes the file image into the test's temp dir and returns
// its path.
func (b *Builder) WriteTemp(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(path, b.Build(t), 0o644); err != nil {
		t.Fatalf("writing test database: %v", err)
	}
	return path
}

// buildTable lays out one table starting at firstPage, returning its
// root page number and the pages in file order.
func (b *Builder) buildTable(t testing.TB, def TableDef, firstPage uint32) (uint32, [][]byte) {
	t.Helper()

	maxLeafRows := def.MaxLeafRows
	if maxLeafRows <= 0 {
		maxLeafRows = len(def.Rows)
	}
	if len(def.Rows) <= maxLeafRows {
		return firstPage, [][]byte{b.buildLeaf(t, def.Rows, 1, 0)}
	}

	// Interior root first, then its leaves in rowid order.
	type child struct {
		page      uint32
		lastRowID int64
	}
	var children []child
	var leaves [][]byte
	leafPage := firstPage + 1
	for start := 0; start < len(def.Rows); start += maxLeafRows {
		end := start + maxLeafRows
		if end > len(def.Rows) {
			end = len(def.Rows)
		}
		leaves = append(leaves, b.buildLeaf(t, def.Rows[start:end], int64(start+1), 0))
		children = append(children, child{page: leafPage, lastRowID: int64(end)})
		leafPage++
	}

	root := make([]byte, b.pageSize)
	root[0] = pageTypeTableInterior
	numCells := len(children) - 1
	binary.BigEndian.PutUint16(root[3:5], uint16(numCells))
	binary.BigEndian.PutUint32(root[8:12], children[len(children)-1].page)

	contentStart := int(b.pageSize)
	ptr := interiorHeaderSize
	for _, c := range children[:numCells] {
		var cell []byte
		cell = binary.BigEndian.AppendUint32(cell, c.page)
		cell = varint.Append(cell, c.lastRowID)
		contentStart -= len(cell)
		copy(root[contentStart:], cell)
		binary.BigEndian.PutUint16(root[ptr:ptr+2], uint16(contentStart))
		ptr += 2
	}
	binary.BigEndian.PutUint16(root[5:7], uint16(contentStart))

	pages := [][]byte{root}
	pages = append(pages, leaves...)
	return firstPage, pages
}

// buildLeaf lays out one leaf page; headerOffset is 100 on page 1.
func (b *Builder) buildLeaf(t testing.TB, rows []*tuple.Row, firstRowID int64, headerOffset int) []byte {
	t.Helper()

	page := make([]byte, b.pageSize)
	page[headerOffset] = pageTypeTableLeaf
	binary.BigEndian.PutUint16(page[headerOffset+3:], uint16(len(rows)))

	contentStart := int(b.pageSize)
	ptr := headerOffset + leafHeaderSize
	for i, row := range rows {
		payload, err := record.Encode(row)
		if err != nil {
			t.Fatalf("encoding row %d: %v", i, err)
		}

		var cell []byte
		cell = varint.Append(cell, int64(len(payload)))
		cell = varint.Append(cell, firstRowID+int64(i))
		cell = append(cell, payload...)

		contentStart -= len(cell)
		if contentStart < ptr+2 {
			t.Fatalf("test table does not fit on one %dB page", b.pageSize)
		}
		copy(page[contentStart:], cell)
		binary.BigEndian.PutUint16(page[ptr:ptr+2], uint16(contentStart))
		ptr += 2
	}
	binary.BigEndian.PutUint16(page[headerOffset+5:], uint16(contentStart%65536))
	return page
}

// writeFileHeader stamps the 100-byte database header onto page 1.
func (b *Builder) writeFileHeader(page []byte, pageCount uint32) {
	copy(page[0:16], "SQLite format 3\x00")
	if b.pageSize == 65536 {
		binary.BigEndian.PutUint16(page[16:18], 1)
	} else {
		binary.BigEndian.PutUint16(page[16:18], uint16(b.pageSize))
	}
	page[18] = 1 // file format write version: legacy
	page[19] = 1 // file format read version: legacy
	page[20] = 0 // reserved space
	page[21] = 64
	page[22] = 32
	page[23] = 32
	binary.BigEndian.PutUint32(page[24:28], 1)         // change counter
	binary.BigEndian.PutUint32(page[28:32], pageCount) // database size in pages
	binary.BigEndian.PutUint32(page[44:48], 4)         // schema format number
	binary.BigEndian.PutUint32(page[56:60], 1)         // text encoding: UTF-8
	binary.BigEndian.PutUint32(page[96:100], 3037000)  // sqlite version number
}
