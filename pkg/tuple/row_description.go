package tuple

import (
	"fmt"
	"strings"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

// RowDescription describes the schema of a row: the declared type and
// name of each column, in order.
type RowDescription struct {
	// Types contains the declared type of each column.
	Types []types.Type
	// Names contains the name of each column.
	Names []string
}

// NewRowDescription creates a RowDescription from parallel type and
// name slices. Both slices are copied.
func NewRowDescription(colTypes []types.Type, colNames []string) (*RowDescription, error) {
	if len(colTypes) < 1 {
		return nil, dberr.New(dberr.Internal, "row description must have at least one column")
	}
	if len(colNames) != len(colTypes) {
		return nil, dberr.Newf(dberr.Internal,
			"column names length (%d) must match column types length (%d)",
			len(colNames), len(colTypes))
	}

	typesCopy := make([]types.Type, len(colTypes))
	copy(typesCopy, colTypes)
	namesCopy := make([]string, len(colNames))
	copy(namesCopy, colNames)

	return &RowDescription{Types: typesCopy, Names: namesCopy}, nil
}

// NumColumns returns the number of columns in the schema.
func (rd *RowDescription) NumColumns() int {
	return len(rd.Types)
}

// NameAt returns the name of column i.
func (rd *RowDescription) NameAt(i int) (string, error) {
	if i < 0 || i >= len(rd.Names) {
		return "", dberr.Newf(dberr.Internal, "column index %d out of bounds [0, %d)", i, len(rd.Names))
	}
	return rd.Names[i], nil
}

// TypeAt returns the declared type of column i.
func (rd *RowDescription) TypeAt(i int) (types.Type, error) {
	if i < 0 || i >= len(rd.Types) {
		return 0, dberr.Newf(dberr.Internal, "column index %d out of bounds [0, %d)", i, len(rd.Types))
	}
	return rd.Types[i], nil
}

// FindColumn locates a column by name with a case-insensitive linear
// search. Fails with UnknownColumn if no column has that name.
func (rd *RowDescription) FindColumn(name string) (int, error) {
	for i, n := range rd.Names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, dberr.Newf(dberr.UnknownColumn, "no such column: %s", name)
}

// Equals reports whether two descriptions have the same column types
// in the same order. Names are not compared.
func (rd *RowDescription) Equals(other *RowDescription) bool {
	if other == nil || len(rd.Types) != len(other.Types) {
		return false
	}
	for i, t := range rd.Types {
		if t != other.Types[i] {
			return false
		}
	}
	return true
}

// String returns "name TYPE, name TYPE, ..." for display.
func (rd *RowDescription) String() string {
	parts := make([]string, len(rd.Types))
	for i, t := range rd.Types {
		parts[i] = fmt.Sprintf("%s %s", rd.Names[i], t)
	}
	return strings.Join(parts, ", ")
}
