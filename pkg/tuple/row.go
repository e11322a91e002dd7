package tuple

import (
	"strings"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

// Row is one row of data: an ordered sequence of values, optionally
// tagged with the rowid it was stored under.
type Row struct {
	values []types.Value

	// RowID is the table b-tree key this row was read from, or nil for
	// rows that never touched storage.
	RowID *int64
}

// NewRow creates an empty row with capacity for n values.
func NewRow(n int) *Row {
	return &Row{values: make([]types.Value, n)}
}

// RowOf builds a row directly from values.
func RowOf(values ...types.Value) *Row {
	return &Row{values: values}
}

// NumValues returns the number of values in the row.
func (r *Row) NumValues() int {
	return len(r.values)
}

// SetValue stores a value at position i.
func (r *Row) SetValue(i int, v types.Value) error {
	if i < 0 || i >= len(r.values) {
		return dberr.Newf(dberr.Internal, "value index %d out of bounds [0, %d)", i, len(r.values))
	}
	r.values[i] = v
	return nil
}

// ValueAt returns the value at position i.
func (r *Row) ValueAt(i int) (types.Value, error) {
	if i < 0 || i >= len(r.values) {
		return nil, dberr.Newf(dberr.Internal, "value index %d out of bounds [0, %d)", i, len(r.values))
	}
	return r.values[i], nil
}

// Values returns the underlying value slice. The slice is shared;
// callers that need the row beyond the next iterator advance must
// Clone first.
func (r *Row) Values() []types.Value {
	return r.values
}

// WithRowID tags the row with its storage key and returns it.
func (r *Row) WithRowID(rowid int64) *Row {
	r.RowID = &rowid
	return r
}

// Clone creates a deep copy of the row. Values are immutable, so a
// fresh slice referencing the same values suffices.
func (r *Row) Clone() *Row {
	values := make([]types.Value, len(r.values))
	copy(values, r.values)
	clone := &Row{values: values}
	if r.RowID != nil {
		id := *r.RowID
		clone.RowID = &id
	}
	return clone
}

// Equals reports whether two rows hold equal values at every position.
// RowIDs are not compared.
func (r *Row) Equals(other *Row) bool {
	if other == nil || len(r.values) != len(other.values) {
		return false
	}
	for i, v := range r.values {
		switch {
		case v == nil && other.values[i] == nil:
		case v == nil || other.values[i] == nil:
			return false
		case !v.Equals(other.values[i]):
			return false
		}
	}
	return true
}

// String returns the row values joined by tabs.
func (r *Row) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		if v == nil {
			parts[i] = "NULL"
		} else {
			parts[i] = v.String()
		}
	}
	return strings.Join(parts, "\t")
}
