// Package record implements the SQLite record format: a header of
// serial-type codes followed by a body of value bytes, used as the
// payload of every table b-tree leaf cell.
package record

import (
	"litedb/pkg/dberr"
	"litedb/pkg/storage/serial"
	"litedb/pkg/storage/varint"
	"litedb/pkg/tuple"
	"litedb/pkg/types"
)

// DecodeRaw parses a record payload into its storage-class values
// without consulting a schema.
func DecodeRaw(payload []byte) (*tuple.Row, error) {
	headerLen, n, err := varint.Read(payload)
	if err != nil {
		return nil, err
	}
	if headerLen < int64(n) || headerLen > int64(len(payload)) {
		return nil, dberr.Newf(dberr.Corrupt, "record header length %d out of range", headerLen)
	}

	var values []types.Value
	headerOff := n
	bodyOff := int(headerLen)
	for headerOff < int(headerLen) {
		code, m, err := varint.Read(payload[headerOff:int(headerLen)])
		if err != nil {
			return nil, err
		}
		headerOff += m

		size, err := serial.ContentSize(code)
		if err != nil {
			return nil, err
		}
		if bodyOff+size > len(payload) {
			return nil, dberr.Newf(dberr.Corrupt, "record body truncated: need %d bytes at offset %d", size, bodyOff)
		}

		v, err := serial.Decode(code, payload[bodyOff:bodyOff+size])
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		bodyOff += size
	}

	return tuple.RowOf(values...), nil
}

// Decode parses a record payload and casts each value to its declared
// column type. The row must have exactly as many values as the schema
// has columns.
func Decode(payload []byte, desc *tuple.RowDescription) (*tuple.Row, error) {
	raw, err := DecodeRaw(payload)
	if err != nil {
		return nil, err
	}
	if raw.NumValues() != desc.NumColumns() {
		return nil, dberr.Newf(dberr.Corrupt, "record has %d values, schema has %d columns",
			raw.NumValues(), desc.NumColumns())
	}

	row := tuple.NewRow(desc.NumColumns())
	for i := 0; i < desc.NumColumns(); i++ {
		v, _ := raw.ValueAt(i)
		cast, err := types.Cast(v, desc.Types[i])
		if err != nil {
			return nil, err
		}
		if err := row.SetValue(i, cast); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// Encode builds a record payload from a row, choosing the narrowest
// serial type for each value.
func Encode(row *tuple.Row) ([]byte, error) {
	var header, body []byte
	var err error
	for _, v := range row.Values() {
		if v == nil {
			v = types.NewNull()
		}
		header, body, err = serial.Append(header, body, v)
		if err != nil {
			return nil, err
		}
	}

	totalHeaderLen := headerLen(len(header))
	payload := make([]byte, 0, totalHeaderLen+len(body))
	payload = varint.Append(payload, int64(totalHeaderLen))
	payload = append(payload, header...)
	payload = append(payload, body...)
	return payload, nil
}

func headerLen(l int) int {
	return l + headerLenLen(l)
}

func headerLenLen(l int) int {
	// The header length varint counts itself, so it may need to be one
	// byte wider than the length of the codes alone suggests.
	return varint.Length(l + varint.Length(l))
}
