package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litedb/pkg/dberr"
	"litedb/pkg/types"
)

func TestNewRowDescription(t *testing.T) {
	rd, err := NewRowDescription(
		[]types.Type{types.IntType, types.TextType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, rd.NumColumns())

	name, err := rd.NameAt(1)
	require.NoError(t, err)
	assert.Equal(t, "name", name)

	typ, err := rd.TypeAt(0)
	require.NoError(t, err)
	assert.Equal(t, types.IntType, typ)

	assert.Equal(t, "id INT, name TEXT", rd.String())
}

func TestNewRowDescriptionRejectsMismatchedLengths(t *testing.T) {
	_, err := NewRowDescription([]types.Type{types.IntType}, []string{"a", "b"})
	require.Error(t, err)

	_, err = NewRowDescription(nil, nil)
	require.Error(t, err)
}

func TestFindColumn(t *testing.T) {
	rd, err := NewRowDescription(
		[]types.Type{types.IntType, types.TextType},
		[]string{"id", "Name"},
	)
	require.NoError(t, err)

	i, err := rd.FindColumn("name")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = rd.FindColumn("missing")
	require.Error(t, err)
	assert.True(t, dberr.Is(err, dberr.UnknownColumn))
}

func TestRowDescriptionEquals(t *testing.T) {
	a, _ := NewRowDescription([]types.Type{types.IntType}, []string{"a"})
	b, _ := NewRowDescription([]types.Type{types.IntType}, []string{"b"})
	c, _ := NewRowDescription([]types.Type{types.TextType}, []string{"a"})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(nil))
}

func TestRowAccess(t *testing.T) {
	r := NewRow(2)
	require.NoError(t, r.SetValue(0, types.NewInt(1)))
	require.NoError(t, r.SetValue(1, types.NewText("x")))

	v, err := r.ValueAt(0)
	require.NoError(t, err)
	assert.True(t, types.NewInt(1).Equals(v))

	require.Error(t, r.SetValue(2, types.NewInt(0)))
	_, err = r.ValueAt(-1)
	require.Error(t, err)
}

func TestRowCloneIsIndependent(t *testing.T) {
	r := RowOf(types.NewInt(1), types.NewText("a")).WithRowID(7)
	clone := r.Clone()

	require.NoError(t, r.SetValue(0, types.NewInt(99)))

	v, err := clone.ValueAt(0)
	require.NoError(t, err)
	assert.True(t, types.NewInt(1).Equals(v))
	require.NotNil(t, clone.RowID)
	assert.Equal(t, int64(7), *clone.RowID)
}

func TestRowEquals(t *testing.T) {
	a := RowOf(types.NewInt(1), types.NewNull())
	b := RowOf(types.NewInt(1), types.NewNull())
	c := RowOf(types.NewInt(2), types.NewNull())

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(RowOf(types.NewInt(1))))
}

func TestRowString(t *testing.T) {
	r := RowOf(types.NewInt(1), types.NewText("hi"))
	assert.Equal(t, "1\thi", r.String())
}
