package table

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.SetString(ColID, "item-0")
	b.SetInt64(ColOffset, 200)
	b.SetInt64(ColLength, 100)
	b.EndRow()

	b.SetString(ColID, "item-1")
	b.SetInt64(ColOffset, 300)
	b.SetInt64(ColLength, 200)
	b.EndRow()

	tbl := b.Build()
	require.Equal(t, 2, tbl.NumRows())
	require.ElementsMatch(t, []string{ColID, ColOffset, ColLength}, tbl.ColumnNames())

	ids := tbl.Column(ColID)
	require.Equal(t, "item-0", ids.String(0))
	require.Equal(t, "item-1", ids.String(1))

	offsets := tbl.Column(ColOffset)
	require.Equal(t, int64(200), offsets.Int64(0))
	require.Equal(t, int64(300), offsets.Int64(1))
}

func TestTableFilter(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewStringColumn(ColID, []string{"a", "b", "c"})))
	require.NoError(t, tbl.AddColumn(NewInt64Column(ColOffset, []int64{200, 300, 500})))

	filtered := tbl.Filter(func(row int) bool {
		return tbl.Column(ColID).String(row) != "b"
	})

	require.Equal(t, 2, filtered.NumRows())
	require.Equal(t, "a", filtered.Column(ColID).String(0))
	require.Equal(t, "c", filtered.Column(ColID).String(1))
	require.Equal(t, int64(200), filtered.Column(ColOffset).Int64(0))
	require.Equal(t, int64(500), filtered.Column(ColOffset).Int64(1))
}

func TestAddColumnLengthMismatch(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewStringColumn(ColID, []string{"a", "b"})))

	err := tbl.AddColumn(NewInt64Column(ColOffset, []int64{1}))
	require.Error(t, err)
}

func TestDropAndRenameColumn(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewStringColumn(ColID, []string{"a"})))
	require.NoError(t, tbl.AddColumn(NewInt64Column(ColOffset, []int64{200})))

	tbl.DropColumn(ColOffset)
	require.False(t, tbl.HasColumn(ColOffset))

	require.NoError(t, tbl.RenameColumn(ColID, "renamed"))
	require.True(t, tbl.HasColumn("renamed"))
	require.False(t, tbl.HasColumn(ColID))
}

func TestRowsIteration(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewInt64Column(ColOffset, []int64{200, 300, 500})))

	var seen []int
	for i := range tbl.Rows() {
		seen = append(seen, i)
	}
	require.Equal(t, []int{0, 1, 2}, seen)
}
