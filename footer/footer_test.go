package footer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tacofoundation/tortilla/compress"
	"github.com/tacofoundation/tortilla/table"
)

func buildSampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.New()
	require.NoError(t, tbl.AddColumn(table.NewStringColumn(table.ColID, []string{"item-0", "item-1"})))
	require.NoError(t, tbl.AddColumn(table.NewInt64Column(table.ColOffset, []int64{200, 300})))
	require.NoError(t, tbl.AddColumn(table.NewInt64Column(table.ColLength, []int64{100, 200})))
	require.NoError(t, tbl.AddColumn(table.NewFloat64Column("stac:centroid:lat", []float64{12.5, -3.25})))
	require.NoError(t, tbl.AddColumn(table.NewBoolColumn("internal:cloud_cover_flag", []bool{true, false})))
	require.NoError(t, tbl.AddColumn(table.NewInt64ListColumn("aux:band_ids", [][]int64{{1, 2, 3}, {4}})))

	return tbl
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, kind := range []compress.Kind{compress.KindZstd, compress.KindS2, compress.KindLZ4, compress.KindNone} {
		t.Run(kind.String(), func(t *testing.T) {
			tbl := buildSampleTable(t)

			codec, err := compress.New(kind)
			require.NoError(t, err)

			encoded, err := Encode(tbl, codec)
			require.NoError(t, err)
			require.NotEmpty(t, encoded)

			decoded, err := Decode(encoded, codec)
			require.NoError(t, err)
			require.Equal(t, tbl.NumRows(), decoded.NumRows())
			require.Equal(t, tbl.ColumnNames(), decoded.ColumnNames())

			require.Equal(t, "item-0", decoded.Column(table.ColID).String(0))
			require.Equal(t, int64(300), decoded.Column(table.ColOffset).Int64(1))
			require.Equal(t, []int64{4}, decoded.Column("aux:band_ids").Int64List(1))
			require.Equal(t, true, decoded.Column("internal:cloud_cover_flag").Bool(0))
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	codec, err := compress.New(compress.KindZstd)
	require.NoError(t, err)

	_, err = Decode([]byte("not a valid footer"), codec)
	require.Error(t, err)
}
