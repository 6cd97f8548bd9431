package registry

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader("record_id,sex,code,empty\n7,sct_248153007,HP:0001513,\n8,,NaN,\n9,sct_248152002,,\n"))
	require.NoError(t, err)
	return tbl
}

func TestReadCSV(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"record_id", "sex", "code", "empty"}, tbl.Columns())

	v, ok := tbl.Value(0, "sex")
	assert.True(t, ok)
	assert.Equal(t, "sct_248153007", v)

	_, ok = tbl.Value(1, "code")
	assert.False(t, ok, "NaN is read as null")

	row := tbl.Row(1)
	_, ok = row.Get("sex")
	assert.False(t, ok)
	v, _ = row.Get("record_id")
	assert.Equal(t, "8", v)
}

func TestReadCSVSemicolonAndBOM(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\xef\xbb\xbfa;b\n1;2\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	v, _ := tbl.Value(0, "b")
	assert.Equal(t, "2", v)
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestReadCSVRagged(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1\n"))
	assert.ErrorIs(t, err, ErrRaggedRow)
}

func TestMapColumn(t *testing.T) {
	tbl := sampleTable(t)
	calls := 0
	err := tbl.MapColumn("sex", "parsed_sex", func(v string) (string, error) {
		calls++
		return strings.ToUpper(v), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "nulls are skipped")

	v, ok := tbl.Value(0, "parsed_sex")
	assert.True(t, ok)
	assert.Equal(t, "SCT_248153007", v)
	_, ok = tbl.Value(1, "parsed_sex")
	assert.False(t, ok)

	err = tbl.MapColumn("missing", "x", func(v string) (string, error) { return v, nil })
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.False(t, tbl.HasColumn("x"))
}

func TestMapColumnDictAndFill(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.MapColumnDict("sex", "label", map[string]string{"sct_248153007": "MALE"}))
	require.NoError(t, tbl.FillNull("label", "UNKNOWN"))

	col, err := tbl.Column("label")
	require.NoError(t, err)
	assert.Equal(t, []string{"MALE", "UNKNOWN", "UNKNOWN"}, col)
}

func TestIDAndDropColumns(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.DropColumn("record_id"))
	tbl.AddIDColumn("mc4r_id", "")

	ids, err := tbl.Column("mc4r_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, ids)
	assert.False(t, tbl.HasColumn("record_id"))

	dropped := tbl.DropNullColumns(true, false)
	assert.Equal(t, []string{"empty"}, dropped)
	assert.Equal(t, []string{"sex", "code", "mc4r_id"}, tbl.Columns())

	v, _ := tbl.Value(2, "sex")
	assert.Equal(t, "sct_248152002", v, "cells stay aligned after drops")
}

func TestNullAnalysis(t *testing.T) {
	stats := sampleTable(t).NullAnalysis()
	require.Len(t, stats, 4)
	assert.Equal(t, ColumnNulls{Column: "empty", Nulls: 3, Ratio: 1}, stats[3])
	assert.Equal(t, 1, stats[1].Nulls)
}

func TestPartitionSizes(t *testing.T) {
	sizes, err := PartitionSizes(10, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 3}, sizes)

	for n := 1; n <= 40; n++ {
		for k := 1; k <= 12; k++ {
			sizes, err := PartitionSizes(n, k)
			require.NoError(t, err)
			sum, lo, hi := 0, sizes[0], sizes[0]
			for i, s := range sizes {
				sum += s
				if s < lo {
					lo = s
				}
				if s > hi {
					hi = s
				}
				if i > 0 {
					assert.LessOrEqual(t, s, sizes[i-1])
				}
			}
			assert.Equal(t, n, sum)
			assert.LessOrEqual(t, hi-lo, 1)
		}
	}

	_, err = PartitionSizes(0, 4)
	assert.ErrorIs(t, err, ErrNoRows)
	_, err = PartitionSizes(4, 0)
	assert.ErrorIs(t, err, ErrNoChunks)
}

func TestSplit(t *testing.T) {
	tbl := sampleTable(t)
	chunks, err := Split(tbl, []int{2, 1, 0})
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 2, chunks[0].Len())
	assert.Equal(t, 0, chunks[2].Len())

	v, _ := chunks[1].Value(0, "record_id")
	assert.Equal(t, "9", v)

	require.NoError(t, chunks[0].FillNull("sex", "x"))
	v, _ = tbl.Value(1, "sex")
	assert.Empty(t, v, "chunks do not share cells with the source")

	_, err = Split(tbl, []int{1, 1})
	assert.Error(t, err)
}

func TestReadXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"record_id", "sex", "sct_184099003_y"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"1", "sct_248153007", 2000}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	v, _ := tbl.Value(0, "sct_184099003_y")
	assert.Equal(t, "2000", v)
	_, ok := tbl.Value(1, "sex")
	assert.False(t, ok)
}

func TestReadXLSXFileDateCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"record_id", "sct_432213005", "sct_8116006_1_date", "ln_48005_3_1"}))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "1"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", time.Date(2018, 4, 12, 0, 0, 0, 0, time.UTC)))

	layout := "dd.mm.yyyy"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &layout})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "C2", 43571))
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C2", custom))

	decimal, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "D2", 1.5))
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D2", decimal))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := ReadXLSXFile(path)
	require.NoError(t, err)
	v, _ := tbl.Value(0, "sct_432213005")
	assert.Equal(t, "2018-04-12", v)
	v, _ = tbl.Value(0, "sct_8116006_1_date")
	assert.Equal(t, "2019-04-16", v)
	v, _ = tbl.Value(0, "ln_48005_3_1")
	assert.Equal(t, "1.5", v, "number formats other than dates keep the raw value")
}

func TestIsDatePattern(t *testing.T) {
	assert.True(t, isDatePattern("yyyy-mm-dd"))
	assert.True(t, isDatePattern("[$-407]d. mmmm yyyy"))
	assert.False(t, isDatePattern("[Red]0.00"))
	assert.False(t, isDatePattern(`0.0 "days"`))
	assert.False(t, isDatePattern("General"))
}

func TestDeleteRows(t *testing.T) {
	tbl := sampleTable(t)
	tbl.DeleteRows([]int{0, 2, 9})
	require.Equal(t, 1, tbl.Len())
	v, _ := tbl.Value(0, "record_id")
	assert.Equal(t, "8", v)
}
