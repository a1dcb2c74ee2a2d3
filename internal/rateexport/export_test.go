package rateexport_test

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rateintake/internal/domain"
	"rateintake/internal/rateexport"
	"rateintake/internal/ratetable"
)

func sampleTable() ratetable.Table {
	return ratetable.Normalize([]domain.RateRow{
		{"job_title": "Engineer", "us_rate": 100.0, "offshore_rate": "$45.5", "region3_rate": 0.0},
		{"job_title": "Analyst", "us_rate": 80.126, "offshore_rate": nil, "region3_rate": nil},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    rateexport.Format
		wantErr bool
	}{
		{"", rateexport.FormatCSV, false},
		{"CSV", rateexport.FormatCSV, false},
		{"xlsx", rateexport.FormatXLSX, false},
		{"excel", rateexport.FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := rateexport.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBytes_CSV(t *testing.T) {
	data, err := rateexport.Bytes(rateexport.FormatCSV, sampleTable())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, rateexport.BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(rateexport.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	header := records[0]
	assert.Len(t, header, 3, "all-zero region3 column is pruned")
	assert.Equal(t, "Job Title", header[0])
	assert.Equal(t, "Engineer", records[1][0])
	assert.Contains(t, records[2], "80.13")
}

func TestBytes_XLSX(t *testing.T) {
	table := sampleTable()
	data, err := rateexport.Bytes(rateexport.FormatXLSX, table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Rates"}, f.GetSheetList())
	rows, err := f.GetRows("Rates")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Job Title", rows[0][0])
	assert.Equal(t, "Analyst", rows[2][0])

	// numeric cells stay numeric
	usCol := -1
	for i, c := range table.Columns {
		if c.Key == "us_rate" {
			usCol = i + 1
		}
	}
	require.Positive(t, usCol)
	cell, err := excelize.CoordinatesToCellName(usCol, 2)
	require.NoError(t, err)
	typ, err := f.GetCellType("Rates", cell)
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)
}

func TestBytes_EmptyTable(t *testing.T) {
	data, err := rateexport.Bytes(rateexport.FormatCSV, ratetable.Table{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, rateexport.BOM))

	_, err = rateexport.Bytes(rateexport.FormatXLSX, ratetable.Table{})
	assert.NoError(t, err)
}

func TestBytes_UnknownFormat(t *testing.T) {
	_, err := rateexport.Bytes(rateexport.Format("ods"), sampleTable())
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Acme_Sons_Ltd", rateexport.SanitizeFilename("Acme & Sons, Ltd."))
	assert.Equal(t, "rate_card", rateexport.SanitizeFilename("  ***  "))
	assert.Len(t, rateexport.SanitizeFilename(string(bytes.Repeat([]byte("a"), 300))), 100)
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Northwind_rates_2026-03-09.xlsx", rateexport.BuildFilename("Northwind", rateexport.FormatXLSX, now))
	assert.Equal(t, "rate_card_rates_2026-03-09.csv", rateexport.BuildFilename("", rateexport.FormatCSV, now))
}
