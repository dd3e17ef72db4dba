package services

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func TestToCSV_RoundTrip(t *testing.T) {
	listings := []models.Listing{
		{
			Name:        "Trilocale, Albaro",
			URL:         "https://example.com/b",
			Description: "Says \"bright\"\nsecond line",
			Rooms:       intPtr(3),
			Price:       floatPtr64(1250000),
			SizeM2:      floatPtr64(100.5),
			PricePerM2:  floatPtr64(12437.81094527363),
		},
		{
			Name: "Monolocale",
			URL:  "https://example.com/c",
		},
	}

	data, err := ToCSV(listings)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{
		"Trilocale, Albaro",
		"https://example.com/b",
		"Says \"bright\"\nsecond line",
		"3",
		"1250000",
		"100.5",
		"12437.81094527363",
	}, records[1])
	assert.Equal(t, []string{"Monolocale", "https://example.com/c", "", "", "", "", ""}, records[2])
}

func TestToCSV_LineEndingsNormalized(t *testing.T) {
	listings := []models.Listing{
		{Name: "Bilocale", URL: "https://example.com/a", Description: "line1\r\nline2\rline3\nline4"},
	}

	data, err := ToCSV(listings)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "line1\r")

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "line1\nline2\nline3\nline4", records[1][2])
}

func TestToCSV_NoScientificNotation(t *testing.T) {
	data, err := ToCSV([]models.Listing{{Price: floatPtr64(1e21), SizeM2: floatPtr64(0.000001)}})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000", records[1][4])
	assert.Equal(t, "0.000001", records[1][5])
}

func TestToCSV_Empty(t *testing.T) {
	data, err := ToCSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{CSVHeader}, records)
}

func TestToCSV_FromQueryRows(t *testing.T) {
	session := newSeededSession(t)
	svc := newTestService(t, testView)

	rows, err := svc.FetchRows(t.Context(), session, models.FilterState{}, 0, 0)
	require.NoError(t, err)

	data, err := ToCSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Bilocale", "https://example.com/a", "Two rooms", "2", "100", "50", "2"}, records[1])
	assert.Equal(t, "Three rooms, \"bright\"", records[2][2])
	assert.Equal(t, "", records[3][4], "NULL price exports as an empty field")
}
