package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

// CSVHeader is the fixed column order of exported listings.
var CSVHeader = []string{
	"Name",
	"URL",
	"Description",
	"Rooms",
	"Price (EUR)",
	"Size (m²)",
	"Price per m² (EUR)",
}

// ToCSV serializes listings with a header row. Numbers are written in plain
// fixed-point notation without grouping; NULL values become empty fields.
// Quoting follows RFC 4180. Line breaks inside text fields are written as
// "\n", so a CRLF in a description reads back as "\n".
func ToCSV(listings []models.Listing) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(CSVHeader))
	for _, l := range listings {
		record[0] = normalizeNewlines(l.Name)
		record[1] = l.URL
		record[2] = normalizeNewlines(l.Description)
		record[3] = formatInt(l.Rooms)
		record[4] = formatFloat(l.Price)
		record[5] = formatFloat(l.SizeM2)
		record[6] = formatFloat(l.PricePerM2)
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
