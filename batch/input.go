// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch drives one geocoding call per input row and writes one output
// row per input row, in input order.
package batch

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geobatch/geobatch/spatial"
	"github.com/geobatch/geobatch/utils/textutils"
)

// Format of an input file.
type Format string

// Supported input formats.
const (
	FormatCSV Format = "csv"
	FormatTXT Format = "txt"
)

var (
	// ErrUnknownFormat is returned for a format override other than csv or txt.
	ErrUnknownFormat = errors.New("unknown input format")

	// ErrNoColumns is returned when a CSV has no usable columns.
	ErrNoColumns = errors.New("no usable columns")
)

// DetectFormat returns the override when given, otherwise FormatCSV for a
// .csv extension and FormatTXT for anything else.
func DetectFormat(path, override string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(override)) {
	case "":
	case "csv":
		return FormatCSV, nil
	case "txt":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, override)
	}

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV, nil
	}

	return FormatTXT, nil
}

// QueryRow is one input row: a coordinate pair in reverse mode or a free-text
// address in forward mode. A row with Err set was rejected while reading and
// is not sent to the provider.
type QueryRow struct {
	// Line is the 1-based line (TXT) or record (CSV) number in the input.
	Line int

	// LatText and LngText keep the coordinates as written in the input.
	LatText string
	LngText string

	Lat float64
	Lng float64

	Address string

	Err error
}

// Valid reports whether the row can be sent to the provider.
func (r *QueryRow) Valid() bool {
	return r.Err == nil
}

func coordinateRow(line int, latText, lngText string) QueryRow {
	row := QueryRow{
		Line:    line,
		LatText: strings.TrimSpace(latText),
		LngText: strings.TrimSpace(lngText),
	}

	lat, err := strconv.ParseFloat(row.LatText, 64)
	if err != nil {
		row.Err = fmt.Errorf("line %d: invalid latitude %q", line, row.LatText)

		return row
	}

	lng, err := strconv.ParseFloat(row.LngText, 64)
	if err != nil {
		row.Err = fmt.Errorf("line %d: invalid longitude %q", line, row.LngText)

		return row
	}

	if err := spatial.ValidateCoordinates(lat, lng); err != nil {
		row.Err = fmt.Errorf("line %d: %w", line, err)

		return row
	}

	row.Lat, row.Lng = lat, lng

	return row
}

// columnPairs are tried in order to locate the coordinate columns of a CSV.
var columnPairs = [][2]string{
	{"lat", "lng"},
	{"latitude", "longitude"},
}

func findColumn(header []string, name string) int {
	for i, h := range header {
		if textutils.LowerASCIIFolding(h) == name {
			return i
		}
	}

	return -1
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

	return err == nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(textutils.NewBOMReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	return cr
}

// ReadCoordinates reads coordinate rows. CSV columns are resolved by name
// (lat/lng, then latitude/longitude) and fall back to the first two columns;
// in that case the first record is data when both fields are numeric. TXT
// holds one pair per line, separated by a comma or whitespace; blank lines
// and lines starting with # are skipped.
func ReadCoordinates(r io.Reader, format Format) ([]QueryRow, error) {
	switch format {
	case FormatCSV:
		return readCoordinatesCSV(r)
	case FormatTXT:
		return readCoordinatesTXT(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func readCoordinatesCSV(r io.Reader) ([]QueryRow, error) {
	records, err := newCSVReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	latCol, lngCol := -1, -1

	for _, pair := range columnPairs {
		latCol, lngCol = findColumn(header, pair[0]), findColumn(header, pair[1])
		if latCol >= 0 && lngCol >= 0 {
			break
		}
	}

	data := records[1:]

	if latCol < 0 || lngCol < 0 {
		if len(header) < 2 {
			return nil, fmt.Errorf("%w: need lat/lng columns or at least two columns, got %v", ErrNoColumns, header)
		}

		latCol, lngCol = 0, 1

		if isNumber(header[0]) && isNumber(header[1]) {
			data = records
		}
	}

	// record numbers count the header when there is one
	first := len(records) - len(data) + 1
	rows := make([]QueryRow, 0, len(data))

	for i, rec := range data {
		line := first + i

		if latCol >= len(rec) || lngCol >= len(rec) {
			rows = append(rows, QueryRow{Line: line, Err: fmt.Errorf("line %d: expected at least %d columns, got %d", line, max(latCol, lngCol)+1, len(rec))})

			continue
		}

		rows = append(rows, coordinateRow(line, rec[latCol], rec[lngCol]))
	}

	return rows, nil
}

// scanLines calls fn for every line that is neither blank nor a comment.
func scanLines(r io.Reader, fn func(line int, text string)) error {
	scanner := bufio.NewScanner(textutils.NewBOMReader(r))
	line := 0

	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fn(line, text)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", line+1, err)
	}

	return nil
}

func readCoordinatesTXT(r io.Reader) ([]QueryRow, error) {
	var rows []QueryRow

	err := scanLines(r, func(line int, text string) {
		var parts []string
		if strings.Contains(text, ",") {
			parts = strings.Split(text, ",")
		} else {
			parts = strings.Fields(text)
		}

		if len(parts) != 2 {
			rows = append(rows, QueryRow{Line: line, Err: fmt.Errorf("line %d: expected 2 values, got %d", line, len(parts))})

			return
		}

		rows = append(rows, coordinateRow(line, parts[0], parts[1]))
	})

	return rows, err
}

// ReadAddresses reads forward geocoding rows. A CSV must have a header; the
// address column is used, or the first column when there is none. TXT holds
// one address per line with the same blank and comment rules as coordinates.
func ReadAddresses(r io.Reader, format Format) ([]QueryRow, error) {
	switch format {
	case FormatCSV:
		return readAddressesCSV(r)
	case FormatTXT:
		return readAddressesTXT(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func readAddressesCSV(r io.Reader) ([]QueryRow, error) {
	records, err := newCSVReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	col := findColumn(records[0], "address")
	if col < 0 {
		col = 0
	}

	rows := make([]QueryRow, 0, len(records)-1)

	for i, rec := range records[1:] {
		line := i + 2
		row := QueryRow{Line: line}

		if col < len(rec) {
			row.Address = strings.TrimSpace(rec[col])
		}

		if row.Address == "" {
			row.Err = fmt.Errorf("line %d: empty address", line)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func readAddressesTXT(r io.Reader) ([]QueryRow, error) {
	var rows []QueryRow

	err := scanLines(r, func(line int, text string) {
		rows = append(rows, QueryRow{Line: line, Address: text})
	})

	return rows, err
}
