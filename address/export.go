// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package address

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geobatch/geobatch/spatial"
	"github.com/geobatch/geobatch/utils/textutils"
)

// ErrNoAddressColumns is returned when a CSV has neither an address column
// nor a latitude/longitude pair.
var ErrNoAddressColumns = errors.New("no address or latitude/longitude columns found")

var (
	addressColumns   = []string{"address", "direccion"}
	latitudeColumns  = []string{"lat", "latitude", "latitud"}
	longitudeColumns = []string{"lng", "lon", "long", "longitude", "longitud"}
)

// findColumn matches header names ignoring case and accents.
func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if textutils.LowerASCIIFolding(h) == name {
				return i
			}
		}
	}

	return -1
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[i])
}

// ReadInputs reads a CSV with a header row. The address column and the
// latitude/longitude pair are matched by name, case-insensitively; either
// may be absent but not both. Unparsable coordinates are reported in
// Input.Err rather than failing the whole file.
func ReadInputs(r io.Reader) ([]Input, error) {
	cr := csv.NewReader(textutils.NewBOMReader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	addrCol := findColumn(header, addressColumns)
	latCol := findColumn(header, latitudeColumns)
	lngCol := findColumn(header, longitudeColumns)

	if latCol < 0 || lngCol < 0 {
		latCol, lngCol = -1, -1
	}

	if addrCol < 0 && latCol < 0 {
		return nil, fmt.Errorf("%w in header %v", ErrNoAddressColumns, header)
	}

	var inputs []Input

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		in := Input{
			Index:   len(inputs) + 1,
			Address: field(record, addrCol),
		}

		if latText, lngText := field(record, latCol), field(record, lngCol); latText != "" || lngText != "" {
			in.Point, in.Err = parsePoint(latText, lngText)
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}

func parsePoint(latText, lngText string) (*spatial.Point, error) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", latText, err)
	}

	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", lngText, err)
	}

	p := &spatial.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// CSVHeader is the flattened column order of WriteCSV.
var CSVHeader = []string{
	"index",
	"address",
	"latitude",
	"longitude",
	"completed_address",
	"normalized_address",
	"method_used",
	"confidence",
	"completeness_score",
	"missing_components",
	"suggestions",
	"postcode",
	"postcode_valid",
	"country",
	"country_code",
	"state",
	"county",
	"city",
	"suburb",
	"timezone",
	"timezone_offset",
	"currency",
	"calling_code",
	"flag",
	"geohash",
	"mgrs",
	"maidenhead",
	"h3_cell",
	"error",
}

func (e *Enhanced) finalPoint() *spatial.Point {
	switch {
	case e.Enrichment != nil && e.Enrichment.Point != nil:
		return e.Enrichment.Point
	case e.Completion != nil && e.Completion.Point != nil:
		return e.Completion.Point
	default:
		return e.Point
	}
}

func (e *Enhanced) csvRow() []string {
	row := make(map[string]string, len(CSVHeader))

	row["index"] = strconv.Itoa(e.Index)
	row["address"] = e.Address
	row["completeness_score"] = textutils.FormatFloat(e.Completeness.Confidence)
	row["missing_components"] = strings.Join(e.Completeness.Missing, ";")
	row["normalized_address"] = e.NormalizedAddress
	row["method_used"] = e.Quality.Method
	row["error"] = e.Error

	if p := e.finalPoint(); p != nil {
		row["latitude"] = textutils.FormatFloat(p.Lat)
		row["longitude"] = textutils.FormatFloat(p.Lng)
	}

	if c := e.Completion; c != nil {
		row["completed_address"] = c.Completed
		row["method_used"] = c.Method
		row["confidence"] = textutils.FormatFloat(c.Confidence)
		row["suggestions"] = strings.Join(c.Suggestions, ";")
	}

	if v := e.PostalValidation; v != nil {
		row["postcode_valid"] = strconv.FormatBool(v.Valid)
	}

	if en := e.Enrichment; en != nil {
		row["postcode"] = en.Postcode
		row["h3_cell"] = en.H3Cell

		if a := en.Administrative; a != nil {
			row["country"] = a.Country
			row["country_code"] = a.CountryCode
			row["state"] = a.State
			row["county"] = a.County
			row["city"] = a.City
			row["suburb"] = a.Suburb
		}

		if an := en.Annotations; an != nil {
			row["timezone"] = an.Timezone.Name
			row["timezone_offset"] = an.Timezone.OffsetString
			row["currency"] = an.Currency.ISOCode
			row["flag"] = an.Flag
			row["geohash"] = an.Geohash
			row["mgrs"] = an.MGRS
			row["maidenhead"] = an.Maidenhead

			if an.CallingCode != 0 {
				row["calling_code"] = strconv.Itoa(an.CallingCode)
			}
		}
	}

	out := make([]string, len(CSVHeader))
	for i, col := range CSVHeader {
		out[i] = row[col]
	}

	return out
}

// WriteCSV writes the enhanced addresses flattened to CSVHeader.
func WriteCSV(w io.Writer, rows []*Enhanced) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range rows {
		if err := cw.Write(r.csvRow()); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", r.Index, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteJSON writes the enhanced addresses as an indented JSON array.
func WriteJSON(w io.Writer, rows []*Enhanced) error {
	if rows == nil {
		rows = []*Enhanced{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// Save writes rows to path in the given format ("csv" or "json").
func Save(path, format string, rows []*Enhanced) error {
	var write func(io.Writer, []*Enhanced) error

	switch strings.ToLower(format) {
	case "csv", "":
		write = WriteCSV
	case "json":
		write = WriteJSON
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	return errors.Join(write(f, rows), f.Close())
}
