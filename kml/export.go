// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package kml

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/geobatch/geobatch/utils/textutils"
)

// CSVHeader is the fixed column order of the CSV export.
var CSVHeader = []string{
	"index",
	"id",
	"address",
	"longitude",
	"latitude",
	"altitude",
	"coordinates_raw",
}

func optionalFloat(f *float64) string {
	if f == nil {
		return ""
	}

	return textutils.FormatFloat(*f)
}

// WriteCSV writes the records, preceded by CSVHeader.
func WriteCSV(w io.Writer, records []*Record) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Index),
			r.ID,
			r.Address,
			optionalFloat(r.Longitude),
			optionalFloat(r.Latitude),
			optionalFloat(r.Altitude),
			r.CoordinatesRaw,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", r.Index, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteJSON writes the records as an indented JSON array. Missing coordinates
// are rendered as null.
func WriteJSON(w io.Writer, records []*Record) error {
	if records == nil {
		records = []*Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// SaveCSV writes the records to a CSV file at path.
func SaveCSV(path string, records []*Record) error {
	return save(path, records, WriteCSV)
}

// SaveJSON writes the records to a JSON file at path.
func SaveJSON(path string, records []*Record) error {
	return save(path, records, WriteJSON)
}

func save(path string, records []*Record, write func(io.Writer, []*Record) error) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	return errors.Join(write(f, records), f.Close())
}

// Summary counts how many records carry each optional field.
type Summary struct {
	Total           int
	WithID          int
	WithCoordinates int
	WithAddress     int
}

// Summarize computes the Summary of the records.
func Summarize(records []*Record) Summary {
	s := Summary{Total: len(records)}

	for _, r := range records {
		if r.ID != "" {
			s.WithID++
		}

		if r.HasCoordinates() {
			s.WithCoordinates++
		}

		if r.Address != "" {
			s.WithAddress++
		}
	}

	return s
}
