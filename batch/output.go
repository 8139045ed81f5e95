// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/geobatch/geobatch/utils/textutils"
)

// ReverseHeader is the output header of a reverse run.
var ReverseHeader = []string{"latitude", "longitude", "address", "country", "state", "city", "postcode"}

// ForwardHeader is the output header of a forward run.
var ForwardHeader = []string{"query", "latitude", "longitude", "address", "country", "state", "city", "postcode"}

// Header returns the output header of mode, with the error column when asked.
func Header(mode Mode, withErrors bool) []string {
	h := ReverseHeader
	if mode == ModeForward {
		h = ForwardHeader
	}

	h = append([]string(nil), h...)
	if withErrors {
		h = append(h, "error")
	}

	return h
}

// Record returns the CSV fields of r. Reverse rows echo the input coordinates
// as written; forward rows carry the provider coordinates.
func (r *ResultRow) Record(mode Mode, withErrors bool) []string {
	var rec []string

	if mode == ModeForward {
		lat, lng := "", ""
		if r.OK() {
			lat, lng = textutils.FormatFloat(r.Lat), textutils.FormatFloat(r.Lng)
		}

		rec = []string{r.Query.Address, lat, lng}
	} else {
		rec = []string{r.Query.LatText, r.Query.LngText}
	}

	rec = append(rec, r.Address, r.Country, r.State, r.City, r.Postcode)

	if withErrors {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}

		rec = append(rec, msg)
	}

	return rec
}

// WriteCSV writes the header of mode followed by one record per row.
func WriteCSV(w io.Writer, mode Mode, rows []*ResultRow, withErrors bool) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header(mode, withErrors)); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range rows {
		if err := cw.Write(r.Record(mode, withErrors)); err != nil {
			return fmt.Errorf("writing CSV line %d: %w", r.Query.Line, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// CountFailed returns how many rows carry an error.
func CountFailed(rows []*ResultRow) int {
	n := 0

	for _, r := range rows {
		if r.Err != nil {
			n++
		}
	}

	return n
}

// SaveCSV writes the rows to a CSV file at path.
func SaveCSV(path string, mode Mode, rows []*ResultRow, withErrors bool) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	return errors.Join(WriteCSV(f, mode, rows, withErrors), f.Close())
}
