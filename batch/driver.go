// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/geobatch/geobatch/address"
	"github.com/geobatch/geobatch/geocoding"
	"github.com/geobatch/geobatch/utils/textutils"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Mode is the geocoding direction of a run.
type Mode string

// Geocoding directions.
const (
	ModeReverse Mode = "reverse"
	ModeForward Mode = "forward"
)

// Options configures a Driver.
type Options struct {
	// Language is the preferred language of the results.
	Language string

	// CountryCode biases the results to a country.
	CountryCode string

	// Cleaner is applied to the address, country, state and city fields of
	// every result; nil disables cleaning.
	Cleaner *address.Cleaner

	// Progress shows a progress bar when stderr is a terminal.
	Progress bool

	// Verbose logs every successful row.
	Verbose bool
}

// Metrics counts the outcome of a run.
type Metrics struct {
	Rows      int
	Attempted int
	Succeeded int
	Failed    int
	Rejected  int
}

// ResultRow is the output for one QueryRow. Enrichment fields are empty when
// Err is set.
type ResultRow struct {
	Query QueryRow

	// Lat and Lng are the provider coordinates in forward mode.
	Lat float64
	Lng float64

	Address  string
	Country  string
	State    string
	City     string
	Postcode string

	Err error
}

// OK reports whether the row was geocoded.
func (r *ResultRow) OK() bool {
	return r.Err == nil
}

// Driver sends one provider call per valid row. Pacing between calls is the
// responsibility of the geocoder, see geocoding.PacedGeocoder.
type Driver struct {
	geocoder geocoding.Geocoder
	options  Options

	Metrics Metrics
}

// NewDriver creates a Driver on top of g.
func NewDriver(g geocoding.Geocoder, options *Options) *Driver {
	var opts Options
	if options != nil {
		opts = *options
	}

	return &Driver{geocoder: g, options: opts}
}

// Reverse turns every coordinate row into an address row.
func (d *Driver) Reverse(ctx context.Context, rows []QueryRow) ([]*ResultRow, error) {
	return d.run(ctx, ModeReverse, rows)
}

// Forward turns every address row into a coordinate row.
func (d *Driver) Forward(ctx context.Context, rows []QueryRow) ([]*ResultRow, error) {
	return d.run(ctx, ModeForward, rows)
}

func (d *Driver) geoOptions() geocoding.Options {
	return geocoding.Options{
		Language:      d.options.Language,
		CountryCode:   d.options.CountryCode,
		NoAnnotations: true,
	}
}

func (d *Driver) run(ctx context.Context, mode Mode, rows []QueryRow) ([]*ResultRow, error) {
	n := len(rows)
	out := make([]*ResultRow, 0, n)

	var bar *progressbar.ProgressBar
	if d.options.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription(fmt.Sprintf("Geocoding (%s)", mode)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		row := d.process(ctx, mode, &rows[i])
		if row.Err != nil {
			if err := ctx.Err(); err != nil {
				return out, err
			}
		}

		out = append(out, row)

		if bar == nil {
			log.Printf("[%d/%d] %s", i+1, n, describe(row))
		} else if err := bar.Add(1); err != nil {
			log.Printf("Updating progress bar: %v", err)
		}
	}

	d.logSummary(mode)

	return out, nil
}

func describe(row *ResultRow) string {
	switch {
	case row.Err != nil:
		return "failed: " + row.Err.Error()
	case row.Address != "":
		return row.Address
	default:
		return "ok"
	}
}

func (d *Driver) process(ctx context.Context, mode Mode, q *QueryRow) *ResultRow {
	d.Metrics.Rows++

	out := &ResultRow{Query: *q}

	if !q.Valid() {
		d.Metrics.Rejected++
		out.Err = q.Err
		log.Printf("Skipping %v", q.Err)

		return out
	}

	d.Metrics.Attempted++

	var (
		res *geocoding.Result
		err error
	)

	switch mode {
	case ModeReverse:
		res, err = d.geocoder.Reverse(ctx, q.Lat, q.Lng, d.geoOptions())
	case ModeForward:
		res, err = d.geocoder.Forward(ctx, q.Address, d.geoOptions())
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}

	if err != nil {
		d.Metrics.Failed++
		out.Err = fmt.Errorf("line %d: %w", q.Line, err)

		if geocoding.IsRateLimitError(err) || geocoding.IsQuotaExceededError(err) {
			log.Printf("Line %d: provider limit reached: %v", q.Line, err)
		} else {
			log.Printf("Line %d: geocoding failed: %v", q.Line, err)
		}

		return out
	}

	d.Metrics.Succeeded++

	clean := d.options.Cleaner.Clean
	out.Lat, out.Lng = res.Point.Lat, res.Point.Lng
	out.Address = clean(res.Formatted)
	out.Country = clean(res.Components.Get("country"))
	out.State = clean(res.Components.First("state", "province", "region"))
	out.City = clean(res.Components.City())
	out.Postcode = res.Components.Get("postcode")

	if d.options.Verbose {
		log.Printf("Line %d: %s", q.Line, out.Address)
	}

	return out
}

func (d *Driver) logSummary(mode Mode) {
	m := d.Metrics
	log.Printf(
		"Geocoding (%s) complete - %s rows, %s attempted, %s succeeded, %s failed, %s rejected.",
		mode,
		textutils.FormatInt(int64(m.Rows)),
		textutils.FormatInt(int64(m.Attempted)),
		textutils.FormatInt(int64(m.Succeeded)),
		textutils.FormatInt(int64(m.Failed)),
		textutils.FormatInt(int64(m.Rejected)),
	)
}
