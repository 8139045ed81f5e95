// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists extracted placemarks and geocoding runs in DuckDB.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the duckdb driver
	"github.com/geobatch/geobatch/batch"
	"github.com/geobatch/geobatch/kml"
	"github.com/geobatch/geobatch/spatial"
	"github.com/google/uuid"
	"github.com/uber/h3-go/v4"
)

// H3Resolution is the resolution of the cells stored next to every point.
const H3Resolution = 9

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Placemark is a stored KML record.
type Placemark struct {
	Source string `json:"source"`
	kml.Record

	H3Cell string `json:"h3_cell,omitempty"`
}

// Run is one batch geocoding execution.
type Run struct {
	ID        string     `json:"id"`
	Mode      batch.Mode `json:"mode"`
	Input     string     `json:"input"`
	Provider  string     `json:"provider"`
	CreatedAt time.Time  `json:"created_at"`
	Rows      int        `json:"rows"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Rejected  int        `json:"rejected"`
}

// Result is one stored output row of a run.
type Result struct {
	RunID     string   `json:"run_id"`
	Line      int      `json:"line"`
	Query     string   `json:"query,omitempty"`
	LatText   string   `json:"lat_text,omitempty"`
	LngText   string   `json:"lng_text,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
	Country   string   `json:"country"`
	State     string   `json:"state"`
	City      string   `json:"city"`
	Postcode  string   `json:"postcode"`
	Error     string   `json:"error,omitempty"`
	H3Cell    string   `json:"h3_cell,omitempty"`
}

// Repository handles persistence of placemarks and geocoding runs.
type Repository interface {
	// CreateSchema creates the tables if they do not exist
	CreateSchema() error

	// SavePlacemarks replaces the placemarks of source
	SavePlacemarks(source string, records []*kml.Record) error

	// ListPlacemarks returns the placemarks of source, or of every source when empty
	ListPlacemarks(source string, limit int) ([]*Placemark, error)

	// CreateRun registers a new run
	CreateRun(mode batch.Mode, input, provider string) (*Run, error)

	// FinishRun stores the final metrics of a run
	FinishRun(runID string, metrics batch.Metrics) error

	// SaveResults stores the output rows of a run
	SaveResults(runID string, rows []*batch.ResultRow) error

	// GetRun returns a run by ID
	GetRun(runID string) (*Run, error)

	// ListRuns returns the most recent runs first
	ListRuns(limit int) ([]*Run, error)

	// ListResults returns the rows of a run in input order
	ListResults(runID string) ([]*Result, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlRepository struct {
	db *sql.DB
}

// Open opens the DuckDB database at path; an empty path is an in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", path, err)
	}

	return db, nil
}

// NewRepository creates a new repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS placemarks (
			source VARCHAR NOT NULL,
			idx INTEGER NOT NULL,
			placemark_id VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			longitude DOUBLE,
			latitude DOUBLE,
			altitude DOUBLE,
			coordinates_raw VARCHAR NOT NULL,
			h3_res9 UBIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY(source, idx)
		);

		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			mode VARCHAR NOT NULL,
			input_path VARCHAR NOT NULL,
			provider VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			row_count INTEGER DEFAULT 0,
			succeeded INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			rejected INTEGER DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS results (
			run_id VARCHAR NOT NULL,
			line INTEGER NOT NULL,
			query VARCHAR NOT NULL,
			lat_text VARCHAR NOT NULL,
			lng_text VARCHAR NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			address VARCHAR NOT NULL,
			country VARCHAR NOT NULL,
			state VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			postcode VARCHAR NOT NULL,
			error VARCHAR NOT NULL,
			h3_res9 UBIGINT,
			PRIMARY KEY(run_id, line)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	return nil
}

// h3Value returns the cell of the point as a bind value, nil without a valid point.
func h3Value(p *spatial.Point) (any, error) {
	if p == nil || p.Validate() != nil {
		return nil, nil
	}

	cell, err := p.H3Cell(H3Resolution)
	if err != nil {
		return nil, err
	}

	return int64(cell), nil
}

func h3String(v sql.NullInt64) string {
	if !v.Valid || v.Int64 == 0 {
		return ""
	}

	return h3.Cell(v.Int64).String()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}

	f := v.Float64

	return &f
}

// inTx runs fn inside a transaction, rolling back when it fails.
func (r *sqlRepository) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	return tx.Commit()
}

func (r *sqlRepository) SavePlacemarks(source string, records []*kml.Record) error {
	return r.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM placemarks WHERE source = ?`, source); err != nil {
			return fmt.Errorf("deleting placemarks of %s: %w", source, err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO placemarks(
				source,
				idx,
				placemark_id,
				address,
				longitude,
				latitude,
				altitude,
				coordinates_raw,
				h3_res9
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing placemark insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			var point *spatial.Point
			if p, ok := rec.Point(); ok {
				point = &p
			}

			cell, err := h3Value(point)
			if err != nil {
				return fmt.Errorf("placemark %d: %w", rec.Index, err)
			}

			if _, err := stmt.Exec(
				source,
				rec.Index,
				rec.ID,
				rec.Address,
				rec.Longitude,
				rec.Latitude,
				rec.Altitude,
				rec.CoordinatesRaw,
				cell,
			); err != nil {
				return fmt.Errorf("inserting placemark %d: %w", rec.Index, err)
			}
		}

		return nil
	})
}

func (r *sqlRepository) ListPlacemarks(source string, limit int) ([]*Placemark, error) {
	query := `
		SELECT source, idx, placemark_id, address, longitude, latitude, altitude, coordinates_raw, h3_res9
		FROM placemarks
	`

	var args []any

	if source != "" {
		query += " WHERE source = ?"

		args = append(args, source)
	}

	query += " ORDER BY source, idx"

	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing placemarks: %w", err)
	}
	defer rows.Close()

	var out []*Placemark

	for rows.Next() {
		var (
			p             Placemark
			lon, lat, alt sql.NullFloat64
			cell          sql.NullInt64
		)

		if err := rows.Scan(&p.Source, &p.Index, &p.ID, &p.Address, &lon, &lat, &alt, &p.CoordinatesRaw, &cell); err != nil {
			return nil, fmt.Errorf("scanning placemark: %w", err)
		}

		p.Longitude, p.Latitude, p.Altitude = nullFloat(lon), nullFloat(lat), nullFloat(alt)
		p.H3Cell = h3String(cell)

		out = append(out, &p)
	}

	return out, rows.Err()
}

func (r *sqlRepository) CreateRun(mode batch.Mode, input, provider string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		Input:     input,
		Provider:  provider,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := r.db.Exec(`
		INSERT INTO runs(id, mode, input_path, provider, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, string(run.Mode), run.Input, run.Provider, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	return run, nil
}

func (r *sqlRepository) FinishRun(runID string, m batch.Metrics) error {
	res, err := r.db.Exec(`
		UPDATE runs
		SET row_count = ?, succeeded = ?, failed = ?, rejected = ?
		WHERE id = ?
	`, m.Rows, m.Succeeded, m.Failed, m.Rejected, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

func (r *sqlRepository) SaveResults(runID string, rows []*batch.ResultRow) error {
	return r.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO results(
				run_id, line, query, lat_text, lng_text, latitude, longitude,
				address, country, state, city, postcode, error, h3_res9
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing result insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			var (
				lat, lng *float64
				point    *spatial.Point
				errText  string
			)

			if row.OK() {
				point = &spatial.Point{Lat: row.Lat, Lng: row.Lng}
				lat, lng = &point.Lat, &point.Lng
			} else {
				errText = row.Err.Error()
			}

			cell, err := h3Value(point)
			if err != nil {
				return fmt.Errorf("result line %d: %w", row.Query.Line, err)
			}

			if _, err := stmt.Exec(
				runID,
				row.Query.Line,
				row.Query.Address,
				row.Query.LatText,
				row.Query.LngText,
				lat,
				lng,
				row.Address,
				row.Country,
				row.State,
				row.City,
				row.Postcode,
				errText,
				cell,
			); err != nil {
				return fmt.Errorf("inserting result line %d: %w", row.Query.Line, err)
			}
		}

		return nil
	})
}

const runColumns = `id, mode, input_path, provider, created_at, row_count, succeeded, failed, rejected`

func scanRun(sc interface{ Scan(...any) error }) (*Run, error) {
	var (
		run  Run
		mode string
	)

	if err := sc.Scan(&run.ID, &mode, &run.Input, &run.Provider, &run.CreatedAt, &run.Rows, &run.Succeeded, &run.Failed, &run.Rejected); err != nil {
		return nil, err
	}

	run.Mode = batch.Mode(mode)

	return &run, nil
}

func (r *sqlRepository) GetRun(runID string) (*Run, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	return run, nil
}

func (r *sqlRepository) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id`

	var args []any
	if limit > 0 {
		query += " LIMIT ?"

		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		out = append(out, run)
	}

	return out, rows.Err()
}

func (r *sqlRepository) ListResults(runID string) ([]*Result, error) {
	rows, err := r.db.Query(`
		SELECT run_id, line, query, lat_text, lng_text, latitude, longitude,
		       address, country, state, city, postcode, error, h3_res9
		FROM results
		WHERE run_id = ?
		ORDER BY line
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing results of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*Result

	for rows.Next() {
		var (
			res      Result
			lat, lng sql.NullFloat64
			cell     sql.NullInt64
		)

		if err := rows.Scan(
			&res.RunID, &res.Line, &res.Query, &res.LatText, &res.LngText, &lat, &lng,
			&res.Address, &res.Country, &res.State, &res.City, &res.Postcode, &res.Error, &cell,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}

		res.Latitude, res.Longitude = nullFloat(lat), nullFloat(lng)
		res.H3Cell = h3String(cell)

		out = append(out, &res)
	}

	return out, rows.Err()
}
