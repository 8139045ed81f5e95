// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/geobatch/geobatch/address"
	"github.com/geobatch/geobatch/batch"
	"github.com/geobatch/geobatch/store"
	"github.com/geobatch/geobatch/utils/textutils"
	"github.com/spf13/cobra"
)

var geocodeOptions = struct {
	Output      string
	Delay       float64
	Format      string
	Clean       bool
	Aggressive  bool
	Language    string
	CountryCode string
	WithErrors  bool
	DBPath      string
}{}

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Batch geocode CSV/TXT files",
}

var geocodeReverseCmd = &cobra.Command{
	Use:   "reverse <input>",
	Short: "Resolve coordinates into addresses",
	Long: `Reads latitude/longitude pairs and writes one address row per input row.

CSV inputs use the lat/lng (or latitude/longitude) columns, falling back to the
first two columns. TXT inputs hold one "lat,lng" or "lat lng" pair per line;
blank lines and lines starting with # are skipped.

$ geobatch geocode reverse points.csv -o results.csv -d 1 --clean
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runGeocode(batch.ModeReverse, args[0])
	},
}

var geocodeForwardCmd = &cobra.Command{
	Use:   "forward <input>",
	Short: "Resolve addresses into coordinates",
	Long: `Reads free-text addresses and writes one coordinate row per input row.

CSV inputs use the address column, falling back to the first column. TXT
inputs hold one address per line.

$ geobatch geocode forward addresses.txt -o results.csv --language es
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return runGeocode(batch.ModeForward, args[0])
	},
}

func readQueries(mode batch.Mode, path string) ([]batch.QueryRow, error) {
	format, err := batch.DetectFormat(path, geocodeOptions.Format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	if mode == batch.ModeForward {
		return batch.ReadAddresses(f, format)
	}

	return batch.ReadCoordinates(f, format)
}

func runGeocode(mode batch.Mode, input string) error {
	delay, err := secondsToDuration(geocodeOptions.Delay)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the key is checked before touching the input
	geocoder, err := config.newGeocoder(ctx, delay)
	if err != nil {
		return err
	}

	rows, err := readQueries(mode, input)
	if err != nil {
		return err
	}

	log.Printf("Read %s rows from %s", textutils.FormatInt(int64(len(rows))), input)

	var (
		repo store.Repository
		run  *store.Run
	)

	if geocodeOptions.DBPath != "" {
		r, closeDB, err := openRepository(geocodeOptions.DBPath)
		if err != nil {
			return err
		}
		defer closeDB()

		repo = r

		run, err = repo.CreateRun(mode, input, config.Provider)
		if err != nil {
			return fmt.Errorf("registering run: %w", err)
		}

		log.Printf("Recording run %s in %s", run.ID, geocodeOptions.DBPath)
	}

	driver := batch.NewDriver(geocoder, &batch.Options{
		Language:    geocodeOptions.Language,
		CountryCode: geocodeOptions.CountryCode,
		Cleaner:     address.NewCleaner(address.LevelFromFlags(geocodeOptions.Clean, geocodeOptions.Aggressive)),
		Progress:    !config.Verbose,
		Verbose:     config.Verbose,
	})

	var results []*batch.ResultRow
	if mode == batch.ModeForward {
		results, err = driver.Forward(ctx, rows)
	} else {
		results, err = driver.Reverse(ctx, rows)
	}

	// rows processed before an interruption are still written
	errs := []error{err}

	if saveErr := batch.SaveCSV(geocodeOptions.Output, mode, results, geocodeOptions.WithErrors); saveErr != nil {
		errs = append(errs, saveErr)
	} else {
		log.Printf("Wrote %s rows to %s", textutils.FormatInt(int64(len(results))), geocodeOptions.Output)

		if failed := batch.CountFailed(results); failed > 0 && !geocodeOptions.WithErrors {
			log.Printf("%s rows failed and were written with empty fields, use --with-errors to see why", textutils.FormatInt(int64(failed)))
		}
	}

	if repo != nil {
		if saveErr := repo.SaveResults(run.ID, results); saveErr != nil {
			errs = append(errs, fmt.Errorf("storing results: %w", saveErr))
		}

		if finishErr := repo.FinishRun(run.ID, driver.Metrics); finishErr != nil {
			errs = append(errs, fmt.Errorf("finishing run: %w", finishErr))
		}
	}

	return errors.Join(errs...)
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.AddCommand(geocodeReverseCmd)
	geocodeCmd.AddCommand(geocodeForwardCmd)

	geocodeCmd.PersistentFlags().StringVarP(
		&geocodeOptions.Output,
		"output",
		"o",
		"results.csv",
		"Output CSV file",
	)
	geocodeCmd.PersistentFlags().Float64VarP(
		&geocodeOptions.Delay,
		"delay",
		"d",
		1,
		"Seconds to wait between provider calls",
	)
	geocodeCmd.PersistentFlags().StringVar(
		&geocodeOptions.Format,
		"format",
		"",
		"Input format, csv or txt. Defaults to the file extension",
	)
	geocodeCmd.PersistentFlags().BoolVar(
		&geocodeOptions.Clean,
		"clean",
		false,
		"Remove symbols from the returned address fields",
	)
	geocodeCmd.PersistentFlags().BoolVar(
		&geocodeOptions.Aggressive,
		"aggressive",
		false,
		"With --clean, also fold accented characters",
	)
	geocodeCmd.PersistentFlags().StringVar(
		&geocodeOptions.Language,
		"language",
		"",
		"Preferred language of the results, e.g. en or es",
	)
	geocodeCmd.PersistentFlags().StringVar(
		&geocodeOptions.CountryCode,
		"country-code",
		"",
		"Bias results to a country, ISO 3166-1 alpha-2",
	)
	geocodeCmd.PersistentFlags().BoolVar(
		&geocodeOptions.WithErrors,
		"with-errors",
		false,
		"Append an error column to the output",
	)
	geocodeCmd.PersistentFlags().StringVar(
		&geocodeOptions.DBPath,
		"db",
		"",
		"Record the run and its results in this DuckDB database",
	)
}
