// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/geobatch/geobatch/kml"
	"github.com/geobatch/geobatch/utils/textutils"
	"github.com/spf13/cobra"
)

var kmlCmd = &cobra.Command{
	Use:   "kml",
	Short: "Work with KML documents",
}

var kmlOptions = struct {
	CSVPath  string
	JSONPath string
	IDKey    string
	DBPath   string
}{}

var kmlExtractCmd = &cobra.Command{
	Use:   "extract <file.kml>",
	Short: "Extract placemarks into CSV and/or JSON",
	Long: `Extracts every placemark of a KML document: identifier, address and
coordinates. Without --csv, --json or --db the records are written as CSV to
stdout.

$ geobatch kml extract stores.kml --csv stores.csv --json stores.json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := args[0]

		extractor := kml.NewExtractor(&kml.Options{
			IDKey:   kmlOptions.IDKey,
			Verbose: config.Verbose,
		})

		records, err := extractor.ExtractFile(path)
		if err != nil {
			return err
		}

		s := kml.Summarize(records)
		log.Printf(
			"Extracted %s placemarks from %s - %s with id, %s with coordinates, %s with address",
			textutils.FormatInt(int64(s.Total)),
			path,
			textutils.FormatInt(int64(s.WithID)),
			textutils.FormatInt(int64(s.WithCoordinates)),
			textutils.FormatInt(int64(s.WithAddress)),
		)

		var errs []error

		if kmlOptions.CSVPath != "" {
			errs = append(errs, kml.SaveCSV(kmlOptions.CSVPath, records))
		}

		if kmlOptions.JSONPath != "" {
			errs = append(errs, kml.SaveJSON(kmlOptions.JSONPath, records))
		}

		if kmlOptions.DBPath != "" {
			errs = append(errs, savePlacemarks(kmlOptions.DBPath, filepath.Base(path), records))
		}

		if kmlOptions.CSVPath == "" && kmlOptions.JSONPath == "" && kmlOptions.DBPath == "" {
			errs = append(errs, kml.WriteCSV(os.Stdout, records))
		}

		return errors.Join(errs...)
	},
}

func savePlacemarks(dbPath, source string, records []*kml.Record) error {
	repo, closeDB, err := openRepository(dbPath)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.SavePlacemarks(source, records); err != nil {
		return fmt.Errorf("storing placemarks: %w", err)
	}

	log.Printf("Stored %s placemarks of %s in %s", textutils.FormatInt(int64(len(records))), source, dbPath)

	return nil
}

func init() {
	rootCmd.AddCommand(kmlCmd)
	kmlCmd.AddCommand(kmlExtractCmd)
	kmlExtractCmd.Flags().StringVar(
		&kmlOptions.CSVPath,
		"csv",
		"",
		"Write the records as CSV to this file",
	)
	kmlExtractCmd.Flags().StringVar(
		&kmlOptions.JSONPath,
		"json",
		"",
		"Write the records as a JSON array to this file",
	)
	kmlExtractCmd.Flags().StringVar(
		&kmlOptions.IDKey,
		"id-key",
		kml.DefaultIDKey,
		"ExtendedData name holding the placemark identifier",
	)
	kmlExtractCmd.Flags().StringVar(
		&kmlOptions.DBPath,
		"db",
		"",
		"Store the placemarks in this DuckDB database",
	)
	_ = kmlExtractCmd.MarkFlagFilename("csv", "csv")
	_ = kmlExtractCmd.MarkFlagFilename("json", "json")
}
