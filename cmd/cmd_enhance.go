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
	"strings"
	"syscall"

	"github.com/geobatch/geobatch/address"
	"github.com/geobatch/geobatch/utils/textutils"
	"github.com/spf13/cobra"
)

var enhanceOptions = struct {
	Output       string
	OutputFormat string
	Delay        float64
	Clean        bool
	Aggressive   bool
	Language     string
	CountryCode  string
	H3Resolution int
}{}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <input.csv>",
	Short: "Complete, normalize, validate and enrich addresses",
	Long: `Reads a CSV with an address column and optional lat/lng columns. Incomplete
addresses are completed through the provider, every address is normalized,
its postal code validated, and the result enriched with timezone,
administrative levels and an H3 cell.

$ geobatch enhance addresses.csv -o enhanced.json --output-format json
`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		format := strings.ToLower(enhanceOptions.OutputFormat)
		if format != "csv" && format != "json" {
			return fmt.Errorf("unknown output format %q, expected csv or json", enhanceOptions.OutputFormat)
		}

		delay, err := secondsToDuration(enhanceOptions.Delay)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		geocoder, err := config.newGeocoder(ctx, delay)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}

		inputs, err := address.ReadInputs(f)
		f.Close()

		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		log.Printf("Read %s addresses from %s", textutils.FormatInt(int64(len(inputs))), args[0])

		enhancer := address.NewEnhancer(geocoder, &address.EnhancerOptions{
			Language:     enhanceOptions.Language,
			CountryCode:  enhanceOptions.CountryCode,
			Cleaner:      address.NewCleaner(address.LevelFromFlags(enhanceOptions.Clean, enhanceOptions.Aggressive)),
			H3Resolution: enhanceOptions.H3Resolution,
			Verbose:      config.Verbose,
		})

		rows, err := enhancer.ProcessBatch(ctx, inputs)

		failed := 0

		for _, r := range rows {
			if r.Error != "" {
				failed++
			}
		}

		log.Printf(
			"Enhanced %s addresses with %s provider calls - %s failed",
			textutils.FormatInt(int64(len(rows))),
			textutils.FormatInt(int64(geocoder.Calls())),
			textutils.FormatInt(int64(failed)),
		)

		if saveErr := address.Save(enhanceOptions.Output, format, rows); saveErr != nil {
			return errors.Join(err, saveErr)
		}

		log.Printf("Wrote %s", enhanceOptions.Output)

		return err
	},
}

func init() {
	rootCmd.AddCommand(enhanceCmd)
	enhanceCmd.Flags().StringVarP(
		&enhanceOptions.Output,
		"output",
		"o",
		"enhanced.csv",
		"Output file",
	)
	enhanceCmd.Flags().StringVar(
		&enhanceOptions.OutputFormat,
		"output-format",
		"csv",
		"Output format, csv or json",
	)
	enhanceCmd.Flags().Float64VarP(
		&enhanceOptions.Delay,
		"delay",
		"d",
		1,
		"Seconds to wait between provider calls",
	)
	enhanceCmd.Flags().BoolVar(
		&enhanceOptions.Clean,
		"clean",
		false,
		"Remove symbols from the returned address fields",
	)
	enhanceCmd.Flags().BoolVar(
		&enhanceOptions.Aggressive,
		"aggressive",
		false,
		"With --clean, also fold accented characters",
	)
	enhanceCmd.Flags().StringVar(
		&enhanceOptions.Language,
		"language",
		"es",
		"Language of the results and of the abbreviation tables",
	)
	enhanceCmd.Flags().StringVar(
		&enhanceOptions.CountryCode,
		"country-code",
		"",
		"Bias results to a country, ISO 3166-1 alpha-2",
	)
	enhanceCmd.Flags().IntVar(
		&enhanceOptions.H3Resolution,
		"h3-resolution",
		address.DefaultH3Resolution,
		"Resolution of the H3 cell added to every enriched address",
	)
}
