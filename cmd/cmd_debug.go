// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/geobatch/geobatch/address"
	"github.com/spf13/cobra"
)

// isTerminal reports whether f is a character device. When in doubt
// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

// eachLine calls fn for every line of stdin, prompting first when stdin is a
// terminal.
func eachLine(prompt string, out io.Writer, fn func(line string) (any, error)) error {
	input := os.Stdin
	if isTerminal(input) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := scanner.Text()

		v, err := fn(line)
		if err != nil {
			fmt.Fprintf(out, "%s\t%q\n", line, err)

			continue
		}

		switch v := v.(type) {
		case string:
			fmt.Fprintf(out, "%s\t%s\n", line, v)
		default:
			s, err := json.Marshal(v)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%s\t%s\n", line, s)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugOptions = struct {
	Level    string
	Language string
	Country  string
}{}

var debugCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean one text per line",
	Long: `Reads one text per line and prints it followed by its cleaned form.

$ echo 'Calle!!! Alcalá' | geobatch debug clean --level aggressive
Calle!!! Alcalá	Calle Alcala
`,
	RunE: func(_ *cobra.Command, _ []string) error {
		level, err := address.ParseLevel(debugOptions.Level)
		if err != nil {
			return err
		}

		cleaner := address.NewCleaner(level)

		return eachLine("Enter texts to clean, one per line…", os.Stdout, func(line string) (any, error) {
			return cleaner.Clean(line), nil
		})
	},
}

var debugNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize one address per line",
	Long: `Reads one address per line and prints it followed by its normalized form.

$ echo 'c/ mayor 5' | geobatch debug normalize
c/ mayor 5	Calle Mayor 5
`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter addresses to normalize, one per line…", os.Stdout, func(line string) (any, error) {
			return address.NormalizeFormat(line, debugOptions.Language), nil
		})
	},
}

var debugPostcodeCmd = &cobra.Command{
	Use:   "postcode",
	Short: "Validate one postal code per line",
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter postal codes to validate, one per line…", os.Stdout, func(line string) (any, error) {
			return address.ValidatePostalCode(line, debugOptions.Country), nil
		})
	},
}

var debugCompletenessCmd = &cobra.Command{
	Use:   "completeness",
	Short: "Detect missing components, one address per line",
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter addresses to analyze, one per line…", os.Stdout, func(line string) (any, error) {
			return struct {
				address.Completeness
				Suggestions []string `json:"suggestions,omitempty"`
			}{
				address.DetectIncomplete(line),
				address.SuggestCorrections(line, address.DefaultMaxSuggestions),
			}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugCleanCmd)
	debugCmd.AddCommand(debugNormalizeCmd)
	debugCmd.AddCommand(debugPostcodeCmd)
	debugCmd.AddCommand(debugCompletenessCmd)

	debugCleanCmd.Flags().StringVar(
		&debugOptions.Level,
		"level",
		"conservative",
		"Cleaning level: none, conservative or aggressive",
	)
	debugNormalizeCmd.Flags().StringVar(
		&debugOptions.Language,
		"language",
		"es",
		"Abbreviation table to use, es or en",
	)
	debugPostcodeCmd.Flags().StringVar(
		&debugOptions.Country,
		"country",
		"",
		"ISO country code; empty detects the country from the format",
	)
}
