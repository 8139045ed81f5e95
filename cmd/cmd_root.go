// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

const defaultEnvFile = ".env"

var rootCmd = &cobra.Command{
	Use:   "geobatch",
	Short: "KML extraction and batch geocoding",
	Long: `
geobatch extracts placemarks from KML documents into CSV/JSON and geocodes
CSV/TXT files of coordinates or addresses against an external provider,
optionally cleaning, normalizing and enriching the returned addresses.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadEnvFile(config.EnvFile, cmd.Flags().Changed("env-file"))
	},
}

// loadEnvFile loads variables from path without overriding the environment.
// A missing file is only an error when it was asked for explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		if config.Verbose {
			log.Printf("Loaded environment from %s", path)
		}

		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&config.Verbose,
		"verbose",
		"v",
		false,
		"Log field-level details and every processed row",
	)
	rootCmd.PersistentFlags().StringVar(
		&config.EnvFile,
		"env-file",
		defaultEnvFile,
		"File with environment variables such as OPENCAGE_API_KEY",
	)
	rootCmd.PersistentFlags().StringVar(
		&config.Provider,
		"provider",
		providerOpenCage,
		"Geocoding provider: opencage or google",
	)
	rootCmd.PersistentFlags().BoolVar(
		&config.HTTP.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	rootCmd.PersistentFlags().BoolVar(
		&config.HTTP.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	rootCmd.PersistentFlags().StringVar(
		&config.GCPKeyName,
		"gcp-key-name",
		"",
		"Display name of the Google Maps API key to look up through Application Default Credentials",
	)
	rootCmd.PersistentFlags().StringVar(
		&config.GCPProject,
		"gcp-project",
		"",
		"Project holding the --gcp-key-name key, defaults to the credentials project",
	)
}
