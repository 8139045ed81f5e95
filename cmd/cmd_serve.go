// Copyright 2025 The GeoBatch Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"

	"github.com/geobatch/geobatch/server"
	"github.com/spf13/cobra"
)

var serveOptions = struct {
	DBPath string
	Addr   string
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored placemarks, runs and the address helpers over HTTP",
	RunE: func(_ *cobra.Command, _ []string) error {
		repo, closeDB, err := openRepository(serveOptions.DBPath)
		if err != nil {
			return err
		}
		defer closeDB()

		log.Printf("Serving %s on http://%s", serveOptions.DBPath, serveOptions.Addr)

		return server.NewServer(repo).Run(serveOptions.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(
		&serveOptions.DBPath,
		"db",
		"geobatch.duckdb",
		"DuckDB database written by --db in kml extract and geocode",
	)
	serveCmd.Flags().StringVar(
		&serveOptions.Addr,
		"addr",
		"localhost:8080",
		"Listen address",
	)
}
