package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/geoenrich/pkg/importer"
)

func createBootstrapCmd() *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Download the reference CSVs and rebuild the database from them",
		Long: `Downloads the missing reference files into the data directory, writes the
tables script, drops and recreates the database, then loads every CSV found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			opts, err := importer.OptionsFrom(cfg)
			if err != nil {
				return err
			}

			sdb, err := openSources(cfg)
			if err != nil {
				return fmt.Errorf("open sources.db: %w", err)
			}
			defer sdb.Close()

			sum, err := importer.New(cfg.Database, opts, sdb, logger).Run(cmd.Context())
			for _, f := range sum.Downloaded {
				fmt.Printf("telecharge: %s\n", f)
			}
			if err != nil {
				return err
			}
			names := make([]string, 0, len(sum.Tables))
			for name := range sum.Tables {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-25s %d lignes\n", name, sum.Tables[name])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "CSV directory (overrides data_dir)")
	return cmd
}
