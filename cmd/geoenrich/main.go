package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/importer"
	"github.com/hazyhaar/geoenrich/pkg/pipeline"
	"github.com/hazyhaar/geoenrich/pkg/store"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

var (
	cfgPath string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "geoenrich",
		Short:         "French geographic and demographic enrichment of client tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(createBootstrapCmd())
	rootCmd.AddCommand(createGeoCmd())
	rootCmd.AddCommand(createDemographyCmd())
	rootCmd.AddCommand(createMergeCmd())
	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createReportCmd())
	rootCmd.AddCommand(createSourcesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		stop()
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads and validates the configuration file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// withRunner opens the datastore and hands a pipeline runner to fn.
func withRunner(ctx context.Context, fn func(*pipeline.Runner, *slog.Logger) error) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(pipeline.New(cfg, st, logger), logger)
}

// openSources opens the source registry kept in the data directory.
func openSources(cfg config.Config) (*importer.SourceDB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	return importer.OpenSourceDB(filepath.Join(cfg.DataDir, "sources.db"))
}

// describe turns the typed errors into a one-line message.
func describe(err error) string {
	var missing *table.MissingColumnError
	var invalid *config.ValidationError
	var load *importer.LoadError
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("Erreur: colonne manquante %q dans la table %q", missing.Column, missing.Table)
	case errors.As(err, &invalid):
		return fmt.Sprintf("Erreur de configuration (%s): %s", invalid.Field, invalid.Reason)
	case errors.As(err, &load):
		return fmt.Sprintf("Erreur de chargement %s (lignes a partir de %d): %v", load.Table, load.Offset, load.Err)
	}
	return fmt.Sprintf("Erreur: %v", err)
}
