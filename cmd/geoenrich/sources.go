package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/importer"
)

func createSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and edit the reference download sources",
	}
	cmd.AddCommand(createSourcesListCmd())
	cmd.AddCommand(createSourcesSetURLCmd())
	cmd.AddCommand(createSourcesCheckCmd())
	return cmd
}

// withSources opens the registry seeded with the configured sources.
func withSources(fn func(*importer.SourceDB) error) error {
	newLogger()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	sources, err := importer.ResolveSources(cfg.Bootstrap.Sources)
	if err != nil {
		return err
	}
	sdb, err := openSources(cfg)
	if err != nil {
		return fmt.Errorf("open sources.db: %w", err)
	}
	defer sdb.Close()
	if err := sdb.Seed(sources); err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}
	return fn(sdb)
}

func createSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sources with their last check and load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(func(sdb *importer.SourceDB) error {
				list, err := sdb.ListSources()
				if err != nil {
					return err
				}
				for _, src := range list {
					status := ""
					if src.LastStatus != nil {
						status = fmt.Sprintf("  [%d]", *src.LastStatus)
					}
					loaded := ""
					if src.LastLoad != nil && src.LastRows != nil {
						loaded = fmt.Sprintf("  %d lignes le %s", *src.LastRows,
							time.Unix(*src.LastLoad, 0).Format("2006-01-02"))
					}
					fmt.Printf("  %-18s  %-24s  %s%s%s\n", src.SourceID, src.File, src.SourceURL, status, loaded)
				}
				return nil
			})
		},
	}
}

func createSourcesSetURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <source-id> <url>",
		Short: "Point a source at a new download URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(func(sdb *importer.SourceDB) error {
				if err := sdb.SetURL(args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("[%s] %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func createSourcesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Send a HEAD request to every source URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSources(func(sdb *importer.SourceDB) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
				defer cancel()
				sum, err := importer.NewChecker(sdb, nil).CheckAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d joignables, %d en erreur\n", sum.OK, sum.Failed)
				if sum.Failed > 0 {
					return fmt.Errorf("%d source(s) unreachable", sum.Failed)
				}
				return nil
			})
		},
	}
}
