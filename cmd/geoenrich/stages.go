package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/geoenrich/pkg/demography"
	"github.com/hazyhaar/geoenrich/pkg/geo"
	"github.com/hazyhaar/geoenrich/pkg/pipeline"
)

func createGeoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geo",
		Short: "Attach INSEE commune and IRIS codes to the client table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *pipeline.Runner, _ *slog.Logger) error {
				stats, err := r.Geo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("IRIS: %d  commune: %d  sans correspondance: %d\n",
					stats[geo.QualityIris], stats[geo.QualityCommune], stats[geo.QualityNone])
				return nil
			})
		},
	}
}

func createDemographyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demography",
		Short: "Estimate gender and age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *pipeline.Runner, _ *slog.Logger) error {
				stats, err := r.Demography(cmd.Context())
				if err != nil {
					return err
				}
				for _, label := range []string{
					demography.ConfidenceHigh, demography.ConfidenceMedium, demography.ConfidenceLow,
					demography.ConfidenceSingle, demography.ConfidenceNone,
				} {
					fmt.Printf("  %-14s %d\n", label, stats.Confidence[label])
				}
				return nil
			})
		},
	}
}

func createMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join the socio-economic reference on the geo code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *pipeline.Runner, _ *slog.Logger) error {
				res, err := r.Merge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("%d lignes, %d avec reference\n", res.Rows, res.Matched)
				return nil
			})
		},
	}
}

func createRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run geo, demography, merge and every report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cmd.Context(), func(r *pipeline.Runner, _ *slog.Logger) error {
				return r.All(cmd.Context())
			})
		},
	}
}
