package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/geoenrich/pkg/pipeline"
	"github.com/hazyhaar/geoenrich/pkg/report"
)

func createReportCmd() *cobra.Command {
	valid := append([]string{"all"}, report.Presets...)
	return &cobra.Command{
		Use:       "report [" + strings.Join(report.Presets, "|") + "|all]",
		Short:     "Render summary workbooks with charts",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			var presets []string
			if len(args) == 1 && args[0] != "all" {
				presets = args
			}
			return withRunner(cmd.Context(), func(r *pipeline.Runner, _ *slog.Logger) error {
				paths, err := r.Reports(cmd.Context(), presets...)
				for _, p := range paths {
					fmt.Println(p)
				}
				return err
			})
		},
	}
}
