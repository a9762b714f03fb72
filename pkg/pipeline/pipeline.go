// Package pipeline chains the enrichment stages. Each stage reads its input
// table from the datastore and replaces its output table before the next
// stage starts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/demography"
	"github.com/hazyhaar/geoenrich/pkg/geo"
	"github.com/hazyhaar/geoenrich/pkg/merge"
	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/reference"
	"github.com/hazyhaar/geoenrich/pkg/report"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Datastore is what the stages need from the store.
type Datastore interface {
	ReadTable(ctx context.Context, name string) (*table.Table, error)
	ReplaceTable(ctx context.Context, t *table.Table, batchSize int) error
}

// Runner runs the stages against one datastore.
type Runner struct {
	cfg    config.Config
	ds     Datastore
	refs   *reference.Loader
	logger *slog.Logger
	// Now gives the current year of the age estimates.
	Now func() time.Time
}

// New creates a Runner. cfg is expected to have passed Validate.
func New(cfg config.Config, ds Datastore, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		ds:     ds,
		refs:   reference.NewLoader(ds, cfg.References, logger),
		logger: logger,
		Now:    time.Now,
	}
}

func (r *Runner) persist(ctx context.Context, t *table.Table, name string) error {
	t.Name = name
	return r.ds.ReplaceTable(ctx, t, r.cfg.Bootstrap.BatchSize)
}

// Geo attaches commune and IRIS codes to the client table.
func (r *Runner) Geo(ctx context.Context) (geo.Stats, error) {
	c := r.cfg.Geo
	in, err := r.ds.ReadTable(ctx, c.InputTable)
	if err != nil {
		return nil, err
	}
	postal, err := r.refs.Postal(ctx)
	if err != nil {
		return nil, err
	}
	iris, err := r.refs.Iris(ctx)
	if err != nil {
		return nil, err
	}

	out, stats, err := geo.New(postal, iris, r.logger).Enrich(in, geo.Options{
		Schema:        r.cfg.Schema,
		SplitFullName: c.SplitFullName,
	})
	if err != nil {
		return nil, fmt.Errorf("geo stage: %w", err)
	}
	if err := r.persist(ctx, out, c.OutputTable); err != nil {
		return nil, err
	}
	return stats, nil
}

// Demography estimates gender and age on the geo stage output.
func (r *Runner) Demography(ctx context.Context) (demography.Stats, error) {
	c := r.cfg.Demography
	in, err := r.ds.ReadTable(ctx, c.InputTable)
	if err != nil {
		return demography.Stats{}, err
	}
	ages, err := r.refs.Ages(ctx)
	if err != nil {
		return demography.Stats{}, err
	}
	names, err := r.refs.FirstNames(ctx)
	if err != nil {
		return demography.Stats{}, err
	}

	opts := demography.OptionsFrom(c, r.Now().Year())
	out, stats, err := demography.New(ages, names, opts, r.logger).Apply(in)
	if err != nil {
		return demography.Stats{}, fmt.Errorf("demography stage: %w", err)
	}
	if err := r.persist(ctx, out, c.OutputTable); err != nil {
		return demography.Stats{}, err
	}
	return stats, nil
}

// Merge joins the socio-economic reference on the geo code.
func (r *Runner) Merge(ctx context.Context) (merge.Result, error) {
	c := r.cfg.Merge
	in, err := r.ds.ReadTable(ctx, c.InputTable)
	if err != nil {
		return merge.Result{}, err
	}
	in.NormalizeColumnNames()
	socio, err := r.refs.Socio(ctx)
	if err != nil {
		return merge.Result{}, err
	}

	out, res, err := merge.LeftJoin(in, socio, normalize.ColumnName(c.Key))
	if err != nil {
		return merge.Result{}, fmt.Errorf("merge stage: %w", err)
	}
	r.logger.Info("reference merge done", "rows", res.Rows, "matched", res.Matched)
	if err := r.persist(ctx, out, c.OutputTable); err != nil {
		return merge.Result{}, err
	}
	return res, nil
}

// ReportTable returns the table a report preset summarizes.
func (r *Runner) ReportTable(preset string) (string, error) {
	switch preset {
	case report.PresetGeo:
		return r.cfg.Geo.OutputTable, nil
	case report.PresetDemography:
		return r.cfg.Demography.OutputTable, nil
	case report.PresetReferences:
		return r.cfg.Merge.OutputTable, nil
	}
	return "", fmt.Errorf("unknown report %q", preset)
}

// Report renders one preset workbook into the report directory and returns
// its path.
func (r *Runner) Report(ctx context.Context, preset string) (string, error) {
	wb, ok := report.Preset(preset)
	if !ok {
		return "", fmt.Errorf("unknown report %q", preset)
	}
	name, err := r.ReportTable(preset)
	if err != nil {
		return "", err
	}
	t, err := r.ds.ReadTable(ctx, name)
	if err != nil {
		return "", err
	}
	t.NormalizeColumnNames()

	if err := os.MkdirAll(r.cfg.Report.OutputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.cfg.Report.OutputDir, wb.File)
	if err := report.Render(t, wb, path); err != nil {
		return "", err
	}
	return path, nil
}

// Reports renders the given presets, all of them when none is given.
func (r *Runner) Reports(ctx context.Context, presets ...string) ([]string, error) {
	if len(presets) == 0 {
		presets = report.Presets
	}
	var paths []string
	for _, p := range presets {
		path, err := r.Report(ctx, p)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// All runs geo, demography, merge and every report, in that order.
func (r *Runner) All(ctx context.Context) error {
	start := time.Now()
	if _, err := r.Geo(ctx); err != nil {
		return err
	}
	if _, err := r.Demography(ctx); err != nil {
		return err
	}
	if _, err := r.Merge(ctx); err != nil {
		return err
	}
	if _, err := r.Reports(ctx); err != nil {
		return err
	}
	r.logger.Info("pipeline complete", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
