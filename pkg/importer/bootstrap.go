package importer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/store"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// Options configures a bootstrap run.
type Options struct {
	DataDir      string
	TablesScript string // empty: the script is not written
	BatchSize    int
	Encoding     string // for CSVs without a source-level encoding
	Sources      []Source
	Client       *http.Client
}

// OptionsFrom maps the configuration file.
func OptionsFrom(cfg config.Config) (Options, error) {
	sources, err := ResolveSources(cfg.Bootstrap.Sources)
	if err != nil {
		return Options{}, err
	}
	return Options{
		DataDir:      cfg.DataDir,
		TablesScript: cfg.Bootstrap.TablesScript,
		BatchSize:    cfg.Bootstrap.BatchSize,
		Encoding:     cfg.Bootstrap.Encoding,
		Sources:      sources,
	}, nil
}

// Summary reports what a run did.
type Summary struct {
	Downloaded []string
	Tables     map[string]int // table -> rows loaded
}

// Bootstrapper initializes the reference database from the data directory.
type Bootstrapper struct {
	db       config.Database
	opts     Options
	registry *SourceDB
	logger   *slog.Logger
}

// New creates a Bootstrapper. registry may be nil, in which case the source
// URLs come from opts alone and loads are not recorded.
func New(db config.Database, opts Options, registry *SourceDB, logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{db: db, opts: opts, registry: registry, logger: logger}
}

// Run downloads missing sources, derives the tables script from every CSV
// of the data directory, recreates the database and loads each table. The
// first failure aborts the run.
func (b *Bootstrapper) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Tables: make(map[string]int)}
	if err := ensureDir(b.opts.DataDir); err != nil {
		return sum, err
	}

	downloaded, err := b.Fetch(ctx)
	sum.Downloaded = downloaded
	if err != nil {
		return sum, err
	}

	files, tables, err := b.scan()
	if err != nil {
		return sum, err
	}
	if len(tables) == 0 {
		return sum, fmt.Errorf("no CSV file in %s", b.opts.DataDir)
	}

	d, err := store.DialectFor(b.db.Driver)
	if err != nil {
		return sum, err
	}
	script := make(TablesScript, len(tables))
	for i, t := range tables {
		script[files[i]] = CreateTableSQL(d, t)
	}
	if b.opts.TablesScript != "" {
		if err := WriteTablesScript(b.opts.TablesScript, script); err != nil {
			return sum, err
		}
		b.logger.Info("tables script written", "path", b.opts.TablesScript, "tables", len(script))
	}

	if err := store.RecreateDatabase(ctx, b.db); err != nil {
		return sum, err
	}
	st, err := store.Open(ctx, b.db, b.logger)
	if err != nil {
		return sum, err
	}
	defer st.Close()

	for i, t := range tables {
		if _, err := st.ExecContext(ctx, script[files[i]]); err != nil {
			return sum, fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}

	loader := &Loader{Dialect: d, BatchSize: b.opts.BatchSize, Logger: b.logger}
	for i, t := range tables {
		tx, err := st.BeginTx(ctx)
		if err != nil {
			return sum, fmt.Errorf("load %s: begin: %w", t.Name, err)
		}
		if _, err := loader.Load(ctx, tx, t); err != nil {
			return sum, err
		}
		sum.Tables[t.Name] = t.Len()
		if src, ok := find(b.opts.Sources, files[i]); ok && b.registry != nil {
			if err := b.registry.RecordLoad(src.ID, t.Len()); err != nil {
				b.logger.Warn("load not recorded", "source", src.ID, "error", err)
			}
		}
	}
	b.logger.Info("bootstrap complete", "tables", len(sum.Tables), "downloaded", len(sum.Downloaded))
	return sum, nil
}

// Fetch downloads every source whose file is missing from the data
// directory and returns the files it created.
func (b *Bootstrapper) Fetch(ctx context.Context) ([]string, error) {
	if b.registry != nil {
		if err := b.registry.Seed(b.opts.Sources); err != nil {
			return nil, err
		}
	}
	client := b.opts.Client
	if client == nil {
		client = httpClient
	}

	var downloaded []string
	for _, src := range b.opts.Sources {
		dest := filepath.Join(b.opts.DataDir, src.File)
		if _, err := os.Stat(dest); err == nil {
			b.logger.Debug("source present", "source", src.ID, "file", src.File)
			continue
		}
		url := src.URL
		if b.registry != nil {
			if u, err := b.registry.GetURL(src.ID); err == nil {
				url = u
			}
		}

		b.logger.Info("downloading source", "source", src.ID, "url", url)
		switch src.Kind {
		case FirstNamePivot:
			err := fetchFirstNames(ctx, client, url, dest)
			if err != nil {
				return downloaded, fmt.Errorf("fetch %s: %w", src.ID, err)
			}
		default:
			if _, err := DownloadIfMissing(ctx, client, url, dest); err != nil {
				return downloaded, fmt.Errorf("fetch %s: %w", src.ID, err)
			}
		}
		downloaded = append(downloaded, src.File)
	}
	return downloaded, nil
}

// scan reads every CSV of the data directory, sorted by file name.
func (b *Bootstrapper) scan() ([]string, []*table.Table, error) {
	entries, err := os.ReadDir(b.opts.DataDir)
	if err != nil {
		return nil, nil, err
	}
	var files []string
	var tables []*table.Table
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		enc := b.opts.Encoding
		if src, ok := find(b.opts.Sources, e.Name()); ok && src.Encoding != "" {
			enc = src.Encoding
		}
		t, err := ReadCSV(filepath.Join(b.opts.DataDir, e.Name()), enc)
		if err != nil {
			return nil, nil, err
		}
		b.logger.Info("csv read", "file", e.Name(), "table", t.Name, "rows", t.Len(), "columns", len(t.Columns()))
		files = append(files, e.Name())
		tables = append(tables, t)
	}
	return files, tables, nil
}
