package reference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/geoenrich/pkg/config"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// TableReader reads a whole table from the datastore.
type TableReader interface {
	ReadTable(ctx context.Context, name string) (*table.Table, error)
}

// Loader builds reference indexes from the configured tables.
type Loader struct {
	reader TableReader
	names  config.References
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(reader TableReader, names config.References, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{reader: reader, names: names, logger: logger}
}

func (l *Loader) read(ctx context.Context, name string) (*table.Table, error) {
	t, err := l.reader.ReadTable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load reference %s: %w", name, err)
	}
	t.NormalizeColumnNames()
	return t, nil
}

// Postal loads the postal code -> commune reference.
func (l *Loader) Postal(ctx context.Context) (*PostalIndex, error) {
	t, err := l.read(ctx, l.names.Postal)
	if err != nil {
		return nil, err
	}
	idx, err := NewPostalIndex(t)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reference loaded", "table", t.Name, "rows", t.Len(), "keys", idx.Len())
	return idx, nil
}

// Iris loads the commune -> IRIS reference.
func (l *Loader) Iris(ctx context.Context) (*IrisIndex, error) {
	t, err := l.read(ctx, l.names.Iris)
	if err != nil {
		return nil, err
	}
	idx, err := NewIrisIndex(t)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reference loaded", "table", t.Name, "rows", t.Len(), "keys", idx.Len())
	return idx, nil
}

// Ages loads the geo code -> age bracket reference.
func (l *Loader) Ages(ctx context.Context) (*AgeIndex, error) {
	t, err := l.read(ctx, l.names.Ages)
	if err != nil {
		return nil, err
	}
	idx, err := NewAgeIndex(t)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reference loaded", "table", t.Name, "rows", t.Len(), "keys", idx.Len())
	return idx, nil
}

// FirstNames loads the first name -> birth-year histogram reference.
func (l *Loader) FirstNames(ctx context.Context) (*FirstNameIndex, error) {
	t, err := l.read(ctx, l.names.FirstNames)
	if err != nil {
		return nil, err
	}
	idx, err := NewFirstNameIndex(t)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reference loaded", "table", t.Name, "rows", t.Len(), "keys", idx.Len())
	return idx, nil
}

// Socio loads the wide socio-economic reference table as is.
func (l *Loader) Socio(ctx context.Context) (*table.Table, error) {
	t, err := l.read(ctx, l.names.Socio)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reference loaded", "table", t.Name, "rows", t.Len())
	return t, nil
}
