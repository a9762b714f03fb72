// Package importer bootstraps the reference database: it downloads missing
// reference CSVs, derives a table script from them and bulk-loads them.
package importer

import (
	"fmt"

	"github.com/hazyhaar/geoenrich/pkg/config"
)

// Kind tells how a downloaded file becomes a loadable CSV.
type Kind int

const (
	// CSV files are loaded as downloaded.
	CSV Kind = iota
	// FirstNamePivot is the INSEE national first-name archive, pivoted into
	// one row per name with a count column per birth year.
	FirstNamePivot
)

// Source describes one reference file of the data directory.
type Source struct {
	ID          string
	File        string // name inside the data directory
	URL         string
	Description string
	License     string
	Encoding    string // empty means UTF-8
	Kind        Kind
}

const pinnedBase = "https://raw.githubusercontent.com/AurelienLELEU/GeoEnrichissmentStats/a16b696e86907f812d563515b05e15751330a1b3/"

// Source IDs.
const (
	SourcePostal     = "refcp"
	SourceIris       = "ref-iris-geo2024"
	SourceFirstNames = "insee-prenoms"
)

// DefaultSources are always fetched when missing.
func DefaultSources() []Source {
	return []Source{
		{
			ID:          SourcePostal,
			File:        "refCP.csv",
			URL:         pinnedBase + "refCP.csv",
			Description: "postal code to INSEE commune",
		},
		{
			ID:          SourceIris,
			File:        "Ref_IRIS_geo2024.csv",
			URL:         pinnedBase + "Ref_IRIS_geo2024.csv",
			Description: "IRIS zones per commune, 2024 geography",
		},
	}
}

// FirstNamesSource builds table_prenoms.csv from the INSEE first-name file.
// It is only fetched when listed in the bootstrap sources.
func FirstNamesSource() Source {
	return Source{
		ID:          SourceFirstNames,
		File:        "table_prenoms.csv",
		URL:         "https://www.insee.fr/fr/statistiques/fichier/2540004/nat2021_csv.zip",
		Description: "INSEE first names per birth year (national file)",
		License:     "Licence Ouverte 2.0",
		Kind:        FirstNamePivot,
	}
}

// ResolveSources applies the configured overrides to the defaults. An entry
// with a known ID overrides its non-empty fields (and enables the optional
// first-name source); an unknown ID adds a plain CSV download.
func ResolveSources(overrides []config.Source) ([]Source, error) {
	sources := DefaultSources()
	pos := make(map[string]int, len(sources))
	for i, s := range sources {
		pos[s.ID] = i
	}
	optional := map[string]Source{SourceFirstNames: FirstNamesSource()}

	for _, o := range overrides {
		if o.ID == "" {
			return nil, &config.ValidationError{Field: "bootstrap.sources.id", Reason: "required"}
		}
		i, ok := pos[o.ID]
		if !ok {
			s, known := optional[o.ID]
			if !known {
				if o.File == "" || o.URL == "" {
					return nil, &config.ValidationError{
						Field:  "bootstrap.sources." + o.ID,
						Reason: "file and url are required for a new source",
					}
				}
				s = Source{ID: o.ID}
			}
			sources = append(sources, s)
			i = len(sources) - 1
			pos[o.ID] = i
		}
		s := &sources[i]
		if o.File != "" {
			s.File = o.File
		}
		if o.URL != "" {
			s.URL = o.URL
		}
		if o.Encoding != "" {
			s.Encoding = o.Encoding
		}
	}
	return sources, nil
}

// find returns the source whose file is name.
func find(sources []Source, file string) (Source, bool) {
	for _, s := range sources {
		if s.File == file {
			return s, true
		}
	}
	return Source{}, false
}

func (s Source) String() string {
	return fmt.Sprintf("%s (%s)", s.ID, s.File)
}
