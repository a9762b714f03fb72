// Package config loads the YAML configuration shared by every pipeline
// stage. A Config value is built once at startup and passed explicitly.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidationError is a configuration problem detected at startup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Database addresses the relational datastore.
type Database struct {
	Driver   string `yaml:"driver"` // mysql, postgres, sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file
}

// References names the static reference tables.
type References struct {
	Postal     string `yaml:"postal"`
	Iris       string `yaml:"iris"`
	Ages       string `yaml:"ages"`
	FirstNames string `yaml:"first_names"`
	Socio      string `yaml:"socio"`
}

// Geo configures the geographic enrichment stage.
type Geo struct {
	InputTable    string `yaml:"input_table"`
	OutputTable   string `yaml:"output_table"`
	SplitFullName bool   `yaml:"split_full_name"`
}

// Demography configures the age/gender estimation stage.
type Demography struct {
	InputTable               string `yaml:"input_table"`
	OutputTable              string `yaml:"output_table"`
	FirstName                string `yaml:"first_name"`
	Gender                   string `yaml:"gender"`
	DeclaredAge              string `yaml:"declared_age"`
	DeclaredAgeAuthoritative bool   `yaml:"declared_age_authoritative"`
	GeoCode                  string `yaml:"geo_code"`
	EstimateGender           bool   `yaml:"estimate_gender"`
	Adjust                   bool   `yaml:"adjust"`
	AdjustBy                 string `yaml:"adjust_by"`
}

// Merge configures the socio-economic reference join.
type Merge struct {
	InputTable  string `yaml:"input_table"`
	OutputTable string `yaml:"output_table"`
	Key         string `yaml:"key"`
}

// Report configures spreadsheet output.
type Report struct {
	OutputDir string `yaml:"output_dir"`
}

// Source overrides or adds a bootstrap download.
type Source struct {
	ID       string `yaml:"id"`
	File     string `yaml:"file"`
	URL      string `yaml:"url"`
	Encoding string `yaml:"encoding"`
}

// Bootstrap configures the reference database initialization.
type Bootstrap struct {
	BatchSize    int      `yaml:"batch_size"`
	TablesScript string   `yaml:"tables_script"`
	Sources      []Source `yaml:"sources"`
	Encoding     string   `yaml:"encoding"`
}

// Config is the whole configuration file.
type Config struct {
	Database   Database   `yaml:"database"`
	DataDir    string     `yaml:"data_dir"`
	References References `yaml:"references"`
	Schema     Schema     `yaml:"schema"`
	Geo        Geo        `yaml:"geo"`
	Demography Demography `yaml:"demography"`
	Merge      Merge      `yaml:"merge"`
	Report     Report     `yaml:"report"`
	Bootstrap  Bootstrap  `yaml:"bootstrap"`
}

// Default returns the configuration used when no file is present. Table
// names follow the historical layout of the enrichment database.
func Default() Config {
	return Config{
		Database: Database{Driver: "mysql", Host: "localhost", Port: 3306},
		DataDir:  "output_data",
		References: References{
			Postal:     "refcp",
			Iris:       "ref_iris_geo2024",
			Ages:       "tbrefgeo",
			FirstNames: "table_prenoms",
			Socio:      "maj_2014_references",
		},
		Schema: Schema{
			Civility:   "civilit_",
			FirstName:  "prenom",
			LastName:   "nom",
			PlaceName:  "lieu_dit",
			PostalCode: "cp",
			City:       "ville",
			ClientID:   "id_client",
		},
		Geo: Geo{
			InputTable:  "true_table_entree",
			OutputTable: "01eg_insee_iris",
		},
		Demography: Demography{
			InputTable:     "01eg_insee_iris",
			OutputTable:    "02eg_age_sexe",
			FirstName:      "prenom",
			GeoCode:        "codgeo",
			EstimateGender: true,
		},
		Merge: Merge{
			InputTable:  "02eg_age_sexe",
			OutputTable: "03enriched_clients_with_references",
			Key:         "codgeo",
		},
		Report:    Report{OutputDir: "."},
		Bootstrap: Bootstrap{BatchSize: 1000, TablesScript: "tables_script.yaml"},
	}
}

// Load reads path over the defaults. Environment references (${VAR}) are
// expanded before parsing. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	// A schema section replaces the default mapping instead of merging with it.
	var probe struct {
		Schema map[string]any `yaml:"schema"`
	}
	if err := yaml.Unmarshal(expanded, &probe); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if probe.Schema != nil {
		cfg.Schema = Schema{}
	}
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 3306
	}
	if cfg.Bootstrap.BatchSize <= 0 {
		cfg.Bootstrap.BatchSize = 1000
	}
	return cfg, nil
}

// Validate checks the datastore settings and stage options.
func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Schema.validate(c.Geo.SplitFullName); err != nil {
		return err
	}
	if c.Demography.FirstName == "" {
		return &ValidationError{Field: "demography.first_name", Reason: "required"}
	}
	if c.Demography.GeoCode == "" {
		return &ValidationError{Field: "demography.geo_code", Reason: "required"}
	}
	if c.Merge.Key == "" {
		return &ValidationError{Field: "merge.key", Reason: "required"}
	}
	return nil
}

// Validate checks that the credentials needed by the driver are present.
func (d Database) Validate() error {
	switch d.Driver {
	case "mysql", "postgres":
		if d.Host == "" {
			return &ValidationError{Field: "database.host", Reason: "required"}
		}
		if d.User == "" {
			return &ValidationError{Field: "database.user", Reason: "required"}
		}
		if d.Database == "" {
			return &ValidationError{Field: "database.database", Reason: "required"}
		}
		if d.Port <= 0 || d.Port > 65535 {
			return &ValidationError{Field: "database.port", Reason: fmt.Sprintf("out of range: %d", d.Port)}
		}
	case "sqlite":
		if d.Path == "" {
			return &ValidationError{Field: "database.path", Reason: "required for sqlite"}
		}
	default:
		return &ValidationError{Field: "database.driver", Reason: fmt.Sprintf("unsupported driver %q", d.Driver)}
	}
	return nil
}
