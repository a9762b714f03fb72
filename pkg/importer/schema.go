package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/geoenrich/pkg/store"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

// CreateTableSQL renders the CREATE TABLE statement of a loaded CSV: an
// auto-increment id followed by the inferred column types. A CSV that
// brings its own id column gets no surrogate key.
func CreateTableSQL(d store.Dialect, t *table.Table) string {
	return d.CreateTable(t.Name, t.Columns(), t.Kinds(), !t.Has("id"))
}

// TablesScript maps each CSV file name to its CREATE TABLE statement.
type TablesScript map[string]string

// WriteTablesScript saves the script as YAML for review.
func WriteTablesScript(path string, script TablesScript) error {
	data, err := yaml.Marshal(script)
	if err != nil {
		return fmt.Errorf("marshal tables script: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadTablesScript loads a script written by WriteTablesScript.
func ReadTablesScript(path string) (TablesScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script TablesScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse tables script %s: %w", path, err)
	}
	return script, nil
}
