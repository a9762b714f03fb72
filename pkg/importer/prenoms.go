package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/reference"
)

// fetchFirstNames downloads the INSEE national archive and writes the wide
// first-name table to dest.
func fetchFirstNames(ctx context.Context, client *http.Client, url, dest string) error {
	dlDir := filepath.Join(filepath.Dir(dest), "_download")
	if err := ensureDir(dlDir); err != nil {
		return err
	}
	defer os.RemoveAll(dlDir)

	zipPath := filepath.Join(dlDir, "prenoms.zip")
	if err := downloadFile(ctx, client, url, zipPath); err != nil {
		return err
	}
	files, err := unzipFile(zipPath, dlDir)
	if err != nil {
		return fmt.Errorf("unzip: %w", err)
	}

	var csvPath string
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f), ".csv") {
			csvPath = f
			break
		}
	}
	if csvPath == "" {
		return fmt.Errorf("no CSV found in %s", url)
	}

	in, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := PivotFirstNames(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pivot first names: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return err
	}
	slog.Info("first names pivoted", "names", n, "path", dest)
	return nil
}

// PivotFirstNames turns the INSEE file (sexe;preusuel;annais;nombre, one
// row per name, sex and year) into one CSV row per name with the columns
// prenom, n1913..n2014. Both sexes are summed, spellings that normalize alike
// are merged under the first one seen, and rare-name and unknown-year rows
// are dropped. It returns the number of names written.
func PivotFirstNames(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int)
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.ToLower(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	nameCol, hasName := colIdx["preusuel"]
	yearCol, hasYear := colIdx["annais"]
	countCol, hasCount := colIdx["nombre"]
	if !hasName || !hasYear || !hasCount {
		return 0, fmt.Errorf("columns preusuel, annais and nombre required, got %v", header)
	}

	type entry struct {
		name   string
		counts [reference.LastYear - reference.FirstYear + 1]int64
	}
	byKey := make(map[string]*entry)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= max(nameCol, yearCol, countCol) {
			continue
		}
		name := strings.TrimSpace(rec[nameCol])
		if name == "" || strings.EqualFold(name, "_prenoms_rares") {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[yearCol]))
		if err != nil || year < reference.FirstYear || year > reference.LastYear {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(rec[countCol]), 10, 64)
		if err != nil {
			continue
		}

		key := normalize.Name(name)
		e, ok := byKey[key]
		if !ok {
			e = &entry{name: name}
			byKey[key] = e
		}
		e.counts[year-reference.FirstYear] += n
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw := csv.NewWriter(w)
	out := []string{reference.ColFirstName}
	for y := reference.FirstYear; y <= reference.LastYear; y++ {
		out = append(out, reference.YearColumn(y))
	}
	if err := cw.Write(out); err != nil {
		return 0, err
	}
	for _, k := range keys {
		e := byKey[k]
		out = out[:0]
		out = append(out, e.name)
		for _, c := range e.counts {
			out = append(out, strconv.FormatInt(c, 10))
		}
		if err := cw.Write(out); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(keys), cw.Error()
}
