package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableName derives the table name from a CSV file name: "refCP.csv" loads
// into "refcp".
func TableName(file string) string {
	base := filepath.Base(file)
	return normalize.ColumnName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadCSV reads a CSV file into a table named after the file. The delimiter
// (comma, semicolon or tab) is sniffed from the header line, and encoding,
// when not UTF-8, is any WHATWG label such as "windows-1252" or "latin1".
func ReadCSV(path, encoding string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := parseCSV(f, encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t.Name = TableName(path)
	return t, nil
}

func parseCSV(r io.Reader, encoding string) (*table.Table, error) {
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", encoding, err)
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}
	br := bufio.NewReaderSize(r, 64<<10)
	if head, _ := br.Peek(3); bytes.Equal(head, utf8BOM) {
		br.Discard(3)
	}
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(records)+2, err)
		}
		records = append(records, rec)
	}

	t := table.New("", header)
	t.NormalizeColumnNames()
	width := len(t.Columns())
	kinds := make([]table.Kind, width)
	for j := range kinds {
		kinds[j] = columnKind(records, j)
	}
	t.Rows = make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, width)
		for j := 0; j < width && j < len(rec); j++ {
			row[j] = parseCell(rec[j], kinds[j])
		}
		t.Rows[i] = row
	}
	return t, nil
}

// sniffDelimiter picks the most frequent candidate separator of the header.
func sniffDelimiter(header []byte) rune {
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(header, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// columnKind infers a column as a whole: integer when every non-empty cell
// is an integer, decimal when every one is a number, string otherwise.
// One non-numeric cell ("2A004") keeps the whole column as text; an all-digit
// code column is stored as integers and loses its leading zeros, which the
// reference.Pad helpers restore on read.
func columnKind(records [][]string, j int) table.Kind {
	kind := table.KindInteger
	seen := false
	for _, rec := range records {
		if j >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[j])
		if s == "" {
			continue
		}
		seen = true
		if kind == table.KindInteger {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = table.KindDecimal
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return table.KindString
		}
	}
	if !seen {
		return table.KindString
	}
	return kind
}

func parseCell(s string, kind table.Kind) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	switch kind {
	case table.KindInteger:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case table.KindDecimal:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return v
}
