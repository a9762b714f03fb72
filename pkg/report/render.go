package report

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hazyhaar/geoenrich/pkg/table"
)

// ChartCell anchors every chart.
const ChartCell = "D2"

// Layout locates the blocks written on a sheet. Rows are 1-based.
type Layout struct {
	RawRows         int // data rows below the raw header at row 1
	AggregateHeader int
	FirstDataRow    int
	LastDataRow     int
}

// LayoutFor places the aggregate block two empty rows below the raw block.
func LayoutFor(rawRows, aggRows int) Layout {
	header := rawRows + 3
	return Layout{
		RawRows:         rawRows,
		AggregateHeader: header,
		FirstDataRow:    header + 1,
		LastDataRow:     header + aggRows,
	}
}

// Render writes one sheet per view of wb to path. Each sheet holds the raw
// columns from A1, the aggregate block below them and a chart at D2 bound
// to the aggregate range. A missing column fails the whole workbook.
func Render(t *table.Table, wb Workbook, path string) error {
	if len(wb.Views) == 0 {
		return fmt.Errorf("report %s: no views", wb.Name)
	}
	src := t
	if wb.Prepare != nil {
		src = t.Clone()
		wb.Prepare(src)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, v := range wb.Views {
		if err := renderView(f, src, v); err != nil {
			return fmt.Errorf("report %s: sheet %q: %w", wb.Name, v.Sheet, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("report %s: %w", wb.Name, err)
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report %s: save %s: %w", wb.Name, path, err)
	}
	slog.Info("report written", "workbook", wb.Name, "path", path, "sheets", len(wb.Views), "rows", t.Len())
	return nil
}

func renderView(f *excelize.File, t *table.Table, v View) error {
	if v.Build == nil {
		return errors.New("no aggregate")
	}
	if err := t.Require(v.Columns...); err != nil {
		return err
	}
	agg, err := v.Build(t)
	if err != nil {
		return err
	}
	if _, err := f.NewSheet(v.Sheet); err != nil {
		return err
	}

	raw := t.Select(v.Columns)
	if err := writeBlock(f, v.Sheet, 1, raw.Columns(), raw.Rows); err != nil {
		return err
	}
	lay := LayoutFor(raw.Len(), agg.Len())
	if err := writeBlock(f, v.Sheet, lay.AggregateHeader, agg.Header, agg.Rows); err != nil {
		return err
	}

	if agg.Len() == 0 {
		slog.Warn("empty aggregate, chart skipped", "sheet", v.Sheet)
		return nil
	}
	return f.AddChart(v.Sheet, ChartCell, chartFor(v, agg, lay))
}

func writeBlock(f *excelize.File, sheet string, row int, header []string, rows [][]any) error {
	h := make([]any, len(header))
	for k, c := range header {
		h[k] = c
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &h); err != nil {
		return err
	}
	for i, r := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row+1+i), &r); err != nil {
			return err
		}
	}
	return nil
}

// rangeRef builds an absolute single-column reference like 'Sheet'!$B$5:$B$9.
func rangeRef(sheet string, col, first, last int) string {
	name, _ := excelize.ColumnNumberToName(col)
	quoted := strings.ReplaceAll(sheet, "'", "''")
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", quoted, name, first, name, last)
}

func chartFor(v View, agg Aggregate, lay Layout) *excelize.Chart {
	c := &excelize.Chart{
		Type:  excelize.Col,
		Title: []excelize.RichTextRun{{Text: v.Sheet + " Graph"}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: v.XTitle}}},
		YAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: v.YTitle}}},
	}
	switch v.Chart {
	case BarChart:
		c.Type = excelize.Bar
	case PieChart:
		c.Type = excelize.Pie
	}
	if v.Percent {
		lo, hi := 0.0, 100.0
		c.YAxis.Minimum, c.YAxis.Maximum = &lo, &hi
		c.YAxis.MajorGridLines = false
	}

	cats := rangeRef(v.Sheet, 1, lay.FirstDataRow, lay.LastDataRow)
	for k, name := range agg.Header[1:] {
		s := excelize.ChartSeries{
			Name:       name,
			Categories: cats,
			Values:     rangeRef(v.Sheet, k+2, lay.FirstDataRow, lay.LastDataRow),
		}
		if v.SeriesColor != nil {
			s.Fill = excelize.Fill{Type: "pattern", Color: []string{v.SeriesColor(name)}, Pattern: 1}
		}
		c.Series = append(c.Series, s)
	}
	return c
}
