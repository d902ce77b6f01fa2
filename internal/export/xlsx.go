// Package export renders report tables as spreadsheets and pushes report
// snapshots to a signed webhook.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/studio-insights/internal/reports"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultSheet = "Sheet1"
	headerRow    = 3 // title, blank line, headers
)

var numFmts = map[reports.Kind]string{
	reports.Integer:  "#,##0",
	reports.Currency: "#,##0.00",
	reports.Percent:  `0.0"%"`,
	reports.Decimal:  "0.00",
}

// SheetName makes title usable as a worksheet name.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if name == "" {
		return "Report"
	}
	return name
}

// WriteXLSX writes t as a single-sheet workbook: a title row, the header,
// the body rows and the footer in bold when present.
func WriteXLSX(t reports.Table, w io.Writer) (err error) {
	if len(t.Headers) == 0 {
		return errors.New("export: table has no columns")
	}
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	sheet := SheetName(t.Title)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	st, err := newStyles(f, t.Kinds)
	if err != nil {
		return err
	}

	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", st.title); err != nil {
		return err
	}
	for i, h := range t.Headers {
		if err := setCell(f, sheet, i+1, headerRow, h, st.header); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(h)) + 4
		if width < 12 {
			width = 12
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	row := headerRow + 1
	write := func(cells []any, styles []int) error {
		for i, v := range cells {
			if i >= len(styles) {
				break
			}
			if err := setCell(f, sheet, i+1, row, v, styles[i]); err != nil {
				return err
			}
		}
		row++
		return nil
	}
	for _, r := range t.Rows {
		if err := write(r, st.body); err != nil {
			return err
		}
	}
	if t.Footer != nil {
		if err := write(t.Footer, st.footer); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", headerRow+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	if len(t.Rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), headerRow+len(t.Rows))
		if err := f.AutoFilter(sheet, fmt.Sprintf("A%d:%s", headerRow, last), nil); err != nil {
			return fmt.Errorf("failed to add filter: %w", err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any, style int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, v); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, name, name, style)
}

type styles struct {
	title, header int
	body, footer  []int
}

func newStyles(f *excelize.File, kinds []reports.Kind) (styles, error) {
	var s styles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, fmt.Errorf("failed to create title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, fmt.Errorf("failed to create header style: %w", err)
	}
	for _, k := range kinds {
		body, err := kindStyle(f, k, false)
		if err != nil {
			return s, err
		}
		footer, err := kindStyle(f, k, true)
		if err != nil {
			return s, err
		}
		s.body = append(s.body, body)
		s.footer = append(s.footer, footer)
	}
	return s, nil
}

func kindStyle(f *excelize.File, k reports.Kind, bold bool) (int, error) {
	st := &excelize.Style{}
	if format, ok := numFmts[k]; ok {
		st.CustomNumFmt = &format
	}
	if bold {
		st.Font = &excelize.Font{Bold: true}
		st.Border = []excelize.Border{{Type: "top", Color: "000000", Style: 1}}
	}
	id, err := f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("failed to create cell style: %w", err)
	}
	return id, nil
}
