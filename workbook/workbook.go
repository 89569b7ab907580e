// Package workbook reads and writes the xlsx files crawl results are
// consolidated into: one sheet per site, header row first.
package workbook

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Sheet is a named table whose first row is the header.
type Sheet struct {
	Name string
	Rows [][]string
}

func (s Sheet) Header() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	return s.Rows[0]
}

// Width returns the widest row length.
func (s Sheet) Width() int {
	width := 0
	for _, row := range s.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Read loads every sheet of an xlsx file in workbook order.
func Read(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// Write replaces path with a workbook holding sheets in order. Column widths
// follow the longest cell plus two characters.
func Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	const placeholder = "Sheet1"
	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i)
		if i == 0 {
			if err := f.SetSheetName(placeholder, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeRows(f, name, sheet.Rows); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	for col, width := range ColumnWidths(rows) {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

// ColumnWidths returns, per column, the longest cell length plus two.
func ColumnWidths(rows [][]string) []float64 {
	var widths []float64
	for _, row := range rows {
		for col, v := range row {
			for len(widths) <= col {
				widths = append(widths, 2)
			}
			if w := float64(utf8.RuneCountInString(v) + 2); w > widths[col] {
				widths[col] = w
			}
		}
	}
	for i, w := range widths {
		if w > 255 {
			widths[i] = 255
		}
	}
	return widths
}

func sheetName(name string, index int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

// ReadCSV loads a CSV file as a sheet named after the file.
func ReadCSV(path string) (Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return Sheet{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	base := filepath.Base(path)
	return Sheet{Name: base[:len(base)-len(filepath.Ext(base))], Rows: rows}, nil
}
