// Package filter keeps only the scraped rows whose product name mentions one
// of a reference list of protein symbols.
package filter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lazuli-inc/reagentcrawler/workbook"
)

const nameHeader = "name"

// Normalize lowercases s and strips whitespace and hyphens.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '\u00ad' || r == '\u2010' || r == '\u2011' {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Symbols holds normalized reference symbols.
type Symbols []string

func NewSymbols(raw []string) Symbols {
	seen := make(map[string]struct{}, len(raw))
	var out Symbols
	for _, s := range raw {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Match reports whether the normalized name contains any symbol.
func (s Symbols) Match(name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}
	for _, sym := range s {
		if strings.Contains(n, sym) {
			return true
		}
	}
	return false
}

// LoadSymbols reads the first column of the first sheet, skipping the header row.
func LoadSymbols(path string) (Symbols, error) {
	sheets, err := workbook.Read(path)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	var raw []string
	for i, row := range sheets[0].Rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		raw = append(raw, row[0])
	}
	return NewSymbols(raw), nil
}

// nameColumn prefers a column headed "name" and falls back to the second column.
func nameColumn(header []string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), nameHeader) {
			return i
		}
	}
	return 1
}

// Sheet filters one sheet. Sheets narrower than two columns pass through unchanged.
func Sheet(sheet workbook.Sheet, symbols Symbols) workbook.Sheet {
	if sheet.Width() < 2 || len(sheet.Rows) == 0 {
		return sheet
	}
	col := nameColumn(sheet.Header())
	out := workbook.Sheet{Name: sheet.Name, Rows: [][]string{sheet.Header()}}
	for _, row := range sheet.Rows[1:] {
		if col < len(row) && symbols.Match(row[col]) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Workbook filters every sheet of a scraped workbook.
func Workbook(sheets []workbook.Sheet, symbols Symbols) []workbook.Sheet {
	out := make([]workbook.Sheet, 0, len(sheets))
	for _, sheet := range sheets {
		out = append(out, Sheet(sheet, symbols))
	}
	return out
}

// Run filters the scraped workbook at in against the symbol list at symbolsPath
// and writes the result to out.
func Run(symbolsPath, in, out string) (kept int, err error) {
	symbols, err := LoadSymbols(symbolsPath)
	if err != nil {
		return 0, err
	}
	sheets, err := workbook.Read(in)
	if err != nil {
		return 0, err
	}
	filtered := Workbook(sheets, symbols)
	for _, s := range filtered {
		if len(s.Rows) > 0 {
			kept += len(s.Rows) - 1
		}
	}
	return kept, workbook.Write(out, filtered)
}
