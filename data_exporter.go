package reagentcrawler

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lazuli-inc/reagentcrawler/workbook"
)

// csvSink collects items in memory and writes the site's CSV file when the
// crawl finishes. The file is replaced as a whole, never appended to.
type csvSink struct {
	mu       sync.Mutex
	path     string
	columns  []string
	items    []CrawlItem
	uploader func(path string)
}

func newCsvSink(path string, columns []string) *csvSink {
	return &csvSink{path: path, columns: columns}
}

func (s *csvSink) Name() string { return "csv" }

func (s *csvSink) Write(_ context.Context, item CrawlItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *csvSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeItemsToCSV(s.path, s.columns, s.items); err != nil {
		return err
	}
	if s.uploader != nil {
		s.uploader(s.path)
	}
	return nil
}

// Sheet returns the collected items as a table in discovery order.
func (s *csvSink) Sheet(name string) workbook.Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return itemsToSheet(name, s.columns, s.items)
}

func sortItems(items []CrawlItem) []CrawlItem {
	sorted := make([]CrawlItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ref.before(sorted[j].ref)
	})
	return sorted
}

func itemsToSheet(name string, columns []string, items []CrawlItem) workbook.Sheet {
	rows := [][]string{append([]string(nil), columns...)}
	for _, item := range sortItems(items) {
		item.Columns = columns
		rows = append(rows, item.Row())
	}
	return workbook.Sheet{Name: name, Rows: rows}
}

func writeItemsToCSV(filename string, columns []string, items []CrawlItem) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	for _, row := range itemsToSheet("", columns, items).Rows {
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
