package reagentcrawler

import "time"

const (
	ColumnName      = "name"
	ColumnCatalogNo = "catalog_no"
	ColumnURL       = "url"
)

// ProductRef is one product found on a listing page.
type ProductRef struct {
	URL       string
	Name      string
	CatalogNo string
	Meta      map[string]string

	Partition int
	Page      int
	Position  int
}

// before orders refs by partition, page and position on the page.
func (r ProductRef) before(o ProductRef) bool {
	if r.Partition != o.Partition {
		return r.Partition < o.Partition
	}
	if r.Page != o.Page {
		return r.Page < o.Page
	}
	return r.Position < o.Position
}

// ExtractionResult maps every declared field to text or the default marker.
type ExtractionResult map[string]string

// CrawlItem is one finished product row.
type CrawlItem struct {
	Site      string            `json:"site" bson:"site"`
	URL       string            `json:"url" bson:"url"`
	Values    map[string]string `json:"values" bson:"values"`
	Columns   []string          `json:"-" bson:"-"`
	RunID     string            `json:"run_id" bson:"run_id"`
	ScrapedAt time.Time         `json:"scraped_at" bson:"scraped_at"`

	ref ProductRef
}

func (i CrawlItem) Get(column string) string {
	if v, ok := i.Values[column]; ok {
		return v
	}
	return DefaultValue
}

// Row returns the values in column order.
func (i CrawlItem) Row() []string {
	row := make([]string, len(i.Columns))
	for idx, col := range i.Columns {
		row[idx] = i.Get(col)
	}
	return row
}

// itemColumns lists name, catalog_no, listing fields, detail fields and url,
// each once.
func itemColumns(listing ListingRecipe, extraction ExtractionRecipe) []string {
	columns := []string{ColumnName, ColumnCatalogNo}
	for _, f := range listing.Fields {
		columns = append(columns, f.Name)
	}
	for _, f := range extraction.Fields {
		columns = append(columns, f.Name)
	}
	columns = append(columns, ColumnURL)
	return uniqueStrings(columns)
}

// buildItem merges the listing reference with the detail result. Detail values
// win over listing values unless they are the default marker.
func buildItem(site string, columns []string, ref ProductRef, result ExtractionResult, runID string) CrawlItem {
	values := make(map[string]string, len(columns))
	for _, col := range columns {
		values[col] = DefaultValue
	}
	values[ColumnURL] = ref.URL
	if ref.Name != "" {
		values[ColumnName] = ref.Name
	}
	if ref.CatalogNo != "" {
		values[ColumnCatalogNo] = ref.CatalogNo
	}
	for k, v := range ref.Meta {
		if v != "" {
			values[k] = v
		}
	}
	for k, v := range result {
		if v == "" || (v == DefaultValue && values[k] != DefaultValue) {
			continue
		}
		values[k] = v
	}
	return CrawlItem{
		Site:      site,
		URL:       ref.URL,
		Values:    values,
		Columns:   columns,
		RunID:     runID,
		ScrapedAt: time.Now(),
		ref:       ref,
	}
}
