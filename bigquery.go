package reagentcrawler

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/compute/metadata"
	"google.golang.org/api/option"
)

const bigQueryBatch = 500

// bigQueryRow stores an item as a flat row; the site's columns go into a
// repeated key/value record so every vendor shares one table.
type bigQueryRow struct {
	item CrawlItem
}

func (r bigQueryRow) Save() (map[string]bigquery.Value, string, error) {
	fields := make([]bigquery.Value, 0, len(r.item.Columns))
	for _, col := range r.item.Columns {
		fields = append(fields, map[string]bigquery.Value{
			"key":   col,
			"value": r.item.Get(col),
		})
	}
	row := map[string]bigquery.Value{
		"site":       r.item.Site,
		"url":        r.item.URL,
		"name":       r.item.Get(ColumnName),
		"catalog_no": r.item.Get(ColumnCatalogNo),
		"fields":     fields,
		"run_id":     r.item.RunID,
		"scraped_at": r.item.ScrapedAt,
	}
	return row, r.item.RunID + ":" + r.item.URL, nil
}

type bigQuerySink struct {
	mu       sync.Mutex
	client   *bigquery.Client
	inserter *bigquery.Inserter
	pending  []bigquery.ValueSaver
}

func bigQueryProjectID(config *configService) (string, error) {
	if id := config.EnvString("GCP_PROJECT_ID"); id != "" {
		return id, nil
	}
	id, err := metadata.ProjectID()
	if err != nil {
		return "", fmt.Errorf("failed to get project ID: %w", err)
	}
	return id, nil
}

func newBigQuerySink(ctx context.Context, config *configService) (*bigQuerySink, error) {
	projectID, err := bigQueryProjectID(config)
	if err != nil {
		return nil, err
	}
	dataset := config.EnvString("BIGQUERY_DATASET")
	table := config.EnvString("BIGQUERY_TABLE", "crawl_items")
	if dataset == "" {
		return nil, fmt.Errorf("BIGQUERY_DATASET is not set")
	}

	var opts []option.ClientOption
	if path := config.EnvString("GCP_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	return &bigQuerySink{
		client:   client,
		inserter: client.Dataset(dataset).Table(table).Inserter(),
	}, nil
}

func (s *bigQuerySink) Name() string { return "bigquery" }

func (s *bigQuerySink) Write(ctx context.Context, item CrawlItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, bigQueryRow{item: item})
	if len(s.pending) < bigQueryBatch {
		return nil
	}
	return s.flushLocked(ctx)
}

func (s *bigQuerySink) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	rows := s.pending
	s.pending = nil
	if err := s.inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("failed to insert %d rows: %w", len(rows), err)
	}
	return nil
}

func (s *bigQuerySink) Close(ctx context.Context) error {
	s.mu.Lock()
	err := s.flushLocked(ctx)
	s.mu.Unlock()
	if cerr := s.client.Close(); err == nil {
		err = cerr
	}
	return err
}
