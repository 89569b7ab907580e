package reagentcrawler

import (
	"context"
	"fmt"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

const (
	warningKind   = "CrawlWarning"
	datastoreMaxN = 500
)

func (app *Crawler) getDataStoreClient(ctx context.Context) (*datastore.Client, error) {
	var opts []option.ClientOption
	if path := app.Config.EnvString("GCP_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := datastore.NewClient(ctx, app.Config.EnvString("GCP_PROJECT_ID"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %w", err)
	}
	return client, nil
}

// flushWarnings writes the run's warnings to Datastore in batches.
func (app *Crawler) flushWarnings(ctx context.Context) error {
	warnings := app.audit.Warnings()
	if len(warnings) == 0 {
		return nil
	}
	client, err := app.getDataStoreClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	for start := 0; start < len(warnings); start += datastoreMaxN {
		end := start + datastoreMaxN
		if end > len(warnings) {
			end = len(warnings)
		}
		batch := warnings[start:end]
		keys := make([]*datastore.Key, len(batch))
		for i := range batch {
			keys[i] = datastore.IncompleteKey(warningKind, nil)
		}
		if _, err := client.PutMulti(ctx, keys, batch); err != nil {
			return fmt.Errorf("failed to store warnings: %w", err)
		}
	}
	return nil
}
