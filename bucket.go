package reagentcrawler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"
)

// uploadToBucket copies a finished export to gs://<GCS_BUCKET>/<prefix>/<site>/<file>.
func uploadToBucket(app *Crawler, sourceFileName string) {
	bucketName := app.Config.EnvString("GCS_BUCKET")
	if bucketName == "" {
		return
	}
	startTime := time.Now()
	prefix := app.Config.EnvString("GCS_PREFIX", "reagents")
	destinationFileName := fmt.Sprintf("%s/%s/%s", prefix, app.Name, filepath.Base(sourceFileName))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var opts []option.ClientOption
	if path := app.Config.EnvString("GCP_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		app.Logger.Error("Failed to create storage client: %v", err)
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			app.Logger.Error("Failed to close storage client: %v", err)
		}
	}()

	file, err := os.Open(sourceFileName)
	if err != nil {
		app.Logger.Error("Failed to open file %s: %v", sourceFileName, err)
		return
	}
	defer file.Close()

	writer := client.Bucket(bucketName).Object(destinationFileName).NewWriter(ctx)
	writer.ContentType = detectContentType(sourceFileName)

	if _, err := io.Copy(writer, file); err != nil {
		app.Logger.Error("Failed to copy file data to bucket %s: %v", bucketName, err)
		writer.Close()
		return
	}
	if err := writer.Close(); err != nil {
		app.Logger.Error("Failed to close writer for file %s: %v", destinationFileName, err)
		return
	}
	app.Logger.Info("File %s uploaded to bucket successfully. Time taken: %s", sourceFileName, time.Since(startTime))
}

// detectContentType falls back to a binary stream when detection fails.
func detectContentType(filePath string) string {
	mime, err := mimetype.DetectFile(filePath)
	if err != nil {
		return "application/octet-stream"
	}
	return mime.String()
}
