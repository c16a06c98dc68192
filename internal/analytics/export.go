package analytics

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"olistdw/internal/datasource/blob"
)

// ExportFile is the parquet file name written into the output directory.
const ExportFile = "delivery_rows.parquet"

// WriteParquet writes rows to path, creating parent directories as needed.
func WriteParquet(path string, rows []DeliveryRow) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := parquet.NewGenericWriter[DeliveryRow](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", path, err)
	}
	log.Printf("export: file=%s rows=%d", path, len(rows))
	return nil
}

// openBucketFn is a test seam.
var openBucketFn = blob.Open

// Publish uploads the local file at path to bucketURL under its base name.
func Publish(ctx context.Context, bucketURL, path string) (err error) {
	b, err := openBucketFn(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("publish: close bucket: %w", cerr)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer f.Close()

	key := filepath.Base(path)
	if err := b.Upload(ctx, key, f); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	log.Printf("export: published key=%s bucket=%s", key, bucketURL)
	return nil
}
