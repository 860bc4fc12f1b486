// Package archive stores raw fetched payloads for later inspection.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"sitewatch/internal/monitor"
)

// GCSArchive writes payloads to a Google Cloud Storage bucket.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

var _ monitor.Archive = (*GCSArchive)(nil)

// NewGCS creates a GCS-backed archive.
func NewGCS(client *storage.Client, bucket string) (*GCSArchive, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

// PutObject uploads the payload and returns a gs:// URI.
func (a *GCSArchive) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := a.client.Bucket(a.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", a.bucket, path), nil
}
