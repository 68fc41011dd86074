package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/duediligenceflow/internal/pipeline"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not an error.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(content); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists. Skipping.", "gcsObject", objectName)
			return nil
		}
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs:// URI needs a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}

// ObjectLoader reads documents addressed as gs://bucket/object.
type ObjectLoader struct {
	client *storage.Client
}

func NewObjectLoader(client *storage.Client) *ObjectLoader {
	return &ObjectLoader{client: client}
}

// Load implements pipeline.Loader. A missing object is reported as pipeline.ErrDocumentNotFound.
func (l *ObjectLoader) Load(ctx context.Context, location string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(location)
	if err != nil {
		return nil, err
	}
	return ReadObject(ctx, l.client.Bucket(bucket), object)
}

// ReadObject downloads object from bucket into memory.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, object string) ([]byte, error) {
	reader, err := bucket.Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", object, pipeline.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", object, err)
	}
	defer reader.Close()

	buf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", object, err)
	}
	return buf, nil
}
