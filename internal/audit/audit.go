// Package audit keeps copies of analysis model responses so failed or surprising reports can be
// inspected after the fact. Sinks never fail the caller; write errors are logged.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/duediligenceflow/internal/gcp"
	"github.com/google/uuid"
)

const timestampLayout = "20060102T150405.000Z"

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, string, any) {}

// GCSSink writes each record as a new JSON object under Prefix in a bucket.
type GCSSink struct {
	bucket *storage.BucketHandle
	prefix string
	now    func() time.Time
}

func NewGCSSink(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{bucket: client.Bucket(bucket), prefix: prefix, now: time.Now}
}

func (s *GCSSink) Record(ctx context.Context, prefix string, payload any) {
	logCtx := slog.With("auditPrefix", prefix)
	data, err := marshal(payload)
	if err != nil {
		logCtx.Error("Failed to encode audit record.", "error", err)
		return
	}
	name := s.objectName(prefix)
	if err := gcp.SaveToGCSAtomically(ctx, s.bucket, name, data); err != nil {
		logCtx.Error("Failed to write audit record.", "gcsObject", name, "error", err)
		return
	}
	logCtx.Debug("Audit record written.", "gcsObject", name)
}

func (s *GCSSink) objectName(prefix string) string {
	name := fmt.Sprintf("%s/%s_%s.json", prefix, s.now().UTC().Format(timestampLayout), uuid.NewString())
	if s.prefix != "" {
		name = s.prefix + "/" + name
	}
	return name
}

// DirSink writes each record to a file in a local directory.
type DirSink struct {
	dir string
	now func() time.Time
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir, now: time.Now}
}

func (s *DirSink) Record(_ context.Context, prefix string, payload any) {
	logCtx := slog.With("auditPrefix", prefix)
	data, err := marshal(payload)
	if err != nil {
		logCtx.Error("Failed to encode audit record.", "error", err)
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logCtx.Error("Failed to create audit directory.", "dir", s.dir, "error", err)
		return
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.json", prefix, s.now().UTC().Format(timestampLayout), uuid.NewString()[:8]))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logCtx.Error("Failed to write audit record.", "path", path, "error", err)
	}
}

func marshal(payload any) ([]byte, error) {
	if s, ok := payload.(string); ok {
		return []byte(s), nil
	}
	return json.MarshalIndent(payload, "", "  ")
}
