package domain

import (
	"context"
	"fmt"
	"io"
	"time"
)

// BlobWriter uploads data to object storage. Used for the append-only
// resolution audit archive.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobInfo describes one stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobReader retrieves and lists stored objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// Audit archive layout. Per-event records land under a month partition and
// are later compacted into one JSONL bundle per month. The producer and the
// compactor both build keys through these helpers so the layout cannot
// drift.

// AuditEventPath returns the object key for a single resolution audit record.
func AuditEventPath(marketAddress string, storedAt time.Time) string {
	return fmt.Sprintf("%s%s-%d.json", AuditMonthPrefix(storedAt), marketAddress, storedAt.UnixNano())
}

// AuditMonthPrefix returns the listing prefix holding one month of audit
// records.
func AuditMonthPrefix(month time.Time) string {
	return fmt.Sprintf("resolutions/%s/", month.UTC().Format("2006-01"))
}

// AuditBundlePath returns the object key of a compacted month of audit
// records.
func AuditBundlePath(month time.Time) string {
	return fmt.Sprintf("archive/resolutions/%s.jsonl", month.UTC().Format("2006-01"))
}
