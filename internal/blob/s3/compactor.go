package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/bbh233/backend/internal/domain"
)

// maxEventSize bounds a single audit record read during compaction.
const maxEventSize = 1 << 20

// Compactor folds a month of per-event audit records into one JSONL bundle
// so listings stay cheap as resolutions accumulate. Source records are left
// in place; removing them is a separate, explicit step to run only after
// the bundle has been verified.
type Compactor struct {
	reader *Reader
	writer *Writer
	logger *slog.Logger
}

// NewCompactor creates a Compactor over the client's bucket.
func NewCompactor(c *Client, logger *slog.Logger) *Compactor {
	return &Compactor{
		reader: NewReader(c),
		writer: NewWriter(c),
		logger: logger.With(slog.String("component", "audit_compactor")),
	}
}

// CompactMonth bundles every audit record stored in the given month into a
// single JSONL object. A month that already has a bundle is skipped, so the
// operation is safe to re-run. Returns the number of records bundled.
func (c *Compactor) CompactMonth(ctx context.Context, month time.Time) (int64, error) {
	bundle := domain.AuditBundlePath(month)

	exists, err := c.reader.Exists(ctx, bundle)
	if err != nil {
		return 0, fmt.Errorf("s3blob: compact %s: %w", bundle, err)
	}
	if exists {
		return 0, nil
	}

	prefix := domain.AuditMonthPrefix(month)
	infos, err := c.reader.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("s3blob: compact list %s: %w", prefix, err)
	}
	if len(infos) == 0 {
		return 0, nil
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	var buf bytes.Buffer
	for _, info := range infos {
		if err := c.appendRecord(ctx, &buf, info.Path); err != nil {
			return 0, err
		}
	}

	if err := c.writer.PutMultipart(ctx, bundle, &buf, 0); err != nil {
		return 0, err
	}

	c.logger.InfoContext(ctx, "audit month compacted",
		slog.String("bundle", bundle),
		slog.Int("records", len(infos)),
	)
	return int64(len(infos)), nil
}

// appendRecord reads one audit record and appends it to buf as a JSONL line.
func (c *Compactor) appendRecord(ctx context.Context, buf *bytes.Buffer, path string) error {
	rc, err := c.reader.Get(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEventSize))
	if err != nil {
		return fmt.Errorf("s3blob: compact read %s: %w", path, err)
	}

	buf.Write(bytes.TrimSpace(data))
	buf.WriteByte('\n')
	return nil
}
