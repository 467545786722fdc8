package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// archivePageSize bounds each journal query while archiving.
const archivePageSize = 500

// Archiver copies journal rows older than a cutoff into JSONL files. Rows are
// not deleted from the primary store; pruning is a separate step once the
// archive has been checked.
type Archiver struct {
	writer  domain.BlobWriter
	actions domain.ActionStore
	audit   domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, actions domain.ActionStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, actions: actions, audit: audit}
}

// ArchiveActions uploads every action journaled before the cutoff to
// archive/actions/YYYY-MM.jsonl, records the archival in the audit log and
// returns the number of rows written.
func (a *Archiver) ArchiveActions(ctx context.Context, before time.Time) (int64, error) {
	var records []domain.ActionRecord
	for offset := 0; ; offset += archivePageSize {
		page, err := a.actions.ListRecent(ctx, domain.ListOpts{
			Until:  &before,
			Limit:  archivePageSize,
			Offset: offset,
		})
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive actions query: %w", err)
		}
		records = append(records, page...)
		if len(page) < archivePageSize {
			break
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive actions marshal: %w", err)
	}

	path := archivePath("actions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive actions upload: %w", err)
	}

	count := int64(len(records))
	if err := a.audit.Log(ctx, "archive.actions", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive actions audit log: %w", err)
	}

	return count, nil
}

// archivePath builds the key for an archive file, partitioned by the
// year-month of the cutoff.
//
//	archive/actions/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
