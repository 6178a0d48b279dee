package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quantary/forecastbot/internal/domain"
)

// BlobWriter is the slice of Writer the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports resolved predictions older than a cutoff to JSONL
// objects under archive/predictions/. Deleting the archived rows from
// the primary store is intentionally a separate, explicit step run
// after the archive has been verified.
type Archiver struct {
	writer BlobWriter
	store  domain.PredictionStore
}

func NewArchiver(writer BlobWriter, store domain.PredictionStore) *Archiver {
	return &Archiver{writer: writer, store: store}
}

// ArchivePredictions uploads every resolved prediction created before
// the cutoff and returns how many were written. No records means no
// upload.
func (a *Archiver) ArchivePredictions(ctx context.Context, before time.Time) (int64, error) {
	preds, err := a.store.ListResolvedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions query: %w", err)
	}
	if len(preds) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(preds)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions marshal: %w", err)
	}

	path := fmt.Sprintf("archive/predictions/%s.jsonl", before.UTC().Format("2006-01"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive predictions upload: %w", err)
	}
	return int64(len(preds)), nil
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
