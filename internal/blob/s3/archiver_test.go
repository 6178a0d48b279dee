package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantary/forecastbot/internal/domain"
	"github.com/quantary/forecastbot/internal/store/memory"
)

type capturePut struct {
	path        string
	contentType string
	body        []byte
	calls       int
}

func (c *capturePut) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	c.calls++
	c.path = path
	c.contentType = contentType
	body, err := io.ReadAll(data)
	c.body = body
	return err
}

func TestArchivePredictionsUploadsJSONL(t *testing.T) {
	store := memory.NewPredictionStore()
	ctx := context.Background()

	created := time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		require.NoError(t, store.Append(ctx, domain.Prediction{
			ID: id, Asset: "BTC", Timeframe: domain.Timeframe1Hr,
			CreatedAt: created.Add(time.Duration(i) * time.Hour),
			Outcome:   domain.OutcomePending,
		}))
		_, err := store.Resolve(ctx, id, domain.Resolution{Outcome: domain.OutcomeCorrect, ResolvedAt: created})
		require.NoError(t, err)
	}

	sink := &capturePut{}
	n, err := NewArchiver(sink, store).ArchivePredictions(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "archive/predictions/2026-07.jsonl", sink.path)
	assert.Equal(t, "application/x-ndjson", sink.contentType)

	lines := bytes.Split(bytes.TrimSpace(sink.body), []byte("\n"))
	require.Len(t, lines, 2)
	var p domain.Prediction
	require.NoError(t, json.Unmarshal(lines[0], &p))
	assert.Equal(t, "a", p.ID)
}

func TestArchivePredictionsNothingToDo(t *testing.T) {
	sink := &capturePut{}
	n, err := NewArchiver(sink, memory.NewPredictionStore()).ArchivePredictions(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, sink.calls)
}
