package worker

import (
	"context"
	"log/slog"
	"time"
)

// PredictionArchiver is the slice of the blob archiver this loop
// drives.
type PredictionArchiver interface {
	ArchivePredictions(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveSweep periodically exports resolved predictions older than
// the retention window to cold storage.
type ArchiveSweep struct {
	archiver  PredictionArchiver
	retention time.Duration
	interval  time.Duration
	log       *slog.Logger
}

func NewArchiveSweep(archiver PredictionArchiver, retention, interval time.Duration, log *slog.Logger) *ArchiveSweep {
	return &ArchiveSweep{
		archiver:  archiver,
		retention: retention,
		interval:  interval,
		log:       log.With(slog.String("component", "archive_sweep")),
	}
}

func (s *ArchiveSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("archive sweep stopping")
			return nil
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.retention)
			n, err := s.archiver.ArchivePredictions(ctx, cutoff)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Error("archive failed", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.log.Info("predictions archived", slog.Int64("count", n))
			}
		}
	}
}
