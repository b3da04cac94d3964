package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/ingest"
)

// Locker serializes ingest runs
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// StatusRecorder persists the ingestion status document
type StatusRecorder interface {
	MarkIngestionStarted(ctx context.Context, startedAt time.Time) error
	MarkIngestionCompleted(ctx context.Context, status *dal.IngestionStatus) error
}

// Ingester pulls records from the case management API
type Ingester interface {
	IngestAll(ctx context.Context) (ingest.Summary, error)
}

// IngestRunner runs one ingestion under the ingest lock and records its status
type IngestRunner struct {
	locker   Locker
	status   StatusRecorder
	ingester Ingester
	now      func() time.Time
}

// NewIngestRunner creates a new ingest runner
func NewIngestRunner(locker Locker, status StatusRecorder, ingester Ingester) *IngestRunner {
	return &IngestRunner{
		locker:   locker,
		status:   status,
		ingester: ingester,
		now:      time.Now,
	}
}

// Run locks, ingests and marks the status ready. The lock is released even when ingestion fails.
func (r *IngestRunner) Run(ctx context.Context) (err error) {
	log.Info().Msg("Locking database for ingestion")
	if err := r.locker.Lock(ctx); err != nil {
		return fmt.Errorf("failed to lock database: %w", err)
	}
	defer func() {
		log.Info().Msg("Unlocking database after ingestion")
		// Unlock must still run after ctx is cancelled
		if unlockErr := r.locker.Unlock(context.Background()); unlockErr != nil {
			log.Error().Err(unlockErr).Msg("Failed to unlock database")
			if err == nil {
				err = unlockErr
			}
		}
	}()

	startedAt := r.now().UTC()
	if err := r.status.MarkIngestionStarted(ctx, startedAt); err != nil {
		return err
	}

	summary, err := r.ingester.IngestAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to ingest case data: %w", err)
	}

	status := &dal.IngestionStatus{
		StartedAt:      startedAt,
		CompletedAt:    r.now().UTC(),
		Message:        "Case ingestion completed",
		CasesStored:    summary.CasesStored,
		PatientsStored: summary.PatientsStored,
		Failed:         summary.Failed,
	}
	if err := r.status.MarkIngestionCompleted(ctx, status); err != nil {
		return err
	}

	log.Info().
		Int("cases", summary.CasesStored).
		Int("patients", summary.PatientsStored).
		Int("failed", summary.Failed).
		Msg("Case data ingestion completed successfully")
	return nil
}
