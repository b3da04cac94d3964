package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// IngestionStatusKey is the document key for ingestion status
const IngestionStatusKey = "_system/ingestion_status"

// IngestionStatus represents the ingestion status document
type IngestionStatus struct {
	Ready          bool      `json:"ready"`
	StartedAt      time.Time `json:"startedAt"`
	CompletedAt    time.Time `json:"completedAt,omitempty"`
	Message        string    `json:"message"`
	CasesStored    int       `json:"casesStored"`
	PatientsStored int       `json:"patientsStored"`
	Failed         int       `json:"failed"`
}

// IngestionStatusModel represents the database model for ingestion status
type IngestionStatusModel struct {
	conn *Connection
}

// NewIngestionStatusModel creates a new ingestion status model
func NewIngestionStatusModel(conn *Connection) *IngestionStatusModel {
	return &IngestionStatusModel{conn: conn}
}

// GetIngestionStatus retrieves the ingestion status; a missing document means not ready
func (ism *IngestionStatusModel) GetIngestionStatus(ctx context.Context) (*IngestionStatus, error) {
	collection := ism.conn.GetBucket().DefaultCollection()

	result, err := collection.Get(IngestionStatusKey, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return &IngestionStatus{Ready: false}, nil
		}
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}

	var status IngestionStatus
	if err := result.Content(&status); err != nil {
		return nil, fmt.Errorf("failed to parse ingestion status: %w", err)
	}

	return &status, nil
}

// IsIngestionReady checks if an ingestion run has completed
func (ism *IngestionStatusModel) IsIngestionReady(ctx context.Context) (bool, error) {
	status, err := ism.GetIngestionStatus(ctx)
	if err != nil {
		return false, err
	}
	return status.Ready, nil
}

// SetIngestionStatus writes the ingestion status document
func (ism *IngestionStatusModel) SetIngestionStatus(ctx context.Context, status *IngestionStatus) error {
	collection := ism.conn.GetBucket().DefaultCollection()

	_, err := collection.Upsert(IngestionStatusKey, status, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to set ingestion status: %w", err)
	}

	log.Debug().Bool("ready", status.Ready).Msg("Ingestion status updated")
	return nil
}

// MarkIngestionStarted records the start of an ingestion run
func (ism *IngestionStatusModel) MarkIngestionStarted(ctx context.Context, startedAt time.Time) error {
	return ism.SetIngestionStatus(ctx, &IngestionStatus{
		Ready:     false,
		StartedAt: startedAt,
		Message:   "Case ingestion started",
	})
}

// MarkIngestionCompleted records a finished ingestion run
func (ism *IngestionStatusModel) MarkIngestionCompleted(ctx context.Context, status *IngestionStatus) error {
	status.Ready = true
	if status.CompletedAt.IsZero() {
		status.CompletedAt = time.Now().UTC()
	}
	return ism.SetIngestionStatus(ctx, status)
}

// WaitForIngestion polls until an ingestion run has completed or ctx is done
func (ism *IngestionStatusModel) WaitForIngestion(ctx context.Context, interval time.Duration) error {
	log.Info().Msg("Waiting for case ingestion to complete...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ready, err := ism.IsIngestionReady(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Error checking ingestion status")
		} else if ready {
			log.Info().Msg("Case ingestion completed, API is ready to serve requests")
			return nil
		} else {
			log.Info().Msg("Case ingestion still in progress, waiting...")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
