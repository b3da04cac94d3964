package dal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/bitecare/internal/schedule"
)

// BiteCaseModel handles bite case specific database operations
type BiteCaseModel struct {
	resourceModel *ResourceModel
}

// NewBiteCaseModel creates a new bite case model instance
func NewBiteCaseModel(resourceModel *ResourceModel) *BiteCaseModel {
	return &BiteCaseModel{resourceModel: resourceModel}
}

// GetByID retrieves a bite case by ID
func (bm *BiteCaseModel) GetByID(ctx context.Context, id string) (*schedule.BiteCase, error) {
	log.Debug().
		Str("id", id).
		Msg("Getting bite case by ID")

	var c schedule.BiteCase
	if err := bm.resourceModel.GetResource(ctx, ResourceBiteCase, id, &c); err != nil {
		return nil, err
	}
	if c.ID == "" {
		c.ID = id
	}
	return &c, nil
}

// List retrieves a page of bite cases ordered by key
func (bm *BiteCaseModel) List(ctx context.Context, page, count int) ([]schedule.BiteCase, Pagination, error) {
	log.Debug().
		Int("page", page).
		Int("count", count).
		Msg("Listing bite cases")

	rows, pagination, err := bm.resourceModel.ListResources(ctx, ResourceBiteCase, PaginationParams{Page: page, Count: count})
	if err != nil {
		return nil, Pagination{}, err
	}

	cases := make([]schedule.BiteCase, 0, len(rows))
	for _, row := range rows {
		c, err := decodeBiteCase(row)
		if err != nil {
			log.Warn().Err(err).Str("doc_id", row.ID).Msg("Skipping undecodable bite case")
			continue
		}
		cases = append(cases, c)
	}
	return cases, pagination, nil
}

// ListAll reads every stored bite case
func (bm *BiteCaseModel) ListAll(ctx context.Context) ([]schedule.BiteCase, error) {
	var cases []schedule.BiteCase
	err := bm.resourceModel.ScanResources(ctx, ResourceBiteCase, func(row QueryRow) error {
		c, err := decodeBiteCase(row)
		if err != nil {
			log.Warn().Err(err).Str("doc_id", row.ID).Msg("Skipping undecodable bite case")
			return nil
		}
		cases = append(cases, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bite cases: %w", err)
	}
	return cases, nil
}

// Upsert stores a bite case
func (bm *BiteCaseModel) Upsert(ctx context.Context, c schedule.BiteCase) error {
	return bm.resourceModel.UpsertResource(ctx, ResourceBiteCase, c.ID, c)
}

func decodeBiteCase(row QueryRow) (schedule.BiteCase, error) {
	var c schedule.BiteCase
	if err := json.Unmarshal(row.Resource, &c); err != nil {
		return schedule.BiteCase{}, fmt.Errorf("failed to decode bite case %s: %w", row.ID, err)
	}
	if c.ID == "" {
		c.ID = idFromDocID(row.ID)
	}
	return c, nil
}
