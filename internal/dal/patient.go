package dal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/bitecare/internal/schedule"
)

// PatientModel handles patient-specific database operations
type PatientModel struct {
	resourceModel *ResourceModel
}

// NewPatientModel creates a new patient model instance
func NewPatientModel(resourceModel *ResourceModel) *PatientModel {
	return &PatientModel{resourceModel: resourceModel}
}

// GetByID retrieves a patient by ID
func (pm *PatientModel) GetByID(ctx context.Context, id string) (*schedule.Patient, error) {
	log.Debug().
		Str("id", id).
		Msg("Getting patient by ID")

	var p schedule.Patient
	if err := pm.resourceModel.GetResource(ctx, ResourcePatient, id, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

// ListAll reads every stored patient
func (pm *PatientModel) ListAll(ctx context.Context) ([]schedule.Patient, error) {
	var patients []schedule.Patient
	err := pm.resourceModel.ScanResources(ctx, ResourcePatient, func(row QueryRow) error {
		var p schedule.Patient
		if err := json.Unmarshal(row.Resource, &p); err != nil {
			log.Warn().Err(err).Str("doc_id", row.ID).Msg("Skipping undecodable patient")
			return nil
		}
		if p.ID == "" {
			p.ID = idFromDocID(row.ID)
		}
		patients = append(patients, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Upsert stores a patient
func (pm *PatientModel) Upsert(ctx context.Context, p schedule.Patient) error {
	return pm.resourceModel.UpsertResource(ctx, ResourcePatient, p.ID, p)
}

// idFromDocID strips the resource prefix from a document key
func idFromDocID(docID string) string {
	if i := strings.Index(docID, "/"); i >= 0 {
		return docID[i+1:]
	}
	return docID
}
