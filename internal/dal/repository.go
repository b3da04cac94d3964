package dal

import (
	"context"

	"stealthcompany.com/bitecare/internal/schedule"
)

// Repository exposes the stored cases and patients to the API
type Repository struct {
	cases    *BiteCaseModel
	patients *PatientModel
}

// NewRepository creates a repository over an open connection
func NewRepository(conn *Connection) *Repository {
	rm := NewResourceModel(conn)
	return &Repository{
		cases:    NewBiteCaseModel(rm),
		patients: NewPatientModel(rm),
	}
}

// ListCases returns every stored bite case
func (r *Repository) ListCases(ctx context.Context) ([]schedule.BiteCase, error) {
	return r.cases.ListAll(ctx)
}

// ListCasesPage returns one page of bite cases
func (r *Repository) ListCasesPage(ctx context.Context, page, count int) ([]schedule.BiteCase, Pagination, error) {
	return r.cases.List(ctx, page, count)
}

// GetCase returns a single bite case or ErrNotFound
func (r *Repository) GetCase(ctx context.Context, id string) (*schedule.BiteCase, error) {
	return r.cases.GetByID(ctx, id)
}

// ListPatients returns every stored patient
func (r *Repository) ListPatients(ctx context.Context) ([]schedule.Patient, error) {
	return r.patients.ListAll(ctx)
}

// UpsertCase stores a bite case
func (r *Repository) UpsertCase(ctx context.Context, c schedule.BiteCase) error {
	return r.cases.Upsert(ctx, c)
}

// UpsertPatient stores a patient
func (r *Repository) UpsertPatient(ctx context.Context, p schedule.Patient) error {
	return r.patients.Upsert(ctx, p)
}
