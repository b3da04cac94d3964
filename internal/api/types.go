package api

import (
	"context"

	"cloud.google.com/go/civil"

	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/schedule"
)

// RecordStore is the read side of case storage the handlers depend on
type RecordStore interface {
	ListCases(ctx context.Context) ([]schedule.BiteCase, error)
	ListCasesPage(ctx context.Context, page, count int) ([]schedule.BiteCase, dal.Pagination, error)
	GetCase(ctx context.Context, id string) (*schedule.BiteCase, error)
	ListPatients(ctx context.Context) ([]schedule.Patient, error)
}

// ResultCache holds the latest current-day aggregation
type ResultCache interface {
	Last() (schedule.Result, bool)
}

// Response Types
type DashboardResponse struct {
	Date                     civil.Date                   `json:"date"`
	DueToday                 []schedule.DueDose           `json:"dueToday"`
	MissedCount              int                          `json:"missedCount"`
	StatusCounts             map[schedule.Status]int      `json:"statusCounts"`
	LastTouchedDoseByPatient map[string]schedule.DayLabel `json:"lastTouchedDoseByPatient"`
}

type DoseListResponse struct {
	Date  civil.Date         `json:"date"`
	Count int                `json:"count"`
	Data  []schedule.DueDose `json:"data"`
}

type CaseListResponse struct {
	Date       civil.Date              `json:"date"`
	Data       []schedule.ScheduleView `json:"data"`
	Pagination dal.Pagination          `json:"pagination"`
}

type LastDoseResponse struct {
	PatientKey string            `json:"patientKey"`
	Day        schedule.DayLabel `json:"day"`
}

// Constants
const (
	DefaultPageCount = 20
	MaxPageCount     = 100

	DateQueryParam = "date"
)
