package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/metrics"
	"stealthcompany.com/bitecare/internal/schedule"
)

// Handler serves the schedule endpoints from stored cases
type Handler struct {
	store  RecordStore
	engine *schedule.Engine
	clock  schedule.Clock
	cache  ResultCache
}

// NewHandler creates a handler reading from store
func NewHandler(store RecordStore, engine *schedule.Engine, clock schedule.Clock) *Handler {
	return &Handler{
		store:  store,
		engine: engine,
		clock:  clock,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// UseCache lets the dashboard answer current-day requests from cache
func (h *Handler) UseCache(cache ResultCache) {
	h.cache = cache
}

// referenceDay returns the ?date= override or today from the clock
func (h *Handler) referenceDay(r *http.Request) (civil.Date, error) {
	raw := r.URL.Query().Get(DateQueryParam)
	if raw == "" {
		return h.clock.Today(), nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d, nil
}

// aggregate loads every case and patient and runs the engine once
func (h *Handler) aggregate(r *http.Request, today civil.Date) (schedule.Result, error) {
	ctx := r.Context()

	cases, err := h.store.ListCases(ctx)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("failed to load cases: %w", err)
	}
	patients, err := h.store.ListPatients(ctx)
	if err != nil {
		return schedule.Result{}, fmt.Errorf("failed to load patients: %w", err)
	}

	start := time.Now()
	result := h.engine.Aggregate(cases, patients, today)
	metrics.RecordAggregationDuration("request", time.Since(start))

	return result, nil
}

// dashboardResult serves the cached refresh for the current day and
// aggregates on demand for date overrides or a stale cache
func (h *Handler) dashboardResult(r *http.Request, today civil.Date) (schedule.Result, error) {
	if h.cache != nil && r.URL.Query().Get(DateQueryParam) == "" {
		if cached, ok := h.cache.Last(); ok && cached.Date == today {
			return cached, nil
		}
	}
	return h.aggregate(r, today)
}

// requestUser names the authenticated caller for request logs
func requestUser(r *http.Request) string {
	userID, username, err := GetUserFromContext(r.Context())
	if err != nil {
		return "anonymous"
	}
	if username != "" {
		return username
	}
	return userID
}

// HealthHandler reports liveness
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DashboardHandler handles GET /api/schedule/dashboard
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "dashboard"

	today, err := h.referenceDay(r)
	if err != nil {
		metrics.RecordScheduleRequest(endpoint, "invalid_date")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.dashboardResult(r, today)
	if err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Str("user", requestUser(r)).Msg("Failed to build dashboard")
		metrics.RecordScheduleRequest(endpoint, "storage_error")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().
		Str("date", today.String()).
		Int("due_today", len(result.DueToday)).
		Int("missed", result.MissedCount).
		Msg("Dashboard built")

	metrics.RecordScheduleRequest(endpoint, "success")
	writeJSON(w, http.StatusOK, DashboardResponse{
		Date:                     result.Date,
		DueToday:                 result.DueToday,
		MissedCount:              result.MissedCount,
		StatusCounts:             result.StatusCounts,
		LastTouchedDoseByPatient: result.LastTouchedDoseByPatient,
	})
}

// doseListHandler builds a handler listing one bucket of the aggregation result
func (h *Handler) doseListHandler(endpoint string, pick func(schedule.Result) []schedule.DueDose) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today, err := h.referenceDay(r)
		if err != nil {
			metrics.RecordScheduleRequest(endpoint, "invalid_date")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := h.aggregate(r, today)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Str("user", requestUser(r)).Msg("Failed to build dose list")
			metrics.RecordScheduleRequest(endpoint, "storage_error")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		doses := pick(result)
		metrics.RecordScheduleRequest(endpoint, "success")
		writeJSON(w, http.StatusOK, DoseListResponse{
			Date:  result.Date,
			Count: len(doses),
			Data:  doses,
		})
	}
}

// DueTodayHandler handles GET /api/schedule/due-today
func (h *Handler) DueTodayHandler() http.HandlerFunc {
	return h.doseListHandler("due-today", func(res schedule.Result) []schedule.DueDose {
		return res.DueToday
	})
}

// MissedHandler handles GET /api/schedule/missed
func (h *Handler) MissedHandler() http.HandlerFunc {
	return h.doseListHandler("missed", func(res schedule.Result) []schedule.DueDose {
		return res.Missed
	})
}

// ListCasesHandler handles GET /api/cases
func (h *Handler) ListCasesHandler(w http.ResponseWriter, r *http.Request) {
	today, err := h.referenceDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page := 1
	count := DefaultPageCount
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if c, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && c > 0 && c <= MaxPageCount {
		count = c
	}

	cases, pagination, err := h.store.ListCasesPage(r.Context(), page, count)
	if err != nil {
		log.Error().Err(err).Int("page", page).Str("user", requestUser(r)).Msg("Failed to list cases")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	patients, err := h.store.ListPatients(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list patients")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, CaseListResponse{
		Date:       today,
		Data:       h.engine.BuildViews(cases, patients, today),
		Pagination: pagination,
	})
}

// CaseScheduleHandler handles GET /api/cases/{id}/schedule
func (h *Handler) CaseScheduleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	today, err := h.referenceDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.store.GetCase(r.Context(), id)
	if err != nil {
		if errors.Is(err, dal.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found")
			return
		}
		log.Error().Err(err).Str("case_id", id).Str("user", requestUser(r)).Msg("Failed to get case")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	patients, err := h.store.ListPatients(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list patients")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.engine.View(*c, patients, today))
}

// LastDoseHandler handles GET /api/patients/{id}/last-dose where id is an identity key
func (h *Handler) LastDoseHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["id"]
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}

	result, err := h.aggregate(r, h.clock.Today())
	if err != nil {
		log.Error().Err(err).Str("patient_key", key).Str("user", requestUser(r)).Msg("Failed to resolve last dose")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	day, ok := result.LastTouchedDoseByPatient[key]
	if !ok {
		writeError(w, http.StatusNotFound, "no dose recorded for patient")
		return
	}

	writeJSON(w, http.StatusOK, LastDoseResponse{PatientKey: key, Day: day})
}
