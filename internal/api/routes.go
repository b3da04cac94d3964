package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"stealthcompany.com/bitecare/internal/metrics"
)

// SetupRoutes configures and returns the HTTP router
func SetupRoutes(h *Handler, jwtSecret string) *mux.Router {
	r := mux.NewRouter()

	r.Use(metrics.MetricsMiddleware)
	r.Use(NewAuthMiddleware(jwtSecret))

	r.HandleFunc(HealthPath, HealthHandler).Methods(http.MethodGet)
	r.Handle(MetricsPath, metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Scheduler dashboard
	api.HandleFunc("/schedule/dashboard", h.DashboardHandler).Methods(http.MethodGet)
	api.HandleFunc("/schedule/due-today", h.DueTodayHandler()).Methods(http.MethodGet)
	api.HandleFunc("/schedule/missed", h.MissedHandler()).Methods(http.MethodGet)

	// Per-case and per-patient views
	api.HandleFunc("/cases", h.ListCasesHandler).Methods(http.MethodGet)
	api.HandleFunc("/cases/{id}/schedule", h.CaseScheduleHandler).Methods(http.MethodGet)
	api.HandleFunc("/patients/{id}/last-dose", h.LastDoseHandler).Methods(http.MethodGet)

	return r
}
