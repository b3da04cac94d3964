package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stealthcompany.com/bitecare/internal/schedule"
)

var (
	aggregationDuration  *prometheus.HistogramVec
	aggregationCases     prometheus.Gauge
	dueTodayDoses        prometheus.Gauge
	missedDoses          prometheus.Gauge
	doseStatus           *prometheus.GaugeVec
	identityResolutions  *prometheus.GaugeVec
	scheduleRequestTotal *prometheus.CounterVec

	scheduleOnce sync.Once
)

// initializeScheduleMetrics registers the schedule engine metrics once
func initializeScheduleMetrics() {
	scheduleOnce.Do(func() {
		aggregationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schedule_aggregation_duration_seconds",
				Help:    "Time spent deriving schedule views and dashboard lists",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		)

		aggregationCases = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "schedule_cases",
				Help: "Number of cases in the last aggregation",
			},
		)

		dueTodayDoses = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "schedule_due_today_doses",
				Help: "Doses due today in the last aggregation",
			},
		)

		missedDoses = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "schedule_missed_doses",
				Help: "Missed doses in the last aggregation",
			},
		)

		doseStatus = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "schedule_dated_doses",
				Help: "Dated doses per classified status in the last aggregation",
			},
			[]string{"status"},
		)

		identityResolutions = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "schedule_identity_resolutions",
				Help: "Cases per identity match source in the last published aggregation",
			},
			[]string{"source"},
		)

		scheduleRequestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schedule_requests_total",
				Help: "Schedule API requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)

		Registry().MustRegister(
			aggregationDuration,
			aggregationCases,
			dueTodayDoses,
			missedDoses,
			doseStatus,
			identityResolutions,
			scheduleRequestTotal,
		)
	})
}

// RecordAggregationDuration observes how long one aggregation run took
func RecordAggregationDuration(trigger string, duration time.Duration) {
	if !BusinessEnabled() {
		return
	}
	initializeScheduleMetrics()

	aggregationDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// PublishSchedule replaces the dashboard gauges with result. Only the
// current-day aggregation of the refresher publishes here.
func PublishSchedule(result schedule.Result) {
	if !BusinessEnabled() {
		return
	}
	initializeScheduleMetrics()

	aggregationCases.Set(float64(len(result.Views)))
	dueTodayDoses.Set(float64(len(result.DueToday)))
	missedDoses.Set(float64(result.MissedCount))
	for status, count := range result.StatusCounts {
		doseStatus.WithLabelValues(string(status)).Set(float64(count))
	}

	bySource := make(map[schedule.MatchSource]int)
	for _, view := range result.Views {
		bySource[view.Identity.Source]++
	}
	identityResolutions.Reset()
	for source, count := range bySource {
		identityResolutions.WithLabelValues(string(source)).Set(float64(count))
	}
}

// RecordScheduleRequest counts a schedule endpoint call by result
func RecordScheduleRequest(endpoint, result string) {
	if !BusinessEnabled() {
		return
	}
	initializeScheduleMetrics()

	scheduleRequestTotal.WithLabelValues(endpoint, result).Inc()
}

var (
	ingestDuration       *prometheus.HistogramVec
	ingestTotal          *prometheus.CounterVec
	ingestProcessed      *prometheus.CounterVec
	ingestStored         *prometheus.CounterVec
	ingestFailed         *prometheus.CounterVec
	sourceRequestsTotal  *prometheus.CounterVec
	sourceRequestSeconds *prometheus.HistogramVec

	ingestOnce sync.Once
)

// initializeIngestMetrics registers the case ingestion metrics once
func initializeIngestMetrics() {
	ingestOnce.Do(func() {
		ingestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "case_ingestion_duration_seconds",
				Help:    "Time spent ingesting case management records",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		)

		ingestTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_ingestion_total",
				Help: "Total number of case ingestion operations",
			},
			[]string{"endpoint", "status"},
		)

		ingestProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_records_processed_total",
				Help: "Total number of case management records processed",
			},
			[]string{"endpoint", "collection"},
		)

		ingestStored = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_records_stored_total",
				Help: "Total number of case management records stored",
			},
			[]string{"endpoint", "collection"},
		)

		ingestFailed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_records_failed_total",
				Help: "Total number of case management records that failed to store",
			},
			[]string{"endpoint", "collection"},
		)

		sourceRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "case_source_http_requests_total",
				Help: "Total number of HTTP requests to the case management API",
			},
			[]string{"endpoint", "status_code"},
		)

		sourceRequestSeconds = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "case_source_http_request_duration_seconds",
				Help:    "Time spent making HTTP requests to the case management API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)

		Registry().MustRegister(
			ingestDuration,
			ingestTotal,
			ingestProcessed,
			ingestStored,
			ingestFailed,
			sourceRequestsTotal,
			sourceRequestSeconds,
		)
	})
}

// RecordIngestion records the outcome of ingesting one endpoint
func RecordIngestion(endpoint, collection string, startTime time.Time, status string, processed, stored, failed int) {
	if !BusinessEnabled() {
		return
	}
	initializeIngestMetrics()

	ingestDuration.WithLabelValues(endpoint, status).Observe(time.Since(startTime).Seconds())
	ingestTotal.WithLabelValues(endpoint, status).Inc()
	ingestProcessed.WithLabelValues(endpoint, collection).Add(float64(processed))
	ingestStored.WithLabelValues(endpoint, collection).Add(float64(stored))
	if failed > 0 {
		ingestFailed.WithLabelValues(endpoint, collection).Add(float64(failed))
	}
}

// RecordSourceRequest records one HTTP call to the case management API
func RecordSourceRequest(endpoint string, startTime time.Time, statusCode int) {
	if !BusinessEnabled() {
		return
	}
	initializeIngestMetrics()

	sourceRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	sourceRequestSeconds.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
}
