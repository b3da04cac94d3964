package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/api"
	"stealthcompany.com/bitecare/internal/metrics"
	"stealthcompany.com/bitecare/internal/schedule"
)

// Refresher periodically re-derives the dashboard so the schedule gauges
// follow the calendar even when nobody calls the API
type Refresher struct {
	store    api.RecordStore
	engine   *schedule.Engine
	clock    schedule.Clock
	interval time.Duration

	mu   sync.RWMutex
	last *schedule.Result
}

// NewRefresher creates a new refresher
func NewRefresher(store api.RecordStore, engine *schedule.Engine, clock schedule.Clock, interval time.Duration) *Refresher {
	return &Refresher{
		store:    store,
		engine:   engine,
		clock:    clock,
		interval: interval,
	}
}

// Start refreshes once immediately and then on every tick until ctx is done
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		r.refresh(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Schedule refresher stopped")
				return
			case <-ticker.C:
				r.refresh(ctx)
			}
		}
	}()
}

// refresh runs one aggregation; failures are logged and the previous result kept
func (r *Refresher) refresh(ctx context.Context) {
	today := r.clock.Today()

	cases, err := r.store.ListCases(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Schedule refresh failed to load cases")
		return
	}
	patients, err := r.store.ListPatients(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Schedule refresh failed to load patients")
		return
	}

	start := time.Now()
	result := r.engine.Aggregate(cases, patients, today)
	metrics.RecordAggregationDuration("refresh", time.Since(start))
	metrics.PublishSchedule(result)

	r.mu.Lock()
	r.last = &result
	r.mu.Unlock()

	log.Debug().
		Str("date", today.String()).
		Int("cases", len(result.Views)).
		Int("due_today", len(result.DueToday)).
		Int("missed", result.MissedCount).
		Msg("Schedule refreshed")
}

// Last returns the most recent aggregation result, if any. The dashboard
// serves it for requests without a date override.
func (r *Refresher) Last() (schedule.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return schedule.Result{}, false
	}
	return *r.last, true
}
