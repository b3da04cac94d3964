package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// MetricsManager is a singleton that owns the Prometheus registry and the
// switches deciding which metric families are recorded
type MetricsManager struct {
	registry *prometheus.Registry

	businessEnabled bool
	systemEnabled   bool

	// System metrics
	systemCPUUsage    *prometheus.GaugeVec
	systemMemoryUsage *prometheus.GaugeVec

	// Go runtime metrics
	goGoroutines prometheus.Gauge
	goHeapAlloc  prometheus.Gauge
	goHeapSys    prometheus.Gauge
	goGCPauseNs  prometheus.Histogram

	systemOnce sync.Once
	mu         sync.RWMutex
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton instance of MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{
			registry: prometheus.NewRegistry(),
		}
	})
	return instance
}

// Configure switches the business and system metric families on or off
func Configure(business, system bool) {
	mm := GetInstance()
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.businessEnabled = business
	mm.systemEnabled = system
}

// BusinessEnabled reports whether request, schedule and ingest metrics are recorded
func BusinessEnabled() bool {
	mm := GetInstance()
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.businessEnabled
}

// SystemEnabled reports whether host and runtime metrics are collected
func SystemEnabled() bool {
	mm := GetInstance()
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.systemEnabled
}

// Registry returns the registry every metric family registers with
func Registry() *prometheus.Registry {
	return GetInstance().registry
}

// Handler serves the registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// initializeSystemMetrics registers the host and runtime gauges once
func (mm *MetricsManager) initializeSystemMetrics() {
	mm.systemOnce.Do(func() {
		mm.systemCPUUsage = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_cpu_usage_percent",
				Help: "Current CPU usage percentage",
			},
			[]string{"core"},
		)

		mm.systemMemoryUsage = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
			[]string{"type"},
		)

		mm.goGoroutines = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitecare_goroutines",
				Help: "Number of goroutines that currently exist",
			},
		)

		mm.goHeapAlloc = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitecare_heap_alloc_bytes",
				Help: "Heap memory usage in bytes",
			},
		)

		mm.goHeapSys = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bitecare_heap_sys_bytes",
				Help: "Heap memory reserved in bytes",
			},
		)

		mm.goGCPauseNs = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bitecare_gc_pause_nanoseconds",
				Help:    "GC pause time in nanoseconds",
				Buckets: prometheus.ExponentialBuckets(1000, 2, 20),
			},
		)

		mm.registry.MustRegister(
			mm.systemCPUUsage,
			mm.systemMemoryUsage,
			mm.goGoroutines,
			mm.goHeapAlloc,
			mm.goHeapSys,
			mm.goGCPauseNs,
		)
	})
}

// StartSystemMetrics collects host and runtime metrics every interval until stop is closed
func StartSystemMetrics(interval time.Duration, stop <-chan struct{}) {
	if !SystemEnabled() {
		return
	}

	mm := GetInstance()
	mm.initializeSystemMetrics()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				mm.collectSystemMetrics()
				mm.collectGoRuntimeMetrics()
			}
		}
	}()
}

// collectSystemMetrics collects system-level metrics
func (mm *MetricsManager) collectSystemMetrics() {
	if cpuPercentages, err := cpu.Percent(0, true); err == nil {
		for i, percentage := range cpuPercentages {
			mm.systemCPUUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(percentage)
		}
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		mm.systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		mm.systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		mm.systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
	}
}

// collectGoRuntimeMetrics collects Go runtime metrics
func (mm *MetricsManager) collectGoRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.goGoroutines.Set(float64(runtime.NumGoroutine()))
	mm.goHeapAlloc.Set(float64(m.HeapAlloc))
	mm.goHeapSys.Set(float64(m.HeapSys))
	mm.goGCPauseNs.Observe(float64(m.PauseNs[(m.NumGC+255)%256]))
}
