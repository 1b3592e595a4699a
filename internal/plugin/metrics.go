// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

package plugin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result constants for extension load metrics.
const (
	LoadResultLoaded  = "loaded"
	LoadResultSkipped = "skipped"
	LoadResultFailed  = "failed"
)

// EventsDispatched is the counter for dispatched extension events.
// Use RegisterMetrics to register this with a Prometheus registry.
var EventsDispatched = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shiori_extension_events_total",
		Help: "Total number of events dispatched to extensions",
	},
	[]string{"event"},
)

// HookFailures is the counter for contained hook faults.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shiori_extension_hook_failures_total",
		Help: "Total number of extension hook errors and panics",
	},
	[]string{"extension", "hook"},
)

// ExtensionLoads is the counter for load attempts by result.
// Use RegisterMetrics to register this with a Prometheus registry.
var ExtensionLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shiori_extension_loads_total",
		Help: "Total number of extension load attempts",
	},
	[]string{"result"},
)

// PageTransformDuration is the histogram for full page pipeline runs.
// Use RegisterMetrics to register this with a Prometheus registry.
var PageTransformDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "shiori_extension_page_transform_seconds",
		Help:    "Duration of the page transformation pipeline in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// RegisterMetrics registers extension runtime metrics with the given
// Prometheus registry. This must be called at startup to make metrics
// available on /metrics. Panics if registration fails (following
// prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(EventsDispatched)
	reg.MustRegister(HookFailures)
	reg.MustRegister(ExtensionLoads)
	reg.MustRegister(PageTransformDuration)
}

func recordEvent(event string) {
	EventsDispatched.WithLabelValues(event).Inc()
}

func recordHookFailure(extensionID, hook string) {
	HookFailures.WithLabelValues(extensionID, hook).Inc()
}

func recordLoad(result string) {
	ExtensionLoads.WithLabelValues(result).Inc()
}

func recordPageTransform(d time.Duration) {
	PageTransformDuration.Observe(d.Seconds())
}
