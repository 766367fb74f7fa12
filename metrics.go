// Copyright (c) 2025 Arcentrix
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0

package ringex

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsRecorder wraps the Prometheus collectors a RingBuffer exposes
// through Collectors. A library has no business owning an HTTP server or
// a registry, so this only builds the collectors and lets the host
// application register and serve them.
type metricsRecorder struct {
	enabled bool
	ringID  string

	claimed              *prometheus.CounterVec
	published            *prometheus.CounterVec
	insufficientCapacity *prometheus.CounterVec
	alerts               *prometheus.CounterVec
	waitDuration         *prometheus.HistogramVec
}

func newMetricsRecorder(id uuid.UUID, enabled bool) *metricsRecorder {
	labels := []string{"ring_id"}
	return &metricsRecorder{
		enabled: enabled,
		ringID:  id.String(),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringex_claimed_total",
			Help: "Sequences successfully claimed from the ring.",
		}, labels),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringex_published_total",
			Help: "Sequences published to the ring.",
		}, labels),
		insufficientCapacity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringex_insufficient_capacity_total",
			Help: "TryNext/TryPublishEvent calls that returned ErrInsufficientCapacity.",
		}, labels),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ringex_alert_total",
			Help: "Barrier waits that ended with ErrAlert inside the wait strategy.",
		}, labels),
		waitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringex_wait_duration_seconds",
			Help:    "Time spent inside a barrier's WaitStrategy.WaitFor per call.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
		}, labels),
	}
}

// Collectors returns the collectors the caller should register with its
// own prometheus.Registerer. Safe to call whether or not metrics are
// enabled; an unregistered, unused collector costs nothing at runtime.
func (m *metricsRecorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.claimed,
		m.published,
		m.insufficientCapacity,
		m.alerts,
		m.waitDuration,
	}
}

func (m *metricsRecorder) recordClaimed() {
	if !m.enabled {
		return
	}
	m.claimed.WithLabelValues(m.ringID).Inc()
}

func (m *metricsRecorder) recordPublished() {
	if !m.enabled {
		return
	}
	m.published.WithLabelValues(m.ringID).Inc()
}

func (m *metricsRecorder) recordInsufficientCapacity() {
	if !m.enabled {
		return
	}
	m.insufficientCapacity.WithLabelValues(m.ringID).Inc()
}

func (m *metricsRecorder) recordAlert() {
	if !m.enabled {
		return
	}
	m.alerts.WithLabelValues(m.ringID).Inc()
}

func (m *metricsRecorder) observeWaitSeconds(seconds float64) {
	if !m.enabled {
		return
	}
	m.waitDuration.WithLabelValues(m.ringID).Observe(seconds)
}
