// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires the ambient observability stack: a small
// prometheus-backed Metrics handle that the storage, ready, pending,
// worker and primary packages take in their constructors to create
// their own collectors (the bft orderer has none), following the
// Registerer-in/named-collectors-out shape of the teacher's own
// metrics.Metrics and engine/fastdag/engine.go's e.metrics.*.Inc() call
// sites.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a thin handle over a prometheus.Registerer; components
// create their collectors through Counter, Gauge and CounterVec.
type Metrics struct {
	Registry prometheus.Registerer
}

// NewMetrics creates a new metrics handle.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{Registry: reg}
}

// Register registers a prometheus collector and returns the registry's
// error rather than panicking. Counter, Gauge and CounterVec below
// discard that error.
func (m *Metrics) Register(collector prometheus.Collector) error {
	return m.Registry.Register(collector)
}

// Counter creates and registers a prometheus counter under namespace
// "aleobft".
func (m *Metrics) Counter(subsystem, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aleobft",
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	_ = m.Registry.Register(c)
	return c
}

// Gauge creates and registers a prometheus gauge under namespace
// "aleobft".
func (m *Metrics) Gauge(subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "aleobft",
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	_ = m.Registry.Register(g)
	return g
}

// CounterVec creates and registers a prometheus counter vector under
// namespace "aleobft", used for metrics broken down by error/message
// kind (spec §7: "metrics counters per kind").
func (m *Metrics) CounterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aleobft",
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	_ = m.Registry.Register(c)
	return c
}
