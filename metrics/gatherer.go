// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MultiGatherer fans in the per-component prometheus registries
// (storage, ready, pending, worker, primary) into one
// exposition surface, the way the teacher's own api/metrics.MultiGatherer
// aggregates named sub-gatherers for a single /metrics endpoint.
type MultiGatherer interface {
	prometheus.Gatherer

	// Register adds name's metrics to the aggregate gather. name only
	// identifies the gatherer (registering the same name twice is an
	// error); it is not added to the gathered metrics as a label.
	Register(name string, gatherer prometheus.Gatherer) error
}

type multiGatherer struct {
	gatherers map[string]prometheus.Gatherer
	order     []string
}

// NewMultiGatherer creates an empty MultiGatherer.
func NewMultiGatherer() MultiGatherer {
	return &multiGatherer{gatherers: make(map[string]prometheus.Gatherer)}
}

func (g *multiGatherer) Register(name string, gatherer prometheus.Gatherer) error {
	if _, exists := g.gatherers[name]; exists {
		return fmt.Errorf("metrics: gatherer %q already registered", name)
	}
	g.gatherers[name] = gatherer
	g.order = append(g.order, name)
	return nil
}

// Gather implements prometheus.Gatherer by concatenating every
// registered component's metric families in registration order, so
// output is deterministic across calls.
func (g *multiGatherer) Gather() ([]*dto.MetricFamily, error) {
	var out []*dto.MetricFamily
	for _, name := range g.order {
		families, err := g.gatherers[name].Gather()
		if err != nil {
			return nil, fmt.Errorf("metrics: gathering %q: %w", name, err)
		}
		out = append(out, families...)
	}
	return out, nil
}
