// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCounterIsRegisteredAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	c := m.Counter("storage", "missing_bodies_total", "bodies missing on insert")
	c.Inc()
	c.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "aleobft_storage_missing_bodies_total", families[0].GetName())
	require.Equal(t, float64(2), families[0].Metric[0].GetCounter().GetValue())
}

func TestGaugeSetsAndRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	g := m.Gauge("worker", "pending_bodies", "bodies awaiting fetch")
	g.Set(7)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, float64(7), families[0].Metric[0].GetGauge().GetValue())
}

func TestCounterVecSupportsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	cv := m.CounterVec("pending", "requests_total", "requests issued", "kind")
	cv.WithLabelValues("transaction").Inc()
	cv.WithLabelValues("solution").Inc()
	cv.WithLabelValues("solution").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families[0].Metric, 2)
}

func TestMultiGathererAggregatesInRegistrationOrder(t *testing.T) {
	storageReg := prometheus.NewRegistry()
	workerReg := prometheus.NewRegistry()
	NewMetrics(storageReg).Counter("storage", "inserted_total", "x")
	NewMetrics(workerReg).Counter("worker", "validated_total", "y")

	mg := NewMultiGatherer()
	require.NoError(t, mg.Register("storage", storageReg))
	require.NoError(t, mg.Register("worker", workerReg))

	families, err := mg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 2)
	require.Equal(t, "aleobft_storage_inserted_total", families[0].GetName())
	require.Equal(t, "aleobft_worker_validated_total", families[1].GetName())
}

func TestMultiGathererRejectsDuplicateName(t *testing.T) {
	mg := NewMultiGatherer()
	reg := prometheus.NewRegistry()
	require.NoError(t, mg.Register("storage", reg))
	require.Error(t, mg.Register("storage", reg))
}

func TestMultiGathererPropagatesUnderlyingGatherError(t *testing.T) {
	mg := NewMultiGatherer()
	require.NoError(t, mg.Register("broken", failingGatherer{}))
	_, err := mg.Gather()
	require.Error(t, err)
}

type failingGatherer struct{}

func (failingGatherer) Gather() ([]*dto.MetricFamily, error) {
	return nil, errors.New("gather failed")
}
