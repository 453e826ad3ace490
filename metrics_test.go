// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeSent()
	m.observeSent()
	m.observeReceived()
	m.observeDispatchIteration()
	m.observeSeqMismatch()
	m.observeErrorRecord("ack")

	assert.Equal(t, float64(2), counterValue(t, m.sent))
	assert.Equal(t, float64(1), counterValue(t, m.received))
	assert.Equal(t, float64(1), counterValue(t, m.dispatchIterations))
	assert.Equal(t, float64(1), counterValue(t, m.seqMismatches))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var metric dto.Metric
	require.NoError(t, c.Write(&metric))
	return metric.GetCounter().GetValue()
}
