// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts messages flowing through a Socket's Transport Engine.
// A nil *Metrics on a Socket disables instrumentation; every call site
// in the engine guards on a nil check before touching one, so wiring
// Metrics costs nothing when the caller doesn't ask for it.
type Metrics struct {
	sent               prometheus.Counter
	received           prometheus.Counter
	dispatchIterations prometheus.Counter
	seqMismatches      prometheus.Counter
	errorRecords       *prometheus.CounterVec
}

// NewMetrics builds a Metrics and, if reg is non-nil, registers its
// collectors against it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlink",
			Name:      "messages_sent_total",
			Help:      "Number of netlink messages sent.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlink",
			Name:      "messages_received_total",
			Help:      "Number of netlink datagrams read from the socket by the raw receive primitive.",
		}),
		dispatchIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlink",
			Name:      "dispatch_iterations_total",
			Help:      "Number of datagrams fetched by the dispatch loop.",
		}),
		seqMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "netlink",
			Name:      "sequence_mismatches_total",
			Help:      "Number of inbound records rejected for an unexpected sequence number.",
		}),
		errorRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netlink",
			Name:      "error_records_total",
			Help:      "Number of ERROR records observed by outcome.",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.sent, m.received, m.dispatchIterations, m.seqMismatches, m.errorRecords)
	}
	return m
}

func (m *Metrics) observeSent()             { m.sent.Inc() }
func (m *Metrics) observeReceived()         { m.received.Inc() }
func (m *Metrics) observeDispatchIteration() { m.dispatchIterations.Inc() }
func (m *Metrics) observeSeqMismatch()      { m.seqMismatches.Inc() }
func (m *Metrics) observeErrorRecord(outcome string) {
	m.errorRecords.WithLabelValues(outcome).Inc()
}
