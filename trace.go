// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startSpan opens a span for one Transport Engine entry point. The
// engine is synchronous and accepts no caller context, so every span is
// started from context.Background and roots a fresh trace.
func (s *Socket) startSpan(name string) (context.Context, trace.Span) {
	return s.tracer.Start(context.Background(), name, trace.WithAttributes(
		attribute.Int("netlink.port_id", int(s.local.PortID)),
	))
}

func traceMessage(span trace.Span, m *Message) {
	span.SetAttributes(
		attribute.Int64("netlink.sequence", int64(m.Sequence())),
		attribute.Int("netlink.type", int(m.Type())),
	)
}
