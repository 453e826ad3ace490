// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the optional parameters for Dial. A nil Config, or any
// Config field left at its zero value, selects the documented default.
type Config struct {
	// Groups is the bitmask of multicast groups to join on bind.
	Groups uint32

	// NetNS, when non-zero, is an open file descriptor for a network
	// namespace (as returned by unix.Open on a /proc/<pid>/ns/net
	// path, or by github.com/vishvananda/netns.GetFromPath) that the
	// socket is created inside instead of the caller's current
	// namespace.
	NetNS int

	// PassCred enables SCM_CREDENTIALS on received datagrams.
	PassCred bool

	// PeekBuffer enables the peek+truncate probe that sizes the
	// receive buffer to the exact incoming datagram before consuming
	// it.
	PeekBuffer bool

	// BufferSize overrides the receive buffer's initial size. Zero
	// means the system page size.
	BufferSize int

	// DisableAutoACK disables automatically setting NLM_F_ACK on
	// outbound requests and, correspondingly, sequence verification on
	// replies.
	DisableAutoACK bool

	// Translator overrides the default platform error translation used
	// when no error hook intercepts a non-zero ERROR record.
	Translator ErrorTranslator

	// Metrics, when non-nil, is incremented by the Transport Engine as
	// messages flow through it.
	Metrics *Metrics

	// Logger overrides the package logger used by the socket's default
	// CallbackSet personality and by NLDEBUG tracing.
	Logger *logrus.Entry
}

// Socket is the kernel-facing endpoint a Transport Engine operates on:
// the bound file descriptor, local and peer addresses, buffer sizing,
// sequence counters, behavioural flags and a default CallbackSet.
type Socket struct {
	mu sync.Mutex

	sc       rawConn
	protocol int

	local Addr
	peer  Addr

	bufferSize int
	passCred   bool
	peek       bool
	autoAck    bool

	nextSeq     uint32
	expectedSeq uint32

	translator ErrorTranslator
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *logrus.Entry

	cb    *CallbackSet
	debug *debugger
}

// Dial creates a Socket bound to protocol and connects it per config
// (nil selects every default).
func Dial(protocol int, config *Config) (*Socket, error) {
	s := &Socket{protocol: -1, autoAck: true, nextSeq: 1, expectedSeq: 1, tracer: otel.Tracer("github.com/go-nlcore/nlcore")}
	if config != nil {
		s.bufferSize = config.BufferSize
		s.passCred = config.PassCred
		s.peek = config.PeekBuffer
		s.autoAck = !config.DisableAutoACK
		s.translator = config.Translator
		s.metrics = config.Metrics
		s.logger = config.Logger
	}
	if s.translator == nil {
		s.translator = defaultErrorTranslator
	}

	s.cb = NewCallbackSet(KindDefault, s.logger)
	if len(debugArgs) > 0 {
		s.debug = newDebugger(debugArgs)
		if s.logger != nil {
			s.debug.logger = s.logger
		}
	}

	if err := s.connect(protocol, config); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect creates a raw datagram endpoint of the netlink family bound
// to protocol, refusing when the socket is already connected. Any
// failure partway through closes the half-opened descriptor before
// returning.
func (s *Socket) Connect(protocol int) error {
	return s.connect(protocol, nil)
}

func (s *Socket) connect(protocol int, config *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sc != nil {
		return errors.Wrap(ErrBadSocket, "connect")
	}

	if s.bufferSize == 0 {
		s.bufferSize = os.Getpagesize()
	}

	var netNS int
	var groups uint32
	if config != nil {
		netNS = config.NetNS
		groups = config.Groups
	}

	sc, local, err := dial(protocol, netNS, groups)
	if err != nil {
		return err
	}

	s.sc = sc
	s.protocol = protocol
	s.local = local
	return nil
}

// Close closes the socket's descriptor, if open, and resets its
// protocol to -1. Close is idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sc == nil {
		return nil
	}
	err := s.sc.Close()
	s.sc = nil
	s.protocol = -1
	return err
}

// BufferSize returns the socket's configured receive buffer size.
func (s *Socket) BufferSize() int { return s.bufferSize }

// PassCred reports whether SCM_CREDENTIALS is requested on receive.
func (s *Socket) PassCred() bool { return s.passCred }

// Peek reports whether the peek+truncate sizing probe is enabled.
func (s *Socket) Peek() bool { return s.peek }

// AutoAck reports whether outbound completion sets NLM_F_ACK and
// inbound sequence numbers are verified automatically.
func (s *Socket) AutoAck() bool { return s.autoAck }

// Local returns the socket's bound local address.
func (s *Socket) Local() Addr { return s.local }

// Peer returns the socket's configured peer address (the zero value
// addresses the kernel itself).
func (s *Socket) Peer() Addr { return s.peer }

// SetPeer sets the socket's peer address.
func (s *Socket) SetPeer(addr Addr) { s.peer = addr }

// Protocol returns the socket's bound protocol id, or -1 if closed.
func (s *Socket) Protocol() int { return s.protocol }

// Callbacks returns the socket's default CallbackSet, the one transport
// primitives consult when no per-call override is given.
func (s *Socket) Callbacks() *CallbackSet { return s.cb }

// SetCallbacks replaces the socket's default CallbackSet.
func (s *Socket) SetCallbacks(cb *CallbackSet) { s.cb = cb }

// Metrics returns the socket's optional metrics sink, or nil.
func (s *Socket) Metrics() *Metrics { return s.metrics }
