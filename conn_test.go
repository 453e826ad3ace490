// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"testing"

	"github.com/josharian/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func newTestSocket(autoAck bool) *Socket {
	s := &Socket{
		protocol: 0,
		autoAck:  autoAck,
		local:    Addr{PortID: 100},
		tracer:   otel.Tracer("netlink-test"),
	}
	s.cb = NewCallbackSet(KindDefault, nil)
	return s
}

func rawRecord(typ HeaderType, flags HeaderFlags, seq, port uint32, payload []byte) []byte {
	m := NewMessageType(typ, flags)
	m.SetSequence(seq)
	m.SetPortID(port)
	if len(payload) > 0 {
		m.Append(payload, msgAlignTo)
	}
	return m.Bytes()
}

// feed replays a fixed sequence of already-assembled datagrams through
// the dispatch loop, one per overrideReceive call, then reports EOF.
func feed(datagrams ...[]byte) ReceiveFunc {
	i := 0
	return func(s *Socket) ([]byte, Addr, *Credentials, error) {
		if i >= len(datagrams) {
			return nil, Addr{}, nil, nil
		}
		d := datagrams[i]
		i++
		return d, Addr{}, nil, nil
	}
}

func TestDispatchEmptyRequestACK(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 5

	ack := make([]byte, 4+headerLen)
	native.Endian.PutUint32(ack[0:4], 0)
	datagram := rawRecord(Error, Ack, 5, 100, ack)

	s.cb.OverrideReceive(feed(datagram))

	n, err := s.ReceiveMessages(s.cb)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatchMultipartDump(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 1

	valid1 := rawRecord(HeaderType(100), Multi, 1, 100, []byte{1, 2, 3, 4})
	valid2 := rawRecord(HeaderType(100), Multi, 1, 100, []byte{5, 6, 7, 8})
	valid3 := rawRecord(HeaderType(100), Multi, 1, 100, []byte{9, 10, 11, 12})
	done := rawRecord(Done, Multi, 1, 100, nil)

	batch := append(append(append(append([]byte{}, valid1...), valid2...), valid3...), done...)
	s.cb.OverrideReceive(feed(batch))

	n, err := s.ReceiveMessages(s.cb)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDispatchErrorResponseTranslates(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 1

	errPayload := make([]byte, 4+headerLen)
	errno := int32(-1)
	native.Endian.PutUint32(errPayload[0:4], uint32(errno))
	datagram := rawRecord(Error, Ack, 1, 100, errPayload)
	s.cb.OverrideReceive(feed(datagram))

	_, err := s.ReceiveMessages(s.cb)
	assert.Error(t, err)
}

func TestDispatchSequenceMismatchAborts(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 99

	valid := rawRecord(HeaderType(100), 0, 1, 100, []byte{1, 2, 3, 4})
	s.cb.OverrideReceive(feed(valid))

	_, err := s.ReceiveMessages(s.cb)
	assert.ErrorIs(t, err, ErrSequenceMismatch)
}

func TestDispatchSequenceMismatchWithInvalidHookCanSkip(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 99

	valid := rawRecord(HeaderType(100), 0, 1, 100, []byte{1, 2, 3, 4})
	s.cb.OverrideReceive(feed(valid))
	s.cb.Set(EventInvalid, KindCustom, func(m *Message, arg interface{}) Result {
		return skipResult()
	}, nil)

	n, err := s.ReceiveMessages(s.cb)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDispatchDumpInterruptedWithoutHook(t *testing.T) {
	s := newTestSocket(true)
	s.expectedSeq = 1

	valid := rawRecord(HeaderType(100), Multi|DumpIntr, 1, 100, []byte{1, 2, 3, 4})
	done := rawRecord(Done, Multi, 1, 100, nil)
	batch := append(append([]byte{}, valid...), done...)
	s.cb.OverrideReceive(feed(batch))

	n, err := s.ReceiveMessages(s.cb)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrDumpInterrupted)
}

func TestDispatchCredentialsPropagateToMessage(t *testing.T) {
	s := newTestSocket(false)

	valid := rawRecord(HeaderType(100), 0, 0, 100, []byte{1, 2, 3, 4})
	creds := Credentials{PID: 42, UID: 1000, GID: 1000}

	i := 0
	s.cb.OverrideReceive(func(sock *Socket) ([]byte, Addr, *Credentials, error) {
		if i > 0 {
			return nil, Addr{}, nil, nil
		}
		i++
		return valid, Addr{}, &creds, nil
	})

	var seen Credentials
	s.cb.Set(EventValid, KindCustom, func(m *Message, arg interface{}) Result {
		c, ok := m.Credentials()
		if ok {
			seen = c
		}
		return proceedResult()
	}, nil)

	n, err := s.ReceiveMessages(s.cb)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, creds, seen)
}

func TestCompleteSubstitutesSentinelsOnly(t *testing.T) {
	s := newTestSocket(true)
	s.nextSeq = 7

	m := NewMessage()
	s.Complete(m)
	assert.Equal(t, uint32(100), m.PortID())
	assert.Equal(t, uint32(7), m.Sequence())
	assert.Equal(t, uint32(8), s.nextSeq)
	assert.NotZero(t, m.Flags()&Request)
	assert.NotZero(t, m.Flags()&Ack)

	m.SetPortID(55)
	s.Complete(m)
	assert.Equal(t, uint32(55), m.PortID())
}
