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
)

func TestNewMessageHeaderLength(t *testing.T) {
	m := NewMessage()
	assert.Equal(t, headerLen, m.Length())
	assert.Equal(t, headerLen, len(m.Bytes()))
}

func TestMessageReserveAppendAlignment(t *testing.T) {
	m := NewMessage()
	m.Append([]byte{1, 2, 3}, msgAlignTo)
	assert.Equal(t, headerLen+3, m.Length())
	assert.Equal(t, headerLen+4, len(m.Bytes()))
	assert.Equal(t, []byte{1, 2, 3}, m.Payload())
}

func TestMessagePutReservesPayload(t *testing.T) {
	m := NewMessage()
	room := m.Put(42, 7, Error, 10, Request)
	assert.Len(t, room, 10)
	assert.Equal(t, uint32(42), m.PortID())
	assert.Equal(t, uint32(7), m.Sequence())
	assert.Equal(t, Error, m.Type())
	assert.Equal(t, Request, m.Flags())
}

func TestConvertMessageRoundTrip(t *testing.T) {
	src := NewMessageType(Done, Multi)
	src.SetPortID(9)
	src.SetSequence(3)
	src.Append([]byte{0xaa, 0xbb, 0xcc, 0xdd}, msgAlignTo)

	got, err := ConvertMessage(src.Bytes())
	require.NoError(t, err)
	assert.Equal(t, src.Header(), got.Header())
	assert.Equal(t, src.Payload(), got.Payload())
}

func TestConvertMessageRejectsShortHeader(t *testing.T) {
	_, err := ConvertMessage([]byte{0, 1, 2})
	assert.ErrorIs(t, err, ErrMessageTruncated)
}

func TestConvertMessageRejectsBadDeclaredLength(t *testing.T) {
	m := NewMessage()
	buf := append([]byte{}, m.Bytes()...)
	native.Endian.PutUint32(buf[0:4], uint32(len(buf)+100))

	_, err := ConvertMessage(buf)
	assert.ErrorIs(t, err, ErrMessageTruncated)
}

func TestMessageSrcDstRoundTrip(t *testing.T) {
	m := NewMessage()
	_, ok := m.Dst()
	assert.False(t, ok)

	m.SetDst(Addr{PortID: 5})
	dst, ok := m.Dst()
	assert.True(t, ok)
	assert.Equal(t, uint32(5), dst.PortID)
}

func TestMessageCredentialsRoundTrip(t *testing.T) {
	m := NewMessage()
	_, ok := m.Credentials()
	assert.False(t, ok)

	m.SetCredentials(Credentials{PID: 1, UID: 2, GID: 3})
	c, ok := m.Credentials()
	assert.True(t, ok)
	assert.Equal(t, int32(1), c.PID)
}
