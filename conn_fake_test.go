// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// recvCall records the arguments one call to fakeConn.Recvmsg was made
// with, so a test can assert on buffer sizes and flags across retries.
type recvCall struct {
	pLen, oobLen, flags int
}

// recvResult is a scripted return value for fakeConn.Recvmsg, used to
// simulate kernel behaviors (MSG_CTRUNC, MSG_TRUNC, EINTR, EAGAIN) that
// are impractical or unsafe to provoke reliably from a real socket in a
// unit test.
type recvResult struct {
	n, oobn, rflags int
	from            unix.Sockaddr
	err             error
}

// fakeConn wraps one end of a real AF_UNIX SOCK_DGRAM socketpair,
// implementing rawConn so receiveRaw's peek/truncate/retry algorithm
// runs against a genuine kernel descriptor without a real AF_NETLINK
// socket or root privileges. Recvmsg calls are intercepted by an
// optional scripted queue; once the queue drains, calls fall through to
// the real descriptor.
type fakeConn struct {
	fd int

	mu     sync.Mutex
	script []recvResult
	calls  []recvCall
}

// newFakePair returns the two connected ends of a socketpair, cleaned
// up automatically at the end of the test.
func newFakePair(t *testing.T) (client, server *fakeConn) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)

	client = &fakeConn{fd: fds[0]}
	server = &fakeConn{fd: fds[1]}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

// queue appends a scripted result to be returned by the next call to
// Recvmsg, in place of a real syscall.
func (c *fakeConn) queue(r recvResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, r)
}

func (c *fakeConn) recordedCalls() []recvCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recvCall(nil), c.calls...)
}

func (c *fakeConn) Recvmsg(p, oob []byte, flags int) (int, int, int, unix.Sockaddr, error) {
	c.mu.Lock()
	c.calls = append(c.calls, recvCall{pLen: len(p), oobLen: len(oob), flags: flags})
	if len(c.script) > 0 {
		r := c.script[0]
		c.script = c.script[1:]
		c.mu.Unlock()
		return r.n, r.oobn, r.rflags, r.from, r.err
	}
	c.mu.Unlock()

	n, oobn, rflags, from, err := unix.Recvmsg(c.fd, p, oob, flags)
	if err != nil {
		return n, oobn, rflags, from, err
	}
	// The socketpair is AF_UNIX, not AF_NETLINK; substitute a netlink
	// peer address so callers that assert on the source family see a
	// realistic result.
	return n, oobn, rflags, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}, nil
}

func (c *fakeConn) Sendmsg(p, oob []byte, to unix.Sockaddr, flags int) error {
	return unix.Sendmsg(c.fd, p, oob, to, flags)
}

func (c *fakeConn) Close() error {
	if c.fd == 0 {
		return nil
	}
	fd := c.fd
	c.fd = 0
	return unix.Close(fd)
}

func TestReceiveRawRoundTrip(t *testing.T) {
	client, server := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 4096

	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, server.Sendmsg(payload, nil, nil, 0))

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Equal(t, payload, buf)
}

func TestReceiveRawRetriesOnEINTR(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 64

	client.queue(recvResult{err: unix.EINTR})
	client.queue(recvResult{n: 3, from: &unix.SockaddrNetlink{}})

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Len(t, buf, 3)
	assert.Len(t, client.recordedCalls(), 2)
}

func TestReceiveRawEAGAINReturnsNoData(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 64

	client.queue(recvResult{err: unix.EAGAIN})

	buf, addr, creds, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Nil(t, buf)
	assert.Zero(t, addr)
	assert.Nil(t, creds)
	assert.Len(t, client.recordedCalls(), 1)
}

func TestReceiveRawZeroLengthReadReturnsNoData(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 64

	client.queue(recvResult{n: 0, from: &unix.SockaddrNetlink{}})

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Nil(t, buf)
}

func TestReceiveRawGrowsControlBufferOnCtrunc(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 64
	s.passCred = true

	client.queue(recvResult{rflags: unix.MSG_CTRUNC})
	client.queue(recvResult{n: 3, from: &unix.SockaddrNetlink{}})

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Len(t, buf, 3)

	calls := client.recordedCalls()
	require.Len(t, calls, 2)
	assert.Greater(t, calls[1].oobLen, calls[0].oobLen)
}

func TestReceiveRawGrowsPayloadBufferOnTruncation(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 16

	client.queue(recvResult{n: 200, rflags: unix.MSG_TRUNC})
	client.queue(recvResult{n: 100, from: &unix.SockaddrNetlink{}})

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Len(t, buf, 100)

	calls := client.recordedCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, 16, calls[0].pLen)
	assert.Equal(t, 200, calls[1].pLen)
}

func TestReceiveRawPeekProbeThenRealRead(t *testing.T) {
	client, _ := newFakePair(t)

	s := newTestSocket(true)
	s.sc = client
	s.bufferSize = 64
	s.peek = true

	client.queue(recvResult{n: 10})
	client.queue(recvResult{n: 10, from: &unix.SockaddrNetlink{}})

	buf, _, _, err := s.receiveRaw()
	require.NoError(t, err)
	assert.Len(t, buf, 10)

	calls := client.recordedCalls()
	require.Len(t, calls, 2)
	assert.NotZero(t, calls[0].flags&unix.MSG_PEEK)
	assert.NotZero(t, calls[0].flags&unix.MSG_TRUNC)
	assert.Zero(t, calls[1].flags)
}
