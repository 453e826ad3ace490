// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"syscall"

	"github.com/josharian/native"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// defaultErrorTranslator wraps a platform error number as a
// syscall.Errno, the conservative default used when no Config
// overrides it and no error hook intercepts the ERROR record.
func defaultErrorTranslator(errno int) error {
	return syscall.Errno(errno)
}

func (s *Socket) translate(errno int) error {
	if s.translator != nil {
		return s.translator(errno)
	}
	return defaultErrorTranslator(errno)
}

// Complete mutates m's header in place: an AutoPortID port id is
// replaced by the socket's bound port, an AutoSequence is replaced by
// the socket's next-to-send sequence (post-incrementing it), an
// unbound protocol adopts the socket's, REQUEST is always set, and ACK
// is set unless auto-ack is disabled.
//
// Complete only substitutes fields still carrying their sentinel
// value: re-completing an already-resolved message is a no-op on
// those fields, but a message whose sequence was left at the sentinel
// draws a fresh sequence on every call.
func (s *Socket) Complete(m *Message) {
	if m.PortID() == AutoPortID {
		m.SetPortID(s.local.PortID)
	}
	if m.Sequence() == AutoSequence {
		s.mu.Lock()
		seq := s.nextSeq
		s.nextSeq++
		s.mu.Unlock()
		m.SetSequence(seq)
	}
	if m.Protocol() == unboundProtocol {
		m.SetProtocol(s.protocol)
	}
	m.SetFlags(m.Flags() | Request)
	if s.autoAck {
		m.SetFlags(m.Flags() | Ack)
	}
}

// SendRaw sends buf as a single datagram to the socket's configured
// peer address, bypassing MSG_OUT and completion entirely.
func (s *Socket) SendRaw(buf []byte) error {
	return errors.Wrap(s.sc.Sendmsg(buf, nil, s.peer.sockaddr(), 0), "send")
}

// sendMessage invokes MSG_OUT, stamps the message's source address
// from the socket's bound address, attaches credentials as an
// ancillary control message iff the message carries them, and emits
// one datagram to its per-message destination override or, absent
// one, the socket's configured peer.
func (s *Socket) sendMessage(cb *CallbackSet, m *Message) error {
	if m.Length() > len(m.Bytes()) {
		return errors.Wrap(ErrMessageTruncated, "send")
	}

	res := cb.call(EventMsgOut, m, proceedResult())
	if res.Err != nil {
		return res.Err
	}
	if res.Action != Proceed {
		return errors.Errorf("netlink: send aborted by MSG_OUT hook")
	}

	m.SetSrc(s.local)

	dst := s.peer
	if d, ok := m.Dst(); ok {
		dst = d
	}

	var oob []byte
	if creds, ok := m.Credentials(); ok {
		oob = unix.UnixCredentials(&unix.Ucred{Pid: creds.PID, Uid: creds.UID, Gid: creds.GID})
	}

	if s.debug != nil {
		s.debug.debugf(1, "send: %s", summarizeMessage(m))
	}

	if err := s.sc.Sendmsg(m.Bytes(), oob, dst.sockaddr(), 0); err != nil {
		return errors.Wrap(err, "send")
	}
	if s.metrics != nil {
		s.metrics.observeSent()
	}
	return nil
}

// defaultSend is the engine's own send primitive, absent an override.
func (s *Socket) defaultSend(cb *CallbackSet, m *Message) error {
	return s.sendMessage(cb, m)
}

// AutoSend completes m, then dispatches to the socket's send override
// if one is installed, else to the default send.
func (s *Socket) AutoSend(m *Message) error {
	s.Complete(m)

	cb := s.cb
	if cb.overrideSend != nil {
		return cb.overrideSend(s, m)
	}
	return s.defaultSend(cb, m)
}

// Send completes and emits m, then waits for the kernel's
// acknowledgement unless auto-ack is disabled, in which case it
// returns as soon as the datagram is sent.
func (s *Socket) Send(m *Message) error {
	_, span := s.startSpan("netlink.Send")
	defer span.End()
	traceMessage(span, m)

	if err := s.AutoSend(m); err != nil {
		return err
	}
	if !s.autoAck {
		return nil
	}
	return s.waitForAck()
}

// rawConn is the subset of *socket.Conn's surface the Transport Engine
// calls directly, factored out so tests can substitute a socketpair-
// backed fake for the real AF_NETLINK descriptor. Modeled on
// mdlayher/netlink's own conn/Socket split.
type rawConn interface {
	Recvmsg(p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error)
	Sendmsg(p, oob []byte, to unix.Sockaddr, flags int) error
	Close() error
}

// parseCredentials extracts an SCM_CREDENTIALS record from ancillary
// data, if present.
func parseCredentials(oob []byte) *Credentials {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil
	}
	for _, scm := range scms {
		if scm.Header.Level != unix.SOL_SOCKET || scm.Header.Type != unix.SCM_CREDENTIALS {
			continue
		}
		ucred, err := unix.ParseUnixCredentials(&scm)
		if err != nil {
			continue
		}
		c := credentialsFromUcred(ucred)
		return &c
	}
	return nil
}

// receiveRaw reads one datagram's worth of bytes per the documented
// sizing algorithm: an optional peek+truncate probe to size the buffer
// exactly, growth of the ancillary buffer on control truncation,
// growth of the payload buffer on payload truncation, and ancillary
// credential extraction.
func (s *Socket) receiveRaw() ([]byte, Addr, *Credentials, error) {
	bufSize := s.bufferSize
	if bufSize == 0 {
		bufSize = 4096
	}
	buf := make([]byte, bufSize)

	var oob []byte
	if s.passCred {
		oob = make([]byte, unix.CmsgSpace(unix.SizeofUcred))
	}

	peek := s.peek

	for {
		flags := 0
		if peek {
			flags |= unix.MSG_PEEK | unix.MSG_TRUNC
		}

		n, oobn, rflags, from, err := s.sc.Recvmsg(buf, oob, flags)
		if err == unix.EINTR {
			// A signal interrupted recvmsg before any data arrived;
			// retrying is indistinguishable from the read having
			// succeeded on the first attempt.
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, Addr{}, nil, nil
		}
		if err != nil {
			return nil, Addr{}, nil, errors.Wrap(err, "receive")
		}

		if oob != nil && rflags&unix.MSG_CTRUNC != 0 {
			oob = make([]byte, len(oob)*2)
			continue
		}

		if rflags&unix.MSG_TRUNC != 0 || n > len(buf) {
			buf = make([]byte, n)
			peek = false
			continue
		}

		if peek {
			peek = false
			continue
		}

		if n == 0 {
			return nil, Addr{}, nil, nil
		}

		nsa, ok := from.(*unix.SockaddrNetlink)
		if !ok {
			return nil, Addr{}, nil, errors.Wrap(ErrNoAddress, "receive")
		}
		src := addrFromSockaddr(nsa)

		var creds *Credentials
		if oobn > 0 {
			creds = parseCredentials(oob[:oobn])
		}

		if s.metrics != nil {
			s.metrics.observeReceived()
		}

		return buf[:n], src, creds, nil
	}
}

// dispatchOutcome classifies a hook's Result into the four ways the
// loop reacts to it: keep going, drop the current record and move to
// the next, stop the loop cleanly, or abort it with an error.
type dispatchOutcome int

const (
	outcomeProceed dispatchOutcome = iota
	outcomeSkip
	outcomeStop
	outcomeAbort
)

func classify(res Result) (dispatchOutcome, error) {
	if res.Err != nil {
		return outcomeAbort, res.Err
	}
	switch res.Action {
	case Skip:
		return outcomeSkip, nil
	case Stop:
		return outcomeStop, nil
	default:
		return outcomeProceed, nil
	}
}

// ReceiveMessages runs the dispatch loop once with cb, returning the
// number of family-specific VALID records delivered.
func (s *Socket) ReceiveMessages(cb *CallbackSet) (int, error) {
	if cb.overrideReceiveLoop != nil {
		return cb.overrideReceiveLoop(s, cb)
	}

	_, span := s.startSpan("netlink.Receive")
	defer span.End()

	var multipart bool
	var interrupted bool
	var nrecv int

	for {
		var buf []byte
		var src Addr
		var creds *Credentials
		var err error

		if cb.overrideReceive != nil {
			buf, src, creds, err = cb.overrideReceive(s)
		} else {
			buf, src, creds, err = s.receiveRaw()
		}
		if err != nil {
			return nrecv, err
		}
		if len(buf) == 0 {
			return nrecv, nil
		}
		if s.metrics != nil {
			s.metrics.observeDispatchIteration()
		}

		remaining := buf
	records:
		for len(remaining) >= headerLen {
			length := native.Endian.Uint32(remaining[0:4])
			if int(length) < headerLen || int(length) > len(remaining) {
				break
			}

			record := remaining[:length]
			aligned := msgAlign(int(length))
			if aligned > len(remaining) {
				aligned = len(remaining)
			}

			m, cerr := ConvertMessage(record)
			if cerr != nil {
				return nrecv, cerr
			}
			m.SetProtocol(s.protocol)
			m.SetSrc(src)
			if creds != nil {
				m.SetCredentials(*creds)
			}
			if s.debug != nil {
				s.debug.debugf(1, "recv: %s", summarizeMessage(m))
			}

			outcome, herr := classify(cb.call(EventMsgIn, m, proceedResult()))
			switch outcome {
			case outcomeAbort:
				return nrecv, herr
			case outcomeStop:
				return nrecv, nil
			case outcomeSkip:
				remaining = remaining[aligned:]
				continue records
			}

			if cb.hasHook(EventSeqCheck) {
				outcome, herr = classify(cb.call(EventSeqCheck, m, proceedResult()))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					return nrecv, nil
				case outcomeSkip:
					remaining = remaining[aligned:]
					continue records
				}
			} else if s.autoAck {
				if m.Sequence() != s.expectedSeq {
					if s.metrics != nil {
						s.metrics.observeSeqMismatch()
					}
					if cb.hasHook(EventInvalid) {
						outcome, herr = classify(cb.call(EventInvalid, m, abortResult(errors.Wrap(ErrSequenceMismatch, "dispatch"))))
						switch outcome {
						case outcomeAbort:
							return nrecv, herr
						case outcomeStop:
							return nrecv, nil
						case outcomeSkip:
							remaining = remaining[aligned:]
							continue records
						}
					} else {
						return nrecv, errors.Wrap(ErrSequenceMismatch, "dispatch")
					}
				}
			}

			switch m.Type() {
			case NoOp, Error, Done, Overrun:
				s.expectedSeq++
			}

			if m.Flags()&Multi != 0 {
				multipart = true
			}

			if m.Flags()&DumpIntr != 0 {
				if cb.hasHook(EventDumpIntr) {
					outcome, herr = classify(cb.call(EventDumpIntr, m, proceedResult()))
					switch outcome {
					case outcomeAbort:
						return nrecv, herr
					case outcomeStop:
						return nrecv, nil
					case outcomeSkip:
						remaining = remaining[aligned:]
						continue records
					}
				} else {
					interrupted = true
				}
			}

			if m.Flags()&Ack != 0 {
				outcome, herr = classify(cb.call(EventSendAck, m, proceedResult()))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					return nrecv, nil
				}
			}

			switch m.Type() {
			case Done:
				multipart = false
				outcome, herr = classify(cb.call(EventFinish, m, stopResult()))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					if interrupted {
						return nrecv, errors.Wrap(ErrDumpInterrupted, "dispatch")
					}
					return nrecv, nil
				case outcomeSkip, outcomeProceed:
					remaining = remaining[aligned:]
					continue records
				}

			case NoOp:
				outcome, herr = classify(cb.call(EventSkipped, m, skipResult()))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					return nrecv, nil
				}

			case Overrun:
				outcome, herr = classify(cb.call(EventOverrun, m, abortResult(errors.Wrap(ErrMessageOverflow, "dispatch"))))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					return nrecv, nil
				case outcomeSkip, outcomeProceed:
					remaining = remaining[aligned:]
					continue records
				}

			case Error:
				if len(record) < headerLen+4+headerLen {
					_, herr = classify(cb.call(EventInvalid, m, abortResult(errors.Wrap(ErrMessageTruncated, "dispatch: short ERROR record"))))
					return nrecv, herr
				}

				code := int32(native.Endian.Uint32(record[headerLen : headerLen+4]))
				if code == 0 {
					if s.metrics != nil {
						s.metrics.observeErrorRecord("ack")
					}
					outcome, herr = classify(cb.call(EventAck, m, stopResult()))
					switch outcome {
					case outcomeAbort:
						return nrecv, herr
					case outcomeStop:
						return nrecv, nil
					case outcomeSkip, outcomeProceed:
						remaining = remaining[aligned:]
						continue records
					}
				}

				rec := &ErrorRecord{Code: code, OrigHeader: decodeHeader(record[headerLen+4:])}
				if s.metrics != nil {
					s.metrics.observeErrorRecord("error")
				}
				if cb.errHook.fn != nil {
					res := cb.errHook.fn(src, rec, cb.errHook.arg)
					if res.Err != nil {
						return nrecv, res.Err
					}
					if res.Action == Skip {
						remaining = remaining[aligned:]
						continue records
					}
					return nrecv, s.translate(int(-code))
				}
				return nrecv, s.translate(int(-code))

			default:
				outcome, herr = classify(cb.call(EventValid, m, proceedResult()))
				switch outcome {
				case outcomeAbort:
					return nrecv, herr
				case outcomeStop:
					return nrecv, nil
				case outcomeSkip:
					remaining = remaining[aligned:]
					continue records
				}
				nrecv++
			}

			remaining = remaining[aligned:]
		}

		if !multipart {
			if interrupted {
				return nrecv, errors.Wrap(ErrDumpInterrupted, "dispatch")
			}
			return nrecv, nil
		}
	}
}

// Receive runs the dispatch loop once with cb, collapsing any positive
// return to nil.
func (s *Socket) Receive(cb *CallbackSet) error {
	_, err := s.ReceiveMessages(cb)
	return err
}

// ReceiveDefault runs the dispatch loop once with the socket's own
// default CallbackSet.
func (s *Socket) ReceiveDefault() (int, error) {
	return s.ReceiveMessages(s.cb)
}

// Pickup is a single-object synchronous request pattern layered over
// the dispatch loop: it clones the socket's callback set, installs a
// VALID hook that hands the first delivered record to parse, and
// returns whatever parse produces.
func (s *Socket) Pickup(parse func(*Message) (interface{}, error)) (interface{}, error) {
	cb := s.cb.Clone()
	defer cb.Release()

	var result interface{}
	var perr error

	cb.Set(EventValid, KindCustom, func(m *Message, arg interface{}) Result {
		v, err := parse(m)
		if err != nil {
			perr = err
			return abortResult(err)
		}
		result = v
		return stopResult()
	}, nil)

	if _, err := s.ReceiveMessages(cb); err != nil {
		return nil, err
	}
	if perr != nil {
		return nil, perr
	}
	return result, nil
}

// waitForAck clones the socket's callback set, replaces the ACK hook
// with a terminator that stops the loop, runs the dispatch loop once,
// and releases the clone.
func (s *Socket) waitForAck() error {
	cb := s.cb.Clone()
	defer cb.Release()

	cb.Set(EventAck, KindCustom, func(m *Message, arg interface{}) Result {
		return stopResult()
	}, nil)

	_, err := s.ReceiveMessages(cb)
	return err
}

func decodeHeader(b []byte) Header {
	if len(b) < headerLen {
		return Header{}
	}
	return Header{
		Length:   native.Endian.Uint32(b[0:4]),
		Type:     HeaderType(native.Endian.Uint16(b[4:6])),
		Flags:    HeaderFlags(native.Endian.Uint16(b[6:8])),
		Sequence: native.Endian.Uint32(b[8:12]),
		PortID:   native.Endian.Uint32(b[12:16]),
	}
}

func summarizeMessage(m *Message) string {
	hdr := m.Header()
	return "type=" + typeString(hdr.Type) + " flags=" + flagsString(hdr.Flags)
}
