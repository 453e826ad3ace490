// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Event identifies one of the finite set of points at which the
// dispatch loop or send path may invoke a hook. The set is closed: a
// switch over Event should be exhaustive at every call site.
type Event int

const (
	EventValid Event = iota
	EventFinish
	EventOverrun
	EventSkipped
	EventAck
	EventMsgIn
	EventMsgOut
	EventInvalid
	EventSeqCheck
	EventSendAck
	EventDumpIntr

	numEvents
)

// HookFunc is the signature of every event hook except the error slot.
type HookFunc func(m *Message, arg interface{}) Result

// ErrorRecord is the decoded payload of a non-zero ERROR record: the
// signed platform error code and a copy of the header it is replying
// to.
type ErrorRecord struct {
	Code       int32
	OrigHeader Header
}

// ErrorHookFunc is the signature of the error slot, fired for a
// non-zero ERROR record. It additionally receives the peer address the
// record arrived from.
type ErrorHookFunc func(src Addr, rec *ErrorRecord, arg interface{}) Result

// CallbackKind selects a pre-filled personality when allocating or
// setting a CallbackSet slot.
type CallbackKind int

const (
	KindDefault CallbackKind = iota
	KindVerbose
	KindDebug
	KindCustom
)

// SendFunc, ReceiveFunc and ReceiveLoopFunc are the three transport
// primitives a CallbackSet may override in place of the engine's own
// implementations.
type (
	SendFunc        func(s *Socket, m *Message) error
	ReceiveFunc     func(s *Socket) ([]byte, Addr, *Credentials, error)
	ReceiveLoopFunc func(s *Socket, cb *CallbackSet) (int, error)
)

type hookSlot struct {
	fn  HookFunc
	arg interface{}
}

type errorSlot struct {
	fn  ErrorHookFunc
	arg interface{}
}

// CallbackSet is a reference-counted bundle of hook functions keyed by
// Event, plus a distinct error slot and optional overrides for send,
// receive-one and receive-loop. The socket holds one reference to its
// default set; per-call clones (wait-for-ack, pickup) release their
// reference at the end of the call.
type CallbackSet struct {
	mu       sync.Mutex
	refcount int32

	hooks   [numEvents]hookSlot
	errHook errorSlot

	overrideSend        SendFunc
	overrideReceive     ReceiveFunc
	overrideReceiveLoop ReceiveLoopFunc

	logger *logrus.Entry
}

// nlLog is the package-level logger the Verbose and Debug personalities
// write through unless a CallbackSet was given its own *logrus.Entry.
var nlLog = logrus.WithField("subsystem", "netlink")

// NewCallbackSet allocates a CallbackSet of the given personality.
// Default leaves every slot empty. Verbose pre-fills VALID, INVALID,
// OVERRUN and the error slot; Debug additionally fills MSG_IN and
// MSG_OUT. Both log through logger (the package logger if nil). Custom
// is equivalent to Default; its slots
// are expected to be filled in by subsequent Set calls.
func NewCallbackSet(kind CallbackKind, logger *logrus.Entry) *CallbackSet {
	if logger == nil {
		logger = nlLog
	}
	cb := &CallbackSet{refcount: 1, logger: logger}
	if kind == KindVerbose || kind == KindDebug {
		installPersonality(cb, kind)
	}
	return cb
}

// defaultDisposition is the action a built-in Verbose/Debug hook
// returns after logging, per the event taxonomy's documented default.
func defaultDisposition(ev Event) Disposition {
	switch ev {
	case EventValid, EventMsgIn, EventMsgOut, EventSeqCheck, EventSendAck:
		return Proceed
	case EventSkipped:
		return Skip
	default: // EventFinish, EventOverrun, EventAck, EventInvalid
		return Stop
	}
}

func installPersonality(cb *CallbackSet, kind CallbackKind) {
	for _, ev := range []Event{EventValid, EventInvalid, EventOverrun} {
		cb.hooks[ev] = hookSlot{fn: verboseHook(ev, cb.logger)}
	}
	cb.errHook = errorSlot{fn: verboseErrorHook(cb.logger)}

	if kind == KindDebug {
		cb.hooks[EventMsgIn] = hookSlot{fn: debugHook(EventMsgIn, cb.logger)}
		cb.hooks[EventMsgOut] = hookSlot{fn: debugHook(EventMsgOut, cb.logger)}
	}
}

func verboseHook(ev Event, logger *logrus.Entry) HookFunc {
	return func(m *Message, arg interface{}) Result {
		entry := logger.WithFields(logrus.Fields{
			"type":  typeString(m.Type()),
			"flags": flagsString(m.Flags()),
			"seq":   m.Sequence(),
			"port":  m.PortID(),
		})
		if ev == EventValid {
			entry.Info("netlink message")
		} else {
			entry.Warn("netlink message")
		}
		return Result{Action: defaultDisposition(ev)}
	}
}

func verboseErrorHook(logger *logrus.Entry) ErrorHookFunc {
	return func(src Addr, rec *ErrorRecord, arg interface{}) Result {
		logger.WithFields(logrus.Fields{
			"code": rec.Code,
			"port": src.PortID,
		}).Error("netlink error")
		return Result{Action: Stop}
	}
}

func debugHook(ev Event, logger *logrus.Entry) HookFunc {
	return func(m *Message, arg interface{}) Result {
		var sb strings.Builder
		m.Dump(&sb)
		logger.Debug(sb.String())
		return Result{Action: defaultDisposition(ev)}
	}
}

// Clone returns a shallow copy of cb's slots and overrides with a fresh
// reference count of 1.
func (cb *CallbackSet) Clone() *CallbackSet {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	clone := &CallbackSet{
		refcount:            1,
		hooks:               cb.hooks,
		errHook:             cb.errHook,
		overrideSend:        cb.overrideSend,
		overrideReceive:     cb.overrideReceive,
		overrideReceiveLoop: cb.overrideReceiveLoop,
		logger:              cb.logger,
	}
	return clone
}

// Retain increments cb's reference count.
func (cb *CallbackSet) Retain() { atomic.AddInt32(&cb.refcount, 1) }

// Release decrements cb's reference count. It is a no-op beyond the
// decrement itself: Go's garbage collector reclaims the set's memory
// once nothing references it.
func (cb *CallbackSet) Release() { atomic.AddInt32(&cb.refcount, -1) }

// RefCount returns cb's current reference count.
func (cb *CallbackSet) RefCount() int32 { return atomic.LoadInt32(&cb.refcount) }

// Set installs a hook at ev. For KindCustom, fn and arg are installed
// directly. For any other kind, the built-in hook for (ev, kind) is
// installed and arg is stored alongside it.
func (cb *CallbackSet) Set(ev Event, kind CallbackKind, fn HookFunc, arg interface{}) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if kind == KindCustom {
		cb.hooks[ev] = hookSlot{fn: fn, arg: arg}
		return
	}

	switch kind {
	case KindVerbose:
		cb.hooks[ev] = hookSlot{fn: verboseHook(ev, cb.logger), arg: arg}
	case KindDebug:
		cb.hooks[ev] = hookSlot{fn: debugHook(ev, cb.logger), arg: arg}
	default:
		cb.hooks[ev] = hookSlot{arg: arg}
	}
}

// SetAll applies Set to every event in the taxonomy.
func (cb *CallbackSet) SetAll(kind CallbackKind, fn HookFunc, arg interface{}) {
	for ev := Event(0); ev < numEvents; ev++ {
		cb.Set(ev, kind, fn, arg)
	}
}

// SetError installs the error slot, following the same kind/fn/arg
// contract as Set.
func (cb *CallbackSet) SetError(kind CallbackKind, fn ErrorHookFunc, arg interface{}) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if kind == KindCustom {
		cb.errHook = errorSlot{fn: fn, arg: arg}
		return
	}
	if kind == KindVerbose || kind == KindDebug {
		cb.errHook = errorSlot{fn: verboseErrorHook(cb.logger), arg: arg}
		return
	}
	cb.errHook = errorSlot{arg: arg}
}

// OverrideSend installs a replacement for the engine's default send
// primitive.
func (cb *CallbackSet) OverrideSend(fn SendFunc) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.overrideSend = fn
}

// OverrideReceive installs a replacement for the engine's default raw
// receive primitive.
func (cb *CallbackSet) OverrideReceive(fn ReceiveFunc) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.overrideReceive = fn
}

// OverrideReceiveLoop installs a replacement for the engine's default
// dispatch loop.
func (cb *CallbackSet) OverrideReceiveLoop(fn ReceiveLoopFunc) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.overrideReceiveLoop = fn
}

func (cb *CallbackSet) call(ev Event, m *Message, def Result) Result {
	cb.mu.Lock()
	slot := cb.hooks[ev]
	cb.mu.Unlock()

	if slot.fn == nil {
		return def
	}
	return slot.fn(m, slot.arg)
}

// hasHook reports whether a hook function is installed at ev, letting a
// caller distinguish "no hook, use the documented fallback" from
// "hook installed, use its Result" at call sites where those two
// cases carry different default behaviour.
func (cb *CallbackSet) hasHook(ev Event) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.hooks[ev].fn != nil
}
