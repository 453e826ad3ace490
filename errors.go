// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"github.com/pkg/errors"
)

// Sentinel error kinds surfaced at the package boundary. Callers compare
// against these with errors.Is; every call site that adds positional or
// operational context wraps one of these with errors.Wrap rather than
// fmt.Errorf, so errors.Cause always recovers the sentinel.
var (
	ErrOutOfMemory       = errors.New("netlink: out of memory")
	ErrBadSocket         = errors.New("netlink: socket already connected")
	ErrNoAddress         = errors.New("netlink: unexpected kernel address")
	ErrAddressFamily     = errors.New("netlink: address family not supported")
	ErrSequenceMismatch  = errors.New("netlink: sequence mismatch")
	ErrMessageTruncated  = errors.New("netlink: message truncated")
	ErrMessageOverflow   = errors.New("netlink: message overflow")
	ErrDumpInterrupted   = errors.New("netlink: dump interrupted")
	ErrMessageNotNested  = errors.New("netlink: attribute is not nested")
	ErrAttributeOverflow = errors.New("netlink: attribute length exceeds remaining buffer")
)

// ErrorTranslator maps a platform error number (as carried in an ERROR
// record) to the error returned at the package boundary. The default
// translator wraps it as a syscall.Errno; callers may install their own
// via Config.Translator to map into a richer error kind.
type ErrorTranslator func(errno int) error

// Disposition is the three-state return of every hook: continue
// processing, abandon the current record, or stop the loop outright.
// Represented as a tagged sum rather than a magic integer so a switch
// over its values is exhaustive at every call site.
type Disposition int

const (
	Proceed Disposition = iota
	Skip
	Stop
)

// Result is what a hook returns. A non-nil Err aborts the dispatch loop
// or send path with that error, regardless of Action.
type Result struct {
	Action Disposition
	Err    error
}

func proceedResult() Result { return Result{Action: Proceed} }
func skipResult() Result    { return Result{Action: Skip} }
func stopResult() Result    { return Result{Action: Stop} }
func abortResult(err error) Result {
	return Result{Action: Stop, Err: err}
}

// ProceedResult, SkipResult, StopResult and AbortResult let a hook
// implementation build its return value without remembering the zero
// value's meaning.
func ProceedResult() Result       { return proceedResult() }
func SkipResult() Result          { return skipResult() }
func StopResult() Result          { return stopResult() }
func AbortResult(err error) Result { return abortResult(err) }
