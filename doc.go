// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

// Package netlink implements the message transport core of a netlink
// client: socket lifecycle, outbound message completion, the inbound
// receive/dispatch loop and its callback hooks, and the message object
// that frames a single on-wire datagram.
//
// It does not model any particular netlink family (routing, generic,
// audit, ...). Per-family parsing, object caches and command-line tools
// are external collaborators that plug into the hooks exposed by
// CallbackSet and Message.
//
// # Namespaces
//
// Dial and Config.NetNS allow binding the socket inside an arbitrary
// network namespace via a vishvananda/netns-based namespace switch,
// entered just long enough to create and bind the socket.
//
// # Debugging
//
// Set NLDEBUG in the environment to enable a rudimentary trace of every
// message sent and received, independent of any CallbackSet personality.
// The trace is logged at debug level through the package logger, or
// Config.Logger when set, so it appears only when that logger's level
// is Debug or lower.
//
//	$ NLDEBUG=1 ./yourbinary
package netlink
