// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"golang.org/x/sys/unix"
)

// Header is the fixed 16-octet prefix of every on-wire netlink record.
// Field order and width match struct nlmsghdr and must not change: the
// wire layout is read and written in place over a byte slice.
type Header struct {
	Length   uint32
	Type     HeaderType
	Flags    HeaderFlags
	Sequence uint32
	PortID   uint32
}

// HeaderType identifies the kind of record a Header describes. The
// dispatch loop recognises the four control types below; any other
// value, including the unused reserved values below 0x10, is treated
// as a family-specific "valid" record and handed to VALID.
type HeaderType uint16

// Control record types, numerically identical to the kernel's
// NLMSG_NOOP/NLMSG_ERROR/NLMSG_DONE/NLMSG_OVERRUN.
const (
	NoOp    HeaderType = unix.NLMSG_NOOP
	Error   HeaderType = unix.NLMSG_ERROR
	Done    HeaderType = unix.NLMSG_DONE
	Overrun HeaderType = unix.NLMSG_OVERRUN
)

// HeaderFlags are the bits the engine itself reads or writes. Any other
// flag bit passes through the engine untouched.
type HeaderFlags uint16

const (
	Request  HeaderFlags = unix.NLM_F_REQUEST
	Multi    HeaderFlags = unix.NLM_F_MULTI
	Ack      HeaderFlags = unix.NLM_F_ACK
	DumpIntr HeaderFlags = unix.NLM_F_DUMP_INTR

	// Dump is not read by the engine, but Send callers commonly OR it
	// into an outbound request's flags to start a multipart dump.
	Dump HeaderFlags = unix.NLM_F_DUMP
)

// AutoPortID and AutoSequence are the reserved sentinel values that
// direct Complete to substitute the socket's own port id and next
// sequence number respectively. A freshly allocated Message carries
// both sentinels until completed.
const (
	AutoPortID   uint32 = 0
	AutoSequence uint32 = 0
)

// Addr identifies one endpoint of a netlink datagram: a port id plus
// the multicast groups it is subscribed to. The kernel itself is
// addressed by the zero value.
type Addr struct {
	PortID uint32
	Groups uint32
}

// sockaddr converts an Addr into the raw form the kernel socket API
// expects.
func (a Addr) sockaddr() *unix.SockaddrNetlink {
	return &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Pid:    a.PortID,
		Groups: a.Groups,
	}
}

func addrFromSockaddr(sa *unix.SockaddrNetlink) Addr {
	return Addr{PortID: sa.Pid, Groups: sa.Groups}
}

// Credentials carries the SCM_CREDENTIALS ancillary data attached to a
// received datagram. Presence is tracked separately by the Message that
// carries it, per the corpus's preference for a presence flag over a
// nullable pointer.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

func credentialsFromUcred(u *unix.Ucred) Credentials {
	return Credentials{PID: u.Pid, UID: u.Uid, GID: u.Gid}
}
