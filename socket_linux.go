// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"github.com/mdlayher/socket"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// dial creates a raw AF_NETLINK/SOCK_RAW socket bound to protocol,
// optionally inside the namespace identified by netNS, joins groups at
// bind time, and reads back the kernel-assigned local address.
func dial(protocol int, netNS int, groups uint32) (*socket.Conn, Addr, error) {
	var restore func() error
	if netNS != 0 {
		r, err := enterNamespace(netNS)
		if err != nil {
			return nil, Addr{}, err
		}
		restore = r
	}

	sc, err := socket.Socket(unix.AF_NETLINK, unix.SOCK_RAW, protocol, "netlink", nil)

	if restore != nil {
		if rerr := restore(); err == nil && rerr != nil {
			err = rerr
		}
	}
	if err != nil {
		return nil, Addr{}, errors.Wrap(err, "connect: socket")
	}

	if err := sc.Bind(&unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: groups}); err != nil {
		sc.Close()
		return nil, Addr{}, errors.Wrap(err, "connect: bind")
	}

	sa, err := sc.Getsockname()
	if err != nil {
		sc.Close()
		return nil, Addr{}, errors.Wrap(ErrNoAddress, "connect: getsockname")
	}

	nsa, ok := sa.(*unix.SockaddrNetlink)
	if !ok || nsa.Family != unix.AF_NETLINK {
		sc.Close()
		return nil, Addr{}, errors.Wrap(ErrAddressFamily, "connect")
	}

	return sc, addrFromSockaddr(nsa), nil
}
