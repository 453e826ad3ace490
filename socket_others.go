// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

//go:build !linux

package netlink

import (
	"github.com/mdlayher/socket"
	"github.com/pkg/errors"
)

var errUnimplemented = errors.New("netlink: not implemented on this platform")

func dial(protocol int, netNS int, groups uint32) (*socket.Conn, Addr, error) {
	return nil, Addr{}, errUnimplemented
}
