// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"runtime"

	"github.com/pkg/errors"
	"github.com/vishvananda/netns"
)

// enterNamespace locks the calling goroutine's OS thread and switches
// into the network namespace identified by fd, the same pattern used
// to create sockets inside a sandbox's namespace before bind. The
// returned restore function switches back to the original namespace
// and unlocks the thread; it must be called exactly once regardless of
// what the caller does in between.
func enterNamespace(fd int) (func() error, error) {
	runtime.LockOSThread()

	origin, err := netns.Get()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, errors.Wrap(err, "netns: get current namespace")
	}

	if err := netns.Set(netns.NsHandle(fd)); err != nil {
		origin.Close()
		runtime.UnlockOSThread()
		return nil, errors.Wrap(err, "netns: enter target namespace")
	}

	return func() error {
		defer runtime.UnlockOSThread()
		defer origin.Close()
		return netns.Set(origin)
	}, nil
}
