// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// debugArgs holds the parsed NLDEBUG environment variable, if set.
var debugArgs []string

func init() {
	s := os.Getenv("NLDEBUG")
	if s == "" {
		return
	}
	debugArgs = strings.Split(s, ",")
}

// debugger prints a rudimentary trace of every message sent and
// received, independent of whatever CallbackSet personality a socket
// was given.
type debugger struct {
	logger *logrus.Entry
	level  int
}

func newDebugger(args []string) *debugger {
	d := &debugger{logger: nlLog, level: 1}

	for _, a := range args {
		kv := strings.Split(a, "=")
		if len(kv) != 2 {
			continue
		}

		switch kv[0] {
		case "level":
			level, err := strconv.Atoi(kv[1])
			if err != nil {
				panicf("netlink: invalid NLDEBUG level: %q", a)
			}
			d.level = level
		}
	}

	return d
}

func (d *debugger) debugf(level int, format string, v ...interface{}) {
	if d.level >= level {
		d.logger.Debugf(format, v...)
	}
}

func panicf(format string, a ...interface{}) {
	panic(fmt.Sprintf(format, a...))
}
