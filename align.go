// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import "unsafe"

// Functions and values used to keep netlink messages, headers and
// attributes on their required 4-octet boundary. Definitions taken from
// the Linux kernel's <linux/netlink.h>.

// #define NLMSG_ALIGNTO 4U
const msgAlignTo = 4

// #define NLMSG_ALIGN(len) ( ((len)+NLMSG_ALIGNTO-1) & ~(NLMSG_ALIGNTO-1) )
func msgAlign(n int) int {
	return (n + msgAlignTo - 1) & ^(msgAlignTo - 1)
}

// #define NLMSG_HDRLEN ((int) NLMSG_ALIGN(sizeof(struct nlmsghdr)))
var headerLen = msgAlign(int(unsafe.Sizeof(Header{})))

// #define NLA_ALIGNTO 4
const attrAlignTo = 4

// #define NLA_ALIGN(len) (((len) + NLA_ALIGNTO - 1) & ~(NLA_ALIGNTO - 1))
func attrAlign(n int) int {
	return (n + attrAlignTo - 1) & ^(attrAlignTo - 1)
}

// Attribute{Length, Type} on the wire occupy 4 bytes; the Data field has
// no fixed size so unsafe.Sizeof(Attribute{}) can't be used here.
const sizeofAttrHeader = 4

// #define NLA_HDRLEN ((int) NLA_ALIGN(sizeof(struct nlattr)))
var attrHeaderLen = attrAlign(sizeofAttrHeader)
