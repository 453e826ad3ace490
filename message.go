// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"fmt"
	"io"
	"strings"

	"github.com/josharian/native"
	"github.com/pkg/errors"
)

// unboundProtocol is the protocol id carried by a Message that has not
// been bound to any socket yet.
const unboundProtocol = -1

// Message is an owning container for one on-wire netlink datagram: a
// growable buffer whose first headerLen bytes are the wire header, plus
// side metadata that never travels on the wire itself.
//
// Reserve and Append may reallocate buf; any interior pointer returned
// by a previous call is invalid the moment either is called again.
// Callers must re-fetch.
type Message struct {
	buf []byte

	protocol int

	src    Addr
	dst    Addr
	hasDst bool

	creds    Credentials
	hasCreds bool
}

// NewMessage allocates a message with just the header present, zeroed,
// header length set to the header size, and no bound protocol.
func NewMessage() *Message {
	m := &Message{
		buf:      make([]byte, headerLen),
		protocol: unboundProtocol,
	}
	m.setLength(uint32(headerLen))
	return m
}

// NewMessageType allocates an empty message and stamps type and flags
// into its header.
func NewMessageType(typ HeaderType, flags HeaderFlags) *Message {
	m := NewMessage()
	m.SetType(typ)
	m.SetFlags(flags)
	return m
}

// NewMessageFromHeader copies type, flags, sequence and port id from a
// template header into a fresh, empty message. The payload is empty.
func NewMessageFromHeader(tmpl Header) *Message {
	m := NewMessage()
	m.SetType(tmpl.Type)
	m.SetFlags(tmpl.Flags)
	m.SetSequence(tmpl.Sequence)
	m.SetPortID(tmpl.PortID)
	return m
}

// ConvertMessage copies an existing on-wire record into a fresh owned
// buffer. The number of bytes copied is taken from the record's own
// header length field, not from len(raw).
func ConvertMessage(raw []byte) (*Message, error) {
	if len(raw) < headerLen {
		return nil, errors.Wrap(ErrMessageTruncated, "convert: short header")
	}
	length := native.Endian.Uint32(raw[0:4])
	if int(length) < headerLen || int(length) > len(raw) {
		return nil, errors.Wrap(ErrMessageTruncated, "convert: declared length out of range")
	}
	buf := make([]byte, length)
	copy(buf, raw[:length])
	return &Message{buf: buf, protocol: unboundProtocol}, nil
}

// Reserve grows the buffer by n bytes rounded up to pad (pad == 0 means
// no rounding), zeroes the padding bytes, increments the header length
// by the unrounded n, and returns a slice over the newly writable
// region. Any pointer into m's buffer obtained before this call is
// invalidated.
func (m *Message) Reserve(n int, pad int) []byte {
	old := len(m.buf)
	grow := n
	if pad > 0 {
		grow = ((n + pad - 1) / pad) * pad
	}
	m.buf = append(m.buf, make([]byte, grow)...)
	for i := old + n; i < old+grow; i++ {
		m.buf[i] = 0
	}
	m.setLength(m.length() + uint32(n))
	return m.buf[old : old+n]
}

// Append reserves len(data) bytes (rounded to pad) and copies data into
// the reserved region.
func (m *Message) Append(data []byte, pad int) {
	dst := m.Reserve(len(data), pad)
	copy(dst, data)
}

// Put overwrites the header's port id, sequence, type and flags, and,
// when payloadRoom is positive, additionally reserves that much
// 4-octet-aligned payload.
func (m *Message) Put(portID, seq uint32, typ HeaderType, payloadRoom int, flags HeaderFlags) []byte {
	m.SetPortID(portID)
	m.SetSequence(seq)
	m.SetType(typ)
	m.SetFlags(flags)
	if payloadRoom > 0 {
		return m.Reserve(payloadRoom, msgAlignTo)
	}
	return nil
}

// Bytes returns the message's full on-wire buffer, header included.
func (m *Message) Bytes() []byte { return m.buf }

// Header decodes the message's wire header into a Header value.
func (m *Message) Header() Header {
	return Header{
		Length:   m.length(),
		Type:     HeaderType(native.Endian.Uint16(m.buf[4:6])),
		Flags:    HeaderFlags(native.Endian.Uint16(m.buf[6:8])),
		Sequence: native.Endian.Uint32(m.buf[8:12]),
		PortID:   native.Endian.Uint32(m.buf[12:16]),
	}
}

// SetHeader encodes hdr over the message's wire header in place.
func (m *Message) SetHeader(hdr Header) {
	m.setLength(hdr.Length)
	native.Endian.PutUint16(m.buf[4:6], uint16(hdr.Type))
	native.Endian.PutUint16(m.buf[6:8], uint16(hdr.Flags))
	native.Endian.PutUint32(m.buf[8:12], hdr.Sequence)
	native.Endian.PutUint32(m.buf[12:16], hdr.PortID)
}

func (m *Message) length() uint32          { return native.Endian.Uint32(m.buf[0:4]) }
func (m *Message) setLength(length uint32) { native.Endian.PutUint32(m.buf[0:4], length) }

// Length is the header's declared total length, header included.
func (m *Message) Length() int { return int(m.length()) }

// Type returns the message's record type.
func (m *Message) Type() HeaderType {
	return HeaderType(native.Endian.Uint16(m.buf[4:6]))
}

// SetType overwrites the message's record type.
func (m *Message) SetType(typ HeaderType) {
	native.Endian.PutUint16(m.buf[4:6], uint16(typ))
}

// Flags returns the message's header flags.
func (m *Message) Flags() HeaderFlags {
	return HeaderFlags(native.Endian.Uint16(m.buf[6:8]))
}

// SetFlags overwrites the message's header flags.
func (m *Message) SetFlags(flags HeaderFlags) {
	native.Endian.PutUint16(m.buf[6:8], uint16(flags))
}

// Sequence returns the message's sequence number.
func (m *Message) Sequence() uint32 { return native.Endian.Uint32(m.buf[8:12]) }

// SetSequence overwrites the message's sequence number.
func (m *Message) SetSequence(seq uint32) { native.Endian.PutUint32(m.buf[8:12], seq) }

// PortID returns the message's port id field.
func (m *Message) PortID() uint32 { return native.Endian.Uint32(m.buf[12:16]) }

// SetPortID overwrites the message's port id field.
func (m *Message) SetPortID(portID uint32) { native.Endian.PutUint32(m.buf[12:16], portID) }

// Protocol returns the message's bound protocol id, or -1 if unbound.
func (m *Message) Protocol() int { return m.protocol }

// SetProtocol binds the message to a protocol id.
func (m *Message) SetProtocol(protocol int) { m.protocol = protocol }

// Src returns the address the message was received from, or that it
// will be stamped with on send.
func (m *Message) Src() Addr { return m.src }

// SetSrc sets the message's source address.
func (m *Message) SetSrc(addr Addr) { m.src = addr }

// Dst returns the message's per-message destination override, if one
// was set.
func (m *Message) Dst() (Addr, bool) { return m.dst, m.hasDst }

// SetDst installs a per-message destination override, used by vector
// send in place of the socket's configured peer address.
func (m *Message) SetDst(addr Addr) {
	m.dst = addr
	m.hasDst = true
}

// Credentials returns the ancillary credentials attached to the
// message, if any were received or set.
func (m *Message) Credentials() (Credentials, bool) { return m.creds, m.hasCreds }

// SetCredentials attaches ancillary credentials to the message so a
// subsequent vector send carries them as SCM_CREDENTIALS.
func (m *Message) SetCredentials(creds Credentials) {
	m.creds = creds
	m.hasCreds = true
}

// Payload returns the message's payload, i.e. everything after the
// aligned header.
func (m *Message) Payload() []byte {
	if len(m.buf) <= headerLen {
		return nil
	}
	return m.buf[headerLen:m.length()]
}

// familyHeaderSize resolves how many payload bytes are occupied by a
// family-specific fixed header, via the caller-supplied cache-ops hook.
// Messages with no such hook installed are treated as having no family
// header, so the attribute region starts at the payload itself.
type familyHeaderSizer func(protocol int, typ HeaderType) int

// Attributes decodes the message's attribute region using the generic
// attribute parser. famHdr resolves how many leading payload bytes to
// skip before the attribute TLV stream begins; pass nil when the record
// carries no family-specific fixed header.
func (m *Message) Attributes(famHdr familyHeaderSizer) (*AttributeDecoder, error) {
	payload := m.Payload()
	skip := 0
	if famHdr != nil {
		skip = famHdr(m.protocol, m.Type())
	}
	if len(payload) < skip {
		return nil, errors.Wrap(ErrMessageTruncated, "attributes: payload shorter than family header")
	}
	return NewAttributeDecoder(payload[skip:])
}

// Dump writes a human-readable transcript of the message to w: header
// fields with symbolic type/flags, payload as hex+ASCII indented by the
// current nesting level, the embedded original header when the record
// is an ERROR, and a recursive walk of the attribute tree with any
// trailing bytes not consumed by attributes labelled LEFTOVER.
func (m *Message) Dump(w io.Writer) {
	hdr := m.Header()
	fmt.Fprintf(w, "-------------------------   BEGIN NETLINK MESSAGE ---------------------------\n")
	fmt.Fprintf(w, "  [HEADER] %d octets\n", headerLen)
	fmt.Fprintf(w, "    .type = %d <%s>\n", hdr.Type, typeString(hdr.Type))
	fmt.Fprintf(w, "    .flags = %#x <%s>\n", uint16(hdr.Flags), flagsString(hdr.Flags))
	fmt.Fprintf(w, "    .seq = %d\n", hdr.Sequence)
	fmt.Fprintf(w, "    .port = %d\n", hdr.PortID)

	payload := m.Payload()
	if hdr.Type == Error && len(payload) >= 4+headerLen {
		code := int32(native.Endian.Uint32(payload[0:4]))
		fmt.Fprintf(w, "  [ERRORMSG] %d octets\n", 4+headerLen)
		fmt.Fprintf(w, "    .error = %d\n", code)
		dumpHex(w, payload[4:4+headerLen], 2)
		if len(payload) > 4+headerLen {
			fmt.Fprintf(w, "  [PAYLOAD] %d octets\n", len(payload)-4-headerLen)
			dumpAttrs(w, payload[4+headerLen:], 1)
		}
	} else if len(payload) > 0 {
		fmt.Fprintf(w, "  [PAYLOAD] %d octets\n", len(payload))
		dumpAttrs(w, payload, 1)
	}
	fmt.Fprintf(w, "--------------------------    END NETLINK MESSAGE   ---------------------------\n")
}

// dumpAttrs recursively walks the attribute TLV stream in b, printing
// each attribute and recursing one level deeper into nested ones.
// Bytes that can't be parsed as a well-formed attribute stream, or
// that trail the last attribute the decoder could make sense of, are
// reported as LEFTOVER rather than silently dropped.
func dumpAttrs(w io.Writer, b []byte, indent int) {
	pad := strings.Repeat("    ", indent)

	ad, err := NewAttributeDecoder(b)
	if err != nil {
		fmt.Fprintf(w, "%sLEFTOVER %d octets\n", pad, len(b))
		dumpHex(w, b, indent+1)
		return
	}

	for ad.Next() {
		a := ad.attr()
		if ad.TypeFlags()&Nested != 0 {
			fmt.Fprintf(w, "%s[ATTR %02d] %d octets (nested)\n", pad, ad.Type(), a.Length)
			dumpAttrs(w, a.Data, indent+1)
			continue
		}
		fmt.Fprintf(w, "%s[ATTR %02d] %d octets\n", pad, ad.Type(), a.Length)
		if len(a.Data) > 0 {
			dumpHex(w, a.Data, indent+1)
		}
	}

	if left := b[ad.i:]; len(left) > 0 {
		fmt.Fprintf(w, "%sLEFTOVER %d octets\n", pad, len(left))
		dumpHex(w, left, indent+1)
	}
}

func dumpHex(w io.Writer, b []byte, indent int) {
	pad := strings.Repeat("    ", indent)
	for i := 0; i < len(b); i += 16 {
		end := i + 16
		if end > len(b) {
			end = len(b)
		}
		row := b[i:end]
		ascii := make([]byte, len(row))
		for j, c := range row {
			if c >= 0x20 && c < 0x7f {
				ascii[j] = c
			} else {
				ascii[j] = '.'
			}
		}
		fmt.Fprintf(w, "%s%04x: %-47s  %s\n", pad, i, fmt.Sprintf("% x", row), ascii)
	}
}

func typeString(t HeaderType) string {
	switch t {
	case NoOp:
		return "NOOP"
	case Error:
		return "ERROR"
	case Done:
		return "DONE"
	case Overrun:
		return "OVERRUN"
	default:
		return "valid"
	}
}

func flagsString(f HeaderFlags) string {
	var parts []string
	if f&Request != 0 {
		parts = append(parts, "REQUEST")
	}
	if f&Multi != 0 {
		parts = append(parts, "MULTI")
	}
	if f&Ack != 0 {
		parts = append(parts, "ACK")
	}
	if f&DumpIntr != 0 {
		parts = append(parts, "DUMP_INTR")
	}
	if f&Dump != 0 {
		parts = append(parts, "DUMP")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
