// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/josharian/native"
	"github.com/pkg/errors"
)

// Nested and NetByteOrder are the two high bits reserved in an
// attribute's type field; TypeFlags on the decoder exposes them, Type
// masks them off.
const (
	Nested       uint16 = 1 << 15
	NetByteOrder uint16 = 1 << 14
)

const attrTypeMask = ^(Nested | NetByteOrder)

var errInvalidAttribute = errors.New("netlink: attribute length too short or too large")

// An Attribute is a netlink attribute record: a 4-octet header (length,
// type) followed by Data padded to 4-octet alignment.
type Attribute struct {
	Length uint16
	Type   uint16
	Data   []byte
}

func (a *Attribute) marshal(b []byte) (int, error) {
	if int(a.Length) < attrHeaderLen {
		return 0, errInvalidAttribute
	}

	native.Endian.PutUint16(b[0:2], a.Length)
	native.Endian.PutUint16(b[2:4], a.Type)
	n := copy(b[attrHeaderLen:], a.Data)

	return attrHeaderLen + attrAlign(n), nil
}

func (a *Attribute) unmarshal(b []byte) error {
	if len(b) < attrHeaderLen {
		return errInvalidAttribute
	}

	a.Length = native.Endian.Uint16(b[0:2])
	a.Type = native.Endian.Uint16(b[2:4])

	if int(a.Length) > len(b) {
		return errInvalidAttribute
	}

	switch {
	case a.Length == 0:
		a.Data = make([]byte, 0)
	case int(a.Length) < attrHeaderLen:
		return errInvalidAttribute
	default:
		a.Data = make([]byte, len(b[attrHeaderLen:a.Length]))
		copy(a.Data, b[attrHeaderLen:a.Length])
	}

	return nil
}

// MarshalAttributes packs a slice of Attributes into a single byte
// slice. Attributes whose Length is zero have it computed from Data.
func MarshalAttributes(attrs []Attribute) ([]byte, error) {
	var c int
	for _, a := range attrs {
		c += attrHeaderLen + attrAlign(len(a.Data))
	}

	var idx int
	b := make([]byte, c)
	for _, a := range attrs {
		if a.Length == 0 {
			a.Length = uint16(attrHeaderLen + len(a.Data))
		}

		n, err := a.marshal(b[idx:])
		if err != nil {
			return nil, err
		}
		idx += n
	}

	return b, nil
}

// UnmarshalAttributes unpacks a slice of Attributes from a single byte
// slice.
func UnmarshalAttributes(b []byte) ([]Attribute, error) {
	ad, err := NewAttributeDecoder(b)
	if err != nil {
		return nil, err
	}

	if ad.Len() == 0 {
		return nil, nil
	}

	attrs := make([]Attribute, 0, ad.Len())
	for ad.Next() {
		if ad.attr().Length != 0 {
			attrs = append(attrs, ad.attr())
		}
	}

	if err := ad.Err(); err != nil {
		return nil, err
	}

	return attrs, nil
}

// An AttributeDecoder provides a safe, iterator-like API for decoding
// an attribute TLV stream. Err must be checked once Next returns false.
type AttributeDecoder struct {
	// ByteOrder overrides the byte order used to decode integer
	// attributes. Set it immediately after construction. Native byte
	// order is used when left nil.
	ByteOrder binary.ByteOrder

	a Attribute

	b []byte
	i int

	length int

	err error
}

// NewAttributeDecoder creates an AttributeDecoder over b.
func NewAttributeDecoder(b []byte) (*AttributeDecoder, error) {
	ad := &AttributeDecoder{
		ByteOrder: native.Endian,
		b:         b,
	}

	var err error
	ad.length, err = ad.available()
	if err != nil {
		return nil, err
	}

	return ad, nil
}

// Next advances the decoder to the next attribute. It returns false
// when no attributes remain or an error was encountered.
func (ad *AttributeDecoder) Next() bool {
	if ad.err != nil {
		return false
	}

	if ad.i >= len(ad.b) {
		return false
	}

	if err := ad.a.unmarshal(ad.b[ad.i:]); err != nil {
		ad.err = err
		return false
	}

	if int(ad.a.Length) < attrHeaderLen {
		ad.i += attrHeaderLen
	} else {
		ad.i += attrAlign(int(ad.a.Length))
	}

	return true
}

// Type returns the current attribute's type with the Nested and
// NetByteOrder bits masked off.
func (ad *AttributeDecoder) Type() uint16 { return ad.a.Type & attrTypeMask }

// TypeFlags returns the Nested and NetByteOrder bits of the current
// attribute's type.
func (ad *AttributeDecoder) TypeFlags() uint16 { return ad.a.Type & ^attrTypeMask }

// Len returns the number of attributes with a non-zero length in the
// stream. Zero-length attributes are still yielded by Next but are not
// counted.
func (ad *AttributeDecoder) Len() int { return ad.length }

func (ad *AttributeDecoder) available() (int, error) {
	var i, count int
	for i < len(ad.b) {
		if len(ad.b[i:]) < attrHeaderLen {
			return 0, errInvalidAttribute
		}

		l := int(native.Endian.Uint16(ad.b[i : i+2]))
		if l != 0 {
			count++
		}
		if l < attrHeaderLen {
			l = attrHeaderLen
		}
		i += attrAlign(l)
	}

	return count, nil
}

func (ad *AttributeDecoder) attr() Attribute { return ad.a }
func (ad *AttributeDecoder) data() []byte    { return ad.a.Data }

// Err returns the first error encountered while decoding.
func (ad *AttributeDecoder) Err() error { return ad.err }

// Bytes returns a copy of the current attribute's raw data.
func (ad *AttributeDecoder) Bytes() []byte {
	src := ad.data()
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// String returns the current attribute's data as a string, cut at the
// first NUL byte if one is present.
func (ad *AttributeDecoder) String() string {
	if ad.err != nil {
		return ""
	}
	b := ad.data()
	if i := bytes.IndexByte(b, 0); i != -1 {
		b = b[:i]
	}
	return string(b)
}

func (ad *AttributeDecoder) Uint8() uint8 {
	if ad.err != nil {
		return 0
	}
	b := ad.data()
	if len(b) != 1 {
		ad.err = fmt.Errorf("netlink: attribute %d is not a uint8; length: %d", ad.Type(), len(b))
		return 0
	}
	return b[0]
}

func (ad *AttributeDecoder) Uint16() uint16 {
	if ad.err != nil {
		return 0
	}
	b := ad.data()
	if len(b) != 2 {
		ad.err = fmt.Errorf("netlink: attribute %d is not a uint16; length: %d", ad.Type(), len(b))
		return 0
	}
	return ad.ByteOrder.Uint16(b)
}

func (ad *AttributeDecoder) Uint32() uint32 {
	if ad.err != nil {
		return 0
	}
	b := ad.data()
	if len(b) != 4 {
		ad.err = fmt.Errorf("netlink: attribute %d is not a uint32; length: %d", ad.Type(), len(b))
		return 0
	}
	return ad.ByteOrder.Uint32(b)
}

func (ad *AttributeDecoder) Uint64() uint64 {
	if ad.err != nil {
		return 0
	}
	b := ad.data()
	if len(b) != 8 {
		ad.err = fmt.Errorf("netlink: attribute %d is not a uint64; length: %d", ad.Type(), len(b))
		return 0
	}
	return ad.ByteOrder.Uint64(b)
}

func (ad *AttributeDecoder) Int8() int8   { return int8(ad.Uint8()) }
func (ad *AttributeDecoder) Int16() int16 { return int16(ad.Uint16()) }
func (ad *AttributeDecoder) Int32() int32 { return int32(ad.Uint32()) }
func (ad *AttributeDecoder) Int64() int64 { return int64(ad.Uint64()) }

// Flag returns true if the current attribute carries no data, the
// convention used for boolean flag attributes.
func (ad *AttributeDecoder) Flag() bool {
	if ad.err != nil {
		return false
	}
	b := ad.data()
	if len(b) != 0 {
		ad.err = fmt.Errorf("netlink: attribute %d is not a flag; length: %d", ad.Type(), len(b))
		return false
	}
	return true
}

// Do runs fn over the current attribute's raw data. fn must not retain
// b beyond its own scope.
func (ad *AttributeDecoder) Do(fn func(b []byte) error) {
	if ad.err != nil {
		return
	}
	if err := fn(ad.data()); err != nil {
		ad.err = err
	}
}

// Nested decodes the current attribute's data as a nested attribute
// stream. The Nested bit in TypeFlags is not checked: the data is
// decoded as attributes whether or not it is set. The nested decoder
// inherits ad's ByteOrder.
func (ad *AttributeDecoder) Nested(fn func(nad *AttributeDecoder) error) {
	ad.Do(func(b []byte) error {
		nad, err := NewAttributeDecoder(b)
		if err != nil {
			return err
		}
		nad.ByteOrder = ad.ByteOrder

		if err := fn(nad); err != nil {
			return err
		}
		return nad.Err()
	})
}

// An AttributeEncoder builds an attribute TLV stream.
type AttributeEncoder struct {
	ByteOrder binary.ByteOrder

	attrs []Attribute
	err   error
}

// NewAttributeEncoder creates an AttributeEncoder using native byte
// order until ByteOrder is overridden.
func NewAttributeEncoder() *AttributeEncoder {
	return &AttributeEncoder{ByteOrder: native.Endian}
}

func (ae *AttributeEncoder) Uint8(typ uint16, v uint8) {
	if ae.err != nil {
		return
	}
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: []byte{v}})
}

func (ae *AttributeEncoder) Uint16(typ uint16, v uint16) {
	if ae.err != nil {
		return
	}
	b := make([]byte, 2)
	ae.ByteOrder.PutUint16(b, v)
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: b})
}

func (ae *AttributeEncoder) Uint32(typ uint16, v uint32) {
	if ae.err != nil {
		return
	}
	b := make([]byte, 4)
	ae.ByteOrder.PutUint32(b, v)
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: b})
}

func (ae *AttributeEncoder) Uint64(typ uint16, v uint64) {
	if ae.err != nil {
		return
	}
	b := make([]byte, 8)
	ae.ByteOrder.PutUint64(b, v)
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: b})
}

func (ae *AttributeEncoder) Int8(typ uint16, v int8)   { ae.Uint8(typ, uint8(v)) }
func (ae *AttributeEncoder) Int16(typ uint16, v int16) { ae.Uint16(typ, uint16(v)) }
func (ae *AttributeEncoder) Int32(typ uint16, v int32) { ae.Uint32(typ, uint32(v)) }
func (ae *AttributeEncoder) Int64(typ uint16, v int64) { ae.Uint64(typ, uint64(v)) }

// Flag appends typ with no data iff v is true, the convention used for
// boolean flag attributes.
func (ae *AttributeEncoder) Flag(typ uint16, v bool) {
	if ae.err != nil || !v {
		return
	}
	ae.attrs = append(ae.attrs, Attribute{Type: typ})
}

// String encodes s, NUL-terminated, into an attribute.
func (ae *AttributeEncoder) String(typ uint16, s string) {
	if ae.err != nil {
		return
	}
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: append([]byte(s), 0)})
}

// Bytes embeds raw data into an attribute.
func (ae *AttributeEncoder) Bytes(typ uint16, b []byte) {
	if ae.err != nil {
		return
	}
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: b})
}

// Do embeds whatever fn produces into an attribute.
func (ae *AttributeEncoder) Do(typ uint16, fn func() ([]byte, error)) {
	if ae.err != nil {
		return
	}
	b, err := fn()
	if err != nil {
		ae.err = err
		return
	}
	ae.attrs = append(ae.attrs, Attribute{Type: typ, Data: b})
}

// Nested embeds data produced by a nested AttributeEncoder, tagging typ
// with the Nested bit.
func (ae *AttributeEncoder) Nested(typ uint16, fn func(nae *AttributeEncoder) error) {
	ae.Do(Nested|typ, func() ([]byte, error) {
		nae := NewAttributeEncoder()
		nae.ByteOrder = ae.ByteOrder

		if err := fn(nae); err != nil {
			return nil, err
		}
		return nae.Encode()
	})
}

// Encode returns the encoded attribute stream, or the first error
// encountered while building it.
func (ae *AttributeEncoder) Encode() ([]byte, error) {
	if ae.err != nil {
		return nil, ae.err
	}
	return MarshalAttributes(ae.attrs)
}
