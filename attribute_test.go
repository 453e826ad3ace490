// Copyright (c) 2026 The go-nlcore Authors
//
// SPDX-License-Identifier: Apache-2.0
//

package netlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeEncodeDecodeRoundTrip(t *testing.T) {
	ae := NewAttributeEncoder()
	ae.Uint32(1, 0xdeadbeef)
	ae.String(2, "eth0")
	ae.Flag(3, true)
	ae.Flag(4, false)
	ae.Nested(5, func(nae *AttributeEncoder) error {
		nae.Uint8(1, 7)
		return nil
	})

	b, err := ae.Encode()
	require.NoError(t, err)

	ad, err := NewAttributeDecoder(b)
	require.NoError(t, err)
	assert.Equal(t, 4, ad.Len())

	var saw []uint16
	for ad.Next() {
		saw = append(saw, ad.Type())
		switch ad.Type() {
		case 1:
			assert.Equal(t, uint32(0xdeadbeef), ad.Uint32())
		case 2:
			assert.Equal(t, "eth0", ad.String())
		case 3:
			assert.True(t, ad.Flag())
		case 5:
			assert.NotZero(t, ad.TypeFlags()&Nested)
			ad.Nested(func(nad *AttributeDecoder) error {
				assert.True(t, nad.Next())
				assert.Equal(t, uint8(7), nad.Uint8())
				return nil
			})
		}
	}
	require.NoError(t, ad.Err())
	assert.Equal(t, []uint16{1, 2, 3, 5}, saw)
}

func TestAttributeDecoderWrongLengthSetsErr(t *testing.T) {
	b, err := MarshalAttributes([]Attribute{{Type: 1, Data: []byte{1, 2, 3}}})
	require.NoError(t, err)

	ad, err := NewAttributeDecoder(b)
	require.NoError(t, err)
	require.True(t, ad.Next())
	ad.Uint32()
	assert.Error(t, ad.Err())
}

func TestUnmarshalAttributesEmptyInputReturnsNil(t *testing.T) {
	attrs, err := UnmarshalAttributes([]byte{})
	require.NoError(t, err)
	assert.Nil(t, attrs)
}
