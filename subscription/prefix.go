// Copyright 2025 The bitroute Authors
// This file is part of the bitroute library.
//
// The bitroute library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bitroute library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bitroute library. If not, see <http://www.gnu.org/licenses/>.

package subscription

import (
	"fmt"
	"strings"
)

// Binary is a bit-length prefix: the leading Bits() bits of Bytes()
// select a match. A zero-bit prefix matches everything.
type Binary struct {
	bits int
	data []byte
}

// BlocksSize returns the number of bytes needed to carry a prefix of
// the given bit length.
func BlocksSize(bits int) int {
	return (bits + 7) / 8
}

// NewBinary builds a prefix from the leading bits of data. Trailing
// bits of the last block are zeroed so equal prefixes compare equal.
func NewBinary(bits int, data []byte) (Binary, error) {
	blocks := BlocksSize(bits)
	if len(data) < blocks {
		return Binary{}, fmt.Errorf("subscription: prefix needs %d bytes for %d bits, have %d", blocks, bits, len(data))
	}
	trimmed := make([]byte, blocks)
	copy(trimmed, data[:blocks])
	if rem := bits % 8; rem != 0 {
		trimmed[blocks-1] &= byte(0xff << (8 - rem))
	}
	return Binary{bits: bits, data: trimmed}, nil
}

// Bits returns the prefix bit length.
func (b Binary) Bits() int { return b.bits }

// Bytes returns a copy of the prefix blocks.
func (b Binary) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Matches reports whether the leading Bits() bits of data equal the
// prefix. Data shorter than the prefix never matches.
func (b Binary) Matches(data []byte) bool {
	if b.bits == 0 {
		return true
	}
	full := b.bits / 8
	if len(data) < BlocksSize(b.bits) {
		return false
	}
	for i := 0; i < full; i++ {
		if data[i] != b.data[i] {
			return false
		}
	}
	rem := b.bits % 8
	if rem == 0 {
		return true
	}
	mask := byte(0xff << (8 - rem))
	return data[full]&mask == b.data[full]
}

// String renders the prefix as its bit string.
func (b Binary) String() string {
	var sb strings.Builder
	for i := 0; i < b.bits; i++ {
		if b.data[i/8]&(1<<(7-uint(i%8))) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
