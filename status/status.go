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

// Package status defines the wire-level result codes shared by the query
// and notification protocols. A code travels as the first four bytes of
// every response payload, little-endian.
package status

import (
	"encoding/binary"
	"fmt"
)

// Code is a protocol result code.
type Code uint32

const (
	// Success is the normal result.
	Success Code = iota

	// BadStream marks a malformed request payload or wrong frame count.
	BadStream

	// NotFound marks an unknown command, an unsubscribe of a missing
	// entry, or a lookup miss in the node.
	NotFound

	// OversubscribedLimit marks a full subscription set.
	OversubscribedLimit

	// ServiceStopped marks a service that is shutting down.
	ServiceStopped

	// ChannelStopped marks a single client channel that has ended.
	ChannelStopped

	// InvalidArgument marks structurally valid but semantically
	// rejected input.
	InvalidArgument
)

// Size is the encoded width of a Code.
const Size = 4

func (c Code) String() string {
	switch c {
	case Success:
		return "success"
	case BadStream:
		return "bad stream"
	case NotFound:
		return "not found"
	case OversubscribedLimit:
		return "oversubscribed limit"
	case ServiceStopped:
		return "service stopped"
	case ChannelStopped:
		return "channel stopped"
	case InvalidArgument:
		return "invalid argument"
	default:
		return fmt.Sprintf("unknown code %d", uint32(c))
	}
}

// Bytes returns the little-endian encoding of c.
func (c Code) Bytes() []byte {
	var b [Size]byte
	binary.LittleEndian.PutUint32(b[:], uint32(c))
	return b[:]
}

// FromBytes decodes the code at the head of payload. It reports false
// when payload is shorter than Size.
func FromBytes(payload []byte) (Code, bool) {
	if len(payload) < Size {
		return BadStream, false
	}
	return Code(binary.LittleEndian.Uint32(payload)), true
}
