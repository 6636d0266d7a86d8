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

package message

import (
	"encoding/hex"
)

// Route identifies a client at the transport layer. It is comparable
// and is used as (part of) the subscription key, so the routing
// identifier is carried as a string.
type Route struct {
	// Secure is true when the request arrived on the secure endpoint.
	// A deferred reply or notification must go back the same way.
	Secure bool

	// Delimited is true when the request carried an empty delimiter
	// frame. The reply echoes the delimited-ness of the request.
	Delimited bool

	// Address is the opaque routing identifier assigned by the router
	// socket (0-32 bytes).
	Address string
}

// AddressBytes returns the routing identifier as a byte slice.
func (r Route) AddressBytes() []byte {
	return []byte(r.Address)
}

// String formats the route for logs, e.g. "[a1b2c3][]".
func (r Route) String() string {
	display := "[" + hex.EncodeToString([]byte(r.Address)) + "]"
	if r.Delimited {
		display += "[]"
	}
	return display
}
