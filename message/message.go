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

// Package message implements the framed request/response envelope
// shared by clients and the server.
//
// A message is a sequence of frames:
//
//	[ routing identifier ]  optional, assigned by the router socket
//	[ delimiter ]           optional empty frame, echoed on reply
//	[ command ]             UTF-8 string, e.g. "blockchain.fetch_history"
//	[ correlation id ]      4 bytes, little-endian, chosen by the client
//	[ payload ]             command-defined bytes
//
// A response payload leads with a 4-byte little-endian result code; a
// payload of exactly four bytes is a pure-error response.
package message

import (
	"encoding/binary"
	"errors"
	"math/rand"

	"github.com/go-zeromq/zmq4"
)

// ErrBadStream is returned when the frame count is outside the 3..5
// window or the correlation id frame is not exactly 4 bytes.
var ErrBadStream = errors.New("message: bad stream")

const idSize = 4

// Incoming is a decoded request (server side) or response (client side).
type Incoming struct {
	Route   Route
	Command string
	ID      uint32
	Data    []byte
}

// Decode parses the frames of a received message. Three to five frames
// are accepted; the routing identifier and the delimiter are optional.
// In the four-frame case an empty leading frame is the delimiter and a
// non-empty one is the routing identifier.
func Decode(msg zmq4.Msg, secure bool) (*Incoming, error) {
	frames := msg.Frames
	var in Incoming
	in.Route.Secure = secure

	switch len(frames) {
	case 3:
		// command, id, payload
	case 4:
		if len(frames[0]) == 0 {
			in.Route.Delimited = true
		} else {
			in.Route.Address = string(frames[0])
		}
		frames = frames[1:]
	case 5:
		if len(frames[1]) != 0 {
			return nil, ErrBadStream
		}
		in.Route.Address = string(frames[0])
		in.Route.Delimited = true
		frames = frames[2:]
	default:
		return nil, ErrBadStream
	}

	if len(frames[1]) != idSize {
		// The command survives so the caller can still address a
		// BadStream response.
		in.Command = string(frames[0])
		return &in, ErrBadStream
	}
	in.Command = string(frames[0])
	in.ID = binary.LittleEndian.Uint32(frames[1])
	in.Data = frames[2]
	return &in, nil
}

// Receive reads and decodes one message from the socket.
func Receive(sock zmq4.Socket, secure bool) (*Incoming, error) {
	msg, err := sock.Recv()
	if err != nil {
		return nil, err
	}
	return Decode(msg, secure)
}

// Outgoing is an encodable response or notification.
type Outgoing struct {
	Route   Route
	Command string
	ID      uint32
	Data    []byte
}

// NewRequest builds a client request with a random correlation id.
func NewRequest(command string, data []byte) *Outgoing {
	return &Outgoing{Command: command, ID: rand.Uint32(), Data: data}
}

// NewResponse builds a response to request carrying data. The payload
// is expected to lead with a result code; route, command and id are
// echoed from the request.
func NewResponse(request *Incoming, data []byte) *Outgoing {
	return &Outgoing{
		Route:   request.Route,
		Command: request.Command,
		ID:      request.ID,
		Data:    data,
	}
}

// NewNotification builds a subscription notification addressed to a
// stored route.
func NewNotification(route Route, command string, id uint32, data []byte) *Outgoing {
	return &Outgoing{Route: route, Command: command, ID: id, Data: data}
}

// Msg encodes the message frames. The routing identifier frame is
// present only when the route carries one, and the delimiter frame only
// when the route is delimited.
func (o *Outgoing) Msg() zmq4.Msg {
	var id [idSize]byte
	binary.LittleEndian.PutUint32(id[:], o.ID)

	frames := make([][]byte, 0, 5)
	if o.Route.Address != "" {
		frames = append(frames, o.Route.AddressBytes())
	}
	if o.Route.Delimited {
		frames = append(frames, []byte{})
	}
	frames = append(frames, []byte(o.Command), id[:], o.Data)
	return zmq4.NewMsgFrom(frames...)
}

// Send encodes and sends the message on the socket.
func (o *Outgoing) Send(sock zmq4.Socket) error {
	return sock.Send(o.Msg())
}
