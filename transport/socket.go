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

// Package transport wraps socket construction and endpoint access
// control for the message fabric.
package transport

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// Kind enumerates the socket roles used by the services.
type Kind int

const (
	Router Kind = iota
	Dealer
	Publisher
	Pusher
)

func (k Kind) String() string {
	switch k {
	case Router:
		return "router"
	case Dealer:
		return "dealer"
	case Publisher:
		return "publisher"
	case Pusher:
		return "pusher"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NewSocket constructs a socket of the given role.
func NewSocket(ctx context.Context, kind Kind, opts ...zmq4.Option) zmq4.Socket {
	switch kind {
	case Router:
		return zmq4.NewRouter(ctx, opts...)
	case Dealer:
		return zmq4.NewDealer(ctx, opts...)
	case Publisher:
		return zmq4.NewPub(ctx, opts...)
	case Pusher:
		return zmq4.NewPush(ctx, opts...)
	default:
		panic(fmt.Sprintf("transport: unknown socket kind %d", int(kind)))
	}
}
