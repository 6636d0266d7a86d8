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

// Package service implements the long-running endpoint services: the
// query proxy, the heartbeat pulse, and the block and transaction
// publishers.
package service

import (
	"context"
	"net"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/transport"
)

var log = logrus.WithField("prefix", "service")

// Worker inproc endpoints, one per query security level.
const (
	PublicWorkerEndpoint = "inproc://bitroute/query/public"
	SecureWorkerEndpoint = "inproc://bitroute/query/secure"
)

// QueryService terminates client connections on one external router
// endpoint and bridges them to the worker pool through an internal
// dealer. Between Start and Stop it runs a zero-copy proxy: frames move
// verbatim in both directions, so the routing identifier laid down by
// the router is what the worker echoes back.
type QueryService struct {
	endpoint string
	secure   bool
	auth     *transport.Authenticator

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	router  zmq4.Socket
	dealer  zmq4.Socket
	done    sync.WaitGroup
}

// NewQueryService builds the service for one external endpoint.
func NewQueryService(endpoint string, secure bool, auth *transport.Authenticator) *QueryService {
	return &QueryService{endpoint: endpoint, secure: secure, auth: auth}
}

// Addr returns the bound router address, or nil when stopped. Useful
// when the endpoint was configured with an ephemeral port.
func (s *QueryService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.router.Addr()
}

// WorkerEndpoint returns the internal endpoint workers dial.
func (s *QueryService) WorkerEndpoint() string {
	if s.secure {
		return SecureWorkerEndpoint
	}
	return PublicWorkerEndpoint
}

// Start binds the external router and the internal dealer and runs the
// proxy. It reports whether both binds succeeded. Restartable.
func (s *QueryService) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	router := transport.NewSocket(ctx, transport.Router)
	if !s.auth.Apply(router, "query", s.secure) {
		cancel()
		return false
	}
	if err := router.Listen(s.endpoint); err != nil {
		log.WithError(err).WithField("endpoint", s.endpoint).Error("Failed to bind query endpoint")
		cancel()
		return false
	}
	dealer := transport.NewSocket(ctx, transport.Dealer)
	if err := dealer.Listen(s.WorkerEndpoint()); err != nil {
		log.WithError(err).WithField("endpoint", s.WorkerEndpoint()).Error("Failed to bind worker endpoint")
		router.Close()
		cancel()
		return false
	}

	s.cancel = cancel
	s.router = router
	s.dealer = dealer
	s.running = true

	// One pump per direction. A whole multipart message is a single
	// Msg, so frames are never interleaved.
	s.done.Add(2)
	go s.pump(router, dealer)
	go s.pump(dealer, router)

	log.WithFields(logrus.Fields{
		"endpoint": s.endpoint,
		"secure":   s.secure,
	}).Info("Query service started")
	return true
}

// Stop unbinds in reverse order and ends the proxy loop. Idempotent.
func (s *QueryService) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return true
	}
	s.cancel()
	s.dealer.Close()
	s.router.Close()
	s.done.Wait()
	s.running = false
	log.WithField("endpoint", s.endpoint).Info("Query service stopped")
	return true
}

func (s *QueryService) pump(src, dst zmq4.Socket) {
	defer s.done.Done()
	for {
		msg, err := src.Recv()
		if err != nil {
			// Closed socket or cancelled context; the stop path owns
			// the cleanup.
			return
		}
		if err := dst.Send(msg); err != nil {
			log.WithError(err).Debug("Proxy forward failed")
			return
		}
	}
}
