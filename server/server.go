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

// Package server assembles the services around one node backend.
package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/config"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/service"
	"github.com/bitroute/bitroute/subscription"
	"github.com/bitroute/bitroute/transport"
	"github.com/bitroute/bitroute/worker"
)

var log = logrus.WithField("prefix", "server")

type stoppable interface {
	Stop() bool
}

// Server owns the query, heartbeat and publisher services, the worker
// pools behind the query endpoints, and the subscription manager they
// share.
type Server struct {
	settings *config.Settings
	backend  node.Backend

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	subs     *subscription.Manager
	services []stoppable
	workers  []*worker.Worker
}

// New wires a server around the backend. Nothing is bound until Start.
func New(settings *config.Settings, backend node.Backend) *Server {
	return &Server{settings: settings, backend: backend}
}

// SubscriptionManager exposes the shared manager, nil before Start.
func (s *Server) SubscriptionManager() *subscription.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs
}

// Start validates settings and brings every configured service up. On
// any failure the services already started are stopped again.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if err := s.settings.Validate(); err != nil {
		return err
	}

	auth := transport.NewAuthenticator(s.settings)
	s.subs = subscription.NewManager(s.settings.SubscriptionLimit, s.settings.SubscriptionExpiration())
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	fail := func(what string) error {
		s.teardown()
		return fmt.Errorf("server: %s failed to start", what)
	}

	if s.settings.QueriesEnabled {
		endpoints := []struct {
			endpoint string
			secure   bool
		}{
			{s.settings.QueryEndpoint, false},
			{s.settings.SecureQueryEndpoint, true},
		}
		for _, ep := range endpoints {
			if ep.endpoint == "" {
				continue
			}
			query := service.NewQueryService(ep.endpoint, ep.secure, auth)
			if !query.Start() {
				return fail("query service")
			}
			s.services = append(s.services, query)

			for i := 0; i < s.settings.QueryWorkers; i++ {
				w := worker.New(s.backend, s.subs, ep.secure)
				if err := w.Start(ctx, query.WorkerEndpoint()); err != nil {
					s.teardown()
					return fmt.Errorf("server: worker: %v", err)
				}
				s.workers = append(s.workers, w)
			}
		}
	}

	if s.settings.HeartbeatEndpoint != "" {
		heartbeat := service.NewHeartbeatService(
			s.settings.HeartbeatEndpoint, s.settings.HeartbeatInterval(), auth, s.subs.Sweep)
		if !heartbeat.Start() {
			return fail("heartbeat service")
		}
		s.services = append(s.services, heartbeat)
	}

	if s.settings.PublisherEnabled {
		if endpoint := s.settings.BlockPublishEndpoint; endpoint != "" {
			blocks := service.NewBlockService(endpoint, s.backend, s.subs, auth)
			if !blocks.Start() {
				return fail("block publish service")
			}
			s.services = append(s.services, blocks)
		}
		if endpoint := s.settings.TransactionPublishEndpoint; endpoint != "" {
			txs := service.NewTransactionService(endpoint, s.backend, s.subs, auth)
			if !txs.Start() {
				return fail("transaction publish service")
			}
			s.services = append(s.services, txs)
		}
	}

	s.running = true
	log.Info("Server started")
	return nil
}

// Stop brings every service down in reverse start order. Idempotent.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.teardown()
	s.running = false
	log.Info("Server stopped")
}

func (s *Server) teardown() {
	for _, w := range s.workers {
		w.Stop()
	}
	s.workers = nil
	for i := len(s.services) - 1; i >= 0; i-- {
		s.services[i].Stop()
	}
	s.services = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
