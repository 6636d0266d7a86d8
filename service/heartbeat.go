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

package service

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/transport"
)

var heartbeatsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bitroute_heartbeats_total",
	Help: "Heartbeat pulses published",
})

// HeartbeatService publishes a monotonic 32-bit counter on every pulse.
// The subscription sweeper runs on the same cadence.
type HeartbeatService struct {
	endpoint string
	interval time.Duration
	auth     *transport.Authenticator

	// sweep, when set, runs after every pulse.
	sweep func()

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	pub     zmq4.Socket
	quit    chan struct{}
	done    sync.WaitGroup

	// counter is owned by the single service goroutine.
	counter uint32
}

// NewHeartbeatService builds the pulse publisher. sweep may be nil.
func NewHeartbeatService(endpoint string, interval time.Duration, auth *transport.Authenticator, sweep func()) *HeartbeatService {
	return &HeartbeatService{
		endpoint: endpoint,
		interval: interval,
		auth:     auth,
		sweep:    sweep,
	}
}

// Start binds the publisher and begins pulsing. Restartable.
func (s *HeartbeatService) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := transport.NewSocket(ctx, transport.Publisher)
	if !s.auth.Apply(pub, "heartbeat", false) {
		cancel()
		return false
	}
	if err := pub.Listen(s.endpoint); err != nil {
		log.WithError(err).WithField("endpoint", s.endpoint).Error("Failed to bind heartbeat endpoint")
		cancel()
		return false
	}

	s.cancel = cancel
	s.pub = pub
	s.quit = make(chan struct{})
	s.running = true
	s.done.Add(1)
	go s.work()

	log.WithFields(logrus.Fields{
		"endpoint": s.endpoint,
		"interval": s.interval,
	}).Info("Heartbeat service started")
	return true
}

// Stop cancels the next scheduled pulse and unbinds. Idempotent.
func (s *HeartbeatService) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return true
	}
	close(s.quit)
	s.done.Wait()
	s.pub.Close()
	s.cancel()
	s.running = false
	return true
}

func (s *HeartbeatService) work() {
	defer s.done.Done()
	// Ticker semantics collapse missed ticks; there is no catch-up.
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.publish()
			if s.sweep != nil {
				s.sweep()
			}
		case <-s.quit:
			return
		}
	}
}

// publish sends one pulse. A send failure is logged and the counter
// still advances.
func (s *HeartbeatService) publish() {
	var frame [4]byte
	binary.LittleEndian.PutUint32(frame[:], s.counter)
	if err := s.pub.Send(zmq4.NewMsg(frame[:])); err != nil {
		log.WithError(err).Warn("Heartbeat send failed")
	}
	s.counter++
	heartbeatsPublished.Inc()
}
