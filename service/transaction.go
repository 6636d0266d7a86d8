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
	"bytes"
	"context"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-zeromq/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/subscription"
	"github.com/bitroute/bitroute/transport"
)

var transactionsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bitroute_transactions_published_total",
	Help: "Pool transactions published on the transaction endpoint",
})

// txQueueDepth bounds accepted transactions waiting on the publish
// loop.
const txQueueDepth = 64

// TransactionService publishes one frame of canonical transaction bytes
// per pool acceptance, and submits the same transaction to the
// subscription manager at height zero.
type TransactionService struct {
	endpoint string
	backend  node.Backend
	subs     *subscription.Manager
	auth     *transport.Authenticator

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	pub     zmq4.Socket
	quit    chan struct{}
	done    sync.WaitGroup
}

// NewTransactionService builds the transaction publisher. subs may be
// nil when the subscription fabric is disabled.
func NewTransactionService(endpoint string, backend node.Backend, subs *subscription.Manager, auth *transport.Authenticator) *TransactionService {
	return &TransactionService{endpoint: endpoint, backend: backend, subs: subs, auth: auth}
}

// Start binds the publisher and subscribes to pool acceptances.
func (s *TransactionService) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := transport.NewSocket(ctx, transport.Publisher)
	if !s.auth.Apply(pub, "transaction", false) {
		cancel()
		return false
	}
	if err := pub.Listen(s.endpoint); err != nil {
		log.WithError(err).WithField("endpoint", s.endpoint).Error("Failed to bind transaction endpoint")
		cancel()
		return false
	}

	s.cancel = cancel
	s.pub = pub
	s.quit = make(chan struct{})
	s.running = true
	s.done.Add(1)
	go s.work()

	log.WithField("endpoint", s.endpoint).Info("Transaction publish service started")
	return true
}

// Stop ends the publish loop and unbinds. Idempotent.
func (s *TransactionService) Stop() bool {
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

func (s *TransactionService) work() {
	defer s.done.Done()
	accepted := make(chan *wire.MsgTx, txQueueDepth)
	sub := s.backend.SubscribeAcceptedTx(accepted)
	defer sub.Unsubscribe()

	for {
		select {
		case tx := <-accepted:
			s.publishTransaction(tx)
			if s.subs != nil {
				// Pool transactions are unconfirmed: height zero and a
				// zero block hash.
				s.subs.Submit(0, chainhash.Hash{}, tx)
			}
		case err := <-sub.Err():
			if err != nil {
				log.WithError(err).Warn("Accepted-transaction subscription failed")
			}
			return
		case <-s.quit:
			return
		}
	}
}

func (s *TransactionService) publishTransaction(tx *wire.MsgTx) {
	var raw bytes.Buffer
	if err := tx.Serialize(&raw); err != nil {
		log.WithError(err).Warn("Dropping unserializable transaction")
		return
	}
	if err := s.pub.Send(zmq4.NewMsg(raw.Bytes())); err != nil {
		log.WithError(err).Warn("Problem publishing transaction data")
		return
	}
	transactionsPublished.Inc()
}
