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
	"encoding/binary"
	"sync"

	"github.com/btcsuite/btcd/wire"
	"github.com/go-zeromq/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/subscription"
	"github.com/bitroute/bitroute/transport"
)

var blocksPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bitroute_blocks_published_total",
	Help: "Blocks published on the block endpoint",
})

// reorgQueueDepth bounds reorg events waiting on the publish loop.
const reorgQueueDepth = 16

// BlockService publishes one frame per accepted block:
// [ height:4 ] [ header:80 ] [ tx_hash:32 ]...
// and feeds every confirmed transaction to the subscription manager.
type BlockService struct {
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

// NewBlockService builds the block publisher. subs may be nil when the
// subscription fabric is disabled.
func NewBlockService(endpoint string, backend node.Backend, subs *subscription.Manager, auth *transport.Authenticator) *BlockService {
	return &BlockService{endpoint: endpoint, backend: backend, subs: subs, auth: auth}
}

// Start binds the publisher and subscribes to reorganizations.
func (s *BlockService) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return true
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := transport.NewSocket(ctx, transport.Publisher)
	if !s.auth.Apply(pub, "block", false) {
		cancel()
		return false
	}
	if err := pub.Listen(s.endpoint); err != nil {
		log.WithError(err).WithField("endpoint", s.endpoint).Error("Failed to bind block endpoint")
		cancel()
		return false
	}

	s.cancel = cancel
	s.pub = pub
	s.quit = make(chan struct{})
	s.running = true
	s.done.Add(1)
	go s.work()

	log.WithField("endpoint", s.endpoint).Info("Block publish service started")
	return true
}

// Stop ends the publish loop and unbinds. Idempotent.
func (s *BlockService) Stop() bool {
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

func (s *BlockService) work() {
	defer s.done.Done()
	events := make(chan node.ReorgEvent, reorgQueueDepth)
	sub := s.backend.SubscribeReorg(events)
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-events:
			s.publishBlocks(ev)
		case err := <-sub.Err():
			// Terminal service-stopped condition from the node.
			if err != nil {
				log.WithError(err).Warn("Reorganization subscription failed")
			}
			return
		case <-s.quit:
			return
		}
	}
}

// publishBlocks publishes new blocks in the order the node reported
// them. A failed publication is logged and does not hold back the
// blocks behind it.
func (s *BlockService) publishBlocks(ev node.ReorgEvent) {
	for i, block := range ev.NewBlocks {
		height := ev.ForkHeight + 1 + uint32(i)
		if err := s.publishBlock(height, block); err != nil {
			log.WithError(err).WithField("height", height).Warn("Problem publishing block data")
		} else {
			blocksPublished.Inc()
		}
		if s.subs != nil {
			blockHash := block.BlockHash()
			for _, tx := range block.Transactions {
				s.subs.Submit(height, blockHash, tx)
			}
		}
	}
}

func (s *BlockService) publishBlock(height uint32, block *wire.MsgBlock) error {
	var header bytes.Buffer
	if err := block.Header.Serialize(&header); err != nil {
		return err
	}

	// Single frame: height, header, then the hash of every included
	// transaction in block order.
	payload := make([]byte, 0, 4+80+32*len(block.Transactions))
	payload = binary.LittleEndian.AppendUint32(payload, height)
	payload = append(payload, header.Bytes()...)
	for _, tx := range block.Transactions {
		hash := tx.TxHash()
		payload = append(payload, hash[:]...)
	}
	return s.pub.Send(zmq4.NewMsg(payload))
}
