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

package node

import (
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitroute/bitroute/event"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/subscription"
)

// Memory is an in-process Backend over a height-indexed chain of
// blocks. It backs the default server binary and the tests. Callbacks
// complete on fresh goroutines, matching the async contract of a real
// node.
type Memory struct {
	mu     sync.RWMutex
	blocks []*wire.MsgBlock
	index  map[chainhash.Hash]txLocation
	spends map[wire.OutPoint]spend
	pool   map[chainhash.Hash]*wire.MsgTx

	connections atomic.Uint32

	reorgFeed event.Feed
	txFeed    event.Feed
}

type txLocation struct {
	tx       *wire.MsgTx
	height   uint32
	position uint32
}

type spend struct {
	hash   chainhash.Hash
	index  uint32
	height uint32
}

// NewMemory returns a backend seeded with the mainnet genesis block at
// height zero, so every later block has a well-defined fork point.
func NewMemory() *Memory {
	m := &Memory{
		index:  make(map[chainhash.Hash]txLocation),
		spends: make(map[wire.OutPoint]spend),
		pool:   make(map[chainhash.Hash]*wire.MsgTx),
	}
	m.insert(chaincfg.MainNetParams.GenesisBlock)
	return m
}

// insert appends and indexes a block without firing events.
func (m *Memory) insert(block *wire.MsgBlock) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	height := uint32(len(m.blocks))
	m.blocks = append(m.blocks, block)
	for pos, tx := range block.Transactions {
		hash := tx.TxHash()
		m.index[hash] = txLocation{tx: tx, height: height, position: uint32(pos)}
		delete(m.pool, hash)
		for i, in := range tx.TxIn {
			m.spends[in.PreviousOutPoint] = spend{hash: hash, index: uint32(i), height: height}
		}
	}
	return height
}

func (m *Memory) Chain() Chain       { return m }
func (m *Memory) Pool() Pool         { return m }
func (m *Memory) Protocol() Protocol { return m }

// AddBlock appends a block to the chain tip, indexes its transactions,
// evicts them from the pool, and fires a reorganization event. It
// returns the new block's height.
func (m *Memory) AddBlock(block *wire.MsgBlock) uint32 {
	height := m.insert(block)
	m.reorgFeed.Send(ReorgEvent{ForkHeight: height - 1, NewBlocks: []*wire.MsgBlock{block}})
	return height
}

// SetTotalConnections fixes the peer count reported to clients.
func (m *Memory) SetTotalConnections(n uint32) {
	m.connections.Store(n)
}

func (m *Memory) SubscribeReorg(ch chan<- ReorgEvent) event.Subscription {
	return m.reorgFeed.Subscribe(ch)
}

func (m *Memory) SubscribeAcceptedTx(ch chan<- *wire.MsgTx) event.Subscription {
	return m.txFeed.Subscribe(ch)
}

func (m *Memory) async(fn func()) { go fn() }

// Chain implementation.

func (m *Memory) FetchLastHeight(cb func(status.Code, uint32)) {
	m.async(func() {
		m.mu.RLock()
		n := len(m.blocks)
		m.mu.RUnlock()
		if n == 0 {
			cb(status.NotFound, 0)
			return
		}
		cb(status.Success, uint32(n-1))
	})
}

func (m *Memory) FetchBlockHeaderByHeight(height uint32, cb func(status.Code, *wire.BlockHeader)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		if int(height) >= len(m.blocks) {
			cb(status.NotFound, nil)
			return
		}
		header := m.blocks[height].Header
		cb(status.Success, &header)
	})
}

func (m *Memory) FetchBlockHeaderByHash(hash chainhash.Hash, cb func(status.Code, *wire.BlockHeader)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		for _, block := range m.blocks {
			if block.BlockHash() == hash {
				header := block.Header
				cb(status.Success, &header)
				return
			}
		}
		cb(status.NotFound, nil)
	})
}

func (m *Memory) FetchTransaction(hash chainhash.Hash, cb func(status.Code, *wire.MsgTx)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		if loc, ok := m.index[hash]; ok {
			cb(status.Success, loc.tx)
			return
		}
		if tx, ok := m.pool[hash]; ok {
			cb(status.Success, tx)
			return
		}
		cb(status.NotFound, nil)
	})
}

func (m *Memory) FetchTransactionIndex(hash chainhash.Hash, cb func(status.Code, uint32, uint32)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		loc, ok := m.index[hash]
		if !ok {
			cb(status.NotFound, 0, 0)
			return
		}
		cb(status.Success, loc.height, loc.position)
	})
}

func (m *Memory) FetchHistory(addrHash [20]byte, fromHeight uint32, cb func(status.Code, []HistoryRow)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		var rows []HistoryRow
		for height, block := range m.blocks {
			if uint32(height) < fromHeight {
				continue
			}
			for _, tx := range block.Transactions {
				txHash := tx.TxHash()
				for i, out := range tx.TxOut {
					_, hash, ok := subscription.PaymentAddress(out.PkScript)
					if !ok || hash != addrHash {
						continue
					}
					row := HistoryRow{
						OutputHash:   txHash,
						OutputIndex:  uint32(i),
						OutputHeight: uint32(height),
						Value:        uint64(out.Value),
						SpendIndex:   MaxUnspent,
						SpendHeight:  MaxUnspent,
					}
					point := wire.OutPoint{Hash: txHash, Index: uint32(i)}
					if sp, spent := m.spends[point]; spent {
						row.SpendHash = sp.hash
						row.SpendIndex = sp.index
						row.SpendHeight = sp.height
					}
					rows = append(rows, row)
				}
			}
		}
		cb(status.Success, rows)
	})
}

func (m *Memory) FetchStealth(prefix subscription.Binary, fromHeight uint32, cb func(status.Code, []StealthRow)) {
	m.async(func() {
		m.mu.RLock()
		defer m.mu.RUnlock()
		var rows []StealthRow
		for height, block := range m.blocks {
			if uint32(height) < fromHeight {
				continue
			}
			for _, tx := range block.Transactions {
				st, ok := subscription.ExtractStealth(tx)
				if !ok || !prefix.Matches(st.Prefix[:]) {
					continue
				}
				row := StealthRow{EphemeralKey: st.EphemeralKey, TxHash: tx.TxHash()}
				// The paired payment output carries the receiving
				// address.
				for _, out := range tx.TxOut {
					if _, hash, ok := subscription.PaymentAddress(out.PkScript); ok {
						row.AddressHash = hash
						break
					}
				}
				rows = append(rows, row)
			}
		}
		cb(status.Success, rows)
	})
}

// Pool implementation.

func (m *Memory) Organize(tx *wire.MsgTx, cb func(status.Code)) {
	m.async(func() {
		hash := tx.TxHash()
		m.mu.Lock()
		if _, confirmed := m.index[hash]; confirmed {
			m.mu.Unlock()
			cb(status.InvalidArgument)
			return
		}
		if _, pooled := m.pool[hash]; pooled {
			m.mu.Unlock()
			cb(status.InvalidArgument)
			return
		}
		m.pool[hash] = tx
		m.mu.Unlock()

		m.txFeed.Send(tx)
		cb(status.Success)
	})
}

// Protocol implementation.

func (m *Memory) BroadcastTransaction(tx *wire.MsgTx, cb func(status.Code)) {
	// Broadcast does not touch the pool; the peers are imaginary.
	m.async(func() { cb(status.Success) })
}

func (m *Memory) TotalConnections() uint32 {
	return m.connections.Load()
}
