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

// Package node defines the contract of the embedded full node that the
// gateway queries and subscribes to. Chain and pool calls are
// asynchronous: they return immediately and complete through a callback
// on a node-owned goroutine.
package node

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitroute/bitroute/event"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/subscription"
)

// HistoryRow is one output/spend pair of an address history. Unspent
// outputs carry the zero hash and MaxUnspent in the spend fields.
type HistoryRow struct {
	OutputHash   chainhash.Hash
	OutputIndex  uint32
	OutputHeight uint32
	Value        uint64
	SpendHash    chainhash.Hash
	SpendIndex   uint32
	SpendHeight  uint32
}

// MaxUnspent marks the spend index and height of an unspent output row.
const MaxUnspent = ^uint32(0)

// StealthRow is one stealth-index hit.
type StealthRow struct {
	EphemeralKey [32]byte
	AddressHash  [20]byte
	TxHash       chainhash.Hash
}

// ReorgEvent announces the new best chain and the displaced tail. The
// height of NewBlocks[i] is ForkHeight+1+i.
type ReorgEvent struct {
	ForkHeight uint32
	NewBlocks  []*wire.MsgBlock
	OldBlocks  []*wire.MsgBlock
}

// Chain is the blockchain query capability. All fetches are async.
type Chain interface {
	FetchLastHeight(cb func(status.Code, uint32))
	FetchBlockHeaderByHeight(height uint32, cb func(status.Code, *wire.BlockHeader))
	FetchBlockHeaderByHash(hash chainhash.Hash, cb func(status.Code, *wire.BlockHeader))
	FetchTransaction(hash chainhash.Hash, cb func(status.Code, *wire.MsgTx))
	FetchTransactionIndex(hash chainhash.Hash, cb func(status.Code, uint32, uint32))
	FetchHistory(addrHash [20]byte, fromHeight uint32, cb func(status.Code, []HistoryRow))
	FetchStealth(prefix subscription.Binary, fromHeight uint32, cb func(status.Code, []StealthRow))
}

// Pool is the transaction-pool capability.
type Pool interface {
	// Organize validates the transaction and admits it to the pool.
	Organize(tx *wire.MsgTx, cb func(status.Code))
	FetchTransaction(hash chainhash.Hash, cb func(status.Code, *wire.MsgTx))
}

// Protocol is the peer-facing capability.
type Protocol interface {
	BroadcastTransaction(tx *wire.MsgTx, cb func(status.Code))
	TotalConnections() uint32
}

// Backend bundles the node capabilities the services consume.
type Backend interface {
	Chain() Chain
	Pool() Pool
	Protocol() Protocol

	// SubscribeReorg delivers blockchain reorganization events until
	// the subscription is cancelled.
	SubscribeReorg(ch chan<- ReorgEvent) event.Subscription

	// SubscribeAcceptedTx delivers transactions admitted to the pool.
	SubscribeAcceptedTx(ch chan<- *wire.MsgTx) event.Subscription
}
