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

package worker

// attachInterface registers the published command set. Class and method
// names are part of the wire protocol.
func (w *Worker) attachInterface() {
	w.Attach("blockchain.fetch_last_height", w.fetchLastHeight)
	w.Attach("blockchain.fetch_block_header", w.fetchBlockHeader)
	w.Attach("blockchain.fetch_transaction", w.fetchChainTransaction)
	w.Attach("blockchain.fetch_transaction_index", w.fetchTransactionIndex)
	w.Attach("blockchain.fetch_history", w.fetchHistory)
	w.Attach("blockchain.fetch_history2", w.fetchHistory2)
	w.Attach("blockchain.fetch_stealth", w.fetchStealth)

	w.Attach("transaction_pool.broadcast", w.poolBroadcast)
	w.Attach("transaction_pool.validate2", w.poolValidate)
	w.Attach("transaction_pool.fetch_transaction", w.fetchPoolTransaction)

	w.Attach("protocol.broadcast_transaction", w.protocolBroadcast)
	w.Attach("protocol.total_connections", w.totalConnections)

	w.Attach("address.subscribe", w.addressSubscribe)
	w.Attach("address.renew", w.addressRenew)
	w.Attach("address.unsubscribe", w.addressUnsubscribe)

	w.Attach("server.version", w.serverVersion)
}
