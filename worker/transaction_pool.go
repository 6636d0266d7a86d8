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

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/status"
)

// [ tx ] -> [ ]
//
// Validates and admits the transaction, then relays it to peers.
func (w *Worker) poolBroadcast(request *message.Incoming, reply SendHandler) {
	tx, ok := deserializeTx(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Pool().Organize(tx, func(code status.Code) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		w.backend.Protocol().BroadcastTransaction(tx, func(code status.Code) {
			respond(request, reply, code)
		})
	})
}

// [ tx ] -> [ ]
//
// Validates and admits the transaction without relaying it.
func (w *Worker) poolValidate(request *message.Incoming, reply SendHandler) {
	tx, ok := deserializeTx(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Pool().Organize(tx, func(code status.Code) {
		respond(request, reply, code)
	})
}

// [ tx_hash:32 ] -> [ tx ]
func (w *Worker) fetchPoolTransaction(request *message.Incoming, reply SendHandler) {
	hash, ok := parseHash(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Pool().FetchTransaction(hash, func(code status.Code, tx *wire.MsgTx) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		raw, err := serializeTx(tx)
		if err != nil {
			respond(request, reply, status.InvalidArgument)
			return
		}
		respond(request, reply, status.Success, raw)
	})
}
