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
	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/params"
	"github.com/bitroute/bitroute/status"
)

// [ tx ] -> [ ]
//
// Relays the transaction to peers without touching the pool.
func (w *Worker) protocolBroadcast(request *message.Incoming, reply SendHandler) {
	tx, ok := deserializeTx(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Protocol().BroadcastTransaction(tx, func(code status.Code) {
		respond(request, reply, code)
	})
}

// [ ] -> [ count:4 ]
func (w *Worker) totalConnections(request *message.Incoming, reply SendHandler) {
	if len(request.Data) != 0 {
		respond(request, reply, status.BadStream)
		return
	}
	respond(request, reply, status.Success, leUint32(w.backend.Protocol().TotalConnections()))
}

// [ ] -> [ version string ]
func (w *Worker) serverVersion(request *message.Incoming, reply SendHandler) {
	if len(request.Data) != 0 {
		respond(request, reply, status.BadStream)
		return
	}
	respond(request, reply, status.Success, []byte(params.Version))
}
