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
	"encoding/binary"

	"github.com/btcsuite/btcd/wire"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/subscription"
)

// [ ] -> [ height:4 ]
func (w *Worker) fetchLastHeight(request *message.Incoming, reply SendHandler) {
	if len(request.Data) != 0 {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Chain().FetchLastHeight(func(code status.Code, height uint32) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		respond(request, reply, status.Success, leUint32(height))
	})
}

// [ height:4 ] or [ block_hash:32 ] -> [ header:80 ]
func (w *Worker) fetchBlockHeader(request *message.Incoming, reply SendHandler) {
	done := func(code status.Code, header *wire.BlockHeader) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		raw, err := serializeHeader(header)
		if err != nil {
			respond(request, reply, status.InvalidArgument)
			return
		}
		respond(request, reply, status.Success, raw)
	}

	switch len(request.Data) {
	case 4:
		height := binary.LittleEndian.Uint32(request.Data)
		w.backend.Chain().FetchBlockHeaderByHeight(height, done)
	case 32:
		hash, _ := parseHash(request.Data)
		w.backend.Chain().FetchBlockHeaderByHash(hash, done)
	default:
		respond(request, reply, status.BadStream)
	}
}

// [ tx_hash:32 ] -> [ tx ]
func (w *Worker) fetchChainTransaction(request *message.Incoming, reply SendHandler) {
	hash, ok := parseHash(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Chain().FetchTransaction(hash, func(code status.Code, tx *wire.MsgTx) {
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

// [ tx_hash:32 ] -> [ height:4 ] [ position:4 ]
func (w *Worker) fetchTransactionIndex(request *message.Incoming, reply SendHandler) {
	hash, ok := parseHash(request.Data)
	if !ok {
		respond(request, reply, status.BadStream)
		return
	}
	w.backend.Chain().FetchTransactionIndex(hash, func(code status.Code, height, position uint32) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		respond(request, reply, status.Success, leUint32(height), leUint32(position))
	})
}

// [ version:1 ] [ addr_hash:20 ] [ from_height:4 (optional) ] -> history rows
func (w *Worker) fetchHistory(request *message.Incoming, reply SendHandler) {
	w.fetchHistoryCommon(request, reply, true)
}

// [ addr_hash:20 ] [ from_height:4 (optional) ] -> history rows
//
// The second layout drops the leading address version byte; the
// semantics are identical.
func (w *Worker) fetchHistory2(request *message.Incoming, reply SendHandler) {
	w.fetchHistoryCommon(request, reply, false)
}

func (w *Worker) fetchHistoryCommon(request *message.Incoming, reply SendHandler, versioned bool) {
	data := request.Data
	if versioned {
		if len(data) < 1 {
			respond(request, reply, status.BadStream)
			return
		}
		data = data[1:]
	}

	var fromHeight uint32
	switch len(data) {
	case 20:
	case 24:
		fromHeight = binary.LittleEndian.Uint32(data[20:])
	default:
		respond(request, reply, status.BadStream)
		return
	}
	var addrHash [20]byte
	copy(addrHash[:], data[:20])

	w.backend.Chain().FetchHistory(addrHash, fromHeight, func(code status.Code, rows []node.HistoryRow) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		respond(request, reply, status.Success, encodeHistory(rows))
	})
}

// [ bits:1 ] [ prefix:ceil(bits/8) ] [ from_height:4 (optional) ] -> stealth rows
func (w *Worker) fetchStealth(request *message.Incoming, reply SendHandler) {
	data := request.Data
	if len(data) < 1 {
		respond(request, reply, status.BadStream)
		return
	}
	bits := int(data[0])
	blocks := subscription.BlocksSize(bits)

	var fromHeight uint32
	switch len(data) {
	case 1 + blocks:
	case 1 + blocks + 4:
		fromHeight = binary.LittleEndian.Uint32(data[1+blocks:])
	default:
		respond(request, reply, status.BadStream)
		return
	}
	prefix, err := subscription.NewBinary(bits, data[1:1+blocks])
	if err != nil {
		respond(request, reply, status.BadStream)
		return
	}

	w.backend.Chain().FetchStealth(prefix, fromHeight, func(code status.Code, rows []node.StealthRow) {
		if code != status.Success {
			respond(request, reply, code)
			return
		}
		respond(request, reply, status.Success, encodeStealth(rows))
	})
}
