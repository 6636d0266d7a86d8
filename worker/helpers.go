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
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitroute/bitroute/node"
)

// historyRowSize is the encoded width of one fetch_history row.
const historyRowSize = 88

func leUint32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func parseHash(data []byte) (chainhash.Hash, bool) {
	var hash chainhash.Hash
	if len(data) != chainhash.HashSize {
		return hash, false
	}
	copy(hash[:], data)
	return hash, true
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeTx(data []byte) (*wire.MsgTx, bool) {
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, false
	}
	return tx, true
}

func serializeHeader(header *wire.BlockHeader) ([]byte, error) {
	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeHistory renders rows as repeated
// [ out_hash:32 ] [ out_ix:4 ] [ out_height:4 ] [ value:8 ]
// [ spend_hash:32 ] [ spend_ix:4 ] [ spend_height:4 ]
func encodeHistory(rows []node.HistoryRow) []byte {
	out := make([]byte, 0, len(rows)*historyRowSize)
	for _, row := range rows {
		out = append(out, row.OutputHash[:]...)
		out = binary.LittleEndian.AppendUint32(out, row.OutputIndex)
		out = binary.LittleEndian.AppendUint32(out, row.OutputHeight)
		out = binary.LittleEndian.AppendUint64(out, row.Value)
		out = append(out, row.SpendHash[:]...)
		out = binary.LittleEndian.AppendUint32(out, row.SpendIndex)
		out = binary.LittleEndian.AppendUint32(out, row.SpendHeight)
	}
	return out
}

// encodeStealth renders rows as repeated
// [ ephem_key:32 ] [ addr_hash:20 ] [ tx_hash:32 ]
func encodeStealth(rows []node.StealthRow) []byte {
	out := make([]byte, 0, len(rows)*84)
	for _, row := range rows {
		out = append(out, row.EphemeralKey[:]...)
		out = append(out, row.AddressHash[:]...)
		out = append(out, row.TxHash[:]...)
	}
	return out
}
