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
	"encoding/binary"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/bitroute/bitroute/config"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/transport"
)

func publishTestTx(salt byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{salt}, Index: 0}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x6a}))
	return tx
}

func publishTestBlock(nonce uint32, txs ...*wire.MsgTx) *wire.MsgBlock {
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Bits:      0x1d00ffff,
			Nonce:     nonce,
			Timestamp: time.Unix(1700000000+int64(nonce), 0),
		},
	}
	for _, tx := range txs {
		block.AddTransaction(tx)
	}
	return block
}

func TestBlockServicePublishesFrames(t *testing.T) {
	auth := transport.NewAuthenticator(config.Defaults())
	backend := node.NewMemory()
	endpoint := "inproc://test/blocks"

	svc := NewBlockService(endpoint, backend, nil, auth)
	require.True(t, svc.Start())
	defer svc.Stop()

	sub := subscribed(t, endpoint)
	defer sub.Close()

	tx1 := publishTestTx(1)
	tx2 := publishTestTx(2)
	block := publishTestBlock(1, tx1, tx2)
	height := backend.AddBlock(block)

	msg := recvMsg(t, sub, 5*time.Second)
	payload := msg.Frames[0]
	require.Len(t, payload, 4+80+32*2)

	require.Equal(t, height, binary.LittleEndian.Uint32(payload[:4]))

	var header bytes.Buffer
	require.NoError(t, block.Header.Serialize(&header))
	require.Equal(t, header.Bytes(), payload[4:84])

	hash1 := tx1.TxHash()
	hash2 := tx2.TxHash()
	require.Equal(t, hash1[:], payload[84:116])
	require.Equal(t, hash2[:], payload[116:148])
}

func TestBlockServicePublishesInOrder(t *testing.T) {
	auth := transport.NewAuthenticator(config.Defaults())
	backend := node.NewMemory()
	endpoint := "inproc://test/blocks-order"

	svc := NewBlockService(endpoint, backend, nil, auth)
	require.True(t, svc.Start())
	defer svc.Stop()

	sub := subscribed(t, endpoint)
	defer sub.Close()

	want := make([]uint32, 0, 3)
	for i := uint32(1); i <= 3; i++ {
		want = append(want, backend.AddBlock(publishTestBlock(100+i)))
	}
	for _, height := range want {
		msg := recvMsg(t, sub, 5*time.Second)
		require.Equal(t, height, binary.LittleEndian.Uint32(msg.Frames[0][:4]))
	}
}

func TestTransactionServicePublishesAcceptedTx(t *testing.T) {
	auth := transport.NewAuthenticator(config.Defaults())
	backend := node.NewMemory()
	endpoint := "inproc://test/transactions"

	svc := NewTransactionService(endpoint, backend, nil, auth)
	require.True(t, svc.Start())
	defer svc.Stop()

	sub := subscribed(t, endpoint)
	defer sub.Close()

	tx := publishTestTx(9)
	codes := make(chan status.Code, 1)
	backend.Organize(tx, func(code status.Code) { codes <- code })
	require.Equal(t, status.Success, <-codes)

	msg := recvMsg(t, sub, 5*time.Second)

	var want bytes.Buffer
	require.NoError(t, tx.Serialize(&want))
	require.Equal(t, want.Bytes(), msg.Frames[0])
}
