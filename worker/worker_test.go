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
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/params"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/subscription"
)

func newTestWorker(t *testing.T) (*Worker, *node.Memory, *subscription.Manager) {
	t.Helper()
	backend := node.NewMemory()
	subs := subscription.NewManager(1000, 10*time.Minute)
	return New(backend, subs, false), backend, subs
}

// dispatch runs one request through the worker and waits for the reply.
func dispatch(t *testing.T, w *Worker, command string, id uint32, data []byte) *message.Outgoing {
	t.Helper()
	replies := make(chan *message.Outgoing, 1)
	request := &message.Incoming{
		Route:   message.Route{Address: "test-client"},
		Command: command,
		ID:      id,
		Data:    data,
	}
	w.Dispatch(request, func(out *message.Outgoing) { replies <- out })
	select {
	case out := <-replies:
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply to %s", command)
		return nil
	}
}

func responseCode(t *testing.T, out *message.Outgoing) status.Code {
	t.Helper()
	code, ok := status.FromBytes(out.Data)
	require.True(t, ok, "response payload shorter than a code")
	return code
}

func payToHash(t *testing.T, hash [20]byte) []byte {
	t.Helper()
	addr, err := btcutil.NewAddressPubKeyHash(hash[:], &chaincfg.MainNetParams)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return script
}

// paymentTx pays value to hash, spending a synthetic outpoint that
// keeps the tx hash unique.
func paymentTx(t *testing.T, value int64, hash [20]byte, salt byte) *wire.MsgTx {
	t.Helper()
	tx := wire.NewMsgTx(wire.TxVersion)
	prev := wire.OutPoint{Hash: chainhash.Hash{0xee, salt}, Index: 0}
	tx.AddTxIn(wire.NewTxIn(&prev, nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, payToHash(t, hash)))
	return tx
}

var nextNonce uint32

func makeBlock(txs ...*wire.MsgTx) *wire.MsgBlock {
	nextNonce++
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			Bits:      0x1d00ffff,
			Nonce:     nextNonce,
			Timestamp: time.Unix(1700000000+int64(nextNonce), 0),
		},
	}
	for _, tx := range txs {
		block.AddTransaction(tx)
	}
	return block
}

func TestFetchLastHeightScenario(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	// Genesis sits at zero; extend the chain to height 1500.
	for i := 0; i < 1500; i++ {
		backend.AddBlock(makeBlock())
	}

	out := dispatch(t, w, "blockchain.fetch_last_height", 0x00112233, nil)
	require.Equal(t, "blockchain.fetch_last_height", out.Command)
	require.Equal(t, uint32(0x00112233), out.ID)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0xdc, 0x05, 0x00, 0x00}, out.Data)
}

func TestUnknownCommandScenario(t *testing.T) {
	w, _, _ := newTestWorker(t)
	out := dispatch(t, w, "blockchain.gibberish", 0xdeadbeef, nil)
	require.Equal(t, uint32(0xdeadbeef), out.ID)
	require.Len(t, out.Data, 4, "pure-error response must be the code alone")
	require.Equal(t, status.NotFound, responseCode(t, out))
}

func TestFetchLastHeightRejectsPayload(t *testing.T) {
	w, _, _ := newTestWorker(t)
	out := dispatch(t, w, "blockchain.fetch_last_height", 1, []byte{0x01})
	require.Equal(t, status.BadStream, responseCode(t, out))
	require.Len(t, out.Data, 4)
}

func TestFetchBlockHeader(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	block := makeBlock()
	height := backend.AddBlock(block)

	var want bytes.Buffer
	require.NoError(t, block.Header.Serialize(&want))
	require.Len(t, want.Bytes(), 80)

	// By height.
	out := dispatch(t, w, "blockchain.fetch_block_header", 2, leUint32(height))
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, want.Bytes(), out.Data[4:])

	// By hash.
	hash := block.BlockHash()
	out = dispatch(t, w, "blockchain.fetch_block_header", 3, hash[:])
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, want.Bytes(), out.Data[4:])

	// Miss and malformed.
	out = dispatch(t, w, "blockchain.fetch_block_header", 4, leUint32(9999))
	require.Equal(t, status.NotFound, responseCode(t, out))
	out = dispatch(t, w, "blockchain.fetch_block_header", 5, []byte{1, 2, 3})
	require.Equal(t, status.BadStream, responseCode(t, out))
}

func TestFetchTransaction(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	var hash [20]byte
	hash[0] = 0x42
	tx := paymentTx(t, 5000, hash, 1)
	backend.AddBlock(makeBlock(tx))

	txHash := tx.TxHash()
	raw, err := serializeTx(tx)
	require.NoError(t, err)

	out := dispatch(t, w, "blockchain.fetch_transaction", 6, txHash[:])
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, raw, out.Data[4:])

	missing := chainhash.Hash{0x01}
	out = dispatch(t, w, "blockchain.fetch_transaction", 7, missing[:])
	require.Equal(t, status.NotFound, responseCode(t, out))
	require.Len(t, out.Data, 4)

	out = dispatch(t, w, "blockchain.fetch_transaction", 8, []byte{0x00})
	require.Equal(t, status.BadStream, responseCode(t, out))
}

func TestFetchTransactionIndex(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	var hash [20]byte
	hash[0] = 0x43
	tx := paymentTx(t, 5000, hash, 2)
	height := backend.AddBlock(makeBlock(tx))

	txHash := tx.TxHash()
	out := dispatch(t, w, "blockchain.fetch_transaction_index", 9, txHash[:])
	require.Equal(t, status.Success, responseCode(t, out))
	require.Len(t, out.Data, 12)
	require.Equal(t, height, binary.LittleEndian.Uint32(out.Data[4:8]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(out.Data[8:12]))
}

func TestFetchHistory(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	var addrHash [20]byte
	addrHash[0] = 0xab
	addrHash[19] = 0x99

	funding := paymentTx(t, 7000, addrHash, 3)
	fundingHeight := backend.AddBlock(makeBlock(funding))

	// Spend the funded output in the next block.
	var other [20]byte
	other[0] = 0x11
	spender := wire.NewMsgTx(wire.TxVersion)
	fundingHash := funding.TxHash()
	spender.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: fundingHash, Index: 0}, nil, nil))
	spender.AddTxOut(wire.NewTxOut(6000, payToHash(t, other)))
	spendHeight := backend.AddBlock(makeBlock(spender))

	request := append([]byte{0x00}, addrHash[:]...)
	out := dispatch(t, w, "blockchain.fetch_history", 10, request)
	require.Equal(t, status.Success, responseCode(t, out))

	rows := out.Data[4:]
	require.Equal(t, historyRowSize, len(rows), "rows size must be 88*n")

	require.Equal(t, fundingHash[:], rows[:32])
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(rows[32:36]))
	require.Equal(t, fundingHeight, binary.LittleEndian.Uint32(rows[36:40]))
	require.Equal(t, uint64(7000), binary.LittleEndian.Uint64(rows[40:48]))
	spenderHash := spender.TxHash()
	require.Equal(t, spenderHash[:], rows[48:80])
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(rows[80:84]))
	require.Equal(t, spendHeight, binary.LittleEndian.Uint32(rows[84:88]))

	// fetch_history2 drops the version byte, same rows.
	out2 := dispatch(t, w, "blockchain.fetch_history2", 11, addrHash[:])
	require.Equal(t, status.Success, responseCode(t, out2))
	require.Equal(t, rows, out2.Data[4:])

	// A from_height above the funding block filters the row out.
	withHeight := append(append([]byte{0x00}, addrHash[:]...), leUint32(spendHeight+1)...)
	out3 := dispatch(t, w, "blockchain.fetch_history", 12, withHeight)
	require.Equal(t, status.Success, responseCode(t, out3))
	require.Len(t, out3.Data, 4)

	// Unknown address: success with zero rows, a 4-byte trailer alone.
	var cold [20]byte
	cold[7] = 0x70
	out4 := dispatch(t, w, "blockchain.fetch_history2", 13, cold[:])
	require.Equal(t, status.Success, responseCode(t, out4))
	require.Len(t, out4.Data, 4)

	// Truncated argument.
	out5 := dispatch(t, w, "blockchain.fetch_history", 14, []byte{0x00, 0x01})
	require.Equal(t, status.BadStream, responseCode(t, out5))
}

func TestFetchStealth(t *testing.T) {
	w, backend, _ := newTestWorker(t)

	prefix := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	data := make([]byte, 36)
	copy(data, prefix)
	for i := 4; i < 36; i++ {
		data[i] = byte(i)
	}
	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).AddData(data).Script()
	require.NoError(t, err)

	var payTo [20]byte
	payTo[0] = 0x31
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{0x9a}, Index: 0}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, script))
	tx.AddTxOut(wire.NewTxOut(1234, payToHash(t, payTo)))
	backend.AddBlock(makeBlock(tx))

	request := append([]byte{16}, 0xaa, 0xbb)
	out := dispatch(t, w, "blockchain.fetch_stealth", 15, request)
	require.Equal(t, status.Success, responseCode(t, out))

	rows := out.Data[4:]
	require.Len(t, rows, 84)
	require.Equal(t, data[4:36], rows[:32])
	require.Equal(t, payTo[:], rows[32:52])
	txHash := tx.TxHash()
	require.Equal(t, txHash[:], rows[52:84])

	// A prefix that does not match yields zero rows.
	miss := append([]byte{16}, 0xaa, 0xcc)
	out = dispatch(t, w, "blockchain.fetch_stealth", 16, miss)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Len(t, out.Data, 4)

	// Wrong block count for the bit width.
	out = dispatch(t, w, "blockchain.fetch_stealth", 17, []byte{16, 0xaa})
	require.Equal(t, status.BadStream, responseCode(t, out))
}

func TestPoolBroadcastAndFetch(t *testing.T) {
	w, _, _ := newTestWorker(t)

	var hash [20]byte
	hash[0] = 0x55
	tx := paymentTx(t, 9000, hash, 4)
	raw, err := serializeTx(tx)
	require.NoError(t, err)

	out := dispatch(t, w, "transaction_pool.broadcast", 20, raw)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Len(t, out.Data, 4, "broadcast response is the code alone")

	// The admitted transaction is fetchable from the pool.
	txHash := tx.TxHash()
	out = dispatch(t, w, "transaction_pool.fetch_transaction", 21, txHash[:])
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, raw, out.Data[4:])

	// Re-admission is rejected.
	out = dispatch(t, w, "transaction_pool.validate2", 22, raw)
	require.Equal(t, status.InvalidArgument, responseCode(t, out))

	// Garbage is a bad stream.
	out = dispatch(t, w, "transaction_pool.broadcast", 23, []byte{0xff, 0xfe})
	require.Equal(t, status.BadStream, responseCode(t, out))
}

func TestProtocolCommands(t *testing.T) {
	w, backend, _ := newTestWorker(t)
	backend.SetTotalConnections(8)

	out := dispatch(t, w, "protocol.total_connections", 30, nil)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, uint32(8), binary.LittleEndian.Uint32(out.Data[4:]))

	var hash [20]byte
	hash[0] = 0x56
	tx := paymentTx(t, 100, hash, 5)
	raw, err := serializeTx(tx)
	require.NoError(t, err)
	out = dispatch(t, w, "protocol.broadcast_transaction", 31, raw)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Len(t, out.Data, 4)

	out = dispatch(t, w, "server.version", 32, nil)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, params.Version, string(out.Data[4:]))
}

func TestAddressCommands(t *testing.T) {
	w, _, subs := newTestWorker(t)
	payload := []byte{0x00, 8, 0xab}

	out := dispatch(t, w, "address.subscribe", 40, payload)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, 1, subs.Len())

	out = dispatch(t, w, "address.renew", 41, payload)
	require.Equal(t, status.Success, responseCode(t, out))

	out = dispatch(t, w, "address.unsubscribe", 42, payload)
	require.Equal(t, status.Success, responseCode(t, out))
	require.Equal(t, 0, subs.Len())

	out = dispatch(t, w, "address.renew", 43, payload)
	require.Equal(t, status.NotFound, responseCode(t, out))
}

func TestCorrelationPreserved(t *testing.T) {
	w, _, _ := newTestWorker(t)
	for _, id := range []uint32{0, 1, 0xffffffff, 0x00112233} {
		out := dispatch(t, w, "protocol.total_connections", id, nil)
		require.Equal(t, id, out.ID)
		require.Equal(t, "protocol.total_connections", out.Command)
	}
}

func TestHandlerPanicContained(t *testing.T) {
	w, _, _ := newTestWorker(t)
	w.Attach("explode", func(*message.Incoming, SendHandler) {
		panic("boom")
	})

	w.Dispatch(&message.Incoming{Command: "explode"}, func(*message.Outgoing) {})

	// The worker keeps serving.
	out := dispatch(t, w, "server.version", 50, nil)
	require.Equal(t, status.Success, responseCode(t, out))
}
