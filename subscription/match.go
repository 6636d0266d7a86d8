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

package subscription

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// PaymentAddress extracts the standard payment address of an output
// script. It reports the address version byte, the 20-byte hash, and
// whether the script pays to a P2PKH or P2SH address at all.
func PaymentAddress(pkScript []byte) (version byte, hash [20]byte, ok bool) {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, &chaincfg.MainNetParams)
	if err != nil || len(addrs) != 1 {
		return 0, hash, false
	}
	switch class {
	case txscript.PubKeyHashTy:
		version = chaincfg.MainNetParams.PubKeyHashAddrID
	case txscript.ScriptHashTy:
		version = chaincfg.MainNetParams.ScriptHashAddrID
	default:
		return 0, hash, false
	}
	copy(hash[:], addrs[0].ScriptAddress())
	return version, hash, true
}

// StealthOutput carries the stealth fields a transaction exposes: a
// 4-byte prefix and the sender's ephemeral key, read from the first
// null-data output carrying at least four pushed bytes.
type StealthOutput struct {
	Prefix       [4]byte
	EphemeralKey [32]byte

	// Index is the position of the null-data output within the
	// transaction.
	Index int
}

// ExtractStealth reports the stealth fields of tx, if any.
func ExtractStealth(tx *wire.MsgTx) (StealthOutput, bool) {
	for i, out := range tx.TxOut {
		if txscript.GetScriptClass(out.PkScript) != txscript.NullDataTy {
			continue
		}
		pushes, err := txscript.PushedData(out.PkScript)
		if err != nil || len(pushes) == 0 || len(pushes[0]) < 4 {
			continue
		}
		var st StealthOutput
		st.Index = i
		copy(st.Prefix[:], pushes[0][:4])
		if len(pushes[0]) >= 36 {
			copy(st.EphemeralKey[:], pushes[0][4:36])
		}
		return st, true
	}
	return StealthOutput{}, false
}
