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

package status

import (
	"bytes"
	"testing"
)

func TestCodeRoundTrip(t *testing.T) {
	codes := []Code{
		Success, BadStream, NotFound, OversubscribedLimit,
		ServiceStopped, ChannelStopped, InvalidArgument,
	}
	for _, code := range codes {
		raw := code.Bytes()
		if len(raw) != Size {
			t.Fatalf("%s: encoded width %d, want %d", code, len(raw), Size)
		}
		decoded, ok := FromBytes(raw)
		if !ok || decoded != code {
			t.Errorf("%s: round trip gave %v (ok=%v)", code, decoded, ok)
		}
	}
}

func TestFromBytesShort(t *testing.T) {
	if _, ok := FromBytes([]byte{0x01, 0x02}); ok {
		t.Error("short payload accepted")
	}
}

func TestFromBytesIgnoresTrailer(t *testing.T) {
	payload := append(NotFound.Bytes(), 0xff, 0xfe)
	code, ok := FromBytes(payload)
	if !ok || code != NotFound {
		t.Errorf("got %v, want NotFound", code)
	}
}

func TestSuccessEncodesLittleEndianZero(t *testing.T) {
	if !bytes.Equal(Success.Bytes(), []byte{0, 0, 0, 0}) {
		t.Errorf("success encoding = %x", Success.Bytes())
	}
}
