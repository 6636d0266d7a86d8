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

package transport

import (
	"testing"

	"github.com/bitroute/bitroute/config"
)

func TestApplySecureWithoutServerKey(t *testing.T) {
	auth := NewAuthenticator(config.Defaults())
	if auth.Apply(nil, "query", true) {
		t.Fatal("secure domain admitted without a server key")
	}
	if !auth.Apply(nil, "query", false) {
		t.Fatal("public domain refused")
	}

	settings := config.Defaults()
	settings.ServerPrivateKey = "server-secret"
	auth = NewAuthenticator(settings)
	if !auth.Apply(nil, "query", true) {
		t.Fatal("secure domain refused with a server key")
	}
}

func TestAllowedAddress(t *testing.T) {
	settings := config.Defaults()
	settings.ClientAddresses = []string{"10.0.0.1", "10.0.0.2"}
	settings.Blacklists = []string{"10.0.0.2", "192.168.0.9"}
	auth := NewAuthenticator(settings)

	tests := []struct {
		host string
		want bool
	}{
		{"10.0.0.1", true},
		{"10.0.0.2", false}, // denied wins over allowed
		{"192.168.0.9", false},
		{"172.16.0.1", false}, // not on the allow list
	}
	for _, tt := range tests {
		if got := auth.AllowedAddress(tt.host); got != tt.want {
			t.Errorf("AllowedAddress(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}

	// Without an allow list every non-denied address is admitted.
	settings.ClientAddresses = nil
	auth = NewAuthenticator(settings)
	if !auth.AllowedAddress("172.16.0.1") {
		t.Error("open allow list refused an address")
	}
	if auth.AllowedAddress("192.168.0.9") {
		t.Error("deny list ignored with open allow list")
	}
}

func TestAllowedClient(t *testing.T) {
	settings := config.Defaults()
	auth := NewAuthenticator(settings)
	if !auth.AllowedClient("any") {
		t.Error("empty key list must admit any client")
	}

	settings.ClientPublicKeys = []string{"key-a"}
	auth = NewAuthenticator(settings)
	if !auth.AllowedClient("key-a") || auth.AllowedClient("key-b") {
		t.Error("key allow-list not applied")
	}
}
