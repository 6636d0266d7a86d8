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

package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitroute/bitroute/config"
	"github.com/bitroute/bitroute/node"
)

func testSettings() *config.Settings {
	settings := config.Defaults()
	settings.QueryEndpoint = "tcp://127.0.0.1:0"
	settings.HeartbeatEndpoint = "inproc://server-test/heartbeat"
	settings.BlockPublishEndpoint = "inproc://server-test/blocks"
	settings.TransactionPublishEndpoint = "inproc://server-test/transactions"
	settings.QueryWorkers = 2
	return settings
}

func TestServerStartStop(t *testing.T) {
	srv := New(testSettings(), node.NewMemory())
	require.NoError(t, srv.Start())
	require.NotNil(t, srv.SubscriptionManager())
	require.NoError(t, srv.Start(), "start while running is a no-op")
	srv.Stop()
	srv.Stop() // idempotent
}

func TestServerSecureWithoutKeyFails(t *testing.T) {
	settings := testSettings()
	settings.SecureQueryEndpoint = "tcp://127.0.0.1:0"
	srv := New(settings, node.NewMemory())
	require.Error(t, srv.Start(), "secure endpoint without a server key must fail startup")
}

func TestServerDisabledServices(t *testing.T) {
	settings := testSettings()
	settings.QueriesEnabled = false
	settings.PublisherEnabled = false
	settings.HeartbeatEndpoint = ""
	srv := New(settings, node.NewMemory())
	require.NoError(t, srv.Start())
	srv.Stop()
}
