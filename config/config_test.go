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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	settings := Defaults()
	require.Equal(t, "tcp://*:9091", settings.QueryEndpoint)
	require.Equal(t, "tcp://*:9092", settings.HeartbeatEndpoint)
	require.Equal(t, "tcp://*:9093", settings.BlockPublishEndpoint)
	require.Equal(t, "tcp://*:9094", settings.TransactionPublishEndpoint)
	require.Equal(t, 5*time.Second, settings.HeartbeatInterval())
	require.Equal(t, 10*time.Minute, settings.SubscriptionExpiration())
	require.Equal(t, uint64(100000000), settings.SubscriptionLimit)
	require.True(t, settings.QueriesEnabled)
	require.True(t, settings.PublisherEnabled)
	require.NoError(t, settings.Validate())
}

func TestValidate(t *testing.T) {
	settings := Defaults()
	settings.SecureQueryEndpoint = "tcp://*:9096"
	require.Error(t, settings.Validate(), "secure endpoint without a key must not validate")

	settings.ServerPrivateKey = "secret"
	require.NoError(t, settings.Validate())

	settings.QueryWorkers = 0
	require.Error(t, settings.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bitroute.toml")
	content := `
QueryEndpoint = "tcp://*:19091"
HeartbeatIntervalSeconds = 2
SubscriptionLimit = 42
QueriesEnabled = false
ClientAddresses = ["10.0.0.1"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tcp://*:19091", settings.QueryEndpoint)
	require.Equal(t, 2*time.Second, settings.HeartbeatInterval())
	require.Equal(t, uint64(42), settings.SubscriptionLimit)
	require.False(t, settings.QueriesEnabled)
	require.Equal(t, []string{"10.0.0.1"}, settings.ClientAddresses)
	// Untouched options keep their defaults.
	require.Equal(t, "tcp://*:9092", settings.HeartbeatEndpoint)
}

func TestDumpRoundTrip(t *testing.T) {
	settings := Defaults()
	settings.QueryWorkers = 7
	settings.Blacklists = []string{"192.168.0.9"}

	out, err := settings.Dump()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "dump.toml")
	require.NoError(t, os.WriteFile(path, out, 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
