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

// Package config holds the server settings consumed by the services.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/naoina/toml"
)

// Settings is the configuration surface of the server. Zero or empty
// endpoint values disable the corresponding service.
type Settings struct {
	// Bind addresses.
	QueryEndpoint              string
	SecureQueryEndpoint        string
	HeartbeatEndpoint          string
	BlockPublishEndpoint       string
	TransactionPublishEndpoint string

	// Master switches.
	QueriesEnabled   bool
	PublisherEnabled bool

	// Worker pool size for the query service.
	QueryWorkers int

	// Pulse period and subscription aging.
	HeartbeatIntervalSeconds      uint64
	SubscriptionExpirationMinutes uint64
	SubscriptionLimit             uint64

	// Authenticator inputs. ServerPrivateKey is required when a secure
	// endpoint is configured.
	ServerPrivateKey string
	ClientPublicKeys []string
	ClientAddresses  []string
	Blacklists       []string

	// Logging.
	LogLevel string
	LogFile  string
}

// Defaults returns the settings with the documented default values.
func Defaults() *Settings {
	return &Settings{
		QueryEndpoint:                 "tcp://*:9091",
		HeartbeatEndpoint:             "tcp://*:9092",
		BlockPublishEndpoint:          "tcp://*:9093",
		TransactionPublishEndpoint:    "tcp://*:9094",
		QueriesEnabled:                true,
		PublisherEnabled:              true,
		QueryWorkers:                  4,
		HeartbeatIntervalSeconds:      5,
		SubscriptionExpirationMinutes: 10,
		SubscriptionLimit:             100000000,
		LogLevel:                      "info",
	}
}

// HeartbeatInterval returns the pulse period.
func (s *Settings) HeartbeatInterval() time.Duration {
	return time.Duration(s.HeartbeatIntervalSeconds) * time.Second
}

// SubscriptionExpiration returns the sweeper age cut-off.
func (s *Settings) SubscriptionExpiration() time.Duration {
	return time.Duration(s.SubscriptionExpirationMinutes) * time.Minute
}

// Validate rejects settings combinations that cannot start.
func (s *Settings) Validate() error {
	if s.SecureQueryEndpoint != "" && s.ServerPrivateKey == "" {
		return fmt.Errorf("config: secure query endpoint %q configured without a server key", s.SecureQueryEndpoint)
	}
	if s.QueriesEnabled && s.QueryWorkers < 1 {
		return fmt.Errorf("config: query workers must be positive, have %d", s.QueryWorkers)
	}
	return nil
}

// Load reads TOML settings from path over the defaults.
func Load(path string) (*Settings, error) {
	settings := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("config: %s: %v", path, err)
	}
	// An empty list loads as nil, matching the unset defaults, so a
	// Dump/Load round trip preserves the settings.
	for _, list := range []*[]string{&settings.ClientPublicKeys, &settings.ClientAddresses, &settings.Blacklists} {
		if len(*list) == 0 {
			*list = nil
		}
	}
	return settings, nil
}

// Dump renders the settings as TOML, the same shape Load accepts.
func (s *Settings) Dump() ([]byte, error) {
	return toml.Marshal(*s)
}
