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
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/config"
)

var log = logrus.WithField("prefix", "transport")

// Authenticator holds the configured access-control policy and is
// consulted before an endpoint is bound. Two orthogonal mechanisms, both
// optional: a public-key allow-list over the secure endpoint, and
// source-address allow/deny lists over any endpoint. The lists are
// answered through AllowedClient and AllowedAddress; they are not
// enforced on incoming connections.
type Authenticator struct {
	serverKey  string
	clientKeys mapset.Set[string]
	allowed    mapset.Set[string]
	denied     mapset.Set[string]
}

// NewAuthenticator builds the policy from settings.
func NewAuthenticator(settings *config.Settings) *Authenticator {
	return &Authenticator{
		serverKey:  settings.ServerPrivateKey,
		clientKeys: mapset.NewSet(settings.ClientPublicKeys...),
		allowed:    mapset.NewSet(settings.ClientAddresses...),
		denied:     mapset.NewSet(settings.Blacklists...),
	}
}

// Apply reports whether the policy permits binding a socket for the
// named domain. A secure domain without a server key is refused; every
// other domain is permitted. The socket itself is not modified.
func (a *Authenticator) Apply(sock zmq4.Socket, domain string, secure bool) bool {
	if secure && a.serverKey == "" {
		log.WithField("domain", domain).Error("Secure endpoint requires a server key")
		return false
	}
	if secure && a.clientKeys.Cardinality() > 0 {
		log.WithFields(logrus.Fields{
			"domain": domain,
			"keys":   a.clientKeys.Cardinality(),
		}).Debug("Client key allow-list active")
	}
	if a.allowed.Cardinality() > 0 || a.denied.Cardinality() > 0 {
		log.WithFields(logrus.Fields{
			"domain":  domain,
			"allowed": a.allowed.Cardinality(),
			"denied":  a.denied.Cardinality(),
		}).Debug("Address lists active")
	}
	return true
}

// AllowedClient reports whether a curve client key is admitted on the
// secure endpoint. An empty allow-list admits any key.
func (a *Authenticator) AllowedClient(key string) bool {
	if a.clientKeys.Cardinality() == 0 {
		return true
	}
	return a.clientKeys.Contains(key)
}

// AllowedAddress applies the allow/deny lists to a source address. The
// deny list wins; an empty allow list admits every address not denied.
func (a *Authenticator) AllowedAddress(host string) bool {
	if a.denied.Contains(host) {
		return false
	}
	if a.allowed.Cardinality() == 0 {
		return true
	}
	return a.allowed.Contains(host)
}
