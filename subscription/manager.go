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

// Package subscription tracks address and stealth-prefix subscriptions
// and fans out update notifications as blocks and pool transactions
// arrive.
package subscription

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/status"
)

var (
	log = logrus.WithField("prefix", "subscription")

	notificationsPosted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitroute_subscription_notifications_total",
		Help: "Update notifications posted, by subscription kind",
	}, []string{"kind"})
	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bitroute_subscription_active",
		Help: "Currently tracked subscriptions",
	})
)

// Notification commands.
const (
	UpdateCommand        = "address.update"
	StealthUpdateCommand = "address.stealth_update"
)

// Kind selects what a subscription watches.
type Kind uint8

const (
	KindAddress Kind = iota
	KindStealth
)

func (k Kind) String() string {
	switch k {
	case KindAddress:
		return "address"
	case KindStealth:
		return "stealth"
	default:
		return "unknown"
	}
}

// Maximum admissible prefix bit lengths.
const (
	maxAddressBits = 160
	maxStealthBits = 256
)

// SendFunc posts a notification through the transport the subscription
// arrived on. It must be safe for concurrent use.
type SendFunc func(*message.Outgoing)

// Key identifies a subscription: one active entry per route per kind.
type Key struct {
	Route message.Route
	Kind  Kind
}

type entry struct {
	id       uint32
	prefix   Binary
	updated  time.Time
	sequence uint16
	send     SendFunc
}

// Manager owns the subscription set. All operations lock the one mutex;
// Submit holds it for the duration of a scan.
type Manager struct {
	limit      int
	expiration time.Duration
	now        func() time.Time

	mu   sync.Mutex
	subs map[Key]*entry
}

// NewManager creates an empty manager bounded by limit entries aged out
// after expiration.
func NewManager(limit uint64, expiration time.Duration) *Manager {
	return &Manager{
		limit:      int(limit),
		expiration: expiration,
		now:        time.Now,
		subs:       make(map[Key]*entry),
	}
}

// Len returns the subscription count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// parse reads `kind:1 bits:1 prefix:ceil(bits/8)` from a request
// payload.
func parse(data []byte) (Kind, Binary, status.Code) {
	if len(data) < 2 {
		return 0, Binary{}, status.BadStream
	}
	kind := Kind(data[0])
	bits := int(data[1])
	if len(data) != 2+BlocksSize(bits) {
		return 0, Binary{}, status.BadStream
	}
	switch kind {
	case KindAddress:
		if bits > maxAddressBits {
			return 0, Binary{}, status.InvalidArgument
		}
	case KindStealth:
		if bits > maxStealthBits {
			return 0, Binary{}, status.InvalidArgument
		}
	default:
		return 0, Binary{}, status.InvalidArgument
	}
	prefix, err := NewBinary(bits, data[2:])
	if err != nil {
		return 0, Binary{}, status.BadStream
	}
	return kind, prefix, status.Success
}

// Subscribe inserts or replaces the entry for the request's route and
// kind. The correlation id of the request becomes the id sent on every
// notification for this subscription.
func (m *Manager) Subscribe(request *message.Incoming, send SendFunc) status.Code {
	kind, prefix, code := parse(request.Data)
	if code != status.Success {
		return code
	}

	key := Key{Route: request.Route, Kind: kind}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.subs[key]; !exists && len(m.subs) >= m.limit {
		return status.OversubscribedLimit
	}
	m.subs[key] = &entry{
		id:      request.ID,
		prefix:  prefix,
		updated: m.now(),
		send:    send,
	}
	activeSubscriptions.Set(float64(len(m.subs)))
	log.WithFields(logrus.Fields{
		"route": request.Route.String(),
		"kind":  kind.String(),
		"bits":  prefix.Bits(),
	}).Debug("Subscribed")
	return status.Success
}

// Renew advances the expiry of an existing entry. No entry is created;
// a miss reports NotFound.
func (m *Manager) Renew(request *message.Incoming) status.Code {
	kind, _, code := parse(request.Data)
	if code != status.Success {
		return code
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[Key{Route: request.Route, Kind: kind}]
	if !ok {
		return status.NotFound
	}
	sub.updated = m.now()
	return status.Success
}

// Unsubscribe removes an existing entry; a miss reports NotFound.
func (m *Manager) Unsubscribe(request *message.Incoming) status.Code {
	kind, _, code := parse(request.Data)
	if code != status.Success {
		return code
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key{Route: request.Route, Kind: kind}
	if _, ok := m.subs[key]; !ok {
		return status.NotFound
	}
	delete(m.subs, key)
	activeSubscriptions.Set(float64(len(m.subs)))
	return status.Success
}

// Submit scans the transaction against the subscription set and posts
// one notification per matching output (address kind) or per matching
// stealth prefix. Pool transactions are submitted with height zero and
// a zero block hash.
func (m *Manager) Submit(height uint32, blockHash chainhash.Hash, tx *wire.MsgTx) {
	var txBytes bytes.Buffer
	if err := tx.Serialize(&txBytes); err != nil {
		log.WithError(err).Warn("Dropping unserializable transaction")
		return
	}

	stealth, hasStealth := ExtractStealth(tx)

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, sub := range m.subs {
		switch key.Kind {
		case KindAddress:
			for _, out := range tx.TxOut {
				version, hash, ok := PaymentAddress(out.PkScript)
				if !ok || !sub.prefix.Matches(hash[:]) {
					continue
				}
				m.postUpdate(key.Route, sub, version, hash, height, blockHash, txBytes.Bytes())
			}
		case KindStealth:
			if !hasStealth || !sub.prefix.Matches(stealth.Prefix[:]) {
				continue
			}
			m.postStealthUpdate(key.Route, sub, stealth.Prefix, height, blockHash, txBytes.Bytes())
		}
	}
}

// postUpdate sends one address notification:
// [ code:4 ] [ version:1 ] [ hash:20 ] [ height:4 ] [ block_hash:32 ] [ tx ]
func (m *Manager) postUpdate(route message.Route, sub *entry, version byte, hash [20]byte, height uint32, blockHash chainhash.Hash, tx []byte) {
	payload := make([]byte, 0, status.Size+1+20+4+chainhash.HashSize+len(tx))
	payload = append(payload, status.Success.Bytes()...)
	payload = append(payload, version)
	payload = append(payload, hash[:]...)
	payload = binary.LittleEndian.AppendUint32(payload, height)
	payload = append(payload, blockHash[:]...)
	payload = append(payload, tx...)

	sub.sequence++
	sub.send(message.NewNotification(route, UpdateCommand, sub.id, payload))
	notificationsPosted.WithLabelValues(KindAddress.String()).Inc()
}

// postStealthUpdate sends one stealth notification:
// [ code:4 ] [ prefix:4 ] [ height:4 ] [ block_hash:32 ] [ tx ]
func (m *Manager) postStealthUpdate(route message.Route, sub *entry, prefix [4]byte, height uint32, blockHash chainhash.Hash, tx []byte) {
	payload := make([]byte, 0, status.Size+4+4+chainhash.HashSize+len(tx))
	payload = append(payload, status.Success.Bytes()...)
	payload = append(payload, prefix[:]...)
	payload = binary.LittleEndian.AppendUint32(payload, height)
	payload = append(payload, blockHash[:]...)
	payload = append(payload, tx...)

	sub.sequence++
	sub.send(message.NewNotification(route, StealthUpdateCommand, sub.id, payload))
	notificationsPosted.WithLabelValues(KindStealth.String()).Inc()
}

// Sweep removes every entry whose age has reached the expiration. It
// runs on the heartbeat cadence.
func (m *Manager) Sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, sub := range m.subs {
		if now.Sub(sub.updated) >= m.expiration {
			delete(m.subs, key)
			log.WithFields(logrus.Fields{
				"route": key.Route.String(),
				"kind":  key.Kind.String(),
			}).Debug("Subscription expired")
		}
	}
	activeSubscriptions.Set(float64(len(m.subs)))
}
