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

// Package client implements the query-side retry engine: response
// correlation by id, resend on silence with exponential backoff, and
// exactly-one completion per request.
package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/transport"
)

var log = logrus.WithField("prefix", "client")

const (
	// DefaultTimeout is the initial retry deadline; it doubles on every
	// resend.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the resend budget after the initial send.
	DefaultRetries = 3

	responseQueueDepth = 64
)

// Handler consumes the raw response payload of a completed request. The
// leading four bytes carry the result code.
type Handler func(payload []byte)

// AbandonHandler observes a request dropped after its retries were
// exhausted; the request's Handler is never invoked.
type AbandonHandler func(id uint32, command string)

// conn is the slice of the socket the engine needs.
type conn interface {
	Send(zmq4.Msg) error
}

type pending struct {
	command     string
	sentAt      time.Time
	timeout     time.Duration
	retriesLeft int
	frame       zmq4.Msg // replayable, resent unchanged
	handler     Handler
}

// Client correlates responses to requests over one dealer connection.
//
// The outstanding set is owned by the caller's goroutine: Request and
// Poll must not be called concurrently.
type Client struct {
	sock      zmq4.Socket
	cancel    context.CancelFunc
	send      func(zmq4.Msg) error
	responses chan zmq4.Msg
	quit      chan struct{}

	timeout   time.Duration
	retries   int
	onAbandon AbandonHandler
	now       func() time.Time

	outstanding map[uint32]*pending
}

// Option tunes the engine.
type Option func(*Client)

// WithTimeout sets the initial retry deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets the resend budget.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithAbandonHandler installs the abandoned-request observer.
func WithAbandonHandler(fn AbandonHandler) Option {
	return func(c *Client) { c.onAbandon = fn }
}

// Dial connects a dealer to the server's query endpoint. The socket
// carries an explicit identity so the server's router can address the
// replies.
func Dial(endpoint string, opts ...Option) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	identity := fmt.Sprintf("client-%08x", rand.Uint32())
	sock := transport.NewSocket(ctx, transport.Dealer, zmq4.WithID(zmq4.SocketIdentity(identity)))
	if err := sock.Dial(endpoint); err != nil {
		cancel()
		return nil, err
	}
	c := newEngine(sock.Send, opts...)
	c.sock = sock
	c.cancel = cancel
	go c.receive()
	return c, nil
}

// newEngine builds the correlation state machine around a send
// function.
func newEngine(send func(zmq4.Msg) error, opts ...Option) *Client {
	c := &Client{
		send:        send,
		responses:   make(chan zmq4.Msg, responseQueueDepth),
		quit:        make(chan struct{}),
		timeout:     DefaultTimeout,
		retries:     DefaultRetries,
		now:         time.Now,
		outstanding: make(map[uint32]*pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// receive pumps socket messages into the response queue until Close.
func (c *Client) receive() {
	for {
		msg, err := c.sock.Recv()
		if err != nil {
			select {
			case <-c.quit:
			default:
				log.WithError(err).Debug("Receive failed")
			}
			return
		}
		select {
		case c.responses <- msg:
		case <-c.quit:
			return
		}
	}
}

// Close tears the connection down. Outstanding requests are dropped
// without completion.
func (c *Client) Close() {
	close(c.quit)
	if c.sock != nil {
		c.sock.Close()
	}
	if c.cancel != nil {
		c.cancel()
	}
}

// Request registers and sends one query. The handler is invoked exactly
// once with the decoded response payload, or never if the request is
// abandoned. It returns the correlation id.
func (c *Client) Request(command string, payload []byte, handler Handler) (uint32, error) {
	out := message.NewRequest(command, payload)
	for {
		if _, taken := c.outstanding[out.ID]; !taken {
			break
		}
		out = message.NewRequest(command, payload)
	}
	frame := out.Msg()

	// A failed first send is a missed response; the retry loop owns it.
	if err := c.send(frame); err != nil {
		log.WithError(err).WithField("command", command).Debug("Initial send failed")
	}
	c.outstanding[out.ID] = &pending{
		command:     command,
		sentAt:      c.now(),
		timeout:     c.timeout,
		retriesLeft: c.retries,
		frame:       frame,
		handler:     handler,
	}
	return out.ID, nil
}

// Pending returns the number of outstanding requests.
func (c *Client) Pending() int {
	return len(c.outstanding)
}

// Poll drives the engine: deliver at most one queued response, then
// resend every request whose deadline has passed, doubling its timeout.
// Requests out of retries are abandoned.
func (c *Client) Poll() {
	select {
	case msg := <-c.responses:
		c.process(msg)
	default:
	}
	c.resendExpired()
}

func (c *Client) process(msg zmq4.Msg) {
	response, err := message.Decode(msg, false)
	if err != nil {
		log.WithError(err).Debug("Discarding undecodable response")
		return
	}
	request, ok := c.outstanding[response.ID]
	if !ok {
		// Late response to a request already completed or abandoned.
		return
	}
	delete(c.outstanding, response.ID)
	request.handler(response.Data)
}

func (c *Client) resendExpired() {
	now := c.now()
	for id, request := range c.outstanding {
		if now.Sub(request.sentAt) < request.timeout {
			continue
		}
		if request.retriesLeft == 0 {
			delete(c.outstanding, id)
			log.WithFields(logrus.Fields{
				"command": request.command,
				"id":      id,
			}).Warn("Request abandoned")
			if c.onAbandon != nil {
				c.onAbandon(id, request.command)
			}
			continue
		}
		request.timeout *= 2
		request.retriesLeft--
		request.sentAt = now
		if err := c.send(request.frame); err != nil {
			log.WithError(err).WithField("command", request.command).Debug("Resend failed")
		}
	}
}
