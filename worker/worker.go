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

// Package worker consumes requests from the query service's internal
// fan-out, dispatches them by command name, and queues responses back
// through a single-writer sender.
package worker

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/bitroute/bitroute/message"
	"github.com/bitroute/bitroute/node"
	"github.com/bitroute/bitroute/status"
	"github.com/bitroute/bitroute/subscription"
	"github.com/bitroute/bitroute/transport"
)

var (
	log = logrus.WithField("prefix", "worker")

	queriesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bitroute_worker_queries_total",
		Help: "Requests dispatched by command",
	}, []string{"command"})
	queriesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bitroute_worker_failures_total",
		Help: "Requests that produced a non-success response code",
	})
)

// SendHandler posts one outgoing message. Handlers call it exactly
// once, possibly from a node callback goroutine.
type SendHandler func(*message.Outgoing)

// Handler serves one command.
type Handler func(*message.Incoming, SendHandler)

// sendQueueDepth bounds replies waiting on the sender goroutine.
const sendQueueDepth = 256

// Worker runs one dispatch loop against the internal dealer endpoint.
type Worker struct {
	backend node.Backend
	subs    *subscription.Manager
	secure  bool

	handlers map[string]Handler

	mu       sync.Mutex
	sock     zmq4.Socket
	out      chan *message.Outgoing
	quit     chan struct{}
	quitOnce sync.Once
	stopped  sync.WaitGroup
}

// New builds a worker with the full command interface attached.
func New(backend node.Backend, subs *subscription.Manager, secure bool) *Worker {
	w := &Worker{
		backend:  backend,
		subs:     subs,
		secure:   secure,
		handlers: make(map[string]Handler),
		out:      make(chan *message.Outgoing, sendQueueDepth),
		quit:     make(chan struct{}),
	}
	w.attachInterface()
	return w
}

// Attach registers a handler for a command. A duplicate registration
// overwrites the previous handler.
func (w *Worker) Attach(command string, handler Handler) {
	w.handlers[command] = handler
}

// Start connects to the internal endpoint and runs the work and sender
// loops until Stop.
func (w *Worker) Start(ctx context.Context, endpoint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sock != nil {
		return nil
	}
	sock := transport.NewSocket(ctx, transport.Dealer)
	if err := sock.Dial(endpoint); err != nil {
		return err
	}
	w.sock = sock

	w.stopped.Add(2)
	go w.work()
	go w.send()
	return nil
}

// Stop closes the socket and ends both loops. Idempotent and terminal;
// a restarted query service builds fresh workers.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quitOnce.Do(func() { close(w.quit) })
	if w.sock == nil {
		return
	}
	w.sock.Close()
	w.stopped.Wait()
	w.sock = nil
}

// work blocks on the dealer socket, decoding one message at a time.
func (w *Worker) work() {
	defer w.stopped.Done()
	for {
		in, err := message.Receive(w.sock, w.secure)
		switch {
		case err == message.ErrBadStream:
			if in == nil || in.Command == "" {
				// Without a command frame there is nothing to address.
				continue
			}
			w.queueSend(message.NewResponse(in, status.BadStream.Bytes()))
			continue
		case err != nil:
			select {
			case <-w.quit:
				return
			default:
				log.WithError(err).Debug("Receive failed, retiring worker")
				return
			}
		}
		w.Dispatch(in, w.queueSend)
	}
}

// Dispatch routes one decoded request to its handler. An unknown
// command is answered with NotFound. Handler panics are contained so
// the worker survives to serve the next message.
func (w *Worker) Dispatch(request *message.Incoming, reply SendHandler) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"command": request.Command,
				"panic":   r,
			}).Error("Handler panicked")
			log.Debug(string(debug.Stack()))
		}
	}()

	queriesDispatched.WithLabelValues(request.Command).Inc()
	handler, ok := w.handlers[request.Command]
	if !ok {
		queriesFailed.Inc()
		reply(message.NewResponse(request, status.NotFound.Bytes()))
		return
	}
	handler(request, reply)
}

// queueSend serializes outgoing messages through the sender goroutine
// so handler callbacks never touch the socket.
func (w *Worker) queueSend(out *message.Outgoing) {
	select {
	case w.out <- out:
	case <-w.quit:
	}
}

func (w *Worker) send() {
	defer w.stopped.Done()
	for {
		select {
		case out := <-w.out:
			if err := out.Send(w.sock); err != nil {
				log.WithError(err).WithField("command", out.Command).Warn("Send failed")
			}
		case <-w.quit:
			return
		}
	}
}

// respond builds the response payload: the code, then the result bytes
// on success. Partial results are never returned.
func respond(request *message.Incoming, reply SendHandler, code status.Code, result ...[]byte) {
	payload := code.Bytes()
	if code == status.Success {
		for _, part := range result {
			payload = append(payload, part...)
		}
	} else {
		queriesFailed.Inc()
	}
	reply(message.NewResponse(request, payload))
}
