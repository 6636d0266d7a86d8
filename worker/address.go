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

package worker

import (
	"github.com/bitroute/bitroute/message"
)

// [ kind:1 ] [ bits:1 ] [ prefix:ceil(bits/8) ] -> [ ]
//
// The worker's own sender becomes the subscription's notification path,
// so updates travel the same internal pipe as replies.
func (w *Worker) addressSubscribe(request *message.Incoming, reply SendHandler) {
	respond(request, reply, w.subs.Subscribe(request, w.queueSend))
}

// [ kind:1 ] [ bits:1 ] [ prefix:ceil(bits/8) ] -> [ ]
func (w *Worker) addressRenew(request *message.Incoming, reply SendHandler) {
	respond(request, reply, w.subs.Renew(request))
}

// [ kind:1 ] [ bits:1 ] [ prefix:ceil(bits/8) ] -> [ ]
func (w *Worker) addressUnsubscribe(request *message.Incoming, reply SendHandler) {
	respond(request, reply, w.subs.Unsubscribe(request))
}
