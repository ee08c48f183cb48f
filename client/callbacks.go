/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package client

import "github.com/facebook/portagent/packet"

// Callbacks are the explicit function-value hooks higher layers register
// with the Client. A nil entry means "log and drop" rather than panic.
type Callbacks struct {
	// OnRaw is invoked for every packet except HEARTBEAT, in wire order.
	OnRaw func(*packet.Packet)
	// OnData is invoked only for DATA_FROM_INSTRUMENT, strictly after OnRaw
	// for the same packet.
	OnData func(*packet.Packet)
	// OnError is invoked once per escalation surfaced by the Recovery
	// Controller. A nil OnError means the reader is stopped and the error
	// is only logged (the "SWALLOWED" outcome).
	OnError func(error)
}

func (c Callbacks) fireRaw(p *packet.Packet) {
	if c.OnRaw != nil {
		c.OnRaw(p)
	}
}

func (c Callbacks) fireData(p *packet.Packet) {
	if c.OnData != nil {
		c.OnData(p)
	}
}
