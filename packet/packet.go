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

/*
Package packet implements the port agent wire format: a 16-byte, big-endian
framed header followed by an opaque payload, with a 16-bit additive
checksum covering the header (minus the checksum field itself) and the
payload.

The data port carries this framing inbound only; outbound traffic on the
data port is raw payload bytes with no header (see package client's sendPath).
*/
package packet

import (
	"fmt"
	"time"
)

// HeaderSize is the size in bytes of the on-wire packet header.
const HeaderSize = 16

// Sync is the 3-byte sync pattern that opens every framed packet.
var Sync = [3]byte{0xA3, 0x9D, 0x7A}

// Type identifies the kind of data carried by a Packet.
type Type uint8

// Recognized packet types.
const (
	DataFromInstrument Type = 1
	DataFromDriver      Type = 2
	PortAgentCommand    Type = 3
	PortAgentStatus     Type = 4
	PortAgentFault      Type = 5
	InstrumentCommand   Type = 6
	Heartbeat           Type = 7
)

var typeToString = map[Type]string{
	DataFromInstrument: "DATA_FROM_INSTRUMENT",
	DataFromDriver:     "DATA_FROM_DRIVER",
	PortAgentCommand:   "PORT_AGENT_COMMAND",
	PortAgentStatus:    "PORT_AGENT_STATUS",
	PortAgentFault:     "PORT_AGENT_FAULT",
	InstrumentCommand:  "INSTRUMENT_COMMAND",
	Heartbeat:          "HEARTBEAT",
}

// String returns the human-readable name of the packet type, or a numeric
// fallback for unrecognized values.
func (t Type) String() string {
	if s, ok := typeToString[t]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// ntpEpochOffset is the difference, in seconds, between the NTP epoch
// (1 Jan 1900 UTC) and the Unix epoch (1 Jan 1970 UTC).
const ntpEpochOffset = int64(2208988800)

// Timestamp is an NTP-epoch timestamp split into integer seconds and a
// fractional remainder, exactly as it is carried on the wire.
type Timestamp struct {
	Upper uint32 // integer seconds since the NTP epoch
	Lower uint32 // fractional seconds, as delivered by the sender
}

// NTPTimestampFromTime converts a Unix time.Time into the NTP seconds/
// fraction pair used for test fixtures (see EncodeHeader).
func NTPTimestampFromTime(t time.Time) Timestamp {
	return Timestamp{
		Upper: uint32(t.Unix() + ntpEpochOffset),
		Lower: uint32(t.Nanosecond()),
	}
}

// Header is the decoded form of the 16-byte on-wire packet header.
type Header struct {
	Type        Type
	TotalLength uint16 // header + payload, as carried on the wire
	Checksum    uint16
	Timestamp   Timestamp
}

// PayloadLength returns the number of payload bytes implied by the header.
func (h Header) PayloadLength() int {
	return int(h.TotalLength) - HeaderSize
}

// Packet is a single unit of exchange on the data port: a decoded header
// plus its payload. Valid is set only after a successful call to Verify.
type Packet struct {
	Header
	Payload []byte
	Valid   bool
}

// String renders a Packet for diagnostic logging.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{type=%s len=%d valid=%v}", p.Type, len(p.Payload), p.Valid)
}
