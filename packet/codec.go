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

package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header byte offsets, preserved as the "unpacked tuple" indices named in
// the original implementation rather than the raw wire offsets: the
// original code computes several self-overwriting SYNC_BYTE*_INDEX
// constants that are never used again once the header bytes are
// unpacked into a tuple, so only these positions matter.
const (
	idxType     = 3
	idxLength   = 4
	idxChecksum = 5
	idxTSUpper  = 6
	idxTSLower  = 7
)

// ErrBadSync is returned when a header does not start with the expected
// 3-byte sync pattern.
var ErrBadSync = errors.New("packet: bad sync pattern")

// ErrBadLength is returned when a header's total length field is smaller
// than the header itself.
var ErrBadLength = errors.New("packet: total length shorter than header")

// DecodeHeader parses the 16-byte on-wire header. It validates the sync
// pattern and rejects a total length shorter than HeaderSize.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("packet: header must be %d bytes, got %d", HeaderSize, len(b))
	}
	if b[0] != Sync[0] || b[1] != Sync[1] || b[2] != Sync[2] {
		return Header{}, fmt.Errorf("%w: got % x", ErrBadSync, b[:3])
	}
	totalLength := binary.BigEndian.Uint16(b[4:6])
	if totalLength < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d", ErrBadLength, totalLength)
	}
	return Header{
		Type:        Type(b[idxType]),
		TotalLength: totalLength,
		Checksum:    binary.BigEndian.Uint16(b[6:8]),
		Timestamp: Timestamp{
			Upper: binary.BigEndian.Uint32(b[8:12]),
			Lower: binary.BigEndian.Uint32(b[12:16]),
		},
	}, nil
}

// EncodeHeader builds a 16-byte header for the given type, payload and
// timestamp. This is used only to build test fixtures that look like they
// came from a port agent; the client never prepends a header to outbound
// data-port traffic (see package client's sendPath).
//
// The checksum field is always encoded as zero: the original
// implementation computed a checksum here but never wrote it back into
// the header buffer (a left-behind TODO), and preserving that behavior
// keeps the encoded bytes identical to what the original produced. Callers
// that need a self-consistent fixture should compute Checksum separately
// and overwrite bytes [6:8] themselves.
func EncodeHeader(t Type, payload []byte, ts Timestamp) []byte {
	b := make([]byte, HeaderSize)
	b[0], b[1], b[2] = Sync[0], Sync[1], Sync[2]
	b[idxType] = byte(t)
	binary.BigEndian.PutUint16(b[4:6], uint16(HeaderSize+len(payload)))
	// b[6:8] (checksum) intentionally left zero, see doc comment above.
	binary.BigEndian.PutUint32(b[8:12], ts.Upper)
	binary.BigEndian.PutUint32(b[12:16], ts.Lower)
	return b
}

// Checksum computes the port agent's 16-bit additive checksum: the
// unsigned byte sum of the header (skipping the two checksum-field bytes
// at offsets 6 and 7) plus the unsigned byte sum of the payload, mod
// 2^16. This must match the legacy algorithm bit-exactly.
func Checksum(header []byte, payload []byte) uint16 {
	var sum uint16
	for i, b := range header {
		if i == 6 || i == 7 {
			continue
		}
		sum += uint16(b)
	}
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

// rawHeaderBytes re-serializes a decoded Header back into its 16-byte wire
// form (with the transmitted checksum in place), so Verify can recompute
// the checksum over exactly the bytes that were received.
func rawHeaderBytes(h Header) []byte {
	b := make([]byte, HeaderSize)
	b[0], b[1], b[2] = Sync[0], Sync[1], Sync[2]
	b[idxType] = byte(h.Type)
	binary.BigEndian.PutUint16(b[4:6], h.TotalLength)
	binary.BigEndian.PutUint16(b[6:8], h.Checksum)
	binary.BigEndian.PutUint32(b[8:12], h.Timestamp.Upper)
	binary.BigEndian.PutUint32(b[12:16], h.Timestamp.Lower)
	return b
}

// Verify recomputes the checksum of p and sets p.Valid accordingly. A
// checksum mismatch is never fatal here: the packet still propagates to
// the caller's callback with Valid == false so the caller can decide
// policy (see package client's dispatch table).
func (p *Packet) Verify() bool {
	got := Checksum(rawHeaderBytes(p.Header), p.Payload)
	p.Valid = got == p.Checksum
	return p.Valid
}
