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

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/facebook/portagent/packet"
	"github.com/facebook/portagent/portagenterr"
	"github.com/facebook/portagent/stats"
)

// readRetryBackoff is slept on a transient (would-block) read before
// retrying, matching the Send Path's backoff.
const readRetryBackoff = 100 * time.Millisecond

// reader owns exclusive read access to the data socket for its lifetime.
// One reader is attached to exactly one net.Conn; it is never reused
// across reconnections (the Recovery Controller builds a fresh one).
type reader struct {
	conn      net.Conn
	watchdog  *watchdog
	callbacks Callbacks
	sink      stats.Sink
	log       Logger
	done      atomic.Bool
}

func newReader(conn net.Conn, wd *watchdog, cb Callbacks, sink stats.Sink, log Logger) *reader {
	return &reader{conn: conn, watchdog: wd, callbacks: cb, sink: sink, log: log}
}

// stop requests the read loop to exit before its next iteration.
// Outstanding blocking reads are unblocked by the caller closing conn.
func (r *reader) stop() {
	r.done.Store(true)
}

// run is the Frame Reader's worker loop. It assembles exactly one Packet
// at a time regardless of fragmentation or coalescing, dispatches it, and
// repeats until stop() is called or a fatal read error occurs. The
// returned error is nil on a clean stop() shutdown.
func (r *reader) run() error {
	for !r.done.Load() {
		header, err := r.readExactly(packet.HeaderSize)
		if err != nil {
			if r.done.Load() {
				return nil
			}
			return err
		}

		hdr, decodeErr := packet.DecodeHeader(header)
		if decodeErr != nil {
			r.log.Warningf("reader: dropping unsynced bytes: %v", decodeErr)
			continue
		}

		payload, err := r.readExactly(hdr.PayloadLength())
		if err != nil {
			if r.done.Load() {
				return nil
			}
			return err
		}

		p := &packet.Packet{Header: hdr, Payload: payload}
		r.sink.IncCounter(stats.CounterFramesDecoded)
		r.log.Debugf("reader: decoded %s", p)
		r.dispatch(p)
	}
	return nil
}

// readExactly reads n bytes from the data socket, looping across
// fragmentation. A zero-byte read means the peer closed the connection.
// A would-block read sleeps briefly and retries without surfacing.
func (r *reader) readExactly(n int) ([]byte, error) {
	buf := make([]byte, n)
	read := 0
	for read < n {
		if r.done.Load() {
			return nil, nil
		}
		m, err := r.conn.Read(buf[read:])
		if m == 0 && err == nil {
			return nil, fmt.Errorf("%w", portagenterr.ErrReadClosed)
		}
		read += m
		r.sink.UpdateCounterBy(stats.CounterBytesRead, int64(m))
		if err == nil {
			continue
		}
		if err == io.EOF {
			return nil, fmt.Errorf("%w", portagenterr.ErrReadClosed)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			time.Sleep(readRetryBackoff)
			continue
		}
		r.sink.IncCounter(stats.CounterReaderErrors)
		return nil, fmt.Errorf("%w: %v", portagenterr.ErrReadClosed, err)
	}
	return buf, nil
}

// dispatch routes a decoded packet by type, per the Client Facade's
// dispatch table. The Reader never verifies the checksum itself: that is
// left to the callback via Packet.Verify, so higher layers can decide
// policy on corrupt frames.
func (r *reader) dispatch(p *packet.Packet) {
	switch p.Type {
	case packet.DataFromInstrument:
		r.callbacks.fireRaw(p)
		r.callbacks.fireData(p)
		if r.callbacks.OnRaw == nil || r.callbacks.OnData == nil {
			r.log.Debugf("reader: callback not registered, dropping %s for it", p)
		}
	case packet.Heartbeat:
		r.sink.IncCounter(stats.CounterHeartbeatsReceived)
		r.watchdog.reset()
	default:
		r.callbacks.fireRaw(p)
		if r.callbacks.OnRaw == nil {
			r.log.Debugf("reader: no on_raw callback registered, dropping %s", p)
		}
	}
}
