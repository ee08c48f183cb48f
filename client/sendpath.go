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
	"net"
	"time"

	"github.com/facebook/portagent/portagenterr"
	"github.com/facebook/portagent/stats"
)

// MaxSendAttempts bounds the number of would-block retries tolerated
// before a send is abandoned.
const MaxSendAttempts = 15

// sendBackoff is slept between would-block retries.
const sendBackoff = 100 * time.Millisecond

// sendDeadline is the short write deadline used to detect "would block"
// on a net.Conn: Go exposes no raw EWOULDBLOCK, so a write that can't
// complete within this window is classified as transient backpressure
// via net.Error.Timeout().
const sendDeadline = 20 * time.Millisecond

// sendPath writes the entirety of b to conn, retrying on transient
// would-block conditions up to MaxSendAttempts times. It returns the
// number of bytes actually written and, if applicable, the error that
// ended the attempt. The error is logged here; forwarding it to onError
// is left to the Client.
func sendPath(conn net.Conn, b []byte, sink stats.Sink, log Logger) (int, error) {
	var sent int
	attempts := 0

	for sent < len(b) {
		if err := conn.SetWriteDeadline(time.Now().Add(sendDeadline)); err != nil {
			return sent, fmt.Errorf("%w: %v", portagenterr.ErrSendIO, err)
		}
		n, err := conn.Write(b[sent:])
		sent += n
		if err == nil {
			continue
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			attempts++
			sink.IncCounter(stats.CounterSendRetries)
			if attempts > MaxSendAttempts {
				sink.IncCounter(stats.CounterSendWouldBlockDrop)
				log.Warningf("send: exceeded %d would-block retries, %d/%d bytes sent", MaxSendAttempts, sent, len(b))
				return sent, fmt.Errorf("%w: after %d attempts", portagenterr.ErrSendWouldBlockExceeded, attempts)
			}
			time.Sleep(sendBackoff)
			continue
		}

		log.Errorf("send: non-transient write error: %v", err)
		return sent, fmt.Errorf("%w: %v", portagenterr.ErrSendIO, err)
	}

	sink.UpdateCounterBy(stats.CounterBytesSent, int64(sent))
	_ = conn.SetWriteDeadline(time.Time{})
	return sent, nil
}

// sendCommand opens a fresh TCP connection to addr, writes payload, and
// closes it. Command-port operations are always ephemeral: one connect,
// one write, one close.
func sendCommand(addr string, payload []byte, sink stats.Sink, log Logger) error {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %v", portagenterr.ErrConnectIO, addr, err)
	}
	defer conn.Close()

	_, err = sendPath(conn, payload, sink, log)
	return err
}
