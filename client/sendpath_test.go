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
	"net"
	"testing"
	"time"

	"github.com/facebook/portagent/portagenterr"
	"github.com/facebook/portagent/stats"
	"github.com/stretchr/testify/require"
)

// blockedConn never accepts a write and never honors a deadline in a way
// that completes it: every Write call blocks past its deadline, so every
// attempt is classified as would-block, exactly like scenario 6
// ("a socket that accepts 0 bytes and returns would-block on every
// call").
type blockedConn struct {
	net.Conn
	deadline time.Time
}

func (b *blockedConn) SetWriteDeadline(t time.Time) error {
	b.deadline = t
	return nil
}

func (b *blockedConn) Write([]byte) (int, error) {
	wait := time.Until(b.deadline)
	if wait > 0 {
		time.Sleep(wait)
	}
	return 0, &timeoutError{}
}

func (b *blockedConn) Close() error { return nil }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestSendPathBackpressureExhausts(t *testing.T) {
	conn := &blockedConn{}
	start := time.Now()
	n, err := sendPath(conn, []byte("hello"), stats.New(), silentLogger{})
	elapsed := time.Since(start)

	require.Equal(t, 0, n)
	require.ErrorIs(t, err, portagenterr.ErrSendWouldBlockExceeded)
	require.GreaterOrEqual(t, elapsed, MaxSendAttempts*sendBackoff-10*time.Millisecond)
}

func TestSendPathSucceeds(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	recv := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		n, _ := server.Read(buf)
		recv <- buf[:n]
	}()

	n, err := sendPath(clientConn, []byte("hello"), stats.New(), silentLogger{})
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), <-recv)
}

type ioErrorConn struct {
	net.Conn
}

func (ioErrorConn) SetWriteDeadline(time.Time) error { return nil }
func (ioErrorConn) Write([]byte) (int, error)        { return 0, errors.New("broken pipe") }
func (ioErrorConn) Close() error                     { return nil }

func TestSendPathNonTransientErrorAbortsImmediately(t *testing.T) {
	n, err := sendPath(ioErrorConn{}, []byte("x"), stats.New(), silentLogger{})
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, portagenterr.ErrSendIO)
}
