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
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/facebook/portagent/config"
	"github.com/facebook/portagent/packet"
	"github.com/stretchr/testify/require"
)

func listenerPort(t *testing.T, l net.Listener) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

func TestClientInitCommsReceivesData(t *testing.T) {
	dataLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dataLn.Close()

	cmdLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer cmdLn.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := dataLn.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	go func() {
		for {
			conn, err := cmdLn.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 256)
				conn.Read(buf)
				conn.Close()
			}()
		}
	}()

	cfg := config.Config{
		Host:                 "127.0.0.1",
		DataPort:             listenerPort(t, dataLn),
		CommandPort:          listenerPort(t, cmdLn),
		HeartbeatIntervalSec: 0,
	}

	var mu sync.Mutex
	var gotPayload []byte
	c, err := New(cfg, Callbacks{
		OnRaw: func(p *packet.Packet) {
			mu.Lock()
			gotPayload = p.Payload
			mu.Unlock()
		},
	}, silentLogger{})
	require.NoError(t, err)

	c.InitComms()
	defer c.StopComms()

	conn := <-accepted
	defer conn.Close()

	frame := framedPacket(t, packet.DataFromInstrument, []byte("XY"))
	_, err = conn.Write(frame)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(gotPayload) == "XY"
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, "CONNECTED", c.State())
}

func TestClientSendBreakAndSetHeartbeatInterval(t *testing.T) {
	dataLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dataLn.Close()
	go func() {
		conn, err := dataLn.Accept()
		if err == nil {
			defer conn.Close()
			buf := make([]byte, 256)
			for {
				if _, err := conn.Read(buf); err != nil {
					return
				}
			}
		}
	}()

	cmdLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer cmdLn.Close()

	received := make(chan string, 4)
	go func() {
		for {
			conn, err := cmdLn.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 256)
				n, _ := conn.Read(buf)
				received <- string(buf[:n])
				conn.Close()
			}()
		}
	}()

	cfg := config.Config{
		Host:        "127.0.0.1",
		DataPort:    listenerPort(t, dataLn),
		CommandPort: listenerPort(t, cmdLn),
	}
	c, err := New(cfg, Callbacks{}, silentLogger{})
	require.NoError(t, err)
	c.InitComms()
	defer c.StopComms()

	require.NoError(t, c.SendBreak())
	require.Equal(t, "break", <-received)

	require.NoError(t, c.SetHeartbeatInterval(7))
	require.Equal(t, "heartbeat_interval 7", <-received)
}

func TestClientMissingCommandPortFailsFast(t *testing.T) {
	dataLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dataLn.Close()
	go func() {
		conn, _ := dataLn.Accept()
		if conn != nil {
			conn.Close()
		}
	}()

	cfg := config.Config{Host: "127.0.0.1", DataPort: listenerPort(t, dataLn)}
	c, err := New(cfg, Callbacks{}, silentLogger{})
	require.NoError(t, err)
	c.InitComms()
	defer c.StopComms()

	err = c.SendBreak()
	require.Error(t, err)
}

func TestClientReadClosedEntersRecoveryThenSurfaces(t *testing.T) {
	dataLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dataLn.Close()

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := dataLn.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	cfg := config.Config{Host: "127.0.0.1", DataPort: listenerPort(t, dataLn)}

	surfaced := make(chan error, 1)
	c, err := New(cfg, Callbacks{
		OnError: func(err error) {
			select {
			case surfaced <- err:
			default:
			}
		},
	}, silentLogger{})
	require.NoError(t, err)

	c.InitComms()
	defer c.StopComms()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) >= 1
	}, time.Second, 10*time.Millisecond)

	// First closed connection is absorbed by the single allowed recovery
	// attempt: the client reconnects silently and on_error is not yet
	// surfaced to the caller.
	mu.Lock()
	conns[0].Close()
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) >= 2
	}, time.Second, 10*time.Millisecond)

	select {
	case <-surfaced:
		t.Fatal("on_error should not surface after the first, recoverable failure")
	case <-time.After(200 * time.Millisecond):
	}

	// The recovery budget is now spent: a second failure must surface
	// immediately instead of retrying again.
	mu.Lock()
	conns[1].Close()
	mu.Unlock()

	select {
	case <-surfaced:
	case <-time.After(3 * time.Second):
		t.Fatal("expected on_error to surface once the single recovery attempt was already spent")
	}

	require.Equal(t, "EXHAUSTED", c.RecoveryState())
}
