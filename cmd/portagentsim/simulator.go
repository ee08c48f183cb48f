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

package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebook/portagent/packet"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
)

// simulator plays the part of a port agent relay for exercising a
// portagentclient against something other than a unit test fixture.
type simulator struct {
	host         string
	dataPort     int
	commandPort  int
	serialDevice string

	mu               sync.Mutex
	heartbeatSeconds int32

	dataConn net.Conn
}

func newSimulator(host string, dataPort, commandPort, heartbeatSec int, serialDevice string) *simulator {
	s := &simulator{
		host:         host,
		dataPort:     dataPort,
		commandPort:  commandPort,
		serialDevice: serialDevice,
	}
	atomic.StoreInt32(&s.heartbeatSeconds, int32(heartbeatSec))
	return s
}

func (s *simulator) run() error {
	dataLn, err := listen(s.host, s.dataPort)
	if err != nil {
		return fmt.Errorf("data port: %w", err)
	}
	defer dataLn.Close()

	cmdLn, err := listen(s.host, s.commandPort)
	if err != nil {
		return fmt.Errorf("command port: %w", err)
	}
	defer cmdLn.Close()

	fmt.Println(infoString, "data port listening on", dataLn.Addr())
	fmt.Println(infoString, "command port listening on", cmdLn.Addr())

	go s.acceptCommands(cmdLn)
	return s.acceptData(dataLn)
}

func (s *simulator) acceptData(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		fmt.Println(okString, "data connection from", conn.RemoteAddr())
		s.mu.Lock()
		s.dataConn = conn
		s.mu.Unlock()
		go s.serveData(conn)
	}
}

// serveData owns one data connection at a time: it fans instrument bytes
// (real, via -serial, or a synthetic echo otherwise) out as framed
// DATA_FROM_INSTRUMENT packets, and emits HEARTBEAT packets on its own
// timer until the connection drops.
func (s *simulator) serveData(conn net.Conn) {
	defer conn.Close()

	stop := make(chan struct{})
	go s.heartbeatLoop(conn, stop)
	defer close(stop)

	if s.serialDevice != "" {
		s.bridgeSerial(conn)
		return
	}
	s.echoInstrument(conn)
}

// echoInstrument stands in for a real instrument when -serial is unset:
// anything written to the data port is reframed and mirrored back as
// DATA_FROM_INSTRUMENT, matching facebook-time's io.Copy-shaped serial
// relay idiom without needing real hardware.
func (s *simulator) echoInstrument(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := writeFramed(conn, packet.DataFromInstrument, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				fmt.Println(failString, "data read:", err)
			}
			return
		}
	}
}

// bridgeSerial relays both directions of a real serial-attached instrument
// through the data connection, framing the inbound side. The two
// directions are supervised with an errgroup.Group so that a terminal
// error on either leg (a closed conn, a yanked cable) tears down the
// other leg instead of leaking a goroutine.
func (s *simulator) bridgeSerial(conn net.Conn) {
	port, err := serial.Open(s.serialDevice, &serial.Mode{BaudRate: 9600})
	if err != nil {
		fmt.Println(failString, "serial open:", err)
		return
	}
	defer port.Close()

	var g errgroup.Group
	g.Go(func() error {
		defer conn.Close()
		defer port.Close()
		buf := make([]byte, 4096)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				if werr := writeFramed(conn, packet.DataFromInstrument, buf[:n]); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		defer conn.Close()
		defer port.Close()
		// conn -> serial: bytes sent by the client are treated as raw
		// instrument commands with no header (mirrors client.sendPath).
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if _, werr := port.Write(buf[:n]); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
		}
	})
	if err := g.Wait(); err != nil && err != io.EOF {
		fmt.Println(failString, "serial bridge:", err)
	}
}

func (s *simulator) heartbeatLoop(conn net.Conn, stop <-chan struct{}) {
	for {
		interval := time.Duration(atomic.LoadInt32(&s.heartbeatSeconds)) * time.Second
		if interval <= 0 {
			select {
			case <-stop:
				return
			case <-time.After(time.Second):
				continue
			}
		}
		select {
		case <-stop:
			return
		case <-time.After(interval):
			if err := writeFramed(conn, packet.Heartbeat, nil); err != nil {
				return
			}
		}
	}
}

// writeFramed encodes and writes a single framed packet, patching in the
// real checksum since EncodeHeader always leaves that field zero.
func writeFramed(conn net.Conn, t packet.Type, payload []byte) error {
	header := packet.EncodeHeader(t, payload, packet.NTPTimestampFromTime(time.Now()))
	checksum := packet.Checksum(header, payload)
	header[6] = byte(checksum >> 8)
	header[7] = byte(checksum)
	if _, err := conn.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// acceptCommands serves the command port one connection at a time: each
// connect/write/close cycle carries a single line command, mirroring
// client.sendCommand's ephemeral-connection contract.
func (s *simulator) acceptCommands(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.handleCommand(conn)
	}
}

func (s *simulator) handleCommand(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := strings.TrimSpace(scanner.Text())
	fmt.Println(okString, "command:", line)

	switch {
	case line == "break":
		fmt.Println(infoString, "break requested")
	case strings.HasPrefix(line, "heartbeat_interval "):
		secs, err := strconv.Atoi(strings.TrimPrefix(line, "heartbeat_interval "))
		if err != nil {
			fmt.Println(failString, "bad heartbeat_interval command:", line)
			return
		}
		atomic.StoreInt32(&s.heartbeatSeconds, int32(secs))
		fmt.Println(infoString, "heartbeat interval set to", secs, "seconds")
	default:
		fmt.Println(failString, "unrecognized command:", line)
	}
}
