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

// Package client implements the Port Agent Client: a long-lived TCP
// client that maintains a framed data connection to a remote port agent,
// enforces heartbeat liveness, and transparently attempts a single
// bounded reconnection on faults.
package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/facebook/portagent/config"
	"github.com/facebook/portagent/portagenterr"
	"github.com/facebook/portagent/stats"
)

// recoverySleep is slept before surfacing a failed init_comms sequence,
// giving a flapping peer a moment to come back before the Recovery
// Controller is engaged.
const recoverySleep = 2 * time.Second

// state is the connection lifecycle: UNINITIALIZED -> CONNECTING ->
// CONNECTED -> RECOVERING -> {CONNECTED, FAILED} -> CLOSED.
type state int

const (
	stateUninitialized state = iota
	stateConnecting
	stateConnected
	stateRecovering
	stateFailed
	stateClosed
)

var stateNames = map[state]string{
	stateUninitialized: "UNINITIALIZED",
	stateConnecting:    "CONNECTING",
	stateConnected:     "CONNECTED",
	stateRecovering:    "RECOVERING",
	stateFailed:        "FAILED",
	stateClosed:        "CLOSED",
}

func (s state) String() string { return stateNames[s] }

// Client holds configuration, owns both the data and command sockets,
// starts/stops the Frame Reader, and forwards decoded packets to the
// registered callbacks. Create one with New, then call InitComms (or
// Run) to connect.
type Client struct {
	cfg       config.Config
	callbacks Callbacks
	log       Logger
	stats     *stats.Stats
	systemd   *systemdNotifier

	mu     sync.Mutex
	state  state
	conn   net.Conn
	rd     *reader
	wd     *watchdog
	rc     *recoveryController
	readWG sync.WaitGroup
}

// New constructs a Client. log may be nil, in which case logrus's
// standard logger is used.
func New(cfg config.Config, callbacks Callbacks, log Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = defaultLogger()
	}
	c := &Client{
		cfg:       cfg,
		callbacks: callbacks,
		log:       log,
		stats:     stats.New(),
		systemd:   newSystemdNotifier(cfg.SystemdWatchdog, log),
		state:     stateUninitialized,
	}
	c.rc = newRecoveryController(c.stats, log, c.reinit, c.surfaceError, c.swallowError)
	return c, nil
}

// Stats exposes the client's live counters, refreshing the heartbeat
// jitter fields from the current watchdog first.
func (c *Client) Stats() *stats.Stats {
	c.mu.Lock()
	wd := c.wd
	c.mu.Unlock()
	if wd != nil {
		wd.exportInto(c.stats)
	}
	return c.stats
}

// State reports the current connection lifecycle state, for CLI status
// display.
func (c *Client) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

// RecoveryState reports the Recovery Controller's state (IDLE/
// RECOVERING/EXHAUSTED), for CLI status display.
func (c *Client) RecoveryState() string {
	return c.rc.currentState().String()
}

// ResetRecovery clears the Recovery Controller's EXHAUSTED state,
// re-arming the single-attempt budget, so a long-lived caller can recover
// a FAILED client without constructing a new one. It is never called
// automatically.
func (c *Client) ResetRecovery() {
	c.rc.reset()
}

func (c *Client) dataAddr() string {
	return net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.DataPort))
}

func (c *Client) commandAddr() string {
	return net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.CommandPort))
}

// InitComms tears down any existing connection, opens the data socket
// with TCP_NODELAY, sends the initial heartbeat-interval command (only
// when HeartbeatIntervalSec > 0; with heartbeating disabled no command is
// sent and no command port is needed), starts the Frame Reader, and arms
// the heartbeat watchdog. A failure at any
// step sleeps recoverySleep and escalates to the Recovery Controller
// rather than returning an error directly, matching the source's
// fire-and-forget init contract.
func (c *Client) InitComms() {
	c.mu.Lock()
	c.resetConnLocked()
	c.state = stateConnecting
	c.mu.Unlock()

	if err := c.connectLocked(); err != nil {
		c.log.Errorf("init_comms: %v", err)
		time.Sleep(recoverySleep)
		c.onError(err)
		return
	}

	c.mu.Lock()
	c.state = stateConnected
	c.mu.Unlock()
	c.systemd.ready()
}

func (c *Client) connectLocked() error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.Dial("tcp", c.dataAddr())
	if err != nil {
		return fmt.Errorf("%w: dialing %s: %v", portagenterr.ErrConnectIO, c.dataAddr(), err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	if c.cfg.HeartbeatIntervalSec > 0 {
		if err := c.cfg.RequireCommandPort(); err != nil {
			conn.Close()
			return err
		}
		if err := c.sendHeartbeatIntervalLocked(c.cfg.HeartbeatIntervalSec); err != nil {
			conn.Close()
			return err
		}
	}

	wd := newWatchdog(
		time.Duration(c.cfg.HeartbeatIntervalSec)*time.Second,
		c.cfg.MaxMissedHeartbeats,
		c.onHeartbeatTimeout,
		c.systemd.watchdogPulse,
		c.stats,
	)

	rd := newReader(conn, wd, c.callbacks, c.stats, c.log)

	c.mu.Lock()
	c.conn = conn
	c.wd = wd
	c.rd = rd
	c.mu.Unlock()

	wd.arm()
	c.readWG.Add(1)
	go func() {
		defer c.readWG.Done()
		if err := rd.run(); err != nil {
			c.onError(err)
		}
	}()
	return nil
}

// onHeartbeatTimeout is the watchdog's escalation hook: it counts as a
// HeartbeatTimeout and always enters recovery.
func (c *Client) onHeartbeatTimeout(err error) {
	c.stats.IncCounter(stats.CounterHeartbeatTimeouts)
	c.onError(fmt.Errorf("%w: %v", portagenterr.ErrHeartbeatTimeout, err))
}

// onError is the single entry point every component escalates through.
// It hands the error to the Recovery Controller, which enforces the
// single-reconnection-attempt bound.
func (c *Client) onError(err error) {
	c.mu.Lock()
	c.state = stateRecovering
	c.mu.Unlock()
	c.rc.handle(err)
}

// reinit is the Recovery Controller's reconnection callback: it runs the
// full InitComms, which tears down the failed connection before dialing
// again.
func (c *Client) reinit(_ error) {
	c.InitComms()
}

func (c *Client) surfaceError(err error) {
	c.mu.Lock()
	c.state = stateFailed
	c.mu.Unlock()
	c.stats.IncCounter(stats.CounterErrorsRaised)
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

func (c *Client) swallowError() {
	c.mu.Lock()
	c.state = stateFailed
	rd := c.rd
	c.mu.Unlock()
	c.log.Errorf("recovery: attempts exhausted with no on_error registered, stopping reader")
	if rd != nil {
		rd.stop()
	}
}

// StopComms signals the Reader to stop, waits for it to exit, closes the
// data socket, and cancels the heartbeat watchdog.
func (c *Client) StopComms() {
	c.mu.Lock()
	c.resetConnLocked()
	c.state = stateClosed
	c.mu.Unlock()
	c.readWG.Wait()
}

// resetConnLocked tears down whatever connection state is currently
// held, without waiting for the Reader goroutine to exit: InitComms may
// be called recursively from inside that very goroutine (via the
// Recovery Controller's reinit callback), and waiting on readWG there
// would deadlock the goroutine against itself. Closing the connection is
// enough to unblock any in-flight read; the goroutine's own deferred
// readWG.Done() runs once it returns from onError.
func (c *Client) resetConnLocked() {
	if c.rd != nil {
		c.rd.stop()
	}
	if c.wd != nil {
		c.wd.stop()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.rd = nil
	c.wd = nil
	c.conn = nil
}

// SendBreak opens the command socket, writes the literal bytes "break",
// and closes it. Requires CommandPort to be configured.
func (c *Client) SendBreak() error {
	if err := c.cfg.RequireCommandPort(); err != nil {
		return err
	}
	return sendCommand(c.commandAddr(), []byte("break"), c.stats, c.log)
}

// SetHeartbeatInterval opens the command socket, writes
// "heartbeat_interval <secs>", and closes it. Requires CommandPort to be
// configured.
func (c *Client) SetHeartbeatInterval(secs int) error {
	if err := c.cfg.RequireCommandPort(); err != nil {
		return err
	}
	return c.sendHeartbeatIntervalLocked(secs)
}

func (c *Client) sendHeartbeatIntervalLocked(secs int) error {
	cmd := fmt.Sprintf("heartbeat_interval %d", secs)
	return sendCommand(c.commandAddr(), []byte(cmd), c.stats, c.log)
}

// Send writes b to the data socket using the non-blocking send path.
func (c *Client) Send(b []byte) (int, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return 0, fmt.Errorf("%w: not connected", portagenterr.ErrSendIO)
	}
	n, err := sendPath(conn, b, c.stats, c.log)
	if err != nil {
		c.onError(err)
	}
	return n, err
}

// Run is a convenience wrapper: it calls InitComms, blocks until ctx is
// done or the client reaches the terminal FAILED state, then calls
// StopComms. InitComms/StopComms remain independently callable for
// callers managing their own lifecycle.
func (c *Client) Run(ctx context.Context) error {
	c.InitComms()
	defer c.StopComms()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.State() == stateFailed.String() {
				return fmt.Errorf("port agent client entered FAILED state")
			}
		}
	}
}
