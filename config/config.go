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

// Package config describes Port Agent Client configuration and loads it
// from YAML or INI files, in addition to direct construction by callers
// embedding the client library.
package config

import (
	"fmt"

	"github.com/facebook/portagent/portagenterr"
)

// MaxHeartbeatIntervalSeconds is the upper bound accepted for
// HeartbeatIntervalSec.
const MaxHeartbeatIntervalSeconds = 20

// DefaultMaxMissedHeartbeats is used when MaxMissedHeartbeats is unset (0).
const DefaultMaxMissedHeartbeats = 5

// Config holds everything needed to dial and maintain a Port Agent Client
// connection.
type Config struct {
	// Host is the remote address used for both the data and command ports.
	Host string `yaml:"host" ini:"host"`
	// DataPort is the persistent TCP port carrying the framed packet stream.
	DataPort int `yaml:"data_port" ini:"data_port"`
	// CommandPort is the ephemeral control port. A zero value means the
	// client was never given one; SendBreak/SetHeartbeatInterval then
	// fail with ErrConnectionConfig.
	CommandPort int `yaml:"command_port" ini:"command_port"`
	// Delimiter is an optional byte sequence carried in the configuration.
	// Nothing in this module reads it: there is no delimiter-based
	// splitting of packets, with or without callbacks set.
	Delimiter string `yaml:"delimiter" ini:"delimiter"`
	// HeartbeatIntervalSec is the heartbeat period in seconds, in
	// [0, MaxHeartbeatIntervalSeconds]. 0 disables the watchdog.
	HeartbeatIntervalSec int `yaml:"heartbeat_interval" ini:"heartbeat_interval"`
	// MaxMissedHeartbeats is the number of consecutive missed heartbeats
	// tolerated before escalating. Defaults to DefaultMaxMissedHeartbeats.
	MaxMissedHeartbeats int `yaml:"max_missed_heartbeats" ini:"max_missed_heartbeats"`
	// SystemdWatchdog enables sd_notify READY/WATCHDOG pulses tied to
	// heartbeat liveness. It is a no-op outside a systemd unit.
	SystemdWatchdog bool `yaml:"systemd_watchdog" ini:"systemd_watchdog"`
}

// WithDefaults returns a copy of c with zero-valued optional fields filled
// in (currently just MaxMissedHeartbeats).
func (c Config) WithDefaults() Config {
	if c.MaxMissedHeartbeats == 0 {
		c.MaxMissedHeartbeats = DefaultMaxMissedHeartbeats
	}
	return c
}

// Validate checks the configuration invariants from the wire protocol
// spec: the heartbeat interval must be in range, and MaxMissedHeartbeats
// (after defaulting) must be positive.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", portagenterr.ErrConnectionConfig)
	}
	if c.DataPort <= 0 {
		return fmt.Errorf("%w: data_port is required", portagenterr.ErrConnectionConfig)
	}
	if c.HeartbeatIntervalSec < 0 || c.HeartbeatIntervalSec > MaxHeartbeatIntervalSeconds {
		return fmt.Errorf("%w: heartbeat_interval must be in [0, %d], got %d",
			portagenterr.ErrConnectionConfig, MaxHeartbeatIntervalSeconds, c.HeartbeatIntervalSec)
	}
	if c.WithDefaults().MaxMissedHeartbeats <= 0 {
		return fmt.Errorf("%w: max_missed_heartbeats must be positive", portagenterr.ErrConnectionConfig)
	}
	return nil
}

// RequireCommandPort returns ErrConnectionConfig if no command port is
// configured. Callers that only ever exchange framed data never need to
// call this; SendBreak and SetHeartbeatInterval call it for you.
func (c Config) RequireCommandPort() error {
	if c.CommandPort <= 0 {
		return fmt.Errorf("%w: command_port is required", portagenterr.ErrConnectionConfig)
	}
	return nil
}
