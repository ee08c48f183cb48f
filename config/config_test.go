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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/facebook/portagent/portagenterr"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsOutOfRangeHeartbeat(t *testing.T) {
	c := Config{Host: "localhost", DataPort: 4001, HeartbeatIntervalSec: 21}
	err := c.Validate()
	require.ErrorIs(t, err, portagenterr.ErrConnectionConfig)
}

func TestValidateRejectsMissingHost(t *testing.T) {
	c := Config{DataPort: 4001}
	require.Error(t, c.Validate())
}

func TestWithDefaultsFillsMaxMissed(t *testing.T) {
	c := Config{Host: "localhost", DataPort: 4001}.WithDefaults()
	require.Equal(t, DefaultMaxMissedHeartbeats, c.MaxMissedHeartbeats)
}

func TestRequireCommandPort(t *testing.T) {
	c := Config{Host: "localhost", DataPort: 4001}
	require.ErrorIs(t, c.RequireCommandPort(), portagenterr.ErrConnectionConfig)

	c.CommandPort = 4002
	require.NoError(t, c.RequireCommandPort())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "client.yaml")
	contents := "host: 10.1.1.5\ndata_port: 4001\ncommand_port: 4002\nheartbeat_interval: 5\nmax_missed_heartbeats: 3\n"
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "10.1.1.5", c.Host)
	require.Equal(t, 4001, c.DataPort)
	require.Equal(t, 3, c.MaxMissedHeartbeats)
}

func TestLoadYAMLRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("host: 10.1.1.5\ndata_port: 4001\nheartbeat_interval: 99\n"), 0o644))

	_, err := Load(p)
	require.ErrorIs(t, err, portagenterr.ErrConnectionConfig)
}

func TestLoadINI(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "client.ini")
	contents := "host = 10.1.1.5\ndata_port = 4001\ncommand_port = 4002\nheartbeat_interval = 5\n"
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))

	c, err := LoadINI(p)
	require.NoError(t, err)
	require.Equal(t, "10.1.1.5", c.Host)
	require.Equal(t, 4001, c.DataPort)
}
