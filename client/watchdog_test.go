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
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebook/portagent/stats"
	"github.com/stretchr/testify/require"
)

func TestWatchdogKeepaliveNeverFires(t *testing.T) {
	var fired atomic.Bool
	wd := newWatchdog(2*time.Second, 3, func(error) { fired.Store(true) }, nil, stats.New())
	wd.arm()
	defer wd.stop()

	for i := 0; i < 9; i++ {
		time.Sleep(2 * time.Second)
		wd.reset()
	}
	require.False(t, fired.Load())
}

func TestWatchdogLossFiresOnceWithinBudget(t *testing.T) {
	var count atomic.Int32
	wd := newWatchdog(2*time.Second, 3, func(err error) {
		count.Add(1)
		require.Contains(t, err.Error(), "Maximum allowable Port Agent heartbeats (3) missed")
	}, nil, stats.New())

	start := time.Now()
	wd.arm()
	defer wd.stop()

	deadline := time.Duration(3)*(2*time.Second+heartbeatFudgeSeconds*time.Second) + 500*time.Millisecond
	for time.Since(start) < deadline && count.Load() == 0 {
		time.Sleep(50 * time.Millisecond)
	}

	require.Equal(t, int32(1), count.Load())
}

func TestWatchdogDisabledIsNoop(t *testing.T) {
	var fired atomic.Bool
	wd := newWatchdog(0, 5, func(error) { fired.Store(true) }, nil, stats.New())
	wd.arm()
	wd.reset()
	time.Sleep(50 * time.Millisecond)
	wd.stop()
	require.False(t, fired.Load())
}

func TestWatchdogStaleGenerationIgnored(t *testing.T) {
	var count atomic.Int32
	wd := newWatchdog(100*time.Millisecond, 1, func(error) { count.Add(1) }, nil, stats.New())
	wd.arm()
	defer wd.stop()

	// reset repeatedly, faster than the timer could legitimately fire,
	// to make sure a race between cancel and a stale firing can't slip
	// an extra expiration through.
	for i := 0; i < 20; i++ {
		time.Sleep(10 * time.Millisecond)
		wd.reset()
	}
	require.Equal(t, int32(0), count.Load())
}
