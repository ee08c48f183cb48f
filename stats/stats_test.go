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

package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCountersRoundTrip(t *testing.T) {
	s := New()
	s.IncCounter(CounterBytesSent)
	s.UpdateCounterBy(CounterBytesSent, 9)
	s.SetCounter(CounterRecoveryAttempts, 1)

	snap := s.Export()
	require.Equal(t, int64(10), snap[CounterBytesSent])
	require.Equal(t, int64(1), snap[CounterRecoveryAttempts])

	s.Reset()
	require.Equal(t, int64(0), s.Export()[CounterBytesSent])
}

func TestCollectRuntimeStatsHasKeys(t *testing.T) {
	snap := CollectRuntimeStats()
	require.Contains(t, snap, "runtime.goroutines")
	require.Contains(t, snap, "process.uptime_sec")
}

func TestFlattenKey(t *testing.T) {
	require.Equal(t, "portagent_send_bytes", flattenKey("send.bytes"))
}
