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

// Package stats implements counter collection for the Port Agent Client:
// bytes sent/received, frames decoded, send retries, heartbeat misses and
// recovery attempts, exported either as a flat map or via Prometheus.
package stats

import "sync"

// Sink is what package client depends on to record counters. Tests may
// substitute a fake; production code uses *Stats.
type Sink interface {
	IncCounter(key string)
	UpdateCounterBy(key string, count int64)
	SetCounter(key string, val int64)
}

// Stats is a simple, mutex-guarded set of named counters.
type Stats struct {
	mu       sync.Mutex
	counters map[string]int64
}

// New creates an empty Stats.
func New() *Stats {
	return &Stats{counters: map[string]int64{}}
}

// IncCounter increments a counter by 1.
func (s *Stats) IncCounter(key string) {
	s.UpdateCounterBy(key, 1)
}

// UpdateCounterBy adds count to the named counter.
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.mu.Lock()
	s.counters[key] += count
	s.mu.Unlock()
}

// SetCounter sets the named counter to val.
func (s *Stats) SetCounter(key string, val int64) {
	s.mu.Lock()
	s.counters[key] = val
	s.mu.Unlock()
}

// Export returns a point-in-time snapshot of all counters.
func (s *Stats) Export() map[string]int64 {
	out := make(map[string]int64)
	s.mu.Lock()
	for k, v := range s.counters {
		out[k] = v
	}
	s.mu.Unlock()
	return out
}

// Reset zeroes every known counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	for k := range s.counters {
		s.counters[k] = 0
	}
	s.mu.Unlock()
}

// Well-known counter names recorded by package client.
const (
	CounterBytesSent          = "send.bytes"
	CounterSendRetries        = "send.retries"
	CounterSendWouldBlockDrop = "send.would_block_exceeded"
	CounterFramesDecoded      = "reader.frames_decoded"
	CounterBytesRead          = "reader.bytes_read"
	CounterReaderErrors       = "reader.errors"
	CounterHeartbeatsReceived = "heartbeat.received"
	CounterHeartbeatMisses    = "heartbeat.missed"
	CounterHeartbeatTimeouts  = "heartbeat.timeouts"
	CounterRecoveryAttempts   = "recovery.attempts"
	CounterRecoverySurfaced   = "recovery.surfaced"
	CounterRecoverySwallowed  = "recovery.swallowed"
	CounterErrorsRaised       = "errors.raised"
)
