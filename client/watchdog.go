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
	"fmt"
	"sync"
	"time"

	"github.com/eclesh/welford"
	"github.com/facebook/portagent/stats"
)

// heartbeatFudgeSeconds compensates for sender-side jitter on top of the
// configured interval before the watchdog's one-shot timer is considered
// expired.
const heartbeatFudgeSeconds = 1

// watchdog is a resettable one-shot heartbeat timer. The underlying
// time.Timer is not resettable across expiry in a race-free way, so reset
// is modeled as cancel-then-new-timer, guarded by a generation counter:
// the fire callback captures the generation it was armed with and bails
// out if the watchdog has since moved to a later generation.
type watchdog struct {
	mu         sync.Mutex
	interval   time.Duration
	maxMissed  int
	missed     int
	generation uint64
	timer      *time.Timer
	stopped    bool

	onExpire func(error) // called with the watchdog mutex NOT held

	jitter   *welford.Stats
	lastBeat time.Time

	pulse func() // optional systemd watchdog pulse, called on every reset
	sink  stats.Sink
}

func newWatchdog(interval time.Duration, maxMissed int, onExpire func(error), pulse func(), sink stats.Sink) *watchdog {
	return &watchdog{
		interval:  interval,
		maxMissed: maxMissed,
		missed:    maxMissed,
		onExpire:  onExpire,
		jitter:    welford.New(),
		pulse:     pulse,
		sink:      sink,
	}
}

// disabled reports whether the watchdog is a no-op (interval == 0).
func (w *watchdog) disabled() bool {
	return w.interval == 0
}

// arm starts the timer for the first time. Call once from InitComms.
func (w *watchdog) arm() {
	if w.disabled() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastBeat = time.Now()
	w.startLocked()
}

func (w *watchdog) startLocked() {
	if w.stopped {
		return
	}
	gen := w.generation
	w.timer = time.AfterFunc(w.interval+heartbeatFudgeSeconds*time.Second, func() {
		w.expire(gen)
	})
}

// reset is called whenever a HEARTBEAT packet arrives: it records jitter,
// restores the missed counter to its configured maximum, and re-arms the
// timer under a fresh generation.
func (w *watchdog) reset() {
	if w.disabled() {
		return
	}
	w.mu.Lock()
	now := time.Now()
	if !w.lastBeat.IsZero() {
		observed := now.Sub(w.lastBeat).Seconds()
		w.jitter.Add(observed - w.interval.Seconds())
	}
	w.lastBeat = now
	w.missed = w.maxMissed
	w.generation++
	if w.timer != nil {
		w.timer.Stop()
	}
	w.startLocked()
	w.mu.Unlock()

	if w.pulse != nil {
		w.pulse()
	}
}

// expire runs on the timer goroutine. gen must match the current
// generation or this is a stale firing from a timer that was since reset.
func (w *watchdog) expire(gen uint64) {
	w.mu.Lock()
	if w.stopped || gen != w.generation {
		w.mu.Unlock()
		return
	}
	w.missed--
	w.sink.IncCounter(stats.CounterHeartbeatMisses)
	if w.missed > 0 {
		w.startLocked()
		w.mu.Unlock()
		return
	}
	maxMissed := w.maxMissed
	w.mu.Unlock()

	w.onExpire(fmt.Errorf("Maximum allowable Port Agent heartbeats (%d) missed", maxMissed))
}

// jitterStats returns the running mean/variance of observed heartbeat
// jitter in seconds, for inclusion in a stats snapshot.
func (w *watchdog) jitterStats() (mean, variance float64, count int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.jitter.Mean(), w.jitter.Variance(), w.jitter.Count()
}

// stop cancels any pending timer. Safe to call multiple times.
func (w *watchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *watchdog) exportInto(s *stats.Stats) {
	mean, variance, count := w.jitterStats()
	s.SetCounter("heartbeat.jitter_mean_millis", int64(mean*1000))
	s.SetCounter("heartbeat.jitter_variance_millis", int64(variance*1000))
	s.SetCounter("heartbeat.jitter_samples", count)
}
