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
	"sync"

	"github.com/facebook/portagent/stats"
)

// MaxRecoveryAttempts bounds reconnection to a single try: enough to tell
// a transient hiccup from a true fault, without needing re-entrancy
// analysis of a retried init sequence.
const MaxRecoveryAttempts = 1

// recoveryState is the explicit state the Recovery Controller checks
// under its mutex. This replaces relying on a recursive onError call
// observing the attempt counter already incremented: here the state
// leaves Idle (to Recovering) before the mutex is released, so a
// concurrent or recursive call to handle() always observes a non-Idle
// state deterministically. It becomes Exhausted once reinit returns.
type recoveryState int

const (
	recoveryIdle recoveryState = iota
	recoveryRecovering
	recoveryExhausted
)

func (s recoveryState) String() string {
	switch s {
	case recoveryIdle:
		return "IDLE"
	case recoveryRecovering:
		return "RECOVERING"
	case recoveryExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// recoveryOutcome reports what handle() did with an escalated error.
type recoveryOutcome int

const (
	recoveryRetried recoveryOutcome = iota
	recoverySurfaced
	recoverySwallowed
)

// recoveryController is the single-entry, mutex-guarded reconnection
// state machine. reinit is called with the mutex released (it may itself
// recurse into handle on failure); onSurface/onSwallow run the user
// on_error contract and the fallback "stop the reader" contract,
// respectively.
type recoveryController struct {
	mu    sync.Mutex
	state recoveryState
	sink  stats.Sink
	log   Logger

	reinit    func(err error)
	onSurface func(err error)
	onSwallow func()
}

func newRecoveryController(sink stats.Sink, log Logger, reinit func(error), onSurface func(error), onSwallow func()) *recoveryController {
	return &recoveryController{sink: sink, log: log, reinit: reinit, onSurface: onSurface, onSwallow: onSwallow}
}

// reset returns the controller to Idle, re-arming the single attempt. It
// is called only through Client.ResetRecovery, never automatically.
func (rc *recoveryController) reset() {
	rc.mu.Lock()
	rc.state = recoveryIdle
	rc.mu.Unlock()
}

// handle implements the on_error state machine from the recovery
// protocol. At most one reconnection attempt is ever made across the
// client's lifetime between reset() calls: state leaves Idle exactly
// once, so a recursive call to handle() from inside reinit (reinit may
// itself fail and call back into handle) sees a non-Idle state and takes
// the surfaced/swallowed branch deterministically, without needing the
// mutex held across the recursive call.
func (rc *recoveryController) handle(err error) recoveryOutcome {
	rc.mu.Lock()
	if rc.state != recoveryIdle {
		rc.mu.Unlock()
		if rc.onSurface != nil {
			rc.sink.IncCounter(stats.CounterRecoverySurfaced)
			rc.onSurface(err)
			return recoverySurfaced
		}
		rc.sink.IncCounter(stats.CounterRecoverySwallowed)
		rc.log.Errorf("recovery: no on_error registered, dropping: %v", err)
		if rc.onSwallow != nil {
			rc.onSwallow()
		}
		return recoverySwallowed
	}

	rc.state = recoveryRecovering
	rc.mu.Unlock() // released before re-entering init: reinit may recurse into handle

	rc.sink.IncCounter(stats.CounterRecoveryAttempts)
	rc.log.Warningf("recovery: attempting reconnection after: %v", err)
	rc.reinit(err)

	rc.mu.Lock()
	rc.state = recoveryExhausted
	rc.mu.Unlock()
	return recoveryRetried
}

// currentState returns the controller's state for status reporting.
func (rc *recoveryController) currentState() recoveryState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}
