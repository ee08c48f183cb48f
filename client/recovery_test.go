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
	"errors"
	"sync/atomic"
	"testing"

	"github.com/facebook/portagent/stats"
	"github.com/stretchr/testify/require"
)

func TestRecoveryRetriesOnceThenSurfaces(t *testing.T) {
	var reinitCalls atomic.Int32
	var surfaced []error

	var rc *recoveryController
	rc = newRecoveryController(stats.New(), silentLogger{},
		func(err error) {
			reinitCalls.Add(1)
			// simulate a second failure discovered during reconnection
			rc.handle(errors.New("second failure"))
		},
		func(err error) { surfaced = append(surfaced, err) },
		nil,
	)

	outcome := rc.handle(errors.New("first failure"))
	require.Equal(t, recoveryRetried, outcome)
	require.Equal(t, int32(1), reinitCalls.Load())
	require.Len(t, surfaced, 1)
	require.Equal(t, "second failure", surfaced[0].Error())
	require.Equal(t, recoveryExhausted, rc.currentState())
}

func TestRecoverySwallowsWithoutOnError(t *testing.T) {
	var stopped bool
	var rc *recoveryController
	rc = newRecoveryController(stats.New(), silentLogger{},
		func(err error) { rc.handle(errors.New("fails again")) },
		nil,
		func() { stopped = true },
	)

	rc.handle(errors.New("boom"))
	require.True(t, stopped)
}

func TestRecoveryResetAllowsAnotherAttempt(t *testing.T) {
	var reinitCalls atomic.Int32
	rc := newRecoveryController(stats.New(), silentLogger{},
		func(error) { reinitCalls.Add(1) },
		func(error) {},
		nil,
	)

	rc.handle(errors.New("first"))
	require.Equal(t, recoveryExhausted, rc.currentState())

	rc.reset()
	require.Equal(t, recoveryIdle, rc.currentState())

	rc.handle(errors.New("second"))
	require.Equal(t, int32(2), reinitCalls.Load())
}

func TestRecoveryNeverExceedsMaxAttempts(t *testing.T) {
	sink := stats.New()
	var rc *recoveryController
	attempts := 0
	rc = newRecoveryController(sink, silentLogger{},
		func(error) {
			attempts++
			// hammer handle() recursively to simulate racing escalations
			for i := 0; i < 5; i++ {
				rc.handle(errors.New("storm"))
			}
		},
		func(error) {},
		nil,
	)

	rc.handle(errors.New("initial"))
	require.Equal(t, 1, attempts)
	require.LessOrEqual(t, sink.Export()[stats.CounterRecoveryAttempts], int64(MaxRecoveryAttempts))
	require.Equal(t, int64(1), sink.Export()[stats.CounterRecoveryAttempts])
}
