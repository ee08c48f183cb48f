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

// Package portagenterr defines the sentinel error taxonomy surfaced by
// package client. Callers should use errors.Is against these values
// rather than matching on error strings.
package portagenterr

import "errors"

var (
	// ErrConnectionConfig indicates required configuration (e.g. the
	// command port) is missing for the requested operation.
	ErrConnectionConfig = errors.New("portagent: missing required connection configuration")

	// ErrConnectIO indicates a TCP connect failed during init or a
	// command-port operation.
	ErrConnectIO = errors.New("portagent: connect failed")

	// ErrReadClosed indicates the peer closed the data socket (a
	// zero-byte read).
	ErrReadClosed = errors.New("portagent: peer closed data connection")

	// ErrSendWouldBlockExceeded indicates the send path exhausted its
	// would-block retry budget.
	ErrSendWouldBlockExceeded = errors.New("portagent: send exceeded would-block retry budget")

	// ErrSendIO indicates a non-transient socket error during a write.
	ErrSendIO = errors.New("portagent: send failed")

	// ErrHeartbeatTimeout indicates the missed-heartbeat counter reached
	// zero.
	ErrHeartbeatTimeout = errors.New("portagent: heartbeat timeout")

	// ErrRecoveryExhausted indicates the single allowed reconnection
	// attempt has already been spent.
	ErrRecoveryExhausted = errors.New("portagent: recovery attempts exhausted")
)
