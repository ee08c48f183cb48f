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

import "github.com/coreos/go-systemd/daemon"

// systemdNotifier pulses sd_notify READY/WATCHDOG. It is a no-op outside
// a systemd unit (SdNotify reports "not supported", which we only log at
// Debug, matching the library's own not-an-error contract).
type systemdNotifier struct {
	enabled bool
	log     Logger
}

func newSystemdNotifier(enabled bool, log Logger) *systemdNotifier {
	return &systemdNotifier{enabled: enabled, log: log}
}

func (n *systemdNotifier) ready() {
	n.notify(daemon.SdNotifyReady)
}

func (n *systemdNotifier) watchdogPulse() {
	n.notify(daemon.SdNotifyWatchdog)
}

func (n *systemdNotifier) notify(state string) {
	if !n.enabled {
		return
	}
	supported, err := daemon.SdNotify(false, state)
	if err != nil {
		n.log.Warningf("systemd: sd_notify(%q) failed: %v", state, err)
		return
	}
	if !supported {
		n.log.Debugf("systemd: sd_notify not supported in this environment")
	}
}
