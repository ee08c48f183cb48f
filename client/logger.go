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

import log "github.com/sirupsen/logrus"

// Logger is the subset of *logrus.Logger / *logrus.Entry the client needs.
// Callers that want call-site fields (component name, host) pass in a
// pre-tagged *logrus.Entry; the client never constructs its own fields.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// defaultLogger returns logrus's package-level logger wrapped to satisfy
// Logger, used when the caller does not supply one.
func defaultLogger() Logger {
	return log.StandardLogger()
}
