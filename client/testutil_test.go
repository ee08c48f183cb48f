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

// silentLogger discards everything; used where tests only care about
// behavior, not log output.
type silentLogger struct{}

func (silentLogger) Debugf(string, ...interface{})   {}
func (silentLogger) Infof(string, ...interface{})    {}
func (silentLogger) Warningf(string, ...interface{}) {}
func (silentLogger) Errorf(string, ...interface{})   {}
