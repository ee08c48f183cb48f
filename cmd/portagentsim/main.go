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

// Command portagentsim stands in for a real port agent relay: it accepts a
// data-port connection, frames bytes coming from an instrument (or, with
// -serial, a real serial-attached device) as DATA_FROM_INSTRUMENT packets,
// emits periodic HEARTBEAT packets, and accepts a one-shot command-port
// connection understanding "break" and "heartbeat_interval <secs>".
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/fatih/color"
)

var (
	okString   = color.GreenString("[OK]")
	infoString = color.GreenString("[INFO]")
	failString = color.RedString("[FAIL]")
)

func main() {
	var host, serialDevice string
	var dataPort, commandPort, heartbeatSec int

	flag.StringVar(&host, "host", "127.0.0.1", "address to listen on")
	flag.IntVar(&dataPort, "data-port", 4001, "data port to listen on")
	flag.IntVar(&commandPort, "command-port", 4002, "command port to listen on")
	flag.IntVar(&heartbeatSec, "heartbeat", 5, "heartbeat interval in seconds (0 disables)")
	flag.StringVar(&serialDevice, "serial", "", "if set, bridge data port traffic to this serial device instead of an echo instrument")
	flag.Parse()

	sim := newSimulator(host, dataPort, commandPort, heartbeatSec, serialDevice)
	if err := sim.run(); err != nil {
		fmt.Println(failString, err)
		os.Exit(1)
	}
}

func listen(host string, port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
}
