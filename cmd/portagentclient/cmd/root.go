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

// Package cmd implements the portagentclient command tree: connect to a
// port agent, print decoded packets, issue break/heartbeat-interval
// commands, and display a live status table.
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is the entry point, exported so portagentclient can be embedded
// by other tooling without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "portagentclient",
	Short: "Connect to and operate a port agent relay",
}

var (
	rootVerboseFlag bool
	rootHostFlag    string
	rootDataPort    int
	rootCommandPort int
	rootConfigFlag  string
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVar(&rootConfigFlag, "config", "", "path to a YAML or INI client config file")
	RootCmd.PersistentFlags().StringVar(&rootHostFlag, "host", "", "port agent host (overrides config)")
	RootCmd.PersistentFlags().IntVar(&rootDataPort, "data-port", 0, "port agent data port (overrides config)")
	RootCmd.PersistentFlags().IntVar(&rootCommandPort, "command-port", 0, "port agent command port (overrides config)")
}

// configureVerbosity sets logrus's level based on the parsed --verbose flag.
func configureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if rootVerboseFlag {
		log.SetLevel(log.DebugLevel)
	}
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
