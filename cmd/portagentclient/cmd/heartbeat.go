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

package cmd

import (
	"fmt"
	"strconv"

	"github.com/facebook/portagent/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(heartbeatCmd)
}

var heartbeatCmd = &cobra.Command{
	Use:   "set-heartbeat-interval <seconds>",
	Short: "Set the port agent's heartbeat interval in seconds (0 disables)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		configureVerbosity()
		secs, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid seconds value %q: %w", args[0], err)
		}

		cfg, err := loadEffectiveConfig()
		if err != nil {
			return err
		}
		c, err := client.New(cfg, client.Callbacks{}, nil)
		if err != nil {
			return err
		}
		if err := c.SetHeartbeatInterval(secs); err != nil {
			return err
		}
		fmt.Println(color.GreenString("[OK]"), "heartbeat interval set to", secs, "seconds")
		return nil
	},
}
