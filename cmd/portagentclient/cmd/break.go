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

	"github.com/facebook/portagent/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(breakCmd)
}

var breakCmd = &cobra.Command{
	Use:   "send-break",
	Short: "Send a break command to the port agent's command port",
	RunE: func(_ *cobra.Command, _ []string) error {
		configureVerbosity()
		cfg, err := loadEffectiveConfig()
		if err != nil {
			return err
		}
		c, err := client.New(cfg, client.Callbacks{}, nil)
		if err != nil {
			return err
		}
		if err := c.SendBreak(); err != nil {
			return err
		}
		fmt.Println(color.GreenString("[OK]"), "break sent")
		return nil
	},
}
