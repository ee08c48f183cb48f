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
	"os"
	"sort"
	"time"

	"github.com/facebook/portagent/client"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusWatchFlag bool

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusWatchFlag, "watch", "w", false, "refresh the status table every second until interrupted")
}

func colorState(s string) string {
	switch s {
	case "CONNECTED":
		return color.GreenString(s)
	case "FAILED":
		return color.RedString(s)
	case "RECOVERING", "CONNECTING":
		return color.YellowString(s)
	default:
		return s
	}
}

func printStatus(c *client.Client) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"connection state", "recovery state", "counter", "value"})

	snapshot := c.Stats().Export()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		table.Append([]string{colorState(c.State()), c.RecoveryState(), "", ""})
	}
	for i, k := range keys {
		row := []string{"", "", k, fmt.Sprintf("%d", snapshot[k])}
		if i == 0 {
			row[0] = colorState(c.State())
			row[1] = c.RecoveryState()
		}
		table.Append(row)
	}
	table.Render()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect briefly and print a status/counters table",
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
		c.InitComms()
		defer c.StopComms()

		printStatus(c)
		for statusWatchFlag {
			time.Sleep(time.Second)
			printStatus(c)
		}
		return nil
	},
}
