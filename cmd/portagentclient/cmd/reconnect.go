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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebook/portagent/client"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(reconnectCmd)
}

// reconnectCmd calls Client.ResetRecovery before connecting. The Client it
// resets is constructed by this command, so its single-attempt budget is
// already unspent; apart from lacking --dump and --metrics-port, the
// command behaves like connect.
var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Re-arm the recovery budget and connect, streaming decoded packets until interrupted",
	RunE: func(_ *cobra.Command, _ []string) error {
		configureVerbosity()
		cfg, err := loadEffectiveConfig()
		if err != nil {
			return err
		}

		callbacks := client.Callbacks{
			OnError: func(err error) {
				fmt.Println(color.RedString("[FAIL]"), err)
			},
		}
		c, err := client.New(cfg, callbacks, nil)
		if err != nil {
			return err
		}
		c.ResetRecovery()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Println(color.GreenString("[INFO]"), "reconnecting to", cfg.Host)
		return c.Run(ctx)
	},
}
