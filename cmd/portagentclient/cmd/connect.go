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
	"github.com/facebook/portagent/packet"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	connectPrometheusPort int
	connectRawDump        bool
)

func init() {
	RootCmd.AddCommand(connectCmd)
	connectCmd.Flags().IntVar(&connectPrometheusPort, "metrics-port", 0, "if set, serve Prometheus /metrics on this port")
	connectCmd.Flags().BoolVar(&connectRawDump, "dump", false, "print every decoded packet to stdout")
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a port agent and stream decoded packets until interrupted",
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
		if connectRawDump {
			callbacks.OnRaw = func(p *packet.Packet) {
				p.Verify()
				fmt.Printf("%s %s\n", color.CyanString("[RECV]"), p)
			}
		}

		c, err := client.New(cfg, callbacks, nil)
		if err != nil {
			return err
		}

		if connectPrometheusPort != 0 {
			exporter := newMetricsExporter(c, connectPrometheusPort)
			go func() {
				if err := exporter.Start(); err != nil {
					log.Errorf("metrics exporter stopped: %v", err)
				}
			}()
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Println(color.GreenString("[INFO]"), "connecting to", cfg.Host)
		return c.Run(ctx)
	},
}
