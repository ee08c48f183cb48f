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
	"time"

	"github.com/facebook/portagent/client"
	"github.com/facebook/portagent/stats"
)

const metricsScrapeInterval = 5 * time.Second

// newMetricsExporter wires a Client's counters and process resource
// stats into a single Prometheus registry scraped every
// metricsScrapeInterval.
func newMetricsExporter(c *client.Client, port int) *stats.PrometheusExporter {
	source := c.Stats()
	source.Export() // snapshot is discarded; the registry is filled by the exporter's scrape loop
	go func() {
		for range time.Tick(metricsScrapeInterval) {
			for k, v := range stats.CollectRuntimeStats() {
				source.SetCounter(k, v)
			}
		}
	}()
	return stats.NewPrometheusExporter(source, port, metricsScrapeInterval)
}
