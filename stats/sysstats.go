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

package stats

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// CollectRuntimeStats gathers process and Go runtime resource counters
// (RSS, CPU%, FD count, GC stats) for inclusion in an Export() snapshot.
// Failures to read an individual metric are non-fatal: that key is simply
// omitted.
func CollectRuntimeStats() map[string]int64 {
	out := make(map[string]int64)

	out["process.alive_since"] = procStartTime.Unix()
	out["process.uptime_sec"] = int64(time.Since(procStartTime).Seconds())

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if pct, err := proc.Percent(0); err == nil {
			out["process.cpu_permil"] = int64(pct * 10)
		}
		if mem, err := proc.MemoryInfo(); err == nil {
			out["process.rss"] = int64(mem.RSS)
			out["process.vms"] = int64(mem.VMS)
		}
		if fds, err := proc.NumFDs(); err == nil {
			out["process.num_fds"] = int64(fds)
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	out["runtime.goroutines"] = int64(runtime.NumGoroutine())
	out["runtime.mem.heap_alloc"] = int64(m.HeapAlloc)
	out["runtime.mem.heap_inuse"] = int64(m.HeapInuse)
	out["runtime.gc.count"] = int64(m.NumGC)
	out["runtime.gc.pause_total_ns"] = int64(m.PauseTotalNs)

	return out
}
