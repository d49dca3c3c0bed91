// Package metrics samples host resources during a build and counts build
// output.
package metrics

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Sample is one snapshot of host resources.
type Sample struct {
	CPUPercent     float64 // system wide
	ProcCPUPercent float64 // this process, per core so may exceed 100
	ProcRSSBytes   uint64
	MemPercent     float64
	ScratchFree    uint64 // bytes free on the scratch volume
	DiskReadMBps   float64
	DiskWriteMBps  float64
	Time           time.Time
}

// Collector samples host resources on a ticker and logs them together with
// the current build stage.
type Collector struct {
	interval time.Duration
	scratch  string
	logger   *zap.Logger
	proc     *process.Process

	lastDisk     map[string]disk.IOCountersStat
	lastDiskTime time.Time

	mu    sync.RWMutex
	stage string
	last  *Sample
}

// NewCollector creates a collector. scratch is the directory whose volume
// is watched for free space.
func NewCollector(interval time.Duration, scratch string, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &Collector{
		interval: interval,
		scratch:  scratch,
		logger:   logger,
		proc:     proc,
	}
}

// SetStage names the build step reported with the next samples.
func (c *Collector) SetStage(stage string) {
	c.mu.Lock()
	c.stage = stage
	c.mu.Unlock()
}

// Start samples until ctx is cancelled.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.log(c.collect())
		}
	}
}

// Last returns the most recent sample, or nil before the first one.
func (c *Collector) Last() *Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) collect() *Sample {
	s := &Sample{Time: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcRSSBytes = info.RSS
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemPercent = vm.UsedPercent
	}
	if c.scratch != "" {
		if u, err := disk.Usage(c.scratch); err == nil {
			s.ScratchFree = u.Free
		}
	}
	s.DiskReadMBps, s.DiskWriteMBps = c.diskRates(s.Time)

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s
}

func (c *Collector) log(s *Sample) {
	c.mu.RLock()
	stage := c.stage
	c.mu.RUnlock()
	c.logger.Debug("System metrics",
		zap.String("stage", stage),
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcCPUPercent),
		zap.String("rss", formatMB(float64(s.ProcRSSBytes)/(1<<20))),
		zap.Float64("mem_pct", s.MemPercent),
		zap.String("scratch_free", formatMB(float64(s.ScratchFree)/(1<<20))),
		zap.String("disk_r", fmt.Sprintf("%.1f MB/s", s.DiskReadMBps)),
		zap.String("disk_w", fmt.Sprintf("%.1f MB/s", s.DiskWriteMBps)))
}

// diskRates returns read and write throughput since the previous call.
func (c *Collector) diskRates(now time.Time) (read, write float64) {
	counters, err := disk.IOCounters()
	if err != nil {
		return 0, 0
	}
	prev, prevTime := c.lastDisk, c.lastDiskTime
	c.lastDisk, c.lastDiskTime = counters, now
	if prev == nil {
		return 0, 0
	}
	elapsed := now.Sub(prevTime).Seconds()
	if elapsed < 0.1 {
		return 0, 0
	}

	var r, w uint64
	for name, cur := range counters {
		last, ok := prev[name]
		if !ok {
			continue
		}
		if cur.ReadBytes >= last.ReadBytes {
			r += cur.ReadBytes - last.ReadBytes
		}
		if cur.WriteBytes >= last.WriteBytes {
			w += cur.WriteBytes - last.WriteBytes
		}
	}
	return float64(r) / elapsed / (1 << 20), float64(w) / elapsed / (1 << 20)
}

func formatMB(mb float64) string {
	if mb >= 1024 {
		return fmt.Sprintf("%.1f GB", mb/1024)
	}
	return fmt.Sprintf("%.1f MB", mb)
}
