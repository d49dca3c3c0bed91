package metrics

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Counters accumulates the output of one build. Safe for concurrent use.
type Counters struct {
	start time.Time

	Elements atomic.Int64
	Tiles    atomic.Int64
	Features atomic.Int64
	Bytes    atomic.Int64
}

// NewCounters starts the build clock.
func NewCounters() *Counters {
	return &Counters{start: time.Now()}
}

// Elapsed returns the time since NewCounters.
func (c *Counters) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Log writes a summary line.
func (c *Counters) Log(logger *zap.Logger, msg string, fields ...zap.Field) {
	elapsed := c.Elapsed()
	tiles := c.Tiles.Load()
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(tiles) / s
	}
	logger.Info(msg, append(fields,
		zap.Int64("elements", c.Elements.Load()),
		zap.Int64("tiles", tiles),
		zap.Int64("features", c.Features.Load()),
		zap.String("size", formatMB(float64(c.Bytes.Load())/(1<<20))),
		zap.Float64("tiles_per_sec", rate),
		zap.Duration("duration", elapsed.Round(time.Millisecond)))...)
}
