// Package tilegen subdivides an area into a quad-tree of tiles and encodes
// every tile from the elements that intersect it.
package tilegen

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/vtile"
)

// Writer receives encoded tiles. It is called from a single goroutine.
type Writer interface {
	PutTile(z, x, y int, data []byte) error
}

// Options configures a generator run.
type Options struct {
	LeafZoom  int
	Workers   int
	EmitRoot  bool // encode the root tile too
	Timestamp time.Time
	// Strip reports keys that are never written to tiles.
	Strip func(key string) bool
}

// Stats summarizes a run.
type Stats struct {
	Tiles    int64
	Empty    int64
	Features int64
	Bytes    int64
	Failed   int64
}

type task struct {
	tile     proj.Tile
	elements []*element.Element
}

type encoded struct {
	tile proj.Tile
	data []byte
}

// Generator runs the tile pyramid for one root tile.
type Generator struct {
	opts   Options
	logger *zap.Logger

	tiles    atomic.Int64
	empty    atomic.Int64
	features atomic.Int64
	bytes    atomic.Int64
	failed   atomic.Int64
}

// New creates a generator.
func New(opts Options, logger *zap.Logger) *Generator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Timestamp.IsZero() {
		opts.Timestamp = time.Now()
	}
	return &Generator{opts: opts, logger: logger}
}

// Run generates every tile below root down to the leaf zoom and hands the
// encoded tiles to w. It returns an error if any tile failed or w rejected
// a tile.
func (g *Generator) Run(ctx context.Context, root proj.Tile, elements []*element.Element, w Writer) (Stats, error) {
	queue := NewQueue[task]()
	results := make(chan encoded, g.opts.Workers*4)

	writerErr := make(chan error, 1)
	go func() {
		var firstErr error
		for r := range results {
			if firstErr != nil {
				continue
			}
			if err := w.PutTile(r.tile.Z, r.tile.X, r.tile.Y, r.data); err != nil {
				firstErr = fmt.Errorf("failed to write tile %s: %w", r.tile, err)
			}
		}
		writerErr <- firstErr
	}()

	tickerCtx, cancelTicker := context.WithCancel(ctx)
	defer cancelTicker()
	go g.reportProgress(tickerCtx, root, queue)

	start := time.Now()
	var wg errgroup.Group
	for i := 0; i < g.opts.Workers; i++ {
		wg.Go(func() error {
			wk := &worker{
				g:       g,
				root:    root,
				engine:  geomops.NewEngine(),
				encoder: vtile.NewEncoder(g.opts.Strip, g.logger),
				queue:   queue,
				results: results,
			}
			for {
				t, ok := queue.Get()
				if !ok {
					return nil
				}
				if ctx.Err() == nil {
					wk.run(t)
				}
				queue.Done()
			}
		})
	}

	queue.Put(task{tile: root, elements: elements})
	queue.Join()
	queue.Close()
	_ = wg.Wait()
	close(results)
	werr := <-writerErr

	stats := g.Stats()
	g.logger.Info("Tile generation complete",
		zap.String("root", root.String()),
		zap.Int64("tiles", stats.Tiles),
		zap.Int64("empty", stats.Empty),
		zap.Int64("features", stats.Features),
		zap.Int64("failed", stats.Failed),
		zap.Duration("duration", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if werr != nil {
		return stats, werr
	}
	if stats.Failed > 0 {
		return stats, fmt.Errorf("failed to generate %d tiles", stats.Failed)
	}
	return stats, nil
}

// Stats returns the counters collected so far.
func (g *Generator) Stats() Stats {
	return Stats{
		Tiles:    g.tiles.Load(),
		Empty:    g.empty.Load(),
		Features: g.features.Load(),
		Bytes:    g.bytes.Load(),
		Failed:   g.failed.Load(),
	}
}

func (g *Generator) reportProgress(ctx context.Context, root proj.Tile, queue *Queue[task]) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	total := int64(proj.PyramidSize(root.Z, g.opts.LeafZoom))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tiles := g.tiles.Load()
			g.logger.Debug("Tile generation progress",
				zap.String("root", root.String()),
				zap.Int64("tiles", tiles),
				zap.Int64("total", total),
				zap.String("percent", fmt.Sprintf("%.1f%%", 100*float64(tiles)/float64(max(total, 1)))),
				zap.Int("queued", queue.Len()))
		}
	}
}
