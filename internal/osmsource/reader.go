// Package osmsource streams the nodes, ways and multipolygons of a PBF file
// with resolved WGS84 geometries.
package osmsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/nodeindex"
)

// Handler receives the features of a file. All calls come from a single
// goroutine.
type Handler interface {
	Node(id int64, lat, lon float64, tags map[string]string)
	Way(id int64, ls orb.LineString, tags map[string]string, closed bool)
	Area(id int64, mp orb.MultiPolygon, tags map[string]string, fromWay bool)
}

// Stats holds reading statistics
type Stats struct {
	Nodes       int64
	Ways        int64
	Relations   int64
	Areas       int64
	MissingWays int64
	BytesRead   int64
}

type relation struct {
	id           int64
	tags         map[string]string
	outer, inner []int64
}

// Reader reads one PBF file in two passes.
type Reader struct {
	path      string
	indexPath string
	workers   int
	logger    *zap.Logger

	nodes     atomic.Int64
	ways      atomic.Int64
	relations atomic.Int64
	stats     Stats
}

// NewReader creates a reader for path. The node index is kept in scratchDir.
func NewReader(path, scratchDir string, workers int, logger *zap.Logger) (*Reader, error) {
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Reader{
		path:      path,
		indexPath: filepath.Join(scratchDir, filepath.Base(path)+".nodes"),
		workers:   workers,
		logger:    logger,
	}, nil
}

// Stats returns the counters of the last Run.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Run streams the file into h.
//
// Pass 1 indexes node coordinates, emits tagged nodes and collects
// multipolygon relations. Pass 2 resolves ways, emits them and caches the
// members of the collected relations, which are assembled last.
func (r *Reader) Run(ctx context.Context, h Handler) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	r.stats = Stats{BytesRead: info.Size()}

	idx, err := nodeindex.NewMmapIndex(r.indexPath, 0)
	if err != nil {
		return err
	}
	defer func() {
		idx.Close()
		os.Remove(r.indexPath)
	}()

	r.logger.Info("Pass 1: indexing nodes", zap.String("file", r.path))
	start := time.Now()
	scanner := osmpbf.New(ctx, f, r.workers)
	scanner.SkipWays = true
	tickerCtx, cancelTicker := context.WithCancel(ctx)
	go r.reportProgress(tickerCtx, "nodes", scanner, &r.nodes)

	var relations []*relation
	members := make(map[int64]bool)
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			r.nodes.Add(1)
			idx.Put(int64(o.ID), o.Lat, o.Lon)
			if len(o.Tags) > 0 {
				h.Node(int64(o.ID), o.Lat, o.Lon, o.Tags.Map())
			}
		case *osm.Relation:
			r.relations.Add(1)
			if rel := multipolygon(o); rel != nil {
				relations = append(relations, rel)
				for _, id := range rel.outer {
					members[id] = true
				}
				for _, id := range rel.inner {
					members[id] = true
				}
			}
		}
	}
	cancelTicker()
	err = scanner.Err()
	scanner.Close()
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to scan nodes: %w", err)
	}
	r.logger.Info("Pass 1 complete",
		zap.Int64("nodes", r.nodes.Load()),
		zap.Int("multipolygons", len(relations)),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	r.logger.Info("Pass 2: building ways")
	start = time.Now()
	cache := make(map[int64]orb.LineString, len(members))
	scanner = osmpbf.New(ctx, f, r.workers)
	scanner.SkipNodes = true
	scanner.SkipRelations = true
	tickerCtx, cancelTicker = context.WithCancel(ctx)
	go r.reportProgress(tickerCtx, "ways", scanner, &r.ways)

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		r.ways.Add(1)
		ls, complete := resolve(idx, w)
		if !complete {
			r.logger.Debug("Way references missing nodes", zap.Int64("osm_id", int64(w.ID)))
		}
		if len(ls) < 2 {
			continue
		}
		if members[int64(w.ID)] {
			cache[int64(w.ID)] = ls
		}
		if len(w.Tags) > 0 {
			h.Way(int64(w.ID), ls, w.Tags.Map(), complete && ls[0].Equal(ls[len(ls)-1]))
		}
	}
	cancelTicker()
	err = scanner.Err()
	scanner.Close()
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to scan ways: %w", err)
	}
	r.logger.Info("Pass 2 complete",
		zap.Int64("ways", r.ways.Load()),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))

	for _, rel := range relations {
		if err := ctx.Err(); err != nil {
			return err
		}
		outer := r.collect(rel, rel.outer, cache)
		inner := r.collect(rel, rel.inner, cache)
		mp := assembleMultipolygon(outer, inner)
		if len(mp) == 0 {
			r.logger.Debug("Multipolygon has no closed outer ring", zap.Int64("osm_id", rel.id))
			continue
		}
		r.stats.Areas++
		h.Area(rel.id, mp, rel.tags, false)
	}

	r.stats.Nodes = r.nodes.Load()
	r.stats.Ways = r.ways.Load()
	r.stats.Relations = r.relations.Load()
	return nil
}

// collect returns the cached geometries of ids, logging absent members.
func (r *Reader) collect(rel *relation, ids []int64, cache map[int64]orb.LineString) []orb.LineString {
	out := make([]orb.LineString, 0, len(ids))
	for _, id := range ids {
		ls, ok := cache[id]
		if !ok {
			r.stats.MissingWays++
			r.logger.Debug("Multipolygon member missing",
				zap.Int64("osm_id", rel.id),
				zap.Int64("way", id))
			continue
		}
		out = append(out, ls)
	}
	return out
}

func (r *Reader) reportProgress(ctx context.Context, what string, scanner *osmpbf.Scanner, count *atomic.Int64) {
	tracker := newProgressTracker(r.stats.BytesRead)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := count.Load()
			scanned := scanner.FullyScannedBytes()
			p := tracker.calculate(n, scanned)
			r.logger.Debug("PBF scan progress",
				zap.Int64(what, n),
				zap.String("processed", FormatBytes(scanned)),
				zap.String("percent", fmt.Sprintf("%.1f%%", p.Percentage)),
				zap.String("throughput", formatThroughput(p.Throughput)),
				zap.String("eta", formatETA(p.ETA)))
		}
	}
}

// resolve builds the line of a way. The second result is false when some
// nodes were missing from the index; the line then holds the nodes found.
func resolve(idx *nodeindex.MmapIndex, w *osm.Way) (orb.LineString, bool) {
	ls := make(orb.LineString, 0, len(w.Nodes))
	complete := true
	for _, n := range w.Nodes {
		lat, lon, ok := idx.Get(int64(n.ID))
		if !ok {
			complete = false
			continue
		}
		ls = append(ls, orb.Point{lon, lat})
	}
	return ls, complete
}

// multipolygon extracts the way members of a multipolygon or boundary
// relation.
func multipolygon(rel *osm.Relation) *relation {
	switch rel.Tags.Find("type") {
	case "multipolygon", "boundary":
	default:
		return nil
	}
	out := &relation{id: int64(rel.ID), tags: rel.Tags.Map()}
	for _, m := range rel.Members {
		if m.Type != osm.TypeWay {
			continue
		}
		if m.Role == "inner" {
			out.inner = append(out.inner, m.Ref)
		} else {
			out.outer = append(out.outer, m.Ref)
		}
	}
	if len(out.outer) == 0 {
		return nil
	}
	return out
}
