// Package build orchestrates the stages that turn one zoom-7 area of OSM
// data into a map file.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/areaindex"
	"github.com/wegman-software/osm2mtiles-go/internal/auxquery"
	"github.com/wegman-software/osm2mtiles-go/internal/config"
	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/intermediate"
	"github.com/wegman-software/osm2mtiles-go/internal/metrics"
	"github.com/wegman-software/osm2mtiles-go/internal/mtiles"
	"github.com/wegman-software/osm2mtiles-go/internal/osmsource"
	"github.com/wegman-software/osm2mtiles-go/internal/postprocess"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
	"github.com/wegman-software/osm2mtiles-go/internal/tilegen"
)

var (
	// ErrNoElements is returned when an area holds nothing worth a map.
	ErrNoElements = errors.New("area has no elements")
	// ErrEmptyOutput is returned when the generated file is empty. The
	// previous map, if any, is kept.
	ErrEmptyOutput = errors.New("generated map is empty")
)

// Extractor cuts the data of area out of the configured source file into out.
type Extractor func(ctx context.Context, cfg *config.Config, area proj.Tile, out string) error

// SourceReader streams the OSM file at path into h.
type SourceReader func(ctx context.Context, path, scratch string, workers int, h osmsource.Handler, logger *zap.Logger) (osmsource.Stats, error)

// ReadPBF reads a PBF file with osmsource.
func ReadPBF(ctx context.Context, path, scratch string, workers int, h osmsource.Handler, logger *zap.Logger) (osmsource.Stats, error) {
	r, err := osmsource.NewReader(path, scratch, workers, logger)
	if err != nil {
		return osmsource.Stats{}, err
	}
	if err := r.Run(ctx, h); err != nil {
		return r.Stats(), err
	}
	return r.Stats(), nil
}

// Result describes a finished area build.
type Result struct {
	Area     proj.Tile
	Path     string
	Size     int64
	Tiles    int64
	Features int64
	Elements int
	Promoted bool
}

// Driver runs area and basemap builds.
type Driver struct {
	cfg    *config.Config
	schema *schema.Schema
	db     auxquery.Querier
	logger *zap.Logger

	// Extract defaults to running osmconvert.
	Extract Extractor
	// Read defaults to ReadPBF.
	Read SourceReader
	// Enrich is passed on to the element filter.
	Enrich func(*element.Element)
	now    func() time.Time
}

// NewDriver creates a driver. db may be nil, in which case auxiliary layers
// are skipped.
func NewDriver(cfg *config.Config, s *schema.Schema, db auxquery.Querier, logger *zap.Logger) *Driver {
	return &Driver{
		cfg:     cfg,
		schema:  s,
		db:      db,
		logger:  logger,
		Extract: Osmconvert,
		Read:    ReadPBF,
		now:     time.Now,
	}
}

// BuildArea builds the map of area (x, y) at the start zoom.
func (d *Driver) BuildArea(ctx context.Context, x, y int) (*Result, error) {
	area := proj.Tile{Z: d.cfg.MapStartZoom, X: x, Y: y}
	if n := 1 << area.Z; x < 0 || x >= n || y < 0 || y >= n {
		return nil, fmt.Errorf("area %d-%d out of range at zoom %d", x, y, area.Z)
	}
	log := d.logger.With(zap.String("area", fmt.Sprintf("%d-%d", x, y)))

	scratch := filepath.Join(d.cfg.DataPath, fmt.Sprintf("%d-%d", x, y))
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if !d.cfg.Keep {
		defer os.RemoveAll(scratch)
	}

	collector := metrics.NewCollector(d.cfg.MetricsInterval, d.cfg.DataPath, log)
	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	go collector.Start(metricsCtx)
	counters := metrics.NewCounters()

	// Extract
	collector.SetStage("extract")
	source := d.cfg.FromFile
	if source == "" {
		source = filepath.Join(scratch, "area.osm.pbf")
		start := time.Now()
		if err := d.Extract(ctx, d.cfg, area, source); err != nil {
			return nil, fmt.Errorf("failed to extract area: %w", err)
		}
		log.Info("Extract complete", zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	}

	// Read and filter
	collector.SetStage("filter")
	filter := element.NewFilter(d.schema, schema.VariantRegular, log)
	filter.Enrich = d.Enrich
	rs, err := d.Read(ctx, source, scratch, d.cfg.Workers, filter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	fs := filter.Stats()
	log.Info("Filter complete",
		zap.Int64("nodes", rs.Nodes),
		zap.Int64("ways", rs.Ways),
		zap.Int64("areas", rs.Areas),
		zap.Int64("missing_ways", rs.MissingWays),
		zap.Int64("renderable", fs.Renderable),
		zap.Int64("dropped", fs.Dropped))

	// Auxiliary layers
	if d.db != nil {
		collector.SetStage("aux")
		as, err := auxquery.Run(ctx, d.db, auxquery.AreaQueries(), area.Bound(), filter, log)
		if err != nil {
			return nil, err
		}
		log.Info("Auxiliary layers complete", zap.Int64("rows", as.Rows), zap.Int64("added", as.Added))
	}

	if !filter.HasElements() {
		log.Warn("Area has no elements")
		if !d.cfg.DryRun {
			if err := d.clearIndex(x, y); err != nil {
				log.Error("Failed to clear index entry", zap.Error(err))
			}
		}
		return nil, ErrNoElements
	}

	// Post-process
	collector.SetStage("postprocess")
	elements := postprocess.Run(filter.Elements(), log)
	counters.Elements.Add(int64(len(elements)))

	if d.cfg.Intermediate {
		dump := filepath.Join(d.cfg.DataPath, fmt.Sprintf("%d-%d.parquet", x, y))
		if err := intermediate.WriteFile(dump, elements); err != nil {
			return nil, fmt.Errorf("failed to write intermediate dump: %w", err)
		}
		log.Info("Intermediate dump written", zap.String("path", dump), zap.Int("elements", len(elements)))
	}

	// Generate
	collector.SetStage("tiles")
	target := d.cfg.AreaPath(x, y)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	tmp := target + ".tmp"
	os.Remove(tmp)

	now := d.now()
	bounds := area.LonLatBound()
	w, err := mtiles.Create(tmp, mtiles.Metadata{
		Name:      fmt.Sprintf("%d-%d", x, y),
		Type:      "baselayer",
		Format:    "pbf",
		Timestamp: now,
		Bounds:    &bounds,
	}, mtiles.Languages(d.cfg.PreferredLanguages), log)
	if err != nil {
		return nil, err
	}

	features, err := putFeatures(w, elements)
	if err != nil {
		w.Abort()
		os.Remove(tmp)
		return nil, err
	}
	counters.Features.Add(features)

	gen := tilegen.New(tilegen.Options{
		LeafZoom:  d.cfg.LeafZoom(),
		Workers:   d.cfg.Workers,
		Timestamp: now,
		Strip:     d.schema.Stripped,
	}, log)
	ts, err := gen.Run(ctx, area, elements, w)
	if err != nil {
		w.Abort()
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to generate tiles: %w", err)
	}
	counters.Tiles.Add(ts.Tiles)
	if err := w.Finish(); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	// Verify
	info, err := os.Stat(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(tmp)
		log.Error("Refusing to promote empty map", zap.String("path", tmp))
		return nil, ErrEmptyOutput
	}
	counters.Bytes.Add(info.Size())

	res := &Result{
		Area:     area,
		Path:     tmp,
		Size:     info.Size(),
		Tiles:    ts.Tiles,
		Features: features,
		Elements: len(elements),
	}

	if d.cfg.DryRun {
		counters.Log(log, "Area built (dry run)", zap.String("path", tmp))
		return res, nil
	}

	// Promote and index
	if err := os.Rename(tmp, target); err != nil {
		return nil, fmt.Errorf("failed to promote %s: %w", target, err)
	}
	res.Path = target
	res.Promoted = true

	idx, err := areaindex.Open(d.cfg.IndexPath())
	if err != nil {
		return res, err
	}
	if err := idx.Set(x, y, now, info.Size()); err != nil {
		return res, err
	}
	if err := idx.Save(); err != nil {
		return res, err
	}

	counters.Log(log, "Area built", zap.String("path", target))
	return res, nil
}

func (d *Driver) clearIndex(x, y int) error {
	idx, err := areaindex.Open(d.cfg.IndexPath())
	if err != nil {
		return err
	}
	if err := idx.Clear(x, y); err != nil {
		return err
	}
	return idx.Save()
}

// putFeatures stores POIs and labelled named elements in the side-index.
func putFeatures(w *mtiles.Writer, elements []*element.Element) (int64, error) {
	var n int64
	for _, e := range elements {
		if e.ID == 0 {
			continue
		}
		if e.Kind == 0 && (e.Tags["name"] == "" || e.Label == nil) {
			continue
		}
		err := w.PutFeature(mtiles.Feature{
			ID:    e.ID,
			Tags:  e.Tags,
			Kind:  e.Kind,
			Type:  e.Type,
			Label: e.Label,
			Geom:  e.Geom,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
