package build

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/areaindex"
	"github.com/wegman-software/osm2mtiles-go/internal/auxquery"
	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/metrics"
	"github.com/wegman-software/osm2mtiles-go/internal/mtiles"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
	"github.com/wegman-software/osm2mtiles-go/internal/tilegen"
)

// BuildBasemap writes the world basemap: the low zoom tiles from zoom 0 to
// the start zoom, plus the index of every built area and its features.
func (d *Driver) BuildBasemap(ctx context.Context) (*Result, error) {
	if d.db == nil {
		return nil, fmt.Errorf("basemap requires an auxiliary database")
	}
	log := d.logger.With(zap.String("area", "basemap"))
	counters := metrics.NewCounters()

	target := d.cfg.BasemapPath()
	if err := os.MkdirAll(d.cfg.MapTargetPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	tmp := target + ".tmp"
	os.Remove(tmp)

	world := proj.Tile{}
	filter := element.NewFilter(d.schema, schema.VariantBasemap, log)
	if _, err := auxquery.Run(ctx, d.db, auxquery.BasemapQueries(), world.Bound(), filter, log); err != nil {
		return nil, err
	}
	elements := filter.Elements()
	counters.Elements.Add(int64(len(elements)))

	now := d.now()
	w, err := mtiles.Create(tmp, mtiles.Metadata{
		Name:      "basemap",
		Type:      "baselayer",
		Format:    "pbf",
		Timestamp: now,
		Basemap:   true,
	}, mtiles.Languages(d.cfg.PreferredLanguages), log)
	if err != nil {
		return nil, err
	}

	if err := d.putMaps(w, log); err != nil {
		w.Abort()
		os.Remove(tmp)
		return nil, err
	}

	gen := tilegen.New(tilegen.Options{
		LeafZoom:  d.cfg.MapStartZoom,
		Workers:   d.cfg.Workers,
		EmitRoot:  true,
		Timestamp: now,
		Strip:     d.schema.Stripped,
	}, log)
	ts, err := gen.Run(ctx, world, elements, w)
	if err != nil {
		w.Abort()
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to generate basemap tiles: %w", err)
	}
	counters.Tiles.Add(ts.Tiles)
	if err := w.Finish(); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(tmp)
		return nil, ErrEmptyOutput
	}
	counters.Bytes.Add(info.Size())

	res := &Result{Area: world, Path: tmp, Size: info.Size(), Tiles: ts.Tiles, Elements: len(elements)}
	if d.cfg.DryRun {
		counters.Log(log, "Basemap built (dry run)", zap.String("path", tmp))
		return res, nil
	}
	if err := os.Rename(tmp, target); err != nil {
		return nil, fmt.Errorf("failed to promote %s: %w", target, err)
	}
	res.Path = target
	res.Promoted = true
	counters.Log(log, "Basemap built", zap.String("path", target))
	return res, nil
}

// putMaps fills the maps and map_features tables from the area index and
// the feature tables of the built areas.
func (d *Driver) putMaps(w *mtiles.Writer, log *zap.Logger) error {
	idx, err := areaindex.Open(d.cfg.IndexPath())
	if err != nil {
		return err
	}
	entries := idx.Entries()
	var features int64
	for _, e := range entries {
		if err := w.PutMap(e.X, e.Y, int(e.Date().Unix()), mtiles.Version); err != nil {
			return err
		}
		ids, err := areaFeatures(d.cfg.AreaPath(e.X, e.Y))
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("Indexed area has no map file", zap.Int("x", e.X), zap.Int("y", e.Y))
			continue
		}
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := w.PutMapFeature(e.X, e.Y, id); err != nil {
				return err
			}
		}
		features += int64(len(ids))
	}
	log.Info("Map index written", zap.Int("maps", len(entries)), zap.Int64("features", features))
	return w.Commit()
}

func areaFeatures(path string) ([]int64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	r, err := mtiles.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.FeatureIDs()
}
