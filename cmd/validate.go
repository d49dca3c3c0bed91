package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2mtiles-go/internal/logger"
	"github.com/wegman-software/osm2mtiles-go/internal/mtiles"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/vtile"
)

var validateCmd = &cobra.Command{
	Use:   "validate <x> <y>",
	Short: "Check a built area map",
	Long: `Check that the map of area (x, y) is complete and that every stored tile
decodes.`,
	Args: cobra.ExactArgs(2),
	Run:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// tileReport summarizes the decoded tiles of a map.
type tileReport struct {
	Tiles, Points, Lines, Polygons, Water int
}

func inspectTiles(r *mtiles.Reader) (tileReport, error) {
	var rep tileReport
	err := r.EachTile(func(z, x, y int, data []byte) error {
		t, err := vtile.Decode(data)
		if err != nil {
			return fmt.Errorf("tile %d/%d/%d: %w", z, x, y, err)
		}
		rep.Tiles++
		rep.Points += len(t.Points)
		rep.Lines += len(t.Lines)
		rep.Polygons += len(t.Polygons)
		if t.Water {
			rep.Water++
		}
		return nil
	})
	return rep, err
}

func runValidate(cmd *cobra.Command, args []string) {
	log := logger.Get()
	x, y, err := parseArea(args)
	if err != nil {
		exitWithError("invalid area", err)
	}

	path := cfg.AreaPath(x, y)
	expected := proj.PyramidSize(cfg.MapStartZoom, cfg.LeafZoom())
	ok, err := mtiles.IsValid(path, expected)
	if err != nil {
		exitWithError("failed to check map", err)
	}
	if !ok {
		exitWithError(fmt.Sprintf("map %s is incomplete, want %d tiles", path, expected), nil)
	}

	r, err := mtiles.Open(path)
	if err != nil {
		exitWithError("failed to open map", err)
	}
	defer r.Close()

	rep, err := inspectTiles(r)
	if err != nil {
		exitWithError("invalid tile", err)
	}
	ids, err := r.FeatureIDs()
	if err != nil {
		exitWithError("failed to read features", err)
	}

	log.Info("Map is valid",
		zap.String("path", path),
		zap.Int("tiles", rep.Tiles),
		zap.Int("points", rep.Points),
		zap.Int("lines", rep.Lines),
		zap.Int("polygons", rep.Polygons),
		zap.Int("water_tiles", rep.Water),
		zap.Int("features", len(ids)))
}
