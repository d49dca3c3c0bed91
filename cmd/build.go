package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2mtiles-go/internal/build"
	"github.com/wegman-software/osm2mtiles-go/internal/logger"
)

var buildCmd = &cobra.Command{
	Use:   "build <x> <y>",
	Short: "Build the map of one zoom-7 area",
	Long: `Build the map file of area (x, y) at the start zoom.

Stages:
  1. Extract the area from SOURCE_PBF with osmconvert (or use --from-file)
  2. Filter OSM elements through the tag schema
  3. Add auxiliary layers from DATA_DB_DSN (boundaries, routes, contours, water)
  4. Post-process (cutlines, pistes)
  5. Generate and encode the tile pyramid
  6. Verify, promote to MAP_TARGET_PATH and update the area index`,
	Args: cobra.ExactArgs(2),
	Run:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func parseArea(args []string) (int, int, error) {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q: %w", args[0], err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q: %w", args[1], err)
	}
	return x, y, nil
}

func runBuild(cmd *cobra.Command, args []string) {
	log := logger.Get()
	x, y, err := parseArea(args)
	if err != nil {
		exitWithError("invalid area", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	driver, closeDB, err := newDriver(ctx)
	if err != nil {
		exitWithError("failed to set up build", err)
	}
	defer closeDB()

	log.Info("Starting area build",
		zap.Int("x", x),
		zap.Int("y", y),
		zap.String("target", cfg.AreaPath(x, y)),
		zap.Int("workers", cfg.Workers),
		zap.Bool("dry_run", cfg.DryRun))

	res, err := driver.BuildArea(ctx, x, y)
	switch {
	case errors.Is(err, build.ErrNoElements):
		log.Warn("Nothing to build", zap.Int("x", x), zap.Int("y", y))
		return
	case err != nil:
		exitWithError("build failed", err)
	}

	log.Info("Build complete",
		zap.String("path", res.Path),
		zap.Int64("size", res.Size),
		zap.Int64("tiles", res.Tiles),
		zap.Int64("features", res.Features),
		zap.Bool("promoted", res.Promoted))
}
