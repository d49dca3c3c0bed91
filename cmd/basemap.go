package cmd

import (
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osm2mtiles-go/internal/logger"
)

var basemapCmd = &cobra.Command{
	Use:   "basemap",
	Short: "Build the world basemap and the map index",
	Long: `Build the low zoom world basemap from the auxiliary land, water and
boundary layers (zoom 0 to the start zoom), together with the index of every
built area and the features it contains. Requires DATA_DB_DSN.`,
	Args: cobra.NoArgs,
	Run:  runBasemap,
}

func init() {
	rootCmd.AddCommand(basemapCmd)
}

func runBasemap(cmd *cobra.Command, args []string) {
	log := logger.Get()
	if cfg.DataDBDSN == "" {
		exitWithError("basemap requires DATA_DB_DSN", nil)
	}

	ctx, cancel := signalContext()
	defer cancel()

	driver, closeDB, err := newDriver(ctx)
	if err != nil {
		exitWithError("failed to set up build", err)
	}
	defer closeDB()

	res, err := driver.BuildBasemap(ctx)
	if err != nil {
		exitWithError("basemap failed", err)
	}
	log.Info("Basemap complete",
		zap.String("path", res.Path),
		zap.Int64("size", res.Size),
		zap.Int64("tiles", res.Tiles))
}
