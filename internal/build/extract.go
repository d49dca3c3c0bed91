package build

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wegman-software/osm2mtiles-go/internal/config"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
)

// Osmconvert extracts the bounding box of area from cfg.SourcePBF.
// Ways and multipolygons crossing the box are kept whole.
func Osmconvert(ctx context.Context, cfg *config.Config, area proj.Tile, out string) error {
	if cfg.SourcePBF == "" {
		return fmt.Errorf("no source file configured")
	}
	cmd := exec.CommandContext(ctx, cfg.OsmconvertPath, osmconvertArgs(cfg.SourcePBF, area, out)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("osmconvert: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func osmconvertArgs(source string, area proj.Tile, out string) []string {
	b := area.LonLatBound()
	return []string{
		source,
		fmt.Sprintf("-b=%.7f,%.7f,%.7f,%.7f", b.Min[0], b.Min[1], b.Max[0], b.Max[1]),
		"--complete-ways",
		"--complete-multipolygons",
		"--out-pbf",
		"-o=" + out,
	}
}
