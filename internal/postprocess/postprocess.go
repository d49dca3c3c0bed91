// Package postprocess reshapes interacting feature classes on the root
// element set before tiles are generated.
package postprocess

import (
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

// Run applies every post-processor requested by the elements' mappings and
// returns the resulting element set.
func Run(elements []*element.Element, logger *zap.Logger) []*element.Element {
	var requested schema.PreProcessor
	for _, e := range elements {
		requested |= e.Mapping.PreProcess
	}
	if requested == 0 {
		return elements
	}

	eng := geomops.NewEngine()
	if requested&schema.PreProcessCutlines != 0 {
		before := len(elements)
		elements = Cutlines(elements, eng, logger)
		logger.Debug("Cutlines processed", zap.Int("before", before), zap.Int("after", len(elements)))
	}
	if requested&schema.PreProcessPistes != 0 {
		before := len(elements)
		elements = Pistes(elements, eng, logger)
		logger.Debug("Pistes processed", zap.Int("before", before), zap.Int("after", len(elements)))
	}
	return elements
}
