// Package threat combines per-layer assessments into one classification
// and maps classifications to enforcement decisions.
package threat

import (
	"github.com/ppiankov/sentinel/internal/config"
	"github.com/ppiankov/sentinel/internal/model"
)

// Aggregate combines layer results into a single ThreatLevel.
// The combined score is the arithmetic mean over the layers actually
// evaluated — not the sum, so one strong layer cannot trivially escalate
// severity on its own — clamped to [0,1]. Factor lists are concatenated in
// layer order with duplicates retained: repeated evidence stays visible.
func Aggregate(layers []model.LayerResult, bands config.Bands) model.ThreatLevel {
	combined := model.ThreatLevel{Factors: []string{}}
	if len(layers) == 0 {
		combined.Level = model.LevelNone
		return combined
	}

	var sum float64
	for _, l := range layers {
		sum += l.Score
		combined.Factors = append(combined.Factors, l.Factors...)
	}

	combined.Score = clamp01(sum / float64(len(layers)))
	combined.Level = Classify(combined.Score, bands)
	return combined
}

// Classify maps a clamped score to a discrete level. Bands are half-open
// and closed on their lower bound, so boundary values belong to the
// higher band. Pure and total; usable independently of the orchestrator.
func Classify(score float64, bands config.Bands) model.Level {
	switch {
	case score >= bands.Critical:
		return model.LevelCritical
	case score >= bands.High:
		return model.LevelHigh
	case score >= bands.Medium:
		return model.LevelMedium
	case score >= bands.Low:
		return model.LevelLow
	default:
		return model.LevelNone
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
