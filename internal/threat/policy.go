package threat

import "github.com/ppiankov/sentinel/internal/model"

// Decide maps a threat level to exactly one enforcement action.
// Total and deterministic: the same level always yields the same action.
// Low and none collapse to allow — sub-threshold signals contribute to
// logging but never independently add friction.
func Decide(level model.Level) model.Decision {
	switch level {
	case model.LevelCritical:
		return model.Isolate
	case model.LevelHigh:
		return model.Block
	case model.LevelMedium:
		return model.Warn
	default:
		return model.Allow
	}
}
