package model

// Level classifies combined threat severity.
type Level string

const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelRank maps levels to comparable integers for monotonic ordering.
// String comparison on Level values is meaningless; always compare ranks.
var LevelRank = map[Level]int{
	LevelNone:     0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

// Rank returns the comparable integer for the level. Unknown levels rank as none.
func (l Level) Rank() int {
	return LevelRank[l]
}

// ParseLevel maps a string to a Level. Unknown strings map to none.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return Level(s)
	default:
		return LevelNone
	}
}

// Decision is the enforcement outcome derived from a threat level.
type Decision string

const (
	Allow   Decision = "allow"
	Warn    Decision = "warn"
	Block   Decision = "block"
	Isolate Decision = "isolate"
)

// ThreatLevel is the combined assessment of one analysis cycle.
// Factors preserve layer order and retain duplicates: repeated evidence
// must stay visible in the audit trail.
type ThreatLevel struct {
	Level   Level    `json:"level"`
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// LayerResult is the raw output of a single scorer layer before aggregation.
// Score is additive and unclamped; clamping happens at aggregation.
type LayerResult struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}
