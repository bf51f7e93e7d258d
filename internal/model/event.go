package model

import "time"

// ActionMetadata is the typed context accompanying an analyzed action.
// Recognized fields are enumerated; anything else rides in Extra.
type ActionMetadata struct {
	RequestsPerMinute float64        `json:"requests_per_minute"`
	IPCount           int            `json:"ip_count"`
	IsNewUser         bool           `json:"is_new_user"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// MetadataFromMap creates an ActionMetadata from a raw map with defensive
// coercion. Unrecognized keys are preserved in Extra.
func MetadataFromMap(m map[string]any) ActionMetadata {
	md := ActionMetadata{}
	if m == nil {
		return md
	}

	for k, v := range m {
		switch k {
		case "requestsPerMinute", "requests_per_minute":
			md.RequestsPerMinute = toFloat(v)
		case "ipCount", "ip_count":
			md.IPCount = toInt(v)
		case "isNewUser", "is_new_user":
			if b, ok := v.(bool); ok {
				md.IsNewUser = b
			}
		default:
			if md.Extra == nil {
				md.Extra = make(map[string]any)
			}
			md.Extra[k] = v
		}
	}

	return md
}

// LayerEvidence records one layer's raw input and output for forensics.
type LayerEvidence struct {
	Input   any      `json:"input"`
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// SecurityEvent is the immutable record of one completed analysis cycle.
// Created exactly once per orchestrated analysis and never mutated after.
type SecurityEvent struct {
	ID         string                   `json:"id"`
	Timestamp  time.Time                `json:"timestamp"`
	ActorID    string                   `json:"actor_id"`
	ActionType string                   `json:"action_type"`
	Threat     ThreatLevel              `json:"threat"`
	Decision   Decision                 `json:"decision"`
	Evidence   map[string]LayerEvidence `json:"evidence"`
	ConfigHash string                   `json:"config_hash,omitempty"`
	Metadata   ActionMetadata           `json:"metadata"`
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
