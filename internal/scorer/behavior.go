package scorer

import (
	"time"

	"github.com/ppiankov/sentinel/internal/model"
)

// Behavior factor tags.
const (
	FactorHighRequestRate      = "HIGH_REQUEST_RATE"
	FactorMultipleOrigins      = "MULTIPLE_ORIGINS"
	FactorUnusualHoursNewActor = "UNUSUAL_HOURS_NEW_ACTOR"
)

// ScoreBehavior applies the threshold rules to the action's metadata.
// Rules are independent and additive: a rate above the configured ceiling,
// an origin count above its ceiling, and activity inside the unusual-hours
// window by a new actor each add their own weight and factor. The hour
// window is read from at, which the engine passes in UTC.
func (r *Rules) ScoreBehavior(actorID, action string, md model.ActionMetadata, at time.Time) model.LayerResult {
	result := model.LayerResult{Factors: []string{}}
	t := r.behavior

	if t.MaxRequestsPerMinute > 0 && md.RequestsPerMinute > t.MaxRequestsPerMinute {
		result.Score += t.RequestRateWeight
		result.Factors = append(result.Factors, FactorHighRequestRate)
	}

	if t.MaxIPCount > 0 && md.IPCount > t.MaxIPCount {
		result.Score += t.OriginCountWeight
		result.Factors = append(result.Factors, FactorMultipleOrigins)
	}

	if md.IsNewUser && inWindow(at.Hour(), t.UnusualHourStart, t.UnusualHourEnd) {
		result.Score += t.UnusualHoursWeight
		result.Factors = append(result.Factors, FactorUnusualHoursNewActor)
	}

	return result
}

// inWindow reports whether hour falls in [start, end), wrapping past
// midnight when start > end (e.g. 22–6).
func inWindow(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
