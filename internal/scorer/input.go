package scorer

import "github.com/ppiankov/sentinel/internal/model"

// ScoreInput tests raw free-text input against the weighted pattern rules.
// Each matching rule contributes its fixed weight once and appends its name
// as a factor. Contributions sum; the score is not clamped here.
func (r *Rules) ScoreInput(raw string) model.LayerResult {
	result := model.LayerResult{Factors: []string{}}
	if raw == "" {
		return result
	}

	for _, p := range r.patterns {
		if p.re.MatchString(raw) {
			result.Score += p.weight
			result.Factors = append(result.Factors, p.name)
		}
	}

	return result
}
