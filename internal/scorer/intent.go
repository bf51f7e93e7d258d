package scorer

import (
	"strings"

	"github.com/ppiankov/sentinel/internal/model"
)

// FactorKeywordPrefix tags intent factors with the specific keyword that
// matched, e.g. "HIGH_RISK_KEYWORD:ddos".
const FactorKeywordPrefix = "HIGH_RISK_KEYWORD:"

// ScoreIntent scans the action name and optional rationale for denylisted
// keyword stems (case-insensitive substring match). Each distinct stem that
// matches contributes its weight, so repeated distinct hits accumulate.
func (r *Rules) ScoreIntent(action, rationale string) model.LayerResult {
	result := model.LayerResult{Factors: []string{}}

	haystack := strings.ToLower(action)
	if rationale != "" {
		haystack += " " + strings.ToLower(rationale)
	}

	for _, k := range r.keywords {
		if strings.Contains(haystack, k.stem) {
			result.Score += k.weight
			result.Factors = append(result.Factors, FactorKeywordPrefix+k.stem)
		}
	}

	return result
}
