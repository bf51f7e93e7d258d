// Package scorer implements the three analytical layers of the Sentinel
// pipeline. Each layer is a pure function over an immutable compiled rule
// set: no shared state, no I/O, total over its input domain.
package scorer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/sentinel/internal/config"
)

type compiledPattern struct {
	name   string
	re     *regexp.Regexp
	weight float64
}

type keyword struct {
	stem   string // lowercased
	weight float64
}

// Rules is the compiled, immutable rule set shared by the scorer layers.
// Compile once at load; swap atomically on hot reload.
type Rules struct {
	patterns []compiledPattern
	behavior config.BehaviorThresholds
	keywords []keyword
}

// Compile builds a Rules set from configuration, compiling pattern regexes.
// Invalid rules are rejected here so the layers themselves can never fail.
func Compile(cfg *config.Config) (*Rules, error) {
	r := &Rules{behavior: cfg.Behavior}

	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("scorer: compile pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, compiledPattern{
			name:   p.Name,
			re:     re,
			weight: p.Weight,
		})
	}

	for _, k := range cfg.Keywords {
		if k.Keyword == "" {
			continue
		}
		r.keywords = append(r.keywords, keyword{
			stem:   strings.ToLower(k.Keyword),
			weight: k.Weight,
		})
	}

	return r, nil
}
