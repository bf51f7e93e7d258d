package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PatternRule is one weighted regex rule for the input-pattern layer.
type PatternRule struct {
	Name    string  `yaml:"name"`
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

// BehaviorThresholds holds the ceilings and weights for the behavior layer.
// Rules are independent and additive.
type BehaviorThresholds struct {
	MaxRequestsPerMinute float64 `yaml:"max_requests_per_minute"`
	RequestRateWeight    float64 `yaml:"request_rate_weight"`
	MaxIPCount           int     `yaml:"max_ip_count"`
	OriginCountWeight    float64 `yaml:"origin_count_weight"`
	UnusualHourStart     int     `yaml:"unusual_hour_start"`
	UnusualHourEnd       int     `yaml:"unusual_hour_end"`
	UnusualHoursWeight   float64 `yaml:"unusual_hours_weight"`
}

// KeywordRule is one denylisted keyword stem for the intent layer.
// Matching is case-insensitive substring containment.
type KeywordRule struct {
	Keyword string  `yaml:"keyword"`
	Weight  float64 `yaml:"weight"`
}

// Bands defines the lower bound of each classification band on the
// clamped combined score. Boundary values belong to the higher band.
type Bands struct {
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
	Low      float64 `yaml:"low"`
}

// Webhook defines one alert destination. Decisions lists which enforcement
// outcomes trigger delivery (e.g. ["block", "isolate"]).
type Webhook struct {
	URL       string            `yaml:"url"`
	Decisions []string          `yaml:"decisions"`
	Headers   map[string]string `yaml:"headers"`
}

// NATSConfig defines an optional NATS sink for enforcement events.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Alerts groups the alert sinks.
type Alerts struct {
	Webhooks []Webhook  `yaml:"webhooks"`
	NATS     NATSConfig `yaml:"nats"`
}

// Config holds all configurable Sentinel parameters. Everything here is
// data, not code: rule tables are swappable without touching scorer logic.
type Config struct {
	Patterns []PatternRule      `yaml:"patterns"`
	Behavior BehaviorThresholds `yaml:"behavior"`
	Keywords []KeywordRule      `yaml:"keywords"`
	Bands    Bands              `yaml:"bands"`
	Alerts   Alerts             `yaml:"alerts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Patterns: []PatternRule{
			{
				Name:    "SQL_INJECTION_PATTERN",
				Pattern: `(?i)('|--|\bunion\b\s+\bselect\b|\bor\b\s+\d+\s*=\s*\d+|\bdrop\b\s+\btable\b)`,
				Weight:  0.5,
			},
			{
				Name:    "XSS_PATTERN",
				Pattern: `(?i)(<\s*script\b|javascript:|\bon\w+\s*=\s*["'])`,
				Weight:  0.5,
			},
			{
				Name:    "SHELL_METACHARACTERS",
				Pattern: "(?:;|&&|\\|\\||`|\\$\\()",
				Weight:  0.4,
			},
			{
				Name:    "PATH_TRAVERSAL",
				Pattern: `\.\./|\.\.\\`,
				Weight:  0.4,
			},
		},
		Behavior: BehaviorThresholds{
			MaxRequestsPerMinute: 100,
			RequestRateWeight:    0.6,
			MaxIPCount:           5,
			OriginCountWeight:    0.5,
			UnusualHourStart:     0,
			UnusualHourEnd:       5,
			UnusualHoursWeight:   0.3,
		},
		Keywords: defaultKeywords(),
		Bands: Bands{
			Critical: 0.8,
			High:     0.6,
			Medium:   0.4,
			Low:      0.2,
		},
	}
}

func defaultKeywords() []KeywordRule {
	stems := []string{
		"hack", "exploit", "breach", "ddos", "inject",
		"malware", "phish", "bypass", "steal", "exfiltrat",
	}
	rules := make([]KeywordRule, len(stems))
	for i, s := range stems {
		rules[i] = KeywordRule{Keyword: s, Weight: 0.4}
	}
	return rules
}

// DefaultPath returns ~/.sentinel/config.yaml, or "" if the home
// directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sentinel", "config.yaml")
}

// Load reads configuration from a YAML file. Empty path falls back to
// DefaultPath. Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw YAML
// bytes on disk. The hash is recorded on every event for audit provenance.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if path == "" || os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return Default(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("config: read: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse: %w", err)
	}

	return cfg, hash, nil
}

// DefaultYAML returns a commented YAML template for init-config.
func DefaultYAML() string {
	return `# sentinel configuration
# Generated by: sentinel init-config
#
# All rule tables are data, not code — edit and the serve command
# hot-reloads without a restart.

# Input-pattern layer: weighted regex rules over raw input.
# Multiple rules may match; contributions sum.
patterns:
  - name: SQL_INJECTION_PATTERN
    pattern: (?i)('|--|\bunion\b\s+\bselect\b|\bor\b\s+\d+\s*=\s*\d+|\bdrop\b\s+\btable\b)
    weight: 0.5
  - name: XSS_PATTERN
    pattern: (?i)(<\s*script\b|javascript:|\bon\w+\s*=\s*["'])
    weight: 0.5
  - name: SHELL_METACHARACTERS
    pattern: "(?:;|&&|\\|\\||` + "`" + `|\\$\\()"
    weight: 0.4
  - name: PATH_TRAVERSAL
    pattern: \.\./|\.\.\\
    weight: 0.4

# Behavior layer: threshold rules over request metadata.
# unusual_hour window is [start, end) in the UTC hour of the event,
# and only fires together with is_new_user.
behavior:
  max_requests_per_minute: 100
  request_rate_weight: 0.6
  max_ip_count: 5
  origin_count_weight: 0.5
  unusual_hour_start: 0
  unusual_hour_end: 5
  unusual_hours_weight: 0.3

# Intent layer: case-insensitive substring stems matched against the
# action name and rationale. Each distinct hit adds its weight.
keywords:
  - { keyword: hack, weight: 0.4 }
  - { keyword: exploit, weight: 0.4 }
  - { keyword: breach, weight: 0.4 }
  - { keyword: ddos, weight: 0.4 }
  - { keyword: inject, weight: 0.4 }
  - { keyword: malware, weight: 0.4 }
  - { keyword: phish, weight: 0.4 }
  - { keyword: bypass, weight: 0.4 }
  - { keyword: steal, weight: 0.4 }
  - { keyword: exfiltrat, weight: 0.4 }

# Classification bands: lower bound of each band on the clamped [0,1]
# combined score. Boundary values belong to the higher band.
bands:
  critical: 0.8
  high: 0.6
  medium: 0.4
  low: 0.2

# Alert sinks for warn/block/isolate decisions (optional).
# alerts:
#   webhooks:
#     - url: https://hooks.example.com/sentinel
#       decisions: [block, isolate]
#   nats:
#     url: nats://127.0.0.1:4222
#     subject: sentinel.events
`
}
