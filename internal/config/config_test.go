package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMissingFileReturnsDefaults(t *testing.T) {
	cfg, hash, err := LoadWithHash(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Patterns) == 0 || len(cfg.Keywords) == 0 {
		t.Error("defaults should carry pattern and keyword tables")
	}
	if cfg.Bands.Critical != 0.8 || cfg.Bands.Low != 0.2 {
		t.Errorf("unexpected default bands: %+v", cfg.Bands)
	}
	if hash == "" {
		t.Error("hash must be set even for defaults")
	}
}

func TestYAMLOverridesOnlySpecifiedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "behavior:\n  max_requests_per_minute: 50\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Behavior.MaxRequestsPerMinute != 50 {
		t.Errorf("expected override 50, got %v", cfg.Behavior.MaxRequestsPerMinute)
	}
	// Untouched sections keep their defaults
	if len(cfg.Patterns) == 0 {
		t.Error("patterns should fall back to defaults")
	}
	if cfg.Bands.Critical != 0.8 {
		t.Errorf("bands should fall back to defaults, got %+v", cfg.Bands)
	}
}

func TestInvalidYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("patterns: [unclosed"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestHashTracksFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bands:\n  low: 0.1\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, hash1, err := LoadWithHash(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte("bands:\n  low: 0.15\n"), 0600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	_, hash2, err := LoadWithHash(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	if hash1 == hash2 {
		t.Error("hash must change when file content changes")
	}
}

func TestDefaultYAMLTemplateParses(t *testing.T) {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(DefaultYAML()), cfg); err != nil {
		t.Fatalf("template must be valid YAML: %v", err)
	}
	if len(cfg.Patterns) != 4 {
		t.Errorf("expected 4 pattern rules in template, got %d", len(cfg.Patterns))
	}
	if len(cfg.Keywords) == 0 {
		t.Error("expected keyword table in template")
	}
}

func TestTemplateMatchesBuiltinDefaults(t *testing.T) {
	fromTemplate := Default()
	if err := yaml.Unmarshal([]byte(DefaultYAML()), fromTemplate); err != nil {
		t.Fatalf("parse template: %v", err)
	}

	builtin := Default()
	if len(fromTemplate.Patterns) != len(builtin.Patterns) {
		t.Fatalf("pattern count mismatch: template %d, builtin %d",
			len(fromTemplate.Patterns), len(builtin.Patterns))
	}
	for i, p := range builtin.Patterns {
		if fromTemplate.Patterns[i].Name != p.Name || fromTemplate.Patterns[i].Weight != p.Weight {
			t.Errorf("pattern %d drifted between template and builtin: %+v vs %+v",
				i, fromTemplate.Patterns[i], p)
		}
	}
	if fromTemplate.Behavior != builtin.Behavior {
		t.Errorf("behavior drifted: %+v vs %+v", fromTemplate.Behavior, builtin.Behavior)
	}
	if fromTemplate.Bands != builtin.Bands {
		t.Errorf("bands drifted: %+v vs %+v", fromTemplate.Bands, builtin.Bands)
	}
}
