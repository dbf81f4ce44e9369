package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"db-ready/internal/catalog"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadThresholdsEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := catalog.LoadThresholds("")
	if err != nil {
		t.Fatal(err)
	}
	th := cfg.For(catalog.ReqNullRate)
	if th.L1 == nil || *th.L1 != 0.10 {
		t.Errorf("Expected default L1 0.10, got %v", th.L1)
	}
}

func TestLoadThresholdsOverride(t *testing.T) {
	path := writeYAML(t, `
requirements:
  null_rate:
    l1: 0.20
    l2: 0.10
    l3: 0.02
`)
	cfg, err := catalog.LoadThresholds(path)
	if err != nil {
		t.Fatal(err)
	}
	th := cfg.For(catalog.ReqNullRate)
	if *th.L1 != 0.20 || *th.L2 != 0.10 || *th.L3 != 0.02 {
		t.Errorf("Override not applied: %v %v %v", *th.L1, *th.L2, *th.L3)
	}

	// untouched keys keep defaults
	other := cfg.For(catalog.ReqDuplicateRate)
	if *other.L1 != 0.05 {
		t.Errorf("Expected default duplicate_rate L1, got %v", *other.L1)
	}
}

func TestLoadThresholdsRejectsUnknownKey(t *testing.T) {
	path := writeYAML(t, `
requirements:
  made_up_rate:
    l1: 1
    l2: 1
    l3: 1
`)
	if _, err := catalog.LoadThresholds(path); err == nil {
		t.Error("Expected error for unknown requirement key")
	}
}

func TestLoadThresholdsRejectsNonMonotonic(t *testing.T) {
	// null_rate is a lower-is-better key, so tiers must not loosen.
	path := writeYAML(t, `
requirements:
  null_rate:
    l1: 0.01
    l2: 0.05
    l3: 0.10
`)
	if _, err := catalog.LoadThresholds(path); err == nil {
		t.Error("Expected error for non-monotonic triple")
	}
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	if _, err := catalog.LoadThresholds(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
