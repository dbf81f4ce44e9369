package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds is the resolved cutoff set applied to one result. A nil tier
// means that tier is not evaluated (it reports skip). Direction comes from
// the requirement, never from configuration.
type Thresholds struct {
	L1, L2, L3 *float64
	Direction  Direction
}

func (t Triple) thresholds(dir Direction) Thresholds {
	l1, l2, l3 := t.L1, t.L2, t.L3
	return Thresholds{L1: &l1, L2: &l2, L3: &l3, Direction: dir}
}

// Config holds per-requirement cutoff overrides loaded from a YAML file.
// Keys absent from the file keep the built-in defaults.
type Config map[Requirement]Triple

type thresholdsFile struct {
	Requirements map[string]struct {
		L1 float64 `yaml:"l1"`
		L2 float64 `yaml:"l2"`
		L3 float64 `yaml:"l3"`
	} `yaml:"requirements"`
}

// LoadThresholds reads a threshold override file and validates every entry:
// the key must be known, and the three tiers must tighten monotonically
// under the key's direction. An empty path returns an empty Config.
func LoadThresholds(path string) (Config, error) {
	if err := ValidateDefaults(); err != nil {
		return nil, err
	}
	cfg := Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thresholds file: %w", err)
	}
	var file thresholdsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing thresholds file: %w", err)
	}
	for key, v := range file.Requirements {
		req := Requirement(key)
		if !req.Known() {
			return nil, fmt.Errorf("unknown requirement %q in thresholds file", key)
		}
		triple := Triple{L1: v.L1, L2: v.L2, L3: v.L3}
		if err := checkMonotonic(req, req.Direction(), triple); err != nil {
			return nil, err
		}
		cfg[req] = triple
	}
	return cfg, nil
}

// For resolves the effective thresholds for a requirement: the file's
// override when present, the built-in defaults otherwise.
func (c Config) For(r Requirement) Thresholds {
	if triple, ok := c[r]; ok {
		return triple.thresholds(r.Direction())
	}
	return r.Defaults().thresholds(r.Direction())
}
