package cli

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thermoflow/thermoflow/internal/resolve"
)

// fileConfig is the YAML shape of the optional engine config file.
// Only set fields override defaults; zero values keep them.
type fileConfig struct {
	GapToleranceK        float64 `yaml:"gap_tolerance_k"`
	TransitionToleranceK float64 `yaml:"transition_tolerance_k"`
	CoeffTolerance       float64 `yaml:"coeff_tolerance"`
	IntegrationRelTol    float64 `yaml:"integration_rel_tolerance"`
	ExtrapolationWarnK   float64 `yaml:"extrapolation_warn_k"`
	CacheTTLSeconds      int     `yaml:"cache_ttl_seconds"`
	ScoreWeights         struct {
		RecordCount float64 `yaml:"record_count"`
		Reliability float64 `yaml:"reliability"`
		Transitions float64 `yaml:"transitions"`
	} `yaml:"score_weights"`
}

// loadConfig builds the resolver configuration, applying overrides
// from the --config file when one is given.
func loadConfig(path string) (resolve.Config, error) {
	cfg := resolve.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.GapToleranceK > 0 {
		cfg.Selector.GapToleranceK = fc.GapToleranceK
		cfg.Filter.GapTolerance = fc.GapToleranceK
	}
	if fc.TransitionToleranceK > 0 {
		cfg.Selector.TransitionToleranceK = fc.TransitionToleranceK
	}
	if fc.CoeffTolerance > 0 {
		cfg.Selector.CoeffTolerance = fc.CoeffTolerance
		cfg.Filter.CoeffTolerance = fc.CoeffTolerance
	}
	if fc.IntegrationRelTol > 0 {
		cfg.Thermo.RelTolerance = fc.IntegrationRelTol
	}
	if fc.ExtrapolationWarnK > 0 {
		cfg.Thermo.ExtrapolationWarnK = fc.ExtrapolationWarnK
	}
	if fc.CacheTTLSeconds > 0 {
		cfg.CacheTTL = time.Duration(fc.CacheTTLSeconds) * time.Second
	}
	if w := fc.ScoreWeights; w.RecordCount > 0 || w.Reliability > 0 || w.Transitions > 0 {
		cfg.Selector.Weights.RecordCount = w.RecordCount
		cfg.Selector.Weights.Reliability = w.Reliability
		cfg.Selector.Weights.Transitions = w.Transitions
	}
	return cfg, nil
}
