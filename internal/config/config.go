// Package config provides the tunable threshold and advisory tables for the
// latency measurement tools. All classification bands are configuration, not
// hard-coded constants, so they can be retuned per model without a rebuild.
package config

import "fmt"

// ProcessingBands classifies estimated STT processing latency in milliseconds.
// Latency below ExpectedMaxMs is on target, latency up to SlowMaxMs is
// slightly slow, anything above is significantly slow.
type ProcessingBands struct {
	ExpectedMaxMs float64 `yaml:"expected_max_ms"`
	SlowMaxMs     float64 `yaml:"slow_max_ms"`
}

// Classify maps an estimated processing latency to a label.
func (b ProcessingBands) Classify(ms float64) string {
	switch {
	case ms < b.ExpectedMaxMs:
		return "as expected"
	case ms <= b.SlowMaxMs:
		return "slightly slow"
	default:
		return "significantly slow"
	}
}

// TurnBands holds the per-turn and aggregate total-latency tiers in seconds.
// Comparisons are strict less-than at every edge: a 1.5s mean lands in the
// GoodS..FairS tier, not the one below it.
type TurnBands struct {
	ExcellentS float64 `yaml:"excellent_s"`
	GoodS      float64 `yaml:"good_s"`
	FairS      float64 `yaml:"fair_s"`
	PoorS      float64 `yaml:"poor_s"` // aggregate grading only
}

// StageBands holds advisory thresholds in seconds for one pipeline stage.
// Mean latency below ExcellentS is excellent, below SlowS acceptable, and
// at or above SlowS slow.
type StageBands struct {
	ExcellentS float64 `yaml:"excellent_s"`
	SlowS      float64 `yaml:"slow_s"`
}

// StageThresholds carries independent advisory bands for the three stages of
// a conversational turn. The scales differ per stage and must not be fused.
type StageThresholds struct {
	EOU StageBands `yaml:"eou"`
	LLM StageBands `yaml:"llm"`
	TTS StageBands `yaml:"tts"`
}

// Improvement is one row of the expected-improvement reference table shown by
// variant comparisons. It is domain knowledge supplied as configuration; the
// comparison engine never computes it from measured data.
type Improvement struct {
	Stage  string `yaml:"stage"`
	Delta  string `yaml:"delta"`
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

// Config is the root threshold configuration, typically loaded from YAML via
// [Load] or constructed with [Default].
type Config struct {
	Processing   ProcessingBands `yaml:"processing"`
	Turn         TurnBands       `yaml:"turn"`
	Stages       StageThresholds `yaml:"stages"`
	TargetTotalS float64         `yaml:"target_total_s"`
	Improvements []Improvement   `yaml:"expected_improvements"`
}

// Default returns the reference thresholds: Deepgram's ~300ms STT target for
// processing bands, a 1.0s conversational response target, and the
// inference-mode migration table for expected improvements.
func Default() *Config {
	return &Config{
		Processing: ProcessingBands{ExpectedMaxMs: 350, SlowMaxMs: 500},
		Turn: TurnBands{
			ExcellentS: 1.0,
			GoodS:      1.5,
			FairS:      2.0,
			PoorS:      3.0,
		},
		Stages: StageThresholds{
			EOU: StageBands{ExcellentS: 0.5, SlowS: 0.8},
			LLM: StageBands{ExcellentS: 0.5, SlowS: 0.8},
			TTS: StageBands{ExcellentS: 0.2, SlowS: 0.3},
		},
		TargetTotalS: 1.0,
		Improvements: []Improvement{
			{Stage: "STT", Delta: "70-100ms faster", Before: "100-150ms", After: "30-50ms"},
			{Stage: "TTS", Delta: "60-80ms faster", Before: "80-120ms", After: "20-40ms"},
			{Stage: "LLM", Delta: "100-150ms faster", Before: "200-300ms", After: "100-150ms"},
			{Stage: "TOTAL", Delta: "230-330ms faster", Before: "400-600ms", After: "150-250ms"},
		},
	}
}

// Validate checks that cfg contains a coherent set of thresholds.
func Validate(cfg *Config) error {
	if cfg.Processing.ExpectedMaxMs <= 0 || cfg.Processing.SlowMaxMs <= cfg.Processing.ExpectedMaxMs {
		return fmt.Errorf("config: processing bands must satisfy 0 < expected_max_ms < slow_max_ms, got %.0f/%.0f",
			cfg.Processing.ExpectedMaxMs, cfg.Processing.SlowMaxMs)
	}
	t := cfg.Turn
	if !(t.ExcellentS > 0 && t.ExcellentS < t.GoodS && t.GoodS < t.FairS && t.FairS < t.PoorS) {
		return fmt.Errorf("config: turn bands must be strictly increasing, got %.2f/%.2f/%.2f/%.2f",
			t.ExcellentS, t.GoodS, t.FairS, t.PoorS)
	}
	for name, sb := range map[string]StageBands{"eou": cfg.Stages.EOU, "llm": cfg.Stages.LLM, "tts": cfg.Stages.TTS} {
		if sb.ExcellentS <= 0 || sb.SlowS <= sb.ExcellentS {
			return fmt.Errorf("config: stages.%s must satisfy 0 < excellent_s < slow_s, got %.2f/%.2f",
				name, sb.ExcellentS, sb.SlowS)
		}
	}
	if cfg.TargetTotalS <= 0 {
		return fmt.Errorf("config: target_total_s must be positive, got %.2f", cfg.TargetTotalS)
	}
	return nil
}
