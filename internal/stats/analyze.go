// Package stats aggregates per-turn latency metrics and classifies them
// against configurable quality thresholds.
package stats

import (
	"fmt"
	"sort"

	"github.com/influxdata/tdigest"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/turns"
)

// FieldStats holds mean/min/max for one metric field, in seconds.
type FieldStats struct {
	MeanS float64 `json:"mean_s"`
	MinS  float64 `json:"min_s"`
	MaxS  float64 `json:"max_s"`
}

// TurnRating is the per-turn display row: the turn's total latency and its
// four-tier rating.
type TurnRating struct {
	TurnID        string  `json:"turn_id"`
	TotalLatencyS float64 `json:"total_latency_s"`
	Rating        string  `json:"rating"`
}

// Recommendation is one advisory line, ranked by severity.
type Recommendation struct {
	Stage    string `json:"stage"`
	Severity string `json:"severity"` // "slow", "acceptable", "excellent"
	Text     string `json:"text"`
}

// AggregateReport is the derived analysis of a sequence of turns. It is
// recomputed per invocation and never mutated afterwards.
type AggregateReport struct {
	// NoData is set when the input held zero turns. All other fields are
	// zero in that case; callers must check it before reading them.
	NoData bool `json:"no_data,omitempty"`

	Turns int `json:"turns"`

	EOU   FieldStats `json:"eou"`
	LLM   FieldStats `json:"llm"`
	TTS   FieldStats `json:"tts"`
	Total FieldStats `json:"total"`

	// Stage means as a percentage of the mean total.
	EOUPct float64 `json:"eou_pct_of_total"`
	LLMPct float64 `json:"llm_pct_of_total"`
	TTSPct float64 `json:"tts_pct_of_total"`

	// Distribution of total latency across turns.
	TotalP50S float64 `json:"total_p50_s"`
	TotalP95S float64 `json:"total_p95_s"`

	PerTurn []TurnRating `json:"per_turn"`

	Grade    string `json:"grade"`
	Feedback string `json:"feedback"`

	Recommendations []Recommendation `json:"recommendations"`

	// GapToTargetMs is how far the mean total is above the response-time
	// target, zero when the target is met.
	GapToTargetMs float64 `json:"gap_to_target_ms"`
}

// RateTurn maps one turn's total latency to its four-tier rating. Band edges
// use strict less-than, so a value exactly on an edge falls into the slower
// tier.
func RateTurn(totalS float64, bands config.TurnBands) string {
	switch {
	case totalS < bands.ExcellentS:
		return "Excellent"
	case totalS < bands.GoodS:
		return "Good"
	case totalS < bands.FairS:
		return "Fair"
	default:
		return "Slow"
	}
}

// gradeTotal maps the aggregate mean total to the five-tier grade. The fifth
// tier exists only here: aggregate judgments tolerate more nuance than the
// per-turn display.
func gradeTotal(meanS float64, bands config.TurnBands) (grade, feedback string) {
	switch {
	case meanS < bands.ExcellentS:
		return "A+ (Excellent)", "Response time feels natural and immediate!"
	case meanS < bands.GoodS:
		return "A (Very Good)", "Response time is very good, users will be satisfied."
	case meanS < bands.FairS:
		return "B (Good)", "Response time is acceptable but has room for improvement."
	case meanS < bands.PoorS:
		return "C (Fair)", "Response time is noticeable, optimization recommended."
	default:
		return "D (Poor)", "Response time is too slow, immediate optimization needed."
	}
}

// Analyze aggregates the given turns into an AggregateReport using the
// thresholds in cfg. An empty input yields a NoData report, never an error.
func Analyze(metrics []turns.TurnMetrics, cfg *config.Config) *AggregateReport {
	if len(metrics) == 0 {
		return &AggregateReport{NoData: true}
	}

	r := &AggregateReport{Turns: len(metrics)}

	td := tdigest.NewWithCompression(100)
	for i, m := range metrics {
		accumulate(&r.EOU, m.EOUDelayS, i == 0)
		accumulate(&r.LLM, m.LLMFirstTokenS, i == 0)
		accumulate(&r.TTS, m.TTSFirstByteS, i == 0)
		accumulate(&r.Total, m.TotalLatencyS, i == 0)
		td.Add(m.TotalLatencyS, 1)
		r.PerTurn = append(r.PerTurn, TurnRating{
			TurnID:        m.TurnID,
			TotalLatencyS: m.TotalLatencyS,
			Rating:        RateTurn(m.TotalLatencyS, cfg.Turn),
		})
	}

	n := float64(len(metrics))
	r.EOU.MeanS /= n
	r.LLM.MeanS /= n
	r.TTS.MeanS /= n
	r.Total.MeanS /= n

	if r.Total.MeanS > 0 {
		r.EOUPct = r.EOU.MeanS / r.Total.MeanS * 100
		r.LLMPct = r.LLM.MeanS / r.Total.MeanS * 100
		r.TTSPct = r.TTS.MeanS / r.Total.MeanS * 100
	}

	r.TotalP50S = td.Quantile(0.50)
	r.TotalP95S = td.Quantile(0.95)

	r.Grade, r.Feedback = gradeTotal(r.Total.MeanS, cfg.Turn)

	if gap := r.Total.MeanS - cfg.TargetTotalS; gap > 0 {
		r.GapToTargetMs = gap * 1000
	}

	r.Recommendations = recommend(r, cfg.Stages)
	return r
}

// accumulate folds one sample into sum-as-mean/min/max. MeanS carries the
// running sum until Analyze divides by n.
func accumulate(fs *FieldStats, v float64, first bool) {
	fs.MeanS += v
	if first || v < fs.MinS {
		fs.MinS = v
	}
	if first || v > fs.MaxS {
		fs.MaxS = v
	}
}

// recommend produces one advisory per stage, ordered worst first.
func recommend(r *AggregateReport, th config.StageThresholds) []Recommendation {
	recs := []Recommendation{
		adviseEOU(r.EOU.MeanS, th.EOU),
		adviseLLM(r.LLM.MeanS, th.LLM),
		adviseTTS(r.TTS.MeanS, th.TTS),
	}

	rank := map[string]int{"slow": 0, "acceptable": 1, "excellent": 2}
	sort.SliceStable(recs, func(i, j int) bool {
		return rank[recs[i].Severity] < rank[recs[j].Severity]
	})
	return recs
}

func adviseEOU(meanS float64, b config.StageBands) Recommendation {
	switch {
	case meanS > b.SlowS:
		return Recommendation{
			Stage:    "eou",
			Severity: "slow",
			Text: fmt.Sprintf("EOU detection is slow (%.3fs avg): endpointing may be too conservative, consider lowering it to 150-200ms",
				meanS),
		}
	case meanS > b.ExcellentS:
		return Recommendation{
			Stage:    "eou",
			Severity: "acceptable",
			Text:     fmt.Sprintf("EOU detection is acceptable (%.3fs avg): endpointing setting seems balanced", meanS),
		}
	default:
		return Recommendation{
			Stage:    "eou",
			Severity: "excellent",
			Text:     fmt.Sprintf("EOU detection is excellent (%.3fs avg): endpointing setting is well-tuned", meanS),
		}
	}
}

func adviseLLM(meanS float64, b config.StageBands) Recommendation {
	switch {
	case meanS > b.SlowS:
		return Recommendation{
			Stage:    "llm",
			Severity: "slow",
			Text:     fmt.Sprintf("LLM response is slow (%.3fs avg): consider a faster model or enabling caching", meanS),
		}
	case meanS > b.ExcellentS:
		return Recommendation{
			Stage:    "llm",
			Severity: "acceptable",
			Text:     fmt.Sprintf("LLM response is acceptable (%.3fs avg)", meanS),
		}
	default:
		return Recommendation{
			Stage:    "llm",
			Severity: "excellent",
			Text:     fmt.Sprintf("LLM response is excellent (%.3fs avg)", meanS),
		}
	}
}

func adviseTTS(meanS float64, b config.StageBands) Recommendation {
	switch {
	case meanS > b.SlowS:
		return Recommendation{
			Stage:    "tts",
			Severity: "slow",
			Text:     fmt.Sprintf("TTS generation is slow (%.3fs avg): consider a faster voice model", meanS),
		}
	case meanS > b.ExcellentS:
		return Recommendation{
			Stage:    "tts",
			Severity: "acceptable",
			Text:     fmt.Sprintf("TTS generation is acceptable (%.3fs avg)", meanS),
		}
	default:
		return Recommendation{
			Stage:    "tts",
			Severity: "excellent",
			Text:     fmt.Sprintf("TTS generation is excellent (%.3fs avg)", meanS),
		}
	}
}
