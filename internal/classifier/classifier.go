// Package classifier partitions match candidates into confidence tiers.
package classifier

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/model"
)

// Policy selects how score thresholds are applied.
type Policy string

const (
	// PolicyThresholded applies the high/low thresholds: auto-accept at or
	// above high, adjudicate between low and high, discard below low.
	PolicyThresholded Policy = "thresholded"

	// PolicyBlanketAdjudicate routes every candidate with any score to
	// adjudication, ignoring thresholds. This is the reference operating
	// mode for oracle-assisted runs.
	PolicyBlanketAdjudicate Policy = "blanket_adjudicate"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyThresholded || p == PolicyBlanketAdjudicate
}

// Config holds classifier tuning. HighThreshold must be >= LowThreshold.
type Config struct {
	Policy        Policy  `yaml:"policy" mapstructure:"policy"`
	HighThreshold float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	LowThreshold  float64 `yaml:"low_threshold" mapstructure:"low_threshold"`
}

// Validate checks policy and threshold ordering.
func (c Config) Validate() error {
	if !c.Policy.Valid() {
		return eris.Errorf("classifier: unknown policy %q", c.Policy)
	}
	if c.HighThreshold < c.LowThreshold {
		return eris.Errorf("classifier: high threshold %.1f below low threshold %.1f",
			c.HighThreshold, c.LowThreshold)
	}
	return nil
}

// Tiers is the classifier output. Order within each bucket follows input
// order; classification is deterministic.
type Tiers struct {
	AutoAccept     []model.MatchCandidate
	NeedsReview    []model.MatchCandidate
	BelowThreshold []model.MatchCandidate
}

// Classify partitions candidates per the configured policy. Candidates are
// re-tagged, never mutated: adjudication-bound copies carry the ambiguous
// method tag.
func Classify(candidates []model.MatchCandidate, cfg Config) Tiers {
	var tiers Tiers

	for _, c := range candidates {
		if cfg.Policy == PolicyBlanketAdjudicate {
			tiers.NeedsReview = append(tiers.NeedsReview, c.Retag(model.MethodFuzzyAmbiguous))
			continue
		}

		switch {
		case c.Score >= cfg.HighThreshold:
			tiers.AutoAccept = append(tiers.AutoAccept, c)
		case c.Score >= cfg.LowThreshold:
			tiers.NeedsReview = append(tiers.NeedsReview, c.Retag(model.MethodFuzzyAmbiguous))
		default:
			tiers.BelowThreshold = append(tiers.BelowThreshold, c)
		}
	}

	zap.L().Info("classification complete",
		zap.String("policy", string(cfg.Policy)),
		zap.Int("auto_accept", len(tiers.AutoAccept)),
		zap.Int("needs_review", len(tiers.NeedsReview)),
		zap.Int("below_threshold", len(tiers.BelowThreshold)),
	)
	return tiers
}
