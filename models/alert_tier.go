package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertTier is one entry in the severity-ordered threshold table that
// classifies a price change. The threshold sign encodes direction: a negative
// threshold triggers on downward moves of at least that magnitude, a positive
// threshold on upward moves.
type AlertTier struct {
	Threshold decimal.Decimal `json:"threshold"`
	Severity  int             `json:"severity"`
	Label     string          `json:"label"`
	Emoji     string          `json:"emoji"`
}

// severityLabels maps severity rank (1-based) to message formatting.
var severityLabels = []struct {
	label string
	emoji string
}{
	{"ALERT", "⚠️"},
	{"WARNING", "🚨"},
	{"CRITICAL", "🔥"},
}

// TierSet is an ordered set of alert tiers, ascending in threshold magnitude
// and severity. It is immutable for the process lifetime.
type TierSet []AlertTier

// NewTierSet builds a validated tier set from signed thresholds ordered by
// ascending magnitude. Severity ranks are assigned in order, so severity
// strictly increases with magnitude by construction; a threshold list that
// violates the ordering is rejected rather than reordered.
func NewTierSet(thresholds []decimal.Decimal) (TierSet, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("at least one alert threshold is required")
	}
	if len(thresholds) > len(severityLabels) {
		return nil, fmt.Errorf("at most %d alert thresholds are supported, got %d", len(severityLabels), len(thresholds))
	}

	tiers := make(TierSet, 0, len(thresholds))
	previousMagnitude := decimal.Zero
	for i, threshold := range thresholds {
		if threshold.IsZero() {
			return nil, fmt.Errorf("alert threshold %d must be non-zero", i+1)
		}
		magnitude := threshold.Abs()
		if magnitude.LessThanOrEqual(previousMagnitude) {
			return nil, fmt.Errorf("alert thresholds must strictly increase in magnitude: %s follows %s",
				threshold.String(), previousMagnitude.String())
		}
		previousMagnitude = magnitude

		tiers = append(tiers, AlertTier{
			Threshold: threshold,
			Severity:  i + 1,
			Label:     severityLabels[i].label,
			Emoji:     severityLabels[i].emoji,
		})
	}
	return tiers, nil
}

// Classify returns the single highest-severity tier whose directional
// condition is satisfied by change, or ok=false when no tier matches. The
// scan runs from most severe to least and stops at the first hit, so a move
// past the top threshold produces exactly one classification, never one per
// crossed tier.
func (ts TierSet) Classify(change decimal.Decimal) (AlertTier, bool) {
	for i := len(ts) - 1; i >= 0; i-- {
		tier := ts[i]
		if tier.Threshold.IsNegative() {
			if change.LessThanOrEqual(tier.Threshold) {
				return tier, true
			}
		} else if change.GreaterThanOrEqual(tier.Threshold) {
			return tier, true
		}
	}
	return AlertTier{}, false
}

// ThresholdPercent formats the tier threshold as a percentage, e.g. "-3%".
func (t AlertTier) ThresholdPercent() string {
	return t.Threshold.Mul(decimal.NewFromInt(100)).String() + "%"
}
