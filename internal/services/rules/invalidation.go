package rules

import (
	"fmt"

	"BiasGuard/internal/domain/models"
)

// CheckInvalidation compares the current price against the level at
// which the held thesis is wrong. A breach while holding is a hard
// stop; a breach while moving away from the broken bias permits the
// change regardless of the other gates.
func CheckInvalidation(cfg Config, in Input) Result {
	bias := in.Snapshot.Bias
	if bias == nil || !bias.Bias.Directional() || bias.InvalidationLevel == nil || in.CurrentPrice == nil {
		return Result{}
	}

	level := *bias.InvalidationLevel
	price := *in.CurrentPrice

	// At-or-past the level counts as a breach.
	breached := (bias.Bias == models.BiasBullish && price <= level) ||
		(bias.Bias == models.BiasBearish && price >= level)
	if !breached {
		return Result{}
	}

	if in.Proposed != bias.Bias {
		return Result{
			AllowsChange: true,
			OverrideNote: fmt.Sprintf("invalidation level %.2f breached at %.2f; change away from %s permitted", level, price, bias.Bias),
		}
	}

	return Result{
		Blocking: true,
		Conflict: &models.ConflictReport{
			Type:         models.ConflictInvalidation,
			Severity:     models.SeverityCritical,
			Message:      fmt.Sprintf("price %.2f breached the %s invalidation level %.2f", price, bias.Bias, level),
			CurrentValue: fmt.Sprintf("%.2f", price),
			Threshold:    fmt.Sprintf("%.2f", level),
			Guidance:     "thesis is invalidated; close exposure and re-establish with fresh reasoning",
		},
	}
}
