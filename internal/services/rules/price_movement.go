package rules

import (
	"fmt"

	"BiasGuard/internal/domain/models"
)

// CheckPriceMovement measures the adverse move against a reference
// price: the latest entry price when a position is open, otherwise the
// invalidation level. Warnings do not block unless the move crossed
// the critical band while the caller proposes holding on.
func CheckPriceMovement(cfg Config, in Input) Result {
	bias := in.Snapshot.Bias
	if bias == nil || !bias.Bias.Directional() || in.CurrentPrice == nil {
		return Result{}
	}

	ref := referencePrice(in.Snapshot, bias)
	if ref == nil || *ref <= 0 {
		return Result{}
	}

	price := *in.CurrentPrice
	var adverse float64
	switch bias.Bias {
	case models.BiasBullish:
		adverse = (*ref - price) / *ref
	case models.BiasBearish:
		adverse = (price - *ref) / *ref
	}
	if adverse <= 0 {
		return Result{}
	}

	var hit *Threshold
	for i := range cfg.Thresholds {
		if adverse >= cfg.Thresholds[i].Percent {
			hit = &cfg.Thresholds[i]
		}
	}
	if hit == nil {
		return Result{}
	}

	blocking := hit.Severity == models.SeverityCritical && in.Proposed == bias.Bias
	return Result{
		Blocking: blocking,
		Conflict: &models.ConflictReport{
			Type:         models.ConflictPriceMovement,
			Severity:     hit.Severity,
			Message:      hit.Message,
			CurrentValue: fmt.Sprintf("%.1f%%", adverse*100),
			Threshold:    fmt.Sprintf("%.0f%%", hit.Percent*100),
			Guidance:     "price is moving against the held bias; reassess before adding exposure",
		},
	}
}

// referencePrice prefers the newest position entered in the direction
// of the held bias, falling back to the invalidation level.
func referencePrice(snap *models.ConsistencySnapshot, bias *models.BiasRecord) *float64 {
	for i := range snap.Positions {
		pos := &snap.Positions[i]
		if pos.MatchesBias(bias.Bias) && pos.EntryPrice > 0 {
			p := pos.EntryPrice
			return &p
		}
	}
	return bias.InvalidationLevel
}
