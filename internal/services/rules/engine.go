package rules

import (
	"sort"

	"BiasGuard/internal/domain/models"
)

// Evaluate runs every rule against the snapshot and folds the results
// into one verdict. An invalidation breach that permits moving away
// from the broken bias short-circuits the remaining gates.
func Evaluate(cfg Config, in Input) models.ConsistencyVerdict {
	ctx := buildContext(in)

	inv := CheckInvalidation(cfg, in)
	if inv.AllowsChange {
		ctx.OverrideApplied = true
		ctx.OverrideNote = inv.OverrideNote
		return models.ConsistencyVerdict{
			Consistent:     true,
			Conflicts:      []models.ConflictReport{},
			Recommendation: models.RecommendProceed,
			Guidance:       inv.OverrideNote,
			Context:        ctx,
		}
	}

	results := []Result{
		CheckTimeGate(cfg, in),
		CheckWhipsaw(cfg, in),
		inv,
		CheckPriceMovement(cfg, in),
	}

	conflicts := make([]models.ConflictReport, 0, len(results))
	blocking := false
	for _, r := range results {
		if r.OverrideApplied {
			ctx.OverrideApplied = true
			ctx.OverrideNote = r.OverrideNote
		}
		if r.Conflict != nil {
			conflicts = append(conflicts, *r.Conflict)
			if r.Blocking {
				blocking = true
			}
		}
	}

	sortConflicts(conflicts)

	verdict := models.ConsistencyVerdict{
		Consistent: !blocking,
		Conflicts:  conflicts,
		Context:    ctx,
	}
	switch {
	case blocking:
		verdict.Recommendation = models.RecommendBlock
		verdict.Guidance = conflicts[0].Guidance
	case len(conflicts) > 0:
		verdict.Recommendation = models.RecommendCaution
		verdict.Guidance = conflicts[0].Guidance
	default:
		verdict.Recommendation = models.RecommendProceed
		verdict.Guidance = "no conflicts detected"
	}
	return verdict
}

// sortConflicts orders highest severity first; ties fall back to the
// fixed rule evaluation order.
func sortConflicts(conflicts []models.ConflictReport) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		ri, rj := conflicts[i].Severity.Rank(), conflicts[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return conflicts[i].Type.EvalOrder() < conflicts[j].Type.EvalOrder()
	})
}

func buildContext(in Input) models.CheckContext {
	ctx := models.CheckContext{
		ProposedBias:  in.Proposed,
		RecentChanges: len(in.Snapshot.Changes),
	}
	if bias := in.Snapshot.Bias; bias != nil {
		b := bias.Bias
		ctx.CurrentBias = &b
		ctx.EstablishedAt = bias.EstablishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		ctx.TimeHeldMinutes = bias.TimeHeldMinutes(in.Now)
		ctx.Confidence = bias.Confidence
		ctx.InvalidationLevel = bias.InvalidationLevel
		ctx.MarketCondition = bias.MarketCondition
	}
	return ctx
}
