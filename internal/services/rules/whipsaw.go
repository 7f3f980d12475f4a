package rules

import (
	"fmt"

	"BiasGuard/internal/domain/models"
)

// CheckWhipsaw caps how many directional changes fit inside the
// rolling lookback window. Unstable markets tighten the cap to one.
// A proposal that immediately reverses the last change (A to B back
// to A) inside the window draws a caution even under the cap.
func CheckWhipsaw(cfg Config, in Input) Result {
	bias := in.Snapshot.Bias
	if bias == nil || bias.Bias == in.Proposed {
		return Result{}
	}

	changes := in.Snapshot.Changes
	count := len(changes)
	max := cfg.maxChangesFor(in.condition())

	if count >= max {
		return Result{
			Blocking: true,
			Conflict: &models.ConflictReport{
				Type:         models.ConflictWhipsaw,
				Severity:     models.SeverityHigh,
				Message:      fmt.Sprintf("%d bias changes in the last %s, limit is %d", count, cfg.Lookback, max),
				CurrentValue: fmt.Sprintf("%d", count),
				Threshold:    fmt.Sprintf("%d", max),
				Guidance:     "too many reversals; stand aside until the window clears",
				Transitions:  transitionTrail(changes, in.Proposed),
			},
		}
	}

	// Reversal back to the bias abandoned by the latest change.
	if count > 0 {
		last := changes[count-1]
		if last.From != "" && last.From == in.Proposed {
			return Result{
				Conflict: &models.ConflictReport{
					Type:        models.ConflictWhipsaw,
					Severity:    models.SeverityMedium,
					Message:     fmt.Sprintf("proposal reverses the %s -> %s change made inside the window", last.From, last.To),
					Guidance:    "flip-flopping within the window; make sure new evidence justifies it",
					Transitions: transitionTrail(changes, in.Proposed),
				},
			}
		}
	}

	return Result{}
}

func transitionTrail(changes []models.ChangeHistoryEntry, proposed models.Bias) []string {
	trail := make([]string, 0, len(changes)+1)
	for _, c := range changes {
		from := string(c.From)
		if from == "" {
			from = "none"
		}
		trail = append(trail, fmt.Sprintf("%s -> %s at %s", from, c.To, c.Timestamp.UTC().Format("15:04:05")))
	}
	trail = append(trail, fmt.Sprintf("proposed: %s", proposed))
	return trail
}
