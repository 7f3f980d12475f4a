package rules

import (
	"fmt"

	"BiasGuard/internal/domain/models"
)

// CheckTimeGate enforces the minimum hold time before a directional
// change. Holding the current bias or establishing the first one is
// always allowed.
func CheckTimeGate(cfg Config, in Input) Result {
	bias := in.Snapshot.Bias
	if bias == nil || bias.Bias == in.Proposed {
		return Result{}
	}

	gate := cfg.gateFor(in.condition())
	held := bias.TimeHeld(in.Now)
	if held >= gate {
		return Result{}
	}

	if in.Override && cfg.OverrideTimeGateAllowed {
		return Result{
			OverrideApplied: true,
			OverrideNote:    fmt.Sprintf("time gate overridden: %s", in.OverrideReason),
		}
	}

	remaining := ceilMinutes(gate - held)
	return Result{
		Blocking: true,
		Conflict: &models.ConflictReport{
			Type:          models.ConflictTimeGate,
			Severity:      models.SeverityHigh,
			Message:       fmt.Sprintf("bias held for %s, minimum is %s", fmtMinutes(bias.TimeHeldMinutes(in.Now)), fmtMinutes(ceilMinutes(gate))),
			CurrentValue:  held.Truncate(0).String(),
			Threshold:     gate.String(),
			TimeRemaining: fmtMinutes(remaining),
			Guidance:      fmt.Sprintf("wait %s before changing bias, or let the thesis play out", fmtMinutes(remaining)),
		},
	}
}
