// Package scorer produces the eight risk factor scores for a contract,
// either locally through deterministic pattern rules or remotely through
// the inference marketplace. The variant is chosen once at startup; there
// is no runtime fallback between them, so a remote deployment never
// silently mixes trust levels.
package scorer

import (
	"context"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// Contract is the scoring input assembled by the orchestrator. Code is the
// verified source text when the explorer has it, else the bytecode hex.
type Contract struct {
	Address string
	Network models.Network
	Code    string
}

// Scorer maps contract code to risk factors plus verification metadata.
type Scorer interface {
	Score(ctx context.Context, c Contract) (models.RiskFactors, models.Verification, error)
}

// clamp bounds a factor score to [0, 10].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
