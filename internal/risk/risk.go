// Package risk turns the eight factor scores into the overall score, the
// three-tier level, the warning strings, and the recommendation shown to
// the user.
package risk

import (
	"math"
	"strings"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// Level thresholds; values on the boundary stay in the lower bucket.
const (
	lowMax    = 3.5
	mediumMax = 6.5
)

// Overall returns the arithmetic mean of the eight factors rounded to one
// decimal place.
func Overall(f models.RiskFactors) float64 {
	values := f.Values()
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

// LevelFor maps an overall score to its risk level.
func LevelFor(overall float64) models.RiskLevel {
	switch {
	case overall <= lowMax:
		return models.RiskLow
	case overall <= mediumMax:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// Warnings emits a warning string for every factor at or above its
// threshold, plus two code-pattern-specific warnings. Duplicates across
// independent checks are preserved.
func Warnings(f models.RiskFactors, code string) []string {
	warnings := []string{}

	if f.RugPullRisk >= 7 {
		warnings = append(warnings, "High rug pull risk detected")
	}
	if f.CentralizationRisk >= 7 {
		warnings = append(warnings, "Centralized ownership structure detected")
	}
	if f.LiquidityRisk >= 7 {
		warnings = append(warnings, "Low liquidity or no liquidity lock detected")
	}
	if f.SmartContractRisk >= 7 {
		warnings = append(warnings, "Potential smart contract vulnerabilities identified")
	}
	if f.TokenEconomicsRisk >= 7 {
		warnings = append(warnings, "Concerning token distribution or supply dynamics")
	}

	if strings.Contains(code, "mint") && f.RugPullRisk >= 6 {
		warnings = append(warnings, "Owner has unlimited mint capability")
	}
	if !strings.Contains(code, "renounceOwnership") && f.CentralizationRisk >= 6 {
		warnings = append(warnings, "Ownership cannot be renounced")
	}

	return warnings
}

// RecommendationFor returns the fixed recommendation text for a level.
func RecommendationFor(level models.RiskLevel) string {
	switch level {
	case models.RiskLow:
		return "LOW RISK - This contract appears to be relatively safe, but always do your own research."
	case models.RiskMedium:
		return "MEDIUM RISK - Exercise caution and verify all information before interacting with this contract."
	case models.RiskHigh:
		return "HIGH RISK - Exercise extreme caution. This contract exhibits multiple red flags that suggest it may be unsafe."
	default:
		return "Unable to determine risk level."
	}
}
