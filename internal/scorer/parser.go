package scorer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/safeguard-ai/safeguard/internal/models"
)

var codeFence = regexp.MustCompile("```(?:json)?\n?([\\s\\S]*?)\n?```")

// remoteAssessment is the strict shape expected from the inference
// provider. Factor fields are pointers so an omitted field can be told
// apart from an explicit zero; omitted fields default to the neutral 5.
type remoteAssessment struct {
	RugPullRisk        *float64 `json:"rugPullRisk"`
	SmartContractRisk  *float64 `json:"smartContractRisk"`
	CentralizationRisk *float64 `json:"centralizationRisk"`
	LiquidityRisk      *float64 `json:"liquidityRisk"`
	TokenEconomicsRisk *float64 `json:"tokenEconomicsRisk"`
	CodeQualityRisk    *float64 `json:"codeQualityRisk"`
	CredibilityRisk    *float64 `json:"credibilityRisk"`
	HistoricalRisk     *float64 `json:"historicalRisk"`
	Warnings           []string `json:"warnings"`
	Details            string   `json:"details"`
}

func (r remoteAssessment) factors() models.RiskFactors {
	return models.RiskFactors{
		RugPullRisk:        clamp(orNeutral(r.RugPullRisk)),
		SmartContractRisk:  clamp(orNeutral(r.SmartContractRisk)),
		CentralizationRisk: clamp(orNeutral(r.CentralizationRisk)),
		LiquidityRisk:      clamp(orNeutral(r.LiquidityRisk)),
		TokenEconomicsRisk: clamp(orNeutral(r.TokenEconomicsRisk)),
		CodeQualityRisk:    clamp(orNeutral(r.CodeQualityRisk)),
		CredibilityRisk:    clamp(orNeutral(r.CredibilityRisk)),
		HistoricalRisk:     clamp(orNeutral(r.HistoricalRisk)),
	}
}

func orNeutral(v *float64) float64 {
	if v == nil {
		return 5
	}
	return *v
}

// parseAssessment extracts the assessment JSON from a model reply,
// tolerating a markdown code fence or surrounding prose. It tries, in
// order: the raw text, the first fenced block, and the outermost braces.
func parseAssessment(content string) (*remoteAssessment, error) {
	var out remoteAssessment
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return &out, nil
	}

	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &out); err == nil {
			return &out, nil
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &out); err == nil {
			return &out, nil
		}
	}

	return nil, models.NewUpstreamError("inference response is not valid JSON", nil)
}
