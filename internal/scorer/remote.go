package scorer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/broker"
	"github.com/safeguard-ai/safeguard/internal/models"
)

// Remote inference parameters; low temperature keeps the JSON shape stable.
const (
	remoteMaxTokens   = 2000
	remoteTemperature = 0.3
	codePromptLimit   = 10000
	cloudCostBaseline = 0.05
)

const auditorSystemPrompt = "You are an expert smart contract security auditor. " +
	"Analyze contracts for vulnerabilities and return structured JSON risk assessments."

// Remote delegates scoring to an attested marketplace provider. A reply
// that cannot be parsed is surfaced as an upstream error; the heuristic
// path is never consulted from here.
type Remote struct {
	inference      broker.Inference
	preferredModel string
	logger         *zap.Logger
}

func NewRemote(inference broker.Inference, preferredModel string, logger *zap.Logger) *Remote {
	return &Remote{
		inference:      inference,
		preferredModel: preferredModel,
		logger:         logger,
	}
}

func (r *Remote) Score(ctx context.Context, c Contract) (models.RiskFactors, models.Verification, error) {
	services, err := r.inference.ListServices(ctx)
	if err != nil {
		return models.RiskFactors{}, models.Verification{}, err
	}
	svc, err := broker.SelectProvider(services, r.preferredModel, "")
	if err != nil {
		return models.RiskFactors{}, models.Verification{}, err
	}

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: auditorSystemPrompt},
		{Role: models.RoleUser, Content: analysisPrompt(c)},
	}

	completion, err := r.inference.Chat(ctx, *svc, messages, remoteMaxTokens, remoteTemperature)
	if err != nil {
		return models.RiskFactors{}, models.Verification{}, err
	}

	assessment, err := parseAssessment(completion.Content)
	if err != nil {
		r.logger.Error("unparsable inference reply",
			zap.String("address", c.Address),
			zap.String("provider", svc.ProviderAddress))
		return models.RiskFactors{}, models.Verification{}, err
	}
	if assessment.Details != "" {
		r.logger.Debug("inference details",
			zap.String("address", c.Address),
			zap.String("details", assessment.Details))
	}

	cost := broker.Cost(completion.InputTokens, completion.OutputTokens, *svc)
	storageID := completion.ChatID
	if storageID == "" {
		storageID = fmt.Sprintf("remote_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	}
	savings := 0.0
	if cloudCostBaseline > 0 {
		savings = math.Round((cloudCostBaseline - cost) / cloudCostBaseline * 100)
	}

	verification := models.Verification{
		TEEVerified: true,
		StorageID:   storageID,
		Provider:    svc.ProviderAddress,
		Model:       svc.Model,
		Cost:        cost,
		CloudCost:   cloudCostBaseline,
		SavingsPct:  savings,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	return assessment.factors(), verification, nil
}

func analysisPrompt(c Contract) string {
	code := c.Code
	if len(code) > codePromptLimit {
		code = code[:codePromptLimit]
	}
	return fmt.Sprintf(`Analyze this smart contract and return a JSON object with the following structure:

{
  "rugPullRisk": <score 0-10>,
  "smartContractRisk": <score 0-10>,
  "centralizationRisk": <score 0-10>,
  "liquidityRisk": <score 0-10>,
  "tokenEconomicsRisk": <score 0-10>,
  "codeQualityRisk": <score 0-10>,
  "credibilityRisk": <score 0-10>,
  "historicalRisk": <score 0-10>,
  "warnings": [<array of specific warning strings>],
  "details": "<brief explanation of findings>"
}

Contract Address: %s
Network: %s
Code Length: %d bytes
Code:
%s

Analyze for ownership and mint privileges, centralization, liquidity
controls, token supply dynamics, dangerous opcodes (delegatecall,
selfdestruct), code quality, and credibility markers.

Return ONLY the JSON object, no additional text.`, c.Address, c.Network, len(c.Code), code)
}
