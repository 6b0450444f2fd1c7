package models

import "time"

// Network identifies a blockchain the service can query.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkBSC      Network = "bsc"
	NetworkPolygon  Network = "polygon"
	NetworkZeroG    Network = "0g"
)

// Networks lists every supported network.
var Networks = []Network{NetworkEthereum, NetworkBSC, NetworkPolygon, NetworkZeroG}

// RiskLevel is the three-tier classification derived from the overall score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskFactors holds the eight independent 0-10 risk dimensions. Every field
// is always present and clamped to [0, 10].
type RiskFactors struct {
	RugPullRisk        float64 `json:"rugPullRisk"`
	SmartContractRisk  float64 `json:"smartContractRisk"`
	CentralizationRisk float64 `json:"centralizationRisk"`
	LiquidityRisk      float64 `json:"liquidityRisk"`
	TokenEconomicsRisk float64 `json:"tokenEconomicsRisk"`
	CodeQualityRisk    float64 `json:"codeQualityRisk"`
	CredibilityRisk    float64 `json:"credibilityRisk"`
	HistoricalRisk     float64 `json:"historicalRisk"`
}

// Values returns the factors in their canonical order.
func (f RiskFactors) Values() []float64 {
	return []float64{
		f.RugPullRisk,
		f.SmartContractRisk,
		f.CentralizationRisk,
		f.LiquidityRisk,
		f.TokenEconomicsRisk,
		f.CodeQualityRisk,
		f.CredibilityRisk,
		f.HistoricalRisk,
	}
}

// TokenInfo is the basic ERC-20 metadata of an analyzed contract.
// TotalSupply is kept as a string because uint256 exceeds float precision.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// Verification records the inference-provider metadata attached to an
// analysis. TEEVerified reflects the vendor's attestation claim; it is not
// re-verified locally.
type Verification struct {
	TEEVerified bool    `json:"teeVerified"`
	StorageID   string  `json:"storageId"`
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	Cost        float64 `json:"cost"`
	CloudCost   float64 `json:"cloudCost"`
	SavingsPct  float64 `json:"savingsPercentage"`
	Timestamp   string  `json:"analysisTimestamp"`
}

// AnalysisResult is the immutable record produced by one scoring pass.
type AnalysisResult struct {
	ID              string       `json:"id"`
	ContractAddress string       `json:"contractAddress"`
	Network         Network      `json:"network"`
	TokenInfo       TokenInfo    `json:"tokenInfo"`
	OverallRisk     float64      `json:"overallRisk"`
	RiskLevel       RiskLevel    `json:"riskLevel"`
	Factors         RiskFactors  `json:"factors"`
	Warnings        []string     `json:"warnings"`
	Recommendation  string       `json:"recommendation"`
	Verification    Verification `json:"verification"`
	Timestamp       time.Time    `json:"timestamp"`
}

// AnalysisSummary is the reduced shape returned by the history endpoint.
type AnalysisSummary struct {
	ID              string    `json:"id"`
	ContractAddress string    `json:"contractAddress"`
	Network         Network   `json:"network"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	OverallRisk     float64   `json:"overallRisk"`
	Timestamp       time.Time `json:"timestamp"`
}

// Summary reduces a full result to its history row.
func (a *AnalysisResult) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:              a.ID,
		ContractAddress: a.ContractAddress,
		Network:         a.Network,
		RiskLevel:       a.RiskLevel,
		OverallRisk:     a.OverallRisk,
		Timestamp:       a.Timestamp,
	}
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role-tagged entry in a session transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionSummary describes a live chat session for administrative listing.
// MessageCount excludes system messages.
type SessionSummary struct {
	ID              string    `json:"id"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	Network         Network   `json:"network,omitempty"`
	MessageCount    int       `json:"messageCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Stats is the aggregate counter payload for the stats endpoint.
type Stats struct {
	TotalAnalyses int     `json:"totalAnalyses"`
	ScamsDetected int     `json:"scamsDetected"`
	TotalSavings  float64 `json:"totalSavings"`
	AvgRiskScore  float64 `json:"avgRiskScore"`
	Cache         any     `json:"cache"`
}
