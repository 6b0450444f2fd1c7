package storage

import "github.com/safeguard-ai/safeguard/internal/models"

// historyCapacity bounds the in-memory recent history; the oldest record
// is dropped once exceeded.
const historyCapacity = 100

// Store persists analysis records for history and stats lookups.
type Store interface {
	SaveAnalysis(a *models.AnalysisResult) error
	// Recent returns up to limit records, newest first.
	Recent(limit int) ([]*models.AnalysisResult, error)
	// GetByID returns nil when the id is unknown.
	GetByID(id string) (*models.AnalysisResult, error)
	Count() (int, error)
	CountByLevel(level models.RiskLevel) (int, error)
	// SumOverall returns the sum of overall scores across stored records,
	// used for the average shown by the stats endpoint.
	SumOverall() (float64, error)
	Close() error
}
