package storage

import (
	"sync"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// MemoryStore keeps the most recent analyses in process memory, newest
// first, bounded at historyCapacity. It is the default store; everything
// is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	history []*models.AnalysisResult
	byID    map[string]*models.AnalysisResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*models.AnalysisResult),
	}
}

func (s *MemoryStore) SaveAnalysis(a *models.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append([]*models.AnalysisResult{a}, s.history...)
	s.byID[a.ID] = a

	if len(s.history) > historyCapacity {
		evicted := s.history[len(s.history)-1]
		s.history = s.history[:historyCapacity]
		delete(s.byID, evicted.ID)
	}
	return nil
}

func (s *MemoryStore) Recent(limit int) ([]*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]*models.AnalysisResult, limit)
	copy(out, s.history[:limit])
	return out, nil
}

func (s *MemoryStore) GetByID(id string) (*models.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id], nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history), nil
}

func (s *MemoryStore) CountByLevel(level models.RiskLevel) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.history {
		if a.RiskLevel == level {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) SumOverall() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := 0.0
	for _, a := range s.history {
		sum += a.OverallRisk
	}
	return sum, nil
}

func (s *MemoryStore) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
