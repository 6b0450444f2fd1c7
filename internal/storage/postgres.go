package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/safeguard-ai/safeguard/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// PostgresStore persists analyses across restarts. Structured fields are
// stored as JSONB so the record round-trips without a column per factor.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(config DatabaseConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}
	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}
	return nil
}

func (s *PostgresStore) SaveAnalysis(a *models.AnalysisResult) error {
	tokenInfo, err := json.Marshal(a.TokenInfo)
	if err != nil {
		return fmt.Errorf("error encoding token info: %v", err)
	}
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("error encoding factors: %v", err)
	}
	warnings, err := json.Marshal(a.Warnings)
	if err != nil {
		return fmt.Errorf("error encoding warnings: %v", err)
	}
	verification, err := json.Marshal(a.Verification)
	if err != nil {
		return fmt.Errorf("error encoding verification: %v", err)
	}

	query := `
		INSERT INTO analyses (id, contract_address, network, token_info, overall_risk,
			risk_level, factors, warnings, recommendation, verification, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = s.db.Exec(query,
		a.ID, a.ContractAddress, string(a.Network), tokenInfo, a.OverallRisk,
		string(a.RiskLevel), factors, warnings, a.Recommendation, verification, a.Timestamp)
	if err != nil {
		return fmt.Errorf("error saving analysis: %v", err)
	}
	return nil
}

func (s *PostgresStore) Recent(limit int) ([]*models.AnalysisResult, error) {
	if limit <= 0 {
		limit = historyCapacity
	}
	query := `
		SELECT id, contract_address, network, token_info, overall_risk,
			risk_level, factors, warnings, recommendation, verification, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying analyses: %v", err)
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *PostgresStore) GetByID(id string) (*models.AnalysisResult, error) {
	query := `
		SELECT id, contract_address, network, token_info, overall_risk,
			risk_level, factors, warnings, recommendation, verification, created_at
		FROM analyses
		WHERE id = $1`

	rows, err := s.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("error querying analysis: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAnalysis(rows)
}

func (s *PostgresStore) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM analyses`).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountByLevel(level models.RiskLevel) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM analyses WHERE risk_level = $1`, string(level)).Scan(&count)
	return count, err
}

func (s *PostgresStore) SumOverall() (float64, error) {
	var sum float64
	err := s.db.QueryRow(`SELECT COALESCE(SUM(overall_risk), 0) FROM analyses`).Scan(&sum)
	return sum, err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanAnalysis(rows *sql.Rows) (*models.AnalysisResult, error) {
	var (
		a            models.AnalysisResult
		network      string
		level        string
		tokenInfo    []byte
		factors      []byte
		warnings     []byte
		verification []byte
	)
	err := rows.Scan(&a.ID, &a.ContractAddress, &network, &tokenInfo, &a.OverallRisk,
		&level, &factors, &warnings, &a.Recommendation, &verification, &a.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("error scanning analysis: %v", err)
	}
	a.Network = models.Network(network)
	a.RiskLevel = models.RiskLevel(level)
	if err := json.Unmarshal(tokenInfo, &a.TokenInfo); err != nil {
		return nil, fmt.Errorf("error decoding token info: %v", err)
	}
	if err := json.Unmarshal(factors, &a.Factors); err != nil {
		return nil, fmt.Errorf("error decoding factors: %v", err)
	}
	if err := json.Unmarshal(warnings, &a.Warnings); err != nil {
		return nil, fmt.Errorf("error decoding warnings: %v", err)
	}
	if err := json.Unmarshal(verification, &a.Verification); err != nil {
		return nil, fmt.Errorf("error decoding verification: %v", err)
	}
	return &a, nil
}
