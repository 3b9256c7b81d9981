package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/network-diagnostics-platform/internal/models"
	"github.com/network-diagnostics-platform/internal/recommend"
)

// ErrNotFound is returned when a test id has no stored record.
var ErrNotFound = errors.New("test not found")

// TestRecord is one stored test run. Result is nil while the run is still
// in progress.
type TestRecord struct {
	TestID    string             `json:"test_id"`
	Status    models.TestStatus  `json:"status"`
	Result    *models.TestResult `json:"result,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TestRepository provides storage for test runs and their
// recommendations.
type TestRepository struct {
	conn *Connection
}

// NewTestRepository creates a repository over the given connection.
func NewTestRepository(conn *Connection) *TestRepository {
	return &TestRepository{conn: conn}
}

// HealthCheck verifies connectivity with a trivial query.
func (r *TestRepository) HealthCheck(ctx context.Context) error {
	if err := r.conn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	var result int
	if err := r.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	return nil
}

// CreateTest inserts a new run in the running state.
func (r *TestRepository) CreateTest(ctx context.Context, testID string) error {
	query := `
		INSERT INTO network_tests (test_id, status)
		VALUES ($1, $2)`

	if _, err := r.conn.ExecContext(ctx, query, testID, models.StatusRunning); err != nil {
		return fmt.Errorf("failed to insert test %s: %w", testID, err)
	}
	return nil
}

// StoreResult records the finished result and final status for a run.
func (r *TestRepository) StoreResult(ctx context.Context, result *models.TestResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result for test %s: %w", result.TestID, err)
	}

	query := `
		UPDATE network_tests
		SET status = $2, result = $3, updated_at = NOW()
		WHERE test_id = $1`

	res, err := r.conn.ExecContext(ctx, query, result.TestID, result.Status, payload)
	if err != nil {
		return fmt.Errorf("failed to store result for test %s: %w", result.TestID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTest fetches one stored run by id.
func (r *TestRepository) GetTest(ctx context.Context, testID string) (*TestRecord, error) {
	query := `
		SELECT test_id, status, result, created_at, updated_at
		FROM network_tests
		WHERE test_id = $1`

	var record TestRecord
	var payload []byte
	err := r.conn.QueryRowContext(ctx, query, testID).Scan(
		&record.TestID, &record.Status, &payload, &record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query test %s: %w", testID, err)
	}

	if len(payload) > 0 {
		var result models.TestResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result for test %s: %w", testID, err)
		}
		record.Result = &result
	}
	return &record, nil
}

// ListRecentTests returns the newest runs first, up to limit.
func (r *TestRepository) ListRecentTests(ctx context.Context, limit int) ([]*TestRecord, error) {
	query := `
		SELECT test_id, status, created_at, updated_at
		FROM network_tests
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var records []*TestRecord
	for rows.Next() {
		var record TestRecord
		if err := rows.Scan(&record.TestID, &record.Status, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test row: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating test rows: %w", err)
	}
	return records, nil
}

// StoreRecommendations inserts the recommendations for a run in one
// transaction.
func (r *TestRepository) StoreRecommendations(ctx context.Context, testID string, recs []recommend.Recommendation) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO recommendations (test_id, text, severity, agent_source, confidence, category)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, query, testID, rec.Text, rec.Severity, rec.AgentSource, rec.Confidence, rec.Category); err != nil {
			return fmt.Errorf("failed to insert recommendation for test %s: %w", testID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recommendations: %w", err)
	}
	return nil
}

// GetRecommendations returns the stored recommendations for a run in
// insertion order.
func (r *TestRepository) GetRecommendations(ctx context.Context, testID string) ([]recommend.Recommendation, error) {
	query := `
		SELECT text, severity, agent_source, confidence, category
		FROM recommendations
		WHERE test_id = $1
		ORDER BY id`

	rows, err := r.conn.QueryContext(ctx, query, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations for test %s: %w", testID, err)
	}
	defer rows.Close()

	var recs []recommend.Recommendation
	for rows.Next() {
		var rec recommend.Recommendation
		if err := rows.Scan(&rec.Text, &rec.Severity, &rec.AgentSource, &rec.Confidence, &rec.Category); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendation rows: %w", err)
	}
	return recs, nil
}
