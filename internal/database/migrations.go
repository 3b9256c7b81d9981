package database

import (
	"context"
	"fmt"
	"time"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// Migrations returns the schema migrations in order.
func Migrations() []*Migration {
	return []*Migration{
		{
			Version: 1,
			Name:    "create_network_tests",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS network_tests (
					test_id UUID PRIMARY KEY,
					status VARCHAR(16) NOT NULL,
					result JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_network_tests_created_at
					ON network_tests (created_at DESC);
				CREATE INDEX IF NOT EXISTS idx_network_tests_status
					ON network_tests (status)`,
			DownSQL: `DROP TABLE IF EXISTS network_tests`,
		},
		{
			Version: 2,
			Name:    "create_recommendations",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS recommendations (
					id BIGSERIAL PRIMARY KEY,
					test_id UUID NOT NULL REFERENCES network_tests(test_id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					severity VARCHAR(16) NOT NULL,
					agent_source VARCHAR(32) NOT NULL,
					confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
					category VARCHAR(32) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_recommendations_test_id
					ON recommendations (test_id)`,
			DownSQL: `DROP TABLE IF EXISTS recommendations`,
		},
	}
}

// MigrationManager handles database migrations
type MigrationManager struct {
	conn *Connection
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(conn *Connection) *MigrationManager {
	return &MigrationManager{conn: conn}
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP DEFAULT NOW()
		)`

	if _, err := m.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *MigrationManager) getAppliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}
	return applied, nil
}

// Up applies all pending migrations
func (m *MigrationManager) Up(ctx context.Context, migrations []*Migration) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w",
				migration.Version, migration.Name, err)
		}
	}
	return nil
}

// Down rolls back the last applied migration
func (m *MigrationManager) Down(ctx context.Context, migrations []*Migration) error {
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var last *Migration
	for i := len(migrations) - 1; i >= 0; i-- {
		if applied[migrations[i].Version] {
			last = migrations[i]
			break
		}
	}
	if last == nil {
		return fmt.Errorf("no migrations to roll back")
	}

	if err := m.rollbackMigration(ctx, last); err != nil {
		return fmt.Errorf("failed to rollback migration %d (%s): %w",
			last.Version, last.Name, err)
	}
	return nil
}

func (m *MigrationManager) applyMigration(ctx context.Context, migration *Migration) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	insertQuery := `
		INSERT INTO schema_migrations (version, name, applied_at)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertQuery, migration.Version, migration.Name, time.Now()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

func (m *MigrationManager) rollbackMigration(ctx context.Context, migration *Migration) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.DownSQL); err != nil {
		return fmt.Errorf("failed to execute rollback SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback transaction: %w", err)
	}
	return nil
}
