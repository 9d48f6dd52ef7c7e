package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when retrieving a missing entry
var ErrNotFound = errors.New("archive entry not found")

// SQLiteStorage archives reports in a local SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// Ensure SQLiteStorage implements StorageInterface
var _ StorageInterface = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Debugf("Opened report archive at %s", path)
	return s, nil
}

func (s *SQLiteStorage) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS archive (
			name       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Store saves data under name, replacing any previous entry
func (s *SQLiteStorage) Store(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archive (name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, created_at = CURRENT_TIMESTAMP`,
		name, data)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}

	logrus.Infof("Stored %s in local archive", name)
	return nil
}

// Retrieve loads the entry stored under name
func (s *SQLiteStorage) Retrieve(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM archive WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s: %w", name, err)
	}
	return data, nil
}

// List returns entry names starting with prefix, in name order
func (s *SQLiteStorage) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM archive WHERE substr(name, 1, length(?)) = ? ORDER BY name`,
		prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the entry stored under name
func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM archive WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
