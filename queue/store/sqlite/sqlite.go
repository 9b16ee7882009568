// Package sqlite is a store.JobStore backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nodeflowgo/nodeflow/queue/store"
)

// Store implements store.JobStore using SQLite.
type Store struct {
	db        *sql.DB
	tableName string
}

// Options configures a SQLite-backed store.
type Options struct {
	Path      string
	TableName string // Default "job_records".
}

// New opens (creating if necessary) a SQLite job store.
func New(opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "job_records"
	}

	s := &Store{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the backing table if it doesn't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			status TEXT NOT NULL,
			result TEXT NOT NULL,
			metadata TEXT,
			timestamp DATETIME NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_batch_id ON %s (batch_id);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, record *store.JobRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal result: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, batch_id, status, result, metadata, timestamp, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			batch_id = excluded.batch_id,
			status = excluded.status,
			result = excluded.result,
			metadata = excluded.metadata,
			timestamp = excluded.timestamp,
			version = excluded.version
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.BatchID, record.Status, string(resultJSON), string(metadataJSON),
		record.Timestamp, record.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save job record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*store.JobRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, batch_id, status, result, metadata, timestamp, version
		FROM %s WHERE id = ?
	`, s.tableName)

	var r store.JobRecord
	var resultJSON, metadataJSON string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.BatchID, &r.Status, &resultJSON, &metadataJSON, &r.Timestamp, &r.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("sqlite: job record not found: %s", id)
		}
		return nil, fmt.Errorf("sqlite: failed to load job record: %w", err)
	}

	if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
		return nil, fmt.Errorf("sqlite: failed to unmarshal result: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite: failed to unmarshal metadata: %w", err)
		}
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context, batchID string) ([]*store.JobRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, batch_id, status, result, metadata, timestamp, version
		FROM %s WHERE batch_id = ?
		ORDER BY timestamp ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list job records: %w", err)
	}
	defer rows.Close()

	var out []*store.JobRecord
	for rows.Next() {
		var r store.JobRecord
		var resultJSON, metadataJSON string
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Status, &resultJSON, &metadataJSON, &r.Timestamp, &r.Version); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan job record row: %w", err)
		}
		if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
			return nil, fmt.Errorf("sqlite: failed to unmarshal result: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal([]byte(metadataJSON), &r.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite: failed to unmarshal metadata: %w", err)
			}
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating job record rows: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("sqlite: failed to delete job record: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, batchID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE batch_id = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, batchID); err != nil {
		return fmt.Errorf("sqlite: failed to clear job records: %w", err)
	}
	return nil
}
