// Package postgres is a store.JobStore backed by PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nodeflowgo/nodeflow/queue/store"
)

// DBPool is the subset of *pgxpool.Pool this store needs, so tests can
// substitute a pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements store.JobStore using PostgreSQL.
type Store struct {
	pool      DBPool
	tableName string
}

// Options configures a Postgres-backed store.
type Options struct {
	ConnString string
	TableName  string // Default "job_records".
}

// New creates a job store backed by a fresh connection pool.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("postgres: unable to create connection pool: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "job_records"
	}
	return &Store{pool: pool, tableName: tableName}, nil
}

// NewWithPool creates a job store over an existing pool; useful for tests
// with a mocked DBPool.
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "job_records"
	}
	return &Store{pool: pool, tableName: tableName}
}

// InitSchema creates the backing table if it doesn't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			batch_id TEXT NOT NULL,
			status TEXT NOT NULL,
			result JSONB NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_batch_id ON %s (batch_id);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Save(ctx context.Context, record *store.JobRecord) error {
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal result: %w", err)
	}
	metadataJSON, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, batch_id, status, result, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			batch_id = EXCLUDED.batch_id,
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		record.ID, record.BatchID, record.Status, resultJSON, metadataJSON,
		record.Timestamp, record.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save job record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*store.JobRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, batch_id, status, result, metadata, timestamp, version
		FROM %s WHERE id = $1
	`, s.tableName)

	var r store.JobRecord
	var resultJSON, metadataJSON []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.BatchID, &r.Status, &resultJSON, &metadataJSON, &r.Timestamp, &r.Version,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("postgres: job record not found: %s", id)
		}
		return nil, fmt.Errorf("postgres: failed to load job record: %w", err)
	}

	if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
		return nil, fmt.Errorf("postgres: failed to unmarshal result: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal metadata: %w", err)
		}
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context, batchID string) ([]*store.JobRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, batch_id, status, result, metadata, timestamp, version
		FROM %s WHERE batch_id = $1
		ORDER BY timestamp ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list job records: %w", err)
	}
	defer rows.Close()

	var out []*store.JobRecord
	for rows.Next() {
		var r store.JobRecord
		var resultJSON, metadataJSON []byte
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Status, &resultJSON, &metadataJSON, &r.Timestamp, &r.Version); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan job record row: %w", err)
		}
		if err := json.Unmarshal(resultJSON, &r.Result); err != nil {
			return nil, fmt.Errorf("postgres: failed to unmarshal result: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: failed to unmarshal metadata: %w", err)
			}
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating job record rows: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("postgres: failed to delete job record: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, batchID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE batch_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, batchID); err != nil {
		return fmt.Errorf("postgres: failed to clear job records: %w", err)
	}
	return nil
}
