// Package store keeps per-job progress of slow pipeline stages in sqlite so
// interrupted runs can resume.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	Pool *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// one writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	db := &DB{Pool: pool}
	if err := db.migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate progress db: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS progress (
  stage TEXT NOT NULL,
  job_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (stage, job_id)
);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// Put stores or replaces the entry for (stage, jobID).
func (d *DB) Put(ctx context.Context, stage, jobID string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}

	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO progress (stage, job_id, payload, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(stage, job_id) DO UPDATE SET
  payload = excluded.payload,
  updated_at = excluded.updated_at;
`, stage, jobID, payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store %s/%s: %w", stage, jobID, err)
	}
	return nil
}

// All returns every payload stored for stage keyed by job id.
func (d *DB) All(ctx context.Context, stage string) (map[string][]byte, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT job_id, payload FROM progress WHERE stage = ?;`, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		out[id] = payload
	}
	return out, rows.Err()
}

// Reset drops all entries of a stage.
func (d *DB) Reset(ctx context.Context, stage string) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM progress WHERE stage = ?;`, stage)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
