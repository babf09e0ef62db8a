package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"sheet-image-fetcher/internal/fetch"
)

// Store keeps a server-side history of finished batches.
type Store struct {
	db *sql.DB
}

// BatchMeta describes where a batch came from.
type BatchMeta struct {
	File  string
	Sheet string
}

// BatchRecord is one row of the batches table.
type BatchRecord struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Sheet      string    `json:"sheet"`
	Folder     string    `json:"folder"`
	Total      int       `json:"total"`
	Written    int       `json:"written"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ItemRecord is one row of the batch_items table.
type ItemRecord struct {
	Index      int    `json:"index"`
	URL        string `json:"url"`
	Status     string `json:"status"`
	HTTPStatus int    `json:"httpStatus"`
	Bytes      int64  `json:"bytes"`
	Error      string `json:"error,omitempty"`
}

// Open connects with driver "sqlite3" or "mysql" and creates the tables.
// MySQL DSNs need parseTime=true.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables if not exists
	batchTable := `
	CREATE TABLE IF NOT EXISTS batches (
		id VARCHAR(36) PRIMARY KEY,
		file_name VARCHAR(255),
		sheet_name VARCHAR(255),
		folder VARCHAR(255),
		total INTEGER,
		written INTEGER,
		failed INTEGER,
		started_at DATETIME,
		finished_at DATETIME
	);
	`
	itemTable := `
	CREATE TABLE IF NOT EXISTS batch_items (
		batch_id VARCHAR(36),
		idx INTEGER,
		url TEXT,
		status VARCHAR(16),
		http_status INTEGER,
		bytes BIGINT,
		error_message TEXT,
		PRIMARY KEY (batch_id, idx)
	);
	`

	if _, err := db.Exec(batchTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create batches table: %w", err)
	}
	if _, err := db.Exec(itemTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create batch_items table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordBatch stores a finished batch and its per-link outcomes.
func (s *Store) RecordBatch(ctx context.Context, meta BatchMeta, report *fetch.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, file_name, sheet_name, folder, total, written, failed, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.BatchID, meta.File, meta.Sheet, report.Folder, report.Total, report.Written(), report.Failed(),
		report.StartedAt.UTC(), report.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, item := range report.Items {
		var msg string
		if item.Err != nil {
			msg = item.Err.Err.Error()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO batch_items (batch_id, idx, url, status, http_status, bytes, error_message)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.BatchID, item.Index, item.URL, item.Status.String(), item.HTTPStatus, item.Bytes, msg)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", item.Index, err)
		}
	}

	return tx.Commit()
}

// ListBatches returns the most recent batches first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_name, sheet_name, folder, total, written, failed, started_at, finished_at
		 FROM batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []BatchRecord
	for rows.Next() {
		var b BatchRecord
		if err := rows.Scan(&b.ID, &b.File, &b.Sheet, &b.Folder, &b.Total, &b.Written, &b.Failed,
			&b.StartedAt, &b.FinishedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// BatchItems returns the outcomes of one batch in link order.
func (s *Store) BatchItems(ctx context.Context, batchID string) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, url, status, http_status, bytes, error_message
		 FROM batch_items WHERE batch_id = ? ORDER BY idx`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		if err := rows.Scan(&it.Index, &it.URL, &it.Status, &it.HTTPStatus, &it.Bytes, &it.Error); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
