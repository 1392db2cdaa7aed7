package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/franckalain/eatsmarty/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNoDocument is returned by LoadDocument when no document is stored under the key.
var ErrNoDocument = errors.New("document not found")

// DB interface defines the methods our database should implement
type DB interface {
	LoadDocument(ctx context.Context, key string) ([]byte, error)
	SaveDocument(ctx context.Context, key string, body []byte) error
	SaveScan(ctx context.Context, scan *models.ScanRecord) error
	UpdateScanStatus(ctx context.Context, id, barcode string, status models.ScanStatus, errMsg string) error
	GetRecentScans(ctx context.Context, limit int) ([]*models.ScanRecord, error)
	Close() error
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened and migrated *sql.DB.
func NewWithDB(db *sql.DB) *SQLiteDB {
	return &SQLiteDB{db: db, now: time.Now}
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// LoadDocument returns the body stored under key
func (s *SQLiteDB) LoadDocument(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("error loading document %q: %w", key, err)
	}
	return body, nil
}

// SaveDocument replaces the whole document stored under key
func (s *SQLiteDB) SaveDocument(ctx context.Context, key string, body []byte) error {
	query := `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, body, formatTime(s.now())); err != nil {
		return fmt.Errorf("error saving document %q: %w", key, err)
	}
	return nil
}

// SaveScan saves a scan record to the database
func (s *SQLiteDB) SaveScan(ctx context.Context, scan *models.ScanRecord) error {
	query := `
		INSERT OR REPLACE INTO scans (
			id, barcode, source, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := s.now()
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	scan.UpdatedAt = now
	if scan.Source == "" {
		scan.Source = "camera"
	}

	_, err := s.db.ExecContext(ctx, query,
		scan.ID, scan.Barcode, scan.Source, string(scan.Status), scan.Error,
		formatTime(scan.CreatedAt), formatTime(scan.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving scan: %w", err)
	}
	return nil
}

// UpdateScanStatus updates the status of a scan. An empty barcode keeps the
// stored one.
func (s *SQLiteDB) UpdateScanStatus(ctx context.Context, id, barcode string, status models.ScanStatus, errMsg string) error {
	query := `
		UPDATE scans
		SET barcode = COALESCE(NULLIF(?, ''), barcode), status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query, barcode, string(status), errMsg, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("error updating scan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// GetRecentScans retrieves the most recent scan records, newest first
func (s *SQLiteDB) GetRecentScans(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	query := `
		SELECT id, barcode, source, status, error, created_at, updated_at
		FROM scans
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying scans: %w", err)
	}
	defer rows.Close()

	results := []*models.ScanRecord{}
	for rows.Next() {
		var rec models.ScanRecord
		var status, createdAt, updatedAt string

		if err := rows.Scan(
			&rec.ID, &rec.Barcode, &rec.Source, &status, &rec.Error, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning scan row: %w", err)
		}
		rec.Status = models.ScanStatus(status)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

		results = append(results, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}

	return results, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
