package cve

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteRepository implements ports.CVEStore using SQLite. It holds the
// precomputed product:version lookup table seeded by cmd/cve_loader.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-based CVE lookup repository.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Lookup returns the CVEs recorded under a normalized lookup key.
func (r *SQLiteRepository) Lookup(ctx context.Context, key string) ([]domain.CVEEntry, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT cve_id, cvss, description FROM cve_lookup WHERE lookup_key = ? ORDER BY cve_id`,
		key,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup failed: %w", err)
	}
	defer rows.Close()

	var entries []domain.CVEEntry
	for rows.Next() {
		var e domain.CVEEntry
		var cvss sql.NullFloat64
		var description sql.NullString
		if err := rows.Scan(&e.ID, &cvss, &description); err != nil {
			return nil, err
		}
		if cvss.Valid {
			v := cvss.Float64
			e.CVSS = &v
		}
		e.Description = description.String
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// UpsertEntries inserts or refreshes the entries recorded under key.
func (r *SQLiteRepository) UpsertEntries(ctx context.Context, key string, entries []domain.CVEEntry) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return fmt.Errorf("empty lookup key")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cve_lookup (lookup_key, cve_id, cvss, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(lookup_key, cve_id) DO UPDATE SET
			cvss = excluded.cvss,
			description = excluded.description,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		var cvss interface{}
		if e.CVSS != nil {
			cvss = *e.CVSS
		}
		if _, err := stmt.ExecContext(ctx, key, e.ID, cvss, e.Description); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", key, e.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the total number of lookup rows.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cve_lookup").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ensure interface compliance
var _ ports.CVEStore = (*SQLiteRepository)(nil)
