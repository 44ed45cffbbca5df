package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Joseph-Rai/translationapis/internal/storage"
)

// Store is a SQLite implementation of RefinementStore.
type Store struct {
	db *sql.DB
}

var _ storage.RefinementStore = (*Store)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS refinements (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT,
			mode TEXT NOT NULL,
			target_language TEXT,
			input TEXT NOT NULL,
			output TEXT,
			status TEXT NOT NULL,
			error_message TEXT,
			duration_ns INTEGER,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refinements_tenant ON refinements(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refinements_created ON refinements(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, r *storage.Refinement) error {
	if r.ID == "" {
		return fmt.Errorf("refinement id is required")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	query := `INSERT INTO refinements (id, tenant_id, provider, model, mode, target_language,
		input, output, status, error_message, duration_ns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.TenantID, r.Provider, r.Model, r.Mode, r.TargetLanguage,
		r.Input, r.Output, r.Status, r.Error, int64(r.Duration), r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert refinement: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Refinement, error) {
	query := `SELECT id, tenant_id, provider, model, mode, target_language,
		input, output, status, error_message, duration_ns, created_at
		FROM refinements`
	var args []any
	if opts.TenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, opts.TenantID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query refinements: %w", err)
	}
	defer rows.Close()

	var result []*storage.Refinement
	for rows.Next() {
		var (
			r              storage.Refinement
			model, lang    sql.NullString
			output, errMsg sql.NullString
			duration       sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Provider, &model, &r.Mode, &lang,
			&r.Input, &output, &r.Status, &errMsg, &duration, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan refinement: %w", err)
		}
		r.Model = model.String
		r.TargetLanguage = lang.String
		r.Output = output.String
		r.Error = errMsg.String
		r.Duration = time.Duration(duration.Int64)
		result = append(result, &r)
	}
	return result, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
