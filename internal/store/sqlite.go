package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

//go:embed sqlite_schema.sql
var sqliteSchemaSQL string

// SQLiteStore is the embedded file-backed fallback used when no database URL
// is configured.
type SQLiteStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; concurrent first visits queue on the busy timeout.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// EnsureSchema creates the tables. Safe to run multiple times.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetAssignment returns the stored assignment or ErrNotFound.
func (s *SQLiteStore) GetAssignment(ctx context.Context, visitorID string) (models.VisitorAssignment, error) {
	var (
		a         models.VisitorAssignment
		variant   string
		createdAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT id, visitor_id, variant, ip_address, user_agent, created_at
		FROM visitors
		WHERE visitor_id = ?
	`, visitorID).Scan(&a.ID, &a.VisitorID, &variant, &a.ClientIP, &a.UserAgent, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VisitorAssignment{}, ErrNotFound
	}
	if err != nil {
		return models.VisitorAssignment{}, fmt.Errorf("get assignment: %w", err)
	}
	a.Variant = models.Variant(variant)
	a.CreatedAt = fromMillis(createdAt)
	return a, nil
}

// InsertAssignmentIfAbsent persists a and returns inserted=false when the
// visitor already has a row.
func (s *SQLiteStore) InsertAssignmentIfAbsent(ctx context.Context, a models.VisitorAssignment) (bool, error) {
	if a.ID == "" || a.VisitorID == "" || a.Variant == "" {
		return false, errors.New("id/visitorID/variant required")
	}

	var one int
	err := s.sqlDB.QueryRowContext(ctx, `
		INSERT INTO visitors (id, visitor_id, variant, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (visitor_id) DO NOTHING
		RETURNING 1
	`, a.ID, a.VisitorID, string(a.Variant), a.ClientIP, a.UserAgent, toMillis(a.CreatedAt)).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) || isSQLiteUniqueViolation(err) {
		return false, nil
	}
	return false, fmt.Errorf("insert assignment: %w", err)
}

// AppendConversion inserts one conversion row. There is no dedupe.
func (s *SQLiteStore) AppendConversion(ctx context.Context, e models.ConversionEvent) error {
	if e.ID == "" || e.VisitorID == "" || e.Variant == "" {
		return errors.New("id/visitorID/variant required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO conversions (id, visitor_id, variant, conversion_type, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.VisitorID, string(e.Variant), e.EventType, e.ClientIP, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("append conversion: %w", err)
	}
	return nil
}

// CountVisitorsByVariant returns the number of assignment rows per variant.
func (s *SQLiteStore) CountVisitorsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	return s.countByVariant(ctx, `SELECT variant, COUNT(*) FROM visitors GROUP BY variant`)
}

// CountConversionsByVariant returns the number of conversion rows per variant.
func (s *SQLiteStore) CountConversionsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	return s.countByVariant(ctx, `SELECT variant, COUNT(*) FROM conversions GROUP BY variant`)
}

func (s *SQLiteStore) countByVariant(ctx context.Context, query string) (map[models.Variant]int64, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by variant: %w", err)
	}
	defer rows.Close()

	counts := map[models.Variant]int64{}
	for rows.Next() {
		var (
			variant string
			n       int64
		)
		if err := rows.Scan(&variant, &n); err != nil {
			return nil, fmt.Errorf("scan variant count: %w", err)
		}
		counts[models.Variant(variant)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by variant: %w", err)
	}
	return counts, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "visitors.visitor_id")
}

var _ Store = (*SQLiteStore)(nil)
