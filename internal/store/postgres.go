package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// PostgresStore persists assignments and conversions in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// GetAssignment returns the stored assignment or ErrNotFound.
func (p *PostgresStore) GetAssignment(ctx context.Context, visitorID string) (models.VisitorAssignment, error) {
	var (
		a       models.VisitorAssignment
		variant string
	)
	err := p.pool.QueryRow(ctx, `
		SELECT id, visitor_id, variant, ip_address, user_agent, created_at
		FROM visitors
		WHERE visitor_id = $1
	`, visitorID).Scan(&a.ID, &a.VisitorID, &variant, &a.ClientIP, &a.UserAgent, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VisitorAssignment{}, ErrNotFound
	}
	if err != nil {
		return models.VisitorAssignment{}, fmt.Errorf("get assignment: %w", err)
	}
	a.Variant = models.Variant(variant)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

// InsertAssignmentIfAbsent persists a and returns inserted=false when the
// visitor already has a row.
//
// The UNIQUE constraint on visitor_id is the arbiter between concurrent first
// visits; the loser sees no RETURNING row.
func (p *PostgresStore) InsertAssignmentIfAbsent(ctx context.Context, a models.VisitorAssignment) (bool, error) {
	if a.ID == "" || a.VisitorID == "" || a.Variant == "" {
		return false, errors.New("id/visitorID/variant required")
	}

	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO visitors(id, visitor_id, variant, ip_address, user_agent, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (visitor_id) DO NOTHING
		RETURNING 1
	`, a.ID, a.VisitorID, string(a.Variant), a.ClientIP, a.UserAgent, a.CreatedAt.UTC()).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) || isPgUniqueViolation(err) {
		return false, nil
	}
	return false, fmt.Errorf("insert assignment: %w", err)
}

// AppendConversion inserts one conversion row. There is no dedupe.
func (p *PostgresStore) AppendConversion(ctx context.Context, e models.ConversionEvent) error {
	if e.ID == "" || e.VisitorID == "" || e.Variant == "" {
		return errors.New("id/visitorID/variant required")
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO conversions(id, visitor_id, variant, conversion_type, ip_address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.VisitorID, string(e.Variant), e.EventType, e.ClientIP, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("append conversion: %w", err)
	}
	return nil
}

// CountVisitorsByVariant returns the number of assignment rows per variant.
func (p *PostgresStore) CountVisitorsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	return p.countByVariant(ctx, `SELECT variant, COUNT(*) FROM visitors GROUP BY variant`)
}

// CountConversionsByVariant returns the number of conversion rows per variant.
func (p *PostgresStore) CountConversionsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	return p.countByVariant(ctx, `SELECT variant, COUNT(*) FROM conversions GROUP BY variant`)
}

func (p *PostgresStore) countByVariant(ctx context.Context, query string) (map[models.Variant]int64, error) {
	rows, err := p.pool.Query(ctx, query)
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

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ Store = (*PostgresStore)(nil)
