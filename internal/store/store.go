package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// ErrNotFound is returned when no assignment exists for a visitor.
var ErrNotFound = errors.New("not found")

// Store is the durable persistence layer for assignments and conversions.
//
// InsertAssignmentIfAbsent reports inserted=false when another writer already
// owns the visitor_id; callers must re-read instead of treating it as an error.
type Store interface {
	GetAssignment(ctx context.Context, visitorID string) (models.VisitorAssignment, error)
	InsertAssignmentIfAbsent(ctx context.Context, a models.VisitorAssignment) (bool, error)
	AppendConversion(ctx context.Context, e models.ConversionEvent) error
	CountVisitorsByVariant(ctx context.Context) (map[models.Variant]int64, error)
	CountConversionsByVariant(ctx context.Context) (map[models.Variant]int64, error)

	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open picks a backend from dbURL.
//
// postgres:// and postgresql:// URLs use Postgres. sqlite:///path selects a
// SQLite file; an empty dbURL falls back to SQLite at fallbackPath.
func Open(ctx context.Context, dbURL, fallbackPath string) (Store, error) {
	dbURL = strings.TrimSpace(dbURL)
	switch {
	case dbURL == "":
		return openSQLite(fallbackPath)
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		st, err := NewPostgresStore(ctx, dbURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case strings.HasPrefix(dbURL, "sqlite:"):
		return openSQLite(SQLitePathFromURL(dbURL))
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", schemeOf(dbURL))
	}
}

func openSQLite(path string) (Store, error) {
	st, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// SQLitePathFromURL converts sqlite:///relative.db and sqlite:////abs.db to a
// filesystem path.
func SQLitePathFromURL(dbURL string) string {
	p := strings.TrimPrefix(dbURL, "sqlite:")
	p = strings.TrimPrefix(p, "//")
	if strings.HasPrefix(p, "//") {
		return p[1:]
	}
	return strings.TrimPrefix(p, "/")
}

func schemeOf(dbURL string) string {
	if i := strings.Index(dbURL, "://"); i >= 0 {
		return dbURL[:i]
	}
	return dbURL
}
