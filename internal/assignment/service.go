// Package assignment decides which variant a visitor sees.
//
// A visitor's first lookup draws a variant and persists it; every later lookup
// returns the stored value. Concurrent first lookups for the same visitor are
// settled by the store's uniqueness constraint: the losing writer re-reads the
// winner's row.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PratikDhanave/abtest-service/internal/models"
	"github.com/PratikDhanave/abtest-service/internal/store"
)

// Outcome labels how a variant was obtained.
type Outcome string

const (
	// OutcomeAssigned means this call drew and persisted the variant.
	OutcomeAssigned Outcome = "assigned"
	// OutcomeReturning means the visitor already had a stored variant.
	OutcomeReturning Outcome = "returning"
	// OutcomeReconciled means a concurrent writer won the insert race.
	OutcomeReconciled Outcome = "reconciled"
)

// Store is the subset of store.Store the service needs.
type Store interface {
	GetAssignment(ctx context.Context, visitorID string) (models.VisitorAssignment, error)
	InsertAssignmentIfAbsent(ctx context.Context, a models.VisitorAssignment) (bool, error)
}

// Observer is notified of every successful decision.
type Observer interface {
	ObserveAssignment(variant models.Variant, outcome Outcome)
}

// Service implements get-or-assign over a Store.
type Service struct {
	store    Store
	coin     Coin
	now      func() time.Time
	newID    func() string
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithCoin replaces the random source.
func WithCoin(c Coin) Option {
	return func(s *Service) { s.coin = c }
}

// WithClock replaces time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service backed by st.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		coin:   FairCoin,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
		tracer: otel.Tracer("github.com/PratikDhanave/abtest-service/internal/assignment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrAssignVariant returns the visitor's variant, assigning one on first sight.
func (s *Service) GetOrAssignVariant(ctx context.Context, visitor models.Visitor) (models.Variant, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.GetOrAssignVariant")
	defer span.End()

	variant, outcome, err := s.getOrAssign(ctx, visitor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(
		attribute.String("abtest.variant", string(variant)),
		attribute.String("abtest.outcome", string(outcome)),
	)
	s.logger.DebugContext(ctx, "variant resolved",
		"visitor_id", visitor.ID, "variant", variant, "outcome", outcome)
	if s.observer != nil {
		s.observer.ObserveAssignment(variant, outcome)
	}
	return variant, nil
}

func (s *Service) getOrAssign(ctx context.Context, visitor models.Visitor) (models.Variant, Outcome, error) {
	if visitor.ID == "" {
		return "", "", errors.New("visitor id required")
	}

	existing, err := s.store.GetAssignment(ctx, visitor.ID)
	if err == nil {
		return existing.Variant, OutcomeReturning, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", "", fmt.Errorf("lookup assignment: %w", err)
	}

	drawn := Flip(s.coin)
	inserted, err := s.store.InsertAssignmentIfAbsent(ctx, models.VisitorAssignment{
		ID:        s.newID(),
		VisitorID: visitor.ID,
		Variant:   drawn,
		ClientIP:  visitor.IP,
		UserAgent: visitor.UserAgent,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return "", "", fmt.Errorf("persist assignment: %w", err)
	}
	if inserted {
		return drawn, OutcomeAssigned, nil
	}

	// Another request inserted first; its row is authoritative.
	winner, err := s.store.GetAssignment(ctx, visitor.ID)
	if err != nil {
		return "", "", fmt.Errorf("reconcile assignment: %w", err)
	}
	return winner.Variant, OutcomeReconciled, nil
}
