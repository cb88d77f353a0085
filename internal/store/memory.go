package store

import (
	"context"
	"errors"
	"sync"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// MemoryStore is an in-process Store used by tests and local experiments.
// Contents are lost on exit.
type MemoryStore struct {
	mu          sync.Mutex
	assignments map[string]models.VisitorAssignment
	conversions []models.ConversionEvent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assignments: map[string]models.VisitorAssignment{}}
}

// EnsureSchema is a no-op; there is no schema to apply.
func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op; contents stay readable afterwards.
func (m *MemoryStore) Close() error { return nil }

// GetAssignment returns the stored assignment or ErrNotFound.
func (m *MemoryStore) GetAssignment(ctx context.Context, visitorID string) (models.VisitorAssignment, error) {
	if err := ctx.Err(); err != nil {
		return models.VisitorAssignment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[visitorID]
	if !ok {
		return models.VisitorAssignment{}, ErrNotFound
	}
	return a, nil
}

// InsertAssignmentIfAbsent stores a and returns inserted=false when the
// visitor already has an assignment.
func (m *MemoryStore) InsertAssignmentIfAbsent(ctx context.Context, a models.VisitorAssignment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if a.ID == "" || a.VisitorID == "" || a.Variant == "" {
		return false, errors.New("id/visitorID/variant required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assignments[a.VisitorID]; ok {
		return false, nil
	}
	m.assignments[a.VisitorID] = a
	return true, nil
}

// AppendConversion appends one conversion. There is no dedupe.
func (m *MemoryStore) AppendConversion(ctx context.Context, e models.ConversionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" || e.VisitorID == "" || e.Variant == "" {
		return errors.New("id/visitorID/variant required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversions = append(m.conversions, e)
	return nil
}

// CountVisitorsByVariant returns the number of assignments per variant.
func (m *MemoryStore) CountVisitorsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[models.Variant]int64{}
	for _, a := range m.assignments {
		counts[a.Variant]++
	}
	return counts, nil
}

// CountConversionsByVariant returns the number of conversions per variant.
func (m *MemoryStore) CountConversionsByVariant(ctx context.Context) (map[models.Variant]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[models.Variant]int64{}
	for _, e := range m.conversions {
		counts[e.Variant]++
	}
	return counts, nil
}

// Conversions returns a copy of every appended event in insertion order.
func (m *MemoryStore) Conversions() []models.ConversionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ConversionEvent, len(m.conversions))
	copy(out, m.conversions)
	return out
}

// AssignmentCount returns the number of stored assignments.
func (m *MemoryStore) AssignmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assignments)
}

var _ Store = (*MemoryStore)(nil)
