// Package conversion appends conversion events reported by clients.
package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// Column limits shared by both relational schemas.
const (
	MaxVisitorIDLength = 64
	MaxEventTypeLength = 20
)

// Store is the subset of store.Store the recorder needs.
type Store interface {
	AppendConversion(ctx context.Context, e models.ConversionEvent) error
}

// Observer is told about every accepted or rejected submission.
type Observer interface {
	ObserveConversion(variant models.Variant, accepted bool)
}

// Input is one conversion report. Variant is taken as the caller states it,
// even if it differs from the visitor's stored assignment.
type Input struct {
	VisitorID string
	Variant   string
	EventType string
	ClientIP  string
}

// Recorder validates and persists conversions.
type Recorder struct {
	store    Store
	now      func() time.Time
	observer Observer
	logger   *slog.Logger
}

// NewRecorder returns a Recorder over st. observer may be nil.
func NewRecorder(st Store, observer Observer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:    st,
		now:      time.Now,
		observer: observer,
		logger:   logger,
	}
}

// RecordConversion appends one event. It returns false without writing when
// the visitor id or variant is empty, or when the visitor id or event type
// exceeds its column length; repeated calls each append a row.
func (r *Recorder) RecordConversion(ctx context.Context, in Input) (bool, error) {
	if in.VisitorID == "" || in.Variant == "" ||
		len(in.VisitorID) > MaxVisitorIDLength || len(in.EventType) > MaxEventTypeLength {
		r.logger.DebugContext(ctx, "conversion rejected",
			"visitor_id", in.VisitorID, "variant", in.Variant)
		r.observe(models.Variant(in.Variant), false)
		return false, nil
	}

	eventType := in.EventType
	if eventType == "" {
		eventType = models.DefaultEventType
	}

	event := models.ConversionEvent{
		ID:        uuid.NewString(),
		VisitorID: in.VisitorID,
		Variant:   models.Variant(in.Variant),
		EventType: eventType,
		ClientIP:  in.ClientIP,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.AppendConversion(ctx, event); err != nil {
		return false, fmt.Errorf("record conversion: %w", err)
	}

	r.observe(event.Variant, true)
	return true, nil
}

func (r *Recorder) observe(v models.Variant, accepted bool) {
	if r.observer != nil {
		r.observer.ObserveConversion(v, accepted)
	}
}
