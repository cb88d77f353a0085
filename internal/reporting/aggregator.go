// Package reporting summarises the experiment per variant.
package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// Store is the subset of store.Store the aggregator needs.
type Store interface {
	CountVisitorsByVariant(ctx context.Context) (map[models.Variant]int64, error)
	CountConversionsByVariant(ctx context.Context) (map[models.Variant]int64, error)
}

// VariantStats is the summary for one variant.
type VariantStats struct {
	Visitors       int64   `json:"visitors"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Row is VariantStats labelled with its variant, for ordered rendering.
type Row struct {
	Variant models.Variant `json:"variant"`
	VariantStats
}

// Results maps each observed variant to its stats.
type Results map[models.Variant]VariantStats

// Rows returns the results sorted by variant.
func (r Results) Rows() []Row {
	rows := make([]Row, 0, len(r))
	for v, s := range r {
		rows = append(rows, Row{Variant: v, VariantStats: s})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Variant < rows[j].Variant })
	return rows
}

// Aggregator computes Results from the store on demand.
type Aggregator struct {
	store  Store
	tracer trace.Tracer
}

// NewAggregator returns an Aggregator over st.
func NewAggregator(st Store) *Aggregator {
	return &Aggregator{
		store:  st,
		tracer: otel.Tracer("github.com/PratikDhanave/abtest-service/internal/reporting"),
	}
}

// ComputeResults reports visitors, conversions and conversion rate for every
// variant seen in either table. Variants with conversions but no visitors are
// included with zero visitors and a zero rate.
func (a *Aggregator) ComputeResults(ctx context.Context) (Results, error) {
	ctx, span := a.tracer.Start(ctx, "reporting.ComputeResults")
	defer span.End()

	var visitors, conversions map[models.Variant]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		visitors, err = a.store.CountVisitorsByVariant(gctx)
		if err != nil {
			return fmt.Errorf("count visitors: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		conversions, err = a.store.CountConversionsByVariant(gctx)
		if err != nil {
			return fmt.Errorf("count conversions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	results := Results{}
	for v, n := range visitors {
		results[v] = VariantStats{Visitors: n}
	}
	for v, n := range conversions {
		s := results[v]
		s.Conversions = n
		results[v] = s
	}
	for v, s := range results {
		s.ConversionRate = ConversionRate(s.Conversions, s.Visitors)
		results[v] = s
	}
	return results, nil
}

// ConversionRate returns conversions/visitors as a percentage rounded to two
// decimals, or 0 when there are no visitors.
func ConversionRate(conversions, visitors int64) float64 {
	if visitors <= 0 {
		return 0
	}
	rate := float64(conversions) / float64(visitors) * 100
	return math.Round(rate*100) / 100
}
