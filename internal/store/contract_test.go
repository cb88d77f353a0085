package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/abtest-service/internal/models"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("GetMissingReturnsErrNotFound", func(t *testing.T) {
		st := open(t)
		_, err := st.GetAssignment(context.Background(), "nobody")
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
	})

	t.Run("InsertThenGet", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()
		now := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
		a := assignment("v-1", models.VariantB, now)

		inserted, err := st.InsertAssignmentIfAbsent(ctx, a)
		require.NoError(t, err)
		assert.True(t, inserted)

		got, err := st.GetAssignment(ctx, "v-1")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, models.VariantB, got.Variant)
		assert.Equal(t, "203.0.113.7", got.ClientIP)
		assert.Equal(t, "Mozilla/5.0", got.UserAgent)
		assert.True(t, now.Equal(got.CreatedAt), "created_at = %v, want %v", got.CreatedAt, now)
	})

	t.Run("SecondInsertKeepsFirstVariant", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		inserted, err := st.InsertAssignmentIfAbsent(ctx, assignment("v-2", models.VariantA, time.Now()))
		require.NoError(t, err)
		require.True(t, inserted)

		inserted, err = st.InsertAssignmentIfAbsent(ctx, assignment("v-2", models.VariantB, time.Now()))
		require.NoError(t, err)
		assert.False(t, inserted)

		got, err := st.GetAssignment(ctx, "v-2")
		require.NoError(t, err)
		assert.Equal(t, models.VariantA, got.Variant)
	})

	t.Run("ConcurrentInsertsHaveOneWinner", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		const writers = 16
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v := models.VariantA
				if i%2 == 1 {
					v = models.VariantB
				}
				inserted, err := st.InsertAssignmentIfAbsent(ctx, assignment("racer", v, time.Now()))
				assert.NoError(t, err)
				if inserted {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		counts, err := st.CountVisitorsByVariant(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[models.VariantA]+counts[models.VariantB])
	})

	t.Run("AppendAndCount", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		for i := 0; i < 10; i++ {
			_, err := st.InsertAssignmentIfAbsent(ctx, assignment(fmt.Sprintf("a-%d", i), models.VariantA, time.Now()))
			require.NoError(t, err)
		}
		for i := 0; i < 4; i++ {
			_, err := st.InsertAssignmentIfAbsent(ctx, assignment(fmt.Sprintf("b-%d", i), models.VariantB, time.Now()))
			require.NoError(t, err)
		}
		for i := 0; i < 3; i++ {
			require.NoError(t, st.AppendConversion(ctx, conversion("a-0", models.VariantA)))
		}
		require.NoError(t, st.AppendConversion(ctx, conversion("ghost", "C")))

		visitors, err := st.CountVisitorsByVariant(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[models.Variant]int64{models.VariantA: 10, models.VariantB: 4}, visitors)

		conversions, err := st.CountConversionsByVariant(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[models.Variant]int64{models.VariantA: 3, "C": 1}, conversions)
	})

	t.Run("RejectsIncompleteRows", func(t *testing.T) {
		st := open(t)
		ctx := context.Background()

		_, err := st.InsertAssignmentIfAbsent(ctx, models.VisitorAssignment{ID: uuid.NewString()})
		assert.Error(t, err)
		assert.Error(t, st.AppendConversion(ctx, models.ConversionEvent{ID: uuid.NewString(), Variant: models.VariantA}))
	})
}

func assignment(visitorID string, v models.Variant, at time.Time) models.VisitorAssignment {
	return models.VisitorAssignment{
		ID:        uuid.NewString(),
		VisitorID: visitorID,
		Variant:   v,
		ClientIP:  "203.0.113.7",
		UserAgent: "Mozilla/5.0",
		CreatedAt: at,
	}
}

func conversion(visitorID string, v models.Variant) models.ConversionEvent {
	return models.ConversionEvent{
		ID:        uuid.NewString(),
		VisitorID: visitorID,
		Variant:   v,
		EventType: models.DefaultEventType,
		ClientIP:  "203.0.113.7",
		CreatedAt: time.Now().UTC(),
	}
}
