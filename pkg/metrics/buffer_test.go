package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

func run(id string, readings int) *models.CronRun {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	return &models.CronRun{
		RunID:         id,
		TriggerSource: models.TriggerScheduler,
		Status:        models.RunCompleted,
		ReadingsSent:  readings,
		StartedAt:     start,
		FinishedAt:    start.Add(2 * time.Second),
	}
}

func TestRingBuffer(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		b := NewBuffer(3)

		assert.Nil(t, b.Last())
		assert.Empty(t, b.Recent())
	})

	t.Run("newest first and wraps", func(t *testing.T) {
		b := NewBuffer(3)

		for i, id := range []string{"a", "b", "c", "d"} {
			b.Add(run(id, i))
		}

		recent := b.Recent()
		require.Len(t, recent, 3)
		assert.Equal(t, "d", recent[0].RunID)
		assert.Equal(t, "c", recent[1].RunID)
		assert.Equal(t, "b", recent[2].RunID)

		last := b.Last()
		require.NotNil(t, last)
		assert.Equal(t, "d", last.RunID)
		assert.Equal(t, 2*time.Second, last.Duration)
		assert.Equal(t, 3, last.ReadingsSent)
	})

	t.Run("concurrent access", func(t *testing.T) {
		b := NewBuffer(10)

		var wg sync.WaitGroup

		const goroutines = 10

		for i := 0; i < goroutines; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for j := 0; j < 100; j++ {
					b.Add(run("r", j))
					_ = b.Recent()
				}
			}()
		}

		wg.Wait()
		assert.Len(t, b.Recent(), 10)
	})
}
