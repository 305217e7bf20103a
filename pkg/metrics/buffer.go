package metrics

import (
	"sync"
	"time"

	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// RunPoint is the compact form of a run kept in the history buffer.
type RunPoint struct {
	RunID         string               `json:"runId"`
	TriggerSource models.TriggerSource `json:"triggerSource"`
	Status        models.RunStatus     `json:"status"`
	ReadingsSent  int                  `json:"readingsSent"`
	Errors        int                  `json:"errors"`
	Duration      time.Duration        `json:"duration"`
	FinishedAt    time.Time            `json:"finishedAt"`
}

// RingBuffer is a fixed-size RunHistory.
type RingBuffer struct {
	mu     sync.RWMutex
	points []RunPoint
	pos    int
	count  int
}

// NewBuffer creates a history holding the last size runs.
func NewBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}

	return &RingBuffer{
		points: make([]RunPoint, size),
	}
}

// Add records a run, overwriting the oldest entry when full.
func (b *RingBuffer) Add(run *models.CronRun) {
	p := RunPoint{
		RunID:         run.RunID,
		TriggerSource: run.TriggerSource,
		Status:        run.Status,
		ReadingsSent:  run.ReadingsSent,
		Errors:        len(run.Errors),
		Duration:      run.FinishedAt.Sub(run.StartedAt),
		FinishedAt:    run.FinishedAt,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.points[b.pos] = p
	b.pos = (b.pos + 1) % len(b.points)

	if b.count < len(b.points) {
		b.count++
	}
}

// Recent returns stored runs, newest first.
func (b *RingBuffer) Recent() []RunPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := len(b.points)
	out := make([]RunPoint, 0, b.count)

	for i := 0; i < b.count; i++ {
		idx := (b.pos - i - 1 + size) % size
		out = append(out, b.points[idx])
	}

	return out
}

// Last returns the newest run, or nil when nothing was recorded.
func (b *RingBuffer) Last() *RunPoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return nil
	}

	p := b.points[(b.pos-1+len(b.points))%len(b.points)]

	return &p
}
