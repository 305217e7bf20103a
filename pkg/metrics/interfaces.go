package metrics

import (
	"github.com/suzarilshah/aquanexus-sub003/pkg/models"
)

// Recorder receives replay instrumentation.
type Recorder interface {
	ObserveRun(run *models.CronRun)
	ReadingsSent(deviceType models.DeviceType, n int)
	EmitFailed(deviceType models.DeviceType)
	SessionTransition(to models.SessionStatus)
}

// RunHistory keeps the most recent run summaries.
type RunHistory interface {
	Add(run *models.CronRun)
	Recent() []RunPoint
	Last() *RunPoint
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRun(*models.CronRun) {}
func (Nop) ReadingsSent(models.DeviceType, int) {}
func (Nop) EmitFailed(models.DeviceType) {}
func (Nop) SessionTransition(models.SessionStatus) {}
