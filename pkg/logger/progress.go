package logger

import (
	"sync"
)

// ProgressFunc receives ordered progress events from a pipeline run.
// Percent is within [0, 100] and never decreases across a run; message is a
// short human-readable description of the current stage.
type ProgressFunc func(percent int, message string)

// StageReporter forwards pipeline stage events to an optional ProgressFunc
// and mirrors them to the structured log. It clamps percentages so that the
// emitted sequence is monotonically non-decreasing even if stages report
// out of order.
type StageReporter struct {
	logger   Logger
	callback ProgressFunc
	last     int
	mutex    sync.Mutex
}

// NewStageReporter creates a StageReporter. Both arguments may be nil; a nil
// callback means events are only logged.
func NewStageReporter(log Logger, callback ProgressFunc) *StageReporter {
	if log == nil {
		log = GetGlobalLogger()
	}
	return &StageReporter{
		logger:   log.WithComponent("progress"),
		callback: callback,
	}
}

// Report emits a progress event.
func (r *StageReporter) Report(percent int, message string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if percent < r.last {
		percent = r.last
	}
	if percent > 100 {
		percent = 100
	}
	r.last = percent

	r.logger.WithFields(Fields{
		"percent": percent,
		"stage":   message,
	}).Info("Pipeline progress")

	if r.callback != nil {
		r.callback(percent, message)
	}
}

// Last returns the highest percentage reported so far.
func (r *StageReporter) Last() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.last
}
