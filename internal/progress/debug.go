package progress

import (
	"github.com/losslessforge/transcoder/internal/jobrunner"
	"github.com/losslessforge/transcoder/internal/logging"
)

// DebugLogger mirrors every lifecycle event as a log line, for batch
// or queue runs where an interactive bar has no terminal to draw on.
type DebugLogger struct {
	logger *logging.Logger
}

// NewDebugLogger returns a DebugLogger writing through logger.
func NewDebugLogger(logger *logging.Logger) *DebugLogger {
	return &DebugLogger{logger: logger}
}

var _ jobrunner.Subscriber = (*DebugLogger)(nil)

func (d *DebugLogger) Start(total int) {
	d.logger.Info("job runner: starting %d job(s)", total)
}

func (d *DebugLogger) Update(jobID string, status jobrunner.Status) {
	d.logger.Debug("job %s: %s", jobID, status)
}

func (d *DebugLogger) Finish() {
	d.logger.Info("job runner: finished")
}
