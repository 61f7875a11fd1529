package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/losslessforge/transcoder/internal/jobrunner"
	"github.com/losslessforge/transcoder/internal/logging"
)

func TestDebugLogger_LogsLifecycleEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")
	logger, err := logging.NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}

	d := NewDebugLogger(logger)
	d.Start(3)
	d.Update("job-1", jobrunner.StatusQueued)
	d.Update("job-1", jobrunner.StatusStarted)
	d.Update("job-1", jobrunner.StatusCompleted)
	d.Finish()
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	contents := string(data)
	for _, want := range []string{"starting 3 job", "job-1: queued", "job-1: started", "job-1: completed", "finished"} {
		if !strings.Contains(contents, want) {
			t.Errorf("log = %q, want substring %q", contents, want)
		}
	}
}
