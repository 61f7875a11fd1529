package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewForJob_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")

	logger, err := NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	logger.Info("starting transcode for %s", "Test Release")
	logger.Error("job %d failed: %v", 7, os.ErrNotExist)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	contents := string(data)
	if !strings.Contains(contents, "INFO") || !strings.Contains(contents, "starting transcode for Test Release") {
		t.Errorf("log contents = %q, want an INFO line", contents)
	}
	if !strings.Contains(contents, "ERROR") || !strings.Contains(contents, "job 7 failed") {
		t.Errorf("log contents = %q, want an ERROR line", contents)
	}
}

func TestNewForJob_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")

	first, err := NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	first.Info("first line")
	first.Close()

	second, err := NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	second.Info("second line")
	second.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "first line") || !strings.Contains(string(data), "second line") {
		t.Errorf("log contents = %q, want both lines present", string(data))
	}
}

func TestNewForJob_TeesToExtraWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")
	var buf bytes.Buffer

	logger, err := NewForJob(path, false, &buf)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	logger.Info("mirrored line")
	logger.Close()

	if !strings.Contains(buf.String(), "mirrored line") {
		t.Errorf("extra writer contents = %q, want mirrored line", buf.String())
	}
}

func TestNewForJob_AssignsDistinctRunIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.log")

	first, err := NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	defer first.Close()
	second, err := NewForJob(path, false, nil)
	if err != nil {
		t.Fatalf("NewForJob() error = %v", err)
	}
	defer second.Close()

	if first.RunID() == "" || second.RunID() == "" {
		t.Fatal("RunID() = \"\", want a non-empty run id")
	}
	if first.RunID() == second.RunID() {
		t.Error("two loggers got the same run id")
	}

	first.Info("tagged line")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), first.RunID()) {
		t.Errorf("log contents = %q, want the run id %q present", string(data), first.RunID())
	}
}
