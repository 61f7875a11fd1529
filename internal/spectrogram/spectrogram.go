// Package spectrogram renders full-track and zoomed spectrogram PNGs for
// a release's FLAC files via sox.
package spectrogram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/losslessforge/transcoder/internal/jobrunner"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/release"
)

// zoomOffset and zoomDuration are the fixed window sox renders for the
// ".zoom.png" image.
const (
	zoomOffset   = "00:01:00"
	zoomDuration = "00:00:02"
)

// Options configures a spectrogram run.
type Options struct {
	Sox string // path to the sox binary; "" means "sox"
}

func (o Options) sox() string {
	if o.Sox == "" {
		return "sox"
	}
	return o.Sox
}

// Job renders both spectrogram images for one FLAC file.
type Job struct {
	File   *release.FlacFile
	Stem   string // track stem, used for both PNG names
	OutDir string
	Opts   Options
	Runner process.Interface
}

// ID identifies the job for jobrunner lifecycle events.
func (j *Job) ID() string { return filepath.Join(j.OutDir, j.Stem) }

// Run renders the full and zoom spectrogram images.
func (j *Job) Run(ctx context.Context) error {
	fullPath := filepath.Join(j.OutDir, j.Stem+".full.png")
	zoomPath := filepath.Join(j.OutDir, j.Stem+".zoom.png")

	if _, err := j.Runner.Run(ctx, j.Opts.sox(), fullArgs(j.File.Path, fullPath)...); err != nil {
		return fmt.Errorf("spectrogram: full %s: %w", fullPath, err)
	}
	if _, err := j.Runner.Run(ctx, j.Opts.sox(), zoomArgs(j.File.Path, zoomPath)...); err != nil {
		return fmt.Errorf("spectrogram: zoom %s: %w", zoomPath, err)
	}
	return nil
}

func fullArgs(input, output string) []string {
	return []string{input, "-n", "spectrogram", "-o", output}
}

func zoomArgs(input, output string) []string {
	return []string{
		input, "-n", "spectrogram",
		"-S", zoomOffset,
		"-d", zoomDuration,
		"-o", output,
	}
}

// Run renders spectrograms for every FLAC file in files into outDir,
// submitting one Job per file to the given Job Runner for bounded,
// subscriber-notified execution. If outDir already exists and is
// non-empty, rendering is skipped entirely (idempotent re-runs don't
// re-render) and Run returns count 0. A sibling job's failure does not
// stop the others; if any fail, Run returns the partial count alongside
// the runner's *jobrunner.AggregateError.
func Run(ctx context.Context, jobs *jobrunner.Runner, procRunner process.Interface, files []*release.FlacFile, stems map[string]string, outDir string, opts Options) (int, error) {
	nonEmpty, err := dirNonEmpty(outDir)
	if err != nil {
		return 0, fmt.Errorf("spectrogram: stat %s: %w", outDir, err)
	}
	if nonEmpty {
		return 0, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("spectrogram: mkdir %s: %w", outDir, err)
	}

	for _, f := range files {
		stem := stems[f.Path]
		if stem == "" {
			stem = f.Stem
		}
		jobs.Add(&Job{File: f, Stem: stem, OutDir: outDir, Opts: opts, Runner: procRunner})
	}

	if err := jobs.Execute(ctx); err != nil {
		if agg, ok := err.(*jobrunner.AggregateError); ok {
			return len(files) - len(agg.Errors), agg
		}
		return 0, err
	}
	return len(files), nil
}

func dirNonEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}
