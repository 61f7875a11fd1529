// Package auxjob carries non-FLAC files (artwork, logs, cues) from a
// release's source directory into each transcode output directory.
package auxjob

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/losslessforge/transcoder/internal/process"
)

// imageExtensions lists extensions treated as resizable artwork. Anything
// else is carried across unchanged.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// Options configures an aux job.
type Options struct {
	MaxPixelSize int // longest edge, in pixels; 0 disables resizing
	Quality      int // ImageMagick -quality argument
	HardLinkOK   bool
	Convert      string // path to the ImageMagick convert binary; "" means "convert"
}

func (o Options) convertBin() string {
	if o.Convert == "" {
		return "convert"
	}
	return o.Convert
}

// Job copies or resizes a single non-FLAC file from src (inside the
// release's content directory) to dst (inside a transcode output directory).
type Job struct {
	Src, Dst string
	Opts     Options
	Runner   process.Interface
}

// ID identifies the job for jobrunner lifecycle events.
func (j *Job) ID() string { return j.Dst }

// Run copies, hardlinks, or resizes Src into Dst depending on whether Src
// is an oversized image.
func (j *Job) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(j.Dst), 0755); err != nil {
		return fmt.Errorf("auxjob: mkdir for %s: %w", j.Dst, err)
	}

	if isImage(j.Src) && j.Opts.MaxPixelSize > 0 {
		oversized, err := exceedsMaxPixelSize(j.Src, j.Opts.MaxPixelSize)
		if err != nil {
			return fmt.Errorf("auxjob: inspect %s: %w", j.Src, err)
		}
		if oversized {
			return j.resize(ctx)
		}
	}
	return j.linkOrCopy()
}

func isImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// exceedsMaxPixelSize decodes just the image header to compare its
// longest edge against maxPixelSize, without loading the full image.
func exceedsMaxPixelSize(path string, maxPixelSize int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return false, err
	}
	longest := cfg.Width
	if cfg.Height > longest {
		longest = cfg.Height
	}
	return longest > maxPixelSize, nil
}

func (j *Job) resize(ctx context.Context) error {
	geometry := fmt.Sprintf("%dx%d>", j.Opts.MaxPixelSize, j.Opts.MaxPixelSize)
	args := []string{
		j.Src,
		"-resize", geometry,
		"-quality", fmt.Sprintf("%d", j.Opts.Quality),
		j.Dst,
	}
	if _, err := j.Runner.Run(ctx, j.Opts.convertBin(), args...); err != nil {
		return fmt.Errorf("auxjob: resize %s: %w", j.Src, err)
	}
	return nil
}

func (j *Job) linkOrCopy() error {
	if j.Opts.HardLinkOK {
		if err := os.Link(j.Src, j.Dst); err == nil {
			return nil
		}
		// Fall through to copy: cross-device links and existing
		// destinations both surface as an error from os.Link.
	}
	return copyFile(j.Src, j.Dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("auxjob: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("auxjob: create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return fmt.Errorf("auxjob: copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
