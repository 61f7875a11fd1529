// Package command drives a single release through the pipeline's two
// top-level state machines: the Transcode Command and the Spectrogram
// Command, each ending in a serialisable status record.
package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/losslessforge/transcoder/internal/auxjob"
	"github.com/losslessforge/transcoder/internal/jobrunner"
	"github.com/losslessforge/transcoder/internal/naming"
	"github.com/losslessforge/transcoder/internal/planner"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/spectrogram"
	"github.com/losslessforge/transcoder/internal/torrent"
	"github.com/losslessforge/transcoder/internal/transcodejob"
	"github.com/losslessforge/transcoder/internal/verifier"
)

// State names one step of the Transcode Command's state machine.
type State int

const (
	StateVerify State = iota
	StatePlan
	StateExecute
	StatePackage
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateVerify:
		return "verify"
	case StatePlan:
		return "plan"
	case StateExecute:
		return "execute"
	case StatePackage:
		return "package"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FormatPath pairs a produced target format with its output directory.
type FormatPath struct {
	Format release.TargetFormat
	Path   string
}

// TranscodeResult is the Transcode Command's status record.
type TranscodeResult struct {
	State          State
	Issues         []verifier.Issue
	NoTranscodes   *planner.NoTranscodesError
	JobFailures    *jobrunner.AggregateError
	CompletedPaths []FormatPath
	TorrentErrors  map[release.TargetFormat]error
}

// Succeeded reports whether the command reached StateDone.
func (r TranscodeResult) Succeeded() bool { return r.State == StateDone }

// TranscodeOptions configures a single Transcode Command run.
type TranscodeOptions struct {
	EnabledTargets []release.TargetFormat
	AllowExisting  bool
	HardLinkOK     bool
	Repeatable     bool

	OutputRoot        string
	TorrentOutputRoot string

	Bins        transcodejob.BinaryPaths
	AuxOpts     auxjob.Options
	TorrentOpts torrent.Options

	Runner  process.Interface
	JobSub  jobrunner.Subscriber
	CPUs    int
}

// RunTranscode drives a release through Verify → Plan → Execute → Package → Done|Failed.
func RunTranscode(ctx context.Context, rel *release.Release, opts TranscodeOptions) *TranscodeResult {
	issues, err := verifier.Verify(ctx, rel, verifier.Options{
		EnabledTargets: opts.EnabledTargets,
		AllowExisting:  opts.AllowExisting,
	})
	if err != nil {
		return &TranscodeResult{State: StateFailed, Issues: []verifier.Issue{{Kind: verifier.IssueError, Details: err.Error()}}}
	}
	if len(issues) > 0 {
		return &TranscodeResult{State: StateFailed, Issues: issues}
	}

	files, err := release.DiscoverFlacs(rel.ContentDir)
	if err != nil {
		return &TranscodeResult{State: StateFailed, Issues: []verifier.Issue{{Kind: verifier.IssueError, Details: err.Error()}}}
	}
	discCtx := release.BuildDiscContext(files)

	plan, err := planner.Plan(rel, files, discCtx, planner.Options{
		EnabledTargets: opts.EnabledTargets,
		HardLinkOK:     opts.HardLinkOK,
		OutputRoot:     opts.OutputRoot,
	})
	if err != nil {
		if noTranscodes, ok := err.(*planner.NoTranscodesError); ok {
			return &TranscodeResult{State: StateFailed, NoTranscodes: noTranscodes}
		}
		return &TranscodeResult{State: StateFailed, Issues: []verifier.Issue{{Kind: verifier.IssueError, Details: err.Error()}}}
	}

	runner := jobrunner.New(jobrunner.Config{CPUs: opts.CPUs}, opts.JobSub)
	for _, entry := range plan.Entries {
		runner.Add(&transcodejob.Job{
			Entry:      entry,
			Runner:     opts.Runner,
			Bins:       opts.Bins,
			Repeatable: opts.Repeatable,
		})
	}

	auxFiles, err := release.DiscoverAuxFiles(rel.ContentDir)
	if err == nil {
		for _, target := range opts.EnabledTargets {
			for _, relPath := range auxFiles {
				src := filepath.Join(rel.ContentDir, relPath)
				dst := filepath.Join(opts.OutputRoot, rel.TranscodeDirName(target), relPath)
				runner.Add(&auxjob.Job{Src: src, Dst: dst, Opts: opts.AuxOpts, Runner: opts.Runner})
			}
		}
	}

	execErr := runner.Execute(ctx)

	producedPaths := producedFormatPaths(rel, opts.EnabledTargets, opts.OutputRoot)

	if execErr != nil {
		agg, _ := execErr.(*jobrunner.AggregateError)
		return &TranscodeResult{State: StateFailed, JobFailures: agg, CompletedPaths: producedPaths}
	}

	torrentErrors := map[release.TargetFormat]error{}
	client := torrent.New(opts.TorrentOpts, opts.Runner)
	for _, fp := range producedPaths {
		torrentPath := filepath.Join(opts.TorrentOutputRoot, filepath.Base(fp.Path)+".torrent")
		if err := client.Create(ctx, fp.Path, torrentPath); err != nil {
			torrentErrors[fp.Format] = err
		}
	}

	if len(torrentErrors) > 0 {
		return &TranscodeResult{State: StateFailed, CompletedPaths: producedPaths, TorrentErrors: torrentErrors}
	}

	return &TranscodeResult{
		State:          StateDone,
		CompletedPaths: producedPaths,
		TorrentErrors:  torrentErrors,
	}
}

func producedFormatPaths(rel *release.Release, targets []release.TargetFormat, outputRoot string) []FormatPath {
	var paths []FormatPath
	for _, t := range targets {
		paths = append(paths, FormatPath{Format: t, Path: filepath.Join(outputRoot, rel.TranscodeDirName(t))})
	}
	return paths
}

// SpectrogramResult is the Spectrogram Command's status record.
type SpectrogramResult struct {
	Succeeded bool
	Count     int
	Err       error
}

// SpectrogramOptions configures a Spectrogram Command run.
type SpectrogramOptions struct {
	OutputRoot string
	Opts       spectrogram.Options
	Runner     process.Interface
	JobSub     jobrunner.Subscriber
	CPUs       int
}

// RunSpectrogram drives a release through plan → run → status for
// spectrogram generation.
func RunSpectrogram(ctx context.Context, rel *release.Release, opts SpectrogramOptions) *SpectrogramResult {
	files, err := release.DiscoverFlacs(rel.ContentDir)
	if err != nil {
		return &SpectrogramResult{Err: fmt.Errorf("command: discover flacs: %w", err)}
	}
	if len(files) == 0 {
		return &SpectrogramResult{Err: release.ErrNoFlacs}
	}

	discCtx := release.BuildDiscContext(files)
	stems := map[string]string{}
	for _, f := range files {
		tags, err := f.Tags()
		if err != nil {
			continue
		}
		title, _ := tags.Get("TITLE")
		trackTag, _ := tags.Get("TRACKNUMBER")
		stems[f.Path] = naming.TrackStem(f.Stem, naming.FileTags{Track: trackTag, Title: title}, discCtx, f.TrackNumber())
	}

	outDir := filepath.Join(opts.OutputRoot, rel.SpectrogramDirName())
	runner := jobrunner.New(jobrunner.Config{CPUs: opts.CPUs}, opts.JobSub)
	count, err := spectrogram.Run(ctx, runner, opts.Runner, files, stems, outDir, opts.Opts)
	if err != nil {
		return &SpectrogramResult{Err: err, Count: count}
	}
	return &SpectrogramResult{Succeeded: true, Count: count}
}
