// Package planner decides, for every (file, target format) pair in a
// release, which transcode variant (if any) must run and where its
// output belongs.
package planner

import (
	"fmt"
	"path/filepath"

	"github.com/losslessforge/transcoder/internal/naming"
	"github.com/losslessforge/transcoder/internal/release"
)

// VariantKind distinguishes the action a Plan entry requires.
type VariantKind int

const (
	// VariantInclude hardlinks (or copies) the source FLAC unchanged.
	VariantInclude VariantKind = iota
	// VariantResample runs a single sox invocation into a FLAC output.
	VariantResample
	// VariantTranscode runs a decode|encode pipe into a lossy output.
	VariantTranscode
)

func (k VariantKind) String() string {
	switch k {
	case VariantInclude:
		return "include"
	case VariantResample:
		return "resample"
	case VariantTranscode:
		return "transcode"
	default:
		return "unknown"
	}
}

// Variant is one planned action for a single file.
type Variant struct {
	Kind   VariantKind
	Target release.TargetFormat

	// HardLink is only meaningful for VariantInclude: true to hardlink,
	// false to copy, decided by filesystem hint (same device or not).
	HardLink bool

	// ResampleRateHz is only meaningful for VariantResample and for a
	// VariantTranscode whose source required resampling first.
	ResampleRateHz uint32
	NeedsResample  bool
}

// Entry is a fully planned unit of work for one (file, target) pair.
type Entry struct {
	File    *release.FlacFile
	Variant Variant

	// OutputPath is transcode_dir(meta, target) / sub_dir(file) / (track_stem + ext).
	OutputPath string
}

// IssueKind classifies why a (file, target) pair was rejected.
type IssueKind int

const (
	IssueChannels IssueKind = iota
	IssueSampleRate
)

func (k IssueKind) String() string {
	switch k {
	case IssueChannels:
		return "channels"
	case IssueSampleRate:
		return "sample_rate"
	default:
		return "unknown"
	}
}

// Rejection records a (file, target) pair the planner excluded.
type Rejection struct {
	File   *release.FlacFile
	Target release.TargetFormat
	Kind   IssueKind
	Err    error
}

// NoTranscodesError is fatal: every candidate (file, target) pair was
// rejected, so there is nothing for the Job Runner to do.
type NoTranscodesError struct {
	Rejections []Rejection
}

func (e *NoTranscodesError) Error() string {
	return fmt.Sprintf("planner: no transcodable (file, target) pairs out of %d candidate(s)", len(e.Rejections))
}

// Options configures planning.
type Options struct {
	EnabledTargets []release.TargetFormat
	HardLinkOK     bool // filesystem hint: true if source and output share a device
	// OutputRoot prefixes every planned OutputPath. Empty means paths
	// start at transcode_dir(meta, target), relative to the working
	// directory.
	OutputRoot string
}

// Plan is the result of planning a release: the work to do, plus any
// rejections recorded for diagnostics.
type Plan struct {
	Entries    []Entry
	Rejections []Rejection
}

// Plan builds the decision table for every file in files against every
// enabled target. If every candidate pair is rejected, it returns
// *NoTranscodesError.
func Plan(rel *release.Release, files []*release.FlacFile, ctx naming.DiscContext, opts Options) (*Plan, error) {
	p := &Plan{}

	for _, f := range files {
		info, err := f.StreamInfo()
		if err != nil {
			return nil, fmt.Errorf("planner: stream info for %s: %w", f.Path, err)
		}

		if info.Channels > 2 {
			for _, target := range opts.EnabledTargets {
				p.Rejections = append(p.Rejections, Rejection{File: f, Target: target, Kind: IssueChannels, Err: fmt.Errorf("planner: %d channels exceeds stereo limit", info.Channels)})
			}
			continue
		}

		needsResample := info.IsResampleRequired()
		resampleRate, err := info.ResampleTargetRate()
		if err != nil {
			for _, target := range opts.EnabledTargets {
				p.Rejections = append(p.Rejections, Rejection{File: f, Target: target, Kind: IssueSampleRate, Err: err})
			}
			continue
		}
		if !needsResample {
			resampleRate = 0
		}

		for _, target := range opts.EnabledTargets {
			variant := buildVariant(target, needsResample, resampleRate, opts.HardLinkOK)
			outPath, err := outputPath(rel, f, target, ctx, opts.OutputRoot)
			if err != nil {
				return nil, err
			}
			p.Entries = append(p.Entries, Entry{File: f, Variant: variant, OutputPath: outPath})
		}
	}

	if len(p.Entries) == 0 {
		return nil, &NoTranscodesError{Rejections: p.Rejections}
	}
	return p, nil
}

func buildVariant(target release.TargetFormat, needsResample bool, resampleRate uint32, hardLinkOK bool) Variant {
	if target == release.TargetFLAC {
		if !needsResample {
			return Variant{Kind: VariantInclude, Target: target, HardLink: hardLinkOK}
		}
		return Variant{Kind: VariantResample, Target: target, ResampleRateHz: resampleRate, NeedsResample: true}
	}
	return Variant{Kind: VariantTranscode, Target: target, ResampleRateHz: resampleRate, NeedsResample: needsResample}
}

func outputPath(rel *release.Release, f *release.FlacFile, target release.TargetFormat, ctx naming.DiscContext, outputRoot string) (string, error) {
	tags, err := f.Tags()
	if err != nil {
		return "", fmt.Errorf("planner: tags for %s: %w", f.Path, err)
	}
	title, _ := tags.Get("TITLE")
	trackTag, _ := tags.Get("TRACKNUMBER")

	trackNum := f.TrackNumber()
	discNum := f.DiscNumber()

	stem := naming.TrackStem(f.Stem, naming.FileTags{Track: trackTag, Title: title}, ctx, trackNum)
	fileName := stem + "." + target.Extension()

	transcodeDir := rel.TranscodeDirName(target)
	subDir := naming.SubDir(ctx, discNum)

	var parts []string
	if outputRoot != "" {
		parts = append(parts, outputRoot)
	}
	parts = append(parts, transcodeDir)
	if subDir != "" {
		parts = append(parts, subDir)
	}
	parts = append(parts, fileName)
	return filepath.Join(parts...), nil
}
