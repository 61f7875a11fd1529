// Package verifier produces the ordered list of SourceIssues that
// disqualify a release from being transcoded, per the tracker's rules.
package verifier

import (
	"context"
	"fmt"
	"os"

	"github.com/losslessforge/transcoder/internal/naming"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/torrent"
)

// IssueKind names a disqualifying condition.
type IssueKind int

const (
	IssueCategory IssueKind = iota
	IssueScene
	IssueLossyMaster
	IssueLossyWeb
	IssueExisting
	IssueMissingDirectory
	IssueImdl
	IssueNoFlacs
	IssueChannels
	IssueSampleRate
	IssueFlacError
	IssueMissingTags
	IssueLength
	IssueError
)

func (k IssueKind) String() string {
	switch k {
	case IssueCategory:
		return "category"
	case IssueScene:
		return "scene"
	case IssueLossyMaster:
		return "lossy_master"
	case IssueLossyWeb:
		return "lossy_web"
	case IssueExisting:
		return "existing"
	case IssueMissingDirectory:
		return "missing_directory"
	case IssueImdl:
		return "imdl"
	case IssueNoFlacs:
		return "no_flacs"
	case IssueChannels:
		return "channels"
	case IssueSampleRate:
		return "sample_rate"
	case IssueFlacError:
		return "flac_error"
	case IssueMissingTags:
		return "missing_tags"
	case IssueLength:
		return "length"
	case IssueError:
		return "error"
	default:
		return "unknown"
	}
}

// Issue is one disqualifying finding. File is nil for release-level issues.
type Issue struct {
	Kind    IssueKind
	File    *release.FlacFile
	Details string
}

func (i Issue) String() string {
	if i.File != nil {
		return fmt.Sprintf("%s: %s (%s)", i.Kind, i.Details, i.File.Path)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Details)
}

// Options configures a verify run.
type Options struct {
	EnabledTargets []release.TargetFormat
	AllowExisting  bool
	// Torrent, TorrentPath and TorrentBytes are optional: when Torrent and
	// TorrentPath are set, rule 6 (piece hash verification) runs, feeding
	// TorrentBytes to the Torrent client.
	TorrentPath  string
	TorrentBytes []byte
	Torrent      *torrent.Client
}

// Verify runs every rule in spec order and returns the (possibly empty)
// ordered list of issues. A release is verified iff the list is empty.
func Verify(ctx context.Context, rel *release.Release, opts Options) ([]Issue, error) {
	var issues []Issue

	if rel.Category != "" && rel.Category != "Music" {
		issues = append(issues, Issue{Kind: IssueCategory, Details: rel.Category})
	}
	if rel.Scene {
		issues = append(issues, Issue{Kind: IssueScene})
	}
	if rel.LossyMaster {
		issues = append(issues, Issue{Kind: IssueLossyMaster})
	}
	if rel.LossyWeb {
		issues = append(issues, Issue{Kind: IssueLossyWeb})
	}
	if !opts.AllowExisting && allTargetsExist(rel, opts.EnabledTargets) {
		issues = append(issues, Issue{Kind: IssueExisting, Details: formatExisting(opts.EnabledTargets)})
	}

	info, err := os.Stat(rel.ContentDir)
	if err != nil || !info.IsDir() {
		issues = append(issues, Issue{Kind: IssueMissingDirectory, Details: rel.ContentDir})
		// Every remaining rule reads the content directory; nothing more
		// can be checked once it's confirmed missing.
		return issues, nil
	}

	if opts.Torrent != nil && opts.TorrentPath != "" {
		if err := opts.Torrent.Verify(ctx, opts.TorrentBytes, rel.ContentDir); err != nil {
			issues = append(issues, Issue{Kind: IssueImdl, Details: err.Error()})
		}
	}

	files, err := release.DiscoverFlacs(rel.ContentDir)
	if err != nil {
		issues = append(issues, Issue{Kind: IssueError, Details: fmt.Sprintf("discover flacs: %v", err)})
		return issues, nil
	}
	if len(files) == 0 {
		issues = append(issues, Issue{Kind: IssueNoFlacs})
		return issues, nil
	}

	discCtx := release.BuildDiscContext(files)
	isMultiDisc := discCtx.IsMultiDisc

	for _, f := range files {
		issues = append(issues, verifyFile(f, rel, discCtx, isMultiDisc, rel.Classical)...)
	}

	return issues, nil
}

func verifyFile(f *release.FlacFile, rel *release.Release, ctx naming.DiscContext, isMultiDisc, isClassical bool) []Issue {
	var issues []Issue

	info, err := f.StreamInfo()
	if err != nil {
		return []Issue{{Kind: IssueFlacError, File: f, Details: err.Error()}}
	}

	if info.Channels > 2 {
		issues = append(issues, Issue{Kind: IssueChannels, File: f, Details: fmt.Sprintf("%d channels", info.Channels)})
	}
	if _, err := info.ResampleTargetRate(); err != nil {
		issues = append(issues, Issue{Kind: IssueSampleRate, File: f, Details: err.Error()})
	}

	tags, err := f.Tags()
	if err != nil {
		issues = append(issues, Issue{Kind: IssueFlacError, File: f, Details: err.Error()})
	} else {
		missing := missingRequiredTags(tags, isMultiDisc, isClassical)
		if len(missing) > 0 {
			issues = append(issues, Issue{Kind: IssueMissingTags, File: f, Details: fmt.Sprintf("%v", missing)})
		}
	}

	if exceedsLengthAfterRename(rel, f, ctx) {
		issues = append(issues, Issue{Kind: IssueLength, File: f})
	}

	return issues
}

func missingRequiredTags(tags interface{ Get(string) (string, bool) }, isMultiDisc, isClassical bool) []string {
	required := []string{"ARTIST", "ALBUM", "TITLE", "TRACKNUMBER"}
	if isClassical {
		required = append(required, "COMPOSER")
	}
	if isMultiDisc {
		required = append(required, "DISCNUMBER")
	}

	var missing []string
	for _, key := range required {
		if v, ok := tags.Get(key); !ok || v == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func exceedsLengthAfterRename(rel *release.Release, f *release.FlacFile, ctx naming.DiscContext) bool {
	for _, target := range release.AllTargetFormats {
		tags, err := f.Tags()
		if err != nil {
			continue
		}
		title, _ := tags.Get("TITLE")
		trackTag, _ := tags.Get("TRACKNUMBER")
		stem := naming.TrackStem(f.Stem, naming.FileTags{Track: trackTag, Title: title}, ctx, f.TrackNumber())
		fileName := stem + "." + target.Extension()
		subDir := naming.SubDir(ctx, f.DiscNumber())
		if naming.ExceedsLengthLimit(rel.TranscodeDirName(target), subDir, fileName) {
			return true
		}
	}
	return false
}

func allTargetsExist(rel *release.Release, enabled []release.TargetFormat) bool {
	if len(enabled) == 0 {
		return false
	}
	for _, target := range enabled {
		if !rel.ExistingFormats[target] {
			return false
		}
	}
	return true
}

func formatExisting(targets []release.TargetFormat) string {
	s := ""
	for i, t := range targets {
		if i > 0 {
			s += ","
		}
		s += t.Label()
	}
	return s
}

