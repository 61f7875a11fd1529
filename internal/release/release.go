// Package release holds the core data model: the Release under
// consideration, its target formats, and the FLAC files within it.
package release

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/losslessforge/transcoder/internal/flacinfo"
	"github.com/losslessforge/transcoder/internal/naming"
)

// SourceFormat classifies the lossless source as the tracker sees it.
type SourceFormat int

const (
	SourceFLAC16 SourceFormat = iota
	SourceFLAC24
)

// TargetFormat is one of the formats this pipeline can produce.
type TargetFormat int

const (
	TargetFLAC TargetFormat = iota
	TargetMP3_320
	TargetMP3_V0
)

// AllTargetFormats lists every target in deterministic iteration order.
var AllTargetFormats = []TargetFormat{TargetFLAC, TargetMP3_320, TargetMP3_V0}

// Extension returns the output file extension for the target.
func (t TargetFormat) Extension() string {
	if t == TargetFLAC {
		return "flac"
	}
	return "mp3"
}

// Label returns the human-readable label used in directory names.
func (t TargetFormat) Label() string {
	switch t {
	case TargetFLAC:
		return "FLAC"
	case TargetMP3_320:
		return "320"
	case TargetMP3_V0:
		return "V0"
	default:
		return "UNKNOWN"
	}
}

func (t TargetFormat) String() string { return t.Label() }

// ParseTargetFormat maps a config/CLI label ("FLAC", "320", "V0") onto
// a TargetFormat.
func ParseTargetFormat(label string) (TargetFormat, error) {
	for _, t := range AllTargetFormats {
		if t.Label() == label {
			return t, nil
		}
	}
	return 0, fmt.Errorf("release: unknown target format %q", label)
}

// ParseTargetFormats maps every label in labels, stopping at the first
// unrecognised one.
func ParseTargetFormats(labels []string) ([]TargetFormat, error) {
	targets := make([]TargetFormat, 0, len(labels))
	for _, label := range labels {
		t, err := ParseTargetFormat(label)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// Metadata is the release's immutable descriptive metadata.
type Metadata struct {
	Artist        string
	Album         string
	RemasterTitle string
	Year          int
	Media         string
}

func (m Metadata) naming() naming.Metadata {
	return naming.Metadata{
		Artist:        m.Artist,
		Album:         m.Album,
		RemasterTitle: m.RemasterTitle,
		Year:          m.Year,
		Media:         m.Media,
	}
}

// Release is the input release under consideration, created once a
// Source collaborator (out of core) has resolved a tracker id. It is
// shared-read by every job in a run.
type Release struct {
	ContentDir      string
	SourceFormat    SourceFormat
	ExistingFormats map[TargetFormat]bool
	Meta            Metadata
	IndexerID       string
	AnnounceURL     string

	// Tracker-side flags consumed by the Source Verifier.
	Category    string
	Scene       bool
	LossyMaster bool
	LossyWeb    bool
	Trumpable   bool
	// Classical marks releases where a COMPOSER tag is required per track.
	Classical bool
}

// SourceName returns the release's base display name (artist/album/year).
func (r *Release) SourceName() string { return naming.SourceName(r.Meta.naming()) }

// TranscodeDirName returns the sanitised output directory name for a target.
func (r *Release) TranscodeDirName(target TargetFormat) string {
	return naming.TranscodeDirName(r.Meta.naming(), target.Label())
}

// SpectrogramDirName returns the sanitised spectrogram output directory name.
func (r *Release) SpectrogramDirName() string {
	return naming.SpectrogramDirName(r.Meta.naming())
}

// DiscContext is computed once per release and shared by every file in it.
type DiscContext = naming.DiscContext

// FlacFile is a single FLAC input under the release's content directory.
// Stream info and tags are parsed lazily on first access and cached;
// subsequent calls read the cache. Safe for concurrent reads after the
// first successful parse; the parse itself is guarded by a mutex so
// concurrent callers don't race to populate the cache.
type FlacFile struct {
	Path string
	Stem string // file name without extension, before any rename

	mu         sync.Mutex
	streamInfo *flacinfo.StreamInfo
	tags       flacinfo.Tags
}

// NewFlacFile wraps a path. The caller supplies stem, the file name
// without extension.
func NewFlacFile(path, stem string) *FlacFile {
	return &FlacFile{Path: path, Stem: stem}
}

// StreamInfo returns the (cached) parsed stream info.
func (f *FlacFile) StreamInfo() (flacinfo.StreamInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamInfo != nil {
		return *f.streamInfo, nil
	}
	info, err := flacinfo.ReadStreamInfo(f.Path)
	if err != nil {
		return flacinfo.StreamInfo{}, err
	}
	f.streamInfo = &info
	return info, nil
}

// Tags returns the (cached) parsed Vorbis comment tags.
func (f *FlacFile) Tags() (flacinfo.Tags, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tags != nil {
		return f.tags, nil
	}
	tags, err := flacinfo.ReadTags(f.Path)
	if err != nil {
		return nil, err
	}
	f.tags = tags
	return tags, nil
}

// TrackNumber parses the TRACKNUMBER tag, or returns 0 if absent/invalid.
func (f *FlacFile) TrackNumber() int {
	tags, err := f.Tags()
	if err != nil {
		return 0
	}
	v, ok := tags.Get("TRACKNUMBER")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(firstNumberToken(v))
	if err != nil {
		return 0
	}
	return n
}

// DiscNumber parses the DISCNUMBER tag, defaulting to 1 if absent/invalid.
func (f *FlacFile) DiscNumber() int {
	tags, err := f.Tags()
	if err != nil {
		return 1
	}
	v, ok := tags.Get("DISCNUMBER")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(firstNumberToken(v))
	if err != nil || n == 0 {
		return 1
	}
	return n
}

// firstNumberToken strips a trailing "/N" total-count suffix some taggers add.
func firstNumberToken(v string) string {
	for i, r := range v {
		if r == '/' {
			return v[:i]
		}
	}
	return v
}

// BuildDiscContext computes the shared DiscContext for a release from its
// FLAC files, before any file is renamed.
func BuildDiscContext(files []*FlacFile) DiscContext {
	maxTrack := 0
	discs := map[int]bool{}
	for _, f := range files {
		if n := f.TrackNumber(); n > maxTrack {
			maxTrack = n
		}
		discs[f.DiscNumber()] = true
	}
	return naming.NewDiscContext(maxTrack, uint32(len(discs)))
}

// SortedDiscNumbers returns the distinct disc numbers seen across files,
// sorted ascending.
func SortedDiscNumbers(files []*FlacFile) []int {
	seen := map[int]bool{}
	for _, f := range files {
		seen[f.DiscNumber()] = true
	}
	var discs []int
	for d := range seen {
		discs = append(discs, d)
	}
	sort.Ints(discs)
	return discs
}

// ErrNoFlacs is returned by discovery when a release's content directory
// contains no FLAC files.
var ErrNoFlacs = fmt.Errorf("release: no FLAC files found")
