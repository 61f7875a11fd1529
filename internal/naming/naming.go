// Package naming computes deterministic output directory and file names
// from release metadata, honouring filesystem sanitisation and the
// tracker's path-length limit.
package naming

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// MaxPathLength is the platform path-length policy this pipeline enforces.
const MaxPathLength = 180

// MaxTrackStemLength bounds a generated track filename stem, excluding
// extension; the title is truncated to fit, the track number never is.
const MaxTrackStemLength = 70

// Metadata is the subset of release metadata the name builder needs.
type Metadata struct {
	Artist         string
	Album          string
	RemasterTitle  string
	Year           int
	Media          string
}

var reservedChars = regexp.MustCompile(`[/\\:*?"<>|]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Sanitize replaces filesystem-reserved characters with a single
// substitute character, collapses whitespace runs, and trims the result.
// Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	s = reservedChars.ReplaceAllString(s, "_")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SourceName builds the release's base display name.
func SourceName(meta Metadata) string {
	if strings.TrimSpace(meta.RemasterTitle) == "" {
		return fmt.Sprintf("%s - %s [%d]", meta.Artist, meta.Album, meta.Year)
	}
	return fmt.Sprintf("%s - %s (%s) [%d]", meta.Artist, meta.Album, meta.RemasterTitle, meta.Year)
}

// TranscodeDirName builds the sanitised output directory name for a target
// format label (e.g. "FLAC", "320", "V0").
func TranscodeDirName(meta Metadata, targetLabel string) string {
	return Sanitize(fmt.Sprintf("%s [%s %s]", SourceName(meta), meta.Media, targetLabel))
}

// SpectrogramDirName builds the sanitised spectrogram output directory name.
func SpectrogramDirName(meta Metadata) string {
	return Sanitize(fmt.Sprintf("%s [%s SPECTROGRAMS]", SourceName(meta), meta.Media))
}

// DiscContext carries the per-release naming state computed once before
// any file is renamed, so it stays stable for the entire run.
type DiscContext struct {
	TrackPadding int
	IsMultiDisc  bool
	DiscCount    uint32
}

// NewDiscContext computes a DiscContext from the maximum track number seen
// across the release and the number of distinct discs.
func NewDiscContext(maxTrack int, discCount uint32) DiscContext {
	return DiscContext{
		TrackPadding: trackPadding(maxTrack),
		IsMultiDisc:  discCount > 1,
		DiscCount:    discCount,
	}
}

// trackPadding is floor(log10(maxTrack))+1, with a floor of 1 digit.
func trackPadding(maxTrack int) int {
	if maxTrack < 10 {
		return 1
	}
	return int(math.Floor(math.Log10(float64(maxTrack)))) + 1
}

// FileTags is the minimal tag data the naming layer needs off a FlacFile.
type FileTags struct {
	Track string // already zero-padding free, e.g. "3" not "03"
	Title string
	Disc  string
}

// TrackStem builds the deterministic output filename stem (no extension)
// for a file. If the tags lack a track number or title, the original file
// stem is used unchanged. The title portion is truncated, never the track
// number, so the result never exceeds MaxTrackStemLength.
func TrackStem(originalStem string, tags FileTags, ctx DiscContext, trackNum int) string {
	if tags.Track == "" || tags.Title == "" {
		return originalStem
	}

	prefix := fmt.Sprintf("%0*d ", ctx.TrackPadding, trackNum)
	title := Sanitize(tags.Title)

	maxTitleLen := MaxTrackStemLength - len(prefix)
	if maxTitleLen < 0 {
		maxTitleLen = 0
	}
	if len(title) > maxTitleLen {
		title = truncateRunes(title, maxTitleLen)
	}

	return prefix + title
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}

// SubDir returns the disc sub-directory for a file ("CD1", "CD2", ...),
// or "" if the release is not multi-disc.
func SubDir(ctx DiscContext, discNum int) string {
	if !ctx.IsMultiDisc {
		return ""
	}
	return fmt.Sprintf("CD%d", discNum)
}

// ExceedsLengthLimit reports whether the full output path for a track
// (transcode directory + optional disc sub-directory + filename) would
// exceed MaxPathLength.
func ExceedsLengthLimit(transcodeDir, subDir, fileName string) bool {
	parts := []string{transcodeDir}
	if subDir != "" {
		parts = append(parts, subDir)
	}
	parts = append(parts, fileName)
	return len(strings.Join(parts, "/")) > MaxPathLength
}
