package verifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/testutil"
)

func newRelease(dir string) *release.Release {
	return &release.Release{
		ContentDir:      dir,
		Category:        "Music",
		ExistingFormats: map[release.TargetFormat]bool{},
		Meta: release.Metadata{
			Artist: "Test Artist",
			Album:  "Test Album",
			Year:   2024,
			Media:  "CD",
		},
	}
}

func writeValidFlac(t *testing.T, dir, name string, track int) {
	t.Helper()
	path := filepath.Join(dir, name+".flac")
	if err := testutil.WriteTestFlac(path, testutil.DefaultCDQualityOptions(track, name)); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
}

func TestVerify_CleanRelease_ReturnsNoIssues(t *testing.T) {
	dir := t.TempDir()
	writeValidFlac(t, dir, "01 Track", 1)

	rel := newRelease(dir)
	issues, err := Verify(context.Background(), rel, Options{EnabledTargets: []release.TargetFormat{release.TargetFLAC}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %+v, want none", issues)
	}
}

func TestVerify_NonMusicCategory(t *testing.T) {
	dir := t.TempDir()
	writeValidFlac(t, dir, "01 Track", 1)
	rel := newRelease(dir)
	rel.Category = "E-Book"

	issues, err := Verify(context.Background(), rel, Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(issues) == 0 || issues[0].Kind != IssueCategory {
		t.Fatalf("issues = %+v, want IssueCategory first", issues)
	}
}

func TestVerify_SceneRelease(t *testing.T) {
	dir := t.TempDir()
	writeValidFlac(t, dir, "01 Track", 1)
	rel := newRelease(dir)
	rel.Scene = true

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueScene {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueScene", issues)
	}
}

func TestVerify_AllTargetsExist_WithoutAllowExisting(t *testing.T) {
	dir := t.TempDir()
	writeValidFlac(t, dir, "01 Track", 1)
	rel := newRelease(dir)
	rel.ExistingFormats[release.TargetFLAC] = true

	issues, _ := Verify(context.Background(), rel, Options{EnabledTargets: []release.TargetFormat{release.TargetFLAC}})
	if len(issues) == 0 || issues[0].Kind != IssueExisting {
		t.Fatalf("issues = %+v, want IssueExisting first (category/scene/lossy all clean)", issues)
	}
}

func TestVerify_AllTargetsExist_WithAllowExisting_NoIssue(t *testing.T) {
	dir := t.TempDir()
	writeValidFlac(t, dir, "01 Track", 1)
	rel := newRelease(dir)
	rel.ExistingFormats[release.TargetFLAC] = true

	issues, _ := Verify(context.Background(), rel, Options{EnabledTargets: []release.TargetFormat{release.TargetFLAC}, AllowExisting: true})
	for _, i := range issues {
		if i.Kind == IssueExisting {
			t.Errorf("issues = %+v, want no IssueExisting when AllowExisting is true", issues)
		}
	}
}

func TestVerify_MissingDirectory(t *testing.T) {
	rel := newRelease(filepath.Join(t.TempDir(), "does-not-exist"))
	issues, err := Verify(context.Background(), rel, Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != IssueMissingDirectory {
		t.Fatalf("issues = %+v, want exactly [IssueMissingDirectory]", issues)
	}
}

func TestVerify_NoFlacs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rel := newRelease(dir)

	issues, err := Verify(context.Background(), rel, Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(issues) != 1 || issues[0].Kind != IssueNoFlacs {
		t.Fatalf("issues = %+v, want exactly [IssueNoFlacs]", issues)
	}
}

func TestVerify_MultiChannelFlac(t *testing.T) {
	dir := t.TempDir()
	opts := testutil.DefaultCDQualityOptions(1, "Track")
	opts.Channels = 6
	if err := testutil.WriteTestFlac(filepath.Join(dir, "01 Track.flac"), opts); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(dir)

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueChannels {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueChannels", issues)
	}
}

func TestVerify_UnsupportedSampleRate(t *testing.T) {
	dir := t.TempDir()
	opts := testutil.DefaultCDQualityOptions(1, "Track")
	opts.SampleRateHz = 44101
	if err := testutil.WriteTestFlac(filepath.Join(dir, "01 Track.flac"), opts); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(dir)

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueSampleRate {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueSampleRate", issues)
	}
}

func TestVerify_MissingRequiredTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01 Track.flac")
	if err := testutil.WriteTestFlac(path, testutil.FlacOptions{
		SampleRateHz: 44100, BitsPerSample: 16, Channels: 2,
		Tags: map[string]string{"ARTIST": "A"}, // missing ALBUM, TITLE, TRACKNUMBER
	}); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(dir)

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueMissingTags {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueMissingTags", issues)
	}
}

func TestVerify_ClassicalRequiresComposer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "01 Track.flac")
	if err := testutil.WriteTestFlac(path, testutil.FlacOptions{
		SampleRateHz: 44100, BitsPerSample: 16, Channels: 2,
		Tags: map[string]string{"ARTIST": "A", "ALBUM": "B", "TITLE": "C", "TRACKNUMBER": "1"},
	}); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(dir)
	rel.Classical = true

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueMissingTags {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueMissingTags for missing COMPOSER on a classical release", issues)
	}
}

func TestVerify_MultiDiscRequiresDiscNumber(t *testing.T) {
	dir := t.TempDir()
	// disc 2 establishes a multi-disc release; its sibling on disc 1 has
	// no DISCNUMBER tag at all, so DiscNumber() falls back to disc 1 for
	// planning purposes but the verifier must still flag the missing tag.
	if err := testutil.WriteTestFlac(filepath.Join(dir, "1-01 Track.flac"), testutil.FlacOptions{
		SampleRateHz: 44100, BitsPerSample: 16, Channels: 2,
		Tags: map[string]string{"ARTIST": "A", "ALBUM": "B", "TITLE": "C", "TRACKNUMBER": "1"},
	}); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	if err := testutil.WriteTestFlac(filepath.Join(dir, "2-01 Track.flac"), testutil.FlacOptions{
		SampleRateHz: 44100, BitsPerSample: 16, Channels: 2,
		Tags: map[string]string{"ARTIST": "A", "ALBUM": "B", "TITLE": "D", "TRACKNUMBER": "1", "DISCNUMBER": "2"},
	}); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(dir)

	issues, _ := Verify(context.Background(), rel, Options{})
	found := false
	for _, i := range issues {
		if i.Kind == IssueMissingTags {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %+v, want IssueMissingTags for the file missing DISCNUMBER in a multi-disc release", issues)
	}
}
