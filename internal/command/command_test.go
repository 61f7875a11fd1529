package command

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/losslessforge/transcoder/internal/auxjob"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/spectrogram"
	"github.com/losslessforge/transcoder/internal/testutil"
	"github.com/losslessforge/transcoder/internal/torrent"
	"github.com/losslessforge/transcoder/internal/verifier"
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

func TestRunTranscode_HappyPath(t *testing.T) {
	srcDir := t.TempDir()
	if err := testutil.WriteTestFlac(filepath.Join(srcDir, "01 Track.flac"), testutil.DefaultCDQualityOptions(1, "Track")); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(srcDir)

	outRoot := t.TempDir()
	torrentRoot := t.TempDir()

	fake := testutil.NewFakeRunner()
	fake.Results["imdl"] = testutil.FakeResult{}

	result := RunTranscode(context.Background(), rel, TranscodeOptions{
		EnabledTargets:    []release.TargetFormat{release.TargetFLAC},
		HardLinkOK:        false,
		OutputRoot:        outRoot,
		TorrentOutputRoot: torrentRoot,
		AuxOpts:           auxjob.Options{},
		TorrentOpts:       torrent.Options{AnnounceURL: "https://tracker.example/ann", Source: "RED"},
		Runner:            fake,
		CPUs:              2,
	})

	if result.State != StateDone {
		t.Fatalf("State = %v, want StateDone; issues=%+v jobFailures=%+v", result.State, result.Issues, result.JobFailures)
	}
	if len(result.CompletedPaths) != 1 {
		t.Fatalf("CompletedPaths = %+v, want 1 entry", result.CompletedPaths)
	}
}

func TestRunTranscode_FailsAtVerifyOnSceneRelease(t *testing.T) {
	srcDir := t.TempDir()
	if err := testutil.WriteTestFlac(filepath.Join(srcDir, "01 Track.flac"), testutil.DefaultCDQualityOptions(1, "Track")); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(srcDir)
	rel.Scene = true

	result := RunTranscode(context.Background(), rel, TranscodeOptions{
		EnabledTargets: []release.TargetFormat{release.TargetFLAC},
		Runner:         testutil.NewFakeRunner(),
	})
	if result.State != StateFailed {
		t.Fatalf("State = %v, want StateFailed", result.State)
	}
	if len(result.Issues) == 0 {
		t.Errorf("Issues = %+v, want at least one", result.Issues)
	}
}

func TestRunTranscode_FailsOnTorrentCreationError(t *testing.T) {
	srcDir := t.TempDir()
	if err := testutil.WriteTestFlac(filepath.Join(srcDir, "01 Track.flac"), testutil.DefaultCDQualityOptions(1, "Track")); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(srcDir)

	fake := testutil.NewFakeRunner()
	fake.Results["imdl"] = testutil.FakeResult{Err: fmt.Errorf("imdl: boom")}

	result := RunTranscode(context.Background(), rel, TranscodeOptions{
		EnabledTargets:    []release.TargetFormat{release.TargetFLAC},
		OutputRoot:        t.TempDir(),
		TorrentOutputRoot: t.TempDir(),
		TorrentOpts:       torrent.Options{AnnounceURL: "https://tracker.example/ann", Source: "RED"},
		Runner:            fake,
	})

	if result.State != StateFailed {
		t.Fatalf("State = %v, want StateFailed", result.State)
	}
	if len(result.TorrentErrors) != 1 {
		t.Fatalf("TorrentErrors = %+v, want 1 entry", result.TorrentErrors)
	}
	if len(result.CompletedPaths) != 1 {
		t.Fatalf("CompletedPaths = %+v, want 1 entry even though packaging failed", result.CompletedPaths)
	}
}

func TestRunTranscode_FailsAtVerifyOnMultiChannelSource(t *testing.T) {
	srcDir := t.TempDir()
	opts := testutil.DefaultCDQualityOptions(1, "Track")
	opts.Channels = 6
	if err := testutil.WriteTestFlac(filepath.Join(srcDir, "01 Track.flac"), opts); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(srcDir)

	result := RunTranscode(context.Background(), rel, TranscodeOptions{
		EnabledTargets: []release.TargetFormat{release.TargetFLAC},
		Runner:         testutil.NewFakeRunner(),
	})
	if result.State != StateFailed || len(result.Issues) == 0 || result.Issues[0].Kind != verifier.IssueChannels {
		t.Fatalf("State = %v, Issues = %+v, want StateFailed with a channels issue", result.State, result.Issues)
	}
}

func TestRunSpectrogram_HappyPath(t *testing.T) {
	srcDir := t.TempDir()
	if err := testutil.WriteTestFlac(filepath.Join(srcDir, "01 Track.flac"), testutil.DefaultCDQualityOptions(1, "Track")); err != nil {
		t.Fatalf("WriteTestFlac: %v", err)
	}
	rel := newRelease(srcDir)

	fake := testutil.NewFakeRunner()
	fake.Results["sox"] = testutil.FakeResult{}

	result := RunSpectrogram(context.Background(), rel, SpectrogramOptions{
		OutputRoot: t.TempDir(),
		Opts:       spectrogram.Options{},
		Runner:     fake,
	})
	if !result.Succeeded || result.Count != 1 {
		t.Fatalf("result = %+v, want Succeeded with Count 1", result)
	}
}

func TestRunSpectrogram_NoFlacs(t *testing.T) {
	srcDir := t.TempDir()
	rel := newRelease(srcDir)

	result := RunSpectrogram(context.Background(), rel, SpectrogramOptions{
		OutputRoot: t.TempDir(),
		Runner:     testutil.NewFakeRunner(),
	})
	if result.Succeeded {
		t.Fatalf("result = %+v, want failure for a release with no FLACs", result)
	}
}
