// Command transcode runs the Transcode Command for a single release:
// verify, plan, execute, package.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/losslessforge/transcoder/internal/auxjob"
	"github.com/losslessforge/transcoder/internal/command"
	"github.com/losslessforge/transcoder/internal/config"
	"github.com/losslessforge/transcoder/internal/jobrunner"
	"github.com/losslessforge/transcoder/internal/logging"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/progress"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/torrent"
	"github.com/losslessforge/transcoder/internal/transcodejob"
)

func main() {
	var contentDir, configPath, artist, album, media, releaseID string
	var year int
	var allowExisting, hardLink, repeatable, quiet bool

	flag.StringVar(&contentDir, "content-dir", "", "path to the release's content directory")
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	flag.StringVar(&artist, "artist", "", "release artist")
	flag.StringVar(&album, "album", "", "release album")
	flag.StringVar(&media, "media", "CD", "release media (CD, Vinyl, WEB, ...)")
	flag.IntVar(&year, "year", 0, "release year")
	flag.StringVar(&releaseID, "id", "", "tracker indexer id, used to name the log file")
	flag.BoolVar(&allowExisting, "allow-existing", false, "allow transcoding targets that already exist on the tracker")
	flag.BoolVar(&hardLink, "hard-link", false, "hardlink FLAC includes instead of copying (same filesystem only)")
	flag.BoolVar(&repeatable, "repeatable", false, "use a fixed dither seed for reproducible resamples")
	flag.BoolVar(&quiet, "quiet", false, "suppress the progress bar")
	flag.Parse()

	if contentDir == "" || artist == "" || album == "" {
		fmt.Fprintln(os.Stderr, "Usage: transcode -content-dir <dir> -artist <name> -album <name> [flags]")
		os.Exit(1)
	}

	if err := run(contentDir, configPath, releaseID, artist, album, media, year, allowExisting, hardLink, repeatable, quiet); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(contentDir, configPath, releaseID, artist, album, media string, year int, allowExisting, hardLink, repeatable, quiet bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if releaseID == "" {
		releaseID = "adhoc"
	}
	if err := cfg.EnsureLogDir(releaseID); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logger, err := logging.NewForJob(cfg.LogDir(releaseID)+"/transcode.log", !quiet, nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	targets, err := release.ParseTargetFormats(cfg.Targets)
	if err != nil {
		return fmt.Errorf("failed to parse configured targets: %w", err)
	}

	rel := &release.Release{
		ContentDir:      contentDir,
		ExistingFormats: map[release.TargetFormat]bool{},
		Category:        "Music",
		Meta: release.Metadata{
			Artist: artist,
			Album:  album,
			Media:  media,
			Year:   year,
		},
	}

	logger.Info("starting transcode: artist=%q album=%q content_dir=%s", artist, album, contentDir)

	runner := &process.Runner{}
	var sub jobrunner.Subscriber = progress.NewDebugLogger(logger)
	if !quiet {
		sub = progress.NewBar("Transcoding")
	}

	opts := command.TranscodeOptions{
		EnabledTargets:    targets,
		AllowExisting:     allowExisting,
		HardLinkOK:        hardLink,
		Repeatable:        repeatable,
		OutputRoot:        cfg.OutputBase,
		TorrentOutputRoot: cfg.TorrentBase,
		Bins: transcodejob.BinaryPaths{
			Flac: cfg.Binaries.Flac,
			Sox:  cfg.Binaries.Sox,
			Lame: cfg.Binaries.Lame,
		},
		AuxOpts: auxjob.Options{
			MaxPixelSize: cfg.Images.MaxPixelSize,
			Quality:      cfg.Images.Quality,
			HardLinkOK:   hardLink,
			Convert:      cfg.Binaries.Convert,
		},
		TorrentOpts: torrent.Options{
			Imdl:        cfg.Binaries.Imdl,
			AnnounceURL: cfg.Tracker.AnnounceURL,
			Source:      cfg.Tracker.Source,
		},
		Runner: runner,
		JobSub: sub,
		CPUs:   cfg.CPUs,
	}

	result := command.RunTranscode(context.Background(), rel, opts)

	switch result.State {
	case command.StateDone:
		logger.Info("transcode finished: %d format(s) produced", len(result.CompletedPaths))
		for _, fp := range result.CompletedPaths {
			fmt.Printf("%s: %s\n", fp.Format, fp.Path)
		}
		return nil
	default:
		logger.Error("transcode failed in state %s", result.State)
		for _, issue := range result.Issues {
			fmt.Fprintln(os.Stderr, issue.String())
		}
		if result.NoTranscodes != nil {
			fmt.Fprintln(os.Stderr, result.NoTranscodes.Error())
		}
		if result.JobFailures != nil {
			fmt.Fprintln(os.Stderr, result.JobFailures.Error())
		}
		if len(result.TorrentErrors) > 0 {
			for format, err := range result.TorrentErrors {
				logger.Error("torrent creation failed for %s: %v", format, err)
				fmt.Fprintf(os.Stderr, "torrent creation failed for %s: %v\n", format, err)
			}
		}
		return fmt.Errorf("transcode failed")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
