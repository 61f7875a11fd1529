// Command spectrogram runs the Spectrogram Command for a single release.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/losslessforge/transcoder/internal/command"
	"github.com/losslessforge/transcoder/internal/config"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/progress"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/spectrogram"
)

func main() {
	var contentDir, configPath, artist, album, media string
	var year int

	flag.StringVar(&contentDir, "content-dir", "", "path to the release's content directory")
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	flag.StringVar(&artist, "artist", "", "release artist")
	flag.StringVar(&album, "album", "", "release album")
	flag.StringVar(&media, "media", "CD", "release media (CD, Vinyl, WEB, ...)")
	flag.IntVar(&year, "year", 0, "release year")
	flag.Parse()

	if contentDir == "" || artist == "" || album == "" {
		fmt.Fprintln(os.Stderr, "Usage: spectrogram -content-dir <dir> -artist <name> -album <name> [flags]")
		os.Exit(1)
	}

	if err := run(contentDir, configPath, artist, album, media, year); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(contentDir, configPath, artist, album, media string, year int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rel := &release.Release{
		ContentDir: contentDir,
		Meta: release.Metadata{
			Artist: artist,
			Album:  album,
			Media:  media,
			Year:   year,
		},
	}

	result := command.RunSpectrogram(context.Background(), rel, command.SpectrogramOptions{
		OutputRoot: cfg.OutputBase,
		Opts:       spectrogram.Options{Sox: cfg.Binaries.Sox},
		Runner:     &process.Runner{},
		JobSub:     progress.NewBar("Rendering spectrograms"),
		CPUs:       cfg.CPUs,
	})

	if !result.Succeeded {
		return fmt.Errorf("spectrogram generation failed: %w", result.Err)
	}

	fmt.Printf("rendered %d spectrogram(s)\n", result.Count)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
