// Command verify runs the Source Verifier for a single release and
// prints its issue list.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/losslessforge/transcoder/internal/config"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/torrent"
	"github.com/losslessforge/transcoder/internal/verifier"
)

func main() {
	var contentDir, configPath, artist, album, media, torrentPath, category string
	var year int
	var allowExisting, scene, lossyMaster, lossyWeb bool

	flag.StringVar(&contentDir, "content-dir", "", "path to the release's content directory")
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	flag.StringVar(&artist, "artist", "", "release artist")
	flag.StringVar(&album, "album", "", "release album")
	flag.StringVar(&media, "media", "CD", "release media (CD, Vinyl, WEB, ...)")
	flag.StringVar(&category, "category", "Music", "tracker category")
	flag.IntVar(&year, "year", 0, "release year")
	flag.StringVar(&torrentPath, "torrent", "", "path to an existing .torrent to verify piece hashes against")
	flag.BoolVar(&allowExisting, "allow-existing", false, "allow targets that already exist on the tracker")
	flag.BoolVar(&scene, "scene", false, "mark the release as a scene release")
	flag.BoolVar(&lossyMaster, "lossy-master", false, "mark the release as having a lossy master")
	flag.BoolVar(&lossyWeb, "lossy-web", false, "mark the release as having a lossy web approval")
	flag.Parse()

	if contentDir == "" || artist == "" || album == "" {
		fmt.Fprintln(os.Stderr, "Usage: verify -content-dir <dir> -artist <name> -album <name> [flags]")
		os.Exit(1)
	}

	ok, err := run(contentDir, configPath, torrentPath, artist, album, media, category, year, allowExisting, scene, lossyMaster, lossyWeb)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

func run(contentDir, configPath, torrentPath, artist, album, media, category string, year int, allowExisting, scene, lossyMaster, lossyWeb bool) (bool, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}

	targets, err := release.ParseTargetFormats(cfg.Targets)
	if err != nil {
		return false, fmt.Errorf("failed to parse configured targets: %w", err)
	}

	rel := &release.Release{
		ContentDir:      contentDir,
		ExistingFormats: map[release.TargetFormat]bool{},
		Category:        category,
		Scene:           scene,
		LossyMaster:     lossyMaster,
		LossyWeb:        lossyWeb,
		Meta: release.Metadata{
			Artist: artist,
			Album:  album,
			Media:  media,
			Year:   year,
		},
	}

	opts := verifier.Options{
		EnabledTargets: targets,
		AllowExisting:  allowExisting,
	}

	if torrentPath != "" {
		torrentBytes, err := os.ReadFile(torrentPath)
		if err != nil {
			return false, fmt.Errorf("failed to read torrent file: %w", err)
		}
		opts.TorrentPath = torrentPath
		opts.TorrentBytes = torrentBytes
		opts.Torrent = torrent.New(torrent.Options{Imdl: cfg.Binaries.Imdl}, &process.Runner{})
	}

	issues, err := verifier.Verify(context.Background(), rel, opts)
	if err != nil {
		return false, fmt.Errorf("verify failed: %w", err)
	}

	if len(issues) == 0 {
		fmt.Println("verified: no issues found")
		return true, nil
	}

	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	return false, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}
