// Command queue is the umbrella binary for the host-level concerns that
// sit around the core: queueing releases, running them in batch,
// uploading produced formats to the tracker, inspecting configuration,
// and a live queue watch view. Dispatched by first positional argument,
// in the same single-binary spirit as the teacher's TUI entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/losslessforge/transcoder/internal/auxjob"
	"github.com/losslessforge/transcoder/internal/command"
	"github.com/losslessforge/transcoder/internal/config"
	"github.com/losslessforge/transcoder/internal/logging"
	"github.com/losslessforge/transcoder/internal/process"
	"github.com/losslessforge/transcoder/internal/progress"
	"github.com/losslessforge/transcoder/internal/queue"
	"github.com/losslessforge/transcoder/internal/release"
	"github.com/losslessforge/transcoder/internal/torrent"
	"github.com/losslessforge/transcoder/internal/tracker"
	"github.com/losslessforge/transcoder/internal/transcodejob"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "enqueue":
		err = runEnqueue(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "watch":
		err = runWatch(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	case "upload":
		err = runUpload(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "docs":
		runDocs()
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: queue <enqueue|list|watch|batch|upload|config|docs> [flags]")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func openQueue(cfg *config.Config) (*queue.DB, error) {
	return queue.Open(cfg.QueueDatabasePath())
}

// runEnqueue implements `queue enqueue`: add a release's content
// directory to the work queue.
func runEnqueue(args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	var configPath, contentDir, indexerID, targetsFlag string
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.StringVar(&contentDir, "content-dir", "", "path to the release's content directory")
	fs.StringVar(&indexerID, "id", "", "tracker indexer id")
	fs.StringVar(&targetsFlag, "targets", "", "comma-separated target formats (default: config targets)")
	fs.Parse(args)

	if contentDir == "" {
		return fmt.Errorf("enqueue: -content-dir is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	targets := cfg.Targets
	if targetsFlag != "" {
		targets = strings.Split(targetsFlag, ",")
	}
	if _, err := release.ParseTargetFormats(targets); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	db, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	defer db.Close()

	item := &queue.Item{ContentDir: contentDir, IndexerID: indexerID, Targets: targets}
	if err := db.Enqueue(context.Background(), item); err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}

	fmt.Printf("enqueued item %d: %s\n", item.ID, contentDir)
	return nil
}

// runList implements `queue list`.
func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	var configPath, status string
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.StringVar(&status, "status", "", "filter by status (pending, running, completed, failed)")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	defer db.Close()

	items, err := db.List(context.Background(), queue.Status(status))
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("queue is empty")
		return nil
	}
	for _, item := range items {
		line := fmt.Sprintf("%d\t%-9s\t%s", item.ID, item.Status, item.ContentDir)
		if item.Status == queue.StatusFailed && item.ErrorMessage != "" {
			line += "\t" + item.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

// runWatch implements `queue watch`: a live Bubble Tea view over the
// queue, polling every couple of seconds.
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	defer db.Close()

	return progress.Run(db)
}

// runBatch implements `queue batch`: claim pending items one at a time
// and drive each through the Transcode Command until the queue is dry.
func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var configPath, artist, album, media string
	var year int
	var quiet bool
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.StringVar(&artist, "artist", "", "artist metadata applied to every claimed item")
	fs.StringVar(&album, "album", "", "album metadata applied to every claimed item")
	fs.StringVar(&media, "media", "CD", "media metadata applied to every claimed item")
	fs.IntVar(&year, "year", 0, "year metadata applied to every claimed item")
	fs.BoolVar(&quiet, "quiet", false, "suppress per-job progress bars")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := openQueue(cfg)
	if err != nil {
		return fmt.Errorf("failed to open queue: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	processed := 0
	for {
		item, err := db.NextPending(ctx)
		if err != nil {
			break // empty queue (sql.ErrNoRows) or a transient claim error
		}

		if err := runBatchItem(ctx, cfg, item, artist, album, media, year, quiet); err != nil {
			db.MarkFailed(ctx, item.ID, err.Error())
			fmt.Fprintf(os.Stderr, "item %d failed: %v\n", item.ID, err)
			continue
		}
		db.MarkCompleted(ctx, item.ID)
		fmt.Printf("item %d completed: %s\n", item.ID, item.ContentDir)
		processed++
	}

	fmt.Printf("batch finished: %d item(s) processed\n", processed)
	return nil
}

func runBatchItem(ctx context.Context, cfg *config.Config, item *queue.Item, artist, album, media string, year int, quiet bool) error {
	targets, err := release.ParseTargetFormats(item.Targets)
	if err != nil {
		return fmt.Errorf("parse targets: %w", err)
	}

	releaseID := item.IndexerID
	if releaseID == "" {
		releaseID = strconv.FormatInt(item.ID, 10)
	}
	if err := cfg.EnsureLogDir(releaseID); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logger, err := logging.NewForJob(cfg.LogDir(releaseID)+"/transcode.log", !quiet, nil)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	rel := &release.Release{
		ContentDir:      item.ContentDir,
		ExistingFormats: map[release.TargetFormat]bool{},
		Category:        "Music",
		IndexerID:       item.IndexerID,
		Meta: release.Metadata{
			Artist: artist,
			Album:  album,
			Media:  media,
			Year:   year,
		},
	}

	sub := progress.NewDebugLogger(logger)

	result := command.RunTranscode(ctx, rel, command.TranscodeOptions{
		EnabledTargets:    targets,
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
			Convert:      cfg.Binaries.Convert,
		},
		TorrentOpts: torrent.Options{
			Imdl:        cfg.Binaries.Imdl,
			AnnounceURL: cfg.Tracker.AnnounceURL,
			Source:      cfg.Tracker.Source,
		},
		Runner: &process.Runner{},
		JobSub: sub,
		CPUs:   cfg.CPUs,
	})

	if !result.Succeeded() {
		if len(result.Issues) > 0 {
			return fmt.Errorf("verify failed: %s", result.Issues[0].String())
		}
		if result.NoTranscodes != nil {
			return result.NoTranscodes
		}
		if result.JobFailures != nil {
			return result.JobFailures
		}
		if len(result.TorrentErrors) > 0 {
			for format, err := range result.TorrentErrors {
				return fmt.Errorf("torrent creation failed for %s: %w", format, err)
			}
		}
		return fmt.Errorf("transcode failed in state %s", result.State)
	}
	return nil
}

// runUpload implements `queue upload`: submit a produced .torrent and
// its description to the tracker as a new format of an existing group.
func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var configPath, torrentPath, descPath, descText, formatLabel string
	var groupID int
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.StringVar(&torrentPath, "torrent", "", "path to the produced .torrent file")
	fs.IntVar(&groupID, "group-id", 0, "tracker torrent group id")
	fs.StringVar(&formatLabel, "format", "FLAC", "target format being uploaded (FLAC, 320, V0)")
	fs.StringVar(&descPath, "description-file", "", "path to a file containing the release description")
	fs.StringVar(&descText, "description", "", "release description text (overrides -description-file)")
	fs.Parse(args)

	if torrentPath == "" || groupID == 0 {
		return fmt.Errorf("upload: -torrent and -group-id are required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	target, err := release.ParseTargetFormat(formatLabel)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	description := descText
	if description == "" && descPath != "" {
		data, err := os.ReadFile(descPath)
		if err != nil {
			return fmt.Errorf("failed to read description file: %w", err)
		}
		description = string(data)
	}

	torrentBytes, err := os.ReadFile(torrentPath)
	if err != nil {
		return fmt.Errorf("failed to read torrent file: %w", err)
	}

	client := tracker.New(cfg.Tracker.BaseURL, cfg.Tracker.APIKey, nil)
	result, err := client.Upload(context.Background(), groupID, target, torrentBytes, description)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("uploaded: torrent id %d, group id %d\n", result.TorrentID, result.GroupID)
	return nil
}

// runConfig implements `queue config`: print the resolved configuration.
func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var configPath string
	fs.StringVar(&configPath, "config", "", "path to config.yaml (default: XDG/home config)")
	fs.Parse(args)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("output_base:   %s\n", cfg.OutputBase)
	fmt.Printf("torrent_base:  %s\n", cfg.TorrentBase)
	fmt.Printf("data_base:     %s\n", cfg.DataBase())
	fmt.Printf("queue_db:      %s\n", cfg.QueueDatabasePath())
	fmt.Printf("cpus:          %d\n", cfg.CPUs)
	fmt.Printf("repeatable:    %t\n", cfg.Repeatable)
	fmt.Printf("targets:       %s\n", strings.Join(cfg.Targets, ", "))
	fmt.Printf("tracker:       %s (source=%s)\n", cfg.Tracker.BaseURL, cfg.Tracker.Source)
	fmt.Printf("binaries:      flac=%s sox=%s lame=%s imdl=%s convert=%s\n",
		firstOr(cfg.Binaries.Flac, "flac"), firstOr(cfg.Binaries.Sox, "sox"),
		firstOr(cfg.Binaries.Lame, "lame"), firstOr(cfg.Binaries.Imdl, "imdl"),
		firstOr(cfg.Binaries.Convert, "convert"))
	return nil
}

func firstOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// runDocs implements `queue docs`: print a short usage summary for
// every subcommand.
func runDocs() {
	fmt.Println(`queue enqueue -content-dir <dir> [-id <indexer-id>] [-targets FLAC,320,V0]
    Add a release's content directory to the work queue.

queue list [-status pending|running|completed|failed]
    List queued items, newest first.

queue watch
    Open a live view of the queue, refreshing every 2 seconds.

queue batch [-artist <name>] [-album <name>] [-media CD] [-year <n>] [-quiet]
    Claim and run pending items one at a time until the queue is empty.

queue upload -torrent <path> -group-id <n> [-format FLAC] [-description <text>|-description-file <path>]
    Submit a produced torrent and description to the tracker.

queue config
    Print the resolved configuration.`)
}
