// Package torrent wraps the imdl CLI to create, inspect, and verify
// .torrent files for a release's packaged output directories.
package torrent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/losslessforge/transcoder/internal/process"
)

// sourceAliases treats RED and PTH as the same tracker source tag, a
// historical alias from the Gazelle codebase split.
var sourceAliases = map[string]string{
	"RED": "PTH",
	"PTH": "RED",
}

// Options configures a Client.
type Options struct {
	Imdl        string // path to the imdl binary; "" means "imdl"
	AnnounceURL string
	Source      string // tracker source tag, e.g. "RED"
}

func (o Options) imdl() string {
	if o.Imdl == "" {
		return "imdl"
	}
	return o.Imdl
}

// Client drives imdl.
type Client struct {
	Opts   Options
	Runner process.Interface
}

// New returns a Client.
func New(opts Options, runner process.Interface) *Client {
	return &Client{Opts: opts, Runner: runner}
}

// Create builds a .torrent for contentDir at outPath.
func (c *Client) Create(ctx context.Context, contentDir, outPath string) error {
	args := []string{
		"torrent", "create", contentDir,
		"-P",
		"-a", c.Opts.AnnounceURL,
		"-s", c.Opts.Source,
		"-o", outPath,
	}
	if _, err := c.Runner.Run(ctx, c.Opts.imdl(), args...); err != nil {
		return fmt.Errorf("torrent: create %s: %w", filepath.Base(outPath), err)
	}
	return nil
}

// Info is the subset of `imdl torrent show --json` this pipeline reads.
type Info struct {
	Source       string `json:"source"`
	CreationDate int64  `json:"creation_date"`
	PieceLength  int    `json:"piece_length"`
}

// Show parses a .torrent file's metadata via imdl.
func (c *Client) Show(ctx context.Context, torrentPath string) (*Info, error) {
	out, err := c.Runner.Run(ctx, c.Opts.imdl(), "torrent", "show", "--json", torrentPath)
	if err != nil {
		return nil, fmt.Errorf("torrent: show %s: %w", torrentPath, err)
	}
	var info Info
	if err := json.Unmarshal(out.Stdout, &info); err != nil {
		return nil, fmt.Errorf("torrent: parse show output for %s: %w", torrentPath, err)
	}
	return &info, nil
}

// Verify checks a .torrent's piece hashes against contentDir's files,
// feeding the torrent file's bytes on stdin as the spec's invocation
// requires.
func (c *Client) Verify(ctx context.Context, torrentBytes []byte, contentDir string) error {
	_, err := c.Runner.RunWithStdin(ctx, torrentBytes, c.Opts.imdl(), "torrent", "verify", "--content", contentDir, "-")
	if err != nil {
		return fmt.Errorf("torrent: verify against %s: %w", contentDir, err)
	}
	return nil
}

// SourceMatches reports whether a torrent's source tag matches want,
// honouring the RED/PTH historical alias.
func SourceMatches(got, want string) bool {
	if got == want {
		return true
	}
	return sourceAliases[got] == want
}
