// Package testutil provides fixtures shared by the pipeline's package
// tests: synthetic FLAC files and a fake process.Runner standing in for
// the external codec binaries.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	flac "github.com/pchchv/flac"
	"github.com/pchchv/flac/meta"
)

// FlacOptions configures a synthetic FLAC fixture. Only metadata is
// written; no audio frames are encoded, since the pipeline's FLAC
// Inspector only ever reads the STREAMINFO and Vorbis comment blocks.
type FlacOptions struct {
	SampleRateHz  uint32
	BitsPerSample uint8
	Channels      uint8
	TotalSamples  uint64 // 0 means "unknown" in the STREAMINFO block

	Tags map[string]string // e.g. {"ARTIST": "A", "TITLE": "T", "TRACKNUMBER": "1"}
}

// WriteTestFlac creates a FLAC file at path containing only the metadata
// blocks described by opts.
func WriteTestFlac(path string, opts FlacOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("testutil: mkdir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("testutil: create %s: %w", path, err)
	}
	defer f.Close()

	info := &meta.StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		SampleRate:    opts.SampleRateHz,
		NChannels:     opts.Channels,
		BitsPerSample: opts.BitsPerSample,
		NSamples:      opts.TotalSamples,
	}

	var pairs [][2]string
	for k, v := range opts.Tags {
		pairs = append(pairs, [2]string{k, v})
	}

	block := &meta.Block{
		Header: meta.Header{Type: meta.TypeVorbisComment, IsLast: true},
		Body: &meta.VorbisComment{
			Vendor: "testutil",
			Tags:   pairs,
		},
	}

	_, err = flac.NewEncoder(f, info, block)
	if err != nil {
		return fmt.Errorf("testutil: encode %s: %w", path, err)
	}
	return nil
}

// DefaultCDQualityOptions returns a 44.1kHz/16-bit/2-channel fixture with
// the tags required to pass the Source Verifier's tag checks.
func DefaultCDQualityOptions(track int, title string) FlacOptions {
	return FlacOptions{
		SampleRateHz:  44100,
		BitsPerSample: 16,
		Channels:      2,
		TotalSamples:  44100 * 180, // 3 minutes
		Tags: map[string]string{
			"ARTIST":      "Test Artist",
			"ALBUM":       "Test Album",
			"TITLE":       title,
			"TRACKNUMBER": fmt.Sprintf("%d", track),
		},
	}
}
