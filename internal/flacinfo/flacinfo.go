// Package flacinfo reads FLAC stream info and tags needed by the rest of
// the pipeline, backed by the pure-Go github.com/pchchv/flac decoder
// rather than shelling out to metaflac.
package flacinfo

import (
	"fmt"

	"github.com/pchchv/flac"
	"github.com/pchchv/flac/meta"
)

// StreamInfo describes the audio properties of a FLAC file.
type StreamInfo struct {
	SampleRateHz  uint32
	BitsPerSample uint8
	Channels      uint8
	// TotalSamples is nil when the stream's STREAMINFO block leaves the
	// sample count unknown (a value of zero in the block).
	TotalSamples *uint64
}

// UnsupportedSampleRateError is returned by ResampleTargetRate when a
// sample rate has no defined fallback target.
type UnsupportedSampleRateError struct {
	SampleRateHz uint32
}

func (e *UnsupportedSampleRateError) Error() string {
	return fmt.Sprintf("unsupported sample rate: %d Hz", e.SampleRateHz)
}

// IsResampleRequired reports whether a file at this depth/rate must be
// resampled before it can be included losslessly in a FLAC target, per
// spec: sample rate above 48kHz or bit depth above 16.
func (s StreamInfo) IsResampleRequired() bool {
	return s.SampleRateHz > 48000 || s.BitsPerSample > 16
}

// ResampleTargetRate picks the fallback sample rate for a resample:
// 44100 Hz if the source rate is a multiple of it, else 48000 Hz if the
// source rate is a multiple of that, else the rate is unsupported.
func (s StreamInfo) ResampleTargetRate() (uint32, error) {
	switch {
	case s.SampleRateHz%44100 == 0:
		return 44100, nil
	case s.SampleRateHz%48000 == 0:
		return 48000, nil
	default:
		return 0, &UnsupportedSampleRateError{SampleRateHz: s.SampleRateHz}
	}
}

// DurationSeconds returns the track length rounded to the nearest second,
// or false if the sample count is unknown.
func (s StreamInfo) DurationSeconds() (uint64, bool) {
	if s.TotalSamples == nil || s.SampleRateHz == 0 {
		return 0, false
	}
	// round-to-nearest rather than truncate
	return (*s.TotalSamples + uint64(s.SampleRateHz)/2) / uint64(s.SampleRateHz), true
}

// AverageBitRate returns the average bits-per-second implied by the
// stream's sample count and depth, or false if the sample count (and
// hence the duration) is unknown.
func (s StreamInfo) AverageBitRate() (uint64, bool) {
	duration, ok := s.DurationSeconds()
	if !ok || duration == 0 {
		return 0, false
	}
	total := *s.TotalSamples * uint64(s.BitsPerSample) * uint64(s.Channels)
	return total / duration, true
}

// Tags is a case-preserved key to value map of a FLAC's Vorbis comments.
// Lookups via Get are case-insensitive, matching the Vorbis comment spec.
type Tags map[string]string

// Get looks up a tag case-insensitively.
func (t Tags) Get(key string) (string, bool) {
	for k, v := range t {
		if equalFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ReadStreamInfo reads the STREAMINFO metadata block of a FLAC file at path.
func ReadStreamInfo(path string) (StreamInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("flacinfo: parse %s: %w", path, err)
	}
	defer stream.Close()

	info := stream.Info
	si := StreamInfo{
		SampleRateHz:  info.SampleRate,
		BitsPerSample: info.BitsPerSample,
		Channels:      info.NChannels,
	}
	if info.NSamples != 0 {
		n := info.NSamples
		si.TotalSamples = &n
	}
	return si, nil
}

// ReadTags reads the Vorbis comment metadata block of a FLAC file at path.
// A FLAC with no Vorbis comment block returns an empty, non-nil map.
func ReadTags(path string) (Tags, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("flacinfo: parse %s: %w", path, err)
	}
	defer stream.Close()

	tags := Tags{}
	for _, block := range stream.Blocks {
		vc, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, pair := range vc.Tags {
			tags[pair[0]] = pair[1]
		}
	}
	return tags, nil
}
