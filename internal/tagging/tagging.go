// Package tagging writes the handful of fields the pipeline carries
// forward from a source FLAC into a transcoded output, using the
// destination container's native tag format: Vorbis comments for FLAC,
// ID3v2 for MP3.
package tagging

import (
	flac "github.com/go-flac/go-flac/v2"
	"github.com/go-flac/flacvorbis/v2"

	id3v2 "github.com/bogem/id3v2/v2"
)

// Fields is the subset of metadata copied from source to output. Empty
// fields are not written.
type Fields struct {
	Artist   string
	Album    string
	Title    string
	Track    string
	Disc     string
	Composer string
}

// WriteFLAC rewrites (or adds) the Vorbis comment block of the FLAC file
// at path with fields, preserving every other metadata block.
func WriteFLAC(path string, fields Fields) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}

	comment := flacvorbis.New()
	for key, value := range fields.asPairs() {
		if value == "" {
			continue
		}
		if err := comment.Add(key, value); err != nil {
			return err
		}
	}
	block := comment.Marshal()

	kept := f.Meta[:0]
	for _, m := range f.Meta {
		if m.Type != flac.VorbisComment {
			kept = append(kept, m)
		}
	}
	f.Meta = append(kept, &block)

	return f.Save(path)
}

// WriteMP3 rewrites (or adds) the ID3v2 tag of the MP3 file at path with fields.
func WriteMP3(path string, fields Fields) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	if fields.Artist != "" {
		tag.SetArtist(fields.Artist)
	}
	if fields.Album != "" {
		tag.SetAlbum(fields.Album)
	}
	if fields.Title != "" {
		tag.SetTitle(fields.Title)
	}
	if fields.Track != "" {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), tag.DefaultEncoding(), fields.Track)
	}
	if fields.Disc != "" {
		tag.AddTextFrame(tag.CommonID("Part of a set"), tag.DefaultEncoding(), fields.Disc)
	}
	if fields.Composer != "" {
		tag.AddTextFrame(tag.CommonID("Composer"), tag.DefaultEncoding(), fields.Composer)
	}

	return tag.Save()
}

func (f Fields) asPairs() map[string]string {
	return map[string]string{
		"ARTIST":   f.Artist,
		"ALBUM":    f.Album,
		"TITLE":    f.Title,
		"TRACKNUMBER": f.Track,
		"DISCNUMBER":  f.Disc,
		"COMPOSER":    f.Composer,
	}
}
