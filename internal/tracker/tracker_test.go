package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/losslessforge/transcoder/internal/release"
)

func TestResolveRelease_ParsesGroupAndTorrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Errorf("Authorization header = %q, want test-key", got)
		}
		if !strings.Contains(r.URL.RawQuery, "action=torrent") {
			t.Errorf("query = %q, want action=torrent", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"status": "success",
			"response": {
				"group": {"categoryName": "Music", "name": "Test Album", "year": 2020, "musicInfo": {"artists": [{"name": "Test Artist"}]}},
				"torrent": {"id": 42, "media": "CD", "format": "FLAC", "encoding": "24bit Lossless", "remasterYear": 2021, "scene": false, "lossyMaster": false}
			}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key", nil)
	rel, err := client.ResolveRelease(context.Background(), 42)
	if err != nil {
		t.Fatalf("ResolveRelease: %v", err)
	}

	if rel.Meta.Artist != "Test Artist" || rel.Meta.Album != "Test Album" {
		t.Errorf("Meta = %+v, want Test Artist/Test Album", rel.Meta)
	}
	if rel.Meta.Year != 2021 {
		t.Errorf("Year = %d, want remasterYear 2021 to win over group year", rel.Meta.Year)
	}
	if rel.SourceFormat != release.SourceFLAC24 {
		t.Errorf("SourceFormat = %v, want SourceFLAC24 for 24bit Lossless encoding", rel.SourceFormat)
	}
	if rel.IndexerID != "42" {
		t.Errorf("IndexerID = %q, want 42", rel.IndexerID)
	}
}

func TestResolveRelease_TrackerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "failure", "error": "bad id parameter"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key", nil)
	_, err := client.ResolveRelease(context.Background(), 0)
	if err == nil {
		t.Fatal("ResolveRelease() error = nil, want error for failure status")
	}
}

func TestUpload_SendsMultipartRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("groupid"); got != "99" {
			t.Errorf("groupid = %q, want 99", got)
		}
		if got := r.FormValue("format"); got != "FLAC" {
			t.Errorf("format = %q, want FLAC", got)
		}
		file, _, err := r.FormFile("file_input")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()

		w.Write([]byte(`{"status": "success", "response": {"torrentid": 123, "groupid": 99}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "test-key", nil)
	result, err := client.Upload(context.Background(), 99, release.TargetFLAC, []byte("fake torrent bytes"), "description")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.TorrentID != 123 || result.GroupID != 99 {
		t.Errorf("result = %+v, want {123 99}", result)
	}
}
