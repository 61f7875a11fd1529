// Package tracker is a minimal HTTP JSON client for the Gazelle-family
// tracker: resolving a torrent id into release metadata, and uploading
// a produced .torrent plus its description.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/losslessforge/transcoder/internal/release"
)

// Client talks to a single Gazelle-family tracker instance.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New returns a Client. If httpClient is nil, http.DefaultClient is used.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTP: httpClient}
}

// ajaxResponse is the envelope every Gazelle ajax.php endpoint returns.
type ajaxResponse struct {
	Status   string          `json:"status"`
	Error    string          `json:"error,omitempty"`
	Response json.RawMessage `json:"response"`
}

type torrentGroupResponse struct {
	Group struct {
		CategoryName string `json:"categoryName"`
		MusicInfo    struct {
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"musicInfo"`
		Name string `json:"name"`
		Year int    `json:"year"`
	} `json:"group"`
	Torrent struct {
		ID           int    `json:"id"`
		Media        string `json:"media"`
		Format       string `json:"format"`
		Encoding     string `json:"encoding"`
		RemasterYear int    `json:"remasterYear"`
		RemasterTitle string `json:"remasterTitle"`
		Scene        bool   `json:"scene"`
		LossyMaster  bool   `json:"lossyMaster"`
		LossyWebApproved bool `json:"lossyWebApproved"`
		Trumpable    bool   `json:"trumpable"`
	} `json:"torrent"`
}

// ResolveRelease fetches a torrent by id and maps it onto the core's
// Release shape. The returned Release has ContentDir, AnnounceURL and
// ExistingFormats left unset — callers fill those in from local context
// and a sibling group lookup before handing the Release to the core.
func (c *Client) ResolveRelease(ctx context.Context, torrentID int) (*release.Release, error) {
	var body torrentGroupResponse
	if err := c.getJSON(ctx, "torrent", map[string]string{"id": strconv.Itoa(torrentID)}, &body); err != nil {
		return nil, fmt.Errorf("tracker: resolve torrent %d: %w", torrentID, err)
	}

	artist := ""
	if len(body.Group.MusicInfo.Artists) > 0 {
		artist = body.Group.MusicInfo.Artists[0].Name
	}

	sourceFormat := release.SourceFLAC16
	if body.Torrent.Encoding == "24bit Lossless" {
		sourceFormat = release.SourceFLAC24
	}

	rel := &release.Release{
		SourceFormat: sourceFormat,
		Meta: release.Metadata{
			Artist:        artist,
			Album:         body.Group.Name,
			RemasterTitle: body.Torrent.RemasterTitle,
			Year:          firstNonZero(body.Torrent.RemasterYear, body.Group.Year),
			Media:         body.Torrent.Media,
		},
		IndexerID:   strconv.Itoa(body.Torrent.ID),
		Category:    body.Group.CategoryName,
		Scene:       body.Torrent.Scene,
		LossyMaster: body.Torrent.LossyMaster,
		LossyWeb:    body.Torrent.LossyWebApproved,
		Trumpable:   body.Torrent.Trumpable,
	}
	return rel, nil
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// UploadResult is the tracker's response to a successful upload.
type UploadResult struct {
	TorrentID int `json:"torrentid"`
	GroupID   int `json:"groupid"`
}

// Upload submits a produced .torrent file plus its description to the
// tracker as a new format of an existing group/torrent.
func (c *Client) Upload(ctx context.Context, groupID int, format release.TargetFormat, torrentBytes []byte, description string) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("groupid", strconv.Itoa(groupID)); err != nil {
		return nil, fmt.Errorf("tracker: write groupid field: %w", err)
	}
	if err := mw.WriteField("format", formatName(format)); err != nil {
		return nil, fmt.Errorf("tracker: write format field: %w", err)
	}
	if err := mw.WriteField("release_desc", description); err != nil {
		return nil, fmt.Errorf("tracker: write release_desc field: %w", err)
	}

	part, err := mw.CreateFormFile("file_input", "upload.torrent")
	if err != nil {
		return nil, fmt.Errorf("tracker: create torrent part: %w", err)
	}
	if _, err := part.Write(torrentBytes); err != nil {
		return nil, fmt.Errorf("tracker: write torrent bytes: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("tracker: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ajax.php?action=upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("tracker: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracker: upload request: %w", err)
	}
	defer resp.Body.Close()

	var env ajaxResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("tracker: decode upload response: %w", err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("tracker: upload failed: %s", env.Error)
	}

	var result UploadResult
	if err := json.Unmarshal(env.Response, &result); err != nil {
		return nil, fmt.Errorf("tracker: decode upload result: %w", err)
	}
	return &result, nil
}

func formatName(t release.TargetFormat) string {
	if t == release.TargetFLAC {
		return "FLAC"
	}
	return "MP3"
}

func (c *Client) getJSON(ctx context.Context, action string, params map[string]string, out any) error {
	url := fmt.Sprintf("%s/ajax.php?action=%s", c.BaseURL, action)
	for k, v := range params {
		url += fmt.Sprintf("&%s=%s", k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("tracker: build request: %w", err)
	}
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("tracker: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tracker: read response: %w", err)
	}

	var env ajaxResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("tracker: decode envelope: %w", err)
	}
	if env.Status != "success" {
		return fmt.Errorf("tracker: %s: %s", action, env.Error)
	}
	return json.Unmarshal(env.Response, out)
}
