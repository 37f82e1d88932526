package torbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBase    = "https://api.torbox.app/v1/api"
	defaultSearchBase = "https://search-api.torbox.app"

	searchPath      = "/torrents/search/"
	torrentInfoPath = "/torrents/torrentinfo"
	createPath      = "/torrents/asynccreatetorrent"
	myListPath      = "/torrents/mylist"
	requestDLPath   = "/torrents/requestdl"
)

// Client issues authenticated requests against the TorBox API. Every
// method performs exactly one round trip: no retries, no implicit
// polling. Timeouts apply per call via the underlying http.Client.
type Client struct {
	apiKey     string
	apiBase    string
	searchBase string
	httpClient *http.Client
}

// NewClient creates a TorBox API client. Empty base URLs fall back to
// the production origins.
func NewClient(apiKey, apiBase, searchBase string) *Client {
	if strings.TrimSpace(apiBase) == "" {
		apiBase = defaultAPIBase
	}
	if strings.TrimSpace(searchBase) == "" {
		searchBase = defaultSearchBase
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		apiBase:    strings.TrimRight(apiBase, "/"),
		searchBase: strings.TrimRight(searchBase, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HasCredential reports whether an API key is configured.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// StatusError marks a completed round trip that returned a non-2xx
// status. The response body is still handed back to the caller, which
// decides whether it carries a usable vendor payload.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Search queries the TorBox index for a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]byte, error) {
	endpoint := c.searchBase + searchPath + url.PathEscape(query)
	params := url.Values{}
	params.Set("metadata", "true")
	params.Set("check_cache", "true")
	params.Set("check_owned", "true")
	return c.get(ctx, endpoint, params)
}

// TorrentInfo fetches redisplay metadata for a content hash.
func (c *Client) TorrentInfo(ctx context.Context, hash string) ([]byte, error) {
	params := url.Values{}
	params.Set("hash", hash)
	return c.get(ctx, c.apiBase+torrentInfoPath, params)
}

// CreateTorrent submits a magnet for asynchronous server-side
// processing.
func (c *Client) CreateTorrent(ctx context.Context, magnet string, asQueued bool) ([]byte, error) {
	body := map[string]any{
		"magnet":    magnet,
		"as_queued": asQueued,
	}
	return c.postJSON(ctx, c.apiBase+createPath, body)
}

// MyList fetches the job listing filtered by job id.
func (c *Client) MyList(ctx context.Context, jobID int) ([]byte, error) {
	params := url.Values{}
	params.Set("id", strconv.Itoa(jobID))
	return c.get(ctx, c.apiBase+myListPath, params)
}

// RequestDownload exchanges a (job, file) pair for a time-limited
// stream URL.
func (c *Client) RequestDownload(ctx context.Context, jobID, fileID int) ([]byte, error) {
	params := url.Values{}
	params.Set("torrent_id", strconv.Itoa(jobID))
	params.Set("file_id", strconv.Itoa(fileID))
	params.Set("redirect", "true")
	return c.get(ctx, c.apiBase+requestDLPath, params)
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("torbox request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &StatusError{Code: resp.StatusCode}
	}
	return body, nil
}
