package torbox

import (
	"context"
	"log"
	"strings"
	"time"

	"streambox/models"
)

const defaultReferer = "https://torbox.app"

// Options tunes the resolution pipeline.
type Options struct {
	// AsQueued is passed through on torrent submission.
	AsQueued bool
	// LinkWorkers bounds concurrent per-file link exchanges.
	LinkWorkers int
	// ListAttempts is the number of listing lookups after submission.
	// 1 (the default) is a single shot: a job not yet present fails
	// with a not-ready outcome. Higher values poll with exponential
	// backoff starting at ListRetryDelay.
	ListAttempts   int
	ListRetryDelay time.Duration
	// Referer is the origin attached to emitted stream descriptors.
	Referer string
}

// Service coordinates TorBox catalog search and torrent resolution.
type Service struct {
	client *Client
	opts   Options
}

// NewService constructs the service, backfilling option defaults.
func NewService(client *Client, opts Options) *Service {
	if opts.LinkWorkers < 1 {
		opts.LinkWorkers = 4
	}
	if opts.ListAttempts < 1 {
		opts.ListAttempts = 1
	}
	if opts.ListRetryDelay <= 0 {
		opts.ListRetryDelay = 3 * time.Second
	}
	if strings.TrimSpace(opts.Referer) == "" {
		opts.Referer = defaultReferer
	}
	return &Service{client: client, opts: opts}
}

// Search queries the TorBox index and returns normalized catalog
// items. Hits that cannot be classified are dropped, not surfaced as
// errors.
func (s *Service) Search(ctx context.Context, query string) ([]models.CatalogItem, error) {
	if !s.client.HasCredential() {
		return nil, failf(FailureCredentialMissing, "torbox API key is not configured")
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return []models.CatalogItem{}, nil
	}

	body, err := s.client.Search(ctx, trimmed)
	if err != nil {
		return nil, remoteFailure(FailureTransport, body, err)
	}
	resp, err := decodePayload[searchResponse](body)
	if err != nil {
		return nil, wrapFailure(FailureDecode, err, "search response was not valid JSON")
	}
	if !resp.Success {
		msg := firstNonEmpty(resp.Message)
		if msg == "" {
			msg = "search rejected"
		}
		return nil, failf(FailureRemoteRejection, "%s", msg)
	}

	items := make([]models.CatalogItem, 0)
	if resp.Data != nil {
		for _, rec := range resp.Data.NZBs {
			if item, ok := toCatalogItem(rec); ok {
				items = append(items, item)
			}
		}
	}
	log.Printf("[torbox] search %q produced %d item(s)", trimmed, len(items))
	return items, nil
}

// TorrentMeta fetches the redisplay metadata for a bare content hash.
// The returned file entries carry no exchangeable ids; they exist for
// display and magnet reconstruction only.
func (s *Service) TorrentMeta(ctx context.Context, hash string) (*models.TorrentMeta, error) {
	if !s.client.HasCredential() {
		return nil, failf(FailureCredentialMissing, "torbox API key is not configured")
	}
	normalized := strings.ToLower(strings.TrimSpace(hash))
	if normalized == "" {
		return nil, failf(FailureRemoteRejection, "content hash is required")
	}

	body, err := s.client.TorrentInfo(ctx, normalized)
	if err != nil {
		return nil, remoteFailure(FailureTransport, body, err)
	}
	resp, err := decodePayload[torrentInfoResponse](body)
	if err != nil {
		return nil, wrapFailure(FailureDecode, err, "torrent metadata response was not valid JSON")
	}
	if resp.Data == nil || (resp.Success != nil && !*resp.Success) {
		msg := firstNonEmpty(resp.Error, resp.Detail, resp.Message)
		if msg == "" {
			msg = "torrent metadata unavailable"
		}
		return nil, failf(FailureRemoteRejection, "%s", msg)
	}

	meta := &models.TorrentMeta{
		Hash:      normalized,
		SizeBytes: resp.Data.Size,
		Trackers:  append([]string(nil), resp.Data.Trackers...),
		Seeders:   resp.Data.Seeders,
		Peers:     resp.Data.Peers,
	}
	if resp.Data.Name != nil {
		meta.Name = strings.TrimSpace(*resp.Data.Name)
	}
	if resp.Data.Hash != nil && strings.TrimSpace(*resp.Data.Hash) != "" {
		meta.Hash = strings.ToLower(strings.TrimSpace(*resp.Data.Hash))
	}
	for _, file := range resp.Data.Files {
		if file.Name == nil {
			continue
		}
		meta.Files = append(meta.Files, models.TorrentMetaFile{
			Name:      *file.Name,
			SizeBytes: file.Size,
		})
	}
	return meta, nil
}
