package torbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"streambox/models"
)

// resolveState names the pipeline stages for logging. Failure is
// reachable from every stage.
type resolveState string

const (
	stateSubmitted       resolveState = "submitted"
	stateAwaitingListing resolveState = "awaiting_listing"
	stateListed          resolveState = "listed"
	stateLinkResolved    resolveState = "link_resolved"
)

// vendor status sentinel for a failed remote job
const jobStatusError = "error"

// Resolve turns a locator (a magnet URI or a hash:<infohash> value)
// into directly playable stream descriptors by driving the remote job
// pipeline: submit, one listing pass, then a link exchange per file.
//
// Every file with a valid id and name yields its own descriptor; the
// caller picks between them. Individual exchange failures are
// contained to their file. The call fails only when submission or
// listing fails, or when zero files could be exchanged.
func (s *Service) Resolve(ctx context.Context, locator string) ([]models.StreamDescriptor, error) {
	if !s.client.HasCredential() {
		return nil, failf(FailureCredentialMissing, "torbox API key is not configured")
	}

	magnet, err := s.magnetForLocator(ctx, locator)
	if err != nil {
		return nil, err
	}

	tag := uuid.NewString()[:8]
	log.Printf("[torbox-resolve] %s resolving %q", tag, DisplayNameFromMagnet(magnet, InfoHashFromMagnet(magnet)))

	jobID, err := s.submit(ctx, tag, magnet)
	if err != nil {
		return nil, err
	}
	log.Printf("[torbox-resolve] %s state=%s job=%d", tag, stateAwaitingListing, jobID)

	entry, err := s.awaitListing(ctx, jobID)
	if err != nil {
		return nil, err
	}
	log.Printf("[torbox-resolve] %s state=%s job=%d files=%d", tag, stateListed, jobID, len(entry.Files))

	streams := s.resolveLinks(ctx, tag, jobID, entry)
	if len(streams) == 0 {
		return nil, failf(FailureNoPlayableFiles, "no files could be resolved for job %d", jobID)
	}
	log.Printf("[torbox-resolve] %s state=%s job=%d streams=%d", tag, stateLinkResolved, jobID, len(streams))
	return streams, nil
}

// magnetForLocator accepts a magnet URI as-is. A hash locator (or a
// bare infohash) triggers a metadata fetch so the magnet can be
// reconstructed from name and trackers.
func (s *Service) magnetForLocator(ctx context.Context, locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	switch {
	case IsMagnet(trimmed):
		return trimmed, nil
	case IsHashLocator(trimmed), looksLikeInfoHash(trimmed):
		hash := trimmed
		if IsHashLocator(trimmed) {
			hash = HashFromLocator(trimmed)
		}
		meta, err := s.TorrentMeta(ctx, hash)
		if err != nil {
			return "", err
		}
		return BuildMagnet(hash, meta.Name, meta.Trackers), nil
	default:
		return "", fmt.Errorf("unsupported locator %q: expected magnet URI or hash locator", trimmed)
	}
}

func looksLikeInfoHash(value string) bool {
	if len(value) != 40 && len(value) != 64 {
		return false
	}
	for _, r := range strings.ToLower(value) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// submit creates the remote job. Success requires both a truthy
// success flag and a job id; anything else surfaces the vendor
// message.
func (s *Service) submit(ctx context.Context, tag, magnet string) (int, error) {
	body, err := s.client.CreateTorrent(ctx, magnet, s.opts.AsQueued)
	if err != nil {
		return 0, remoteFailure(FailureTransport, body, err)
	}
	resp, decErr := decodePayload[createResponse](body)
	if decErr != nil {
		return 0, wrapFailure(FailureDecode, decErr, "torrent creation response was not valid JSON")
	}

	id := resp.jobID()
	if !truthy(resp.Success) || id == nil {
		msg := firstNonEmpty(resp.Message, resp.Error, resp.Detail)
		if resp.Data != nil && msg == "" {
			msg = firstNonEmpty(resp.Data.Error, resp.Data.Detail)
		}
		if msg == "" {
			msg = "torrent submission rejected"
		}
		return 0, failf(FailureRemoteRejection, "%s", msg)
	}
	log.Printf("[torbox-resolve] %s state=%s job=%d", tag, stateSubmitted, *id)
	return *id, nil
}

// awaitListing reads the job back from the listing. By default this is
// a single attempt: the remote job is asynchronous and a miss is a
// not-ready outcome for the caller to retry. ListAttempts > 1 opts in
// to bounded polling with exponential backoff; only not-ready misses
// are retried.
func (s *Service) awaitListing(ctx context.Context, jobID int) (*myListEntry, error) {
	var entry *myListEntry
	err := retry.Do(
		func() error {
			found, lookupErr := s.lookupJob(ctx, jobID)
			if lookupErr != nil {
				return lookupErr
			}
			entry = found
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.opts.ListAttempts)),
		retry.Delay(s.opts.ListRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var resolveErr *ResolveError
			return errors.As(err, &resolveErr) && resolveErr.Kind == FailureNotReady
		}),
	)
	if err != nil {
		return nil, asResolveError(err, FailureNotReady, fmt.Sprintf("job %d is not ready", jobID))
	}

	if (entry.Status != nil && strings.EqualFold(*entry.Status, jobStatusError)) ||
		firstNonEmpty(entry.ErrorMessage) != "" {
		msg := firstNonEmpty(entry.ErrorMessage)
		if msg == "" {
			msg = "remote processing failed"
		}
		return nil, failf(FailureRemoteRejection, "%s", msg)
	}
	return entry, nil
}

func (s *Service) lookupJob(ctx context.Context, jobID int) (*myListEntry, error) {
	body, err := s.client.MyList(ctx, jobID)
	if err != nil {
		return nil, remoteFailure(FailureNotReady, body, err)
	}
	resp, decErr := decodePayload[myListResponse](body)
	if decErr != nil {
		return nil, wrapFailure(FailureDecode, decErr, "job listing response was not valid JSON")
	}
	if !truthy(resp.Success) {
		msg := firstNonEmpty(resp.Message, resp.Error, resp.Detail)
		if msg == "" {
			msg = "job listing rejected"
		}
		return nil, failf(FailureRemoteRejection, "%s", msg)
	}
	for i := range resp.Data {
		if resp.Data[i].ID != nil && *resp.Data[i].ID == jobID {
			return &resp.Data[i], nil
		}
	}
	return nil, failf(FailureNotReady, "job %d not present in listing yet", jobID)
}

// resolveLinks exchanges every file with a valid id and name for a
// stream URL, dispatching concurrently with a bounded worker count.
// All exchanges run to completion; one file's failure never cancels
// the others. Emission order is not guaranteed to match file order.
func (s *Service) resolveLinks(ctx context.Context, tag string, jobID int, entry *myListEntry) []models.StreamDescriptor {
	var (
		mu      sync.Mutex
		streams []models.StreamDescriptor
	)
	workers := pool.New().WithMaxGoroutines(s.opts.LinkWorkers)
	for i := range entry.Files {
		file := entry.Files[i]
		if file.ID == nil || file.Name == nil {
			// not exchangeable; neither a success nor a failure
			continue
		}
		workers.Go(func() {
			descriptor, exchangeErr := s.exchangeLink(ctx, jobID, *file.ID, *file.Name)
			if exchangeErr != nil {
				log.Printf("[torbox-resolve] %s link exchange skipped: job=%d file=%d err=%v", tag, jobID, *file.ID, exchangeErr)
				return
			}
			mu.Lock()
			streams = append(streams, descriptor)
			mu.Unlock()
		})
	}
	workers.Wait()
	return streams
}

func (s *Service) exchangeLink(ctx context.Context, jobID, fileID int, fileName string) (models.StreamDescriptor, error) {
	body, err := s.client.RequestDownload(ctx, jobID, fileID)
	if err != nil {
		return models.StreamDescriptor{}, remoteFailure(FailureTransport, body, err)
	}
	resp, decErr := decodePayload[requestDLResponse](body)
	if decErr != nil {
		return models.StreamDescriptor{}, wrapFailure(FailureDecode, decErr, "link exchange response was not valid JSON")
	}

	resolvedURL := ""
	if resp.Data != nil {
		resolvedURL = strings.TrimSpace(*resp.Data)
	}
	if !truthy(resp.Success) || resolvedURL == "" {
		msg := firstNonEmpty(resp.Message, resp.Error, resp.Detail)
		if msg == "" {
			msg = "link exchange failed"
		}
		return models.StreamDescriptor{}, failf(FailureRemoteRejection, "%s", msg)
	}
	return AssembleStream(fileName, resolvedURL, s.opts.Referer), nil
}
