package torbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambox/models"
)

// fakeTorbox serves canned responses for the five endpoints and counts
// every round trip per path.
type fakeTorbox struct {
	t *testing.T

	mu       sync.Mutex
	requests map[string]int

	searchBody      string
	createBody      string
	myListBody      string
	myListSeq       []string // consumed one per listing call before myListBody
	torrentInfoBody string
	// requestDL is keyed by file_id; missing ids get a success response
	// with a URL derived from the file id.
	requestDL map[string]string

	lastMagnet string
	lastAuth   string
}

func newFakeTorbox(t *testing.T) *fakeTorbox {
	return &fakeTorbox{
		t:          t,
		requests:   map[string]int{},
		searchBody: `{"success": true, "data": {"nzbs": []}}`,
		createBody: `{"success": true, "data": {"id": 42, "hash": "deadbeef"}}`,
		myListBody: `{"success": true, "data": []}`,
		requestDL:  map[string]string{},
	}
}

func (f *fakeTorbox) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *fakeTorbox) seen() (magnet, auth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMagnet, f.lastAuth
}

func (f *fakeTorbox) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.requests {
		n += c
	}
	return n
}

func (f *fakeTorbox) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests[r.URL.Path]++
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, searchPath):
			io.WriteString(w, f.searchBody)
		case r.URL.Path == createPath:
			payload, _ := io.ReadAll(r.Body)
			var req struct {
				Magnet string `json:"magnet"`
			}
			_ = json.Unmarshal(payload, &req)
			f.mu.Lock()
			f.lastMagnet = req.Magnet
			f.mu.Unlock()
			io.WriteString(w, f.createBody)
		case r.URL.Path == myListPath:
			f.mu.Lock()
			body := f.myListBody
			if len(f.myListSeq) > 0 {
				body = f.myListSeq[0]
				f.myListSeq = f.myListSeq[1:]
			}
			f.mu.Unlock()
			io.WriteString(w, body)
		case r.URL.Path == torrentInfoPath:
			io.WriteString(w, f.torrentInfoBody)
		case r.URL.Path == requestDLPath:
			fileID := r.URL.Query().Get("file_id")
			if body, ok := f.requestDL[fileID]; ok {
				io.WriteString(w, body)
				return
			}
			io.WriteString(w, `{"success": true, "data": "https://cdn.example/file-`+fileID+`.mkv"}`)
		default:
			f.t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestService(t *testing.T, f *fakeTorbox, apiKey string) *Service {
	t.Helper()
	return newTestServiceWithOptions(t, f, apiKey, Options{})
}

func newTestServiceWithOptions(t *testing.T, f *fakeTorbox, apiKey string, opts Options) *Service {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	client := NewClient(apiKey, server.URL, server.URL)
	return NewService(client, opts)
}

func TestResolveEndToEnd(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [{"id": 7, "name": "Movie.mkv", "size": 123}]}
	]}`
	fake.requestDL["7"] = `{"success": true, "data": "https://cdn.example/x.mkv"}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef&dn=Movie")
	require.NoError(t, err)
	require.Len(t, streams, 1)

	assert.Equal(t, models.StreamDescriptor{
		URL:     "https://cdn.example/x.mkv",
		Name:    "Movie.mkv",
		Quality: "unknown",
		Referer: "https://torbox.app",
		Format:  models.StreamFormatProgressive,
	}, streams[0])
	_, auth := fake.seen()
	assert.Equal(t, "Bearer test-key", auth)
}

func TestResolveEmitsDescriptorPerFile(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [
			{"id": 7, "name": "E01.mkv"},
			{"id": 8, "name": "E02.mkv"}
		]}
	]}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	require.NoError(t, err)
	require.Len(t, streams, 2)

	// emission order is unspecified; compare as a set
	got := map[string]string{}
	for _, stream := range streams {
		got[stream.Name] = stream.URL
	}
	assert.Equal(t, map[string]string{
		"E01.mkv": "https://cdn.example/file-7.mkv",
		"E02.mkv": "https://cdn.example/file-8.mkv",
	}, got)
}

func TestResolveSkipsFileWithoutID(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [
			{"id": null, "name": "broken.mkv"},
			{"id": 8, "name": "ok.mkv"}
		]}
	]}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "ok.mkv", streams[0].Name)
}

func TestResolveContainsPerFileExchangeFailure(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [
			{"id": 7, "name": "bad.mkv"},
			{"id": 8, "name": "good.mkv"}
		]}
	]}`
	fake.requestDL["7"] = `{"success": false, "error": "file expired"}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "good.mkv", streams[0].Name)
}

func TestResolveAllExchangesFailIsNoPlayableFiles(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [{"id": 7, "name": "bad.mkv"}]}
	]}`
	fake.requestDL["7"] = `{"success": false, "error": "file expired"}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	assert.Empty(t, streams)
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, FailureNoPlayableFiles, resolveErr.Kind)
}

func TestResolveJobMissingFromListingIsNotReady(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": []}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	assert.Empty(t, streams)
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, FailureNotReady, resolveErr.Kind)
	// single-shot contract: exactly one listing attempt by default
	assert.Equal(t, 1, fake.count(myListPath))
}

func TestResolveJobErrorStatusSurfacesVendorMessage(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "error", "error_message": "tracker unreachable", "files": []}
	]}`
	service := newTestService(t, fake, "test-key")

	_, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, FailureRemoteRejection, resolveErr.Kind)
	assert.Equal(t, "tracker unreachable", resolveErr.Message)
}

func TestResolveSubmissionSuccessRequiresJobID(t *testing.T) {
	fake := newFakeTorbox(t)
	// truthy success flag alone is not success
	fake.createBody = `{"success": true, "message": "monthly quota exceeded", "data": {"id": null}}`
	service := newTestService(t, fake, "test-key")

	_, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, FailureRemoteRejection, resolveErr.Kind)
	assert.Equal(t, "monthly quota exceeded", resolveErr.Message)
	assert.Equal(t, 0, fake.count(myListPath))
}

func TestResolveCredentialMissingMakesNoNetworkCall(t *testing.T) {
	fake := newFakeTorbox(t)
	service := newTestService(t, fake, "")

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	assert.Empty(t, streams)
	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, FailureCredentialMissing, resolveErr.Kind)
	assert.Equal(t, 0, fake.total())
}

func TestResolveHashLocatorReconstructsMagnet(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.torrentInfoBody = `{"success": true, "data": {
		"name": "Some Movie", "size": 1000,
		"trackers": ["udp://tracker.example:6969"]
	}}`
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [{"id": 7, "name": "Some.Movie.mkv"}]}
	]}`
	service := newTestService(t, fake, "test-key")

	streams, err := service.Resolve(context.Background(), "hash:deadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	require.NoError(t, err)
	require.Len(t, streams, 1)

	assert.Equal(t, 1, fake.count(torrentInfoPath))
	magnet, _ := fake.seen()
	assert.True(t, strings.HasPrefix(magnet, "magnet:?xt=urn:btih:deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"))
	assert.Contains(t, magnet, "dn=Some+Movie")
	assert.Contains(t, magnet, "tr=udp")
}

func TestResolveOptInPollingRetriesNotReady(t *testing.T) {
	fake := newFakeTorbox(t)
	fake.myListSeq = []string{`{"success": true, "data": []}`}
	fake.myListBody = `{"success": true, "data": [
		{"id": 42, "status": "completed", "files": [{"id": 7, "name": "Movie.mkv"}]}
	]}`
	service := newTestServiceWithOptions(t, fake, "test-key", Options{
		ListAttempts:   3,
		ListRetryDelay: time.Millisecond,
	})

	streams, err := service.Resolve(context.Background(), "magnet:?xt=urn:btih:deadbeef")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, 2, fake.count(myListPath))
}

func TestResolveRejectsUnknownLocator(t *testing.T) {
	fake := newFakeTorbox(t)
	service := newTestService(t, fake, "test-key")

	_, err := service.Resolve(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	var resolveErr *ResolveError
	assert.NotErrorAs(t, err, &resolveErr, "locator validation is a caller error, not a pipeline outcome")
	assert.Equal(t, 0, fake.total())
}
