package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"streambox/models"
	"streambox/services/torbox"
)

type stubService struct {
	searchItems []models.CatalogItem
	searchErr   error
	streams     []models.StreamDescriptor
	resolveErr  error
	meta        *models.TorrentMeta
	metaErr     error

	lastLocator string
}

func (s *stubService) Search(_ context.Context, _ string) ([]models.CatalogItem, error) {
	return s.searchItems, s.searchErr
}

func (s *stubService) Resolve(_ context.Context, locator string) ([]models.StreamDescriptor, error) {
	s.lastLocator = locator
	return s.streams, s.resolveErr
}

func (s *stubService) TorrentMeta(_ context.Context, _ string) (*models.TorrentMeta, error) {
	return s.meta, s.metaErr
}

func newTestRouter(stub *stubService) *mux.Router {
	router := mux.NewRouter()
	NewTorboxHandler(stub).Register(router)
	return router
}

func TestSearchHandler(t *testing.T) {
	stub := &stubService{searchItems: []models.CatalogItem{{Kind: models.MediaKindMovie, Title: "X", Locator: "magnet:?xt=urn:btih:aa", Quality: "1080p"}}}
	router := newTestRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/torbox/search?q=x", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Items []models.CatalogItem `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].Title != "X" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSearchHandlerRequiresQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/torbox/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResolveHandlerSuccess(t *testing.T) {
	stub := &stubService{streams: []models.StreamDescriptor{{URL: "https://cdn.example/x.mkv", Name: "x.mkv", Quality: "unknown", Format: models.StreamFormatProgressive}}}
	router := newTestRouter(stub)

	body := strings.NewReader(`{"locator": "magnet:?xt=urn:btih:aa"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/torbox/resolve", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.lastLocator != "magnet:?xt=urn:btih:aa" {
		t.Fatalf("locator not forwarded, got %q", stub.lastLocator)
	}
}

func TestResolveHandlerClassifiedFailures(t *testing.T) {
	cases := []struct {
		kind torbox.FailureKind
		want int
	}{
		{torbox.FailureCredentialMissing, http.StatusUnauthorized},
		{torbox.FailureNotReady, http.StatusServiceUnavailable},
		{torbox.FailureNoPlayableFiles, http.StatusNotFound},
		{torbox.FailureRemoteRejection, http.StatusBadGateway},
		{torbox.FailureTransport, http.StatusBadGateway},
	}
	for _, tc := range cases {
		stub := &stubService{resolveErr: &torbox.ResolveError{Kind: tc.kind, Message: "nope"}}
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"locator": "magnet:?xt=urn:btih:aa"}`)
		newTestRouter(stub).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/torbox/resolve", body))

		if rec.Code != tc.want {
			t.Errorf("kind %s: expected %d, got %d", tc.kind, tc.want, rec.Code)
			continue
		}
		var payload struct {
			Streams []models.StreamDescriptor `json:"streams"`
			Error   struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
			t.Errorf("kind %s: decode: %v", tc.kind, err)
			continue
		}
		if len(payload.Streams) != 0 {
			t.Errorf("kind %s: failure must carry an empty stream list", tc.kind)
		}
		if payload.Error.Kind != string(tc.kind) || payload.Error.Message != "nope" {
			t.Errorf("kind %s: unexpected error payload %+v", tc.kind, payload.Error)
		}
	}
}

func TestResolveHandlerRejectsBadBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/torbox/resolve", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetaHandler(t *testing.T) {
	stub := &stubService{meta: &models.TorrentMeta{Name: "Some Movie", Hash: "deadbeef"}}
	rec := httptest.NewRecorder()
	newTestRouter(stub).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/torbox/meta/deadbeef", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var meta models.TorrentMeta
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if meta.Hash != "deadbeef" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}
