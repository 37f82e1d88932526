package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"streambox/models"
	"streambox/services/torbox"
)

type torboxService interface {
	Search(ctx context.Context, query string) ([]models.CatalogItem, error)
	Resolve(ctx context.Context, locator string) ([]models.StreamDescriptor, error)
	TorrentMeta(ctx context.Context, hash string) (*models.TorrentMeta, error)
}

var _ torboxService = (*torbox.Service)(nil)

// TorboxHandler exposes catalog search and resolution over HTTP. It is
// a thin shell: all protocol and failure handling lives in the
// service.
type TorboxHandler struct {
	Service torboxService
}

func NewTorboxHandler(service torboxService) *TorboxHandler {
	return &TorboxHandler{Service: service}
}

// Register mounts the handler routes.
func (h *TorboxHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/torbox/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/api/torbox/meta/{hash}", h.Meta).Methods(http.MethodGet)
	r.HandleFunc("/api/torbox/resolve", h.Resolve).Methods(http.MethodPost)
}

func (h *TorboxHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	items, err := h.Service.Search(r.Context(), query)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *TorboxHandler) Meta(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimSpace(mux.Vars(r)["hash"])
	if hash == "" {
		http.Error(w, "missing hash", http.StatusBadRequest)
		return
	}
	meta, err := h.Service.TorrentMeta(r.Context(), hash)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *TorboxHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Locator string `json:"locator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Locator) == "" {
		http.Error(w, "missing locator", http.StatusBadRequest)
		return
	}
	streams, err := h.Service.Resolve(r.Context(), req.Locator)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

// writeFailure maps a classified resolution failure to a status code
// and returns an empty stream list plus the human-readable message.
func writeFailure(w http.ResponseWriter, err error) {
	var resolveErr *torbox.ResolveError
	if !errors.As(err, &resolveErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, statusForKind(resolveErr.Kind), map[string]any{
		"streams": []models.StreamDescriptor{},
		"error": map[string]string{
			"kind":    string(resolveErr.Kind),
			"message": resolveErr.Message,
		},
	})
}

func statusForKind(kind torbox.FailureKind) int {
	switch kind {
	case torbox.FailureCredentialMissing:
		return http.StatusUnauthorized
	case torbox.FailureNotReady:
		return http.StatusServiceUnavailable
	case torbox.FailureNoPlayableFiles:
		return http.StatusNotFound
	case torbox.FailureTransport, torbox.FailureDecode, torbox.FailureRemoteRejection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[handlers] failed to encode response: %v", err)
	}
}
