package torbox

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire records for the five TorBox response shapes. Optional fields
// are pointers so an absent value is never mistaken for a zero: a
// missing seed count stays nil, it does not become 0.

type searchResponse struct {
	Success bool        `json:"success"`
	Message *string     `json:"message"`
	Data    *searchData `json:"data"`
}

type searchData struct {
	NZBs      []searchRecord `json:"nzbs"`
	TotalNZBs *int           `json:"total_nzbs"`
}

// searchRecord is one hit from the remote index.
type searchRecord struct {
	Hash        string       `json:"hash"`
	RawTitle    string       `json:"raw_title"`
	Title       *string      `json:"title"`
	TitleParsed *titleParsed `json:"title_parsed_data"`
	Magnet      *string      `json:"magnet"`
	Seeders     *int         `json:"last_known_seeders"`
	Peers       *int         `json:"last_known_peers"`
	Size        *int64       `json:"size"`
	Tracker     *string      `json:"tracker"`
	Categories  []string     `json:"categories"`
	Type        *string      `json:"type"` // "torrent" or "usenet"
	Cached      *bool        `json:"cached"`
	Owned       *bool        `json:"owned"`
}

type titleParsed struct {
	Year    *int    `json:"year"`
	Title   *string `json:"title"`
	Encoder *string `json:"encoder"`
	Site    *string `json:"site"`
}

type torrentInfoResponse struct {
	Success *bool            `json:"success"`
	Message *string          `json:"message"`
	Error   *string          `json:"error"`
	Detail  *string          `json:"detail"`
	Data    *torrentInfoData `json:"data"`
}

type torrentInfoData struct {
	Name     *string           `json:"name"`
	Hash     *string           `json:"hash"`
	Size     *int64            `json:"size"`
	Trackers []string          `json:"trackers"`
	Seeders  *int              `json:"seeds"`
	Peers    *int              `json:"peers"`
	Files    []torrentInfoFile `json:"files"`
}

type torrentInfoFile struct {
	Name *string `json:"name"`
	Size *int64  `json:"size"`
}

type createResponse struct {
	Success *bool       `json:"success"`
	Message *string     `json:"message"`
	Error   *string     `json:"error"`
	Detail  *string     `json:"detail"`
	Data    *createData `json:"data"`
}

type createData struct {
	ID        *int    `json:"id"`
	TorrentID *int    `json:"torrent_id"`
	Hash      *string `json:"hash"`
	Error     *string `json:"error"`
	Detail    *string `json:"detail"`
}

// jobID returns the created job id regardless of which field the API
// populated.
func (r *createResponse) jobID() *int {
	if r == nil || r.Data == nil {
		return nil
	}
	if r.Data.ID != nil {
		return r.Data.ID
	}
	return r.Data.TorrentID
}

type myListResponse struct {
	Success *bool         `json:"success"`
	Message *string       `json:"message"`
	Error   *string       `json:"error"`
	Detail  *string       `json:"detail"`
	Data    []myListEntry `json:"data"`
}

// myListEntry is a transient read-only view of one remote job.
type myListEntry struct {
	ID           *int         `json:"id"`
	Name         *string      `json:"name"`
	Hash         *string      `json:"hash"`
	Size         *int64       `json:"size"`
	Status       *string      `json:"status"`
	Progress     *float64     `json:"progress"`
	Files        []myListFile `json:"files"`
	ErrorMessage *string      `json:"error_message"`
}

type myListFile struct {
	ID         *int    `json:"id"`
	Name       *string `json:"name"`
	Path       *string `json:"path"`
	Size       *int64  `json:"size"`
	Downloaded *bool   `json:"downloaded"`
}

type requestDLResponse struct {
	Success *bool   `json:"success"`
	Message *string `json:"message"`
	Error   *string `json:"error"`
	Detail  *string `json:"detail"`
	Data    *string `json:"data"`
}

// errorEnvelope is the minimal shape shared by every TorBox error
// payload, used when inspecting non-2xx bodies.
type errorEnvelope struct {
	Success *bool   `json:"success"`
	Message *string `json:"message"`
	Error   *string `json:"error"`
	Detail  *string `json:"detail"`
}

// decodePayload unmarshals a raw vendor payload. It fails only when
// the body is not well-formed JSON; semantically empty payloads decode
// successfully with all optional fields nil.
func decodePayload[T any](body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode torbox payload: %w", err)
	}
	return &out, nil
}

func truthy(b *bool) bool {
	return b != nil && *b
}

// firstNonEmpty picks the first vendor-supplied string with content.
func firstNonEmpty(candidates ...*string) string {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*c); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
