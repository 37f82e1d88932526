package torbox

import (
	"strings"

	"streambox/models"
)

// toCatalogItem converts one raw search record into a catalog item.
// Usenet hits without a movie/series category are dropped (no playback
// path for them), signalled by ok=false; that is not an error.
func toCatalogItem(rec searchRecord) (models.CatalogItem, bool) {
	kind, ok := classify(rec)
	if !ok {
		return models.CatalogItem{}, false
	}

	title := rec.RawTitle
	if rec.Title != nil && strings.TrimSpace(*rec.Title) != "" {
		title = *rec.Title
	}

	// Prefer the magnet verbatim; otherwise carry the hash so the
	// pipeline can fetch metadata and rebuild a magnet later.
	locator := HashLocator(rec.Hash)
	if rec.Magnet != nil && strings.TrimSpace(*rec.Magnet) != "" {
		locator = *rec.Magnet
	}

	item := models.CatalogItem{
		Kind:      kind,
		Title:     title,
		Locator:   locator,
		Quality:   QualityFromString(qualitySource(rec)),
		SizeBytes: rec.Size,
		Seeders:   rec.Seeders,
		Peers:     rec.Peers,
	}
	if rec.TitleParsed != nil {
		item.Year = rec.TitleParsed.Year
	}
	return item, true
}

// classify picks the item kind, first match wins: movie category,
// tv/series category, explicit torrent type, then a torrent fallback.
// Explicit usenet hits are dropped.
func classify(rec searchRecord) (models.MediaKind, bool) {
	for _, category := range rec.Categories {
		if strings.Contains(strings.ToLower(category), "movie") {
			return models.MediaKindMovie, true
		}
	}
	for _, category := range rec.Categories {
		lowered := strings.ToLower(category)
		if strings.Contains(lowered, "tv") || strings.Contains(lowered, "series") {
			return models.MediaKindSeries, true
		}
	}
	if rec.Type != nil {
		switch strings.ToLower(strings.TrimSpace(*rec.Type)) {
		case "torrent":
			return models.MediaKindTorrent, true
		case "usenet":
			return "", false
		}
	}
	return models.MediaKindTorrent, true
}

// qualitySource mirrors the encoder-or-raw-title precedence the index
// metadata implies: the encoder tag is more reliable when present.
func qualitySource(rec searchRecord) string {
	if rec.TitleParsed != nil && rec.TitleParsed.Encoder != nil && strings.TrimSpace(*rec.TitleParsed.Encoder) != "" {
		return *rec.TitleParsed.Encoder
	}
	return rec.RawTitle
}
