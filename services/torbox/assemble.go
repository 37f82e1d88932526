package torbox

import (
	"net/url"
	"strings"

	"streambox/models"
)

// AssembleStream builds the stream descriptor for one resolved file.
// Pure: identical inputs always produce bit-identical descriptors.
// Unrecognized inputs degrade to unknown quality and a progressive
// format hint.
func AssembleStream(fileName, resolvedURL, referer string) models.StreamDescriptor {
	format := models.StreamFormatProgressive
	if isPlaylistURL(resolvedURL) {
		format = models.StreamFormatHLS
	}
	return models.StreamDescriptor{
		URL:     resolvedURL,
		Name:    fileName,
		Quality: QualityFromString(fileName),
		Referer: referer,
		Format:  format,
	}
}

// isPlaylistURL checks the URL path for a segmented-playlist container.
func isPlaylistURL(rawURL string) bool {
	candidate := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		candidate = parsed.Path
	}
	return strings.Contains(strings.ToLower(candidate), ".m3u8")
}
