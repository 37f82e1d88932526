package torbox

import "strings"

// QualityUnknown is returned when no marker matches.
const QualityUnknown = "unknown"

// qualityMarkers is the fixed vocabulary of resolution and source
// markers, in priority order. Resolutions win over source tags.
var qualityMarkers = []struct {
	marker string
	label  string
}{
	{"2160p", "2160p"},
	{"4k", "2160p"},
	{"uhd", "2160p"},
	{"1440p", "1440p"},
	{"1080p", "1080p"},
	{"fullhd", "1080p"},
	{"720p", "720p"},
	{"480p", "480p"},
	{"blu-ray", "bluray"},
	{"bluray", "bluray"},
	{"bdrip", "bluray"},
	{"brrip", "bluray"},
	{"web-dl", "web"},
	{"webdl", "web"},
	{"webrip", "web"},
	{"web", "web"},
	{"hdtv", "hdtv"},
	{"dvdrip", "dvd"},
	{"dvd", "dvd"},
	{"hdcam", "cam"},
	{"camrip", "cam"},
	{"telesync", "cam"},
	{"hdts", "cam"},
}

// QualityFromString scans text against the marker vocabulary,
// first match wins. Unmatched text yields QualityUnknown, never an
// error.
func QualityFromString(text string) string {
	lowered := strings.ToLower(text)
	for _, m := range qualityMarkers {
		if strings.Contains(lowered, m.marker) {
			return m.label
		}
	}
	return QualityUnknown
}
