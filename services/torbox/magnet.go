package torbox

import (
	"net/url"
	"strings"
)

const (
	magnetScheme      = "magnet:"
	btihPrefix        = "urn:btih:"
	hashLocatorPrefix = "hash:"
)

// HashLocator synthesizes an opaque locator for a search hit that has
// no magnet URI. The hash round-trips losslessly.
func HashLocator(hash string) string {
	return hashLocatorPrefix + strings.ToLower(strings.TrimSpace(hash))
}

// IsHashLocator reports whether a locator was synthesized from a
// content hash.
func IsHashLocator(locator string) bool {
	return strings.HasPrefix(strings.ToLower(locator), hashLocatorPrefix)
}

// HashFromLocator extracts the content hash from a synthetic locator.
func HashFromLocator(locator string) string {
	return strings.TrimPrefix(strings.TrimSpace(locator), hashLocatorPrefix)
}

// IsMagnet reports whether a locator is a magnet URI.
func IsMagnet(locator string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(locator)), magnetScheme)
}

// BuildMagnet reconstructs a magnet URI from a content hash plus
// fetched metadata. The display name and trackers are optional.
func BuildMagnet(hash, name string, trackers []string) string {
	var b strings.Builder
	b.WriteString(magnetScheme)
	b.WriteString("?xt=")
	b.WriteString(btihPrefix)
	b.WriteString(strings.ToLower(strings.TrimSpace(hash)))
	if name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}
	for _, tracker := range trackers {
		if strings.TrimSpace(tracker) == "" {
			continue
		}
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tracker))
	}
	return b.String()
}

// InfoHashFromMagnet extracts the btih content hash from a magnet URI,
// or "" when none is present.
func InfoHashFromMagnet(magnet string) string {
	parsed, err := url.Parse(strings.TrimSpace(magnet))
	if err != nil || parsed.Scheme != "magnet" {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		lowered := strings.ToLower(xt)
		if strings.HasPrefix(lowered, btihPrefix) {
			return strings.TrimPrefix(lowered, btihPrefix)
		}
	}
	return ""
}

// DisplayNameFromMagnet returns the decoded dn parameter of a magnet
// URI, or fallback when the magnet carries no usable name.
func DisplayNameFromMagnet(magnet, fallback string) string {
	parsed, err := url.Parse(strings.TrimSpace(magnet))
	if err != nil || parsed.Scheme != "magnet" {
		return fallback
	}
	if name := strings.TrimSpace(parsed.Query().Get("dn")); name != "" {
		return name
	}
	return fallback
}
