package models

// MediaKind classifies a catalog item for display purposes.
type MediaKind string

const (
	MediaKindMovie   MediaKind = "movie"
	MediaKindSeries  MediaKind = "series"
	MediaKindTorrent MediaKind = "torrent"
)

// CatalogItem is the normalized, UI-ready projection of one search hit.
// Kind is always set; unclassifiable hits are dropped before an item is
// ever produced. Optional counts stay nil when the index did not report
// them.
type CatalogItem struct {
	Kind      MediaKind `json:"kind"`
	Title     string    `json:"title"`
	Locator   string    `json:"locator"`
	Quality   string    `json:"quality"`
	Year      *int      `json:"year,omitempty"`
	SizeBytes *int64    `json:"sizeBytes,omitempty"`
	Seeders   *int      `json:"seeders,omitempty"`
	Peers     *int      `json:"peers,omitempty"`
}

// StreamFormat hints at the container the player should expect.
type StreamFormat string

const (
	StreamFormatHLS         StreamFormat = "hls"
	StreamFormatProgressive StreamFormat = "progressive"
)

// StreamDescriptor is one directly playable link produced by a
// resolution. The URL carries its own expiry on the remote side; the
// descriptor is never persisted here.
type StreamDescriptor struct {
	URL     string       `json:"url"`
	Name    string       `json:"name"`
	Quality string       `json:"quality"`
	Referer string       `json:"referer"`
	Format  StreamFormat `json:"format"`
}

// TorrentMeta is the redisplay projection of the torrentinfo endpoint:
// enough to show a torrent and rebuild a magnet URI, but its files
// carry no exchangeable ids.
type TorrentMeta struct {
	Name      string            `json:"name"`
	Hash      string            `json:"hash"`
	SizeBytes *int64            `json:"sizeBytes,omitempty"`
	Trackers  []string          `json:"trackers,omitempty"`
	Seeders   *int              `json:"seeders,omitempty"`
	Peers     *int              `json:"peers,omitempty"`
	Files     []TorrentMetaFile `json:"files,omitempty"`
}

// TorrentMetaFile is a name/size pair inside TorrentMeta.
type TorrentMetaFile struct {
	Name      string `json:"name"`
	SizeBytes *int64 `json:"sizeBytes,omitempty"`
}
