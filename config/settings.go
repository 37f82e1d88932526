package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server ServerSettings `json:"server"`
	TorBox TorBoxSettings `json:"torbox"`
	Log    LogSettings    `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// TorBoxSettings configures the debrid client and resolution pipeline.
type TorBoxSettings struct {
	APIKey     string `json:"apiKey"`
	APIBase    string `json:"apiBase"`
	SearchBase string `json:"searchBase"`
	// AsQueued is passed through on torrent submission.
	AsQueued bool `json:"asQueued"`
	// LinkWorkers bounds concurrent per-file link exchanges.
	LinkWorkers int `json:"linkWorkers"`
	// ListAttempts is the number of mylist lookups after submission.
	// 1 preserves the single-shot contract; higher values enable
	// bounded polling with exponential backoff.
	ListAttempts          int `json:"listAttempts"`
	ListRetryDelaySeconds int `json:"listRetryDelaySeconds"`
}

// LogSettings configures optional file logging with rotation.
type LogSettings struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// Credential returns the configured API key and whether one is set.
// Whitespace-only keys count as absent so every caller fails closed.
func (s Settings) Credential() (string, bool) {
	key := strings.TrimSpace(s.TorBox.APIKey)
	return key, key != ""
}

// DefaultSettings returns the configuration written on first run.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8484,
		},
		TorBox: TorBoxSettings{
			APIKey:                "",
			APIBase:               "https://api.torbox.app/v1/api",
			SearchBase:            "https://search-api.torbox.app",
			AsQueued:              false,
			LinkWorkers:           4,
			ListAttempts:          1,
			ListRetryDelaySeconds: 3,
		},
		Log: LogSettings{
			File:       "",
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Manager reads and writes the settings file.
type Manager struct {
	fs   afero.Fs
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{fs: afero.NewOsFs(), path: configPath}
}

// NewManagerWithFs constructs a manager over an arbitrary filesystem.
func NewManagerWithFs(fsys afero.Fs, configPath string) *Manager {
	return &Manager{fs: fsys, path: configPath}
}

// Load reads settings from disk, creating defaults if the file is
// missing. Zero-valued tuning knobs are backfilled so hand-edited
// files keep working.
func (m *Manager) Load() (Settings, error) {
	if m == nil || m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := m.fs.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		return Settings{}, err
	}
	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	settings.normalize()
	return settings, nil
}

// Save persists settings with stable indentation.
func (m *Manager) Save(s Settings) error {
	if m == nil || m.path == "" {
		return errors.New("config path not set")
	}
	if dir := filepath.Dir(m.path); dir != "." && dir != "" {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(m.fs, m.path, data, 0o644)
}

func (s *Settings) normalize() {
	defaults := DefaultSettings()
	if s.Server.Port <= 0 {
		s.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = defaults.Server.Host
	}
	if strings.TrimSpace(s.TorBox.APIBase) == "" {
		s.TorBox.APIBase = defaults.TorBox.APIBase
	}
	if strings.TrimSpace(s.TorBox.SearchBase) == "" {
		s.TorBox.SearchBase = defaults.TorBox.SearchBase
	}
	if s.TorBox.LinkWorkers <= 0 {
		s.TorBox.LinkWorkers = defaults.TorBox.LinkWorkers
	}
	if s.TorBox.ListAttempts <= 0 {
		s.TorBox.ListAttempts = defaults.TorBox.ListAttempts
	}
	if s.TorBox.ListRetryDelaySeconds <= 0 {
		s.TorBox.ListRetryDelaySeconds = defaults.TorBox.ListRetryDelaySeconds
	}
}
