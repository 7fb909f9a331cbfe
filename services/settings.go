package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ringboard/ringboard/db"
)

const settingsFileName = "integration_settings.json"

// SettingsService persists the integration settings record as a single JSON
// document in the data directory. The record is entirely client-local; there
// is no server authority and no schema versioning.
type SettingsService struct {
	path string
	mu   sync.Mutex
}

func NewSettingsService(dataDir string) (*SettingsService, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &SettingsService{path: filepath.Join(dataDir, settingsFileName)}, nil
}

// Load reads the stored settings, merged over defaults so fields added
// later still come back populated. Read errors degrade to defaults.
func (s *SettingsService) Load() db.IntegrationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *SettingsService) loadLocked() db.IntegrationSettings {
	settings := db.DefaultSettings()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Settings: read failed, using defaults: %v", err)
		}
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		log.Printf("Settings: unreadable settings file, using defaults: %v", err)
		return db.DefaultSettings()
	}
	return settings
}

// Save writes the full settings record.
func (s *SettingsService) Save(settings db.IntegrationSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(settings)
}

func (s *SettingsService) saveLocked(settings db.IntegrationSettings) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpdateChannel replaces one messaging integration's settings and returns
// the full record.
func (s *SettingsService) UpdateChannel(name string, channel db.ChannelSettings) (db.IntegrationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.loadLocked()
	switch name {
	case "whatsapp":
		settings.WhatsApp = channel
	case "telegram":
		settings.Telegram = channel
	case "instagram":
		settings.Instagram = channel
	default:
		return settings, fmt.Errorf("unknown integration %q", name)
	}
	return settings, s.saveLocked(settings)
}

// UpdateN8N replaces the generic webhook URLs and returns the full record.
func (s *SettingsService) UpdateN8N(n8n db.N8NSettings) (db.IntegrationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.loadLocked()
	settings.N8N = n8n
	return settings, s.saveLocked(settings)
}
