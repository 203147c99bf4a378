package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"checkin-backend/config"
	"checkin-backend/models"
	"checkin-backend/realtime"
)

// SettingsKey is the singleton document in the settings collection.
const SettingsKey = "app"

// SettingsService owns the application settings: loaded once from the
// settings file, saved on update and mirrored to the shared store.
type SettingsService struct {
	store realtime.Store
	path  string
	log   zerolog.Logger

	mu      sync.RWMutex
	current models.Settings
	unsub   func()
}

func NewSettingsService(store realtime.Store, path string, log zerolog.Logger) (*SettingsService, error) {
	s, err := config.LoadSettingsFile(path)
	if err != nil {
		return nil, err
	}
	return &SettingsService{
		store:   store,
		path:    path,
		current: s,
		log:     log.With().Str("component", "settings").Logger(),
	}, nil
}

// Start follows remote settings changes made from other devices.
func (s *SettingsService) Start() {
	if s.store == nil || s.unsub != nil {
		return
	}
	s.unsub = s.store.Subscribe(realtime.CollectionSettings, s.apply)
}

func (s *SettingsService) Stop() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

func (s *SettingsService) apply(snap realtime.Snapshot) {
	raw, ok := snap.Get(SettingsKey)
	if !ok {
		return
	}
	next := models.DefaultSettings()
	if err := json.Unmarshal(raw, &next); err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed remote settings")
		return
	}
	s.mu.Lock()
	changed := next != s.current
	s.current = next
	s.mu.Unlock()
	if !changed {
		return
	}
	if err := config.SaveSettingsFile(s.path, next); err != nil {
		s.log.Warn().Err(err).Msg("remote settings not saved locally")
	}
	s.log.Info().Msg("settings updated from shared store")
}

func (s *SettingsService) Get() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Public hides credentials from non-admin callers.
func (s *SettingsService) Public() models.Settings {
	st := s.Get()
	st.JotformAPIKey = ""
	return st
}

// WaiverURL is the external form base used for prefilled waiver links.
func (s *SettingsService) WaiverURL() string {
	return s.Get().JotformURL
}

func (s *SettingsService) APIKey() string {
	return s.Get().JotformAPIKey
}

// Update saves the settings locally and mirrors them. A mirror failure is
// returned as a SYNC_FAILURE while the local copy stays saved.
func (s *SettingsService) Update(ctx context.Context, next models.Settings) (models.Settings, error) {
	next.JotformURL = strings.TrimSpace(next.JotformURL)
	next.JotformFormID = strings.TrimSpace(next.JotformFormID)
	next.JotformAPIKey = strings.TrimSpace(next.JotformAPIKey)
	if strings.TrimSpace(next.HeaderName) == "" {
		return s.Get(), invalid("headerName must not be empty")
	}

	if err := config.SaveSettingsFile(s.path, next); err != nil {
		return s.Get(), WrapError(CodeInvalidArgument, "save settings", err)
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	s.log.Info().Msg("settings saved")

	if s.store == nil {
		return next, nil
	}
	if err := s.store.Put(ctx, realtime.CollectionSettings, SettingsKey, next); err != nil {
		s.log.Error().Err(err).Msg("settings not mirrored")
		return next, WrapError(CodeSyncFailure, "mirror settings", err)
	}
	return next, nil
}
