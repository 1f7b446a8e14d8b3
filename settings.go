package keshavai

import (
	"context"
	"strconv"
)

// Store keys for individual settings.
const (
	keyAPIKey           = "apiKey"
	keyAPIURL           = "apiUrl"
	keySelectedModelID  = "selectedModelId"
	keyStreamingEnabled = "streamingEnabled"
	keyWebSearchEnabled = "webSearchEnabled"
)

// Settings is a point-in-time snapshot of the user configuration the
// send protocol depends on.
type Settings struct {
	APIKey           string
	APIURL           string
	ModelID          string
	StreamingEnabled bool
	WebSearchEnabled bool
}

// SettingsProvider supplies the current configuration. The session
// manager reads a fresh snapshot per operation and never mutates it.
type SettingsProvider interface {
	Settings(ctx context.Context) Settings
}

// StaticSettings is a fixed-value SettingsProvider.
type StaticSettings Settings

// Settings returns the fixed snapshot.
func (s StaticSettings) Settings(ctx context.Context) Settings {
	return Settings(s)
}

// StoreSettings is a SettingsProvider persisted in a Store, one key
// per setting, written through on every change.
type StoreSettings struct {
	store    Store
	defaults Settings
}

// NewStoreSettings creates a store-backed settings provider. Values
// absent from the store fall back to defaults.
func NewStoreSettings(store Store, defaults Settings) *StoreSettings {
	return &StoreSettings{store: store, defaults: defaults}
}

// Settings reads the current snapshot from the store.
func (s *StoreSettings) Settings(ctx context.Context) Settings {
	current := s.defaults
	if v, ok := s.get(ctx, keyAPIKey); ok {
		current.APIKey = v
	}
	if v, ok := s.get(ctx, keyAPIURL); ok {
		current.APIURL = v
	}
	if v, ok := s.get(ctx, keySelectedModelID); ok {
		current.ModelID = v
	}
	if v, ok := s.get(ctx, keyStreamingEnabled); ok {
		current.StreamingEnabled = v == "true"
	}
	if v, ok := s.get(ctx, keyWebSearchEnabled); ok {
		current.WebSearchEnabled = v == "true"
	}
	return current
}

// SetAPIKey stores the API key.
func (s *StoreSettings) SetAPIKey(ctx context.Context, key string) error {
	return s.store.Set(ctx, keyAPIKey, []byte(key))
}

// SetAPIURL stores the completion endpoint URL.
func (s *StoreSettings) SetAPIURL(ctx context.Context, url string) error {
	return s.store.Set(ctx, keyAPIURL, []byte(url))
}

// SetModelID stores the selected model identifier.
func (s *StoreSettings) SetModelID(ctx context.Context, id string) error {
	return s.store.Set(ctx, keySelectedModelID, []byte(id))
}

// SetStreamingEnabled stores the streaming toggle.
func (s *StoreSettings) SetStreamingEnabled(ctx context.Context, enabled bool) error {
	return s.store.Set(ctx, keyStreamingEnabled, []byte(strconv.FormatBool(enabled)))
}

// SetWebSearchEnabled stores the web-search toggle.
func (s *StoreSettings) SetWebSearchEnabled(ctx context.Context, enabled bool) error {
	return s.store.Set(ctx, keyWebSearchEnabled, []byte(strconv.FormatBool(enabled)))
}

func (s *StoreSettings) get(ctx context.Context, key string) (string, bool) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return string(value), true
}

// validate reports the settings a send cannot proceed without.
func (s Settings) validate() error {
	var missing []string
	if s.APIKey == "" {
		missing = append(missing, "API key")
	}
	if s.APIURL == "" {
		missing = append(missing, "API URL")
	}
	if s.ModelID == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
