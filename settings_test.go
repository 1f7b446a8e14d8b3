package keshavai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSettings_DefaultsWhenEmpty(t *testing.T) {
	store := NewInMemoryStore()
	defaults := Settings{ModelID: DefaultModel.ID, StreamingEnabled: true, WebSearchEnabled: true}
	provider := NewStoreSettings(store, defaults)

	settings := provider.Settings(context.Background())

	assert.Empty(t, settings.APIKey)
	assert.Empty(t, settings.APIURL)
	assert.Equal(t, DefaultModel.ID, settings.ModelID)
	assert.True(t, settings.StreamingEnabled)
	assert.True(t, settings.WebSearchEnabled)
}

func TestStoreSettings_WriteThrough(t *testing.T) {
	store := NewInMemoryStore()
	provider := NewStoreSettings(store, Settings{})
	ctx := context.Background()

	require.NoError(t, provider.SetAPIKey(ctx, "key-123"))
	require.NoError(t, provider.SetAPIURL(ctx, "https://api.example.com/v1/chat/completions"))
	require.NoError(t, provider.SetModelID(ctx, "gpt-4"))
	require.NoError(t, provider.SetStreamingEnabled(ctx, true))
	require.NoError(t, provider.SetWebSearchEnabled(ctx, false))

	settings := provider.Settings(ctx)
	assert.Equal(t, "key-123", settings.APIKey)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", settings.APIURL)
	assert.Equal(t, "gpt-4", settings.ModelID)
	assert.True(t, settings.StreamingEnabled)
	assert.False(t, settings.WebSearchEnabled)

	// A second provider over the same store sees the persisted values.
	again := NewStoreSettings(store, Settings{})
	assert.Equal(t, settings, again.Settings(ctx))
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		missing  []string
	}{
		{
			name:     "complete",
			settings: Settings{APIKey: "k", APIURL: "u", ModelID: "m"},
		},
		{
			name:     "missing everything",
			settings: Settings{},
			missing:  []string{"API key", "API URL", "model"},
		},
		{
			name:     "missing model only",
			settings: Settings{APIKey: "k", APIURL: "u"},
			missing:  []string{"model"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.validate()
			if len(tt.missing) == 0 {
				assert.NoError(t, err)
				return
			}
			var configErr *ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.missing, configErr.Missing)
		})
	}
}
