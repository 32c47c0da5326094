package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8100", cfg.HTTPAddr)
	assert.Equal(t, "gpt-4-turbo", cfg.OpenAIModel)
	assert.Equal(t, 30*time.Minute, cfg.ConversationTimeout)
	assert.Equal(t, 4096, cfg.MaxTokens)
	assert.Equal(t, 512, cfg.TokenBuffer)
	assert.Equal(t, 2, cfg.MaxPerCategory)
	assert.Equal(t, BackendSQLite, cfg.PlantBackend)
	assert.Equal(t, "Plants!A1:P", cfg.SheetRange)
	assert.Equal(t, 30, cfg.SheetsRequestsPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.WeatherCacheTTL)
	assert.InDelta(t, 29.7604, cfg.Latitude, 1e-9)
	assert.Equal(t, "America/Chicago", cfg.Location().String())
	require.NotNil(t, cfg.Climate)
	assert.Equal(t, "9a/9b", cfg.Climate.HardinessZone)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CONVERSATION_TIMEOUT", "10m")
	t.Setenv("CONVERSATION_MAX_TOKENS", "3000")
	t.Setenv("CONVERSATION_TOKEN_BUFFER", "0")
	t.Setenv("PLANT_BACKEND", "Sheets")
	t.Setenv("SPREADSHEET_ID", "sheet-123")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.ConversationTimeout)
	assert.Equal(t, 3000, cfg.MaxTokens)
	assert.Equal(t, 0, cfg.TokenBuffer)
	assert.Equal(t, BackendSheets, cfg.PlantBackend)
	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"sheets without id", map[string]string{"PLANT_BACKEND": "sheets"}},
		{"unknown backend", map[string]string{"PLANT_BACKEND": "postgres"}},
		{"buffer too large", map[string]string{"CONVERSATION_MAX_TOKENS": "100", "CONVERSATION_TOKEN_BUFFER": "100"}},
		{"bad timezone", map[string]string{"WEATHER_TIMEZONE": "Mars/Olympus"}},
		{"bad duration", map[string]string{"CONVERSATION_TIMEOUT": "soon"}},
		{"missing climate file", map[string]string{"CLIMATE_FILE": "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadClimate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "climate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
location: Austin, TX, USA
aliases: [Austin, "Austin, TX"]
hardiness_zone: 8b
soil: Limestone and clay
`), 0o600))

	t.Setenv("CLIMATE_FILE", path)
	cfg, err := Load()
	require.NoError(t, err)

	c := cfg.Climate
	assert.Equal(t, "Austin, TX, USA", c.Location)
	assert.Equal(t, "Austin", c.City())
	assert.Equal(t, "8b", c.HardinessZone)
	assert.Equal(t, "Limestone and clay", c.Soil)
	assert.Equal(t, DefaultClimate().Humidity, c.Humidity)
	assert.True(t, c.Supports("austin"))
	assert.False(t, c.Supports("Houston"))
}

func TestLoadClimate_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("location: [unterminated"), 0o600))

	_, err := LoadClimate(path)
	assert.Error(t, err)

	_, err = LoadClimate(" ")
	assert.Error(t, err)
}

func TestClimate_Default(t *testing.T) {
	c := DefaultClimate()

	for _, loc := range []string{"Houston, TX, USA", "houston, tx", "   houston   ", "HOUSTON"} {
		assert.True(t, c.Supports(loc), loc)
	}
	for _, loc := range []string{"New York, NY", "Seattle, WA", ""} {
		assert.False(t, c.Supports(loc), loc)
	}

	ctx := c.Context()
	assert.Contains(t, ctx, "Location: Houston, TX, USA")
	assert.Contains(t, ctx, "Hardiness Zone: 9a/9b")
	assert.Contains(t, ctx, "Temperature Range: Summer 90-100°F (32-38°C), Winter 30-40°F (-1-4°C)")
	assert.Contains(t, ctx, "Soil: Clay soil, alkaline pH (7.0-8.0)")
	assert.Equal(t, "Houston", c.City())
}
